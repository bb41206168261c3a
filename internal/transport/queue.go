package transport

import "sync"

// eventQueue runs posted functions one at a time, in post order, on a
// single goroutine. Posting never blocks.
type eventQueue struct {
	mu    sync.Mutex
	items []func()
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newEventQueue() *eventQueue {
	q := &eventQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

// post is a no-op once the queue is stopped.
func (q *eventQueue) post(fn func()) {
	select {
	case <-q.done:
		return
	default:
	}

	q.mu.Lock()
	q.items = append(q.items, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// stop lets the queue drain what is already posted and then exit.
func (q *eventQueue) stop() {
	q.once.Do(func() { close(q.done) })
}

func (q *eventQueue) run() {
	for {
		select {
		case <-q.wake:
			q.drain()
		case <-q.done:
			q.drain()
			return
		}
	}
}

func (q *eventQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			return
		}
		fn := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		q.mu.Unlock()

		fn()
	}
}
