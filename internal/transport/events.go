package transport

import "sync"

// ConnEvents stores channel callbacks for a backend Conn. Events fired
// before a handler is registered are replayed on registration, so a
// consumer attaching late still sees open, every message, and close in
// order. Handlers run with the lock held and must not call back into the
// Conn.
type ConnEvents struct {
	mu      sync.Mutex
	opened  bool
	closed  bool
	err     error
	pending [][]byte

	onOpen    func()
	onMessage func([]byte)
	onClose   func()
	onError   func(error)
}

func (e *ConnEvents) OnOpen(f func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.onOpen = f
	if f != nil && e.opened {
		f()
	}
}

func (e *ConnEvents) OnMessage(f func([]byte)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.onMessage = f
	if f == nil {
		return
	}
	pending := e.pending
	e.pending = nil
	for _, data := range pending {
		f(data)
	}
}

func (e *ConnEvents) OnClose(f func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.onClose = f
	if f != nil && e.closed {
		f()
	}
}

func (e *ConnEvents) OnError(f func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.onError = f
	if f != nil && e.err != nil {
		f(e.err)
	}
}

func (e *ConnEvents) FireOpen() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.opened || e.closed {
		return
	}
	e.opened = true
	if e.onOpen != nil {
		e.onOpen()
	}
}

func (e *ConnEvents) FireMessage(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	if e.onMessage == nil {
		e.pending = append(e.pending, data)
		return
	}
	e.onMessage(data)
}

// FireClose reports the channel closed. Only the first call has effect.
func (e *ConnEvents) FireClose() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}
	e.closed = true
	e.pending = nil
	if e.onClose != nil {
		e.onClose()
	}
	return true
}

func (e *ConnEvents) FireError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.err = err
	if e.onError != nil {
		e.onError(err)
	}
}

func (e *ConnEvents) Opened() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opened && !e.closed
}

func (e *ConnEvents) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
