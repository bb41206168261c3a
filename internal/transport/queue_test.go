package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_RunsInOrder(t *testing.T) {
	q := newEventQueue()
	defer q.stop()

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		q.post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 4 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queue did not drain")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestEventQueue_PostAfterStop(t *testing.T) {
	q := newEventQueue()
	q.stop()

	ran := false
	q.post(func() { ran = true })

	q.mu.Lock()
	pending := len(q.items)
	q.mu.Unlock()
	require.Zero(t, pending, "posts after stop are dropped")
	assert.False(t, ran)
}
