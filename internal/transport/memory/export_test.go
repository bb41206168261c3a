package memory

// SetBetweenOpens replaces the hook run between the two open events of a
// dial and returns a func restoring the previous one.
func SetBetweenOpens(f func()) (restore func()) {
	prev := betweenOpens
	betweenOpens = f
	return func() { betweenOpens = prev }
}

func (nd *node) TrackedConns() int {
	nd.mu.Lock()
	defer nd.mu.Unlock()
	return len(nd.conns)
}

// MarkClosed closes nd for new channels while leaving it registered.
func (nd *node) MarkClosed() {
	nd.mu.Lock()
	nd.closed = true
	nd.mu.Unlock()
}
