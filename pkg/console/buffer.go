package console

import (
	"fmt"
	"sync"
	"time"
)

// expectBuffer accumulates console output until a wait consumes it.
// Unconsumed output never shrinks on its own: once it would grow past max
// further output is discarded and the next wait that finds no match fails
// with ErrBufferOverflow.
type expectBuffer struct {
	mu     sync.Mutex
	data   []byte
	max    int
	closed bool
	cause  error
	// dropped counts output discarded since the last reported overflow
	dropped int
	// notify is closed and replaced every time data or closed changes
	notify chan struct{}
}

func newExpectBuffer(max int) *expectBuffer {
	return &expectBuffer{
		max:    max,
		notify: make(chan struct{}),
	}
}

func (b *expectBuffer) signal() {
	close(b.notify)
	b.notify = make(chan struct{})
}

func (b *expectBuffer) write(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dropped > 0 || (b.max > 0 && len(b.data)+len(p) > b.max) {
		b.dropped += len(p)
	} else {
		b.data = append(b.data, p...)
	}
	b.signal()
}

// closedWith reports whether the stream ended and why
func (b *expectBuffer) closedWith() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed, b.cause
}

func (b *expectBuffer) close(cause error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.cause = cause
	b.signal()
}

// snapshot returns the unconsumed output without consuming it
func (b *expectBuffer) snapshot() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.data)
}

// wait blocks until m matches, returning the text before the match and
// consuming everything through its end. Output still buffered after the
// stream closed can satisfy a wait. A wait that cannot match because output
// was discarded clears the buffer and reports ErrBufferOverflow.
func (b *expectBuffer) wait(m Matcher, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		b.mu.Lock()
		if start, end := m.Match(b.data); start >= 0 {
			before := string(b.data[:start])
			b.data = append([]byte(nil), b.data[end:]...)
			b.mu.Unlock()
			return before, nil
		}
		if b.dropped > 0 {
			kept, dropped := len(b.data), b.dropped
			b.data = nil
			b.dropped = 0
			b.mu.Unlock()
			return "", fmt.Errorf("%w: %d bytes kept and %d discarded while waiting for %s",
				ErrBufferOverflow, kept, dropped, m)
		}
		if b.closed {
			cause := b.cause
			b.mu.Unlock()
			return "", fmt.Errorf("%w: waiting for %s: %v", ErrStreamClosed, m, cause)
		}
		ch := b.notify
		b.mu.Unlock()

		select {
		case <-ch:
		case <-timer.C:
			return "", fmt.Errorf("%w: %s after %s", ErrTimeout, m, timeout)
		}
	}
}
