package sign

import (
	"sync"
	"time"
)

// Nonce issues monotonically non-decreasing values for one authenticated
// client instance. Acquisition is serialized so the sequence observed by the
// signer is non-decreasing even when calls are issued concurrently; the
// signed calls themselves may still run in parallel afterwards.
type Nonce struct {
	mu   sync.Mutex
	last int64
}

// NewNonce creates a nonce source seeded from the wall clock.
func NewNonce() *Nonce {
	return &Nonce{}
}

// Next returns the next nonce: current milliseconds since epoch, bumped past
// the previous value when the clock stalls or regresses.
func (n *Nonce) Next() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := time.Now().UnixMilli()
	if now <= n.last {
		now = n.last + 1
	}
	n.last = now
	return now
}

// Peek returns the most recently issued nonce without advancing it.
func (n *Nonce) Peek() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}
