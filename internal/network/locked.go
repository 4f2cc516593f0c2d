package network

import (
	"context"
	"sync"
)

// Locked serializes calls to a Client that is not safe for concurrent use.
type Locked struct {
	mu    sync.Mutex
	inner Client
}

// NewLocked wraps c.
func NewLocked(c Client) *Locked {
	return &Locked{inner: c}
}

// Post holds the lock for the whole round trip.
func (l *Locked) Post(ctx context.Context, req Request) (Response, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Post(ctx, req)
}

var _ Client = (*Locked)(nil)
