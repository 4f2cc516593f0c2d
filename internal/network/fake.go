package network

import (
	"context"
	"sync"
)

// Fake is a Client that records requests and replies with a canned
// response. Set PostFunc to customise the reply per request.
type Fake struct {
	PostFunc func(ctx context.Context, req Request) (Response, error)

	mu       sync.Mutex
	requests []Request
}

// NewFake returns a Fake that always answers code and body.
func NewFake(code int, body string) *Fake {
	return &Fake{
		PostFunc: func(context.Context, Request) (Response, error) {
			return Response{Code: code, Body: body}, nil
		},
	}
}

// Post records req and delegates to PostFunc.
func (f *Fake) Post(ctx context.Context, req Request) (Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.PostFunc == nil {
		return Response{Code: 200}, nil
	}
	return f.PostFunc(ctx, req)
}

// Requests returns the requests seen so far.
func (f *Fake) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}

var _ Client = (*Fake)(nil)
