// Package network is the outbound request boundary. Callers speak in JSON
// requests and status+body responses and never see a concrete HTTP client.
package network

import (
	"context"
	"fmt"
)

// Request is one outbound JSON request. Body is marshalled to JSON.
type Request struct {
	URL     string
	Headers map[string]string
	Body    any
}

// Response is the raw outcome of a request.
type Response struct {
	Code int
	Body string
}

// OK reports whether the status is 2xx.
func (r Response) OK() bool {
	return r.Code >= 200 && r.Code < 300
}

// Err returns a *StatusError for non-2xx responses and nil otherwise.
func (r Response) Err() error {
	if r.OK() {
		return nil
	}
	return &StatusError{Code: r.Code, Body: r.Body}
}

// StatusError carries a non-2xx status and the raw body for diagnostics.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Client issues JSON POST requests.
type Client interface {
	Post(ctx context.Context, req Request) (Response, error)
}
