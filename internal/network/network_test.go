package network

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_Post(t *testing.T) {
	var gotBody map[string]string
	var gotKey, gotType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPOptions{Timeout: 5 * time.Second, Logger: zerolog.Nop()})
	resp, err := c.Post(context.Background(), Request{
		URL:     srv.URL,
		Headers: map[string]string{"x-goog-api-key": "secret"},
		Body:    map[string]string{"hello": "world"},
	})
	require.NoError(t, err)

	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, `{"ok":true}`, resp.Body)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "world", gotBody["hello"])
}

func TestHTTPClient_Post_NonSuccessIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("quota exceeded"))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPOptions{Logger: zerolog.Nop()})
	resp, err := c.Post(context.Background(), Request{URL: srv.URL, Body: struct{}{}})
	require.NoError(t, err)

	assert.Equal(t, 500, resp.Code)
	assert.False(t, resp.OK())

	var statusErr *StatusError
	require.True(t, errors.As(resp.Err(), &statusErr))
	assert.Equal(t, 500, statusErr.Code)
	assert.Equal(t, "quota exceeded", statusErr.Body)
}

func TestHTTPClient_Post_Retries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPOptions{RetryMax: 2, Logger: zerolog.Nop()})
	c.client.RetryWaitMin = time.Millisecond
	c.client.RetryWaitMax = 5 * time.Millisecond

	resp, err := c.Post(context.Background(), Request{URL: srv.URL, Body: []int{1}})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPClient_Post_CancelledWhileRateLimited(t *testing.T) {
	c := NewHTTPClient(HTTPOptions{RatePerSecond: 0.001, Logger: zerolog.Nop()})
	// Drain the single burst token.
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Post(ctx, Request{URL: "http://127.0.0.1:1", Body: nil})
	require.Error(t, err)
}

func TestLocked_SerializesCalls(t *testing.T) {
	var inFlight, maxInFlight int32
	inner := &Fake{
		PostFunc: func(context.Context, Request) (Response, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return Response{Code: 200}, nil
		},
	}
	locked := NewLocked(inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = locked.Post(context.Background(), Request{URL: "x"})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
	assert.Len(t, inner.Requests(), 8)
}

func TestFake(t *testing.T) {
	f := NewFake(404, "missing")

	resp, err := f.Post(context.Background(), Request{URL: "https://example.test"})
	require.NoError(t, err)
	assert.Equal(t, Response{Code: 404, Body: "missing"}, resp)
	require.Len(t, f.Requests(), 1)
	assert.Equal(t, "https://example.test", f.Requests()[0].URL)
}
