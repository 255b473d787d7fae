// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ReadsBodyAndStatus(t *testing.T) {
	var ua atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello"))
	}))
	defer ts.Close()

	resp, err := Get(context.Background(), ts.Client(), nil, ts.URL, "pmc-harvester-test/0.1")
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, "hello", string(resp.Body))
	assert.Equal(t, "pmc-harvester-test/0.1", ua.Load())
}

func TestGet_Non2xxIsNotAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	resp, err := Get(context.Background(), ts.Client(), nil, ts.URL, "")
	require.NoError(t, err)

	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGet_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := Get(context.Background(), http.DefaultClient, nil, url, "")
	assert.Error(t, err)
}

func TestGet_LimiterHonorsCancelledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer ts.Close()

	limiter := NewLimiter(0.001)
	require.NotNil(t, limiter)
	// Drain the single burst token.
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Get(ctx, ts.Client(), limiter, ts.URL, "")
	assert.Error(t, err)
}

func TestNewLimiter_DisabledForNonPositiveRate(t *testing.T) {
	assert.Nil(t, NewLimiter(0))
	assert.Nil(t, NewLimiter(-1))
	assert.NotNil(t, NewLimiter(3))
}

func TestBackoff(t *testing.T) {
	lin := Linear(2 * time.Second)
	assert.Equal(t, 2*time.Second, lin(1))
	assert.Equal(t, 4*time.Second, lin(2))
	assert.Equal(t, 6*time.Second, lin(3))

	c := Constant(time.Second)
	assert.Equal(t, time.Second, c(1))
	assert.Equal(t, time.Second, c(5))
}

func TestWait_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Wait(ctx, time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWait_Elapses(t *testing.T) {
	start := time.Now()
	require.NoError(t, Wait(context.Background(), 5*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}
