package translate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// countingBackend fails the first failures requests with 500, then
// succeeds, recording the arrival time of every attempt.
type countingBackend struct {
	mu       sync.Mutex
	failures int
	hits     []time.Time
}

func (b *countingBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits = append(b.hits, time.Now())
		n := len(b.hits)
		b.mu.Unlock()

		if n <= b.failures {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"translatedText":"hola"}`))
	}
}

func (b *countingBackend) times() []time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]time.Time(nil), b.hits...)
}

func newTestClient(baseDelay time.Duration) *Client {
	return NewClient(ClientConfig{
		MaxAttempts: 3,
		BaseDelay:   baseDelay,
		Logger:      zerolog.Nop(),
	})
}

func TestClient_SucceedsFirstAttempt(t *testing.T) {
	backend := &countingBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	c := newTestClient(time.Millisecond)
	var out translateResponse
	if err := c.PostJSON(context.Background(), srv.URL, translateRequest{SourceText: "hello"}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TranslatedText != "hola" {
		t.Errorf("expected 'hola', got %q", out.TranslatedText)
	}
	if n := len(backend.times()); n != 1 {
		t.Errorf("expected 1 attempt, got %d", n)
	}
}

func TestClient_RetriesThenSucceeds(t *testing.T) {
	backend := &countingBackend{failures: 2}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	c := newTestClient(20 * time.Millisecond)
	var out translateResponse
	if err := c.PostJSON(context.Background(), srv.URL, translateRequest{SourceText: "hello"}, &out); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if out.TranslatedText != "hola" {
		t.Errorf("expected 'hola', got %q", out.TranslatedText)
	}

	hits := backend.times()
	if len(hits) != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", len(hits))
	}

	// Exponential backoff: second wait (base*2) must exceed the first
	// (base). Generous lower bounds to avoid flaking on slow machines.
	gap1 := hits[1].Sub(hits[0])
	gap2 := hits[2].Sub(hits[1])
	if gap1 < 15*time.Millisecond {
		t.Errorf("first backoff too short: %v", gap1)
	}
	if gap2 < 35*time.Millisecond {
		t.Errorf("second backoff too short: %v", gap2)
	}
}

func TestClient_ExhaustsAttempts(t *testing.T) {
	backend := &countingBackend{failures: 100}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	c := newTestClient(time.Millisecond)
	err := c.PostJSON(context.Background(), srv.URL, translateRequest{SourceText: "hello"}, nil)
	if err == nil {
		t.Fatal("expected terminal failure")
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %T: %v", err, err)
	}
	if reqErr.Attempts != 3 {
		t.Errorf("expected 3 attempts recorded, got %d", reqErr.Attempts)
	}
	if n := len(backend.times()); n != 3 {
		t.Errorf("expected exactly 3 attempts issued, got %d", n)
	}
}

func TestClient_NonSuccessStatusIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(time.Millisecond)
	err := c.PostJSON(context.Background(), srv.URL, translateRequest{}, nil)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError for non-2xx status, got %v", err)
	}
}

func TestClient_ContextCancelStopsRetries(t *testing.T) {
	backend := &countingBackend{failures: 100}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := newTestClient(time.Hour) // backoff would stall forever

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.PostJSON(ctx, srv.URL, translateRequest{}, nil)
	}()

	// Let the first attempt fail, then cancel during backoff.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("request did not return after cancellation")
	}
}
