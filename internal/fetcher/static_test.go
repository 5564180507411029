package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Retries:    3,
		RetryDelay: time.Millisecond,
		Timeout:    time.Second,
		RatePerSec: 0,
	}
}

func TestStatic_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := NewStatic(testConfig())
	res := f.Fetch(context.Background(), srv.URL)

	if !res.OK {
		t.Fatal("Fetch() should succeed against a healthy server")
	}
	if res.Body == "" {
		t.Error("expected non-empty body")
	}
	if res.URL != srv.URL {
		t.Errorf("expected URL %q, got %q", srv.URL, res.URL)
	}
}

func TestStatic_Fetch_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("eventually"))
	}))
	defer srv.Close()

	f := NewStatic(testConfig())
	res := f.Fetch(context.Background(), srv.URL)

	if !res.OK {
		t.Fatal("Fetch() should succeed on the third attempt")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if res.Body != "eventually" {
		t.Errorf("expected body %q, got %q", "eventually", res.Body)
	}
}

func TestStatic_Fetch_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewStatic(testConfig())
	res := f.Fetch(context.Background(), srv.URL)

	if res.OK {
		t.Fatal("Fetch() should fail after exhausting retries")
	}
	if res.Body != "" {
		t.Errorf("expected empty body on failure, got %q", res.Body)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestStatic_Fetch_TransportError(t *testing.T) {
	// Server closed immediately: every attempt is a connection error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	f := NewStatic(testConfig())
	res := f.Fetch(context.Background(), srv.URL)

	if res.OK {
		t.Error("Fetch() should fail when the server is unreachable")
	}
}

func TestStatic_Fetch_CancelledBetweenAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.RetryDelay = time.Minute
	f := NewStatic(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res := f.Fetch(ctx, srv.URL)

	if res.OK {
		t.Error("Fetch() should fail when cancelled")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation should interrupt the retry delay, took %v", elapsed)
	}
}

func TestNewStatic_Defaults(t *testing.T) {
	f := NewStatic(Config{})

	if f.config.Retries != 3 {
		t.Errorf("expected default retries 3, got %d", f.config.Retries)
	}
	if f.config.RetryDelay != time.Second {
		t.Errorf("expected default retry delay 1s, got %v", f.config.RetryDelay)
	}
	if f.config.UserAgent == "" {
		t.Error("expected a default user agent")
	}
}
