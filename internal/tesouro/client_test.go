package tesouro

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestClientFetchSuccess(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{URL: srv.URL, Timeout: time.Second, UserAgent: "test"}, noopLogger())
	table, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(table.Quotes) != 4 {
		t.Fatalf("expected 4 quotes, got %d", len(table.Quotes))
	}
	if ua != "test" {
		t.Fatalf("user agent not forwarded: %q", ua)
	}
}

func TestClientFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{URL: srv.URL, Timeout: time.Second}, noopLogger())
	_, err := c.Fetch(context.Background())
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if ferr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", ferr.StatusCode)
	}
}

func TestClientFetchParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("foo;bar\n1;2\n"))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{URL: srv.URL, Timeout: time.Second}, noopLogger())
	_, err := c.Fetch(context.Background())
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestClientDefaultURL(t *testing.T) {
	c := NewClient(ClientOptions{}, noopLogger())
	if c.opts.URL != DefaultURL {
		t.Fatalf("expected default url, got %q", c.opts.URL)
	}
}

type countingSource struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (s *countingSource) Fetch(ctx context.Context) (*Table, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return Parse(strings.NewReader(sampleCSV))
}

func TestCacheLoadsOnce(t *testing.T) {
	src := &countingSource{}
	cache := NewCache(src, 0, noopLogger())

	first, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first != second {
		t.Fatal("second Get should return the cached table")
	}
	if n := src.calls.Load(); n != 1 {
		t.Fatalf("expected 1 fetch, got %d", n)
	}

	cache.Invalidate()
	if _, err := cache.Get(context.Background()); err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if n := src.calls.Load(); n != 2 {
		t.Fatalf("expected refetch after invalidate, got %d calls", n)
	}
}

func TestCacheTTL(t *testing.T) {
	src := &countingSource{}
	cache := NewCache(src, time.Hour, noopLogger())
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if _, err := cache.Get(context.Background()); err != nil {
		t.Fatalf("get: %v", err)
	}
	now = now.Add(30 * time.Minute)
	if _, err := cache.Get(context.Background()); err != nil {
		t.Fatalf("get: %v", err)
	}
	if n := src.calls.Load(); n != 1 {
		t.Fatalf("entry should still be fresh, got %d calls", n)
	}

	now = now.Add(time.Hour)
	if _, err := cache.Get(context.Background()); err != nil {
		t.Fatalf("get: %v", err)
	}
	if n := src.calls.Load(); n != 2 {
		t.Fatalf("expired entry should refetch, got %d calls", n)
	}
}

func TestCacheSharesInFlightLoad(t *testing.T) {
	src := &countingSource{delay: 50 * time.Millisecond}
	cache := NewCache(src, 0, noopLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Get(context.Background()); err != nil {
				t.Errorf("get: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := src.calls.Load(); n != 1 {
		t.Fatalf("concurrent Gets should share one fetch, got %d", n)
	}
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	src := &countingSource{err: errors.New("boom")}
	cache := NewCache(src, 0, noopLogger())

	if _, err := cache.Get(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := cache.LoadedAt(); ok {
		t.Fatal("failed load must not populate the cache")
	}
	if _, err := cache.Get(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if n := src.calls.Load(); n != 2 {
		t.Fatalf("failed loads should not be cached, got %d calls", n)
	}
}

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}
