package oidc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubFetcher struct {
	mu      sync.Mutex
	fetches int
	token   *Token
	err     error
	block   chan struct{}
}

func (s *stubFetcher) Fetch(ctx context.Context) (*Token, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	return s.token, nil
}

func (s *stubFetcher) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

var base = time.Date(2022, 5, 10, 12, 0, 0, 0, time.UTC)

func testCache(fetcher TokenFetcher, margin time.Duration) (*TokenCache, *time.Time) {
	clock := base
	c := NewTokenCache(fetcher, "token", margin)
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestServesCachedTokenWhileFresh(t *testing.T) {
	stub := &stubFetcher{token: NewToken("tok", base, 3600)}
	c, _ := testCache(stub, 5*time.Minute)

	first, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	second, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	if stub.count() != 1 {
		t.Error("expected a single fetch, was", stub.count())
	}
	if first.Raw != "tok" || second.Raw != "tok" {
		t.Error("expected both calls to return the cached token")
	}
}

func TestRefreshesInsideMargin(t *testing.T) {
	stub := &stubFetcher{token: NewToken("first", base, 600)}
	c, clock := testCache(stub, 5*time.Minute)

	if _, err := c.Fetch(context.Background()); err != nil {
		t.Fatal("unexpected error:", err)
	}

	// 4 minutes of lifetime left, within the 5 minute margin
	*clock = clock.Add(6 * time.Minute)
	stub.token = NewToken("second", *clock, 3600)

	token, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if token.Raw != "second" {
		t.Error("expected a refreshed token, was", token.Raw)
	}
	if stub.count() != 2 {
		t.Error("expected two fetches, was", stub.count())
	}
}

func TestKeepsTokenOutsideMargin(t *testing.T) {
	stub := &stubFetcher{token: NewToken("tok", base, 3600)}
	c, clock := testCache(stub, 5*time.Minute)

	if _, err := c.Fetch(context.Background()); err != nil {
		t.Fatal("unexpected error:", err)
	}

	// 10 minutes of lifetime left, outside the margin
	*clock = clock.Add(50 * time.Minute)

	if _, err := c.Fetch(context.Background()); err != nil {
		t.Fatal("unexpected error:", err)
	}
	if stub.count() != 1 {
		t.Error("expected the cached token to be served, fetches:", stub.count())
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	stub := &stubFetcher{err: errors.New("endpoint down")}
	c, _ := testCache(stub, 5*time.Minute)

	if _, err := c.Fetch(context.Background()); err == nil {
		t.Fatal("expected an error")
	}

	stub.err = nil
	stub.token = NewToken("tok", base, 3600)

	token, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	if token.Raw != "tok" {
		t.Error("expected a fresh fetch after the failure")
	}
	if stub.count() != 2 {
		t.Error("expected two fetches, was", stub.count())
	}
}

func TestTokensShorterThanMarginAreFetchedEveryCall(t *testing.T) {
	stub := &stubFetcher{token: NewToken("tok", base, 120)}
	c, _ := testCache(stub, 5*time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := c.Fetch(context.Background()); err != nil {
			t.Fatal("unexpected error:", err)
		}
	}
	if stub.count() != 3 {
		t.Error("expected every call to fetch, was", stub.count())
	}
}

func TestConcurrentCallersShareOneFetch(t *testing.T) {
	stub := &stubFetcher{token: NewToken("tok", time.Now(), 3600), block: make(chan struct{})}
	c := NewTokenCache(stub, "token", 5*time.Minute)

	var wg sync.WaitGroup
	results := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := c.Fetch(context.Background())
			if err != nil {
				t.Error("unexpected error:", err)
				return
			}
			results <- token.Raw
		}()
	}

	close(stub.block)
	wg.Wait()
	close(results)

	if stub.count() != 1 {
		t.Error("expected a single shared fetch, was", stub.count())
	}
	for raw := range results {
		if raw != "tok" {
			t.Error("expected every caller to receive the token, was", raw)
		}
	}
}

func TestNotifiesOnceWhenTokenEvicted(t *testing.T) {
	c := NewTokenCache(&stubFetcher{}, "token", 5*time.Minute)

	token := NewToken("tok", base, 3600)
	c.evicted("token", token)
	c.evicted("token", token)

	select {
	case notified := <-c.Expiring():
		if notified.Raw != "tok" {
			t.Error("expected the evicted token, was", notified.Raw)
		}
	default:
		t.Error("expected a notification")
	}

	select {
	case <-c.Expiring():
		t.Error("expected the second notification to be dropped")
	default:
	}
}
