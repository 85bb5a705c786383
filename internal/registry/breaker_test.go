package registry

import (
	"context"
	"errors"
	"testing"
)

type stubFetcher struct {
	calls int
	err   error
	meta  *Metadata
}

func (s *stubFetcher) FetchMetadata(ctx context.Context, name string) (*Metadata, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.meta, nil
}

func TestBreakerPassesThrough(t *testing.T) {
	stub := &stubFetcher{meta: &Metadata{Name: "left-pad"}}
	b := NewBreakerRegistry(stub)

	meta, err := b.FetchMetadata(context.Background(), "left-pad")
	if err != nil {
		t.Fatalf("FetchMetadata failed: %v", err)
	}
	if meta.Name != "left-pad" {
		t.Errorf("Name = %q, want %q", meta.Name, "left-pad")
	}
}

func TestBreakerTripsOnConsecutiveFailures(t *testing.T) {
	stub := &stubFetcher{err: errors.New("connection refused")}
	b := NewBreakerRegistry(stub)

	for i := 0; i < 5; i++ {
		if _, err := b.FetchMetadata(context.Background(), "pkg"); err == nil {
			t.Fatalf("call %d succeeded, want failure", i)
		}
	}

	if !b.Tripped() {
		t.Fatal("breaker not tripped after 5 consecutive failures")
	}

	callsBefore := stub.calls
	_, err := b.FetchMetadata(context.Background(), "pkg")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("FetchMetadata = %v, want ErrUnavailable", err)
	}
	if stub.calls != callsBefore {
		t.Errorf("open breaker still reached the fetcher: %d calls, want %d", stub.calls, callsBefore)
	}
}

func TestBreakerIgnoresClientStatuses(t *testing.T) {
	stub := &stubFetcher{err: &HTTPError{StatusCode: 404, URL: "https://registry.npmjs.org/nope"}}
	b := NewBreakerRegistry(stub)

	for i := 0; i < 10; i++ {
		_, err := b.FetchMetadata(context.Background(), "nope")
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("call %d = %v, want *HTTPError", i, err)
		}
	}

	if b.Tripped() {
		t.Error("breaker tripped on 404s; a missing package is not an outage")
	}
}

func TestBreakerTripsOnServerErrors(t *testing.T) {
	stub := &stubFetcher{err: &HTTPError{StatusCode: 503, URL: "https://registry.npmjs.org/pkg"}}
	b := NewBreakerRegistry(stub)

	for i := 0; i < 5; i++ {
		_, _ = b.FetchMetadata(context.Background(), "pkg")
	}
	if !b.Tripped() {
		t.Error("breaker not tripped after consecutive 5xx responses")
	}
}
