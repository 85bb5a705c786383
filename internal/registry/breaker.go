package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// BreakerRegistry wraps a MetadataFetcher with a circuit breaker so that a
// dead registry fast-fails remaining lookups instead of spending a full
// timeout on each one.
type BreakerRegistry struct {
	fetcher MetadataFetcher
	breaker *circuit.Breaker
}

// NewBreakerRegistry creates a circuit breaker wrapper for a fetcher.
// The breaker trips after 5 consecutive failures and resets on an
// exponential backoff schedule.
func NewBreakerRegistry(f MetadataFetcher) *BreakerRegistry {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	}

	return &BreakerRegistry{
		fetcher: f,
		breaker: circuit.NewBreakerWithOptions(opts),
	}
}

// FetchMetadata fetches through the breaker. A 4xx response is a
// per-package miss, not a registry outage, so it does not count toward
// tripping the breaker.
func (b *BreakerRegistry) FetchMetadata(ctx context.Context, name string) (*Metadata, error) {
	if !b.breaker.Ready() {
		return nil, fmt.Errorf("circuit breaker open: %w", ErrUnavailable)
	}

	var meta *Metadata
	var missErr error

	err := b.breaker.Call(func() error {
		m, fetchErr := b.fetcher.FetchMetadata(ctx, name)
		if fetchErr != nil {
			var httpErr *HTTPError
			if errors.As(fetchErr, &httpErr) && httpErr.StatusCode < 500 {
				missErr = fetchErr
				return nil
			}
			return fetchErr
		}
		meta = m
		return nil
	}, 0)

	if err != nil {
		return nil, err
	}
	if missErr != nil {
		return nil, missErr
	}
	return meta, nil
}

// Tripped reports whether the breaker is currently open.
func (b *BreakerRegistry) Tripped() bool {
	return b.breaker.Tripped()
}
