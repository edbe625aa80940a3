package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// Breaker stops calling a backend after repeated failures and lets a single
// probe request through once openTimeout has passed.
type Breaker struct {
	inner Translator
	cb    *gobreaker.CircuitBreaker
}

// NewBreaker wraps inner in a circuit breaker that opens after maxFailures
// consecutive errors. Cancelled requests do not count as failures.
func NewBreaker(inner Translator, maxFailures uint32, openTimeout time.Duration, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if maxFailures == 0 {
		maxFailures = 5
	}

	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("translation circuit breaker changed state",
				"backend", name,
				"from", from.String(),
				"to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &Breaker{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(settings),
	}
}

// Translate calls the wrapped translator unless the breaker is open
func (b *Breaker) Translate(ctx context.Context, text string) (string, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Translate(ctx, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%s backend unavailable: %w", b.inner.Name(), err)
		}
		return "", err
	}
	return res.(string), nil
}

// Name returns the wrapped provider name
func (b *Breaker) Name() string { return b.inner.Name() }

// State returns the current breaker state
func (b *Breaker) State() gobreaker.State { return b.cb.State() }
