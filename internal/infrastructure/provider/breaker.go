package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"rampcore/internal/application"
	"rampcore/internal/domain"
	"rampcore/internal/infrastructure/logx"
)

// Breaker shields the aggregation cycle from a flapping provider. While the
// breaker is open every call fails immediately with a ProviderError, which
// the aggregator treats like any other single-provider failure.
type Breaker struct {
	inner application.ProviderAdapter
	cb    *gobreaker.CircuitBreaker
}

var (
	_ application.ProviderAdapter = (*Breaker)(nil)
	_ application.Unwrapper       = (*Breaker)(nil)
)

func WithBreaker(inner application.ProviderAdapter) *Breaker {
	id := inner.ID()
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(id),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logx.L().Warn("provider_breaker_state",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &Breaker{inner: inner, cb: cb}
}

func (b *Breaker) Unwrap() application.ProviderAdapter { return b.inner }

func (b *Breaker) ID() domain.ProviderID { return b.inner.ID() }

// Supports stays local; applicability never trips or consults the breaker.
func (b *Breaker) Supports(req domain.QuoteRequest) bool { return b.inner.Supports(req) }

func (b *Breaker) Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.Quote(ctx, req)
	})
	if err != nil {
		return domain.Quote{}, b.wrap(err)
	}
	return out.(domain.Quote), nil
}

func (b *Breaker) PaymentMethods(ctx context.Context, req domain.QuoteRequest) ([]domain.PaymentMethod, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.PaymentMethods(ctx, req)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	return out.([]domain.PaymentMethod), nil
}

func (b *Breaker) CreateTransaction(ctx context.Context, req application.CheckoutRequest) (domain.CheckoutSession, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.CreateTransaction(ctx, req)
	})
	if err != nil {
		return domain.CheckoutSession{}, b.wrap(err)
	}
	return out.(domain.CheckoutSession), nil
}

// Status bypasses the breaker: a poller must keep observing an in-flight
// transaction even when the provider's quote surface is misbehaving.
func (b *Breaker) Status(ctx context.Context, transactionID string) (domain.TransactionState, error) {
	return b.inner.Status(ctx, transactionID)
}

func (b *Breaker) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &application.ProviderError{Provider: b.ID(), Cause: err}
	}
	var pe *application.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &application.ProviderError{Provider: b.ID(), Cause: err}
}
