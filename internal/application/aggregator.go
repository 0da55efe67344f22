package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"rampcore/internal/domain"
)

// AggregateResult is the outcome of one aggregation cycle: every quote
// obtainable right now plus the per-provider failures kept for diagnostics.
// The quote list carries no implied ranking.
type AggregateResult struct {
	Quotes []domain.Quote
	Errors []*ProviderError
}

// Aggregator fans one canonical request out to every applicable provider
// adapter concurrently and joins the results. One provider's failure never
// cancels or delays the others.
type Aggregator struct {
	adapters []ProviderAdapter
	limits   *LimitsResolver
	log      *zap.Logger
}

type AggregatorOption func(*Aggregator)

func WithAggregatorLogger(l *zap.Logger) AggregatorOption {
	return func(a *Aggregator) { a.log = l }
}

func NewAggregator(adapters []ProviderAdapter, limits *LimitsResolver, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{adapters: adapters, limits: limits}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	return a
}

// applicable narrows the adapter set for one cycle. A request touching the
// restricted pair asset suppresses every adapter but the one serving it;
// otherwise each adapter's own Supports rule decides.
func (a *Aggregator) applicable(req domain.QuoteRequest) []ProviderAdapter {
	var out []ProviderAdapter
	for _, ad := range a.adapters {
		if ad.Supports(req) {
			out = append(out, ad)
		}
	}
	return out
}

// Aggregate runs one cycle. A zero-quote join is diagnosed through the
// limits resolver and returned as an AggregateNoQuoteError rather than a
// bare empty list.
func (a *Aggregator) Aggregate(ctx context.Context, req domain.QuoteRequest) (AggregateResult, error) {
	if !domain.ValidDirection(req.Direction) {
		return AggregateResult{}, fmt.Errorf("direction %q: %w", req.Direction, domain.ErrInvalidDirection)
	}
	if !req.Amount.IsPositive() {
		return AggregateResult{}, domain.ErrInvalidAmount
	}

	adapters := a.applicable(req)
	if len(adapters) == 0 {
		return AggregateResult{}, &AggregateNoQuoteError{
			Reason:     domain.NoQuoteUnsupportedPair,
			Suggestion: fmt.Sprintf("no provider serves %s -> %s", req.SourceCurrency, req.DestinationCurrency),
		}
	}

	type outcome struct {
		quote domain.Quote
		err   *ProviderError
	}
	results := make(chan outcome, len(adapters))

	var wg sync.WaitGroup
	for _, ad := range adapters {
		wg.Add(1)
		go func(ad ProviderAdapter) {
			defer wg.Done()
			q, err := ad.Quote(ctx, req)
			if err != nil {
				results <- outcome{err: asProviderError(ad.ID(), err)}
				return
			}
			results <- outcome{quote: q}
		}(ad)
	}
	wg.Wait()
	close(results)

	var res AggregateResult
	for o := range results {
		if o.err != nil {
			a.log.Debug("provider_quote_failed",
				zap.String("provider", string(o.err.Provider)),
				zap.Error(o.err.Cause))
			res.Errors = append(res.Errors, o.err)
			continue
		}
		res.Quotes = append(res.Quotes, o.quote)
	}

	if len(res.Quotes) == 0 {
		diag := a.limits.Diagnose(ctx, req, adapters, res.Errors)
		return res, diag
	}
	return res, nil
}

// Limits reports the cross-provider amount envelope for a prospective
// request without running a full quote cycle.
func (a *Aggregator) Limits(ctx context.Context, req domain.QuoteRequest) (domain.LimitsReport, error) {
	if !domain.ValidDirection(req.Direction) {
		return domain.LimitsReport{}, fmt.Errorf("direction %q: %w", req.Direction, domain.ErrInvalidDirection)
	}
	adapters := a.applicable(req)
	if len(adapters) == 0 {
		return domain.LimitsReport{}, fmt.Errorf("%s -> %s: %w", req.SourceCurrency, req.DestinationCurrency, domain.ErrUnsupportedPair)
	}
	diag := a.limits.Diagnose(ctx, req, adapters, nil)
	return diag.Report, nil
}

func asProviderError(id domain.ProviderID, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Provider: id, Cause: err}
}
