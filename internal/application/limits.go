package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rampcore/internal/domain"
)

// probeLadder spans plausible order-of-magnitude amounts, in source units.
// Inference from it is a heuristic: the true bound can fall between samples,
// so inferred limits are advisory until a provider confirms them.
var probeLadder = []decimal.Decimal{
	decimal.NewFromInt(10),
	decimal.NewFromInt(100),
	decimal.NewFromInt(1_000),
	decimal.NewFromInt(10_000),
	decimal.NewFromInt(100_000),
}

// LimitsResolver answers "why did nothing come back?" after a zero-quote
// cycle. Exact provider-reported bounds beat inferred ones.
type LimitsResolver struct {
	log *zap.Logger
}

func NewLimitsResolver(log *zap.Logger) *LimitsResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &LimitsResolver{log: log}
}

// Diagnose builds the cross-provider limits envelope and classifies the
// failure. Bounds carried in provider errors are taken as-is; adapters with
// a dedicated limits endpoint are asked directly; the rest are swept with
// sampled quote probes.
func (r *LimitsResolver) Diagnose(ctx context.Context, req domain.QuoteRequest, adapters []ProviderAdapter, provErrs []*ProviderError) *AggregateNoQuoteError {
	report := domain.LimitsReport{}
	seen := map[domain.ProviderID]bool{}

	for _, pe := range provErrs {
		if !pe.HasBounds() {
			continue
		}
		report.PerProvider = append(report.PerProvider, domain.ProviderLimits{
			Provider:  pe.Provider,
			MinAmount: pe.MinAmount,
			MaxAmount: pe.MaxAmount,
		})
		seen[pe.Provider] = true
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(4)
	for _, ad := range adapters {
		if seen[ad.ID()] {
			continue
		}
		ad := ad
		g.Go(func() error {
			limits, ok := r.resolveOne(ctx, ad, req)
			if !ok {
				return nil
			}
			mu.Lock()
			report.PerProvider = append(report.PerProvider, limits)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	reason := report.Classify(req.Amount)
	out := &AggregateNoQuoteError{
		Reason:    reason,
		Report:    report,
		MinAmount: report.GlobalMin(),
		MaxAmount: report.GlobalMax(),
	}
	switch reason {
	case domain.NoQuoteBelowMinimum:
		out.Suggestion = fmt.Sprintf("minimum is %s %s", out.MinAmount, req.SourceCurrency)
	case domain.NoQuoteAboveMaximum:
		out.Suggestion = fmt.Sprintf("maximum is %s %s", out.MaxAmount, req.SourceCurrency)
	case domain.NoQuoteUnsupportedPair:
		out.Suggestion = fmt.Sprintf("%s -> %s is not supported by any provider", req.SourceCurrency, req.DestinationCurrency)
	}
	return out
}

// resolveOne prefers the provider's own limits endpoint and falls back to
// the sampled probe sweep.
func (r *LimitsResolver) resolveOne(ctx context.Context, ad ProviderAdapter, req domain.QuoteRequest) (domain.ProviderLimits, bool) {
	if prober, ok := Capability[LimitsProber](ad); ok {
		limits, err := prober.Limits(ctx, req)
		if err == nil {
			limits.Provider = ad.ID()
			return limits, true
		}
		r.log.Debug("limits_endpoint_failed", zap.String("provider", string(ad.ID())), zap.Error(err))
	}
	return r.probe(ctx, ad, req)
}

// probe issues quote requests at the sample ladder and infers bounds from
// which samples succeed. A provider error that itself carries explicit
// bounds short-circuits the sweep.
func (r *LimitsResolver) probe(ctx context.Context, ad ProviderAdapter, req domain.QuoteRequest) (domain.ProviderLimits, bool) {
	var minOK, maxOK *decimal.Decimal
	for _, sample := range probeLadder {
		probeReq := req
		probeReq.Amount = sample
		_, err := ad.Quote(ctx, probeReq)
		if err != nil {
			if pe := asProviderError(ad.ID(), err); pe.HasBounds() {
				return domain.ProviderLimits{Provider: ad.ID(), MinAmount: pe.MinAmount, MaxAmount: pe.MaxAmount}, true
			}
			continue
		}
		s := sample
		if minOK == nil {
			minOK = &s
		}
		maxOK = &s
	}
	if minOK == nil {
		return domain.ProviderLimits{}, false
	}
	return domain.ProviderLimits{Provider: ad.ID(), MinAmount: minOK, MaxAmount: maxOK, Inferred: true}, true
}
