package domain

import "github.com/shopspring/decimal"

// ProviderLimits is one provider's stated or inferred amount bounds, in
// source units. Inferred bounds come from the sampled-probe heuristic and
// are advisory until a provider confirms them via an explicit error.
type ProviderLimits struct {
	Provider  ProviderID
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Inferred  bool
}

// LimitsReport is the cross-provider envelope computed when no provider
// returned a quote. Derived on demand, never persisted.
type LimitsReport struct {
	PerProvider []ProviderLimits
}

// GlobalMin is the smallest known minimum across providers: the most
// permissive lower bound a user could hit with some provider.
func (r LimitsReport) GlobalMin() *decimal.Decimal {
	var min *decimal.Decimal
	for _, p := range r.PerProvider {
		if p.MinAmount == nil {
			continue
		}
		if min == nil || p.MinAmount.LessThan(*min) {
			min = p.MinAmount
		}
	}
	return min
}

// GlobalMax is the largest known maximum across providers.
func (r LimitsReport) GlobalMax() *decimal.Decimal {
	var max *decimal.Decimal
	for _, p := range r.PerProvider {
		if p.MaxAmount == nil {
			continue
		}
		if max == nil || p.MaxAmount.GreaterThan(*max) {
			max = p.MaxAmount
		}
	}
	return max
}

type NoQuoteReason string

const (
	NoQuoteUnsupportedPair NoQuoteReason = "UNSUPPORTED_PAIR"
	NoQuoteBelowMinimum    NoQuoteReason = "BELOW_MINIMUM"
	NoQuoteAboveMaximum    NoQuoteReason = "ABOVE_MAXIMUM"
	NoQuoteUnknown         NoQuoteReason = "UNKNOWN"
)

// Classify maps a requested amount against the report's envelope.
func (r LimitsReport) Classify(amount decimal.Decimal) NoQuoteReason {
	if len(r.PerProvider) == 0 {
		return NoQuoteUnsupportedPair
	}
	if min := r.GlobalMin(); min != nil && amount.LessThan(*min) {
		return NoQuoteBelowMinimum
	}
	if max := r.GlobalMax(); max != nil && amount.GreaterThan(*max) {
		return NoQuoteAboveMaximum
	}
	return NoQuoteUnknown
}
