package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"rampcore/internal/domain"
)

func Test_LimitsReport_Classify(t *testing.T) {
	t.Parallel()
	report := domain.LimitsReport{
		PerProvider: []domain.ProviderLimits{
			{Provider: domain.ProviderMeld, MinAmount: decPtr("50"), MaxAmount: decPtr("100000")},
			{Provider: domain.ProviderMoonPay, MinAmount: decPtr("80"), MaxAmount: decPtr("20000")},
		},
	}

	require.True(t, report.GlobalMin().Equal(dec("50")))
	require.True(t, report.GlobalMax().Equal(dec("100000")))

	require.Equal(t, domain.NoQuoteBelowMinimum, report.Classify(dec("10")))
	require.Equal(t, domain.NoQuoteAboveMaximum, report.Classify(dec("1000000")))
	require.Equal(t, domain.NoQuoteUnknown, report.Classify(dec("500")))
	require.Equal(t, domain.NoQuoteUnsupportedPair, domain.LimitsReport{}.Classify(dec("500")))
}

func Test_Diagnose_DirectLimitsEndpoint(t *testing.T) {
	t.Parallel()
	prober := &proberAdapter{
		fakeAdapter: fakeAdapter{id: domain.ProviderMoonPay},
		limits:      domain.ProviderLimits{MinAmount: decPtr("30"), MaxAmount: decPtr("12000")},
	}
	r := NewLimitsResolver(nil)

	diag := r.Diagnose(context.Background(), buyReq("10"), []ProviderAdapter{prober}, nil)
	require.Equal(t, domain.NoQuoteBelowMinimum, diag.Reason)
	require.True(t, diag.MinAmount.Equal(dec("30")))
	require.False(t, diag.Report.PerProvider[0].Inferred)
}

func Test_Diagnose_SampledProbing(t *testing.T) {
	t.Parallel()
	// Succeeds only for amounts in [100, 10000]; the sweep should infer
	// min=100 and max=10000 from the ladder.
	windowed := &fakeAdapter{
		id: domain.ProviderOnRamp,
		quote: func(req domain.QuoteRequest) (domain.Quote, error) {
			if req.Amount.LessThan(dec("100")) || req.Amount.GreaterThan(dec("10000")) {
				return domain.Quote{}, &ProviderError{Provider: domain.ProviderOnRamp, Cause: errBoom}
			}
			return okQuote(domain.ProviderOnRamp, "0.02")(req)
		},
	}
	r := NewLimitsResolver(nil)

	diag := r.Diagnose(context.Background(), buyReq("5"), []ProviderAdapter{windowed}, nil)
	require.Equal(t, domain.NoQuoteBelowMinimum, diag.Reason)
	require.Len(t, diag.Report.PerProvider, 1)
	inferred := diag.Report.PerProvider[0]
	require.True(t, inferred.Inferred)
	require.True(t, inferred.MinAmount.Equal(dec("100")))
	require.True(t, inferred.MaxAmount.Equal(dec("10000")))
}

func Test_Diagnose_ExplicitBoundsBeatProbing(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{id: domain.ProviderExolix, quote: okQuote(domain.ProviderExolix, "0.02")}
	r := NewLimitsResolver(nil)

	carried := []*ProviderError{{
		Provider:  domain.ProviderExolix,
		Cause:     errBoom,
		MinAmount: decPtr("250"),
	}}
	diag := r.Diagnose(context.Background(), buyReq("10"), []ProviderAdapter{ad}, carried)

	// The adapter with carried bounds is not probed again.
	require.Zero(t, ad.quoteCalls)
	require.Len(t, diag.Report.PerProvider, 1)
	require.False(t, diag.Report.PerProvider[0].Inferred)
	require.True(t, diag.MinAmount.Equal(dec("250")))
}

func Test_Diagnose_NoResponders_UnsupportedPair(t *testing.T) {
	t.Parallel()
	dead := &fakeAdapter{id: domain.ProviderChangelly} // every probe fails, no bounds
	r := NewLimitsResolver(nil)

	diag := r.Diagnose(context.Background(), buyReq("100"), []ProviderAdapter{dead}, nil)
	require.Equal(t, domain.NoQuoteUnsupportedPair, diag.Reason)
	require.Empty(t, diag.Report.PerProvider)
	require.Contains(t, diag.Suggestion, "not supported")
}
