package provider

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"rampcore/internal/domain"
	"rampcore/internal/infrastructure/httpx"
)

func TestPayloadDec_FirstAliasWins(t *testing.T) {
	p := payload{"destinationAmount": "3.5", "destinationAmountWithoutFees": 3.2}

	d, ok := p.dec("destinationAmountWithoutFees", "destinationAmount")
	require.True(t, ok)
	require.True(t, d.Equal(decimal.NewFromFloat(3.2)))
}

func TestPayloadDec_StringAndNumber(t *testing.T) {
	p := payload{"asString": "12.25", "asNumber": 12.25, "junk": "not a number", "null": nil}

	d, ok := p.dec("asString")
	require.True(t, ok)
	require.True(t, d.Equal(decimal.NewFromFloat(12.25)))

	d, ok = p.dec("asNumber")
	require.True(t, ok)
	require.True(t, d.Equal(decimal.NewFromFloat(12.25)))

	// A junk alias is skipped, later aliases still resolve.
	d, ok = p.dec("junk", "null", "asNumber")
	require.True(t, ok)
	require.True(t, d.Equal(decimal.NewFromFloat(12.25)))

	_, ok = p.dec("missing")
	require.False(t, ok)
}

func TestProvErr_ExtractsBoundsFromBody(t *testing.T) {
	he := &httpx.HTTPError{Status: 422, Body: []byte(`{"message":"too low","minimalAmount":"25","max":1000}`)}

	pe := provErr(domain.ProviderFinchPay, he)
	require.Equal(t, domain.ProviderFinchPay, pe.Provider)
	var unwrapped *httpx.HTTPError
	require.True(t, errors.As(pe, &unwrapped))
	require.NotNil(t, pe.MinAmount)
	require.True(t, pe.MinAmount.Equal(decimal.NewFromInt(25)))
	require.NotNil(t, pe.MaxAmount)
	require.True(t, pe.MaxAmount.Equal(decimal.NewFromInt(1000)))
}

func TestProvErr_PlainErrorHasNoBounds(t *testing.T) {
	pe := provErr(domain.ProviderMeld, errors.New("connection reset"))
	require.False(t, pe.HasBounds())
}

func TestFiatCrypto(t *testing.T) {
	fiat, crypto, ok := fiatCrypto(domain.QuoteRequest{
		Direction: domain.DirectionBuy, SourceCurrency: "EUR", DestinationCurrency: "BTC",
	})
	require.True(t, ok)
	require.Equal(t, domain.AssetCode("EUR"), fiat)
	require.Equal(t, domain.AssetCode("BTC"), crypto)

	fiat, crypto, ok = fiatCrypto(domain.QuoteRequest{
		Direction: domain.DirectionSell, SourceCurrency: "BTC", DestinationCurrency: "USD",
	})
	require.True(t, ok)
	require.Equal(t, domain.AssetCode("USD"), fiat)
	require.Equal(t, domain.AssetCode("BTC"), crypto)

	// Two cryptos never split for a BUY.
	_, _, ok = fiatCrypto(domain.QuoteRequest{
		Direction: domain.DirectionBuy, SourceCurrency: "BTC", DestinationCurrency: "ETH",
	})
	require.False(t, ok)

	_, _, ok = fiatCrypto(domain.QuoteRequest{
		Direction: domain.DirectionSwap, SourceCurrency: "BTC", DestinationCurrency: "ETH",
	})
	require.False(t, ok)
}

func TestSupportsOnOffRamp_RestrictedAsset(t *testing.T) {
	require.False(t, supportsOnOffRamp(domain.QuoteRequest{
		Direction:           domain.DirectionBuy,
		SourceCurrency:      "EUR",
		DestinationCurrency: domain.RestrictedPairAsset,
	}))
	require.True(t, supportsOnOffRamp(domain.QuoteRequest{
		Direction:           domain.DirectionBuy,
		SourceCurrency:      "EUR",
		DestinationCurrency: "BTC",
	}))
}
