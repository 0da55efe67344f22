package provider_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"rampcore/internal/domain"
	"rampcore/internal/infrastructure/provider"
)

func req(dir domain.Direction, from, to domain.AssetCode) domain.QuoteRequest {
	return domain.QuoteRequest{
		Direction:           dir,
		SourceCurrency:      from,
		DestinationCurrency: to,
		Amount:              decimal.NewFromInt(100),
	}
}

func TestOnRampSupports_RestrictedPair(t *testing.T) {
	o := &provider.OnRamp{}

	require.True(t, o.Supports(req(domain.DirectionBuy, "EUR", "TON")))
	require.True(t, o.Supports(req(domain.DirectionBuy, "GBP", "TON")))
	require.True(t, o.Supports(req(domain.DirectionSell, "TON", "EUR")))
	require.False(t, o.Supports(req(domain.DirectionBuy, "USD", "TON")))
	require.False(t, o.Supports(req(domain.DirectionBuy, "NGN", "TON")))

	// Unrestricted assets pair with any fiat.
	require.True(t, o.Supports(req(domain.DirectionBuy, "USD", "BTC")))
	require.False(t, o.Supports(req(domain.DirectionSwap, "BTC", "ETH")))
}

func TestFinchPaySupports_EuropeanFiatOnly(t *testing.T) {
	f := &provider.FinchPay{}

	require.True(t, f.Supports(req(domain.DirectionBuy, "EUR", "BTC")))
	require.True(t, f.Supports(req(domain.DirectionSell, "ETH", "GBP")))
	require.False(t, f.Supports(req(domain.DirectionBuy, "USD", "BTC")))
	require.False(t, f.Supports(req(domain.DirectionBuy, "NGN", "BTC")))
	require.False(t, f.Supports(req(domain.DirectionBuy, "EUR", "TON")))
	require.False(t, f.Supports(req(domain.DirectionSwap, "BTC", "ETH")))
}

func TestMeldAndMoonPaySupports(t *testing.T) {
	var m provider.Meld
	var mp provider.MoonPay

	require.True(t, m.Supports(req(domain.DirectionBuy, "USD", "BTC")))
	require.False(t, m.Supports(req(domain.DirectionBuy, "EUR", "TON")))
	require.False(t, m.Supports(req(domain.DirectionSwap, "BTC", "ETH")))

	require.True(t, mp.Supports(req(domain.DirectionSell, "BTC", "USD")))
	require.False(t, mp.Supports(req(domain.DirectionSell, "TON", "EUR")))
}

func TestChangellySupports_SwapOnly(t *testing.T) {
	c := &provider.Changelly{}

	require.True(t, c.Supports(req(domain.DirectionSwap, "BTC", "ETH")))
	require.False(t, c.Supports(req(domain.DirectionSwap, "BTC", "TON")))
	require.False(t, c.Supports(req(domain.DirectionBuy, "EUR", "BTC")))
	require.False(t, c.Supports(req(domain.DirectionSwap, "EUR", "BTC")))
}
