// Package provider holds one adapter per external liquidity/payment
// service. Each adapter translates the canonical request into its
// provider's wire format and the response back, resolving the provider's
// aliased field names through prioritized key lists; raw provider JSON
// never leaves this package.
package provider

import (
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"

	"rampcore/internal/application"
	"rampcore/internal/domain"
	"rampcore/internal/infrastructure/httpx"
)

var errInvalidResponse = errors.New("invalid-response")

// payload is a decoded provider response with alias-aware field access.
type payload map[string]any

// dec resolves the first present alias key to a decimal. Providers send
// numbers both as JSON numbers and as strings.
func (p payload) dec(keys ...string) (decimal.Decimal, bool) {
	for _, k := range keys {
		v, ok := p[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return decimal.NewFromFloat(t), true
		case string:
			if d, err := decimal.NewFromString(t); err == nil {
				return d, true
			}
		case json.Number:
			if d, err := decimal.NewFromString(t.String()); err == nil {
				return d, true
			}
		}
	}
	return decimal.Decimal{}, false
}

func (p payload) decPtr(keys ...string) *decimal.Decimal {
	if d, ok := p.dec(keys...); ok {
		return &d
	}
	return nil
}

func (p payload) str(keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := p[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func (p payload) list(key string) []payload {
	raw, ok := p[key].([]any)
	if !ok {
		return nil
	}
	out := make([]payload, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, payload(m))
		}
	}
	return out
}

// provErr wraps any adapter failure as a ProviderError. An HTTP error body
// is scanned for provider-stated amount bounds so the aggregator can build
// exact diagnostics instead of falling back to probing.
func provErr(id domain.ProviderID, err error) *application.ProviderError {
	pe := &application.ProviderError{Provider: id, Cause: err}
	var he *httpx.HTTPError
	if errors.As(err, &he) && len(he.Body) > 0 {
		var body payload
		if json.Unmarshal(he.Body, &body) == nil {
			pe.MinAmount = body.decPtr("minAmount", "minimalAmount", "minimumAmount", "lowLimit", "min")
			pe.MaxAmount = body.decPtr("maxAmount", "maximalAmount", "maximumAmount", "highLimit", "max")
		}
	}
	return pe
}

// fiatCrypto splits a BUY/SELL request into its fiat and crypto sides.
func fiatCrypto(req domain.QuoteRequest) (fiat, crypto domain.AssetCode, ok bool) {
	switch req.Direction {
	case domain.DirectionBuy:
		fiat, crypto = req.SourceCurrency, req.DestinationCurrency
	case domain.DirectionSell:
		fiat, crypto = req.DestinationCurrency, req.SourceCurrency
	default:
		return "", "", false
	}
	return fiat, crypto, fiat.IsFiat() && crypto.IsCrypto()
}

// supportsOnOffRamp is the shared applicability rule of the fiat on/off
// ramps: BUY/SELL only, valid fiat/crypto split, and the restricted pair
// asset is never theirs to serve.
func supportsOnOffRamp(req domain.QuoteRequest) bool {
	_, crypto, ok := fiatCrypto(req)
	if !ok {
		return false
	}
	return crypto != domain.RestrictedPairAsset
}
