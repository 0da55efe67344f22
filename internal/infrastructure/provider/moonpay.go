package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"rampcore/internal/application"
	"rampcore/internal/domain"
	"rampcore/internal/infrastructure/httpx"
)

// MoonPay is a fiat on/off ramp with a dedicated limits endpoint, so the
// limits resolver never needs to probe it.
type MoonPay struct {
	Client *httpx.Client
}

var (
	_ application.ProviderAdapter = (*MoonPay)(nil)
	_ application.LimitsProber    = (*MoonPay)(nil)
	_ application.AssetLister     = (*MoonPay)(nil)
)

func (m *MoonPay) ID() domain.ProviderID { return domain.ProviderMoonPay }

func (m *MoonPay) Supports(req domain.QuoteRequest) bool { return supportsOnOffRamp(req) }

func (m *MoonPay) quotePath(req domain.QuoteRequest) (string, url.Values) {
	fiat, crypto, _ := fiatCrypto(req)
	params := url.Values{}
	params.Set("baseCurrencyCode", strings.ToLower(string(fiat)))
	params.Set("baseCurrencyAmount", req.Amount.String())
	endpoint := "buy_quote"
	if req.Direction == domain.DirectionSell {
		endpoint = "sell_quote"
		params = url.Values{}
		params.Set("quoteCurrencyCode", strings.ToLower(string(fiat)))
		params.Set("baseCurrencyAmount", req.Amount.String())
	}
	return fmt.Sprintf("/v3/currencies/%s/%s", strings.ToLower(string(crypto)), endpoint), params
}

func (m *MoonPay) Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error) {
	path, params := m.quotePath(req)
	var resp payload
	if err := m.Client.GetJSON(ctx, path, params, &resp); err != nil {
		return domain.Quote{}, provErr(m.ID(), err)
	}
	dest, ok := resp.dec("quoteCurrencyAmount", "quoteCurrencyAmountWithoutFees")
	if !ok {
		return domain.Quote{}, provErr(m.ID(), errInvalidResponse)
	}
	rate, ok := resp.dec("quoteCurrencyPrice", "rate")
	if !ok && req.Amount.IsPositive() {
		rate = dest.Div(req.Amount)
	}
	total, _ := resp.dec("feeAmount", "totalFee")
	return domain.Quote{
		Provider:            m.ID(),
		Direction:           req.Direction,
		SourceAmount:        req.Amount,
		DestinationAmount:   dest,
		SourceCurrency:      req.SourceCurrency,
		DestinationCurrency: req.DestinationCurrency,
		Rate:                rate,
		Fees: domain.Fees{
			Total:   total,
			Network: resp.decPtr("networkFeeAmount", "networkFee"),
			Partner: resp.decPtr("extraFeeAmount", "partnerFee"),
		},
		MinAmount: resp.decPtr("baseCurrencyMinAmount", "minAmount"),
		MaxAmount: resp.decPtr("baseCurrencyMaxAmount", "maxAmount"),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Limits is the direct strategy: MoonPay publishes per-pair min/max.
func (m *MoonPay) Limits(ctx context.Context, req domain.QuoteRequest) (domain.ProviderLimits, error) {
	fiat, crypto, ok := fiatCrypto(req)
	if !ok {
		return domain.ProviderLimits{}, provErr(m.ID(), errInvalidResponse)
	}
	params := url.Values{}
	params.Set("baseCurrencyCode", strings.ToLower(string(fiat)))
	path := fmt.Sprintf("/v3/currencies/%s/limits", strings.ToLower(string(crypto)))
	var resp struct {
		BaseCurrency payload `json:"baseCurrency"`
	}
	if err := m.Client.GetJSON(ctx, path, params, &resp); err != nil {
		return domain.ProviderLimits{}, provErr(m.ID(), err)
	}
	return domain.ProviderLimits{
		Provider:  m.ID(),
		MinAmount: resp.BaseCurrency.decPtr("minBuyAmount", "minAmount"),
		MaxAmount: resp.BaseCurrency.decPtr("maxBuyAmount", "maxAmount"),
	}, nil
}

func (m *MoonPay) PaymentMethods(ctx context.Context, req domain.QuoteRequest) ([]domain.PaymentMethod, error) {
	fiat, _, _ := fiatCrypto(req)
	params := url.Values{}
	params.Set("baseCurrencyCode", strings.ToLower(string(fiat)))
	var resp []payload
	if err := m.Client.GetJSON(ctx, "/v3/payment_methods", params, &resp); err != nil {
		return nil, provErr(m.ID(), err)
	}
	out := make([]domain.PaymentMethod, 0, len(resp))
	for _, p := range resp {
		id, ok := p.str("id", "type")
		if !ok {
			continue
		}
		name, _ := p.str("name")
		typ, _ := p.str("type")
		out = append(out, domain.PaymentMethod{ID: id, Type: typ, Name: name, FeePercentage: p.decPtr("feePercentage")})
	}
	return out, nil
}

func (m *MoonPay) CreateTransaction(ctx context.Context, req application.CheckoutRequest) (domain.CheckoutSession, error) {
	body := map[string]any{
		"baseCurrencyAmount": req.Quote.SourceAmount.String(),
		"baseCurrencyCode":   strings.ToLower(string(req.Quote.SourceCurrency)),
		"currencyCode":       strings.ToLower(string(req.Quote.DestinationCurrency)),
		"walletAddress":      req.Destination,
		"areFeesIncluded":    true,
	}
	if req.PaymentMethod != nil {
		body["paymentMethod"] = req.PaymentMethod.ID
	}
	var resp payload
	if err := m.Client.PostJSON(ctx, "/v1/transactions", body, &resp); err != nil {
		return domain.CheckoutSession{}, provErr(m.ID(), err)
	}
	txID, ok := resp.str("id")
	if !ok {
		return domain.CheckoutSession{}, provErr(m.ID(), errInvalidResponse)
	}
	widget, _ := resp.str("redirectUrl", "widgetRedirectUrl", "url")
	return domain.CheckoutSession{Provider: m.ID(), TransactionID: txID, SessionURL: widget}, nil
}

func (m *MoonPay) Status(ctx context.Context, transactionID string) (domain.TransactionState, error) {
	var resp payload
	if err := m.Client.GetJSON(ctx, "/v1/transactions/"+transactionID, nil, &resp); err != nil {
		return domain.TransactionState{}, provErr(m.ID(), err)
	}
	raw, ok := resp.str("status")
	if !ok {
		return domain.TransactionState{}, provErr(m.ID(), errInvalidResponse)
	}
	switch raw {
	case "completed":
		return domain.TransactionState{Status: domain.StatusCompleted}, nil
	case "pending", "waitingAuthorization":
		return domain.TransactionState{Status: domain.StatusProcessing}, nil
	case "failed":
		return domain.TransactionState{Status: domain.StatusFailed}, nil
	default:
		// waitingPayment and other pre-settlement states.
		return domain.TransactionState{Status: domain.StatusPending}, nil
	}
}

func (m *MoonPay) Assets(ctx context.Context) ([]domain.AssetCode, error) {
	var resp []payload
	if err := m.Client.GetJSON(ctx, "/v3/currencies", nil, &resp); err != nil {
		return nil, provErr(m.ID(), err)
	}
	var out []domain.AssetCode
	for _, p := range resp {
		typ, _ := p.str("type")
		if typ != "crypto" {
			continue
		}
		if code, ok := p.str("code"); ok {
			out = append(out, domain.AssetCode(strings.ToUpper(code)))
		}
	}
	return out, nil
}
