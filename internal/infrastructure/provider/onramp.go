package provider

import (
	"context"
	"fmt"
	"time"

	"rampcore/internal/application"
	"rampcore/internal/domain"
	"rampcore/internal/infrastructure/httpx"
)

const (
	onrampQuotePath    = "/onramp/api/v2/common/transaction/quote"
	onrampMethodsPath  = "/onramp/api/v2/common/payment/methods"
	onrampCheckoutPath = "/onramp/api/v2/common/transaction/create"
	onrampStatusPath   = "/onramp/api/v2/common/transaction"
	onrampAssetsPath   = "/onramp/api/v2/common/coins"
	onrampVerifyPath   = "/onramp/api/v2/common/address/verify"
)

// OnRamp is a fiat on/off ramp. It is the single provider serving the
// restricted pair asset, and only against that pairing's fiat set.
type OnRamp struct {
	Client *httpx.Client
	AppID  string
}

var (
	_ application.ProviderAdapter = (*OnRamp)(nil)
	_ application.AssetLister     = (*OnRamp)(nil)
	_ application.AddressVerifier = (*OnRamp)(nil)
)

func (o *OnRamp) ID() domain.ProviderID { return domain.ProviderOnRamp }

func (o *OnRamp) Supports(req domain.QuoteRequest) bool {
	fiat, crypto, ok := fiatCrypto(req)
	if !ok {
		return false
	}
	if crypto == domain.RestrictedPairAsset {
		return domain.RestrictedPairFiat[fiat]
	}
	return true
}

func (o *OnRamp) Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error) {
	body := map[string]any{
		"fromCurrency": req.SourceCurrency,
		"toCurrency":   req.DestinationCurrency,
		"fromAmount":   req.Amount.String(),
		"type":         string(req.Direction),
		"appId":        o.AppID,
	}
	var resp struct {
		Data payload `json:"data"`
	}
	if err := o.Client.PostJSON(ctx, onrampQuotePath, body, &resp); err != nil {
		return domain.Quote{}, provErr(o.ID(), err)
	}
	d := resp.Data
	dest, ok := d.dec("toAmount", "quantity", "destinationAmount")
	if !ok {
		return domain.Quote{}, provErr(o.ID(), errInvalidResponse)
	}
	rate, ok := d.dec("rate", "exchangeRate")
	if !ok && req.Amount.IsPositive() {
		rate = dest.Div(req.Amount)
	}
	total, _ := d.dec("totalFee", "fee")
	return domain.Quote{
		Provider:            o.ID(),
		Direction:           req.Direction,
		SourceAmount:        req.Amount,
		DestinationAmount:   dest,
		SourceCurrency:      req.SourceCurrency,
		DestinationCurrency: req.DestinationCurrency,
		Rate:                rate,
		Fees: domain.Fees{
			Total:   total,
			Network: d.decPtr("gasFee", "networkFee"),
			Partner: d.decPtr("clientFee", "partnerFee"),
		},
		MinAmount: d.decPtr("minAmount", "lowLimit"),
		MaxAmount: d.decPtr("maxAmount", "highLimit"),
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (o *OnRamp) PaymentMethods(ctx context.Context, req domain.QuoteRequest) ([]domain.PaymentMethod, error) {
	fiat, _, _ := fiatCrypto(req)
	var resp struct {
		Data []payload `json:"data"`
	}
	body := map[string]any{"fiatType": fiat, "type": string(req.Direction)}
	if err := o.Client.PostJSON(ctx, onrampMethodsPath, body, &resp); err != nil {
		return nil, provErr(o.ID(), err)
	}
	out := make([]domain.PaymentMethod, 0, len(resp.Data))
	for _, p := range resp.Data {
		id, ok := p.str("paymentMethodId", "id", "code")
		if !ok {
			continue
		}
		name, _ := p.str("name", "displayName")
		typ, _ := p.str("type", "category")
		out = append(out, domain.PaymentMethod{ID: id, Type: typ, Name: name, FeePercentage: p.decPtr("feePercentage")})
	}
	return out, nil
}

func (o *OnRamp) CreateTransaction(ctx context.Context, req application.CheckoutRequest) (domain.CheckoutSession, error) {
	body := map[string]any{
		"fromCurrency":  req.Quote.SourceCurrency,
		"toCurrency":    req.Quote.DestinationCurrency,
		"fromAmount":    req.Quote.SourceAmount.String(),
		"walletAddress": req.Destination,
		"type":          string(req.Quote.Direction),
		"appId":         o.AppID,
	}
	if req.PaymentMethod != nil {
		body["paymentMethodId"] = req.PaymentMethod.ID
	}
	var resp struct {
		Data payload `json:"data"`
	}
	if err := o.Client.PostJSON(ctx, onrampCheckoutPath, body, &resp); err != nil {
		return domain.CheckoutSession{}, provErr(o.ID(), err)
	}
	txID, ok := resp.Data.str("transactionId", "id", "merchantRecognitionId")
	if !ok {
		return domain.CheckoutSession{}, provErr(o.ID(), errInvalidResponse)
	}
	widget, _ := resp.Data.str("widgetUrl", "paymentUrl", "url")
	return domain.CheckoutSession{Provider: o.ID(), TransactionID: txID, SessionURL: widget}, nil
}

func (o *OnRamp) Status(ctx context.Context, transactionID string) (domain.TransactionState, error) {
	var resp struct {
		Data payload `json:"data"`
	}
	if err := o.Client.GetJSON(ctx, fmt.Sprintf("%s/%s", onrampStatusPath, transactionID), nil, &resp); err != nil {
		return domain.TransactionState{}, provErr(o.ID(), err)
	}
	raw, ok := resp.Data.str("status", "transactionStatus")
	if !ok {
		return domain.TransactionState{}, provErr(o.ID(), errInvalidResponse)
	}
	switch raw {
	case "completed", "success", "fiatWithdrawn", "cryptoTransferred":
		return domain.TransactionState{Status: domain.StatusCompleted}, nil
	case "processing", "fiatDeposited", "tradeExecuted":
		return domain.TransactionState{Status: domain.StatusProcessing}, nil
	case "failed", "expired", "abandoned":
		return domain.TransactionState{Status: domain.StatusFailed}, nil
	default:
		return domain.TransactionState{Status: domain.StatusPending}, nil
	}
}

// Assets lists the coins OnRamp can deliver; cached upstream for a day.
func (o *OnRamp) Assets(ctx context.Context) ([]domain.AssetCode, error) {
	var resp struct {
		Data []payload `json:"data"`
	}
	if err := o.Client.GetJSON(ctx, onrampAssetsPath, nil, &resp); err != nil {
		return nil, provErr(o.ID(), err)
	}
	out := make([]domain.AssetCode, 0, len(resp.Data))
	for _, p := range resp.Data {
		if code, ok := p.str("coinCode", "symbol", "code"); ok {
			out = append(out, domain.AssetCode(code))
		}
	}
	return out, nil
}

// VerifyAddress is the provider-side second pass over an address that
// already passed local format checks.
func (o *OnRamp) VerifyAddress(ctx context.Context, address string, asset domain.AssetCode) (bool, error) {
	body := map[string]any{"walletAddress": address, "coinCode": asset}
	var resp struct {
		Data payload `json:"data"`
	}
	if err := o.Client.PostJSON(ctx, onrampVerifyPath, body, &resp); err != nil {
		return false, provErr(o.ID(), err)
	}
	valid, ok := resp.Data["valid"].(bool)
	if !ok {
		return false, provErr(o.ID(), errInvalidResponse)
	}
	return valid, nil
}
