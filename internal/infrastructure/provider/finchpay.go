package provider

import (
	"context"
	"net/url"
	"time"

	"rampcore/internal/application"
	"rampcore/internal/domain"
	"rampcore/internal/infrastructure/httpx"
)

const (
	finchpayQuotePath   = "/api/v1/exchange/estimate"
	finchpayMethodsPath = "/api/v1/payment-methods"
	finchpayOrderPath   = "/api/v1/orders"
)

// FinchPay handles on/off-ramp for European customers only, so the fiat
// leg is restricted to EUR and GBP.
type FinchPay struct {
	Client *httpx.Client
}

var _ application.ProviderAdapter = (*FinchPay)(nil)

func (f *FinchPay) ID() domain.ProviderID { return domain.ProviderFinchPay }

func (f *FinchPay) Supports(req domain.QuoteRequest) bool {
	if !supportsOnOffRamp(req) {
		return false
	}
	fiat, _, _ := fiatCrypto(req)
	return domain.RestrictedPairFiat[fiat]
}

func (f *FinchPay) Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error) {
	params := url.Values{}
	params.Set("currencyFrom", string(req.SourceCurrency))
	params.Set("currencyTo", string(req.DestinationCurrency))
	params.Set("amount", req.Amount.String())
	var resp payload
	if err := f.Client.GetJSON(ctx, finchpayQuotePath, params, &resp); err != nil {
		return domain.Quote{}, provErr(f.ID(), err)
	}
	dest, ok := resp.dec("amountTo", "estimatedAmount")
	if !ok {
		return domain.Quote{}, provErr(f.ID(), errInvalidResponse)
	}
	rate, ok := resp.dec("rate", "exchangeRate")
	if !ok && req.Amount.IsPositive() {
		rate = dest.Div(req.Amount)
	}
	total, _ := resp.dec("fee", "totalFee", "serviceFee")
	return domain.Quote{
		Provider:            f.ID(),
		Direction:           req.Direction,
		SourceAmount:        req.Amount,
		DestinationAmount:   dest,
		SourceCurrency:      req.SourceCurrency,
		DestinationCurrency: req.DestinationCurrency,
		Rate:                rate,
		Fees:                domain.Fees{Total: total},
		MinAmount:           resp.decPtr("minAmount", "minimalAmount"),
		MaxAmount:           resp.decPtr("maxAmount", "maximalAmount"),
		CreatedAt:           time.Now().UTC(),
	}, nil
}

func (f *FinchPay) PaymentMethods(ctx context.Context, req domain.QuoteRequest) ([]domain.PaymentMethod, error) {
	fiat, _, _ := fiatCrypto(req)
	params := url.Values{}
	params.Set("currency", string(fiat))
	var resp payload
	if err := f.Client.GetJSON(ctx, finchpayMethodsPath, params, &resp); err != nil {
		return nil, provErr(f.ID(), err)
	}
	items := resp.list("methods")
	if items == nil {
		items = resp.list("paymentMethods")
	}
	if items == nil {
		return nil, provErr(f.ID(), errInvalidResponse)
	}
	methods := make([]domain.PaymentMethod, 0, len(items))
	for _, item := range items {
		id, ok := item.str("id", "code")
		if !ok {
			continue
		}
		name, _ := item.str("name", "title")
		methods = append(methods, domain.PaymentMethod{ID: id, Name: name})
	}
	return methods, nil
}

func (f *FinchPay) CreateTransaction(ctx context.Context, req application.CheckoutRequest) (domain.CheckoutSession, error) {
	body := map[string]any{
		"currencyFrom": req.Quote.SourceCurrency,
		"currencyTo":   req.Quote.DestinationCurrency,
		"amount":       req.Quote.SourceAmount.String(),
	}
	if req.PaymentMethod != nil {
		body["paymentMethod"] = req.PaymentMethod.ID
	}
	if req.Quote.Direction == domain.DirectionSell {
		body["payoutDetails"] = map[string]any{
			"accountNumber": req.BankDetails.AccountNumber,
			"routingCode":   req.BankDetails.RoutingCode,
			"currency":      req.BankDetails.Currency,
		}
	} else {
		body["walletAddress"] = req.Destination
	}
	var resp payload
	if err := f.Client.PostJSON(ctx, finchpayOrderPath, body, &resp); err != nil {
		return domain.CheckoutSession{}, provErr(f.ID(), err)
	}
	txID, ok := resp.str("orderId", "id")
	if !ok {
		return domain.CheckoutSession{}, provErr(f.ID(), errInvalidResponse)
	}
	sessionURL, _ := resp.str("paymentUrl", "redirectUrl")
	return domain.CheckoutSession{
		Provider:      f.ID(),
		TransactionID: txID,
		SessionURL:    sessionURL,
	}, nil
}

func (f *FinchPay) Status(ctx context.Context, transactionID string) (domain.TransactionState, error) {
	var resp payload
	if err := f.Client.GetJSON(ctx, finchpayOrderPath+"/"+transactionID, nil, &resp); err != nil {
		return domain.TransactionState{}, provErr(f.ID(), err)
	}
	raw, ok := resp.str("status")
	if !ok {
		return domain.TransactionState{}, provErr(f.ID(), errInvalidResponse)
	}
	switch raw {
	case "completed", "finished":
		return domain.TransactionState{Status: domain.StatusCompleted}, nil
	case "processing", "paid", "exchanging", "withdrawing":
		return domain.TransactionState{Status: domain.StatusProcessing}, nil
	case "failed", "declined", "expired", "cancelled":
		return domain.TransactionState{Status: domain.StatusFailed}, nil
	default:
		return domain.TransactionState{Status: domain.StatusPending}, nil
	}
}
