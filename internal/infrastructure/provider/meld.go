package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"rampcore/internal/application"
	"rampcore/internal/domain"
	"rampcore/internal/infrastructure/httpx"
)

const (
	meldQuotePath   = "/payments/crypto/quote"
	meldSessionPath = "/crypto/session/widget"
	meldPaymentPath = "/payments"
	meldMethodsPath = "/service-providers/properties/payment-methods"
)

// Meld is a fiat on/off ramp behind a provider-hosted widget.
type Meld struct {
	Client    *httpx.Client
	PartnerID string
}

var _ application.ProviderAdapter = (*Meld)(nil)

func (m *Meld) ID() domain.ProviderID { return domain.ProviderMeld }

func (m *Meld) Supports(req domain.QuoteRequest) bool { return supportsOnOffRamp(req) }

func (m *Meld) Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error) {
	body := map[string]any{
		"sourceAmount":            req.Amount.String(),
		"sourceCurrencyCode":      req.SourceCurrency,
		"destinationCurrencyCode": req.DestinationCurrency,
		"countryCode":             req.Country,
	}
	var resp struct {
		Quotes []payload `json:"quotes"`
	}
	if err := m.Client.PostJSON(ctx, meldQuotePath, body, &resp); err != nil {
		return domain.Quote{}, provErr(m.ID(), err)
	}
	if len(resp.Quotes) == 0 {
		return domain.Quote{}, provErr(m.ID(), errInvalidResponse)
	}
	q := resp.Quotes[0]

	dest, ok := q.dec("destinationAmountWithoutFees", "destinationAmount")
	if !ok {
		return domain.Quote{}, provErr(m.ID(), errInvalidResponse)
	}
	rate, ok := q.dec("exchangeRate", "rate")
	if !ok && req.Amount.IsPositive() {
		rate = dest.Div(req.Amount)
	}
	total, _ := q.dec("totalFee", "totalFeeAmount", "fee")

	logo, _ := q.str("institutionLogoUrl", "logoUrl")
	return domain.Quote{
		Provider:            m.ID(),
		Direction:           req.Direction,
		SourceAmount:        req.Amount,
		DestinationAmount:   dest,
		SourceCurrency:      req.SourceCurrency,
		DestinationCurrency: req.DestinationCurrency,
		Rate:                rate,
		Fees: domain.Fees{
			Total:       total,
			Network:     q.decPtr("networkFee", "networkFeeAmount"),
			Transaction: q.decPtr("transactionFee", "transactionFeeAmount"),
			Partner:     q.decPtr("partnerFee", "partnerFeeAmount"),
		},
		MinAmount: q.decPtr("lowLimit", "minimumAmount", "minAmount"),
		MaxAmount: q.decPtr("highLimit", "maximumAmount", "maxAmount"),
		Logo:      logo,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (m *Meld) PaymentMethods(ctx context.Context, req domain.QuoteRequest) ([]domain.PaymentMethod, error) {
	fiat, _, _ := fiatCrypto(req)
	params := url.Values{}
	params.Set("fiatCurrency", string(fiat))
	params.Set("countryCode", req.Country)
	var resp []payload
	if err := m.Client.GetJSON(ctx, meldMethodsPath, params, &resp); err != nil {
		return nil, provErr(m.ID(), err)
	}
	out := make([]domain.PaymentMethod, 0, len(resp))
	for _, p := range resp {
		id, ok := p.str("paymentMethod", "id")
		if !ok {
			continue
		}
		name, _ := p.str("name", "paymentMethodName")
		typ, _ := p.str("paymentType", "type")
		out = append(out, domain.PaymentMethod{
			ID:            id,
			Type:          typ,
			Name:          name,
			FeePercentage: p.decPtr("feePercentage", "fee"),
		})
	}
	return out, nil
}

func (m *Meld) CreateTransaction(ctx context.Context, req application.CheckoutRequest) (domain.CheckoutSession, error) {
	session := map[string]any{
		"sourceAmount":            req.Quote.SourceAmount.String(),
		"sourceCurrencyCode":      req.Quote.SourceCurrency,
		"destinationCurrencyCode": req.Quote.DestinationCurrency,
		"walletAddress":           req.Destination,
		"countryCode":             req.Country,
	}
	if req.PaymentMethod != nil {
		session["paymentMethodType"] = req.PaymentMethod.ID
	}
	body := map[string]any{
		"sessionType":        string(req.Quote.Direction),
		"sessionData":        session,
		"externalCustomerId": m.PartnerID,
	}
	var resp payload
	if err := m.Client.PostJSON(ctx, meldSessionPath, body, &resp); err != nil {
		return domain.CheckoutSession{}, provErr(m.ID(), err)
	}
	widget, ok := resp.str("widgetUrl", "url")
	txID, idOK := resp.str("externalSessionId", "id", "sessionId")
	if !ok || !idOK {
		return domain.CheckoutSession{}, provErr(m.ID(), errInvalidResponse)
	}
	return domain.CheckoutSession{
		Provider:      m.ID(),
		TransactionID: txID,
		SessionURL:    widget,
	}, nil
}

func (m *Meld) Status(ctx context.Context, transactionID string) (domain.TransactionState, error) {
	var resp payload
	path := fmt.Sprintf("%s/%s", meldPaymentPath, transactionID)
	if err := m.Client.GetJSON(ctx, path, nil, &resp); err != nil {
		return domain.TransactionState{}, provErr(m.ID(), err)
	}
	raw, ok := resp.str("paymentStatus", "status")
	if !ok {
		return domain.TransactionState{}, provErr(m.ID(), errInvalidResponse)
	}
	switch raw {
	case "SETTLED", "COMPLETED":
		return domain.TransactionState{Status: domain.StatusCompleted}, nil
	case "PROCESSING", "AUTHORIZED", "SETTLING":
		return domain.TransactionState{Status: domain.StatusProcessing}, nil
	case "FAILED", "DECLINED", "CANCELLED", "ERROR":
		return domain.TransactionState{Status: domain.StatusFailed}, nil
	default:
		return domain.TransactionState{Status: domain.StatusPending}, nil
	}
}
