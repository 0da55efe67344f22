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
	exolixRatePath = "/api/v2/rate"
	exolixTxPath   = "/api/v2/transactions"
)

// Exolix is a crypto-to-crypto swap service. An out-of-range amount comes
// back as a 422 whose body carries the pair's exact min/max; provErr lifts
// those bounds into the ProviderError.
type Exolix struct {
	Client *httpx.Client
}

var _ application.ProviderAdapter = (*Exolix)(nil)

func (e *Exolix) ID() domain.ProviderID { return domain.ProviderExolix }

func (e *Exolix) Supports(req domain.QuoteRequest) bool {
	return req.Direction == domain.DirectionSwap &&
		req.SourceCurrency.IsCrypto() &&
		req.DestinationCurrency.IsCrypto() &&
		req.DestinationCurrency != domain.RestrictedPairAsset &&
		req.SourceCurrency != domain.RestrictedPairAsset
}

func (e *Exolix) Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error) {
	params := url.Values{}
	params.Set("coinFrom", string(req.SourceCurrency))
	params.Set("coinTo", string(req.DestinationCurrency))
	params.Set("amount", req.Amount.String())
	var resp payload
	if err := e.Client.GetJSON(ctx, exolixRatePath, params, &resp); err != nil {
		return domain.Quote{}, provErr(e.ID(), err)
	}
	dest, ok := resp.dec("toAmount", "amountTo", "withdrawalAmount")
	if !ok {
		return domain.Quote{}, provErr(e.ID(), errInvalidResponse)
	}
	rate, ok := resp.dec("rate")
	if !ok && req.Amount.IsPositive() {
		rate = dest.Div(req.Amount)
	}
	return domain.Quote{
		Provider:            e.ID(),
		Direction:           req.Direction,
		SourceAmount:        req.Amount,
		DestinationAmount:   dest,
		SourceCurrency:      req.SourceCurrency,
		DestinationCurrency: req.DestinationCurrency,
		Rate:                rate,
		MinAmount:           resp.decPtr("minAmount"),
		MaxAmount:           resp.decPtr("maxAmount"),
		CreatedAt:           time.Now().UTC(),
	}, nil
}

func (e *Exolix) PaymentMethods(context.Context, domain.QuoteRequest) ([]domain.PaymentMethod, error) {
	return nil, nil
}

func (e *Exolix) CreateTransaction(ctx context.Context, req application.CheckoutRequest) (domain.CheckoutSession, error) {
	body := map[string]any{
		"coinFrom":          req.Quote.SourceCurrency,
		"coinTo":            req.Quote.DestinationCurrency,
		"amount":            req.Quote.SourceAmount.String(),
		"withdrawalAddress": req.Destination,
	}
	var resp payload
	if err := e.Client.PostJSON(ctx, exolixTxPath, body, &resp); err != nil {
		return domain.CheckoutSession{}, provErr(e.ID(), err)
	}
	txID, ok := resp.str("id")
	deposit, depositOK := resp.str("depositAddress")
	if !ok || !depositOK {
		return domain.CheckoutSession{}, provErr(e.ID(), errInvalidResponse)
	}
	amount, _ := resp.dec("depositAmount", "amount")
	extra, _ := resp.str("depositExtraId")
	return domain.CheckoutSession{
		Provider:       e.ID(),
		TransactionID:  txID,
		DepositAddress: deposit,
		DepositAmount:  amount,
		DepositExtraID: extra,
	}, nil
}

func (e *Exolix) Status(ctx context.Context, transactionID string) (domain.TransactionState, error) {
	var resp payload
	if err := e.Client.GetJSON(ctx, exolixTxPath+"/"+transactionID, nil, &resp); err != nil {
		return domain.TransactionState{}, provErr(e.ID(), err)
	}
	raw, ok := resp.str("status")
	if !ok {
		return domain.TransactionState{}, provErr(e.ID(), errInvalidResponse)
	}
	switch raw {
	case "wait":
		return domain.TransactionState{Status: domain.StatusPending, Phase: domain.PhaseWaiting}, nil
	case "confirmation":
		return domain.TransactionState{Status: domain.StatusProcessing, Phase: domain.PhaseConfirming}, nil
	case "exchanging":
		return domain.TransactionState{Status: domain.StatusProcessing, Phase: domain.PhaseExchanging}, nil
	case "sending":
		return domain.TransactionState{Status: domain.StatusProcessing, Phase: domain.PhaseSending}, nil
	case "success":
		return domain.TransactionState{Status: domain.StatusCompleted}, nil
	case "overdue", "refunded", "failed":
		return domain.TransactionState{Status: domain.StatusFailed}, nil
	default:
		return domain.TransactionState{Status: domain.StatusPending}, nil
	}
}
