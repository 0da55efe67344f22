package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"rampcore/internal/application"
	"rampcore/internal/domain"
	"rampcore/internal/infrastructure/httpx"
)

// Changelly is a crypto-to-crypto swap service speaking JSON-RPC over one
// POST endpoint.
type Changelly struct {
	Client *httpx.Client
}

var _ application.ProviderAdapter = (*Changelly)(nil)

func (c *Changelly) ID() domain.ProviderID { return domain.ProviderChangelly }

func (c *Changelly) Supports(req domain.QuoteRequest) bool {
	return req.Direction == domain.DirectionSwap &&
		req.SourceCurrency.IsCrypto() &&
		req.DestinationCurrency.IsCrypto() &&
		req.DestinationCurrency != domain.RestrictedPairAsset &&
		req.SourceCurrency != domain.RestrictedPairAsset
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Changelly) call(ctx context.Context, method string, params map[string]any, result any) error {
	body := map[string]any{
		"jsonrpc": "2.0",
		"id":      "rampcore",
		"method":  method,
		"params":  params,
	}
	var envelope struct {
		Result any       `json:"result"`
		Error  *rpcError `json:"error"`
	}
	envelope.Result = result
	if err := c.Client.PostJSON(ctx, "/", body, &envelope); err != nil {
		return err
	}
	if envelope.Error != nil {
		return fmt.Errorf("changelly rpc %d: %s", envelope.Error.Code, envelope.Error.Message)
	}
	return nil
}

func (c *Changelly) pairParams(req domain.QuoteRequest) map[string]any {
	return map[string]any{
		"from": strings.ToLower(string(req.SourceCurrency)),
		"to":   strings.ToLower(string(req.DestinationCurrency)),
	}
}

func (c *Changelly) Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error) {
	params := c.pairParams(req)
	params["amount"] = req.Amount.String()
	var amountTo string
	if err := c.call(ctx, "getExchangeAmount", params, &amountTo); err != nil {
		return domain.Quote{}, c.quoteError(ctx, req, err)
	}
	dest, err := decimal.NewFromString(amountTo)
	if err != nil {
		return domain.Quote{}, provErr(c.ID(), errInvalidResponse)
	}
	var rate decimal.Decimal
	if req.Amount.IsPositive() {
		rate = dest.Div(req.Amount)
	}
	return domain.Quote{
		Provider:            c.ID(),
		Direction:           req.Direction,
		SourceAmount:        req.Amount,
		DestinationAmount:   dest,
		SourceCurrency:      req.SourceCurrency,
		DestinationCurrency: req.DestinationCurrency,
		Rate:                rate,
		CreatedAt:           time.Now().UTC(),
	}, nil
}

// quoteError enriches an out-of-range failure with the pair's minimum so
// the aggregator gets an exact bound instead of probing.
func (c *Changelly) quoteError(ctx context.Context, req domain.QuoteRequest, cause error) error {
	pe := provErr(c.ID(), cause)
	if strings.Contains(strings.ToLower(cause.Error()), "minim") {
		var minRaw string
		if err := c.call(ctx, "getMinAmount", c.pairParams(req), &minRaw); err == nil {
			if min, err := decimal.NewFromString(minRaw); err == nil {
				pe.MinAmount = &min
			}
		}
	}
	return pe
}

// PaymentMethods does not apply to swaps; funding is a crypto deposit.
func (c *Changelly) PaymentMethods(context.Context, domain.QuoteRequest) ([]domain.PaymentMethod, error) {
	return nil, nil
}

func (c *Changelly) CreateTransaction(ctx context.Context, req application.CheckoutRequest) (domain.CheckoutSession, error) {
	params := map[string]any{
		"from":    strings.ToLower(string(req.Quote.SourceCurrency)),
		"to":      strings.ToLower(string(req.Quote.DestinationCurrency)),
		"amount":  req.Quote.SourceAmount.String(),
		"address": req.Destination,
	}
	var result payload
	if err := c.call(ctx, "createTransaction", params, &result); err != nil {
		return domain.CheckoutSession{}, provErr(c.ID(), err)
	}
	txID, ok := result.str("id")
	payin, payinOK := result.str("payinAddress")
	if !ok || !payinOK {
		return domain.CheckoutSession{}, provErr(c.ID(), errInvalidResponse)
	}
	amount, _ := result.dec("amountExpectedFrom", "amount")
	extra, _ := result.str("payinExtraId")
	return domain.CheckoutSession{
		Provider:       c.ID(),
		TransactionID:  txID,
		DepositAddress: payin,
		DepositAmount:  amount,
		DepositExtraID: extra,
	}, nil
}

func (c *Changelly) Status(ctx context.Context, transactionID string) (domain.TransactionState, error) {
	var raw string
	if err := c.call(ctx, "getStatus", map[string]any{"id": transactionID}, &raw); err != nil {
		return domain.TransactionState{}, provErr(c.ID(), err)
	}
	return changellyState(raw)
}

func changellyState(raw string) (domain.TransactionState, error) {
	switch raw {
	case "waiting":
		return domain.TransactionState{Status: domain.StatusPending, Phase: domain.PhaseWaiting}, nil
	case "confirming":
		return domain.TransactionState{Status: domain.StatusProcessing, Phase: domain.PhaseConfirming}, nil
	case "exchanging":
		return domain.TransactionState{Status: domain.StatusProcessing, Phase: domain.PhaseExchanging}, nil
	case "sending", "hold":
		return domain.TransactionState{Status: domain.StatusProcessing, Phase: domain.PhaseSending}, nil
	case "finished", "success":
		return domain.TransactionState{Status: domain.StatusCompleted}, nil
	case "failed", "refunded", "overdue", "expired":
		return domain.TransactionState{Status: domain.StatusFailed}, nil
	default:
		return domain.TransactionState{}, errors.New("unknown status " + raw)
	}
}
