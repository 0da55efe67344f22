package provider

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rampcore/internal/application"
	"rampcore/internal/domain"
)

// Ensure Fake implements application.ProviderAdapter.
var _ application.ProviderAdapter = (*Fake)(nil)

// Fake serves every pair at a fixed rate and completes every transaction on
// the second status check. Used when the service runs without provider
// credentials.
type Fake struct {
	id   domain.ProviderID
	rate decimal.Decimal

	mu    sync.Mutex
	polls map[string]int
}

func NewFake(id domain.ProviderID, rate decimal.Decimal) *Fake {
	return &Fake{id: id, rate: rate, polls: make(map[string]int)}
}

func (f *Fake) ID() domain.ProviderID { return f.id }

func (f *Fake) Supports(req domain.QuoteRequest) bool {
	return domain.ValidDirection(req.Direction)
}

func (f *Fake) Quote(_ context.Context, req domain.QuoteRequest) (domain.Quote, error) {
	return domain.Quote{
		Provider:            f.id,
		Direction:           req.Direction,
		SourceAmount:        req.Amount,
		DestinationAmount:   req.Amount.Mul(f.rate),
		SourceCurrency:      req.SourceCurrency,
		DestinationCurrency: req.DestinationCurrency,
		Rate:                f.rate,
		CreatedAt:           time.Now().UTC(),
	}, nil
}

func (f *Fake) PaymentMethods(context.Context, domain.QuoteRequest) ([]domain.PaymentMethod, error) {
	return []domain.PaymentMethod{{ID: "card", Type: "card", Name: "Card"}}, nil
}

func (f *Fake) CreateTransaction(_ context.Context, req application.CheckoutRequest) (domain.CheckoutSession, error) {
	return domain.CheckoutSession{
		Provider:      f.id,
		TransactionID: uuid.NewString(),
		SessionURL:    "https://checkout.invalid/" + string(f.id),
	}, nil
}

func (f *Fake) Status(_ context.Context, transactionID string) (domain.TransactionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls[transactionID]++
	if f.polls[transactionID] > 1 {
		return domain.TransactionState{Status: domain.StatusCompleted}, nil
	}
	return domain.TransactionState{Status: domain.StatusProcessing}, nil
}
