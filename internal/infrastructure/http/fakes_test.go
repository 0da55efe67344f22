package httpserver_test

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rampcore/internal/application"
	"rampcore/internal/domain"
	httpserver "rampcore/internal/infrastructure/http"
)

type fakeAdapter struct {
	id    domain.ProviderID
	rate  decimal.Decimal
	err   error
	state domain.TransactionState
}

func (f *fakeAdapter) ID() domain.ProviderID             { return f.id }
func (f *fakeAdapter) Supports(domain.QuoteRequest) bool { return true }

func (f *fakeAdapter) Quote(_ context.Context, req domain.QuoteRequest) (domain.Quote, error) {
	if f.err != nil {
		return domain.Quote{}, f.err
	}
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

func (f *fakeAdapter) PaymentMethods(context.Context, domain.QuoteRequest) ([]domain.PaymentMethod, error) {
	return []domain.PaymentMethod{{ID: "card", Name: "Card"}}, nil
}

func (f *fakeAdapter) CreateTransaction(context.Context, application.CheckoutRequest) (domain.CheckoutSession, error) {
	return domain.CheckoutSession{
		Provider:      f.id,
		TransactionID: "tx-" + string(f.id),
		SessionURL:    "https://checkout.invalid/" + string(f.id),
	}, nil
}

func (f *fakeAdapter) Status(context.Context, string) (domain.TransactionState, error) {
	if f.state.Status == "" {
		return domain.TransactionState{Status: domain.StatusProcessing}, nil
	}
	return f.state, nil
}

type memPendingStore struct {
	mu   sync.Mutex
	recs map[string]domain.PendingTransaction
}

func newMemPendingStore() *memPendingStore {
	return &memPendingStore{recs: map[string]domain.PendingTransaction{}}
}

func pendingKey(sessionID string, dir domain.Direction) string {
	return sessionID + "|" + string(dir)
}

func (s *memPendingStore) Save(_ context.Context, sessionID string, tx domain.PendingTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[pendingKey(sessionID, tx.Direction)] = tx
	return nil
}

func (s *memPendingStore) Get(_ context.Context, sessionID string, dir domain.Direction) (domain.PendingTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.recs[pendingKey(sessionID, dir)]
	if !ok {
		return domain.PendingTransaction{}, application.ErrNotFound
	}
	return tx, nil
}

func (s *memPendingStore) UpdateState(_ context.Context, sessionID string, dir domain.Direction, st domain.TransactionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.recs[pendingKey(sessionID, dir)]
	if !ok {
		return application.ErrNotFound
	}
	tx.Status = st.Status
	tx.Phase = st.Phase
	s.recs[pendingKey(sessionID, dir)] = tx
	return nil
}

func (s *memPendingStore) Delete(_ context.Context, sessionID string, dir domain.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, pendingKey(sessionID, dir))
	return nil
}

func (s *memPendingStore) ListAll(context.Context) (map[string][]domain.PendingTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string][]domain.PendingTransaction{}
	for k, tx := range s.recs {
		sessionID := k[:len(k)-len(tx.Direction)-1]
		out[sessionID] = append(out[sessionID], tx)
	}
	return out, nil
}

type memArchive struct {
	mu   sync.Mutex
	recs []domain.TransactionRecord
}

func (a *memArchive) Append(_ context.Context, rec domain.TransactionRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recs = append(a.recs, rec)
	return nil
}

func (a *memArchive) History(_ context.Context, sessionID string, limit int) ([]domain.TransactionRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []domain.TransactionRecord
	for _, rec := range a.recs {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestServer(adapters ...application.ProviderAdapter) *httpserver.Server {
	log := zap.NewNop()
	agg := application.NewAggregator(adapters, application.NewLimitsResolver(log), application.WithAggregatorLogger(log))
	orch := application.NewOrchestrator(adapters, newMemPendingStore(), &memArchive{}, nil,
		application.WithOrchestratorLogger(log))
	engine := application.NewEngine(agg, orch, adapters, &memArchive{}, nil, log)
	return httpserver.NewServer(engine)
}
