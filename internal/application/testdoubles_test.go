package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"rampcore/internal/domain"
)

var errBoom = errors.New("boom")

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeAdapter is a scriptable provider adapter.
type fakeAdapter struct {
	id       domain.ProviderID
	supports func(domain.QuoteRequest) bool
	quote    func(domain.QuoteRequest) (domain.Quote, error)
	delay    time.Duration

	methods   []domain.PaymentMethod
	methodErr error

	session    domain.CheckoutSession
	sessionErr error

	mu       sync.Mutex
	states   []domain.TransactionState
	statePos int
	statErr  error

	quoteCalls  int
	createCalls int
	statusCalls int
}

func (f *fakeAdapter) ID() domain.ProviderID { return f.id }

func (f *fakeAdapter) Supports(req domain.QuoteRequest) bool {
	if f.supports == nil {
		return true
	}
	return f.supports(req)
}

func (f *fakeAdapter) Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error) {
	f.mu.Lock()
	f.quoteCalls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return domain.Quote{}, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.quote == nil {
		return domain.Quote{}, &ProviderError{Provider: f.id, Cause: errBoom}
	}
	return f.quote(req)
}

func (f *fakeAdapter) PaymentMethods(context.Context, domain.QuoteRequest) ([]domain.PaymentMethod, error) {
	return f.methods, f.methodErr
}

func (f *fakeAdapter) CreateTransaction(context.Context, CheckoutRequest) (domain.CheckoutSession, error) {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()
	if f.sessionErr != nil {
		return domain.CheckoutSession{}, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeAdapter) Status(context.Context, string) (domain.TransactionState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statErr != nil {
		return domain.TransactionState{}, f.statErr
	}
	if len(f.states) == 0 {
		return domain.TransactionState{Status: domain.StatusPending}, nil
	}
	st := f.states[f.statePos]
	if f.statePos < len(f.states)-1 {
		f.statePos++
	}
	return st, nil
}

func okQuote(id domain.ProviderID, dest string) func(domain.QuoteRequest) (domain.Quote, error) {
	return func(req domain.QuoteRequest) (domain.Quote, error) {
		return domain.Quote{
			Provider:            id,
			Direction:           req.Direction,
			SourceAmount:        req.Amount,
			DestinationAmount:   dec(dest),
			SourceCurrency:      req.SourceCurrency,
			DestinationCurrency: req.DestinationCurrency,
			Rate:                dec(dest).Div(req.Amount),
			Fees:                domain.Fees{Total: dec("1.5")},
			CreatedAt:           time.Now().UTC(),
		}, nil
	}
}

// proberAdapter adds a direct limits endpoint.
type proberAdapter struct {
	fakeAdapter
	limits    domain.ProviderLimits
	limitsErr error
}

func (p *proberAdapter) Limits(context.Context, domain.QuoteRequest) (domain.ProviderLimits, error) {
	if p.limitsErr != nil {
		return domain.ProviderLimits{}, p.limitsErr
	}
	return p.limits, nil
}

// verifierAdapter adds the provider-side address pass.
type verifierAdapter struct {
	fakeAdapter
	verifyOK  bool
	verifyErr error
}

func (v *verifierAdapter) VerifyAddress(context.Context, string, domain.AssetCode) (bool, error) {
	return v.verifyOK, v.verifyErr
}

// fakePendingStore is an in-memory PendingStore.
type fakePendingStore struct {
	mu   sync.Mutex
	recs map[string]domain.PendingTransaction // key session|direction
	err  error
}

func newFakePendingStore() *fakePendingStore {
	return &fakePendingStore{recs: map[string]domain.PendingTransaction{}}
}

func pendingKey(sessionID string, dir domain.Direction) string {
	return sessionID + "|" + string(dir)
}

func (f *fakePendingStore) Save(_ context.Context, sessionID string, tx domain.PendingTransaction) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[pendingKey(sessionID, tx.Direction)] = tx
	return nil
}

func (f *fakePendingStore) Get(_ context.Context, sessionID string, dir domain.Direction) (domain.PendingTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.recs[pendingKey(sessionID, dir)]
	if !ok {
		return domain.PendingTransaction{}, domain.ErrNotFound
	}
	return tx, nil
}

func (f *fakePendingStore) UpdateState(_ context.Context, sessionID string, dir domain.Direction, st domain.TransactionState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := pendingKey(sessionID, dir)
	tx, ok := f.recs[k]
	if !ok {
		return domain.ErrNotFound
	}
	tx.Status, tx.Phase = st.Status, st.Phase
	f.recs[k] = tx
	return nil
}

func (f *fakePendingStore) Delete(_ context.Context, sessionID string, dir domain.Direction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.recs, pendingKey(sessionID, dir))
	return nil
}

func (f *fakePendingStore) ListAll(context.Context) (map[string][]domain.PendingTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string][]domain.PendingTransaction{}
	for k, tx := range f.recs {
		session := k[:len(k)-len(string(tx.Direction))-1]
		out[session] = append(out[session], tx)
	}
	return out, nil
}

func (f *fakePendingStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

type fakeArchive struct {
	mu   sync.Mutex
	recs []domain.TransactionRecord
}

func (f *fakeArchive) Append(_ context.Context, rec domain.TransactionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeArchive) History(_ context.Context, sessionID string, limit int) ([]domain.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TransactionRecord
	for _, r := range f.recs {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeArchive) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}
