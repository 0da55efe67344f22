package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"rampcore/internal/domain"
	"rampcore/internal/validate"
)

// AssetLister is implemented by adapters that expose their supported asset
// list; results are cached for a day in the reference cache.
type AssetLister interface {
	Assets(ctx context.Context) ([]domain.AssetCode, error)
}

// Engine is the façade UI flows talk to. It owns one SelectionStore per
// user session and routes checkout through the orchestrator.
type Engine struct {
	agg      *Aggregator
	orch     *Orchestrator
	adapters map[domain.ProviderID]ProviderAdapter
	archive  ArchiveRepo
	refCache ReferenceCache
	log      *zap.Logger
	debounce time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionState
}

type sessionState struct {
	selection *SelectionStore
	lastSet   []domain.Quote
}

type EngineOption func(*Engine)

// WithQuoteDebounce sets the debounce window handed to interactive quote
// sessions created through InteractiveSession.
func WithQuoteDebounce(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.debounce = d
		}
	}
}

func NewEngine(agg *Aggregator, orch *Orchestrator, adapters []ProviderAdapter, archive ArchiveRepo, refCache ReferenceCache, log *zap.Logger, opts ...EngineOption) *Engine {
	byID := make(map[domain.ProviderID]ProviderAdapter, len(adapters))
	for _, ad := range adapters {
		byID[ad.ID()] = ad
	}
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		agg:      agg,
		orch:     orch,
		adapters: byID,
		archive:  archive,
		refCache: refCache,
		log:      log,
		debounce: defaultQuoteDebounce,
		sessions: map[string]*sessionState{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InteractiveSession starts a debounced quote session for a long-lived
// caller that submits input changes as they happen. HTTP requests do not go
// through it; each POST /quotes runs one cycle synchronously instead.
func (e *Engine) InteractiveSession() *QuoteSession {
	return NewQuoteSession(e.agg, e.debounce, e.log)
}

func (e *Engine) session(id string) *sessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	if !ok {
		s = &sessionState{selection: NewSelectionStore()}
		e.sessions[id] = s
	}
	return s
}

// RequestQuotes runs one aggregation cycle and reconciles the session's
// selection against the fresh result set. A cycle that completed with zero
// quotes is still a result set: it clears the selection, so a later checkout
// cannot run on a price from a cycle whose provider has since gone quiet.
func (e *Engine) RequestQuotes(ctx context.Context, sessionID string, req domain.QuoteRequest) (AggregateResult, domain.Quote, error) {
	res, err := e.agg.Aggregate(ctx, req)
	if err != nil {
		var noQuote *AggregateNoQuoteError
		if errors.As(err, &noQuote) {
			s := e.session(sessionID)
			s.selection.Reconcile(nil, req.Direction)
			e.mu.Lock()
			s.lastSet = nil
			e.mu.Unlock()
		}
		return res, domain.Quote{}, err
	}
	s := e.session(sessionID)
	selected, _ := s.selection.Reconcile(res.Quotes, req.Direction)
	e.mu.Lock()
	s.lastSet = res.Quotes
	e.mu.Unlock()
	return res, selected, nil
}

// Limits reports the cross-provider amount envelope for a prospective pair.
func (e *Engine) Limits(ctx context.Context, req domain.QuoteRequest) (domain.LimitsReport, error) {
	return e.agg.Limits(ctx, req)
}

// SelectProvider is an explicit user choice among the latest result set.
func (e *Engine) SelectProvider(sessionID string, provider domain.ProviderID) (domain.Quote, error) {
	s := e.session(sessionID)
	e.mu.Lock()
	last := s.lastSet
	e.mu.Unlock()
	for _, q := range last {
		if q.Provider == provider {
			s.selection.Select(q)
			return q, nil
		}
	}
	return domain.Quote{}, fmt.Errorf("provider %s not in current result set: %w", provider, ErrNotFound)
}

// PaymentMethods fetches the funding options for the session's selected
// provider and currency pair. Scoped to the selection: a provider change
// invalidates previously chosen methods.
func (e *Engine) PaymentMethods(ctx context.Context, sessionID string) ([]domain.PaymentMethod, error) {
	s := e.session(sessionID)
	q, ok := s.selection.Selected()
	if !ok {
		return nil, ErrNoSelection
	}
	ad, ok := e.adapters[q.Provider]
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", q.Provider, ErrNotFound)
	}
	return ad.PaymentMethods(ctx, domain.QuoteRequest{
		Direction:           q.Direction,
		SourceCurrency:      q.SourceCurrency,
		DestinationCurrency: q.DestinationCurrency,
		Amount:              q.SourceAmount,
	})
}

func (e *Engine) ChoosePaymentMethod(sessionID string, m domain.PaymentMethod) {
	e.session(sessionID).selection.SetPaymentMethod(m)
}

// CheckoutParams is the user-facing checkout input; the quote and payment
// method come from the session's selection.
type CheckoutParams struct {
	Destination    string
	BankDetails    *validate.BankDetails
	Country        string
	IdempotencyKey string
}

func (e *Engine) Checkout(ctx context.Context, sessionID string, p CheckoutParams) (domain.CheckoutSession, error) {
	s := e.session(sessionID)
	q, ok := s.selection.Selected()
	if !ok {
		return domain.CheckoutSession{}, ErrNoSelection
	}
	req := CheckoutRequest{
		Quote:          q,
		Destination:    p.Destination,
		BankDetails:    p.BankDetails,
		Country:        p.Country,
		IdempotencyKey: p.IdempotencyKey,
	}
	if m, ok := s.selection.PaymentMethod(); ok {
		req.PaymentMethod = &m
	}
	return e.orch.Checkout(ctx, sessionID, req)
}

func (e *Engine) TransactionStatus(ctx context.Context, sessionID string, dir domain.Direction) (domain.PendingTransaction, error) {
	return e.orch.Status(ctx, sessionID, dir)
}

func (e *Engine) CancelTransaction(ctx context.Context, sessionID string, dir domain.Direction) error {
	return e.orch.Cancel(ctx, sessionID, dir)
}

func (e *Engine) History(ctx context.Context, sessionID string, limit int) ([]domain.TransactionRecord, error) {
	if e.archive == nil {
		return nil, nil
	}
	return e.archive.History(ctx, sessionID, limit)
}

// SupportedAssets returns a provider's asset list, served from the 24h
// reference cache when present and lazily populated otherwise.
func (e *Engine) SupportedAssets(ctx context.Context, provider domain.ProviderID) ([]domain.AssetCode, error) {
	ad, ok := e.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", provider, ErrNotFound)
	}
	lister, ok := Capability[AssetLister](ad)
	if !ok {
		return nil, fmt.Errorf("provider %s has no asset listing: %w", provider, ErrNotFound)
	}

	key := "assets:" + string(provider)
	var cached []domain.AssetCode
	if e.refCache != nil {
		if hit, err := e.refCache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}
	assets, err := lister.Assets(ctx)
	if err != nil {
		return nil, err
	}
	if e.refCache != nil {
		if err := e.refCache.Set(ctx, key, assets); err != nil {
			e.log.Warn("reference_cache_set_failed", zap.String("key", key), zap.Error(err))
		}
	}
	return assets, nil
}
