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

const (
	defaultPollInterval  = 7 * time.Second
	defaultMaxAge        = time.Hour
	defaultVerifyTimeout = 2500 * time.Millisecond
)

// Orchestrator owns the PendingTransaction lifecycle: it creates provider
// sessions, persists the resumable record, and drives the status poller to
// a terminal state. It is the record's only writer; pollers update status
// through it.
type Orchestrator struct {
	adapters map[domain.ProviderID]ProviderAdapter
	pending  PendingStore
	archive  ArchiveRepo
	idem     IdempotencyStore
	clock    Clock
	log      *zap.Logger

	interval      time.Duration
	maxAge        time.Duration
	verifyTimeout time.Duration

	onTerminal func(sessionID string, tx domain.PendingTransaction, pollErr error)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pollers map[string]context.CancelFunc
	wg      sync.WaitGroup
}

type OrchestratorOption func(*Orchestrator)

func WithClock(c Clock) OrchestratorOption {
	return func(o *Orchestrator) { o.clock = c }
}

func WithPollInterval(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.interval = d }
}

func WithMaxAge(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.maxAge = d }
}

func WithOrchestratorLogger(l *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = l }
}

// WithTerminalHook registers a callback fired once per transaction when it
// reaches a terminal state. pollErr is non-nil only on polling timeout.
func WithTerminalHook(fn func(sessionID string, tx domain.PendingTransaction, pollErr error)) OrchestratorOption {
	return func(o *Orchestrator) { o.onTerminal = fn }
}

func NewOrchestrator(adapters []ProviderAdapter, pending PendingStore, archive ArchiveRepo, idem IdempotencyStore, opts ...OrchestratorOption) *Orchestrator {
	byID := make(map[domain.ProviderID]ProviderAdapter, len(adapters))
	for _, ad := range adapters {
		byID[ad.ID()] = ad
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		adapters: byID,
		pending:  pending,
		archive:  archive,
		idem:     idem,
		ctx:      ctx,
		cancel:   cancel,
		pollers:  map[string]context.CancelFunc{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = realClock{}
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.idem == nil {
		o.idem = NoopIdempotency{}
	}
	if o.interval <= 0 {
		o.interval = defaultPollInterval
	}
	if o.maxAge <= 0 {
		o.maxAge = defaultMaxAge
	}
	if o.verifyTimeout <= 0 {
		o.verifyTimeout = defaultVerifyTimeout
	}
	return o
}

// Checkout creates the provider-side transaction for an accepted quote.
// The destination must pass local format validation first; a failed session
// creation leaves no PendingTransaction behind. On success exactly one
// record is persisted and its poller started.
func (o *Orchestrator) Checkout(ctx context.Context, sessionID string, req CheckoutRequest) (cs domain.CheckoutSession, retErr error) {
	ad, ok := o.adapters[req.Quote.Provider]
	if !ok {
		return domain.CheckoutSession{}, fmt.Errorf("provider %s: %w", req.Quote.Provider, ErrNotFound)
	}

	if err := o.validateDestination(ctx, ad, req); err != nil {
		return domain.CheckoutSession{}, err
	}

	if req.IdempotencyKey != "" {
		key := "checkout:" + req.IdempotencyKey
		reserved, err := o.idem.TryReserve(ctx, key)
		if err != nil {
			return domain.CheckoutSession{}, err
		}
		if !reserved {
			return domain.CheckoutSession{}, ErrDuplicateRequest
		}
		// The reservation only deduplicates a successful checkout; a failed
		// one must stay retryable with the same key.
		defer func() {
			if retErr == nil {
				return
			}
			if err := o.idem.Release(ctx, key); err != nil {
				o.log.Warn("idempotency_release_failed", zap.String("key", key), zap.Error(err))
			}
		}()
	}

	if existing, err := o.pending.Get(ctx, sessionID, req.Quote.Direction); err == nil {
		if !existing.Stale(o.clock.Now(), o.maxAge) {
			return domain.CheckoutSession{}, ErrSessionExists
		}
		_ = o.pending.Delete(ctx, sessionID, req.Quote.Direction)
	}

	cs, err := ad.CreateTransaction(ctx, req)
	if err != nil {
		return domain.CheckoutSession{}, &SessionCreationError{Provider: req.Quote.Provider, Cause: err}
	}

	tx := domain.PendingTransaction{
		ID:                  cs.TransactionID,
		Provider:            req.Quote.Provider,
		Direction:           req.Quote.Direction,
		Amount:              req.Quote.SourceAmount,
		SourceCurrency:      req.Quote.SourceCurrency,
		DestinationCurrency: req.Quote.DestinationCurrency,
		Status:              domain.StatusPending,
		SessionURL:          cs.SessionURL,
		DepositAddress:      cs.DepositAddress,
		StartedAt:           o.clock.Now(),
	}
	if err := o.pending.Save(ctx, sessionID, tx); err != nil {
		return domain.CheckoutSession{}, &SessionCreationError{Provider: req.Quote.Provider, Cause: err}
	}

	o.log.Info("transaction_created",
		zap.String("session_id", sessionID),
		zap.String("provider", string(tx.Provider)),
		zap.String("tx_id", tx.ID),
		zap.String("direction", string(tx.Direction)))

	o.StartPolling(sessionID, tx)
	return cs, nil
}

// validateDestination runs the local format gate, then the optional
// provider-side pass under an explicit timeout. The remote pass fails open:
// a timeout or transport error never blocks checkout, only an explicit
// rejection does.
func (o *Orchestrator) validateDestination(ctx context.Context, ad ProviderAdapter, req CheckoutRequest) error {
	if req.Quote.Direction == domain.DirectionSell {
		if req.BankDetails == nil {
			return &ValidationError{Field: "bank details", Detail: "required for sell"}
		}
		if check := validate.Bank(*req.BankDetails); !check.IsValid {
			return &ValidationError{Field: "bank details", Detail: check.Err}
		}
		return nil
	}

	if !validate.Address(req.Destination, req.Quote.DestinationCurrency) {
		return &ValidationError{
			Field:  "destination address",
			Detail: fmt.Sprintf("not a valid %s address", req.Quote.DestinationCurrency),
		}
	}

	verifier, ok := Capability[AddressVerifier](ad)
	if !ok {
		return nil
	}
	vctx, cancel := context.WithTimeout(ctx, o.verifyTimeout)
	defer cancel()
	accepted, err := verifier.VerifyAddress(vctx, req.Destination, req.Quote.DestinationCurrency)
	if err != nil {
		o.log.Warn("address_verify_unavailable", zap.String("provider", string(ad.ID())), zap.Error(err))
		return nil
	}
	if !accepted {
		return &ValidationError{Field: "destination address", Detail: "rejected by provider"}
	}
	return nil
}

// Cancel is only possible before a provider session exists; once a
// PendingTransaction is tracked the lifecycle must run to a terminal state.
func (o *Orchestrator) Cancel(ctx context.Context, sessionID string, dir domain.Direction) error {
	_, err := o.pending.Get(ctx, sessionID, dir)
	if err == nil {
		return ErrSessionExists
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Status returns the tracked transaction for (session, direction).
func (o *Orchestrator) Status(ctx context.Context, sessionID string, dir domain.Direction) (domain.PendingTransaction, error) {
	return o.pending.Get(ctx, sessionID, dir)
}

// Resume restarts pollers for every persisted, non-stale record. Stale
// records are dropped without being resumed.
func (o *Orchestrator) Resume(ctx context.Context) error {
	all, err := o.pending.ListAll(ctx)
	if err != nil {
		return err
	}
	now := o.clock.Now()
	for sessionID, txs := range all {
		for _, tx := range txs {
			if tx.Stale(now, o.maxAge) || tx.Status.Terminal() {
				_ = o.pending.Delete(ctx, sessionID, tx.Direction)
				o.log.Info("stale_transaction_dropped", zap.String("tx_id", tx.ID))
				continue
			}
			o.log.Info("transaction_resumed", zap.String("tx_id", tx.ID), zap.String("provider", string(tx.Provider)))
			o.StartPolling(sessionID, tx)
		}
	}
	return nil
}

// StartPolling begins (or restarts) the status poller for tx. Starting a
// new poll for the same transaction id cancels the previous one, so
// duplicate pollers cannot coexist.
func (o *Orchestrator) StartPolling(sessionID string, tx domain.PendingTransaction) {
	o.mu.Lock()
	if prev, ok := o.pollers[tx.ID]; ok {
		prev()
	}
	ctx, cancel := context.WithCancel(o.ctx)
	o.pollers[tx.ID] = cancel
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		o.poll(ctx, sessionID, tx)
	}()
}

func (o *Orchestrator) poll(ctx context.Context, sessionID string, tx domain.PendingTransaction) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	// Immediate check before the first interval elapses.
	for {
		if o.checkOnce(ctx, sessionID, &tx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// checkOnce performs one status probe. It returns true when polling must
// stop: terminal status reached or the wall-clock bound exceeded.
func (o *Orchestrator) checkOnce(ctx context.Context, sessionID string, tx *domain.PendingTransaction) bool {
	if o.clock.Now().Sub(tx.StartedAt) > o.maxAge {
		tx.Status = domain.StatusTimeout
		o.finish(ctx, sessionID, *tx, &PollingTimeoutError{Provider: tx.Provider, TransactionID: tx.ID})
		return true
	}

	ad, ok := o.adapters[tx.Provider]
	if !ok {
		o.log.Error("poller_unknown_provider", zap.String("provider", string(tx.Provider)))
		return true
	}

	st, err := ad.Status(ctx, tx.ID)
	if err != nil {
		// Transient; keep polling until terminal or timed out.
		o.log.Warn("status_check_failed", zap.String("tx_id", tx.ID), zap.Error(err))
		return false
	}

	if st.Status != tx.Status || st.Phase != tx.Phase {
		tx.Status, tx.Phase = st.Status, st.Phase
		if err := o.pending.UpdateState(ctx, sessionID, tx.Direction, st); err != nil {
			o.log.Warn("pending_update_failed", zap.String("tx_id", tx.ID), zap.Error(err))
		}
	}
	if st.Status.Terminal() {
		o.finish(ctx, sessionID, *tx, nil)
		return true
	}
	return false
}

// finish stops tracking: archive the terminal record, clear the persisted
// pending transaction, drop the poller handle.
func (o *Orchestrator) finish(ctx context.Context, sessionID string, tx domain.PendingTransaction, pollErr error) {
	if o.archive != nil {
		rec := domain.TransactionRecord{
			SessionID:           sessionID,
			TransactionID:       tx.ID,
			Provider:            tx.Provider,
			Direction:           tx.Direction,
			Amount:              tx.Amount,
			SourceCurrency:      tx.SourceCurrency,
			DestinationCurrency: tx.DestinationCurrency,
			FinalStatus:         tx.Status,
			StartedAt:           tx.StartedAt,
			FinishedAt:          o.clock.Now(),
		}
		if err := o.archive.Append(ctx, rec); err != nil {
			o.log.Warn("archive_append_failed", zap.String("tx_id", tx.ID), zap.Error(err))
		}
	}
	if err := o.pending.Delete(ctx, sessionID, tx.Direction); err != nil {
		o.log.Warn("pending_delete_failed", zap.String("tx_id", tx.ID), zap.Error(err))
	}

	o.mu.Lock()
	if cancel, ok := o.pollers[tx.ID]; ok {
		delete(o.pollers, tx.ID)
		defer cancel()
	}
	o.mu.Unlock()

	o.log.Info("transaction_finished",
		zap.String("tx_id", tx.ID),
		zap.String("status", string(tx.Status)))

	if o.onTerminal != nil {
		o.onTerminal(sessionID, tx, pollErr)
	}
}

// Close stops every poller and waits for them to exit.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}
