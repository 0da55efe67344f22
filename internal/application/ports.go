package application

import (
	"context"
	"time"

	"rampcore/internal/domain"
	"rampcore/internal/validate"
)

// CheckoutRequest carries everything a provider needs to open a session or
// deposit for an accepted quote.
type CheckoutRequest struct {
	Quote          domain.Quote
	Destination    string
	BankDetails    *validate.BankDetails
	PaymentMethod  *domain.PaymentMethod
	Country        string
	IdempotencyKey string
}

// ProviderAdapter translates canonical requests into one provider's wire
// format and back. Implementations are stateless and safe for concurrent
// use; applicability is part of the adapter's contract.
type ProviderAdapter interface {
	ID() domain.ProviderID
	Supports(req domain.QuoteRequest) bool
	Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error)
	PaymentMethods(ctx context.Context, req domain.QuoteRequest) ([]domain.PaymentMethod, error)
	CreateTransaction(ctx context.Context, req CheckoutRequest) (domain.CheckoutSession, error)
	Status(ctx context.Context, transactionID string) (domain.TransactionState, error)
}

// Unwrapper is implemented by adapter decorators (the circuit breaker) so
// that capability lookups reach the wrapped adapter.
type Unwrapper interface {
	Unwrap() ProviderAdapter
}

// Capability reports whether ad, or any adapter it wraps, implements T.
func Capability[T any](ad ProviderAdapter) (T, bool) {
	for ad != nil {
		if c, ok := ad.(T); ok {
			return c, true
		}
		u, ok := ad.(Unwrapper)
		if !ok {
			break
		}
		ad = u.Unwrap()
	}
	var zero T
	return zero, false
}

// LimitsProber is implemented by adapters whose provider exposes a real
// limits endpoint; the resolver falls back to sampled probing otherwise.
type LimitsProber interface {
	Limits(ctx context.Context, req domain.QuoteRequest) (domain.ProviderLimits, error)
}

// AddressVerifier is the optional provider-side second pass over an address
// that already passed local format checks.
type AddressVerifier interface {
	VerifyAddress(ctx context.Context, address string, asset domain.AssetCode) (bool, error)
}

// PendingStore persists at most one PendingTransaction per
// (session, direction) across process restarts.
type PendingStore interface {
	Save(ctx context.Context, sessionID string, tx domain.PendingTransaction) error
	Get(ctx context.Context, sessionID string, dir domain.Direction) (domain.PendingTransaction, error)
	UpdateState(ctx context.Context, sessionID string, dir domain.Direction, st domain.TransactionState) error
	Delete(ctx context.Context, sessionID string, dir domain.Direction) error
	ListAll(ctx context.Context) (map[string][]domain.PendingTransaction, error)
}

// ArchiveRepo appends terminal transactions for history.
type ArchiveRepo interface {
	Append(ctx context.Context, rec domain.TransactionRecord) error
	History(ctx context.Context, sessionID string, limit int) ([]domain.TransactionRecord, error)
}

// ReferenceCache is the lazy-populated 24h cache for provider reference
// data (supported asset lists). Single writer per key.
type ReferenceCache interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, val any) error
}

// IdempotencyStore handles short-lived request deduplication.
type IdempotencyStore interface {
	// TryReserve returns true if key was absent and is now reserved.
	TryReserve(ctx context.Context, key string) (bool, error)
	// Release frees a reservation so the key can be reserved again. A failed
	// operation must release its key or the client's retry is rejected for
	// the whole TTL.
	Release(ctx context.Context, key string) error
}

// NoopIdempotency always succeeds; useful for tests/dev when Redis is disabled.
type NoopIdempotency struct{}

func (NoopIdempotency) TryReserve(context.Context, string) (bool, error) { return true, nil }
func (NoopIdempotency) Release(context.Context, string) error            { return nil }

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }
