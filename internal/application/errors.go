package application

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"rampcore/internal/domain"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrNoSelection      = errors.New("no quote selected")
	ErrSessionExists    = errors.New("a provider session already exists")
	ErrDuplicateRequest = errors.New("duplicate request")
)

// ProviderError is one provider's failed or out-of-range call. It is
// recovered locally by the aggregator and kept as diagnostic input; bounds
// reported here beat any inferred ones.
type ProviderError struct {
	Provider  domain.ProviderID
	Cause     error
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Cause)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// HasBounds reports whether the provider stated an explicit amount bound.
func (e *ProviderError) HasBounds() bool {
	return e.MinAmount != nil || e.MaxAmount != nil
}

// AggregateNoQuoteError means zero providers returned a quote. It always
// carries the limits diagnosis so callers can show an actionable message.
type AggregateNoQuoteError struct {
	Reason     domain.NoQuoteReason
	Report     domain.LimitsReport
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	Suggestion string
}

func (e *AggregateNoQuoteError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("no quotes available: %s (%s)", e.Reason, e.Suggestion)
	}
	return fmt.Sprintf("no quotes available: %s", e.Reason)
}

// ValidationError is a locally rejected address or bank detail.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// SessionCreationError means transaction/session creation failed after a
// quote was accepted. No PendingTransaction is left behind.
type SessionCreationError struct {
	Provider domain.ProviderID
	Cause    error
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("session creation failed (%s): %v", e.Provider, e.Cause)
}

func (e *SessionCreationError) Unwrap() error { return e.Cause }

// PollingTimeoutError means a transaction never reached a terminal status
// within the staleness bound. Non-fatal: polling stops and the user is told
// to check with the provider.
type PollingTimeoutError struct {
	Provider      domain.ProviderID
	TransactionID string
}

func (e *PollingTimeoutError) Error() string {
	return fmt.Sprintf("transaction %s (%s) did not complete in time; check with the provider", e.TransactionID, e.Provider)
}
