package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	StatusPending    TransactionStatus = "PENDING"
	StatusProcessing TransactionStatus = "PROCESSING"
	StatusCompleted  TransactionStatus = "COMPLETED"
	StatusFailed     TransactionStatus = "FAILED"
	StatusTimeout    TransactionStatus = "TIMEOUT"
	StatusCancelled  TransactionStatus = "CANCELLED"
)

// Terminal reports whether no further transition can occur.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimeout, StatusCancelled:
		return true
	}
	return false
}

// SwapPhase is the intermediate progress model for swap flows. Purely for
// display; the canonical lifecycle is TransactionStatus.
type SwapPhase string

const (
	PhaseWaiting    SwapPhase = "waiting"
	PhaseConfirming SwapPhase = "confirming"
	PhaseExchanging SwapPhase = "exchanging"
	PhaseSending    SwapPhase = "sending"
)

// TransactionState is a provider's view of a transaction mapped to the
// canonical status set plus the optional swap phase.
type TransactionState struct {
	Status TransactionStatus
	Phase  SwapPhase
}

// PendingTransaction is the one record that survives process restarts. At
// most one is tracked per (session, direction); it exists from the moment a
// provider session is created until a terminal status or the staleness
// bound, whichever comes first.
type PendingTransaction struct {
	ID                  string
	Provider            ProviderID
	Direction           Direction
	Amount              decimal.Decimal
	SourceCurrency      AssetCode
	DestinationCurrency AssetCode
	Status              TransactionStatus
	Phase               SwapPhase
	SessionURL          string
	DepositAddress      string
	StartedAt           time.Time
}

// Stale reports whether the record exceeded the staleness bound and must
// not be resumed.
func (p PendingTransaction) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(p.StartedAt) > maxAge
}

// CheckoutSession is what a successful transaction creation hands back: a
// provider-hosted URL to present to the user, or a deposit address and
// amount for them to send funds to.
type CheckoutSession struct {
	Provider       ProviderID
	TransactionID  string
	SessionURL     string
	DepositAddress string
	DepositAmount  decimal.Decimal
	DepositExtraID string
}

// TransactionRecord is an archived terminal transaction.
type TransactionRecord struct {
	SessionID           string
	TransactionID       string
	Provider            ProviderID
	Direction           Direction
	Amount              decimal.Decimal
	SourceCurrency      AssetCode
	DestinationCurrency AssetCode
	FinalStatus         TransactionStatus
	StartedAt           time.Time
	FinishedAt          time.Time
}
