package application

import (
	"sync"

	"rampcore/internal/domain"
)

// SelectionStore holds the quote currently in effect across aggregation
// cycles. It is the single mutation path for provider selection; flows
// receive it by injection rather than sharing globals.
type SelectionStore struct {
	mu       sync.Mutex
	selected *domain.Quote
	method   *domain.PaymentMethod

	// onProviderChange fires when the selected provider differs from the
	// previous one; the payment method list must be refetched then.
	onProviderChange func(domain.Quote)
}

func NewSelectionStore() *SelectionStore { return &SelectionStore{} }

func (s *SelectionStore) OnProviderChange(fn func(domain.Quote)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onProviderChange = fn
}

// Reconcile applies a new cycle's result set. If the currently selected
// provider is still present, the selection is replaced with that provider's
// fresh quote; otherwise the default rule applies: first quote for BUY/SELL,
// best rate for SWAP. An empty result set clears the selection.
func (s *SelectionStore) Reconcile(quotes []domain.Quote, dir domain.Direction) (domain.Quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(quotes) == 0 {
		s.selected = nil
		s.method = nil
		return domain.Quote{}, false
	}

	if s.selected != nil {
		for _, q := range quotes {
			if q.Provider == s.selected.Provider {
				fresh := q
				s.selected = &fresh
				return fresh, true
			}
		}
	}
	return s.applyDefault(quotes, dir), true
}

func (s *SelectionStore) applyDefault(quotes []domain.Quote, dir domain.Direction) domain.Quote {
	pick := quotes[0]
	if dir == domain.DirectionSwap {
		if best, ok := domain.BestRate(quotes); ok {
			pick = best
		}
	}
	s.set(pick)
	return pick
}

// Select is an explicit user choice from the current result set.
func (s *SelectionStore) Select(q domain.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(q)
}

// set replaces the selection, clearing the payment method and firing the
// refetch trigger when the provider changed.
func (s *SelectionStore) set(q domain.Quote) {
	changed := s.selected == nil || s.selected.Provider != q.Provider
	fresh := q
	s.selected = &fresh
	if changed {
		s.method = nil
		if s.onProviderChange != nil {
			s.onProviderChange(fresh)
		}
	}
}

func (s *SelectionStore) Selected() (domain.Quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return domain.Quote{}, false
	}
	return *s.selected, true
}

func (s *SelectionStore) SetPaymentMethod(m domain.PaymentMethod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.method = &m
}

func (s *SelectionStore) PaymentMethod() (domain.PaymentMethod, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.method == nil {
		return domain.PaymentMethod{}, false
	}
	return *s.method, true
}

func (s *SelectionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	s.method = nil
}
