package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteRequest is the canonical rate request fanned out to providers.
// Adapters translate it into their own wire formats.
type QuoteRequest struct {
	Direction           Direction
	SourceCurrency      AssetCode
	DestinationCurrency AssetCode
	Amount              decimal.Decimal
	Country             string
}

type Fees struct {
	Total       decimal.Decimal
	Network     *decimal.Decimal
	Transaction *decimal.Decimal
	Partner     *decimal.Decimal
}

// Quote is one provider's priced offer for a conversion at a point in time.
// It is immutable once produced; a re-quote yields a new Quote.
type Quote struct {
	Provider            ProviderID
	Direction           Direction
	SourceAmount        decimal.Decimal
	DestinationAmount   decimal.Decimal
	SourceCurrency      AssetCode
	DestinationCurrency AssetCode
	Rate                decimal.Decimal
	Fees                Fees
	MinAmount           *decimal.Decimal
	MaxAmount           *decimal.Decimal
	Logo                string
	CreatedAt           time.Time
}

type PaymentMethod struct {
	ID            string
	Type          string
	Name          string
	FeePercentage *decimal.Decimal
}

// BestRate picks the quote with the highest destination amount. Used as the
// default selection for swaps, never as a sort order of the result set.
func BestRate(quotes []Quote) (Quote, bool) {
	if len(quotes) == 0 {
		return Quote{}, false
	}
	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.DestinationAmount.GreaterThan(best.DestinationAmount) {
			best = q
		}
	}
	return best, true
}
