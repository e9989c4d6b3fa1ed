package charges

import (
	"github.com/shopspring/decimal"

	"github.com/scripfolio/scripfolio/internal/models"
)

// rateKey addresses one fee-schedule row.
type rateKey struct {
	kind       models.ChargeKind
	exchange   models.Exchange
	category   models.Category
	instrument models.InstrumentKind
	side       models.Side
}

// Schedule is an immutable snapshot of the fee-rate table, loaded once
// per computation. Lookups for absent rows return zero: an unconfigured
// fee silently means "no charge".
type Schedule struct {
	rates map[rateKey]decimal.Decimal
}

// NewSchedule builds a Schedule from fee-rate rows. Later duplicates
// win, matching the table's upsert semantics.
func NewSchedule(rows []models.FeeRate) *Schedule {
	s := &Schedule{rates: make(map[rateKey]decimal.Decimal, len(rows))}
	for _, r := range rows {
		s.rates[rateKey{r.ChargeKind, r.Exchange, r.Category, r.InstrumentKind, r.Side}] = r.Rate
	}
	return s
}

// Rate returns the configured rate for the key, or zero when no row
// matches. It never fails.
func (s *Schedule) Rate(kind models.ChargeKind, exchange models.Exchange, category models.Category, instrument models.InstrumentKind, side models.Side) decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	if rate, ok := s.rates[rateKey{kind, exchange, category, instrument, side}]; ok {
		return rate
	}
	return decimal.Zero
}
