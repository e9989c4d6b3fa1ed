package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// maxDisplayQuantity is the largest magnitude handed to display or
// float conversions: 2^53, the biggest integer a float64 (and JSON
// consumers) can hold exactly. Ledger arithmetic itself is decimal and
// unclamped.
var maxDisplayQuantity = decimal.NewFromInt(1 << 53)

// ClampDisplay bounds d to +/-2^53 for display-safe conversion.
func ClampDisplay(d decimal.Decimal) decimal.Decimal {
	if d.Abs().GreaterThan(maxDisplayQuantity) {
		if d.IsNegative() {
			return maxDisplayQuantity.Neg()
		}
		return maxDisplayQuantity
	}
	return d
}

// PortfolioItem is one open position. Negative quantity is a net
// short. Recomputed in full on every query, never stored.
type PortfolioItem struct {
	Scrip        string          `json:"scrip"`
	Category     Category        `json:"category"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	TotalValue   decimal.Decimal `json:"total_value"`
}

// TermClass classifies a matched disposal by holding period.
type TermClass string

const (
	ShortTerm TermClass = "SHORT_TERM"
	LongTerm  TermClass = "LONG_TERM"
)

// MatchedDisposal is one equity P&L row: a disposal quantity matched
// FIFO against a single acquisition transaction.
type MatchedDisposal struct {
	Scrip            string          `json:"scrip"`
	Quantity         decimal.Decimal `json:"quantity"`
	DisposalDate     time.Time       `json:"disposal_date"`
	DisposalPrice    decimal.Decimal `json:"disposal_price"`
	DisposalSide     Side            `json:"disposal_side"`
	AcquisitionDate  time.Time       `json:"acquisition_date"`
	AcquisitionPrice decimal.Decimal `json:"acquisition_price"`
	AcquisitionSide  Side            `json:"acquisition_side"`
	RealizedPL       decimal.Decimal `json:"realized_pl"`
	TermClass        TermClass       `json:"term_class"`
}

// FnoMatch is one F&O P&L row: the netted buy and sell volume of a
// contract group, matched at volume-weighted average prices.
type FnoMatch struct {
	Scrip          string          `json:"scrip"`
	Category       Category        `json:"category"`
	ExpiryDate     *time.Time      `json:"expiry_date,omitempty"`
	InstrumentKind InstrumentKind  `json:"instrument_kind"`
	MatchedQty     decimal.Decimal `json:"matched_quantity"`
	UnmatchedQty   decimal.Decimal `json:"unmatched_quantity"`
	AvgBuyPrice    decimal.Decimal `json:"avg_buy_price"`
	AvgSellPrice   decimal.Decimal `json:"avg_sell_price"`
	RealizedPL     decimal.Decimal `json:"realized_pl"`
}
