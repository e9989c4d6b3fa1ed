package charges

import (
	"github.com/shopspring/decimal"

	"github.com/scripfolio/scripfolio/internal/models"
)

// dpChargesFloor is the minimum DP charge collected on a disposal once
// the proportional charge is positive at all.
var dpChargesFloor = decimal.NewFromInt(20)

var hundred = decimal.NewFromInt(100)

// Breakdown itemizes the fee components of one transaction.
type Breakdown map[models.ChargeKind]decimal.Decimal

// Calculator computes the regulatory and brokerage charges on a
// transaction from a fee-schedule snapshot. Proportional rates are
// percentages of the notional; brokerage is a flat amount.
type Calculator struct {
	sched *Schedule
}

// NewCalculator returns a Calculator over the given schedule.
func NewCalculator(sched *Schedule) *Calculator {
	return &Calculator{sched: sched}
}

// Calculate returns the itemized charges and their total for a
// transaction of the given notional amount. Corporate-action sides
// (IPO, BONUS, RIGHT, MERGER_ACQUISITION) carry no charges. A
// non-positive notional yields zero charges so degenerate inputs fall
// back to the uncharged price.
func (c *Calculator) Calculate(notional decimal.Decimal, side models.Side, exchange models.Exchange, category models.Category, instrument models.InstrumentKind) (Breakdown, decimal.Decimal) {
	breakdown := Breakdown{}

	switch side {
	case models.SideIPO, models.SideBonus, models.SideRight, models.SideMergerAcquisition:
		return breakdown, decimal.Zero
	}
	if !notional.IsPositive() {
		return breakdown, decimal.Zero
	}

	// Rate rows are keyed on BUY/SELL: demergers price like buys,
	// buybacks like sells.
	rateSide := models.SideBuy
	if side.IsDisposal() {
		rateSide = models.SideSell
	}

	rate := func(kind models.ChargeKind) decimal.Decimal {
		return c.sched.Rate(kind, exchange, category, instrument, rateSide)
	}
	proportional := func(kind models.ChargeKind) decimal.Decimal {
		return notional.Mul(rate(kind)).Div(hundred)
	}

	brokerage := rate(models.ChargeBrokerage)
	exnTxn := proportional(models.ChargeExnTxn)
	sebi := proportional(models.ChargeSEBI)

	breakdown[models.ChargeBrokerage] = brokerage
	breakdown[models.ChargeExnTxn] = exnTxn
	breakdown[models.ChargeSEBI] = sebi

	// Commodity derivatives are taxed under CTT, everything else STT.
	txnTaxKind := models.ChargeSTT
	if category.IsCommodity() {
		txnTaxKind = models.ChargeCTT
	}
	breakdown[txnTaxKind] = proportional(txnTaxKind)

	// Stamp duty is collected on the buy side only.
	if !side.IsDisposal() {
		breakdown[models.ChargeStamp] = proportional(models.ChargeStamp)
	} else {
		breakdown[models.ChargeStamp] = decimal.Zero
	}

	// IPFT is an NSE levy.
	if exchange == models.ExchangeNSE {
		breakdown[models.ChargeIPFT] = proportional(models.ChargeIPFT)
	} else {
		breakdown[models.ChargeIPFT] = decimal.Zero
	}

	breakdown[models.ChargeGST] = brokerage.Add(exnTxn).Add(sebi).
		Mul(rate(models.ChargeGST)).Div(hundred)

	breakdown[models.ChargeDP] = c.dpCharges(notional, side, exchange, category, instrument)

	total := decimal.Zero
	for _, v := range breakdown {
		total = total.Add(v)
	}
	return breakdown, total
}

// dpCharges applies the depository charge: zero on buys, floored at
// dpChargesFloor on sells and buybacks, raw proportional on demergers.
func (c *Calculator) dpCharges(notional decimal.Decimal, side models.Side, exchange models.Exchange, category models.Category, instrument models.InstrumentKind) decimal.Decimal {
	switch side {
	case models.SideSell, models.SideBuyback:
		raw := notional.Mul(c.sched.Rate(models.ChargeDP, exchange, category, instrument, models.SideSell)).Div(hundred)
		if raw.IsPositive() && raw.LessThan(dpChargesFloor) {
			return dpChargesFloor
		}
		return raw
	case models.SideDemerger:
		return notional.Mul(c.sched.Rate(models.ChargeDP, exchange, category, instrument, models.SideBuy)).Div(hundred)
	default:
		return decimal.Zero
	}
}

// PerUnit converts a charge total into a per-share adjustment. A zero
// or negative quantity yields zero so callers fall back to the
// uncharged price instead of dividing by zero.
func PerUnit(total, quantity decimal.Decimal) decimal.Decimal {
	if !quantity.IsPositive() {
		return decimal.Zero
	}
	return total.Div(quantity)
}
