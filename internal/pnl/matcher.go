package pnl

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/scripfolio/scripfolio/internal/charges"
	"github.com/scripfolio/scripfolio/internal/models"
)

// shortTermDays is the holding-period boundary: up to a year counts as
// short term.
const shortTermDays = 365

// Matcher replays disposals against acquisitions to produce realized
// P&L reports. It keeps no state between calls; each report is built
// from the full transaction stream.
//
// Equity rows price both legs from the stored amount persisted at entry
// time. F&O rows recompute charges from the current fee schedule
// instead. The two derivations are deliberately kept independent.
type Matcher struct {
	calc *charges.Calculator
}

// New returns a Matcher that prices F&O legs through calc.
func New(calc *charges.Calculator) *Matcher {
	return &Matcher{calc: calc}
}

// storedUnitPrice is the fee-inclusive per-unit price as entered:
// stored amount over quantity, zero when the quantity is degenerate.
func storedUnitPrice(tx models.Transaction) decimal.Decimal {
	if !tx.Quantity.IsPositive() {
		return decimal.Zero
	}
	return tx.StoredAmount.Div(tx.Quantity)
}

// acquisitionLeg tracks how much of an acquisition transaction is
// still unmatched.
type acquisitionLeg struct {
	tx        models.Transaction
	remaining decimal.Decimal
}

// MatchEquity matches each SELL/BUYBACK against the acquisitions of
// the same scrip dated on or before it, oldest first, consuming each
// acquisition at most once across the whole report. A disposal with
// nothing to match against is simply omitted.
func (m *Matcher) MatchEquity(transactions []models.Transaction) []models.MatchedDisposal {
	byScrip := make(map[string][]models.Transaction)
	var scrips []string
	for _, tx := range transactions {
		if _, ok := byScrip[tx.Scrip]; !ok {
			scrips = append(scrips, tx.Scrip)
		}
		byScrip[tx.Scrip] = append(byScrip[tx.Scrip], tx)
	}
	sort.Strings(scrips)

	var rows []models.MatchedDisposal
	for _, scrip := range scrips {
		rows = append(rows, m.matchScrip(byScrip[scrip])...)
	}
	return rows
}

func (m *Matcher) matchScrip(transactions []models.Transaction) []models.MatchedDisposal {
	var acquisitions []*acquisitionLeg
	var disposals []models.Transaction
	for _, tx := range transactions {
		switch {
		case tx.Side.IsDisposal():
			disposals = append(disposals, tx)
		case tx.Side.IsAcquisition() || tx.Side == models.SideBonus:
			acquisitions = append(acquisitions, &acquisitionLeg{tx: tx, remaining: tx.Quantity})
		}
	}
	sort.SliceStable(acquisitions, func(i, j int) bool {
		return acquisitions[i].tx.Date.Before(acquisitions[j].tx.Date)
	})
	sort.SliceStable(disposals, func(i, j int) bool {
		return disposals[i].Date.Before(disposals[j].Date)
	})

	var rows []models.MatchedDisposal
	for _, disposal := range disposals {
		remaining := disposal.Quantity
		disposalPrice := storedUnitPrice(disposal)

		for _, leg := range acquisitions {
			if !remaining.IsPositive() {
				break
			}
			if leg.tx.Date.After(disposal.Date) || !leg.remaining.IsPositive() {
				continue
			}

			matched := decimal.Min(remaining, leg.remaining)
			acquisitionPrice := storedUnitPrice(leg.tx)

			rows = append(rows, models.MatchedDisposal{
				Scrip:            disposal.Scrip,
				Quantity:         matched,
				DisposalDate:     disposal.Date,
				DisposalPrice:    disposalPrice,
				DisposalSide:     disposal.Side,
				AcquisitionDate:  leg.tx.Date,
				AcquisitionPrice: acquisitionPrice,
				AcquisitionSide:  leg.tx.Side,
				RealizedPL:       matched.Mul(disposalPrice.Sub(acquisitionPrice)),
				TermClass:        termClass(leg.tx.Date, disposal.Date),
			})

			leg.remaining = leg.remaining.Sub(matched)
			remaining = remaining.Sub(matched)
		}
	}
	return rows
}

func termClass(acquired, disposed time.Time) models.TermClass {
	if int(disposed.Sub(acquired).Hours()/24) <= shortTermDays {
		return models.ShortTerm
	}
	return models.LongTerm
}

// fnoKey groups derivative legs into one contract.
type fnoKey struct {
	scrip      string
	expiry     string
	instrument models.InstrumentKind
	category   models.Category
}

type fnoGroup struct {
	expiry       *time.Time
	buyQty       decimal.Decimal
	buyNotional  decimal.Decimal
	sellQty      decimal.Decimal
	sellNotional decimal.Decimal
}

// MatchFno nets each contract group (scrip, expiry, instrument,
// category): total buys against total sells at volume-weighted average
// prices, both legs adjusted by freshly computed charges. No lot-level
// matching happens inside a group; unmatched volume is reported
// without P&L.
func (m *Matcher) MatchFno(transactions []models.Transaction) []models.FnoMatch {
	groups := make(map[fnoKey]*fnoGroup)
	var order []fnoKey

	for _, tx := range transactions {
		if tx.Side != models.SideBuy && tx.Side != models.SideSell {
			continue
		}
		if !tx.Quantity.IsPositive() {
			continue
		}

		key := fnoKey{scrip: tx.Scrip, instrument: tx.InstrumentKind, category: tx.Category}
		if tx.ExpiryDate != nil {
			key.expiry = tx.ExpiryDate.Format("2006-01-02")
		}
		g, ok := groups[key]
		if !ok {
			g = &fnoGroup{expiry: tx.ExpiryDate}
			groups[key] = g
			order = append(order, key)
		}

		price := m.effectivePrice(tx)
		if tx.Side == models.SideBuy {
			g.buyQty = g.buyQty.Add(tx.Quantity)
			g.buyNotional = g.buyNotional.Add(price.Mul(tx.Quantity))
		} else {
			g.sellQty = g.sellQty.Add(tx.Quantity)
			g.sellNotional = g.sellNotional.Add(price.Mul(tx.Quantity))
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].scrip != order[j].scrip {
			return order[i].scrip < order[j].scrip
		}
		if order[i].expiry != order[j].expiry {
			return order[i].expiry < order[j].expiry
		}
		return order[i].instrument < order[j].instrument
	})

	var rows []models.FnoMatch
	for _, key := range order {
		g := groups[key]

		avgBuy := decimal.Zero
		if g.buyQty.IsPositive() {
			avgBuy = g.buyNotional.Div(g.buyQty)
		}
		avgSell := decimal.Zero
		if g.sellQty.IsPositive() {
			avgSell = g.sellNotional.Div(g.sellQty)
		}

		matched := decimal.Min(g.buyQty, g.sellQty)
		realized := decimal.Zero
		if matched.IsPositive() {
			realized = matched.Mul(avgSell.Sub(avgBuy))
		}

		rows = append(rows, models.FnoMatch{
			Scrip:          key.scrip,
			Category:       key.category,
			ExpiryDate:     g.expiry,
			InstrumentKind: key.instrument,
			MatchedQty:     matched,
			UnmatchedQty:   g.buyQty.Sub(g.sellQty).Abs(),
			AvgBuyPrice:    avgBuy,
			AvgSellPrice:   avgSell,
			RealizedPL:     realized,
		})
	}
	return rows
}

// effectivePrice folds freshly computed charges into a derivative
// leg's price: added on buys, deducted on sells.
func (m *Matcher) effectivePrice(tx models.Transaction) decimal.Decimal {
	notional := tx.Price.Mul(tx.Quantity)
	_, total := m.calc.Calculate(notional, tx.Side, tx.Exchange, tx.Category, tx.InstrumentKind)
	perUnit := charges.PerUnit(total, tx.Quantity)
	if tx.Side == models.SideSell {
		return tx.Price.Sub(perUnit)
	}
	return tx.Price.Add(perUnit)
}
