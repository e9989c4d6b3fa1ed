package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/scripfolio/scripfolio/internal/charges"
	"github.com/scripfolio/scripfolio/internal/models"
)

// positionKey partitions the book: the same scrip holds independent
// positions per category.
type positionKey struct {
	scrip    string
	category models.Category
}

// purchaseLot is one open acquisition, consumed FIFO by disposals.
// It exists only for the duration of a single replay.
type purchaseLot struct {
	date      time.Time
	quantity  decimal.Decimal
	unitPrice decimal.Decimal
	source    models.Side
}

// book is the running state for one position key: open lots ordered
// oldest-first, and a short counter that is always <= 0. At any point
// sum(lot quantities) + short equals the net signed position.
type book struct {
	lots  []purchaseLot
	short decimal.Decimal
}

func (b *book) openQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, l := range b.lots {
		total = total.Add(l.quantity)
	}
	return total
}

// Ledger replays an account's transaction stream and derives the open
// positions. State is local to one Replay call; every report is
// recomputed from scratch.
type Ledger struct {
	calc  *charges.Calculator
	books map[positionKey]*book
}

// New returns a Ledger that prices acquisitions through calc.
func New(calc *charges.Calculator) *Ledger {
	return &Ledger{
		calc:  calc,
		books: make(map[positionKey]*book),
	}
}

// Replay applies the transactions in ascending date order (ties broken
// by scrip name, then input order) and returns every position with a
// nonzero net quantity.
func (l *Ledger) Replay(transactions []models.Transaction) []models.PortfolioItem {
	ordered := make([]models.Transaction, len(transactions))
	copy(ordered, transactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].Scrip < ordered[j].Scrip
	})

	for _, tx := range ordered {
		l.apply(tx)
	}
	return l.positions()
}

// apply dispatches one transaction to its transition. Each of the
// eight sides has exactly one handler.
func (l *Ledger) apply(tx models.Transaction) {
	switch tx.Side {
	case models.SideBuy, models.SideIPO, models.SideRight, models.SideDemerger:
		l.applyAcquisition(tx)
	case models.SideBonus:
		l.applyBonus(tx)
	case models.SideSell, models.SideBuyback:
		l.applyDisposal(tx)
	case models.SideMergerAcquisition:
		l.applyMerger(tx)
	}
}

func (l *Ledger) bookFor(scrip string, category models.Category) *book {
	key := positionKey{scrip, category}
	b, ok := l.books[key]
	if !ok {
		b = &book{short: decimal.Zero}
		l.books[key] = b
	}
	return b
}

// effectivePrice is the per-unit price with charges folded in. The
// charge side may differ from the transaction side (mergers price
// buy-style). Degenerate quantities leave the price uncharged.
func (l *Ledger) effectivePrice(tx models.Transaction, chargeSide models.Side) decimal.Decimal {
	notional := tx.Price.Mul(tx.Quantity)
	_, total := l.calc.Calculate(notional, chargeSide, tx.Exchange, tx.Category, tx.InstrumentKind)
	return tx.Price.Add(charges.PerUnit(total, tx.Quantity))
}

// applyAcquisition covers any open short first; the remainder opens a
// new lot at the charge-adjusted price.
func (l *Ledger) applyAcquisition(tx models.Transaction) {
	if !tx.Quantity.IsPositive() {
		return
	}
	b := l.bookFor(tx.Scrip, tx.Category)

	remaining := tx.Quantity
	if b.short.IsNegative() {
		cover := decimal.Min(remaining, b.short.Neg())
		b.short = b.short.Add(cover)
		remaining = remaining.Sub(cover)
	}
	if remaining.IsPositive() {
		b.lots = append(b.lots, purchaseLot{
			date:      tx.Date,
			quantity:  remaining,
			unitPrice: l.effectivePrice(tx, tx.Side),
			source:    tx.Side,
		})
	}
}

// applyBonus distributes free shares proportionally across the open
// lots, truncating each lot's allocation to a whole share. The lot's
// cost is unchanged, so its unit price dilutes. Truncation can drop up
// to len(lots)-1 shares; that is the established behavior, kept as-is.
// With no open lots the bonus opens a zero-cost lot.
func (l *Ledger) applyBonus(tx models.Transaction) {
	if !tx.Quantity.IsPositive() {
		return
	}
	b := l.bookFor(tx.Scrip, tx.Category)

	open := b.openQuantity()
	if len(b.lots) == 0 || !open.IsPositive() {
		b.lots = append(b.lots, purchaseLot{
			date:      tx.Date,
			quantity:  tx.Quantity,
			unitPrice: decimal.Zero,
			source:    tx.Side,
		})
		return
	}

	for i := range b.lots {
		share := tx.Quantity.Mul(b.lots[i].quantity).Div(open).Floor()
		if !share.IsPositive() {
			continue
		}
		cost := b.lots[i].unitPrice.Mul(b.lots[i].quantity)
		b.lots[i].quantity = b.lots[i].quantity.Add(share)
		b.lots[i].unitPrice = cost.Div(b.lots[i].quantity)
	}
}

// applyDisposal consumes open lots front-first; quantity beyond the
// open total deepens the short counter.
func (l *Ledger) applyDisposal(tx models.Transaction) {
	if !tx.Quantity.IsPositive() {
		return
	}
	b := l.bookFor(tx.Scrip, tx.Category)

	remaining := tx.Quantity
	for remaining.IsPositive() && len(b.lots) > 0 {
		front := &b.lots[0]
		if front.quantity.GreaterThan(remaining) {
			front.quantity = front.quantity.Sub(remaining)
			remaining = decimal.Zero
			break
		}
		remaining = remaining.Sub(front.quantity)
		b.lots = b.lots[1:]
	}
	if remaining.IsPositive() {
		b.short = b.short.Sub(remaining)
	}
}

// applyMerger retires the old scrip's position in the same category
// entirely (lots and short both reset) and books the new scrip as a
// buy-priced lot.
func (l *Ledger) applyMerger(tx models.Transaction) {
	if tx.OldScrip != "" {
		delete(l.books, positionKey{tx.OldScrip, tx.Category})
	}
	if !tx.Quantity.IsPositive() {
		return
	}
	b := l.bookFor(tx.Scrip, tx.Category)
	b.lots = append(b.lots, purchaseLot{
		date:      tx.Date,
		quantity:  tx.Quantity,
		unitPrice: l.effectivePrice(tx, models.SideBuy),
		source:    tx.Side,
	})
}

// positions emits one PortfolioItem per key with a nonzero net
// quantity, sorted by scrip then category. Quantities and values are
// clamped only at this display boundary.
func (l *Ledger) positions() []models.PortfolioItem {
	items := make([]models.PortfolioItem, 0, len(l.books))
	for key, b := range l.books {
		openQty := b.openQuantity()
		netQty := openQty.Add(b.short)
		if netQty.IsZero() {
			continue
		}

		avg := decimal.Zero
		if openQty.IsPositive() {
			cost := decimal.Zero
			for _, lot := range b.lots {
				cost = cost.Add(lot.quantity.Mul(lot.unitPrice))
			}
			avg = cost.Div(openQty)
		}

		items = append(items, models.PortfolioItem{
			Scrip:        key.scrip,
			Category:     key.category,
			Quantity:     models.ClampDisplay(netQty),
			AveragePrice: avg,
			TotalValue:   models.ClampDisplay(netQty.Mul(avg)),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Scrip != items[j].Scrip {
			return items[i].Scrip < items[j].Scrip
		}
		return items[i].Category < items[j].Category
	})
	return items
}
