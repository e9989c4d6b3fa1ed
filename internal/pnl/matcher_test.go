package pnl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scripfolio/scripfolio/internal/charges"
	"github.com/scripfolio/scripfolio/internal/models"
)

func day(n int) time.Time {
	return time.Date(2024, time.January, n, 0, 0, 0, 0, time.UTC)
}

// eq builds an equity transaction whose stored amount is the plain
// notional, so the per-unit price equals the quoted price.
func eq(scrip string, side models.Side, d time.Time, qty, price int64) models.Transaction {
	q := decimal.NewFromInt(qty)
	p := decimal.NewFromInt(price)
	return models.Transaction{
		Scrip:        scrip,
		Category:     models.CategoryEquity,
		Side:         side,
		Date:         d,
		Quantity:     q,
		Price:        p,
		Exchange:     models.ExchangeNSE,
		StoredAmount: p.Mul(q),
	}
}

func freeMatcher() *Matcher {
	return New(charges.NewCalculator(charges.NewSchedule(nil)))
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestMatchEquity_FIFOOrder(t *testing.T) {
	rows := freeMatcher().MatchEquity([]models.Transaction{
		eq("INFY", models.SideBuy, day(1), 10, 100),
		eq("INFY", models.SideBuy, day(2), 10, 200),
		eq("INFY", models.SideSell, day(3), 15, 250),
	})

	// A1 is consumed fully before A2 is touched.
	require.Len(t, rows, 2)

	assertDecimal(t, "10", rows[0].Quantity)
	assert.True(t, rows[0].AcquisitionDate.Equal(day(1)))
	assertDecimal(t, "1500", rows[0].RealizedPL) // 10 * (250-100)

	assertDecimal(t, "5", rows[1].Quantity)
	assert.True(t, rows[1].AcquisitionDate.Equal(day(2)))
	assertDecimal(t, "250", rows[1].RealizedPL) // 5 * (250-200)
}

func TestMatchEquity_AcquisitionsConsumedAcrossDisposals(t *testing.T) {
	rows := freeMatcher().MatchEquity([]models.Transaction{
		eq("INFY", models.SideBuy, day(1), 10, 100),
		eq("INFY", models.SideBuy, day(2), 10, 200),
		eq("INFY", models.SideSell, day(3), 10, 250),
		eq("INFY", models.SideSell, day(4), 10, 300),
	})

	// The second disposal must match the second lot: the first lot is
	// already spent.
	require.Len(t, rows, 2)
	assert.True(t, rows[0].AcquisitionDate.Equal(day(1)))
	assert.True(t, rows[1].AcquisitionDate.Equal(day(2)))
	assertDecimal(t, "1000", rows[1].RealizedPL) // 10 * (300-200)
}

func TestMatchEquity_UsesStoredAmountNotQuotedPrice(t *testing.T) {
	// Stored amounts carry the charges as entered; the matcher must
	// trust them over price*quantity.
	buy := eq("INFY", models.SideBuy, day(1), 10, 100)
	buy.StoredAmount = decimal.NewFromInt(1020) // unit 102
	sell := eq("INFY", models.SideSell, day(2), 10, 150)
	sell.StoredAmount = decimal.NewFromInt(1480) // unit 148

	rows := freeMatcher().MatchEquity([]models.Transaction{buy, sell})

	require.Len(t, rows, 1)
	assertDecimal(t, "102", rows[0].AcquisitionPrice)
	assertDecimal(t, "148", rows[0].DisposalPrice)
	assertDecimal(t, "460", rows[0].RealizedPL) // 10 * (148-102)
}

func TestMatchEquity_IgnoresAcquisitionsAfterDisposalDate(t *testing.T) {
	rows := freeMatcher().MatchEquity([]models.Transaction{
		eq("INFY", models.SideBuy, day(5), 10, 100),
		eq("INFY", models.SideSell, day(2), 10, 150),
	})
	assert.Empty(t, rows)
}

func TestMatchEquity_NoAcquisitionsMeansNoRows(t *testing.T) {
	rows := freeMatcher().MatchEquity([]models.Transaction{
		eq("INFY", models.SideSell, day(2), 10, 150),
	})
	assert.Empty(t, rows)
}

func TestMatchEquity_TermClassification(t *testing.T) {
	acquired := time.Date(2022, time.April, 1, 0, 0, 0, 0, time.UTC)

	within := acquired.AddDate(0, 0, 365)
	beyond := acquired.AddDate(0, 0, 366)

	rows := freeMatcher().MatchEquity([]models.Transaction{
		{Scrip: "INFY", Category: models.CategoryEquity, Side: models.SideBuy, Date: acquired,
			Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(100), StoredAmount: decimal.NewFromInt(1000)},
		{Scrip: "INFY", Category: models.CategoryEquity, Side: models.SideSell, Date: within,
			Quantity: decimal.NewFromInt(4), Price: decimal.NewFromInt(150), StoredAmount: decimal.NewFromInt(600)},
		{Scrip: "INFY", Category: models.CategoryEquity, Side: models.SideSell, Date: beyond,
			Quantity: decimal.NewFromInt(4), Price: decimal.NewFromInt(150), StoredAmount: decimal.NewFromInt(600)},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, models.ShortTerm, rows[0].TermClass)
	assert.Equal(t, models.LongTerm, rows[1].TermClass)
}

func TestMatchEquity_BuybackAndCorporateActionsParticipate(t *testing.T) {
	bonus := eq("INFY", models.SideBonus, day(2), 10, 0)
	bonus.StoredAmount = decimal.Zero
	buyback := eq("INFY", models.SideBuyback, day(3), 15, 200)

	rows := freeMatcher().MatchEquity([]models.Transaction{
		eq("INFY", models.SideBuy, day(1), 10, 100),
		bonus,
		buyback,
	})

	require.Len(t, rows, 2)
	assert.Equal(t, models.SideBuyback, rows[0].DisposalSide)
	assert.Equal(t, models.SideBuy, rows[0].AcquisitionSide)
	assert.Equal(t, models.SideBonus, rows[1].AcquisitionSide)
	// Bonus shares have zero cost: the whole disposal value is gain.
	assertDecimal(t, "1000", rows[1].RealizedPL) // 5 * (200-0)
}

func TestMatchEquity_ZeroQuantityAcquisitionPricedAtZero(t *testing.T) {
	degenerate := eq("INFY", models.SideBuy, day(1), 10, 100)
	degenerate.Quantity = decimal.Zero

	rows := freeMatcher().MatchEquity([]models.Transaction{
		degenerate,
		eq("INFY", models.SideBuy, day(2), 10, 100),
		eq("INFY", models.SideSell, day(3), 10, 150),
	})

	// The degenerate record has nothing to contribute; the real lot
	// matches.
	require.Len(t, rows, 1)
	assert.True(t, rows[0].AcquisitionDate.Equal(day(2)))
}

func fno(scrip string, side models.Side, d time.Time, qty, price int64, expiry time.Time, kind models.InstrumentKind) models.Transaction {
	return models.Transaction{
		Scrip:          scrip,
		Category:       models.CategoryFnoEquity,
		Side:           side,
		Date:           d,
		Quantity:       decimal.NewFromInt(qty),
		Price:          decimal.NewFromInt(price),
		Exchange:       models.ExchangeNSE,
		ExpiryDate:     &expiry,
		InstrumentKind: kind,
	}
}

func TestMatchFno_NetsBuysAgainstSells(t *testing.T) {
	expiry := day(25)
	rows := freeMatcher().MatchFno([]models.Transaction{
		fno("NIFTY", models.SideBuy, day(1), 50, 100, expiry, models.InstrumentFuture),
		fno("NIFTY", models.SideBuy, day(2), 50, 200, expiry, models.InstrumentFuture),
		fno("NIFTY", models.SideSell, day(3), 75, 180, expiry, models.InstrumentFuture),
	})

	require.Len(t, rows, 1)
	assertDecimal(t, "75", rows[0].MatchedQty)
	assertDecimal(t, "25", rows[0].UnmatchedQty)
	assertDecimal(t, "150", rows[0].AvgBuyPrice)
	assertDecimal(t, "180", rows[0].AvgSellPrice)
	assertDecimal(t, "2250", rows[0].RealizedPL) // 75 * (180-150)
}

func TestMatchFno_GroupsByExpiryAndInstrument(t *testing.T) {
	nearExpiry := day(25)
	farExpiry := day(30)

	rows := freeMatcher().MatchFno([]models.Transaction{
		fno("NIFTY", models.SideBuy, day(1), 50, 100, nearExpiry, models.InstrumentFuture),
		fno("NIFTY", models.SideSell, day(2), 50, 120, nearExpiry, models.InstrumentFuture),
		fno("NIFTY", models.SideBuy, day(1), 50, 10, farExpiry, models.InstrumentCallOpt),
	})

	require.Len(t, rows, 2)

	// Near-expiry future closes out fully.
	assertDecimal(t, "50", rows[0].MatchedQty)
	assertDecimal(t, "1000", rows[0].RealizedPL)

	// The call option has no sells: no P&L, all volume unmatched.
	assert.Equal(t, models.InstrumentCallOpt, rows[1].InstrumentKind)
	assertDecimal(t, "0", rows[1].MatchedQty)
	assertDecimal(t, "50", rows[1].UnmatchedQty)
	assertDecimal(t, "0", rows[1].RealizedPL)
}

func TestMatchFno_RecomputesChargesOnBothLegs(t *testing.T) {
	// Flat 50 rupee brokerage per leg: 1 rupee per unit on 50 units,
	// added to buys and deducted from sells.
	rates := []models.FeeRate{
		{ChargeKind: models.ChargeBrokerage, Exchange: models.ExchangeNSE, Category: models.CategoryFnoEquity,
			InstrumentKind: models.InstrumentFuture, Side: models.SideBuy, Rate: decimal.NewFromInt(50)},
		{ChargeKind: models.ChargeBrokerage, Exchange: models.ExchangeNSE, Category: models.CategoryFnoEquity,
			InstrumentKind: models.InstrumentFuture, Side: models.SideSell, Rate: decimal.NewFromInt(50)},
	}
	m := New(charges.NewCalculator(charges.NewSchedule(rates)))

	expiry := day(25)
	rows := m.MatchFno([]models.Transaction{
		fno("NIFTY", models.SideBuy, day(1), 50, 100, expiry, models.InstrumentFuture),
		fno("NIFTY", models.SideSell, day(2), 50, 120, expiry, models.InstrumentFuture),
	})

	require.Len(t, rows, 1)
	assertDecimal(t, "101", rows[0].AvgBuyPrice)
	assertDecimal(t, "119", rows[0].AvgSellPrice)
	assertDecimal(t, "900", rows[0].RealizedPL) // 50 * (119-101)
}

func TestMatchFno_IgnoresNonTradeSides(t *testing.T) {
	expiry := day(25)
	bonus := fno("NIFTY", models.SideBonus, day(1), 50, 0, expiry, models.InstrumentFuture)

	rows := freeMatcher().MatchFno([]models.Transaction{bonus})
	assert.Empty(t, rows)
}
