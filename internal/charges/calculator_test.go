package charges

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scripfolio/scripfolio/internal/models"
)

func rate(kind models.ChargeKind, exchange models.Exchange, category models.Category, instrument models.InstrumentKind, side models.Side, value string) models.FeeRate {
	return models.FeeRate{
		ChargeKind:     kind,
		Exchange:       exchange,
		Category:       category,
		InstrumentKind: instrument,
		Side:           side,
		Rate:           decimal.RequireFromString(value),
	}
}

// nseEquityRates is a small but realistic schedule used across the
// calculator tests.
func nseEquityRates() []models.FeeRate {
	return []models.FeeRate{
		rate(models.ChargeBrokerage, models.ExchangeNSE, models.CategoryEquity, "", models.SideBuy, "20"),
		rate(models.ChargeBrokerage, models.ExchangeNSE, models.CategoryEquity, "", models.SideSell, "20"),
		rate(models.ChargeExnTxn, models.ExchangeNSE, models.CategoryEquity, "", models.SideBuy, "0.003"),
		rate(models.ChargeExnTxn, models.ExchangeNSE, models.CategoryEquity, "", models.SideSell, "0.003"),
		rate(models.ChargeSTT, models.ExchangeNSE, models.CategoryEquity, "", models.SideBuy, "0.1"),
		rate(models.ChargeSTT, models.ExchangeNSE, models.CategoryEquity, "", models.SideSell, "0.1"),
		rate(models.ChargeStamp, models.ExchangeNSE, models.CategoryEquity, "", models.SideBuy, "0.015"),
		rate(models.ChargeStamp, models.ExchangeNSE, models.CategoryEquity, "", models.SideSell, "0.015"),
		rate(models.ChargeSEBI, models.ExchangeNSE, models.CategoryEquity, "", models.SideBuy, "0.0001"),
		rate(models.ChargeSEBI, models.ExchangeNSE, models.CategoryEquity, "", models.SideSell, "0.0001"),
		rate(models.ChargeIPFT, models.ExchangeNSE, models.CategoryEquity, "", models.SideBuy, "0.0001"),
		rate(models.ChargeIPFT, models.ExchangeNSE, models.CategoryEquity, "", models.SideSell, "0.0001"),
		rate(models.ChargeGST, models.ExchangeNSE, models.CategoryEquity, "", models.SideBuy, "18"),
		rate(models.ChargeGST, models.ExchangeNSE, models.CategoryEquity, "", models.SideSell, "18"),
		rate(models.ChargeDP, models.ExchangeNSE, models.CategoryEquity, "", models.SideBuy, "0.04"),
		rate(models.ChargeDP, models.ExchangeNSE, models.CategoryEquity, "", models.SideSell, "0.04"),
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestCalculate_BuySellSymmetry(t *testing.T) {
	calc := NewCalculator(NewSchedule(nseEquityRates()))
	notional := decimal.NewFromInt(100000)

	buy, _ := calc.Calculate(notional, models.SideBuy, models.ExchangeNSE, models.CategoryEquity, "")
	sell, _ := calc.Calculate(notional, models.SideSell, models.ExchangeNSE, models.CategoryEquity, "")

	// DP charges: zero on buy, proportional-with-floor on sell.
	assertDecimal(t, "0", buy[models.ChargeDP])
	assertDecimal(t, "40", sell[models.ChargeDP]) // 0.04% of 100000

	// Stamp duty: buy only.
	assertDecimal(t, "15", buy[models.ChargeStamp])
	assertDecimal(t, "0", sell[models.ChargeStamp])

	// STT applies on both sides.
	assertDecimal(t, "100", buy[models.ChargeSTT])
	assertDecimal(t, "100", sell[models.ChargeSTT])
}

func TestCalculate_DPChargesFloor(t *testing.T) {
	calc := NewCalculator(NewSchedule(nseEquityRates()))

	// 0.04% of 10000 is 4, below the 20 rupee floor.
	sell, _ := calc.Calculate(decimal.NewFromInt(10000), models.SideSell, models.ExchangeNSE, models.CategoryEquity, "")
	assertDecimal(t, "20", sell[models.ChargeDP])

	// Buyback is charged sell-style, including the floor.
	buyback, _ := calc.Calculate(decimal.NewFromInt(10000), models.SideBuyback, models.ExchangeNSE, models.CategoryEquity, "")
	assertDecimal(t, "20", buyback[models.ChargeDP])
}

func TestCalculate_DPChargesZeroRateStaysZero(t *testing.T) {
	// Without a DP row the raw charge is zero and the floor must not
	// kick in.
	calc := NewCalculator(NewSchedule(nil))
	sell, total := calc.Calculate(decimal.NewFromInt(10000), models.SideSell, models.ExchangeNSE, models.CategoryEquity, "")
	assertDecimal(t, "0", sell[models.ChargeDP])
	assertDecimal(t, "0", total)
}

func TestCalculate_GSTCompoundsOnServiceCharges(t *testing.T) {
	calc := NewCalculator(NewSchedule(nseEquityRates()))
	notional := decimal.NewFromInt(100000)

	buy, _ := calc.Calculate(notional, models.SideBuy, models.ExchangeNSE, models.CategoryEquity, "")

	// brokerage 20 + exn txn 3 + sebi 0.1 = 23.1, GST at 18%.
	assertDecimal(t, "20", buy[models.ChargeBrokerage])
	assertDecimal(t, "3", buy[models.ChargeExnTxn])
	assertDecimal(t, "0.1", buy[models.ChargeSEBI])
	assertDecimal(t, "4.158", buy[models.ChargeGST])
}

func TestCalculate_ZeroChargeSides(t *testing.T) {
	calc := NewCalculator(NewSchedule(nseEquityRates()))
	notional := decimal.NewFromInt(100000)

	for _, side := range []models.Side{models.SideIPO, models.SideBonus, models.SideRight, models.SideMergerAcquisition} {
		breakdown, total := calc.Calculate(notional, side, models.ExchangeNSE, models.CategoryEquity, "")
		assert.Empty(t, breakdown, "side %s", side)
		assertDecimal(t, "0", total)
	}
}

func TestCalculate_DemergerChargedBuyStyleWithDP(t *testing.T) {
	calc := NewCalculator(NewSchedule(nseEquityRates()))
	notional := decimal.NewFromInt(10000)

	demerger, _ := calc.Calculate(notional, models.SideDemerger, models.ExchangeNSE, models.CategoryEquity, "")

	// Stamp duty applies like a buy.
	assertDecimal(t, "1.5", demerger[models.ChargeStamp])
	// DP applies, but with the buy-style formula: no floor, so the raw
	// 4 rupees stands.
	assertDecimal(t, "4", demerger[models.ChargeDP])
}

func TestCalculate_CommodityUsesCTT(t *testing.T) {
	rates := []models.FeeRate{
		rate(models.ChargeCTT, models.ExchangeMCX, models.CategoryFnoCommodity, models.InstrumentFuture, models.SideSell, "0.01"),
		rate(models.ChargeSTT, models.ExchangeMCX, models.CategoryFnoCommodity, models.InstrumentFuture, models.SideSell, "0.1"),
	}
	calc := NewCalculator(NewSchedule(rates))

	breakdown, _ := calc.Calculate(decimal.NewFromInt(100000), models.SideSell, models.ExchangeMCX, models.CategoryFnoCommodity, models.InstrumentFuture)

	assertDecimal(t, "10", breakdown[models.ChargeCTT])
	_, hasSTT := breakdown[models.ChargeSTT]
	assert.False(t, hasSTT, "commodity transactions must not carry STT")
}

func TestCalculate_IPFTOnlyOnNSE(t *testing.T) {
	rates := append(nseEquityRates(),
		rate(models.ChargeIPFT, models.ExchangeBSE, models.CategoryEquity, "", models.SideBuy, "0.0001"),
	)
	calc := NewCalculator(NewSchedule(rates))
	notional := decimal.NewFromInt(100000)

	nse, _ := calc.Calculate(notional, models.SideBuy, models.ExchangeNSE, models.CategoryEquity, "")
	assertDecimal(t, "0.1", nse[models.ChargeIPFT])

	bse, _ := calc.Calculate(notional, models.SideBuy, models.ExchangeBSE, models.CategoryEquity, "")
	assertDecimal(t, "0", bse[models.ChargeIPFT])
}

func TestCalculate_MissingRatesMeanNoCharge(t *testing.T) {
	calc := NewCalculator(NewSchedule(nil))
	breakdown, total := calc.Calculate(decimal.NewFromInt(100000), models.SideBuy, models.ExchangeBSE, models.CategoryEquity, "")
	require.NotNil(t, breakdown)
	assertDecimal(t, "0", total)
}

func TestCalculate_NonPositiveNotional(t *testing.T) {
	calc := NewCalculator(NewSchedule(nseEquityRates()))

	for _, notional := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-500)} {
		breakdown, total := calc.Calculate(notional, models.SideBuy, models.ExchangeNSE, models.CategoryEquity, "")
		assert.Empty(t, breakdown)
		assertDecimal(t, "0", total)
	}
}

func TestPerUnit(t *testing.T) {
	assertDecimal(t, "2", PerUnit(decimal.NewFromInt(20), decimal.NewFromInt(10)))
	// A zero or negative quantity must fall back to zero, never divide.
	assertDecimal(t, "0", PerUnit(decimal.NewFromInt(20), decimal.Zero))
	assertDecimal(t, "0", PerUnit(decimal.NewFromInt(20), decimal.NewFromInt(-3)))
}

func TestScheduleRate_MissingRowIsZero(t *testing.T) {
	s := NewSchedule(nseEquityRates())
	assertDecimal(t, "0", s.Rate(models.ChargeBrokerage, models.ExchangeMCX, models.CategoryEquity, "", models.SideBuy))

	var nilSchedule *Schedule
	assertDecimal(t, "0", nilSchedule.Rate(models.ChargeBrokerage, models.ExchangeNSE, models.CategoryEquity, "", models.SideBuy))
}
