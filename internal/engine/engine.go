package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/scripfolio/scripfolio/internal/charges"
	"github.com/scripfolio/scripfolio/internal/ledger"
	"github.com/scripfolio/scripfolio/internal/models"
	"github.com/scripfolio/scripfolio/internal/pnl"
)

// Store is the persistence surface the engine reads from. Writes are
// owned elsewhere; the engine only ever takes one snapshot per
// computation.
type Store interface {
	ListTransactions(ctx context.Context, accountID int) ([]models.Transaction, error)
	ListFeeRates(ctx context.Context) ([]models.FeeRate, error)
}

// Engine computes portfolio and P&L reports by replaying an account's
// full transaction history on every call. No state survives between
// calls, which keeps reads trivially safe under concurrency.
type Engine struct {
	store Store
}

// New returns an Engine over the given store.
func New(store Store) *Engine {
	return &Engine{store: store}
}

// snapshot loads the fee schedule and one account's ordered
// transaction stream in a single read pass.
func (e *Engine) snapshot(ctx context.Context, accountID int) ([]models.Transaction, *charges.Calculator, error) {
	rates, err := e.store.ListFeeRates(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load fee schedule: %w", err)
	}
	transactions, err := e.store.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return transactions, charges.NewCalculator(charges.NewSchedule(rates)), nil
}

// ComputePositions replays the account's transactions through the FIFO
// ledger and returns every open position.
func (e *Engine) ComputePositions(ctx context.Context, accountID int) ([]models.PortfolioItem, error) {
	transactions, calc, err := e.snapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return ledger.New(calc).Replay(transactions), nil
}

// ComputeEquityPL returns the FIFO-matched disposal report for the
// account's equity transactions.
func (e *Engine) ComputeEquityPL(ctx context.Context, accountID int) ([]models.MatchedDisposal, error) {
	transactions, calc, err := e.snapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return pnl.New(calc).MatchEquity(filterCategory(transactions, models.CategoryEquity)), nil
}

// ComputeFnoPL returns the netted contract-level P&L report for the
// given derivative category.
func (e *Engine) ComputeFnoPL(ctx context.Context, accountID int, category models.Category) ([]models.FnoMatch, error) {
	transactions, calc, err := e.snapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return pnl.New(calc).MatchFno(filterCategory(transactions, category)), nil
}

// CalculateCharges itemizes the fees on a prospective transaction so
// the entry form can preview them before committing.
func (e *Engine) CalculateCharges(ctx context.Context, notional decimal.Decimal, side models.Side, exchange models.Exchange, category models.Category, instrument models.InstrumentKind) (charges.Breakdown, decimal.Decimal, error) {
	rates, err := e.store.ListFeeRates(ctx)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to load fee schedule: %w", err)
	}
	breakdown, total := charges.NewCalculator(charges.NewSchedule(rates)).
		Calculate(notional, side, exchange, category, instrument)
	return breakdown, total, nil
}

func filterCategory(transactions []models.Transaction, category models.Category) []models.Transaction {
	filtered := make([]models.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.Category == category {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}
