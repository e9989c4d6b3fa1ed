package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/scripfolio/scripfolio/internal/models"
)

// ListFeeRates retrieves the full fee schedule
func (db *DB) ListFeeRates(ctx context.Context) ([]models.FeeRate, error) {
	query := `
		SELECT charge_kind, exchange, category, instrument_kind, side,
		       rate, last_updated
		FROM fee_rates
		ORDER BY charge_kind, exchange, category, instrument_kind, side
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list fee rates: %w", err)
	}
	defer rows.Close()

	var rates []models.FeeRate
	for rows.Next() {
		var r models.FeeRate
		var rate string
		err := rows.Scan(&r.ChargeKind, &r.Exchange, &r.Category,
			&r.InstrumentKind, &r.Side, &rate, &r.LastUpdated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fee rate: %w", err)
		}
		if r.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", r.ChargeKind, err)
		}
		rates = append(rates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list fee rates: %w", err)
	}
	return rates, nil
}

// UpsertFeeRate creates or overwrites one fee-schedule row. Custom
// values set here survive schema migrations; migrations only ever copy
// rows forward with defaults for new key dimensions.
func (db *DB) UpsertFeeRate(ctx context.Context, r *models.FeeRate) error {
	query := `
		INSERT INTO fee_rates (
			charge_kind, exchange, category, instrument_kind, side,
			rate, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (charge_kind, exchange, category, instrument_kind, side)
		DO UPDATE SET rate = EXCLUDED.rate, last_updated = EXCLUDED.last_updated
	`
	now := time.Now()
	_, err := db.conn.ExecContext(ctx, query,
		r.ChargeKind, r.Exchange, r.Category, r.InstrumentKind, r.Side,
		r.Rate, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fee rate: %w", err)
	}
	r.LastUpdated = now
	return nil
}
