package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/scripfolio/scripfolio/internal/models"
)

// CreateTransaction inserts a new transaction record
func (db *DB) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (
			account_id, scrip, category, side, date, quantity, price,
			exchange, expiry_date, instrument_kind, strike_price,
			old_scrip, stored_amount, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	now := time.Now()
	err := db.conn.QueryRowContext(ctx, query,
		tx.AccountID, tx.Scrip, tx.Category, tx.Side, tx.Date,
		tx.Quantity, tx.Price, tx.Exchange,
		nullTime(tx.ExpiryDate), nullString(string(tx.InstrumentKind)),
		tx.StrikePrice, nullString(tx.OldScrip), tx.StoredAmount, now,
	).Scan(&tx.ID)

	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	tx.CreatedAt = now
	return nil
}

// ListTransactions retrieves all transactions for an account in
// ascending date order, ties broken by scrip then insertion order
func (db *DB) ListTransactions(ctx context.Context, accountID int) ([]models.Transaction, error) {
	query := `
		SELECT id, account_id, scrip, category, side, date, quantity, price,
		       exchange, expiry_date, instrument_kind, strike_price,
		       old_scrip, stored_amount, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY date, scrip, id
	`
	rows, err := db.conn.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

// GetTransaction retrieves a single transaction by ID
func (db *DB) GetTransaction(ctx context.Context, id int) (*models.Transaction, error) {
	query := `
		SELECT id, account_id, scrip, category, side, date, quantity, price,
		       exchange, expiry_date, instrument_kind, strike_price,
		       old_scrip, stored_amount, created_at
		FROM transactions
		WHERE id = $1
	`
	rows, err := db.conn.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("transaction not found: %d", id)
	}
	tx, err := scanTransaction(rows)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// DeleteTransaction removes a transaction by ID
func (db *DB) DeleteTransaction(ctx context.Context, id int) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("transaction not found: %d", id)
	}
	return nil
}

func scanTransaction(rows *sql.Rows) (models.Transaction, error) {
	var tx models.Transaction
	var quantity, price, storedAmount string
	var strikePrice, instrumentKind, oldScrip sql.NullString
	var expiryDate sql.NullTime

	err := rows.Scan(
		&tx.ID, &tx.AccountID, &tx.Scrip, &tx.Category, &tx.Side, &tx.Date,
		&quantity, &price, &tx.Exchange, &expiryDate, &instrumentKind,
		&strikePrice, &oldScrip, &storedAmount, &tx.CreatedAt,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if tx.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return tx, fmt.Errorf("invalid quantity for transaction %d: %w", tx.ID, err)
	}
	if tx.Price, err = decimal.NewFromString(price); err != nil {
		return tx, fmt.Errorf("invalid price for transaction %d: %w", tx.ID, err)
	}
	if tx.StoredAmount, err = decimal.NewFromString(storedAmount); err != nil {
		return tx, fmt.Errorf("invalid stored amount for transaction %d: %w", tx.ID, err)
	}
	if expiryDate.Valid {
		t := expiryDate.Time
		tx.ExpiryDate = &t
	}
	if instrumentKind.Valid {
		tx.InstrumentKind = models.InstrumentKind(instrumentKind.String)
	}
	if strikePrice.Valid {
		tx.StrikePrice, _ = decimal.NewFromString(strikePrice.String)
	}
	if oldScrip.Valid {
		tx.OldScrip = oldScrip.String
	}
	return tx, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
