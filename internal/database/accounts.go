package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/scripfolio/scripfolio/internal/models"
)

// CreateAccount inserts a new demat account
func (db *DB) CreateAccount(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (name, description, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	now := time.Now()
	err := db.conn.QueryRowContext(ctx, query, a.Name, a.Description, now).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	a.CreatedAt = now
	return nil
}

// ListAccounts retrieves all demat accounts
func (db *DB) ListAccounts(ctx context.Context) ([]models.Account, error) {
	query := `SELECT id, name, description, created_at FROM accounts ORDER BY id`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		var description sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &description, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		if description.Valid {
			a.Description = description.String
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// DeleteAccount removes a demat account and its transactions
func (db *DB) DeleteAccount(ctx context.Context, id int) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete account transactions: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("account not found: %d", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
