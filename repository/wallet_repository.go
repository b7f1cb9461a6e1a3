package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"pharmacyMarketplace/models"
)

// WalletRepository manages prepaid balances and their ledger. Every balance
// change writes a wallet_history row carrying an opaque reference code.
type WalletRepository struct {
	q Querier
}

func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{q: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *WalletRepository) WithTx(tx *sql.Tx) *WalletRepository {
	return &WalletRepository{q: tx}
}

// Balance returns the user's current balance; 0 for users without a wallet row.
func (r *WalletRepository) Balance(ctx context.Context, userID int64) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var balance float64
	err := r.q.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE user_id = ?`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

// Credit adds amount to the user's balance, creating the wallet if needed.
func (r *WalletRepository) Credit(ctx context.Context, userID int64, amount float64, description string) error {
	if amount <= 0 {
		return errors.New("amount must be positive")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := r.q.ExecContext(ctx, `
INSERT INTO wallets (user_id, balance) VALUES (?, ?)
ON CONFLICT(user_id) DO UPDATE SET balance = balance + excluded.balance`,
		userID, amount); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, `INSERT INTO wallet_history (user_id, ref, amount, description) VALUES (?,?,?,?)`,
		userID, uuid.NewString(), amount, description)
	return err
}

// Debit removes amount from the user's balance. The guarded update refuses
// to overdraw: it returns false (and writes no ledger row) when the balance
// is short, leaving the wallet untouched.
func (r *WalletRepository) Debit(ctx context.Context, userID int64, amount float64, description string) (bool, error) {
	if amount <= 0 {
		return false, errors.New("amount must be positive")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `UPDATE wallets SET balance = balance - ? WHERE user_id = ? AND balance >= ?`,
		amount, userID, amount)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	_, err = r.q.ExecContext(ctx, `INSERT INTO wallet_history (user_id, ref, amount, description) VALUES (?,?,?,?)`,
		userID, uuid.NewString(), -amount, description)
	if err != nil {
		return false, err
	}
	return true, nil
}

// History returns the user's ledger, newest first.
func (r *WalletRepository) History(ctx context.Context, userID int64, limit int) ([]models.WalletEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `SELECT id, user_id, ref, at, amount, description FROM wallet_history WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.WalletEntry
	for rows.Next() {
		var e models.WalletEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Ref, &e.At, &e.Amount, &e.Description); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
