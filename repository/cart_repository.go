package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// CartRepository stores per-user cart lines. Cart identity is the user id
// passed on every call; there is no ambient session state.
type CartRepository struct {
	q Querier
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{q: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *CartRepository) WithTx(tx *sql.Tx) *CartRepository {
	return &CartRepository{q: tx}
}

// Get returns the cart as a {product_id: quantity} map.
func (r *CartRepository) Get(ctx context.Context, userID int64) (map[int64]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `SELECT product_id, quantity FROM cart_lines WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]int64{}
	for rows.Next() {
		var productID, qty int64
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		out[productID] = qty
	}
	return out, rows.Err()
}

// TotalItems returns the sum of quantities across the cart.
func (r *CartRepository) TotalItems(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var total sql.NullInt64
	err := r.q.QueryRowContext(ctx, `SELECT SUM(quantity) FROM cart_lines WHERE user_id = ?`, userID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// SetLine sets the quantity for a product in the cart. Quantity 0 removes
// the line; negative quantities are rejected.
func (r *CartRepository) SetLine(ctx context.Context, userID, productID, quantity int64) error {
	if quantity < 0 {
		return errors.New("quantity must not be negative")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if quantity == 0 {
		_, err := r.q.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = ? AND product_id = ?`, userID, productID)
		return err
	}
	_, err := r.q.ExecContext(ctx, `
INSERT INTO cart_lines (user_id, product_id, quantity) VALUES (?,?,?)
ON CONFLICT(user_id, product_id) DO UPDATE SET quantity = excluded.quantity`,
		userID, productID, quantity)
	return err
}

// Clear empties the user's cart.
func (r *CartRepository) Clear(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.q.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = ?`, userID)
	return err
}
