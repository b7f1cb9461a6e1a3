package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pharmacyMarketplace/models"
)

type ProductRepository struct {
	q Querier
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{q: db}
}

// Create inserts a new product. Visibility flags default to true for new
// products unless set otherwise by the caller.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p == nil {
		return nil, errors.New("product is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `INSERT INTO products (name, provider, description, reference, category, prescription_required, display_price, allow_order, allow_reviews) VALUES (?,?,?,?,?,?,?,?,?)`,
		p.Name, p.Provider, p.Description, p.Reference, p.Category, p.PrescriptionRequired, p.DisplayPrice, p.AllowOrder, p.AllowReviews)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	p.ID = id
	return p, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p models.Product
	err := r.q.QueryRowContext(ctx, `SELECT id, name, provider, description, reference, category, prescription_required, display_price, allow_order, allow_reviews FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Provider, &p.Description, &p.Reference, &p.Category, &p.PrescriptionRequired, &p.DisplayPrice, &p.AllowOrder, &p.AllowReviews)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Update rewrites the mutable metadata and flags of a product.
// The identity (ID) is never changed.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	if p == nil {
		return errors.New("product is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `UPDATE products SET name = ?, provider = ?, description = ?, reference = ?, category = ?, prescription_required = ?, display_price = ?, allow_order = ?, allow_reviews = ? WHERE id = ?`,
		p.Name, p.Provider, p.Description, p.Reference, p.Category, p.PrescriptionRequired, p.DisplayPrice, p.AllowOrder, p.AllowReviews, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *ProductRepository) List(ctx context.Context, limit, offset int) ([]models.Product, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `SELECT id, name, provider, description, reference, category, prescription_required, display_price, allow_order, allow_reviews FROM products ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Provider, &p.Description, &p.Reference, &p.Category, &p.PrescriptionRequired, &p.DisplayPrice, &p.AllowOrder, &p.AllowReviews); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a product and its listings and cart references.
// Committed order lines keep their snapshot and are left untouched.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := r.q.ExecContext(ctx, `DELETE FROM pharmacy_listings WHERE product_id = ?`, id); err != nil {
		return err
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM cart_lines WHERE product_id = ?`, id); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	return err
}
