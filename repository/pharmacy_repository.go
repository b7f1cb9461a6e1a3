package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pharmacyMarketplace/models"
)

// PharmacyRepository handles pharmacies and their product listings.
// The pharmacy_listings table, keyed by (pharmacy_id, product_id), is the
// unit of inventory truth; all stock movements go through the guarded
// Decrement/Increment methods here.
type PharmacyRepository struct {
	q Querier
}

func NewPharmacyRepository(db *sql.DB) *PharmacyRepository {
	return &PharmacyRepository{q: db}
}

// WithTx returns a copy of the repository that runs against the given
// transaction. The receiver is left untouched.
func (r *PharmacyRepository) WithTx(tx *sql.Tx) *PharmacyRepository {
	return &PharmacyRepository{q: tx}
}

func (r *PharmacyRepository) Create(ctx context.Context, p *models.Pharmacy) (*models.Pharmacy, error) {
	if p == nil {
		return nil, errors.New("pharmacy is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `INSERT INTO pharmacies (name, address, lat, lng, phone, owner_user_id) VALUES (?,?,?,?,?,?)`,
		p.Name, p.Address, p.Lat, p.Lng, p.Phone, nullableID(p.OwnerUserID))
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

func (r *PharmacyRepository) GetByID(ctx context.Context, id int64) (*models.Pharmacy, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p models.Pharmacy
	var owner sql.NullInt64
	err := r.q.QueryRowContext(ctx, `SELECT id, name, address, lat, lng, phone, owner_user_id FROM pharmacies WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Address, &p.Lat, &p.Lng, &p.Phone, &owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.OwnerUserID = nullInt64Ptr(owner)
	return &p, nil
}

func (r *PharmacyRepository) List(ctx context.Context, limit, offset int) ([]models.Pharmacy, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `SELECT id, name, address, lat, lng, phone, owner_user_id FROM pharmacies ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Pharmacy
	for rows.Next() {
		var p models.Pharmacy
		var owner sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.Lat, &p.Lng, &p.Phone, &owner); err != nil {
			return nil, err
		}
		p.OwnerUserID = nullInt64Ptr(owner)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a pharmacy and its listings.
func (r *PharmacyRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := r.q.ExecContext(ctx, `DELETE FROM pharmacy_listings WHERE pharmacy_id = ?`, id); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, `DELETE FROM pharmacies WHERE id = ?`, id)
	return err
}

// UpsertListing creates or replaces a pharmacy's offer for a product.
func (r *PharmacyRepository) UpsertListing(ctx context.Context, l *models.Listing) error {
	if l == nil {
		return errors.New("listing is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
INSERT INTO pharmacy_listings (pharmacy_id, product_id, unit_price, quantity) VALUES (?,?,?,?)
ON CONFLICT(pharmacy_id, product_id) DO UPDATE SET unit_price = excluded.unit_price, quantity = excluded.quantity`,
		l.PharmacyID, l.ProductID, l.UnitPrice, l.Quantity)
	return err
}

func (r *PharmacyRepository) GetListing(ctx context.Context, pharmacyID, productID int64) (*models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var l models.Listing
	err := r.q.QueryRowContext(ctx, `SELECT pharmacy_id, product_id, unit_price, quantity FROM pharmacy_listings WHERE pharmacy_id = ? AND product_id = ?`, pharmacyID, productID).
		Scan(&l.PharmacyID, &l.ProductID, &l.UnitPrice, &l.Quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// ListingsForProduct returns every in-stock listing for a product, cheapest
// first (price ascending, pharmacy id ascending on ties). This ordering is
// the allocation contract: the allocator and the committer both walk it, so
// a committed order matches the plan the customer was shown.
func (r *PharmacyRepository) ListingsForProduct(ctx context.Context, productID int64) ([]models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
SELECT l.pharmacy_id, l.product_id, l.unit_price, l.quantity, p.name
FROM pharmacy_listings l
JOIN pharmacies p ON p.id = l.pharmacy_id
WHERE l.product_id = ? AND l.quantity > 0
ORDER BY l.unit_price ASC, l.pharmacy_id ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanListingRows(rows)
}

// ListingsForPharmacy returns the in-stock products offered by a pharmacy.
func (r *PharmacyRepository) ListingsForPharmacy(ctx context.Context, pharmacyID int64) ([]models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
SELECT l.pharmacy_id, l.product_id, l.unit_price, l.quantity, p.name
FROM pharmacy_listings l
JOIN pharmacies p ON p.id = l.pharmacy_id
WHERE l.pharmacy_id = ? AND l.quantity > 0
ORDER BY l.product_id ASC`, pharmacyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanListingRows(rows)
}

// TotalQuantity returns the stock for a product summed across all pharmacies.
func (r *PharmacyRepository) TotalQuantity(ctx context.Context, productID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var total sql.NullInt64
	err := r.q.QueryRowContext(ctx, `SELECT SUM(quantity) FROM pharmacy_listings WHERE product_id = ?`, productID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// DecrementListing atomically takes qty units from one listing. The guard
// `quantity >= ?` makes a decrement that would go negative affect zero rows
// instead; the caller reads the returned bool to learn whether it won the
// stock. This is the defence against two checkouts racing for the same
// units: the loser's update simply does not apply.
func (r *PharmacyRepository) DecrementListing(ctx context.Context, pharmacyID, productID, qty int64) (bool, error) {
	if qty <= 0 {
		return false, errors.New("qty must be positive")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
UPDATE pharmacy_listings SET quantity = quantity - ?
WHERE pharmacy_id = ? AND product_id = ? AND quantity >= ?`,
		qty, pharmacyID, productID, qty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// IncrementListing adds qty units back to a listing, creating the row if it
// does not exist (price 0 until the pharmacy sets one). Used for order
// cancellation and administrative corrections; it has no upper bound.
func (r *PharmacyRepository) IncrementListing(ctx context.Context, pharmacyID, productID, qty int64) error {
	if qty <= 0 {
		return errors.New("qty must be positive")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
INSERT INTO pharmacy_listings (pharmacy_id, product_id, unit_price, quantity) VALUES (?,?,0,?)
ON CONFLICT(pharmacy_id, product_id) DO UPDATE SET quantity = quantity + excluded.quantity`,
		pharmacyID, productID, qty)
	return err
}

// PharmaciesWithProduct returns the pharmacies carrying a product in stock,
// with coordinates for route sequencing.
func (r *PharmacyRepository) PharmaciesWithProduct(ctx context.Context, productID int64) ([]models.Pharmacy, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
SELECT p.id, p.name, p.address, p.lat, p.lng, p.phone
FROM pharmacies p
JOIN pharmacy_listings l ON l.pharmacy_id = p.id
WHERE l.product_id = ? AND l.quantity > 0
ORDER BY l.unit_price ASC, p.id ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Pharmacy
	for rows.Next() {
		var p models.Pharmacy
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.Lat, &p.Lng, &p.Phone); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanListingRows(rows *sql.Rows) ([]models.Listing, error) {
	var out []models.Listing
	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(&l.PharmacyID, &l.ProductID, &l.UnitPrice, &l.Quantity, &l.PharmacyName); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
