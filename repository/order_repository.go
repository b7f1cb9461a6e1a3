package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pharmacyMarketplace/models"
)

// OrderRepository persists orders and their priced lines. Lines are price
// snapshots: once an order is created nothing here ever rewrites quantity,
// unit_price or line_total.
type OrderRepository struct {
	q Querier
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{q: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *OrderRepository) WithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{q: tx}
}

// Create inserts an order and all of its lines. A fresh reference code is
// generated if o.Ref is empty. Line statuses default to pending.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	if o == nil {
		return nil, errors.New("order is nil")
	}
	if len(o.Lines) == 0 {
		return nil, errors.New("order has no lines")
	}
	if o.Ref == "" {
		o.Ref = uuid.NewString()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `INSERT INTO orders (ref, user_id, delivery_fee, dest_lat, dest_lng, dest_address) VALUES (?,?,?,?,?,?)`,
		o.Ref, o.UserID, o.DeliveryFee, o.DestLat, o.DestLng, o.DestAddress)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	o.ID = id

	for i := range o.Lines {
		l := &o.Lines[i]
		if l.Status == "" {
			l.Status = models.LineStatusPending
		}
		lres, err := r.q.ExecContext(ctx, `INSERT INTO order_lines (order_id, product_id, pharmacy_id, quantity, unit_price, line_total, status, delivery_person_id) VALUES (?,?,?,?,?,?,?,?)`,
			id, nullableID(l.ProductID), nullableID(l.PharmacyID), l.Quantity, l.UnitPrice, l.LineTotal, string(l.Status), nullableID(l.DeliveryPersonID))
		if err != nil {
			return nil, err
		}
		l.ID, err = lres.LastInsertId()
		if err != nil {
			return nil, err
		}
		l.OrderID = id
	}

	created, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("created order not found: id=%d", id)
	}
	return created, nil
}

// GetByID fetches an order with all its lines.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var o models.Order
	err := r.q.QueryRowContext(ctx, `SELECT id, ref, user_id, placed_at, delivery_fee, dest_lat, dest_lng, dest_address FROM orders WHERE id = ?`, id).
		Scan(&o.ID, &o.Ref, &o.UserID, &o.PlacedAt, &o.DeliveryFee, &o.DestLat, &o.DestLng, &o.DestAddress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	o.Lines, err = r.linesForOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) linesForOrder(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, order_id, product_id, pharmacy_id, quantity, unit_price, line_total, status, delivery_person_id FROM order_lines WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OrderLine
	for rows.Next() {
		var l models.OrderLine
		var status string
		var productID, pharmacyID, deliveryPerson sql.NullInt64
		if err := rows.Scan(&l.ID, &l.OrderID, &productID, &pharmacyID, &l.Quantity, &l.UnitPrice, &l.LineTotal, &status, &deliveryPerson); err != nil {
			return nil, err
		}
		l.Status = models.LineStatus(status)
		l.ProductID = nullInt64Ptr(productID)
		l.PharmacyID = nullInt64Ptr(pharmacyID)
		l.DeliveryPersonID = nullInt64Ptr(deliveryPerson)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateLineStatus moves one order line through the delivery workflow.
// Cancelled is terminal: the update refuses to move a cancelled line, since
// its stock has already been restored and its value refunded.
func (r *OrderRepository) UpdateLineStatus(ctx context.Context, lineID int64, status models.LineStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.q.ExecContext(ctx, `UPDATE order_lines SET status = ? WHERE id = ? AND status <> ?`,
		string(status), lineID, string(models.LineStatusCancelled))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AssignDeliveryPerson sets (or clears, with nil) the courier on a line.
// A claim only lands on a pending line nobody holds yet; a release only
// applies to an in_progress line. Anything else affects zero rows and
// surfaces as sql.ErrNoRows.
func (r *OrderRepository) AssignDeliveryPerson(ctx context.Context, lineID int64, deliveryPersonID *int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var res sql.Result
	var err error
	if deliveryPersonID == nil {
		res, err = r.q.ExecContext(ctx, `UPDATE order_lines SET delivery_person_id = NULL, status = ? WHERE id = ? AND status = ?`,
			string(models.LineStatusPending), lineID, string(models.LineStatusInProgress))
	} else {
		res, err = r.q.ExecContext(ctx, `UPDATE order_lines SET delivery_person_id = ?, status = ? WHERE id = ? AND status = ? AND delivery_person_id IS NULL`,
			*deliveryPersonID, string(models.LineStatusInProgress), lineID, string(models.LineStatusPending))
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CancelPendingLine marks a line cancelled only while it is still pending.
// A line claimed in the meantime makes the update affect zero rows, returned
// as sql.ErrNoRows so the caller can refuse the whole cancellation.
func (r *OrderRepository) CancelPendingLine(ctx context.Context, lineID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.q.ExecContext(ctx, `UPDATE order_lines SET status = ? WHERE id = ? AND status = ?`,
		string(models.LineStatusCancelled), lineID, string(models.LineStatusPending))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PharmaciesForOrder returns the distinct pharmacies an order draws stock
// from, for route sequencing. The delivery-fee line has no pharmacy and is
// excluded by the join.
func (r *OrderRepository) PharmaciesForOrder(ctx context.Context, orderID int64) ([]models.Pharmacy, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
SELECT DISTINCT p.id, p.name, p.address, p.lat, p.lng, p.phone
FROM order_lines l
JOIN pharmacies p ON p.id = l.pharmacy_id
WHERE l.order_id = ?
ORDER BY p.id`, orderID)
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

func nullableID(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
