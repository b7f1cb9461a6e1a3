package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"pharmacyMarketplace/models"
)

// ListByUserPage returns a page of a user's orders (headers only, no lines)
// newest first. Uses keyset pagination with a numeric cursor
// (placement unix seconds, id) to avoid string-format pitfalls.
func (r *OrderRepository) ListByUserPage(ctx context.Context, userID int64, pageSize int, afterSeconds, afterID int64) ([]models.Order, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
SELECT id, ref, user_id, placed_at, delivery_fee, dest_lat, dest_lng, dest_address
FROM orders
WHERE user_id = ?`
	args := []any{userID}
	if afterSeconds > 0 && afterID > 0 {
		query += `
  AND (
        CAST(strftime('%s', placed_at) AS INTEGER) < ?
        OR (CAST(strftime('%s', placed_at) AS INTEGER) = ? AND id < ?)
      )`
		args = append(args, afterSeconds, afterSeconds, afterID)
	}
	query += `
ORDER BY placed_at DESC, id DESC
LIMIT ?`
	args = append(args, pageSize)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.Ref, &o.UserID, &o.PlacedAt, &o.DeliveryFee, &o.DestLat, &o.DestLng, &o.DestAddress); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListLinesParams represents filters and pagination for ListLines, the
// delivery/admin work queue over individual order lines.
type ListLinesParams struct {
	Statuses         []models.LineStatus
	PharmacyID       *int64
	DeliveryPersonID *int64
	Unassigned       bool // only lines with no courier yet
	PageSize         int
	AfterID          int64 // keyset cursor: line id
}

// ListLines returns order lines matching the filters, oldest first, so
// couriers pick up work in placement order.
func (r *OrderRepository) ListLines(ctx context.Context, p ListLinesParams) ([]models.OrderLine, error) {
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Delivery-fee lines carry no pharmacy and are never deliverable work.
	where := []string{"pharmacy_id IS NOT NULL"}
	var args []any

	if len(p.Statuses) > 0 {
		placeholders := make([]string, len(p.Statuses))
		for i, s := range p.Statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if p.PharmacyID != nil {
		where = append(where, "pharmacy_id = ?")
		args = append(args, *p.PharmacyID)
	}
	if p.DeliveryPersonID != nil {
		where = append(where, "delivery_person_id = ?")
		args = append(args, *p.DeliveryPersonID)
	}
	if p.Unassigned {
		where = append(where, "delivery_person_id IS NULL")
	}
	if p.AfterID > 0 {
		where = append(where, "id > ?")
		args = append(args, p.AfterID)
	}

	query := `SELECT id, order_id, product_id, pharmacy_id, quantity, unit_price, line_total, status, delivery_person_id FROM order_lines WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY id ASC LIMIT ?`
	args = append(args, p.PageSize)

	rows, err := r.q.QueryContext(ctx, query, args...)
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
