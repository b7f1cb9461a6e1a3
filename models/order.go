package models

// LineStatus represents the delivery progress of a single order line.
type LineStatus string

const (
	LineStatusPending    LineStatus = "pending"
	LineStatusInProgress LineStatus = "in_progress"
	LineStatusCompleted  LineStatus = "completed"
	LineStatusCancelled  LineStatus = "cancelled"
)

// Order groups the lines of one checkout. The priced breakdown lives in
// Lines; destination coordinates feed the delivery route.
type Order struct {
	ID          int64   `db:"id" json:"id"`
	Ref         string  `db:"ref" json:"ref"`
	UserID      int64   `db:"user_id" json:"user_id"`
	PlacedAt    string  `db:"placed_at" json:"placed_at"`
	DeliveryFee float64 `db:"delivery_fee" json:"delivery_fee"`
	DestLat     float64 `db:"dest_lat" json:"dest_lat"`
	DestLng     float64 `db:"dest_lng" json:"dest_lng"`
	DestAddress string  `db:"dest_address" json:"dest_address,omitempty"`

	Lines []OrderLine `db:"-" json:"lines,omitempty"`
}

// OrderLine is one priced (product, pharmacy) slice of an order.
// UnitPrice and LineTotal are snapshots taken at checkout time and are
// immutable afterwards; later price or stock edits never alter them.
// The synthetic delivery-fee line has nil ProductID and PharmacyID.
type OrderLine struct {
	ID               int64      `db:"id" json:"id"`
	OrderID          int64      `db:"order_id" json:"order_id"`
	ProductID        *int64     `db:"product_id" json:"product_id,omitempty"`
	PharmacyID       *int64     `db:"pharmacy_id" json:"pharmacy_id,omitempty"`
	Quantity         int64      `db:"quantity" json:"quantity"`
	UnitPrice        float64    `db:"unit_price" json:"unit_price"`
	LineTotal        float64    `db:"line_total" json:"line_total"`
	Status           LineStatus `db:"status" json:"status"`
	DeliveryPersonID *int64     `db:"delivery_person_id" json:"delivery_person_id,omitempty"`
}

// IsDeliveryFee reports whether the line is the synthetic delivery-fee line.
func (l *OrderLine) IsDeliveryFee() bool {
	return l.ProductID == nil && l.PharmacyID == nil
}
