package models

// Product represents a catalog entry sold by one or more pharmacies.
// Identity is immutable; metadata and visibility flags are editable by admins.
type Product struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Provider    string `db:"provider" json:"provider"`
	Description string `db:"description" json:"description"`
	Reference   string `db:"reference" json:"reference"`
	Category    string `db:"category" json:"category"`
	// PrescriptionRequired marks products that need a prescription at delivery.
	PrescriptionRequired bool `db:"prescription_required" json:"prescription_required"`
	DisplayPrice         bool `db:"display_price" json:"display_price"`
	AllowOrder           bool `db:"allow_order" json:"allow_order"`
	AllowReviews         bool `db:"allow_reviews" json:"allow_reviews"`
}
