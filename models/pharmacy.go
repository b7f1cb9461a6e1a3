package models

// Pharmacy represents a seller location. Coordinates are used for
// delivery route sequencing. OwnerUserID links the pharmacy to the account
// allowed to manage its listings; nil means unclaimed (admin-managed only).
type Pharmacy struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Address     string  `db:"address" json:"address"`
	Lat         float64 `db:"lat" json:"lat"`
	Lng         float64 `db:"lng" json:"lng"`
	Phone       string  `db:"phone" json:"phone"`
	OwnerUserID *int64  `db:"owner_user_id" json:"owner_user_id,omitempty"`
}

// Listing is one pharmacy's price/quantity offer for one product.
// Unique per (pharmacy, product) pair; this row is the unit of inventory
// truth and its quantity must never go negative.
type Listing struct {
	PharmacyID int64   `db:"pharmacy_id" json:"pharmacy_id"`
	ProductID  int64   `db:"product_id" json:"product_id"`
	UnitPrice  float64 `db:"unit_price" json:"unit_price"`
	Quantity   int64   `db:"quantity" json:"quantity"`
	// PharmacyName is denormalized on reads that join pharmacies, for display.
	PharmacyName string `db:"-" json:"pharmacy_name,omitempty"`
}
