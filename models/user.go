package models

// Role constants for users. The platform has four kinds of actors.
const (
	RoleCustomer = "customer"
	RolePharmacy = "pharmacy"
	RoleDelivery = "delivery"
	RoleAdmin    = "admin"
)

// User represents an account in the system.
// It maps to the `users` table in SQLite.
type User struct {
	ID        int64  `db:"id" json:"id"`
	Username  string `db:"username" json:"username"`
	Role      string `db:"role" json:"role"`
	Confirmed bool   `db:"confirmed" json:"confirmed"`
}
