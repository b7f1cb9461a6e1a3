package models

// WalletEntry is one ledger row of a user's prepaid balance history.
// Amount is negative for expenses, positive for top-ups. Ref is an opaque
// code shown on receipts.
type WalletEntry struct {
	ID          int64   `db:"id" json:"id"`
	UserID      int64   `db:"user_id" json:"user_id"`
	Ref         string  `db:"ref" json:"ref"`
	At          string  `db:"at" json:"at"`
	Amount      float64 `db:"amount" json:"amount"`
	Description string  `db:"description" json:"description"`
}
