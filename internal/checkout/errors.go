package checkout

import (
	"errors"
	"fmt"
)

// ErrEmptyCart is returned when a checkout is attempted with no lines.
var ErrEmptyCart = errors.New("cart is empty")

// InsufficientStockError reports that a cart line cannot be fully sourced.
// Recoverable: the user can lower the quantity and retry.
type InsufficientStockError struct {
	ProductID int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// InsufficientFundsError reports that the prepaid balance does not cover the
// grand total. Recoverable: the user can top up and retry the same checkout.
type InsufficientFundsError struct {
	Balance   float64
	Total     float64
	Shortfall float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %.2f, total %.2f, missing %.2f", e.Balance, e.Total, e.Shortfall)
}

// StockRaceLostError reports that stock changed between preview and commit:
// a concurrent checkout took units this one was counting on. The whole
// attempt is rolled back; retry from a fresh allocation.
type StockRaceLostError struct {
	ProductID  int64
	MissingQty int64
}

func (e *StockRaceLostError) Error() string {
	return fmt.Sprintf("lost stock race for product %d: %d units missing at commit", e.ProductID, e.MissingQty)
}

// CommitFailedError wraps an underlying store error during checkout. The
// transaction is rolled back, so no partial state remains; the whole
// checkout is safe to retry.
type CommitFailedError struct {
	Err error
}

func (e *CommitFailedError) Error() string { return fmt.Sprintf("commit failed: %v", e.Err) }
func (e *CommitFailedError) Unwrap() error { return e.Err }
