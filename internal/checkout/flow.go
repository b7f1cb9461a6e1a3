// Package checkout orchestrates the transition from a cart to a persisted
// order: re-validate stock, debit the prepaid balance, commit inventory and
// record the order, all inside one database transaction so the outcome is
// all-or-nothing.
package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"pharmacyMarketplace/internal/stock"
	"pharmacyMarketplace/models"
	"pharmacyMarketplace/repository"
)

// Destination is where the order is delivered.
type Destination struct {
	Lat     float64
	Lng     float64
	Address string
}

// Flow runs checkouts and cancellations. All repositories are rebound to a
// single transaction per call; no state is shared across calls.
type Flow struct {
	db         *sql.DB
	pharmacies *repository.PharmacyRepository
	orders     *repository.OrderRepository
	wallets    *repository.WalletRepository
	carts      *repository.CartRepository
}

func NewFlow(db *sql.DB, pharmacies *repository.PharmacyRepository, orders *repository.OrderRepository, wallets *repository.WalletRepository, carts *repository.CartRepository) *Flow {
	return &Flow{db: db, pharmacies: pharmacies, orders: orders, wallets: wallets, carts: carts}
}

// Checkout turns the given cart lines into a persisted order.
//
// Allocation happens again here, from current stock, rather than trusting
// any previously shown preview: prices are whatever the cheapest-first walk
// yields at confirmation time. On any failure the transaction rolls back,
// so the wallet, the inventory, the cart and the order table are either all
// updated or all untouched.
func (f *Flow) Checkout(ctx context.Context, userID int64, cartLines map[int64]int64, deliveryFee float64, dest Destination) (*models.Order, error) {
	if len(cartLines) == 0 {
		return nil, ErrEmptyCart
	}
	if deliveryFee < 0 {
		return nil, fmt.Errorf("delivery fee must not be negative")
	}

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &CommitFailedError{Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	pharmacies := f.pharmacies.WithTx(tx)
	allocator := stock.NewAllocator(pharmacies)
	committer := stock.NewCommitter(pharmacies)

	// Walk products in a fixed order so pricing and failures are
	// reproducible for a given cart.
	productIDs := make([]int64, 0, len(cartLines))
	for id := range cartLines {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	// Step 1: allocate every line; abort before any write on a shortfall.
	plans := make([]*stock.AllocationPlan, 0, len(productIDs))
	grandTotal := deliveryFee
	for _, productID := range productIDs {
		qty := cartLines[productID]
		plan, err := allocator.Allocate(ctx, productID, qty)
		if err != nil {
			if errors.Is(err, stock.ErrInvalidQuantity) {
				return nil, fmt.Errorf("product %d: %w", productID, err)
			}
			return nil, &CommitFailedError{Err: err}
		}
		if !plan.Success() {
			return nil, &InsufficientStockError{
				ProductID: productID,
				Requested: qty,
				Available: plan.TakenQty(),
			}
		}
		plans = append(plans, plan)
		grandTotal += plan.TotalPrice
	}

	// Step 2: debit the prepaid balance. The guarded debit refuses to
	// overdraw, so a concurrent spend cannot slip the balance under us.
	wallets := f.wallets.WithTx(tx)
	ok, err := wallets.Debit(ctx, userID, grandTotal, "Order payment")
	if err != nil {
		return nil, &CommitFailedError{Err: err}
	}
	if !ok {
		balance, berr := wallets.Balance(ctx, userID)
		if berr != nil {
			return nil, &CommitFailedError{Err: berr}
		}
		return nil, &InsufficientFundsError{
			Balance:   balance,
			Total:     grandTotal,
			Shortfall: grandTotal - balance,
		}
	}

	// Step 3: record the order with one line per allocation line, keeping
	// pharmacy attribution for delivery routing, plus the fee line.
	order := &models.Order{
		UserID:      userID,
		DeliveryFee: deliveryFee,
		DestLat:     dest.Lat,
		DestLng:     dest.Lng,
		DestAddress: dest.Address,
	}
	for _, plan := range plans {
		productID := plan.ProductID
		for _, al := range plan.Lines {
			pid, phid := productID, al.PharmacyID
			order.Lines = append(order.Lines, models.OrderLine{
				ProductID:  &pid,
				PharmacyID: &phid,
				Quantity:   al.TakenQty,
				UnitPrice:  al.UnitPrice,
				LineTotal:  float64(al.TakenQty) * al.UnitPrice,
			})
		}
	}
	// The fee line is always written, even at zero, so every order has the
	// same line shape for consumers.
	order.Lines = append(order.Lines, models.OrderLine{
		Quantity:  0,
		UnitPrice: deliveryFee,
		LineTotal: deliveryFee,
	})
	created, err := f.orders.WithTx(tx).Create(ctx, order)
	if err != nil {
		return nil, &CommitFailedError{Err: err}
	}

	// Commit the stock removal. Inside this transaction nobody else has
	// touched the listings since step 1, but the guard still protects the
	// invariant: a shortfall here means a conflicting write slipped in, and
	// the rollback undoes the debit and the order.
	for _, plan := range plans {
		res, err := committer.RemoveStock(ctx, plan.ProductID, plan.RequestedQty)
		if err != nil {
			return nil, &CommitFailedError{Err: err}
		}
		if !res.Success() {
			return nil, &StockRaceLostError{ProductID: plan.ProductID, MissingQty: res.MissingQty}
		}
	}

	// Step 4: clear the cart and make everything durable at once.
	if err := f.carts.WithTx(tx).Clear(ctx, userID); err != nil {
		return nil, &CommitFailedError{Err: err}
	}
	if err := tx.Commit(); err != nil {
		return nil, &CommitFailedError{Err: err}
	}
	return created, nil
}

// ErrNotCancellable is returned when an order has lines already picked up.
var ErrNotCancellable = errors.New("order has lines already in delivery")

// ErrOrderNotFound is returned for unknown order ids.
var ErrOrderNotFound = errors.New("order not found")

// CancelOrder reverses a checkout while every line is still pending:
// stock goes back to the pharmacies it was drawn from, the wallet is
// credited the full amount paid, and the lines are marked cancelled.
// One transaction, same all-or-nothing property as Checkout.
func (f *Flow) CancelOrder(ctx context.Context, orderID int64) error {
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return &CommitFailedError{Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	orders := f.orders.WithTx(tx)
	order, err := orders.GetByID(ctx, orderID)
	if err != nil {
		return &CommitFailedError{Err: err}
	}
	if order == nil {
		return ErrOrderNotFound
	}

	committer := stock.NewCommitter(f.pharmacies.WithTx(tx))

	// Each line is cancelled with a guarded update that requires it to
	// still be pending, so a courier claim committed after the read above
	// affects zero rows here and aborts the whole cancellation. The
	// rollback undoes any lines already flipped.
	var refund float64
	for _, l := range order.Lines {
		if err := orders.CancelPendingLine(ctx, l.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotCancellable
			}
			return &CommitFailedError{Err: err}
		}
		refund += l.LineTotal
		if !l.IsDeliveryFee() {
			if err := committer.RestoreStock(ctx, *l.PharmacyID, *l.ProductID, l.Quantity); err != nil {
				return &CommitFailedError{Err: err}
			}
		}
	}
	if refund > 0 {
		if err := f.wallets.WithTx(tx).Credit(ctx, order.UserID, refund, "Order cancellation refund"); err != nil {
			return &CommitFailedError{Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &CommitFailedError{Err: err}
	}
	return nil
}
