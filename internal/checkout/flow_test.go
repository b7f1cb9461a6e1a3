package checkout

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"

	"pharmacyMarketplace/internal/testutil"
	"pharmacyMarketplace/models"
	"pharmacyMarketplace/repository"
)

type fixture struct {
	db          *sql.DB
	flow        *Flow
	pharmacies  *repository.PharmacyRepository
	orders      *repository.OrderRepository
	wallets     *repository.WalletRepository
	carts       *repository.CartRepository
	userID      int64
	productID   int64
	pharmacyIDs [3]int64
}

// newFixture seeds a customer with a wallet and one product listed by three
// pharmacies at 3.00/qty 2, 2.00/qty 1 and 5.00/qty 10.
func newFixture(t *testing.T, name string, balance float64) *fixture {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, name)
	ctx := context.Background()

	users := repository.NewUserRepository(d)
	products := repository.NewProductRepository(d)
	pharmacies := repository.NewPharmacyRepository(d)
	orders := repository.NewOrderRepository(d)
	wallets := repository.NewWalletRepository(d)
	carts := repository.NewCartRepository(d)

	u, err := users.Create(ctx, "claire", models.RoleCustomer)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if balance > 0 {
		if err := wallets.Credit(ctx, u.ID, balance, "Initial top-up"); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}

	prod, err := products.Create(ctx, &models.Product{Name: "Paracetamol 500mg"})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	f := &fixture{
		db: d, pharmacies: pharmacies, orders: orders, wallets: wallets, carts: carts,
		userID: u.ID, productID: prod.ID,
	}
	offers := []struct {
		price float64
		qty   int64
	}{{3.00, 2}, {2.00, 1}, {5.00, 10}}
	for i, s := range offers {
		ph, err := pharmacies.Create(ctx, &models.Pharmacy{Name: "Pharmacy", Lat: 48.85, Lng: 2.35})
		if err != nil {
			t.Fatalf("create pharmacy: %v", err)
		}
		f.pharmacyIDs[i] = ph.ID
		if err := pharmacies.UpsertListing(ctx, &models.Listing{PharmacyID: ph.ID, ProductID: prod.ID, UnitPrice: s.price, Quantity: s.qty}); err != nil {
			t.Fatalf("upsert listing: %v", err)
		}
	}
	f.flow = NewFlow(d, pharmacies, orders, wallets, carts)
	return f
}

func TestCheckout_Success(t *testing.T) {
	f := newFixture(t, "checkout_ok", 50.00)
	ctx := context.Background()

	if err := f.carts.SetLine(ctx, f.userID, f.productID, 5); err != nil {
		t.Fatalf("set cart: %v", err)
	}
	cart, _ := f.carts.Get(ctx, f.userID)

	order, err := f.flow.Checkout(ctx, f.userID, cart, 4.50, Destination{Lat: 48.86, Lng: 2.34, Address: "12 rue des Lilas"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// 18.00 of goods (1*2 + 2*3 + 2*5) plus the fee.
	balance, _ := f.wallets.Balance(ctx, f.userID)
	if math.Abs(balance-(50.00-18.00-4.50)) > 1e-9 {
		t.Fatalf("balance = %v, want 27.50", balance)
	}

	// Three product lines in ascending price order plus the fee line.
	if len(order.Lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %+v", len(order.Lines), order.Lines)
	}
	wantPrices := []float64{2.00, 3.00, 5.00}
	for i, p := range wantPrices {
		l := order.Lines[i]
		if l.UnitPrice != p || l.Status != models.LineStatusPending {
			t.Fatalf("line %d = %+v, want price %v pending", i, l, p)
		}
	}
	fee := order.Lines[3]
	if !fee.IsDeliveryFee() || fee.LineTotal != 4.50 {
		t.Fatalf("fee line = %+v", fee)
	}

	// Stock decremented per the plan.
	for i, want := range []int64{0, 0, 8} {
		l, _ := f.pharmacies.GetListing(ctx, f.pharmacyIDs[i], f.productID)
		if l.Quantity != want {
			t.Fatalf("pharmacy %d stock = %d, want %d", f.pharmacyIDs[i], l.Quantity, want)
		}
	}

	// Cart cleared.
	after, _ := f.carts.Get(ctx, f.userID)
	if len(after) != 0 {
		t.Fatalf("cart not cleared: %v", after)
	}
}

func TestCheckout_InsufficientStockAbortsEverything(t *testing.T) {
	f := newFixture(t, "checkout_stock", 500.00)
	ctx := context.Background()

	_, err := f.flow.Checkout(ctx, f.userID, map[int64]int64{f.productID: 20}, 3.00, Destination{})
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.ProductID != f.productID || stockErr.Requested != 20 || stockErr.Available != 13 {
		t.Fatalf("unexpected error detail: %+v", stockErr)
	}

	// Nothing moved.
	balance, _ := f.wallets.Balance(ctx, f.userID)
	if balance != 500.00 {
		t.Fatalf("balance touched: %v", balance)
	}
	total, _ := f.pharmacies.TotalQuantity(ctx, f.productID)
	if total != 13 {
		t.Fatalf("stock touched: %d", total)
	}
}

func TestCheckout_InsufficientFunds(t *testing.T) {
	f := newFixture(t, "checkout_funds", 10.00)
	ctx := context.Background()

	// 18.00 of goods + 3.00 fee against a 10.00 balance.
	_, err := f.flow.Checkout(ctx, f.userID, map[int64]int64{f.productID: 5}, 3.00, Destination{})
	var fundsErr *InsufficientFundsError
	if !errors.As(err, &fundsErr) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if math.Abs(fundsErr.Shortfall-11.00) > 1e-9 {
		t.Fatalf("shortfall = %v, want 11.00", fundsErr.Shortfall)
	}

	// Rollback left wallet and stock untouched.
	balance, _ := f.wallets.Balance(ctx, f.userID)
	if balance != 10.00 {
		t.Fatalf("balance touched: %v", balance)
	}
	total, _ := f.pharmacies.TotalQuantity(ctx, f.productID)
	if total != 13 {
		t.Fatalf("stock touched: %d", total)
	}
}

func TestCheckout_TopUpAndRetry(t *testing.T) {
	f := newFixture(t, "checkout_retry", 10.00)
	ctx := context.Background()

	cart := map[int64]int64{f.productID: 5}
	_, err := f.flow.Checkout(ctx, f.userID, cart, 3.00, Destination{})
	var fundsErr *InsufficientFundsError
	if !errors.As(err, &fundsErr) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}

	// The user-driven recovery path: top up exactly the shortfall, retry.
	if err := f.wallets.Credit(ctx, f.userID, fundsErr.Shortfall, "Top-up"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := f.flow.Checkout(ctx, f.userID, cart, 3.00, Destination{}); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
	balance, _ := f.wallets.Balance(ctx, f.userID)
	if math.Abs(balance) > 1e-9 {
		t.Fatalf("balance = %v, want 0", balance)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t, "checkout_empty", 10.00)
	if _, err := f.flow.Checkout(context.Background(), f.userID, nil, 0, Destination{}); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestCancelOrder_RestoresStockAndBalance(t *testing.T) {
	f := newFixture(t, "checkout_cancel", 50.00)
	ctx := context.Background()

	order, err := f.flow.Checkout(ctx, f.userID, map[int64]int64{f.productID: 5}, 4.50, Destination{})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if err := f.flow.CancelOrder(ctx, order.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	balance, _ := f.wallets.Balance(ctx, f.userID)
	if math.Abs(balance-50.00) > 1e-9 {
		t.Fatalf("balance = %v, want 50.00 after refund", balance)
	}
	for i, want := range []int64{2, 1, 10} {
		l, _ := f.pharmacies.GetListing(ctx, f.pharmacyIDs[i], f.productID)
		if l.Quantity != want {
			t.Fatalf("pharmacy %d stock = %d, want %d after restore", f.pharmacyIDs[i], l.Quantity, want)
		}
	}

	cancelled, _ := f.orders.GetByID(ctx, order.ID)
	for _, l := range cancelled.Lines {
		if l.Status != models.LineStatusCancelled {
			t.Fatalf("line %d status = %s, want cancelled", l.ID, l.Status)
		}
	}
}

func TestCancelOrder_RefusesInProgressLines(t *testing.T) {
	f := newFixture(t, "checkout_cancel_refuse", 50.00)
	ctx := context.Background()

	order, err := f.flow.Checkout(ctx, f.userID, map[int64]int64{f.productID: 2}, 3.00, Destination{})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	users := repository.NewUserRepository(f.db)
	courierUser, err := users.Create(ctx, "marc", models.RoleDelivery)
	if err != nil {
		t.Fatalf("create courier: %v", err)
	}
	if err := f.orders.AssignDeliveryPerson(ctx, order.Lines[0].ID, &courierUser.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if err := f.flow.CancelOrder(ctx, order.ID); !errors.Is(err, ErrNotCancellable) {
		t.Fatalf("expected ErrNotCancellable, got %v", err)
	}
}

func TestCheckout_ZeroFeeStillWritesFeeLine(t *testing.T) {
	f := newFixture(t, "checkout_zero_fee", 50.00)
	ctx := context.Background()

	order, err := f.flow.Checkout(ctx, f.userID, map[int64]int64{f.productID: 1}, 0, Destination{})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	// One product line plus the fee line, even when the fee is zero.
	if len(order.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %+v", len(order.Lines), order.Lines)
	}
	fee := order.Lines[1]
	if !fee.IsDeliveryFee() || fee.LineTotal != 0 {
		t.Fatalf("fee line = %+v, want zero-total fee line", fee)
	}
}

func TestCancelOrder_CancelledLinesCannotBeClaimed(t *testing.T) {
	f := newFixture(t, "checkout_cancel_claim", 50.00)
	ctx := context.Background()

	order, err := f.flow.Checkout(ctx, f.userID, map[int64]int64{f.productID: 2}, 3.00, Destination{})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if err := f.flow.CancelOrder(ctx, order.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// The cancelled order's stock is back on the shelves and its value
	// refunded; a courier claim must not be able to resurrect a line.
	users := repository.NewUserRepository(f.db)
	courierUser, err := users.Create(ctx, "marc", models.RoleDelivery)
	if err != nil {
		t.Fatalf("create courier: %v", err)
	}
	for _, l := range order.Lines {
		if l.IsDeliveryFee() {
			continue
		}
		if err := f.orders.AssignDeliveryPerson(ctx, l.ID, &courierUser.ID); err == nil {
			t.Fatalf("claim of cancelled line %d should fail", l.ID)
		}
	}
	after, _ := f.orders.GetByID(ctx, order.ID)
	for _, l := range after.Lines {
		if l.Status != models.LineStatusCancelled || l.DeliveryPersonID != nil {
			t.Fatalf("line %d = %+v, want cancelled and unassigned", l.ID, l)
		}
	}
}

func TestCancelOrder_ClaimDuringCancelRollsBackCleanly(t *testing.T) {
	f := newFixture(t, "checkout_cancel_race", 50.00)
	ctx := context.Background()

	// Three product lines plus the fee line.
	order, err := f.flow.Checkout(ctx, f.userID, map[int64]int64{f.productID: 5}, 3.00, Destination{})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	users := repository.NewUserRepository(f.db)
	courierUser, err := users.Create(ctx, "marc", models.RoleDelivery)
	if err != nil {
		t.Fatalf("create courier: %v", err)
	}
	// Claim the last product line, so the cancellation flips the earlier
	// lines before hitting the claimed one and aborting.
	claimed := order.Lines[2]
	if err := f.orders.AssignDeliveryPerson(ctx, claimed.ID, &courierUser.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := f.flow.CancelOrder(ctx, order.ID); !errors.Is(err, ErrNotCancellable) {
		t.Fatalf("expected ErrNotCancellable, got %v", err)
	}

	// The abort rolled everything back: no line is cancelled, the claim
	// survives, and neither stock nor balance moved.
	after, _ := f.orders.GetByID(ctx, order.ID)
	for _, l := range after.Lines {
		if l.Status == models.LineStatusCancelled {
			t.Fatalf("line %d cancelled despite abort", l.ID)
		}
	}
	if got := after.Lines[2]; got.Status != models.LineStatusInProgress || *got.DeliveryPersonID != courierUser.ID {
		t.Fatalf("claimed line = %+v, want in_progress held by %d", got, courierUser.ID)
	}
	balance, _ := f.wallets.Balance(ctx, f.userID)
	if math.Abs(balance-(50.00-18.00-3.00)) > 1e-9 {
		t.Fatalf("balance = %v, want 29.00 untouched", balance)
	}
	for i, want := range []int64{0, 0, 8} {
		l, _ := f.pharmacies.GetListing(ctx, f.pharmacyIDs[i], f.productID)
		if l.Quantity != want {
			t.Fatalf("pharmacy %d stock = %d, want %d untouched", f.pharmacyIDs[i], l.Quantity, want)
		}
	}
}

func TestFeeSchedule(t *testing.T) {
	fee := FeeSchedule{Base: 3.00, PerKm: 1.00}
	if got := fee.For(0); got != 3.00 {
		t.Fatalf("zero-length route fee = %v, want 3.00", got)
	}
	if got := fee.For(7.5); math.Abs(got-10.50) > 1e-9 {
		t.Fatalf("fee = %v, want 10.50", got)
	}
	if got := fee.For(-2); got != 3.00 {
		t.Fatalf("negative distance clamps to base, got %v", got)
	}
}
