package repository

import (
	"context"
	"database/sql"
	"testing"

	"pharmacyMarketplace/internal/testutil"
	"pharmacyMarketplace/models"
)

// seed is the shared fixture for the repository tests: one customer, one
// product and two pharmacies with foreign keys satisfied.
type seed struct {
	db         *sql.DB
	customerID int64
	productID  int64
	pharmacyA  int64
	pharmacyB  int64
}

func newSeed(t *testing.T, name string) *seed {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, name)
	ctx := context.Background()

	users := NewUserRepository(d)
	customer, err := users.Create(ctx, "alice", models.RoleCustomer)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	products := NewProductRepository(d)
	prod, err := products.Create(ctx, &models.Product{
		Name: "Aspirin 500mg", DisplayPrice: true, AllowOrder: true, AllowReviews: true,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	pharmacies := NewPharmacyRepository(d)
	pa, err := pharmacies.Create(ctx, &models.Pharmacy{Name: "Pharmacie A", Lat: 48.85, Lng: 2.35})
	if err != nil {
		t.Fatalf("create pharmacy: %v", err)
	}
	pb, err := pharmacies.Create(ctx, &models.Pharmacy{Name: "Pharmacie B", Lat: 48.86, Lng: 2.36})
	if err != nil {
		t.Fatalf("create pharmacy: %v", err)
	}

	return &seed{
		db:         d,
		customerID: customer.ID,
		productID:  prod.ID,
		pharmacyA:  pa.ID,
		pharmacyB:  pb.ID,
	}
}

func int64Ptr(v int64) *int64 { return &v }
