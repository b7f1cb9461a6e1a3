package repository

import (
	"context"
	"testing"

	"pharmacyMarketplace/models"
)

func TestListingsForProduct_CheapestFirst(t *testing.T) {
	s := newSeed(t, "repo_listings_order")
	ctx := context.Background()
	r := NewPharmacyRepository(s.db)

	// B is cheaper than A; the listing order must follow price, not id.
	for _, l := range []models.Listing{
		{PharmacyID: s.pharmacyA, ProductID: s.productID, UnitPrice: 4.50, Quantity: 3},
		{PharmacyID: s.pharmacyB, ProductID: s.productID, UnitPrice: 2.10, Quantity: 7},
	} {
		l := l
		if err := r.UpsertListing(ctx, &l); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	listings, err := r.ListingsForProduct(ctx, s.productID)
	if err != nil {
		t.Fatalf("ListingsForProduct: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings, want 2", len(listings))
	}
	if listings[0].PharmacyID != s.pharmacyB || listings[1].PharmacyID != s.pharmacyA {
		t.Fatalf("order = [%d %d], want cheapest pharmacy %d first",
			listings[0].PharmacyID, listings[1].PharmacyID, s.pharmacyB)
	}
	if listings[0].PharmacyName == "" {
		t.Fatal("expected the pharmacy name to be joined in")
	}
}

func TestListingsForProduct_SkipsEmptyListings(t *testing.T) {
	s := newSeed(t, "repo_listings_empty")
	ctx := context.Background()
	r := NewPharmacyRepository(s.db)

	for _, l := range []models.Listing{
		{PharmacyID: s.pharmacyA, ProductID: s.productID, UnitPrice: 1.00, Quantity: 0},
		{PharmacyID: s.pharmacyB, ProductID: s.productID, UnitPrice: 2.00, Quantity: 4},
	} {
		l := l
		if err := r.UpsertListing(ctx, &l); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	listings, err := r.ListingsForProduct(ctx, s.productID)
	if err != nil {
		t.Fatalf("ListingsForProduct: %v", err)
	}
	if len(listings) != 1 || listings[0].PharmacyID != s.pharmacyB {
		t.Fatalf("got %+v, want only the stocked listing", listings)
	}
}

func TestDecrementListing_Guard(t *testing.T) {
	s := newSeed(t, "repo_decrement")
	ctx := context.Background()
	r := NewPharmacyRepository(s.db)

	l := models.Listing{PharmacyID: s.pharmacyA, ProductID: s.productID, UnitPrice: 3.00, Quantity: 5}
	if err := r.UpsertListing(ctx, &l); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	ok, err := r.DecrementListing(ctx, s.pharmacyA, s.productID, 3)
	if err != nil || !ok {
		t.Fatalf("decrement within stock: ok=%v err=%v", ok, err)
	}

	// 2 left; taking 3 must be refused without touching the row.
	ok, err = r.DecrementListing(ctx, s.pharmacyA, s.productID, 3)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if ok {
		t.Fatal("decrement past available stock should fail")
	}
	got, err := r.GetListing(ctx, s.pharmacyA, s.productID)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if got.Quantity != 2 {
		t.Fatalf("quantity = %d, want 2", got.Quantity)
	}
}

func TestIncrementListing_CreatesRow(t *testing.T) {
	s := newSeed(t, "repo_increment")
	ctx := context.Background()
	r := NewPharmacyRepository(s.db)

	// No listing exists yet; the increment upserts one with a zero price.
	if err := r.IncrementListing(ctx, s.pharmacyA, s.productID, 4); err != nil {
		t.Fatalf("increment: %v", err)
	}
	got, err := r.GetListing(ctx, s.pharmacyA, s.productID)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if got == nil || got.Quantity != 4 {
		t.Fatalf("listing = %+v, want quantity 4", got)
	}

	if err := r.IncrementListing(ctx, s.pharmacyA, s.productID, 2); err != nil {
		t.Fatalf("increment existing: %v", err)
	}
	got, err = r.GetListing(ctx, s.pharmacyA, s.productID)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if got.Quantity != 6 {
		t.Fatalf("quantity = %d, want 6", got.Quantity)
	}
}

func TestTotalQuantity(t *testing.T) {
	s := newSeed(t, "repo_total")
	ctx := context.Background()
	r := NewPharmacyRepository(s.db)

	total, err := r.TotalQuantity(ctx, s.productID)
	if err != nil {
		t.Fatalf("TotalQuantity: %v", err)
	}
	if total != 0 {
		t.Fatalf("total = %d for unstocked product, want 0", total)
	}

	for _, l := range []models.Listing{
		{PharmacyID: s.pharmacyA, ProductID: s.productID, UnitPrice: 3.00, Quantity: 5},
		{PharmacyID: s.pharmacyB, ProductID: s.productID, UnitPrice: 2.00, Quantity: 7},
	} {
		l := l
		if err := r.UpsertListing(ctx, &l); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	total, err = r.TotalQuantity(ctx, s.productID)
	if err != nil {
		t.Fatalf("TotalQuantity: %v", err)
	}
	if total != 12 {
		t.Fatalf("total = %d, want 12", total)
	}
}
