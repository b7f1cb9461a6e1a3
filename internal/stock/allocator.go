// Package stock implements cheapest-first allocation of a requested product
// quantity across pharmacy listings, and the matching transactional stock
// commit. Allocation is a pure read used for preview pricing; the committer
// replays the same ordering with guarded decrements so that what a customer
// was quoted is what their order draws.
package stock

import (
	"context"
	"errors"

	"pharmacyMarketplace/models"
	"pharmacyMarketplace/repository"
)

// ErrInvalidQuantity is returned for zero or negative requested quantities.
// Insufficient stock is not an error; it is reported via UnmetQty.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// AllocationLine records how much of the request one pharmacy covers.
type AllocationLine struct {
	PharmacyID   int64   `json:"pharmacy_id"`
	PharmacyName string  `json:"pharmacy_name,omitempty"`
	UnitPrice    float64 `json:"unit_price"`
	TakenQty     int64   `json:"taken_qty"`
}

// AllocationPlan is the priced breakdown of one (product, quantity) request.
// Lines are ordered by ascending unit price, the order stock was drawn in;
// the committer replays this ordering verbatim.
type AllocationPlan struct {
	ProductID    int64            `json:"product_id"`
	RequestedQty int64            `json:"requested_qty"`
	Lines        []AllocationLine `json:"lines"`
	TotalPrice   float64          `json:"total_price"`
	UnmetQty     int64            `json:"unmet_qty"`
}

// Success reports whether the full requested quantity could be sourced.
func (p *AllocationPlan) Success() bool { return p.UnmetQty == 0 }

// TakenQty returns the total quantity the plan sources across pharmacies.
func (p *AllocationPlan) TakenQty() int64 {
	var total int64
	for _, l := range p.Lines {
		total += l.TakenQty
	}
	return total
}

// Allocator computes allocation plans from current listings. It never
// mutates inventory, so plans can be recomputed freely for display.
type Allocator struct {
	listings repository.ListingReaderI
}

func NewAllocator(listings repository.ListingReaderI) *Allocator {
	return &Allocator{listings: listings}
}

// Allocate walks the product's in-stock listings cheapest first, taking
// min(remaining, stock) at each pharmacy until the request is satisfied or
// stock runs out. A shortfall is reported in UnmetQty, not as an error.
func (a *Allocator) Allocate(ctx context.Context, productID, quantity int64) (*AllocationPlan, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	listings, err := a.listings.ListingsForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	plan := &AllocationPlan{ProductID: productID, RequestedQty: quantity}
	remaining := quantity
	for _, l := range listings {
		if remaining == 0 {
			break
		}
		take := l.Quantity
		if take > remaining {
			take = remaining
		}
		if take <= 0 {
			continue
		}
		plan.Lines = append(plan.Lines, AllocationLine{
			PharmacyID:   l.PharmacyID,
			PharmacyName: l.PharmacyName,
			UnitPrice:    l.UnitPrice,
			TakenQty:     take,
		})
		plan.TotalPrice += float64(take) * l.UnitPrice
		remaining -= take
	}
	plan.UnmetQty = remaining
	return plan, nil
}

// TotalAvailable returns the product's stock summed across all pharmacies.
func (a *Allocator) TotalAvailable(ctx context.Context, productID int64) (int64, error) {
	return a.listings.TotalQuantity(ctx, productID)
}

// CheapestListing returns the lowest-priced in-stock listing for the
// product, or nil when no pharmacy carries it. Used for "price from"
// catalog display.
func (a *Allocator) CheapestListing(ctx context.Context, productID int64) (*models.Listing, error) {
	listings, err := a.listings.ListingsForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, nil
	}
	l := listings[0]
	return &l, nil
}
