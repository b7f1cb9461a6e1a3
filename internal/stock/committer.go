package stock

import (
	"context"

	"pharmacyMarketplace/repository"
)

// RemovedLine records a successful decrement against one pharmacy.
type RemovedLine struct {
	PharmacyID int64 `json:"pharmacy_id"`
	RemovedQty int64 `json:"removed_qty"`
}

// CommitResult reports what a RemoveStock call actually took. MissingQty is
// the shortfall discovered at commit time; any value above zero means stock
// moved since the preview and the caller must not proceed as if the full
// quantity was reserved.
type CommitResult struct {
	RemovedQty int64         `json:"removed_qty"`
	MissingQty int64         `json:"missing_qty"`
	Lines      []RemovedLine `json:"lines"`
}

// Success reports whether the full quantity was removed.
func (r *CommitResult) Success() bool { return r.MissingQty == 0 }

// Committer applies stock movements. RemoveStock walks listings in the same
// cheapest-first order as the Allocator so commit matches preview; every
// decrement is guarded, so concurrent checkouts can never drive a listing
// negative - the slower one just comes up short and reports MissingQty.
type Committer struct {
	listings repository.ListingWriterI
}

func NewCommitter(listings repository.ListingWriterI) *Committer {
	return &Committer{listings: listings}
}

// RemoveStock takes qty units of a product, cheapest pharmacies first.
// A decrement only counts when its guard succeeds; shortfall accumulates in
// MissingQty. The listings writer decides the transaction scope - pass a
// WithTx-bound repository to make the walk atomic with other writes.
func (c *Committer) RemoveStock(ctx context.Context, productID, qty int64) (*CommitResult, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	listings, err := c.listings.ListingsForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	result := &CommitResult{}
	remaining := qty
	for _, l := range listings {
		if remaining == 0 {
			break
		}
		toRemove := l.Quantity
		if toRemove > remaining {
			toRemove = remaining
		}
		if toRemove <= 0 {
			continue
		}
		ok, err := c.listings.DecrementListing(ctx, l.PharmacyID, productID, toRemove)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Lost a race: the listing shrank between the read and the
			// guarded update. Skip it; the shortfall surfaces in MissingQty.
			continue
		}
		result.Lines = append(result.Lines, RemovedLine{PharmacyID: l.PharmacyID, RemovedQty: toRemove})
		result.RemovedQty += toRemove
		remaining -= toRemove
	}
	result.MissingQty = remaining
	return result, nil
}

// RestoreStock puts qty units back on a pharmacy's listing. The additive
// inverse of RemoveStock, used for cancellations and admin corrections; it
// has no upper bound and always succeeds for positive quantities.
func (c *Committer) RestoreStock(ctx context.Context, pharmacyID, productID, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	return c.listings.IncrementListing(ctx, pharmacyID, productID, qty)
}
