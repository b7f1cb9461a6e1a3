package repository

import (
	"context"
	"database/sql"

	"pharmacyMarketplace/models"
)

// ListingReaderI is the read-only inventory view the stock allocator needs.
type ListingReaderI interface {
	ListingsForProduct(ctx context.Context, productID int64) ([]models.Listing, error)
	TotalQuantity(ctx context.Context, productID int64) (int64, error)
}

// ListingWriterI adds the guarded stock mutations used by the committer.
type ListingWriterI interface {
	ListingReaderI
	DecrementListing(ctx context.Context, pharmacyID, productID, qty int64) (bool, error)
	IncrementListing(ctx context.Context, pharmacyID, productID, qty int64) error
}

// ProductRepositoryI defines operations on Product entities.
type ProductRepositoryI interface {
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	Update(ctx context.Context, p *models.Product) error
	List(ctx context.Context, limit, offset int) ([]models.Product, error)
	Delete(ctx context.Context, id int64) error
}

// PharmacyRepositoryI defines operations on Pharmacy entities and listings.
type PharmacyRepositoryI interface {
	ListingWriterI
	Create(ctx context.Context, p *models.Pharmacy) (*models.Pharmacy, error)
	GetByID(ctx context.Context, id int64) (*models.Pharmacy, error)
	List(ctx context.Context, limit, offset int) ([]models.Pharmacy, error)
	Delete(ctx context.Context, id int64) error
	UpsertListing(ctx context.Context, l *models.Listing) error
	GetListing(ctx context.Context, pharmacyID, productID int64) (*models.Listing, error)
	ListingsForPharmacy(ctx context.Context, pharmacyID int64) ([]models.Listing, error)
	PharmaciesWithProduct(ctx context.Context, productID int64) ([]models.Pharmacy, error)
	WithTx(tx *sql.Tx) *PharmacyRepository
}

// OrderRepositoryI defines operations on Order entities.
type OrderRepositoryI interface {
	Create(ctx context.Context, o *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	ListByUserPage(ctx context.Context, userID int64, pageSize int, afterSeconds, afterID int64) ([]models.Order, error)
	ListLines(ctx context.Context, p ListLinesParams) ([]models.OrderLine, error)
	UpdateLineStatus(ctx context.Context, lineID int64, status models.LineStatus) error
	CancelPendingLine(ctx context.Context, lineID int64) error
	AssignDeliveryPerson(ctx context.Context, lineID int64, deliveryPersonID *int64) error
	PharmaciesForOrder(ctx context.Context, orderID int64) ([]models.Pharmacy, error)
	WithTx(tx *sql.Tx) *OrderRepository
}

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, username, role string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	SetConfirmed(ctx context.Context, id int64, confirmed bool) error
}

// WalletRepositoryI defines operations on prepaid balances.
type WalletRepositoryI interface {
	Balance(ctx context.Context, userID int64) (float64, error)
	Credit(ctx context.Context, userID int64, amount float64, description string) error
	Debit(ctx context.Context, userID int64, amount float64, description string) (bool, error)
	History(ctx context.Context, userID int64, limit int) ([]models.WalletEntry, error)
	WithTx(tx *sql.Tx) *WalletRepository
}

// CartRepositoryI defines operations on user carts.
type CartRepositoryI interface {
	Get(ctx context.Context, userID int64) (map[int64]int64, error)
	TotalItems(ctx context.Context, userID int64) (int64, error)
	SetLine(ctx context.Context, userID, productID, quantity int64) error
	Clear(ctx context.Context, userID int64) error
	WithTx(tx *sql.Tx) *CartRepository
}
