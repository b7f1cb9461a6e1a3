// Package httpapi is the web-layer boundary: it exposes the catalog,
// cart, checkout, routing and wallet operations over HTTP and translates
// core failure signals into user-facing responses.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmacyMarketplace/internal/auth"
	"pharmacyMarketplace/internal/checkout"
	"pharmacyMarketplace/internal/config"
	"pharmacyMarketplace/internal/stock"
	"pharmacyMarketplace/repository"
)

type Server struct {
	engine     *gin.Engine
	cfg        *config.Config
	users      repository.UserRepositoryI
	products   repository.ProductRepositoryI
	pharmacies *repository.PharmacyRepository
	orders     *repository.OrderRepository
	wallets    *repository.WalletRepository
	carts      *repository.CartRepository
	allocator  *stock.Allocator
	committer  *stock.Committer
	flow       *checkout.Flow
	fees       checkout.FeeSchedule
}

func NewServer(cfg *config.Config, users *repository.UserRepository, products *repository.ProductRepository, pharmacies *repository.PharmacyRepository, orders *repository.OrderRepository, wallets *repository.WalletRepository, carts *repository.CartRepository, flow *checkout.Flow) *Server {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	s := &Server{
		engine:     r,
		cfg:        cfg,
		users:      users,
		products:   products,
		pharmacies: pharmacies,
		orders:     orders,
		wallets:    wallets,
		carts:      carts,
		allocator:  stock.NewAllocator(pharmacies),
		committer:  stock.NewCommitter(pharmacies),
		flow:       flow,
		fees:       checkout.FeeSchedule{Base: cfg.Delivery.BaseFee, PerKm: cfg.Delivery.PerKmFee},
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/api/v1")

	v1.POST("/auth/token", s.issueToken)

	// Public catalog reads.
	v1.GET("/products", s.listProducts)
	v1.GET("/products/:id", s.getProduct)
	v1.GET("/products/:id/availability", s.productAvailability)
	v1.GET("/products/:id/price-from", s.productPriceFrom)
	v1.GET("/products/:id/quote", s.productQuote)
	v1.GET("/products/:id/pharmacies", s.productPharmacies)
	v1.GET("/products/:id/route", s.productRoute)
	v1.GET("/pharmacies", s.listPharmacies)
	v1.GET("/pharmacies/:id", s.getPharmacy)
	v1.GET("/pharmacies/:id/listings", s.pharmacyListings)

	// Authenticated customer surface.
	user := v1.Group("", s.authRequired())
	user.GET("/cart", s.getCart)
	user.PUT("/cart/:productID", s.setCartLine)
	user.DELETE("/cart", s.clearCart)
	user.POST("/checkout", s.doCheckout)
	user.GET("/orders", s.listOrders)
	user.GET("/orders/:id", s.getOrder)
	user.POST("/orders/:id/cancel", s.cancelOrder)
	user.GET("/orders/:id/route", s.orderRoute)
	user.GET("/wallet", s.walletBalance)
	user.POST("/wallet/topup", s.walletTopUp)
	user.GET("/wallet/history", s.walletHistory)

	// Delivery workflow.
	delivery := v1.Group("/delivery", s.authRequired(), s.roleRequired("delivery", "admin"))
	delivery.GET("/lines", s.listDeliveryLines)
	delivery.POST("/lines/:id/claim", s.claimDeliveryLine)
	delivery.POST("/lines/:id/status", s.setDeliveryLineStatus)

	// Pharmacy inventory management.
	pharmacy := v1.Group("/pharmacies/:id", s.authRequired(), s.roleRequired("pharmacy", "admin"))
	pharmacy.PUT("/listings/:productID", s.upsertListing)

	// Admin surface.
	admin := v1.Group("/admin", s.authRequired(), s.roleRequired("admin"))
	admin.POST("/products", s.createProduct)
	admin.PUT("/products/:id", s.updateProduct)
	admin.DELETE("/products/:id", s.deleteProduct)
	admin.POST("/pharmacies", s.createPharmacy)
	admin.DELETE("/pharmacies/:id", s.deletePharmacy)
	admin.POST("/stock/restore", s.restoreStock)
}

// authRequired parses the Bearer token and stores the principal on the
// request context.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := auth.ParseBearer(c.GetHeader("Authorization"), s.cfg.Auth.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// roleRequired allows only principals with one of the given roles.
func (s *Server) roleRequired(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := auth.FromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

func principal(c *gin.Context) *auth.Principal {
	p, _ := auth.FromContext(c.Request.Context())
	return p
}

// writeCheckoutError maps the core failure taxonomy onto HTTP responses.
func writeCheckoutError(c *gin.Context, err error) {
	var stockErr *checkout.InsufficientStockError
	var fundsErr *checkout.InsufficientFundsError
	var raceErr *checkout.StockRaceLostError
	var commitErr *checkout.CommitFailedError
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":      "insufficient_stock",
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
	case errors.As(err, &fundsErr):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":     "insufficient_funds",
			"balance":   fundsErr.Balance,
			"total":     fundsErr.Total,
			"shortfall": fundsErr.Shortfall,
		})
	case errors.As(err, &raceErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":      "stock_race_lost",
			"product_id": raceErr.ProductID,
		})
	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, stock.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, checkout.ErrNotCancellable):
		c.JSON(http.StatusConflict, gin.H{"error": "order not cancellable"})
	case errors.As(err, &commitErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "commit failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
