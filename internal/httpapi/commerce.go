package httpapi

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pharmacyMarketplace/internal/checkout"
	"pharmacyMarketplace/internal/geo"
	"pharmacyMarketplace/models"
	"pharmacyMarketplace/repository"
)

func (s *Server) getCart(c *gin.Context) {
	p := principal(c)
	cart, err := s.carts.Get(c.Request.Context(), p.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": cart})
}

type cartLineReq struct {
	Quantity int64 `json:"quantity"`
}

func (s *Server) setCartLine(c *gin.Context) {
	p := principal(c)
	productID, ok := pathID(c, "productID")
	if !ok {
		return
	}
	var req cartLineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must not be negative"})
		return
	}
	prod, err := s.products.GetByID(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if prod == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if !prod.AllowOrder {
		c.JSON(http.StatusConflict, gin.H{"error": "product cannot be ordered"})
		return
	}
	if err := s.carts.SetLine(c.Request.Context(), p.UserID, productID, req.Quantity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) clearCart(c *gin.Context) {
	p := principal(c)
	if err := s.carts.Clear(c.Request.Context(), p.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

type checkoutReq struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// doCheckout prices the delivery from the sequenced route over the
// pharmacies the cart draws from, then runs the transactional checkout.
func (s *Server) doCheckout(c *gin.Context) {
	p := principal(c)
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ctx := c.Request.Context()

	cart, err := s.carts.Get(ctx, p.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if len(cart) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
		return
	}

	fee, err := s.cartDeliveryFee(c, cart, req.Lat, req.Lng)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	order, err := s.flow.Checkout(ctx, p.UserID, cart, fee, checkout.Destination{
		Lat: req.Lat, Lng: req.Lng, Address: req.Address,
	})
	if err != nil {
		writeCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// cartDeliveryFee previews the allocation for every cart line, sequences
// the union of pharmacies involved from the destination, and prices the
// round trip back to it.
func (s *Server) cartDeliveryFee(c *gin.Context, cart map[int64]int64, lat, lng float64) (float64, error) {
	ctx := c.Request.Context()
	seen := map[int64]bool{}
	var stops []geo.Stop
	for productID, qty := range cart {
		plan, err := s.allocator.Allocate(ctx, productID, qty)
		if err != nil {
			return 0, err
		}
		for _, line := range plan.Lines {
			if seen[line.PharmacyID] {
				continue
			}
			seen[line.PharmacyID] = true
			ph, err := s.pharmacies.GetByID(ctx, line.PharmacyID)
			if err != nil {
				return 0, err
			}
			if ph != nil {
				stops = append(stops, geo.Stop{Lat: ph.Lat, Lng: ph.Lng, Label: ph.Name})
			}
		}
	}
	origin := geo.Stop{Lat: lat, Lng: lng}
	ordered := geo.Sequence(origin, stops, &origin)
	return s.fees.For(geo.TotalKm(origin, ordered)), nil
}

func (s *Server) listOrders(c *gin.Context) {
	p := principal(c)
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	afterSeconds, _ := strconv.ParseInt(c.Query("after_seconds"), 10, 64)
	afterID, _ := strconv.ParseInt(c.Query("after_id"), 10, 64)
	orders, err := s.orders.ListByUserPage(c.Request.Context(), p.UserID, pageSize, afterSeconds, afterID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// loadOwnOrder fetches an order and checks the caller may see it.
func (s *Server) loadOwnOrder(c *gin.Context) (*models.Order, bool) {
	p := principal(c)
	id, ok := pathID(c, "id")
	if !ok {
		return nil, false
	}
	order, err := s.orders.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, false
	}
	if order == nil || (order.UserID != p.UserID && p.Role != "admin") {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return nil, false
	}
	return order, true
}

func (s *Server) getOrder(c *gin.Context) {
	order, ok := s.loadOwnOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) cancelOrder(c *gin.Context) {
	order, ok := s.loadOwnOrder(c)
	if !ok {
		return
	}
	if err := s.flow.CancelOrder(c.Request.Context(), order.ID); err != nil {
		writeCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// orderRoute sequences the pharmacies an order draws from, ending at the
// order's destination, for the courier's map.
func (s *Server) orderRoute(c *gin.Context) {
	order, ok := s.loadOwnOrder(c)
	if !ok {
		return
	}
	origin, ok := queryLatLng(c)
	if !ok {
		return
	}
	pharmacies, err := s.orders.PharmaciesForOrder(c.Request.Context(), order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	stops := make([]geo.Stop, 0, len(pharmacies))
	for _, p := range pharmacies {
		stops = append(stops, geo.Stop{Lat: p.Lat, Lng: p.Lng, Label: p.Name})
	}
	dest := &geo.Stop{Lat: order.DestLat, Lng: order.DestLng, Label: "Destination"}
	ordered := geo.Sequence(origin, stops, dest)
	c.JSON(http.StatusOK, gin.H{
		"origin":      origin,
		"stops":       ordered,
		"distance_km": geo.TotalKm(origin, ordered),
	})
}

func (s *Server) walletBalance(c *gin.Context) {
	p := principal(c)
	balance, err := s.wallets.Balance(c.Request.Context(), p.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

type topUpReq struct {
	Amount float64 `json:"amount"`
}

func (s *Server) walletTopUp(c *gin.Context) {
	p := principal(c)
	var req topUpReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}
	if err := s.wallets.Credit(c.Request.Context(), p.UserID, req.Amount, "Top-up"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	balance, _ := s.wallets.Balance(c.Request.Context(), p.UserID)
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (s *Server) walletHistory(c *gin.Context) {
	p := principal(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	history, err := s.wallets.History(c.Request.Context(), p.UserID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, history)
}

func (s *Server) listDeliveryLines(c *gin.Context) {
	params := repository.ListLinesParams{
		Unassigned: c.Query("unassigned") == "true",
	}
	if status := c.Query("status"); status != "" {
		params.Statuses = []models.LineStatus{models.LineStatus(status)}
	}
	if pageSize, err := strconv.Atoi(c.Query("page_size")); err == nil {
		params.PageSize = pageSize
	}
	if afterID, err := strconv.ParseInt(c.Query("after_id"), 10, 64); err == nil {
		params.AfterID = afterID
	}
	lines, err := s.orders.ListLines(c.Request.Context(), params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, lines)
}

// claimDeliveryLine assigns the calling courier to a pending line. The
// guarded assignment refuses lines already claimed, completed or cancelled.
func (s *Server) claimDeliveryLine(c *gin.Context) {
	p := principal(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.orders.AssignDeliveryPerson(c.Request.Context(), id, &p.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusConflict, gin.H{"error": "line not claimable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "claimed"})
}

type lineStatusReq struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) setDeliveryLineStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req lineStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	status := models.LineStatus(req.Status)
	switch status {
	case models.LineStatusPending, models.LineStatusInProgress, models.LineStatusCompleted:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	if err := s.orders.UpdateLineStatus(c.Request.Context(), id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusConflict, gin.H{"error": "line not updatable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

type restoreStockReq struct {
	PharmacyID int64 `json:"pharmacy_id" binding:"required"`
	ProductID  int64 `json:"product_id" binding:"required"`
	Quantity   int64 `json:"quantity" binding:"required"`
}

// restoreStock is the administrative correction: put units back on a
// pharmacy's listing.
func (s *Server) restoreStock(c *gin.Context) {
	var req restoreStockReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := s.committer.RestoreStock(c.Request.Context(), req.PharmacyID, req.ProductID, req.Quantity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "restored"})
}
