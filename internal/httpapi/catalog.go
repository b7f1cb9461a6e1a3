package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"pharmacyMarketplace/internal/auth"
	"pharmacyMarketplace/internal/geo"
	"pharmacyMarketplace/models"
)

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

type tokenReq struct {
	Username string `json:"username" binding:"required"`
}

// issueToken exchanges a known username for a signed bearer token.
// Credential verification lives in the identity collaborator; this endpoint
// only covers development and tests.
func (s *Server) issueToken(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u, err := s.users.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
		return
	}
	token, err := auth.IssueToken(s.cfg.Auth.JWTSecret, u.ID, u.Role, 24*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) listProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	products, err := s.products.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) getProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := s.products.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// productAvailability reports the stock summed across all pharmacies.
func (s *Server) productAvailability(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	total, err := s.allocator.TotalAvailable(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": id, "total_available": total})
}

// productPriceFrom returns the cheapest in-stock listing, for the catalog
// "price from" display.
func (s *Server) productPriceFrom(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	l, err := s.allocator.CheapestListing(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if l == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pharmacy_id":   l.PharmacyID,
		"pharmacy_name": l.PharmacyName,
		"unit_price":    l.UnitPrice,
	})
}

// productQuote previews a cheapest-first allocation for a quantity without
// touching stock.
func (s *Server) productQuote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	qty, err := strconv.ParseInt(c.Query("qty"), 10, 64)
	if err != nil || qty <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "qty must be a positive integer"})
		return
	}
	plan, err := s.allocator.Allocate(c.Request.Context(), id, qty)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id":  plan.ProductID,
		"requested":   plan.RequestedQty,
		"lines":       plan.Lines,
		"total_price": plan.TotalPrice,
		"unmet_qty":   plan.UnmetQty,
		"success":     plan.Success(),
	})
}

func (s *Server) productPharmacies(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pharmacies, err := s.pharmacies.PharmaciesWithProduct(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, pharmacies)
}

// productRoute sequences the pharmacies carrying a product into a visiting
// order from the caller's position, for the map view.
func (s *Server) productRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	origin, ok := queryLatLng(c)
	if !ok {
		return
	}
	pharmacies, err := s.pharmacies.PharmaciesWithProduct(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	s.writeRoute(c, origin, pharmacies)
}

func queryLatLng(c *gin.Context) (geo.Stop, bool) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required"})
		return geo.Stop{}, false
	}
	return geo.Stop{Lat: lat, Lng: lng, Label: "Origin"}, true
}

// writeRoute runs the nearest-neighbor sequencing and responds with the
// ordered stops, the route length and the delivery fee it implies.
func (s *Server) writeRoute(c *gin.Context, origin geo.Stop, pharmacies []models.Pharmacy) {
	stops := make([]geo.Stop, 0, len(pharmacies))
	for _, p := range pharmacies {
		stops = append(stops, geo.Stop{Lat: p.Lat, Lng: p.Lng, Label: p.Name})
	}
	var dest *geo.Stop
	if destLat, err := strconv.ParseFloat(c.Query("dest_lat"), 64); err == nil {
		if destLng, err := strconv.ParseFloat(c.Query("dest_lng"), 64); err == nil {
			dest = &geo.Stop{Lat: destLat, Lng: destLng, Label: "Destination"}
		}
	}
	ordered := geo.Sequence(origin, stops, dest)
	distance := geo.TotalKm(origin, ordered)
	c.JSON(http.StatusOK, gin.H{
		"origin":       origin,
		"stops":        ordered,
		"distance_km":  distance,
		"delivery_fee": s.fees.For(distance),
	})
}

func (s *Server) listPharmacies(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	pharmacies, err := s.pharmacies.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, pharmacies)
}

func (s *Server) getPharmacy(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := s.pharmacies.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pharmacy not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) pharmacyListings(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	listings, err := s.pharmacies.ListingsForPharmacy(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, listings)
}

type productReq struct {
	Name                 string `json:"name" binding:"required"`
	Provider             string `json:"provider"`
	Description          string `json:"description"`
	Reference            string `json:"reference"`
	Category             string `json:"category"`
	PrescriptionRequired bool   `json:"prescription_required"`
	DisplayPrice         *bool  `json:"display_price"`
	AllowOrder           *bool  `json:"allow_order"`
	AllowReviews         *bool  `json:"allow_reviews"`
}

func (r *productReq) toModel(id int64) *models.Product {
	flag := func(v *bool) bool {
		if v == nil {
			return true
		}
		return *v
	}
	return &models.Product{
		ID:                   id,
		Name:                 r.Name,
		Provider:             r.Provider,
		Description:          r.Description,
		Reference:            r.Reference,
		Category:             r.Category,
		PrescriptionRequired: r.PrescriptionRequired,
		DisplayPrice:         flag(r.DisplayPrice),
		AllowOrder:           flag(r.AllowOrder),
		AllowReviews:         flag(r.AllowReviews),
	}
}

func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.Create(c.Request.Context(), req.toModel(0))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := s.products.Update(c.Request.Context(), req.toModel(id)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.products.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type pharmacyReq struct {
	Name        string  `json:"name" binding:"required"`
	Address     string  `json:"address"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Phone       string  `json:"phone"`
	OwnerUserID *int64  `json:"owner_user_id"`
}

func (s *Server) createPharmacy(c *gin.Context) {
	var req pharmacyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.pharmacies.Create(c.Request.Context(), &models.Pharmacy{
		Name: req.Name, Address: req.Address, Lat: req.Lat, Lng: req.Lng, Phone: req.Phone,
		OwnerUserID: req.OwnerUserID,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) deletePharmacy(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.pharmacies.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type listingReq struct {
	UnitPrice float64 `json:"unit_price"`
	Quantity  int64   `json:"quantity"`
}

// upsertListing lets a pharmacy account manage its own listings. The
// principal must own the pharmacy; admins bypass the ownership check.
func (s *Server) upsertListing(c *gin.Context) {
	pharmacyID, ok := pathID(c, "id")
	if !ok {
		return
	}
	productID, ok := pathID(c, "productID")
	if !ok {
		return
	}
	ph, err := s.pharmacies.GetByID(c.Request.Context(), pharmacyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if ph == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pharmacy not found"})
		return
	}
	p := principal(c)
	if p.Role != models.RoleAdmin && (ph.OwnerUserID == nil || *ph.OwnerUserID != p.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	var req listingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UnitPrice < 0 || req.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price and quantity must not be negative"})
		return
	}
	err = s.pharmacies.UpsertListing(c.Request.Context(), &models.Listing{
		PharmacyID: pharmacyID, ProductID: productID, UnitPrice: req.UnitPrice, Quantity: req.Quantity,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}
