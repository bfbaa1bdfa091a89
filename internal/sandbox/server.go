// Package sandbox is an in-process fake of the SwiftRush delivery API. It
// backs the example program and integration-style tests: an OAuth token
// endpoint, quoting, confirmation, status polls with courier movement, the
// sandbox status override, cancellation and ratings.
package sandbox

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swiftrush/rush-go/pkg/geo"
	"github.com/swiftrush/rush-go/pkg/models"
)

// Server simulates the delivery backend over a real HTTP surface so the full
// transport stack, token flow included, is exercised.
type Server struct {
	engine *gin.Engine
	store  *store
	logger *zap.Logger
}

// NewServer builds the fake backend.
func NewServer(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine: engine,
		store:  newStore(),
		logger: logger,
	}

	engine.POST("/token", s.issueToken)
	engine.POST("/deliveries/quote", s.createQuote)
	engine.POST("/deliveries", s.createDelivery)
	engine.GET("/deliveries", s.listDeliveries)
	engine.GET("/deliveries/:id", s.getDelivery)
	engine.POST("/deliveries/:id/cancel", s.cancelDelivery)
	engine.POST("/deliveries/:id/ratings", s.createRating)
	engine.GET("/deliveries/:id/ratings", s.listRatings)
	engine.GET("/deliveries/:id/rating_tags", s.listRatingTags)
	engine.PUT("/sandbox/deliveries/:id", s.overrideStatus)

	return s
}

// Handler returns the server as an http.Handler for httptest or ListenAndServe.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// issueToken fakes the OAuth2 client-credentials token endpoint. Any
// credentials are accepted.
// POST /token
func (s *Server) issueToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"access_token": "sandbox-" + uuid.NewString(),
		"token_type":   "bearer",
		"expires_in":   3600,
		"scope":        "delivery_sandbox",
	})
}

type quoteRequest struct {
	Pickup  *models.Waypoint `json:"pickup" binding:"required"`
	Dropoff *models.Waypoint `json:"dropoff" binding:"required"`
}

// createQuote prices a pickup/dropoff pair and issues two candidates.
// POST /deliveries/quote
func (s *Server) createQuote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !req.Pickup.HasLocation() || !req.Dropoff.HasLocation() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "pickup and dropoff locations are required"})
		return
	}

	now := time.Now()
	quotes := make([]gin.H, 0, 2)

	s.store.mu.Lock()
	for i, fee := range []float64{12.5, 15.75} {
		quote := &quoteRecord{
			ID:           "qt_" + uuid.NewString(),
			Fee:          fee,
			CurrencyCode: "USD",
			PickupETA:    6 + 3*i,
			DropoffETA:   20 + 3*i,
			Pickup:       req.Pickup,
			Dropoff:      req.Dropoff,
		}
		s.store.quotes[quote.ID] = quote

		quotes = append(quotes, gin.H{
			"quote_id":      quote.ID,
			"fee":           quote.Fee,
			"currency_code": quote.CurrencyCode,
			"pickup_eta":    quote.PickupETA,
			"dropoff_eta":   quote.DropoffETA,
			"start_time":    now.Unix(),
			"end_time":      now.Add(15 * time.Minute).Unix(),
		})
	}
	s.store.mu.Unlock()

	s.logger.Debug("issued quotes", zap.Int("count", len(quotes)))
	c.JSON(http.StatusCreated, gin.H{"quotes": quotes})
}

type createDeliveryRequest struct {
	QuoteID             string           `json:"quote_id"`
	OrderReferenceID    string           `json:"order_reference_id"`
	Pickup              *models.Waypoint `json:"pickup"`
	Dropoff             *models.Waypoint `json:"dropoff"`
	Items               []models.Item    `json:"items"`
	SpecialInstructions string           `json:"special_instructions"`
	SignatureRequired   bool             `json:"signature_required"`
}

// createDelivery confirms a quote into a live delivery with a courier
// already dispatched.
// POST /deliveries
func (s *Server) createDelivery(c *gin.Context) {
	var req createDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Pickup == nil || !req.Pickup.HasLocation() || req.Dropoff == nil || !req.Dropoff.HasLocation() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "pickup and dropoff locations are required"})
		return
	}

	s.store.mu.Lock()
	record := &deliveryRecord{
		ID:               "del_" + uuid.NewString(),
		QuoteID:          req.QuoteID,
		OrderReferenceID: req.OrderReferenceID,
		Fee:              12.5,
		CurrencyCode:     "USD",
		Status:           "en_route_to_pickup",
		Pickup:           req.Pickup,
		Dropoff:          req.Dropoff,
		Items:            req.Items,
		PickupETA:        6,
		DropoffETA:       20,
		Courier: courierRecord{
			Name:       "Rob",
			Phone:      "+12155551212",
			PictureURL: "https://sandbox-api.swiftrush.com/couriers/rob.jpg",
			Vehicle: &models.Vehicle{
				LicensePlate: "RUSHNYC",
				Make:         "Acura",
				Model:        "ZDX",
			},
			Position: geo.Position{Latitude: 40.6794, Longitude: -74.0014, Bearing: 33},
		},
	}
	if quote, ok := s.store.quotes[req.QuoteID]; ok {
		record.Fee = quote.Fee
		record.CurrencyCode = quote.CurrencyCode
		record.PickupETA = quote.PickupETA
		record.DropoffETA = quote.DropoffETA
	}
	s.store.deliveries[record.ID] = record
	s.store.mu.Unlock()

	s.logger.Debug("created delivery", zap.String("delivery_id", record.ID))
	c.JSON(http.StatusCreated, record.snapshot())
}

// getDelivery returns the delivery's current state, advancing the courier a
// step so consecutive polls observe movement.
// GET /deliveries/:id
func (s *Server) getDelivery(c *gin.Context) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	record, ok := s.store.deliveries[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "delivery not found"})
		return
	}

	record.advance()
	c.JSON(http.StatusOK, record.snapshot())
}

// listDeliveries returns every delivery the sandbox knows about.
// GET /deliveries
func (s *Server) listDeliveries(c *gin.Context) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	out := make([]gin.H, 0, len(s.store.deliveries))
	for _, record := range s.store.deliveries {
		out = append(out, record.snapshot())
	}
	c.JSON(http.StatusOK, out)
}

type statusOverrideRequest struct {
	Status string `json:"status" binding:"required"`
}

// overrideStatus sets the status the next poll reports. This is the sandbox
// hook the simulation driver uses to walk a delivery through its lifecycle.
// PUT /sandbox/deliveries/:id
func (s *Server) overrideStatus(c *gin.Context) {
	var req statusOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	record, ok := s.store.deliveries[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "delivery not found"})
		return
	}

	record.Status = req.Status
	s.logger.Debug("status override",
		zap.String("delivery_id", record.ID),
		zap.String("status", req.Status),
	)
	c.JSON(http.StatusOK, gin.H{"delivery_id": record.ID, "status": record.Status})
}

// cancelDelivery cancels an in-flight delivery.
// POST /deliveries/:id/cancel
func (s *Server) cancelDelivery(c *gin.Context) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	record, ok := s.store.deliveries[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "delivery not found"})
		return
	}

	record.Status = "client_canceled"
	c.JSON(http.StatusOK, record.snapshot())
}

// createRating records a rating for a delivery.
// POST /deliveries/:id/ratings
func (s *Server) createRating(c *gin.Context) {
	var rating models.RatingPayload
	if err := c.ShouldBindJSON(&rating); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	record, ok := s.store.deliveries[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "delivery not found"})
		return
	}

	record.Ratings = append(record.Ratings, map[string]interface{}{
		"waypoint":     rating.Waypoint,
		"rating_type":  rating.RatingType,
		"rating_value": rating.RatingValue,
		"tags":         rating.Tags,
	})
	c.JSON(http.StatusCreated, gin.H{"delivery_id": record.ID})
}

// listRatings returns the ratings recorded for a delivery.
// GET /deliveries/:id/ratings
func (s *Server) listRatings(c *gin.Context) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	record, ok := s.store.deliveries[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "delivery not found"})
		return
	}

	ratings := record.Ratings
	if ratings == nil {
		ratings = []map[string]interface{}{}
	}
	c.JSON(http.StatusOK, gin.H{"ratings": ratings})
}

// listRatingTags returns the rating tag vocabulary per waypoint.
// GET /deliveries/:id/rating_tags
func (s *Server) listRatingTags(c *gin.Context) {
	if _, ok := s.lookup(c.Param("id")); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "delivery not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pickup": gin.H{
			"positive": []string{"courier_on_time", "courier_professional"},
			"negative": []string{"courier_late", "items_damaged"},
		},
		"dropoff": gin.H{
			"positive": []string{"courier_on_time", "courier_professional", "smooth_handoff"},
			"negative": []string{"courier_late", "items_damaged", "wrong_address"},
		},
	})
}

func (s *Server) lookup(id string) (*deliveryRecord, bool) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	record, ok := s.store.deliveries[id]
	return record, ok
}

// snapshot renders the record in the API's delivery wire shape. Caller holds
// the store lock.
func (r *deliveryRecord) snapshot() gin.H {
	pickup := waypointJSON(r.Pickup, r.PickupETA)
	dropoff := waypointJSON(r.Dropoff, r.DropoffETA)

	return gin.H{
		"delivery_id":        r.ID,
		"quote_id":           r.QuoteID,
		"order_reference_id": r.OrderReferenceID,
		"fee":                r.Fee,
		"currency_code":      r.CurrencyCode,
		"status":             r.Status,
		"items":              r.Items,
		"pickup":             pickup,
		"dropoff":            dropoff,
		"courier": gin.H{
			"name":        r.Courier.Name,
			"phone":       r.Courier.Phone,
			"picture_url": r.Courier.PictureURL,
			"vehicle":     r.Courier.Vehicle,
			"location": gin.H{
				"latitude":  r.Courier.Position.Latitude,
				"longitude": r.Courier.Position.Longitude,
				"bearing":   r.Courier.Position.Bearing,
			},
		},
	}
}

func waypointJSON(wp *models.Waypoint, eta int) gin.H {
	out := gin.H{"eta": eta}
	if wp == nil {
		return out
	}
	if wp.Contact != nil {
		out["contact"] = wp.Contact
	}
	if wp.Location != nil {
		out["location"] = wp.Location
	}
	if wp.SpecialInstructions != "" {
		out["special_instructions"] = wp.SpecialInstructions
	}
	if wp.SignatureRequired {
		out["signature_required"] = true
	}
	return out
}
