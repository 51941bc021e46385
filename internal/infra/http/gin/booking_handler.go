package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	bookingsvc "rentverse/internal/app/services/booking"
)

type BookingHandler struct {
	Service *bookingsvc.Service
}

type createBookingRequest struct {
	PropertyID       string `json:"property_id"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	TotalAmount      int64  `json:"total_amount"`
	Currency         string `json:"currency"`
	SecurityDeposit  int64  `json:"security_deposit"`
	PaymentType      string `json:"payment_type"`
	InstallmentCount int    `json:"installment_count"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Create(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "booking service unavailable"})
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	start, ok := parseDate(c, "start_date", req.StartDate)
	if !ok {
		return
	}
	end, ok := parseDate(c, "end_date", req.EndDate)
	if !ok {
		return
	}
	result, err := h.Service.Create(c.Request.Context(), bookingsvc.CreateParams{
		PropertyID:       req.PropertyID,
		TenantID:         p.ID,
		Start:            start,
		End:              end,
		TotalAmount:      req.TotalAmount,
		Currency:         req.Currency,
		SecurityDeposit:  req.SecurityDeposit,
		PaymentType:      req.PaymentType,
		InstallmentCount: req.InstallmentCount,
		IdempotencyKey:   c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "booking service unavailable"})
		return
	}
	view, err := h.Service.Get(c.Request.Context(), c.Param("id"), p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "booking service unavailable"})
		return
	}
	var req cancelBookingRequest
	// Reason is optional, an empty body is fine.
	_ = c.ShouldBindJSON(&req)
	view, err := h.Service.Cancel(c.Request.Context(), bookingsvc.CancelParams{
		BookingID: c.Param("id"),
		CallerID:  p.ID,
		Reason:    req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h BookingHandler) Availability(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "booking service unavailable"})
		return
	}
	start, ok := parseDate(c, "start", c.Query("start"))
	if !ok {
		return
	}
	end, ok := parseDate(c, "end", c.Query("end"))
	if !ok {
		return
	}
	view, err := h.Service.CheckAvailability(c.Request.Context(), bookingsvc.AvailabilityParams{
		PropertyID: c.Param("id"),
		Start:      start,
		End:        end,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h BookingHandler) ListMine(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "booking service unavailable"})
		return
	}
	collection, err := h.Service.ListForTenant(c.Request.Context(), p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, collection)
}

// parseDate accepts both plain dates and RFC 3339 timestamps.
func parseDate(c *gin.Context, field, raw string) (time.Time, bool) {
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": field + " is required"})
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": field + " must be YYYY-MM-DD"})
	return time.Time{}, false
}

var _ BookingHTTP = BookingHandler{}
