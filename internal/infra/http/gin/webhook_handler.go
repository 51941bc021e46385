package ginserver

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	paymentsvc "rentverse/internal/app/services/payment"
)

type WebhookHandler struct {
	Service *paymentsvc.Service
	// Token is the shared secret the gateway sends back on callbacks.
	Token  string
	Logger *slog.Logger
}

type paymentCallbackRequest struct {
	ExternalID    string    `json:"external_id"`
	Status        string    `json:"status"`
	PaidAmount    int64     `json:"paid_amount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method"`
	PaidAt        time.Time `json:"paid_at"`
}

// PaymentCallback acknowledges every authenticated callback with 200 so
// the gateway stops retrying; the body reports whether anything changed.
func (h WebhookHandler) PaymentCallback(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment service unavailable"})
		return
	}
	token := c.GetHeader("X-Callback-Token")
	if h.Token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.Token)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid callback token"})
		return
	}
	var req paymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	ack, err := h.Service.HandleWebhook(c.Request.Context(), paymentsvc.WebhookParams{
		Status:     req.Status,
		ExternalID: req.ExternalID,
		Amount:     req.PaidAmount,
		Currency:   req.Currency,
		Method:     req.PaymentMethod,
		PaidAt:     req.PaidAt,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("payment callback failed", "external_id", req.ExternalID, "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, ack)
}

var _ WebhookHTTP = WebhookHandler{}
