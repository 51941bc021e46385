package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	paymentsvc "rentverse/internal/app/services/payment"
)

type PaymentHandler struct {
	Service *paymentsvc.Service
}

type payRequest struct {
	Method string `json:"method"`
}

func (h PaymentHandler) Pay(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment service unavailable"})
		return
	}
	var req payRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	result, err := h.Service.Pay(c.Request.Context(), paymentsvc.PayParams{
		InstallmentID: c.Param("id"),
		CallerID:      p.ID,
		Method:        req.Method,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	// Online payments come back as a checkout redirect, cash as a receipt.
	if result.Initiated != nil {
		c.JSON(http.StatusAccepted, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PaymentHandler) Confirm(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment service unavailable"})
		return
	}
	settled, err := h.Service.Confirm(c.Request.Context(), paymentsvc.ConfirmParams{
		InstallmentID: c.Param("id"),
		CallerID:      p.ID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settled)
}

func (h PaymentHandler) CancelPending(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment service unavailable"})
		return
	}
	err := h.Service.CancelPending(c.Request.Context(), paymentsvc.CancelParams{
		InstallmentID: c.Param("id"),
		CallerID:      p.ID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h PaymentHandler) ListMine(c *gin.Context) {
	h.list(c, false)
}

func (h PaymentHandler) ListUnpaid(c *gin.Context) {
	h.list(c, true)
}

func (h PaymentHandler) list(c *gin.Context, unpaidOnly bool) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment service unavailable"})
		return
	}
	var err error
	var collection any
	if unpaidOnly {
		collection, err = h.Service.ListUnpaid(c.Request.Context(), p.ID)
	} else {
		collection, err = h.Service.ListForTenant(c.Request.Context(), p.ID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, collection)
}

var _ PaymentHTTP = PaymentHandler{}
