package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"contratos/internal/service"
)

type InstallmentHandler struct {
	Slips   *service.SlipService
	Overdue *service.OverdueService
}

func (h *InstallmentHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/installments")
	group.POST("/:id/slip", h.issueSlip)
	group.POST("/:id/payment", h.registerPayment)
	group.DELETE("/:id/payment", h.cancelPayment)
}

func (h *InstallmentHandler) issueSlip(c *gin.Context) {
	if h.Slips == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		return
	}
	force := boolQueryDefault(c, "force", false)
	result, err := h.Slips.IssueSlip(c.Request.Context(), id, force)
	if err != nil {
		DomainError(c, err)
		return
	}
	Ok(c, result, nil)
}

type paymentRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	PaidAt string           `json:"paid_at"`
}

func (h *InstallmentHandler) registerPayment(c *gin.Context) {
	if h.Overdue == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	var paidAt time.Time
	if req.PaidAt != "" {
		parsed, err := time.Parse("2006-01-02", req.PaidAt)
		if err != nil {
			Error(c, http.StatusBadRequest, "paid_at must be YYYY-MM-DD", nil)
			return
		}
		paidAt = parsed
	}
	item, err := h.Overdue.RegisterPayment(c.Request.Context(), id, req.Amount, paidAt)
	if err != nil {
		DomainError(c, err)
		return
	}
	Ok(c, item, nil)
}

func (h *InstallmentHandler) cancelPayment(c *gin.Context) {
	if h.Overdue == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		return
	}
	item, err := h.Overdue.CancelPayment(c.Request.Context(), id)
	if err != nil {
		DomainError(c, err)
		return
	}
	Ok(c, item, nil)
}
