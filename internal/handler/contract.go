package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"contratos/internal/repository"
	"contratos/internal/service"
)

type ContractHandler struct {
	Repo          repository.Repository
	Contracts     *service.ContractService
	Readjustments *service.ReadjustmentService
	Slips         *service.SlipService
}

func (h *ContractHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/contracts")
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.GET("/:id/summary", h.summary)
	group.GET("/:id/installments", h.listInstallments)
	group.GET("/:id/readjustments", h.listReadjustments)
	group.POST("/:id/readjustments", h.applyReadjustment)
	group.POST("/:id/readjustments/simulate", h.simulateReadjustment)
	group.POST("/:id/slips", h.issueSlips)
}

type createContractRequest struct {
	Number        string `json:"number" binding:"required"`
	BankAccountID uint64 `json:"bank_account_id" binding:"required"`

	TotalValue  decimal.Decimal `json:"total_value" binding:"required"`
	DownPayment decimal.Decimal `json:"down_payment"`

	InstallmentCount int    `json:"installment_count" binding:"required"`
	DueDay           int    `json:"due_day" binding:"required"`
	FirstDueDate     string `json:"first_due_date" binding:"required"`
	ContractDate     string `json:"contract_date"`

	IndexType          string `json:"index_type"`
	ReadjustIntervalMo int    `json:"readjust_interval_months"`

	PenaltyPercent         decimal.Decimal `json:"penalty_percent"`
	MonthlyInterestPercent decimal.Decimal `json:"monthly_interest_percent"`
}

func (h *ContractHandler) create(c *gin.Context) {
	if h.Contracts == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req createContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	firstDue, err := time.Parse("2006-01-02", req.FirstDueDate)
	if err != nil {
		Error(c, http.StatusBadRequest, "first_due_date must be YYYY-MM-DD", nil)
		return
	}
	var contractDate time.Time
	if req.ContractDate != "" {
		contractDate, err = time.Parse("2006-01-02", req.ContractDate)
		if err != nil {
			Error(c, http.StatusBadRequest, "contract_date must be YYYY-MM-DD", nil)
			return
		}
	}
	contract, err := h.Contracts.Create(c.Request.Context(), service.CreateContractInput{
		Number:                 req.Number,
		BankAccountID:          req.BankAccountID,
		TotalValue:             req.TotalValue,
		DownPayment:            req.DownPayment,
		InstallmentCount:       req.InstallmentCount,
		DueDay:                 req.DueDay,
		FirstDueDate:           firstDue,
		ContractDate:           contractDate,
		IndexType:              strings.ToUpper(strings.TrimSpace(req.IndexType)),
		ReadjustIntervalMo:     req.ReadjustIntervalMo,
		PenaltyPercent:         req.PenaltyPercent,
		MonthlyInterestPercent: req.MonthlyInterestPercent,
	})
	if err != nil {
		DomainError(c, err)
		return
	}
	Ok(c, contract, nil)
}

func (h *ContractHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListContractsParams{
		Limit:   limit,
		Offset:  offset,
		OrderBy: "created_at",
		Asc:     boolPtr(false),
	}
	if number := strings.TrimSpace(c.Query("number")); number != "" {
		params.Number = &number
	}
	if indexType := strings.TrimSpace(c.Query("index_type")); indexType != "" {
		params.IndexType = &indexType
	}
	items, err := h.Repo.ListContracts(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountContracts(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *ContractHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		return
	}
	contract, err := h.Repo.GetContractByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if contract == nil {
		Error(c, http.StatusNotFound, "contract not found", nil)
		return
	}
	Ok(c, contract, nil)
}

func (h *ContractHandler) summary(c *gin.Context) {
	if h.Contracts == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		return
	}
	summary, err := h.Contracts.Summary(c.Request.Context(), id)
	if err != nil {
		DomainError(c, err)
		return
	}
	Ok(c, summary, nil)
}

func (h *ContractHandler) listInstallments(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 500)
	offset := intQuery(c, "offset", 0)
	params := repository.ListInstallmentsParams{
		Limit:      limit,
		Offset:     offset,
		ContractID: &id,
		OrderBy:    "sequence",
		Asc:        boolPtr(true),
	}
	if state := strings.TrimSpace(c.Query("slip_state")); state != "" {
		params.SlipState = &state
	}
	items, err := h.Repo.ListInstallments(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountInstallments(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *ContractHandler) listReadjustments(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		return
	}
	items, err := h.Repo.ListReadjustments(c.Request.Context(), repository.ListReadjustmentsParams{
		ContractID: &id,
		Limit:      intQuery(c, "limit", 100),
		OrderBy:    "cycle",
		Asc:        boolPtr(true),
	})
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

type readjustmentRequest struct {
	Cycle      int              `json:"cycle"`
	Percentage *decimal.Decimal `json:"percentage"`
	Notes      string           `json:"notes"`
}

func (h *ContractHandler) applyReadjustment(c *gin.Context) {
	h.runReadjustment(c, false)
}

func (h *ContractHandler) simulateReadjustment(c *gin.Context) {
	h.runReadjustment(c, true)
}

func (h *ContractHandler) runReadjustment(c *gin.Context, simulate bool) {
	if h.Readjustments == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		return
	}
	var req readjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	input := service.ApplyInput{
		ContractID: id,
		Cycle:      req.Cycle,
		Percentage: req.Percentage,
		Manual:     req.Percentage != nil,
		Notes:      req.Notes,
	}
	var (
		result *service.ApplyResult
		err    error
	)
	if simulate {
		result, err = h.Readjustments.Simulate(c.Request.Context(), input)
	} else {
		result, err = h.Readjustments.Apply(c.Request.Context(), input)
	}
	if err != nil {
		DomainError(c, err)
		return
	}
	Ok(c, result, nil)
}

func (h *ContractHandler) issueSlips(c *gin.Context) {
	if h.Slips == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		return
	}
	result, err := h.Slips.IssueBatch(c.Request.Context(), id)
	if err != nil {
		DomainError(c, err)
		return
	}
	Ok(c, result, nil)
}
