package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"contratos/internal/models"
	"contratos/internal/repository"
	"contratos/internal/service"
)

type AccountHandler struct {
	Repo        repository.Repository
	Remittances *service.RemittanceService
	Settlements *service.SettlementService
}

func (h *AccountHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/accounts")
	group.POST("", h.create)
	group.GET("", h.list)
	group.POST("/:id/remittances", h.generateRemittance)
	group.GET("/:id/remittances", h.listRemittances)
	group.POST("/:id/settlements", h.ingestSettlement)
	group.GET("/:id/settlements", h.listSettlements)

	r.GET("/api/v1/remittances/:id/file", h.remittanceFile)
	r.POST("/api/v1/remittances/:id/sent", h.markRemittanceSent)
	r.GET("/api/v1/settlements/:id", h.settlementBatch)
}

type createAccountRequest struct {
	BankCode    string `json:"bank_code" binding:"required"`
	Agency      string `json:"agency" binding:"required"`
	Number      string `json:"number" binding:"required"`
	Wallet      string `json:"wallet"`
	Beneficiary string `json:"beneficiary" binding:"required"`
	Layout      string `json:"layout"`
}

func (h *AccountHandler) create(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	layout := strings.ToUpper(strings.TrimSpace(req.Layout))
	if layout == "" {
		layout = models.LayoutCNAB400
	}
	if layout != models.LayoutCNAB240 && layout != models.LayoutCNAB400 {
		Error(c, http.StatusBadRequest, "layout must be CNAB240 or CNAB400", nil)
		return
	}
	wallet := strings.TrimSpace(req.Wallet)
	if wallet == "" {
		wallet = "17"
	}
	account := &models.BankAccount{
		BankCode:          strings.TrimSpace(req.BankCode),
		Agency:            strings.TrimSpace(req.Agency),
		Number:            strings.TrimSpace(req.Number),
		Wallet:            wallet,
		Beneficiary:       strings.TrimSpace(req.Beneficiary),
		Layout:            layout,
		NextSlipNumber:    1,
		NextRemittanceSeq: 1,
		Active:            true,
	}
	if err := h.Repo.CreateBankAccount(c.Request.Context(), account); err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, account, nil)
}

func (h *AccountHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListBankAccounts(c.Request.Context(), repository.ListBankAccountsParams{
		Limit:   intQuery(c, "limit", 100),
		Offset:  intQuery(c, "offset", 0),
		OrderBy: "id",
		Asc:     boolPtr(true),
	})
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *AccountHandler) generateRemittance(c *gin.Context) {
	if h.Remittances == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		return
	}
	batch, err := h.Remittances.Generate(c.Request.Context(), id)
	if err != nil {
		DomainError(c, err)
		return
	}
	Ok(c, batch, nil)
}

func (h *AccountHandler) ingestSettlement(c *gin.Context) {
	if h.Settlements == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		return
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil || len(data) == 0 {
		Error(c, http.StatusBadRequest, "empty return file", nil)
		return
	}
	batch, err := h.Settlements.Ingest(c.Request.Context(), id, data)
	if err != nil {
		DomainError(c, err)
		return
	}
	Ok(c, batch, nil)
}

func (h *AccountHandler) listRemittances(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		return
	}
	params := repository.ListRemittanceBatchesParams{
		Limit:         intQuery(c, "limit", 100),
		Offset:        intQuery(c, "offset", 0),
		BankAccountID: &id,
		OrderBy:       "created_at",
		Asc:           boolPtr(false),
	}
	if status := strings.ToUpper(strings.TrimSpace(c.Query("status"))); status != "" {
		params.Status = &status
	}
	items, err := h.Repo.ListRemittanceBatches(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *AccountHandler) listSettlements(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		return
	}
	params := repository.ListSettlementBatchesParams{
		Limit:         intQuery(c, "limit", 100),
		Offset:        intQuery(c, "offset", 0),
		BankAccountID: &id,
		OrderBy:       "created_at",
		Asc:           boolPtr(false),
	}
	if status := strings.ToUpper(strings.TrimSpace(c.Query("status"))); status != "" {
		params.Status = &status
	}
	items, err := h.Repo.ListSettlementBatches(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *AccountHandler) markRemittanceSent(c *gin.Context) {
	if h.Remittances == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		return
	}
	if err := h.Remittances.MarkSent(c.Request.Context(), id); err != nil {
		DomainError(c, err)
		return
	}
	Ok(c, gin.H{"status": models.RemittanceSent}, nil)
}

func (h *AccountHandler) remittanceFile(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		return
	}
	batch, err := h.Repo.GetRemittanceBatchByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if batch == nil {
		Error(c, http.StatusNotFound, "remittance batch not found", nil)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+batch.FileName+`"`)
	c.Data(http.StatusOK, "text/plain; charset=ascii", batch.FileBytes)
}

func (h *AccountHandler) settlementBatch(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		return
	}
	batch, err := h.Repo.GetSettlementBatchByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if batch == nil {
		Error(c, http.StatusNotFound, "settlement batch not found", nil)
		return
	}
	records, err := h.Repo.ListSettlementRecordsByBatch(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"batch": batch, "records": records}, nil)
}
