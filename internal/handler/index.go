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

type IndexHandler struct {
	Repo          repository.Repository
	Indices       *service.IndexService
	Readjustments *service.ReadjustmentService
}

func (h *IndexHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/indices")
	group.POST("", h.importSample)
	group.GET("", h.list)
	r.GET("/api/v1/readjustments/pending", h.pending)
}

type importSampleRequest struct {
	IndexType string          `json:"index_type" binding:"required"`
	Year      int             `json:"year" binding:"required"`
	Month     int             `json:"month" binding:"required"`
	Percent   decimal.Decimal `json:"percent"`
	Source    string          `json:"source"`
}

func (h *IndexHandler) importSample(c *gin.Context) {
	if h.Indices == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req importSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	sample, err := h.Indices.ImportSample(c.Request.Context(), req.IndexType, req.Year, req.Month, req.Percent, req.Source)
	if err != nil {
		DomainError(c, err)
		return
	}
	Ok(c, sample, nil)
}

func (h *IndexHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListIndexSamplesParams{
		Limit:   intQuery(c, "limit", 200),
		Offset:  intQuery(c, "offset", 0),
		OrderBy: "year, month",
		Asc:     boolPtr(true),
	}
	if indexType := strings.ToUpper(strings.TrimSpace(c.Query("index_type"))); indexType != "" {
		params.IndexType = &indexType
	}
	if year := intQuery(c, "year", 0); year > 0 {
		params.Year = &year
	}
	items, err := h.Repo.ListIndexSamples(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *IndexHandler) pending(c *gin.Context) {
	if h.Readjustments == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	items, err := h.Readjustments.PendingList(c.Request.Context(), time.Now().UTC())
	if err != nil {
		DomainError(c, err)
		return
	}
	Ok(c, items, nil)
}
