package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"contratos/internal/billing"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// DomainError maps the billing sentinels onto HTTP statuses.
func DomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, billing.ErrNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, billing.ErrAlreadyPaid),
		errors.Is(err, billing.ErrDuplicateReadjustment),
		errors.Is(err, billing.ErrInvalidTransition):
		Error(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, billing.ErrIssuanceBlocked),
		errors.Is(err, billing.ErrMissingIndexSample):
		Error(c, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, billing.ErrInvalidTerms),
		errors.Is(err, billing.ErrNoEligible):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	default:
		Error(c, http.StatusInternalServerError, err.Error(), nil)
	}
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func boolQueryDefault(c *gin.Context, key string, def bool) bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}

func uint64Param(c *gin.Context, key string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil || id == 0 {
		Error(c, http.StatusBadRequest, "invalid "+key, nil)
		return 0, false
	}
	return id, true
}

func paginationMeta(limit, offset int, total int64) map[string]any {
	if limit <= 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	hasNext := int64(offset+limit) < total
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"has_next": hasNext,
	}
}

func boolPtr(v bool) *bool { return &v }
