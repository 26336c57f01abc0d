package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/laporpak-api/internal/dto"
	appErrors "github.com/noah-isme/laporpak-api/pkg/errors"
	"github.com/noah-isme/laporpak-api/pkg/response"
)

type exportService interface {
	MonthlyRecap(ctx context.Context, q dto.ExportQuery) (*dto.ExportResult, error)
}

// ExportHandler streams monthly recap files.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// MonthlyRecap godoc
// @Summary Download the monthly recap
// @Tags Review
// @Produce text/csv,application/pdf
// @Param month query int true "Month (1-12)"
// @Param year query int true "Year"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /api/admin/reports/export [get]
func (h *ExportHandler) MonthlyRecap(c *gin.Context) {
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	result, err := h.exports.MonthlyRecap(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}
