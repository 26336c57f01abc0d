package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/laporpak-api/internal/dto"
	"github.com/noah-isme/laporpak-api/internal/models"
	"github.com/noah-isme/laporpak-api/internal/service"
	appErrors "github.com/noah-isme/laporpak-api/pkg/errors"
	"github.com/noah-isme/laporpak-api/pkg/response"
)

type reviewQueries interface {
	reportLister
	Approval(ctx context.Context, perspective service.Perspective, tab string, present bool, page, perPage int) ([]models.Report, *models.Pagination, error)
	ByDate(ctx context.Context, q dto.ByDateQuery) ([]dto.ReportsByDate, error)
}

// ReviewHandler serves the RT and admin report listings from one perspective.
type ReviewHandler struct {
	perspective service.Perspective
	queries     reviewQueries
}

// NewReviewHandler constructs handler for the given perspective.
func NewReviewHandler(perspective service.Perspective, queries reviewQueries) *ReviewHandler {
	return &ReviewHandler{perspective: perspective, queries: queries}
}

// Index godoc
// @Summary List reports for reviewers
// @Tags Review
// @Produce json
// @Param status query string false "Status filter or all"
// @Param month query int false "Month"
// @Param year query int false "Year"
// @Param page query int false "Page"
// @Param per_page query int false "Page size (default 20)"
// @Success 200 {object} response.Envelope
// @Router /api/rt/reports [get]
// @Router /api/admin/reports [get]
func (h *ReviewHandler) Index(c *gin.Context) {
	listReports(c, h.queries, h.perspective)
}

// Approval godoc
// @Summary Approval queue by tab
// @Tags Review
// @Produce json
// @Param tab query string false "laporan, dalam_proses, selesai or semua"
// @Param page query int false "Page"
// @Param per_page query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /api/rt/reports/approval [get]
// @Router /api/admin/reports/need-approval [get]
func (h *ReviewHandler) Approval(c *gin.Context) {
	tab, present := c.GetQuery("tab")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	reports, pagination, err := h.queries.Approval(c.Request.Context(), h.perspective, tab, present, page, perPage)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, pagination, map[string]interface{}{"tab": tab})
}

// ByDate godoc
// @Summary Reports of one month grouped by report date
// @Tags Review
// @Produce json
// @Param month query int true "Month (1-12)"
// @Param year query int true "Year (>= 2020)"
// @Success 200 {object} response.Envelope
// @Router /api/rt/reports/by-date [get]
// @Router /api/admin/reports/by-date [get]
func (h *ReviewHandler) ByDate(c *gin.Context) {
	var q dto.ByDateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	groups, err := h.queries.ByDate(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil, map[string]interface{}{"month": q.Month, "year": q.Year})
}
