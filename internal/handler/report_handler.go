package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/laporpak-api/internal/dto"
	"github.com/noah-isme/laporpak-api/internal/models"
	"github.com/noah-isme/laporpak-api/internal/service"
	appErrors "github.com/noah-isme/laporpak-api/pkg/errors"
	"github.com/noah-isme/laporpak-api/pkg/response"
)

type reportService interface {
	Submit(ctx context.Context, actor models.Actor, req dto.CreateReportRequest, photo *dto.PhotoUpload) (*models.Report, error)
	Detail(ctx context.Context, actor models.Actor, id string) (*dto.ReportDetail, error)
	History(ctx context.Context, id string) ([]models.ReportHistory, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

type reportLister interface {
	List(ctx context.Context, actor models.Actor, perspective service.Perspective, q dto.ReportListQuery) ([]models.Report, *models.Pagination, error)
}

type statisticsProvider interface {
	Statistics(ctx context.Context, actor models.Actor, mine bool) (*dto.ReportStatistics, error)
}

// ReportHandler exposes the citizen facing report endpoints.
type ReportHandler struct {
	reports  reportService
	queries  reportLister
	stats    statisticsProvider
	workflow *WorkflowHandler
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService, queries reportLister, stats statisticsProvider, workflow *WorkflowHandler) *ReportHandler {
	return &ReportHandler{reports: reports, queries: queries, stats: stats, workflow: workflow}
}

// List godoc
// @Summary List reports
// @Tags Reports
// @Produce json
// @Param status query string false "pending, on_hold, in_progress, done or all"
// @Param my_reports query bool false "Only the caller's reports"
// @Param date query string false "Report date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param per_page query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Router /api/reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	listReports(c, h.queries, service.PerspectiveCitizen)
}

// Create godoc
// @Summary Submit a report
// @Tags Reports
// @Accept json,mpfd
// @Produce json
// @Param payload body dto.CreateReportRequest true "Report draft"
// @Param photo formData file false "JPEG or PNG photo"
// @Success 201 {object} response.Envelope
// @Router /api/reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateReportRequest
	var photo *dto.PhotoUpload
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBind(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
		if fh, err := c.FormFile("photo"); err == nil {
			file, err := fh.Open()
			if err != nil {
				response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable photo"))
				return
			}
			defer file.Close()
			photo = &dto.PhotoUpload{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Body:        file,
			}
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	report, err := h.reports.Submit(c.Request.Context(), actor, req, photo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// Statistics godoc
// @Summary Report counters by status
// @Tags Reports
// @Produce json
// @Param my_stats query bool false "Only the caller's reports"
// @Success 200 {object} response.Envelope
// @Router /api/reports/statistics [get]
func (h *ReportHandler) Statistics(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	mine, _ := strconv.ParseBool(c.DefaultQuery("my_stats", "false"))
	stats, err := h.stats.Statistics(c.Request.Context(), actor, mine)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Show godoc
// @Summary Report detail with history and available actions
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /api/reports/{id} [get]
func (h *ReportHandler) Show(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.reports.Detail(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// History godoc
// @Summary Report status history, oldest first
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /api/reports/{id}/history [get]
func (h *ReportHandler) History(c *gin.Context) {
	entries, err := h.reports.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// UpdateStatus godoc
// @Summary Override the status of a report
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.UpdateStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /api/reports/{id}/update-status [post]
func (h *ReportHandler) UpdateStatus(c *gin.Context) {
	h.workflow.UpdateStatus(c)
}

// Delete godoc
// @Summary Delete a report
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /api/reports/{id} [delete]
func (h *ReportHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.reports.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "report deleted", nil)
}

func listReports(c *gin.Context, queries reportLister, perspective service.Perspective) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var q dto.ReportListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	reports, pagination, err := queries.List(c.Request.Context(), actor, perspective, q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, pagination)
}
