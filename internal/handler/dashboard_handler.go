package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/laporpak-api/internal/dto"
	appErrors "github.com/noah-isme/laporpak-api/pkg/errors"
	"github.com/noah-isme/laporpak-api/pkg/response"
)

type dashboardService interface {
	RTStats(ctx context.Context) (*dto.RTDashboardStats, error)
	AdminStats(ctx context.Context) (*dto.AdminDashboardStats, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// RT godoc
// @Summary RT dashboard counters
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/rt/reports/dashboard-stats [get]
func (h *DashboardHandler) RT(c *gin.Context) {
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.service.RTStats(ctx) })
}

// Admin godoc
// @Summary Admin dashboard counters
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/admin/reports/dashboard-stats [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	h.serve(c, func(ctx context.Context) (interface{}, error) { return h.service.AdminStats(ctx) })
}

func (h *DashboardHandler) serve(c *gin.Context, load func(context.Context) (interface{}, error)) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	stats, err := load(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{"processing_time_ms": time.Since(start).Milliseconds()}
	response.JSON(c, http.StatusOK, stats, nil, meta)
}
