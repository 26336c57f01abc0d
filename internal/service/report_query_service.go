package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/laporpak-api/internal/dto"
	"github.com/noah-isme/laporpak-api/internal/models"
	"github.com/noah-isme/laporpak-api/internal/repository"
	appErrors "github.com/noah-isme/laporpak-api/pkg/errors"
)

// Perspective selects how listings and approval tabs are interpreted.
type Perspective string

const (
	PerspectiveCitizen Perspective = "citizen"
	PerspectiveRT      Perspective = "rt"
	PerspectiveAdmin   Perspective = "admin"
)

// Approval tabs shown by the RT and admin UIs.
const (
	TabLaporan     = "laporan"
	TabDalamProses = "dalam_proses"
	TabSelesai     = "selesai"
	TabSemua       = "semua"
)

type reportLister interface {
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error)
	ListByMonth(ctx context.Context, month, year int) ([]models.Report, error)
}

// ReportQueryService serves read-only report projections.
type ReportQueryService struct {
	reports   reportLister
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportQueryService constructs the service.
func NewReportQueryService(reports reportLister, logger *zap.Logger) *ReportQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportQueryService{reports: reports, validator: newValidator(), logger: logger}
}

// List returns a filtered page of reports.
func (s *ReportQueryService) List(ctx context.Context, actor models.Actor, perspective Perspective, q dto.ReportListQuery) ([]models.Report, *models.Pagination, error) {
	filter := models.ReportFilter{Page: q.Page, PerPage: q.PerPage}
	if filter.PerPage <= 0 && perspective != PerspectiveCitizen {
		filter.PerPage = 20
	}

	if status := strings.TrimSpace(q.Status); status != "" && status != "all" {
		parsed, ok := models.ParseReportStatus(status)
		if !ok {
			return nil, nil, appErrors.Validation("invalid status filter", map[string]string{"status": "oneof=all pending on_hold in_progress done"})
		}
		filter.Statuses = []models.ReportStatus{parsed}
	}
	if q.MyReports {
		filter.UserID = actor.ID
	}
	if q.Date != "" {
		date, err := time.Parse("2006-01-02", q.Date)
		if err != nil {
			return nil, nil, appErrors.Validation("invalid date filter", map[string]string{"date": "datetime=2006-01-02"})
		}
		filter.ReportDate = &date
	}
	if q.Month > 0 && q.Year > 0 {
		if q.Month > 12 {
			return nil, nil, appErrors.Validation("invalid month filter", map[string]string{"month": "max=12"})
		}
		filter.Month, filter.Year = q.Month, q.Year
	}

	return s.list(ctx, filter)
}

// Approval lists reports for one approval tab. present is false when no tab was requested.
func (s *ReportQueryService) Approval(ctx context.Context, perspective Perspective, tab string, present bool, page, perPage int) ([]models.Report, *models.Pagination, error) {
	filter := ApprovalFilter(perspective, tab, present)
	filter.Page, filter.PerPage = page, perPage
	return s.list(ctx, filter)
}

func (s *ReportQueryService) list(ctx context.Context, filter models.ReportFilter) ([]models.Report, *models.Pagination, error) {
	reports, total, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	page, size := repository.NormalizePage(filter.Page, filter.PerPage)
	return reports, models.NewPagination(page, size, total), nil
}

// ApprovalFilter maps an approval tab onto (status, rt_recommended) predicates.
//
// RT tabs: laporan = pending, dalam_proses = in_progress, selesai = done, anything else = all.
// Admin tabs: laporan = pending and recommended, dalam_proses = in_progress,
// selesai = done, anything else = recommended; no tab at all = every report.
func ApprovalFilter(perspective Perspective, tab string, present bool) models.ReportFilter {
	var filter models.ReportFilter
	status := func(s models.ReportStatus) { filter.Statuses = []models.ReportStatus{s} }
	recommended := true

	if perspective == PerspectiveAdmin {
		if !present {
			return filter
		}
		switch tab {
		case TabLaporan:
			status(models.ReportStatusPending)
			filter.RTRecommended = &recommended
		case TabDalamProses:
			status(models.ReportStatusInProgress)
		case TabSelesai:
			status(models.ReportStatusDone)
		default:
			filter.RTRecommended = &recommended
		}
		return filter
	}

	switch tab {
	case TabLaporan:
		status(models.ReportStatusPending)
	case TabDalamProses:
		status(models.ReportStatusInProgress)
	case TabSelesai:
		status(models.ReportStatusDone)
	}
	return filter
}

// ByDate groups a month of reports by their report date.
func (s *ReportQueryService) ByDate(ctx context.Context, q dto.ByDateQuery) ([]dto.ReportsByDate, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, validationError(err, "invalid month or year")
	}
	reports, err := s.reports.ListByMonth(ctx, q.Month, q.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports by date")
	}

	groups := []dto.ReportsByDate{}
	index := map[string]int{}
	for _, r := range reports {
		key := r.ReportDate.Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, dto.ReportsByDate{Date: key})
		}
		groups[i].Reports = append(groups[i].Reports, r)
		groups[i].Count++
	}
	return groups, nil
}
