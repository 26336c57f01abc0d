package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/laporpak-api/internal/dto"
	"github.com/noah-isme/laporpak-api/internal/models"
	appErrors "github.com/noah-isme/laporpak-api/pkg/errors"
)

type reportSummarizer interface {
	Summary(ctx context.Context, userID string, now time.Time) (*models.ReportSummary, error)
}

// DashboardService computes dashboard counters, cached until the next write.
type DashboardService struct {
	reports reportSummarizer
	cache   *CacheService
	logger  *zap.Logger
	now     func() time.Time
}

// NewDashboardService constructs the service.
func NewDashboardService(reports reportSummarizer, cache *CacheService, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{reports: reports, cache: cache, logger: logger, now: time.Now}
}

// RTStats returns the RT dashboard; need_confirmation counts every pending report.
func (s *DashboardService) RTStats(ctx context.Context) (*dto.RTDashboardStats, error) {
	var stats dto.RTDashboardStats
	if s.cache.Get(ctx, DashboardKey("rt"), &stats) {
		return &stats, nil
	}
	summary, err := s.summary(ctx, "")
	if err != nil {
		return nil, err
	}
	stats = dto.RTDashboardStats{
		Total: summary.Total,
		ByStatus: dto.StatusCounts{
			All:        summary.Total,
			Pending:    summary.Pending,
			OnHold:     summary.OnHold,
			InProgress: summary.InProgress,
			Done:       summary.Done,
		},
		Today:            summary.Today,
		ThisMonth:        summary.ThisMonth,
		NeedConfirmation: summary.Pending,
	}
	s.cache.Set(ctx, DashboardKey("rt"), stats, 0)
	return &stats, nil
}

// AdminStats returns the admin dashboard; pending only counts RT recommended reports.
func (s *DashboardService) AdminStats(ctx context.Context) (*dto.AdminDashboardStats, error) {
	var stats dto.AdminDashboardStats
	if s.cache.Get(ctx, DashboardKey("admin"), &stats) {
		return &stats, nil
	}
	summary, err := s.summary(ctx, "")
	if err != nil {
		return nil, err
	}
	stats = dto.AdminDashboardStats{
		Total: summary.Total,
		ByStatus: dto.StatusCounts{
			All:        summary.Total,
			Pending:    summary.PendingRecommended,
			OnHold:     summary.OnHold,
			InProgress: summary.InProgress,
			Done:       summary.Done,
		},
		Today:      summary.Today,
		ThisMonth:  summary.ThisMonth,
		NeedReview: summary.PendingRecommended,
	}
	s.cache.Set(ctx, DashboardKey("admin"), stats, 0)
	return &stats, nil
}

// Statistics returns per-status totals, optionally scoped to the caller's own reports.
func (s *DashboardService) Statistics(ctx context.Context, actor models.Actor, mine bool) (*dto.ReportStatistics, error) {
	userID := ""
	key := DashboardKey("stats:all")
	if mine {
		userID = actor.ID
		key = DashboardKey("stats:user:" + actor.ID)
	}

	var stats dto.ReportStatistics
	if s.cache.Get(ctx, key, &stats) {
		return &stats, nil
	}
	summary, err := s.summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats = dto.ReportStatistics{
		Total:      summary.Total,
		Pending:    summary.Pending,
		OnHold:     summary.OnHold,
		InProgress: summary.InProgress,
		Done:       summary.Done,
	}
	s.cache.Set(ctx, key, stats, 0)
	return &stats, nil
}

func (s *DashboardService) summary(ctx context.Context, userID string) (*models.ReportSummary, error) {
	summary, err := s.reports.Summary(ctx, userID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute report statistics")
	}
	return summary, nil
}
