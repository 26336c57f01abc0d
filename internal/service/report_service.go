package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/laporpak-api/internal/dto"
	"github.com/noah-isme/laporpak-api/internal/models"
	"github.com/noah-isme/laporpak-api/internal/repository"
	"github.com/noah-isme/laporpak-api/internal/workflow"
	appErrors "github.com/noah-isme/laporpak-api/pkg/errors"
	"github.com/noah-isme/laporpak-api/pkg/storage"
)

const reportCreatedNote = "Report created"

var allowedPhotoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

type reportStore interface {
	Create(ctx context.Context, report *models.Report, entry *models.ReportHistory) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	Delete(ctx context.Context, id string) error
}

type historyReader interface {
	ListByReport(ctx context.Context, reportID string) ([]models.ReportHistory, error)
}

type photoJanitor interface {
	Schedule(reportID, photo string) error
}

type photoSigner interface {
	Generate(reportID, photoPath string) (string, time.Time, error)
	Parse(token string) (string, string, error)
}

// ReportServiceConfig tunes photo handling.
type ReportServiceConfig struct {
	MaxPhotoSize   int64
	PhotoURLPrefix string
}

// ReportService handles filing, reading and deleting reports.
type ReportService struct {
	reports   reportStore
	history   historyReader
	photos    storage.PhotoStore
	signer    photoSigner
	policy    *workflow.Policy
	machine   *workflow.Machine
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportServiceConfig
	janitor   photoJanitor
	now       func() time.Time
}

// ReportServiceOption configures the service.
type ReportServiceOption func(*ReportService)

// WithPhotoJanitor retries photo deletions that fail inline.
func WithPhotoJanitor(janitor photoJanitor) ReportServiceOption {
	return func(s *ReportService) {
		s.janitor = janitor
	}
}

// NewReportService constructs the service. signer may be nil to omit photo links.
func NewReportService(
	reports reportStore,
	history historyReader,
	photos storage.PhotoStore,
	signer photoSigner,
	policy *workflow.Policy,
	machine *workflow.Machine,
	cache *CacheService,
	metrics *MetricsService,
	cfg ReportServiceConfig,
	logger *zap.Logger,
	opts ...ReportServiceOption,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxPhotoSize <= 0 {
		cfg.MaxPhotoSize = 5 * 1024 * 1024
	}
	if cfg.PhotoURLPrefix == "" {
		cfg.PhotoURLPrefix = "/photos/"
	}
	svc := &ReportService{
		reports:   reports,
		history:   history,
		photos:    photos,
		signer:    signer,
		policy:    policy,
		machine:   machine,
		cache:     cache,
		metrics:   metrics,
		validator: newValidator(),
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit validates the draft, stores the optional photo and files the report.
func (s *ReportService) Submit(ctx context.Context, actor models.Actor, req dto.CreateReportRequest, photo *dto.PhotoUpload) (*models.Report, error) {
	if err := s.policy.Authorize(actor, workflow.ActionSubmit); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.ComplaintDescription = strings.TrimSpace(req.ComplaintDescription)
	req.LocationDescription = strings.TrimSpace(req.LocationDescription)
	req.ReportDate = strings.TrimSpace(req.ReportDate)
	req.ReportTime = strings.TrimSpace(req.ReportTime)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid report payload")
	}
	reportDate, err := time.Parse("2006-01-02", req.ReportDate)
	if err != nil {
		return nil, appErrors.Validation("invalid report date", map[string]string{"report_date": "datetime=2006-01-02"})
	}

	now := s.now()
	report := &models.Report{
		UserID:               actor.ID,
		Title:                req.Title,
		ComplaintDescription: req.ComplaintDescription,
		LocationDescription:  req.LocationDescription,
		ReportDate:           reportDate,
		ReportTime:           req.ReportTime,
	}

	if photo != nil {
		stored, err := s.savePhoto(ctx, photo, now)
		if err != nil {
			return nil, err
		}
		report.Photo = &stored
	}

	submitter := actor.ID
	entry := &models.ReportHistory{Notes: reportCreatedNote, ChangedBy: &submitter, ChangedAt: now}
	if err := s.reports.Create(ctx, report, entry); err != nil {
		if report.Photo != nil {
			s.deletePhoto(ctx, *report.Photo, "")
		}
		if errors.Is(err, repository.ErrForeignReference) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submitter not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}

	s.metrics.RecordSubmission()
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("report submitted", zap.String("report_id", report.ID), zap.String("actor_id", actor.ID), zap.Bool("photo", report.Photo != nil))
	return report, nil
}

func (s *ReportService) savePhoto(ctx context.Context, photo *dto.PhotoUpload, now time.Time) (string, error) {
	if s.photos == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "photo storage is not configured")
	}
	if photo.Size > s.cfg.MaxPhotoSize {
		return "", appErrors.Validation("photo too large", map[string]string{"photo": fmt.Sprintf("max=%d", s.cfg.MaxPhotoSize)})
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(photo.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable photo")
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	ext, ok := allowedPhotoTypes[contentType]
	if !ok {
		return "", appErrors.Validation("photo must be a jpeg or png image", map[string]string{"photo": "mimes=jpeg,png,jpg"})
	}

	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), photo.Body), s.cfg.MaxPhotoSize+1)
	name := path.Join("reports", fmt.Sprintf("%d_%s%s", now.Unix(), uuid.NewString(), ext))
	stored, err := s.photos.Save(ctx, name, body, contentType)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store photo")
	}
	return stored, nil
}

// Get returns a report by id.
func (s *ReportService) Get(ctx context.Context, id string) (*models.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	return report, nil
}

// Detail returns the report with its ledger, the actions the caller may take and a signed photo link.
func (s *ReportService) Detail(ctx context.Context, actor models.Actor, id string) (*dto.ReportDetail, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.history.ListByReport(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report history")
	}

	actions := s.policy.Actions(s.machine, actor.Role, workflow.StateOf(report))
	detail := &dto.ReportDetail{
		Report:           report,
		History:          history,
		AvailableActions: make([]string, len(actions)),
	}
	for i, a := range actions {
		detail.AvailableActions[i] = string(a)
	}

	if report.Photo != nil && s.signer != nil {
		token, expiresAt, err := s.signer.Generate(report.ID, *report.Photo)
		if err != nil {
			s.logger.Warn("failed to sign photo url", zap.String("report_id", report.ID), zap.Error(err))
		} else {
			detail.PhotoURL = s.cfg.PhotoURLPrefix + token
			detail.PhotoURLExpires = &expiresAt
		}
	}
	return detail, nil
}

// History returns the ledger of an existing report, oldest first.
func (s *ReportService) History(ctx context.Context, id string) ([]models.ReportHistory, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByReport(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report history")
	}
	return entries, nil
}

// Delete removes a report owned by the caller (or any report for admins).
// A photo that cannot be removed is logged and does not block deletion.
func (s *ReportService) Delete(ctx context.Context, actor models.Actor, id string) error {
	report, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.policy.CanDelete(actor, report) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the submitter or an admin may delete this report")
	}
	if err := s.reports.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete report")
	}
	if report.Photo != nil {
		s.deletePhoto(ctx, *report.Photo, id)
	}
	s.cache.InvalidateDashboards(ctx)
	s.logger.Info("report deleted", zap.String("report_id", id), zap.String("actor_id", actor.ID))
	return nil
}

func (s *ReportService) deletePhoto(ctx context.Context, name, reportID string) {
	if s.photos == nil {
		return
	}
	err := s.photos.Delete(ctx, name)
	if err == nil {
		return
	}
	s.logger.Warn("failed to delete report photo", zap.String("report_id", reportID), zap.String("photo", name), zap.Error(err))
	if s.janitor != nil {
		if err := s.janitor.Schedule(reportID, name); err != nil {
			s.logger.Warn("failed to schedule photo cleanup", zap.String("photo", name), zap.Error(err))
		}
	}
}

// OpenPhoto resolves a signed photo token to the stored image.
func (s *ReportService) OpenPhoto(ctx context.Context, token string) (io.ReadCloser, string, error) {
	if s.signer == nil || s.photos == nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "photo not found")
	}
	reportID, photoPath, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "photo link is invalid or expired")
	}
	report, err := s.Get(ctx, reportID)
	if err != nil {
		return nil, "", err
	}
	if report.Photo == nil || *report.Photo != photoPath {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "photo not found")
	}
	rc, err := s.photos.Open(ctx, photoPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "photo not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open photo")
	}
	contentType := mime.TypeByExtension(path.Ext(photoPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, contentType, nil
}
