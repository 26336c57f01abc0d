package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/laporpak-api/internal/models"
	"github.com/noah-isme/laporpak-api/internal/repository"
	"github.com/noah-isme/laporpak-api/internal/workflow"
	appErrors "github.com/noah-isme/laporpak-api/pkg/errors"
)

type reportTransitioner interface {
	Transition(ctx context.Context, id string, decide repository.TransitionFunc) (*models.Report, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// WorkflowService runs report transitions: policy first, then the machine under a row lock.
type WorkflowService struct {
	store   reportTransitioner
	users   userFinder
	policy  *workflow.Policy
	machine *workflow.Machine
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewWorkflowService constructs the service.
func NewWorkflowService(store reportTransitioner, users userFinder, policy *workflow.Policy, machine *workflow.Machine, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowService{
		store:   store,
		users:   users,
		policy:  policy,
		machine: machine,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Recommend marks a pending report as endorsed by the RT.
func (s *WorkflowService) Recommend(ctx context.Context, actor models.Actor, reportID, notes string) (*models.Report, error) {
	return s.Execute(ctx, reportID, workflow.Command{Action: workflow.ActionRecommend, Actor: actor, Notes: notes})
}

// Reject parks a pending report on hold with the RT's reason.
func (s *WorkflowService) Reject(ctx context.Context, actor models.Actor, reportID, reason string) (*models.Report, error) {
	return s.Execute(ctx, reportID, workflow.Command{Action: workflow.ActionReject, Actor: actor, Reason: reason})
}

// Confirm moves a report into active work.
func (s *WorkflowService) Confirm(ctx context.Context, actor models.Actor, reportID, notes string) (*models.Report, error) {
	return s.Execute(ctx, reportID, workflow.Command{Action: workflow.ActionConfirm, Actor: actor, Notes: notes})
}

// Complete finalizes a report.
func (s *WorkflowService) Complete(ctx context.Context, actor models.Actor, reportID, notes string) (*models.Report, error) {
	return s.Execute(ctx, reportID, workflow.Command{Action: workflow.ActionComplete, Actor: actor, Notes: notes})
}

// UpdateStatus overrides the status of a report.
func (s *WorkflowService) UpdateStatus(ctx context.Context, actor models.Actor, reportID string, target models.ReportStatus, notes string) (*models.Report, error) {
	return s.Execute(ctx, reportID, workflow.Command{Action: workflow.ActionUpdateStatus, Actor: actor, Target: target, Notes: notes})
}

// Assign hands a report to a petugas.
func (s *WorkflowService) Assign(ctx context.Context, actor models.Actor, reportID, assigneeID, notes string) (*models.Report, error) {
	return s.Execute(ctx, reportID, workflow.Command{Action: workflow.ActionAssign, Actor: actor, AssigneeID: assigneeID, Notes: notes})
}

// Authorize reports whether actor may run action, without touching any report.
func (s *WorkflowService) Authorize(actor models.Actor, action workflow.Action) error {
	return s.policy.Authorize(actor, action)
}

// Execute authorizes cmd and applies it atomically to the report.
// Nothing is retried: a lost race surfaces as InvalidTransition or Conflict.
func (s *WorkflowService) Execute(ctx context.Context, reportID string, cmd workflow.Command) (*models.Report, error) {
	start := time.Now()
	action := string(cmd.Action)

	if err := s.policy.Authorize(cmd.Actor, cmd.Action); err != nil {
		s.metrics.RecordTransition(action, TransitionResultForbidden, time.Since(start))
		return nil, err
	}

	if cmd.Action == workflow.ActionAssign {
		name, err := s.resolveAssignee(ctx, cmd.AssigneeID)
		if err != nil {
			s.metrics.RecordTransition(action, resultOf(err), time.Since(start))
			return nil, err
		}
		cmd.AssigneeName = name
	}

	var outcome *workflow.Outcome
	report, err := s.store.Transition(ctx, reportID, func(current *models.Report) (models.ReportPatch, *models.ReportHistory, error) {
		// Stamped under the row lock so changed_at follows commit order.
		locked := cmd
		locked.At = s.now()
		out, err := s.machine.Apply(workflow.StateOf(current), locked)
		if err != nil {
			return models.ReportPatch{}, nil, err
		}
		outcome = out
		entry := out.Entry
		return out.Patch, &entry, nil
	})
	if err != nil {
		mapped := translateTransitionError(err)
		result := resultOf(mapped)
		s.metrics.RecordTransition(action, result, time.Since(start))
		fields := []zap.Field{
			zap.String("report_id", reportID),
			zap.String("action", action),
			zap.String("actor_id", cmd.Actor.ID),
			zap.String("result", result),
		}
		if result == TransitionResultError {
			s.logger.Error("report transition failed", append(fields, zap.Error(err))...)
		} else {
			s.logger.Info("report transition refused", append(fields, zap.String("reason", mapped.Error()))...)
		}
		return nil, mapped
	}

	s.metrics.RecordTransition(action, TransitionResultOK, time.Since(start))
	s.logger.Info("report transition applied",
		zap.String("report_id", reportID),
		zap.String("action", action),
		zap.String("actor_id", cmd.Actor.ID),
		zap.String("from", outcome.From.String()),
		zap.String("to", outcome.To.String()),
	)
	s.cache.InvalidateDashboards(ctx)
	return report, nil
}

func (s *WorkflowService) resolveAssignee(ctx context.Context, assigneeID string) (string, error) {
	assigneeID = strings.TrimSpace(assigneeID)
	if assigneeID == "" {
		return "", appErrors.Validation("assignee is required", map[string]string{"assigned_to": "required"})
	}
	user, err := s.users.FindByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "assignee not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignee")
	}
	if user.Role != models.RolePetugas {
		return "", appErrors.Validation("assignee must be a petugas", map[string]string{"assigned_to": "petugas"})
	}
	return user.Name, nil
}

func translateTransitionError(err error) error {
	var appErr *appErrors.Error
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "report not found")
	case errors.Is(err, repository.ErrTransitionConflict):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "report is being changed by another request; refetch and retry")
	case errors.Is(err, repository.ErrForeignReference):
		return appErrors.Clone(appErrors.ErrNotFound, "referenced user no longer exists")
	case errors.As(err, &appErr):
		return appErr
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
	}
}

func resultOf(err error) string {
	switch appErrors.FromError(err).Code {
	case appErrors.ErrForbidden.Code, appErrors.ErrUnauthorized.Code:
		return TransitionResultForbidden
	case appErrors.ErrInvalidTransition.Code:
		return TransitionResultInvalid
	case appErrors.ErrConflict.Code:
		return TransitionResultConflict
	case appErrors.ErrNotFound.Code:
		return TransitionResultNotFound
	case appErrors.ErrValidation.Code:
		return TransitionResultValidation
	}
	return TransitionResultError
}
