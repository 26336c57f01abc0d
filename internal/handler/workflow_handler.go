package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/laporpak-api/internal/dto"
	"github.com/noah-isme/laporpak-api/internal/models"
	"github.com/noah-isme/laporpak-api/internal/workflow"
	appErrors "github.com/noah-isme/laporpak-api/pkg/errors"
	"github.com/noah-isme/laporpak-api/pkg/response"
)

type workflowService interface {
	Authorize(actor models.Actor, action workflow.Action) error
	Recommend(ctx context.Context, actor models.Actor, reportID, notes string) (*models.Report, error)
	Reject(ctx context.Context, actor models.Actor, reportID, reason string) (*models.Report, error)
	Confirm(ctx context.Context, actor models.Actor, reportID, notes string) (*models.Report, error)
	Complete(ctx context.Context, actor models.Actor, reportID, notes string) (*models.Report, error)
	UpdateStatus(ctx context.Context, actor models.Actor, reportID string, target models.ReportStatus, notes string) (*models.Report, error)
	Assign(ctx context.Context, actor models.Actor, reportID, assigneeID, notes string) (*models.Report, error)
}

// WorkflowHandler maps approval actions onto the workflow service. The same
// handler serves the RT and admin groups; the role policy decides who may act.
type WorkflowHandler struct {
	workflow workflowService
}

// NewWorkflowHandler constructs handler.
func NewWorkflowHandler(svc workflowService) *WorkflowHandler {
	return &WorkflowHandler{workflow: svc}
}

// Recommend godoc
// @Summary RT recommends a pending report to the admin
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.NotesRequest false "Optional notes"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /api/rt/reports/{id}/confirm-recommend [post]
func (h *WorkflowHandler) Recommend(c *gin.Context) {
	var req dto.NotesRequest
	h.run(c, workflow.ActionRecommend, &req, "report recommended", func(ctx context.Context, actor models.Actor, id string) (*models.Report, error) {
		return h.workflow.Recommend(ctx, actor, id, req.Notes)
	})
}

// Reject godoc
// @Summary RT rejects a pending report
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.RejectRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /api/rt/reports/{id}/reject [post]
func (h *WorkflowHandler) Reject(c *gin.Context) {
	var req dto.RejectRequest
	h.run(c, workflow.ActionReject, &req, "report rejected", func(ctx context.Context, actor models.Actor, id string) (*models.Report, error) {
		return h.workflow.Reject(ctx, actor, id, req.Reason)
	})
}

// Confirm godoc
// @Summary Confirm a recommended report and start handling it
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.NotesRequest false "Optional notes"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /api/admin/reports/{id}/confirm [post]
func (h *WorkflowHandler) Confirm(c *gin.Context) {
	var req dto.NotesRequest
	h.run(c, workflow.ActionConfirm, &req, "report confirmed", func(ctx context.Context, actor models.Actor, id string) (*models.Report, error) {
		return h.workflow.Confirm(ctx, actor, id, req.Notes)
	})
}

// Complete godoc
// @Summary Mark a report as done
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.NotesRequest false "Optional notes"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /api/admin/reports/{id}/complete [post]
func (h *WorkflowHandler) Complete(c *gin.Context) {
	var req dto.NotesRequest
	h.run(c, workflow.ActionComplete, &req, "report completed", func(ctx context.Context, actor models.Actor, id string) (*models.Report, error) {
		return h.workflow.Complete(ctx, actor, id, req.Notes)
	})
}

// UpdateStatus godoc
// @Summary Override the status of a report
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.UpdateStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /api/admin/reports/{id}/update-status [post]
func (h *WorkflowHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	h.run(c, workflow.ActionUpdateStatus, &req, "report status updated", func(ctx context.Context, actor models.Actor, id string) (*models.Report, error) {
		return h.workflow.UpdateStatus(ctx, actor, id, models.ReportStatus(req.Status), req.Notes)
	})
}

// Assign godoc
// @Summary Assign a report to a petugas
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.AssignRequest true "Assignee"
// @Success 200 {object} response.Envelope
// @Router /api/admin/reports/{id}/assign [post]
func (h *WorkflowHandler) Assign(c *gin.Context) {
	var req dto.AssignRequest
	h.run(c, workflow.ActionAssign, &req, "report assigned", func(ctx context.Context, actor models.Actor, id string) (*models.Report, error) {
		return h.workflow.Assign(ctx, actor, id, req.AssignedTo, req.Notes)
	})
}

func (h *WorkflowHandler) run(c *gin.Context, action workflow.Action, req interface{}, message string, act func(context.Context, models.Actor, string) (*models.Report, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	// Role checks come before the body so a forbidden caller never sees payload errors.
	if err := h.workflow.Authorize(actor, action); err != nil {
		response.Error(c, err)
		return
	}
	if err := bindOptionalJSON(c, req); err != nil {
		response.Error(c, err)
		return
	}
	report, err := act(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, message, report)
}
