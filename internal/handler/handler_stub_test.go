package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/laporpak-api/internal/dto"
	"github.com/noah-isme/laporpak-api/internal/middleware"
	"github.com/noah-isme/laporpak-api/internal/models"
	"github.com/noah-isme/laporpak-api/internal/service"
	"github.com/noah-isme/laporpak-api/internal/workflow"
)

var (
	wargaClaims = &models.JWTClaims{UserID: "warga-1", Role: models.RoleWarga}
	rtClaims    = &models.JWTClaims{UserID: "rt-1", Role: models.RoleRT}
	adminClaims = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withClaims(c *gin.Context, claims *models.JWTClaims) {
	c.Set(middleware.ContextUserKey, claims)
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Message    string                 `json:"message"`
	Error      map[string]interface{} `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type reportServiceMock struct {
	submitReq   dto.CreateReportRequest
	submitPhoto []byte
	submitActor models.Actor
	submitErr   error
	detail      *dto.ReportDetail
	detailErr   error
	history     []models.ReportHistory
	deleteErr   error
	deletedID   string
}

func (m *reportServiceMock) Submit(ctx context.Context, actor models.Actor, req dto.CreateReportRequest, photo *dto.PhotoUpload) (*models.Report, error) {
	m.submitActor, m.submitReq = actor, req
	if photo != nil {
		m.submitPhoto, _ = io.ReadAll(photo.Body)
	}
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &models.Report{ID: "r-1", UserID: actor.ID, Title: req.Title, Status: models.ReportStatusPending}, nil
}

func (m *reportServiceMock) Detail(ctx context.Context, actor models.Actor, id string) (*dto.ReportDetail, error) {
	return m.detail, m.detailErr
}

func (m *reportServiceMock) History(ctx context.Context, id string) ([]models.ReportHistory, error) {
	return m.history, nil
}

func (m *reportServiceMock) Delete(ctx context.Context, actor models.Actor, id string) error {
	m.deletedID = id
	return m.deleteErr
}

type queryServiceMock struct {
	perspective service.Perspective
	query       dto.ReportListQuery
	tab         string
	tabPresent  bool
	byDate      dto.ByDateQuery
	err         error
}

func (m *queryServiceMock) List(ctx context.Context, actor models.Actor, perspective service.Perspective, q dto.ReportListQuery) ([]models.Report, *models.Pagination, error) {
	m.perspective, m.query = perspective, q
	if m.err != nil {
		return nil, nil, m.err
	}
	return []models.Report{{ID: "r-1"}}, models.NewPagination(1, 10, 1), nil
}

func (m *queryServiceMock) Approval(ctx context.Context, perspective service.Perspective, tab string, present bool, page, perPage int) ([]models.Report, *models.Pagination, error) {
	m.perspective, m.tab, m.tabPresent = perspective, tab, present
	return []models.Report{}, models.NewPagination(page, perPage, 0), nil
}

func (m *queryServiceMock) ByDate(ctx context.Context, q dto.ByDateQuery) ([]dto.ReportsByDate, error) {
	m.byDate = q
	return []dto.ReportsByDate{{Date: "2025-11-03", Count: 1}}, nil
}

type statsMock struct {
	mine bool
}

func (m *statsMock) Statistics(ctx context.Context, actor models.Actor, mine bool) (*dto.ReportStatistics, error) {
	m.mine = mine
	return &dto.ReportStatistics{Total: 3}, nil
}

func (m *statsMock) RTStats(ctx context.Context) (*dto.RTDashboardStats, error) {
	return &dto.RTDashboardStats{Total: 4, NeedConfirmation: 2}, nil
}

func (m *statsMock) AdminStats(ctx context.Context) (*dto.AdminDashboardStats, error) {
	return &dto.AdminDashboardStats{Total: 4, NeedReview: 1}, nil
}

type workflowServiceMock struct {
	authErr error
	action  string
	actor   models.Actor
	id      string
	text    string
	target  models.ReportStatus
	err     error
}

func (m *workflowServiceMock) Authorize(actor models.Actor, action workflow.Action) error {
	return m.authErr
}

func (m *workflowServiceMock) record(action string, actor models.Actor, id, text string) (*models.Report, error) {
	m.action, m.actor, m.id, m.text = action, actor, id, text
	if m.err != nil {
		return nil, m.err
	}
	return &models.Report{ID: id}, nil
}

func (m *workflowServiceMock) Recommend(ctx context.Context, actor models.Actor, id, notes string) (*models.Report, error) {
	return m.record("recommend", actor, id, notes)
}

func (m *workflowServiceMock) Reject(ctx context.Context, actor models.Actor, id, reason string) (*models.Report, error) {
	return m.record("reject", actor, id, reason)
}

func (m *workflowServiceMock) Confirm(ctx context.Context, actor models.Actor, id, notes string) (*models.Report, error) {
	return m.record("confirm", actor, id, notes)
}

func (m *workflowServiceMock) Complete(ctx context.Context, actor models.Actor, id, notes string) (*models.Report, error) {
	return m.record("complete", actor, id, notes)
}

func (m *workflowServiceMock) UpdateStatus(ctx context.Context, actor models.Actor, id string, target models.ReportStatus, notes string) (*models.Report, error) {
	m.target = target
	return m.record("update_status", actor, id, notes)
}

func (m *workflowServiceMock) Assign(ctx context.Context, actor models.Actor, id, assigneeID, notes string) (*models.Report, error) {
	return m.record("assign", actor, id, assigneeID)
}

