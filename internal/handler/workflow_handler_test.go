package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/laporpak-api/internal/models"
	appErrors "github.com/noah-isme/laporpak-api/pkg/errors"
)

func TestWorkflowHandlerRecommendWithoutBody(t *testing.T) {
	wf := &workflowServiceMock{}
	handler := NewWorkflowHandler(wf)
	c, w := newGinContext(http.MethodPost, "/api/rt/reports/r-1/confirm-recommend", nil)
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	withClaims(c, rtClaims)

	handler.Recommend(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "recommend", wf.action)
	assert.Equal(t, "r-1", wf.id)
	assert.Empty(t, wf.text)
	assert.Equal(t, "report recommended", decodeEnvelope(t, w).Message)
}

func TestWorkflowHandlerRejectPassesReason(t *testing.T) {
	wf := &workflowServiceMock{}
	handler := NewWorkflowHandler(wf)
	c, w := newGinContext(http.MethodPost, "/api/rt/reports/r-1/reject", []byte(`{"reason":"duplicate"}`))
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	withClaims(c, rtClaims)

	handler.Reject(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reject", wf.action)
	assert.Equal(t, "duplicate", wf.text)
	assert.Equal(t, models.Actor{ID: "rt-1", Role: models.RoleRT}, wf.actor)
}

func TestWorkflowHandlerAssign(t *testing.T) {
	wf := &workflowServiceMock{}
	handler := NewWorkflowHandler(wf)
	c, w := newGinContext(http.MethodPost, "/api/admin/reports/r-1/assign", []byte(`{"assigned_to":"petugas-1"}`))
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	withClaims(c, adminClaims)

	handler.Assign(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "petugas-1", wf.text)
}

func TestWorkflowHandlerInvalidTransition(t *testing.T) {
	wf := &workflowServiceMock{err: appErrors.WithDetails(appErrors.ErrInvalidTransition, map[string]interface{}{
		"action":  "complete",
		"current": map[string]interface{}{"status": "done", "rt_recommended": true},
	})}
	handler := NewWorkflowHandler(wf)
	c, w := newGinContext(http.MethodPost, "/api/admin/reports/r-1/complete", []byte(`{}`))
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	withClaims(c, adminClaims)

	handler.Complete(c)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "INVALID_TRANSITION", env.Error["code"])
	details, ok := env.Error["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "complete", details["action"])
}

func TestWorkflowHandlerErrorStatuses(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"forbidden": {appErrors.ErrForbidden, http.StatusForbidden},
		"not found": {appErrors.ErrNotFound, http.StatusNotFound},
		"conflict":  {appErrors.ErrConflict, http.StatusConflict},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			handler := NewWorkflowHandler(&workflowServiceMock{err: tc.err})
			c, w := newGinContext(http.MethodPost, "/api/admin/reports/r-1/confirm", nil)
			c.Params = gin.Params{{Key: "id", Value: "r-1"}}
			withClaims(c, adminClaims)

			handler.Confirm(c)

			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestWorkflowHandlerMalformedBody(t *testing.T) {
	wf := &workflowServiceMock{}
	handler := NewWorkflowHandler(wf)
	c, w := newGinContext(http.MethodPost, "/api/rt/reports/r-1/reject", []byte(`{"reason":`))
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	withClaims(c, rtClaims)

	handler.Reject(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, wf.action)
}

func TestWorkflowHandlerForbiddenBeforeBody(t *testing.T) {
	wf := &workflowServiceMock{authErr: appErrors.ErrForbidden}
	handler := NewWorkflowHandler(wf)
	c, w := newGinContext(http.MethodPost, "/api/reports/r-1/update-status", []byte(`{"status":`))
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	withClaims(c, wargaClaims)

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, wf.action)
}
