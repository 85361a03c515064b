package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curriculum-qa-api/internal/dto"
	"github.com/noah-isme/curriculum-qa-api/internal/middleware"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
)

type remediationServiceMock struct {
	session  *models.RemediationSession
	getErr   error
	applyErr error
	created  string
	applied  []string
	canceled bool
}

func (m *remediationServiceMock) CreateSession(ctx context.Context, userID string, req dto.CreateRemediationRequest) (*dto.RemediationSessionResponse, error) {
	m.created = userID
	return &dto.RemediationSessionResponse{Session: m.session}, nil
}

func (m *remediationServiceMock) GetSession(ctx context.Context, sessionID string) (*models.RemediationSession, error) {
	return m.session, m.getErr
}

func (m *remediationServiceMock) ListSessions(ctx context.Context, userID string) ([]*models.RemediationSession, error) {
	return []*models.RemediationSession{m.session}, nil
}

func (m *remediationServiceMock) ApplyFix(ctx context.Context, sessionID string, req dto.ApplyFixRequest) (*dto.ApplyFixResponse, error) {
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	m.applied = append(m.applied, req.SuggestionID)
	return &dto.ApplyFixResponse{Status: models.SessionCompleted}, nil
}

func (m *remediationServiceMock) AutoApply(ctx context.Context, sessionID string, payload dto.ContentPayload) (*dto.RemediationSessionResponse, error) {
	return &dto.RemediationSessionResponse{Session: m.session}, nil
}

func (m *remediationServiceMock) RecordDecision(ctx context.Context, sessionID string, req dto.DecisionRequest) (*models.RemediationSession, error) {
	return m.session, nil
}

func (m *remediationServiceMock) CancelSession(ctx context.Context, sessionID string) (*models.RemediationSession, error) {
	m.canceled = true
	return m.session, nil
}

type dryRunServiceMock struct {
	session  *models.DryRunSession
	getErr   error
	result   *models.ApplicationResult
	canceled bool
	removed  int
}

func (m *dryRunServiceMock) CreateDryRun(ctx context.Context, userID string, req dto.CreateDryRunRequest) (*models.DryRunSession, error) {
	return m.session, nil
}

func (m *dryRunServiceMock) GetCachedSession(ctx context.Context, sessionID string) (*models.DryRunSession, error) {
	return m.session, m.getErr
}

func (m *dryRunServiceMock) ListSessions(ctx context.Context, userID string) ([]*models.DryRunSession, error) {
	return []*models.DryRunSession{m.session}, nil
}

func (m *dryRunServiceMock) ApplySelectedChanges(ctx context.Context, sessionID string, req dto.ApplyChangesRequest) (*models.ApplicationResult, error) {
	return m.result, nil
}

func (m *dryRunServiceMock) CancelSession(ctx context.Context, sessionID string) error {
	m.canceled = true
	return nil
}

func (m *dryRunServiceMock) CleanupExpiredSessions(ctx context.Context) (int, error) {
	return m.removed, nil
}

func sessionRouter(claims *models.JWTClaims, remediation remediationService, dryRun dryRunService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	})
	rh := NewRemediationHandler(remediation)
	r.POST("/remediation/sessions", rh.Create)
	r.GET("/remediation/sessions", rh.List)
	r.GET("/remediation/sessions/:id", rh.Get)
	r.POST("/remediation/sessions/:id/apply", rh.Apply)
	r.POST("/remediation/sessions/:id/cancel", rh.Cancel)
	dh := NewDryRunHandler(dryRun)
	r.POST("/dry-runs", dh.Create)
	r.POST("/dry-runs/cleanup", dh.Cleanup)
	r.GET("/dry-runs/:id", dh.Get)
	r.POST("/dry-runs/:id/apply", dh.Apply)
	r.DELETE("/dry-runs/:id", dh.Cancel)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRemediationHandlerCreateUsesCaller(t *testing.T) {
	svc := &remediationServiceMock{session: &models.RemediationSession{ID: "s-1", UserID: "u-1"}}
	r := sessionRouter(&models.JWTClaims{UserID: "u-1", Role: models.RoleInstructor}, svc, nil)

	body, _ := json.Marshal(dto.CreateRemediationRequest{Content: dto.ContentPayload{ContentType: models.ContentTypeQuiz, Content: "x"}})
	w := do(r, http.MethodPost, "/remediation/sessions", string(body))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "u-1", svc.created)

	w = do(r, http.MethodGet, "/remediation/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":1}`, string(decodeEnvelope(t, w)["meta"]))
}

func TestRemediationHandlerAnonymousCaller(t *testing.T) {
	svc := &remediationServiceMock{session: &models.RemediationSession{ID: "s-1"}}
	r := sessionRouter(nil, svc, nil)

	w := do(r, http.MethodPost, "/remediation/sessions", `{"content":{"content_type":"QUIZ","content":"x"}}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, middleware.AnonymousUserID, svc.created)
}

func TestRemediationHandlerOwnership(t *testing.T) {
	svc := &remediationServiceMock{session: &models.RemediationSession{ID: "s-1", UserID: "owner"}}

	w := do(sessionRouter(&models.JWTClaims{UserID: "intruder", Role: models.RoleInstructor}, svc, nil), http.MethodPost, "/remediation/sessions/s-1/apply", `{"suggestion_id":"sg-1","content":{"content_type":"QUIZ","content":"x"}}`)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, svc.applied)

	w = do(sessionRouter(&models.JWTClaims{UserID: "reviewer", Role: models.RoleAdmin}, svc, nil), http.MethodPost, "/remediation/sessions/s-1/apply", `{"suggestion_id":"sg-1","content":{"content_type":"QUIZ","content":"x"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"sg-1"}, svc.applied)
}

func TestRemediationHandlerSessionErrors(t *testing.T) {
	claims := &models.JWTClaims{UserID: "owner", Role: models.RoleInstructor}

	w := do(sessionRouter(claims, &remediationServiceMock{getErr: appErrors.ErrSessionExpired}, nil), http.MethodGet, "/remediation/sessions/s-1", "")
	assert.Equal(t, http.StatusGone, w.Code)

	svc := &remediationServiceMock{session: &models.RemediationSession{ID: "s-1", UserID: "owner"}, applyErr: appErrors.ErrSessionClosed}
	w = do(sessionRouter(claims, svc, nil), http.MethodPost, "/remediation/sessions/s-1/apply", `{"suggestion_id":"sg-1","content":{"content_type":"QUIZ","content":"x"}}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(sessionRouter(claims, svc, nil), http.MethodPost, "/remediation/sessions/s-1/cancel", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.canceled)
}

func TestDryRunHandlerFlow(t *testing.T) {
	claims := &models.JWTClaims{UserID: "owner", Role: models.RoleInstructor}
	svc := &dryRunServiceMock{
		session: &models.DryRunSession{ID: "d-1", UserID: "owner"},
		result:  &models.ApplicationResult{FinalContent: models.GeneratedContent{Content: "Fixed."}},
		removed: 2,
	}
	r := sessionRouter(claims, nil, svc)

	w := do(r, http.MethodPost, "/dry-runs", `{"content":{"content_type":"QUIZ","content":"x"}}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodGet, "/dry-runs/d-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/dry-runs/d-1/apply", `{"change_ids":["c-1"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Fixed.")

	w = do(r, http.MethodPost, "/dry-runs/cleanup", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":2`)

	w = do(r, http.MethodDelete, "/dry-runs/d-1", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, svc.canceled)
}

func TestDryRunHandlerExpired(t *testing.T) {
	svc := &dryRunServiceMock{getErr: appErrors.ErrSessionExpired}
	w := do(sessionRouter(nil, nil, svc), http.MethodPost, "/dry-runs/d-1/apply", `{"change_ids":["c-1"]}`)
	assert.Equal(t, http.StatusGone, w.Code)
}
