package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curriculum-qa-api/internal/dto"
	"github.com/noah-isme/curriculum-qa-api/internal/middleware"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
)

type validationServiceMock struct {
	report  *models.ValidationReport
	hit     bool
	err     error
	lastReq dto.ValidateContentRequest
}

func (m *validationServiceMock) ValidateContent(ctx context.Context, req dto.ValidateContentRequest) (*models.ValidationReport, bool, error) {
	m.lastReq = req
	return m.report, m.hit, m.err
}

func (m *validationServiceMock) Validators() []models.ValidatorInfo {
	return []models.ValidatorInfo{{Name: "grammar"}}
}

type resolverMock struct {
	resolved *models.ResolvedConfig
	userID   string
}

func (m *resolverMock) ResolveFor(ctx context.Context, userID string, level models.UserExperienceLevel, contentType models.ContentType) (*models.ResolvedConfig, error) {
	m.userID = userID
	return m.resolved, nil
}

type feedbackServiceMock struct {
	report *models.FeedbackReport
	err    error
}

func (m *feedbackServiceMock) Feedback(ctx context.Context, req dto.FeedbackRequest) (*models.FeedbackReport, error) {
	return m.report, m.err
}

func validationBody(level models.UserExperienceLevel) []byte {
	body, _ := json.Marshal(dto.ValidateContentRequest{
		Content: dto.ContentPayload{ContentType: models.ContentTypeSlides, Content: "## Summary\nCells."},
		Level:   level,
	})
	return body
}

func TestValidationHandlerValidate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &validationServiceMock{report: &models.ValidationReport{ContentID: "c-1", Passed: true}, hit: true}
	handler := NewValidationHandler(svc, nil, nil)

	c, w := newGinContext(http.MethodPost, "/validations", validationBody(""))
	c.Set("response_meta", map[string]interface{}{})
	handler.Validate(c)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Contains(t, string(envelope["data"]), `"content_id":"c-1"`)
	assert.JSONEq(t, `{"cache_hit":true}`, string(envelope["meta"]))
	assert.Nil(t, svc.lastReq.Config)
}

func TestValidationHandlerResolvesLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &validationServiceMock{report: &models.ValidationReport{}}
	resolver := &resolverMock{resolved: &models.ResolvedConfig{Config: models.ValidationConfig{EnabledValidators: []string{"grammar"}}}}
	handler := NewValidationHandler(svc, resolver, nil)

	c, w := newGinContext(http.MethodPost, "/validations", validationBody(models.ExperienceBeginner))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-1", Role: models.RoleInstructor})
	handler.Validate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", resolver.userID)
	require.NotNil(t, svc.lastReq.Config)
	assert.Equal(t, []string{"grammar"}, svc.lastReq.Config.EnabledValidators)
}

func TestValidationHandlerUnknownValidator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewValidationHandler(&validationServiceMock{err: appErrors.Clone(appErrors.ErrUnknownValidator, "unknown validator \"x\"")}, nil, nil)

	c, w := newGinContext(http.MethodPost, "/validations", validationBody(""))
	handler.Validate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "UNKNOWN_VALIDATOR")
}

func TestValidationHandlerValidators(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewValidationHandler(&validationServiceMock{}, nil, nil)
	c, w := newGinContext(http.MethodGet, "/validators", nil)
	handler.Validators(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"grammar"`)
}

func TestValidationHandlerFeedback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewValidationHandler(nil, nil, &feedbackServiceMock{report: &models.FeedbackReport{Status: models.StatusGood}})
	body, _ := json.Marshal(dto.FeedbackRequest{ContentID: "c-1"})
	c, w := newGinContext(http.MethodPost, "/feedback", body)
	handler.Feedback(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"GOOD"`)
}
