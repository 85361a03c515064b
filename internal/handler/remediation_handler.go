package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/curriculum-qa-api/internal/dto"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
	"github.com/noah-isme/curriculum-qa-api/pkg/response"
)

type remediationService interface {
	CreateSession(ctx context.Context, userID string, req dto.CreateRemediationRequest) (*dto.RemediationSessionResponse, error)
	GetSession(ctx context.Context, sessionID string) (*models.RemediationSession, error)
	ListSessions(ctx context.Context, userID string) ([]*models.RemediationSession, error)
	ApplyFix(ctx context.Context, sessionID string, req dto.ApplyFixRequest) (*dto.ApplyFixResponse, error)
	AutoApply(ctx context.Context, sessionID string, payload dto.ContentPayload) (*dto.RemediationSessionResponse, error)
	RecordDecision(ctx context.Context, sessionID string, req dto.DecisionRequest) (*models.RemediationSession, error)
	CancelSession(ctx context.Context, sessionID string) (*models.RemediationSession, error)
}

// RemediationHandler exposes remediation session endpoints.
type RemediationHandler struct {
	service remediationService
}

// NewRemediationHandler builds the handler.
func NewRemediationHandler(service remediationService) *RemediationHandler {
	return &RemediationHandler{service: service}
}

// Create godoc
// @Summary Start a remediation session
// @Tags Remediation
// @Accept json
// @Produce json
// @Param payload body dto.CreateRemediationRequest true "Content and optional issues"
// @Success 201 {object} response.Envelope
// @Router /remediation/sessions [post]
func (h *RemediationHandler) Create(c *gin.Context) {
	var req dto.CreateRemediationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid remediation payload"))
		return
	}
	resp, err := h.service.CreateSession(c.Request.Context(), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// List godoc
// @Summary List the caller's remediation sessions
// @Tags Remediation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /remediation/sessions [get]
func (h *RemediationHandler) List(c *gin.Context) {
	sessions, err := h.service.ListSessions(c.Request.Context(), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sessions, map[string]interface{}{"total": len(sessions)})
}

// Get godoc
// @Summary Get a remediation session
// @Tags Remediation
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /remediation/sessions/{id} [get]
func (h *RemediationHandler) Get(c *gin.Context) {
	session, ok := h.authorize(c)
	if !ok {
		return
	}
	response.OK(c, session)
}

// Apply godoc
// @Summary Apply one suggestion
// @Tags Remediation
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.ApplyFixRequest true "Suggestion and current content"
// @Success 200 {object} response.Envelope
// @Router /remediation/sessions/{id}/apply [post]
func (h *RemediationHandler) Apply(c *gin.Context) {
	var req dto.ApplyFixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid apply payload"))
		return
	}
	if _, ok := h.authorize(c); !ok {
		return
	}
	resp, err := h.service.ApplyFix(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

// AutoApply godoc
// @Summary Apply every suggestion that needs no approval
// @Tags Remediation
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.ContentPayload true "Current content"
// @Success 200 {object} response.Envelope
// @Router /remediation/sessions/{id}/auto-apply [post]
func (h *RemediationHandler) AutoApply(c *gin.Context) {
	var payload dto.ContentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid content payload"))
		return
	}
	if _, ok := h.authorize(c); !ok {
		return
	}
	resp, err := h.service.AutoApply(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

// Decide godoc
// @Summary Record a decision on a suggestion
// @Tags Remediation
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.DecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /remediation/sessions/{id}/decisions [post]
func (h *RemediationHandler) Decide(c *gin.Context) {
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}
	if _, ok := h.authorize(c); !ok {
		return
	}
	session, err := h.service.RecordDecision(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// Cancel godoc
// @Summary Cancel a remediation session
// @Tags Remediation
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /remediation/sessions/{id}/cancel [post]
func (h *RemediationHandler) Cancel(c *gin.Context) {
	if _, ok := h.authorize(c); !ok {
		return
	}
	session, err := h.service.CancelSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

func (h *RemediationHandler) authorize(c *gin.Context) (*models.RemediationSession, bool) {
	session, err := h.service.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if !owns(c, session.UserID) {
		response.Error(c, appErrors.ErrForbidden)
		return nil, false
	}
	return session, true
}
