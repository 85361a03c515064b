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

type dryRunService interface {
	CreateDryRun(ctx context.Context, userID string, req dto.CreateDryRunRequest) (*models.DryRunSession, error)
	GetCachedSession(ctx context.Context, sessionID string) (*models.DryRunSession, error)
	ListSessions(ctx context.Context, userID string) ([]*models.DryRunSession, error)
	ApplySelectedChanges(ctx context.Context, sessionID string, req dto.ApplyChangesRequest) (*models.ApplicationResult, error)
	CancelSession(ctx context.Context, sessionID string) error
	CleanupExpiredSessions(ctx context.Context) (int, error)
}

// DryRunHandler exposes dry-run preview endpoints.
type DryRunHandler struct {
	service dryRunService
}

// NewDryRunHandler builds the handler.
func NewDryRunHandler(service dryRunService) *DryRunHandler {
	return &DryRunHandler{service: service}
}

// Create godoc
// @Summary Preview remediation changes without touching the content
// @Tags DryRun
// @Accept json
// @Produce json
// @Param payload body dto.CreateDryRunRequest true "Content, optional results and preferences"
// @Success 201 {object} response.Envelope
// @Router /dry-runs [post]
func (h *DryRunHandler) Create(c *gin.Context) {
	var req dto.CreateDryRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dry-run payload"))
		return
	}
	session, err := h.service.CreateDryRun(c.Request.Context(), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// List godoc
// @Summary List the caller's cached dry-runs
// @Tags DryRun
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dry-runs [get]
func (h *DryRunHandler) List(c *gin.Context) {
	sessions, err := h.service.ListSessions(c.Request.Context(), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sessions, map[string]interface{}{"total": len(sessions)})
}

// Get godoc
// @Summary Get a cached dry-run
// @Tags DryRun
// @Produce json
// @Param id path string true "Dry-run ID"
// @Success 200 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /dry-runs/{id} [get]
func (h *DryRunHandler) Get(c *gin.Context) {
	session, ok := h.authorize(c)
	if !ok {
		return
	}
	response.OK(c, session)
}

// Apply godoc
// @Summary Apply selected changes from a dry-run
// @Tags DryRun
// @Accept json
// @Produce json
// @Param id path string true "Dry-run ID"
// @Param payload body dto.ApplyChangesRequest true "Change ids"
// @Success 200 {object} response.Envelope
// @Router /dry-runs/{id}/apply [post]
func (h *DryRunHandler) Apply(c *gin.Context) {
	var req dto.ApplyChangesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid apply payload"))
		return
	}
	if _, ok := h.authorize(c); !ok {
		return
	}
	result, err := h.service.ApplySelectedChanges(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Cancel godoc
// @Summary Discard a dry-run
// @Tags DryRun
// @Param id path string true "Dry-run ID"
// @Success 204
// @Router /dry-runs/{id} [delete]
func (h *DryRunHandler) Cancel(c *gin.Context) {
	if _, ok := h.authorize(c); !ok {
		return
	}
	if err := h.service.CancelSession(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Cleanup godoc
// @Summary Purge expired dry-runs
// @Tags DryRun
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dry-runs/cleanup [post]
func (h *DryRunHandler) Cleanup(c *gin.Context) {
	removed, err := h.service.CleanupExpiredSessions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.CleanupResponse{Removed: removed})
}

func (h *DryRunHandler) authorize(c *gin.Context) (*models.DryRunSession, bool) {
	session, err := h.service.GetCachedSession(c.Request.Context(), c.Param("id"))
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
