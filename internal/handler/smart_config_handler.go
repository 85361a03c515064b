package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/curriculum-qa-api/internal/dto"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
	"github.com/noah-isme/curriculum-qa-api/pkg/response"
)

type smartConfigService interface {
	Resolve(ctx context.Context, userID string, req dto.ResolveConfigRequest) (*models.ResolvedConfig, error)
	Preset(level models.UserExperienceLevel) (models.ValidationPreset, error)
	Settings(ctx context.Context, userID string) (*models.AdaptiveSettings, error)
	RecordDecision(ctx context.Context, userID string, req dto.RecordPreferenceRequest) (*models.AdaptiveSettings, error)
}

// SmartConfigHandler exposes experience-level presets and learned preferences.
type SmartConfigHandler struct {
	service smartConfigService
}

// NewSmartConfigHandler builds the handler.
func NewSmartConfigHandler(service smartConfigService) *SmartConfigHandler {
	return &SmartConfigHandler{service: service}
}

// Resolve godoc
// @Summary Resolve the validation configuration for a level and content type
// @Tags SmartConfig
// @Accept json
// @Produce json
// @Param payload body dto.ResolveConfigRequest true "Level and content type"
// @Success 200 {object} response.Envelope
// @Router /smart-config/resolve [post]
func (h *SmartConfigHandler) Resolve(c *gin.Context) {
	var req dto.ResolveConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resolve payload"))
		return
	}
	resolved, err := h.service.Resolve(c.Request.Context(), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resolved)
}

// Preset godoc
// @Summary Show the preset for an experience level
// @Tags SmartConfig
// @Produce json
// @Param level path string true "BEGINNER, INTERMEDIATE, ADVANCED or EXPERT"
// @Success 200 {object} response.Envelope
// @Router /smart-config/presets/{level} [get]
func (h *SmartConfigHandler) Preset(c *gin.Context) {
	preset, err := h.service.Preset(models.UserExperienceLevel(strings.ToUpper(c.Param("level"))))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, preset)
}

// Settings godoc
// @Summary Show the caller's learned preferences
// @Tags SmartConfig
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /smart-config/settings [get]
func (h *SmartConfigHandler) Settings(c *gin.Context) {
	settings, err := h.service.Settings(c.Request.Context(), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, settings)
}

// RecordDecision godoc
// @Summary Record a preference signal
// @Tags SmartConfig
// @Accept json
// @Produce json
// @Param payload body dto.RecordPreferenceRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /smart-config/decisions [post]
func (h *SmartConfigHandler) RecordDecision(c *gin.Context) {
	var req dto.RecordPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}
	settings, err := h.service.RecordDecision(c.Request.Context(), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, settings)
}
