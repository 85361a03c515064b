package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/curriculum-qa-api/internal/dto"
	"github.com/noah-isme/curriculum-qa-api/internal/middleware"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
	"github.com/noah-isme/curriculum-qa-api/pkg/response"
)

type validationService interface {
	ValidateContent(ctx context.Context, req dto.ValidateContentRequest) (*models.ValidationReport, bool, error)
	Validators() []models.ValidatorInfo
}

type levelResolver interface {
	ResolveFor(ctx context.Context, userID string, level models.UserExperienceLevel, contentType models.ContentType) (*models.ResolvedConfig, error)
}

type feedbackService interface {
	Feedback(ctx context.Context, req dto.FeedbackRequest) (*models.FeedbackReport, error)
}

// ValidationHandler exposes content validation and feedback endpoints.
type ValidationHandler struct {
	validation validationService
	resolver   levelResolver
	feedback   feedbackService
}

// NewValidationHandler builds the handler. resolver may be nil, in which case the level
// field of a request is ignored.
func NewValidationHandler(validation validationService, resolver levelResolver, feedback feedbackService) *ValidationHandler {
	return &ValidationHandler{validation: validation, resolver: resolver, feedback: feedback}
}

// Validate godoc
// @Summary Validate generated content
// @Tags Validation
// @Accept json
// @Produce json
// @Param payload body dto.ValidateContentRequest true "Content and optional configuration"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /validations [post]
func (h *ValidationHandler) Validate(c *gin.Context) {
	var req dto.ValidateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid validation payload"))
		return
	}
	if req.Config == nil && req.Level != "" && h.resolver != nil {
		resolved, err := h.resolver.ResolveFor(c.Request.Context(), actorID(c), req.Level, req.Content.ContentType)
		if err != nil {
			response.Error(c, err)
			return
		}
		req.Config = &resolved.Config
	}
	report, hit, err := h.validation.ValidateContent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, report, middleware.ExtractMeta(c))
}

// Validators godoc
// @Summary List registered validators
// @Tags Validation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /validators [get]
func (h *ValidationHandler) Validators(c *gin.Context) {
	response.OK(c, h.validation.Validators())
}

// Feedback godoc
// @Summary Group validation issues into encouraging feedback
// @Tags Validation
// @Accept json
// @Produce json
// @Param payload body dto.FeedbackRequest true "Issues or content to validate"
// @Success 200 {object} response.Envelope
// @Router /feedback [post]
func (h *ValidationHandler) Feedback(c *gin.Context) {
	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feedback payload"))
		return
	}
	report, err := h.feedback.Feedback(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}
