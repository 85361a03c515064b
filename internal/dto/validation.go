package dto

import "github.com/noah-isme/curriculum-qa-api/internal/models"

// ValidateContentRequest captures POST /validations.
type ValidateContentRequest struct {
	Content    ContentPayload             `json:"content"`
	Validators []string                   `json:"validators,omitempty"`
	Level      models.UserExperienceLevel `json:"level,omitempty" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT CUSTOM"`
	Config     *models.ValidationConfig   `json:"config,omitempty"`
}

// FeedbackRequest captures POST /feedback. Either Content or Issues must be supplied.
type FeedbackRequest struct {
	Content    *ContentPayload          `json:"content,omitempty"`
	ContentID  string                   `json:"content_id,omitempty"`
	Issues     []models.ValidationIssue `json:"issues,omitempty"`
	Validators []string                 `json:"validators,omitempty"`
}
