package dto

import "github.com/noah-isme/curriculum-qa-api/internal/models"

// CreateDryRunRequest captures POST /dry-runs. ValidationResults may be omitted, in
// which case the content is validated with the default configuration.
type CreateDryRunRequest struct {
	Content           ContentPayload                `json:"content"`
	ValidationResults []models.ValidationResult     `json:"validation_results,omitempty"`
	Validators        []string                      `json:"validators,omitempty"`
	Preferences       models.RemediationPreferences `json:"preferences"`
}

// ApplyChangesRequest captures POST /dry-runs/:id/apply.
type ApplyChangesRequest struct {
	ChangeIDs []string        `json:"change_ids" validate:"required,min=1,dive,required"`
	Content   *ContentPayload `json:"content,omitempty"`
}

// CleanupResponse reports how many sessions a sweep removed.
type CleanupResponse struct {
	Removed int `json:"removed"`
}
