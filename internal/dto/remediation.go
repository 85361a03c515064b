package dto

import "github.com/noah-isme/curriculum-qa-api/internal/models"

// CreateRemediationRequest captures POST /remediation/sessions. When Issues is empty
// the content is validated first and every reported issue is remediated.
type CreateRemediationRequest struct {
	Content     ContentPayload                 `json:"content"`
	Issues      []models.ValidationIssue       `json:"issues,omitempty"`
	Validators  []string                       `json:"validators,omitempty"`
	Preferences *models.RemediationPreferences `json:"preferences,omitempty"`
	AutoApply   bool                           `json:"auto_apply"`
}

// RemediationSessionResponse returns the session plus the content after any auto-applied fixes.
type RemediationSessionResponse struct {
	Session *models.RemediationSession `json:"session"`
	Content *models.GeneratedContent   `json:"content,omitempty"`
}

// ApplyFixRequest captures POST /remediation/sessions/:id/apply.
type ApplyFixRequest struct {
	SuggestionID string         `json:"suggestion_id" validate:"required"`
	Content      ContentPayload `json:"content"`
	UserApproved bool           `json:"user_approved"`
}

// ApplyFixResponse returns the applied fix record and the updated content.
type ApplyFixResponse struct {
	AppliedFix models.AppliedFix       `json:"applied_fix"`
	Content    models.GeneratedContent `json:"content"`
	Status     models.SessionStatus    `json:"status"`
}

// DecisionRequest captures POST /remediation/sessions/:id/decisions.
type DecisionRequest struct {
	SuggestionID string              `json:"suggestion_id" validate:"required"`
	Decision     models.DecisionType `json:"decision" validate:"required,oneof=ACCEPT REJECT MODIFY DISMISS"`
	Note         string              `json:"note,omitempty" validate:"max=1000"`
	ModifiedText string              `json:"modified_text,omitempty"`
}
