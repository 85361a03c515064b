package dto

import "github.com/noah-isme/curriculum-qa-api/internal/models"

// ResolveConfigRequest captures POST /smart-config/resolve.
type ResolveConfigRequest struct {
	Level       models.UserExperienceLevel `json:"level" validate:"required,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT CUSTOM"`
	ContentType models.ContentType         `json:"content_type" validate:"required,oneof=SLIDES QUIZ WORKSHEET INSTRUCTOR_NOTES ACTIVITY_GUIDE"`
	Custom      *CustomPresetOverrides     `json:"custom,omitempty"`
}

// CustomPresetOverrides tunes the CUSTOM level. Zero values keep the base preset.
type CustomPresetOverrides struct {
	MinFlesch         float64              `json:"min_flesch" validate:"omitempty,min=0,max=100"`
	MaxGradeLevel     float64              `json:"max_grade_level" validate:"omitempty,min=1,max=20"`
	MaxSentenceWords  int                  `json:"max_sentence_words" validate:"omitempty,min=5,max=80"`
	EnabledValidators []string             `json:"enabled_validators,omitempty"`
	AutoFixEnabled    *bool                `json:"auto_fix_enabled,omitempty"`
	SeverityThreshold models.IssueSeverity `json:"severity_threshold,omitempty" validate:"omitempty,oneof=INFO WARNING ERROR CRITICAL"`
}

// RecordPreferenceRequest captures POST /smart-config/decisions.
type RecordPreferenceRequest struct {
	Decision    models.PreferenceDecision `json:"decision" validate:"required,oneof=DISMISS_ISSUE ACCEPT_FIX REJECT_FIX MODIFY_SUGGESTION"`
	IssueType   models.IssueType          `json:"issue_type,omitempty"`
	FixType     models.RemediationFixType `json:"fix_type,omitempty"`
	ContentType models.ContentType        `json:"content_type,omitempty"`
}

// ToEvent converts the request into a preference event.
func (r RecordPreferenceRequest) ToEvent() models.PreferenceEvent {
	return models.PreferenceEvent{
		Decision:    r.Decision,
		IssueType:   r.IssueType,
		FixType:     r.FixType,
		ContentType: r.ContentType,
	}
}
