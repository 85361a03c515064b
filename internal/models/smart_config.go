package models

import "time"

// UserExperienceLevel selects a validation preset.
type UserExperienceLevel string

const (
	ExperienceBeginner     UserExperienceLevel = "BEGINNER"
	ExperienceIntermediate UserExperienceLevel = "INTERMEDIATE"
	ExperienceAdvanced     UserExperienceLevel = "ADVANCED"
	ExperienceExpert       UserExperienceLevel = "EXPERT"
	ExperienceCustom       UserExperienceLevel = "CUSTOM"
)

// ComplexityLevel labels the language register a preset targets.
type ComplexityLevel string

const (
	ComplexitySimple       ComplexityLevel = "SIMPLE"
	ComplexityStandard     ComplexityLevel = "STANDARD"
	ComplexityAdvanced     ComplexityLevel = "ADVANCED"
	ComplexityProfessional ComplexityLevel = "PROFESSIONAL"
)

// ReadabilityTargets are the readability limits of a preset.
type ReadabilityTargets struct {
	MinFlesch        float64 `json:"min_flesch" yaml:"min_flesch"`
	MaxGradeLevel    float64 `json:"max_grade_level" yaml:"max_grade_level"`
	MaxSentenceWords int     `json:"max_sentence_words" yaml:"max_sentence_words"`
}

// ValidationPreset is the policy bundle for one experience level.
type ValidationPreset struct {
	Level             UserExperienceLevel `json:"level" yaml:"-"`
	Targets           ReadabilityTargets  `json:"targets" yaml:"targets"`
	EnabledValidators []string            `json:"enabled_validators" yaml:"enabled_validators"`
	AutoFixEnabled    bool                `json:"auto_fix_enabled" yaml:"auto_fix_enabled"`
	SeverityThreshold IssueSeverity       `json:"severity_threshold" yaml:"severity_threshold"`
	Complexity        ComplexityLevel     `json:"complexity" yaml:"complexity"`
	CheckAlignment    bool                `json:"check_alignment" yaml:"check_alignment"`
}

// PreferenceDecision is a user action that teaches adaptive settings.
type PreferenceDecision string

const (
	PreferenceDismissIssue     PreferenceDecision = "DISMISS_ISSUE"
	PreferenceAcceptFix        PreferenceDecision = "ACCEPT_FIX"
	PreferenceRejectFix        PreferenceDecision = "REJECT_FIX"
	PreferenceModifySuggestion PreferenceDecision = "MODIFY_SUGGESTION"
)

// PreferenceEvent is one explicit user decision fed to the resolver.
type PreferenceEvent struct {
	Decision    PreferenceDecision `json:"decision" validate:"required,oneof=DISMISS_ISSUE ACCEPT_FIX REJECT_FIX MODIFY_SUGGESTION"`
	IssueType   IssueType          `json:"issue_type,omitempty"`
	FixType     RemediationFixType `json:"fix_type,omitempty"`
	ContentType ContentType        `json:"content_type,omitempty"`
}

// AdaptiveSettings are preferences learned from a user's decisions.
type AdaptiveSettings struct {
	UserID              string                     `json:"user_id"`
	DismissedIssueTypes []IssueType                `json:"dismissed_issue_types"`
	Strictness          map[ContentType]float64    `json:"strictness"`
	AcceptedFixes       map[RemediationFixType]int `json:"accepted_fixes"`
	RejectedFixes       map[RemediationFixType]int `json:"rejected_fixes"`
	ModifiedSuggestions int                        `json:"modified_suggestions"`
	UpdatedAt           time.Time                  `json:"updated_at"`
}

// NewAdaptiveSettings returns empty settings for a user.
func NewAdaptiveSettings(userID string) *AdaptiveSettings {
	return &AdaptiveSettings{
		UserID:        userID,
		Strictness:    map[ContentType]float64{},
		AcceptedFixes: map[RemediationFixType]int{},
		RejectedFixes: map[RemediationFixType]int{},
	}
}

// Dismissed reports whether the user dismissed the issue type.
func (a *AdaptiveSettings) Dismissed(issueType IssueType) bool {
	if a == nil {
		return false
	}
	for _, dismissed := range a.DismissedIssueTypes {
		if dismissed == issueType {
			return true
		}
	}
	return false
}

// ResolvedConfig is the output of the smart configuration resolver.
type ResolvedConfig struct {
	Level       UserExperienceLevel    `json:"level"`
	ContentType ContentType            `json:"content_type"`
	Preset      ValidationPreset       `json:"preset"`
	Config      ValidationConfig       `json:"config"`
	Preferences RemediationPreferences `json:"preferences"`
}
