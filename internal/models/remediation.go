package models

import "time"

// RemediationFixType is the closed set of remediation actions.
type RemediationFixType string

const (
	FixTypos               RemediationFixType = "FIX_TYPOS"
	CorrectCapitalization  RemediationFixType = "CORRECT_CAPITALIZATION"
	RemoveDuplicates       RemediationFixType = "REMOVE_DUPLICATES"
	AddMissingSection      RemediationFixType = "ADD_MISSING_SECTION"
	FixGrammarError        RemediationFixType = "FIX_GRAMMAR_ERROR"
	ImproveReadability     RemediationFixType = "IMPROVE_READABILITY"
	AddHeadings            RemediationFixType = "ADD_HEADINGS"
	ReorganizeContent      RemediationFixType = "REORGANIZE_CONTENT"
	AlignObjectives        RemediationFixType = "ALIGN_OBJECTIVES"
	AddLearningObjectives  RemediationFixType = "ADD_LEARNING_OBJECTIVES"
	ExpandContent          RemediationFixType = "EXPAND_CONTENT"
	AddExamples            RemediationFixType = "ADD_EXAMPLES"
	FormatText             RemediationFixType = "FORMAT_TEXT"
	StandardizeTerminology RemediationFixType = "STANDARDIZE_TERMINOLOGY"
	StandardizeAssessment  RemediationFixType = "STANDARDIZE_ASSESSMENT"
	AddMissingTopics       RemediationFixType = "ADD_MISSING_TOPICS"
	FixSectionOrder        RemediationFixType = "FIX_SECTION_ORDER"
)

// AllFixTypes lists every fix type in declaration order.
func AllFixTypes() []RemediationFixType {
	return []RemediationFixType{
		FixTypos, CorrectCapitalization, RemoveDuplicates, AddMissingSection, FixGrammarError,
		ImproveReadability, AddHeadings, ReorganizeContent, AlignObjectives, AddLearningObjectives,
		ExpandContent, AddExamples, FormatText, StandardizeTerminology, StandardizeAssessment,
		AddMissingTopics, FixSectionOrder,
	}
}

// Valid reports whether f is a known fix type.
func (f RemediationFixType) Valid() bool {
	for _, known := range AllFixTypes() {
		if f == known {
			return true
		}
	}
	return false
}

// Structural reports whether the fix reshapes section layout.
func (f RemediationFixType) Structural() bool {
	switch f {
	case AddMissingSection, ReorganizeContent, FixSectionOrder:
		return true
	default:
		return false
	}
}

// ConfidenceLevel expresses how likely a fix is correct.
type ConfidenceLevel string

const (
	ConfidenceVeryHigh ConfidenceLevel = "VERY_HIGH"
	ConfidenceHigh     ConfidenceLevel = "HIGH"
	ConfidenceMedium   ConfidenceLevel = "MEDIUM"
	ConfidenceLow      ConfidenceLevel = "LOW"
	ConfidenceVeryLow  ConfidenceLevel = "VERY_LOW"
)

// Weight maps confidence to the multiplier used in suggestion priority.
func (c ConfidenceLevel) Weight() float64 {
	switch c {
	case ConfidenceVeryHigh:
		return 1.0
	case ConfidenceHigh:
		return 0.8
	case ConfidenceMedium:
		return 0.6
	case ConfidenceLow:
		return 0.4
	default:
		return 0.2
	}
}

// RiskLevel expresses how likely a fix is to damage meaning or structure.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "SAFE"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Rank returns the ordinal of the risk level, Safe being 0.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskSafe:
		return 0
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 4
	}
}

// AtLeast reports whether r is as risky as other.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.Rank() >= other.Rank()
}

// DiffKind marks whether a highlighted span was inserted or deleted.
type DiffKind string

const (
	DiffAdded   DiffKind = "ADDED"
	DiffRemoved DiffKind = "REMOVED"
)

// DiffHighlight is one changed span. Offsets index the after text for additions and the before text for removals.
type DiffHighlight struct {
	Kind  DiffKind `json:"kind"`
	Text  string   `json:"text"`
	Start int      `json:"start"`
	End   int      `json:"end"`
}

// ContentPreview shows a fix's effect on the content body.
type ContentPreview struct {
	Before           string          `json:"before"`
	After            string          `json:"after"`
	Highlights       []DiffHighlight `json:"highlights"`
	AffectedSections []string        `json:"affected_sections,omitempty"`
}

// ImpactAssessment estimates the benefit of applying a fix. Scores range over 0..1.
type ImpactAssessment struct {
	EducationalEffectiveness float64  `json:"educational_effectiveness"`
	ReadabilityImprovement   float64  `json:"readability_improvement"`
	StructureImprovement     float64  `json:"structure_improvement"`
	ConsistencyImprovement   float64  `json:"consistency_improvement"`
	Benefits                 []string `json:"benefits,omitempty"`
	Drawbacks                []string `json:"drawbacks,omitempty"`
}

// Overall averages the four impact scores.
func (i ImpactAssessment) Overall() float64 {
	return (i.EducationalEffectiveness + i.ReadabilityImprovement + i.StructureImprovement + i.ConsistencyImprovement) / 4
}

// AlternativeFix is a different fix the user may prefer for the same issue.
type AlternativeFix struct {
	FixType     RemediationFixType `json:"fix_type"`
	Description string             `json:"description"`
	Confidence  ConfidenceLevel    `json:"confidence"`
}

// RemediationSuggestion is a proposed fix tied to one issue.
type RemediationSuggestion struct {
	ID               string             `json:"id"`
	IssueType        IssueType          `json:"issue_type"`
	IssueSeverity    IssueSeverity      `json:"issue_severity"`
	IssueMessage     string             `json:"issue_message"`
	FixType          RemediationFixType `json:"fix_type"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	Preview          ContentPreview     `json:"preview"`
	Confidence       ConfidenceLevel    `json:"confidence"`
	RiskLevel        RiskLevel          `json:"risk_level"`
	RequiresApproval bool               `json:"requires_approval"`
	EstimatedImpact  ImpactAssessment   `json:"estimated_impact"`
	Alternatives     []AlternativeFix   `json:"alternatives,omitempty"`
	Priority         float64            `json:"priority"`
}

// DecisionType is the user's verdict on a suggestion.
type DecisionType string

const (
	DecisionAccept  DecisionType = "ACCEPT"
	DecisionReject  DecisionType = "REJECT"
	DecisionModify  DecisionType = "MODIFY"
	DecisionDismiss DecisionType = "DISMISS"
)

// Valid reports whether d is a known decision.
func (d DecisionType) Valid() bool {
	switch d {
	case DecisionAccept, DecisionReject, DecisionModify, DecisionDismiss:
		return true
	default:
		return false
	}
}

// UserDecision records a verdict on one suggestion.
type UserDecision struct {
	SuggestionID string       `json:"suggestion_id"`
	Decision     DecisionType `json:"decision"`
	Note         string       `json:"note,omitempty"`
	ModifiedText string       `json:"modified_text,omitempty"`
	DecidedAt    time.Time    `json:"decided_at"`
}

// AppliedFix records the outcome of applying one suggestion.
type AppliedFix struct {
	SuggestionID string             `json:"suggestion_id"`
	FixType      RemediationFixType `json:"fix_type"`
	Before       string             `json:"before"`
	After        string             `json:"after"`
	Success      bool               `json:"success"`
	Error        string             `json:"error,omitempty"`
	UserApproved bool               `json:"user_approved"`
	AppliedAt    time.Time          `json:"applied_at"`
}

// SessionStatus tracks a remediation session's progress.
type SessionStatus string

const (
	SessionPending          SessionStatus = "PENDING"
	SessionInProgress       SessionStatus = "IN_PROGRESS"
	SessionPartiallyApplied SessionStatus = "PARTIALLY_APPLIED"
	SessionCompleted        SessionStatus = "COMPLETED"
	SessionCancelled        SessionStatus = "CANCELLED"
)

// RemediationSession groups suggestions, decisions, and applied fixes for one content item.
type RemediationSession struct {
	ID             string                  `json:"session_id"`
	ContentID      string                  `json:"content_id"`
	ContentType    ContentType             `json:"content_type"`
	UserID         string                  `json:"user_id,omitempty"`
	SuggestedFixes []RemediationSuggestion `json:"suggested_fixes"`
	AppliedFixes   []AppliedFix            `json:"applied_fixes"`
	UserDecisions  []UserDecision          `json:"user_decisions"`
	Status         SessionStatus           `json:"status"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
	ExpiresAt      time.Time               `json:"expires_at"`
}

// Suggestion returns the suggestion with the given id.
func (s *RemediationSession) Suggestion(id string) (*RemediationSuggestion, bool) {
	for i := range s.SuggestedFixes {
		if s.SuggestedFixes[i].ID == id {
			return &s.SuggestedFixes[i], true
		}
	}
	return nil, false
}

// Decision returns the latest decision recorded for a suggestion.
func (s *RemediationSession) Decision(suggestionID string) (*UserDecision, bool) {
	for i := len(s.UserDecisions) - 1; i >= 0; i-- {
		if s.UserDecisions[i].SuggestionID == suggestionID {
			return &s.UserDecisions[i], true
		}
	}
	return nil, false
}

// RemediationPreferences tune suggestion generation for a caller.
type RemediationPreferences struct {
	RejectedFixTypes          []RemediationFixType `json:"rejected_fix_types,omitempty"`
	MaxSuggestions            int                  `json:"max_suggestions,omitempty"`
	AutoApplicable            []RemediationFixType `json:"auto_applicable,omitempty"`
	RequireStructuralApproval *bool                `json:"require_structural_approval,omitempty"`
}
