package models

import "time"

// FeedbackCategory is a user-facing grouping of validator issues.
type FeedbackCategory string

const (
	FeedbackReadabilityClarity     FeedbackCategory = "READABILITY_CLARITY"
	FeedbackOrganizationStructure  FeedbackCategory = "ORGANIZATION_STRUCTURE"
	FeedbackCompletenessDetail     FeedbackCategory = "COMPLETENESS_DETAIL"
	FeedbackLanguageGrammar        FeedbackCategory = "LANGUAGE_GRAMMAR"
	FeedbackConsistencyAlignment   FeedbackCategory = "CONSISTENCY_ALIGNMENT"
	FeedbackAccessibilityInclusion FeedbackCategory = "ACCESSIBILITY_INCLUSION"
)

// AllFeedbackCategories lists the six categories in display order.
func AllFeedbackCategories() []FeedbackCategory {
	return []FeedbackCategory{
		FeedbackReadabilityClarity,
		FeedbackOrganizationStructure,
		FeedbackCompletenessDetail,
		FeedbackLanguageGrammar,
		FeedbackConsistencyAlignment,
		FeedbackAccessibilityInclusion,
	}
}

// FeedbackPriority is the textual priority of a feedback group.
type FeedbackPriority string

const (
	FeedbackPriorityHigh   FeedbackPriority = "HIGH"
	FeedbackPriorityMedium FeedbackPriority = "MEDIUM"
	FeedbackPriorityLow    FeedbackPriority = "LOW"
)

// OverallStatus is the headline verdict shown to the author.
type OverallStatus string

const (
	StatusExcellent     OverallStatus = "EXCELLENT"
	StatusGood          OverallStatus = "GOOD"
	StatusNeedsWork     OverallStatus = "NEEDS_WORK"
	StatusNeedsRevision OverallStatus = "NEEDS_REVISION"
)

// FeedbackItem is one issue rendered for display.
type FeedbackItem struct {
	Severity    IssueSeverity  `json:"severity"`
	IssueType   IssueType      `json:"issue_type"`
	Message     string         `json:"message"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Location    *IssueLocation `json:"location,omitempty"`
	AutoFixable bool           `json:"auto_fixable"`
}

// FeedbackGroup collects the items of one category.
type FeedbackGroup struct {
	Category         FeedbackCategory `json:"category"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Priority         FeedbackPriority `json:"priority"`
	EstimatedMinutes int              `json:"estimated_minutes"`
	ProgressScore    int              `json:"progress_score"`
	Items            []FeedbackItem   `json:"items"`
}

// SeverityCounts tallies issues per severity.
type SeverityCounts struct {
	Critical int `json:"critical"`
	Error    int `json:"error"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
}

// FeedbackReport is the presentation-ready view of a validation run.
type FeedbackReport struct {
	ContentID        string                   `json:"content_id,omitempty"`
	Status           OverallStatus            `json:"status"`
	OverallScore     float64                  `json:"overall_score"`
	Summary          string                   `json:"summary"`
	Counts           SeverityCounts           `json:"counts"`
	CategoryScores   map[FeedbackCategory]int `json:"category_scores"`
	Groups           []FeedbackGroup          `json:"groups"`
	EstimatedMinutes int                      `json:"estimated_minutes"`
	NextSteps        []string                 `json:"next_steps"`
	GeneratedAt      time.Time                `json:"generated_at"`
}
