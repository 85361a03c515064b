package models

import "time"

// ChangeCategory buckets proposed changes for presentation.
type ChangeCategory string

const (
	CategoryGrammarAndSpelling      ChangeCategory = "GRAMMAR_AND_SPELLING"
	CategoryReadabilityImprovements ChangeCategory = "READABILITY_IMPROVEMENTS"
	CategoryStructuralChanges       ChangeCategory = "STRUCTURAL_CHANGES"
	CategoryContentAdditions        ChangeCategory = "CONTENT_ADDITIONS"
	CategoryContentRemovals         ChangeCategory = "CONTENT_REMOVALS"
	CategoryFormatting              ChangeCategory = "FORMATTING"
	CategoryAccessibility           ChangeCategory = "ACCESSIBILITY"
)

// AllChangeCategories lists categories in presentation order.
func AllChangeCategories() []ChangeCategory {
	return []ChangeCategory{
		CategoryGrammarAndSpelling,
		CategoryReadabilityImprovements,
		CategoryStructuralChanges,
		CategoryContentAdditions,
		CategoryContentRemovals,
		CategoryFormatting,
		CategoryAccessibility,
	}
}

// ProposedChange is a dry-run view of one remediation suggestion.
type ProposedChange struct {
	ID               string             `json:"change_id"`
	Sequence         int                `json:"sequence"`
	SuggestionID     string             `json:"suggestion_id"`
	FixType          RemediationFixType `json:"fix_type"`
	Category         ChangeCategory     `json:"category"`
	IssueType        IssueType          `json:"issue_type"`
	IssueSeverity    IssueSeverity      `json:"issue_severity"`
	IssueMessage     string             `json:"issue_message"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	Preview          ContentPreview     `json:"preview"`
	WordCountDelta   int                `json:"word_count_delta"`
	Confidence       ConfidenceLevel    `json:"confidence"`
	RiskLevel        RiskLevel          `json:"risk_level"`
	RequiresApproval bool               `json:"requires_approval"`
	EstimatedImpact  ImpactAssessment   `json:"estimated_impact"`
	Dependencies     []string           `json:"dependencies,omitempty"`
	Reversible       bool               `json:"reversible"`
}

// EffortLevel estimates how much reviewer attention a group needs.
type EffortLevel string

const (
	EffortMinimal  EffortLevel = "MINIMAL"
	EffortLow      EffortLevel = "LOW"
	EffortModerate EffortLevel = "MODERATE"
	EffortHigh     EffortLevel = "HIGH"
)

// GroupImpact summarises one change group.
type GroupImpact struct {
	ImprovementScore float64     `json:"improvement_score"`
	RiskScore        float64     `json:"risk_score"`
	UserEffort       EffortLevel `json:"user_effort"`
	Reversible       bool        `json:"reversible"`
}

// ChangeGroup holds every proposed change of one category.
type ChangeGroup struct {
	Category ChangeCategory   `json:"category"`
	Title    string           `json:"title"`
	Changes  []ProposedChange `json:"changes"`
	Impact   GroupImpact      `json:"impact"`
}

// DryRunSummary gives headline counts for a preview.
type DryRunSummary struct {
	TotalChanges           int `json:"total_changes"`
	AutoApplicable         int `json:"auto_applicable"`
	RequiresApproval       int `json:"requires_approval"`
	CategoriesAffected     int `json:"categories_affected"`
	WordCountBefore        int `json:"word_count_before"`
	WordCountAfter         int `json:"word_count_after"`
	EstimatedReviewMinutes int `json:"estimated_review_minutes"`
}

// ReadabilityImpact compares readability before and after every change is applied.
type ReadabilityImpact struct {
	FleschBefore float64 `json:"flesch_before"`
	FleschAfter  float64 `json:"flesch_after"`
	FleschDelta  float64 `json:"flesch_delta"`
	GradeBefore  float64 `json:"grade_before"`
	GradeAfter   float64 `json:"grade_after"`
	GradeDelta   float64 `json:"grade_delta"`
	Score        float64 `json:"score"`
}

// IntegrityRisk is the qualitative verdict on meaning preservation.
type IntegrityRisk string

const (
	IntegrityRiskMinimal  IntegrityRisk = "MINIMAL"
	IntegrityRiskLow      IntegrityRisk = "LOW"
	IntegrityRiskModerate IntegrityRisk = "MODERATE"
	IntegrityRiskHigh     IntegrityRisk = "HIGH"
)

// IntegrityAssessment estimates whether the content keeps its meaning.
type IntegrityAssessment struct {
	MeaningPreservation float64       `json:"meaning_preservation"`
	Risk                IntegrityRisk `json:"risk"`
	Concerns            []string      `json:"concerns,omitempty"`
}

// ImpactAnalysis aggregates the effect of every change in a session.
type ImpactAnalysis struct {
	OverallQualityDelta float64             `json:"overall_quality_delta"`
	StructuralDelta     float64             `json:"structural_delta"`
	Readability         ReadabilityImpact   `json:"readability"`
	Integrity           IntegrityAssessment `json:"integrity"`
	Risks               []string            `json:"risks,omitempty"`
	Benefits            []string            `json:"benefits,omitempty"`
}

// SideBySidePreview shows full before and after text.
type SideBySidePreview struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// ChangeSnippet lists only the text a single change touches.
type ChangeSnippet struct {
	ChangeID string   `json:"change_id"`
	Title    string   `json:"title"`
	Removed  []string `json:"removed,omitempty"`
	Added    []string `json:"added,omitempty"`
}

// PreviewModes renders the combined effect three ways.
type PreviewModes struct {
	SideBySide  SideBySidePreview `json:"side_by_side"`
	UnifiedDiff string            `json:"unified_diff"`
	ChangesOnly []ChangeSnippet   `json:"changes_only"`
}

// UserGuidance helps the user decide what to apply.
type UserGuidance struct {
	RecommendedOrder []string `json:"recommended_order"`
	Warnings         []string `json:"warnings,omitempty"`
	Tips             []string `json:"tips,omitempty"`
}

// SafetyLevel is the overall safety tier of a batch of changes.
type SafetyLevel string

const (
	SafetyVerySafe     SafetyLevel = "VERY_SAFE"
	SafetySafe         SafetyLevel = "SAFE"
	SafetyModerateRisk SafetyLevel = "MODERATE_RISK"
	SafetyHighRisk     SafetyLevel = "HIGH_RISK"
)

// SafetyCheck is one automated check result.
type SafetyCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

// SafetyAssessment summarises automated checks over the proposed changes.
type SafetyAssessment struct {
	Level                   SafetyLevel   `json:"level"`
	Checks                  []SafetyCheck `json:"checks"`
	ManualReviewRecommended bool          `json:"manual_review_recommended"`
	BackupRecommended       bool          `json:"backup_recommended"`
}

// Recommendation is the overall advice for a dry run.
type Recommendation string

const (
	RecommendApplyAll         Recommendation = "APPLY_ALL"
	RecommendApplyMost        Recommendation = "APPLY_MOST"
	RecommendReviewCarefully  Recommendation = "REVIEW_CAREFULLY"
	RecommendApplySelectively Recommendation = "APPLY_SELECTIVELY"
	RecommendDoNotApply       Recommendation = "DO_NOT_APPLY"
)

// DryRunResults is the computed preview tree.
type DryRunResults struct {
	Summary        DryRunSummary    `json:"summary"`
	ChangeGroups   []ChangeGroup    `json:"change_groups"`
	Impact         ImpactAnalysis   `json:"impact_analysis"`
	Previews       PreviewModes     `json:"preview_modes"`
	Guidance       UserGuidance     `json:"user_guidance"`
	Safety         SafetyAssessment `json:"safety_assessment"`
	Recommendation Recommendation   `json:"recommendation"`
}

// DryRunStatus tracks whether a preview may still be committed.
type DryRunStatus string

const (
	DryRunActive    DryRunStatus = "ACTIVE"
	DryRunCommitted DryRunStatus = "COMMITTED"
	DryRunCancelled DryRunStatus = "CANCELLED"
)

// DryRunSession is a time-boxed cached preview.
type DryRunSession struct {
	ID                string             `json:"session_id"`
	ContentID         string             `json:"content_id"`
	UserID            string             `json:"user_id,omitempty"`
	OriginalContent   GeneratedContent   `json:"original_content"`
	ValidationResults []ValidationResult `json:"validation_results"`
	Results           DryRunResults      `json:"results"`
	Status            DryRunStatus       `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
	ExpiresAt         time.Time          `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *DryRunSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Changes returns every proposed change ordered by proposal sequence.
func (s *DryRunSession) Changes() []ProposedChange {
	var changes []ProposedChange
	for _, group := range s.Results.ChangeGroups {
		changes = append(changes, group.Changes...)
	}
	for i := 1; i < len(changes); i++ {
		for j := i; j > 0 && changes[j].Sequence < changes[j-1].Sequence; j-- {
			changes[j], changes[j-1] = changes[j-1], changes[j]
		}
	}
	return changes
}

// DryRunSettings carries caller preferences into a dry run.
type DryRunSettings struct {
	UserID      string                 `json:"user_id,omitempty"`
	Preferences RemediationPreferences `json:"preferences"`
}

// ChangeApplicationResult is the outcome of applying one change.
type ChangeApplicationResult struct {
	ChangeID       string             `json:"change_id"`
	FixType        RemediationFixType `json:"fix_type,omitempty"`
	Success        bool               `json:"success"`
	Skipped        bool               `json:"skipped"`
	Error          string             `json:"error,omitempty"`
	WordCountDelta int                `json:"word_count_delta"`
	AppliedAt      time.Time          `json:"applied_at"`
}

// ApplicationResult is returned after committing selected changes.
type ApplicationResult struct {
	SessionID         string                    `json:"session_id"`
	OriginalContent   GeneratedContent          `json:"original_content"`
	FinalContent      GeneratedContent          `json:"final_content"`
	Results           []ChangeApplicationResult `json:"results"`
	Applied           int                       `json:"applied"`
	Failed            int                       `json:"failed"`
	Skipped           int                       `json:"skipped"`
	RollbackAvailable bool                      `json:"rollback_available"`
}
