package models

import "time"

// IssueSeverity ranks validation issues from Info up to Critical.
type IssueSeverity string

const (
	SeverityInfo     IssueSeverity = "INFO"
	SeverityWarning  IssueSeverity = "WARNING"
	SeverityError    IssueSeverity = "ERROR"
	SeverityCritical IssueSeverity = "CRITICAL"
)

// Rank returns the ordinal of the severity; unknown values rank lowest.
func (s IssueSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as other.
func (s IssueSeverity) AtLeast(other IssueSeverity) bool {
	return s.Rank() >= other.Rank()
}

// IssueType categorises what kind of problem a validator found.
type IssueType string

const (
	IssueTypeStructure            IssueType = "STRUCTURE"
	IssueTypeReadability          IssueType = "READABILITY"
	IssueTypeCompleteness         IssueType = "COMPLETENESS"
	IssueTypeGrammar              IssueType = "GRAMMAR"
	IssueTypeSpelling             IssueType = "SPELLING"
	IssueTypeConsistency          IssueType = "CONSISTENCY"
	IssueTypeLearningObjectives   IssueType = "LEARNING_OBJECTIVES"
	IssueTypePedagogicalAlignment IssueType = "PEDAGOGICAL_ALIGNMENT"
	IssueTypeFormatting           IssueType = "FORMATTING"
	IssueTypeAccessibility        IssueType = "ACCESSIBILITY"
)

// IssueLocation pinpoints an issue inside the content. All fields are optional.
type IssueLocation struct {
	Section        string `json:"section,omitempty"`
	Line           *int   `json:"line,omitempty"`
	CharStart      *int   `json:"char_start,omitempty"`
	CharEnd        *int   `json:"char_end,omitempty"`
	SlideNumber    *int   `json:"slide_number,omitempty"`
	QuestionNumber *int   `json:"question_number,omitempty"`
}

// ValidationIssue is one detected problem.
type ValidationIssue struct {
	Severity    IssueSeverity  `json:"severity"`
	IssueType   IssueType      `json:"issue_type"`
	Message     string         `json:"message"`
	Location    *IssueLocation `json:"location,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	AutoFixable bool           `json:"auto_fixable"`
}

// ValidationMetadata describes a single validator run.
type ValidationMetadata struct {
	ExecutionTimeMS int64              `json:"execution_time_ms"`
	WordCount       int                `json:"word_count"`
	SentenceCount   int                `json:"sentence_count"`
	Stats           map[string]float64 `json:"stats,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
}

// ValidationResult is one validator's verdict on one content item.
type ValidationResult struct {
	ValidatorName string             `json:"validator_name"`
	Score         float64            `json:"score"`
	Passed        bool               `json:"passed"`
	Issues        []ValidationIssue  `json:"issues"`
	Metadata      ValidationMetadata `json:"metadata"`
}

// PassedFor reports whether every issue is below Error severity.
func PassedFor(issues []ValidationIssue) bool {
	for _, issue := range issues {
		if issue.Severity.AtLeast(SeverityError) {
			return false
		}
	}
	return true
}

// PluginConfig is a free-form per-validator configuration blob.
type PluginConfig map[string]interface{}

// Float returns a numeric option, accepting any JSON or Go numeric representation.
func (p PluginConfig) Float(key string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	switch v := p[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Bool returns a boolean option with a fallback when absent.
func (p PluginConfig) Bool(key string, fallback bool) bool {
	if p == nil {
		return fallback
	}
	if v, ok := p[key].(bool); ok {
		return v
	}
	return fallback
}

// ValidationConfig selects and tunes validators for one run.
type ValidationConfig struct {
	EnabledValidators    []string                `json:"enabled_validators"`
	SeverityThreshold    IssueSeverity           `json:"severity_threshold"`
	AutoFixEnabled       bool                    `json:"auto_fix_enabled"`
	ReadabilityThreshold float64                 `json:"readability_threshold"`
	PluginConfigs        map[string]PluginConfig `json:"plugin_configs,omitempty"`
	ExcludedIssueTypes   []IssueType             `json:"excluded_issue_types,omitempty"`
}

// Plugin returns the configuration blob for the named validator, never nil.
func (c ValidationConfig) Plugin(name string) PluginConfig {
	if c.PluginConfigs == nil {
		return PluginConfig{}
	}
	if cfg, ok := c.PluginConfigs[name]; ok && cfg != nil {
		return cfg
	}
	return PluginConfig{}
}

// ValidationReport aggregates the results of every validator that ran on a content item.
type ValidationReport struct {
	ContentID        string                `json:"content_id,omitempty"`
	ContentType      ContentType           `json:"content_type"`
	Title            string                `json:"title"`
	Passed           bool                  `json:"passed"`
	OverallScore     float64               `json:"overall_score"`
	TotalIssues      int                   `json:"total_issues"`
	IssuesBySeverity map[IssueSeverity]int `json:"issues_by_severity"`
	Results          []ValidationResult    `json:"results"`
	Config           ValidationConfig      `json:"config"`
	GeneratedAt      time.Time             `json:"generated_at"`
}

// Issues flattens the issues of every result in result order.
func (r ValidationReport) Issues() []ValidationIssue {
	var issues []ValidationIssue
	for _, result := range r.Results {
		issues = append(issues, result.Issues...)
	}
	return issues
}

// ValidatorInfo describes a registered validator.
type ValidatorInfo struct {
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	SupportedTypes []ContentType `json:"supported_types"`
}
