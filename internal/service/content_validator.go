package service

import (
	"time"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
)

// Validator names registered by BuiltinValidators.
const (
	ValidatorStructure    = "structure"
	ValidatorReadability  = "readability"
	ValidatorCompleteness = "completeness"
	ValidatorGrammar      = "grammar"
)

// ContentValidator scores one content item. Implementations must be pure functions of
// content and config so repeated runs produce identical issues and scores.
type ContentValidator interface {
	Name() string
	Description() string
	SupportedTypes() []models.ContentType
	Validate(content models.GeneratedContent, cfg models.ValidationConfig) models.ValidationResult
	AutoFix(content models.GeneratedContent, issue models.ValidationIssue) (string, bool)
}

// BuiltinValidators returns the fixed validator set in canonical order.
func BuiltinValidators() []ContentValidator {
	return []ContentValidator{
		NewStructureValidator(),
		NewReadabilityValidator(),
		NewCompletenessValidator(),
		NewGrammarValidator(),
	}
}

func supports(v ContentValidator, contentType models.ContentType) bool {
	for _, t := range v.SupportedTypes() {
		if t == contentType {
			return true
		}
	}
	return false
}

func buildResult(name, text string, started time.Time, score float64, issues []models.ValidationIssue, stats map[string]float64) models.ValidationResult {
	if issues == nil {
		issues = []models.ValidationIssue{}
	}
	return models.ValidationResult{
		ValidatorName: name,
		Score:         round2(clamp01(score)),
		Passed:        models.PassedFor(issues),
		Issues:        issues,
		Metadata: models.ValidationMetadata{
			ExecutionTimeMS: time.Since(started).Milliseconds(),
			WordCount:       WordCount(text),
			SentenceCount:   len(splitSentences(text)),
			Stats:           stats,
			Timestamp:       time.Now().UTC(),
		},
	}
}
