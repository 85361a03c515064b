package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
)

var minimumWords = map[models.ContentType]int{
	models.ContentTypeSlides:          200,
	models.ContentTypeQuiz:            100,
	models.ContentTypeWorksheet:       300,
	models.ContentTypeInstructorNotes: 150,
	models.ContentTypeActivityGuide:   250,
}

var (
	objectiveKeywords = []string{"objective", "goal"}
	exampleKeywords   = []string{"example", "e.g.", "for instance"}
)

// exampleTypes are the content types expected to illustrate concepts with examples.
var exampleTypes = map[models.ContentType]bool{
	models.ContentTypeSlides:          true,
	models.ContentTypeWorksheet:       true,
	models.ContentTypeInstructorNotes: true,
}

// CompletenessValidator checks length against per-type minimums and looks for
// objective and example language.
type CompletenessValidator struct{}

// NewCompletenessValidator constructs the validator.
func NewCompletenessValidator() *CompletenessValidator {
	return &CompletenessValidator{}
}

func (v *CompletenessValidator) Name() string { return ValidatorCompleteness }

func (v *CompletenessValidator) Description() string {
	return "Checks word count minimums and presence of objectives and examples"
}

func (v *CompletenessValidator) SupportedTypes() []models.ContentType {
	return models.AllContentTypes()
}

// Validate scales the score with the word count ratio and takes 0.1 off per missing
// language element. Plugin options: min_words, check_alignment, check_examples.
func (v *CompletenessValidator) Validate(content models.GeneratedContent, cfg models.ValidationConfig) models.ValidationResult {
	started := time.Now()
	plugin := cfg.Plugin(v.Name())
	text := content.Content

	minWords := minimumWords[content.ContentType]
	if n, ok := plugin.Float("min_words"); ok && n > 0 {
		minWords = int(n)
	}
	count := WordCount(text)

	var issues []models.ValidationIssue
	ratio := 1.0
	if minWords > 0 && count < minWords {
		ratio = float64(count) / float64(minWords)
		severity := models.SeverityWarning
		if ratio < 0.5 {
			severity = models.SeverityError
		}
		issues = append(issues, models.ValidationIssue{
			Severity:    severity,
			IssueType:   models.IssueTypeCompleteness,
			Message:     fmt.Sprintf("Content has %d words; at least %d expected", count, minWords),
			Suggestions: []string{"Expand explanations", "Add supporting detail or practice items"},
			AutoFixable: true,
		})
	}

	checkAlignment := plugin.Bool("check_alignment", content.ContentType != models.ContentTypeQuiz)
	if checkAlignment && !containsAny(text, objectiveKeywords) {
		issues = append(issues, models.ValidationIssue{
			Severity:    models.SeverityWarning,
			IssueType:   models.IssueTypeLearningObjectives,
			Message:     "No learning objectives or goals are stated",
			Suggestions: []string{"State what learners will be able to do afterwards"},
			AutoFixable: true,
		})
	}

	checkExamples := plugin.Bool("check_examples", exampleTypes[content.ContentType])
	if checkExamples && !containsAny(text, exampleKeywords) {
		issues = append(issues, models.ValidationIssue{
			Severity:    models.SeverityInfo,
			IssueType:   models.IssueTypeCompleteness,
			Message:     "No examples are provided",
			Suggestions: []string{"Illustrate key ideas with a concrete example"},
			AutoFixable: true,
		})
	}

	languageIssues := len(issues)
	if ratio < 1 {
		languageIssues--
	}
	score := ratio * (1 - 0.1*float64(languageIssues))

	return buildResult(v.Name(), text, started, score, issues, map[string]float64{
		"word_count":    float64(count),
		"minimum_words": float64(minWords),
		"length_ratio":  round2(ratio),
	})
}

// AutoFix is not offered; content expansion needs a template preview.
func (v *CompletenessValidator) AutoFix(models.GeneratedContent, models.ValidationIssue) (string, bool) {
	return "", false
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if containsFold(text, keyword) {
			return true
		}
	}
	return false
}
