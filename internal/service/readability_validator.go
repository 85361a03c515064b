package service

import (
	"fmt"
	"math"
	"time"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
)

const (
	defaultReadabilityThreshold = 3.0
	defaultMaxSentenceWords     = 25
	defaultMaxParagraphWords    = 150
)

// ReadabilityValidator scores Flesch reading ease and flags long sentences and paragraphs.
type ReadabilityValidator struct{}

// NewReadabilityValidator constructs the validator.
func NewReadabilityValidator() *ReadabilityValidator {
	return &ReadabilityValidator{}
}

func (v *ReadabilityValidator) Name() string { return ValidatorReadability }

func (v *ReadabilityValidator) Description() string {
	return "Scores Flesch reading ease and flags long sentences and paragraphs"
}

func (v *ReadabilityValidator) SupportedTypes() []models.ContentType {
	return models.AllContentTypes()
}

// Validate degrades the score by 0.9 per issue. The plugin config may set
// max_sentence_words, max_paragraph_words and max_grade.
func (v *ReadabilityValidator) Validate(content models.GeneratedContent, cfg models.ValidationConfig) models.ValidationResult {
	started := time.Now()
	text := content.Content
	plugin := cfg.Plugin(v.Name())

	stats := analyzeText(text)
	if stats.Words == 0 || stats.Sentences == 0 {
		return buildResult(v.Name(), text, started, 0, nil, map[string]float64{"flesch_reading_ease": 0})
	}

	threshold := cfg.ReadabilityThreshold
	if threshold <= 0 {
		threshold = defaultReadabilityThreshold
	}
	maxSentence := defaultMaxSentenceWords
	if n, ok := plugin.Float("max_sentence_words"); ok && n > 0 {
		maxSentence = int(n)
	}
	maxParagraph := defaultMaxParagraphWords
	if n, ok := plugin.Float("max_paragraph_words"); ok && n > 0 {
		maxParagraph = int(n)
	}

	flesch := FleschReadingEase(text)
	grade := FleschKincaidGrade(text)

	var issues []models.ValidationIssue
	if flesch < threshold*10 {
		issues = append(issues, models.ValidationIssue{
			Severity:    models.SeverityWarning,
			IssueType:   models.IssueTypeReadability,
			Message:     fmt.Sprintf("Reading ease score %.1f is below the target of %.1f", flesch, threshold*10),
			Suggestions: []string{"Use shorter sentences", "Prefer simpler words with fewer syllables"},
		})
	}
	if maxGrade, ok := plugin.Float("max_grade"); ok && maxGrade > 0 && grade > maxGrade {
		issues = append(issues, models.ValidationIssue{
			Severity:    models.SeverityWarning,
			IssueType:   models.IssueTypeReadability,
			Message:     fmt.Sprintf("Grade level %.1f exceeds the target of %.0f", grade, maxGrade),
			Suggestions: []string{"Simplify vocabulary for the intended audience"},
		})
	}

	for i, sentence := range splitSentences(text) {
		if n := WordCount(sentence); n > maxSentence {
			issues = append(issues, models.ValidationIssue{
				Severity:    models.SeverityInfo,
				IssueType:   models.IssueTypeReadability,
				Message:     fmt.Sprintf("Sentence %d has %d words (limit %d)", i+1, n, maxSentence),
				Location:    &models.IssueLocation{Section: fmt.Sprintf("sentence %d", i+1)},
				Suggestions: []string{"Split the sentence into two shorter ones"},
			})
		}
	}
	for i, paragraph := range splitParagraphs(text) {
		if n := WordCount(paragraph); n > maxParagraph {
			issues = append(issues, models.ValidationIssue{
				Severity:    models.SeverityInfo,
				IssueType:   models.IssueTypeReadability,
				Message:     fmt.Sprintf("Paragraph %d has %d words (limit %d)", i+1, n, maxParagraph),
				Location:    &models.IssueLocation{Section: fmt.Sprintf("paragraph %d", i+1)},
				Suggestions: []string{"Break the paragraph up"},
			})
		}
	}

	score := math.Pow(0.9, float64(len(issues)))
	return buildResult(v.Name(), text, started, score, issues, map[string]float64{
		"flesch_reading_ease":    flesch,
		"grade_level":            grade,
		"avg_sentence_length":    round2(stats.wordsPerSentence()),
		"avg_syllables_per_word": round2(stats.syllablesPerWord()),
	})
}

// AutoFix is not offered; readability rewrites go through remediation previews.
func (v *ReadabilityValidator) AutoFix(models.GeneratedContent, models.ValidationIssue) (string, bool) {
	return "", false
}
