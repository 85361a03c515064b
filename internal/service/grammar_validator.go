package service

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
)

const (
	repeatedWordPrefix   = "Repeated word"
	capitalizationPrefix = "Sentence should start with a capital letter"
	repeatedWordMinLen   = 4
)

type homophonePair struct {
	flagged string
	other   string
	pattern *regexp.Regexp
}

// homophones flags every occurrence of the first word of each pair, correct usage included.
var homophones = newHomophonePairs([][2]string{
	{"it's", "its"},
	{"there", "their"},
	{"your", "you're"},
	{"loose", "lose"},
	{"affect", "effect"},
})

func newHomophonePairs(pairs [][2]string) []homophonePair {
	out := make([]homophonePair, 0, len(pairs))
	for _, pair := range pairs {
		out = append(out, homophonePair{
			flagged: pair[0],
			other:   pair[1],
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(pair[0]) + `\b`),
		})
	}
	return out
}

// GrammarValidator flags repeated words, homophones, and lowercase sentence starts.
type GrammarValidator struct{}

// NewGrammarValidator constructs the validator.
func NewGrammarValidator() *GrammarValidator {
	return &GrammarValidator{}
}

func (v *GrammarValidator) Name() string { return ValidatorGrammar }

func (v *GrammarValidator) Description() string {
	return "Flags repeated words, commonly confused words, and sentence capitalisation"
}

func (v *GrammarValidator) SupportedTypes() []models.ContentType {
	return models.AllContentTypes()
}

// Validate degrades the score by 0.95 per issue.
func (v *GrammarValidator) Validate(content models.GeneratedContent, cfg models.ValidationConfig) models.ValidationResult {
	started := time.Now()
	text := content.Content
	var issues []models.ValidationIssue

	for _, span := range repeatedWordSpans(text, repeatedWordMinLen) {
		word := strings.TrimSpace(text[span.start:span.end])
		issues = append(issues, models.ValidationIssue{
			Severity:  models.SeverityWarning,
			IssueType: models.IssueTypeGrammar,
			Message:   fmt.Sprintf("%s: %q", repeatedWordPrefix, word),
			Location: &models.IssueLocation{
				Line:      intPtr(lineNumberAt(text, span.start)),
				CharStart: intPtr(span.start),
				CharEnd:   intPtr(span.end),
			},
			Suggestions: []string{fmt.Sprintf("Remove the duplicate %q", word)},
			AutoFixable: true,
		})
	}

	for _, pair := range homophones {
		for _, loc := range pair.pattern.FindAllStringIndex(text, -1) {
			issues = append(issues, models.ValidationIssue{
				Severity:  models.SeverityInfo,
				IssueType: models.IssueTypeGrammar,
				Message:   fmt.Sprintf("Check usage of %q (commonly confused with %q)", text[loc[0]:loc[1]], pair.other),
				Location: &models.IssueLocation{
					Line:      intPtr(lineNumberAt(text, loc[0])),
					CharStart: intPtr(loc[0]),
					CharEnd:   intPtr(loc[1]),
				},
				Suggestions: []string{fmt.Sprintf("Confirm %q is intended rather than %q", pair.flagged, pair.other)},
			})
		}
	}

	for _, offset := range lowercaseSentenceStarts(text) {
		issues = append(issues, models.ValidationIssue{
			Severity:  models.SeverityWarning,
			IssueType: models.IssueTypeGrammar,
			Message:   capitalizationPrefix,
			Location: &models.IssueLocation{
				Line:      intPtr(lineNumberAt(text, offset)),
				CharStart: intPtr(offset),
				CharEnd:   intPtr(offset + 1),
			},
			Suggestions: []string{"Capitalise the first word of the sentence"},
			AutoFixable: true,
		})
	}

	score := math.Pow(0.95, float64(len(issues)))
	return buildResult(v.Name(), text, started, score, issues, map[string]float64{
		"issues": float64(len(issues)),
	})
}

// AutoFix collapses repeated words or capitalises sentence starts depending on the issue.
func (v *GrammarValidator) AutoFix(content models.GeneratedContent, issue models.ValidationIssue) (string, bool) {
	var fixed string
	switch {
	case strings.HasPrefix(issue.Message, repeatedWordPrefix):
		fixed = collapseRepeatedWords(content.Content)
	case strings.HasPrefix(issue.Message, capitalizationPrefix):
		fixed = capitalizeSentences(content.Content)
	default:
		return "", false
	}
	if fixed == content.Content {
		return "", false
	}
	return fixed, true
}
