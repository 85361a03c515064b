package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
)

const headingRequiredAbove = 500

var requiredSections = map[models.ContentType][]string{
	models.ContentTypeSlides:          {"title", "learning objectives", "content", "summary"},
	models.ContentTypeQuiz:            {"title", "instructions", "questions"},
	models.ContentTypeWorksheet:       {"title", "instructions", "exercises"},
	models.ContentTypeInstructorNotes: {"overview", "learning objectives", "teaching notes"},
	models.ContentTypeActivityGuide:   {"title", "objectives", "materials", "instructions"},
}

const missingSectionPrefix = "Missing required section: "

// StructureValidator checks that the sections expected for a content type are present.
type StructureValidator struct{}

// NewStructureValidator constructs the validator.
func NewStructureValidator() *StructureValidator {
	return &StructureValidator{}
}

func (v *StructureValidator) Name() string { return ValidatorStructure }

func (v *StructureValidator) Description() string {
	return "Checks required sections and heading structure per content type"
}

func (v *StructureValidator) SupportedTypes() []models.ContentType {
	return models.AllContentTypes()
}

// Validate scores (required - missing) / required using case-insensitive substring matches.
func (v *StructureValidator) Validate(content models.GeneratedContent, cfg models.ValidationConfig) models.ValidationResult {
	started := time.Now()
	body := strings.ToLower(content.Content)
	required := requiredSections[content.ContentType]

	var issues []models.ValidationIssue
	missing := 0
	for _, section := range required {
		if strings.Contains(body, section) {
			continue
		}
		missing++
		issues = append(issues, models.ValidationIssue{
			Severity:    models.SeverityError,
			IssueType:   models.IssueTypeStructure,
			Message:     missingSectionPrefix + section,
			Location:    &models.IssueLocation{Section: section},
			Suggestions: []string{fmt.Sprintf("Add a %q section", titleCase(section))},
			AutoFixable: true,
		})
	}

	headingCount := len(headings(content.Content))
	if len(content.Content) > headingRequiredAbove && headingCount == 0 {
		issues = append(issues, models.ValidationIssue{
			Severity:    models.SeverityWarning,
			IssueType:   models.IssueTypeStructure,
			Message:     "Content has no headings to organise it",
			Suggestions: []string{"Break the content into sections with descriptive headings"},
			AutoFixable: false,
		})
	}

	score := 1.0
	if len(required) > 0 {
		score = float64(len(required)-missing) / float64(len(required))
	}

	return buildResult(v.Name(), content.Content, started, score, issues, map[string]float64{
		"required_sections": float64(len(required)),
		"missing_sections":  float64(missing),
		"headings":          float64(headingCount),
	})
}

// AutoFix appends a heading for a missing section.
func (v *StructureValidator) AutoFix(content models.GeneratedContent, issue models.ValidationIssue) (string, bool) {
	section, ok := missingSectionName(issue)
	if !ok {
		return "", false
	}
	body := strings.TrimRight(content.Content, "\n")
	return body + "\n\n## " + titleCase(section) + "\n", true
}

func missingSectionName(issue models.ValidationIssue) (string, bool) {
	if issue.IssueType != models.IssueTypeStructure || !strings.HasPrefix(issue.Message, missingSectionPrefix) {
		return "", false
	}
	section := strings.TrimSpace(strings.TrimPrefix(issue.Message, missingSectionPrefix))
	return section, section != ""
}

func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = strings.ToUpper(f[:1]) + f[1:]
	}
	return strings.Join(fields, " ")
}
