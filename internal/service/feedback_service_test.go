package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curriculum-qa-api/internal/dto"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
)

func TestFeedbackBuildGroupsIssues(t *testing.T) {
	svc := NewFeedbackService(nil, nil, nil)
	issues := []models.ValidationIssue{
		{Severity: models.SeverityError, IssueType: models.IssueTypeStructure, Message: "Missing required section: title"},
		{Severity: models.SeverityWarning, IssueType: models.IssueTypeGrammar, Message: "Repeated word"},
		{Severity: models.SeverityInfo, IssueType: models.IssueTypeGrammar, Message: "Check usage"},
		{Severity: models.SeverityInfo, IssueType: "UNKNOWN", Message: "odd"},
	}

	report := svc.Build("c-1", issues)

	assert.Equal(t, "c-1", report.ContentID)
	assert.Equal(t, models.StatusNeedsWork, report.Status)
	assert.Equal(t, models.SeverityCounts{Error: 1, Warning: 1, Info: 2}, report.Counts)
	require.Len(t, report.Groups, 3)

	structure := report.Groups[0]
	assert.Equal(t, models.FeedbackOrganizationStructure, structure.Category)
	assert.Equal(t, models.FeedbackPriorityHigh, structure.Priority)
	assert.Equal(t, 10, structure.EstimatedMinutes)

	grammar := report.Groups[1]
	assert.Equal(t, models.FeedbackLanguageGrammar, grammar.Category)
	assert.Equal(t, models.FeedbackPriorityMedium, grammar.Priority)
	assert.Equal(t, 80, grammar.ProgressScore)
	assert.Len(t, grammar.Items, 2)

	assert.Equal(t, models.FeedbackConsistencyAlignment, report.Groups[2].Category)
	assert.Equal(t, models.FeedbackPriorityLow, report.Groups[2].Priority)

	assert.Equal(t, 100, report.CategoryScores[models.FeedbackReadabilityClarity])
	assert.Equal(t, 93.33, report.OverallScore)
	assert.Equal(t, 19, report.EstimatedMinutes)
	assert.Contains(t, report.NextSteps[0], "Organization & Structure")
	assert.NotEmpty(t, report.Summary)
}

func TestFeedbackBuildWithoutIssues(t *testing.T) {
	report := NewFeedbackService(nil, nil, nil).Build("c-1", nil)
	assert.Equal(t, models.StatusExcellent, report.Status)
	assert.Equal(t, 100.0, report.OverallScore)
	assert.Empty(t, report.Groups)
	assert.Equal(t, []string{"Share the content with learners or a peer reviewer"}, report.NextSteps)
}

func TestFeedbackCriticalStillEncouraging(t *testing.T) {
	report := NewFeedbackService(nil, nil, nil).Build("", []models.ValidationIssue{
		{Severity: models.SeverityCritical, IssueType: models.IssueTypeAccessibility, Message: "Images lack alt text"},
	})
	assert.Equal(t, models.StatusNeedsRevision, report.Status)
	assert.Contains(t, report.Summary, "The foundations are here")
	assert.Equal(t, 15, report.EstimatedMinutes)
}

func TestFeedbackValidatesContentWhenNoIssues(t *testing.T) {
	runner := &stubValidationRunner{report: &models.ValidationReport{Results: []models.ValidationResult{
		{ValidatorName: ValidatorGrammar, Issues: []models.ValidationIssue{repeatedIssue}},
	}}}
	svc := NewFeedbackService(runner, nil, nil)

	report, err := svc.Feedback(context.Background(), dto.FeedbackRequest{
		Content:    &dto.ContentPayload{ID: "c-9", ContentType: models.ContentTypeQuiz, Content: repeatedText},
		Validators: []string{ValidatorGrammar},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, []string{ValidatorGrammar}, runner.lastCfg.EnabledValidators)
	assert.Equal(t, "c-9", report.ContentID)
	assert.Equal(t, 1, report.Counts.Warning)

	_, err = svc.Feedback(context.Background(), dto.FeedbackRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
