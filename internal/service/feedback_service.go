package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-qa-api/internal/dto"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
)

var feedbackCategories = map[models.IssueType]models.FeedbackCategory{
	models.IssueTypeReadability:          models.FeedbackReadabilityClarity,
	models.IssueTypeStructure:            models.FeedbackOrganizationStructure,
	models.IssueTypeFormatting:           models.FeedbackOrganizationStructure,
	models.IssueTypeCompleteness:         models.FeedbackCompletenessDetail,
	models.IssueTypeLearningObjectives:   models.FeedbackCompletenessDetail,
	models.IssueTypeGrammar:              models.FeedbackLanguageGrammar,
	models.IssueTypeSpelling:             models.FeedbackLanguageGrammar,
	models.IssueTypeConsistency:          models.FeedbackConsistencyAlignment,
	models.IssueTypePedagogicalAlignment: models.FeedbackConsistencyAlignment,
	models.IssueTypeAccessibility:        models.FeedbackAccessibilityInclusion,
}

var feedbackText = map[models.FeedbackCategory][2]string{
	models.FeedbackReadabilityClarity:     {"Readability & Clarity", "How easily learners can follow the text"},
	models.FeedbackOrganizationStructure:  {"Organization & Structure", "Sections, headings and layout"},
	models.FeedbackCompletenessDetail:     {"Completeness & Detail", "Coverage, objectives and examples"},
	models.FeedbackLanguageGrammar:        {"Language & Grammar", "Spelling, grammar and word choice"},
	models.FeedbackConsistencyAlignment:   {"Consistency & Alignment", "Consistent terms and alignment with objectives"},
	models.FeedbackAccessibilityInclusion: {"Accessibility & Inclusion", "Reaching every learner"},
}

func minutesFor(severity models.IssueSeverity) int {
	switch severity {
	case models.SeverityCritical:
		return 15
	case models.SeverityError:
		return 10
	case models.SeverityWarning:
		return 5
	default:
		return 2
	}
}

// FeedbackService turns validation issues into grouped, encouraging feedback. It never
// changes validator scores.
type FeedbackService struct {
	validation validationRunner
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewFeedbackService constructs the presentation layer. validation may be nil when callers
// always supply issues.
func NewFeedbackService(validation validationRunner, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeedbackService{validation: validation, validator: validate, logger: logger, now: time.Now}
}

// Feedback builds a report from the supplied issues or, when none are given, from a fresh
// validation of the supplied content.
func (s *FeedbackService) Feedback(ctx context.Context, req dto.FeedbackRequest) (*models.FeedbackReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}
	issues := req.Issues
	contentID := req.ContentID
	if len(issues) == 0 && req.Content != nil {
		if s.validation == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "issues are required")
		}
		content := req.Content.ToModel()
		cfg := s.validation.DefaultConfig()
		if len(req.Validators) > 0 {
			cfg.EnabledValidators = req.Validators
		}
		report, _, err := s.validation.Validate(ctx, content, cfg)
		if err != nil {
			return nil, err
		}
		issues = report.Issues()
		if contentID == "" {
			contentID = content.ID
		}
	} else if len(issues) == 0 && req.Content == nil && req.ContentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "content or issues required")
	}
	return s.Build(contentID, issues), nil
}

// Build groups issues into the six feedback categories.
func (s *FeedbackService) Build(contentID string, issues []models.ValidationIssue) *models.FeedbackReport {
	report := &models.FeedbackReport{
		ContentID:      contentID,
		CategoryScores: make(map[models.FeedbackCategory]int, 6),
		Groups:         []models.FeedbackGroup{},
		GeneratedAt:    s.now().UTC(),
	}

	grouped := make(map[models.FeedbackCategory][]models.ValidationIssue)
	for _, issue := range issues {
		category, ok := feedbackCategories[issue.IssueType]
		if !ok {
			category = models.FeedbackConsistencyAlignment
		}
		grouped[category] = append(grouped[category], issue)

		switch issue.Severity {
		case models.SeverityCritical:
			report.Counts.Critical++
		case models.SeverityError:
			report.Counts.Error++
		case models.SeverityWarning:
			report.Counts.Warning++
		default:
			report.Counts.Info++
		}
	}

	var total int
	for _, category := range models.AllFeedbackCategories() {
		members := grouped[category]
		score := 100 - 10*len(members)
		if score < 0 {
			score = 0
		}
		report.CategoryScores[category] = score
		total += score
		if len(members) == 0 {
			continue
		}

		group := models.FeedbackGroup{
			Category:      category,
			Title:         feedbackText[category][0],
			Description:   feedbackText[category][1],
			Priority:      models.FeedbackPriorityLow,
			ProgressScore: score,
			Items:         make([]models.FeedbackItem, 0, len(members)),
		}
		for _, issue := range members {
			group.EstimatedMinutes += minutesFor(issue.Severity)
			switch {
			case issue.Severity.AtLeast(models.SeverityError):
				group.Priority = models.FeedbackPriorityHigh
			case issue.Severity == models.SeverityWarning && group.Priority == models.FeedbackPriorityLow:
				group.Priority = models.FeedbackPriorityMedium
			}
			group.Items = append(group.Items, models.FeedbackItem{
				Severity:    issue.Severity,
				IssueType:   issue.IssueType,
				Message:     issue.Message,
				Suggestions: issue.Suggestions,
				Location:    issue.Location,
				AutoFixable: issue.AutoFixable,
			})
		}
		report.EstimatedMinutes += group.EstimatedMinutes
		report.Groups = append(report.Groups, group)
	}

	report.OverallScore = round2(float64(total) / float64(len(models.AllFeedbackCategories())))
	report.Status = overallStatus(report.Counts)
	report.Summary = feedbackSummary(report)
	report.NextSteps = nextSteps(report)
	return report
}

func overallStatus(counts models.SeverityCounts) models.OverallStatus {
	switch {
	case counts.Critical > 0:
		return models.StatusNeedsRevision
	case counts.Error > 0, counts.Warning > 3:
		return models.StatusNeedsWork
	case counts.Warning > 0:
		return models.StatusGood
	default:
		return models.StatusExcellent
	}
}

func feedbackSummary(report *models.FeedbackReport) string {
	switch report.Status {
	case models.StatusExcellent:
		return "Great work! This content is ready for learners."
	case models.StatusGood:
		return fmt.Sprintf("Good work! A few small refinements (about %d minutes) will polish it.", report.EstimatedMinutes)
	case models.StatusNeedsWork:
		return fmt.Sprintf("A solid start. Working through %d areas (about %d minutes) will make it much stronger.", len(report.Groups), report.EstimatedMinutes)
	default:
		return fmt.Sprintf("The foundations are here. Focus on the critical items first; the full revision should take about %d minutes.", report.EstimatedMinutes)
	}
}

func nextSteps(report *models.FeedbackReport) []string {
	steps := []string{}
	for _, priority := range []models.FeedbackPriority{models.FeedbackPriorityHigh, models.FeedbackPriorityMedium, models.FeedbackPriorityLow} {
		for _, group := range report.Groups {
			if group.Priority != priority {
				continue
			}
			steps = append(steps, fmt.Sprintf("Review %s (%d items, about %d minutes)", group.Title, len(group.Items), group.EstimatedMinutes))
		}
	}
	if len(steps) == 0 {
		steps = append(steps, "Share the content with learners or a peer reviewer")
	}
	return steps
}
