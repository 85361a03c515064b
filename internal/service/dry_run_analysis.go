package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
)

var changeCategories = map[models.RemediationFixType]models.ChangeCategory{
	models.FixTypos:               models.CategoryGrammarAndSpelling,
	models.FixGrammarError:        models.CategoryGrammarAndSpelling,
	models.CorrectCapitalization:  models.CategoryGrammarAndSpelling,
	models.ImproveReadability:     models.CategoryReadabilityImprovements,
	models.StandardizeTerminology: models.CategoryReadabilityImprovements,
	models.AddMissingSection:      models.CategoryStructuralChanges,
	models.AddHeadings:            models.CategoryStructuralChanges,
	models.ReorganizeContent:      models.CategoryStructuralChanges,
	models.FixSectionOrder:        models.CategoryStructuralChanges,
	models.AddLearningObjectives:  models.CategoryContentAdditions,
	models.AlignObjectives:        models.CategoryContentAdditions,
	models.ExpandContent:          models.CategoryContentAdditions,
	models.AddExamples:            models.CategoryContentAdditions,
	models.AddMissingTopics:       models.CategoryContentAdditions,
	models.RemoveDuplicates:       models.CategoryContentRemovals,
	models.FormatText:             models.CategoryFormatting,
	models.StandardizeAssessment:  models.CategoryFormatting,
}

var categoryTitles = map[models.ChangeCategory]string{
	models.CategoryGrammarAndSpelling:      "Grammar and spelling",
	models.CategoryReadabilityImprovements: "Readability improvements",
	models.CategoryStructuralChanges:       "Structural changes",
	models.CategoryContentAdditions:        "Content additions",
	models.CategoryContentRemovals:         "Content removals",
	models.CategoryFormatting:              "Formatting",
	models.CategoryAccessibility:           "Accessibility",
}

// fixPrerequisites lists fix types that must run before a fix when both are proposed.
var fixPrerequisites = map[models.RemediationFixType][]models.RemediationFixType{
	models.AlignObjectives:       {models.AddLearningObjectives},
	models.FixSectionOrder:       {models.AddMissingSection},
	models.ReorganizeContent:     {models.AddMissingSection},
}

// Recommendation thresholds on the aggregate quality score.
const (
	applyAllThreshold  = 0.8
	applyMostThreshold = 0.5
)

func changeCategory(fixType models.RemediationFixType, issueType models.IssueType) models.ChangeCategory {
	if issueType == models.IssueTypeAccessibility {
		return models.CategoryAccessibility
	}
	if category, ok := changeCategories[fixType]; ok {
		return category
	}
	return models.CategoryFormatting
}

// proposeChanges converts suggestions into ordered proposed changes with dependencies.
func proposeChanges(suggestions []models.RemediationSuggestion) []models.ProposedChange {
	changes := make([]models.ProposedChange, 0, len(suggestions))
	for i, suggestion := range suggestions {
		changes = append(changes, models.ProposedChange{
			ID:               uuid.NewString(),
			Sequence:         i + 1,
			SuggestionID:     suggestion.ID,
			FixType:          suggestion.FixType,
			Category:         changeCategory(suggestion.FixType, suggestion.IssueType),
			IssueType:        suggestion.IssueType,
			IssueSeverity:    suggestion.IssueSeverity,
			IssueMessage:     suggestion.IssueMessage,
			Title:            suggestion.Title,
			Description:      suggestion.Description,
			Preview:          suggestion.Preview,
			WordCountDelta:   WordCount(suggestion.Preview.After) - WordCount(suggestion.Preview.Before),
			Confidence:       suggestion.Confidence,
			RiskLevel:        suggestion.RiskLevel,
			RequiresApproval: suggestion.RequiresApproval,
			EstimatedImpact:  suggestion.EstimatedImpact,
			Reversible:       fixCatalog[suggestion.FixType].reversible,
		})
	}
	for i := range changes {
	prereqs:
		for _, prereq := range fixPrerequisites[changes[i].FixType] {
			for j := range changes {
				if j != i && changes[j].FixType == prereq {
					changes[i].Dependencies = append(changes[i].Dependencies, changes[j].ID)
					break prereqs
				}
			}
		}
	}
	return changes
}

func groupChanges(changes []models.ProposedChange) []models.ChangeGroup {
	byCategory := make(map[models.ChangeCategory][]models.ProposedChange)
	for _, change := range changes {
		byCategory[change.Category] = append(byCategory[change.Category], change)
	}
	groups := make([]models.ChangeGroup, 0, len(byCategory))
	for _, category := range models.AllChangeCategories() {
		members := byCategory[category]
		if len(members) == 0 {
			continue
		}
		groups = append(groups, models.ChangeGroup{
			Category: category,
			Title:    categoryTitles[category],
			Changes:  members,
			Impact:   groupImpact(members),
		})
	}
	return groups
}

func groupImpact(changes []models.ProposedChange) models.GroupImpact {
	var improvement, risk float64
	approvals := 0
	reversible := true
	for _, change := range changes {
		improvement += change.EstimatedImpact.Overall()
		risk += float64(change.RiskLevel.Rank()) / 4
		if change.RequiresApproval {
			approvals++
		}
		reversible = reversible && change.Reversible
	}
	n := float64(len(changes))
	return models.GroupImpact{
		ImprovementScore: round2(improvement / n),
		RiskScore:        round2(risk / n),
		UserEffort:       effortFor(approvals),
		Reversible:       reversible,
	}
}

func effortFor(approvals int) models.EffortLevel {
	switch {
	case approvals == 0:
		return models.EffortMinimal
	case approvals <= 2:
		return models.EffortLow
	case approvals <= 5:
		return models.EffortModerate
	default:
		return models.EffortHigh
	}
}

// qualityScore is the mean expected benefit of the changes: confidence discounted by risk.
func qualityScore(changes []models.ProposedChange) float64 {
	if len(changes) == 0 {
		return 0
	}
	var total float64
	for _, change := range changes {
		total += change.Confidence.Weight() * (1 - float64(change.RiskLevel.Rank())*0.25)
	}
	return round2(total / float64(len(changes)))
}

func recommend(changes []models.ProposedChange, score float64) models.Recommendation {
	switch {
	case len(changes) == 0:
		return models.RecommendDoNotApply
	case score > applyAllThreshold:
		return models.RecommendApplyAll
	case score > applyMostThreshold:
		return models.RecommendApplyMost
	default:
		return models.RecommendReviewCarefully
	}
}

func analyzeImpact(before, after string, changes []models.ProposedChange) models.ImpactAnalysis {
	var structural float64
	benefitSeen := map[string]bool{}
	var benefits, risks []string
	for _, change := range changes {
		structural += change.EstimatedImpact.StructureImprovement
		for _, b := range change.EstimatedImpact.Benefits {
			if !benefitSeen[b] {
				benefitSeen[b] = true
				benefits = append(benefits, b)
			}
		}
		if change.RiskLevel.AtLeast(models.RiskMedium) {
			risks = append(risks, fmt.Sprintf("%s carries %s risk", change.Title, strings.ToLower(string(change.RiskLevel))))
		}
	}
	if len(changes) > 0 {
		structural /= float64(len(changes))
	}
	return models.ImpactAnalysis{
		OverallQualityDelta: qualityScore(changes),
		StructuralDelta:     round2(structural),
		Readability:         readabilityImpact(before, after),
		Integrity:           assessIntegrity(before, after, changes),
		Risks:               risks,
		Benefits:            benefits,
	}
}

func readabilityImpact(before, after string) models.ReadabilityImpact {
	fb, fa := FleschReadingEase(before), FleschReadingEase(after)
	gb, ga := FleschKincaidGrade(before), FleschKincaidGrade(after)
	return models.ReadabilityImpact{
		FleschBefore: round2(fb),
		FleschAfter:  round2(fa),
		FleschDelta:  round2(fa - fb),
		GradeBefore:  round2(gb),
		GradeAfter:   round2(ga),
		GradeDelta:   round2(ga - gb),
		Score:        round2(clamp01(0.5 + (fa-fb)/40)),
	}
}

// meaningPreservation is the share of original words that survive the edit.
func meaningPreservation(before, after string) (float64, int) {
	original := WordCount(before)
	if original == 0 {
		return 1, 0
	}
	removed := 0
	for _, h := range diffHighlights(before, after) {
		if h.Kind == models.DiffRemoved {
			removed += WordCount(h.Text)
		}
	}
	return round2(clamp01(1 - float64(removed)/float64(original))), removed
}

func assessIntegrity(before, after string, changes []models.ProposedChange) models.IntegrityAssessment {
	preservation, removed := meaningPreservation(before, after)
	var concerns []string
	if removed > 0 {
		concerns = append(concerns, fmt.Sprintf("%d words would be removed", removed))
	}
	for _, change := range changes {
		if !change.Reversible {
			concerns = append(concerns, fmt.Sprintf("%s cannot be undone automatically", change.Title))
		}
	}
	var risk models.IntegrityRisk
	switch {
	case preservation >= 0.95:
		risk = models.IntegrityRiskMinimal
	case preservation >= 0.85:
		risk = models.IntegrityRiskLow
	case preservation >= 0.7:
		risk = models.IntegrityRiskModerate
	default:
		risk = models.IntegrityRiskHigh
	}
	return models.IntegrityAssessment{MeaningPreservation: preservation, Risk: risk, Concerns: concerns}
}

func assessSafety(before, after string, changes []models.ProposedChange, integrity models.IntegrityAssessment) models.SafetyAssessment {
	reversible, highRisk, needsApproval := true, false, false
	maxRisk := models.RiskSafe
	for _, change := range changes {
		reversible = reversible && change.Reversible
		highRisk = highRisk || change.RiskLevel.AtLeast(models.RiskHigh)
		needsApproval = needsApproval || change.RequiresApproval
		if change.RiskLevel.Rank() > maxRisk.Rank() {
			maxRisk = change.RiskLevel
		}
	}

	wordsBefore, wordsAfter := WordCount(before), WordCount(after)
	wordShift := 0.0
	if wordsBefore > 0 {
		wordShift = math.Abs(float64(wordsAfter-wordsBefore)) / float64(wordsBefore)
	}
	missingHeadings := 0
	for _, h := range headings(before) {
		if !containsFold(after, h) {
			missingHeadings++
		}
	}

	checks := []models.SafetyCheck{
		{Name: "meaning_preserved", Passed: integrity.MeaningPreservation >= 0.85, Details: fmt.Sprintf("%.0f%% of original words kept", integrity.MeaningPreservation*100)},
		{Name: "reversible", Passed: reversible, Details: "every change can be undone from the original content"},
		{Name: "no_high_risk_changes", Passed: !highRisk, Details: fmt.Sprintf("highest risk level is %s", maxRisk)},
		{Name: "word_count_stable", Passed: wordShift <= 0.25, Details: fmt.Sprintf("word count changes from %d to %d", wordsBefore, wordsAfter)},
		{Name: "structure_preserved", Passed: missingHeadings == 0, Details: fmt.Sprintf("%d existing headings would be lost", missingHeadings)},
	}
	failed := 0
	for _, check := range checks {
		if !check.Passed {
			failed++
		}
	}

	var level models.SafetyLevel
	switch {
	case failed == 0 && maxRisk == models.RiskSafe:
		level = models.SafetyVerySafe
	case failed == 0:
		level = models.SafetySafe
	case failed <= 1 && !highRisk:
		level = models.SafetyModerateRisk
	default:
		level = models.SafetyHighRisk
	}
	return models.SafetyAssessment{
		Level:                   level,
		Checks:                  checks,
		ManualReviewRecommended: needsApproval || level == models.SafetyModerateRisk || level == models.SafetyHighRisk,
		BackupRecommended:       !reversible || level == models.SafetyHighRisk,
	}
}

func buildPreviews(before, after string, changes []models.ProposedChange) models.PreviewModes {
	snippets := make([]models.ChangeSnippet, 0, len(changes))
	for _, change := range changes {
		snippet := models.ChangeSnippet{ChangeID: change.ID, Title: change.Title}
		for _, h := range change.Preview.Highlights {
			text := strings.TrimSpace(h.Text)
			if text == "" {
				continue
			}
			if h.Kind == models.DiffAdded {
				snippet.Added = append(snippet.Added, text)
			} else {
				snippet.Removed = append(snippet.Removed, text)
			}
		}
		snippets = append(snippets, snippet)
	}
	return models.PreviewModes{
		SideBySide:  models.SideBySidePreview{Before: before, After: after},
		UnifiedDiff: unifiedDiff(before, after),
		ChangesOnly: snippets,
	}
}

func buildGuidance(order []string, changes []models.ProposedChange, integrity models.IntegrityAssessment) models.UserGuidance {
	guidance := models.UserGuidance{RecommendedOrder: order}
	templated := false
	for _, change := range changes {
		if change.RequiresApproval {
			guidance.Warnings = append(guidance.Warnings, fmt.Sprintf("%s needs your approval", change.Title))
		}
		if fixCatalog[change.FixType].templated {
			templated = true
		}
	}
	guidance.Warnings = append(guidance.Warnings, integrity.Concerns...)
	if len(changes) > 0 {
		guidance.Tips = append(guidance.Tips, "Apply changes in the recommended order so prerequisites land first")
	}
	if templated {
		guidance.Tips = append(guidance.Tips, "Inserted sections contain placeholder text for you to complete")
	}
	return guidance
}

func summarize(before, after string, changes []models.ProposedChange, groups []models.ChangeGroup) models.DryRunSummary {
	summary := models.DryRunSummary{
		TotalChanges:       len(changes),
		CategoriesAffected: len(groups),
		WordCountBefore:    WordCount(before),
		WordCountAfter:     WordCount(after),
	}
	for _, change := range changes {
		if change.RequiresApproval {
			summary.RequiresApproval++
			summary.EstimatedReviewMinutes += 2
		} else {
			summary.AutoApplicable++
			summary.EstimatedReviewMinutes++
		}
	}
	return summary
}
