package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curriculum-qa-api/internal/dto"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
)

type stubValidationRunner struct {
	report  *models.ValidationReport
	err     error
	calls   int
	lastCfg models.ValidationConfig
}

func (s *stubValidationRunner) Validate(ctx context.Context, content models.GeneratedContent, cfg models.ValidationConfig) (*models.ValidationReport, bool, error) {
	s.calls++
	s.lastCfg = cfg
	if s.err != nil {
		return nil, false, s.err
	}
	return s.report, false, nil
}

func (s *stubValidationRunner) DefaultConfig() models.ValidationConfig {
	return models.ValidationConfig{EnabledValidators: []string{ValidatorGrammar}, SeverityThreshold: models.SeverityInfo}
}

type stubLearner struct {
	users  []string
	events []models.PreferenceEvent
}

func (s *stubLearner) Settings(ctx context.Context, userID string) (*models.AdaptiveSettings, error) {
	return models.NewAdaptiveSettings(userID), nil
}

func (s *stubLearner) Learn(ctx context.Context, userID string, event models.PreferenceEvent) error {
	s.users = append(s.users, userID)
	s.events = append(s.events, event)
	return nil
}

const repeatedText = "This is is a test with repeated repeated words."

var repeatedIssue = models.ValidationIssue{
	Severity:  models.SeverityWarning,
	IssueType: models.IssueTypeGrammar,
	Message:   `Repeated word: "repeated"`,
}

var examplesIssue = models.ValidationIssue{
	Severity:  models.SeverityInfo,
	IssueType: models.IssueTypeCompleteness,
	Message:   "No examples are provided",
}

func remediationPayload(body string) dto.ContentPayload {
	return dto.ContentPayload{ID: "content-1", ContentType: models.ContentTypeSlides, Title: "Cells", Content: body}
}

func newRemediationTestService(cfg RemediationServiceConfig) (*RemediationService, *stubLearner) {
	learner := &stubLearner{}
	svc := NewRemediationService(NewMemorySessionStore[models.RemediationSession](), nil, learner, nil, nil, nil, cfg)
	return svc, learner
}

func findSuggestion(t *testing.T, suggestions []models.RemediationSuggestion, fixType models.RemediationFixType) models.RemediationSuggestion {
	t.Helper()
	for _, s := range suggestions {
		if s.FixType == fixType {
			return s
		}
	}
	t.Fatalf("no %s suggestion", fixType)
	return models.RemediationSuggestion{}
}

func TestGenerateSuggestionsCollapsesRepeatedWords(t *testing.T) {
	svc, _ := newRemediationTestService(RemediationServiceConfig{})
	content := remediationPayload(repeatedText).ToModel()

	suggestions, err := svc.GenerateSuggestions(content, []models.ValidationIssue{repeatedIssue}, nil)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)

	s := suggestions[0]
	assert.Equal(t, models.FixGrammarError, s.FixType)
	assert.Equal(t, "This is a test with repeated words.", s.Preview.After)
	assert.Equal(t, repeatedText, s.Preview.Before)
	assert.Equal(t, models.RiskSafe, s.RiskLevel)
	assert.False(t, s.RequiresApproval)
	assert.NotEmpty(t, s.Preview.Highlights)
	assert.Equal(t, repeatedText, content.Content)
}

func TestSafeSuggestionsSkipApprovalOnlyWhenWhitelisted(t *testing.T) {
	body := "teh cell is is alive. the cell grows.\n\nteh cell is is alive. the cell grows."
	issues := []models.ValidationIssue{
		{Severity: models.SeverityWarning, IssueType: models.IssueTypeGrammar, Message: "Sentence should start with a capital letter"},
		{Severity: models.SeverityWarning, IssueType: models.IssueTypeConsistency, Message: "Duplicated paragraph"},
	}

	cases := map[string]*models.RemediationPreferences{
		"default whitelist": nil,
		"custom whitelist":  {AutoApplicable: []models.RemediationFixType{models.RemoveDuplicates}},
	}
	for name, prefs := range cases {
		t.Run(name, func(t *testing.T) {
			svc, _ := newRemediationTestService(RemediationServiceConfig{})
			whitelist := map[models.RemediationFixType]bool{}
			for _, f := range DefaultAutoApplicable() {
				whitelist[f] = true
			}
			if prefs != nil {
				whitelist = map[models.RemediationFixType]bool{}
				for _, f := range prefs.AutoApplicable {
					whitelist[f] = true
				}
			}

			suggestions, err := svc.GenerateSuggestions(remediationPayload(body).ToModel(), issues, prefs)
			require.NoError(t, err)

			safe := 0
			for _, s := range suggestions {
				if s.RiskLevel != models.RiskSafe {
					continue
				}
				safe++
				assert.Equal(t, !whitelist[s.FixType], s.RequiresApproval, s.FixType)
			}
			assert.GreaterOrEqual(t, safe, 3)
		})
	}
}

func TestMediumRiskAlwaysRequiresApproval(t *testing.T) {
	policy := remediationPolicy{autoApplicable: map[models.RemediationFixType]bool{}}
	for _, f := range models.AllFixTypes() {
		policy.autoApplicable[f] = true
	}
	for _, structural := range []bool{true, false} {
		policy.requireStructuralApproval = structural
		for _, f := range models.AllFixTypes() {
			assert.True(t, requiresApproval(f, models.RiskMedium, policy), f)
			assert.True(t, requiresApproval(f, models.RiskCritical, policy), f)
		}
	}
}

func TestRequiresApprovalStructuralPolicy(t *testing.T) {
	policy := remediationPolicy{autoApplicable: map[models.RemediationFixType]bool{}, requireStructuralApproval: true}
	assert.True(t, requiresApproval(models.AddMissingSection, models.RiskLow, policy))

	policy.requireStructuralApproval = false
	assert.False(t, requiresApproval(models.AddMissingSection, models.RiskLow, policy))
	assert.True(t, requiresApproval(models.RemoveDuplicates, models.RiskSafe, policy))
}

func TestGenerateSuggestionsOrderingAndLimits(t *testing.T) {
	svc, _ := newRemediationTestService(RemediationServiceConfig{})
	content := remediationPayload("Cells divide to grow.").ToModel()

	suggestions, err := svc.GenerateSuggestions(content, []models.ValidationIssue{examplesIssue}, nil)
	require.NoError(t, err)
	require.Len(t, suggestions, 3)
	assert.Equal(t, models.AddExamples, suggestions[0].FixType)
	assert.Equal(t, models.ExpandContent, suggestions[1].FixType)
	assert.Equal(t, models.AddMissingTopics, suggestions[2].FixType)
	assert.True(t, suggestions[1].RequiresApproval)
	assert.Len(t, suggestions[0].Alternatives, 2)

	capped, err := svc.GenerateSuggestions(content, []models.ValidationIssue{examplesIssue}, &models.RemediationPreferences{MaxSuggestions: 1})
	require.NoError(t, err)
	assert.Len(t, capped, 1)

	rejected, err := svc.GenerateSuggestions(remediationPayload(repeatedText).ToModel(), []models.ValidationIssue{repeatedIssue}, &models.RemediationPreferences{RejectedFixTypes: []models.RemediationFixType{models.FixGrammarError}})
	require.NoError(t, err)
	assert.Empty(t, rejected)
}

func TestGenerateSuggestionsMissingTemplate(t *testing.T) {
	svc, _ := newRemediationTestService(RemediationServiceConfig{Templates: map[models.RemediationFixType]string{}})

	_, err := svc.GenerateSuggestions(remediationPayload("Cells divide.").ToModel(), []models.ValidationIssue{examplesIssue}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrMissingTemplate))
}

func TestCreateSessionAndApplyFix(t *testing.T) {
	svc, learner := newRemediationTestService(RemediationServiceConfig{})
	ctx := context.Background()
	payload := remediationPayload(repeatedText)

	resp, err := svc.CreateSession(ctx, "user-1", dto.CreateRemediationRequest{Content: payload, Issues: []models.ValidationIssue{repeatedIssue}})
	require.NoError(t, err)
	session := resp.Session
	require.Len(t, session.SuggestedFixes, 1)
	assert.Equal(t, models.SessionPending, session.Status)
	assert.Nil(t, resp.Content)

	applied, err := svc.ApplyFix(ctx, session.ID, dto.ApplyFixRequest{SuggestionID: session.SuggestedFixes[0].ID, Content: payload})
	require.NoError(t, err)
	assert.True(t, applied.AppliedFix.Success)
	assert.Equal(t, "This is a test with repeated words.", applied.Content.Content)
	assert.Equal(t, 7, applied.Content.Metadata.WordCount)
	assert.Equal(t, models.SessionCompleted, applied.Status)

	require.Len(t, learner.events, 1)
	assert.Equal(t, "user-1", learner.users[0])
	assert.Equal(t, models.PreferenceAcceptFix, learner.events[0].Decision)
	assert.Equal(t, models.ContentTypeSlides, learner.events[0].ContentType)

	_, err = svc.ApplyFix(ctx, session.ID, dto.ApplyFixRequest{SuggestionID: session.SuggestedFixes[0].ID, Content: payload})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	_, err = svc.ApplyFix(ctx, session.ID, dto.ApplyFixRequest{SuggestionID: "missing", Content: payload})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = svc.CancelSession(ctx, session.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionClosed))
}

func TestApplyFixRequiresApproval(t *testing.T) {
	svc, _ := newRemediationTestService(RemediationServiceConfig{})
	ctx := context.Background()
	payload := remediationPayload("Cells divide to grow.")

	resp, err := svc.CreateSession(ctx, "user-1", dto.CreateRemediationRequest{Content: payload, Issues: []models.ValidationIssue{examplesIssue}})
	require.NoError(t, err)
	expand := findSuggestion(t, resp.Session.SuggestedFixes, models.ExpandContent)

	denied, err := svc.ApplyFix(ctx, resp.Session.ID, dto.ApplyFixRequest{SuggestionID: expand.ID, Content: payload})
	require.NoError(t, err)
	assert.False(t, denied.AppliedFix.Success)
	assert.Equal(t, "user approval required", denied.AppliedFix.Error)
	assert.Equal(t, payload.Content, denied.Content.Content)
	assert.Equal(t, models.SessionPending, denied.Status)

	approved, err := svc.ApplyFix(ctx, resp.Session.ID, dto.ApplyFixRequest{SuggestionID: expand.ID, Content: payload, UserApproved: true})
	require.NoError(t, err)
	assert.True(t, approved.AppliedFix.Success)
	assert.Contains(t, approved.Content.Content, "## Further Explanation")
	assert.Equal(t, models.SessionPartiallyApplied, approved.Status)
}

func TestApplyFixRederivesForEditedContent(t *testing.T) {
	svc, _ := newRemediationTestService(RemediationServiceConfig{})
	ctx := context.Background()

	resp, err := svc.CreateSession(ctx, "", dto.CreateRemediationRequest{Content: remediationPayload(repeatedText), Issues: []models.ValidationIssue{repeatedIssue}})
	require.NoError(t, err)

	edited := remediationPayload("Intro intro text. " + repeatedText)
	applied, err := svc.ApplyFix(ctx, resp.Session.ID, dto.ApplyFixRequest{SuggestionID: resp.Session.SuggestedFixes[0].ID, Content: edited})
	require.NoError(t, err)
	assert.True(t, applied.AppliedFix.Success)
	assert.Equal(t, "Intro text. This is a test with repeated words.", applied.Content.Content)
}

func TestCreateSessionAutoApply(t *testing.T) {
	svc, _ := newRemediationTestService(RemediationServiceConfig{})

	resp, err := svc.CreateSession(context.Background(), "user-1", dto.CreateRemediationRequest{
		Content:   remediationPayload("Cells divide to grow."),
		Issues:    []models.ValidationIssue{examplesIssue},
		AutoApply: true,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Content)
	assert.Contains(t, resp.Content.Content, "## Example")
	assert.NotContains(t, resp.Content.Content, "## Further Explanation")
	require.Len(t, resp.Session.AppliedFixes, 1)
	assert.Equal(t, models.AddExamples, resp.Session.AppliedFixes[0].FixType)
	assert.Equal(t, models.SessionPartiallyApplied, resp.Session.Status)
}

func TestCreateSessionDiscoversIssues(t *testing.T) {
	runner := &stubValidationRunner{report: &models.ValidationReport{Results: []models.ValidationResult{
		{ValidatorName: ValidatorGrammar, Issues: []models.ValidationIssue{repeatedIssue}},
	}}}
	svc := NewRemediationService(nil, runner, nil, nil, nil, nil, RemediationServiceConfig{})

	resp, err := svc.CreateSession(context.Background(), "user-1", dto.CreateRemediationRequest{
		Content:    remediationPayload(repeatedText),
		Validators: []string{ValidatorGrammar},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, []string{ValidatorGrammar}, runner.lastCfg.EnabledValidators)
	assert.Len(t, resp.Session.SuggestedFixes, 1)

	bare, _ := newRemediationTestService(RemediationServiceConfig{})
	_, err = bare.CreateSession(context.Background(), "user-1", dto.CreateRemediationRequest{Content: remediationPayload(repeatedText)})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRecordDecision(t *testing.T) {
	svc, learner := newRemediationTestService(RemediationServiceConfig{})
	ctx := context.Background()
	payload := remediationPayload("Cells divide to grow.")

	resp, err := svc.CreateSession(ctx, "user-1", dto.CreateRemediationRequest{Content: payload, Issues: []models.ValidationIssue{examplesIssue}})
	require.NoError(t, err)
	target := resp.Session.SuggestedFixes[0]

	_, err = svc.RecordDecision(ctx, resp.Session.ID, dto.DecisionRequest{SuggestionID: target.ID, Decision: models.DecisionModify})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	session, err := svc.RecordDecision(ctx, resp.Session.ID, dto.DecisionRequest{SuggestionID: target.ID, Decision: models.DecisionReject, Note: "not useful"})
	require.NoError(t, err)
	assert.Equal(t, models.SessionInProgress, session.Status)
	require.Len(t, learner.events, 1)
	assert.Equal(t, models.PreferenceRejectFix, learner.events[0].Decision)
	assert.Equal(t, target.FixType, learner.events[0].FixType)

	_, err = svc.ApplyFix(ctx, resp.Session.ID, dto.ApplyFixRequest{SuggestionID: target.ID, Content: payload, UserApproved: true})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestRemediationSessionExpiry(t *testing.T) {
	svc, _ := newRemediationTestService(RemediationServiceConfig{SessionTTL: time.Minute})
	ctx := context.Background()

	resp, err := svc.CreateSession(ctx, "user-1", dto.CreateRemediationRequest{Content: remediationPayload(repeatedText), Issues: []models.ValidationIssue{repeatedIssue}})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = svc.GetSession(ctx, resp.Session.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionExpired))

	_, err = svc.GetSession(ctx, resp.Session.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionNotFound))
}

func TestCancelSessionBlocksFurtherWork(t *testing.T) {
	svc, _ := newRemediationTestService(RemediationServiceConfig{})
	ctx := context.Background()
	payload := remediationPayload(repeatedText)

	resp, err := svc.CreateSession(ctx, "user-1", dto.CreateRemediationRequest{Content: payload, Issues: []models.ValidationIssue{repeatedIssue}})
	require.NoError(t, err)

	cancelled, err := svc.CancelSession(ctx, resp.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, cancelled.Status)

	_, err = svc.ApplyFix(ctx, resp.Session.ID, dto.ApplyFixRequest{SuggestionID: resp.Session.SuggestedFixes[0].ID, Content: payload})
	assert.True(t, appErrors.Is(err, appErrors.ErrSessionClosed))
}

func TestCleanupExpiredRemediationSessions(t *testing.T) {
	svc, _ := newRemediationTestService(RemediationServiceConfig{SessionTTL: time.Minute})
	ctx := context.Background()

	for _, user := range []string{"a", "b"} {
		_, err := svc.CreateSession(ctx, user, dto.CreateRemediationRequest{Content: remediationPayload(repeatedText), Issues: []models.ValidationIssue{repeatedIssue}})
		require.NoError(t, err)
	}
	listed, err := svc.ListSessions(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	removed, err := svc.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	removed, err = svc.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestStartCleanupPurgesExpiredSessions(t *testing.T) {
	svc, _ := newRemediationTestService(RemediationServiceConfig{SessionTTL: time.Minute, CleanupInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := svc.CreateSession(ctx, "user-1", dto.CreateRemediationRequest{Content: remediationPayload(repeatedText), Issues: []models.ValidationIssue{repeatedIssue}})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	svc.StartCleanup(ctx)

	require.Eventually(t, func() bool {
		sessions, err := svc.store.List(ctx)
		return err == nil && len(sessions) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestCreateSessionHonoursLearnedRejections(t *testing.T) {
	smart := NewSmartConfigService(NewMemoryAdaptiveSettingsStore(), nil, nil, SmartConfigServiceConfig{})
	svc := NewRemediationService(nil, nil, smart, nil, nil, nil, RemediationServiceConfig{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, smart.Learn(ctx, "u1", models.PreferenceEvent{Decision: models.PreferenceRejectFix, FixType: models.FixGrammarError, IssueType: models.IssueTypeGrammar}))
	}
	req := dto.CreateRemediationRequest{Content: remediationPayload(repeatedText), Issues: []models.ValidationIssue{repeatedIssue}}

	resp, err := svc.CreateSession(ctx, "u1", req)
	require.NoError(t, err)
	for _, suggestion := range resp.Session.SuggestedFixes {
		assert.NotEqual(t, models.FixGrammarError, suggestion.FixType)
	}

	other, err := svc.CreateSession(ctx, "u2", req)
	require.NoError(t, err)
	findSuggestion(t, other.Session.SuggestedFixes, models.FixGrammarError)

	req.Preferences = &models.RemediationPreferences{}
	explicit, err := svc.CreateSession(ctx, "u1", req)
	require.NoError(t, err)
	findSuggestion(t, explicit.Session.SuggestedFixes, models.FixGrammarError)
}

func TestTemplateFixesRenderThroughTextTemplate(t *testing.T) {
	svc, _ := newRemediationTestService(RemediationServiceConfig{})

	suggestions, err := svc.GenerateSuggestions(remediationPayload("# Cells\n\nCells divide.").ToModel(), []models.ValidationIssue{examplesIssue}, nil)
	require.NoError(t, err)
	examples := findSuggestion(t, suggestions, models.AddExamples)
	assert.Contains(t, examples.Preview.After, "For example, consider how Cells applies in a familiar situation.")
	assert.NotContains(t, examples.Preview.After, "{{")
}

func TestBrokenTemplatesSurfaceAsMissing(t *testing.T) {
	content := remediationPayload("Cells divide.").ToModel()

	templates := DefaultFixTemplates()
	templates[models.ExpandContent] = "## More on {{.Title"
	broken, _ := newRemediationTestService(RemediationServiceConfig{Templates: templates})
	_, err := broken.GenerateSuggestions(content, []models.ValidationIssue{examplesIssue}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrMissingTemplate))

	templates = DefaultFixTemplates()
	templates[models.ExpandContent] = "## More on {{.Subject}}"
	unknown, _ := newRemediationTestService(RemediationServiceConfig{Templates: templates})
	_, err = unknown.GenerateSuggestions(content, []models.ValidationIssue{examplesIssue}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrMissingTemplate))
}
