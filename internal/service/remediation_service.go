package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-qa-api/internal/dto"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
)

const (
	defaultMaxSuggestions = 20
	defaultSessionTTL     = 2 * time.Hour
)

// DefaultAutoApplicable are the safe fix types applied without approval unless configured otherwise.
func DefaultAutoApplicable() []models.RemediationFixType {
	return []models.RemediationFixType{
		models.FixTypos,
		models.CorrectCapitalization,
		models.FixGrammarError,
		models.FormatText,
	}
}

type validationRunner interface {
	Validate(ctx context.Context, content models.GeneratedContent, cfg models.ValidationConfig) (*models.ValidationReport, bool, error)
	DefaultConfig() models.ValidationConfig
}

type preferenceLearner interface {
	Learn(ctx context.Context, userID string, event models.PreferenceEvent) error
	Settings(ctx context.Context, userID string) (*models.AdaptiveSettings, error)
}

// RemediationServiceConfig holds engine policy.
type RemediationServiceConfig struct {
	MaxSuggestions            int
	AutoApplicable            []models.RemediationFixType
	RequireStructuralApproval bool
	SessionTTL                time.Duration
	CleanupInterval           time.Duration
	Templates                 map[models.RemediationFixType]string
}

// RemediationService turns validation issues into reviewable fix suggestions and tracks
// the resulting sessions.
type RemediationService struct {
	store      RemediationSessionStore
	validation validationRunner
	learner    preferenceLearner
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        RemediationServiceConfig
	templates  map[models.RemediationFixType]*template.Template
	now        func() time.Time

	mu sync.Mutex
}

// NewRemediationService constructs the engine. validation and learner are optional.
func NewRemediationService(store RemediationSessionStore, validation validationRunner, learner preferenceLearner, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg RemediationServiceConfig) *RemediationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if store == nil {
		store = NewMemorySessionStore[models.RemediationSession]()
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = defaultMaxSuggestions
	}
	if cfg.AutoApplicable == nil {
		cfg.AutoApplicable = DefaultAutoApplicable()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}
	if cfg.Templates == nil {
		cfg.Templates = DefaultFixTemplates()
	}
	templates, err := parseFixTemplates(cfg.Templates)
	if err != nil {
		logger.Error("fix templates failed to parse", zap.Error(err))
	}
	return &RemediationService{
		store:      store,
		validation: validation,
		learner:    learner,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		templates:  templates,
		now:        time.Now,
	}
}

type remediationPolicy struct {
	maxSuggestions            int
	autoApplicable            map[models.RemediationFixType]bool
	requireStructuralApproval bool
	rejected                  map[models.RemediationFixType]bool
}

func (s *RemediationService) policyFor(prefs *models.RemediationPreferences) remediationPolicy {
	p := remediationPolicy{
		maxSuggestions:            s.cfg.MaxSuggestions,
		autoApplicable:            map[models.RemediationFixType]bool{},
		requireStructuralApproval: s.cfg.RequireStructuralApproval,
		rejected:                  map[models.RemediationFixType]bool{},
	}
	whitelist := s.cfg.AutoApplicable
	if prefs != nil {
		if prefs.MaxSuggestions > 0 {
			p.maxSuggestions = prefs.MaxSuggestions
		}
		if prefs.AutoApplicable != nil {
			whitelist = prefs.AutoApplicable
		}
		if prefs.RequireStructuralApproval != nil {
			p.requireStructuralApproval = *prefs.RequireStructuralApproval
		}
		for _, f := range prefs.RejectedFixTypes {
			p.rejected[f] = true
		}
	}
	for _, f := range whitelist {
		p.autoApplicable[f] = true
	}
	return p
}

// requiresApproval: Safe and whitelisted never needs approval; structural fixes do when
// the policy says so; Medium risk and above always do. A Safe fix outside the whitelist
// needs approval while a Low risk fix does not.
func requiresApproval(fixType models.RemediationFixType, risk models.RiskLevel, p remediationPolicy) bool {
	if risk == models.RiskSafe && p.autoApplicable[fixType] {
		return false
	}
	if p.requireStructuralApproval && fixType.Structural() {
		return true
	}
	if risk.AtLeast(models.RiskMedium) {
		return true
	}
	return risk == models.RiskSafe
}

func severityWeight(severity models.IssueSeverity) float64 {
	switch severity {
	case models.SeverityCritical:
		return 10
	case models.SeverityError:
		return 8
	case models.SeverityWarning:
		return 6
	default:
		return 4
	}
}

func suggestionPriority(severity models.IssueSeverity, confidence models.ConfidenceLevel) float64 {
	return round2(severityWeight(severity) * confidence.Weight())
}

// GenerateSuggestions builds prioritised suggestions for issues without touching content.
func (s *RemediationService) GenerateSuggestions(content models.GeneratedContent, issues []models.ValidationIssue, prefs *models.RemediationPreferences) ([]models.RemediationSuggestion, error) {
	p := s.policyFor(prefs)

	var suggestions []models.RemediationSuggestion
	for _, issue := range issues {
		candidates := make([]models.RemediationFixType, 0, 4)
		for _, fixType := range fixCandidates[issue.IssueType] {
			if !p.rejected[fixType] {
				candidates = append(candidates, fixType)
			}
		}
		for _, fixType := range candidates {
			suggestion, ok, err := s.suggest(content, issue, fixType, candidates, p)
			if err != nil {
				return nil, err
			}
			if !ok {
				s.logger.Debug("suggestion omitted",
					zap.String("fix_type", string(fixType)),
					zap.String("issue_type", string(issue.IssueType)),
				)
				continue
			}
			suggestions = append(suggestions, suggestion)
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority > suggestions[j].Priority
	})

	seen := make(map[string]bool, len(suggestions))
	out := make([]models.RemediationSuggestion, 0, len(suggestions))
	for _, suggestion := range suggestions {
		key := string(suggestion.FixType) + "\x00" + suggestion.Preview.After
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, suggestion)
		if len(out) == p.maxSuggestions {
			break
		}
	}
	return out, nil
}

func (s *RemediationService) suggest(content models.GeneratedContent, issue models.ValidationIssue, fixType models.RemediationFixType, candidates []models.RemediationFixType, p remediationPolicy) (models.RemediationSuggestion, bool, error) {
	entry, ok := fixCatalog[fixType]
	if !ok {
		return models.RemediationSuggestion{}, false, nil
	}
	after, ok, err := s.deriveFix(content, issue, fixType)
	if err != nil || !ok {
		return models.RemediationSuggestion{}, false, err
	}

	highlights := diffHighlights(content.Content, after)
	var alternatives []models.AlternativeFix
	for _, other := range candidates {
		if other == fixType {
			continue
		}
		alt := fixCatalog[other]
		alternatives = append(alternatives, models.AlternativeFix{
			FixType:     other,
			Description: alt.description,
			Confidence:  alt.confidence,
		})
	}

	return models.RemediationSuggestion{
		ID:            uuid.NewString(),
		IssueType:     issue.IssueType,
		IssueSeverity: issue.Severity,
		IssueMessage:  issue.Message,
		FixType:       fixType,
		Title:         entry.title,
		Description:   entry.description,
		Preview: models.ContentPreview{
			Before:           content.Content,
			After:            after,
			Highlights:       highlights,
			AffectedSections: affectedSections(content.Content, after, highlights),
		},
		Confidence:       entry.confidence,
		RiskLevel:        entry.risk,
		RequiresApproval: requiresApproval(fixType, entry.risk, p),
		EstimatedImpact:  entry.impact,
		Alternatives:     alternatives,
		Priority:         suggestionPriority(issue.Severity, entry.confidence),
	}, true, nil
}

// deriveFix computes the content body after applying fixType for issue. ok is false when
// the fix would change nothing.
func (s *RemediationService) deriveFix(content models.GeneratedContent, issue models.ValidationIssue, fixType models.RemediationFixType) (string, bool, error) {
	entry, ok := fixCatalog[fixType]
	if !ok {
		return "", false, nil
	}
	var after string
	switch {
	case entry.transform != nil:
		after = entry.transform(content.Content)
	case entry.restructure != nil:
		after = entry.restructure(content, issue)
	case entry.templated:
		rendered, ok, err := renderTemplateFix(s.templates, content, issue, fixType, entry)
		if err != nil || !ok {
			return "", false, err
		}
		after = rendered
	default:
		return "", false, nil
	}
	if after == content.Content {
		return "", false, nil
	}
	return after, true, nil
}

func issueFromSuggestion(suggestion models.RemediationSuggestion) models.ValidationIssue {
	return models.ValidationIssue{
		Severity:  suggestion.IssueSeverity,
		IssueType: suggestion.IssueType,
		Message:   suggestion.IssueMessage,
	}
}

// CreateSession validates the content when no issues are supplied, builds suggestions, and
// stores a new session. With AutoApply every suggestion not needing approval is applied.
func (s *RemediationService) CreateSession(ctx context.Context, userID string, req dto.CreateRemediationRequest) (*dto.RemediationSessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid remediation payload")
	}
	content := req.Content.ToModel()
	if content.ID == "" {
		content.ID = uuid.NewString()
	}

	issues := req.Issues
	if len(issues) == 0 {
		found, err := s.discoverIssues(ctx, content, req.Validators)
		if err != nil {
			return nil, err
		}
		issues = found
	}

	suggestions, err := s.GenerateSuggestions(content, issues, s.preferencesFor(ctx, userID, req.Preferences))
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveSuggestions(suggestions)

	now := s.now().UTC()
	session := &models.RemediationSession{
		ID:             uuid.NewString(),
		ContentID:      content.ID,
		ContentType:    content.ContentType,
		UserID:         userID,
		SuggestedFixes: suggestions,
		AppliedFixes:   []models.AppliedFix{},
		UserDecisions:  []models.UserDecision{},
		Status:         models.SessionPending,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.cfg.SessionTTL),
	}

	resp := &dto.RemediationSessionResponse{Session: session}
	if req.AutoApply {
		updated := s.autoApply(session, content)
		resp.Content = &updated
	}
	if err := s.store.Put(ctx, session.ID, session, s.cfg.SessionTTL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store remediation session")
	}
	s.logger.Debug("remediation session created",
		zap.String("session_id", session.ID),
		zap.Int("suggestions", len(suggestions)),
	)
	return resp, nil
}

// preferencesFor falls back to the fix types the user keeps rejecting when the request
// carries no explicit preferences.
func (s *RemediationService) preferencesFor(ctx context.Context, userID string, prefs *models.RemediationPreferences) *models.RemediationPreferences {
	if prefs != nil {
		return prefs
	}
	rejected := s.learnedRejections(ctx, userID)
	if len(rejected) == 0 {
		return nil
	}
	return &models.RemediationPreferences{RejectedFixTypes: rejected}
}

func (s *RemediationService) learnedRejections(ctx context.Context, userID string) []models.RemediationFixType {
	if s.learner == nil || userID == "" {
		return nil
	}
	settings, err := s.learner.Settings(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load learned preferences", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return suppressedFixTypes(settings)
}

func (s *RemediationService) discoverIssues(ctx context.Context, content models.GeneratedContent, validators []string) ([]models.ValidationIssue, error) {
	if s.validation == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "issues are required")
	}
	cfg := s.validation.DefaultConfig()
	if len(validators) > 0 {
		cfg.EnabledValidators = validators
	}
	report, _, err := s.validation.Validate(ctx, content, cfg)
	if err != nil {
		return nil, err
	}
	return report.Issues(), nil
}

// AutoApply applies every pending suggestion that does not require approval, in priority order.
func (s *RemediationService) AutoApply(ctx context.Context, sessionID string, payload dto.ContentPayload) (*dto.RemediationSessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid content payload")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionCancelled {
		return nil, appErrors.Clone(appErrors.ErrSessionClosed, "remediation session was cancelled")
	}
	updated := s.autoApply(session, payload.ToModel())
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return &dto.RemediationSessionResponse{Session: session, Content: &updated}, nil
}

func (s *RemediationService) autoApply(session *models.RemediationSession, content models.GeneratedContent) models.GeneratedContent {
	for _, suggestion := range session.SuggestedFixes {
		if suggestion.RequiresApproval || fixApplied(session, suggestion.ID) || decidedAgainst(session, suggestion.ID) {
			continue
		}
		var fix models.AppliedFix
		fix, content = s.applySuggestion(content, suggestion, false)
		s.recordFix(session, fix)
	}
	session.Status = remediationStatus(session)
	session.UpdatedAt = s.now().UTC()
	return content
}

// GetSession returns a live session.
func (s *RemediationService) GetSession(ctx context.Context, sessionID string) (*models.RemediationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, sessionID)
}

// ListSessions returns live sessions, optionally restricted to one user.
func (s *RemediationService) ListSessions(ctx context.Context, userID string) ([]*models.RemediationSession, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list remediation sessions")
	}
	now := s.now()
	out := make([]*models.RemediationSession, 0, len(sessions))
	for _, session := range sessions {
		if !session.ExpiresAt.After(now) {
			continue
		}
		if userID != "" && session.UserID != userID {
			continue
		}
		out = append(out, session)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ApplyFix applies one suggestion to the caller's content. Application failures are recorded
// on the session rather than returned.
func (s *RemediationService) ApplyFix(ctx context.Context, sessionID string, req dto.ApplyFixRequest) (*dto.ApplyFixResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid apply payload")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionCancelled {
		return nil, appErrors.Clone(appErrors.ErrSessionClosed, "remediation session was cancelled")
	}
	suggestion, ok := session.Suggestion(req.SuggestionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "suggestion not found")
	}
	if fixApplied(session, suggestion.ID) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "suggestion already applied")
	}
	if decidedAgainst(session, suggestion.ID) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "suggestion was rejected or dismissed")
	}

	fix, updated := s.applySuggestion(req.Content.ToModel(), *suggestion, req.UserApproved)
	s.recordFix(session, fix)
	if fix.Success {
		session.UserDecisions = append(session.UserDecisions, models.UserDecision{
			SuggestionID: suggestion.ID,
			Decision:     models.DecisionAccept,
			DecidedAt:    fix.AppliedAt,
		})
		s.learn(ctx, session, *suggestion, models.DecisionAccept)
	}
	session.Status = remediationStatus(session)
	session.UpdatedAt = s.now().UTC()

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return &dto.ApplyFixResponse{AppliedFix: fix, Content: updated, Status: session.Status}, nil
}

// applySuggestion returns the fix record and the content after the fix. The suggestion is
// re-derived when the content no longer matches its preview.
func (s *RemediationService) applySuggestion(content models.GeneratedContent, suggestion models.RemediationSuggestion, approved bool) (models.AppliedFix, models.GeneratedContent) {
	fix := models.AppliedFix{
		SuggestionID: suggestion.ID,
		FixType:      suggestion.FixType,
		Before:       content.Content,
		UserApproved: approved,
		AppliedAt:    s.now().UTC(),
	}
	if suggestion.RequiresApproval && !approved {
		fix.Error = "user approval required"
		return fix, content
	}

	after := suggestion.Preview.After
	if content.Content != suggestion.Preview.Before {
		rederived, ok, err := s.deriveFix(content, issueFromSuggestion(suggestion), suggestion.FixType)
		if err != nil {
			fix.Error = err.Error()
			return fix, content
		}
		if !ok {
			fix.Error = "fix no longer applies to the current content"
			return fix, content
		}
		after = rederived
	}

	content.Content = after
	content.Metadata.WordCount = WordCount(after)
	fix.After = after
	fix.Success = true
	return fix, content
}

func (s *RemediationService) recordFix(session *models.RemediationSession, fix models.AppliedFix) {
	session.AppliedFixes = append(session.AppliedFixes, fix)
	s.metrics.ObserveFixApplied(fix.FixType, fix.Success)
	if !fix.Success {
		s.logger.Warn("fix not applied",
			zap.String("session_id", session.ID),
			zap.String("fix_type", string(fix.FixType)),
			zap.String("error", fix.Error),
		)
	}
}

// RecordDecision stores a user's verdict on a suggestion.
func (s *RemediationService) RecordDecision(ctx context.Context, sessionID string, req dto.DecisionRequest) (*models.RemediationSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	if req.Decision == models.DecisionModify && req.ModifiedText == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "modified_text required for MODIFY decisions")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionCancelled {
		return nil, appErrors.Clone(appErrors.ErrSessionClosed, "remediation session was cancelled")
	}
	suggestion, ok := session.Suggestion(req.SuggestionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "suggestion not found")
	}

	session.UserDecisions = append(session.UserDecisions, models.UserDecision{
		SuggestionID: req.SuggestionID,
		Decision:     req.Decision,
		Note:         req.Note,
		ModifiedText: req.ModifiedText,
		DecidedAt:    s.now().UTC(),
	})
	session.Status = remediationStatus(session)
	session.UpdatedAt = s.now().UTC()
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	s.learn(ctx, session, *suggestion, req.Decision)
	return session, nil
}

// CancelSession moves a session to Cancelled. Completed sessions cannot be cancelled.
func (s *RemediationService) CancelSession(ctx context.Context, sessionID string) (*models.RemediationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch session.Status {
	case models.SessionCompleted:
		return nil, appErrors.Clone(appErrors.ErrSessionClosed, "remediation session already completed")
	case models.SessionCancelled:
		return session, nil
	}
	session.Status = models.SessionCancelled
	session.UpdatedAt = s.now().UTC()
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CleanupExpiredSessions deletes sessions past their expiry and reports how many were removed.
func (s *RemediationService) CleanupExpiredSessions(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.store.List(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list remediation sessions")
	}
	now := s.now()
	removed := 0
	for _, session := range sessions {
		if session.ExpiresAt.After(now) {
			continue
		}
		if err := s.store.Delete(ctx, session.ID); err != nil {
			return removed, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete remediation session")
		}
		removed++
	}
	return removed, nil
}

// StartCleanup purges expired sessions on an interval until ctx is cancelled.
func (s *RemediationService) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.CleanupExpiredSessions(ctx)
				if err != nil {
					s.logger.Warn("remediation session cleanup failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					s.logger.Info("expired remediation sessions removed", zap.Int("count", removed))
				}
			}
		}
	}()
}

func (s *RemediationService) load(ctx context.Context, sessionID string) (*models.RemediationSession, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrSessionNotFound) {
			return nil, appErrors.Clone(appErrors.ErrSessionNotFound, fmt.Sprintf("remediation session %s not found", sessionID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load remediation session")
	}
	if !session.ExpiresAt.After(s.now()) {
		if err := s.store.Delete(ctx, sessionID); err != nil {
			s.logger.Warn("failed to purge expired session", zap.String("session_id", sessionID), zap.Error(err))
		}
		return nil, appErrors.Clone(appErrors.ErrSessionExpired, fmt.Sprintf("remediation session %s expired", sessionID))
	}
	return session, nil
}

func (s *RemediationService) save(ctx context.Context, session *models.RemediationSession) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if err := s.store.Put(ctx, session.ID, session, ttl); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store remediation session")
	}
	return nil
}

func (s *RemediationService) learn(ctx context.Context, session *models.RemediationSession, suggestion models.RemediationSuggestion, decision models.DecisionType) {
	if s.learner == nil || session.UserID == "" {
		return
	}
	event := models.PreferenceEvent{
		IssueType:   suggestion.IssueType,
		FixType:     suggestion.FixType,
		ContentType: session.ContentType,
	}
	switch decision {
	case models.DecisionAccept:
		event.Decision = models.PreferenceAcceptFix
	case models.DecisionReject:
		event.Decision = models.PreferenceRejectFix
	case models.DecisionDismiss:
		event.Decision = models.PreferenceDismissIssue
	case models.DecisionModify:
		event.Decision = models.PreferenceModifySuggestion
	default:
		return
	}
	if err := s.learner.Learn(ctx, session.UserID, event); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("failed to record preference", zap.String("session_id", session.ID), zap.Error(err))
	}
}

func fixApplied(session *models.RemediationSession, suggestionID string) bool {
	for _, fix := range session.AppliedFixes {
		if fix.SuggestionID == suggestionID && fix.Success {
			return true
		}
	}
	return false
}

func decidedAgainst(session *models.RemediationSession, suggestionID string) bool {
	decision, ok := session.Decision(suggestionID)
	if !ok {
		return false
	}
	return decision.Decision == models.DecisionReject || decision.Decision == models.DecisionDismiss
}

// remediationStatus derives the status from decisions and applied fixes. Cancelled is terminal.
func remediationStatus(session *models.RemediationSession) models.SessionStatus {
	if session.Status == models.SessionCancelled {
		return models.SessionCancelled
	}
	decided := make(map[string]bool, len(session.UserDecisions))
	for _, d := range session.UserDecisions {
		decided[d.SuggestionID] = true
	}
	applied := false
	for _, fix := range session.AppliedFixes {
		if fix.Success {
			applied = true
			decided[fix.SuggestionID] = true
		}
	}
	total := len(session.SuggestedFixes)
	switch {
	case total > 0 && len(decided) >= total:
		return models.SessionCompleted
	case applied:
		return models.SessionPartiallyApplied
	case len(decided) > 0:
		return models.SessionInProgress
	default:
		return models.SessionPending
	}
}
