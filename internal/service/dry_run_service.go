package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-qa-api/internal/dto"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
)

const (
	defaultDryRunTTL         = 30 * time.Minute
	defaultMaxCachedSessions = 50
	defaultCleanupInterval   = 5 * time.Minute
)

// DryRunServiceConfig holds preview cache policy.
type DryRunServiceConfig struct {
	CacheDuration     time.Duration
	MaxCachedSessions int
	CleanupInterval   time.Duration
}

// DryRunService computes change previews without mutating content and commits selected changes.
type DryRunService struct {
	store       DryRunStore
	remediation *RemediationService
	validation  validationRunner
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         DryRunServiceConfig
	now         func() time.Time

	mu sync.Mutex
}

// NewDryRunService constructs the preview engine.
func NewDryRunService(store DryRunStore, remediation *RemediationService, validation validationRunner, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg DryRunServiceConfig) *DryRunService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if store == nil {
		store = NewMemorySessionStore[models.DryRunSession]()
	}
	if remediation == nil {
		remediation = NewRemediationService(nil, validation, nil, metrics, validate, logger, RemediationServiceConfig{})
	}
	if cfg.CacheDuration <= 0 {
		cfg.CacheDuration = defaultDryRunTTL
	}
	if cfg.MaxCachedSessions <= 0 {
		cfg.MaxCachedSessions = defaultMaxCachedSessions
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}
	return &DryRunService{
		store:       store,
		remediation: remediation,
		validation:  validation,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// CreateDryRun validates the request, runs validators when no results are supplied, and
// caches a new preview session.
func (s *DryRunService) CreateDryRun(ctx context.Context, userID string, req dto.CreateDryRunRequest) (*models.DryRunSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid dry-run payload")
	}
	content := req.Content.ToModel()
	if content.ID == "" {
		content.ID = uuid.NewString()
	}

	results := req.ValidationResults
	if len(results) == 0 {
		if s.validation == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "validation_results are required")
		}
		cfg := s.validation.DefaultConfig()
		if len(req.Validators) > 0 {
			cfg.EnabledValidators = req.Validators
		}
		report, _, err := s.validation.Validate(ctx, content, cfg)
		if err != nil {
			return nil, err
		}
		results = report.Results
	}
	prefs := req.Preferences
	if prefs.RejectedFixTypes == nil {
		prefs.RejectedFixTypes = s.remediation.learnedRejections(ctx, userID)
	}
	return s.GenerateDryRun(ctx, content, results, models.DryRunSettings{UserID: userID, Preferences: prefs})
}

// GenerateDryRun previews every remediation suggestion for content. content is never modified.
func (s *DryRunService) GenerateDryRun(ctx context.Context, content models.GeneratedContent, results []models.ValidationResult, settings models.DryRunSettings) (*models.DryRunSession, error) {
	var issues []models.ValidationIssue
	for _, result := range results {
		issues = append(issues, result.Issues...)
	}

	working := content
	prefs := settings.Preferences
	suggestions, err := s.remediation.GenerateSuggestions(working, issues, &prefs)
	if err != nil {
		return nil, err
	}
	changes := proposeChanges(suggestions)

	ids := make([]string, 0, len(changes))
	for _, change := range changes {
		ids = append(ids, change.ID)
	}
	order, _ := orderChanges(ids, indexChanges(changes))
	final, _ := s.applyChanges(working, changes, ids)

	groups := groupChanges(changes)
	impact := analyzeImpact(working.Content, final.Content, changes)
	now := s.now().UTC()
	session := &models.DryRunSession{
		ID:                uuid.NewString(),
		ContentID:         content.ID,
		UserID:            settings.UserID,
		OriginalContent:   content,
		ValidationResults: results,
		Results: models.DryRunResults{
			Summary:        summarize(working.Content, final.Content, changes, groups),
			ChangeGroups:   groups,
			Impact:         impact,
			Previews:       buildPreviews(working.Content, final.Content, changes),
			Guidance:       buildGuidance(changeIDs(order), changes, impact.Integrity),
			Safety:         assessSafety(working.Content, final.Content, changes, impact.Integrity),
			Recommendation: recommend(changes, impact.OverallQualityDelta),
		},
		Status:    models.DryRunActive,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.CacheDuration),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureCapacity(ctx); err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, session.ID, session, s.cfg.CacheDuration); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cache dry-run session")
	}
	s.metrics.ObserveDryRunEvent(DryRunEventCreated)
	s.refreshCacheGauge(ctx)
	s.logger.Debug("dry run generated",
		zap.String("session_id", session.ID),
		zap.Int("changes", len(changes)),
		zap.String("recommendation", string(session.Results.Recommendation)),
	)
	return session, nil
}

// GetCachedSession returns an active session. Expired sessions are purged and reported as expired.
func (s *DryRunService) GetCachedSession(ctx context.Context, sessionID string) (*models.DryRunSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, sessionID)
}

// ListSessions returns unexpired sessions for a user, oldest first.
func (s *DryRunService) ListSessions(ctx context.Context, userID string) ([]*models.DryRunSession, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list dry-run sessions")
	}
	now := s.now()
	out := make([]*models.DryRunSession, 0, len(sessions))
	for _, session := range sessions {
		if session.Expired(now) || (userID != "" && session.UserID != userID) {
			continue
		}
		out = append(out, session)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CancelSession discards a preview.
func (s *DryRunService) CancelSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.load(ctx, sessionID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete dry-run session")
	}
	s.metrics.ObserveDryRunEvent(DryRunEventCancelled)
	s.refreshCacheGauge(ctx)
	return nil
}

// CleanupExpiredSessions removes every expired session and returns the number removed.
func (s *DryRunService) CleanupExpiredSessions(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed, _, err := s.sweep(ctx)
	if err != nil {
		return removed, err
	}
	s.refreshCacheGauge(ctx)
	return removed, nil
}

// StartCleanup sweeps expired sessions every CleanupInterval until ctx is done.
func (s *DryRunService) StartCleanup(ctx context.Context) {
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
					s.logger.Warn("dry-run cleanup failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					s.logger.Debug("dry-run sessions expired", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// sweep deletes expired sessions and returns the survivors.
func (s *DryRunService) sweep(ctx context.Context) (int, []*models.DryRunSession, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list dry-run sessions")
	}
	now := s.now()
	removed := 0
	live := make([]*models.DryRunSession, 0, len(sessions))
	for _, session := range sessions {
		if !session.Expired(now) {
			live = append(live, session)
			continue
		}
		if err := s.store.Delete(ctx, session.ID); err != nil {
			return removed, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete dry-run session")
		}
		removed++
		s.metrics.ObserveDryRunEvent(DryRunEventExpired)
	}
	return removed, live, nil
}

// ensureCapacity makes room for one more session: expired sessions go first, then the oldest.
func (s *DryRunService) ensureCapacity(ctx context.Context) error {
	_, live, err := s.sweep(ctx)
	if err != nil {
		return err
	}
	if len(live) < s.cfg.MaxCachedSessions {
		return nil
	}
	sort.SliceStable(live, func(i, j int) bool { return live[i].CreatedAt.Before(live[j].CreatedAt) })
	for len(live) >= s.cfg.MaxCachedSessions {
		oldest := live[0]
		if err := s.store.Delete(ctx, oldest.ID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to evict dry-run session")
		}
		s.metrics.ObserveDryRunEvent(DryRunEventEvicted)
		s.logger.Debug("dry-run session evicted", zap.String("session_id", oldest.ID))
		live = live[1:]
	}
	return nil
}

func (s *DryRunService) load(ctx context.Context, sessionID string) (*models.DryRunSession, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrSessionNotFound) {
			return nil, appErrors.Clone(appErrors.ErrSessionNotFound, fmt.Sprintf("dry-run session %s not found", sessionID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dry-run session")
	}
	if session.Expired(s.now()) {
		if err := s.store.Delete(ctx, sessionID); err != nil {
			s.logger.Warn("failed to purge expired dry-run session", zap.String("session_id", sessionID), zap.Error(err))
		}
		s.metrics.ObserveDryRunEvent(DryRunEventExpired)
		return nil, appErrors.Clone(appErrors.ErrSessionExpired, fmt.Sprintf("dry-run session %s expired", sessionID))
	}
	if session.Status != models.DryRunActive {
		return nil, appErrors.Clone(appErrors.ErrSessionClosed, fmt.Sprintf("dry-run session %s is %s", sessionID, session.Status))
	}
	s.metrics.ObserveDryRunEvent(DryRunEventHit)
	return session, nil
}

func (s *DryRunService) refreshCacheGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	sessions, err := s.store.List(ctx)
	if err != nil {
		return
	}
	s.metrics.SetDryRunCacheSize(len(sessions))
}
