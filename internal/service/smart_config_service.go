package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/curriculum-qa-api/internal/dto"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
)

const (
	strictnessStep       = 0.1
	strictnessAcceptStep = 0.05
	strictnessMin        = 0.5
	strictnessMax        = 1.5
	rejectionsToSuppress = 3
)

// AdaptiveSettingsStore persists learned preferences per user.
type AdaptiveSettingsStore interface {
	Get(ctx context.Context, userID string) (*models.AdaptiveSettings, error)
	Save(ctx context.Context, settings *models.AdaptiveSettings) error
}

// SmartConfigServiceConfig carries defaults the resolver merges into every config.
type SmartConfigServiceConfig struct {
	DefaultValidators []string
	AutoApplicable    []models.RemediationFixType
	MaxSuggestions    int
	Overrides         map[models.UserExperienceLevel]models.ValidationPreset
}

// SmartConfigService maps experience level, content type and learned preferences to a
// concrete validation configuration.
type SmartConfigService struct {
	store     AdaptiveSettingsStore
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SmartConfigServiceConfig
	presets   map[models.UserExperienceLevel]models.ValidationPreset
	now       func() time.Time

	// mu serialises read-modify-write cycles on stored settings.
	mu sync.Mutex
}

// NewSmartConfigService constructs the resolver.
func NewSmartConfigService(store AdaptiveSettingsStore, validate *validator.Validate, logger *zap.Logger, cfg SmartConfigServiceConfig) *SmartConfigService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if store == nil {
		store = NewMemoryAdaptiveSettingsStore()
	}
	if len(cfg.DefaultValidators) == 0 {
		cfg.DefaultValidators = []string{ValidatorStructure, ValidatorReadability, ValidatorCompleteness, ValidatorGrammar}
	}
	presets := defaultPresets(cfg.DefaultValidators)
	for level, override := range cfg.Overrides {
		base, ok := presets[level]
		if !ok {
			continue
		}
		presets[level] = mergePreset(base, override)
	}
	return &SmartConfigService{
		store:     store,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		presets:   presets,
		now:       time.Now,
	}
}

func defaultPresets(validators []string) map[models.UserExperienceLevel]models.ValidationPreset {
	enabled := func() []string { return append([]string(nil), validators...) }
	return map[models.UserExperienceLevel]models.ValidationPreset{
		models.ExperienceBeginner: {
			Level:             models.ExperienceBeginner,
			Targets:           models.ReadabilityTargets{MinFlesch: 70, MaxGradeLevel: 8, MaxSentenceWords: 15},
			EnabledValidators: enabled(),
			AutoFixEnabled:    true,
			SeverityThreshold: models.SeverityInfo,
			Complexity:        models.ComplexitySimple,
			CheckAlignment:    true,
		},
		models.ExperienceIntermediate: {
			Level:             models.ExperienceIntermediate,
			Targets:           models.ReadabilityTargets{MinFlesch: 60, MaxGradeLevel: 10, MaxSentenceWords: 20},
			EnabledValidators: enabled(),
			AutoFixEnabled:    true,
			SeverityThreshold: models.SeverityInfo,
			Complexity:        models.ComplexityStandard,
			CheckAlignment:    true,
		},
		models.ExperienceAdvanced: {
			Level:             models.ExperienceAdvanced,
			Targets:           models.ReadabilityTargets{MinFlesch: 50, MaxGradeLevel: 12, MaxSentenceWords: 25},
			EnabledValidators: enabled(),
			AutoFixEnabled:    false,
			SeverityThreshold: models.SeverityWarning,
			Complexity:        models.ComplexityAdvanced,
			CheckAlignment:    true,
		},
		models.ExperienceExpert: {
			Level:             models.ExperienceExpert,
			Targets:           models.ReadabilityTargets{MinFlesch: 30, MaxGradeLevel: 16, MaxSentenceWords: 35},
			EnabledValidators: enabled(),
			AutoFixEnabled:    false,
			SeverityThreshold: models.SeverityWarning,
			Complexity:        models.ComplexityAdvanced,
			CheckAlignment:    true,
		},
	}
}

// LoadPresetOverrides reads optional per-level preset overrides from a YAML file:
//
//	presets:
//	  BEGINNER:
//	    targets: {min_flesch: 75}
//
// A missing path yields no overrides.
func LoadPresetOverrides(path string) (map[models.UserExperienceLevel]models.ValidationPreset, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read presets file: %w", err)
	}
	var doc struct {
		Presets map[models.UserExperienceLevel]models.ValidationPreset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse presets file: %w", err)
	}
	for level, preset := range doc.Presets {
		preset.Level = level
		doc.Presets[level] = preset
	}
	return doc.Presets, nil
}

// mergePreset overlays non-zero override fields onto base.
func mergePreset(base, override models.ValidationPreset) models.ValidationPreset {
	if override.Targets.MinFlesch > 0 {
		base.Targets.MinFlesch = override.Targets.MinFlesch
	}
	if override.Targets.MaxGradeLevel > 0 {
		base.Targets.MaxGradeLevel = override.Targets.MaxGradeLevel
	}
	if override.Targets.MaxSentenceWords > 0 {
		base.Targets.MaxSentenceWords = override.Targets.MaxSentenceWords
	}
	if len(override.EnabledValidators) > 0 {
		base.EnabledValidators = append([]string(nil), override.EnabledValidators...)
	}
	if override.SeverityThreshold != "" {
		base.SeverityThreshold = override.SeverityThreshold
	}
	if override.Complexity != "" {
		base.Complexity = override.Complexity
	}
	if override.AutoFixEnabled {
		base.AutoFixEnabled = true
	}
	return base
}

// Preset returns the base preset for a level. CUSTOM starts from INTERMEDIATE.
func (s *SmartConfigService) Preset(level models.UserExperienceLevel) (models.ValidationPreset, error) {
	if level == models.ExperienceCustom {
		preset := s.presets[models.ExperienceIntermediate]
		preset.Level = models.ExperienceCustom
		return preset, nil
	}
	preset, ok := s.presets[level]
	if !ok {
		return models.ValidationPreset{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown experience level %q", level))
	}
	return preset, nil
}

// Resolve produces the validation configuration and remediation preferences for a user.
func (s *SmartConfigService) Resolve(ctx context.Context, userID string, req dto.ResolveConfigRequest) (*models.ResolvedConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid smart config payload")
	}
	preset, err := s.Preset(req.Level)
	if err != nil {
		return nil, err
	}
	if req.Level == models.ExperienceCustom && req.Custom != nil {
		preset = applyCustom(preset, *req.Custom)
	}
	preset = adaptForContentType(preset, req.ContentType)

	settings, err := s.Settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildResolved(preset, req.ContentType, settings), nil
}

// ResolveFor resolves without custom overrides, for callers holding only a level.
func (s *SmartConfigService) ResolveFor(ctx context.Context, userID string, level models.UserExperienceLevel, contentType models.ContentType) (*models.ResolvedConfig, error) {
	return s.Resolve(ctx, userID, dto.ResolveConfigRequest{Level: level, ContentType: contentType})
}

func applyCustom(preset models.ValidationPreset, custom dto.CustomPresetOverrides) models.ValidationPreset {
	override := models.ValidationPreset{
		Targets: models.ReadabilityTargets{
			MinFlesch:        custom.MinFlesch,
			MaxGradeLevel:    custom.MaxGradeLevel,
			MaxSentenceWords: custom.MaxSentenceWords,
		},
		EnabledValidators: custom.EnabledValidators,
		SeverityThreshold: custom.SeverityThreshold,
	}
	preset = mergePreset(preset, override)
	if custom.AutoFixEnabled != nil {
		preset.AutoFixEnabled = *custom.AutoFixEnabled
	}
	return preset
}

// adaptForContentType tightens quizzes and relaxes instructor notes.
func adaptForContentType(preset models.ValidationPreset, contentType models.ContentType) models.ValidationPreset {
	switch contentType {
	case models.ContentTypeQuiz:
		preset.Targets.MinFlesch = math.Max(preset.Targets.MinFlesch, 70)
		preset.CheckAlignment = false
	case models.ContentTypeInstructorNotes:
		preset.Complexity = models.ComplexityProfessional
		preset.Targets.MinFlesch = math.Max(preset.Targets.MinFlesch-10, 30)
		preset.Targets.MaxGradeLevel += 2
		preset.Targets.MaxSentenceWords += 5
	}
	return preset
}

func (s *SmartConfigService) buildResolved(preset models.ValidationPreset, contentType models.ContentType, settings *models.AdaptiveSettings) *models.ResolvedConfig {
	strictness := 1.0
	if v, ok := settings.Strictness[contentType]; ok && v > 0 {
		strictness = v
	}
	minFlesch := math.Min(preset.Targets.MinFlesch*strictness, 100)

	cfg := models.ValidationConfig{
		EnabledValidators:    append([]string(nil), preset.EnabledValidators...),
		SeverityThreshold:    preset.SeverityThreshold,
		AutoFixEnabled:       preset.AutoFixEnabled,
		ReadabilityThreshold: round2(minFlesch / 10),
		PluginConfigs: map[string]models.PluginConfig{
			ValidatorReadability: {
				"max_sentence_words": float64(preset.Targets.MaxSentenceWords),
				"max_grade":          preset.Targets.MaxGradeLevel,
			},
			ValidatorCompleteness: {
				"check_alignment": preset.CheckAlignment,
			},
		},
		ExcludedIssueTypes: append([]models.IssueType(nil), settings.DismissedIssueTypes...),
	}

	return &models.ResolvedConfig{
		Level:       preset.Level,
		ContentType: contentType,
		Preset:      preset,
		Config:      cfg,
		Preferences: models.RemediationPreferences{
			RejectedFixTypes: suppressedFixTypes(settings),
			MaxSuggestions:   s.cfg.MaxSuggestions,
			AutoApplicable:   append([]models.RemediationFixType(nil), s.cfg.AutoApplicable...),
		},
	}
}

// suppressedFixTypes returns fix types rejected often enough, and more often than accepted.
func suppressedFixTypes(settings *models.AdaptiveSettings) []models.RemediationFixType {
	var out []models.RemediationFixType
	for fixType, rejected := range settings.RejectedFixes {
		if rejected >= rejectionsToSuppress && rejected > settings.AcceptedFixes[fixType] {
			out = append(out, fixType)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Settings loads adaptive settings, returning empty settings for unknown users.
func (s *SmartConfigService) Settings(ctx context.Context, userID string) (*models.AdaptiveSettings, error) {
	if userID == "" {
		return models.NewAdaptiveSettings(""), nil
	}
	settings, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NewAdaptiveSettings(userID), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load adaptive settings")
	}
	ensureSettingMaps(settings)
	return settings, nil
}

// RecordDecision learns from an explicit user decision and persists the result.
func (s *SmartConfigService) RecordDecision(ctx context.Context, userID string, req dto.RecordPreferenceRequest) (*models.AdaptiveSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preference payload")
	}
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user required to record preferences")
	}
	event := req.ToEvent()
	switch event.Decision {
	case models.PreferenceDismissIssue:
		if event.IssueType == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "issue_type required when dismissing an issue")
		}
	case models.PreferenceAcceptFix, models.PreferenceRejectFix:
		if event.FixType == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "fix_type required for fix decisions")
		}
	}

	settings, err := s.applyEvent(ctx, userID, event)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("adaptive settings updated",
		zap.String("user_id", userID),
		zap.String("decision", string(event.Decision)),
	)
	return settings, nil
}

// ApplyPreferenceEvent mutates settings according to one decision.
func ApplyPreferenceEvent(settings *models.AdaptiveSettings, event models.PreferenceEvent) {
	ensureSettingMaps(settings)
	switch event.Decision {
	case models.PreferenceDismissIssue:
		if !settings.Dismissed(event.IssueType) {
			settings.DismissedIssueTypes = append(settings.DismissedIssueTypes, event.IssueType)
		}
		if event.ContentType != "" {
			adjustStrictness(settings, event.ContentType, -strictnessStep)
		}
	case models.PreferenceAcceptFix:
		settings.AcceptedFixes[event.FixType]++
		if event.ContentType != "" {
			adjustStrictness(settings, event.ContentType, strictnessAcceptStep)
		}
	case models.PreferenceRejectFix:
		settings.RejectedFixes[event.FixType]++
	case models.PreferenceModifySuggestion:
		settings.ModifiedSuggestions++
	}
}

func adjustStrictness(settings *models.AdaptiveSettings, contentType models.ContentType, delta float64) {
	current, ok := settings.Strictness[contentType]
	if !ok || current <= 0 {
		current = 1.0
	}
	settings.Strictness[contentType] = round2(math.Min(strictnessMax, math.Max(strictnessMin, current+delta)))
}

func ensureSettingMaps(settings *models.AdaptiveSettings) {
	if settings.Strictness == nil {
		settings.Strictness = map[models.ContentType]float64{}
	}
	if settings.AcceptedFixes == nil {
		settings.AcceptedFixes = map[models.RemediationFixType]int{}
	}
	if settings.RejectedFixes == nil {
		settings.RejectedFixes = map[models.RemediationFixType]int{}
	}
}

// Learn applies a decision observed elsewhere, such as a remediation session, to the
// user's adaptive settings.
func (s *SmartConfigService) Learn(ctx context.Context, userID string, event models.PreferenceEvent) error {
	if userID == "" {
		return nil
	}
	_, err := s.applyEvent(ctx, userID, event)
	return err
}

func (s *SmartConfigService) applyEvent(ctx context.Context, userID string, event models.PreferenceEvent) (*models.AdaptiveSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.Settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	ApplyPreferenceEvent(settings, event)
	settings.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save adaptive settings")
	}
	return settings, nil
}
