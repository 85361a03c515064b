package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/curriculum-qa-api/internal/dto"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
)

// ValidationServiceConfig holds orchestrator defaults.
type ValidationServiceConfig struct {
	DefaultValidators    []string
	ReadabilityThreshold float64
	Parallel             bool
}

// ValidationService runs the configured validators against content.
type ValidationService struct {
	validators map[string]ContentValidator
	order      []string
	cache      *ReportCache
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        ValidationServiceConfig
}

// NewValidationService constructs the orchestrator. A nil validator list registers BuiltinValidators.
func NewValidationService(validators []ContentValidator, cache *ReportCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ValidationServiceConfig) *ValidationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if validators == nil {
		validators = BuiltinValidators()
	}
	if cfg.ReadabilityThreshold <= 0 {
		cfg.ReadabilityThreshold = defaultReadabilityThreshold
	}
	svc := &ValidationService{
		validators: make(map[string]ContentValidator, len(validators)),
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
	for _, v := range validators {
		svc.validators[v.Name()] = v
		svc.order = append(svc.order, v.Name())
	}
	if len(svc.cfg.DefaultValidators) == 0 {
		svc.cfg.DefaultValidators = append([]string(nil), svc.order...)
	}
	return svc
}

// Validators lists registered validators in registration order.
func (s *ValidationService) Validators() []models.ValidatorInfo {
	out := make([]models.ValidatorInfo, 0, len(s.order))
	for _, name := range s.order {
		v := s.validators[name]
		out = append(out, models.ValidatorInfo{
			Name:           v.Name(),
			Description:    v.Description(),
			SupportedTypes: v.SupportedTypes(),
		})
	}
	return out
}

// Validator returns a registered validator by name.
func (s *ValidationService) Validator(name string) (ContentValidator, bool) {
	v, ok := s.validators[normalizeValidatorName(name)]
	return v, ok
}

// DefaultConfig is used when a caller supplies no configuration.
func (s *ValidationService) DefaultConfig() models.ValidationConfig {
	return models.ValidationConfig{
		EnabledValidators:    append([]string(nil), s.cfg.DefaultValidators...),
		SeverityThreshold:    models.SeverityInfo,
		AutoFixEnabled:       false,
		ReadabilityThreshold: s.cfg.ReadabilityThreshold,
	}
}

// Run executes each enabled validator that supports the content type and returns the
// results in configured order. Unknown validator names fail the whole run.
func (s *ValidationService) Run(ctx context.Context, content models.GeneratedContent, cfg models.ValidationConfig) ([]models.ValidationResult, error) {
	selected, err := s.resolve(cfg.EnabledValidators, content.ContentType)
	if err != nil {
		return nil, err
	}
	if cfg.ReadabilityThreshold <= 0 {
		cfg.ReadabilityThreshold = s.cfg.ReadabilityThreshold
	}

	results := make([]models.ValidationResult, len(selected))
	runOne := func(i int) {
		started := time.Now()
		result := selected[i].Validate(content, cfg)
		result.Issues = excludeIssueTypes(result.Issues, cfg.ExcludedIssueTypes)
		result.Passed = models.PassedFor(result.Issues)
		results[i] = result
		s.metrics.ObserveValidation(result, time.Since(started))
	}

	if s.cfg.Parallel && len(selected) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for i := range selected {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				runOne(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range selected {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			runOne(i)
		}
	}

	s.logger.Debug("validation run complete",
		zap.String("content_id", content.ID),
		zap.String("content_type", string(content.ContentType)),
		zap.Int("validators", len(results)),
	)
	return results, nil
}

// ValidateContent is the request-level entry point: it resolves configuration, consults
// the report cache, runs validators, and aggregates a report. The bool reports a cache hit.
func (s *ValidationService) ValidateContent(ctx context.Context, req dto.ValidateContentRequest) (*models.ValidationReport, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid validation payload")
	}
	content := req.Content.ToModel()

	cfg := s.DefaultConfig()
	if req.Config != nil {
		cfg = *req.Config
		if len(cfg.EnabledValidators) == 0 {
			cfg.EnabledValidators = s.DefaultConfig().EnabledValidators
		}
	}
	if len(req.Validators) > 0 {
		cfg.EnabledValidators = req.Validators
	}
	return s.Validate(ctx, content, cfg)
}

// Validate runs validators for content under cfg and aggregates the report.
func (s *ValidationService) Validate(ctx context.Context, content models.GeneratedContent, cfg models.ValidationConfig) (*models.ValidationReport, bool, error) {
	if cached, hit := s.cache.Lookup(ctx, content, cfg); hit {
		return cached, true, nil
	}

	results, err := s.Run(ctx, content, cfg)
	if err != nil {
		return nil, false, err
	}
	report := BuildValidationReport(content, cfg, results)

	s.cache.Store(ctx, content, cfg, report)
	return report, false, nil
}

// BuildValidationReport aggregates results, dropping issues below the severity threshold.
// Scores are left untouched.
func BuildValidationReport(content models.GeneratedContent, cfg models.ValidationConfig, results []models.ValidationResult) *models.ValidationReport {
	report := &models.ValidationReport{
		ContentID:        content.ID,
		ContentType:      content.ContentType,
		Title:            content.Title,
		Passed:           true,
		IssuesBySeverity: map[models.IssueSeverity]int{},
		Results:          make([]models.ValidationResult, 0, len(results)),
		Config:           cfg,
		GeneratedAt:      time.Now().UTC(),
	}
	var scoreTotal float64
	for _, result := range results {
		if cfg.SeverityThreshold != "" {
			filtered := make([]models.ValidationIssue, 0, len(result.Issues))
			for _, issue := range result.Issues {
				if issue.Severity.AtLeast(cfg.SeverityThreshold) {
					filtered = append(filtered, issue)
				}
			}
			// Passed describes the issues the report shows.
			result.Issues = filtered
			result.Passed = models.PassedFor(filtered)
		}
		if !result.Passed {
			report.Passed = false
		}
		for _, issue := range result.Issues {
			report.IssuesBySeverity[issue.Severity]++
		}
		report.TotalIssues += len(result.Issues)
		scoreTotal += result.Score
		report.Results = append(report.Results, result)
	}
	if len(results) > 0 {
		report.OverallScore = round2(scoreTotal / float64(len(results)))
	}
	return report
}

func (s *ValidationService) resolve(names []string, contentType models.ContentType) ([]ContentValidator, error) {
	if len(names) == 0 {
		names = s.cfg.DefaultValidators
	}
	selected := make([]ContentValidator, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := normalizeValidatorName(raw)
		v, ok := s.validators[name]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrUnknownValidator, fmt.Sprintf("unknown validator %q", raw))
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if !supports(v, contentType) {
			s.logger.Debug("validator skipped for content type",
				zap.String("validator", name),
				zap.String("content_type", string(contentType)),
			)
			continue
		}
		selected = append(selected, v)
	}
	return selected, nil
}

func excludeIssueTypes(issues []models.ValidationIssue, excluded []models.IssueType) []models.ValidationIssue {
	if len(excluded) == 0 {
		return issues
	}
	skip := make(map[models.IssueType]struct{}, len(excluded))
	for _, t := range excluded {
		skip[t] = struct{}{}
	}
	out := make([]models.ValidationIssue, 0, len(issues))
	for _, issue := range issues {
		if _, drop := skip[issue.IssueType]; drop {
			continue
		}
		out = append(out, issue)
	}
	return out
}

func normalizeValidatorName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
