package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
)

const defaultReportCacheTTL = 10 * time.Minute

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ReportCache memoizes validation reports keyed by a fingerprint of the content and the
// effective configuration. Repository failures degrade to a miss.
type ReportCache struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	prefix  string
	logger  *zap.Logger
}

// NewReportCache constructs a report cache. A nil repo disables caching.
func NewReportCache(repo CacheRepository, metrics *MetricsService, ttl time.Duration, prefix string, logger *zap.Logger) *ReportCache {
	if ttl <= 0 {
		ttl = defaultReportCacheTTL
	}
	if prefix == "" {
		prefix = "cqa"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportCache{repo: repo, metrics: metrics, ttl: ttl, prefix: prefix, logger: logger}
}

// Enabled indicates whether caching is active.
func (c *ReportCache) Enabled() bool {
	return c != nil && c.repo != nil
}

// Key fingerprints everything that influences a report.
func (c *ReportCache) Key(content models.GeneratedContent, cfg models.ValidationConfig) string {
	payload, _ := json.Marshal(struct {
		Type    models.ContentType      `json:"t"`
		Title   string                  `json:"ti"`
		Content string                  `json:"c"`
		Config  models.ValidationConfig `json:"cfg"`
	}{content.ContentType, content.Title, content.Content, cfg})
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("%s:validation:%s", c.prefix, hex.EncodeToString(sum[:]))
}

// Lookup returns a cached report for content under cfg.
func (c *ReportCache) Lookup(ctx context.Context, content models.GeneratedContent, cfg models.ValidationConfig) (*models.ValidationReport, bool) {
	if !c.Enabled() {
		return nil, false
	}
	key := c.Key(content, cfg)
	start := time.Now()
	var report models.ValidationReport
	err := c.repo.Get(ctx, key, &report)
	c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("report cache lookup failed", zap.String("content_id", content.ID), zap.Error(err))
		}
		return nil, false
	}
	return &report, true
}

// Store saves report for content under cfg. Failures are logged and swallowed.
func (c *ReportCache) Store(ctx context.Context, content models.GeneratedContent, cfg models.ValidationConfig, report *models.ValidationReport) {
	if !c.Enabled() || report == nil {
		return
	}
	start := time.Now()
	err := c.repo.Set(ctx, c.Key(content, cfg), report, c.ttl)
	c.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		c.logger.Warn("report cache store failed", zap.String("content_id", content.ID), zap.Error(err))
	}
}
