package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
)

type brokenCacheRepo struct{}

func (brokenCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection refused")
}

func (brokenCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("connection refused")
}

func TestReportCacheKeyTracksConfig(t *testing.T) {
	cache := NewReportCache(newMemoryCacheRepo(), nil, 0, "cqa", nil)
	content := sampleContent()

	strict := cache.Key(content, models.ValidationConfig{EnabledValidators: []string{"grammar"}})
	lenient := cache.Key(content, models.ValidationConfig{EnabledValidators: []string{"structure"}})

	assert.True(t, strings.HasPrefix(strict, "cqa:validation:"))
	assert.NotEqual(t, strict, lenient)
	assert.Equal(t, strict, cache.Key(content, models.ValidationConfig{EnabledValidators: []string{"grammar"}}))
}

func TestReportCacheRoundTrip(t *testing.T) {
	cache := NewReportCache(newMemoryCacheRepo(), NewMetricsService(), time.Minute, "", nil)
	content := sampleContent()
	cfg := models.ValidationConfig{EnabledValidators: []string{"grammar"}}

	_, hit := cache.Lookup(context.Background(), content, cfg)
	assert.False(t, hit)

	cache.Store(context.Background(), content, cfg, &models.ValidationReport{ContentID: content.ID, OverallScore: 0.9})
	report, hit := cache.Lookup(context.Background(), content, cfg)
	assert.True(t, hit)
	assert.Equal(t, 0.9, report.OverallScore)
}

func TestReportCacheFailuresDegradeToMiss(t *testing.T) {
	cache := NewReportCache(brokenCacheRepo{}, nil, time.Minute, "cqa", nil)
	content := sampleContent()

	cache.Store(context.Background(), content, models.ValidationConfig{}, &models.ValidationReport{})
	_, hit := cache.Lookup(context.Background(), content, models.ValidationConfig{})
	assert.False(t, hit)

	var disabled *ReportCache
	assert.False(t, disabled.Enabled())
	_, hit = disabled.Lookup(context.Background(), content, models.ValidationConfig{})
	assert.False(t, hit)
}
