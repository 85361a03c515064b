package service

import (
	"context"
	"database/sql"
	"sync"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
)

// MemoryAdaptiveSettingsStore keeps adaptive settings in process when persistence is disabled.
type MemoryAdaptiveSettingsStore struct {
	mu    sync.RWMutex
	items map[string]*models.AdaptiveSettings
}

// NewMemoryAdaptiveSettingsStore constructs an empty store.
func NewMemoryAdaptiveSettingsStore() *MemoryAdaptiveSettingsStore {
	return &MemoryAdaptiveSettingsStore{items: make(map[string]*models.AdaptiveSettings)}
}

// Get returns a copy of the user's settings or sql.ErrNoRows.
func (s *MemoryAdaptiveSettingsStore) Get(_ context.Context, userID string) (*models.AdaptiveSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.items[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cloneAdaptiveSettings(settings), nil
}

// Save stores a copy of settings.
func (s *MemoryAdaptiveSettingsStore) Save(_ context.Context, settings *models.AdaptiveSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[settings.UserID] = cloneAdaptiveSettings(settings)
	return nil
}

func cloneAdaptiveSettings(in *models.AdaptiveSettings) *models.AdaptiveSettings {
	out := *in
	out.DismissedIssueTypes = append([]models.IssueType(nil), in.DismissedIssueTypes...)
	out.Strictness = make(map[models.ContentType]float64, len(in.Strictness))
	for k, v := range in.Strictness {
		out.Strictness[k] = v
	}
	out.AcceptedFixes = make(map[models.RemediationFixType]int, len(in.AcceptedFixes))
	for k, v := range in.AcceptedFixes {
		out.AcceptedFixes[k] = v
	}
	out.RejectedFixes = make(map[models.RemediationFixType]int, len(in.RejectedFixes))
	for k, v := range in.RejectedFixes {
		out.RejectedFixes[k] = v
	}
	return &out
}
