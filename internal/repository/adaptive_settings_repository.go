package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
)

// AdaptiveSettingsRepository persists learned per-user validation preferences as JSONB.
type AdaptiveSettingsRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewAdaptiveSettingsRepository constructs the repository.
func NewAdaptiveSettingsRepository(db *sqlx.DB) *AdaptiveSettingsRepository {
	return &AdaptiveSettingsRepository{db: db, observer: noopObserver{}}
}

// WithObserver attaches a query timing observer.
func (r *AdaptiveSettingsRepository) WithObserver(o QueryObserver) *AdaptiveSettingsRepository {
	if o != nil {
		r.observer = o
	}
	return r
}

type adaptiveSettingsRow struct {
	UserID    string    `db:"user_id"`
	Settings  []byte    `db:"settings"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Get loads a user's settings. sql.ErrNoRows is wrapped for unknown users.
func (r *AdaptiveSettingsRepository) Get(ctx context.Context, userID string) (*models.AdaptiveSettings, error) {
	defer observe(r.observer, "adaptive_settings.get", time.Now())
	const query = `SELECT user_id, settings, updated_at FROM adaptive_settings WHERE user_id = $1`
	var row adaptiveSettingsRow
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		return nil, fmt.Errorf("get adaptive settings: %w", err)
	}
	settings := models.NewAdaptiveSettings(row.UserID)
	if err := json.Unmarshal(row.Settings, settings); err != nil {
		return nil, fmt.Errorf("decode adaptive settings: %w", err)
	}
	settings.UserID = row.UserID
	settings.UpdatedAt = row.UpdatedAt
	return settings, nil
}

// Save upserts the user's settings.
func (r *AdaptiveSettingsRepository) Save(ctx context.Context, settings *models.AdaptiveSettings) error {
	defer observe(r.observer, "adaptive_settings.save", time.Now())
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode adaptive settings: %w", err)
	}
	updatedAt := settings.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO adaptive_settings (user_id, settings, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, settings.UserID, payload, updatedAt); err != nil {
		return fmt.Errorf("save adaptive settings: %w", err)
	}
	return nil
}
