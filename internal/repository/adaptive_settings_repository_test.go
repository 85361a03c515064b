package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
)

func TestAdaptiveSettingsRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAdaptiveSettingsRepository(db)

	updated := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	payload := `{"user_id":"u-1","dismissed_issue_types":["GRAMMAR"],"strictness":{"QUIZ":0.9},"accepted_fixes":{"FIX_TYPOS":2},"rejected_fixes":{},"modified_suggestions":1}`
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, settings, updated_at FROM adaptive_settings WHERE user_id = $1")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "settings", "updated_at"}).AddRow("u-1", []byte(payload), updated))

	settings, err := repo.Get(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", settings.UserID)
	assert.Equal(t, []models.IssueType{models.IssueTypeGrammar}, settings.DismissedIssueTypes)
	assert.InDelta(t, 0.9, settings.Strictness[models.ContentTypeQuiz], 1e-9)
	assert.Equal(t, 2, settings.AcceptedFixes[models.FixTypos])
	assert.Equal(t, updated, settings.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdaptiveSettingsRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAdaptiveSettingsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM adaptive_settings WHERE user_id = $1")).
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestAdaptiveSettingsRepositorySave(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAdaptiveSettingsRepository(db)

	settings := models.NewAdaptiveSettings("u-1")
	settings.DismissedIssueTypes = []models.IssueType{models.IssueTypeReadability}
	settings.UpdatedAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO adaptive_settings (user_id, settings, updated_at) VALUES ($1, $2, $3)")).
		WithArgs("u-1", sqlmock.AnyArg(), settings.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), settings))
	require.NoError(t, mock.ExpectationsWereMet())
}
