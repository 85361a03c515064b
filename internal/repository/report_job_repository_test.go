package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var reportJobRowColumns = []string{"id", "format", "params", "status", "progress", "result_url", "created_by", "created_at", "finished_at", "error_message"}

const sampleParams = `{"content":{"id":"c-1","content_type":"QUIZ","title":"Fractions","content":"Question one.","metadata":{"word_count":2,"estimated_duration":0,"difficulty_level":""}},"validators":["grammar"]}`

func TestReportJobRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportJobRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO validation_report_jobs")).
		WithArgs(sqlmock.AnyArg(), "csv", sqlmock.AnyArg(), "QUEUED", 0, nil, "user-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ReportJob{
		Format:    models.ReportFormatCSV,
		Params:    models.ReportJobParams{Content: models.GeneratedContent{ID: "c-1", ContentType: models.ContentTypeQuiz}},
		CreatedBy: "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)

	rows := sqlmock.NewRows(reportJobRowColumns).
		AddRow(job.ID, "csv", sampleParams, "QUEUED", 0, nil, "user-1", time.Now(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, format, params, status, progress, result_url, created_by, created_at, finished_at, error_message FROM validation_report_jobs WHERE id = $1")).
		WithArgs(job.ID).
		WillReturnRows(rows)

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, job.ID, fetched.ID)
	require.Equal(t, "Fractions", fetched.Params.Content.Title)
	require.Equal(t, []string{"grammar"}, fetched.Params.Validators)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportJobRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportJobRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM validation_report_jobs WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestReportJobRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportJobRepository(db)

	now := time.Now()
	status := models.ReportStatusFinished
	progress := 100
	result := "/api/v1/reports/download?token=abc"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE validation_report_jobs SET status = $1, progress = $2, result_url = $3, finished_at = $4 WHERE id = $5")).
		WithArgs(status, progress, result, now, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", UpdateReportJobParams{
		Status:     &status,
		Progress:   &progress,
		ResultURL:  &result,
		FinishedAt: &now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportJobRepositoryUpdateNoop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportJobRepository(db)

	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateReportJobParams{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportJobRepositoryListQueued(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportJobRepository(db)

	rows := sqlmock.NewRows(reportJobRowColumns).
		AddRow("job-1", "pdf", sampleParams, "QUEUED", 0, nil, "user-1", time.Now(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, format, params, status, progress, result_url, created_by, created_at, finished_at, error_message FROM validation_report_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(rows)

	jobs, err := repo.ListQueued(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, models.ReportFormatPDF, jobs[0].Format)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportJobRepositoryListFinishedBefore(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportJobRepository(db)

	rows := sqlmock.NewRows(reportJobRowColumns).
		AddRow("job-1", "csv", sampleParams, "FINISHED", 100, "/api/v1/reports/download?token=abc", "user-1", time.Now().Add(-48*time.Hour), time.Now().Add(-25*time.Hour), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, format, params, status, progress, result_url, created_by, created_at, finished_at, error_message FROM validation_report_jobs WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2")).
		WithArgs(sqlmock.AnyArg(), 50).
		WillReturnRows(rows)

	jobs, err := repo.ListFinishedBefore(context.Background(), time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

type recordingObserver struct {
	labels []string
}

func (o *recordingObserver) ObserveDBQuery(label string, _ time.Duration) {
	o.labels = append(o.labels, label)
}

func TestReportJobRepositoryReportsQueryTimings(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	observer := &recordingObserver{}
	repo := NewReportJobRepository(db).WithObserver(observer)

	mock.ExpectQuery(regexp.QuoteMeta("FROM validation_report_jobs WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	require.Equal(t, []string{"report_job.get"}, observer.labels)
}
