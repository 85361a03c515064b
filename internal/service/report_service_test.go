package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curriculum-qa-api/internal/dto"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
	"github.com/noah-isme/curriculum-qa-api/internal/repository"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
	"github.com/noah-isme/curriculum-qa-api/pkg/jobs"
)

type recordingDispatcher struct {
	jobs []jobs.Job
	err  error
}

func (d *recordingDispatcher) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type stubGenerator struct {
	result *ExportResult
	err    error
	calls  int
}

func (g *stubGenerator) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	g.calls++
	return g.result, g.err
}

func reportRequest() dto.ReportRequest {
	return dto.ReportRequest{
		Content: dto.ContentPayload{ID: "c-1", ContentType: models.ContentTypeQuiz, Content: "What is is a cell?"},
		Format:  models.ReportFormatCSV,
	}
}

func TestReportCreateJobEnqueues(t *testing.T) {
	store := NewMemoryReportJobStore()
	queue := &recordingDispatcher{}
	svc := NewReportService(store, queue, nil, nil, nil, ReportServiceConfig{})

	resp, err := svc.CreateJob(context.Background(), reportRequest(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, resp.ID, queue.jobs[0].ID)
	assert.Equal(t, reportJobType, queue.jobs[0].Type)

	stored, err := store.GetByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.CreatedBy)
	assert.Equal(t, "c-1", stored.Params.Content.ID)
}

func TestReportCreateJobValidation(t *testing.T) {
	svc := NewReportService(NewMemoryReportJobStore(), &recordingDispatcher{}, nil, nil, nil, ReportServiceConfig{})
	req := reportRequest()
	req.Format = "docx"
	_, err := svc.CreateJob(context.Background(), req, "user-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestReportCreateJobMarksFailedWhenQueueDown(t *testing.T) {
	store := NewMemoryReportJobStore()
	svc := NewReportService(store, &recordingDispatcher{err: jobs.ErrQueueClosed}, nil, nil, nil, ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), reportRequest(), "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))

	queued, err := store.ListQueued(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, queued)
}

func TestReportGetStatusPermissions(t *testing.T) {
	store := NewMemoryReportJobStore()
	svc := NewReportService(store, &recordingDispatcher{}, nil, nil, nil, ReportServiceConfig{})
	resp, err := svc.CreateJob(context.Background(), reportRequest(), "owner")
	require.NoError(t, err)

	status, err := svc.GetStatus(context.Background(), resp.ID, "owner", models.RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, status.Status)
	assert.Nil(t, status.ResultURL)

	_, err = svc.GetStatus(context.Background(), resp.ID, "someone-else", models.RoleInstructor)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.GetStatus(context.Background(), resp.ID, "admin", models.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.GetStatus(context.Background(), "missing", "owner", models.RoleAdmin)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestReportWorkerEndToEndDownload(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryReportJobStore()
	exporter, _ := newExportTestService(t, &stubValidationRunner{report: exportReport()})
	svc := NewReportService(store, &recordingDispatcher{}, exporter, nil, nil, ReportServiceConfig{})
	worker := NewReportWorker(store, exporter, nil, 3, nil)

	resp, err := svc.CreateJob(ctx, reportRequest(), "owner")
	require.NoError(t, err)
	require.NoError(t, worker.Handle(ctx, jobs.Job{ID: resp.ID, Type: reportJobType}))

	status, err := svc.GetStatus(ctx, resp.ID, "owner", models.RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, status.Status)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.ResultURL)
	assert.Nil(t, status.Error)

	token := extractToken(*status.ResultURL)
	download, err := svc.ResolveDownload(ctx, token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, models.ReportFormatCSV, download.Format)
	data, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Validator,Severity,Type,Line,Message")

	_, err = svc.ResolveDownload(ctx, token+"x")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestReportResolveDownloadRejectsUnfinishedJob(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryReportJobStore()
	exporter, _ := newExportTestService(t, nil)
	svc := NewReportService(store, &recordingDispatcher{}, exporter, nil, nil, ReportServiceConfig{})
	job := &models.ReportJob{Format: models.ReportFormatCSV, CreatedBy: "owner"}
	require.NoError(t, store.Create(ctx, job))

	token, _, err := exporter.signer.Generate(job.ID, "validation_x.csv")
	require.NoError(t, err)
	url := "/api/v1/reports/download?token=" + token
	require.NoError(t, store.Update(ctx, job.ID, repository.UpdateReportJobParams{ResultURL: &url}))

	_, err = svc.ResolveDownload(ctx, token)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestReportWorkerRequeuesThenFails(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryReportJobStore()
	job := &models.ReportJob{Format: models.ReportFormatPDF, CreatedBy: "owner"}
	require.NoError(t, store.Create(ctx, job))
	worker := NewReportWorker(store, &stubGenerator{err: errors.New("render failed")}, nil, 2, nil)

	err := worker.Handle(ctx, jobs.Job{ID: job.ID, Attempt: 0})
	require.Error(t, err)
	record, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, record.Status)
	assert.Equal(t, 0, record.Progress)
	require.NotNil(t, record.ErrorMessage)
	assert.Equal(t, "render failed", *record.ErrorMessage)

	require.Error(t, worker.Handle(ctx, jobs.Job{ID: job.ID, Attempt: 2}))
	record, err = store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFailed, record.Status)
	assert.Equal(t, 100, record.Progress)
	assert.NotNil(t, record.FinishedAt)
}

func TestReportRecoverPendingJobs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryReportJobStore()
	now := time.Now().UTC()
	require.NoError(t, store.Create(ctx, &models.ReportJob{ID: "b", CreatedAt: now}))
	require.NoError(t, store.Create(ctx, &models.ReportJob{ID: "a", CreatedAt: now.Add(-time.Minute)}))
	require.NoError(t, store.Create(ctx, &models.ReportJob{ID: "done", Status: models.ReportStatusFinished, CreatedAt: now}))
	queue := &recordingDispatcher{}

	NewReportService(store, queue, nil, nil, nil, ReportServiceConfig{}).RecoverPendingJobs(ctx)
	require.Len(t, queue.jobs, 2)
	assert.Equal(t, "a", queue.jobs[0].ID)
	assert.Equal(t, "b", queue.jobs[1].ID)
}

func TestReportCleanupRemovesExpiredFiles(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryReportJobStore()
	exporter, files := newExportTestService(t, nil)
	svc := NewReportService(store, &recordingDispatcher{}, exporter, nil, nil, ReportServiceConfig{ResultTTL: time.Hour})

	path, err := files.Save("validation_old.csv", []byte("x"))
	require.NoError(t, err)
	job := &models.ReportJob{Format: models.ReportFormatCSV}
	require.NoError(t, store.Create(ctx, job))
	token, _, err := exporter.signer.Generate(job.ID, path)
	require.NoError(t, err)
	url := "/api/v1/reports/download?token=" + token
	finished := models.ReportStatusFinished
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, store.Update(ctx, job.ID, repository.UpdateReportJobParams{Status: &finished, ResultURL: &url, FinishedAt: &past}))

	svc.cleanupExpired(ctx)
	_, err = files.Open(path)
	require.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	assert.Equal(t, "abc", extractToken("/api/v1/reports/download?token=abc"))
	assert.Equal(t, "", extractToken("/api/v1/reports/download"))
}

func TestReportWorkerSkipsSettledJobs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryReportJobStore()
	job := &models.ReportJob{Format: models.ReportFormatCSV, Status: models.ReportStatusFinished, CreatedBy: "owner"}
	require.NoError(t, store.Create(ctx, job))
	generator := &stubGenerator{}
	worker := NewReportWorker(store, generator, nil, 3, nil)

	require.NoError(t, worker.Handle(ctx, jobs.Job{ID: job.ID}))
	assert.Equal(t, 0, generator.calls)
}
