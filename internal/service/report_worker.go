package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
	"github.com/noah-isme/curriculum-qa-api/internal/repository"
	"github.com/noah-isme/curriculum-qa-api/pkg/jobs"
)

// Report job progress checkpoints.
const (
	progressQueued     = 0
	progressValidating = 10
	progressDone       = 100
)

// ReportWorker validates the job's content and renders the report file for each queue job.
// A failed attempt puts the job back to QUEUED until the retry budget is spent.
type ReportWorker struct {
	repo       ReportJobStore
	exporter   exportGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewReportWorker constructs a worker. maxRetries should match the queue's MaxRetries.
func NewReportWorker(repo ReportJobStore, exporter exportGenerator, metrics *MetricsService, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReportWorker{
		repo:       repo,
		exporter:   exporter,
		metrics:    metrics,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if record.Status.Terminal() {
		w.logger.Debug("skipping settled report job", zap.String("job_id", job.ID), zap.String("status", string(record.Status)))
		return nil
	}
	if err := w.repo.Update(ctx, job.ID, processingTransition()); err != nil {
		return err
	}

	result, genErr := w.exporter.Generate(ctx, record)
	if genErr != nil {
		w.recordFailure(ctx, job, genErr)
		return genErr
	}

	if err := w.repo.Update(ctx, job.ID, finishedTransition(result.URL)); err != nil {
		w.logger.Warn("failed to mark report finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	w.metrics.ObserveReportJob(models.ReportStatusFinished)
	w.logger.Debug("report rendered", zap.String("job_id", job.ID), zap.String("format", string(record.Format)))
	return nil
}

func (w *ReportWorker) recordFailure(ctx context.Context, job jobs.Job, cause error) {
	params := requeuedTransition(cause.Error())
	final := job.Attempt >= w.maxRetries
	if final {
		params = failedTransition(cause.Error())
	}
	if err := w.repo.Update(ctx, job.ID, params); err != nil {
		w.logger.Warn("failed to record report failure", zap.String("job_id", job.ID), zap.Bool("final", final), zap.Error(err))
	}
	if final {
		w.metrics.ObserveReportJob(models.ReportStatusFailed)
	}
}

func processingTransition() repository.UpdateReportJobParams {
	status := models.ReportStatusProcessing
	progress := progressValidating
	return repository.UpdateReportJobParams{Status: &status, Progress: &progress}
}

func requeuedTransition(reason string) repository.UpdateReportJobParams {
	status := models.ReportStatusQueued
	progress := progressQueued
	return repository.UpdateReportJobParams{Status: &status, Progress: &progress, ErrorMessage: &reason}
}

func failedTransition(reason string) repository.UpdateReportJobParams {
	status := models.ReportStatusFailed
	progress := progressDone
	now := time.Now().UTC()
	return repository.UpdateReportJobParams{Status: &status, Progress: &progress, ErrorMessage: &reason, FinishedAt: &now}
}

func finishedTransition(url string) repository.UpdateReportJobParams {
	status := models.ReportStatusFinished
	progress := progressDone
	now := time.Now().UTC()
	clear := ""
	return repository.UpdateReportJobParams{Status: &status, Progress: &progress, ResultURL: &url, ErrorMessage: &clear, FinishedAt: &now}
}
