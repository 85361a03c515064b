package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
	"github.com/noah-isme/curriculum-qa-api/internal/repository"
)

// MemoryReportJobStore keeps report jobs in process when the database is disabled.
type MemoryReportJobStore struct {
	mu   sync.RWMutex
	jobs map[string]models.ReportJob
}

// NewMemoryReportJobStore constructs an empty store.
func NewMemoryReportJobStore() *MemoryReportJobStore {
	return &MemoryReportJobStore{jobs: make(map[string]models.ReportJob)}
}

func (s *MemoryReportJobStore) Create(_ context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.jobs[job.ID] = *job
	s.mu.Unlock()
	return nil
}

func (s *MemoryReportJobStore) GetByID(_ context.Context, id string) (*models.ReportJob, error) {
	s.mu.RLock()
	job, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &job, nil
}

func (s *MemoryReportJobStore) Update(_ context.Context, id string, params repository.UpdateReportJobParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		url := *params.ResultURL
		job.ResultURL = &url
	}
	if params.ErrorMessage != nil {
		msg := *params.ErrorMessage
		job.ErrorMessage = &msg
	}
	if params.FinishedAt != nil {
		finished := *params.FinishedAt
		job.FinishedAt = &finished
	}
	s.jobs[id] = job
	return nil
}

func (s *MemoryReportJobStore) ListQueued(_ context.Context, limit int) ([]models.ReportJob, error) {
	return s.list(limit, func(job models.ReportJob) bool {
		return job.Status == models.ReportStatusQueued
	}, func(job models.ReportJob) time.Time { return job.CreatedAt }), nil
}

func (s *MemoryReportJobStore) ListFinishedBefore(_ context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return s.list(limit, func(job models.ReportJob) bool {
		return job.Status == models.ReportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff)
	}, func(job models.ReportJob) time.Time { return *job.FinishedAt }), nil
}

func (s *MemoryReportJobStore) list(limit int, keep func(models.ReportJob) bool, orderBy func(models.ReportJob) time.Time) []models.ReportJob {
	s.mu.RLock()
	var out []models.ReportJob
	for _, job := range s.jobs {
		if keep(job) {
			out = append(out, job)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return orderBy(out[i]).Before(orderBy(out[j])) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
