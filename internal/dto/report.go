package dto

import "github.com/noah-isme/curriculum-qa-api/internal/models"

// ReportRequest captures POST /reports.
type ReportRequest struct {
	Content    ContentPayload             `json:"content"`
	Validators []string                   `json:"validators,omitempty"`
	Level      models.UserExperienceLevel `json:"level,omitempty" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT CUSTOM"`
	Format     models.ReportFormat        `json:"format" validate:"required,oneof=csv pdf"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
