package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
	"github.com/noah-isme/curriculum-qa-api/pkg/export"
	"github.com/noah-isme/curriculum-qa-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type configResolver interface {
	ResolveFor(ctx context.Context, userID string, level models.UserExperienceLevel, contentType models.ContentType) (*models.ResolvedConfig, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService validates report job content and persists the rendered report.
type ExportService struct {
	validation validationRunner
	resolver   configResolver
	storage    fileStorage
	csv        documentRenderer
	pdf        documentRenderer
	signer     *storage.SignedURLSigner
	logger     *zap.Logger
	cfg        ExportConfig
}

// NewExportService constructs an ExportService. resolver is optional and only consulted
// for jobs that name an experience level.
func NewExportService(validation validationRunner, resolver configResolver, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf documentRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		validation: validation,
		resolver:   resolver,
		storage:    storage,
		csv:        csv,
		pdf:        pdf,
		signer:     signer,
		logger:     logger,
		cfg:        cfg,
	}
}

// Generate validates the job content, renders the report and stores it behind a signed URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	report, err := s.validate(ctx, job)
	if err != nil {
		return nil, err
	}
	doc := BuildReportDocument(report)

	var payload []byte
	switch job.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(doc)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(doc)
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download?token=%s", prefix, token),
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *ExportService) validate(ctx context.Context, job *models.ReportJob) (*models.ValidationReport, error) {
	if s.validation == nil {
		return nil, fmt.Errorf("validation service not configured")
	}
	content := job.Params.Content
	cfg := s.validation.DefaultConfig()
	if job.Params.Level != "" && s.resolver != nil {
		resolved, err := s.resolver.ResolveFor(ctx, job.CreatedBy, models.UserExperienceLevel(job.Params.Level), content.ContentType)
		if err != nil {
			return nil, err
		}
		cfg = resolved.Config
	}
	if len(job.Params.Validators) > 0 {
		cfg.EnabledValidators = job.Params.Validators
	}
	report, _, err := s.validation.Validate(ctx, content, cfg)
	return report, err
}

// BuildReportDocument lays out a validation report as a titled summary plus issue table.
func BuildReportDocument(report *models.ValidationReport) export.Document {
	title := report.Title
	if title == "" {
		title = report.ContentID
	}
	verdict := "failed"
	if report.Passed {
		verdict = "passed"
	}
	summary := [][2]string{
		{"Content type", string(report.ContentType)},
		{"Result", verdict},
		{"Overall score", fmt.Sprintf("%.2f", report.OverallScore)},
		{"Total issues", fmt.Sprintf("%d", report.TotalIssues)},
	}
	headers := []string{"Validator", "Severity", "Type", "Line", "Message"}
	rows := make([]map[string]string, 0, report.TotalIssues)
	for _, result := range report.Results {
		summary = append(summary, [2]string{result.ValidatorName, fmt.Sprintf("%.2f", result.Score)})
		for _, issue := range result.Issues {
			line := ""
			if issue.Location != nil && issue.Location.Line != nil {
				line = fmt.Sprintf("%d", *issue.Location.Line)
			}
			rows = append(rows, map[string]string{
				"Validator": result.ValidatorName,
				"Severity":  string(issue.Severity),
				"Type":      string(issue.IssueType),
				"Line":      line,
				"Message":   issue.Message,
			})
		}
	}
	return export.Document{
		Title:   fmt.Sprintf("Validation report: %s", title),
		Summary: summary,
		Table:   export.Dataset{Headers: headers, Rows: rows},
	}
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (*storage.SignedToken, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	contentPart := sanitizeFilename(job.Params.Content.ID)
	return fmt.Sprintf("validation_%s_%s.%s", contentPart, timestamp, job.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "content"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
