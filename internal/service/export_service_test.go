package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
	"github.com/noah-isme/curriculum-qa-api/pkg/storage"
)

func lineRef(n int) *int { return &n }

func exportReport() *models.ValidationReport {
	return &models.ValidationReport{
		ContentID:    "c-1",
		ContentType:  models.ContentTypeQuiz,
		Title:        "Cells",
		OverallScore: 0.9,
		TotalIssues:  1,
		Results: []models.ValidationResult{{
			ValidatorName: ValidatorGrammar,
			Score:         0.95,
			Passed:        true,
			Issues: []models.ValidationIssue{{
				Severity:  models.SeverityWarning,
				IssueType: models.IssueTypeGrammar,
				Message:   `Repeated word: "is"`,
				Location:  &models.IssueLocation{Line: lineRef(3)},
			}},
		}},
	}
}

func newExportTestService(t *testing.T, runner validationRunner) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	return NewExportService(runner, nil, store, signer, ExportConfig{APIPrefix: "/api/v1/"}, nil, nil, nil), store
}

func TestBuildReportDocument(t *testing.T) {
	doc := BuildReportDocument(exportReport())
	assert.Equal(t, "Validation report: Cells", doc.Title)
	assert.Equal(t, [2]string{"Result", "failed"}, doc.Summary[1])
	assert.Equal(t, [2]string{"Overall score", "0.90"}, doc.Summary[2])
	assert.Equal(t, [2]string{ValidatorGrammar, "0.95"}, doc.Summary[4])
	require.Len(t, doc.Table.Rows, 1)
	assert.Equal(t, "3", doc.Table.Rows[0]["Line"])
	assert.Equal(t, "WARNING", doc.Table.Rows[0]["Severity"])
}

func TestExportGenerateCSV(t *testing.T) {
	runner := &stubValidationRunner{report: exportReport()}
	svc, _ := newExportTestService(t, runner)
	job := &models.ReportJob{
		ID:     "job-1",
		Format: models.ReportFormatCSV,
		Params: models.ReportJobParams{
			Content:    models.GeneratedContent{ID: "unit 1/cells", ContentType: models.ContentTypeQuiz, Content: "What is is a cell?"},
			Validators: []string{ValidatorGrammar},
		},
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.RelativePath, "validation_unit_1-cells_"))
	assert.True(t, strings.HasSuffix(result.RelativePath, ".csv"))
	assert.Equal(t, "/api/v1/reports/download?token="+result.Token, result.URL)
	assert.Equal(t, []string{ValidatorGrammar}, runner.lastCfg.EnabledValidators)

	signed, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", signed.JobID)

	f, err := svc.Open(signed.Path)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Contains(t, string(data), `Repeated word: ""is""`)
}

func TestExportGeneratePDF(t *testing.T) {
	svc, _ := newExportTestService(t, &stubValidationRunner{report: exportReport()})
	result, err := svc.Generate(context.Background(), &models.ReportJob{ID: "job-2", Format: models.ReportFormatPDF})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.RelativePath, "validation_content_"))

	f, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer f.Close()
	header := make([]byte, 4)
	_, err = io.ReadFull(f, header)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(header))
}

func TestExportGenerateRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportTestService(t, &stubValidationRunner{report: exportReport()})
	_, err := svc.Generate(context.Background(), &models.ReportJob{ID: "job-3", Format: "xlsx"})
	require.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "content", sanitizeFilename(""))
	assert.Equal(t, "a_b-c-d", sanitizeFilename("a b/c:d"))
	assert.Len(t, sanitizeFilename(strings.Repeat("x", 150)), 100)
}
