package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/escolare/portal-api/internal/models"
	appErrors "github.com/escolare/portal-api/pkg/errors"
	"github.com/escolare/portal-api/pkg/export"
)

// ReportFormat selects the rendering of an import run report.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportFile is a rendered import report ready to be served.
type ReportFile struct {
	Name        string
	ContentType string
	Content     []byte
}

// ExportService renders import run reports for school staff.
type ExportService struct {
	logs   importLogStore
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	title  string
	logger *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(logs importLogStore, title string, logger *zap.Logger) *ExportService {
	if title == "" {
		title = "Relatorio de Importacao de Alunos"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		logs:   logs,
		csv:    export.NewCSVExporter(';'),
		pdf:    export.NewPDFExporter(),
		title:  title,
		logger: logger,
	}
}

var reportHeaders = []string{"Prontuario", "Erro"}

// BuildReport renders the error report of one finished run.
func (s *ExportService) BuildReport(ctx context.Context, logID string, format ReportFormat) (*ReportFile, error) {
	log, err := s.logs.FindByID(ctx, logID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "import log not found")
	}

	dataset := export.Dataset{Headers: reportHeaders}
	for _, e := range log.Errors {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Prontuario": e.RegistrationNumber,
			"Erro":       e.Message,
		})
	}

	switch format {
	case ReportFormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return &ReportFile{
			Name:        fmt.Sprintf("import-%s.csv", log.ID),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	case ReportFormatPDF:
		content, err := s.pdf.Render(dataset, s.title, summaryLine(log))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return &ReportFile{
			Name:        fmt.Sprintf("import-%s.pdf", log.ID),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
}

func summaryLine(log *models.ImportLog) string {
	parts := []string{
		"Status: " + string(log.Status),
		"Total: " + strconv.Itoa(log.TotalRecords),
		"Processados: " + strconv.Itoa(log.Processed),
		"Criados: " + strconv.Itoa(log.Created),
		"Atualizados: " + strconv.Itoa(log.Updated),
		"Erros: " + strconv.Itoa(log.ErrorCount),
	}
	return strings.Join(parts, "  |  ")
}
