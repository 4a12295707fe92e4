package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/apexgym/studio-api/internal/models"
	appErrors "github.com/apexgym/studio-api/pkg/errors"
	"github.com/apexgym/studio-api/pkg/export"
)

type rosterReader interface {
	ListRoster(ctx context.Context, classID string) ([]models.RosterEntry, error)
}

type exportClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// ExportFormat identifies a supported download format.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered bytes plus HTTP delivery metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders class rosters into downloadable files. Roster rows
// carry no medical fields, so exports never leak them.
type ExportService struct {
	roster  rosterReader
	classes exportClassReader
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(roster rosterReader, classes exportClassReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		roster:  roster,
		classes: classes,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// ClassRoster renders the active roster of a class in the requested format.
func (s *ExportService) ClassRoster(ctx context.Context, classID string, format ExportFormat) (*ExportResult, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	roster, err := s.roster.ListRoster(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	table := export.Table{
		Title:   fmt.Sprintf("Roster - %s (%s %s-%s)", class.Name, class.DayOfWeek, class.StartTime, class.EndTime),
		Columns: []string{"Student", "Program", "Parent", "Parent Phone", "Enrolled At"},
	}
	for _, entry := range roster {
		table.Rows = append(table.Rows, []string{
			entry.FirstName + " " + entry.LastName,
			string(entry.ProgramType),
			entry.ParentName,
			entry.ParentPhone,
			entry.EnrolledAt.Format("2006-01-02"),
		})
	}

	base := "roster_" + sanitizeFilename(class.Name)
	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: base + ".csv"}, nil
	case ExportFormatPDF:
		content, err := s.pdf.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: base + ".pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func sanitizeFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '_'
		default:
			return -1
		}
	}, name)
	if cleaned == "" {
		cleaned = "class"
	}
	return strings.ToLower(cleaned)
}
