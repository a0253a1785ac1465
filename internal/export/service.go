// Package export renders a user's document inventory as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gcbaptista/go-document-repository/services"
)

// SheetName is the worksheet holding the inventory.
const SheetName = "Documents"

var headers = []string{
	"Title",
	"Description",
	"Visibility",
	"Original Filename",
	"Format",
	"Size (bytes)",
	"Versions",
	"Created",
	"Updated",
}

// Service produces inventory workbooks from the document repository.
type Service struct {
	repo   services.DocumentReader
	logger *slog.Logger
}

func NewService(repo services.DocumentReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportDocumentsXLSX returns the owner's documents, newest first, as XLSX bytes.
func (s *Service) ExportDocumentsXLSX(ctx context.Context, ownerID string) ([]byte, error) {
	start := time.Now()

	docs, err := s.repo.ListDocuments(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// Rename the default sheet instead of leaving an empty Sheet1 behind.
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(SheetName, "A1", "I1", style)
	}

	for i, doc := range docs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}
		write(1, doc.Title)
		write(2, doc.Description)
		write(3, string(doc.Visibility))
		write(4, doc.OriginalFilename)
		write(5, string(doc.Format))
		write(6, doc.FileSize)
		write(7, doc.LatestVersion)
		write(8, doc.CreatedAt.UTC().Format(time.DateTime))
		write(9, doc.UpdatedAt.UTC().Format(time.DateTime))
	}

	_ = f.SetColWidth(SheetName, "A", "A", 32) // title
	_ = f.SetColWidth(SheetName, "B", "B", 40) // description
	_ = f.SetColWidth(SheetName, "C", "C", 12)
	_ = f.SetColWidth(SheetName, "D", "D", 32)
	_ = f.SetColWidth(SheetName, "E", "G", 12)
	_ = f.SetColWidth(SheetName, "H", "I", 20) // timestamps

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("documents exported",
		"owner_id", ownerID,
		"rows", len(docs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
