package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"otsync/internal"
)

// ExportBatchReport writes a sync batch's accounting to an XLSX workbook:
// a summary sheet, the skipped rows, and the row-level errors.
func ExportBatchReport(batch internal.SyncBatch, outputPath string) error {
	f := excelize.NewFile()

	summary := f.GetSheetName(0)
	_ = f.SetSheetName(summary, "Summary")
	summaryRows := [][]any{
		{"batch_id", batch.ID},
		{"started_at", batch.StartedAt},
		{"completed_at", deref(batch.CompletedAt)},
		{"aborted", batch.Aborted},
		{"projects", strings.Join(batch.Scope.Projects, ", ")},
		{"buildings", strings.Join(batch.Scope.Buildings, ", ")},
		{"auto_create_buildings", batch.Scope.AutoCreateBuildings},
		{"parts_created", batch.PartsCreated},
		{"parts_updated", batch.PartsUpdated},
		{"logs_created", batch.LogsCreated},
		{"logs_updated", batch.LogsUpdated},
		{"skipped", len(batch.SkippedItems)},
		{"errors", len(batch.Errors)},
	}
	for r, row := range summaryRows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue("Summary", cell, v)
		}
	}

	_, _ = f.NewSheet("Skipped")
	skippedHeaders := []string{"row_number", "kind", "natural_key", "project_number", "reason"}
	for i, h := range skippedHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue("Skipped", cell, h)
	}
	for i, item := range batch.SkippedItems {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue("Skipped", cell, value)
		}
		set(1, item.RowNumber)
		set(2, string(item.Kind))
		set(3, item.NaturalKey)
		set(4, item.ProjectNumber)
		set(5, string(item.Reason))
	}

	_, _ = f.NewSheet("Errors")
	_ = f.SetCellValue("Errors", "A1", "error")
	for i, msg := range batch.Errors {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = f.SetCellValue("Errors", cell, msg)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
