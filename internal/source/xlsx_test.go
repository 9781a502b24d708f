package source

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func mkWorkbook(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	_ = f.SetSheetName(f.GetSheetName(0), sheet)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	path := filepath.Join(t.TempDir(), "pts.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestXLSXSourceFetchRows(t *testing.T) {
	path := mkWorkbook(t, "02-Raw Data", [][]any{
		{"Project Number", "Part#", "Quantity"},
		{"254", "254-Z8T-CO2", 4},
		{"", "", ""},
		{"301", "301-A1-B7", 2},
	})

	src := NewXLSXSource(path)
	rows, err := src.FetchRows(context.Background(), "02-Raw Data")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("len=%d, want 2 (blank row dropped)", len(rows))
	}
	if rows[0].RowNumber != 2 {
		t.Fatalf("first data row number = %d, want 2", rows[0].RowNumber)
	}
	if rows[0].Cells["Part#"] != "254-Z8T-CO2" {
		t.Fatalf("unexpected cell: %q", rows[0].Cells["Part#"])
	}
	if rows[1].RowNumber != 4 {
		t.Fatalf("second data row number = %d, want 4", rows[1].RowNumber)
	}
}

func TestXLSXSourceMissingSheet(t *testing.T) {
	path := mkWorkbook(t, "02-Raw Data", [][]any{{"Project Number"}})
	src := NewXLSXSource(path)
	if _, err := src.FetchRows(context.Background(), "04-Log"); err == nil {
		t.Fatal("expected error for missing sheet")
	}
}
