package source

import (
	"context"

	"otsync/internal"
)

// RowSource yields the raw rows of one sheet of the PTS dataset. The first
// row of the sheet is the header row; data rows keep their spreadsheet row
// numbers so skips and errors point at the cell the operator can see.
type RowSource interface {
	FetchRows(ctx context.Context, sheet string) ([]internal.SourceRow, error)
}

func rowsFromCells(headers []string, data [][]string, firstDataRow int) []internal.SourceRow {
	out := make([]internal.SourceRow, 0, len(data))
	for i, record := range data {
		cells := make(map[string]string, len(headers))
		empty := true
		for col, header := range headers {
			if header == "" {
				continue
			}
			value := ""
			if col < len(record) {
				value = record[col]
			}
			cells[header] = value
			if value != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		out = append(out, internal.SourceRow{RowNumber: firstDataRow + i, Cells: cells})
	}
	return out
}
