package pipeline

import (
	"strings"
	"time"

	"otsync/internal"
)

// PartRow is a raw-data row after column mapping. String fields hold the
// mapped cell text; the typed fields at the bottom are filled in by the
// validator once coercion has been checked.
type PartRow struct {
	RowNumber           int
	ProjectNumber       string
	PartDesignation     string
	AssemblyMark        string
	SubAssemblyMark     string
	PartMark            string
	QuantityRaw         string
	Name                string
	Profile             string
	Grade               string
	LengthRaw           string
	AreaPerUnitRaw      string
	AreaTotalRaw        string
	WeightPerUnitRaw    string
	WeightTotalRaw      string
	BuildingDesignation string
	BuildingName        string

	Quantity         int
	LengthMm         *float64
	NetAreaPerUnit   *float64
	NetAreaTotal     *float64
	SinglePartWeight *float64
	NetWeightTotal   *float64
}

// LogRow is a production-log row after column mapping. ProjectNumber is
// resolved from the referenced part during validation; logs carry no
// project column of their own.
type LogRow struct {
	RowNumber          int
	PartDesignation    string
	ProcessRaw         string
	ProcessedQtyRaw    string
	DateRaw            string
	ProcessingLocation string
	ProcessingTeam     string
	ReportNumber       string

	ProjectNumber string
	ProcessType   string
	ProcessedQty  int
	DateProcessed time.Time
}

// DefaultPartsMapping mirrors the header layout of the PTS raw-data sheet.
func DefaultPartsMapping() internal.ColumnMapping {
	return internal.ColumnMapping{
		internal.FieldProjectNumber:       "Project Number",
		internal.FieldPartDesignation:     "Part#",
		internal.FieldAssemblyMark:        "Assembly Mark",
		internal.FieldSubAssemblyMark:     "Sub-Assembly Mark",
		internal.FieldPartMark:            "Part Mark",
		internal.FieldQuantity:            "Quantity",
		internal.FieldName:                "Name",
		internal.FieldProfile:             "Profile",
		internal.FieldGrade:               "Grade",
		internal.FieldLengthMm:            "Length(mm)",
		internal.FieldNetAreaPerUnit:      "Net Area(m2) for one",
		internal.FieldNetAreaTotal:        "Net Area(m2) for all",
		internal.FieldSinglePartWeight:    "Single Part Weight",
		internal.FieldNetWeightTotal:      "Net Weight(kg) for all",
		internal.FieldBuildingDesignation: "Building Designation",
		internal.FieldBuildingName:        "Building Name",
	}
}

// DefaultLogsMapping mirrors the header layout of the PTS log sheet.
func DefaultLogsMapping() internal.ColumnMapping {
	return internal.ColumnMapping{
		internal.FieldPartDesignation:    "Part#",
		internal.FieldProcessType:        "Process",
		internal.FieldProcessedQty:       "Processed Qty",
		internal.FieldDateProcessed:      "Process Date",
		internal.FieldProcessingLocation: "Process Location",
		internal.FieldProcessingTeam:     "Processed By",
		internal.FieldReportNumber:       "Report No.",
	}
}

// MapFields applies a column mapping to one source row, producing canonical
// field name -> trimmed cell text. Fields whose mapped column is absent map
// to the empty string.
func MapFields(row internal.SourceRow, mapping internal.ColumnMapping) map[string]string {
	out := make(map[string]string, len(mapping))
	for field, header := range mapping {
		out[field] = strings.TrimSpace(row.Cells[header])
	}
	return out
}

func MapPartRows(rows []internal.SourceRow, mapping internal.ColumnMapping) []PartRow {
	out := make([]PartRow, 0, len(rows))
	for _, row := range rows {
		fields := MapFields(row, mapping)
		out = append(out, PartRow{
			RowNumber:           row.RowNumber,
			ProjectNumber:       fields[internal.FieldProjectNumber],
			PartDesignation:     fields[internal.FieldPartDesignation],
			AssemblyMark:        fields[internal.FieldAssemblyMark],
			SubAssemblyMark:     fields[internal.FieldSubAssemblyMark],
			PartMark:            fields[internal.FieldPartMark],
			QuantityRaw:         fields[internal.FieldQuantity],
			Name:                fields[internal.FieldName],
			Profile:             fields[internal.FieldProfile],
			Grade:               fields[internal.FieldGrade],
			LengthRaw:           fields[internal.FieldLengthMm],
			AreaPerUnitRaw:      fields[internal.FieldNetAreaPerUnit],
			AreaTotalRaw:        fields[internal.FieldNetAreaTotal],
			WeightPerUnitRaw:    fields[internal.FieldSinglePartWeight],
			WeightTotalRaw:      fields[internal.FieldNetWeightTotal],
			BuildingDesignation: fields[internal.FieldBuildingDesignation],
			BuildingName:        fields[internal.FieldBuildingName],
		})
	}
	return out
}

func MapLogRows(rows []internal.SourceRow, mapping internal.ColumnMapping) []LogRow {
	out := make([]LogRow, 0, len(rows))
	for _, row := range rows {
		fields := MapFields(row, mapping)
		out = append(out, LogRow{
			RowNumber:          row.RowNumber,
			PartDesignation:    fields[internal.FieldPartDesignation],
			ProcessRaw:         fields[internal.FieldProcessType],
			ProcessedQtyRaw:    fields[internal.FieldProcessedQty],
			DateRaw:            fields[internal.FieldDateProcessed],
			ProcessingLocation: fields[internal.FieldProcessingLocation],
			ProcessingTeam:     fields[internal.FieldProcessingTeam],
			ReportNumber:       fields[internal.FieldReportNumber],
		})
	}
	return out
}

// MappedPreview is one row of the read-only mapping preview.
type MappedPreview struct {
	RowNumber int
	Fields    map[string]string
}

// PreviewRows maps the first limit rows without validating or writing
// anything, so a user can sanity-check a column mapping before committing
// to it.
func PreviewRows(rows []internal.SourceRow, mapping internal.ColumnMapping, limit int) []MappedPreview {
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}
	out := make([]MappedPreview, 0, limit)
	for _, row := range rows[:limit] {
		out = append(out, MappedPreview{RowNumber: row.RowNumber, Fields: MapFields(row, mapping)})
	}
	return out
}
