package pipeline

import (
	"otsync/internal"
	"otsync/internal/util"
)

// PartRef is the slice of an assembly part the log pipeline needs: enough
// to resolve the owning project and compute remaining quantities.
type PartRef struct {
	ID            int64
	ProjectID     int64
	ProjectNumber string
	Quantity      int
}

// PartLookup resolves a part designation (the global natural key) against
// the current part set. During a full sync run the lookup also covers parts
// created by the parts phase of the same run.
type PartLookup func(designation string) (PartRef, bool)

type PartValidation struct {
	Importable    []PartRow
	Skipped       []internal.SkippedItem
	RowsByProject map[string]int
}

// ValidateParts classifies each mapped part row as importable or skipped.
// Rules run in order and the first failure wins: required fields, project
// resolution, type coercion. Coerced values are written back onto the
// importable rows so the upsert engine never re-parses. Pure: no writes,
// stable output for identical input.
func ValidateParts(rows []PartRow, m *Matcher) PartValidation {
	v := PartValidation{RowsByProject: map[string]int{}}

	for _, row := range rows {
		if row.ProjectNumber != "" {
			v.RowsByProject[util.MatchKey(row.ProjectNumber)]++
		}

		if row.ProjectNumber == "" || row.PartDesignation == "" {
			v.Skipped = append(v.Skipped, skip(row.RowNumber, internal.KindPart, row.PartDesignation, row.ProjectNumber, internal.SkipMissingRequired))
			continue
		}

		if _, ok := m.ProjectByNumber(row.ProjectNumber); !ok {
			v.Skipped = append(v.Skipped, skip(row.RowNumber, internal.KindPart, row.PartDesignation, row.ProjectNumber, internal.SkipProjectNotFound))
			continue
		}

		qty, ok := util.ParseCellInt(row.QuantityRaw)
		if !ok {
			v.Skipped = append(v.Skipped, skip(row.RowNumber, internal.KindPart, row.PartDesignation, row.ProjectNumber, internal.SkipInvalidQuantity))
			continue
		}
		if qty <= 0 {
			qty = 1
		}
		row.Quantity = qty

		// Measures are best-effort: an unparseable weight or area is
		// stored as null rather than blocking the row.
		row.LengthMm = coerceFloat(row.LengthRaw)
		row.NetAreaPerUnit = coerceFloat(row.AreaPerUnitRaw)
		row.NetAreaTotal = coerceFloat(row.AreaTotalRaw)
		row.SinglePartWeight = coerceFloat(row.WeightPerUnitRaw)
		row.NetWeightTotal = coerceFloat(row.WeightTotalRaw)

		v.Importable = append(v.Importable, row)
	}

	return v
}

type LogValidation struct {
	Importable    []LogRow
	Skipped       []internal.SkippedItem
	RowsByProject map[string]int
}

// ValidateLogs classifies each mapped log row. Logs resolve their project
// through the referenced part, so the rule order is: required fields, part
// resolution, type coercion. Logs never implicitly create parts.
func ValidateLogs(rows []LogRow, lookup PartLookup) LogValidation {
	v := LogValidation{RowsByProject: map[string]int{}}

	for _, row := range rows {
		if row.PartDesignation == "" || row.ProcessRaw == "" {
			v.Skipped = append(v.Skipped, skip(row.RowNumber, internal.KindLog, row.PartDesignation, "", internal.SkipMissingRequired))
			continue
		}

		part, ok := lookup(row.PartDesignation)
		if !ok {
			v.Skipped = append(v.Skipped, skip(row.RowNumber, internal.KindLog, row.PartDesignation, "", internal.SkipPartNotFound))
			continue
		}
		row.ProjectNumber = part.ProjectNumber
		v.RowsByProject[util.MatchKey(part.ProjectNumber)]++

		qty, ok := util.ParseCellInt(row.ProcessedQtyRaw)
		if !ok {
			v.Skipped = append(v.Skipped, skip(row.RowNumber, internal.KindLog, row.PartDesignation, part.ProjectNumber, internal.SkipInvalidQuantity))
			continue
		}
		if qty <= 0 {
			qty = 1
		}
		row.ProcessedQty = qty

		if row.DateRaw != "" {
			date, ok := util.ParseCellDate(row.DateRaw)
			if !ok {
				v.Skipped = append(v.Skipped, skip(row.RowNumber, internal.KindLog, row.PartDesignation, part.ProjectNumber, internal.SkipInvalidDate))
				continue
			}
			row.DateProcessed = date
		}

		row.ProcessType = util.NormalizeProcess(row.ProcessRaw)
		v.Importable = append(v.Importable, row)
	}

	return v
}

func coerceFloat(raw string) *float64 {
	f, ok := util.ParseCellFloat(raw)
	if !ok {
		return nil
	}
	return f
}

func skip(rowNumber int, kind internal.EntityKind, naturalKey, projectNumber string, reason internal.SkipReason) internal.SkippedItem {
	return internal.SkippedItem{
		RowNumber:     rowNumber,
		Kind:          kind,
		NaturalKey:    naturalKey,
		ProjectNumber: projectNumber,
		Reason:        reason,
	}
}
