package pipeline

import (
	"testing"
	"time"

	"otsync/internal"
)

func TestValidatePartsRuleOrder(t *testing.T) {
	m := testMatcher()

	cases := []struct {
		name   string
		row    PartRow
		reason internal.SkipReason
	}{
		{"missing project", PartRow{RowNumber: 2, PartDesignation: "B-1"}, internal.SkipMissingRequired},
		{"missing designation", PartRow{RowNumber: 3, ProjectNumber: "254"}, internal.SkipMissingRequired},
		{"missing both fields beats project lookup", PartRow{RowNumber: 4}, internal.SkipMissingRequired},
		{"unknown project", PartRow{RowNumber: 5, ProjectNumber: "999", PartDesignation: "B-1"}, internal.SkipProjectNotFound},
		{"bad quantity", PartRow{RowNumber: 6, ProjectNumber: "254", PartDesignation: "B-1", QuantityRaw: "abc"}, internal.SkipInvalidQuantity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := ValidateParts([]PartRow{tc.row}, m)
			if len(v.Importable) != 0 {
				t.Fatalf("expected skip, got importable %+v", v.Importable)
			}
			if len(v.Skipped) != 1 || v.Skipped[0].Reason != tc.reason {
				t.Fatalf("expected %q, got %+v", tc.reason, v.Skipped)
			}
			if v.Skipped[0].RowNumber != tc.row.RowNumber {
				t.Fatalf("row number lost: %+v", v.Skipped[0])
			}
		})
	}
}

func TestValidatePartsCoercion(t *testing.T) {
	m := testMatcher()

	v := ValidateParts([]PartRow{
		{RowNumber: 2, ProjectNumber: "254", PartDesignation: "B-1", QuantityRaw: "", LengthRaw: "12000", WeightTotalRaw: "oops"},
		{RowNumber: 3, ProjectNumber: "254", PartDesignation: "B-2", QuantityRaw: "4", AreaPerUnitRaw: "1,5"},
	}, m)

	if len(v.Importable) != 2 || len(v.Skipped) != 0 {
		t.Fatalf("expected 2 importable, got %+v / %+v", v.Importable, v.Skipped)
	}

	first := v.Importable[0]
	if first.Quantity != 1 {
		t.Fatalf("empty quantity should default to 1, got %d", first.Quantity)
	}
	if first.LengthMm == nil || *first.LengthMm != 12000 {
		t.Fatalf("length not coerced: %v", first.LengthMm)
	}
	if first.NetWeightTotal != nil {
		t.Fatalf("unparseable measure should be nil, got %v", *first.NetWeightTotal)
	}

	second := v.Importable[1]
	if second.Quantity != 4 {
		t.Fatalf("quantity = %d", second.Quantity)
	}
	if second.NetAreaPerUnit == nil || *second.NetAreaPerUnit != 1.5 {
		t.Fatalf("decimal comma not coerced: %v", second.NetAreaPerUnit)
	}

	if v.RowsByProject["254"] != 2 {
		t.Fatalf("rows by project = %v", v.RowsByProject)
	}
}

func fixedPartLookup(refs map[string]PartRef) PartLookup {
	return func(designation string) (PartRef, bool) {
		ref, ok := refs[designation]
		return ref, ok
	}
}

func TestValidateLogs(t *testing.T) {
	lookup := fixedPartLookup(map[string]PartRef{
		"B-1": {ID: 7, ProjectID: 1, ProjectNumber: "254", Quantity: 10},
	})

	v := ValidateLogs([]LogRow{
		{RowNumber: 2, PartDesignation: "B-1", ProcessRaw: "weld", ProcessedQtyRaw: "3", DateRaw: "Mon-07-Oct-2024"},
		{RowNumber: 3, PartDesignation: "B-1", ProcessRaw: "Painting"},
		{RowNumber: 4, PartDesignation: "", ProcessRaw: "Welding"},
		{RowNumber: 5, PartDesignation: "B-9", ProcessRaw: "Welding"},
		{RowNumber: 6, PartDesignation: "B-1", ProcessRaw: "Welding", DateRaw: "not a date"},
	}, lookup)

	if len(v.Importable) != 2 {
		t.Fatalf("expected 2 importable, got %+v", v.Importable)
	}

	first := v.Importable[0]
	if first.ProcessType != "Welding" {
		t.Fatalf("process not normalized: %q", first.ProcessType)
	}
	if first.ProjectNumber != "254" {
		t.Fatalf("project not resolved from part: %q", first.ProjectNumber)
	}
	if first.ProcessedQty != 3 {
		t.Fatalf("processedQty = %d", first.ProcessedQty)
	}
	want := time.Date(2024, time.October, 7, 0, 0, 0, 0, time.UTC)
	if !first.DateProcessed.Equal(want) {
		t.Fatalf("date = %v", first.DateProcessed)
	}

	second := v.Importable[1]
	if second.ProcessedQty != 1 {
		t.Fatalf("empty processedQty should default to 1, got %d", second.ProcessedQty)
	}
	if !second.DateProcessed.IsZero() {
		t.Fatalf("empty date should stay zero, got %v", second.DateProcessed)
	}

	if len(v.Skipped) != 3 {
		t.Fatalf("expected 3 skips, got %+v", v.Skipped)
	}
	reasons := map[int]internal.SkipReason{}
	for _, item := range v.Skipped {
		reasons[item.RowNumber] = item.Reason
	}
	if reasons[4] != internal.SkipMissingRequired {
		t.Errorf("row 4 reason = %q", reasons[4])
	}
	if reasons[5] != internal.SkipPartNotFound {
		t.Errorf("row 5 reason = %q", reasons[5])
	}
	if reasons[6] != internal.SkipInvalidDate {
		t.Errorf("row 6 reason = %q", reasons[6])
	}
}

func TestValidateIsPure(t *testing.T) {
	m := testMatcher()
	rows := []PartRow{
		{RowNumber: 2, ProjectNumber: "254", PartDesignation: "B-1", QuantityRaw: "4"},
		{RowNumber: 3, ProjectNumber: "999", PartDesignation: "B-2"},
	}

	first := ValidateParts(rows, m)
	second := ValidateParts(rows, m)

	if len(first.Importable) != len(second.Importable) || len(first.Skipped) != len(second.Skipped) {
		t.Fatalf("validation not stable: %+v vs %+v", first, second)
	}
	if rows[0].Quantity != 0 {
		t.Fatalf("validator mutated its input: %+v", rows[0])
	}
}
