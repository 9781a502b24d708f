package pipeline

import (
	"testing"

	"otsync/internal"
)

func TestFilterPartsByProjectAndBuilding(t *testing.T) {
	rows := []PartRow{
		{RowNumber: 2, ProjectNumber: "254", BuildingDesignation: "Z8T"},
		{RowNumber: 3, ProjectNumber: "254", BuildingDesignation: "Z9"},
		{RowNumber: 4, ProjectNumber: "254"},
		{RowNumber: 5, ProjectNumber: "301", BuildingDesignation: "Z8T"},
	}

	scope := internal.SyncScope{
		Projects:  []string{"254"},
		Buildings: []string{internal.BuildingKey("254", "z8t")},
	}
	got := FilterParts(rows, scope)

	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %+v", got)
	}
	if got[0].RowNumber != 2 {
		t.Fatalf("building-selected row missing: %+v", got)
	}
	if got[1].RowNumber != 4 {
		t.Fatalf("row without building should pass on project alone: %+v", got)
	}
}

func TestFilterPartsNoBuildingSelection(t *testing.T) {
	rows := []PartRow{
		{RowNumber: 2, ProjectNumber: "254", BuildingDesignation: "Z8T"},
		{RowNumber: 3, ProjectNumber: "254", BuildingDesignation: "Z9"},
	}

	got := FilterParts(rows, internal.SyncScope{Projects: []string{"254"}})
	if len(got) != 2 {
		t.Fatalf("empty building selection means all buildings, got %+v", got)
	}
}

func TestFilterLogsIgnoresBuildingSelection(t *testing.T) {
	rows := []LogRow{
		{RowNumber: 2, ProjectNumber: "254"},
		{RowNumber: 3, ProjectNumber: "301"},
	}

	scope := internal.SyncScope{
		Projects:  []string{"254"},
		Buildings: []string{internal.BuildingKey("254", "Z8T")},
	}
	got := FilterLogs(rows, scope)
	if len(got) != 1 || got[0].RowNumber != 2 {
		t.Fatalf("unexpected rows %+v", got)
	}
}

func TestFilterSkipsKeepsUnresolvedProjects(t *testing.T) {
	items := []internal.SkippedItem{
		{RowNumber: 2, ProjectNumber: "254", Reason: internal.SkipInvalidQuantity},
		{RowNumber: 3, ProjectNumber: "301", Reason: internal.SkipInvalidQuantity},
		{RowNumber: 4, ProjectNumber: "", Reason: internal.SkipMissingRequired},
		{RowNumber: 5, ProjectNumber: "999", Reason: internal.SkipProjectNotFound},
	}

	got := FilterSkips(items, internal.SyncScope{Projects: []string{"254"}})
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %+v", got)
	}
	if got[0].RowNumber != 2 || got[1].RowNumber != 4 || got[2].RowNumber != 5 {
		t.Fatalf("unexpected items %+v", got)
	}
}
