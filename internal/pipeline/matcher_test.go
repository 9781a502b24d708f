package pipeline

import (
	"testing"

	"otsync/internal"
)

func testMatcher() *Matcher {
	projects := []internal.Project{
		{ID: 1, ProjectNumber: "254", Name: "Warehouse"},
		{ID: 2, ProjectNumber: "301", Name: "Bridge"},
	}
	buildings := []internal.Building{
		{ID: 10, ProjectID: 1, Designation: "Z8T", Name: "Main Hall"},
		{ID: 11, ProjectID: 2, Designation: "Z8T", Name: "North Span"},
	}
	return NewMatcher(projects, buildings)
}

func TestProjectMatchIsCaseInsensitive(t *testing.T) {
	m := testMatcher()

	matched, unmatched := m.MatchProjects([]string{"254", " 301 ", "999"})
	if len(matched) != 2 {
		t.Fatalf("expected 2 matched, got %d", len(matched))
	}
	if matched[0].Target.ID != 1 || matched[1].Target.ID != 2 {
		t.Fatalf("unexpected targets %+v", matched)
	}
	if len(unmatched) != 1 || unmatched[0] != "999" {
		t.Fatalf("unexpected unmatched %v", unmatched)
	}
}

func TestBuildingMatchScopedToProject(t *testing.T) {
	m := testMatcher()

	b, ok := m.Building("254", "z8t")
	if !ok || b.ID != 10 {
		t.Fatalf("expected building 10, got %+v ok=%v", b, ok)
	}
	b, ok = m.Building("301", "Z8T")
	if !ok || b.ID != 11 {
		t.Fatalf("same designation under project 301 should hit building 11, got %+v", b)
	}
	if _, ok := m.Building("254", "ZZZ"); ok {
		t.Fatal("unknown designation should not match")
	}
}

func TestBuildingNameFallback(t *testing.T) {
	m := testMatcher()

	b, ok := m.Building("254", "main hall")
	if !ok || b.ID != 10 {
		t.Fatalf("name fallback failed: %+v ok=%v", b, ok)
	}
}

func TestMatchBuildingsSkipsUnmatchedProjects(t *testing.T) {
	m := testMatcher()

	refs := []internal.BuildingRef{
		{ProjectNumber: "254", Designation: "Z8T"},
		{ProjectNumber: "254", Designation: "NEW", Name: "Annex"},
		{ProjectNumber: "999", Designation: "Z8T"},
	}
	matched, unmatched := m.MatchBuildings(refs)
	if len(matched) != 1 || matched[0].TargetID != 10 {
		t.Fatalf("unexpected matched %+v", matched)
	}
	if len(unmatched) != 1 || unmatched[0].Designation != "NEW" {
		t.Fatalf("unexpected unmatched %+v", unmatched)
	}
}

func TestAddBuildingVisibleToLaterLookups(t *testing.T) {
	m := testMatcher()

	m.AddBuilding("254", internal.Building{ID: 20, ProjectID: 1, Designation: "NEW", Name: "Annex"})
	if b, ok := m.Building("254", "new"); !ok || b.ID != 20 {
		t.Fatalf("created building not found: %+v ok=%v", b, ok)
	}
	if b, ok := m.Building("254", "annex"); !ok || b.ID != 20 {
		t.Fatalf("created building name not found: %+v ok=%v", b, ok)
	}
}

func TestDistinctProjectsAndBuildings(t *testing.T) {
	rows := []PartRow{
		{ProjectNumber: "254", BuildingDesignation: "Z8T", BuildingName: "Main Hall"},
		{ProjectNumber: "254", BuildingDesignation: "z8t"},
		{ProjectNumber: "301"},
		{ProjectNumber: ""},
		{ProjectNumber: "254", BuildingDesignation: "Z9"},
	}

	projects := DistinctProjects(rows)
	if len(projects) != 2 || projects[0] != "254" || projects[1] != "301" {
		t.Fatalf("unexpected projects %v", projects)
	}

	buildings := DistinctBuildings(rows)
	if len(buildings) != 2 {
		t.Fatalf("expected 2 buildings, got %+v", buildings)
	}
	if buildings[0].Designation != "Z8T" || buildings[0].Name != "Main Hall" {
		t.Fatalf("unexpected first building %+v", buildings[0])
	}
	if buildings[1].Designation != "Z9" || buildings[1].Name != "Z9" {
		t.Fatalf("name should default to designation: %+v", buildings[1])
	}
}
