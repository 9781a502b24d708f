package pipeline

import (
	"otsync/internal"
	"otsync/internal/util"
)

type scopeSet struct {
	projects  map[string]struct{}
	buildings map[string]struct{}
}

func newScopeSet(scope internal.SyncScope) scopeSet {
	s := scopeSet{projects: map[string]struct{}{}, buildings: map[string]struct{}{}}
	for _, p := range scope.Projects {
		s.projects[util.MatchKey(p)] = struct{}{}
	}
	for _, b := range scope.Buildings {
		s.buildings[util.MatchKey(b)] = struct{}{}
	}
	return s
}

func (s scopeSet) projectSelected(projectNumber string) bool {
	_, ok := s.projects[util.MatchKey(projectNumber)]
	return ok
}

func (s scopeSet) buildingSelected(projectNumber, designation string) bool {
	if len(s.buildings) == 0 {
		return true
	}
	_, ok := s.buildings[util.MatchKey(internal.BuildingKey(projectNumber, designation))]
	return ok
}

// FilterParts restricts importable part rows to the selected projects and
// buildings. A row that declares no building passes on project selection
// alone; building selection only filters rows that name one.
func FilterParts(rows []PartRow, scope internal.SyncScope) []PartRow {
	sel := newScopeSet(scope)
	out := make([]PartRow, 0, len(rows))
	for _, row := range rows {
		if !sel.projectSelected(row.ProjectNumber) {
			continue
		}
		if row.BuildingDesignation != "" && !sel.buildingSelected(row.ProjectNumber, row.BuildingDesignation) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// FilterLogs restricts importable log rows to the selected projects. Logs
// carry no building reference, so building selection does not apply.
func FilterLogs(rows []LogRow, scope internal.SyncScope) []LogRow {
	sel := newScopeSet(scope)
	out := make([]LogRow, 0, len(rows))
	for _, row := range rows {
		if !sel.projectSelected(row.ProjectNumber) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// FilterSkips keeps the skipped items a caller scoped to the selected
// projects should see. Items with no resolvable project (missing data,
// unknown part, unknown project) are always kept: they are exactly the
// defects the operator needs to fix. Only skips attributed to a known but
// unselected project are dropped.
func FilterSkips(items []internal.SkippedItem, scope internal.SyncScope) []internal.SkippedItem {
	sel := newScopeSet(scope)
	out := make([]internal.SkippedItem, 0, len(items))
	for _, item := range items {
		if item.ProjectNumber == "" || item.Reason == internal.SkipProjectNotFound {
			out = append(out, item)
			continue
		}
		if !sel.projectSelected(item.ProjectNumber) {
			continue
		}
		out = append(out, item)
	}
	return out
}
