package pipeline

import (
	"otsync/internal"
	"otsync/internal/util"
)

// Matcher resolves source identifiers against a snapshot of the target
// store. Project numbers match case-insensitively; building designations
// match case-insensitively within their matched project, with the building
// name accepted as a fallback. The matcher never writes.
type Matcher struct {
	projectsByNumber map[string]internal.Project
	projectsByID     map[int64]internal.Project
	buildingsByKey   map[string]internal.Building
	buildingsByName  map[string]internal.Building
}

func NewMatcher(projects []internal.Project, buildings []internal.Building) *Matcher {
	m := &Matcher{
		projectsByNumber: make(map[string]internal.Project, len(projects)),
		projectsByID:     make(map[int64]internal.Project, len(projects)),
		buildingsByKey:   make(map[string]internal.Building, len(buildings)),
		buildingsByName:  make(map[string]internal.Building, len(buildings)),
	}

	projectNumberByID := make(map[int64]string, len(projects))
	for _, p := range projects {
		m.projectsByNumber[util.MatchKey(p.ProjectNumber)] = p
		m.projectsByID[p.ID] = p
		projectNumberByID[p.ID] = p.ProjectNumber
	}

	for _, b := range buildings {
		projectNumber, ok := projectNumberByID[b.ProjectID]
		if !ok {
			continue
		}
		m.buildingsByKey[buildingMatchKey(projectNumber, b.Designation)] = b
		if b.Name != "" {
			m.buildingsByName[buildingMatchKey(projectNumber, b.Name)] = b
		}
	}

	return m
}

func buildingMatchKey(projectNumber, designation string) string {
	return util.MatchKey(projectNumber) + "|" + util.MatchKey(designation)
}

func (m *Matcher) ProjectByNumber(projectNumber string) (internal.Project, bool) {
	p, ok := m.projectsByNumber[util.MatchKey(projectNumber)]
	return p, ok
}

func (m *Matcher) projectByID(id int64) (internal.Project, bool) {
	p, ok := m.projectsByID[id]
	return p, ok
}

func (m *Matcher) Building(projectNumber, designation string) (internal.Building, bool) {
	if b, ok := m.buildingsByKey[buildingMatchKey(projectNumber, designation)]; ok {
		return b, true
	}
	b, ok := m.buildingsByName[buildingMatchKey(projectNumber, designation)]
	return b, ok
}

// AddBuilding registers a building created mid-run so later lookups reuse it.
func (m *Matcher) AddBuilding(projectNumber string, b internal.Building) {
	m.buildingsByKey[buildingMatchKey(projectNumber, b.Designation)] = b
	if b.Name != "" {
		m.buildingsByName[buildingMatchKey(projectNumber, b.Name)] = b
	}
}

func (m *Matcher) MatchProjects(src []string) (matched []internal.ProjectMatch, unmatched []string) {
	for _, number := range src {
		if p, ok := m.ProjectByNumber(number); ok {
			matched = append(matched, internal.ProjectMatch{Source: number, Target: p})
		} else {
			unmatched = append(unmatched, number)
		}
	}
	return matched, unmatched
}

func (m *Matcher) MatchBuildings(src []internal.BuildingRef) (matched []internal.BuildingMatch, unmatched []internal.BuildingRef) {
	for _, ref := range src {
		if _, ok := m.ProjectByNumber(ref.ProjectNumber); !ok {
			continue // unmatched project already reported; its buildings are moot
		}
		if b, ok := m.Building(ref.ProjectNumber, ref.Designation); ok {
			matched = append(matched, internal.BuildingMatch{Source: ref, TargetID: b.ID})
		} else if ref.Name != "" {
			if b, ok := m.Building(ref.ProjectNumber, ref.Name); ok {
				matched = append(matched, internal.BuildingMatch{Source: ref, TargetID: b.ID})
			} else {
				unmatched = append(unmatched, ref)
			}
		} else {
			unmatched = append(unmatched, ref)
		}
	}
	return matched, unmatched
}

// DistinctProjects extracts the distinct source project numbers from mapped
// part rows, in first-seen order.
func DistinctProjects(rows []PartRow) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, row := range rows {
		if row.ProjectNumber == "" {
			continue
		}
		key := util.MatchKey(row.ProjectNumber)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row.ProjectNumber)
	}
	return out
}

// DistinctBuildings extracts the distinct (project, designation) pairs from
// mapped part rows, in first-seen order.
func DistinctBuildings(rows []PartRow) []internal.BuildingRef {
	seen := map[string]struct{}{}
	var out []internal.BuildingRef
	for _, row := range rows {
		if row.ProjectNumber == "" || row.BuildingDesignation == "" {
			continue
		}
		key := buildingMatchKey(row.ProjectNumber, row.BuildingDesignation)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		name := row.BuildingName
		if name == "" {
			name = row.BuildingDesignation
		}
		out = append(out, internal.BuildingRef{
			ProjectNumber: row.ProjectNumber,
			Designation:   row.BuildingDesignation,
			Name:          name,
		})
	}
	return out
}
