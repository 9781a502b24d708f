package pipeline

import (
	"context"
	"fmt"
	"time"

	"otsync/internal"
	"otsync/internal/storage"
	"otsync/internal/util"
)

type projectTally struct {
	syncedParts int
	syncedLogs  int
}

// UpsertEngine converts in-scope rows into create-or-update writes against
// the target store. Natural keys: partDesignation (global) for parts,
// (assemblyPartId, processType) for logs. Each row is its own atomic write;
// a failing row is recorded and never aborts the rest of the batch.
type UpsertEngine struct {
	db      *storage.DB
	matcher *Matcher
	batchID int64
	scope   internal.SyncScope

	parts     map[string]*PartRef
	buildings map[string]int64
	tally     map[string]*projectTally
}

func NewUpsertEngine(db *storage.DB, m *Matcher, existing []internal.AssemblyPart, batchID int64, scope internal.SyncScope) *UpsertEngine {
	e := &UpsertEngine{
		db:        db,
		matcher:   m,
		batchID:   batchID,
		scope:     scope,
		parts:     make(map[string]*PartRef, len(existing)),
		buildings: map[string]int64{},
		tally:     map[string]*projectTally{},
	}

	projectNumberByID := map[int64]string{}
	for _, p := range existing {
		number := ""
		if n, ok := projectNumberByID[p.ProjectID]; ok {
			number = n
		} else if proj, ok := m.projectByID(p.ProjectID); ok {
			number = proj.ProjectNumber
			projectNumberByID[p.ProjectID] = number
		}
		e.parts[util.MatchKey(p.PartDesignation)] = &PartRef{
			ID:            p.ID,
			ProjectID:     p.ProjectID,
			ProjectNumber: number,
			Quantity:      p.Quantity,
		}
	}

	return e
}

// PartLookup exposes the live part cache, including parts created earlier
// in the same run.
func (e *UpsertEngine) PartLookup() PartLookup {
	return func(designation string) (PartRef, bool) {
		ref, ok := e.parts[util.MatchKey(designation)]
		if !ok {
			return PartRef{}, false
		}
		return *ref, true
	}
}

// PhaseResult is the accounting of one upsert phase. Rows split into four
// disjoint buckets: created, updated, skipped, errored.
type PhaseResult struct {
	Created int
	Updated int
	Skipped []internal.SkippedItem
	Errors  []string
	Aborted bool
}

// SyncParts runs the parts phase. Cancellation is cooperative: the row in
// flight finishes, the remainder is left unwritten, and the partial result
// is returned with Aborted set.
func (e *UpsertEngine) SyncParts(ctx context.Context, rows []PartRow) PhaseResult {
	var result PhaseResult

	for _, row := range rows {
		if ctx.Err() != nil {
			result.Aborted = true
			break
		}

		project, ok := e.matcher.ProjectByNumber(row.ProjectNumber)
		if !ok {
			result.Skipped = append(result.Skipped, skip(row.RowNumber, internal.KindPart, row.PartDesignation, row.ProjectNumber, internal.SkipProjectNotFound))
			continue
		}

		var buildingID *int64
		if row.BuildingDesignation != "" {
			id, ok, err := e.resolveBuilding(project, row)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: create building %s: %v", row.RowNumber, row.BuildingDesignation, err))
				continue
			}
			if !ok {
				result.Skipped = append(result.Skipped, skip(row.RowNumber, internal.KindPart, row.PartDesignation, row.ProjectNumber, internal.SkipBuildingNotFound))
				continue
			}
			buildingID = util.Int64Ptr(id)
		}

		part := internal.AssemblyPart{
			PartDesignation:  row.PartDesignation,
			AssemblyMark:     row.AssemblyMark,
			SubAssemblyMark:  optional(row.SubAssemblyMark),
			PartMark:         row.PartMark,
			Quantity:         row.Quantity,
			Name:             row.Name,
			Profile:          row.Profile,
			Grade:            optional(row.Grade),
			LengthMm:         row.LengthMm,
			NetAreaPerUnit:   row.NetAreaPerUnit,
			NetAreaTotal:     row.NetAreaTotal,
			SinglePartWeight: row.SinglePartWeight,
			NetWeightTotal:   row.NetWeightTotal,
			ProjectID:        project.ID,
			BuildingID:       buildingID,
			Status:           "Not Started",
			Source:           internal.SourcePTS,
			ExternalRef:      util.StringPtr(fmt.Sprintf("PTS-%d-%s", row.RowNumber, row.PartDesignation)),
			SyncBatchID:      util.Int64Ptr(e.batchID),
		}

		key := util.MatchKey(row.PartDesignation)
		if cached, ok := e.parts[key]; ok {
			part.ID = cached.ID
			if err := e.db.UpdateAssemblyPart(part); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: update part %s: %v", row.RowNumber, row.PartDesignation, err))
				continue
			}
			cached.ProjectID = project.ID
			cached.ProjectNumber = project.ProjectNumber
			cached.Quantity = row.Quantity
			result.Updated++
		} else {
			id, err := e.db.InsertAssemblyPart(part)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: create part %s: %v", row.RowNumber, row.PartDesignation, err))
				continue
			}
			e.parts[key] = &PartRef{
				ID:            id,
				ProjectID:     project.ID,
				ProjectNumber: project.ProjectNumber,
				Quantity:      row.Quantity,
			}
			result.Created++
		}

		e.bump(project.ProjectNumber).syncedParts++
	}

	return result
}

// SyncLogs runs the logs phase. A log whose part vanished between
// validation and write is converted to a skip, not an error.
func (e *UpsertEngine) SyncLogs(ctx context.Context, rows []LogRow) PhaseResult {
	var result PhaseResult

	for _, row := range rows {
		if ctx.Err() != nil {
			result.Aborted = true
			break
		}

		ref, ok := e.parts[util.MatchKey(row.PartDesignation)]
		if !ok {
			result.Skipped = append(result.Skipped, skip(row.RowNumber, internal.KindLog, row.PartDesignation, row.ProjectNumber, internal.SkipPartNotFound))
			continue
		}

		date := row.DateProcessed
		if date.IsZero() {
			date = time.Now().UTC()
		}

		remaining := ref.Quantity - row.ProcessedQty
		if remaining < 0 {
			remaining = 0
		}

		log := internal.ProductionLog{
			AssemblyPartID:     ref.ID,
			ProcessType:        row.ProcessType,
			DateProcessed:      date.Format("2006-01-02"),
			ProcessedQty:       row.ProcessedQty,
			RemainingQty:       remaining,
			ProcessingTeam:     optional(row.ProcessingTeam),
			ProcessingLocation: optional(row.ProcessingLocation),
			ReportNumber:       optional(row.ReportNumber),
			QCStatus:           "Not Required",
			Source:             internal.SourcePTS,
			ExternalRef:        util.StringPtr(fmt.Sprintf("PTS-%d-%s-%s", row.RowNumber, row.PartDesignation, row.ProcessType)),
			SyncBatchID:        util.Int64Ptr(e.batchID),
		}

		existing, err := e.db.GetProductionLog(ref.ID, row.ProcessType)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: look up log %s/%s: %v", row.RowNumber, row.PartDesignation, row.ProcessType, err))
			continue
		}

		if existing != nil {
			log.ID = existing.ID
			if err := e.db.UpdateProductionLog(log); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: update log %s/%s: %v", row.RowNumber, row.PartDesignation, row.ProcessType, err))
				continue
			}
			result.Updated++
		} else {
			if _, err := e.db.InsertProductionLog(log); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: create log %s/%s: %v", row.RowNumber, row.PartDesignation, row.ProcessType, err))
				continue
			}
			result.Created++
		}

		e.bump(ref.ProjectNumber).syncedLogs++
	}

	return result
}

// resolveBuilding finds the building for a row, creating it on first
// encounter when the scope opts in. Creation is de-duplicated per
// (project, designation) within the run.
func (e *UpsertEngine) resolveBuilding(project internal.Project, row PartRow) (int64, bool, error) {
	cacheKey := buildingMatchKey(project.ProjectNumber, row.BuildingDesignation)
	if id, ok := e.buildings[cacheKey]; ok {
		return id, true, nil
	}

	if b, ok := e.matcher.Building(project.ProjectNumber, row.BuildingDesignation); ok {
		e.buildings[cacheKey] = b.ID
		return b.ID, true, nil
	}

	if !e.scope.AutoCreateBuildings {
		return 0, false, nil
	}

	name := row.BuildingName
	if name == "" {
		name = row.BuildingDesignation
	}
	id, err := e.db.InsertBuilding(project.ID, row.BuildingDesignation, name)
	if err != nil {
		return 0, false, err
	}

	created := internal.Building{ID: id, ProjectID: project.ID, Designation: row.BuildingDesignation, Name: name}
	e.matcher.AddBuilding(project.ProjectNumber, created)
	e.buildings[cacheKey] = id
	return id, true, nil
}

func (e *UpsertEngine) bump(projectNumber string) *projectTally {
	key := util.MatchKey(projectNumber)
	t, ok := e.tally[key]
	if !ok {
		t = &projectTally{}
		e.tally[key] = t
	}
	return t
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return util.StringPtr(v)
}
