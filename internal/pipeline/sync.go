package pipeline

import (
	"context"
	"fmt"
	"time"

	"otsync/internal"
	"otsync/internal/config"
	"otsync/internal/source"
	"otsync/internal/storage"
	"otsync/internal/util"
)

// Service orchestrates the reconciliation pipeline: validate, scope, upsert
// parts, upsert logs, track the batch, report stats.
type Service struct {
	db  *storage.DB
	src source.RowSource
	cfg config.Config
}

func NewService(db *storage.DB, src source.RowSource, cfg config.Config) *Service {
	return &Service{db: db, src: src, cfg: cfg}
}

// Mappings holds the caller-supplied column mappings for the two row kinds.
type Mappings struct {
	Parts internal.ColumnMapping
	Logs  internal.ColumnMapping
}

// SyncOptions selects what a sync run covers.
type SyncOptions struct {
	Scope    internal.SyncScope
	Mappings Mappings
}

type snapshot struct {
	projects  []internal.Project
	buildings []internal.Building
	parts     []internal.AssemblyPart
}

func (s *Service) loadSnapshot() (*snapshot, error) {
	projects, err := s.db.ListProjects()
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	buildings, err := s.db.ListBuildings()
	if err != nil {
		return nil, fmt.Errorf("load buildings: %w", err)
	}
	parts, err := s.db.ListAssemblyParts()
	if err != nil {
		return nil, fmt.Errorf("load assembly parts: %w", err)
	}
	return &snapshot{projects: projects, buildings: buildings, parts: parts}, nil
}

func snapshotPartLookup(snap *snapshot, m *Matcher) PartLookup {
	refs := make(map[string]PartRef, len(snap.parts))
	for _, p := range snap.parts {
		number := ""
		if proj, ok := m.projectByID(p.ProjectID); ok {
			number = proj.ProjectNumber
		}
		refs[util.MatchKey(p.PartDesignation)] = PartRef{
			ID:            p.ID,
			ProjectID:     p.ProjectID,
			ProjectNumber: number,
			Quantity:      p.Quantity,
		}
	}
	return func(designation string) (PartRef, bool) {
		ref, ok := refs[util.MatchKey(designation)]
		return ref, ok
	}
}

// Validate compares the source dataset against the target store without
// writing anything. Safe to re-run; identical input yields identical
// output.
func (s *Service) Validate(ctx context.Context, mp Mappings) (*internal.SyncValidation, error) {
	partRows, logRows, err := s.fetchMappedRows(ctx, mp, true, true)
	if err != nil {
		return nil, err
	}

	snap, err := s.loadSnapshot()
	if err != nil {
		return nil, err
	}
	m := NewMatcher(snap.projects, snap.buildings)

	matchedProjects, unmatchedProjects := m.MatchProjects(DistinctProjects(partRows))
	matchedBuildings, unmatchedBuildings := m.MatchBuildings(DistinctBuildings(partRows))

	partValidation := ValidateParts(partRows, m)
	logValidation := ValidateLogs(logRows, snapshotPartLookup(snap, m))

	existingByDesignation := make(map[string]struct{}, len(snap.parts))
	for _, p := range snap.parts {
		existingByDesignation[util.MatchKey(p.PartDesignation)] = struct{}{}
	}
	newParts, existingParts := 0, 0
	seen := map[string]struct{}{}
	for _, row := range partRows {
		if row.PartDesignation == "" {
			continue
		}
		key := util.MatchKey(row.PartDesignation)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := existingByDesignation[key]; ok {
			existingParts++
		} else {
			newParts++
		}
	}

	return &internal.SyncValidation{
		MatchedProjects:    matchedProjects,
		UnmatchedProjects:  unmatchedProjects,
		MatchedBuildings:   matchedBuildings,
		UnmatchedBuildings: unmatchedBuildings,
		PartRowCount:       len(partRows),
		LogRowCount:        len(logRows),
		NewPartCount:       newParts,
		ExistingPartCount:  existingParts,
		PartRowsByProject:  partValidation.RowsByProject,
		LogRowsByProject:   logValidation.RowsByProject,
	}, nil
}

// Sync runs one import batch: parts phase first, then logs, each
// independently cancellable. Row-level defects become skips or recorded
// errors; only conditions that prevent starting the batch at all are
// returned as an error.
func (s *Service) Sync(ctx context.Context, opts SyncOptions) (*internal.SyncResult, error) {
	if len(opts.Scope.Projects) == 0 {
		return nil, fmt.Errorf("empty project selection")
	}
	if !opts.Scope.Parts && !opts.Scope.Logs {
		return nil, fmt.Errorf("no entity kind selected")
	}

	start := time.Now()

	partRows, logRows, err := s.fetchMappedRows(ctx, opts.Mappings, opts.Scope.Parts, opts.Scope.Logs)
	if err != nil {
		return nil, err
	}

	snap, err := s.loadSnapshot()
	if err != nil {
		return nil, err
	}
	m := NewMatcher(snap.projects, snap.buildings)

	batchID, err := s.db.CreateSyncBatch(opts.Scope)
	if err != nil {
		return nil, fmt.Errorf("create sync batch: %w", err)
	}

	engine := NewUpsertEngine(s.db, m, snap.parts, batchID, opts.Scope)

	batch := internal.SyncBatch{ID: batchID, Scope: opts.Scope}
	partTotals := map[string]int{}
	logTotals := map[string]int{}

	if opts.Scope.Parts {
		fmt.Printf("[pts-sync] parts phase: %d source rows\n", len(partRows))
		validation := ValidateParts(partRows, m)
		partTotals = validation.RowsByProject
		batch.SkippedItems = append(batch.SkippedItems, FilterSkips(validation.Skipped, opts.Scope)...)

		phase := engine.SyncParts(ctx, FilterParts(validation.Importable, opts.Scope))
		batch.PartsCreated = phase.Created
		batch.PartsUpdated = phase.Updated
		batch.SkippedItems = append(batch.SkippedItems, phase.Skipped...)
		batch.Errors = append(batch.Errors, phase.Errors...)
		batch.Aborted = batch.Aborted || phase.Aborted
	}

	if opts.Scope.Logs && !batch.Aborted {
		fmt.Printf("[pts-sync] logs phase: %d source rows\n", len(logRows))
		validation := ValidateLogs(logRows, engine.PartLookup())
		logTotals = validation.RowsByProject
		batch.SkippedItems = append(batch.SkippedItems, FilterSkips(validation.Skipped, opts.Scope)...)

		phase := engine.SyncLogs(ctx, FilterLogs(validation.Importable, opts.Scope))
		batch.LogsCreated = phase.Created
		batch.LogsUpdated = phase.Updated
		batch.SkippedItems = append(batch.SkippedItems, phase.Skipped...)
		batch.Errors = append(batch.Errors, phase.Errors...)
		batch.Aborted = batch.Aborted || phase.Aborted
	}

	if err := s.db.FinalizeSyncBatch(batch); err != nil {
		return nil, fmt.Errorf("finalize sync batch: %w", err)
	}

	result := &internal.SyncResult{
		Success:      len(batch.Errors) == 0,
		Aborted:      batch.Aborted,
		PartsCreated: batch.PartsCreated,
		PartsUpdated: batch.PartsUpdated,
		LogsCreated:  batch.LogsCreated,
		LogsUpdated:  batch.LogsUpdated,
		SkippedItems: batch.SkippedItems,
		Errors:       batch.Errors,
		ProjectStats: BuildProjectStats(opts.Scope, m, partTotals, logTotals, engine.tally),
		DurationMs:   time.Since(start).Milliseconds(),
		SyncBatchID:  batchID,
	}

	fmt.Printf("[pts-sync] batch %d done: parts +%d/~%d logs +%d/~%d skipped=%d errors=%d aborted=%v\n",
		batchID, result.PartsCreated, result.PartsUpdated, result.LogsCreated, result.LogsUpdated,
		len(result.SkippedItems), len(result.Errors), result.Aborted)

	return result, nil
}

// Preview maps the first limit rows of one kind for user inspection. Read
// only; no validation, no writes.
func (s *Service) Preview(ctx context.Context, kind internal.EntityKind, mapping internal.ColumnMapping, limit int) ([]MappedPreview, error) {
	sheet := s.cfg.RawDataSheet
	if kind == internal.KindLog {
		sheet = s.cfg.LogSheet
	}
	rows, err := s.src.FetchRows(ctx, sheet)
	if err != nil {
		return nil, err
	}
	return PreviewRows(rows, mapping, limit), nil
}

// Rollback deletes everything PTS ever wrote under a project, across all
// prior batches. OTS records survive. Idempotent: a clean project yields
// zero counts.
func (s *Service) Rollback(ctx context.Context, projectNumber string) (partsDeleted, logsDeleted int64, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	project, err := s.db.MustProjectByNumber(projectNumber)
	if err != nil {
		return 0, 0, err
	}
	partsDeleted, logsDeleted, err = s.db.DeletePTSByProject(project.ID)
	if err != nil {
		return 0, 0, err
	}
	fmt.Printf("[pts-sync] rollback %s: parts=%d logs=%d\n", projectNumber, partsDeleted, logsDeleted)
	return partsDeleted, logsDeleted, nil
}

func (s *Service) fetchMappedRows(ctx context.Context, mp Mappings, wantParts, wantLogs bool) ([]PartRow, []LogRow, error) {
	var partRows []PartRow
	var logRows []LogRow

	if wantParts {
		rows, err := s.src.FetchRows(ctx, s.cfg.RawDataSheet)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch raw data: %w", err)
		}
		mapping := mp.Parts
		if mapping == nil {
			mapping = DefaultPartsMapping()
		}
		partRows = MapPartRows(rows, mapping)
	}

	if wantLogs {
		rows, err := s.src.FetchRows(ctx, s.cfg.LogSheet)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch logs: %w", err)
		}
		mapping := mp.Logs
		if mapping == nil {
			mapping = DefaultLogsMapping()
		}
		logRows = MapLogRows(rows, mapping)
	}

	return partRows, logRows, nil
}
