package storage

import (
	"path/filepath"
	"testing"

	"otsync/internal"
	"otsync/internal/util"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ots.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPartLookupIsCaseInsensitive(t *testing.T) {
	db := openTestDB(t)

	projectID, err := db.InsertProject("254", "Warehouse")
	if err != nil {
		t.Fatalf("insert project: %v", err)
	}

	_, err = db.InsertAssemblyPart(internal.AssemblyPart{
		PartDesignation: "B-1001a",
		Quantity:        4,
		ProjectID:       projectID,
		Status:          "Not Started",
		Source:          internal.SourcePTS,
	})
	if err != nil {
		t.Fatalf("insert part: %v", err)
	}

	part, err := db.GetAssemblyPartByDesignation("b-1001A")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if part == nil {
		t.Fatal("expected part, got nil")
	}
	if part.PartDesignation != "B-1001a" {
		t.Fatalf("unexpected designation %q", part.PartDesignation)
	}

	missing, err := db.GetAssemblyPartByDesignation("no-such-part")
	if err != nil {
		t.Fatalf("lookup missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing part, got %+v", missing)
	}
}

func TestGetProductionLogNoRows(t *testing.T) {
	db := openTestDB(t)

	log, err := db.GetProductionLog(42, "Cut")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if log != nil {
		t.Fatalf("expected nil, got %+v", log)
	}
}

func TestDeletePTSByProjectLeavesOTS(t *testing.T) {
	db := openTestDB(t)

	projectID, err := db.InsertProject("254", "")
	if err != nil {
		t.Fatalf("insert project: %v", err)
	}

	ptsPart, err := db.InsertAssemblyPart(internal.AssemblyPart{
		PartDesignation: "B-1", Quantity: 1, ProjectID: projectID,
		Status: "Not Started", Source: internal.SourcePTS,
	})
	if err != nil {
		t.Fatalf("insert pts part: %v", err)
	}
	otsPart, err := db.InsertAssemblyPart(internal.AssemblyPart{
		PartDesignation: "B-2", Quantity: 1, ProjectID: projectID,
		Status: "Not Started", Source: internal.SourceOTS,
	})
	if err != nil {
		t.Fatalf("insert ots part: %v", err)
	}

	for partID, source := range map[int64]string{ptsPart: internal.SourcePTS, otsPart: internal.SourceOTS} {
		_, err := db.InsertProductionLog(internal.ProductionLog{
			AssemblyPartID: partID, ProcessType: "Cut", DateProcessed: "2024-10-07",
			ProcessedQty: 1, QCStatus: "Not Required", Source: source,
		})
		if err != nil {
			t.Fatalf("insert log: %v", err)
		}
	}

	partsDeleted, logsDeleted, err := db.DeletePTSByProject(projectID)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if partsDeleted != 1 || logsDeleted != 1 {
		t.Fatalf("expected 1/1 deleted, got %d/%d", partsDeleted, logsDeleted)
	}

	survivor, err := db.GetAssemblyPartByDesignation("B-2")
	if err != nil || survivor == nil {
		t.Fatalf("ots part should survive: part=%v err=%v", survivor, err)
	}
	logs, err := db.ListProductionLogsByPart(otsPart)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("ots log should survive, got %d logs", len(logs))
	}

	// Second rollback of the same project is a no-op.
	partsDeleted, logsDeleted, err = db.DeletePTSByProject(projectID)
	if err != nil {
		t.Fatalf("repeat rollback: %v", err)
	}
	if partsDeleted != 0 || logsDeleted != 0 {
		t.Fatalf("expected 0/0 on clean project, got %d/%d", partsDeleted, logsDeleted)
	}
}

func TestSyncBatchRoundTrip(t *testing.T) {
	db := openTestDB(t)

	scope := internal.SyncScope{Projects: []string{"254"}, Parts: true, Logs: true}
	id, err := db.CreateSyncBatch(scope)
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}

	batch := internal.SyncBatch{
		ID:           id,
		Scope:        scope,
		PartsCreated: 3,
		LogsUpdated:  1,
		SkippedItems: []internal.SkippedItem{
			{RowNumber: 7, Kind: internal.KindPart, NaturalKey: "B-9", ProjectNumber: "254", Reason: internal.SkipProjectNotFound},
		},
		Errors:  []string{"row 9: boom"},
		Aborted: true,
	}
	if err := db.FinalizeSyncBatch(batch); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	got, err := db.GetSyncBatch(id)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if got == nil {
		t.Fatal("expected batch, got nil")
	}
	if got.CompletedAt == nil {
		t.Fatal("expected completedAt to be set")
	}
	if got.PartsCreated != 3 || got.LogsUpdated != 1 || !got.Aborted {
		t.Fatalf("unexpected counters: %+v", got)
	}
	if len(got.Scope.Projects) != 1 || got.Scope.Projects[0] != "254" {
		t.Fatalf("scope not persisted: %+v", got.Scope)
	}
	if len(got.SkippedItems) != 1 || got.SkippedItems[0].Reason != internal.SkipProjectNotFound {
		t.Fatalf("skips not persisted: %+v", got.SkippedItems)
	}
	if len(got.Errors) != 1 {
		t.Fatalf("errors not persisted: %+v", got.Errors)
	}

	batches, err := db.ListSyncBatches(10)
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(batches) != 1 || batches[0].ID != id {
		t.Fatalf("unexpected batch list: %+v", batches)
	}
}

func TestMetadataUpsert(t *testing.T) {
	db := openTestDB(t)

	if err := db.SetMetadata("mapping.parts", `{"quantity":"Qty"}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.SetMetadata("mapping.parts", `{"quantity":"Quantity"}`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	value, err := db.GetMetadata("mapping.parts")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value == nil || *value != `{"quantity":"Quantity"}` {
		t.Fatalf("unexpected value %v", value)
	}

	missing, err := db.GetMetadata("mapping.logs")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil, got %q", *missing)
	}
}

func TestBuildingUniquePerProject(t *testing.T) {
	db := openTestDB(t)

	p1, _ := db.InsertProject("254", "")
	p2, _ := db.InsertProject("301", "")

	if _, err := db.InsertBuilding(p1, "Z8T", "Main Hall"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := db.InsertBuilding(p2, "Z8T", "Other Hall"); err != nil {
		t.Fatalf("same designation under another project should insert: %v", err)
	}
	if _, err := db.InsertBuilding(p1, "z8t", "Duplicate"); err == nil {
		t.Fatal("expected unique violation for duplicate designation")
	}
}

func TestUpdateAssemblyPart(t *testing.T) {
	db := openTestDB(t)

	projectID, _ := db.InsertProject("254", "")
	id, err := db.InsertAssemblyPart(internal.AssemblyPart{
		PartDesignation: "B-1", Quantity: 2, ProjectID: projectID,
		Status: "Not Started", Source: internal.SourcePTS,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	err = db.UpdateAssemblyPart(internal.AssemblyPart{
		ID: id, PartDesignation: "B-1", Quantity: 6, Name: "Beam",
		LengthMm: util.FloatPtr(12000), ProjectID: projectID,
		Status: "Not Started", Source: internal.SourcePTS,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	part, err := db.GetAssemblyPartByDesignation("B-1")
	if err != nil || part == nil {
		t.Fatalf("lookup: part=%v err=%v", part, err)
	}
	if part.Quantity != 6 || part.Name != "Beam" {
		t.Fatalf("update not applied: %+v", part)
	}
	if part.LengthMm == nil || *part.LengthMm != 12000 {
		t.Fatalf("length not applied: %v", part.LengthMm)
	}
}
