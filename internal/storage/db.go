package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"otsync/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL; PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS projects (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  projectNumber TEXT NOT NULL COLLATE NOCASE UNIQUE,
  name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS buildings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  projectId INTEGER NOT NULL,
  designation TEXT NOT NULL COLLATE NOCASE,
  name TEXT NOT NULL DEFAULT '',
  UNIQUE(projectId, designation),
  FOREIGN KEY(projectId) REFERENCES projects(id)
);

CREATE TABLE IF NOT EXISTS assembly_parts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  partDesignation TEXT NOT NULL COLLATE NOCASE UNIQUE,
  assemblyMark TEXT NOT NULL DEFAULT '',
  subAssemblyMark TEXT,
  partMark TEXT NOT NULL DEFAULT '',
  quantity INTEGER NOT NULL DEFAULT 1,
  name TEXT NOT NULL DEFAULT '',
  profile TEXT NOT NULL DEFAULT '',
  grade TEXT,
  lengthMm REAL,
  netAreaPerUnit REAL,
  netAreaTotal REAL,
  singlePartWeight REAL,
  netWeightTotal REAL,
  projectId INTEGER NOT NULL,
  buildingId INTEGER,
  status TEXT NOT NULL DEFAULT 'Not Started',
  source TEXT NOT NULL DEFAULT 'OTS',
  externalRef TEXT,
  syncBatchId INTEGER,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(projectId) REFERENCES projects(id),
  FOREIGN KEY(buildingId) REFERENCES buildings(id)
);
CREATE INDEX IF NOT EXISTS idx_parts_project ON assembly_parts(projectId);
CREATE INDEX IF NOT EXISTS idx_parts_source ON assembly_parts(source);

CREATE TABLE IF NOT EXISTS production_logs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  assemblyPartId INTEGER NOT NULL,
  processType TEXT NOT NULL,
  dateProcessed TEXT NOT NULL,
  processedQty INTEGER NOT NULL DEFAULT 1,
  remainingQty INTEGER NOT NULL DEFAULT 0,
  processingTeam TEXT,
  processingLocation TEXT,
  reportNumber TEXT,
  qcStatus TEXT NOT NULL DEFAULT 'Not Required',
  source TEXT NOT NULL DEFAULT 'OTS',
  externalRef TEXT,
  syncBatchId INTEGER,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(assemblyPartId, processType),
  FOREIGN KEY(assemblyPartId) REFERENCES assembly_parts(id)
);
CREATE INDEX IF NOT EXISTS idx_logs_source ON production_logs(source);

CREATE TABLE IF NOT EXISTS sync_batches (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  startedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  completedAt TEXT,
  scopeJson TEXT NOT NULL,
  partsCreated INTEGER NOT NULL DEFAULT 0,
  partsUpdated INTEGER NOT NULL DEFAULT 0,
  logsCreated INTEGER NOT NULL DEFAULT 0,
  logsUpdated INTEGER NOT NULL DEFAULT 0,
  skippedJson TEXT NOT NULL DEFAULT '[]',
  errorsJson TEXT NOT NULL DEFAULT '[]',
  aborted INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) ListProjects() ([]internal.Project, error) {
	rows, err := d.conn.Query(`SELECT id, projectNumber, name FROM projects ORDER BY projectNumber`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Project
	for rows.Next() {
		var p internal.Project
		if err := rows.Scan(&p.ID, &p.ProjectNumber, &p.Name); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) GetProjectByNumber(projectNumber string) (*internal.Project, error) {
	var p internal.Project
	err := d.conn.QueryRow(`SELECT id, projectNumber, name FROM projects WHERE projectNumber = ?`, projectNumber).
		Scan(&p.ID, &p.ProjectNumber, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *DB) InsertProject(projectNumber, name string) (int64, error) {
	result, err := d.conn.Exec(`INSERT INTO projects (projectNumber, name) VALUES (?, ?)`, projectNumber, name)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) ListBuildings() ([]internal.Building, error) {
	rows, err := d.conn.Query(`SELECT id, projectId, designation, name FROM buildings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Building
	for rows.Next() {
		var b internal.Building
		if err := rows.Scan(&b.ID, &b.ProjectID, &b.Designation, &b.Name); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (d *DB) InsertBuilding(projectID int64, designation, name string) (int64, error) {
	result, err := d.conn.Exec(`INSERT INTO buildings (projectId, designation, name) VALUES (?, ?, ?)`, projectID, designation, name)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) ListAssemblyParts() ([]internal.AssemblyPart, error) {
	rows, err := d.conn.Query(`
SELECT id, partDesignation, assemblyMark, subAssemblyMark, partMark, quantity,
       name, profile, grade, lengthMm, netAreaPerUnit, netAreaTotal,
       singlePartWeight, netWeightTotal, projectId, buildingId, status,
       source, externalRef, syncBatchId
FROM assembly_parts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.AssemblyPart
	for rows.Next() {
		var p internal.AssemblyPart
		if err := scanPart(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) GetAssemblyPartByDesignation(partDesignation string) (*internal.AssemblyPart, error) {
	row := d.conn.QueryRow(`
SELECT id, partDesignation, assemblyMark, subAssemblyMark, partMark, quantity,
       name, profile, grade, lengthMm, netAreaPerUnit, netAreaTotal,
       singlePartWeight, netWeightTotal, projectId, buildingId, status,
       source, externalRef, syncBatchId
FROM assembly_parts WHERE partDesignation = ?`, partDesignation)

	var p internal.AssemblyPart
	err := scanPart(row, &p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPart(row rowScanner, p *internal.AssemblyPart) error {
	return row.Scan(
		&p.ID, &p.PartDesignation, &p.AssemblyMark, &p.SubAssemblyMark, &p.PartMark, &p.Quantity,
		&p.Name, &p.Profile, &p.Grade, &p.LengthMm, &p.NetAreaPerUnit, &p.NetAreaTotal,
		&p.SinglePartWeight, &p.NetWeightTotal, &p.ProjectID, &p.BuildingID, &p.Status,
		&p.Source, &p.ExternalRef, &p.SyncBatchID,
	)
}

func (d *DB) InsertAssemblyPart(p internal.AssemblyPart) (int64, error) {
	result, err := d.conn.Exec(`
INSERT INTO assembly_parts (
  partDesignation, assemblyMark, subAssemblyMark, partMark, quantity,
  name, profile, grade, lengthMm, netAreaPerUnit, netAreaTotal,
  singlePartWeight, netWeightTotal, projectId, buildingId, status,
  source, externalRef, syncBatchId
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.PartDesignation, p.AssemblyMark, p.SubAssemblyMark, p.PartMark, p.Quantity,
		p.Name, p.Profile, p.Grade, p.LengthMm, p.NetAreaPerUnit, p.NetAreaTotal,
		p.SinglePartWeight, p.NetWeightTotal, p.ProjectID, p.BuildingID, p.Status,
		p.Source, p.ExternalRef, p.SyncBatchID,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// UpdateAssemblyPart rewrites the mutable fields of an existing part. The
// natural key and creation metadata stay untouched.
func (d *DB) UpdateAssemblyPart(p internal.AssemblyPart) error {
	_, err := d.conn.Exec(`
UPDATE assembly_parts SET
  assemblyMark = ?, subAssemblyMark = ?, partMark = ?, quantity = ?,
  name = ?, profile = ?, grade = ?, lengthMm = ?, netAreaPerUnit = ?,
  netAreaTotal = ?, singlePartWeight = ?, netWeightTotal = ?,
  projectId = ?, buildingId = ?, source = ?, externalRef = ?, syncBatchId = ?,
  updatedAt = CURRENT_TIMESTAMP
WHERE id = ?`,
		p.AssemblyMark, p.SubAssemblyMark, p.PartMark, p.Quantity,
		p.Name, p.Profile, p.Grade, p.LengthMm, p.NetAreaPerUnit,
		p.NetAreaTotal, p.SinglePartWeight, p.NetWeightTotal,
		p.ProjectID, p.BuildingID, p.Source, p.ExternalRef, p.SyncBatchID,
		p.ID,
	)
	return err
}

func (d *DB) GetProductionLog(assemblyPartID int64, processType string) (*internal.ProductionLog, error) {
	var l internal.ProductionLog
	err := d.conn.QueryRow(`
SELECT id, assemblyPartId, processType, dateProcessed, processedQty, remainingQty,
       processingTeam, processingLocation, reportNumber, qcStatus, source, externalRef, syncBatchId
FROM production_logs WHERE assemblyPartId = ? AND processType = ?`, assemblyPartID, processType).
		Scan(&l.ID, &l.AssemblyPartID, &l.ProcessType, &l.DateProcessed, &l.ProcessedQty, &l.RemainingQty,
			&l.ProcessingTeam, &l.ProcessingLocation, &l.ReportNumber, &l.QCStatus, &l.Source, &l.ExternalRef, &l.SyncBatchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (d *DB) ListProductionLogsByPart(assemblyPartID int64) ([]internal.ProductionLog, error) {
	rows, err := d.conn.Query(`
SELECT id, assemblyPartId, processType, dateProcessed, processedQty, remainingQty,
       processingTeam, processingLocation, reportNumber, qcStatus, source, externalRef, syncBatchId
FROM production_logs WHERE assemblyPartId = ? ORDER BY processType`, assemblyPartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ProductionLog
	for rows.Next() {
		var l internal.ProductionLog
		if err := rows.Scan(&l.ID, &l.AssemblyPartID, &l.ProcessType, &l.DateProcessed, &l.ProcessedQty, &l.RemainingQty,
			&l.ProcessingTeam, &l.ProcessingLocation, &l.ReportNumber, &l.QCStatus, &l.Source, &l.ExternalRef, &l.SyncBatchID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (d *DB) InsertProductionLog(l internal.ProductionLog) (int64, error) {
	result, err := d.conn.Exec(`
INSERT INTO production_logs (
  assemblyPartId, processType, dateProcessed, processedQty, remainingQty,
  processingTeam, processingLocation, reportNumber, qcStatus, source, externalRef, syncBatchId
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.AssemblyPartID, l.ProcessType, l.DateProcessed, l.ProcessedQty, l.RemainingQty,
		l.ProcessingTeam, l.ProcessingLocation, l.ReportNumber, l.QCStatus, l.Source, l.ExternalRef, l.SyncBatchID,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) UpdateProductionLog(l internal.ProductionLog) error {
	_, err := d.conn.Exec(`
UPDATE production_logs SET
  dateProcessed = ?, processedQty = ?, remainingQty = ?,
  processingTeam = ?, processingLocation = ?, reportNumber = ?,
  source = ?, externalRef = ?, syncBatchId = ?, updatedAt = CURRENT_TIMESTAMP
WHERE id = ?`,
		l.DateProcessed, l.ProcessedQty, l.RemainingQty,
		l.ProcessingTeam, l.ProcessingLocation, l.ReportNumber,
		l.Source, l.ExternalRef, l.SyncBatchID,
		l.ID,
	)
	return err
}

// DeletePTSByProject removes everything the sync engine ever wrote under a
// project, logs before parts to satisfy the foreign key. Manually entered
// OTS records are untouched. Deleting from an already clean project is a
// no-op, not an error.
func (d *DB) DeletePTSByProject(projectID int64) (partsDeleted, logsDeleted int64, err error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	logsResult, err := tx.Exec(`
DELETE FROM production_logs
WHERE source = ?
  AND assemblyPartId IN (SELECT id FROM assembly_parts WHERE projectId = ?)`,
		internal.SourcePTS, projectID)
	if err != nil {
		return 0, 0, err
	}
	logsDeleted, _ = logsResult.RowsAffected()

	partsResult, err := tx.Exec(`DELETE FROM assembly_parts WHERE source = ? AND projectId = ?`,
		internal.SourcePTS, projectID)
	if err != nil {
		return 0, 0, err
	}
	partsDeleted, _ = partsResult.RowsAffected()

	return partsDeleted, logsDeleted, tx.Commit()
}

func (d *DB) CreateSyncBatch(scope internal.SyncScope) (int64, error) {
	scopeJSON, _ := json.Marshal(scope)
	result, err := d.conn.Exec(`INSERT INTO sync_batches (scopeJson) VALUES (?)`, string(scopeJSON))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) FinalizeSyncBatch(batch internal.SyncBatch) error {
	skippedJSON, _ := json.Marshal(batch.SkippedItems)
	errorsJSON, _ := json.Marshal(batch.Errors)
	_, err := d.conn.Exec(`
UPDATE sync_batches SET
  completedAt = CURRENT_TIMESTAMP,
  partsCreated = ?, partsUpdated = ?, logsCreated = ?, logsUpdated = ?,
  skippedJson = ?, errorsJson = ?, aborted = ?
WHERE id = ?`,
		batch.PartsCreated, batch.PartsUpdated, batch.LogsCreated, batch.LogsUpdated,
		string(skippedJSON), string(errorsJSON), boolToInt(batch.Aborted),
		batch.ID,
	)
	return err
}

func (d *DB) GetSyncBatch(id int64) (*internal.SyncBatch, error) {
	row := d.conn.QueryRow(`
SELECT id, startedAt, completedAt, scopeJson, partsCreated, partsUpdated,
       logsCreated, logsUpdated, skippedJson, errorsJson, aborted
FROM sync_batches WHERE id = ?`, id)

	batch, err := scanSyncBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (d *DB) ListSyncBatches(limit int) ([]internal.SyncBatch, error) {
	rows, err := d.conn.Query(`
SELECT id, startedAt, completedAt, scopeJson, partsCreated, partsUpdated,
       logsCreated, logsUpdated, skippedJson, errorsJson, aborted
FROM sync_batches ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SyncBatch
	for rows.Next() {
		batch, err := scanSyncBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *batch)
	}
	return out, rows.Err()
}

func scanSyncBatch(row rowScanner) (*internal.SyncBatch, error) {
	var b internal.SyncBatch
	var scopeJSON, skippedJSON, errorsJSON string
	var aborted int
	if err := row.Scan(&b.ID, &b.StartedAt, &b.CompletedAt, &scopeJSON, &b.PartsCreated, &b.PartsUpdated,
		&b.LogsCreated, &b.LogsUpdated, &skippedJSON, &errorsJSON, &aborted); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(scopeJSON), &b.Scope)
	_ = json.Unmarshal([]byte(skippedJSON), &b.SkippedItems)
	_ = json.Unmarshal([]byte(errorsJSON), &b.Errors)
	b.Aborted = aborted != 0
	return &b, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (d *DB) MustProjectByNumber(projectNumber string) (internal.Project, error) {
	project, err := d.GetProjectByNumber(projectNumber)
	if err != nil {
		return internal.Project{}, err
	}
	if project == nil {
		return internal.Project{}, fmt.Errorf("project not found: %s", projectNumber)
	}
	return *project, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
