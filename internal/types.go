package internal

// EntityKind distinguishes the two row kinds imported from PTS.
type EntityKind string

const (
	KindPart EntityKind = "part"
	KindLog  EntityKind = "log"
)

// RecordSource marks provenance of a target-store record. PTS rows are
// reconciled by the sync engine; OTS rows are entered manually and are
// never touched by sync or rollback.
const (
	SourcePTS = "PTS"
	SourceOTS = "OTS"
)

// SourceRow is one spreadsheet row: the spreadsheet row number (header row
// is 1, first data row is 2) and raw cell values keyed by column header.
type SourceRow struct {
	RowNumber int
	Cells     map[string]string
}

// ColumnMapping maps canonical field names to source column headers.
// Supplied by the caller once per import session.
type ColumnMapping map[string]string

// Canonical field names for part (raw data) rows.
const (
	FieldProjectNumber       = "projectNumber"
	FieldPartDesignation     = "partDesignation"
	FieldAssemblyMark        = "assemblyMark"
	FieldSubAssemblyMark     = "subAssemblyMark"
	FieldPartMark            = "partMark"
	FieldQuantity            = "quantity"
	FieldName                = "name"
	FieldProfile             = "profile"
	FieldGrade               = "grade"
	FieldLengthMm            = "lengthMm"
	FieldNetAreaPerUnit      = "netAreaPerUnit"
	FieldNetAreaTotal        = "netAreaTotal"
	FieldSinglePartWeight    = "singlePartWeight"
	FieldNetWeightTotal      = "netWeightTotal"
	FieldBuildingDesignation = "buildingDesignation"
	FieldBuildingName        = "buildingName"
)

// Canonical field names for production-log rows.
const (
	FieldProcessType        = "processType"
	FieldProcessedQty       = "processedQty"
	FieldDateProcessed      = "dateProcessed"
	FieldProcessingLocation = "processingLocation"
	FieldProcessingTeam     = "processingTeam"
	FieldReportNumber       = "reportNumber"
)

type Project struct {
	ID            int64
	ProjectNumber string
	Name          string
}

type Building struct {
	ID          int64
	ProjectID   int64
	Designation string
	Name        string
}

type AssemblyPart struct {
	ID               int64
	PartDesignation  string
	AssemblyMark     string
	SubAssemblyMark  *string
	PartMark         string
	Quantity         int
	Name             string
	Profile          string
	Grade            *string
	LengthMm         *float64
	NetAreaPerUnit   *float64
	NetAreaTotal     *float64
	SinglePartWeight *float64
	NetWeightTotal   *float64
	ProjectID        int64
	BuildingID       *int64
	Status           string
	Source           string
	ExternalRef      *string
	SyncBatchID      *int64
}

type ProductionLog struct {
	ID                 int64
	AssemblyPartID     int64
	ProcessType        string
	DateProcessed      string
	ProcessedQty       int
	RemainingQty       int
	ProcessingTeam     *string
	ProcessingLocation *string
	ReportNumber       *string
	QCStatus           string
	Source             string
	ExternalRef        *string
	SyncBatchID        *int64
}

// SkipReason classifies an expected, per-row data defect. Skips are data,
// not errors; they are reported to the caller and never abort a batch.
type SkipReason string

const (
	SkipMissingRequired  SkipReason = "Missing required data"
	SkipProjectNotFound  SkipReason = "Project not found"
	SkipBuildingNotFound SkipReason = "Building not found"
	SkipPartNotFound     SkipReason = "Part not found"
	SkipInvalidDate      SkipReason = "Invalid date format"
	SkipInvalidQuantity  SkipReason = "Invalid quantity"
)

type SkippedItem struct {
	RowNumber     int        `json:"rowNumber"`
	Kind          EntityKind `json:"kind"`
	NaturalKey    string     `json:"naturalKey"`
	ProjectNumber string     `json:"projectNumber"`
	Reason        SkipReason `json:"reason"`
}

// SyncScope is the user-chosen subset of the source a sync run covers.
// Building keys are "projectNumber|designation" pairs; a row with no
// building reference passes on project selection alone.
type SyncScope struct {
	Projects            []string `json:"projects"`
	Buildings           []string `json:"buildings,omitempty"`
	Parts               bool     `json:"parts"`
	Logs                bool     `json:"logs"`
	AutoCreateBuildings bool     `json:"autoCreateBuildings"`
}

// BuildingKey builds the scope key for a (project, designation) pair.
func BuildingKey(projectNumber, designation string) string {
	return projectNumber + "|" + designation
}

type SyncBatch struct {
	ID           int64
	StartedAt    string
	CompletedAt  *string
	Scope        SyncScope
	PartsCreated int
	PartsUpdated int
	LogsCreated  int
	LogsUpdated  int
	SkippedItems []SkippedItem
	Errors       []string
	Aborted      bool
}

type ProjectMatch struct {
	Source string
	Target Project
}

type BuildingRef struct {
	ProjectNumber string
	Designation   string
	Name          string
}

type BuildingMatch struct {
	Source   BuildingRef
	TargetID int64
}

// SyncValidation is the read-only session report: what matched, what did
// not, and how much source data there is. Running it twice on unchanged
// input yields identical output.
type SyncValidation struct {
	MatchedProjects    []ProjectMatch
	UnmatchedProjects  []string
	MatchedBuildings   []BuildingMatch
	UnmatchedBuildings []BuildingRef
	PartRowCount       int
	LogRowCount        int
	NewPartCount       int
	ExistingPartCount  int
	PartRowsByProject  map[string]int
	LogRowsByProject   map[string]int
}

type ProjectSyncStats struct {
	ProjectNumber     string
	ProjectName       string
	TotalParts        int
	SyncedParts       int
	TotalLogs         int
	SyncedLogs        int
	CompletionPercent int
}

type SyncResult struct {
	Success      bool
	Aborted      bool
	PartsCreated int
	PartsUpdated int
	LogsCreated  int
	LogsUpdated  int
	SkippedItems []SkippedItem
	Errors       []string
	ProjectStats []ProjectSyncStats
	DurationMs   int64
	SyncBatchID  int64
}
