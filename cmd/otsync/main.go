package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"otsync/internal"
	"otsync/internal/config"
	"otsync/internal/pipeline"
	"otsync/internal/source"
	"otsync/internal/storage"
	"otsync/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "validate":
		svc := pipeline.NewService(db, makeSource(cfg), cfg)
		validation, err := svc.Validate(context.Background(), loadMappings(db, cfg))
		must(err)
		printValidation(validation)
	case "preview":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		kind := fs.String("kind", "parts", "parts|logs")
		limit := fs.Int("limit", 10, "rows to preview")
		_ = fs.Parse(os.Args[2:])
		mp := loadMappings(db, cfg)
		mapping, entityKind := mp.Parts, internal.KindPart
		if *kind == "logs" {
			mapping, entityKind = mp.Logs, internal.KindLog
		}
		svc := pipeline.NewService(db, makeSource(cfg), cfg)
		rows, err := svc.Preview(context.Background(), entityKind, mapping, *limit)
		must(err)
		for _, row := range rows {
			blob, _ := json.Marshal(row.Fields)
			fmt.Printf("row %d: %s\n", row.RowNumber, blob)
		}
	case "sync":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc := pipeline.NewService(db, makeSource(cfg), cfg)
		mp := loadMappings(db, cfg)
		opts := parseSyncOptions(ctx, cmd, os.Args[2:], svc, mp)

		result, err := svc.Sync(ctx, opts)
		must(err)
		printResult(result)
		cacheMappings(db, mp)
	case "watch":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc := pipeline.NewService(db, makeSource(cfg), cfg)
		mp := loadMappings(db, cfg)
		opts := parseSyncOptions(ctx, cmd, os.Args[2:], svc, mp)

		fmt.Printf("watching every %ds, Ctrl+C to stop\n", cfg.WatchIntervalSec)
		must(watcher.NewService(svc, cfg, opts).Run(ctx))
	case "rollback":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		project := fs.String("project", "", "project number")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*project) == "" {
			must(fmt.Errorf("--project is required"))
		}
		svc := pipeline.NewService(db, makeSource(cfg), cfg)
		partsDeleted, logsDeleted, err := svc.Rollback(context.Background(), *project)
		must(err)
		fmt.Printf("rollback done project=%s partsDeleted=%d logsDeleted=%d\n", *project, partsDeleted, logsDeleted)
	case "sync:batches":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "batches to list")
		_ = fs.Parse(os.Args[2:])
		batches, err := db.ListSyncBatches(*limit)
		must(err)
		for _, b := range batches {
			completed := ""
			if b.CompletedAt != nil {
				completed = *b.CompletedAt
			}
			fmt.Printf("batch %d started=%s completed=%s parts=+%d/~%d logs=+%d/~%d skipped=%d errors=%d aborted=%v\n",
				b.ID, b.StartedAt, completed, b.PartsCreated, b.PartsUpdated, b.LogsCreated, b.LogsUpdated,
				len(b.SkippedItems), len(b.Errors), b.Aborted)
		}
	case "export:report":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		batchID := fs.Int64("batch", 0, "sync batch id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *batchID == 0 {
			must(fmt.Errorf("--batch is required"))
		}
		path := strings.TrimSpace(*out)
		if path == "" {
			path = filepath.Join(cfg.ReportDir, fmt.Sprintf("sync-batch-%d.xlsx", *batchID))
		}
		batch, err := db.GetSyncBatch(*batchID)
		must(err)
		if batch == nil {
			must(fmt.Errorf("sync batch not found: %d", *batchID))
		}
		must(pipeline.ExportBatchReport(*batch, path))
		fmt.Printf("exported batch %d report to %s\n", *batchID, path)
	case "project:add":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		number := fs.String("number", "", "project number")
		name := fs.String("name", "", "project name")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*number) == "" {
			must(fmt.Errorf("--number is required"))
		}
		id, err := db.InsertProject(*number, *name)
		must(err)
		fmt.Printf("project added id=%d number=%s\n", id, *number)
	default:
		usage()
		os.Exit(1)
	}
}

func parseSyncOptions(ctx context.Context, cmd string, args []string, svc *pipeline.Service, mp pipeline.Mappings) pipeline.SyncOptions {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	projects := fs.String("projects", "", "comma-separated project numbers")
	allProjects := fs.Bool("all-projects", false, "sync every matched project")
	buildings := fs.String("buildings", "", "comma-separated project|designation keys")
	parts := fs.Bool("parts", true, "sync assembly parts")
	logs := fs.Bool("logs", true, "sync production logs")
	autoCreate := fs.Bool("auto-create-buildings", false, "create unmatched buildings")
	_ = fs.Parse(args)

	selected := splitList(*projects)
	if *allProjects {
		validation, err := svc.Validate(ctx, mp)
		must(err)
		selected = selected[:0]
		for _, match := range validation.MatchedProjects {
			selected = append(selected, match.Target.ProjectNumber)
		}
	}
	if len(selected) == 0 {
		must(fmt.Errorf("--projects or --all-projects is required"))
	}

	return pipeline.SyncOptions{
		Scope: internal.SyncScope{
			Projects:            selected,
			Buildings:           splitList(*buildings),
			Parts:               *parts,
			Logs:                *logs,
			AutoCreateBuildings: *autoCreate,
		},
		Mappings: mp,
	}
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func makeSource(cfg config.Config) source.RowSource {
	switch strings.ToLower(strings.TrimSpace(cfg.SourceKind)) {
	case "sheets":
		src, err := source.NewSheetsSource(cfg)
		must(err)
		return src
	default:
		return source.NewXLSXSource(cfg.XLSXPath)
	}
}

// loadMappings resolves the column mappings for this session: an explicit
// mapping file wins, then the mapping cached from the last run, then the
// default PTS layout.
func loadMappings(db *storage.DB, cfg config.Config) pipeline.Mappings {
	return pipeline.Mappings{
		Parts: loadMapping(db, cfg.PartsMappingPath, "mapping.parts", pipeline.DefaultPartsMapping()),
		Logs:  loadMapping(db, cfg.LogsMappingPath, "mapping.logs", pipeline.DefaultLogsMapping()),
	}
}

func loadMapping(db *storage.DB, path, cacheKey string, fallback internal.ColumnMapping) internal.ColumnMapping {
	if path != "" {
		blob, err := os.ReadFile(path)
		must(err)
		var mapping internal.ColumnMapping
		must(json.Unmarshal(blob, &mapping))
		return mapping
	}
	if cached, err := db.GetMetadata(cacheKey); err == nil && cached != nil {
		var mapping internal.ColumnMapping
		if json.Unmarshal([]byte(*cached), &mapping) == nil && len(mapping) > 0 {
			return mapping
		}
	}
	return fallback
}

func cacheMappings(db *storage.DB, mp pipeline.Mappings) {
	if blob, err := json.Marshal(mp.Parts); err == nil {
		_ = db.SetMetadata("mapping.parts", string(blob))
	}
	if blob, err := json.Marshal(mp.Logs); err == nil {
		_ = db.SetMetadata("mapping.logs", string(blob))
	}
}

func printValidation(v *internal.SyncValidation) {
	fmt.Printf("source rows: parts=%d logs=%d (parts new=%d existing=%d)\n",
		v.PartRowCount, v.LogRowCount, v.NewPartCount, v.ExistingPartCount)
	fmt.Printf("projects: matched=%d unmatched=%d\n", len(v.MatchedProjects), len(v.UnmatchedProjects))
	for _, m := range v.MatchedProjects {
		fmt.Printf("  %s -> #%d %s\n", m.Source, m.Target.ID, m.Target.Name)
	}
	for _, p := range v.UnmatchedProjects {
		fmt.Printf("  %s -> NOT FOUND\n", p)
	}
	fmt.Printf("buildings: matched=%d unmatched=%d\n", len(v.MatchedBuildings), len(v.UnmatchedBuildings))
	for _, b := range v.UnmatchedBuildings {
		fmt.Printf("  %s/%s (%s) -> NOT FOUND\n", b.ProjectNumber, b.Designation, b.Name)
	}
}

func printResult(r *internal.SyncResult) {
	fmt.Printf("sync %s batch=%d duration=%dms\n", statusWord(r), r.SyncBatchID, r.DurationMs)
	fmt.Printf("  parts: created=%d updated=%d\n", r.PartsCreated, r.PartsUpdated)
	fmt.Printf("  logs:  created=%d updated=%d\n", r.LogsCreated, r.LogsUpdated)
	for _, item := range r.SkippedItems {
		fmt.Printf("  skipped row %d [%s] %s: %s\n", item.RowNumber, item.Kind, item.NaturalKey, item.Reason)
	}
	for _, msg := range r.Errors {
		fmt.Printf("  error: %s\n", msg)
	}
	for _, stats := range r.ProjectStats {
		fmt.Printf("  project %s: parts %d/%d logs %d/%d (%d%%)\n",
			stats.ProjectNumber, stats.SyncedParts, stats.TotalParts,
			stats.SyncedLogs, stats.TotalLogs, stats.CompletionPercent)
	}
}

func statusWord(r *internal.SyncResult) string {
	switch {
	case r.Aborted:
		return "aborted"
	case r.Success:
		return "ok"
	default:
		return "completed with errors"
	}
}

func usage() {
	fmt.Println("usage: otsync <command>")
	fmt.Println("commands:")
	fmt.Println("  validate")
	fmt.Println("  preview --kind=parts|logs --limit=10")
	fmt.Println("  sync --projects=254,301 [--all-projects] [--buildings=254|Z8T] [--parts] [--logs] [--auto-create-buildings]")
	fmt.Println("  watch (same flags as sync, re-runs on SYNC_WATCH_INTERVAL_SEC)")
	fmt.Println("  rollback --project=254")
	fmt.Println("  sync:batches --limit=20")
	fmt.Println("  export:report --batch=1 [--out=./out/report.xlsx]")
	fmt.Println("  project:add --number=254 --name=...")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
