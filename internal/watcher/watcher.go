package watcher

import (
	"context"
	"fmt"
	"time"

	"otsync/internal/config"
	"otsync/internal/pipeline"
)

// Service re-runs a fixed sync scope on an interval so the target store
// tracks the PTS spreadsheet without manual triggering. Each cycle is a
// normal batch; a failing cycle is logged and the loop keeps going.
type Service struct {
	sync *pipeline.Service
	cfg  config.Config
	opts pipeline.SyncOptions
}

func NewService(syncService *pipeline.Service, cfg config.Config, opts pipeline.SyncOptions) *Service {
	return &Service{sync: syncService, cfg: cfg, opts: opts}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			fmt.Printf("watch cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.WatchIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	result, err := s.sync.Sync(ctx, s.opts)
	if err != nil {
		return err
	}

	fmt.Printf("watch cycle done batch=%d parts=+%d/~%d logs=+%d/~%d skipped=%d errors=%d aborted=%v\n",
		result.SyncBatchID, result.PartsCreated, result.PartsUpdated, result.LogsCreated, result.LogsUpdated,
		len(result.SkippedItems), len(result.Errors), result.Aborted)
	return nil
}
