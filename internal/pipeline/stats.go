package pipeline

import (
	"math"

	"otsync/internal"
	"otsync/internal/util"
)

// BuildProjectStats reports per-project completion for the selected
// projects: synced counts from this batch against total source row counts
// from validation (before scoping). Reporting only; never gates
// correctness.
func BuildProjectStats(scope internal.SyncScope, m *Matcher, partTotals, logTotals map[string]int, tally map[string]*projectTally) []internal.ProjectSyncStats {
	out := make([]internal.ProjectSyncStats, 0, len(scope.Projects))

	for _, number := range scope.Projects {
		key := util.MatchKey(number)

		name := ""
		if p, ok := m.ProjectByNumber(number); ok {
			name = p.Name
			number = p.ProjectNumber
		}

		stats := internal.ProjectSyncStats{
			ProjectNumber: number,
			ProjectName:   name,
			TotalParts:    partTotals[key],
			TotalLogs:     logTotals[key],
		}
		if t, ok := tally[key]; ok {
			stats.SyncedParts = t.syncedParts
			stats.SyncedLogs = t.syncedLogs
		}

		total := stats.TotalParts + stats.TotalLogs
		if total < 1 {
			total = 1
		}
		stats.CompletionPercent = int(math.Round(100 * float64(stats.SyncedParts+stats.SyncedLogs) / float64(total)))

		out = append(out, stats)
	}

	return out
}
