package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/auraplay/backend/internal/gameday"
)

type QuestPruneJobArgs struct {
	KeepDays int `json:"keep_days"`
}

func (QuestPruneJobArgs) Kind() string { return "quest_prune" }

// QuestPruner deletes quest and reroll-budget rows for days strictly before
// the given day.
type QuestPruner interface {
	DeleteDaysBefore(ctx context.Context, day int64) (int64, error)
}

// QuestPruneWorker runs on a periodic schedule and drops quest rows old
// enough that no client can still display them. Ledger entries are never
// pruned.
type QuestPruneWorker struct {
	river.WorkerDefaults[QuestPruneJobArgs]
	pruner QuestPruner
	log    *slog.Logger
}

func NewQuestPruneWorker(pruner QuestPruner, log *slog.Logger) *QuestPruneWorker {
	if log == nil {
		log = slog.Default()
	}
	return &QuestPruneWorker{pruner: pruner, log: log}
}

func (w *QuestPruneWorker) Work(ctx context.Context, job *river.Job[QuestPruneJobArgs]) error {
	keep := job.Args.KeepDays
	if keep <= 0 {
		keep = 7
	}
	cutoff := gameday.Today() - int64(keep)
	n, err := w.pruner.DeleteDaysBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune quests before day %d: %w", cutoff, err)
	}
	if n > 0 {
		w.log.Info("pruned stale quests", "rows", n, "cutoff_day", cutoff)
	}
	return nil
}
