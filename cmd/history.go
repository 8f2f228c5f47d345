package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"scbulk/internal/models"
	"scbulk/internal/repositories"
	"scbulk/internal/ui"
)

type mergeRunSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	SourceIDs []int64   `json:"source_ids"`
	TargetIDs []int64   `json:"target_ids"`
	Written   int       `json:"total_written"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type bulkRunSummary struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryList lists past merge and bulk operations from the history database.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	status := cmd.String("status")
	useJSON := cmd.Bool("json")

	db, err := r.openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	criteria := map[string]any{}
	if status != "" {
		criteria["status"] = status
	}

	mergeRuns, err := repositories.NewMergeRunRepository(db).List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list merge runs: %w", err)
	}

	bulkRuns, err := repositories.NewBulkRunRepository(db).List(map[string]any{})
	if err != nil {
		return fmt.Errorf("failed to list bulk runs: %w", err)
	}

	if useJSON {
		merges := make([]mergeRunSummary, 0, len(mergeRuns))
		for _, run := range mergeRuns {
			merges = append(merges, mergeRunSummary{
				ID:        run.ID(),
				Title:     run.Title(),
				SourceIDs: run.SourceIDs(),
				TargetIDs: run.TargetIDs(),
				Written:   run.Stats().TotalWritten,
				Status:    run.Status(),
				Error:     run.ErrMessage(),
				CreatedAt: run.CreatedAt(),
			})
		}
		bulks := make([]bulkRunSummary, 0, len(bulkRuns))
		for _, run := range bulkRuns {
			result := run.Result()
			ok, failed := result.Counts()
			bulks = append(bulks, bulkRunSummary{
				ID:        run.ID(),
				Action:    run.Action(),
				Total:     len(result.Results),
				Succeeded: ok,
				Failed:    failed,
				CreatedAt: run.CreatedAt(),
			})
		}
		return r.writeJSON(map[string]any{"merges": merges, "bulk": bulks}, true)
	}

	r.writePlainHeader("Merge History")
	if len(mergeRuns) == 0 {
		r.writePlain("No merge runs recorded\n")
	}
	for _, run := range mergeRuns {
		mark := ui.OK("✓")
		if run.Status() != models.RunStatusComplete {
			mark = ui.Err("✗")
		}
		r.writePlain("%s %s  %s\n", mark, run.CreatedAt().Format("2006-01-02 15:04"), run.Title())
		r.writePlain("   sources: %v → targets: %v (%d tracks)\n",
			run.SourceIDs(), run.TargetIDs(), run.Stats().TotalWritten)
		if run.ErrMessage() != "" {
			r.writePlain("   error: %s\n", run.ErrMessage())
		}
	}

	r.writePlain("\n")
	r.writePlainHeader("Bulk History")
	if len(bulkRuns) == 0 {
		r.writePlain("No bulk runs recorded\n")
	}
	for _, run := range bulkRuns {
		result := run.Result()
		ok, failed := result.Counts()
		r.writePlain("%s  %s: %d items, %d ok, %d failed\n",
			run.CreatedAt().Format("2006-01-02 15:04"), run.Action(), len(result.Results), ok, failed)
	}

	return nil
}
