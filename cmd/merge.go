package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"scbulk/internal/formatter"
	"scbulk/internal/models"
	"scbulk/internal/repositories"
	"scbulk/internal/shared"
	"scbulk/internal/soundcloud"
	"scbulk/internal/tasks"
	"scbulk/internal/ui"
)

// Merge merges 2-10 source playlists into one or more deduplicated targets.
func (r *Runner) Merge(ctx context.Context, cmd *cli.Command) error {
	refs := cmd.StringSlice("playlist")
	title := cmd.String("title")
	sharing := cmd.String("sharing")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")
	csvPath := cmd.String("csv")

	if len(refs) < models.MinMergeSources || len(refs) > models.MaxMergeSources {
		return fmt.Errorf("%w: between %d and %d --playlist values required, got %d",
			shared.ErrInvalidArgument, models.MinMergeSources, models.MaxMergeSources, len(refs))
	}

	cred, err := r.requireCredential()
	if err != nil {
		return err
	}

	sourceIDs, err := r.resolvePlaylistRefs(ctx, cred, refs)
	if err != nil {
		return err
	}

	r.logger.Info("starting merge", "sources", len(sourceIDs), "title", title)
	r.writePlain("Merging %d playlists...\n\n", len(sourceIDs))

	var targets []models.Playlist
	var targetIDs []int64
	var keys []string

	engine := tasks.NewMergeEngine(tasks.MergeOpts{
		API:            r.client,
		Logger:         r.logger,
		PageSize:       r.config.Limits.PageSize,
		RequestsPerSec: r.config.Limits.RequestsPerSec,
		Sharing:        sharing,
		OnTarget: func(key string, pl models.Playlist) {
			keys = append(keys, key)
			targets = append(targets, pl)
			targetIDs = append(targetIDs, pl.ID)
		},
	})

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSources:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.Deduplicate:
				r.writePlain("\n🔄 %s\n\n", update.Message)
			case tasks.WriteBatches:
				r.writePlain("📝 %s\n", update.Message)
			case tasks.Verify:
				r.writePlain("🔍 %s\n", update.Message)
			}
		}
	}()

	result, runErr := engine.Run(ctx, cred, models.MergeRequest{SourceIDs: sourceIDs, Title: title}, progressCh)
	close(progressCh)

	r.recordMergeRun(historyTitle(title, targets), sourceIDs, targetIDs, keys, result, runErr)

	if runErr != nil {
		if len(targetIDs) > 0 {
			r.writePlain("%s Merge failed after creating %d playlist(s); they were left in place\n",
				ui.Warn("⚠"), len(targetIDs))
		}
		return runErr
	}

	if csvPath != "" {
		data, err := formatter.MergeResultToCSV(result)
		if err != nil {
			return err
		}
		if err := os.WriteFile(csvPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write CSV: %w", err)
		}
		r.logger.Info("CSV report written", "path", csvPath)
	}

	if useJSON {
		return r.writeJSON(result, pretty)
	}

	r.writePlain("\n")
	r.writePlainHeader("Merge Complete!")
	return r.writePlain("%s", formatter.MergeResultToText(result))
}

// resolvePlaylistRefs maps each --playlist value to a playlist ID. Values are
// either numeric IDs or permalink URLs resolved through the cache.
func (r *Runner) resolvePlaylistRefs(ctx context.Context, cred *soundcloud.Credential, refs []string) ([]int64, error) {
	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
			ids = append(ids, id)
			continue
		}

		res, err := r.resolver.Resolve(ctx, cred, ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", shared.ErrResolveFailed, ref, err)
		}
		if res.Kind != "playlist" || res.Playlist == nil {
			return nil, fmt.Errorf("%w: %s is a %s, not a playlist", shared.ErrInvalidArgument, ref, res.Kind)
		}
		ids = append(ids, res.Playlist.ID)
	}

	return ids, nil
}

// historyTitle returns the title to record for a merge run: the explicit
// --title when one was given, otherwise the name the first created playlist
// actually received upstream (the engine defaults to a timestamped title).
func historyTitle(flag string, created []models.Playlist) string {
	if flag != "" {
		return flag
	}
	if len(created) > 0 {
		return created[0].Title
	}
	return ""
}

// recordMergeRun persists the outcome to the history database. History is
// best-effort; failures are logged and never fail the merge itself.
func (r *Runner) recordMergeRun(title string, sourceIDs, targetIDs []int64, keys []string, result *models.MergeResult, runErr error) {
	db, err := r.openDatabase()
	if err != nil {
		r.logger.Warn("history unavailable", "error", err)
		return
	}
	defer db.Close()

	status := models.RunStatusComplete
	errMessage := ""
	var stats models.MergeStats
	if result != nil {
		stats = result.Stats
	}
	if runErr != nil {
		status = models.RunStatusFailed
		errMessage = runErr.Error()
	}

	run := models.NewMergeRun(0, title, sourceIDs, targetIDs, keys, stats, status, errMessage)
	if err := repositories.NewMergeRunRepository(db).Create(run); err != nil {
		r.logger.Warn("failed to record merge run", "error", err)
	}
}
