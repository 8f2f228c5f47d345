package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"scbulk/internal/formatter"
	"scbulk/internal/models"
	"scbulk/internal/repositories"
	"scbulk/internal/shared"
	"scbulk/internal/tasks"
)

// LikesPurge unlikes tracks in bulk, either a given ID list or the user's
// liked tracks fetched from the library.
func (r *Runner) LikesPurge(ctx context.Context, cmd *cli.Command) error {
	idsArg := cmd.String("ids")
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	cred, err := r.requireCredential()
	if err != nil {
		return err
	}

	var ids []int64
	if idsArg != "" {
		if ids, err = parseIDList(idsArg); err != nil {
			return err
		}
	} else {
		r.logger.Info("fetching liked tracks")
		tracks, err := r.client.LikedTracks(ctx, cred, r.config.Limits.PageSize)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
		for _, t := range tracks {
			ids = append(ids, t.ID)
		}
	}

	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	if len(ids) == 0 {
		return r.writePlain("No liked tracks to remove\n")
	}

	r.writePlain("Removing %d likes...\n\n", len(ids))

	result, runErr := r.runBulk(ctx, ids, tasks.UnlikeTracks(r.client, cred), "unlike_tracks")
	if runErr != nil {
		return runErr
	}

	if useJSON {
		return r.writeJSON(result, pretty)
	}
	return r.writePlain("\n%s", formatter.BulkResultToText(result))
}

// FollowsPurge unfollows the given user IDs in bulk.
func (r *Runner) FollowsPurge(ctx context.Context, cmd *cli.Command) error {
	idsArg := cmd.String("ids")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	cred, err := r.requireCredential()
	if err != nil {
		return err
	}

	ids, err := parseIDList(idsArg)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: --ids is empty", shared.ErrMissingArgument)
	}

	r.writePlain("Unfollowing %d users...\n\n", len(ids))

	result, runErr := r.runBulk(ctx, ids, tasks.UnfollowUsers(r.client, cred), "unfollow_users")
	if runErr != nil {
		return runErr
	}

	if useJSON {
		return r.writeJSON(result, pretty)
	}
	return r.writePlain("\n%s", formatter.BulkResultToText(result))
}

// runBulk runs the bulk action with progress output and records the outcome.
// The partial result is persisted even when the run aborts early.
func (r *Runner) runBulk(ctx context.Context, ids []int64, action tasks.BulkAction, name string) (*models.BulkResult, error) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, runErr := r.bulk.Run(ctx, ids, action, progressCh)
	close(progressCh)

	if result != nil {
		r.recordBulkRun(name, result)
	}

	return result, runErr
}

// recordBulkRun persists the outcome to the history database, best-effort.
func (r *Runner) recordBulkRun(action string, result *models.BulkResult) {
	db, err := r.openDatabase()
	if err != nil {
		r.logger.Warn("history unavailable", "error", err)
		return
	}
	defer db.Close()

	run := models.NewBulkRun(0, action, *result)
	if err := repositories.NewBulkRunRepository(db).Create(run); err != nil {
		r.logger.Warn("failed to record bulk run", "error", err)
	}
}

// parseIDList parses a comma-separated list of numeric IDs.
func parseIDList(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid ID %q", shared.ErrInvalidArgument, part)
		}
		ids = append(ids, id)
	}

	return ids, nil
}
