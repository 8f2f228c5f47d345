package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"scbulk/internal/models"
	"scbulk/internal/shared"
	"scbulk/internal/soundcloud"
)

// PlaylistAPI is the slice of the upstream client the merge engine consumes.
// The abstraction allows tests to supply deterministic fakes.
type PlaylistAPI interface {
	Playlist(ctx context.Context, cred *soundcloud.Credential, id int64) (*models.Playlist, error)
	PlaylistTracks(ctx context.Context, cred *soundcloud.Credential, id int64, pageSize int) ([]models.Track, error)
	CreatePlaylist(ctx context.Context, cred *soundcloud.Credential, title, sharing string, trackIDs []int64) (*models.Playlist, error)
	SetPlaylistTracks(ctx context.Context, cred *soundcloud.Credential, id int64, trackIDs []int64) error
}

// TargetRecorder observes each created target (idempotency key + playlist)
// before its batches are written, so callers can keep a record of playlists
// that exist upstream even when a later step fails. There is no automatic
// rollback of partially completed merges.
type TargetRecorder func(idempotencyKey string, playlist models.Playlist)

// MergeEngine merges source playlists into deduplicated targets.
type MergeEngine struct {
	api      PlaylistAPI
	limiter  *rate.Limiter
	logger   *log.Logger
	pageSize int
	sharing  string
	onTarget TargetRecorder
	now      func() time.Time
}

// MergeOpts contains configuration for a MergeEngine.
type MergeOpts struct {
	API            PlaylistAPI
	Logger         *log.Logger
	PageSize       int            // items per pagination request (default 50)
	RequestsPerSec float64        // pacing for upstream calls (default 2)
	Sharing        string         // sharing mode for created playlists (default private)
	OnTarget       TargetRecorder // optional
}

// NewMergeEngine creates a MergeEngine with the provided options.
func NewMergeEngine(opts MergeOpts) *MergeEngine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 2.0
	}
	if opts.Sharing == "" {
		opts.Sharing = "private"
	}

	return &MergeEngine{
		api:      opts.API,
		limiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
		logger:   opts.Logger,
		pageSize: opts.PageSize,
		sharing:  opts.Sharing,
		onTarget: opts.OnTarget,
		now:      time.Now,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *MergeEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// pace blocks until the limiter grants the next upstream call or ctx is done.
func (e *MergeEngine) pace(ctx context.Context) error {
	return e.limiter.Wait(ctx)
}

// Run merges the request's source playlists into one or more targets.
//
// Sources are fetched sequentially in caller order; accepted tracks are
// deduplicated first-occurrence-wins; targets are written in batches of at
// most [models.MaxWriteBatch] ids and split at [models.MaxPlaylistTracks].
// Any propagated error aborts the merge; targets already created are left in
// place.
func (e *MergeEngine) Run(ctx context.Context, cred *soundcloud.Credential, req models.MergeRequest, progress chan<- ProgressUpdate) (*models.MergeResult, error) {
	if e.api == nil {
		return nil, fmt.Errorf("%w: playlist API not initialized", shared.ErrInvalidConfig)
	}
	if len(req.SourceIDs) < models.MinMergeSources || len(req.SourceIDs) > models.MaxMergeSources {
		return nil, fmt.Errorf("%w: need %d..%d source playlists, got %d",
			shared.ErrInvalidInput, models.MinMergeSources, models.MaxMergeSources, len(req.SourceIDs))
	}

	stats := models.MergeStats{Verified: true}

	// Fetching sources. Order matters: first occurrence wins downstream.
	seen := make(map[int64]struct{})
	var unique []int64

	total := len(req.SourceIDs)
	for i, sourceID := range req.SourceIDs {
		e.sendProgress(progress, fetchSourceUpdate(i+1, total, sourceID))

		if err := e.pace(ctx); err != nil {
			return nil, err
		}

		tracks, err := e.api.PlaylistTracks(ctx, cred, sourceID, e.pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch source %d: %w", sourceID, err)
		}

		accepted := 0
		for _, track := range tracks {
			if !track.Playable() {
				continue
			}
			accepted++
			if _, dup := seen[track.ID]; dup {
				continue
			}
			seen[track.ID] = struct{}{}
			unique = append(unique, track.ID)
		}

		stats.Sources = append(stats.Sources, models.SourceStats{
			ID:       sourceID,
			Fetched:  len(tracks),
			Accepted: accepted,
		})
		e.sendProgress(progress, sourceFetchedUpdate(i+1, total, len(tracks), accepted))
	}

	stats.UniqueBeforeCap = len(unique)
	e.sendProgress(progress, dedupeUpdate(len(unique)))

	if len(unique) == 0 {
		return nil, fmt.Errorf("%w: no playable tracks to merge", shared.ErrInvalidInput)
	}

	title := req.Title
	if title == "" {
		title = fmt.Sprintf("Merged %s", e.now().Format("2006-01-02 15:04"))
	}

	chunks := chunkIDs(unique, models.MaxPlaylistTracks)
	targets := make([]models.Playlist, 0, len(chunks))

	for ci, chunk := range chunks {
		targetTitle := title
		if len(chunks) > 1 {
			targetTitle = fmt.Sprintf("%s (%d/%d)", title, ci+1, len(chunks))
		}

		pl, err := e.writeTarget(ctx, cred, targetTitle, chunk, ci+1, len(chunks), progress)
		if err != nil {
			return nil, err
		}

		written, verified := e.verifyTarget(ctx, cred, pl, len(chunk))
		if !verified {
			stats.Verified = false
		}
		e.sendProgress(progress, verifyUpdate(ci+1, len(chunks), verified))

		pl.TrackCount = written
		stats.TotalWritten += written
		targets = append(targets, *pl)
	}

	stats.CollectionsCreated = len(targets)

	result := &models.MergeResult{Stats: stats}
	if len(targets) == 1 {
		result.Collection = &targets[0]
	} else {
		result.Collections = targets
	}

	e.sendProgress(progress, mergeCompleteUpdate(result))
	return result, nil
}

// writeTarget creates one target playlist and extends it batch by batch with
// the cumulative id list until every id in the chunk is included.
func (e *MergeEngine) writeTarget(ctx context.Context, cred *soundcloud.Credential, title string, ids []int64, target, targets int, progress chan<- ProgressUpdate) (*models.Playlist, error) {
	first := min(models.MaxWriteBatch, len(ids))

	if err := e.pace(ctx); err != nil {
		return nil, err
	}

	pl, err := e.api.CreatePlaylist(ctx, cred, title, e.sharing, ids[:first])
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist %q: %w", title, err)
	}
	if e.onTarget != nil {
		e.onTarget(shared.GenerateID(), *pl)
	}

	e.sendProgress(progress, writeBatchUpdate(target, targets, first, len(ids)))

	for next := first; next < len(ids); next += models.MaxWriteBatch {
		end := min(next+models.MaxWriteBatch, len(ids))

		if err := e.pace(ctx); err != nil {
			return nil, err
		}

		if err := e.api.SetPlaylistTracks(ctx, cred, pl.ID, ids[:end]); err != nil {
			return nil, fmt.Errorf("failed to extend playlist %d: %w", pl.ID, err)
		}

		e.sendProgress(progress, writeBatchUpdate(target, targets, end, len(ids)))
	}

	e.sendProgress(progress, targetCreatedUpdate(target, targets, pl))
	return pl, nil
}

// verifyTarget re-fetches a finished target and returns the authoritative
// track count. When the re-fetch fails the locally computed count is trusted
// and the merge continues with verified=false rather than aborting.
func (e *MergeEngine) verifyTarget(ctx context.Context, cred *soundcloud.Credential, pl *models.Playlist, local int) (int, bool) {
	if err := e.pace(ctx); err != nil {
		return local, false
	}

	fetched, err := e.api.Playlist(ctx, cred, pl.ID)
	if err != nil {
		e.logger.Warn("post-write verification failed", "playlist", pl.ID, "err", err)
		return local, false
	}

	return fetched.TrackCount, true
}

// chunkIDs splits ids into consecutive chunks of at most size elements.
func chunkIDs(ids []int64, size int) [][]int64 {
	var chunks [][]int64
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
