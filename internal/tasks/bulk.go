package tasks

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"scbulk/internal/models"
	"scbulk/internal/shared"
	"scbulk/internal/soundcloud"
)

// BulkAction applies one idempotent mutating action to a single id.
type BulkAction func(ctx context.Context, id int64) error

// LibraryAPI is the slice of the upstream client the prebuilt bulk actions
// consume.
type LibraryAPI interface {
	UnlikeTrack(ctx context.Context, cred *soundcloud.Credential, trackID int64) error
	UnfollowUser(ctx context.Context, cred *soundcloud.Credential, userID int64) error
}

// BulkRunner applies one action across many ids without letting an individual
// failure stop the batch.
type BulkRunner struct {
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewBulkRunner creates a BulkRunner paced at requestsPerSec (default 2).
func NewBulkRunner(requestsPerSec float64, logger *log.Logger) *BulkRunner {
	if requestsPerSec <= 0 {
		requestsPerSec = 2.0
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &BulkRunner{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		logger:  logger,
	}
}

// Run invokes action for each id strictly sequentially, in input order.
//
// A per-item failure is recorded and iteration continues; the returned result
// has one entry per attempted id. Authentication errors and context
// cancellation are session-wide conditions: they abort the run, recording an
// error entry for the id that hit the condition and returning the partial
// result alongside the error.
func (r *BulkRunner) Run(ctx context.Context, ids []int64, action BulkAction, progress chan<- ProgressUpdate) (*models.BulkResult, error) {
	result := &models.BulkResult{Results: make([]models.BulkItemResult, 0, len(ids))}

	for i, id := range ids {
		if err := r.limiter.Wait(ctx); err != nil {
			return result, err
		}

		err := action(ctx, id)
		if err != nil {
			var authErr *soundcloud.AuthError
			if errors.As(err, &authErr) ||
				errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				// Session-wide condition: record the id that hit it, then
				// abort with the entries collected so far.
				result.Results = append(result.Results, models.BulkItemResult{
					ID:     id,
					Status: models.BulkStatusError,
					Error:  err.Error(),
				})
				return result, err
			}

			r.logger.Warn("bulk item failed", "id", id, "err", err)
			result.Results = append(result.Results, models.BulkItemResult{
				ID:     id,
				Status: models.BulkStatusError,
				Error:  err.Error(),
			})
			r.sendProgress(progress, bulkItemUpdate(i+1, len(ids), id, err))
			continue
		}

		result.Results = append(result.Results, models.BulkItemResult{
			ID:     id,
			Status: models.BulkStatusOK,
		})
		r.sendProgress(progress, bulkItemUpdate(i+1, len(ids), id, nil))
	}

	return result, nil
}

func (r *BulkRunner) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// UnlikeTracks builds a BulkAction that removes likes through the client.
func UnlikeTracks(api LibraryAPI, cred *soundcloud.Credential) BulkAction {
	return func(ctx context.Context, id int64) error {
		return api.UnlikeTrack(ctx, cred, id)
	}
}

// UnfollowUsers builds a BulkAction that removes followings through the client.
func UnfollowUsers(api LibraryAPI, cred *soundcloud.Credential) BulkAction {
	return func(ctx context.Context, id int64) error {
		return api.UnfollowUser(ctx, cred, id)
	}
}
