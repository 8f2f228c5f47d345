// package models defines the data model for the scbulk service
package models

import (
	"time"
)

// Model defines the base interface for all persistent models in the scbulk service.
// Implementations include MergeRun and BulkRun.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Track represents a SoundCloud track.
//
// Immutable once fetched; callers select and filter tracks but never mutate them.
type Track struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	PermalinkURL  string `json:"permalink_url"`
	Streamable    bool   `json:"streamable"`
	Policy        string `json:"policy"` // ALLOW, MONETIZE, BLOCK
	Duration      int    `json:"duration"` // milliseconds
	PlaybackCount int    `json:"playback_count"`
	LikesCount    int    `json:"likes_count"`
	UserID        int64  `json:"user_id"`
}

// Playable reports whether a track should survive merge filtering.
//
// Blocked, non-streamable, and zero-engagement tracks are dropped.
func (t Track) Playable() bool {
	if t.Policy == "BLOCK" {
		return false
	}
	if !t.Streamable {
		return false
	}
	return t.PlaybackCount > 0 || t.LikesCount > 0
}

// User represents a SoundCloud user.
type User struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	PermalinkURL   string `json:"permalink_url"`
	FollowersCount int    `json:"followers_count"`
	TrackCount     int    `json:"track_count"`
}

// Playlist represents a SoundCloud playlist (set).
//
// The upstream platform caps playlists at [MaxPlaylistTracks] tracks.
type Playlist struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	PermalinkURL string  `json:"permalink_url"`
	Sharing      string  `json:"sharing"` // public | private
	TrackCount   int     `json:"track_count"`
	Tracks       []Track `json:"tracks,omitempty"`
}

// Upstream platform limits.
const (
	// MaxPlaylistTracks is the maximum number of tracks a playlist may hold.
	MaxPlaylistTracks = 500
	// MaxWriteBatch is the maximum number of track ids accepted per
	// playlist create/update call.
	MaxWriteBatch = 100
	// MinMergeSources and MaxMergeSources bound the merge input.
	MinMergeSources = 2
	MaxMergeSources = 10
)

// MergeRequest is the input to a playlist merge: 2..10 source playlist ids and
// an optional title for the merged result.
type MergeRequest struct {
	SourceIDs []int64 `json:"source_ids"`
	Title     string  `json:"title,omitempty"`
}

// SourceStats records fetch diagnostics for one merge source.
type SourceStats struct {
	ID       int64 `json:"id"`
	Fetched  int   `json:"fetched"`
	Accepted int   `json:"accepted"`
}

// MergeStats summarizes a completed merge.
type MergeStats struct {
	Sources            []SourceStats `json:"sources"`
	UniqueBeforeCap    int           `json:"unique_before_cap"`
	TotalWritten       int           `json:"total_written"`
	CollectionsCreated int           `json:"collections_created"`
	// Verified is false when any target's post-write re-fetch failed and the
	// locally computed count was trusted instead.
	Verified bool `json:"verified"`
}

// MergeResult is the outcome of a merge. Collection is set when the unique
// track count fit in a single playlist; Collections when the set was split.
// External consumers depend on these field names.
type MergeResult struct {
	Collection  *Playlist  `json:"collection,omitempty"`
	Collections []Playlist `json:"collections,omitempty"`
	Stats       MergeStats `json:"stats"`
}

// Targets returns all created playlists regardless of single/multi shape.
func (r *MergeResult) Targets() []Playlist {
	if r.Collection != nil {
		return []Playlist{*r.Collection}
	}
	return r.Collections
}

// Bulk operation item statuses.
const (
	BulkStatusOK    = "ok"
	BulkStatusError = "error"
)

// BulkItemResult is the outcome of one action within a bulk operation.
type BulkItemResult struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BulkResult is an ordered sequence of per-item outcomes, one entry per input
// id in input order, regardless of individual failures.
type BulkResult struct {
	Results []BulkItemResult `json:"results"`
}

// Succeeded returns the ids of items that completed successfully.
func (b *BulkResult) Succeeded() []int64 {
	var ids []int64
	for _, r := range b.Results {
		if r.Status == BulkStatusOK {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// Counts returns the number of ok and error entries.
func (b *BulkResult) Counts() (ok, failed int) {
	for _, r := range b.Results {
		if r.Status == BulkStatusOK {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
