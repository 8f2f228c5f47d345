package soundcloud

import (
	"context"
	"fmt"

	"scbulk/internal/models"
	"scbulk/internal/shared"
)

// playlistPayload is the write envelope for playlist create/update calls.
type playlistPayload struct {
	Playlist playlistBody `json:"playlist"`
}

type playlistBody struct {
	Title   string     `json:"title,omitempty"`
	Sharing string     `json:"sharing,omitempty"`
	Tracks  []trackRef `json:"tracks"`
}

type trackRef struct {
	ID int64 `json:"id"`
}

func trackRefs(ids []int64) []trackRef {
	refs := make([]trackRef, len(ids))
	for i, id := range ids {
		refs[i] = trackRef{ID: id}
	}
	return refs
}

// Playlist retrieves a playlist's metadata by id.
func (c *Client) Playlist(ctx context.Context, cred *Credential, id int64) (*models.Playlist, error) {
	var pl models.Playlist
	path := fmt.Sprintf("/playlists/%d", id)
	if err := c.Request(ctx, cred, "GET", path, nil, nil, &pl); err != nil {
		return nil, err
	}
	return &pl, nil
}

// PlaylistTracks retrieves the full ordered track list of a playlist,
// following pagination to the end.
func (c *Client) PlaylistTracks(ctx context.Context, cred *Credential, id int64, pageSize int) ([]models.Track, error) {
	path := fmt.Sprintf("/playlists/%d/tracks", id)
	return Paginate[models.Track](ctx, c, cred, path, pageSize)
}

// CreatePlaylist creates a playlist seeded with the given track ids.
//
// The platform accepts at most [models.MaxWriteBatch] ids per write call;
// callers extend larger playlists with [Client.SetPlaylistTracks].
func (c *Client) CreatePlaylist(ctx context.Context, cred *Credential, title, sharing string, trackIDs []int64) (*models.Playlist, error) {
	if len(trackIDs) > models.MaxWriteBatch {
		return nil, fmt.Errorf("%w: create accepts at most %d track ids, got %d", shared.ErrInvalidInput, models.MaxWriteBatch, len(trackIDs))
	}
	if sharing == "" {
		sharing = "private"
	}

	payload := playlistPayload{Playlist: playlistBody{
		Title:   title,
		Sharing: sharing,
		Tracks:  trackRefs(trackIDs),
	}}

	var pl models.Playlist
	if err := c.Request(ctx, cred, "POST", "/playlists", nil, payload, &pl); err != nil {
		return nil, err
	}
	return &pl, nil
}

// SetPlaylistTracks replaces a playlist's track list with the cumulative id
// sequence. The platform treats this as a full replacement, so extending a
// playlist means re-sending every id written so far.
func (c *Client) SetPlaylistTracks(ctx context.Context, cred *Credential, id int64, trackIDs []int64) error {
	path := fmt.Sprintf("/playlists/%d", id)
	payload := playlistPayload{Playlist: playlistBody{Tracks: trackRefs(trackIDs)}}
	return c.Request(ctx, cred, "PUT", path, nil, payload, nil)
}

// MyPlaylists retrieves the authenticated user's playlists.
func (c *Client) MyPlaylists(ctx context.Context, cred *Credential, pageSize int) ([]models.Playlist, error) {
	return Paginate[models.Playlist](ctx, c, cred, "/me/playlists", pageSize)
}
