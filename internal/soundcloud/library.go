package soundcloud

import (
	"context"
	"fmt"

	"scbulk/internal/models"
)

// Me retrieves the authenticated user's profile.
func (c *Client) Me(ctx context.Context, cred *Credential) (*models.User, error) {
	var user models.User
	if err := c.Request(ctx, cred, "GET", "/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// LikedTracks retrieves the user's liked tracks, following pagination.
func (c *Client) LikedTracks(ctx context.Context, cred *Credential, pageSize int) ([]models.Track, error) {
	return Paginate[models.Track](ctx, c, cred, "/me/likes/tracks", pageSize)
}

// Followings retrieves the users the authenticated user follows.
func (c *Client) Followings(ctx context.Context, cred *Credential, pageSize int) ([]models.User, error) {
	return Paginate[models.User](ctx, c, cred, "/me/followings", pageSize)
}

// UnlikeTrack removes a like from a track. Idempotent on the upstream side.
func (c *Client) UnlikeTrack(ctx context.Context, cred *Credential, trackID int64) error {
	path := fmt.Sprintf("/likes/tracks/%d", trackID)
	return c.Request(ctx, cred, "DELETE", path, nil, nil, nil)
}

// UnfollowUser removes a user from the authenticated user's followings.
func (c *Client) UnfollowUser(ctx context.Context, cred *Credential, userID int64) error {
	path := fmt.Sprintf("/me/followings/%d", userID)
	return c.Request(ctx, cred, "DELETE", path, nil, nil, nil)
}
