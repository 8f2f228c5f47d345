package soundcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"scbulk/internal/models"
	"scbulk/internal/shared"
)

// Resource is the result of resolving a permalink URL: exactly one of Track,
// User, or Playlist is set, selected by Kind.
type Resource struct {
	Kind     string           `json:"kind"`
	Track    *models.Track    `json:"track,omitempty"`
	User     *models.User     `json:"user,omitempty"`
	Playlist *models.Playlist `json:"playlist,omitempty"`
}

// ResolveURL resolves a soundcloud.com permalink URL to its API resource.
func (c *Client) ResolveURL(ctx context.Context, cred *Credential, permalink string) (*Resource, error) {
	query := url.Values{}
	query.Set("url", permalink)

	var raw json.RawMessage
	if err := c.Request(ctx, cred, "GET", "/resolve", query, nil, &raw); err != nil {
		return nil, err
	}

	var kinded struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &kinded); err != nil {
		return nil, fmt.Errorf("%w: unreadable resolve response: %v", shared.ErrResolveFailed, err)
	}

	res := &Resource{Kind: kinded.Kind}
	switch kinded.Kind {
	case "track":
		var t models.Track
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrResolveFailed, err)
		}
		res.Track = &t
	case "user":
		var u models.User
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrResolveFailed, err)
		}
		res.User = &u
	case "playlist":
		var p models.Playlist
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrResolveFailed, err)
		}
		res.Playlist = &p
	default:
		return nil, fmt.Errorf("%w: unsupported resource kind %q", shared.ErrResolveFailed, kinded.Kind)
	}

	return res, nil
}
