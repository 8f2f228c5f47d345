package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"scbulk/internal/shared"
)

// Resolve maps a permalink URL to its API resource through the resolve cache.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	rawURL := cmd.StringArg("url")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if rawURL == "" {
		return fmt.Errorf("%w: url argument is required", shared.ErrMissingArgument)
	}

	cred, err := r.requireCredential()
	if err != nil {
		return err
	}

	r.logger.Infof("resolving %v", rawURL)

	res, err := r.resolver.Resolve(ctx, cred, rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrResolveFailed, err)
	}

	if useJSON {
		return r.writeJSON(res, pretty)
	}

	switch res.Kind {
	case "track":
		r.writePlain("Track: %s (ID %d)\n", res.Track.Title, res.Track.ID)
	case "user":
		r.writePlain("User: %s (ID %d)\n", res.User.Username, res.User.ID)
	case "playlist":
		r.writePlain("Playlist: %s (ID %d, %d tracks)\n", res.Playlist.Title, res.Playlist.ID, res.Playlist.TrackCount)
	default:
		r.writePlain("Resource kind: %s\n", res.Kind)
	}

	return nil
}
