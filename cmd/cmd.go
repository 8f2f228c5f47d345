// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage SoundCloud authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authenticate with SoundCloud using OAuth2",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check current authentication state",
				Action: r.AuthStatus,
			},
		},
	}
}

// mergeCommand merges source playlists into deduplicated targets
func mergeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "Merge playlists into a single deduplicated playlist",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Source playlist ID or URL (repeat for each source, 2-10)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "title",
				Aliases: []string{"t"},
				Usage:   "Title for the merged playlist",
			},
			&cli.StringFlag{
				Name:  "sharing",
				Usage: "Sharing mode for created playlists (public or private)",
				Value: "private",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "csv",
				Usage: "Write a CSV report to the given path",
			},
		},
		Action: r.Merge,
	}
}

// likesCommand handles bulk operations on liked tracks
func likesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "likes",
		Usage: "Bulk operations on liked tracks",
		Commands: []*cli.Command{
			{
				Name:  "purge",
				Usage: "Unlike tracks in bulk",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "ids",
						Usage: "Comma-separated track IDs to unlike (default: fetch liked tracks)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of likes to remove when fetching",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.LikesPurge,
			},
		},
	}
}

// followsCommand handles bulk operations on followed users
func followsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "follows",
		Usage: "Bulk operations on followed users",
		Commands: []*cli.Command{
			{
				Name:  "purge",
				Usage: "Unfollow users in bulk",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "ids",
						Usage:    "Comma-separated user IDs to unfollow",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.FollowsPurge,
			},
		},
	}
}

// resolveCommand maps a permalink URL to its API resource
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve a SoundCloud URL to its API resource",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Resolve,
	}
}

// historyCommand lists persisted operation history
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Operation history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List past merge and bulk operations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter merge runs by status (complete or failed)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryList,
			},
		},
	}
}

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}
