// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func serviceFlag(name, value, usage string) cli.Flag {
	return &cli.StringFlag{
		Name:  name,
		Usage: usage,
		Value: value,
	}
}

func playlistFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "playlist",
		Aliases: []string{"p"},
		Usage:   "Playlist name or ID (prompts when omitted)",
	}
}

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a config file from the built-in template",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file with the current settings",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand connects catalog accounts through the OAuth consent page.
func authCommand(r *Runner) *cli.Command {
	flags := func() []cli.Flag {
		return []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser callback",
				Value: defaultAuthTimeout,
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the consent URL instead of opening it",
			},
		}
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "spotify",
				Usage:  "Authenticate with Spotify using OAuth2",
				Flags:  flags(),
				Action: r.AuthSpotify,
			},
			{
				Name:    "youtube",
				Aliases: []string{"yt"},
				Usage:   "Authenticate with YouTube using OAuth2",
				Flags:   flags(),
				Action:  r.AuthYouTube,
			},
			{
				Name:   "status",
				Usage:  "Show which services have a stored token",
				Action: r.AuthStatus,
			},
		},
	}
}

// syncCommand handles playlist sync operations
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync playlists between services",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Add the tracks missing from the destination playlist",
				Flags: []cli.Flag{
					serviceFlag("from", "spotify", "Source service (spotify or youtube)"),
					serviceFlag("to", "youtube", "Destination service (spotify or youtube)"),
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source playlist name or ID (prompts when omitted)",
					},
					&cli.StringFlag{
						Name:  "dest",
						Usage: "Destination playlist name or ID (prompts when omitted)",
					},
					&cli.StringFlag{
						Name:  "create",
						Usage: "Create a new destination playlist with this name",
					},
					&cli.StringFlag{
						Name:  "export-dir",
						Usage: "Directory for planning mode exports",
					},
					&cli.BoolFlag{
						Name:  "plain",
						Usage: "Use numbered prompts instead of the interactive picker",
					},
				},
				Action: r.SyncRun,
			},
			{
				Name:  "diff",
				Usage: "Compare and show missing tracks between two playlists",
				Flags: []cli.Flag{
					serviceFlag("from", "spotify", "Source service (spotify or youtube)"),
					serviceFlag("to", "youtube", "Destination service (spotify or youtube)"),
					&cli.StringFlag{
						Name:     "source",
						Usage:    "Source playlist name or ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "dest",
						Usage:    "Destination playlist name or ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the missing tracks as CSV to this file",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SyncDiff,
			},
		},
	}
}

// playlistCommand handles single playlist management
func playlistCommand(r *Runner) *cli.Command {
	svc := func() cli.Flag {
		return serviceFlag("service", "spotify", "Service (spotify or youtube)")
	}

	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Manage a single playlist",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List playlists",
				Flags: []cli.Flag{
					svc(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistList,
			},
			{
				Name:   "summary",
				Usage:  "Count tracks per artist",
				Flags:  []cli.Flag{svc(), playlistFlag()},
				Action: r.PlaylistSummary,
			},
			{
				Name:   "add",
				Usage:  "Add tracks typed as 'Title - Artist1, Artist2'",
				Flags:  []cli.Flag{svc(), playlistFlag()},
				Action: r.PlaylistAdd,
			},
			{
				Name:  "remove-artist",
				Usage: "Remove every track by the given artists",
				Flags: []cli.Flag{
					svc(),
					playlistFlag(),
					&cli.StringSliceFlag{
						Name:    "artist",
						Aliases: []string{"a"},
						Usage:   "Artist to remove (repeatable, prompts when omitted)",
					},
				},
				Action: r.PlaylistRemoveArtist,
			},
			{
				Name:  "dedupe",
				Usage: "Remove near-duplicate tracks",
				Flags: []cli.Flag{
					svc(),
					playlistFlag(),
					&cli.FloatFlag{
						Name:  "threshold",
						Usage: "Title similarity threshold (defaults to matching.duplicate_threshold)",
					},
				},
				Action: r.PlaylistDedupe,
			},
			{
				Name:  "backup",
				Usage: "Save playlists to disk",
				Flags: []cli.Flag{
					svc(),
					&cli.StringSliceFlag{
						Name:    "playlist",
						Aliases: []string{"p"},
						Usage:   "Playlist name or ID (repeatable, every playlist when omitted)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "json, csv, markdown or txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent writers",
						Value: 4,
					},
				},
				Action: r.PlaylistBackup,
			},
		},
	}
}

// cacheCommand inspects and clears the resolution cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the resolution cache",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Look up the cached identifier for a track",
				Flags: []cli.Flag{
					serviceFlag("service", "youtube", "Destination service (spotify or youtube)"),
					&cli.StringFlag{
						Name:     "title",
						Usage:    "Track title",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "artist",
						Aliases: []string{"a"},
						Usage:   "Track artist (repeatable)",
					},
				},
				Action: r.CacheGet,
			},
			{
				Name:  "list",
				Usage: "List cached resolutions",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "service",
						Usage: "Only list resolutions for this service",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheList,
			},
			{
				Name:  "delete",
				Usage: "Delete one cached resolution by key",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
				},
				Action: r.CacheDelete,
			},
			{
				Name:  "clear",
				Usage: "Delete cached resolutions",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "service",
						Usage: "Only clear resolutions for this service",
					},
				},
				Action: r.CacheClear,
			},
			{
				Name:   "stats",
				Usage:  "Count cached resolutions per service",
				Action: r.CacheStats,
			},
		},
	}
}

// historyCommand lists recorded sync runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent sync runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}
