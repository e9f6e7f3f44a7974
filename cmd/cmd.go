// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func eventFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "event-name",
			Usage: "Event kind (push or workflow_dispatch); defaults to the GitHub Actions environment",
		},
		&cli.StringSliceFlag{
			Name:    "files",
			Aliases: []string{"f"},
			Usage:   "Changed file paths for a push event",
		},
		&cli.BoolFlag{
			Name:  "force-update",
			Usage: "force_update input for a workflow_dispatch event",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output JSON",
		},
	}
}

// runCommand runs the whole pipeline for one event.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Evaluate the trigger, update statistics, publish and purge the CDN cache",
		Flags:  eventFlags(),
		Action: r.Run,
	}
}

// triggerCommand prints the trigger decision without running anything.
func triggerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "trigger",
		Usage:  "Show whether an event would start the pipeline",
		Flags:  eventFlags(),
		Action: r.Trigger,
	}
}

// statsCommand handles the built-in statistics updater.
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Playlist statistics",
		Commands: []*cli.Command{
			{
				Name:  "update",
				Usage: "Recompute statistics files for every playlist in the working tree",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force-update",
						Usage: "Reparse playlists even when their content is unchanged",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.StatsUpdate,
			},
			{
				Name:  "show",
				Usage: "Show the current statistics summary",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: table, markdown, csv, text or json",
						Value: "table",
					},
					&cli.IntFlag{
						Name:  "groups",
						Usage: "Number of groups listed for a single playlist",
						Value: 10,
					},
				},
				Action: r.StatsShow,
			},
			{
				Name:  "history",
				Usage: "Show recorded snapshots of a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of snapshots",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.StatsHistory,
			},
		},
	}
}

// publishCommand commits and pushes statistics changes.
func publishCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Stage all changes, commit when the tree differs and push",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
		},
		Action: r.Publish,
	}
}

// purgeCommand requests CDN cache purges.
func purgeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Purge the configured CDN paths",
		Arguments: []cli.Argument{
			&cli.StringArgs{Name: "paths", Min: 0, Max: -1},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-delay",
				Usage: "Skip the wait before purging",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
		},
		Action: r.Purge,
	}
}

// historyCommand lists recorded pipeline runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent pipeline runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only runs with this status",
			},
			&cli.StringFlag{
				Name:  "trigger",
				Usage: "Only runs started by this event kind",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
		},
		Action: r.History,
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
				Usage:  "Initialize the run history database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a config.toml populated with defaults",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Destination path",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// workflowCommand renders the GitHub Actions workflow.
func workflowCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "workflow",
		Usage: "Render the GitHub Actions workflow that runs the pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Workflow file to write, - for stdout",
				Value:   ".github/workflows/update-stats.yml",
			},
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Fail when the file differs from a fresh rendering",
			},
		},
		Action: r.Workflow,
	}
}

// dispatchCommand triggers the workflow through the GitHub API.
func dispatchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "dispatch",
		Usage: "Start the workflow remotely with a workflow_dispatch event",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force-update",
				Usage: "Set the force_update input",
			},
			&cli.StringFlag{
				Name:  "ref",
				Usage: "Git ref to run on (default: repository.branch)",
			},
			&cli.StringFlag{
				Name:  "workflow",
				Usage: "Workflow file name or ID (default: github.workflow)",
			},
		},
		Action: r.Dispatch,
	}
}

// serveCommand runs the webhook server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the pipeline from GitHub webhook deliveries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default: server.port)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Browse statistics and start runs interactively",
		Action:  r.TUI,
	}
}
