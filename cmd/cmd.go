// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/pitch/internal/models"
	"github.com/urfave/cli/v3"
)

// sourceFlags select where a command's playlist snapshot comes from.
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "playlists",
			Aliases: []string{"p"},
			Usage:   "Playlist snapshot JSON (array or {\"playlists\": [...]})",
		},
		&cli.StringFlag{
			Name:  "sheet",
			Usage: "Spreadsheet (.xlsx/.xls) to upload and parse instead of a snapshot",
		},
	}
}

func queryFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "query",
		Aliases:  []string{"q"},
		Usage:    "Natural language description of the playlists to keep",
		Required: required,
	}
}

func withFlags(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag
	for _, g := range groups {
		flags = append(flags, g...)
	}
	return flags
}

// setupCommand handles setup operations for configuration and the send log archive.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the example configuration to --config",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the send log database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the most recent migration",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// playlistsCommand handles snapshot inspection.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "Inspect playlist snapshots",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "List the visible playlists of a snapshot",
				Flags: withFlags(sourceFlags(), []cli.Flag{
					queryFlag(false),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				}),
				Action: r.PlaylistsShow,
			},
		},
	}
}

// ingestCommand uploads a spreadsheet to the backend parser.
func ingestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Upload a spreadsheet and save the parsed playlists",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "path"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Snapshot file to write",
				Value:   "playlists.json",
			},
		},
		Action: r.Ingest,
	}
}

// filterCommand applies the AI filter to a snapshot.
func filterCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "filter",
		Usage: "Keep only the playlists matching a description",
		Flags: withFlags(sourceFlags(), []cli.Flag{
			queryFlag(true),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the matching playlists to a snapshot file",
			},
		}),
		Action: r.Filter,
	}
}

// exportCommand writes the visible playlists to CSV or XLSX.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the visible playlists as CSV or XLSX",
		Flags: withFlags(sourceFlags(), []cli.Flag{
			queryFlag(false),
			&cli.StringFlag{
				Name:  "columns",
				Usage: "Comma separated columns to include",
				Value: columnList(models.Columns),
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "csv or xlsx",
				Value:   string(models.FormatCSV),
			},
			&cli.StringFlag{
				Name:  "track-name",
				Usage: "Track name used for the file name",
			},
			&cli.BoolFlag{
				Name:  "labels",
				Usage: "Use human readable column headers (defaults to export.labels)",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Output directory (defaults to export.output_dir)",
			},
		}),
		Action: r.Export,
	}
}

// campaignCommand handles preview generation and sending.
func campaignCommand(r *Runner) *cli.Command {
	trackFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     "track-id",
			Usage:    "Track to pitch",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "track-name",
			Usage: "Display name of the track",
		},
		&cli.StringFlag{
			Name:     "description",
			Usage:    "Song description used to write the email",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "language",
			Usage: "Email language (defaults to campaign.default_language)",
		},
	}

	return &cli.Command{
		Name:  "campaign",
		Usage: "Generate and send email campaigns",
		Commands: []*cli.Command{
			{
				Name:  "preview",
				Usage: "Generate an email preview for the first visible contactable playlist",
				Flags: withFlags(sourceFlags(), []cli.Flag{queryFlag(false)}, trackFlags, []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				}),
				Action: r.CampaignPreview,
			},
			{
				Name:  "send",
				Usage: "Generate a preview, confirm and stream the send",
				Flags: withFlags(sourceFlags(), []cli.Flag{queryFlag(false)}, trackFlags, []cli.Flag{
					&cli.StringFlag{
						Name:  "subject",
						Usage: "Replace the generated subject",
					},
					&cli.StringFlag{
						Name:  "template",
						Usage: "File whose contents replace the generated template body",
					},
					&cli.StringFlag{
						Name:  "bcc",
						Usage: "Blind copy address for every email",
					},
					&cli.StringFlag{
						Name:  "cap",
						Usage: "Maximum number of recipients (1-300, defaults to campaign.default_cap)",
					},
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Send without asking for confirmation",
					},
				}),
				Action: r.CampaignSend,
			},
		},
	}
}

// historyCommand reads the send log archive.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Browse archived sends",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent sends",
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
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show the log of one send",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.HistoryShow,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive outreach TUI",
		Flags: withFlags(sourceFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "File that receives logs while the TUI runs",
				Value: "./tmp/pitch-tui.log",
			},
		}),
		Action: r.TUI,
	}
}

func columnList(cols []models.Column) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}
