// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/imusic/internal/formatter"
	"github.com/desertthunder/imusic/internal/shared"
)

const version = "0.1.0"

// root is the top-level command. Flags declared here are visible to every subcommand.
func (r *Runner) root() *cli.Command {
	return &cli.Command{
		Name:    "imusic",
		Usage:   "Search, favorite and play songs from an IMusic server",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   shared.DefaultConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.loadConfig,
		Commands: r.register(),
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

func indexFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "index",
		Aliases: []string{"i"},
		Usage:   "1-based position of the song in the search results",
		Value:   1,
	}
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "username",
			Aliases:  []string{"u"},
			Usage:    "Account username",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "Account password",
			Sources: cli.EnvVars("IMUSIC_PASSWORD"),
		},
	}
}

// setupCommand handles setup operations for the database and configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a configuration file from the built-in template",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "migrations",
				Usage:  "Show applied and pending migrations",
				Action: r.SetupMigrations,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// authCommand handles account and session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the IMusic account",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Log in and remember the session",
				Flags:  credentialFlags(),
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the saved session",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Check whether the saved session is still accepted",
				Action: r.AuthStatus,
			},
			{
				Name:   "register",
				Usage:  "Verify with Codeforces in the browser, then create an account",
				Flags:  credentialFlags(),
				Action: r.AuthRegister,
			},
		},
	}
}

// searchCommand queries the catalog by title or artist.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Search songs by title or artist",
		ArgsUsage: "[query]",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags:  jsonFlags(),
		Action: r.Search,
	}
}

// favoritesCommand manages the favorites list.
func favoritesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "favorites",
		Aliases: []string{"fav"},
		Usage:   "Manage favorite songs",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List favorite songs",
				Flags:  jsonFlags(),
				Action: r.FavoritesList,
			},
			{
				Name:      "add",
				Usage:     "Search and add a song to favorites",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags:     []cli.Flag{indexFlag()},
				Action:    r.FavoritesAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a favorite by its 1-based position in the list",
				Arguments: []cli.Argument{&cli.IntArg{Name: "position"}},
				Action:    r.FavoritesRemove,
			},
			{
				Name:  "export",
				Usage: "Export favorites to csv, markdown, text or json",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "One of csv, markdown, text, json",
						Value:   formatter.FormatCSV,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file, or directory for markdown",
					},
				},
				Action: r.FavoritesExport,
			},
			{
				Name:      "import",
				Usage:     "Add every song listed in a file (lines of 'Title - Artist', or a CSV export)",
				Arguments: []cli.Argument{&cli.StringArg{Name: "file"}},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent searches",
						Value: 4,
					},
				},
				Action: r.FavoritesImport,
			},
			{
				Name:   "play",
				Usage:  "Play all favorites in order until interrupted",
				Action: r.FavoritesPlay,
			},
		},
	}
}

// playCommand searches and plays one song.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Search and play a song",
		Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
		Flags:     []cli.Flag{indexFlag()},
		Action:    r.Play,
	}
}

// historyCommand shows the local play history.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recently played songs",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of entries to show",
				Value:   20,
			},
			&cli.BoolFlag{
				Name:  "clear",
				Usage: "Delete the history",
			},
		}, jsonFlags()...),
		Action: r.History,
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the IMusic API",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "Direct POST with JSON body",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive player",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where logs go while the TUI owns the terminal",
				Value: shared.DefaultLogPath(),
			},
		},
		Action: r.TUI,
	}
}
