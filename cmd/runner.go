package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/imusic/internal/app"
	"github.com/desertthunder/imusic/internal/notify"
	"github.com/desertthunder/imusic/internal/player"
	"github.com/desertthunder/imusic/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	injected   bool
	db         *sql.DB
	device     player.Device
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	// interactive routes the authorize URL to notifications instead of the output.
	interactive bool
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	// DB is opened from the configuration on first use when nil.
	DB *sql.DB
	// Device replaces the speaker, mainly for tests.
	Device     player.Device
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	injected := opts.Config != nil
	if !injected {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		injected:   injected,
		db:         opts.DB,
		device:     opts.Device,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, searchCommand, favoritesCommand, playCommand, historyCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads --config when it was given explicitly or no configuration was injected.
func (r *Runner) loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if !cmd.IsSet("config") && r.injected {
		return ctx, nil
	}

	path := cmd.String("config")
	config, err := shared.LoadConfigOrDefault(path)
	if err != nil {
		return ctx, err
	}
	if err := config.Validate(); err != nil {
		return ctx, err
	}

	r.config = config
	r.configPath = path
	r.logger.Debug("configuration loaded", "path", path, "base_url", config.API.BaseURL)
	return ctx, nil
}

// database returns the shared connection, opening and migrating it on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	r.db = db
	return db, nil
}

// newApp wires an [app.App] for one command. Notifications go to sink, or are logged when sink is nil.
func (r *Runner) newApp(sink notify.Sink, busy *shared.Busy) (*app.App, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = notify.LogSink(r.logger)
	}

	return app.Build(r.config, app.Env{
		DB:     db,
		Sink:   sink,
		Busy:   busy,
		Logger: r.logger,
		OnAuthURL: func(url string) {
			if r.interactive {
				notify.Emit(sink, notify.Info, nil, "Verify in your browser: %s", url)
				return
			}
			r.writePlain("Open this URL to verify with Codeforces:\n%s\n", url)
		},
		Device: r.device,
	}), nil
}

// restore brings back the saved session and waits for the favorites refresh it triggers.
func (r *Runner) restore(ctx context.Context, a *app.App) (*app.App, error) {
	if a.Session.Restore(ctx) == nil {
		return nil, shared.ErrAuthRequired
	}
	a.Wait()
	return a, nil
}

// Close releases the database.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
