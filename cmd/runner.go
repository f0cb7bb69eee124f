package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/flowmaster/internal/engine"
	"github.com/desertthunder/flowmaster/internal/repositories"
	"github.com/desertthunder/flowmaster/internal/services"
	"github.com/desertthunder/flowmaster/internal/shared"
	"github.com/desertthunder/flowmaster/internal/stores"
	"github.com/urfave/cli/v3"
)

var _ stores.TokenPersister = (*repositories.TokenRepository)(nil)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Stores are built on first use so commands such as "setup config" never touch the database.
type Runner struct {
	config      *shared.Config
	configPath  string
	api         *services.APIService
	injectedAPI bool
	flow        *services.FlowService
	tokens      stores.TokenPersister
	db          *sql.DB
	logger      *log.Logger
	output      io.Writer
	session     *stores.SessionStore
	tasks       *stores.TaskListStore
	cards       *stores.DailyCardStore
	engine      *engine.RefreshEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	API        *services.APIService
	Tokens     stores.TokenPersister // Overrides the SQLite token repository
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		api:         opts.API,
		injectedAPI: opts.API != nil,
		tokens:      opts.Tokens,
		logger:      opts.Logger,
		output:      opts.Output,
	}
	if r.api == nil {
		r.api = newAPIService(r.config.API)
	}
	r.flow = services.NewFlowService(r.api)
	return r
}

func newAPIService(cfg shared.APIConfig) *services.APIService {
	client := &http.Client{Timeout: cfg.Timeout()}
	return services.NewAPIService(cfg.BaseURL, client).WithRateLimit(cfg.RateLimit, cfg.Burst)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, tasksCommand, cardCommand, syncCommand, boardCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure loads the config file named by --config and applies global flags. It runs before every command.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	r.configPath = path

	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else if cmd.IsSet("config") {
		r.logger.Warn("config file not found, using defaults", "path", path)
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	if url := cmd.String("api-url"); url != "" {
		r.config.API.BaseURL = url
	}

	level := r.config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	ll, err := shared.ParseLogLevel(level)
	if err != nil {
		return ctx, err
	}
	shared.SetLogLevel(r.logger, ll)

	if !r.injectedAPI {
		r.api = newAPIService(r.config.API)
		r.flow = services.NewFlowService(r.api)
	}
	return ctx, nil
}

// open builds the stores and engine, opening the token database unless a persister was injected.
func (r *Runner) open() error {
	if r.session != nil {
		return nil
	}

	if r.tokens == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open database (run 'flowmaster setup database'): %w", err)
		}
		r.db = db
		r.tokens = repositories.NewTokenRepository(db)
	}

	r.session = stores.NewSessionStore(r.flow, r.tokens, r.logger)
	r.tasks = stores.NewTaskListStore(r.flow, r.session, r.logger)
	r.cards = stores.NewDailyCardStore(r.flow, r.session, r.logger)
	r.engine = engine.NewRefreshEngine(r.session, r.tasks, r.cards, r.logger)
	return nil
}

// requireSession opens the stores and fails unless a token is held.
func (r *Runner) requireSession() error {
	if err := r.open(); err != nil {
		return err
	}
	if !r.session.IsAuthenticated() {
		return fmt.Errorf("%w: run 'flowmaster auth login' first", shared.ErrNotAuthenticated)
	}
	return nil
}

// close releases the database. It runs after every command.
func (r *Runner) close(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// SetLogger replaces the runner's logger. Stores built afterwards log through it.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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

// printProgress writes updates from the returned channel until stop is called.
func (r *Runner) printProgress() (chan<- engine.ProgressUpdate, func()) {
	ch := make(chan engine.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range ch {
			r.writePlain("  %s\n", update.Message)
		}
	}()
	return ch, func() {
		close(ch)
		<-done
	}
}
