package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/convx/internal/models"
	"github.com/desertthunder/convx/internal/repositories"
	"github.com/desertthunder/convx/internal/services"
	"github.com/desertthunder/convx/internal/session"
	"github.com/desertthunder/convx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	converter  services.Converter
	api        *services.APIService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	db         *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Converter  services.Converter
	API        *services.APIService
	HTTPClient *http.Client
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
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		converter:  opts.Converter,
		api:        opts.API,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the runner's logger, used when the TUI redirects logs to a file.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		convertCommand, statusCommand, downloadCommand, healthCommand, historyCommand, apiCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// controllerOpts maps the loaded config onto session controller options.
func (r *Runner) controllerOpts() session.ControllerOpts {
	return session.ControllerOpts{
		SubmitTimeout:  time.Duration(r.config.API.SubmitTimeoutSecs) * time.Second,
		StallTimeout:   time.Duration(r.config.API.StallTimeoutSecs) * time.Second,
		PollRate:       r.config.API.PollRate,
		MaxReconnects:  r.config.API.MaxReconnects,
		MaxUploadBytes: r.config.Limits.MaxUploadMB << 20,
	}
}

// database lazily opens the history database and runs migrations once.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	return db, nil
}

// recordConversion writes a finished session to the history database.
// History is best effort; failures are logged, never fatal.
func (r *Runner) recordConversion(final session.Session, downloadPath string) {
	db, err := r.database()
	if err != nil {
		r.logger.Warn("skipping history record", "error", err)
		return
	}

	repo := repositories.NewConversionRepository(db)
	record := models.NewConversionRecord(0, final.Input.Kind.String(), final.Input.Ref())

	if err := repo.Create(record); err != nil {
		r.logger.Warn("failed to record conversion", "error", err)
		return
	}

	record.SetProgress(final.OverallProgress)
	switch final.Phase {
	case session.PhaseCompleted:
		record.SetOutcome("completed")
	case session.PhaseFailed:
		record.SetOutcome("failed")
		record.SetErrorMsg(final.Err)
	}
	if final.Result != nil {
		record.SetConversionID(final.Result.ConversionID)
		record.SetDurationSecs(final.Result.Duration)
	}
	if downloadPath != "" {
		record.SetDownloadPath(downloadPath)
	}

	if err := repo.Update(record); err != nil {
		r.logger.Warn("failed to update conversion record", "error", err)
	}
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
