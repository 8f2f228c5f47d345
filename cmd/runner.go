package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"scbulk/internal/cache"
	"scbulk/internal/shared"
	"scbulk/internal/soundcloud"
	"scbulk/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	client     *soundcloud.Client
	resolver   *cache.Resolver
	bulk       *tasks.BulkRunner
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Client     *soundcloud.Client
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
	rps := opts.Config.Limits.RequestsPerSec
	if rps <= 0 {
		rps = 2.0
	}
	if opts.Client == nil {
		opts.Client = soundcloud.NewClient(soundcloud.ClientOpts{
			BaseURL:        opts.Config.API.BaseURL,
			HTTPClient:     opts.HTTPClient,
			OAuth:          oauthConfig(opts.Config),
			Logger:         opts.Logger,
			Limiter:        rate.NewLimiter(rate.Limit(rps), 1),
			MaxRateRetries: opts.Config.Limits.MaxRateRetries,
		})
	}

	ttl := time.Duration(opts.Config.Limits.ResolveCacheTTL) * time.Second
	resolver := cache.NewResolver(cache.NewMemoryCache(), opts.Client.ResolveURL, ttl)
	bulk := tasks.NewBulkRunner(opts.Config.Limits.RequestsPerSec, opts.Logger)

	return &Runner{
		config:     opts.Config,
		client:     opts.Client,
		resolver:   resolver,
		bulk:       bulk,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, mergeCommand, likesCommand, followsCommand, resolveCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// oauthConfig builds the OAuth2 configuration for the SoundCloud endpoints.
func oauthConfig(config *shared.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     config.Credentials.ClientID,
		ClientSecret: config.Credentials.ClientSecret,
		RedirectURL:  config.Credentials.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  config.API.AuthURL,
			TokenURL: config.API.TokenURL,
		},
	}
}

// tokenPath returns the location of the persisted credential pair.
func (r *Runner) tokenPath() string {
	if r.config.Credentials.TokenPath != "" {
		return r.config.Credentials.TokenPath
	}
	return filepath.Join(os.Getenv("HOME"), ".scbulk", "token.json")
}

// requireCredential loads the saved credential and arranges for refreshed
// tokens to be written back to disk.
func (r *Runner) requireCredential() (*soundcloud.Credential, error) {
	path := r.tokenPath()
	cred, err := soundcloud.LoadCredential(path)
	if err != nil {
		return nil, fmt.Errorf("%w: run 'scbulk auth login' first", shared.ErrNotAuthenticated)
	}

	cred.OnRefresh = func(c *soundcloud.Credential) {
		if err := soundcloud.SaveCredential(path, c); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
		}
	}

	return cred, nil
}

// openDatabase opens the history database, creating it on first use.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	return db, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return err
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
