// Package commands implements the docblog command line.
package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docblog/internal/config"
	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/logfields"
	"git.home.luguber.info/inful/docblog/internal/metrics"
	"git.home.luguber.info/inful/docblog/internal/notify"
	"git.home.luguber.info/inful/docblog/internal/pipeline"
)

// Global is shared by every command.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docblog.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build  BuildCmd  `cmd:"" help:"Build the site in every configured format"`
	Posts  PostsCmd  `cmd:"" help:"List the posts recorded by the last build"`
	Watch  WatchCmd  `cmd:"" help:"Rebuild on source changes and serve the site"`
	Daemon DaemonCmd `cmd:"" help:"Rebuild on a schedule and serve the site, build history and metrics"`
	Init   InitCmd   `cmd:"" help:"Write an example configuration file"`

	// Stdout receives command output; nil means os.Stdout.
	Stdout io.Writer `kong:"-"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func (c *CLI) stdout() io.Writer {
	if c.Stdout != nil {
		return c.Stdout
	}
	return os.Stdout
}

// loadConfig loads the configuration, resolves its paths against the
// directory holding the file and installs the configured logger.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(c.Config)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "resolve configuration path").Build()
	}
	cfg.ResolvePaths(filepath.Dir(abs))

	g.Logger = cfg.Logging.NewLogger(os.Stderr, c.Verbose)
	slog.SetDefault(g.Logger)
	return cfg, nil
}

// newRunner builds the pipeline for cfg. A NATS server that cannot be
// reached disables notifications instead of failing the command.
func newRunner(cfg *config.Config, g *Global, recorder metrics.Recorder) (*pipeline.Runner, error) {
	options := []pipeline.Option{pipeline.WithLogger(g.Logger), pipeline.WithRecorder(recorder)}
	if n := cfg.Notify.NATS; n != nil {
		pub, err := notify.NewNATSPublisher(n.URL, n.Subject, n.Timeout.Std(), g.Logger)
		if err != nil {
			g.Logger.Warn("Build notifications disabled", logfields.URL(n.URL), logfields.Error(err))
		} else {
			options = append(options, pipeline.WithNotifier(notify.NewNotifier(pub, recorder, g.Logger)))
		}
	}
	return pipeline.New(cfg, options...)
}
