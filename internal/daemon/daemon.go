// Package daemon keeps a site built: it rebuilds on source changes and on
// a cron schedule, and serves the output, build history and metrics over
// HTTP.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docblog/internal/envstore"
	"git.home.luguber.info/inful/docblog/internal/logfields"
	"git.home.luguber.info/inful/docblog/internal/pipeline"
)

// Runner builds the site.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Report, error)
	RecentBuilds(ctx context.Context, limit int) ([]envstore.BuildRecord, error)
	OutputDir() string
}

// Options select which triggers and servers the daemon runs.
type Options struct {
	// SourceDir is watched when Watch is set.
	SourceDir string
	// IgnoreDirs are not watched, typically the output and state dirs.
	IgnoreDirs []string
	Watch      bool
	Debounce   time.Duration
	// Schedule is a cron expression; empty disables scheduled builds.
	Schedule string
	// Addr is the HTTP listen address; empty disables the server.
	Addr string
	// Registry holds the metrics served on /metrics.
	Registry *prom.Registry
	// BuildOnStart runs one build before waiting for triggers.
	BuildOnStart bool
}

// Status describes the most recent build.
type Status struct {
	Builds    int       `json:"builds"`
	Failures  int       `json:"failures"`
	Running   bool      `json:"running"`
	LastBuild time.Time `json:"last_build,omitzero"`
	LastError string    `json:"last_error,omitempty"`
	Broken    int       `json:"broken_links"`
}

// Daemon serialises builds requested by the watcher, the scheduler and
// the HTTP API.
type Daemon struct {
	runner  Runner
	opts    Options
	logger  *slog.Logger
	started time.Time

	triggers chan string

	mu     sync.RWMutex
	status Status
}

// New creates a daemon around runner.
func New(runner Runner, opts Options, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = prom.NewRegistry()
	}
	return &Daemon{
		runner:   runner,
		opts:     opts,
		logger:   logger,
		started:  time.Now(),
		triggers: make(chan string, 1),
	}
}

// Trigger requests a build. Requests arriving while one is pending are
// coalesced. It reports whether a new build was queued.
func (d *Daemon) Trigger(reason string) bool {
	select {
	case d.triggers <- reason:
		d.logger.Debug("Build requested", slog.String("reason", reason))
		return true
	default:
		return false
	}
}

// Status returns a snapshot of the build status.
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// Run starts the configured triggers and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := registerCollectors(d.opts.Registry, d); err != nil {
		return err
	}

	if d.opts.Watch {
		w, err := NewSourceWatcher(d.opts.SourceDir, d.opts.IgnoreDirs, d.opts.Debounce, d.Trigger, d.logger)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			_ = w.Stop()
			return err
		}
		defer func() { _ = w.Stop() }()
	}

	if d.opts.Schedule != "" {
		s, err := NewScheduler(d.opts.Schedule, d.Trigger, d.logger)
		if err != nil {
			return err
		}
		s.Start()
		defer func() {
			if err := s.Stop(); err != nil {
				d.logger.Warn("Stopping scheduler failed", logfields.Error(err))
			}
		}()
	}

	var srv *Server
	if d.opts.Addr != "" {
		srv = NewServer(d, d.logger)
		if err := srv.Start(d.opts.Addr); err != nil {
			return err
		}
	}

	if d.opts.BuildOnStart {
		d.Trigger("startup")
	}
	d.logger.Info("Daemon started",
		slog.Bool("watch", d.opts.Watch),
		slog.String("schedule", d.opts.Schedule),
		slog.String("addr", d.opts.Addr))

	d.loop(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			d.logger.Warn("HTTP shutdown failed", logfields.Error(err))
		}
	}
	d.logger.Info("Daemon stopped")
	return nil
}

func (d *Daemon) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-d.triggers:
			d.build(ctx, reason)
		}
	}
}

func (d *Daemon) build(ctx context.Context, reason string) {
	d.mu.Lock()
	d.status.Running = true
	d.mu.Unlock()

	d.logger.Info("Rebuilding site", slog.String("reason", reason))
	report, err := d.runner.Run(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.status.Running = false
	d.status.Builds++
	d.status.LastBuild = time.Now()
	d.status.LastError = ""
	d.status.Broken = 0
	if report != nil {
		d.status.Broken = len(report.Broken)
	}
	if err != nil {
		d.status.Failures++
		d.status.LastError = err.Error()
		d.logger.Error("Rebuild failed", slog.String("reason", reason), logfields.Error(err))
	}
}
