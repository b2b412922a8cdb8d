package commands

import (
	"context"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docblog/internal/config"
	"git.home.luguber.info/inful/docblog/internal/daemon"
	"git.home.luguber.info/inful/docblog/internal/metrics"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Addr    string `help:"Override daemon.http.addr"`
	NoServe bool   `name:"no-serve" help:"Only rebuild, do not start the HTTP server"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	opts := daemon.Options{Watch: true, BuildOnStart: true}
	if !w.NoServe {
		opts.Addr = firstNonEmpty(w.Addr, cfg.Daemon.HTTP.Addr)
	}
	return runDaemon(cfg, g, opts)
}

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	Addr     string `help:"Override daemon.http.addr"`
	Schedule string `help:"Override daemon.schedule (cron expression)"`
	Watch    bool   `help:"Also rebuild on source changes"`
}

func (d *DaemonCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	return runDaemon(cfg, g, daemon.Options{
		Watch:        d.Watch,
		Schedule:     firstNonEmpty(d.Schedule, cfg.Daemon.Schedule),
		Addr:         firstNonEmpty(d.Addr, cfg.Daemon.HTTP.Addr),
		BuildOnStart: true,
	})
}

// runDaemon completes opts from cfg and runs the daemon until SIGINT or
// SIGTERM.
func runDaemon(cfg *config.Config, g *Global, opts daemon.Options) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prom.NewRegistry()
	runner, err := newRunner(cfg, g, metrics.NewPrometheusRecorder(reg))
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	opts.Registry = reg
	opts.SourceDir = cfg.Source.Directory
	opts.Debounce = cfg.Daemon.Debounce.Std()
	opts.IgnoreDirs = []string{cfg.Output.Directory}
	if opts.Watch && cfg.Source.Git != nil {
		g.Logger.Warn("Not watching sources synced from git; use a schedule instead")
		opts.Watch = false
	}
	return daemon.New(runner, opts, g.Logger).Run(ctx)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
