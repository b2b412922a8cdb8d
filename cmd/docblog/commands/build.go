package commands

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"git.home.luguber.info/inful/docblog/internal/config"
	"git.home.luguber.info/inful/docblog/internal/metrics"
	"git.home.luguber.info/inful/docblog/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Clean     bool     `help:"Ignore the saved environment and rebuild everything"`
	Format    []string `short:"f" help:"Override output.formats (html, text, texinfo)"`
	Parallel  int      `short:"j" help:"Override build.parallel"`
	KeepGoing bool     `short:"k" name:"keep-going" help:"Continue past documents that fail to read"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if err := b.apply(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner, err := newRunner(cfg, g, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	report, err := runner.Run(ctx)
	if report != nil {
		printReport(root.stdout(), report)
	}
	return err
}

// apply overrides cfg with the command flags and validates the result.
func (b *BuildCmd) apply(cfg *config.Config) error {
	if b.Clean {
		cfg.Output.Clean = true
	}
	if len(b.Format) > 0 {
		cfg.Output.Formats = b.Format
	}
	if b.Parallel > 0 {
		cfg.Build.Parallel = b.Parallel
	}
	if b.KeepGoing {
		cfg.Build.KeepGoing = true
	}
	if err := config.ApplyDefaults(cfg); err != nil {
		return err
	}
	return config.Validate(cfg)
}

func printReport(w io.Writer, report *pipeline.Report) {
	if s := report.Sync; s != nil {
		_, _ = fmt.Fprintf(w, "source: %s (changed: %t)\n", shortCommit(s.Commit), s.Changed)
	}
	for _, res := range report.Results {
		published := 0
		if res.Env != nil {
			published = len(res.Env.Posts.Published())
		}
		_, _ = fmt.Fprintf(w, "%s: %d documents, %d read, %d written, %d failed, %d posts (%s)\n",
			res.Format, res.Total, len(res.Read), len(res.Written), len(res.Failed), published, res.Duration.Round(time.Millisecond))
		names := make([]string, 0, len(res.Failed))
		for name := range res.Failed {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			_, _ = fmt.Fprintf(w, "  failed %s: %v\n", name, res.Failed[name])
		}
	}
	for _, b := range report.Broken {
		_, _ = fmt.Fprintf(w, "broken link in %s: %s (%s)\n", b.Page, b.URL, b.Reason)
	}
}

func shortCommit(c string) string {
	if len(c) > 8 {
		return c[:8]
	}
	return c
}
