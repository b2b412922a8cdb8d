// Package pipeline runs complete site builds: source sync, one build per
// configured output format, and the html extras (feed, link check),
// followed by build history and notifications.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/docblog/internal/blog"
	"git.home.luguber.info/inful/docblog/internal/build"
	"git.home.luguber.info/inful/docblog/internal/config"
	"git.home.luguber.info/inful/docblog/internal/envstore"
	"git.home.luguber.info/inful/docblog/internal/feed"
	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/git"
	"git.home.luguber.info/inful/docblog/internal/linkverify"
	"git.home.luguber.info/inful/docblog/internal/logfields"
	"git.home.luguber.info/inful/docblog/internal/metrics"
	"git.home.luguber.info/inful/docblog/internal/notify"
	"git.home.luguber.info/inful/docblog/internal/plugin"
	"git.home.luguber.info/inful/docblog/internal/render"
	"git.home.luguber.info/inful/docblog/internal/retry"
)

// Report summarises one Run.
type Report struct {
	// Sync is set when the source was synced from git.
	Sync    *git.SyncResult
	Results []*build.Result
	// Broken lists broken links found in html output.
	Broken []linkverify.BrokenLink
}

// Failed counts documents that failed to read across all formats.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Failed)
	}
	return n
}

// target is the build of one output format.
type target struct {
	format  render.Format
	outDir  string
	store   *envstore.SQLiteStore
	builder *build.Builder
}

// Runner owns the builders of a configured site. Runs are serialised.
type Runner struct {
	cfg      *config.Config
	registry *plugin.Registry
	recorder metrics.Recorder
	notifier *notify.Notifier
	logger   *slog.Logger
	policy   retry.Policy
	source   *git.Client
	targets  []*target

	mu sync.Mutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder records build metrics.
func WithRecorder(r metrics.Recorder) Option {
	return func(rn *Runner) {
		if r != nil {
			rn.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(rn *Runner) {
		if l != nil {
			rn.logger = l
		}
	}
}

// WithNotifier publishes a summary after every build.
func WithNotifier(n *notify.Notifier) Option { return func(rn *Runner) { rn.notifier = n } }

// WithRegistry resolves extensions from registry instead of a registry
// holding only the blog extension.
func WithRegistry(reg *plugin.Registry) Option { return func(rn *Runner) { rn.registry = reg } }

// New prepares one builder per configured format. cfg must be validated
// and its paths resolved.
func New(cfg *config.Config, options ...Option) (*Runner, error) {
	rn := &Runner{
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		policy:   retry.FromConfig(cfg.Retry),
	}
	for _, o := range options {
		o(rn)
	}
	if rn.registry == nil {
		rn.registry = plugin.NewRegistry()
		if err := blog.Register(rn.registry); err != nil {
			return nil, err
		}
	}
	if g := cfg.Source.Git; g != nil {
		rn.source = git.NewClient(cfg.Source.Directory, *g, rn.logger)
	}

	for _, name := range cfg.Output.Formats {
		t, err := rn.newTarget(name)
		if err != nil {
			_ = rn.Close()
			return nil, err
		}
		rn.targets = append(rn.targets, t)
	}
	return rn, nil
}

func (rn *Runner) newTarget(name string) (*target, error) {
	format, err := render.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	multi := len(rn.cfg.Output.Formats) > 1
	t := &target{format: format, outDir: rn.cfg.Output.Directory}
	if multi {
		t.outDir = filepath.Join(rn.cfg.Output.Directory, format.String())
	}

	app := build.NewApp(rn.logger)
	if err := app.Load(rn.registry, rn.cfg.Build.Extensions); err != nil {
		return nil, err
	}

	opts := []build.Option{build.WithRecorder(rn.recorder), build.WithLogger(rn.logger)}
	if rn.cfg.Build.StatePath != "" {
		store, err := envstore.NewSQLiteStore(StatePath(rn.cfg.Build.StatePath, format))
		if err != nil {
			return nil, err
		}
		t.store = store
		opts = append(opts, build.WithStore(store))
	}

	t.builder, err = build.NewBuilder(app, build.Options{
		SrcDir:    rn.cfg.Source.Directory,
		OutDir:    t.outDir,
		Exclude:   rn.cfg.Source.Exclude,
		Format:    format,
		Parallel:  rn.cfg.Build.Parallel,
		KeepGoing: rn.cfg.Build.KeepGoing,
		Clean:     rn.cfg.Output.Clean,
	}, opts...)
	if err != nil {
		if t.store != nil {
			_ = t.store.Close()
		}
		return nil, err
	}
	return t, nil
}

// StatePath returns the environment database of one format. Every
// format keeps its own database since outdated documents are per output.
func StatePath(base string, format render.Format) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-" + format.String() + ext
}

// Run syncs the source and builds every format.
func (rn *Runner) Run(ctx context.Context) (*Report, error) {
	rn.mu.Lock()
	defer rn.mu.Unlock()

	report := &Report{}
	if rn.source != nil {
		synced, err := rn.syncSource(ctx)
		if err != nil {
			return report, err
		}
		report.Sync = synced
	}

	for _, t := range rn.targets {
		res, err := t.builder.Build(ctx)
		if err != nil {
			return report, err
		}
		report.Results = append(report.Results, res)
		rn.recordHistory(ctx, t, res)

		if t.format == render.FormatHTML {
			broken, err := rn.htmlExtras(ctx, t, res)
			if err != nil {
				return report, err
			}
			report.Broken = append(report.Broken, broken...)
		}
		rn.notify(ctx, res)
	}
	return report, nil
}

func (rn *Runner) syncSource(ctx context.Context) (*git.SyncResult, error) {
	var res *git.SyncResult
	err := rn.policy.Do(ctx, nil, func(attempt int, err error) {
		rn.logger.Warn("Source sync failed, retrying", slog.Int("attempt", attempt), logfields.Error(err))
	}, func() error {
		var err error
		res, err = rn.source.Sync(ctx)
		return err
	})
	rn.recorder.IncSourceSync(err == nil)
	return res, err
}

func (rn *Runner) recordHistory(ctx context.Context, t *target, res *build.Result) {
	if t.store == nil {
		return
	}
	if err := t.store.AppendBuild(ctx, envstore.RecordFromResult(res, time.Now())); err != nil {
		rn.logger.Warn("Recording build history failed", logfields.BuildID(res.BuildID), logfields.Error(err))
	}
}

func (rn *Runner) htmlExtras(ctx context.Context, t *target, res *build.Result) ([]linkverify.BrokenLink, error) {
	if rn.cfg.Site.FeedEnabled() {
		site := feed.Site{
			Title:       rn.cfg.Site.Title,
			BaseURL:     rn.cfg.Site.BaseURL,
			Description: rn.cfg.Site.Description,
		}
		if err := feed.WriteFiles(t.outDir, site, res.Env); err != nil {
			return nil, err
		}
	}
	if !rn.cfg.Build.LinkCheck {
		return nil, nil
	}
	return linkverify.NewChecker(t.outDir, rn.cfg.Build.Parallel, rn.logger).Check(ctx)
}

func (rn *Runner) notify(ctx context.Context, res *build.Result) {
	if rn.notifier == nil {
		return
	}
	_ = rn.policy.Do(ctx, nil, nil, func() error {
		return rn.notifier.BuildFinished(ctx, res)
	})
}

// OutputDir returns the output directory of the first html format, or of
// the first format when no html is built.
func (rn *Runner) OutputDir() string {
	for _, t := range rn.targets {
		if t.format == render.FormatHTML {
			return t.outDir
		}
	}
	if len(rn.targets) > 0 {
		return rn.targets[0].outDir
	}
	return rn.cfg.Output.Directory
}

// primaryStore is the store of the first format.
func (rn *Runner) primaryStore() *envstore.SQLiteStore {
	if len(rn.targets) == 0 {
		return nil
	}
	return rn.targets[0].store
}

// RecentBuilds returns the latest builds of the first format, newest first.
func (rn *Runner) RecentBuilds(ctx context.Context, limit int) ([]envstore.BuildRecord, error) {
	store := rn.primaryStore()
	if store == nil {
		return []envstore.BuildRecord{}, nil
	}
	return store.RecentBuilds(ctx, limit)
}

// Environment returns the persisted environment of the first format, or
// nil when no build has been saved yet.
func (rn *Runner) Environment(ctx context.Context) (*build.Environment, error) {
	store := rn.primaryStore()
	if store == nil {
		return nil, errors.ConfigError("incremental state is disabled").
			WithContext("field", "build.state_path").
			Build()
	}
	return store.Load(ctx)
}

// Close releases the stores and the notifier.
func (rn *Runner) Close() error {
	var first error
	for _, t := range rn.targets {
		if t.store == nil {
			continue
		}
		if err := t.store.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := rn.notifier.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
