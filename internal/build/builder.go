package build

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/docblog/internal/docs"
	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/logfields"
	"git.home.luguber.info/inful/docblog/internal/metrics"
	"git.home.luguber.info/inful/docblog/internal/render"
)

// Build phases, used as log and metric labels.
const (
	PhaseDiscover = "discover"
	PhasePurge    = "purge"
	PhaseRead     = "read"
	PhaseResolve  = "resolve"
	PhaseWrite    = "write"
	PhasePersist  = "persist"
)

// Store persists the environment between builds.
type Store interface {
	// Load returns the saved environment, or nil when nothing was saved.
	Load(ctx context.Context) (*Environment, error)
	Save(ctx context.Context, env *Environment) error
}

// Options configure a builder.
type Options struct {
	SrcDir string
	OutDir string
	// Exclude lists directories below SrcDir that hold no documents.
	Exclude []string
	Format  render.Format
	// Parallel is the number of read and write workers. Values below 2
	// build sequentially.
	Parallel int
	// KeepGoing continues past documents that fail to read.
	KeepGoing bool
	// Clean ignores the saved environment and empties the output directory.
	Clean bool
}

// Result summarises one build.
type Result struct {
	BuildID  string
	Format   render.Format
	Fresh    bool
	Total    int
	Read     []string
	Purged   []string
	Written  []string
	Failed   map[string]error
	Duration time.Duration
	// Env is the environment after the build.
	Env *Environment
}

// Builder runs builds of one source directory in one format.
type Builder struct {
	app      *App
	opts     Options
	store    Store
	recorder metrics.Recorder
	logger   *slog.Logger
	writer   *render.Writer
}

// Option configures optional builder collaborators.
type Option func(*Builder)

// WithStore persists the environment between builds.
func WithStore(s Store) Option { return func(b *Builder) { b.store = s } }

// WithRecorder records build metrics.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithLogger sets the builder logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder returns a builder for app. Extensions must be loaded before
// the first build.
func NewBuilder(app *App, opts Options, options ...Option) (*Builder, error) {
	if opts.SrcDir == "" || opts.OutDir == "" {
		return nil, errors.ConfigError("source and output directories are required").Build()
	}
	if opts.Format == "" {
		opts.Format = render.FormatHTML
	}
	b := &Builder{
		app:      app,
		opts:     opts,
		recorder: metrics.NoopRecorder{},
		logger:   app.Logger(),
	}
	for _, o := range options {
		o(b)
	}
	w, err := render.NewWriter(opts.Format, app.NodeKinds()...)
	if err != nil {
		return nil, err
	}
	b.writer = w
	return b, nil
}

// Build runs one build.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{
		BuildID: uuid.NewString(),
		Format:  b.opts.Format,
		Failed:  make(map[string]error),
	}
	logger := b.logger.With(logfields.BuildID(res.BuildID), logfields.Format(b.opts.Format.String()))
	logger.Info("Build started", logfields.Path(b.opts.SrcDir))

	err := b.run(ctx, logger, res)
	res.Duration = time.Since(start)
	b.recorder.ObserveBuildDuration(res.Duration)

	switch {
	case err != nil && ctx.Err() != nil:
		b.recorder.IncBuildOutcome(metrics.BuildOutcomeCanceled)
	case err != nil:
		b.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
	case len(res.Failed) > 0:
		b.recorder.IncBuildOutcome(metrics.BuildOutcomeWarning)
	default:
		b.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
	}
	if err != nil {
		logger.Error("Build failed", logfields.Error(err))
		return res, err
	}
	logger.Info("Build finished",
		logfields.Count(len(res.Written)),
		logfields.DurationMS(float64(res.Duration.Milliseconds())),
		slog.Int("failed", len(res.Failed)))
	return res, nil
}

func (b *Builder) run(ctx context.Context, logger *slog.Logger, res *Result) error {
	var documents []*docs.Document
	if err := b.phase(logger, PhaseDiscover, func() error {
		var err error
		documents, err = docs.NewDiscovery(b.opts.SrcDir, append([]string{b.opts.OutDir}, b.opts.Exclude...)...).Discover()
		return err
	}); err != nil {
		return err
	}
	res.Total = len(documents)

	env, fresh, err := b.loadEnvironment(ctx)
	if err != nil {
		return err
	}
	res.Env = env
	res.Fresh = fresh

	outdated, removed := Outdated(env, documents, fresh)

	if err := b.phase(logger, PhasePurge, func() error {
		for _, name := range removed {
			b.app.PurgeDoc(env, name)
			b.removeOutput(name)
		}
		for _, doc := range outdated {
			b.app.PurgeDoc(env, doc.Docname)
		}
		res.Purged = append(res.Purged, removed...)
		b.recorder.AddDocuments(PhasePurge, len(removed))
		return nil
	}); err != nil {
		return err
	}

	var trees []*Doctree
	if err := b.phase(logger, PhaseRead, func() error {
		var err error
		if b.opts.Parallel > 1 && b.app.ParallelReadSafe() && len(outdated) > 1 {
			trees, err = b.readParallel(ctx, logger, env, outdated, res)
		} else {
			trees, err = b.readSequential(ctx, logger, env, outdated, res)
		}
		b.recorder.AddDocuments(PhaseRead, len(trees))
		return err
	}); err != nil {
		return err
	}
	for _, t := range trees {
		res.Read = append(res.Read, t.Docname)
	}

	if err := b.phase(logger, PhaseResolve, func() error {
		for _, t := range trees {
			if err := ctx.Err(); err != nil {
				return err
			}
			rc := &ResolveContext{
				Env:     env,
				Docname: t.Docname,
				Doc:     t.Root,
				Source:  t.Source,
				Format:  b.opts.Format,
				Logger:  logger.With(logfields.Docname(t.Docname)),
			}
			if err := b.app.ResolveDoctree(rc); err != nil {
				return errors.WrapError(err, errors.CategoryBuild, "resolve document").
					WithContext("docname", t.Docname).
					Build()
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := b.phase(logger, PhaseWrite, func() error {
		written, err := b.writeAll(ctx, env, trees)
		res.Written = written
		b.recorder.AddDocuments(PhaseWrite, len(written))
		return err
	}); err != nil {
		return err
	}

	total, published := env.Posts.Len(), len(env.Posts.Published())
	b.recorder.SetPosts(total, published)

	if b.store == nil {
		return nil
	}
	return b.phase(logger, PhasePersist, func() error {
		return b.store.Save(ctx, env)
	})
}

func (b *Builder) phase(logger *slog.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	b.recorder.ObservePhaseDuration(name, elapsed)
	if err != nil {
		b.recorder.IncPhaseResult(name, metrics.ResultFatal)
		return err
	}
	b.recorder.IncPhaseResult(name, metrics.ResultSuccess)
	logger.Debug("Phase complete", logfields.Phase(name), logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	return nil
}

func (b *Builder) loadEnvironment(ctx context.Context) (*Environment, bool, error) {
	if b.opts.Clean {
		if err := os.RemoveAll(b.opts.OutDir); err != nil {
			return nil, false, errors.WrapError(err, errors.CategoryFileSystem, "clean output directory").
				WithContext("path", b.opts.OutDir).
				Build()
		}
		return NewEnvironment(), true, nil
	}
	if b.store == nil {
		return NewEnvironment(), true, nil
	}
	env, err := b.store.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	if env == nil {
		return NewEnvironment(), true, nil
	}
	return env, false, nil
}

// Outdated returns the documents that must be read (added, changed or
// volatile) and the docnames that no longer exist. With fresh set, every
// document is outdated.
func Outdated(env *Environment, documents []*docs.Document, fresh bool) ([]*docs.Document, []string) {
	current := make(map[string]struct{}, len(documents))
	var outdated []*docs.Document
	for _, doc := range documents {
		current[doc.Docname] = struct{}{}
		info, known := env.Docs[doc.Docname]
		switch {
		case fresh, !known, info.Fingerprint != doc.Fingerprint, env.IsVolatile(doc.Docname):
			outdated = append(outdated, doc)
		}
	}
	var removed []string
	for _, name := range env.Docnames() {
		if _, ok := current[name]; !ok {
			removed = append(removed, name)
		}
	}
	return outdated, removed
}

// ReadDocument parses one document into env. Directive handlers run during
// the parse and may register state on env.
func (a *App) ReadDocument(env *Environment, doc *docs.Document, logger *slog.Logger) (*Doctree, error) {
	env.BeginDocument(doc.Docname)
	defer env.EndDocument()

	st := &readState{env: env, doc: doc, logger: logger.With(logfields.Docname(doc.Docname))}
	pc := parser.NewContext()
	pc.Set(readStateKey, st)
	root := a.Markdown().Parser().Parse(text.NewReader(doc.Body), parser.WithContext(pc))
	if st.err != nil {
		return nil, st.err
	}

	env.Docs[doc.Docname] = DocInfo{
		RelPath:     doc.RelPath,
		Fingerprint: doc.Fingerprint,
		Title:       FirstHeading(root, doc.Body),
	}
	return &Doctree{Docname: doc.Docname, Source: doc.Body, Root: root}, nil
}

func (b *Builder) readOne(env *Environment, doc *docs.Document, logger *slog.Logger) (*Doctree, error) {
	tree, err := b.app.ReadDocument(env, doc, logger)
	if err != nil {
		// Drop whatever the failed read registered so far.
		b.app.PurgeDoc(env, doc.Docname)
		return nil, err
	}
	return tree, nil
}

func (b *Builder) readSequential(ctx context.Context, logger *slog.Logger, env *Environment, outdated []*docs.Document, res *Result) ([]*Doctree, error) {
	trees := make([]*Doctree, 0, len(outdated))
	for _, doc := range outdated {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tree, err := b.readOne(env, doc, logger)
		if err != nil {
			if !b.opts.KeepGoing {
				return nil, err
			}
			res.Failed[doc.Docname] = err
			logger.Warn("Document skipped", logfields.Docname(doc.Docname), logfields.Error(err))
			continue
		}
		trees = append(trees, tree)
	}
	return trees, nil
}

type workerResult struct {
	env    *Environment
	trees  []*Doctree
	failed map[string]error
}

func (b *Builder) readParallel(ctx context.Context, logger *slog.Logger, env *Environment, outdated []*docs.Document, res *Result) ([]*Doctree, error) {
	chunks := chunkDocuments(outdated, b.opts.Parallel)
	results := make([]workerResult, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		child := env.Fork()
		results[i] = workerResult{env: child, failed: make(map[string]error)}
		g.Go(func() error {
			wlog := logger.With(logfields.Worker(i))
			for _, doc := range chunk {
				if err := gctx.Err(); err != nil {
					return err
				}
				tree, err := b.readOne(child, doc, wlog)
				if err != nil {
					if !b.opts.KeepGoing {
						return err
					}
					results[i].failed[doc.Docname] = err
					wlog.Warn("Document skipped", logfields.Docname(doc.Docname), logfields.Error(err))
					continue
				}
				results[i].trees = append(results[i].trees, tree)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var trees []*Doctree
	for _, r := range results {
		docnames := make(map[string]struct{}, len(r.trees))
		for _, t := range r.trees {
			docnames[t.Docname] = struct{}{}
		}
		b.app.MergeInfo(env, docnames, r.env)
		trees = append(trees, r.trees...)
		for name, err := range r.failed {
			res.Failed[name] = err
		}
	}
	sort.Slice(trees, func(i, j int) bool { return trees[i].Docname < trees[j].Docname })
	return trees, nil
}

// chunkDocuments splits documents into at most n contiguous chunks.
func chunkDocuments(documents []*docs.Document, n int) [][]*docs.Document {
	if n > len(documents) {
		n = len(documents)
	}
	if n < 1 {
		return nil
	}
	size := (len(documents) + n - 1) / n
	chunks := make([][]*docs.Document, 0, n)
	for start := 0; start < len(documents); start += size {
		end := start + size
		if end > len(documents) {
			end = len(documents)
		}
		chunks = append(chunks, documents[start:end])
	}
	return chunks
}

func (b *Builder) writeAll(ctx context.Context, env *Environment, trees []*Doctree) ([]string, error) {
	written := make([]string, len(trees))
	g, gctx := errgroup.WithContext(ctx)
	if b.opts.Parallel > 1 && b.app.ParallelWriteSafe() {
		g.SetLimit(b.opts.Parallel)
	} else {
		g.SetLimit(1)
	}
	for i, t := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := b.writeOne(env, t); err != nil {
				return err
			}
			written[i] = t.Docname
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return written, nil
}

func (b *Builder) writeOne(env *Environment, t *Doctree) error {
	target := filepath.Join(b.opts.OutDir, filepath.FromSlash(TargetURI(t.Docname, b.opts.Format)))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
			WithContext("path", filepath.Dir(target)).
			Build()
	}
	f, err := os.Create(target)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create output file").
			WithContext("path", target).
			Build()
	}
	title := env.Docs[t.Docname].Title
	if title == "" {
		title = t.Docname
	}
	if err := b.writer.WriteDocument(f, t.Docname, title, t.Source, t.Root); err != nil {
		_ = f.Close()
		return errors.WrapError(err, errors.CategoryBuild, "write document").
			WithContext("docname", t.Docname).
			Build()
	}
	if err := f.Close(); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "close output file").
			WithContext("path", target).
			Build()
	}
	return nil
}

func (b *Builder) removeOutput(docname string) {
	target := filepath.Join(b.opts.OutDir, filepath.FromSlash(TargetURI(docname, b.opts.Format)))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		b.logger.Warn("Failed to remove stale output", logfields.Path(target), logfields.Error(err))
	}
}
