// Package build is the document build host: it parses Markdown with
// directive support, runs extension hooks at fixed points of the build
// lifecycle and writes the resolved documents in one output format.
package build

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/logfields"
	"git.home.luguber.info/inful/docblog/internal/plugin"
)

// Extension is a plugin that registers directives, node kinds and hooks
// with the application.
type Extension interface {
	plugin.Plugin

	// Setup registers the extension's contributions.
	Setup(app *App) error
}

// DirectiveFunc produces the nodes that replace a directive occurrence.
type DirectiveFunc func(dc *DirectiveContext) ([]ast.Node, error)

// Directive describes a directive the parser accepts.
type Directive struct {
	// Name is the directive name used in ":::{name}".
	Name string
	// Options lists the accepted option names. Any other option is an error.
	Options []string
	// HasArgument allows text after the directive name.
	HasArgument bool
	// HasContent allows content lines between the fences.
	HasContent bool
	// Run is the directive handler.
	Run DirectiveFunc
}

// DoctreeResolvedFunc is called once per document after reading completed
// and before the document is written.
type DoctreeResolvedFunc func(rc *ResolveContext) error

// EnvPurgeDocFunc removes everything the extension stored for docname.
type EnvPurgeDocFunc func(env *Environment, docname string)

// EnvMergeInfoFunc copies what a parallel worker stored for docnames from
// other into env.
type EnvMergeInfoFunc func(env *Environment, docnames map[string]struct{}, other *Environment)

// App collects what extensions contribute to a build.
type App struct {
	logger *slog.Logger

	directives map[string]Directive
	nodeKinds  []ast.NodeKind
	resolved   []DoctreeResolvedFunc
	purge      []EnvPurgeDocFunc
	merge      []EnvMergeInfoFunc
	extensions []plugin.Metadata

	mdOnce sync.Once
	md     goldmark.Markdown
}

// NewApp returns an application with no extensions loaded.
func NewApp(logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		logger:     logger,
		directives: make(map[string]Directive),
	}
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Setup loads one extension.
func (a *App) Setup(ext Extension) error {
	meta := ext.Metadata()
	if err := meta.Validate(); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid extension metadata").Build()
	}
	for _, loaded := range a.extensions {
		if loaded.Name == meta.Name {
			return errors.ConfigError("extension loaded twice").
				WithContext("extension", meta.Name).
				Build()
		}
	}
	if err := ext.Setup(a); err != nil {
		return errors.WrapError(plugin.NewError(meta.Name, "setup", err), errors.CategoryConfig, "extension setup failed").
			WithContext("extension", meta.Name).
			Build()
	}
	a.extensions = append(a.extensions, meta)
	a.logger.Debug("Extension loaded", logfields.Extension(meta.String()))
	return nil
}

// Load resolves each reference ("name" or "name@version") in registry and
// sets the extensions up in order. Required dependencies must be loaded
// earlier in refs.
func (a *App) Load(registry *plugin.Registry, refs []string) error {
	for _, ref := range refs {
		p, err := registry.Resolve(ref)
		if err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "unknown extension").
				WithContext("extension", ref).
				Build()
		}
		ext, ok := p.(Extension)
		if !ok {
			return errors.ConfigError("plugin is not a build extension").
				WithContext("extension", ref).
				Build()
		}
		for _, dep := range ext.Metadata().Dependencies {
			if !dep.Optional && !a.HasExtension(dep.Name) {
				return errors.ConfigError("extension dependency not loaded").
					WithContext("extension", ref).
					WithContext("dependency", dep.Name).
					Build()
			}
		}
		if err := a.Setup(ext); err != nil {
			return err
		}
	}
	return nil
}

// HasExtension reports whether an extension called name is loaded.
func (a *App) HasExtension(name string) bool {
	for _, m := range a.extensions {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Extensions returns the metadata of loaded extensions in load order.
func (a *App) Extensions() []plugin.Metadata {
	return append([]plugin.Metadata(nil), a.extensions...)
}

// ParallelReadSafe reports whether every loaded extension allows parallel reads.
func (a *App) ParallelReadSafe() bool {
	for _, m := range a.extensions {
		if !m.ParallelReadSafe {
			return false
		}
	}
	return true
}

// ParallelWriteSafe reports whether every loaded extension allows parallel writes.
func (a *App) ParallelWriteSafe() bool {
	for _, m := range a.extensions {
		if !m.ParallelWriteSafe {
			return false
		}
	}
	return true
}

// AddDirective registers a directive. Names are unique.
func (a *App) AddDirective(d Directive) error {
	if d.Name == "" || d.Run == nil {
		return fmt.Errorf("directive needs a name and a handler")
	}
	if _, exists := a.directives[d.Name]; exists {
		return fmt.Errorf("directive %q already registered", d.Name)
	}
	a.directives[d.Name] = d
	return nil
}

// AddNode registers a node kind that renders itself through render.Visitor.
func (a *App) AddNode(kind ast.NodeKind) {
	for _, k := range a.nodeKinds {
		if k == kind {
			return
		}
	}
	a.nodeKinds = append(a.nodeKinds, kind)
}

// NodeKinds returns the registered extension node kinds.
func (a *App) NodeKinds() []ast.NodeKind {
	return append([]ast.NodeKind(nil), a.nodeKinds...)
}

// OnDoctreeResolved registers a doctree-resolved hook.
func (a *App) OnDoctreeResolved(fn DoctreeResolvedFunc) {
	a.resolved = append(a.resolved, fn)
}

// OnEnvPurgeDoc registers an env-purge-doc hook.
func (a *App) OnEnvPurgeDoc(fn EnvPurgeDocFunc) {
	a.purge = append(a.purge, fn)
}

// OnEnvMergeInfo registers an env-merge-info hook.
func (a *App) OnEnvMergeInfo(fn EnvMergeInfoFunc) {
	a.merge = append(a.merge, fn)
}

// Markdown returns the goldmark instance with directive support. It is
// built on first use, after all extensions are loaded.
func (a *App) Markdown() goldmark.Markdown {
	a.mdOnce.Do(func() {
		a.md = goldmark.New(goldmark.WithExtensions(&directiveExtension{
			transformer: &directiveTransformer{app: a},
		}))
	})
	return a.md
}

// PurgeDoc removes docname from env, running the purge hooks.
func (a *App) PurgeDoc(env *Environment, docname string) {
	for _, fn := range a.purge {
		fn(env, docname)
	}
	env.forget(docname)
}

// MergeInfo merges what a worker environment read for docnames into env.
func (a *App) MergeInfo(env *Environment, docnames map[string]struct{}, other *Environment) {
	env.absorb(docnames, other)
	for _, fn := range a.merge {
		fn(env, docnames, other)
	}
}

// ResolveDoctree runs the doctree-resolved hooks for one document.
func (a *App) ResolveDoctree(rc *ResolveContext) error {
	for _, fn := range a.resolved {
		if err := fn(rc); err != nil {
			return err
		}
	}
	return nil
}
