// Package blog adds blog posts to a documentation build. A post directive
// registers the enclosing document as a dated post and an all-posts
// directive is replaced by a reverse chronological listing of every
// published post, linking back to the documents that hold them.
package blog

import (
	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/docblog/internal/build"
	"git.home.luguber.info/inful/docblog/internal/plugin"
)

// Name is the extension name used in configuration.
const Name = "blog"

// Version is the extension version.
const Version = "0.1"

// Extension is the blog build extension.
type Extension struct{}

// New returns the blog extension.
func New() *Extension { return &Extension{} }

// Metadata implements plugin.Plugin.
func (e *Extension) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:              Name,
		Version:           Version,
		Description:       "Blog posts and a listing of all published posts",
		ParallelReadSafe:  true,
		ParallelWriteSafe: true,
	}
}

// Setup implements build.Extension.
func (e *Extension) Setup(app *build.App) error {
	for _, kind := range []ast.NodeKind{KindAllPosts, KindPost, KindTarget, KindPostEntry} {
		app.AddNode(kind)
	}
	if err := app.AddDirective(build.Directive{
		Name: "all-posts",
		Run:  runAllPosts,
	}); err != nil {
		return err
	}
	if err := app.AddDirective(build.Directive{
		Name:       "post",
		Options:    []string{OptionTags, OptionCategory, OptionAuthor, OptionDraft},
		HasContent: true,
		Run:        runPost,
	}); err != nil {
		return err
	}
	app.OnDoctreeResolved(ResolveListings)
	app.OnEnvPurgeDoc(PurgeDoc)
	app.OnEnvMergeInfo(MergeInfo)
	return nil
}

// Register adds the blog extension to registry.
func Register(registry *plugin.Registry) error {
	return registry.Register(New())
}

var _ build.Extension = (*Extension)(nil)
