package build

import (
	"log/slog"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/docblog/internal/docs"
	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/render"
)

var readStateKey = parser.NewContextKey()

// readState is the per-document state shared by the outer parse and every
// nested parse of directive content.
type readState struct {
	env    *Environment
	doc    *docs.Document
	logger *slog.Logger
	root   ast.Node
	err    error
}

type directiveTransformer struct {
	app *App
}

func (t *directiveTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	st, _ := pc.Get(readStateKey).(*readState)
	if st == nil {
		return
	}
	if st.root == nil {
		st.root = node
	}

	var found []*DirectiveNode
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if d, ok := n.(*DirectiveNode); ok {
			found = append(found, d)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	source := reader.Source()
	for _, d := range found {
		parent := d.Parent()
		if st.err != nil {
			parent.RemoveChild(parent, d)
			continue
		}
		nodes, err := t.app.runDirective(st, d, source, pc)
		if err != nil {
			st.err = err
			parent.RemoveChild(parent, d)
			continue
		}
		for _, n := range nodes {
			parent.InsertBefore(parent, d, n)
		}
		parent.RemoveChild(parent, d)
	}
}

func (a *App) runDirective(st *readState, d *DirectiveNode, source []byte, pc parser.Context) ([]ast.Node, error) {
	dc := &DirectiveContext{
		Name:     d.Name,
		Argument: d.Argument,
		Env:      st.env,
		Docname:  st.doc.Docname,
		Logger:   st.logger,
		node:     d,
		source:   source,
		state:    st,
		pc:       pc,
		app:      a,
	}

	spec, ok := a.directives[d.Name]
	if !ok {
		return nil, dc.Error("unknown directive").Build()
	}
	for _, name := range d.OptionOrder {
		if !containsString(spec.Options, name) {
			return nil, dc.Error("unknown option").WithContext("option", name).Build()
		}
	}
	if d.Argument != "" && !spec.HasArgument {
		return nil, dc.Error("no argument permitted").Build()
	}
	if !spec.HasContent && d.HasContent(source) {
		return nil, dc.Error("no content permitted").Build()
	}
	return spec.Run(dc)
}

// DirectiveContext gives a directive handler access to the directive as
// written and to the document being read.
type DirectiveContext struct {
	// Name is the directive name.
	Name string
	// Argument is the text after the directive name.
	Argument string
	// Env is the build environment.
	Env *Environment
	// Docname is the document being read.
	Docname string
	// Logger carries the document's log attributes.
	Logger *slog.Logger

	node   *DirectiveNode
	source []byte
	state  *readState
	pc     parser.Context
	app    *App
}

// Option returns an option value and whether the option was given. A bare
// flag option has an empty value.
func (dc *DirectiveContext) Option(name string) (string, bool) {
	v, ok := dc.node.Options[name]
	return v, ok
}

// SourcePath returns the slash separated source path of the document,
// relative to the source directory.
func (dc *DirectiveContext) SourcePath() string {
	return dc.state.doc.RelPath
}

// Frontmatter returns the document's frontmatter fields.
func (dc *DirectiveContext) Frontmatter() map[string]any {
	return dc.state.doc.Frontmatter
}

// Source returns the bytes every node segment of this document points into.
func (dc *DirectiveContext) Source() []byte {
	return dc.source
}

// DocumentTitle returns the text of the first heading of the document, or
// "" when it has none.
func (dc *DirectiveContext) DocumentTitle() string {
	return FirstHeading(dc.state.root, dc.source)
}

// NestedParse parses the directive content as Markdown and returns the
// resulting top level nodes. Directives inside the content are processed
// with the same document state.
func (dc *DirectiveContext) NestedParse() ([]ast.Node, error) {
	lines := dc.node.Lines()
	if lines.Len() == 0 {
		return nil, nil
	}
	reader := text.NewBlockReader(dc.source, lines)

	nested := parser.NewContext()
	nested.Set(readStateKey, dc.state)
	for _, ref := range dc.pc.References() {
		nested.AddReference(ref)
	}

	doc := dc.app.Markdown().Parser().Parse(reader, parser.WithContext(nested))
	if dc.state.err != nil {
		return nil, dc.state.err
	}

	var nodes []ast.Node
	for c := doc.FirstChild(); c != nil; {
		next := c.NextSibling()
		doc.RemoveChild(doc, c)
		nodes = append(nodes, c)
		c = next
	}
	return nodes, nil
}

// Error starts a docs error carrying the document and directive names.
func (dc *DirectiveContext) Error(message string) *errors.ErrorBuilder {
	return errors.DocsError(message).
		WithContext("docname", dc.Docname).
		WithContext("directive", dc.Name)
}

// FirstHeading returns the plain text of the first heading below root.
func FirstHeading(root ast.Node, source []byte) string {
	if root == nil {
		return ""
	}
	var title string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			title = render.PlainText(h, source)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(title)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
