package build

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/docblog/internal/docs"
	"git.home.luguber.info/inful/docblog/internal/plugin"
)

var kindBox = ast.NewNodeKind("Box")

type boxNode struct {
	ast.BaseBlock
	Class string
}

func (n *boxNode) Kind() ast.NodeKind { return kindBox }

func (n *boxNode) Dump(source []byte, level int) { ast.DumpHelper(n, source, level, nil, nil) }

func (n *boxNode) VisitHTML(w util.BufWriter, entering bool) error {
	if entering {
		_, _ = w.WriteString(`<div class="box ` + n.Class + `">` + "\n")
	} else {
		_, _ = w.WriteString("</div>\n")
	}
	return nil
}

func (n *boxNode) VisitText(util.BufWriter, bool) error    { return nil }
func (n *boxNode) VisitTexinfo(util.BufWriter, bool) error { return nil }

// boxExtension registers a "box" directive and records hook calls.
type boxExtension struct {
	meta     plugin.Metadata
	purged   []string
	merged   int
	resolved []string
}

func newBoxExtension() *boxExtension {
	return &boxExtension{meta: plugin.Metadata{
		Name:              "box",
		Version:           "1.0",
		ParallelReadSafe:  true,
		ParallelWriteSafe: true,
	}}
}

func (e *boxExtension) Metadata() plugin.Metadata { return e.meta }

func (e *boxExtension) Setup(app *App) error {
	app.AddNode(kindBox)
	if err := app.AddDirective(Directive{
		Name:        "box",
		Options:     []string{"class"},
		HasArgument: true,
		HasContent:  true,
		Run: func(dc *DirectiveContext) ([]ast.Node, error) {
			n := &boxNode{Class: dc.Argument}
			if c, ok := dc.Option("class"); ok {
				n.Class += " " + c
			}
			children, err := dc.NestedParse()
			if err != nil {
				return nil, err
			}
			for _, c := range children {
				n.AppendChild(n, c)
			}
			return []ast.Node{n}, nil
		},
	}); err != nil {
		return err
	}
	if err := app.AddDirective(Directive{
		Name: "volatile",
		Run: func(dc *DirectiveContext) ([]ast.Node, error) {
			dc.Env.MarkVolatile(dc.Docname)
			return nil, nil
		},
	}); err != nil {
		return err
	}
	app.OnEnvPurgeDoc(func(_ *Environment, docname string) { e.purged = append(e.purged, docname) })
	app.OnEnvMergeInfo(func(*Environment, map[string]struct{}, *Environment) { e.merged++ })
	app.OnDoctreeResolved(func(rc *ResolveContext) error {
		e.resolved = append(e.resolved, rc.Docname)
		return nil
	})
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T) (*App, *boxExtension) {
	t.Helper()
	app := NewApp(discardLogger())
	ext := newBoxExtension()
	require.NoError(t, app.Setup(ext))
	return app, ext
}

func readString(t *testing.T, app *App, env *Environment, relPath, body string) (*Doctree, error) {
	t.Helper()
	doc := &docs.Document{Docname: docs.Docname(relPath), RelPath: relPath, Body: []byte(body), Frontmatter: map[string]any{}}
	return app.ReadDocument(env, doc, discardLogger())
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

type memStore struct {
	env   *Environment
	saves int
}

func (m *memStore) Load(context.Context) (*Environment, error) { return m.env, nil }

func (m *memStore) Save(_ context.Context, env *Environment) error {
	m.env = env
	m.saves++
	return nil
}

func textReader(source []byte) text.Reader {
	return text.NewReader(source)
}
