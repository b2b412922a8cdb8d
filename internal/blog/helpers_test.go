package blog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/docblog/internal/build"
	"git.home.luguber.info/inful/docblog/internal/docs"
	"git.home.luguber.info/inful/docblog/internal/posts"
	"git.home.luguber.info/inful/docblog/internal/render"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newApp(t *testing.T) *build.App {
	t.Helper()
	app := build.NewApp(discardLogger())
	require.NoError(t, app.Setup(New()))
	return app
}

// read parses body as the document at relPath into env.
func read(t *testing.T, app *build.App, env *build.Environment, relPath, body string) (*build.Doctree, error) {
	t.Helper()
	return readWithFrontmatter(t, app, env, relPath, body, map[string]any{})
}

func readWithFrontmatter(t *testing.T, app *build.App, env *build.Environment, relPath, body string, fm map[string]any) (*build.Doctree, error) {
	t.Helper()
	doc := &docs.Document{
		Docname:     docs.Docname(relPath),
		RelPath:     relPath,
		Body:        []byte(body),
		Frontmatter: fm,
	}
	return app.ReadDocument(env, doc, discardLogger())
}

// renderTree resolves tree for format and renders it without page framing.
func renderTree(t *testing.T, app *build.App, env *build.Environment, tree *build.Doctree, format render.Format) string {
	t.Helper()
	require.NoError(t, app.ResolveDoctree(&build.ResolveContext{
		Env:     env,
		Docname: tree.Docname,
		Doc:     tree.Root,
		Source:  tree.Source,
		Format:  format,
		Logger:  discardLogger(),
	}))
	w, err := render.NewWriter(format, app.NodeKinds()...)
	require.NoError(t, err)
	var sb strings.Builder
	require.NoError(t, w.Render(&sb, tree.Source, tree.Root))
	return sb.String()
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(posts.SourceDateLayout, s)
	require.NoError(t, err)
	return d
}

func postBody(title, options, content string) string {
	return "# " + title + "\n\n:::{post}\n" + options + "\n" + content + "\n:::\n"
}

func countKind(root ast.Node, kind ast.NodeKind) int {
	n := 0
	_ = ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && node.Kind() == kind {
			n++
		}
		return ast.WalkContinue, nil
	})
	return n
}
