package build

import (
	"log/slog"
	"strings"

	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/docblog/internal/render"
)

// Doctree is a parsed document waiting to be resolved and written.
type Doctree struct {
	Docname string
	// Source is the Markdown body every node segment points into.
	Source []byte
	Root   ast.Node
}

// ResolveContext is passed to doctree-resolved hooks.
type ResolveContext struct {
	Env     *Environment
	Docname string
	Doc     ast.Node
	Source  []byte
	Format  render.Format
	Logger  *slog.Logger
}

// TargetURI returns the output path of docname relative to the output root.
func TargetURI(docname string, format render.Format) string {
	return docname + format.Extension()
}

// RelativeURI returns the link from the document being resolved to the
// output of docname. It is empty when both are the same document.
func (rc *ResolveContext) RelativeURI(docname string) string {
	return RelativeURI(TargetURI(rc.Docname, rc.Format), TargetURI(docname, rc.Format))
}

// RelativeURI returns a link from the output file base to the output file
// to. Both are slash separated paths relative to the output root.
func RelativeURI(base, to string) string {
	if strings.HasPrefix(to, "/") {
		return to
	}
	b := strings.Split(strings.SplitN(base, "#", 2)[0], "/")
	t := strings.Split(strings.SplitN(to, "#", 2)[0], "/")

	// Drop the common leading directories, never the file names.
	for len(b) > 1 && len(t) > 1 && b[0] == t[0] {
		b = b[1:]
		t = t[1:]
	}
	if equalStrings(b, t) {
		return ""
	}
	if len(b) == 1 && len(t) == 1 && t[0] == "" {
		return "./"
	}
	return strings.Repeat("../", len(b)-1) + strings.Join(t, "/")
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
