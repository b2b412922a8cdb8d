package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
)

var kindCallout = ast.NewNodeKind("Callout")

type calloutNode struct {
	ast.BaseBlock
}

func (n *calloutNode) Kind() ast.NodeKind { return kindCallout }

func (n *calloutNode) Dump(source []byte, level int) { ast.DumpHelper(n, source, level, nil, nil) }

func (n *calloutNode) VisitHTML(w util.BufWriter, entering bool) error {
	if entering {
		_, _ = w.WriteString("<aside>")
	} else {
		_, _ = w.WriteString("</aside>\n")
	}
	return nil
}

func (n *calloutNode) VisitText(w util.BufWriter, entering bool) error {
	if entering {
		_, _ = w.WriteString("NOTE: ")
	} else {
		_ = w.WriteByte('\n')
	}
	return nil
}

func (n *calloutNode) VisitTexinfo(w util.BufWriter, entering bool) error {
	if entering {
		_, _ = w.WriteString("@cartouche\n")
	} else {
		_, _ = w.WriteString("\n@end cartouche\n")
	}
	return nil
}

func parseWithCallout(t *testing.T, src string) ([]byte, ast.Node) {
	t.Helper()
	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	c := &calloutNode{}
	c.AppendChild(c, ast.NewString([]byte("read {this}")))
	doc.AppendChild(doc, c)
	return source, doc
}

func renderFormat(t *testing.T, format Format, src string) string {
	t.Helper()
	source, doc := parseWithCallout(t, src)
	w, err := NewWriter(format, kindCallout)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, w.Render(&buf, source, doc))
	return buf.String()
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" HTML ")
	require.NoError(t, err)
	assert.Equal(t, FormatHTML, f)
	assert.Equal(t, ".html", f.Extension())
	assert.Equal(t, ".txt", FormatText.Extension())
	assert.Equal(t, ".texi", FormatTexinfo.Extension())

	f, err = ParseFormat("txt")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("pdf")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestNewWriterRejectsUnknownFormat(t *testing.T) {
	_, err := NewWriter(Format("epub"))
	require.Error(t, err)
}

func TestHTMLWriterUsesVisitor(t *testing.T) {
	out := renderFormat(t, FormatHTML, "# Title\n\nHello *world*.\n")
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<em>world</em>")
	assert.Contains(t, out, "<aside>read {this}</aside>")
}

func TestTextWriter(t *testing.T) {
	out := renderFormat(t, FormatText, "# Title\n\n## Sub\n\nHello *world*.\n\n- a\n- b\n\n---\n")
	assert.Contains(t, out, "Title\n=====\n\n")
	assert.Contains(t, out, "Sub\n---\n\n")
	assert.Contains(t, out, "Hello *world*.\n\n")
	assert.Contains(t, out, "* a\n* b\n")
	assert.Contains(t, out, "NOTE: read {this}\n")
	assert.Contains(t, out, "**********")
}

func TestTexinfoWriter(t *testing.T) {
	out := renderFormat(t, FormatTexinfo, "# Title\n\nSee [docs](https://example.com) and `code`.\n\n1. one\n")
	assert.Contains(t, out, "@chapter Title\n")
	assert.Contains(t, out, "@uref{https://example.com, docs}")
	assert.Contains(t, out, "@code{code}")
	assert.Contains(t, out, "@enumerate\n@item\none\n@end enumerate")
	assert.Contains(t, out, "@cartouche\nread @{this@}\n@end cartouche")
}

func TestWriteDocumentFraming(t *testing.T) {
	source, doc := parseWithCallout(t, "# A & B\n")

	w, err := NewWriter(FormatHTML, kindCallout)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, w.WriteDocument(&buf, "index", "A & B", source, doc))
	assert.Contains(t, buf.String(), "<title>A &amp; B</title>")
	assert.Contains(t, buf.String(), "</html>\n")

	w, err = NewWriter(FormatTexinfo, kindCallout)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, w.WriteDocument(&buf, "index", "A & B", source, doc))
	assert.Contains(t, buf.String(), "@setfilename index.info\n")
	assert.Contains(t, buf.String(), "@bye\n")
}

func TestPlainText(t *testing.T) {
	source := []byte("# Hello *big* `world`\n")
	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	assert.Equal(t, "Hello big world", PlainText(doc.FirstChild(), source))
}

func TestEscapeTexinfo(t *testing.T) {
	assert.Equal(t, "a@@b @{c@}", EscapeTexinfo("a@b {c}"))
}
