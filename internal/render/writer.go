package render

import (
	"bufio"
	"fmt"
	"html"
	"io"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
)

const (
	basePriority    = 1000
	visitorPriority = 100
)

// Writer renders doctrees in one format. Extension node kinds passed to
// NewWriter are rendered through their Visitor implementation.
type Writer struct {
	format Format
	kinds  []ast.NodeKind
}

// NewWriter returns a writer for format.
func NewWriter(format Format, kinds ...ast.NodeKind) (*Writer, error) {
	if !format.IsValid() {
		return nil, errors.ValidationError("unsupported output format").
			WithContext("format", string(format)).
			Build()
	}
	return &Writer{format: format, kinds: kinds}, nil
}

// Format returns the writer's output format.
func (w *Writer) Format() Format { return w.format }

// newRenderer builds a fresh renderer. The text and texinfo renderers keep
// list state, so a renderer is never shared between documents.
func (w *Writer) newRenderer() renderer.Renderer {
	var base renderer.NodeRenderer
	switch w.format {
	case FormatText:
		base = newTextRenderer()
	case FormatTexinfo:
		base = newTexinfoRenderer()
	default:
		base = gmhtml.NewRenderer(gmhtml.WithUnsafe())
	}
	return renderer.NewRenderer(renderer.WithNodeRenderers(
		util.Prioritized(base, basePriority),
		util.Prioritized(&visitorRenderer{format: w.format, kinds: w.kinds}, visitorPriority),
	))
}

// Render writes the body of doc without any page framing.
func (w *Writer) Render(out io.Writer, source []byte, doc ast.Node) error {
	if err := w.newRenderer().Render(out, source, doc); err != nil {
		return errors.WrapError(err, errors.CategoryBuild, "render document").
			WithContext("format", string(w.format)).
			Build()
	}
	return nil
}

// WriteDocument writes doc as a complete output file: an HTML page, a
// standalone texinfo file, or plain text.
func (w *Writer) WriteDocument(out io.Writer, name, title string, source []byte, doc ast.Node) error {
	bw := bufio.NewWriter(out)
	switch w.format {
	case FormatHTML:
		_, _ = fmt.Fprintf(bw, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", html.EscapeString(title))
	case FormatTexinfo:
		_, _ = fmt.Fprintf(bw, "\\input texinfo\n@setfilename %s.info\n@settitle %s\n\n@node Top\n@top %s\n\n",
			name, EscapeTexinfo(title), EscapeTexinfo(title))
	case FormatText:
	}
	if err := w.Render(bw, source, doc); err != nil {
		return err
	}
	switch w.format {
	case FormatHTML:
		_, _ = bw.WriteString("</body>\n</html>\n")
	case FormatTexinfo:
		_, _ = bw.WriteString("@bye\n")
	case FormatText:
	}
	if err := bw.Flush(); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write document").
			WithContext("document", name).
			Build()
	}
	return nil
}
