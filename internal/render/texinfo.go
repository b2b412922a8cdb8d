package render

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

var texinfoSections = []string{"@chapter", "@section", "@subsection", "@subsubsection"}

var texinfoEscaper = strings.NewReplacer("@", "@@", "{", "@{", "}", "@}")

// EscapeTexinfo escapes the characters texinfo treats as markup.
func EscapeTexinfo(s string) string {
	return texinfoEscaper.Replace(s)
}

// texinfoRenderer renders the standard Markdown nodes as texinfo.
type texinfoRenderer struct {
	ordered []bool
}

func newTexinfoRenderer() *texinfoRenderer { return &texinfoRenderer{} }

func (r *texinfoRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindDocument, r.renderNoop)
	reg.Register(ast.KindHeading, r.renderHeading)
	reg.Register(ast.KindParagraph, r.renderParagraph)
	reg.Register(ast.KindTextBlock, r.renderTextBlock)
	reg.Register(ast.KindBlockquote, r.renderBlockquote)
	reg.Register(ast.KindList, r.renderList)
	reg.Register(ast.KindListItem, r.renderListItem)
	reg.Register(ast.KindThematicBreak, r.renderThematicBreak)
	reg.Register(ast.KindCodeBlock, r.renderCodeBlock)
	reg.Register(ast.KindFencedCodeBlock, r.renderCodeBlock)
	reg.Register(ast.KindHTMLBlock, r.renderSkip)

	reg.Register(ast.KindText, r.renderText)
	reg.Register(ast.KindString, r.renderString)
	reg.Register(ast.KindEmphasis, r.renderEmphasis)
	reg.Register(ast.KindCodeSpan, r.renderCodeSpan)
	reg.Register(ast.KindLink, r.renderLink)
	reg.Register(ast.KindAutoLink, r.renderAutoLink)
	reg.Register(ast.KindImage, r.renderSkip)
	reg.Register(ast.KindRawHTML, r.renderSkip)
}

func (r *texinfoRenderer) renderNoop(util.BufWriter, []byte, ast.Node, bool) (ast.WalkStatus, error) {
	return ast.WalkContinue, nil
}

func (r *texinfoRenderer) renderSkip(util.BufWriter, []byte, ast.Node, bool) (ast.WalkStatus, error) {
	return ast.WalkSkipChildren, nil
}

func (r *texinfoRenderer) renderHeading(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	h := n.(*ast.Heading)
	level := h.Level - 1
	if level >= len(texinfoSections) {
		level = len(texinfoSections) - 1
	}
	_, _ = w.WriteString(texinfoSections[level])
	_ = w.WriteByte(' ')
	_, _ = w.WriteString(EscapeTexinfo(PlainText(h, source)))
	_, _ = w.WriteString("\n\n")
	return ast.WalkSkipChildren, nil
}

func (r *texinfoRenderer) renderParagraph(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("\n\n")
	}
	return ast.WalkContinue, nil
}

func (r *texinfoRenderer) renderTextBlock(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_ = w.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}

func (r *texinfoRenderer) renderBlockquote(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("@quotation\n")
	} else {
		_, _ = w.WriteString("@end quotation\n\n")
	}
	return ast.WalkContinue, nil
}

func (r *texinfoRenderer) renderList(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	l := n.(*ast.List)
	if entering {
		r.ordered = append(r.ordered, l.IsOrdered())
		if l.IsOrdered() {
			_, _ = w.WriteString("@enumerate\n")
		} else {
			_, _ = w.WriteString("@itemize @bullet\n")
		}
		return ast.WalkContinue, nil
	}
	ordered := r.ordered[len(r.ordered)-1]
	r.ordered = r.ordered[:len(r.ordered)-1]
	if ordered {
		_, _ = w.WriteString("@end enumerate\n\n")
	} else {
		_, _ = w.WriteString("@end itemize\n\n")
	}
	return ast.WalkContinue, nil
}

func (r *texinfoRenderer) renderListItem(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("@item\n")
	}
	return ast.WalkContinue, nil
}

func (r *texinfoRenderer) renderThematicBreak(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("@noindent\n@exdent @w{    ")
		_, _ = w.WriteString(strings.Repeat("_", textTransitionWidth))
		_, _ = w.WriteString("}\n\n")
	}
	return ast.WalkContinue, nil
}

func (r *texinfoRenderer) renderCodeBlock(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString("@example\n")
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		_, _ = w.WriteString(EscapeTexinfo(string(line.Value(source))))
	}
	_, _ = w.WriteString("@end example\n\n")
	return ast.WalkSkipChildren, nil
}

func (r *texinfoRenderer) renderText(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	t := n.(*ast.Text)
	_, _ = w.WriteString(EscapeTexinfo(string(t.Segment.Value(source))))
	if t.HardLineBreak() {
		_, _ = w.WriteString("@*\n")
	} else if t.SoftLineBreak() {
		_ = w.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}

func (r *texinfoRenderer) renderString(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(EscapeTexinfo(string(n.(*ast.String).Value)))
	}
	return ast.WalkContinue, nil
}

func (r *texinfoRenderer) renderEmphasis(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_ = w.WriteByte('}')
		return ast.WalkContinue, nil
	}
	if n.(*ast.Emphasis).Level >= 2 {
		_, _ = w.WriteString("@strong{")
	} else {
		_, _ = w.WriteString("@emph{")
	}
	return ast.WalkContinue, nil
}

func (r *texinfoRenderer) renderCodeSpan(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("@code{")
	} else {
		_ = w.WriteByte('}')
	}
	return ast.WalkContinue, nil
}

func (r *texinfoRenderer) renderLink(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_ = w.WriteByte('}')
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString("@uref{")
	_, _ = w.WriteString(EscapeTexinfo(string(n.(*ast.Link).Destination)))
	_, _ = w.WriteString(", ")
	return ast.WalkContinue, nil
}

func (r *texinfoRenderer) renderAutoLink(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("@uref{")
		_, _ = w.WriteString(EscapeTexinfo(string(n.(*ast.AutoLink).URL(source))))
		_ = w.WriteByte('}')
	}
	return ast.WalkSkipChildren, nil
}
