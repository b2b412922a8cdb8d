package render

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// textTransitionWidth is the width of the line drawn for thematic breaks.
const textTransitionWidth = 70

type listState struct {
	ordered bool
	next    int
}

// textRenderer renders the standard Markdown nodes as plain text. Headings
// are underlined, emphasis keeps its asterisks and code blocks are indented.
type textRenderer struct {
	lists []listState
}

func newTextRenderer() *textRenderer { return &textRenderer{} }

func (r *textRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindDocument, r.renderNoop)
	reg.Register(ast.KindHeading, r.renderHeading)
	reg.Register(ast.KindParagraph, r.renderParagraph)
	reg.Register(ast.KindTextBlock, r.renderTextBlock)
	reg.Register(ast.KindBlockquote, r.renderNoop)
	reg.Register(ast.KindList, r.renderList)
	reg.Register(ast.KindListItem, r.renderListItem)
	reg.Register(ast.KindThematicBreak, r.renderThematicBreak)
	reg.Register(ast.KindCodeBlock, r.renderCodeBlock)
	reg.Register(ast.KindFencedCodeBlock, r.renderCodeBlock)
	reg.Register(ast.KindHTMLBlock, r.renderSkip)

	reg.Register(ast.KindText, r.renderText)
	reg.Register(ast.KindString, r.renderString)
	reg.Register(ast.KindEmphasis, r.renderEmphasis)
	reg.Register(ast.KindCodeSpan, r.renderNoop)
	reg.Register(ast.KindLink, r.renderNoop)
	reg.Register(ast.KindAutoLink, r.renderAutoLink)
	reg.Register(ast.KindImage, r.renderImage)
	reg.Register(ast.KindRawHTML, r.renderSkip)
}

func (r *textRenderer) renderNoop(util.BufWriter, []byte, ast.Node, bool) (ast.WalkStatus, error) {
	return ast.WalkContinue, nil
}

func (r *textRenderer) renderSkip(util.BufWriter, []byte, ast.Node, bool) (ast.WalkStatus, error) {
	return ast.WalkSkipChildren, nil
}

func (r *textRenderer) renderHeading(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	h := n.(*ast.Heading)
	title := PlainText(h, source)
	underline := "="
	if h.Level > 1 {
		underline = "-"
	}
	_, _ = w.WriteString(title)
	_ = w.WriteByte('\n')
	_, _ = w.WriteString(strings.Repeat(underline, len([]rune(title))))
	_, _ = w.WriteString("\n\n")
	return ast.WalkSkipChildren, nil
}

func (r *textRenderer) renderParagraph(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("\n\n")
	}
	return ast.WalkContinue, nil
}

func (r *textRenderer) renderTextBlock(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_ = w.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}

func (r *textRenderer) renderList(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	l := n.(*ast.List)
	if entering {
		r.lists = append(r.lists, listState{ordered: l.IsOrdered(), next: l.Start})
		return ast.WalkContinue, nil
	}
	r.lists = r.lists[:len(r.lists)-1]
	if len(r.lists) == 0 {
		_ = w.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}

func (r *textRenderer) renderListItem(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering || len(r.lists) == 0 {
		return ast.WalkContinue, nil
	}
	depth := len(r.lists) - 1
	state := &r.lists[depth]
	_, _ = w.WriteString(strings.Repeat("  ", depth))
	if state.ordered {
		_, _ = w.WriteString(strconv.Itoa(state.next))
		_, _ = w.WriteString(". ")
		state.next++
	} else {
		_, _ = w.WriteString("* ")
	}
	return ast.WalkContinue, nil
}

func (r *textRenderer) renderThematicBreak(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(strings.Repeat("*", textTransitionWidth))
		_, _ = w.WriteString("\n\n")
	}
	return ast.WalkContinue, nil
}

func (r *textRenderer) renderCodeBlock(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		_, _ = w.WriteString("    ")
		_, _ = w.Write(line.Value(source))
	}
	_ = w.WriteByte('\n')
	return ast.WalkSkipChildren, nil
}

func (r *textRenderer) renderText(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	t := n.(*ast.Text)
	_, _ = w.Write(t.Segment.Value(source))
	if t.SoftLineBreak() || t.HardLineBreak() {
		_ = w.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}

func (r *textRenderer) renderString(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.Write(n.(*ast.String).Value)
	}
	return ast.WalkContinue, nil
}

func (r *textRenderer) renderEmphasis(w util.BufWriter, _ []byte, n ast.Node, _ bool) (ast.WalkStatus, error) {
	_, _ = w.WriteString(strings.Repeat("*", n.(*ast.Emphasis).Level))
	return ast.WalkContinue, nil
}

func (r *textRenderer) renderAutoLink(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.Write(n.(*ast.AutoLink).URL(source))
	}
	return ast.WalkSkipChildren, nil
}

func (r *textRenderer) renderImage(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("[image: ")
	} else {
		_ = w.WriteByte(']')
	}
	return ast.WalkContinue, nil
}
