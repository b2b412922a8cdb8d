package render

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
)

// PlainText returns the concatenated inline text below n, ignoring markup.
func PlainText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	writePlainText(&buf, n, source)
	return string(bytes.TrimSpace(buf.Bytes()))
}

func writePlainText(buf *bytes.Buffer, n ast.Node, source []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.AutoLink:
			buf.Write(t.Label(source))
		default:
			writePlainText(buf, c, source)
		}
	}
}
