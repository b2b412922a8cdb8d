package blog

import (
	"html"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/docblog/internal/render"
)

var (
	// KindPost is the node kind of a post body.
	KindPost = ast.NewNodeKind("Post")
	// KindAllPosts is the node kind of the listing placeholder.
	KindAllPosts = ast.NewNodeKind("AllPosts")
	// KindTarget is the node kind of a link target.
	KindTarget = ast.NewNodeKind("Target")
	// KindPostEntry is the node kind of one entry of a generated listing.
	KindPostEntry = ast.NewNodeKind("PostEntry")
)

// PostNode wraps the content of one post directive.
type PostNode struct {
	ast.BaseBlock
}

// NewPostNode returns an empty post node.
func NewPostNode() *PostNode { return &PostNode{} }

func (n *PostNode) Kind() ast.NodeKind { return KindPost }

func (n *PostNode) Dump(source []byte, level int) { ast.DumpHelper(n, source, level, nil, nil) }

func (n *PostNode) VisitHTML(w util.BufWriter, entering bool) error {
	if entering {
		_, _ = w.WriteString("<section class=\"post\">\n")
	} else {
		_, _ = w.WriteString("</section>\n")
	}
	return nil
}

func (n *PostNode) VisitText(w util.BufWriter, entering bool) error {
	if !entering {
		_ = w.WriteByte('\n')
	}
	return nil
}

func (n *PostNode) VisitTexinfo(util.BufWriter, bool) error { return nil }

// AllPostsNode marks where the post listing goes. It is replaced during
// resolution; when no post exists it stays and renders as an empty section.
type AllPostsNode struct {
	ast.BaseBlock
}

// NewAllPostsNode returns a listing placeholder.
func NewAllPostsNode() *AllPostsNode { return &AllPostsNode{} }

func (n *AllPostsNode) Kind() ast.NodeKind { return KindAllPosts }

func (n *AllPostsNode) Dump(source []byte, level int) { ast.DumpHelper(n, source, level, nil, nil) }

func (n *AllPostsNode) VisitHTML(w util.BufWriter, entering bool) error {
	if entering {
		_, _ = w.WriteString("<section class=\"all-posts\">\n")
	} else {
		_, _ = w.WriteString("</section>\n")
	}
	return nil
}

func (n *AllPostsNode) VisitText(util.BufWriter, bool) error { return nil }

func (n *AllPostsNode) VisitTexinfo(util.BufWriter, bool) error { return nil }

// TargetNode is an empty element carrying a link target id.
type TargetNode struct {
	ast.BaseBlock
	ID string
}

// NewTargetNode returns a target for id.
func NewTargetNode(id string) *TargetNode { return &TargetNode{ID: id} }

func (n *TargetNode) Kind() ast.NodeKind { return KindTarget }

func (n *TargetNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"ID": n.ID}, nil)
}

func (n *TargetNode) VisitHTML(w util.BufWriter, entering bool) error {
	if entering {
		_, _ = w.WriteString("<span id=\"" + html.EscapeString(n.ID) + "\"></span>\n")
	}
	return nil
}

func (n *TargetNode) VisitText(util.BufWriter, bool) error { return nil }

func (n *TargetNode) VisitTexinfo(w util.BufWriter, entering bool) error {
	if entering {
		_, _ = w.WriteString("@anchor{" + render.EscapeTexinfo(n.ID) + "}\n")
	}
	return nil
}

// PostEntryNode is one post of a generated listing.
type PostEntryNode struct {
	ast.BaseBlock
	ID string
}

// NewPostEntryNode returns a listing entry with the given section id.
func NewPostEntryNode(id string) *PostEntryNode { return &PostEntryNode{ID: id} }

func (n *PostEntryNode) Kind() ast.NodeKind { return KindPostEntry }

func (n *PostEntryNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"ID": n.ID}, nil)
}

func (n *PostEntryNode) VisitHTML(w util.BufWriter, entering bool) error {
	if entering {
		_, _ = w.WriteString("<section id=\"" + html.EscapeString(n.ID) + "\" class=\"post-entry\">\n")
	} else {
		_, _ = w.WriteString("</section>\n")
	}
	return nil
}

func (n *PostEntryNode) VisitText(util.BufWriter, bool) error { return nil }

func (n *PostEntryNode) VisitTexinfo(util.BufWriter, bool) error { return nil }

var (
	_ render.Visitor = (*PostNode)(nil)
	_ render.Visitor = (*AllPostsNode)(nil)
	_ render.Visitor = (*TargetNode)(nil)
	_ render.Visitor = (*PostEntryNode)(nil)
)
