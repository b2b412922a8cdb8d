package blog

import (
	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/docblog/internal/build"
	"git.home.luguber.info/inful/docblog/internal/logfields"
	"git.home.luguber.info/inful/docblog/internal/posts"
)

// ResolveListings sorts the post list newest first and replaces every
// listing placeholder of the resolved document with the published posts.
// Without a post list the placeholders are left alone.
func ResolveListings(rc *build.ResolveContext) error {
	list := rc.Env.Posts
	if list == nil {
		return nil
	}
	list.SortByDateDesc()

	var placeholders []*AllPostsNode
	_ = ast.Walk(rc.Doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if p, ok := n.(*AllPostsNode); ok {
			placeholders = append(placeholders, p)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	published := list.Published()
	for _, p := range placeholders {
		parent := p.Parent()
		for _, rec := range published {
			parent.InsertBefore(parent, p, listingEntry(rc, rec))
		}
		parent.RemoveChild(parent, p)
	}
	if len(placeholders) > 0 {
		rc.Logger.Debug("Post listing resolved", logfields.Count(len(published)))
	}
	return nil
}

// listingEntry builds the listing section of one post: a linked title, the
// publish date and a separator.
func listingEntry(rc *build.ResolveContext, rec *posts.Record) ast.Node {
	entry := NewPostEntryNode(rec.SectionID())

	link := ast.NewLink()
	link.Destination = []byte(rc.RelativeURI(rec.Docname) + "#" + rec.Anchor)
	link.AppendChild(link, ast.NewString([]byte(rec.DisplayTitle())))

	heading := ast.NewHeading(2)
	heading.AppendChild(heading, link)
	entry.AppendChild(entry, heading)

	date := ast.NewParagraph()
	date.AppendChild(date, ast.NewString([]byte(rec.FormattedDate())))
	entry.AppendChild(entry, date)

	entry.AppendChild(entry, ast.NewThematicBreak())
	return entry
}
