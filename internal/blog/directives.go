package blog

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/docblog/internal/build"
	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/logfields"
	"git.home.luguber.info/inful/docblog/internal/posts"
)

// Options of the post directive.
const (
	OptionTags     = "tags"
	OptionCategory = "category"
	OptionAuthor   = "author"
	OptionDraft    = "draft"
)

// anchorCategory prefixes post target ids ("post-0").
const anchorCategory = "post"

// PublishedPrefix starts the line placed at the top of every post.
const PublishedPrefix = "Published on: "

func runAllPosts(dc *build.DirectiveContext) ([]ast.Node, error) {
	dc.Env.MarkVolatile(dc.Docname)
	return []ast.Node{NewAllPostsNode()}, nil
}

func runPost(dc *build.DirectiveContext) ([]ast.Node, error) {
	author, err := requiredOption(dc, OptionAuthor)
	if err != nil {
		return nil, err
	}
	rawTags, err := requiredOption(dc, OptionTags)
	if err != nil {
		return nil, err
	}
	draft, err := draftOption(dc)
	if err != nil {
		return nil, err
	}
	category, _ := dc.Option(OptionCategory)

	date, err := posts.ExtractDate(dc.SourcePath())
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDocs, "post needs a date in its file name").
			WithContext("docname", dc.Docname).
			WithContext("directive", dc.Name).
			Build()
	}

	node := NewPostNode()
	published := ast.NewParagraph()
	published.AppendChild(published, ast.NewString([]byte(PublishedPrefix+date.Format(posts.DisplayLayout))))
	node.AppendChild(node, published)
	node.AppendChild(node, ast.NewThematicBreak())

	title := documentTitle(dc)

	children, err := dc.NestedParse()
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		node.AppendChild(node, c)
	}

	anchor := dc.Env.NewID(anchorCategory)
	target := NewTargetNode(anchor)

	if dc.Env.Posts == nil {
		dc.Env.Posts = posts.NewList()
	}
	dc.Env.Posts.Append(&posts.Record{
		Title:    title,
		Docname:  dc.Docname,
		Anchor:   anchor,
		Date:     date,
		Content:  node,
		Author:   author,
		Tags:     posts.ParseTags(rawTags),
		Category: strings.TrimSpace(category),
		Draft:    draft,
	})
	dc.Logger.Debug("Post registered", logfields.Anchor(anchor), slog.Bool("draft", draft))

	return []ast.Node{target, node}, nil
}

// documentTitle returns the first heading of the document, falling back to
// the frontmatter title.
func documentTitle(dc *build.DirectiveContext) string {
	if title := dc.DocumentTitle(); title != "" {
		return title
	}
	if t, ok := dc.Frontmatter()["title"].(string); ok {
		return strings.TrimSpace(t)
	}
	return ""
}

func requiredOption(dc *build.DirectiveContext, name string) (string, error) {
	v, ok := dc.Option(name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", dc.Error("missing required option").
			WithContext("option", name).
			UserAction().
			Build()
	}
	return strings.TrimSpace(v), nil
}

// draftOption reads the draft flag. A bare ":draft:" means true.
func draftOption(dc *build.DirectiveContext) (bool, error) {
	v, ok := dc.Option(OptionDraft)
	if !ok {
		return false, nil
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return true, nil
	}
	draft, err := strconv.ParseBool(v)
	if err != nil {
		return false, dc.Error("invalid boolean option").
			WithCause(err).
			WithContext("option", OptionDraft).
			WithContext("value", v).
			UserAction().
			Build()
	}
	return draft, nil
}
