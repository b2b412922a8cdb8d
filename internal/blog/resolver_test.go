package blog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/docblog/internal/build"
	"git.home.luguber.info/inful/docblog/internal/posts"
	"git.home.luguber.info/inful/docblog/internal/render"
)

func resolve(t *testing.T, env *build.Environment, tree *build.Doctree) {
	t.Helper()
	require.NoError(t, ResolveListings(&build.ResolveContext{
		Env:     env,
		Docname: tree.Docname,
		Doc:     tree.Root,
		Source:  tree.Source,
		Format:  render.FormatHTML,
		Logger:  discardLogger(),
	}))
}

func entryIDs(root ast.Node) []string {
	var ids []string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if e, ok := n.(*PostEntryNode); ok && entering {
			ids = append(ids, e.ID)
		}
		return ast.WalkContinue, nil
	})
	return ids
}

func TestListingIsNewestFirst(t *testing.T) {
	app := newApp(t)
	env := build.NewEnvironment()

	for _, p := range []struct{ path, title string }{
		{"blog/2024-03-01-first.md", "First"},
		{"blog/2023-12-25-xmas.md", "Xmas"},
		{"blog/2024-03-01-second.md", "Second"},
	} {
		_, err := read(t, app, env, p.path, postBody(p.title, ":tags: t\n:author: A", ""))
		require.NoError(t, err)
	}
	index, err := read(t, app, env, "index.md", "# Home\n\n:::{all-posts}\n:::\n")
	require.NoError(t, err)

	resolve(t, env, index)

	var dates []string
	for _, r := range env.Posts.Records() {
		dates = append(dates, r.Date.Format(posts.SourceDateLayout))
	}
	assert.Equal(t, []string{"2024-03-01", "2024-03-01", "2023-12-25"}, dates)

	ids := entryIDs(index.Root)
	require.Len(t, ids, 3)
	assert.ElementsMatch(t, []string{"First", "Second"}, ids[:2])
	assert.Equal(t, "Xmas", ids[2])
	assert.Zero(t, countKind(index.Root, KindAllPosts), "the placeholder is replaced")
}

func TestListingSkipsDrafts(t *testing.T) {
	app := newApp(t)
	env := build.NewEnvironment()

	_, err := read(t, app, env, "2025-01-01-future.md", postBody("Future draft", ":tags: t\n:author: A\n:draft: true", ""))
	require.NoError(t, err)
	_, err = read(t, app, env, "2020-01-01-old.md", postBody("Old post", ":tags: t\n:author: A", ""))
	require.NoError(t, err)
	index, err := read(t, app, env, "index.md", ":::{all-posts}\n:::\n")
	require.NoError(t, err)

	resolve(t, env, index)

	assert.Equal(t, []string{"Old-post"}, entryIDs(index.Root))
	assert.Equal(t, 2, env.Posts.Len(), "drafts stay registered")
}

func TestListingEntryHTML(t *testing.T) {
	app := newApp(t)
	env := build.NewEnvironment()

	_, err := read(t, app, env, "blog/2024-03-05-launch.md", postBody("Launch day", ":tags: t\n:author: A", ""))
	require.NoError(t, err)
	index, err := read(t, app, env, "news/index.md", "# News\n\n:::{all-posts}\n:::\n")
	require.NoError(t, err)

	out := renderTree(t, app, env, index, render.FormatHTML)
	assert.Contains(t, out, `<section id="Launch-day" class="post-entry">`)
	assert.Contains(t, out, `<h2><a href="../blog/2024-03-05-launch.html#post-0">Launch day</a></h2>`)
	assert.Contains(t, out, "<p>05 March 2024</p>\n<hr>")
	assert.NotContains(t, out, "all-posts")
}

func TestListingLinksToSameDocument(t *testing.T) {
	app := newApp(t)
	env := build.NewEnvironment()

	body := "# Combined\n\n:::{post}\n:tags: t\n:author: A\n:::\n\n:::{all-posts}\n:::\n"
	tree, err := read(t, app, env, "2024-06-01-combined.md", body)
	require.NoError(t, err)

	out := renderTree(t, app, env, tree, render.FormatHTML)
	assert.Contains(t, out, `<a href="#post-0">Combined</a>`)
}

func TestListingWithoutPostsLeavesPlaceholder(t *testing.T) {
	app := newApp(t)
	env := build.NewEnvironment()

	index, err := read(t, app, env, "index.md", "# Home\n\n:::{all-posts}\n:::\n")
	require.NoError(t, err)

	resolve(t, env, index)
	assert.Equal(t, 1, countKind(index.Root, KindAllPosts))
	assert.Nil(t, env.Posts)

	for _, format := range render.Formats {
		out := renderTree(t, app, env, index, format)
		assert.NotContains(t, out, "Published", format.String())
	}
	html := renderTree(t, app, env, index, render.FormatHTML)
	assert.Contains(t, html, "<section class=\"all-posts\">\n</section>")
}

func TestListingWithEmptyList(t *testing.T) {
	app := newApp(t)
	env := build.NewEnvironment()
	env.Posts = posts.NewList()

	index, err := read(t, app, env, "index.md", "# Home\n\n:::{all-posts}\n:::\n")
	require.NoError(t, err)

	resolve(t, env, index)
	assert.Zero(t, countKind(index.Root, KindAllPosts))
	assert.Empty(t, entryIDs(index.Root))
}

func TestListingTitleCollisionsKeepIDs(t *testing.T) {
	app := newApp(t)
	env := build.NewEnvironment()

	for _, p := range []string{"2024-01-01-a.md", "2024-01-02-b.md"} {
		_, err := read(t, app, env, p, postBody("Same title", ":tags: t\n:author: A", ""))
		require.NoError(t, err)
	}
	index, err := read(t, app, env, "index.md", ":::{all-posts}\n:::\n")
	require.NoError(t, err)

	resolve(t, env, index)
	assert.Equal(t, []string{"Same-title", "Same-title"}, entryIDs(index.Root))
}

func TestListingRendersInEveryFormat(t *testing.T) {
	tests := []struct {
		format render.Format
		want   []string
	}{
		{render.FormatText, []string{"Launch day", "05 March 2024", strings.Repeat("*", 70)}},
		{render.FormatTexinfo, []string{"@anchor{post-0}", "@section Launch day", "05 March 2024"}},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			app := newApp(t)
			env := build.NewEnvironment()

			body := "# Launch day\n\n:::{post}\n:tags: t\n:author: A\n:::\n\n:::{all-posts}\n:::\n"
			tree, err := read(t, app, env, "2024-03-05-launch.md", body)
			require.NoError(t, err)

			out := renderTree(t, app, env, tree, tt.format)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}
