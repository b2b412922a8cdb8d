package feed

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docblog/internal/build"
	"git.home.luguber.info/inful/docblog/internal/posts"
)

func rec(docname, title string, day int, draft bool) *posts.Record {
	return &posts.Record{
		Title:    title,
		Docname:  docname,
		Anchor:   "post-0",
		Date:     time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		Author:   "Jane",
		Tags:     []string{"go", "release"},
		Category: "news",
		Draft:    draft,
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base, doc, frag, want string
	}{
		{"https://example.com/", "blog/a.html", "post-0", "https://example.com/blog/a.html#post-0"},
		{"https://example.com/sub", "a.html", "", "https://example.com/sub/a.html"},
		{"", "a.html", "post-1", "/a.html#post-1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BuildURL(tt.base, tt.doc, tt.frag))
	}
}

func TestWriteRSS(t *testing.T) {
	var sb strings.Builder
	site := Site{Title: "Blog", BaseURL: "https://example.com/", Description: "News"}
	records := []*posts.Record{
		rec("blog/2024-03-05-launch", "Launch", 5, false),
		rec("blog/2024-03-06-secret", "Secret", 6, true),
		rec("blog/2024-03-01-intro", "", 1, false),
	}
	require.NoError(t, WriteRSS(&sb, site, records))

	out := sb.String()
	assert.True(t, strings.HasPrefix(out, xml.Header))
	assert.NotContains(t, out, "Secret")

	var doc rssXML
	require.NoError(t, xml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "2.0", doc.Version)
	assert.Equal(t, "Blog", doc.Channel.Title)
	require.Len(t, doc.Channel.Items, 2)

	first := doc.Channel.Items[0]
	assert.Equal(t, "Launch", first.Title)
	assert.Equal(t, "https://example.com/blog/2024-03-05-launch.html#post-0", first.Link)
	assert.Equal(t, first.Link, first.GUID)
	assert.Equal(t, []string{"go", "release", "news"}, first.Categories)
	assert.Equal(t, "Tue, 05 Mar 2024 00:00:00 +0000", first.PubDate)
	assert.Contains(t, first.Description, "05 March 2024")

	assert.Equal(t, "blog/2024-03-01-intro", doc.Channel.Items[1].Title, "untitled posts use the docname")
	assert.Equal(t, "Tue, 05 Mar 2024 00:00:00 +0000", doc.Channel.LastBuildDate)
}

func TestWriteRSSWithoutPosts(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteRSS(&sb, Site{Title: "Empty"}, nil))

	var doc rssXML
	require.NoError(t, xml.Unmarshal([]byte(sb.String()), &doc))
	assert.Empty(t, doc.Channel.Items)
	assert.Empty(t, doc.Channel.LastBuildDate)
}

func TestWriteFiles(t *testing.T) {
	out := t.TempDir()
	env := build.NewEnvironment()
	env.Docs["index"] = build.DocInfo{RelPath: "index.md"}
	env.Docs["blog/2024-03-05-launch"] = build.DocInfo{RelPath: "blog/2024-03-05-launch.md"}
	env.Posts = posts.NewList(
		rec("blog/2024-03-01-intro", "Intro", 1, false),
		rec("blog/2024-03-05-launch", "Launch", 5, false),
	)

	require.NoError(t, WriteFiles(out, Site{Title: "Blog", BaseURL: "https://example.com/"}, env))

	data, err := os.ReadFile(filepath.Join(out, RSSFile))
	require.NoError(t, err)
	assert.Less(t, strings.Index(string(data), "Launch"), strings.Index(string(data), "Intro"), "newest first")

	data, err = os.ReadFile(filepath.Join(out, SitemapFile))
	require.NoError(t, err)
	var set sitemapURLSet
	require.NoError(t, xml.Unmarshal(data, &set))
	require.Len(t, set.URLs, 2)
	assert.Equal(t, "https://example.com/blog/2024-03-05-launch.html", set.URLs[0].Loc)
	assert.Equal(t, "https://example.com/index.html", set.URLs[1].Loc)
}

func TestWriteFilesWithoutPostList(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, WriteFiles(out, Site{Title: "Blog"}, build.NewEnvironment()))
	_, err := os.Stat(filepath.Join(out, RSSFile))
	require.NoError(t, err)
}
