// Package feed writes the RSS feed of published posts and a sitemap of
// every document of an html build.
package feed

import (
	"encoding/xml"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/docblog/internal/build"
	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/posts"
	"git.home.luguber.info/inful/docblog/internal/render"
)

// File names written to the output root.
const (
	RSSFile     = "feed.xml"
	SitemapFile = "sitemap.xml"
)

// Site describes the channel.
type Site struct {
	Title       string
	BaseURL     string
	Description string
}

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Author      string   `xml:"author,omitempty"`
	Categories  []string `xml:"category"`
	PubDate     string   `xml:"pubDate"`
	GUID        string   `xml:"guid"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

// BuildURL joins path segments onto base. A fragment is appended verbatim.
func BuildURL(base, docPath, fragment string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join("/", u.Path, docPath)
	u.Fragment = fragment
	return u.String()
}

// WriteRSS writes an RSS 2.0 document listing the published records in
// the order given. Links point at the html output of each post.
func WriteRSS(w io.Writer, site Site, records []*posts.Record) error {
	items := make([]rssItem, 0, len(records))
	var newest time.Time
	for _, r := range records {
		if r.Draft {
			continue
		}
		link := BuildURL(site.BaseURL, build.TargetURI(r.Docname, render.FormatHTML), r.Anchor)
		categories := append([]string(nil), r.Tags...)
		if r.Category != "" {
			categories = append(categories, r.Category)
		}
		items = append(items, rssItem{
			Title:       r.DisplayTitle(),
			Link:        link,
			Description: description(r),
			Author:      r.Author,
			Categories:  categories,
			PubDate:     r.Date.Format(time.RFC1123Z),
			GUID:        link,
		})
		if r.Date.After(newest) {
			newest = r.Date
		}
	}
	channel := rssChannel{
		Title:       site.Title,
		Link:        BuildURL(site.BaseURL, "", ""),
		Description: site.Description,
		Items:       items,
	}
	if !newest.IsZero() {
		channel.LastBuildDate = newest.Format(time.RFC1123Z)
	}
	return encode(w, rssXML{Version: "2.0", Channel: channel})
}

func description(r *posts.Record) string {
	desc := "Published " + r.FormattedDate() + " by " + r.Author + "."
	if len(r.Tags) > 0 {
		desc += " Tags: " + strings.Join(r.Tags, ", ") + "."
	}
	return desc
}

// WriteSitemap writes a sitemap with one URL per document.
func WriteSitemap(w io.Writer, baseURL string, docnames []string) error {
	urls := make([]sitemapURL, 0, len(docnames))
	for _, name := range docnames {
		urls = append(urls, sitemapURL{Loc: BuildURL(baseURL, build.TargetURI(name, render.FormatHTML), "")})
	}
	return encode(w, sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	})
}

func encode(w io.Writer, v any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteFiles writes feed.xml and sitemap.xml for env into outDir. The
// post list is sorted newest first.
func WriteFiles(outDir string, site Site, env *build.Environment) error {
	env.Posts.SortByDateDesc()
	if err := writeFile(filepath.Join(outDir, RSSFile), func(w io.Writer) error {
		return WriteRSS(w, site, env.Posts.Published())
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(outDir, SitemapFile), func(w io.Writer) error {
		return WriteSitemap(w, site.BaseURL, env.Docnames())
	})
}

func writeFile(target string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
			WithContext("path", filepath.Dir(target)).
			Build()
	}
	f, err := os.Create(target)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create feed file").
			WithContext("path", target).
			Build()
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return errors.WrapError(err, errors.CategoryBuild, "encode feed").
			WithContext("path", target).
			Build()
	}
	if err := f.Close(); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "close feed file").
			WithContext("path", target).
			Build()
	}
	return nil
}
