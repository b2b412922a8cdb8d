package linkverify

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
)

// Link represents an extracted link from HTML content.
type Link struct {
	URL       string // The URL or path
	Text      string // Link text/title
	Tag       string // HTML tag (a, img, script, link)
	Attribute string // Attribute containing the link (href, src)
	// IsInternal is true for links into the same output tree.
	IsInternal bool
	// Element is the ordinal of the element in document order.
	Element int
}

// Page is what one HTML file contributes to a check: its outgoing links
// and the fragment ids it defines.
type Page struct {
	Links []*Link
	IDs   map[string]struct{}
}

// ParseFile extracts links and ids from an HTML file.
func ParseFile(htmlPath string) (*Page, error) {
	file, err := os.Open(filepath.Clean(htmlPath))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to open HTML file").
			WithContext("path", htmlPath).
			Build()
	}
	defer func() {
		_ = file.Close()
	}()
	return Parse(file)
}

// Parse extracts links and ids from an HTML document.
func Parse(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").Build()
	}

	page := &Page{IDs: make(map[string]struct{})}
	var element int

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			element++
			if id := getAttr(n, "id"); id != "" {
				page.IDs[id] = struct{}{}
			}
			if n.Data == "a" {
				if name := getAttr(n, "name"); name != "" {
					page.IDs[name] = struct{}{}
				}
			}
			extractElementLinks(n, page, element)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return page, nil
}

func extractElementLinks(n *html.Node, page *Page, element int) {
	var attr string
	switch n.Data {
	case "a", "link":
		attr = "href"
	case "img", "script", "source", "video", "audio":
		attr = "src"
	default:
		return
	}
	target := getAttr(n, attr)
	if target == "" {
		return
	}
	text := extractText(n)
	if n.Data == "img" {
		text = getAttr(n, "alt")
	}
	page.Links = append(page.Links, &Link{
		URL:        target,
		Text:       text,
		Tag:        n.Data,
		Attribute:  attr,
		IsInternal: isInternalLink(target),
		Element:    element,
	})
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// extractText extracts text content from an HTML node and its children.
func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(extractText(c))
	}
	return strings.TrimSpace(text.String())
}

// isInternalLink reports whether linkURL is a relative reference into the
// output tree. Root relative paths are treated as external because the
// site's mount point is unknown.
func isInternalLink(linkURL string) bool {
	for _, p := range []string{"mailto:", "tel:", "javascript:", "data:"} {
		if strings.HasPrefix(linkURL, p) {
			return false
		}
	}
	u, err := url.Parse(linkURL)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && !strings.HasPrefix(u.Path, "/")
}
