// Package linkverify checks the links of a written html build: relative
// links must point at files that exist and fragments at ids defined by
// the target page.
package linkverify

import (
	"context"
	"io/fs"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/logfields"
)

// Reasons reported for broken links.
const (
	ReasonMissingTarget   = "missing target"
	ReasonMissingFragment = "missing fragment"
	ReasonInvalidURL      = "invalid url"
)

// BrokenLink is a link that does not resolve inside the output tree.
type BrokenLink struct {
	// Page is the slash separated path of the page holding the link.
	Page   string `json:"page"`
	URL    string `json:"url"`
	Text   string `json:"text,omitempty"`
	Reason string `json:"reason"`
}

// Checker verifies links below an output directory.
type Checker struct {
	root     string
	parallel int
	logger   *slog.Logger
}

// NewChecker returns a checker for the html files below root.
func NewChecker(root string, parallel int, logger *slog.Logger) *Checker {
	if parallel < 1 {
		parallel = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{root: root, parallel: parallel, logger: logger}
}

// Check parses every html page and returns the broken links sorted by page.
func (c *Checker) Check(ctx context.Context) ([]BrokenLink, error) {
	files := make(map[string]struct{})
	var pagePaths []string
	err := filepath.WalkDir(c.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(c.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		files[rel] = struct{}{}
		if strings.HasSuffix(rel, ".html") {
			pagePaths = append(pagePaths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "walk output directory").
			WithContext("path", c.root).
			Build()
	}

	pages := make(map[string]*Page, len(pagePaths))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallel)
	for _, rel := range pagePaths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page, err := ParseFile(filepath.Join(c.root, filepath.FromSlash(rel)))
			if err != nil {
				return err
			}
			mu.Lock()
			pages[rel] = page
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var broken []BrokenLink
	for _, rel := range pagePaths {
		for _, link := range pages[rel].Links {
			if !link.IsInternal {
				continue
			}
			if reason := resolve(rel, link.URL, files, pages); reason != "" {
				broken = append(broken, BrokenLink{Page: rel, URL: link.URL, Text: link.Text, Reason: reason})
			}
		}
	}
	sort.SliceStable(broken, func(i, j int) bool { return broken[i].Page < broken[j].Page })

	for _, b := range broken {
		c.logger.Warn("Broken link", logfields.Path(b.Page), logfields.URL(b.URL), slog.String("reason", b.Reason))
	}
	c.logger.Debug("Link check finished", logfields.Count(len(pagePaths)), slog.Int("broken", len(broken)))
	return broken, nil
}

// resolve returns why link from page does not resolve, or "".
func resolve(page, link string, files map[string]struct{}, pages map[string]*Page) string {
	u, err := url.Parse(link)
	if err != nil {
		return ReasonInvalidURL
	}
	target := page
	if u.Path != "" {
		target = path.Join(path.Dir(page), u.Path)
		if strings.HasSuffix(u.Path, "/") {
			target = path.Join(target, "index.html")
		}
	}
	if _, ok := files[target]; !ok {
		return ReasonMissingTarget
	}
	if u.Fragment == "" {
		return ""
	}
	p, ok := pages[target]
	if !ok {
		return ""
	}
	if _, ok := p.IDs[u.Fragment]; !ok {
		return ReasonMissingFragment
	}
	return ""
}
