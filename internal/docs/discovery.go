// Package docs discovers the Markdown documents of a source tree and loads
// them into memory with their frontmatter and content fingerprint.
package docs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	derrors "git.home.luguber.info/inful/docblog/internal/docs/errors"
	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/logfields"
)

// Document is a loaded source document.
type Document struct {
	// Docname is the slash separated path relative to the source directory,
	// without extension and NFC normalised ("blog/2024-03-05-release").
	Docname string
	// Path is the file system path of the source file.
	Path string
	// RelPath is the slash separated path relative to the source directory,
	// including the extension.
	RelPath string
	// Frontmatter holds the parsed YAML frontmatter, empty when absent.
	Frontmatter map[string]any
	// Body is the Markdown content after the frontmatter.
	Body []byte
	// Fingerprint identifies the document content.
	Fingerprint string
}

// Title returns the frontmatter title, if any.
func (d *Document) Title() string {
	if t, ok := d.Frontmatter["title"].(string); ok {
		return strings.TrimSpace(t)
	}
	return ""
}

// Discovery finds documents below a source directory.
type Discovery struct {
	srcDir  string
	exclude []string
}

// NewDiscovery creates a discovery rooted at srcDir. Directories in exclude
// (absolute or relative to srcDir) are skipped, e.g. an output directory
// placed inside the source tree.
func NewDiscovery(srcDir string, exclude ...string) *Discovery {
	abs := make([]string, 0, len(exclude))
	for _, e := range exclude {
		if e == "" {
			continue
		}
		if !filepath.IsAbs(e) {
			e = filepath.Join(srcDir, e)
		}
		abs = append(abs, filepath.Clean(e))
	}
	return &Discovery{srcDir: srcDir, exclude: abs}
}

// Discover walks the source directory and loads every Markdown document,
// ordered by docname.
func (d *Discovery) Discover() ([]*Document, error) {
	if info, err := os.Stat(d.srcDir); err != nil || !info.IsDir() {
		return nil, errors.DocsError("source directory not found").
			WithCause(derrors.ErrSourceDirNotFound).
			WithContext("path", d.srcDir).
			Build()
	}

	var documents []*Document
	seen := make(map[string]string)

	err := filepath.WalkDir(d.srcDir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			if p != d.srcDir && (isHidden(entry.Name()) || d.excluded(p)) {
				return filepath.SkipDir
			}
			return nil
		}

		if !isMarkdownFile(p) || isHidden(entry.Name()) {
			return nil
		}

		rel, err := filepath.Rel(d.srcDir, p)
		if err != nil {
			return fmt.Errorf("%w: %w", derrors.ErrInvalidRelativePath, err)
		}

		doc, err := Load(p, filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		if prev, ok := seen[doc.Docname]; ok {
			return errors.DocsError("two files map to the same document").
				WithCause(derrors.ErrDocnameCollision).
				WithContext("docname", doc.Docname).
				WithContext("first", prev).
				WithContext("second", doc.RelPath).
				Build()
		}
		seen[doc.Docname] = doc.RelPath

		slog.Debug("Discovered document", logfields.Docname(doc.Docname), logfields.Path(doc.RelPath))
		documents = append(documents, doc)
		return nil
	})
	if err != nil {
		if _, ok := errors.AsClassified(err); ok {
			return nil, err
		}
		return nil, errors.DocsError("walk source directory").
			WithCause(fmt.Errorf("%w: %w", derrors.ErrDocsDirWalkFailed, err)).
			WithContext("path", d.srcDir).
			Build()
	}

	sort.Slice(documents, func(i, j int) bool { return documents[i].Docname < documents[j].Docname })
	slog.Info("Documents discovered", logfields.Count(len(documents)), logfields.Path(d.srcDir))
	return documents, nil
}

// Load reads one document. relPath is the slash separated path relative to
// the source directory.
func Load(filePath, relPath string) (*Document, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.FileSystemError("read document").
			WithCause(fmt.Errorf("%w: %s: %w", derrors.ErrFileReadFailed, filePath, err)).
			WithContext("path", relPath).
			Build()
	}

	docname := Docname(relPath)
	raw, body, err := SplitFrontmatter(content)
	if err != nil {
		return nil, errors.DocsError("split frontmatter").
			WithCause(err).
			WithContext("docname", docname).
			Build()
	}
	fields, err := ParseFrontmatter(raw)
	if err != nil {
		return nil, errors.DocsError("parse frontmatter").
			WithCause(err).
			WithContext("docname", docname).
			Build()
	}
	fingerprint, err := Fingerprint(fields, body)
	if err != nil {
		return nil, errors.DocsError("fingerprint document").
			WithCause(err).
			WithContext("docname", docname).
			Build()
	}

	return &Document{
		Docname:     docname,
		Path:        filePath,
		RelPath:     relPath,
		Frontmatter: fields,
		Body:        body,
		Fingerprint: fingerprint,
	}, nil
}

// Docname derives the document name from a slash separated relative path.
func Docname(relPath string) string {
	slashed := filepath.ToSlash(relPath)
	return norm.NFC.String(strings.TrimSuffix(slashed, path.Ext(slashed)))
}

// SetHash returns a hash over docnames and fingerprints. Two discoveries of
// an unchanged tree produce the same hash.
func SetHash(documents []*Document) string {
	entries := make([]string, 0, len(documents))
	for _, d := range documents {
		entries = append(entries, d.Docname+"|"+d.Fingerprint)
	}
	sort.Strings(entries)

	h := sha256.New()
	for _, e := range entries {
		h.Write([]byte(e))
		h.Write([]byte("\n"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (d *Discovery) excluded(dir string) bool {
	clean := filepath.Clean(dir)
	for _, e := range d.exclude {
		if clean == e {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// isMarkdownFile checks if a file is a markdown file
func isMarkdownFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".md" || ext == ".markdown" || ext == ".mdown" || ext == ".mkd"
}
