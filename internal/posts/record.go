package posts

import (
	"strings"
	"time"

	"github.com/yuin/goldmark/ast"
)

// DisplayLayout formats publish dates for readers ("05 March 2024").
const DisplayLayout = "02 January 2006"

// Record is the metadata of one post directive occurrence.
type Record struct {
	// Title is the text of the owning document's first heading; empty when
	// the document has none.
	Title string
	// Docname identifies the owning document.
	Docname string
	// Anchor is the target id placed in front of the post ("post-0").
	Anchor string
	Date   time.Time
	// Content is the rendered post sub-tree. It is nil for records restored
	// from a persisted environment.
	Content  ast.Node
	Author   string
	Tags     []string
	Category string
	Draft    bool
}

// FormattedDate returns the publish date in DisplayLayout.
func (r *Record) FormattedDate() string {
	return r.Date.Format(DisplayLayout)
}

// DisplayTitle returns the title, or the docname for documents without a heading.
func (r *Record) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Docname
}

// SectionID derives the listing entry id from the title by replacing spaces
// with hyphens. Equal titles produce equal ids.
func (r *Record) SectionID() string {
	return strings.ReplaceAll(r.DisplayTitle(), " ", "-")
}

// ParseTags splits a comma-separated tag option. Each entry is trimmed of
// surrounding spaces; entries that end up empty are dropped.
func ParseTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		tag := strings.Trim(p, " ")
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}
