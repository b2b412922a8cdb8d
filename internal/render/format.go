// Package render writes resolved doctrees in one of the supported output
// formats. HTML uses goldmark's renderer; plain text and texinfo are goldmark
// node renderers implemented here. Node kinds contributed by extensions render
// themselves through the Visitor interface.
package render

import (
	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/foundation/normalization"
)

// Format identifies an output format.
type Format string

const (
	FormatHTML    Format = "html"
	FormatText    Format = "text"
	FormatTexinfo Format = "texinfo"
)

// Formats lists every supported format.
var Formats = []Format{FormatHTML, FormatText, FormatTexinfo}

var formatNames = normalization.NewNormalizer(map[string]Format{
	"html":    FormatHTML,
	"htm":     FormatHTML,
	"text":    FormatText,
	"txt":     FormatText,
	"texinfo": FormatTexinfo,
	"texi":    FormatTexinfo,
})

// ParseFormat normalizes a user supplied format name. File suffixes are
// accepted as aliases.
func ParseFormat(s string) (Format, error) {
	f, ok := formatNames.Lookup(s)
	if !ok {
		return "", errors.ValidationError("unsupported output format").
			WithContext("format", s).
			WithContext("valid", formatNames.ValidKeys()).
			Build()
	}
	return f, nil
}

// IsValid reports whether f is a supported format.
func (f Format) IsValid() bool {
	switch f {
	case FormatHTML, FormatText, FormatTexinfo:
		return true
	default:
		return false
	}
}

// Extension returns the output file suffix for documents in this format.
func (f Format) Extension() string {
	switch f {
	case FormatHTML:
		return ".html"
	case FormatText:
		return ".txt"
	case FormatTexinfo:
		return ".texi"
	default:
		return ""
	}
}

func (f Format) String() string { return string(f) }
