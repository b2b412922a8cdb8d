package posts

import (
	"regexp"
	"time"

	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
)

// SourceDateLayout is the layout of dates embedded in source paths.
const SourceDateLayout = "2006-01-02"

var sourceDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// ExtractDate returns the calendar date formed by the first YYYY-MM-DD
// substring of source (typically a document path).
func ExtractDate(source string) (time.Time, error) {
	match := sourceDatePattern.FindString(source)
	if match == "" {
		return time.Time{}, errors.DocsError("no YYYY-MM-DD date in source path").
			WithContext("source", source).
			Build()
	}
	date, err := time.Parse(SourceDateLayout, match)
	if err != nil {
		return time.Time{}, errors.WrapError(err, errors.CategoryDocs, "invalid date in source path").
			UserAction().
			WithContext("source", source).
			WithContext("date", match).
			Build()
	}
	return date, nil
}
