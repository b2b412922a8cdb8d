package errors

// Package errors provides sentinel errors for document discovery and loading.
// They are carried as causes of classified docs errors.

import "errors"

var (
	// ErrSourceDirNotFound indicates the configured source directory does not exist.
	ErrSourceDirNotFound = errors.New("source directory not found")

	// ErrDocsDirWalkFailed indicates filesystem traversal of the source directory failed.
	ErrDocsDirWalkFailed = errors.New("source directory walk failed")

	// ErrFileReadFailed indicates reading a discovered document failed.
	ErrFileReadFailed = errors.New("document read failed")

	// ErrInvalidRelativePath indicates calculating a path relative to the source directory failed.
	ErrInvalidRelativePath = errors.New("invalid relative path calculation")

	// ErrMissingClosingDelimiter indicates a document opened a YAML frontmatter
	// block without closing it.
	ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

	// ErrInvalidFrontmatter indicates the frontmatter is not a YAML mapping.
	ErrInvalidFrontmatter = errors.New("invalid yaml frontmatter")

	// ErrDocnameCollision indicates two files normalise to the same docname.
	ErrDocnameCollision = errors.New("docname collision detected")
)
