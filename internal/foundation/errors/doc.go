// Package errors provides the classified error primitives used across docblog.
//
// A ClassifiedError carries a broad category (config, validation, docs, build,
// store, ...), a severity and a free-form context map. Errors are built with a
// fluent builder:
//
//	err := errors.NewError(errors.CategoryDocs, "no date in source path").
//		WithContext("docname", docname).
//		WithCause(parseErr).
//		Build()
//
// The CLI and HTTP adapters turn classified errors into exit codes and JSON
// responses.
package errors
