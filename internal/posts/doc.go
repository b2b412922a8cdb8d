// Package posts holds the post metadata collected while reading documents and
// the operations the build runs over it: date extraction from source paths,
// tag parsing, ordering, draft filtering, purge and merge.
//
// The package has no knowledge of the build pipeline; the list lives on the
// build environment and is driven by the blog extension's hooks.
package posts
