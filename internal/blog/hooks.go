package blog

import (
	"git.home.luguber.info/inful/docblog/internal/build"
	"git.home.luguber.info/inful/docblog/internal/posts"
)

// PurgeDoc removes the posts of docname from the environment.
func PurgeDoc(env *build.Environment, docname string) {
	env.Posts.Purge(docname)
}

// MergeInfo appends the posts a parallel worker read for docnames.
func MergeInfo(env *build.Environment, docnames map[string]struct{}, other *build.Environment) {
	if env.Posts == nil {
		env.Posts = posts.NewList()
	}
	env.Posts.MergeFrom(other.Posts, docnames)
}
