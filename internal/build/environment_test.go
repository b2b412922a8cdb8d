package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docblog/internal/posts"
)

func TestSerialsRestartPerDocument(t *testing.T) {
	env := NewEnvironment()

	env.BeginDocument("a")
	assert.Equal(t, "post-0", env.NewID("post"))
	assert.Equal(t, "post-1", env.NewID("post"))
	assert.Equal(t, 0, env.NewSerial("other"))
	env.EndDocument()

	env.BeginDocument("b")
	assert.Equal(t, "b", env.Docname)
	assert.Equal(t, "post-0", env.NewID("post"))
	env.EndDocument()
	assert.Empty(t, env.Docname)
}

func TestForkCopiesState(t *testing.T) {
	env := NewEnvironment()
	env.Docs["a"] = DocInfo{Fingerprint: "1"}
	env.Posts = posts.NewList(&posts.Record{Docname: "a"})

	child := env.Fork()
	child.Docs["b"] = DocInfo{Fingerprint: "2"}
	child.Posts.Append(&posts.Record{Docname: "b"})

	assert.NotContains(t, env.Docs, "b")
	assert.Equal(t, 1, env.Posts.Len())
	assert.Equal(t, 2, child.Posts.Len())

	assert.Nil(t, NewEnvironment().Fork().Posts, "an absent post list stays absent")
}

func TestAbsorbAndForget(t *testing.T) {
	env := NewEnvironment()
	other := NewEnvironment()
	other.Docs["x"] = DocInfo{Title: "X"}
	other.Docs["y"] = DocInfo{Title: "Y"}
	other.MarkVolatile("x")

	env.absorb(map[string]struct{}{"x": {}}, other)
	require.Contains(t, env.Docs, "x")
	assert.NotContains(t, env.Docs, "y")
	assert.True(t, env.IsVolatile("x"))
	assert.Equal(t, []string{"x"}, env.Docnames())

	env.forget("x")
	assert.Empty(t, env.Docs)
	assert.False(t, env.IsVolatile("x"))
}
