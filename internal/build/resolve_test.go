package build

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/docblog/internal/render"
)

func TestRelativeURI(t *testing.T) {
	tests := []struct {
		base, to, want string
	}{
		{"index.html", "index.html", ""},
		{"index.html", "post.html", "post.html"},
		{"index.html", "blog/post.html", "blog/post.html"},
		{"blog/index.html", "blog/post.html", "post.html"},
		{"blog/index.html", "about.html", "../about.html"},
		{"a/b/c.html", "a/d/e.html", "../d/e.html"},
		{"index.html", "/abs.html", "/abs.html"},
		{"index.html#frag", "other.html#x", "other.html"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RelativeURI(tt.base, tt.to), "%s -> %s", tt.base, tt.to)
	}
}

func TestResolveContextRelativeURI(t *testing.T) {
	rc := &ResolveContext{Docname: "blog/index", Format: render.FormatHTML}
	assert.Equal(t, "2024-01-01-hello.html", rc.RelativeURI("blog/2024-01-01-hello"))
	assert.Equal(t, "", rc.RelativeURI("blog/index"))

	rc.Format = render.FormatText
	assert.Equal(t, "../about.txt", rc.RelativeURI("about"))
}
