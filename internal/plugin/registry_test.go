package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPlugin struct {
	metadata Metadata
}

func (m *mockPlugin) Metadata() Metadata { return m.metadata }

func newMockPlugin(name, version string) Plugin {
	return &mockPlugin{metadata: Metadata{Name: name, Version: version}}
}

func TestRegistryRegister(t *testing.T) {
	registry := NewRegistry()
	p := newMockPlugin("blog", "0.1")

	require.NoError(t, registry.Register(p))
	require.Error(t, registry.Register(p), "duplicate registration")
	require.Error(t, registry.Register(nil))
	require.Error(t, registry.Register(&mockPlugin{metadata: Metadata{Version: "0.1"}}))
}

func TestRegistryGet(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(newMockPlugin("blog", "0.1")))

	p, err := registry.Get("blog", "0.1")
	require.NoError(t, err)
	assert.Equal(t, "blog@0.1", p.Metadata().String())

	_, err = registry.Get("missing", "0.1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = registry.Get("blog", "0.2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryGetLatest(t *testing.T) {
	registry := NewRegistry()
	for _, v := range []string{"v1.2.0", "v1.10.0", "v1.9.3"} {
		require.NoError(t, registry.Register(newMockPlugin("feed", v)))
	}

	latest, err := registry.GetLatest("feed")
	require.NoError(t, err)
	assert.Equal(t, "v1.10.0", latest.Metadata().Version)

	_, err = registry.GetLatest("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryResolve(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(newMockPlugin("blog", "0.1")))
	require.NoError(t, registry.Register(newMockPlugin("blog", "0.2")))

	p, err := registry.Resolve("blog")
	require.NoError(t, err)
	assert.Equal(t, "0.2", p.Metadata().Version)

	p, err = registry.Resolve("blog@0.1")
	require.NoError(t, err)
	assert.Equal(t, "0.1", p.Metadata().Version)

	_, err = registry.Resolve("blog@9")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryList(t *testing.T) {
	registry := NewRegistry()
	assert.Empty(t, registry.List())

	require.NoError(t, registry.Register(newMockPlugin("plugin2", "v1.0.0")))
	require.NoError(t, registry.Register(newMockPlugin("plugin1", "v2.0.0")))
	require.NoError(t, registry.Register(newMockPlugin("plugin1", "v1.0.0")))

	var got []string
	for _, p := range registry.List() {
		got = append(got, p.Metadata().String())
	}
	assert.Equal(t, []string{"plugin1@v1.0.0", "plugin1@v2.0.0", "plugin2@v1.0.0"}, got)
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"0.1", "0.1", 0},
		{"v0.1", "0.1", 0},
		{"0.2", "0.10", -1},
		{"1.0.1", "1.0", 1},
		{"1.0-beta", "1.0-alpha", 1},
		{"3", "12", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, compareVersions(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}
