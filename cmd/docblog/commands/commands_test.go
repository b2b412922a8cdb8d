package commands

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cli := &CLI{Stdout: &out}
	parser, err := kong.New(cli,
		kong.Name("docblog"),
		kong.Exit(func(int) { t.Fatalf("unexpected exit for %v", args) }),
		kong.Vars{"version": "test"},
	)
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	err = kctx.Run(&Global{Logger: slog.Default()}, cli)
	return out.String(), err
}

func writeSite(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"index.md":                  "# Home\n\n:::{all-posts}\n:::\n",
		"blog/2024-03-01-spring.md": "# Spring\n\n:::{post}\n:tags: season\n:author: A\n:category: nature\n\nFlowers.\n:::\n",
		"blog/2023-12-25-xmas.md":   "# Xmas\n\n:::{post}\n:tags: season, holiday\n:author: B\n\nSnow.\n:::\n",
		"blog/2024-04-01-secret.md": "# Secret\n\n:::{post}\n:tags: x\n:author: C\n:draft:\n\nHidden.\n:::\n",
	}
	for rel, content := range files {
		full := filepath.Join(dir, "docs", filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestInitBuildAndListPosts(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "docblog.yaml")

	out, err := run(t, "--config", cfgPath, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote configuration")
	assert.FileExists(t, cfgPath)

	_, err = run(t, "--config", cfgPath, "init")
	require.Error(t, err, "init refuses to overwrite")
	_, err = run(t, "--config", cfgPath, "init", "--force")
	require.NoError(t, err)

	_, err = run(t, "--config", cfgPath, "posts")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))

	writeSite(t, dir)
	out, err = run(t, "--config", cfgPath, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "html: 4 documents, 4 read")
	assert.Contains(t, out, "2 posts")
	assert.FileExists(t, filepath.Join(dir, "_build", "index.html"))
	assert.FileExists(t, filepath.Join(dir, "_build", "feed.xml"))

	out, err = run(t, "--config", cfgPath, "posts", "--json")
	require.NoError(t, err)
	var listed []postJSON
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "Spring", listed[0].Title)
	assert.Equal(t, "nature", listed[0].Category)
	assert.Equal(t, "Xmas", listed[1].Title)

	out, err = run(t, "--config", cfgPath, "posts", "--drafts")
	require.NoError(t, err)
	assert.Contains(t, out, "Secret (draft)")
	assert.Contains(t, out, "blog/2024-03-01-spring#post-0")

	out, err = run(t, "--config", cfgPath, "posts", "--tag", "holiday")
	require.NoError(t, err)
	assert.Contains(t, out, "Xmas")
	assert.NotContains(t, out, "Spring")
}

func TestBuildFlagOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "docblog.yaml")
	_, err := run(t, "--config", cfgPath, "init")
	require.NoError(t, err)
	writeSite(t, dir)

	out, err := run(t, "--config", cfgPath, "build", "--format", "text", "-j", "4", "--clean")
	require.NoError(t, err)
	assert.Contains(t, out, "text: 4 documents")
	assert.FileExists(t, filepath.Join(dir, "_build", "index.txt"))

	_, err = run(t, "--config", cfgPath, "build", "--format", "pdf")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestBuildWithMissingConfig(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "build")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Empty(t, firstNonEmpty("", ""))
}
