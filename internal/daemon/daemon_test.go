package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docblog/internal/envstore"
	"git.home.luguber.info/inful/docblog/internal/linkverify"
	"git.home.luguber.info/inful/docblog/internal/pipeline"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeRunner struct {
	mu     sync.Mutex
	runs   int
	err    error
	out    string
	ran    chan struct{}
	builds []envstore.BuildRecord
}

func newFakeRunner(t *testing.T) *fakeRunner {
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("<h1>Home</h1>"), 0o644))
	return &fakeRunner{out: out, ran: make(chan struct{}, 10)}
}

func (f *fakeRunner) Run(context.Context) (*pipeline.Report, error) {
	f.mu.Lock()
	f.runs++
	err := f.err
	f.mu.Unlock()
	f.ran <- struct{}{}
	return &pipeline.Report{Broken: []linkverify.BrokenLink{{Page: "a.html", URL: "b.html"}}}, err
}

func (f *fakeRunner) RecentBuilds(_ context.Context, limit int) ([]envstore.BuildRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("bad limit")
	}
	return f.builds, nil
}

func (f *fakeRunner) OutputDir() string { return f.out }

func runDaemon(t *testing.T, d *Daemon) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("daemon did not stop")
		}
	})
	return cancel
}

func waitRun(t *testing.T, f *fakeRunner) {
	t.Helper()
	select {
	case <-f.ran:
	case <-time.After(5 * time.Second):
		t.Fatal("build did not run")
	}
}

func TestDaemonBuildsOnStartAndTrigger(t *testing.T) {
	f := newFakeRunner(t)
	d := New(f, Options{BuildOnStart: true}, discard)
	runDaemon(t, d)

	waitRun(t, f)
	require.Eventually(t, func() bool { return d.Status().Builds == 1 }, 2*time.Second, 10*time.Millisecond)
	st := d.Status()
	assert.Equal(t, 1, st.Broken)
	assert.Empty(t, st.LastError)
	assert.False(t, st.LastBuild.IsZero())

	d.Trigger("test")
	waitRun(t, f)
	require.Eventually(t, func() bool { return d.Status().Builds == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestDaemonRecordsFailures(t *testing.T) {
	f := newFakeRunner(t)
	f.err = fmt.Errorf("post without a date")
	d := New(f, Options{BuildOnStart: true}, discard)
	runDaemon(t, d)

	waitRun(t, f)
	require.Eventually(t, func() bool { return d.Status().Failures == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "post without a date", d.Status().LastError)
}

func TestTriggerCoalesces(t *testing.T) {
	d := New(newFakeRunner(t), Options{}, discard)
	assert.True(t, d.Trigger("a"))
	assert.False(t, d.Trigger("b"))
}

func newTestServer(t *testing.T, f *fakeRunner) (*Daemon, *httptest.Server) {
	t.Helper()
	reg := prom.NewRegistry()
	d := New(f, Options{Registry: reg}, discard)
	require.NoError(t, registerCollectors(reg, d))
	srv := httptest.NewServer(NewServer(d, discard).Handler())
	t.Cleanup(srv.Close)
	return d, srv
}

func TestServerHealth(t *testing.T) {
	_, srv := newTestServer(t, newFakeRunner(t))

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.NotEmpty(t, health.Version)
}

func TestServerBuilds(t *testing.T) {
	f := newFakeRunner(t)
	f.builds = []envstore.BuildRecord{{BuildID: "b2", Format: "html", Posts: 3}, {BuildID: "b1", Format: "html"}}
	_, srv := newTestServer(t, f)

	resp, err := http.Get(srv.URL + "/builds?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var builds []envstore.BuildRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&builds))
	require.Len(t, builds, 2)
	assert.Equal(t, "b2", builds[0].BuildID)

	bad, err := http.Get(srv.URL + "/builds?limit=many")
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestServerTriggersBuild(t *testing.T) {
	_, srv := newTestServer(t, newFakeRunner(t))

	post := func() bool {
		resp, err := http.Post(srv.URL+"/build", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
		var body map[string]bool
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body["queued"]
	}
	assert.True(t, post())
	assert.False(t, post(), "a pending build absorbs the second request")

	resp, err := http.Get(srv.URL + "/build")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "GET falls through to the site")
}

func TestServerServesSiteAndMetrics(t *testing.T) {
	_, srv := newTestServer(t, newFakeRunner(t))

	resp, err := http.Get(srv.URL + "/index.html")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "<h1>Home</h1>", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "docblog_daemon_build_running")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRegisterCollectorsTwice(t *testing.T) {
	reg := prom.NewRegistry()
	d := New(newFakeRunner(t), Options{Registry: reg}, discard)
	require.NoError(t, registerCollectors(reg, d))
	require.NoError(t, registerCollectors(reg, d))
}

func TestSchedulerRejectsBadExpression(t *testing.T) {
	_, err := NewScheduler("every tuesday", func(string) bool { return true }, discard)
	require.Error(t, err)

	s, err := NewScheduler("*/5 * * * *", func(string) bool { return true }, discard)
	require.NoError(t, err)
	s.Start()
	require.NoError(t, s.Stop())
}

func TestSourceWatcher(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "_build")
	require.NoError(t, os.MkdirAll(out, 0o755))

	var triggers atomic.Int32
	w, err := NewSourceWatcher(root, []string{out}, 50*time.Millisecond, func(string) bool {
		triggers.Add(1)
		return true
	}, discard)
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))
	t.Cleanup(func() { _ = w.Stop() })

	for i := range 3 {
		name := filepath.Join(root, fmt.Sprintf("2024-03-0%d-post.md", i+1))
		require.NoError(t, os.WriteFile(name, []byte("# Post\n"), 0o644))
	}
	require.Eventually(t, func() bool { return triggers.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.md"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), triggers.Load(), "non-sources and ignored dirs do not trigger")

	sub := filepath.Join(root, "blog")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.Eventually(t, func() bool { return triggers.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "2024-04-01-new.md"), []byte("# New\n"), 0o644))
	require.Eventually(t, func() bool { return triggers.Load() == 3 }, 2*time.Second, 10*time.Millisecond)
}
