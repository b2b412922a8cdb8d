package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docblog/internal/build"
	"git.home.luguber.info/inful/docblog/internal/metrics"
	"git.home.luguber.info/inful/docblog/internal/posts"
	"git.home.luguber.info/inful/docblog/internal/render"
)

type fakePublisher struct {
	events []*BuildEvent
	err    error
	closed bool
}

func (f *fakePublisher) Publish(_ context.Context, ev *BuildEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

type countingRecorder struct {
	metrics.NoopRecorder
	ok, failed int
}

func (c *countingRecorder) IncNotification(success bool) {
	if success {
		c.ok++
	} else {
		c.failed++
	}
}

func sampleResult() *build.Result {
	env := build.NewEnvironment()
	env.Posts = posts.NewList(
		&posts.Record{Title: "Old", Docname: "a", Anchor: "post-0", Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Author: "A"},
		&posts.Record{Title: "New", Docname: "b", Anchor: "post-0", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Author: "B", Tags: []string{"x"}},
		&posts.Record{Title: "Draft", Docname: "c", Anchor: "post-0", Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Author: "C", Draft: true},
	)
	return &build.Result{
		BuildID:  "b-1",
		Format:   render.FormatHTML,
		Read:     []string{"a", "b"},
		Failed:   map[string]error{"bad": fmt.Errorf("boom")},
		Duration: time.Second,
		Env:      env,
	}
}

func TestNewBuildEvent(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ev := NewBuildEvent(sampleResult(), at)

	assert.Equal(t, "b-1", ev.BuildID)
	assert.Equal(t, "html", ev.Format)
	assert.Equal(t, []string{"bad"}, ev.Failed)
	require.Len(t, ev.Posts, 2)
	assert.Equal(t, "New", ev.Posts[0].Title)
	assert.Equal(t, "2024-01-01", ev.Posts[0].Date)
	assert.Equal(t, "Old", ev.Posts[1].Title)

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"build_id":"b-1"`)
	assert.Contains(t, string(data), `"docname":"b"`)
}

func TestNewBuildEventWithoutPosts(t *testing.T) {
	ev := NewBuildEvent(&build.Result{BuildID: "x", Format: render.FormatText, Env: build.NewEnvironment()}, time.Now())
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"posts":[]`)
}

func TestNotifier(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub := &fakePublisher{}
	rec := &countingRecorder{}
	n := NewNotifier(pub, rec, logger)

	require.NoError(t, n.BuildFinished(t.Context(), sampleResult()))
	require.Len(t, pub.events, 1)
	assert.Equal(t, 1, rec.ok)

	pub.err = fmt.Errorf("unavailable")
	require.Error(t, n.BuildFinished(t.Context(), sampleResult()))
	assert.Equal(t, 1, rec.failed)

	require.NoError(t, n.Close())
	assert.True(t, pub.closed)
}

func TestNilNotifierIsNoop(t *testing.T) {
	var n *Notifier
	require.NoError(t, n.BuildFinished(t.Context(), sampleResult()))
	require.NoError(t, n.Close())

	require.NoError(t, NewNotifier(nil, nil, nil).BuildFinished(t.Context(), sampleResult()))
}

func TestNATSPublisherConnectFailure(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1", "docblog.builds", 200*time.Millisecond, nil)
	require.Error(t, err)
}
