// Package notify publishes build summaries so other services can react to
// new posts.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/docblog/internal/build"
	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/logfields"
	"git.home.luguber.info/inful/docblog/internal/metrics"
	"git.home.luguber.info/inful/docblog/internal/posts"
)

// PostSummary describes one published post in a build event.
type PostSummary struct {
	Title   string   `json:"title"`
	Docname string   `json:"docname"`
	Anchor  string   `json:"anchor"`
	Date    string   `json:"date"`
	Author  string   `json:"author"`
	Tags    []string `json:"tags,omitempty"`
}

// BuildEvent is the message published after every build.
type BuildEvent struct {
	BuildID   string        `json:"build_id"`
	Format    string        `json:"format"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration_ns"`
	Read      []string      `json:"read"`
	Purged    []string      `json:"purged,omitempty"`
	Failed    []string      `json:"failed,omitempty"`
	Posts     []PostSummary `json:"posts"`
}

// NewBuildEvent summarises res. Posts are the published posts, newest first.
func NewBuildEvent(res *build.Result, at time.Time) *BuildEvent {
	ev := &BuildEvent{
		BuildID:   res.BuildID,
		Format:    res.Format.String(),
		Timestamp: at,
		Duration:  res.Duration,
		Read:      append([]string{}, res.Read...),
		Purged:    res.Purged,
		Posts:     []PostSummary{},
	}
	for name := range res.Failed {
		ev.Failed = append(ev.Failed, name)
	}
	sort.Strings(ev.Failed)
	if res.Env == nil {
		return ev
	}
	res.Env.Posts.SortByDateDesc()
	for _, r := range res.Env.Posts.Published() {
		ev.Posts = append(ev.Posts, PostSummary{
			Title:   r.DisplayTitle(),
			Docname: r.Docname,
			Anchor:  r.Anchor,
			Date:    r.Date.Format(posts.SourceDateLayout),
			Author:  r.Author,
			Tags:    r.Tags,
		})
	}
	return ev
}

// Publisher sends build events.
type Publisher interface {
	Publish(ctx context.Context, ev *BuildEvent) error
	Close() error
}

// NATSPublisher publishes build events on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
	logger  *slog.Logger
}

// NewNATSPublisher connects to the server at url.
func NewNATSPublisher(url, subject string, timeout time.Duration, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name("docblog"),
		nats.Timeout(timeout),
		nats.MaxReconnects(3),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", logfields.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "connect to NATS").
			WithContext("url", url).
			Retryable().
			Build()
	}
	logger.Info("NATS publisher connected", logfields.URL(url), slog.String("subject", subject))
	return &NATSPublisher{conn: conn, subject: subject, timeout: timeout, logger: logger}, nil
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, ev *BuildEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal build event").Build()
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "publish build event").
			WithContext("subject", p.subject).
			Build()
	}

	flushCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.conn.FlushWithContext(flushCtx); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "flush build event").
			WithContext("subject", p.subject).
			Retryable().
			Build()
	}
	p.logger.Debug("Published build event", logfields.BuildID(ev.BuildID), logfields.Count(len(ev.Posts)))
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Notifier publishes build results and records the outcome. A nil
// publisher makes every call a no-op.
type Notifier struct {
	publisher Publisher
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// NewNotifier wraps publisher.
func NewNotifier(publisher Publisher, recorder metrics.Recorder, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{publisher: publisher, recorder: recorder, logger: logger}
}

// BuildFinished publishes res. Failures are logged and returned; they
// never fail the build itself.
func (n *Notifier) BuildFinished(ctx context.Context, res *build.Result) error {
	if n == nil || n.publisher == nil || res == nil {
		return nil
	}
	err := n.publisher.Publish(ctx, NewBuildEvent(res, time.Now()))
	if n.recorder != nil {
		n.recorder.IncNotification(err == nil)
	}
	if err != nil {
		n.logger.Warn("Build notification failed", logfields.BuildID(res.BuildID), logfields.Error(err))
	}
	return err
}

// Close closes the publisher.
func (n *Notifier) Close() error {
	if n == nil || n.publisher == nil {
		return nil
	}
	return n.publisher.Close()
}
