package envstore

import (
	"context"
	"time"

	"git.home.luguber.info/inful/docblog/internal/build"
	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
)

// BuildRecord is one entry of the build history.
type BuildRecord struct {
	ID        int64         `json:"id"`
	BuildID   string        `json:"build_id"`
	Format    string        `json:"format"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Documents int           `json:"documents"`
	Read      int           `json:"read"`
	Written   int           `json:"written"`
	Failed    int           `json:"failed"`
	Posts     int           `json:"posts"`
}

// RecordFromResult summarises a build result for the history.
func RecordFromResult(res *build.Result, at time.Time) BuildRecord {
	rec := BuildRecord{
		BuildID:   res.BuildID,
		Format:    res.Format.String(),
		Timestamp: at,
		Duration:  res.Duration,
		Documents: res.Total,
		Read:      len(res.Read),
		Written:   len(res.Written),
		Failed:    len(res.Failed),
	}
	if res.Env != nil {
		rec.Posts = len(res.Env.Posts.Published())
	}
	return rec
}

// AppendBuild adds rec to the build history.
func (s *SQLiteStore) AppendBuild(ctx context.Context, rec BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO builds (build_id, format, timestamp, duration_ms, documents, read, written, failed, posts) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		rec.BuildID, rec.Format, rec.Timestamp.Unix(), rec.Duration.Milliseconds(),
		rec.Documents, rec.Read, rec.Written, rec.Failed, rec.Posts,
	)
	if err != nil {
		return writeError(err, "builds")
	}
	return nil
}

// RecentBuilds returns up to limit builds, newest first.
func (s *SQLiteStore) RecentBuilds(ctx context.Context, limit int) ([]BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		return nil, errors.ValidationError("limit must be positive").Build()
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, format, timestamp, duration_ms, documents, read, written, failed, posts FROM builds ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, queryError(err, "builds")
	}
	defer rows.Close()

	var out []BuildRecord
	for rows.Next() {
		var (
			rec         BuildRecord
			unix, durMS int64
		)
		if err := rows.Scan(&rec.ID, &rec.BuildID, &rec.Format, &unix, &durMS,
			&rec.Documents, &rec.Read, &rec.Written, &rec.Failed, &rec.Posts); err != nil {
			return nil, queryError(err, "builds")
		}
		rec.Timestamp = time.Unix(unix, 0)
		rec.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, "builds")
	}
	return out, nil
}
