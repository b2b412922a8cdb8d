package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyDocname    = "docname"
	KeyPhase      = "phase"
	KeyFormat     = "format"
	KeyPath       = "path"
	KeyAnchor     = "anchor"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyWorker     = "worker"
	KeyExtension  = "extension"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Docname(d string) slog.Attr      { return slog.String(KeyDocname, d) }
func Phase(name string) slog.Attr     { return slog.String(KeyPhase, name) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Anchor(a string) slog.Attr       { return slog.String(KeyAnchor, a) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Worker(i int) slog.Attr          { return slog.Int(KeyWorker, i) }
func Extension(n string) slog.Attr    { return slog.String(KeyExtension, n) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
