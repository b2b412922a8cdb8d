package metrics

import "time"

// ResultLabel enumerates phase result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// BuildOutcomeLabel is the final status of a build.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeWarning  BuildOutcomeLabel = "warning"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for build and phase metrics.
type Recorder interface {
	ObservePhaseDuration(phase string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncPhaseResult(phase string, result ResultLabel)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	AddDocuments(phase string, n int)
	SetPosts(total, published int)
	IncSourceSync(success bool)
	IncNotification(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePhaseDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncPhaseResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) AddDocuments(string, int)                   {}
func (NoopRecorder) SetPosts(int, int)                          {}
func (NoopRecorder) IncSourceSync(bool)                         {}
func (NoopRecorder) IncNotification(bool)                       {}
