package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObservePhaseDuration("read", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncPhaseResult("read", ResultSuccess)
	pr.IncBuildOutcome(BuildOutcomeSuccess)
	pr.AddDocuments("read", 3)
	pr.AddDocuments("read", 0)
	pr.SetPosts(4, 3)
	pr.IncSourceSync(true)
	pr.IncNotification(false)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}

	if got := testutil.ToFloat64(pr.documents.WithLabelValues("read")); got != 3 {
		t.Errorf("documents{read} = %v, want 3", got)
	}
	if got := testutil.ToFloat64(pr.posts.WithLabelValues("published")); got != 3 {
		t.Errorf("posts{published} = %v, want 3", got)
	}
	if got := testutil.ToFloat64(pr.notifications.WithLabelValues("failed")); got != 1 {
		t.Errorf("notifications{failed} = %v, want 1", got)
	}
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObservePhaseDuration("read", time.Second)
	pr.IncBuildOutcome(BuildOutcomeFailed)
	pr.SetPosts(1, 1)
}

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveBuildDuration(time.Second)
	r.AddDocuments("write", 2)
}

func TestHTTPHandlerServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncBuildOutcome(BuildOutcomeSuccess)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "docblog_build_outcomes_total") {
		t.Errorf("metrics output missing build outcomes:\n%s", rec.Body.String())
	}
}
