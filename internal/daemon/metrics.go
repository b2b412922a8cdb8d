package daemon

import (
	stderrors "errors"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
)

// registerCollectors adds runtime collectors and daemon status gauges to
// reg. Collectors registered by an earlier daemon are kept.
func registerCollectors(reg *prom.Registry, d *Daemon) error {
	collectors := []prom.Collector{
		promcollect.NewGoCollector(),
		promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}),
		prom.NewGaugeFunc(prom.GaugeOpts{
			Namespace: "docblog",
			Name:      "daemon_last_build_timestamp_seconds",
			Help:      "Unix time of the most recent completed build",
		}, func() float64 {
			last := d.Status().LastBuild
			if last.IsZero() {
				return 0
			}
			return float64(last.Unix())
		}),
		prom.NewGaugeFunc(prom.GaugeOpts{
			Namespace: "docblog",
			Name:      "daemon_broken_links",
			Help:      "Broken links found by the most recent html build",
		}, func() float64 { return float64(d.Status().Broken) }),
		prom.NewGaugeFunc(prom.GaugeOpts{
			Namespace: "docblog",
			Name:      "daemon_build_running",
			Help:      "1 while a build is running",
		}, func() float64 {
			if d.Status().Running {
				return 1
			}
			return 0
		}),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prom.AlreadyRegisteredError
			if stderrors.As(err, &are) {
				continue
			}
			return errors.WrapError(err, errors.CategoryInternal, "register daemon metrics").Build()
		}
	}
	return nil
}
