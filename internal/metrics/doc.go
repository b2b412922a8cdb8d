// Package metrics records build metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection needs no nil checks:
//
//	b := build.NewBuilder(app, opts, build.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// PrometheusRecorder registers its collectors on the given registry and
// HTTPHandler serves that registry on /metrics.
package metrics
