// Package metrics exposes deployment counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nimbus"

// Metrics holds the collectors recorded by the deployment core.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	deployments      *prometheus.CounterVec
	deployDuration   *prometheus.HistogramVec
	transferAttempts *prometheus.CounterVec
	remoteCommands   *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		deployments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deployments_total",
			Help:      "Deployment pipeline runs by branch and result.",
		}, []string{"branch", "result"}),
		deployDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "deployment_duration_seconds",
			Help:      "Wall-clock duration of deployment pipeline runs.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"branch"}),
		transferAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfer_attempts_total",
			Help:      "Build copy attempts by result.",
		}, []string{"result"}),
		remoteCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_commands_total",
			Help:      "Remote commands executed by result.",
		}, []string{"result"}),
		gatherer: reg,
	}

	reg.MustRegister(m.deployments, m.deployDuration, m.transferAttempts, m.remoteCommands)
	return m
}

// Handler returns an HTTP handler serving the registered metrics
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveDeployment records one finished pipeline run
func (m *Metrics) ObserveDeployment(branch string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	if branch == "" {
		branch = "none"
	}
	m.deployments.WithLabelValues(branch, result(err)).Inc()
	m.deployDuration.WithLabelValues(branch).Observe(elapsed.Seconds())
}

// ObserveTransferAttempt records one copy attempt
func (m *Metrics) ObserveTransferAttempt(err error) {
	if m == nil {
		return
	}
	m.transferAttempts.WithLabelValues(result(err)).Inc()
}

// ObserveRemoteCommand records one remote command execution
func (m *Metrics) ObserveRemoteCommand(err error) {
	if m == nil {
		return
	}
	m.remoteCommands.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
