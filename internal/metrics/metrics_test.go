package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveDeployment("create", nil, 3*time.Second)
	m.ObserveDeployment("update", errors.New("boom"), time.Second)
	m.ObserveTransferAttempt(errors.New("timeout"))
	m.ObserveTransferAttempt(nil)
	m.ObserveRemoteCommand(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.deployments.WithLabelValues("create", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deployments.WithLabelValues("update", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transferAttempts.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transferAttempts.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.remoteCommands.WithLabelValues("success")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveDeployment("create", nil, time.Second)
	m.ObserveTransferAttempt(nil)
	m.ObserveRemoteCommand(nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveDeployment("", nil, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `nimbus_deployments_total{branch="none",result="success"} 1`)
}
