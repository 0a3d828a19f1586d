package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RegisterOnFreshRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()

	for _, c := range m.collectors() {
		require.NoError(t, reg.Register(c))
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetricsForTesting()

	m.SnapshotCache.WithLabelValues("hit").Inc()
	m.SnapshotCache.WithLabelValues("hit").Inc()
	m.Evaluations.WithLabelValues("rejected").Inc()
	m.MasterRows.Set(3143)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SnapshotCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("rejected")))
	assert.Equal(t, 3143.0, testutil.ToFloat64(m.MasterRows))
}
