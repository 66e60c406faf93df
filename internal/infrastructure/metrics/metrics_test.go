package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturard/internal/infrastructure/metrics"
)

type fakeStats struct{ acquired, idle, total int32 }

func (f fakeStats) AcquiredConns() int32 { return f.acquired }
func (f fakeStats) IdleConns() int32     { return f.idle }
func (f fakeStats) TotalConns() int32    { return f.total }

func TestRegisterPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.RegisterPool(reg, func() metrics.PoolStats { return fakeStats{acquired: 3, idle: 2, total: 5} })

	families, err := reg.Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, f := range families {
		got[f.GetName()] = f.GetMetric()[0].GetGauge().GetValue()
	}
	assert.Equal(t, 3.0, got["facturard_db_pool_acquired_conns"])
	assert.Equal(t, 2.0, got["facturard_db_pool_idle_conns"])
	assert.Equal(t, 5.0, got["facturard_db_pool_total_conns"])
}

func TestNCFAllocationsCounter(t *testing.T) {
	c := metrics.NCFAllocations.WithLabelValues("99", metrics.ResultOK)
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
