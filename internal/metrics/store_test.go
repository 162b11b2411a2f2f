package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreMetrics(t *testing.T) {
	collector := NewCollector()
	metrics := NewStoreMetrics(collector, "app_")
	require.NotNil(t, metrics)
}

func TestStoreMetrics_OperationCompleted(t *testing.T) {
	collector := NewCollector()
	metrics := NewStoreMetrics(collector, "app_")

	metrics.OperationCompleted("get", 2*time.Millisecond, nil)
	metrics.OperationCompleted("get", time.Millisecond, nil)
	metrics.OperationCompleted("put", time.Millisecond, errors.New("backend down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.operationsTotal.WithLabelValues("app_", "get", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operationsTotal.WithLabelValues("app_", "put", StatusError)))

	metricFamilies, err := collector.GetRegistry().Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() == MetricOperationDuration {
			found = true
			assert.Len(t, mf.GetMetric(), 2)
		}
	}
	assert.True(t, found, "operation duration metric should be found")
}

func TestStoreMetrics_DecodeAndExpiry(t *testing.T) {
	collector := NewCollector()
	metrics := NewStoreMetrics(collector, "app_")

	metrics.DecodeFailed("get", "app_broken", errors.New("malformed"))
	metrics.DecodeFailed("info", "app_broken", errors.New("malformed"))
	metrics.ExpiredRemoved("purge_expired", 3)
	metrics.ExpiredRemoved("get", 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.decodeFailuresTotal.WithLabelValues("app_", "get")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.expiredRemovedTotal.WithLabelValues("app_", "purge_expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.expiredRemovedTotal.WithLabelValues("app_", "get")))
}

func TestStoreMetrics_InfoComputed(t *testing.T) {
	collector := NewCollector()
	metrics := NewStoreMetrics(collector, "app_")

	metrics.InfoComputed(4, 1024, 1)
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.namespaceItems.WithLabelValues("app_")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(metrics.namespaceSize.WithLabelValues("app_")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.namespaceExpired.WithLabelValues("app_")))

	metrics.InfoComputed(0, 0, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.namespaceItems.WithLabelValues("app_")))
}

func TestServer_ServesRegistry(t *testing.T) {
	collector := NewCollector()
	metrics := NewStoreMetrics(collector, "app_")
	metrics.InfoComputed(2, 10, 0)

	server := NewServer("127.0.0.1:0", "", collector.GetRegistry())
	ctx := context.Background()
	require.NoError(t, server.Start(ctx))
	defer server.Stop(ctx)
	assert.True(t, server.Ready())

	resp, err := http.Get("http://" + server.Addr() + DefaultPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), MetricNamespaceItems)

	require.NoError(t, server.Stop(ctx))
	assert.False(t, server.Ready())
}
