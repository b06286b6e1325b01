package metrics

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRelayMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRelayMetrics(reg)

	m.Observe("form_relay", OutcomeDelivered)
	m.Observe("form_relay", OutcomeDelivered)
	m.Observe("sms", OutcomeRetry)
	m.SetBatchSize(3)

	if got := testutil.ToFloat64(m.deliveries.WithLabelValues("form_relay", OutcomeDelivered)); got != 2 {
		t.Fatalf("expected 2 deliveries, got %f", got)
	}
	if got := testutil.ToFloat64(m.deliveries.WithLabelValues("sms", OutcomeRetry)); got != 1 {
		t.Fatalf("expected 1 retry, got %f", got)
	}
	if got := testutil.ToFloat64(m.pending); got != 3 {
		t.Fatalf("expected batch size 3, got %f", got)
	}
}

func TestNilRegistererIsSafe(t *testing.T) {
	NewRelayMetrics(nil).Observe("x", OutcomeTerminal)
	NewHTTPMetrics(nil).Observe(http.MethodGet, "/", 200, time.Millisecond)
	NewCronJobMetrics(nil).ObserveRun("x", time.Millisecond, nil)
	var nilCron *CronJobMetrics
	nilCron.ObserveRun("x", time.Millisecond, errors.New("boom"))
	var nilMetrics *RelayMetrics
	nilMetrics.SetBatchSize(1)
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe(http.MethodGet, "/api/v1/cart", 200, 20*time.Millisecond)
	m.Observe(http.MethodGet, "", 404, time.Millisecond)

	if got := testutil.CollectAndCount(m.duration); got != 2 {
		t.Fatalf("expected 2 series, got %d", got)
	}
}
