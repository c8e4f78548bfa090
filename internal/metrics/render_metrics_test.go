package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewRenderMetricsWithRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newRenderMetricsWithRegisterer(reg)

	if metrics == nil {
		t.Fatal("newRenderMetricsWithRegisterer should not return nil")
	}
	if metrics.fanoutOrders == nil {
		t.Error("fanoutOrders counter should not be nil")
	}
	if metrics.fanoutChecks == nil {
		t.Error("fanoutChecks counter should not be nil")
	}
	if metrics.renderAttempts == nil {
		t.Error("renderAttempts counter vec should not be nil")
	}
	if metrics.convertDuration == nil {
		t.Error("convertDuration histogram should not be nil")
	}
	if metrics.jobDuration == nil {
		t.Error("jobDuration histogram should not be nil")
	}
	if metrics.activeJobs == nil {
		t.Error("activeJobs gauge should not be nil")
	}

	// Повторная регистрация в том же registry переиспользует коллекторы.
	again := newRenderMetricsWithRegisterer(reg)
	if again == nil {
		t.Fatal("re-registration should not return nil")
	}
}

func TestRecordFanout(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newRenderMetricsWithRegisterer(reg)

	metrics.RecordFanout(3)

	metric := &dto.Metric{}
	if err := metrics.fanoutChecks.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 3.0 {
		t.Errorf("expected counter value 3.0, got %f", metric.Counter.GetValue())
	}

	if err := metrics.fanoutOrders.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1.0 {
		t.Errorf("expected counter value 1.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordRenderResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newRenderMetricsWithRegisterer(reg)

	metrics.RecordRenderResult("rendered")
	metrics.RecordRenderResult("rendered")
	metrics.RecordRenderResult("retried")

	metric := &dto.Metric{}
	counter, err := metrics.renderAttempts.GetMetricWithLabelValues("rendered")
	if err != nil {
		t.Fatalf("failed to get counter: %v", err)
	}
	if err := counter.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestActiveJobsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := newRenderMetricsWithRegisterer(reg)

	metrics.RecordJobStarted()
	metrics.RecordJobStarted()
	metrics.RecordJobFinished()

	metric := &dto.Metric{}
	if err := metrics.activeJobs.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() != 1.0 {
		t.Errorf("expected gauge value 1.0, got %f", metric.Gauge.GetValue())
	}

	metrics.RecordJobDuration(100 * time.Millisecond)
	metrics.RecordConvertDuration(10 * time.Millisecond)
}
