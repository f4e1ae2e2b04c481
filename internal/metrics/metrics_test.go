package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestGlobalMetrics(t *testing.T) {
	if Global() != nil {
		t.Error("Global() should be nil before SetGlobal")
	}

	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	if Global() != m {
		t.Error("Global() did not return the set metrics")
	}
}

func TestHelpersWithoutGlobal(t *testing.T) {
	SetGlobal(nil)

	// None of these may panic
	IncActions("fund", "settled")
	ObserveSettle("fund", 1)
	IncInFlight()
	DecInFlight()
	IncLedgerReads("campaigns", "ok")
	SetSessionsActive(2)
	SetEventsClients(1)
	IncAPIErrors("server_error")
}

func TestActionCounters(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncActions("fund", "settled")
	IncActions("fund", "settled")
	IncActions("refund", "precondition")

	c, err := m.ActionsTotal.GetMetricWithLabelValues("fund", "settled")
	if err != nil {
		t.Fatal(err)
	}
	if got := counterValue(t, c); got != 2 {
		t.Errorf("fund/settled = %v, want 2", got)
	}

	c, _ = m.ActionsTotal.GetMetricWithLabelValues("refund", "precondition")
	if got := counterValue(t, c); got != 1 {
		t.Errorf("refund/precondition = %v, want 1", got)
	}
}

func TestInFlightGauge(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncInFlight()
	IncInFlight()
	DecInFlight()

	if got := gaugeValue(t, m.ActionsInFlight); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
}

func TestLedgerReads(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncLedgerReads("campaigns", "ok")
	IncLedgerReads("campaigns", "error")
	IncLedgerReads("campaigns", "ok")

	c, _ := m.LedgerReadsTotal.GetMetricWithLabelValues("campaigns", "ok")
	if got := counterValue(t, c); got != 2 {
		t.Errorf("campaigns/ok = %v, want 2", got)
	}
}

func TestSessionAndEventGauges(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	SetSessionsActive(3)
	SetEventsClients(5)

	if got := gaugeValue(t, m.SessionsActive); got != 3 {
		t.Errorf("sessions = %v, want 3", got)
	}
	if got := gaugeValue(t, m.EventsClients); got != 5 {
		t.Errorf("clients = %v, want 5", got)
	}
}

type stubJournalStats struct {
	stats JournalStats
}

func (s stubJournalStats) JournalStats(ctx context.Context) (*JournalStats, error) {
	return &s.stats, nil
}

func TestCollectorCollect(t *testing.T) {
	m := New()
	c := NewCollector(m, stubJournalStats{JournalStats{Submitted: 1, Settled: 4, Abandoned: 2}}, "", 0)

	c.collect(context.Background())

	settled, _ := m.JournalEntries.GetMetricWithLabelValues("settled")
	if got := gaugeValue(t, settled); got != 4 {
		t.Errorf("settled = %v, want 4", got)
	}
	abandoned, _ := m.JournalEntries.GetMetricWithLabelValues("abandoned")
	if got := gaugeValue(t, abandoned); got != 2 {
		t.Errorf("abandoned = %v, want 2", got)
	}
	if gaugeValue(t, m.Goroutines) <= 0 {
		t.Error("goroutines gauge not set")
	}
}

func TestCollectorStartStop(t *testing.T) {
	c := NewCollector(New(), nil, "", 0)
	c.Start(context.Background())
	c.Stop()
}
