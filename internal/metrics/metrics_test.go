package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistersAllCollectorsWithoutPanicking(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveFill("BTCUSDT", true)
	r.ObserveFill("BTCUSDT", false)
	r.ObserveReject("InvalidParam")
	r.ObserveCancel()
	r.SetEquity(10500.5)
	r.ObserveFunding(1.25)
	r.SetOpenOrders(3)
	r.ObserveBarPlayed()
	r.SetWSClients(2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected at least one registered metric family")
	}
}

func TestSetEquityReflectsLastValue(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)
	r.SetEquity(100)
	r.SetEquity(200)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var got *float64
	for _, f := range families {
		if f.GetName() == "sim_equity" {
			v := f.GetMetric()[0].GetGauge().GetValue()
			got = &v
		}
	}
	if got == nil {
		t.Fatalf("sim_equity metric not found")
	}
	if *got != 200 {
		t.Fatalf("expected sim_equity to reflect the last Set call, got %v", *got)
	}
}

func TestObserveFillLabelsByLiquidity(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)
	r.ObserveFill("ETHUSDT", true)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var metric *dto.Metric
	for _, f := range families {
		if f.GetName() == "sim_fills_total" {
			metric = f.GetMetric()[0]
		}
	}
	if metric == nil {
		t.Fatalf("sim_fills_total metric not found")
	}
	foundMaker := false
	for _, l := range metric.GetLabel() {
		if l.GetName() == "liquidity" && l.GetValue() == "maker" {
			foundMaker = true
		}
	}
	if !foundMaker {
		t.Fatalf("expected the maker label on the fill counter, got %+v", metric.GetLabel())
	}
}
