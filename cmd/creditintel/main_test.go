package main

import (
	"testing"

	"github.com/TobiSchelling/creditintel/internal/api"
)

func TestSparkline(t *testing.T) {
	got := sparkline([]float64{-5, -1, 0, 1, 5})
	if got != "▁▁▄██" {
		t.Errorf("sparkline = %q", got)
	}
	if sparkline(nil) != "" {
		t.Error("expected empty sparkline for no values")
	}
}

func TestLookupIssuer(t *testing.T) {
	issuers := []api.Issuer{{ID: 1, Ticker: "AAPL"}, {ID: 2, Ticker: "MSFT"}}

	if i, ok := lookupIssuer(issuers, "2"); !ok || i.Ticker != "MSFT" {
		t.Errorf("lookup by id: got %+v, %v", i, ok)
	}
	if i, ok := lookupIssuer(issuers, "aapl"); !ok || i.ID != 1 {
		t.Errorf("lookup by ticker: got %+v, %v", i, ok)
	}
	if _, ok := lookupIssuer(issuers, "TSLA"); ok {
		t.Error("expected unknown ticker to miss")
	}
}
