package params

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSessionAssetNames(t *testing.T) {
	s := Session{NumAssets: 3}
	names := s.AssetNames()
	want := []string{"A", "B", "C"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestSessionEndowments(t *testing.T) {
	s := Session{NumAssets: 2, AssetEndowments: []int{5, 7}}
	got, err := s.Endowments()
	if err != nil {
		t.Fatalf("Endowments: %v", err)
	}
	if got["A"] != 5 || got["B"] != 7 {
		t.Errorf("endowments = %v", got)
	}
}

func TestSessionEndowmentsMismatch(t *testing.T) {
	s := Session{NumAssets: 3, AssetEndowments: []int{5}}
	if _, err := s.Endowments(); err == nil {
		t.Fatal("expected error for mismatched endowment count")
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("PERIOD_LENGTH_S", "120")
	t.Setenv("NUM_ASSETS", "3")
	t.Setenv("ASSET_ENDOWMENTS", "1 2 3")
	t.Setenv("CASH_ENDOWMENT", "250.5")
	t.Setenv("ALLOW_SHORT", "true")
	t.Setenv("PCODE", "p42")

	cfg := LoadFromEnv("")

	if got := cfg.Session.PeriodLength.Seconds(); got != 120 {
		t.Errorf("period = %v, want 120s", got)
	}
	if cfg.Session.NumAssets != 3 {
		t.Errorf("num assets = %d, want 3", cfg.Session.NumAssets)
	}
	if len(cfg.Session.AssetEndowments) != 3 || cfg.Session.AssetEndowments[2] != 3 {
		t.Errorf("endowments = %v", cfg.Session.AssetEndowments)
	}
	if !cfg.Session.CashEndowment.Equal(decimal.RequireFromString("250.5")) {
		t.Errorf("cash = %s", cfg.Session.CashEndowment)
	}
	if !cfg.Session.AllowShort {
		t.Error("allow short not set")
	}
	if cfg.Client.Pcode != "p42" {
		t.Errorf("pcode = %s", cfg.Client.Pcode)
	}
}
