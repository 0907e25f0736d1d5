package report

import (
	"math"
	"testing"

	"github.com/qassimdata/mosquemeter/internal/aggregate"
	"github.com/qassimdata/mosquemeter/internal/violation"
)

func fp(v float64) *float64 { return &v }

func TestDefinitionMatches(t *testing.T) {
	tests := []struct {
		name     string
		def      Definition
		region   string
		province string
		want     bool
	}{
		{"exact region", Definition{Region: "Riyadh"}, "Riyadh", "", true},
		{"case folded", Definition{Region: "RIYADH"}, "riyadh", "", true},
		{"substring", Definition{Region: "Riyadh"}, "Ar-Riyadh Region", "", true},
		{"no match", Definition{Region: "Qassim"}, "Riyadh", "", false},
		{"province substring", Definition{ProvinceContains: "buraydah"}, "", "BURAYDAH CITY", true},
		{"both filters", Definition{Region: "Qassim", ProvinceContains: "Unayzah"}, "Qassim", "Buraydah", false},
		{"empty matches all", Definition{}, "anything", "anywhere", true},
	}
	for _, tt := range tests {
		if got := tt.def.Matches(tt.region, tt.province); got != tt.want {
			t.Errorf("%s: Matches(%q, %q) = %v, want %v", tt.name, tt.region, tt.province, got, tt.want)
		}
	}
}

func TestBuildSummary(t *testing.T) {
	defs := []Definition{
		{Name: "Qassim", Region: "Qassim"},
		{Name: "Kingdom", Region: ""},
	}
	b := NewBuilder(defs, 3000)

	allStats := []aggregate.QuarterStats{
		{MeterID: "M-1", Region: "Qassim"},
		{MeterID: "M-2", Region: "Qassim"},
		{MeterID: "M-3", Region: "Riyadh"},
	}
	classified := []violation.Record{
		{
			MeterID: "M-1", Region: "Qassim",
			OverInMorning: true, OverInEvening: true, OverInBoth: true, OverInEither: true,
			MorningAvgScaled: fp(3400), EveningAvgScaled: fp(3200),
			TotalEnergyKWh: 2_000_000, TotalCostSAR: 640_000, TotalPotentialSavings: 500_000,
		},
		{
			MeterID: "M-2", Region: "Qassim",
			TotalEnergyKWh: 1_000_000, TotalCostSAR: 320_000,
		},
		{
			MeterID: "M-3", Region: "Riyadh",
			OverInMorning: true, OverInEither: true,
			MorningAvgScaled: fp(3100),
			TotalEnergyKWh:   500_000, TotalCostSAR: 160_000, TotalPotentialSavings: 100_000,
		},
	}

	summaries := b.Build("run-1", allStats, classified)
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	qassim := summaries[0]
	if qassim.RunID != "run-1" || qassim.Name != "Qassim" {
		t.Errorf("summary identity wrong: %+v", qassim)
	}
	if qassim.RowsBeforeQuality != 2 || qassim.RowsAfterQuality != 2 {
		t.Errorf("rows before/after = %d/%d, want 2/2", qassim.RowsBeforeQuality, qassim.RowsAfterQuality)
	}
	if qassim.TotalViolators != 1 || qassim.MorningViolators != 1 || qassim.EveningViolators != 1 || qassim.BothViolators != 1 {
		t.Errorf("violator counts wrong: %+v", qassim)
	}
	if math.Abs(qassim.ViolatorEnergyMkWh-2.0) > 1e-9 {
		t.Errorf("violator energy = %f MkWh, want 2.0", qassim.ViolatorEnergyMkWh)
	}
	if math.Abs(qassim.CompliantCostMSAR-0.32) > 1e-9 {
		t.Errorf("compliant cost = %f MSAR, want 0.32", qassim.CompliantCostMSAR)
	}
	if math.Abs(qassim.PotentialSavingsMSAR-0.5) > 1e-9 {
		t.Errorf("savings = %f MSAR, want 0.5", qassim.PotentialSavingsMSAR)
	}
	// Overshoots 400 and 200 average to 300.
	if math.Abs(qassim.AvgOvershootWatts-300) > 1e-9 {
		t.Errorf("avg overshoot = %f, want 300", qassim.AvgOvershootWatts)
	}

	kingdom := summaries[1]
	if kingdom.RowsBeforeQuality != 3 || kingdom.TotalViolators != 2 {
		t.Errorf("kingdom-wide summary wrong: %+v", kingdom)
	}
	// Overshoots 400, 200 and 100 average to 233.33.
	if math.Abs(kingdom.AvgOvershootWatts-700.0/3.0) > 1e-6 {
		t.Errorf("kingdom avg overshoot = %f", kingdom.AvgOvershootWatts)
	}
}

func TestBuildNoViolators(t *testing.T) {
	b := NewBuilder([]Definition{{Name: "Empty", Region: "Tabuk"}}, 3000)
	summaries := b.Build("run-2", nil, nil)
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	if summaries[0].AvgOvershootWatts != 0 || summaries[0].TotalViolators != 0 {
		t.Errorf("empty region summary should be zeroed: %+v", summaries[0])
	}
}

func TestQuarterDisplayLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-Q1", "الربع الأول 2025"},
		{"2025-Q3", "الربع الثالث 2025"},
		{"garbage", "garbage"},
	}
	for _, tt := range tests {
		if got := QuarterDisplayLabel(tt.in); got != tt.want {
			t.Errorf("QuarterDisplayLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
