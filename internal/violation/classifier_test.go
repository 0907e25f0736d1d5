package violation

import (
	"math"
	"testing"

	"github.com/qassimdata/mosquemeter/internal/aggregate"
	"github.com/qassimdata/mosquemeter/internal/quality"
)

func fp(v float64) *float64 { return &v }

func testParams() Params {
	return Params{
		ThresholdWatts: 3000,
		BaselineWatts:  500,
		UnitPriceSAR:   0.32,
		ReadingsPerDay: 48,
	}
}

func goodQuality(meterID string) map[string]quality.Quality {
	return map[string]quality.Quality{
		meterID: {MeterID: meterID, QualityPercentage: 80, IsGoodQuality: true},
	}
}

func statsRow(morningAvg, eveningAvg *float64, scaling float64) aggregate.QuarterStats {
	s := aggregate.QuarterStats{
		MeterID:       "M-1",
		Quarter:       "2025-Q3",
		MorningAvg:    morningAvg,
		EveningAvg:    eveningAvg,
		ScalingFactor: scaling,
		Region:        "Qassim",
	}
	if morningAvg != nil {
		s.MorningCount = 48
		s.MorningSum = *morningAvg * 48
	}
	if eveningAvg != nil {
		s.EveningCount = 48
		s.EveningSum = *eveningAvg * 48
	}
	s.TotalSum = s.MorningSum + s.EveningSum
	s.TotalCount = s.MorningCount + s.EveningCount
	return s
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %f, want %f", name, got, want)
	}
}

// A meter averaging 1600 W over 48 morning readings with a scaling factor
// of 2.0: scaled average 3200 exceeds the threshold, the period energy is
// 76.8 kWh, and bringing it down to the 500 W baseline would recover
// 20.736 SAR.
func TestClassifyMorningViolator(t *testing.T) {
	c := NewClassifier(testParams())
	res := c.Classify([]aggregate.QuarterStats{statsRow(fp(1600), nil, 2.0)}, goodQuality("M-1"))

	if len(res.All) != 1 || len(res.Violators) != 1 {
		t.Fatalf("all/violators = %d/%d, want 1/1", len(res.All), len(res.Violators))
	}
	rec := res.Violators[0]

	if rec.MorningAvgScaled == nil || *rec.MorningAvgScaled != 3200 {
		t.Errorf("scaled morning avg = %v, want 3200", rec.MorningAvgScaled)
	}
	if !rec.OverInMorning || rec.OverInEvening || rec.OverInBoth {
		t.Errorf("flags = %v/%v/%v, want morning only", rec.OverInMorning, rec.OverInEvening, rec.OverInBoth)
	}
	if rec.ViolationCategory != CategoryMorningOnly {
		t.Errorf("category = %s, want %s", rec.ViolationCategory, CategoryMorningOnly)
	}
	approx(t, "morning energy", rec.MorningEnergyKWh, 76.8)
	approx(t, "morning cost", rec.MorningCostSAR, 24.576)
	approx(t, "morning savings", rec.PotentialSavingsMorning, 20.736)
	approx(t, "total savings", rec.TotalPotentialSavings, 20.736)
}

func TestClassifyThresholdIsStrict(t *testing.T) {
	// Scaled average exactly 3000 is compliant.
	c := NewClassifier(testParams())
	res := c.Classify([]aggregate.QuarterStats{statsRow(fp(3000), fp(3000), 1.0)}, goodQuality("M-1"))

	if len(res.Violators) != 0 {
		t.Fatalf("average at the threshold flagged as a violator")
	}
	if res.All[0].ViolationCategory != CategoryCompliant {
		t.Errorf("category = %s, want %s", res.All[0].ViolationCategory, CategoryCompliant)
	}

	res = c.Classify([]aggregate.QuarterStats{statsRow(fp(3000.01), nil, 1.0)}, goodQuality("M-1"))
	if len(res.Violators) != 1 {
		t.Fatal("average just over the threshold should be flagged")
	}
}

func TestClassifyCategories(t *testing.T) {
	c := NewClassifier(testParams())

	tests := []struct {
		name    string
		morning *float64
		evening *float64
		want    string
	}{
		{"both periods", fp(3500), fp(4000), CategoryBothPeriods},
		{"morning only", fp(3500), fp(1000), CategoryMorningOnly},
		{"evening only", fp(1000), fp(3500), CategoryEveningOnly},
		{"compliant", fp(1000), fp(1000), CategoryCompliant},
		{"nil morning, evening over", nil, fp(3500), CategoryEveningOnly},
		{"nil both", nil, nil, CategoryCompliant},
	}
	for _, tt := range tests {
		res := c.Classify([]aggregate.QuarterStats{statsRow(tt.morning, tt.evening, 1.0)}, goodQuality("M-1"))
		if len(res.All) != 1 {
			t.Fatalf("%s: got %d records", tt.name, len(res.All))
		}
		if got := res.All[0].ViolationCategory; got != tt.want {
			t.Errorf("%s: category = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestClassifyQualityJoin(t *testing.T) {
	c := NewClassifier(testParams())
	stats := []aggregate.QuarterStats{statsRow(fp(3500), nil, 1.0)}

	// No quality row at all.
	res := c.Classify(stats, map[string]quality.Quality{})
	if len(res.All) != 0 || res.DroppedNoQuality != 1 {
		t.Errorf("missing quality row: all=%d dropped=%d, want 0/1", len(res.All), res.DroppedNoQuality)
	}

	// Quality row below the threshold.
	res = c.Classify(stats, map[string]quality.Quality{
		"M-1": {MeterID: "M-1", QualityPercentage: 30, IsGoodQuality: false},
	})
	if len(res.All) != 0 || res.DroppedLowQuality != 1 {
		t.Errorf("low quality row: all=%d dropped=%d, want 0/1", len(res.All), res.DroppedLowQuality)
	}
}

func TestSavingsNeverNegative(t *testing.T) {
	// Baseline misconfigured above the threshold.
	p := testParams()
	p.BaselineWatts = 5000
	c := NewClassifier(p)

	res := c.Classify([]aggregate.QuarterStats{statsRow(fp(3500), nil, 1.0)}, goodQuality("M-1"))
	if len(res.Violators) != 1 {
		t.Fatal("expected one violator")
	}
	if got := res.Violators[0].PotentialSavingsMorning; got != 0 {
		t.Errorf("savings = %f, want 0 when the baseline exceeds the scaled average", got)
	}
}

func TestCompliantPeriodNoSavings(t *testing.T) {
	c := NewClassifier(testParams())
	res := c.Classify([]aggregate.QuarterStats{statsRow(fp(3500), fp(1000), 1.0)}, goodQuality("M-1"))

	rec := res.Violators[0]
	if rec.PotentialSavingsEvening != 0 {
		t.Errorf("compliant evening period produced savings %f", rec.PotentialSavingsEvening)
	}
	if rec.TotalPotentialSavings != rec.PotentialSavingsMorning {
		t.Errorf("total savings should equal the morning component")
	}
}
