// Package violation classifies quality-passed quarter statistics against
// the consumption threshold and estimates the recoverable cost.
package violation

import (
	"github.com/qassimdata/mosquemeter/internal/aggregate"
	"github.com/qassimdata/mosquemeter/internal/quality"
)

// Violation categories.
const (
	CategoryBothPeriods = "BOTH_PERIODS"
	CategoryMorningOnly = "MORNING_ONLY"
	CategoryEveningOnly = "EVENING_ONLY"
	CategoryCompliant   = "COMPLIANT"
)

// Record is one classified (meter, quarter). Only records with
// OverInEither set are persisted to the violators table; the rest exist
// for regional reporting.
type Record struct {
	MeterID string `gorm:"primaryKey;column:meter_id"`
	Quarter string `gorm:"primaryKey;column:quarter"`

	MorningAvg       *float64 `gorm:"column:morning_avg"`
	EveningAvg       *float64 `gorm:"column:evening_avg"`
	MorningAvgScaled *float64 `gorm:"column:morning_avg_scaled"`
	EveningAvgScaled *float64 `gorm:"column:evening_avg_scaled"`

	OverInMorning     bool   `gorm:"column:over_in_morning"`
	OverInEvening     bool   `gorm:"column:over_in_evening"`
	OverInBoth        bool   `gorm:"column:over_in_both"`
	OverInEither      bool   `gorm:"column:over_in_either"`
	ViolationCategory string `gorm:"column:violation_category"`

	MorningEnergyKWh float64 `gorm:"column:morning_energy_kwh"`
	MorningCostSAR   float64 `gorm:"column:morning_cost_sar"`
	EveningEnergyKWh float64 `gorm:"column:evening_energy_kwh"`
	EveningCostSAR   float64 `gorm:"column:evening_cost_sar"`
	TotalEnergyKWh   float64 `gorm:"column:total_energy_kwh"`
	TotalCostSAR     float64 `gorm:"column:total_cost_sar"`

	PotentialSavingsMorning float64 `gorm:"column:potential_savings_morning"`
	PotentialSavingsEvening float64 `gorm:"column:potential_savings_evening"`
	TotalPotentialSavings   float64 `gorm:"column:total_potential_savings"`

	ScalingFactor     float64 `gorm:"column:scaling_factor"`
	Region            string  `gorm:"column:region"`
	Province          string  `gorm:"column:province"`
	QualityPercentage float64 `gorm:"column:quality_percentage"`
}

// TableName specifies the table name for Record
func (Record) TableName() string {
	return "violator_records"
}

// Params are the classification tunables.
type Params struct {
	ThresholdWatts float64
	BaselineWatts  float64
	UnitPriceSAR   float64
	ReadingsPerDay int
}

// Result carries both the full quality-passed set (for regional reporting)
// and the violator subset (for persistence), plus the join accounting.
type Result struct {
	All       []Record
	Violators []Record

	DroppedNoQuality  int64 // stats row with no quality row at all
	DroppedLowQuality int64 // quality row below the threshold
}

// Classifier applies the threshold and scaling rules.
type Classifier struct {
	params Params
}

// NewClassifier creates a Classifier.
func NewClassifier(params Params) *Classifier {
	return &Classifier{params: params}
}

// Classify joins quarter statistics with quality rows (inner-join: a meter
// without a quality row is dropped), filters to good-quality meters, and
// flags over-consumption. The threshold comparison is strictly greater
// than; an average exactly at the threshold is compliant.
func (c *Classifier) Classify(stats []aggregate.QuarterStats, qualityByMeter map[string]quality.Quality) Result {
	var res Result
	res.All = make([]Record, 0, len(stats))

	for _, s := range stats {
		q, ok := qualityByMeter[s.MeterID]
		if !ok {
			res.DroppedNoQuality++
			continue
		}
		if !q.IsGoodQuality {
			res.DroppedLowQuality++
			continue
		}

		rec := Record{
			MeterID:           s.MeterID,
			Quarter:           s.Quarter,
			MorningAvg:        s.MorningAvg,
			EveningAvg:        s.EveningAvg,
			MorningAvgScaled:  scale(s.MorningAvg, s.ScalingFactor),
			EveningAvgScaled:  scale(s.EveningAvg, s.ScalingFactor),
			MorningEnergyKWh:  aggregate.EnergyKWh(s.MorningSum, s.ScalingFactor, c.params.ReadingsPerDay),
			EveningEnergyKWh:  aggregate.EnergyKWh(s.EveningSum, s.ScalingFactor, c.params.ReadingsPerDay),
			TotalEnergyKWh:    aggregate.EnergyKWh(s.TotalSum, s.ScalingFactor, c.params.ReadingsPerDay),
			ScalingFactor:     s.ScalingFactor,
			Region:            s.Region,
			Province:          s.Province,
			QualityPercentage: q.QualityPercentage,
		}
		rec.MorningCostSAR = rec.MorningEnergyKWh * c.params.UnitPriceSAR
		rec.EveningCostSAR = rec.EveningEnergyKWh * c.params.UnitPriceSAR
		rec.TotalCostSAR = rec.TotalEnergyKWh * c.params.UnitPriceSAR

		rec.OverInMorning = over(rec.MorningAvgScaled, c.params.ThresholdWatts)
		rec.OverInEvening = over(rec.EveningAvgScaled, c.params.ThresholdWatts)
		rec.OverInBoth = rec.OverInMorning && rec.OverInEvening
		rec.OverInEither = rec.OverInMorning || rec.OverInEvening
		rec.ViolationCategory = categorize(rec.OverInMorning, rec.OverInEvening)

		if rec.OverInMorning {
			rec.PotentialSavingsMorning = c.savings(*rec.MorningAvgScaled, s.MorningCount)
		}
		if rec.OverInEvening {
			rec.PotentialSavingsEvening = c.savings(*rec.EveningAvgScaled, s.EveningCount)
		}
		rec.TotalPotentialSavings = rec.PotentialSavingsMorning + rec.PotentialSavingsEvening

		res.All = append(res.All, rec)
		if rec.OverInEither {
			res.Violators = append(res.Violators, rec)
		}
	}
	return res
}

// savings estimates the cost recoverable by bringing an over-consuming
// period down to the baseline draw. Never negative: a flagged period's
// scaled average is above the threshold, which is above the baseline, but
// the clamp guards against a misconfigured baseline.
func (c *Classifier) savings(scaledAvg float64, periodCount int64) float64 {
	excess := scaledAvg - c.params.BaselineWatts
	if excess < 0 {
		excess = 0
	}
	divisor := float64(c.params.ReadingsPerDay) / 24.0
	return (excess * float64(periodCount) / divisor / 1000.0) * c.params.UnitPriceSAR
}

// scale is null-safe: a nil average stays nil.
func scale(avg *float64, factor float64) *float64 {
	if avg == nil {
		return nil
	}
	v := *avg * factor
	return &v
}

// over is false for a nil scaled average.
func over(scaledAvg *float64, threshold float64) bool {
	return scaledAvg != nil && *scaledAvg > threshold
}

func categorize(morning, evening bool) string {
	switch {
	case morning && evening:
		return CategoryBothPeriods
	case morning:
		return CategoryMorningOnly
	case evening:
		return CategoryEveningOnly
	default:
		return CategoryCompliant
	}
}
