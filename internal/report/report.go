// Package report builds per-region summaries of the classified quarter
// statistics for the reporting layer.
package report

import (
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/qassimdata/mosquemeter/internal/aggregate"
	"github.com/qassimdata/mosquemeter/internal/violation"
)

// Definition selects the rows one regional summary covers. Region and
// province are substring matches, case-insensitive, because the directory
// carries free-text variants ("Riyadh", "RIYADH CITY", "Ar-Riyadh").
type Definition struct {
	Name             string
	Region           string
	ProvinceContains string
}

// Summary is one regional report row per run. Monetary and energy totals
// are scaled to millions for the reporting layer.
type Summary struct {
	ID    uint   `gorm:"primaryKey;autoIncrement;column:id"`
	RunID string `gorm:"column:run_id;index"`

	Name             string `gorm:"column:name"`
	Region           string `gorm:"column:region"`
	ProvinceContains string `gorm:"column:province_contains"`

	RowsBeforeQuality int64 `gorm:"column:rows_before_quality"`
	RowsAfterQuality  int64 `gorm:"column:rows_after_quality"`

	MorningViolators int64 `gorm:"column:morning_violators"`
	EveningViolators int64 `gorm:"column:evening_violators"`
	BothViolators    int64 `gorm:"column:both_violators"`
	TotalViolators   int64 `gorm:"column:total_violators"`

	ViolatorEnergyMkWh  float64 `gorm:"column:violator_energy_mkwh"`
	ViolatorCostMSAR    float64 `gorm:"column:violator_cost_msar"`
	CompliantEnergyMkWh float64 `gorm:"column:compliant_energy_mkwh"`
	CompliantCostMSAR   float64 `gorm:"column:compliant_cost_msar"`

	PotentialSavingsMSAR float64 `gorm:"column:potential_savings_msar"`
	AvgOvershootWatts    float64 `gorm:"column:avg_overshoot_watts"`

	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName specifies the table name for Summary
func (Summary) TableName() string {
	return "regional_summaries"
}

// Builder builds the configured regional summaries.
type Builder struct {
	defs      []Definition
	threshold float64
}

// NewBuilder creates a Builder. threshold is the violation threshold in
// watts, used for the overshoot statistic.
func NewBuilder(defs []Definition, threshold float64) *Builder {
	return &Builder{defs: defs, threshold: threshold}
}

// Matches reports whether a row's region/province satisfy the definition.
// Empty filter fields match everything.
func (d Definition) Matches(region, province string) bool {
	if d.Region != "" && !containsFold(region, d.Region) {
		return false
	}
	if d.ProvinceContains != "" && !containsFold(province, d.ProvinceContains) {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToUpper(haystack), strings.ToUpper(needle))
}

// Build produces one summary per definition. allStats is the full
// pre-quality-filter row set; classified is the quality-passed set with
// violation flags.
func (b *Builder) Build(runID string, allStats []aggregate.QuarterStats, classified []violation.Record) []Summary {
	now := time.Now().UTC()
	summaries := make([]Summary, 0, len(b.defs))

	for _, def := range b.defs {
		s := Summary{
			RunID:            runID,
			Name:             def.Name,
			Region:           def.Region,
			ProvinceContains: def.ProvinceContains,
			CreatedAt:        now,
		}

		for _, row := range allStats {
			if def.Matches(row.Region, row.Province) {
				s.RowsBeforeQuality++
			}
		}

		var overshoots []float64
		for _, rec := range classified {
			if !def.Matches(rec.Region, rec.Province) {
				continue
			}
			s.RowsAfterQuality++

			if !rec.OverInEither {
				s.CompliantEnergyMkWh += rec.TotalEnergyKWh / 1e6
				s.CompliantCostMSAR += rec.TotalCostSAR / 1e6
				continue
			}

			s.TotalViolators++
			if rec.OverInMorning {
				s.MorningViolators++
			}
			if rec.OverInEvening {
				s.EveningViolators++
			}
			if rec.OverInBoth {
				s.BothViolators++
			}
			s.ViolatorEnergyMkWh += rec.TotalEnergyKWh / 1e6
			s.ViolatorCostMSAR += rec.TotalCostSAR / 1e6
			s.PotentialSavingsMSAR += rec.TotalPotentialSavings / 1e6

			if rec.OverInMorning && rec.MorningAvgScaled != nil {
				overshoots = append(overshoots, *rec.MorningAvgScaled-b.threshold)
			}
			if rec.OverInEvening && rec.EveningAvgScaled != nil {
				overshoots = append(overshoots, *rec.EveningAvgScaled-b.threshold)
			}
		}

		if len(overshoots) > 0 {
			s.AvgOvershootWatts = stat.Mean(overshoots, nil)
		}
		summaries = append(summaries, s)
	}
	return summaries
}
