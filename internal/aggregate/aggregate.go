// Package aggregate buckets windowed readings into morning, evening and
// total consumption statistics per meter and calendar quarter.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/qassimdata/mosquemeter/internal/locmatch"
	"github.com/qassimdata/mosquemeter/internal/prayerwin"
	"github.com/qassimdata/mosquemeter/internal/refdata"
)

// Reading is one deduplicated meter observation. A nil Power means the
// value was nulled at ingestion as an out-of-range outlier; the reading
// still exists for quality accounting but contributes to no sums.
type Reading struct {
	MeterID string
	Time    time.Time
	Power   *float64
}

// QuarterStats is one output row per (meter, quarter). Rows are immutable
// for a given input snapshot; re-running over the same snapshot must
// reproduce them exactly, so no run-local fields (timestamps, run IDs)
// belong here.
type QuarterStats struct {
	MeterID string `gorm:"primaryKey;column:meter_id"`
	Quarter string `gorm:"primaryKey;column:quarter"`

	MorningAvg   *float64 `gorm:"column:morning_avg"`
	MorningSum   float64  `gorm:"column:morning_sum"`
	MorningCount int64    `gorm:"column:morning_count"`

	EveningAvg   *float64 `gorm:"column:evening_avg"`
	EveningSum   float64  `gorm:"column:evening_sum"`
	EveningCount int64    `gorm:"column:evening_count"`

	TotalAvg   *float64 `gorm:"column:total_avg"`
	TotalSum   float64  `gorm:"column:total_sum"`
	TotalCount int64    `gorm:"column:total_count"`

	MinReadingDate time.Time `gorm:"column:min_reading_date"`
	MaxReadingDate time.Time `gorm:"column:max_reading_date"`

	ScalingFactor float64 `gorm:"column:scaling_factor"`
	Region        string  `gorm:"column:region"`
	Province      string  `gorm:"column:province"`
}

// TableName specifies the table name for QuarterStats
func (QuarterStats) TableName() string {
	return "meter_quarter_stats"
}

// QuarterLabel derives the calendar-quarter label ("2025-Q3") for a
// reading timestamp.
func QuarterLabel(t time.Time) string {
	return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())+2)/3)
}

// EnergyKWh converts a sum of watt readings into kWh. readingsPerDay
// encodes the meter cadence: at 48 readings/day each reading stands for a
// half hour, so the divisor is 2. A different cadence changes the divisor,
// which is why this is a parameter and not a literal.
func EnergyKWh(sumWatts, scalingFactor float64, readingsPerDay int) float64 {
	divisor := float64(readingsPerDay) / 24.0
	return sumWatts * scalingFactor / divisor / 1000.0
}

// Tally is the row accounting for one aggregation pass: dropped-row
// counters plus the input profile (distinct meters, overall date range)
// persisted with the run's stage statistics.
type Tally struct {
	ReadingsIn      int64
	NoBinding       int64 // meter has no location binding
	NoScheduleMatch int64 // no schedule entry for (date, coordinate), or excluded date
	NullPower       int64 // nulled outliers reaching a window but no bucket
	RowsOut         int64
	RowsDiscarded   int64 // groups with neither a morning nor an evening average

	UniqueMeters   int64
	MinReadingDate *time.Time
	MaxReadingDate *time.Time
}

type groupKey struct {
	meterID string
	quarter string
}

type accumulator struct {
	morningSum   float64
	morningCount int64
	eveningSum   float64
	eveningCount int64
	totalSum     float64
	totalCount   int64
	minDate      time.Time
	maxDate      time.Time
}

// Aggregator consumes readings one at a time and produces QuarterStats.
// It holds only per-group running sums, so memory is bounded by the number
// of distinct (meter, quarter) pairs rather than the reading volume.
type Aggregator struct {
	deriver  *prayerwin.Deriver
	bindings map[string]locmatch.Binding
	meters   map[string]refdata.Meter
	groups   map[groupKey]*accumulator
	seen     map[string]struct{}
	tally    Tally
}

// New creates an Aggregator over an immutable reference snapshot.
func New(deriver *prayerwin.Deriver, bindings []locmatch.Binding, meters []refdata.Meter) *Aggregator {
	bindingIndex := make(map[string]locmatch.Binding, len(bindings))
	for _, b := range bindings {
		bindingIndex[b.MeterID] = b
	}
	meterIndex := make(map[string]refdata.Meter, len(meters))
	for _, m := range meters {
		meterIndex[m.MeterID] = m
	}
	return &Aggregator{
		deriver:  deriver,
		bindings: bindingIndex,
		meters:   meterIndex,
		groups:   make(map[groupKey]*accumulator),
		seen:     make(map[string]struct{}),
	}
}

// Add feeds one reading into the aggregation. Readings without a binding
// or schedule match are counted and skipped; they never abort the batch.
func (a *Aggregator) Add(r Reading) {
	a.tally.ReadingsIn++
	if _, ok := a.seen[r.MeterID]; !ok {
		a.seen[r.MeterID] = struct{}{}
		a.tally.UniqueMeters++
	}
	day := truncateToDate(r.Time)
	if a.tally.MinReadingDate == nil || day.Before(*a.tally.MinReadingDate) {
		d := day
		a.tally.MinReadingDate = &d
	}
	if a.tally.MaxReadingDate == nil || day.After(*a.tally.MaxReadingDate) {
		d := day
		a.tally.MaxReadingDate = &d
	}

	binding, ok := a.bindings[r.MeterID]
	if !ok {
		a.tally.NoBinding++
		return
	}

	windows, ok := a.deriver.Derive(binding.CoordinateKey, r.Time)
	if !ok {
		a.tally.NoScheduleMatch++
		return
	}

	key := groupKey{meterID: r.MeterID, quarter: QuarterLabel(r.Time)}
	acc := a.groups[key]
	if acc == nil {
		acc = &accumulator{minDate: r.Time, maxDate: r.Time}
		a.groups[key] = acc
	}
	if r.Time.Before(acc.minDate) {
		acc.minDate = r.Time
	}
	if r.Time.After(acc.maxDate) {
		acc.maxDate = r.Time
	}

	if r.Power == nil {
		a.tally.NullPower++
		return
	}

	power := *r.Power
	minute := prayerwin.MinuteOfDay(r.Time)

	// The predicates are independent: a reading can fall in neither
	// bucket (the daytime gap) and, with malformed windows, could in
	// principle satisfy both. Each is evaluated on its own.
	if windows.InMorning(minute, r.Time.Weekday()) {
		acc.morningSum += power
		acc.morningCount++
	}
	if windows.InEvening(minute) {
		acc.eveningSum += power
		acc.eveningCount++
	}
	acc.totalSum += power
	acc.totalCount++
}

// Finalize produces the output rows in deterministic (meter, quarter)
// order. Groups with neither a morning nor an evening average are
// discarded: they carry no window-matched consumption at all.
func (a *Aggregator) Finalize() []QuarterStats {
	keys := make([]groupKey, 0, len(a.groups))
	for k := range a.groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].meterID != keys[j].meterID {
			return keys[i].meterID < keys[j].meterID
		}
		return keys[i].quarter < keys[j].quarter
	})

	rows := make([]QuarterStats, 0, len(keys))
	for _, k := range keys {
		acc := a.groups[k]
		if acc.morningCount == 0 && acc.eveningCount == 0 {
			a.tally.RowsDiscarded++
			continue
		}

		meter := a.meters[k.meterID]
		row := QuarterStats{
			MeterID:        k.meterID,
			Quarter:        k.quarter,
			MorningSum:     acc.morningSum,
			MorningCount:   acc.morningCount,
			EveningSum:     acc.eveningSum,
			EveningCount:   acc.eveningCount,
			TotalSum:       acc.totalSum,
			TotalCount:     acc.totalCount,
			MinReadingDate: truncateToDate(acc.minDate),
			MaxReadingDate: truncateToDate(acc.maxDate),
			ScalingFactor:  meter.ScalingFactor,
			Region:         meter.Region,
			Province:       meter.Province,
		}
		if acc.morningCount > 0 {
			avg := acc.morningSum / float64(acc.morningCount)
			row.MorningAvg = &avg
		}
		if acc.eveningCount > 0 {
			avg := acc.eveningSum / float64(acc.eveningCount)
			row.EveningAvg = &avg
		}
		if acc.totalCount > 0 {
			avg := acc.totalSum / float64(acc.totalCount)
			row.TotalAvg = &avg
		}
		rows = append(rows, row)
		a.tally.RowsOut++
	}
	return rows
}

// Tally returns the dropped-row accounting accumulated so far.
func (a *Aggregator) Tally() Tally {
	return a.tally
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
