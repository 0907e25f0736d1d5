// Package quality scores each meter's data completeness over its observed
// date range. The score is independent of the observation windows: it
// consumes raw readings and dates only.
package quality

import (
	"sort"
	"time"
)

// Quality is the per-meter completeness record for one run.
type Quality struct {
	MeterID           string  `gorm:"primaryKey;column:meter_id"`
	DateRangeDays     int64   `gorm:"column:date_range_days"`
	ExpectedReadings  int64   `gorm:"column:expected_readings"`
	ActualReadings    int64   `gorm:"column:actual_readings"`
	ZeroReadings      int64   `gorm:"column:zero_readings"`
	MissingReadings   int64   `gorm:"column:missing_readings"`
	QualityPercentage float64 `gorm:"column:quality_percentage"`
	IsGoodQuality     bool    `gorm:"column:is_good_quality"`
}

// TableName specifies the table name for Quality
func (Quality) TableName() string {
	return "meter_quality"
}

type tally struct {
	minDate time.Time
	maxDate time.Time
	actual  int64
	zero    int64
	seen    bool
}

// Scorer accumulates per-meter reading counts and date ranges.
type Scorer struct {
	readingsPerDay int
	thresholdPct   float64
	excluded       func(time.Time) bool
	meters         map[string]*tally

	minDate   time.Time
	maxDate   time.Time
	rangeSeen bool

	// SkippedZeroRange counts meters dropped because their expected
	// reading count was zero (single-day history).
	SkippedZeroRange int64
}

// NewScorer creates a Scorer. excluded marks dates removed from scoring
// entirely (the configured observance window); it may be nil.
func NewScorer(readingsPerDay int, thresholdPct float64, excluded func(time.Time) bool) *Scorer {
	if excluded == nil {
		excluded = func(time.Time) bool { return false }
	}
	return &Scorer{
		readingsPerDay: readingsPerDay,
		thresholdPct:   thresholdPct,
		excluded:       excluded,
		meters:         make(map[string]*tally),
	}
}

// Add feeds one reading into the score. Readings on excluded dates are
// ignored completely; nulled outliers extend nothing and count nothing.
// Unmatched-window readings DO count here: quality is about the meter
// reporting at all, not about schedule coverage.
func (s *Scorer) Add(meterID string, t time.Time, power *float64) {
	if s.excluded(t) {
		return
	}
	if power == nil {
		return
	}

	m := s.meters[meterID]
	if m == nil {
		m = &tally{}
		s.meters[meterID] = m
	}

	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	if !s.rangeSeen {
		s.minDate = day
		s.maxDate = day
		s.rangeSeen = true
	} else {
		if day.Before(s.minDate) {
			s.minDate = day
		}
		if day.After(s.maxDate) {
			s.maxDate = day
		}
	}
	if !m.seen {
		m.minDate = day
		m.maxDate = day
		m.seen = true
	} else {
		if day.Before(m.minDate) {
			m.minDate = day
		}
		if day.After(m.maxDate) {
			m.maxDate = day
		}
	}

	m.actual++
	if *power == 0 {
		m.zero++
	}
}

// MeterCount returns the number of meters that contributed at least one
// countable reading.
func (s *Scorer) MeterCount() int64 {
	return int64(len(s.meters))
}

// DateRange returns the overall observed date range across all meters.
// ok is false when no countable reading has arrived yet.
func (s *Scorer) DateRange() (min, max time.Time, ok bool) {
	return s.minDate, s.maxDate, s.rangeSeen
}

// Finalize produces the per-meter quality rows in meter order. Meters with
// a zero expected-reading count are excluded entirely rather than divided
// by zero. The percentage is reported as-is: a meter denser than the
// expected cadence can legitimately score above 100.
func (s *Scorer) Finalize() []Quality {
	ids := make([]string, 0, len(s.meters))
	for id := range s.meters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]Quality, 0, len(ids))
	for _, id := range ids {
		m := s.meters[id]
		rangeDays := int64(m.maxDate.Sub(m.minDate).Hours() / 24)
		expected := rangeDays * int64(s.readingsPerDay)
		if expected == 0 {
			s.SkippedZeroRange++
			continue
		}

		missing := expected - m.actual
		if missing < 0 {
			missing = 0
		}
		pct := float64(m.actual-m.zero) / float64(expected) * 100.0

		rows = append(rows, Quality{
			MeterID:           id,
			DateRangeDays:     rangeDays,
			ExpectedReadings:  expected,
			ActualReadings:    m.actual,
			ZeroReadings:      m.zero,
			MissingReadings:   missing,
			QualityPercentage: pct,
			IsGoodQuality:     pct >= s.thresholdPct,
		})
	}
	return rows
}
