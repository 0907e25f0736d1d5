// Package prayerwin derives the morning and evening observation windows
// for a meter's readings from the prayer schedule at its bound coordinate.
//
// All clock arithmetic is done in minutes from local midnight. The evening
// window intentionally spans midnight: its end boundary is earlier in clock
// units than its start, and the membership predicate is an OR across the
// wrap, never a BETWEEN.
package prayerwin

import (
	"time"

	"github.com/qassimdata/mosquemeter/internal/refdata"
)

const minutesPerDay = 24 * 60

// Margins are the window offsets, in minutes, applied to the prayer times.
// The defaults (100/80/90/80) are policy constants inherited from the field
// operations team; they bundle crowd arrival/dispersal buffers and are
// subject to domain-expert confirmation rather than derivation.
type Margins struct {
	MorningStartAfterFajr int
	MorningEndBeforeDhuhr int
	EveningStartAfterIsha int
	EveningEndBeforeFajr  int
}

// DefaultMargins returns the standard window offsets.
func DefaultMargins() Margins {
	return Margins{
		MorningStartAfterFajr: 100,
		MorningEndBeforeDhuhr: 80,
		EveningStartAfterIsha: 90,
		EveningEndBeforeFajr:  80,
	}
}

// Windows are the four derived clock-time boundaries for one meter-date.
type Windows struct {
	MorningStart int
	MorningEnd   int
	EveningStart int
	EveningEnd   int
}

func mod1440(m int) int {
	m %= minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return m
}

// InMorning reports whether a reading at the given minute-of-day falls in
// the morning window. Fridays are excluded from the morning period
// entirely, regardless of clock time; they remain eligible for the evening
// period. If malformed prayer times invert the window (start after end)
// the predicate deterministically returns false.
func (w Windows) InMorning(minuteOfDay int, weekday time.Weekday) bool {
	if weekday == time.Friday {
		return false
	}
	return minuteOfDay >= w.MorningStart && minuteOfDay <= w.MorningEnd
}

// InEvening reports whether a reading at the given minute-of-day falls in
// the evening window. The end boundary is numerically smaller than the
// start (next-day semantics), so membership is start-OR-end, which is what
// makes the window wrap local midnight.
func (w Windows) InEvening(minuteOfDay int) bool {
	return minuteOfDay >= w.EveningStart || minuteOfDay <= w.EveningEnd
}

// Exclusion is a recurring month/day span (inclusive on both ends) removed
// from window derivation, aggregation and quality scoring. A span whose
// start sorts after its end wraps the year boundary.
type Exclusion struct {
	StartMonth int
	StartDay   int
	EndMonth   int
	EndDay     int
}

// Contains reports whether the date's (month, day) falls inside the span.
func (e *Exclusion) Contains(date time.Time) bool {
	if e == nil {
		return false
	}
	md := int(date.Month())*100 + date.Day()
	start := e.StartMonth*100 + e.StartDay
	end := e.EndMonth*100 + e.EndDay
	if start <= end {
		return md >= start && md <= end
	}
	return md >= start || md <= end
}

type scheduleKey struct {
	month int
	day   int
	coord string
}

// Deriver computes observation windows from an indexed schedule snapshot.
type Deriver struct {
	index     map[scheduleKey]refdata.ScheduleEntry
	margins   Margins
	exclusion *Exclusion
}

// NewDeriver indexes the schedule by (month, day, coordinate key). When the
// snapshot carries duplicate entries for a key, the first one wins, which
// keeps derivation stable across runs over the same snapshot.
func NewDeriver(schedule []refdata.ScheduleEntry, margins Margins, exclusion *Exclusion) *Deriver {
	index := make(map[scheduleKey]refdata.ScheduleEntry, len(schedule))
	for _, e := range schedule {
		k := scheduleKey{month: e.Month, day: e.Day, coord: e.Coordinate.Key()}
		if _, dup := index[k]; !dup {
			index[k] = e
		}
	}
	return &Deriver{index: index, margins: margins, exclusion: exclusion}
}

// Derive returns the windows for a reading date at a bound coordinate.
// The match is year-agnostic. The second return is false when no schedule
// entry matches or the date is excluded; such readings carry no windows
// and are skipped by period aggregation.
func (d *Deriver) Derive(coordKey string, date time.Time) (Windows, bool) {
	if d.exclusion.Contains(date) {
		return Windows{}, false
	}
	e, ok := d.index[scheduleKey{month: int(date.Month()), day: date.Day(), coord: coordKey}]
	if !ok {
		return Windows{}, false
	}
	return Windows{
		MorningStart: mod1440(e.Fajr + d.margins.MorningStartAfterFajr),
		MorningEnd:   mod1440(e.Dhuhr - d.margins.MorningEndBeforeDhuhr),
		EveningStart: mod1440(e.Isha + d.margins.EveningStartAfterIsha),
		EveningEnd:   mod1440(e.Fajr - d.margins.EveningEndBeforeFajr),
	}, true
}

// Excluded reports whether the date falls inside the configured exclusion
// span. Quality scoring consults this directly since it never needs the
// windows themselves.
func (d *Deriver) Excluded(date time.Time) bool {
	return d.exclusion.Contains(date)
}

// MinuteOfDay converts a timestamp to minutes from local midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
