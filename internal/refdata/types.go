// Package refdata loads and validates the static reference datasets: the
// prayer schedule and the meter directory. Both are loaded in full once per
// run and treated as immutable snapshots.
package refdata

import (
	"fmt"
	"sort"
	"time"
)

// Coordinate is a geographic reference point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Key returns the canonical string form of the coordinate. It doubles as
// the deterministic ordering used to break nearest-neighbor ties, so the
// precision here must not change without recomputing stored bindings.
func (c Coordinate) Key() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// ScheduleEntry is one day of prayer times at one reference coordinate.
// Times are minutes from midnight local time. The date is year-agnostic:
// entries are matched on (month, day) only.
type ScheduleEntry struct {
	Coordinate
	Month   int
	Day     int
	Fajr    int
	Dhuhr   int
	Asr     int
	Maghrib int
	Isha    int
}

// Meter is one row of the meter directory.
type Meter struct {
	MeterID       string
	Coordinate
	ScalingFactor float64
	Region        string
	Province      string
	Department    string
	Office        string
}

// Set is a loaded, validated reference snapshot.
type Set struct {
	Schedule []ScheduleEntry
	Meters   []Meter

	// UnparsableScalingFactors counts directory rows whose scaling factor
	// fell back to 1.0. Reported as a data-quality note, not an error.
	UnparsableScalingFactors int

	distinct []Coordinate
}

// DistinctCoordinates returns the unique schedule coordinates in their
// stable (lexicographic key) order.
func (s *Set) DistinctCoordinates() []Coordinate {
	if s.distinct != nil {
		return s.distinct
	}
	seen := make(map[string]Coordinate)
	for _, e := range s.Schedule {
		seen[e.Coordinate.Key()] = e.Coordinate
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s.distinct = make([]Coordinate, 0, len(keys))
	for _, k := range keys {
		s.distinct = append(s.distinct, seen[k])
	}
	return s.distinct
}

// Validate reports whether the snapshot can support a run. Empty reference
// data is the one fatal input condition.
func (s *Set) Validate() error {
	if len(s.Schedule) == 0 {
		return fmt.Errorf("prayer schedule is empty")
	}
	if len(s.Meters) == 0 {
		return fmt.Errorf("meter directory is empty")
	}
	return nil
}

// PrayerScheduleRow is the stored form of a schedule entry. Times are kept
// as text exactly as loaded from the reference workbook.
type PrayerScheduleRow struct {
	ID        uint      `gorm:"primaryKey;autoIncrement;column:id"`
	Latitude  float64   `gorm:"column:latitude;not null"`
	Longitude float64   `gorm:"column:longitude;not null"`
	Month     int       `gorm:"column:month;not null"`
	Day       int       `gorm:"column:day;not null"`
	Fajr      string    `gorm:"column:fajr;not null"`
	Dhuhr     string    `gorm:"column:dhuhr;not null"`
	Asr       string    `gorm:"column:asr;not null"`
	Maghrib   string    `gorm:"column:maghrib;not null"`
	Isha      string    `gorm:"column:isha;not null"`
	LoadedAt  time.Time `gorm:"column:loaded_at"`
}

// TableName specifies the table name for PrayerScheduleRow
func (PrayerScheduleRow) TableName() string {
	return "prayer_schedule"
}

// MeterDirectoryRow is the stored form of a meter directory entry. The
// scaling factor is free text; "#" is the known sentinel for "unknown".
type MeterDirectoryRow struct {
	MeterID       string    `gorm:"primaryKey;column:meter_id"`
	Latitude      float64   `gorm:"column:latitude;not null"`
	Longitude     float64   `gorm:"column:longitude;not null"`
	ScalingFactor string    `gorm:"column:scaling_factor"`
	Region        string    `gorm:"column:region"`
	Province      string    `gorm:"column:province"`
	Department    string    `gorm:"column:department"`
	Office        string    `gorm:"column:office"`
	LoadedAt      time.Time `gorm:"column:loaded_at"`
}

// TableName specifies the table name for MeterDirectoryRow
func (MeterDirectoryRow) TableName() string {
	return "meter_directory"
}
