package refdata

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClockTime parses a time-of-day string into minutes from midnight.
// Accepts "HH:MM" and "HH:MM:SS"; seconds are truncated.
func ParseClockTime(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return hour*60 + minute, nil
}

// ParseScalingFactor parses the free-text scaling factor from the meter
// directory. The sentinel "#" and anything unparsable default to 1.0; the
// second return reports whether the fallback was taken.
func ParseScalingFactor(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "#" {
		return 1.0, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		return 1.0, true
	}
	return f, false
}

// scheduleFromRow converts a stored schedule row into a typed entry.
func scheduleFromRow(row PrayerScheduleRow) (ScheduleEntry, error) {
	e := ScheduleEntry{
		Coordinate: Coordinate{Lat: row.Latitude, Lon: row.Longitude},
		Month:      row.Month,
		Day:        row.Day,
	}
	if e.Month < 1 || e.Month > 12 || e.Day < 1 || e.Day > 31 {
		return e, fmt.Errorf("schedule row %d: invalid date %02d-%02d", row.ID, row.Month, row.Day)
	}
	var err error
	fields := []struct {
		name string
		raw  string
		dst  *int
	}{
		{"fajr", row.Fajr, &e.Fajr},
		{"dhuhr", row.Dhuhr, &e.Dhuhr},
		{"asr", row.Asr, &e.Asr},
		{"maghrib", row.Maghrib, &e.Maghrib},
		{"isha", row.Isha, &e.Isha},
	}
	for _, f := range fields {
		if *f.dst, err = ParseClockTime(f.raw); err != nil {
			return e, fmt.Errorf("schedule row %d: %s: %w", row.ID, f.name, err)
		}
	}
	return e, nil
}

// meterFromRow converts a stored directory row into a typed meter. The
// second return reports a scaling-factor fallback.
func meterFromRow(row MeterDirectoryRow) (Meter, bool) {
	factor, fellBack := ParseScalingFactor(row.ScalingFactor)
	return Meter{
		MeterID:       row.MeterID,
		Coordinate:    Coordinate{Lat: row.Latitude, Lon: row.Longitude},
		ScalingFactor: factor,
		Region:        row.Region,
		Province:      row.Province,
		Department:    row.Department,
		Office:        row.Office,
	}, fellBack
}
