package refdata

import "testing"

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"04:10", 250, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"19:30:00", 1170, false},
		{" 11:50 ", 710, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"", 0, true},
		{"12", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClockTime(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClockTime(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseClockTime(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseScalingFactor(t *testing.T) {
	tests := []struct {
		in       string
		want     float64
		fellBack bool
	}{
		{"2.5", 2.5, false},
		{"1", 1.0, false},
		{" 40 ", 40.0, false},
		{"#", 1.0, true},
		{"", 1.0, true},
		{"unknown", 1.0, true},
		{"0", 1.0, true},
		{"-3", 1.0, true},
	}
	for _, tt := range tests {
		got, fellBack := ParseScalingFactor(tt.in)
		if got != tt.want || fellBack != tt.fellBack {
			t.Errorf("ParseScalingFactor(%q) = (%f, %v), want (%f, %v)",
				tt.in, got, fellBack, tt.want, tt.fellBack)
		}
	}
}

func TestScheduleFromRow(t *testing.T) {
	row := PrayerScheduleRow{
		ID:        1,
		Latitude:  26.326,
		Longitude: 43.975,
		Month:     6,
		Day:       15,
		Fajr:      "04:10",
		Dhuhr:     "11:50",
		Asr:       "15:10",
		Maghrib:   "18:40",
		Isha:      "19:30",
	}
	e, err := scheduleFromRow(row)
	if err != nil {
		t.Fatalf("scheduleFromRow: %v", err)
	}
	if e.Fajr != 250 || e.Dhuhr != 710 || e.Isha != 1170 {
		t.Errorf("times = %d/%d/%d, want 250/710/1170", e.Fajr, e.Dhuhr, e.Isha)
	}
	if e.Key() != "26.326000,43.975000" {
		t.Errorf("coordinate key = %s", e.Key())
	}

	bad := row
	bad.Fajr = "garbage"
	if _, err := scheduleFromRow(bad); err == nil {
		t.Error("unparsable prayer time should error")
	}

	bad = row
	bad.Month = 13
	if _, err := scheduleFromRow(bad); err == nil {
		t.Error("invalid month should error")
	}
}

func TestMeterFromRowScalingFallback(t *testing.T) {
	m, fellBack := meterFromRow(MeterDirectoryRow{MeterID: "M-1", ScalingFactor: "#"})
	if m.ScalingFactor != 1.0 || !fellBack {
		t.Errorf("sentinel scaling: got (%f, %v), want (1.0, true)", m.ScalingFactor, fellBack)
	}

	m, fellBack = meterFromRow(MeterDirectoryRow{MeterID: "M-2", ScalingFactor: "40"})
	if m.ScalingFactor != 40.0 || fellBack {
		t.Errorf("numeric scaling: got (%f, %v), want (40.0, false)", m.ScalingFactor, fellBack)
	}
}

func TestDistinctCoordinatesStableOrder(t *testing.T) {
	s := &Set{Schedule: []ScheduleEntry{
		{Coordinate: Coordinate{Lat: 26.3, Lon: 43.9}},
		{Coordinate: Coordinate{Lat: 21.4, Lon: 39.1}},
		{Coordinate: Coordinate{Lat: 26.3, Lon: 43.9}},
	}}
	coords := s.DistinctCoordinates()
	if len(coords) != 2 {
		t.Fatalf("got %d distinct coordinates, want 2", len(coords))
	}
	if coords[0].Key() != "21.400000,39.100000" || coords[1].Key() != "26.300000,43.900000" {
		t.Errorf("coordinates not in key order: %v", coords)
	}
}

func TestSetValidate(t *testing.T) {
	full := &Set{
		Schedule: []ScheduleEntry{{}},
		Meters:   []Meter{{}},
	}
	if err := full.Validate(); err != nil {
		t.Errorf("populated set should validate: %v", err)
	}
	if err := (&Set{Meters: []Meter{{}}}).Validate(); err == nil {
		t.Error("empty schedule should fail validation")
	}
	if err := (&Set{Schedule: []ScheduleEntry{{}}}).Validate(); err == nil {
		t.Error("empty meter directory should fail validation")
	}
}
