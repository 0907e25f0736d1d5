package refdata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Workbook column headers are normalized the same way the upstream loader
// normalizes them before upload: trimmed, uppercased, spaces and parens
// replaced, e.g. "Fajr Prayer (AM)" -> "FAJR_PRAYER_AM".
func normalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.ReplaceAll(h, "(", "")
	h = strings.ReplaceAll(h, ")", "")
	h = strings.ReplaceAll(h, " ", "_")
	return strings.ToUpper(h)
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func cell(row []string, idx map[string]int, names ...string) (string, bool) {
	for _, name := range names {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			continue
		}
		return strings.TrimSpace(row[i]), true
	}
	return "", false
}

// parseWorkbookDate extracts (month, day) from a workbook date cell. The
// year, when present, is ignored: schedule matching is year-agnostic.
func parseWorkbookDate(s string) (month, day int, err error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "01-02-2006", "02/01/2006", "1/2/2006", "2006-01-02 15:04:05"} {
		if t, perr := time.Parse(layout, s); perr == nil {
			return int(t.Month()), t.Day(), nil
		}
	}
	// Bare "MM-DD"
	parts := strings.SplitN(s, "-", 2)
	if len(parts) == 2 {
		m, merr := strconv.Atoi(strings.TrimSpace(parts[0]))
		d, derr := strconv.Atoi(strings.TrimSpace(parts[1]))
		if merr == nil && derr == nil {
			return m, d, nil
		}
	}
	return 0, 0, fmt.Errorf("unrecognized date %q", s)
}

// ParsePrayerTimesWorkbook reads the annual prayer-times workbook into
// storable schedule rows. Rows with an unparsable date or coordinate are
// skipped; the count of skipped rows is returned for accounting.
func ParsePrayerTimesWorkbook(path string) ([]PrayerScheduleRow, int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetList()[0]
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, 0, fmt.Errorf("error reading sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, 0, fmt.Errorf("workbook %s has no data rows", path)
	}

	idx := headerIndex(rows[0])
	loadedAt := time.Now().UTC()

	var out []PrayerScheduleRow
	skipped := 0
	for _, row := range rows[1:] {
		dateCell, _ := cell(row, idx, "DATE", "GREGORIAN_DATE")
		latCell, _ := cell(row, idx, "LATITUDE", "LAT")
		lonCell, _ := cell(row, idx, "LONGITUDE", "LON", "LNG")

		month, day, derr := parseWorkbookDate(dateCell)
		lat, laterr := strconv.ParseFloat(latCell, 64)
		lon, lonerr := strconv.ParseFloat(lonCell, 64)
		if derr != nil || laterr != nil || lonerr != nil {
			skipped++
			continue
		}

		fajr, _ := cell(row, idx, "FAJR", "FAJR_PRAYER")
		dhuhr, _ := cell(row, idx, "DHUHR", "DHUHR_PRAYER", "ZUHR")
		asr, _ := cell(row, idx, "ASR", "ASR_PRAYER")
		maghrib, _ := cell(row, idx, "MAGHRIB", "MAGHRIB_PRAYER")
		isha, _ := cell(row, idx, "ISHA", "ISHA_PRAYER")

		out = append(out, PrayerScheduleRow{
			Latitude:  lat,
			Longitude: lon,
			Month:     month,
			Day:       day,
			Fajr:      fajr,
			Dhuhr:     dhuhr,
			Asr:       asr,
			Maghrib:   maghrib,
			Isha:      isha,
			LoadedAt:  loadedAt,
		})
	}
	return out, skipped, nil
}

// ParseMeterDirectoryWorkbook reads the meter directory workbook into
// storable directory rows. The scaling factor is carried as raw text; the
// "#" sentinel is resolved at load time, not here.
func ParseMeterDirectoryWorkbook(path string) ([]MeterDirectoryRow, int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetList()[0]
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, 0, fmt.Errorf("error reading sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, 0, fmt.Errorf("workbook %s has no data rows", path)
	}

	idx := headerIndex(rows[0])
	loadedAt := time.Now().UTC()

	var out []MeterDirectoryRow
	skipped := 0
	for _, row := range rows[1:] {
		meterID, _ := cell(row, idx, "METER_ID", "METER_NO")
		latCell, _ := cell(row, idx, "LATITUDE", "LAT")
		lonCell, _ := cell(row, idx, "LONGITUDE", "LON", "LNG")

		lat, laterr := strconv.ParseFloat(latCell, 64)
		lon, lonerr := strconv.ParseFloat(lonCell, 64)
		if meterID == "" || laterr != nil || lonerr != nil {
			skipped++
			continue
		}

		factor, _ := cell(row, idx, "SCALING_FACTOR", "MULTIPLIER", "CT_RATIO")
		region, _ := cell(row, idx, "REGION")
		province, _ := cell(row, idx, "PROVINCE", "AMANA")
		department, _ := cell(row, idx, "DEPARTMENT", "BALADIA")
		office, _ := cell(row, idx, "OFFICE")

		out = append(out, MeterDirectoryRow{
			MeterID:       meterID,
			Latitude:      lat,
			Longitude:     lon,
			ScalingFactor: factor,
			Region:        region,
			Province:      province,
			Department:    department,
			Office:        office,
			LoadedAt:      loadedAt,
		})
	}
	return out, skipped, nil
}
