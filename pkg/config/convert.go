package config

import (
	"database/sql"
	"fmt"
	"strconv"
)

// WriteSQLite materializes a configuration into the SQLite layout the
// SQLite provider reads: a key/value settings table plus the regional
// report definitions. Existing rows are replaced, so converting over a
// previous database updates it in place.
func WriteSQLite(db *sql.DB, cfg *Data) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	ddl := []string{
		"CREATE TABLE IF NOT EXISTS settings (key TEXT PRIMARY KEY, value TEXT NOT NULL)",
		"CREATE TABLE IF NOT EXISTS regional_reports (name TEXT PRIMARY KEY, region TEXT NOT NULL, province_contains TEXT NOT NULL)",
	}
	for _, stmt := range ddl {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("error creating config tables: %w", err)
		}
	}

	settings := map[string]string{
		"database.connection_string":           cfg.Database.ConnectionString,
		"reference.prayer_times_workbook":      cfg.Reference.PrayerTimesWorkbook,
		"reference.meter_directory_workbook":   cfg.Reference.MeterDirectoryWorkbook,
		"pipeline.checkpoint_path":             cfg.Pipeline.CheckpointPath,
		"pipeline.violation_threshold_watts":   formatFloat(cfg.Pipeline.ViolationThresholdWatts),
		"pipeline.unit_price_sar":              formatFloat(cfg.Pipeline.UnitPriceSAR),
		"pipeline.baseline_watts":              formatFloat(cfg.Pipeline.BaselineWatts),
		"pipeline.quality_threshold_pct":       formatFloat(cfg.Pipeline.QualityThresholdPct),
		"pipeline.readings_per_day":            strconv.Itoa(cfg.Pipeline.ReadingsPerDay),
		"pipeline.chunk_days":                  strconv.Itoa(cfg.Pipeline.ChunkDays),
		"windows.morning_start_after_fajr_min": strconv.Itoa(cfg.Windows.MorningStartAfterFajrMin),
		"windows.morning_end_before_dhuhr_min": strconv.Itoa(cfg.Windows.MorningEndBeforeDhuhrMin),
		"windows.evening_start_after_isha_min": strconv.Itoa(cfg.Windows.EveningStartAfterIshaMin),
		"windows.evening_end_before_fajr_min":  strconv.Itoa(cfg.Windows.EveningEndBeforeFajrMin),
	}
	if cfg.StatusServer != nil {
		settings["status_server.listen_addr"] = cfg.StatusServer.ListenAddr
	}
	if e := cfg.Exclusion; e != nil {
		settings["exclusion.label"] = e.Label
		settings["exclusion.start_month"] = strconv.Itoa(e.StartMonth)
		settings["exclusion.start_day"] = strconv.Itoa(e.StartDay)
		settings["exclusion.end_month"] = strconv.Itoa(e.EndMonth)
		settings["exclusion.end_day"] = strconv.Itoa(e.EndDay)
	}

	for key, value := range settings {
		if _, err := tx.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("error writing setting %s: %w", key, err)
		}
	}

	if _, err := tx.Exec("DELETE FROM regional_reports"); err != nil {
		return fmt.Errorf("error clearing regional reports: %w", err)
	}
	for _, r := range cfg.Reports {
		if _, err := tx.Exec("INSERT INTO regional_reports (name, region, province_contains) VALUES (?, ?, ?)",
			r.Name, r.Region, r.ProvinceContains); err != nil {
			return fmt.Errorf("error writing regional report %s: %w", r.Name, err)
		}
	}

	return tx.Commit()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
