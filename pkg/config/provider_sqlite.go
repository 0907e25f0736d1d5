package config

import (
	"database/sql"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements Provider for SQLite configuration databases.
// Settings live in a key/value table; regional report definitions have a
// table of their own. The config-convert tool produces this layout from a
// YAML file.
type SQLiteProvider struct {
	db       *sql.DB
	filename string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(filename string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("error opening SQLite config database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to SQLite config database: %w", err)
	}

	return &SQLiteProvider{db: db, filename: filename}, nil
}

// LoadConfig loads the complete configuration from the SQLite database
func (s *SQLiteProvider) LoadConfig() (*Data, error) {
	settings, err := s.loadSettings()
	if err != nil {
		return nil, err
	}

	var cfg Data
	cfg.Database.ConnectionString = settings["database.connection_string"]
	cfg.Reference.PrayerTimesWorkbook = settings["reference.prayer_times_workbook"]
	cfg.Reference.MeterDirectoryWorkbook = settings["reference.meter_directory_workbook"]
	cfg.Pipeline.CheckpointPath = settings["pipeline.checkpoint_path"]

	numeric := map[string]*float64{
		"pipeline.violation_threshold_watts": &cfg.Pipeline.ViolationThresholdWatts,
		"pipeline.unit_price_sar":            &cfg.Pipeline.UnitPriceSAR,
		"pipeline.baseline_watts":            &cfg.Pipeline.BaselineWatts,
		"pipeline.quality_threshold_pct":     &cfg.Pipeline.QualityThresholdPct,
	}
	for key, dst := range numeric {
		if v, ok := settings[key]; ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid numeric setting %s=%q: %w", key, v, err)
			}
			*dst = f
		}
	}

	integer := map[string]*int{
		"pipeline.readings_per_day":            &cfg.Pipeline.ReadingsPerDay,
		"pipeline.chunk_days":                  &cfg.Pipeline.ChunkDays,
		"windows.morning_start_after_fajr_min": &cfg.Windows.MorningStartAfterFajrMin,
		"windows.morning_end_before_dhuhr_min": &cfg.Windows.MorningEndBeforeDhuhrMin,
		"windows.evening_start_after_isha_min": &cfg.Windows.EveningStartAfterIshaMin,
		"windows.evening_end_before_fajr_min":  &cfg.Windows.EveningEndBeforeFajrMin,
	}
	for key, dst := range integer {
		if v, ok := settings[key]; ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid integer setting %s=%q: %w", key, v, err)
			}
			*dst = n
		}
	}

	if addr, ok := settings["status_server.listen_addr"]; ok && addr != "" {
		cfg.StatusServer = &StatusServerData{ListenAddr: addr}
	}

	if err := s.loadExclusion(settings, &cfg); err != nil {
		return nil, err
	}

	reports, err := s.loadReports()
	if err != nil {
		return nil, err
	}
	cfg.Reports = reports

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *SQLiteProvider) loadSettings() (map[string]string, error) {
	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("error querying settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("error scanning setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func (s *SQLiteProvider) loadExclusion(settings map[string]string, cfg *Data) error {
	label, ok := settings["exclusion.label"]
	if !ok {
		return nil
	}
	parse := func(key string) (int, error) {
		n, err := strconv.Atoi(settings[key])
		if err != nil {
			return 0, fmt.Errorf("invalid exclusion setting %s: %w", key, err)
		}
		return n, nil
	}
	excl := ExclusionWindow{Label: label}
	var err error
	if excl.StartMonth, err = parse("exclusion.start_month"); err != nil {
		return err
	}
	if excl.StartDay, err = parse("exclusion.start_day"); err != nil {
		return err
	}
	if excl.EndMonth, err = parse("exclusion.end_month"); err != nil {
		return err
	}
	if excl.EndDay, err = parse("exclusion.end_day"); err != nil {
		return err
	}
	cfg.Exclusion = &excl
	return nil
}

func (s *SQLiteProvider) loadReports() ([]RegionalReportData, error) {
	rows, err := s.db.Query("SELECT name, region, province_contains FROM regional_reports ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("error querying regional reports: %w", err)
	}
	defer rows.Close()

	var reports []RegionalReportData
	for rows.Next() {
		var r RegionalReportData
		if err := rows.Scan(&r.Name, &r.Region, &r.ProvinceContains); err != nil {
			return nil, fmt.Errorf("error scanning regional report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// IsReadOnly returns false; the SQLite backend can be updated in place
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the underlying database handle
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}
