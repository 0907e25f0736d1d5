// Package config provides configuration loading for the compliance pipeline
// with YAML and SQLite backends.
package config

import "fmt"

// Provider defines the interface for configuration data sources
type Provider interface {
	// Load complete configuration
	LoadConfig() (*Data, error)

	// Configuration management
	IsReadOnly() bool
	Close() error
}

// Data represents the complete configuration structure
type Data struct {
	Database     DatabaseData         `yaml:"database" json:"database"`
	Pipeline     PipelineData         `yaml:"pipeline" json:"pipeline"`
	Windows      WindowPolicy         `yaml:"windows" json:"windows"`
	Exclusion    *ExclusionWindow     `yaml:"exclusion,omitempty" json:"exclusion,omitempty"`
	Reference    ReferenceData        `yaml:"reference" json:"reference"`
	Reports      []RegionalReportData `yaml:"reports,omitempty" json:"reports,omitempty"`
	StatusServer *StatusServerData    `yaml:"status_server,omitempty" json:"status_server,omitempty"`
}

// DatabaseData holds the connection settings for the readings warehouse
type DatabaseData struct {
	ConnectionString string `yaml:"connection_string" json:"connection_string"`
}

// PipelineData holds the tunable parameters of the compliance computation
type PipelineData struct {
	// ViolationThresholdWatts is the scaled average power above which a
	// period is flagged (strictly greater than).
	ViolationThresholdWatts float64 `yaml:"violation_threshold_watts" json:"violation_threshold_watts"`

	// UnitPriceSAR is the energy tariff in currency units per kWh.
	UnitPriceSAR float64 `yaml:"unit_price_sar" json:"unit_price_sar"`

	// BaselineWatts is the assumed acceptable draw used when estimating
	// potential savings for an over-consuming period.
	BaselineWatts float64 `yaml:"baseline_watts" json:"baseline_watts"`

	// ReadingsPerDay is the expected meter cadence. 48 means one reading
	// every 30 minutes; the kWh conversion divisor is derived from it.
	ReadingsPerDay int `yaml:"readings_per_day" json:"readings_per_day"`

	// QualityThresholdPct is the minimum quality percentage for a meter
	// to be eligible for violation classification.
	QualityThresholdPct float64 `yaml:"quality_threshold_pct" json:"quality_threshold_pct"`

	// CheckpointPath is where the incremental high-water mark is kept.
	CheckpointPath string `yaml:"checkpoint_path" json:"checkpoint_path"`

	// ChunkDays bounds how many days of readings are pulled per query.
	ChunkDays int `yaml:"chunk_days" json:"chunk_days"`
}

// WindowPolicy holds the observation-window margins in minutes. These are
// policy constants inherited from the field operations team and are subject
// to domain-expert confirmation, hence configurable.
type WindowPolicy struct {
	MorningStartAfterFajrMin int `yaml:"morning_start_after_fajr_min" json:"morning_start_after_fajr_min"`
	MorningEndBeforeDhuhrMin int `yaml:"morning_end_before_dhuhr_min" json:"morning_end_before_dhuhr_min"`
	EveningStartAfterIshaMin int `yaml:"evening_start_after_isha_min" json:"evening_start_after_isha_min"`
	EveningEndBeforeFajrMin  int `yaml:"evening_end_before_fajr_min" json:"evening_end_before_fajr_min"`
}

// ExclusionWindow is a recurring month/day span removed from window
// derivation, aggregation and quality scoring (e.g. Ramadan).
type ExclusionWindow struct {
	Label      string `yaml:"label" json:"label"`
	StartMonth int    `yaml:"start_month" json:"start_month"`
	StartDay   int    `yaml:"start_day" json:"start_day"`
	EndMonth   int    `yaml:"end_month" json:"end_month"`
	EndDay     int    `yaml:"end_day" json:"end_day"`
}

// ReferenceData holds paths to the static reference workbooks
type ReferenceData struct {
	PrayerTimesWorkbook    string `yaml:"prayer_times_workbook" json:"prayer_times_workbook"`
	MeterDirectoryWorkbook string `yaml:"meter_directory_workbook" json:"meter_directory_workbook"`
}

// RegionalReportData defines one regional summary to build per run
type RegionalReportData struct {
	Name             string `yaml:"name" json:"name"`
	Region           string `yaml:"region" json:"region"`
	ProvinceContains string `yaml:"province_contains" json:"province_contains"`
}

// StatusServerData holds the configuration for the REST status server
type StatusServerData struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// ApplyDefaults fills in zero-valued tunables with their standard values
func (d *Data) ApplyDefaults() {
	if d.Pipeline.ViolationThresholdWatts == 0 {
		d.Pipeline.ViolationThresholdWatts = 3000
	}
	if d.Pipeline.UnitPriceSAR == 0 {
		d.Pipeline.UnitPriceSAR = 0.32
	}
	if d.Pipeline.BaselineWatts == 0 {
		d.Pipeline.BaselineWatts = 500
	}
	if d.Pipeline.ReadingsPerDay == 0 {
		d.Pipeline.ReadingsPerDay = 48
	}
	if d.Pipeline.QualityThresholdPct == 0 {
		d.Pipeline.QualityThresholdPct = 50.0
	}
	if d.Pipeline.CheckpointPath == "" {
		d.Pipeline.CheckpointPath = "mosquemeter-checkpoint.msgpack"
	}
	if d.Pipeline.ChunkDays == 0 {
		d.Pipeline.ChunkDays = 7
	}
	if d.Windows == (WindowPolicy{}) {
		d.Windows = WindowPolicy{
			MorningStartAfterFajrMin: 100,
			MorningEndBeforeDhuhrMin: 80,
			EveningStartAfterIshaMin: 90,
			EveningEndBeforeFajrMin:  80,
		}
	}
}

// Validate checks that the configuration is usable for a run
func (d *Data) Validate() error {
	if d.Database.ConnectionString == "" {
		return fmt.Errorf("database.connection_string is required")
	}
	if d.Pipeline.ReadingsPerDay%24 != 0 {
		return fmt.Errorf("pipeline.readings_per_day must be a multiple of 24, got %d", d.Pipeline.ReadingsPerDay)
	}
	if e := d.Exclusion; e != nil {
		if e.StartMonth < 1 || e.StartMonth > 12 || e.EndMonth < 1 || e.EndMonth > 12 {
			return fmt.Errorf("exclusion window months out of range")
		}
		if e.StartDay < 1 || e.StartDay > 31 || e.EndDay < 1 || e.EndDay > 31 {
			return fmt.Errorf("exclusion window days out of range")
		}
	}
	return nil
}
