package database

import (
	"time"
)

// Reading is one deduplicated meter observation in the reading store. The
// store is owned upstream: power outside [0, 1e9] arrives already nulled,
// and the row hash over (meter_id, timestamp) is the dedup key, most
// recent ingest winning.
type Reading struct {
	MeterID     string    `gorm:"primaryKey;column:meter_id"`
	ReadingTime time.Time `gorm:"primaryKey;column:reading_time;index"`
	PowerWatts  *float64  `gorm:"column:power_watts"`
	RowHash     int64     `gorm:"column:row_hash;uniqueIndex"`
}

// TableName specifies the table name for Reading
func (Reading) TableName() string {
	return "meter_readings"
}

// RunStageStat is one per-stage accounting row for a pipeline run: rows
// in, rows out and rows filtered with the reason, mirroring what the
// upstream ingestion tracks for its own stages.
type RunStageStat struct {
	ID                uint       `gorm:"primaryKey;autoIncrement;column:id"`
	RunID             string     `gorm:"column:run_id;index"`
	RunTimestamp      time.Time  `gorm:"column:run_timestamp"`
	StageName         string     `gorm:"column:stage_name"`
	RowsInput         int64      `gorm:"column:rows_input"`
	RowsOutput        int64      `gorm:"column:rows_output"`
	RowsFiltered      int64      `gorm:"column:rows_filtered"`
	FilterReason      string     `gorm:"column:filter_reason"`
	UniqueMeters      int64      `gorm:"column:unique_meters"`
	MinReadingDate    *time.Time `gorm:"column:min_reading_date"`
	MaxReadingDate    *time.Time `gorm:"column:max_reading_date"`
	ProcessingSeconds float64    `gorm:"column:processing_seconds"`
	Status            string     `gorm:"column:status"`
	ErrorMessage      string     `gorm:"column:error_message"`
}

// TableName specifies the table name for RunStageStat
func (RunStageStat) TableName() string {
	return "pipeline_run_stats"
}
