package refdata

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Load reads both reference tables from the warehouse and returns a
// validated snapshot. Malformed schedule rows are skipped with a warning;
// an entirely empty table is fatal.
func Load(db *gorm.DB, logger *zap.SugaredLogger) (*Set, error) {
	var scheduleRows []PrayerScheduleRow
	if err := db.Find(&scheduleRows).Error; err != nil {
		return nil, fmt.Errorf("error loading prayer schedule: %w", err)
	}

	var meterRows []MeterDirectoryRow
	if err := db.Find(&meterRows).Error; err != nil {
		return nil, fmt.Errorf("error loading meter directory: %w", err)
	}

	set := &Set{
		Schedule: make([]ScheduleEntry, 0, len(scheduleRows)),
		Meters:   make([]Meter, 0, len(meterRows)),
	}

	skipped := 0
	for _, row := range scheduleRows {
		entry, err := scheduleFromRow(row)
		if err != nil {
			skipped++
			logger.Warnf("skipping malformed schedule row: %v", err)
			continue
		}
		set.Schedule = append(set.Schedule, entry)
	}

	for _, row := range meterRows {
		meter, fellBack := meterFromRow(row)
		if fellBack {
			set.UnparsableScalingFactors++
		}
		set.Meters = append(set.Meters, meter)
	}

	if set.UnparsableScalingFactors > 0 {
		logger.Infof("meter directory: %d scaling factors defaulted to 1.0", set.UnparsableScalingFactors)
	}
	if skipped > 0 {
		logger.Warnf("prayer schedule: skipped %d malformed rows", skipped)
	}

	if err := set.Validate(); err != nil {
		return nil, err
	}

	logger.Infow("reference data loaded",
		"schedule_entries", len(set.Schedule),
		"meters", len(set.Meters),
		"distinct_coordinates", len(set.DistinctCoordinates()),
	)
	return set, nil
}
