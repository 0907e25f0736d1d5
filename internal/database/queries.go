package database

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qassimdata/mosquemeter/internal/aggregate"
	"github.com/qassimdata/mosquemeter/internal/locmatch"
	"github.com/qassimdata/mosquemeter/internal/quality"
	"github.com/qassimdata/mosquemeter/internal/report"
	"github.com/qassimdata/mosquemeter/internal/violation"
)

const readingBatchSize = 10000

// timeSpan is one half-open [start, end) pull window.
type timeSpan struct {
	start time.Time
	end   time.Time
}

// readingSpans splits [min, max] into chunkDays-sized half-open spans so
// each pull stays bounded by date range as well as row count. chunkDays
// <= 0 yields a single span covering everything.
func readingSpans(min, max time.Time, chunkDays int) []timeSpan {
	if chunkDays <= 0 {
		return []timeSpan{{start: min, end: max.Add(time.Nanosecond)}}
	}
	chunk := time.Duration(chunkDays) * 24 * time.Hour
	var spans []timeSpan
	for start := min; !start.After(max); start = start.Add(chunk) {
		spans = append(spans, timeSpan{start: start, end: start.Add(chunk)})
	}
	return spans
}

// StreamReadings feeds all readings for the given meters to fn, pulled in
// chunkDays-sized date windows and row-bounded batches within each, so
// memory stays bounded regardless of reading volume. An empty meter set
// streams the whole store.
func (c *Client) StreamReadings(ctx context.Context, meterIDs []string, chunkDays int, fn func([]Reading) error) error {
	scoped := func() *gorm.DB {
		tx := c.DB.WithContext(ctx).Model(&Reading{})
		if len(meterIDs) > 0 {
			tx = tx.Where("meter_id IN ?", meterIDs)
		}
		return tx
	}

	var bounds struct {
		Min *time.Time
		Max *time.Time
	}
	err := scoped().
		Select("MIN(reading_time) AS min, MAX(reading_time) AS max").
		Scan(&bounds).Error
	if err != nil {
		return err
	}
	if bounds.Min == nil {
		return nil
	}

	for _, span := range readingSpans(*bounds.Min, *bounds.Max, chunkDays) {
		var batch []Reading
		result := scoped().
			Where("reading_time >= ? AND reading_time < ?", span.start, span.end).
			Order("meter_id, reading_time").
			FindInBatches(&batch, readingBatchSize, func(_ *gorm.DB, _ int) error {
				return fn(batch)
			})
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// MetersWithReadingsSince returns the distinct meters that have readings
// newer than the high-water mark. These are the meters whose quarter
// statistics an incremental run recomputes in full.
func (c *Client) MetersWithReadingsSince(ctx context.Context, since time.Time) ([]string, error) {
	var ids []string
	err := c.DB.WithContext(ctx).
		Model(&Reading{}).
		Where("reading_time > ?", since).
		Distinct("meter_id").
		Order("meter_id").
		Pluck("meter_id", &ids).Error
	return ids, err
}

// MaxReadingTime returns the newest reading timestamp in the store. The
// second return is false when the store is empty.
func (c *Client) MaxReadingTime(ctx context.Context) (time.Time, bool, error) {
	var max *time.Time
	err := c.DB.WithContext(ctx).Model(&Reading{}).Select("MAX(reading_time)").Scan(&max).Error
	if err != nil || max == nil {
		return time.Time{}, false, err
	}
	return *max, true, nil
}

// ReplaceBindings replaces the full meter-binding table. Bindings are
// derived entirely from reference data, so replacement is the idempotent
// materialization.
func (c *Client) ReplaceBindings(ctx context.Context, bindings []locmatch.Binding) error {
	tx := c.DB.WithContext(ctx)
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&locmatch.Binding{}).Error; err != nil {
		return err
	}
	if len(bindings) == 0 {
		return nil
	}
	return tx.CreateInBatches(bindings, 1000).Error
}

// UpsertQuarterStats writes stats rows with append-or-replace semantics
// keyed by (meter_id, quarter). Reprocessing the same snapshot rewrites
// identical rows, which is what makes retries safe.
func (c *Client) UpsertQuarterStats(ctx context.Context, rows []aggregate.QuarterStats) error {
	if len(rows) == 0 {
		return nil
	}
	return c.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "meter_id"}, {Name: "quarter"}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, 1000).Error
}

// UpsertQuality writes quality rows, replacing by meter.
func (c *Client) UpsertQuality(ctx context.Context, rows []quality.Quality) error {
	if len(rows) == 0 {
		return nil
	}
	return c.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "meter_id"}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, 1000).Error
}

// UpsertViolators writes violator rows keyed by (meter_id, quarter), and
// removes stale rows for recomputed pairs that are no longer violators.
func (c *Client) UpsertViolators(ctx context.Context, recomputedMeters []string, rows []violation.Record) error {
	tx := c.DB.WithContext(ctx)
	if len(recomputedMeters) > 0 {
		if err := tx.Where("meter_id IN ?", recomputedMeters).Delete(&violation.Record{}).Error; err != nil {
			return err
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "meter_id"}, {Name: "quarter"}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, 1000).Error
}

// AllQuarterStats returns every materialized stats row in key order.
func (c *Client) AllQuarterStats(ctx context.Context) ([]aggregate.QuarterStats, error) {
	var rows []aggregate.QuarterStats
	err := c.DB.WithContext(ctx).Order("meter_id, quarter").Find(&rows).Error
	return rows, err
}

// AllQuality returns every materialized quality row keyed by meter.
func (c *Client) AllQuality(ctx context.Context) (map[string]quality.Quality, error) {
	var rows []quality.Quality
	if err := c.DB.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	byMeter := make(map[string]quality.Quality, len(rows))
	for _, q := range rows {
		byMeter[q.MeterID] = q
	}
	return byMeter, nil
}

// InsertSummaries appends the regional summary rows for a run.
func (c *Client) InsertSummaries(ctx context.Context, rows []report.Summary) error {
	if len(rows) == 0 {
		return nil
	}
	return c.DB.WithContext(ctx).Create(&rows).Error
}

// InsertRunStats appends the per-stage accounting rows for a run.
func (c *Client) InsertRunStats(ctx context.Context, rows []RunStageStat) error {
	if len(rows) == 0 {
		return nil
	}
	return c.DB.WithContext(ctx).Create(&rows).Error
}

// LatestRunStats returns the accounting rows of the most recent run.
func (c *Client) LatestRunStats(ctx context.Context) ([]RunStageStat, error) {
	var latest RunStageStat
	err := c.DB.WithContext(ctx).Order("run_timestamp DESC").First(&latest).Error
	if err != nil {
		return nil, err
	}
	var rows []RunStageStat
	err = c.DB.WithContext(ctx).Where("run_id = ?", latest.RunID).Order("id").Find(&rows).Error
	return rows, err
}

// LatestSummaries returns the regional summaries of the most recent run.
func (c *Client) LatestSummaries(ctx context.Context) ([]report.Summary, error) {
	var latest report.Summary
	err := c.DB.WithContext(ctx).Order("created_at DESC").First(&latest).Error
	if err != nil {
		return nil, err
	}
	var rows []report.Summary
	err = c.DB.WithContext(ctx).Where("run_id = ?", latest.RunID).Order("id").Find(&rows).Error
	return rows, err
}

// ViolatorsByQuarter returns the persisted violators for one quarter.
func (c *Client) ViolatorsByQuarter(ctx context.Context, quarter string) ([]violation.Record, error) {
	var rows []violation.Record
	err := c.DB.WithContext(ctx).Where("quarter = ?", quarter).Order("meter_id").Find(&rows).Error
	return rows, err
}
