// Package pipeline orchestrates the compliance computation: reference
// loading, location matching, window derivation, aggregation, quality
// scoring, violation classification and regional reporting, in dependency
// order. A run is a finite batch job; no stage mutates shared state
// concurrently and every output write is keyed, so reruns are idempotent.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qassimdata/mosquemeter/internal/aggregate"
	"github.com/qassimdata/mosquemeter/internal/database"
	"github.com/qassimdata/mosquemeter/internal/locmatch"
	"github.com/qassimdata/mosquemeter/internal/prayerwin"
	"github.com/qassimdata/mosquemeter/internal/quality"
	"github.com/qassimdata/mosquemeter/internal/refdata"
	"github.com/qassimdata/mosquemeter/internal/report"
	"github.com/qassimdata/mosquemeter/internal/violation"
	"github.com/qassimdata/mosquemeter/pkg/config"
)

// Pipeline executes compliance runs against the warehouse.
type Pipeline struct {
	cfg    *config.Data
	db     *database.Client
	logger *zap.SugaredLogger

	// FullRefresh ignores the checkpoint and reprocesses every meter.
	FullRefresh bool
}

// New creates a Pipeline.
func New(cfg *config.Data, db *database.Client, logger *zap.SugaredLogger) *Pipeline {
	return &Pipeline{cfg: cfg, db: db, logger: logger}
}

// Run executes one complete batch run and returns the run ID.
func (p *Pipeline) Run(ctx context.Context) (string, error) {
	runID := uuid.NewString()
	runStart := time.Now().UTC()
	p.logger.Infow("starting compliance run", "run_id", runID, "full_refresh", p.FullRefresh)

	stats := newRunRecorder(runID, runStart)
	err := p.run(ctx, runID, stats)
	if err != nil {
		runsTotal.WithLabelValues("failed").Inc()
		stats.fail(err)
	} else {
		runsTotal.WithLabelValues("success").Inc()
		lastRunTimestamp.SetToCurrentTime()
	}

	if serr := p.db.InsertRunStats(ctx, stats.rows()); serr != nil {
		p.logger.Warnf("could not persist run stats: %v", serr)
	}
	if err != nil {
		return runID, err
	}

	p.logger.Infow("compliance run complete", "run_id", runID, "elapsed", time.Since(runStart))
	return runID, nil
}

func (p *Pipeline) run(ctx context.Context, runID string, stats *runRecorder) error {
	// Reference data: one immutable snapshot per run.
	set, err := refdata.Load(p.db.DB, p.logger)
	if err != nil {
		return fmt.Errorf("reference data: %w", err)
	}

	// Location matching.
	stageStart := time.Now()
	matcher := locmatch.NewMatcher(set.DistinctCoordinates(), p.logger)
	bindings := matcher.MatchAll(set.Meters)
	if err := p.db.ReplaceBindings(ctx, bindings); err != nil {
		return fmt.Errorf("storing bindings: %w", err)
	}
	countIn("location_match", int64(len(set.Meters)))
	countOut("location_match", int64(len(bindings)))
	countFiltered("location_match", "no_schedule_coordinates", int64(len(set.Meters)-len(bindings)))
	stats.stage("location_match", int64(len(set.Meters)), int64(len(bindings)), "no_schedule_coordinates", stageStart, nil)

	// Window derivation setup.
	deriver := prayerwin.NewDeriver(set.Schedule, p.margins(), p.exclusion())

	// Incremental scope: meters with readings past the high-water mark.
	meterScope, hwm, err := p.meterScope(ctx)
	if err != nil {
		return err
	}
	if meterScope != nil && len(meterScope) == 0 {
		p.logger.Info("no new readings since checkpoint; nothing to aggregate")
		return p.finishRun(ctx, runID, stats, nil, hwm)
	}

	// Aggregation and quality scoring share one pass over the readings
	// but are independent computations: quality never sees windows.
	stageStart = time.Now()
	aggregator := aggregate.New(deriver, bindings, set.Meters)
	scorer := quality.NewScorer(p.cfg.Pipeline.ReadingsPerDay, p.cfg.Pipeline.QualityThresholdPct, deriver.Excluded)

	var readingsSeen int64
	err = p.db.StreamReadings(ctx, meterScope, p.cfg.Pipeline.ChunkDays, func(batch []database.Reading) error {
		for _, r := range batch {
			readingsSeen++
			aggregator.Add(aggregate.Reading{MeterID: r.MeterID, Time: r.ReadingTime, Power: r.PowerWatts})
			scorer.Add(r.MeterID, r.ReadingTime, r.PowerWatts)
		}
		return ctx.Err()
	})
	if err != nil {
		return fmt.Errorf("streaming readings: %w", err)
	}

	statRows := aggregator.Finalize()
	if err := p.db.UpsertQuarterStats(ctx, statRows); err != nil {
		return fmt.Errorf("storing quarter stats: %w", err)
	}
	tally := aggregator.Tally()
	countIn("period_aggregation", tally.ReadingsIn)
	countOut("period_aggregation", tally.RowsOut)
	countFiltered("period_aggregation", "no_binding", tally.NoBinding)
	countFiltered("period_aggregation", "no_schedule_match", tally.NoScheduleMatch)
	countFiltered("period_aggregation", "null_power", tally.NullPower)
	countFiltered("period_aggregation", "no_period_match", tally.RowsDiscarded)
	stats.stage("period_aggregation", tally.ReadingsIn, tally.RowsOut, "no_binding/no_schedule_match/null_power/no_period_match", stageStart, &stageDetail{
		uniqueMeters:   tally.UniqueMeters,
		minReadingDate: tally.MinReadingDate,
		maxReadingDate: tally.MaxReadingDate,
	})

	stageStart = time.Now()
	qualityRows := scorer.Finalize()
	if err := p.db.UpsertQuality(ctx, qualityRows); err != nil {
		return fmt.Errorf("storing quality rows: %w", err)
	}
	countIn("quality_scoring", readingsSeen)
	countOut("quality_scoring", int64(len(qualityRows)))
	countFiltered("quality_scoring", "zero_expected_readings", scorer.SkippedZeroRange)
	qualityDetail := &stageDetail{uniqueMeters: scorer.MeterCount()}
	if min, max, ok := scorer.DateRange(); ok {
		qualityDetail.minReadingDate = &min
		qualityDetail.maxReadingDate = &max
	}
	stats.stage("quality_scoring", readingsSeen, int64(len(qualityRows)), "zero_expected_readings", stageStart, qualityDetail)

	return p.finishRun(ctx, runID, stats, meterScope, hwm)
}

// finishRun classifies and reports over the full materialized tables, so
// incremental runs still produce complete violator and regional outputs.
func (p *Pipeline) finishRun(ctx context.Context, runID string, stats *runRecorder, recomputedMeters []string, hwm time.Time) error {
	allStats, err := p.db.AllQuarterStats(ctx)
	if err != nil {
		return fmt.Errorf("loading quarter stats: %w", err)
	}
	qualityByMeter, err := p.db.AllQuality(ctx)
	if err != nil {
		return fmt.Errorf("loading quality rows: %w", err)
	}

	stageStart := time.Now()
	classifier := violation.NewClassifier(violation.Params{
		ThresholdWatts: p.cfg.Pipeline.ViolationThresholdWatts,
		BaselineWatts:  p.cfg.Pipeline.BaselineWatts,
		UnitPriceSAR:   p.cfg.Pipeline.UnitPriceSAR,
		ReadingsPerDay: p.cfg.Pipeline.ReadingsPerDay,
	})
	result := classifier.Classify(allStats, qualityByMeter)
	if err := p.db.UpsertViolators(ctx, recomputedMeters, result.Violators); err != nil {
		return fmt.Errorf("storing violators: %w", err)
	}
	countIn("violation_classification", int64(len(allStats)))
	countOut("violation_classification", int64(len(result.Violators)))
	countFiltered("violation_classification", "no_quality_row", result.DroppedNoQuality)
	countFiltered("violation_classification", "low_quality", result.DroppedLowQuality)
	countFiltered("violation_classification", "compliant", int64(len(result.All)-len(result.Violators)))
	stats.stage("violation_classification", int64(len(allStats)), int64(len(result.Violators)), "no_quality_row/low_quality/compliant", stageStart, nil)

	stageStart = time.Now()
	builder := report.NewBuilder(p.reportDefs(), p.cfg.Pipeline.ViolationThresholdWatts)
	summaries := builder.Build(runID, allStats, result.All)
	if err := p.db.InsertSummaries(ctx, summaries); err != nil {
		return fmt.Errorf("storing regional summaries: %w", err)
	}
	countOut("regional_report", int64(len(summaries)))
	stats.stage("regional_report", int64(len(result.All)), int64(len(summaries)), "", stageStart, nil)

	return p.saveCheckpoint(ctx, runID, hwm)
}

// meterScope returns the meters to recompute, or nil for all of them,
// plus the high-water mark the run started from.
func (p *Pipeline) meterScope(ctx context.Context) ([]string, time.Time, error) {
	if p.FullRefresh {
		return nil, time.Time{}, nil
	}
	cp, err := LoadCheckpoint(p.cfg.Pipeline.CheckpointPath)
	if err != nil {
		return nil, time.Time{}, err
	}
	if cp == nil {
		return nil, time.Time{}, nil
	}
	ids, err := p.db.MetersWithReadingsSince(ctx, cp.HighWaterMark)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("finding meters past checkpoint: %w", err)
	}
	p.logger.Infow("incremental run", "high_water_mark", cp.HighWaterMark, "meters_to_recompute", len(ids))
	return ids, cp.HighWaterMark, nil
}

func (p *Pipeline) saveCheckpoint(ctx context.Context, runID string, previous time.Time) error {
	max, ok, err := p.db.MaxReadingTime(ctx)
	if err != nil {
		return fmt.Errorf("finding max reading time: %w", err)
	}
	if !ok {
		max = previous
	}
	return SaveCheckpoint(p.cfg.Pipeline.CheckpointPath, Checkpoint{
		HighWaterMark: max,
		RunID:         runID,
		UpdatedAt:     time.Now().UTC(),
	})
}

func (p *Pipeline) margins() prayerwin.Margins {
	w := p.cfg.Windows
	return prayerwin.Margins{
		MorningStartAfterFajr: w.MorningStartAfterFajrMin,
		MorningEndBeforeDhuhr: w.MorningEndBeforeDhuhrMin,
		EveningStartAfterIsha: w.EveningStartAfterIshaMin,
		EveningEndBeforeFajr:  w.EveningEndBeforeFajrMin,
	}
}

func (p *Pipeline) exclusion() *prayerwin.Exclusion {
	e := p.cfg.Exclusion
	if e == nil {
		return nil
	}
	return &prayerwin.Exclusion{
		StartMonth: e.StartMonth,
		StartDay:   e.StartDay,
		EndMonth:   e.EndMonth,
		EndDay:     e.EndDay,
	}
}

func (p *Pipeline) reportDefs() []report.Definition {
	defs := make([]report.Definition, 0, len(p.cfg.Reports))
	for _, r := range p.cfg.Reports {
		defs = append(defs, report.Definition{
			Name:             r.Name,
			Region:           r.Region,
			ProvinceContains: r.ProvinceContains,
		})
	}
	return defs
}
