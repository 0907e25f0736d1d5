package pipeline

import (
	"time"

	"github.com/qassimdata/mosquemeter/internal/database"
)

// runRecorder collects the per-stage accounting rows persisted at the end
// of a run, successful or not.
type runRecorder struct {
	runID     string
	timestamp time.Time
	stages    []database.RunStageStat
}

func newRunRecorder(runID string, timestamp time.Time) *runRecorder {
	return &runRecorder{runID: runID, timestamp: timestamp}
}

// stageDetail carries the per-stage input profile for stages that see
// individual readings; stages over already-aggregated rows pass nil.
type stageDetail struct {
	uniqueMeters   int64
	minReadingDate *time.Time
	maxReadingDate *time.Time
}

func (r *runRecorder) stage(name string, in, out int64, filterReason string, started time.Time, detail *stageDetail) {
	filtered := in - out
	if filtered < 0 {
		filtered = 0
	}
	row := database.RunStageStat{
		RunID:             r.runID,
		RunTimestamp:      r.timestamp,
		StageName:         name,
		RowsInput:         in,
		RowsOutput:        out,
		RowsFiltered:      filtered,
		FilterReason:      filterReason,
		ProcessingSeconds: time.Since(started).Seconds(),
		Status:            "success",
	}
	if detail != nil {
		row.UniqueMeters = detail.uniqueMeters
		row.MinReadingDate = detail.minReadingDate
		row.MaxReadingDate = detail.maxReadingDate
	}
	r.stages = append(r.stages, row)
}

func (r *runRecorder) fail(err error) {
	r.stages = append(r.stages, database.RunStageStat{
		RunID:        r.runID,
		RunTimestamp: r.timestamp,
		StageName:    "run",
		Status:       "failed",
		ErrorMessage: err.Error(),
	})
}

func (r *runRecorder) rows() []database.RunStageStat {
	return r.stages
}
