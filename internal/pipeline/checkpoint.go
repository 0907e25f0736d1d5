package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const checkpointVersion = 1

// Checkpoint is the versioned high-water mark for incremental runs. It is
// an explicit input to the run, never ambient state: a full refresh simply
// runs without one.
type Checkpoint struct {
	Version       int       `msgpack:"version"`
	HighWaterMark time.Time `msgpack:"high_water_mark"`
	RunID         string    `msgpack:"run_id"`
	UpdatedAt     time.Time `msgpack:"updated_at"`
}

// LoadCheckpoint reads the checkpoint file. A missing file is not an
// error; it means the next run processes everything.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading checkpoint %s: %w", path, err)
	}

	var cp Checkpoint
	if err := msgpack.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("error decoding checkpoint %s: %w", path, err)
	}
	if cp.Version != checkpointVersion {
		return nil, fmt.Errorf("checkpoint %s has unsupported version %d", path, cp.Version)
	}
	return &cp, nil
}

// SaveCheckpoint writes the checkpoint atomically (temp file + rename) so
// a crash mid-write never leaves a torn high-water mark.
func SaveCheckpoint(path string, cp Checkpoint) error {
	cp.Version = checkpointVersion
	data, err := msgpack.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("error encoding checkpoint: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("error writing checkpoint %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("error replacing checkpoint %s: %w", path, err)
	}
	return nil
}
