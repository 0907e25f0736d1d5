package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.msgpack")

	want := Checkpoint{
		HighWaterMark: time.Date(2025, 7, 7, 12, 30, 0, 0, time.UTC),
		RunID:         "run-abc",
		UpdatedAt:     time.Date(2025, 7, 8, 1, 0, 0, 0, time.UTC),
	}
	if err := SaveCheckpoint(path, want); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	got, err := LoadCheckpoint(path)
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if got == nil {
		t.Fatal("LoadCheckpoint returned nil for an existing file")
	}
	if !got.HighWaterMark.Equal(want.HighWaterMark) || got.RunID != want.RunID {
		t.Errorf("round trip lost data: %+v", got)
	}
	if got.Version != checkpointVersion {
		t.Errorf("version = %d, want %d", got.Version, checkpointVersion)
	}
}

func TestCheckpointMissingFile(t *testing.T) {
	cp, err := LoadCheckpoint(filepath.Join(t.TempDir(), "absent.msgpack"))
	if err != nil {
		t.Fatalf("missing checkpoint should not error: %v", err)
	}
	if cp != nil {
		t.Errorf("missing checkpoint should load as nil, got %+v", cp)
	}
}

func TestCheckpointUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.msgpack")
	data, err := msgpack.Marshal(&Checkpoint{Version: 99})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadCheckpoint(path); err == nil {
		t.Error("unsupported checkpoint version should error")
	}
}

func TestCheckpointCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.msgpack")
	if err := os.WriteFile(path, []byte("not msgpack"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCheckpoint(path); err == nil {
		t.Error("corrupt checkpoint should error")
	}
}

func TestCheckpointLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.msgpack")
	if err := SaveCheckpoint(path, Checkpoint{HighWaterMark: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}
