package config

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestWriteSQLiteRoundTrip(t *testing.T) {
	want := &Data{
		Database: DatabaseData{ConnectionString: "host=localhost user=meter dbname=mosquemeter"},
		Pipeline: PipelineData{
			ViolationThresholdWatts: 2500,
			UnitPriceSAR:            0.18,
			BaselineWatts:           400,
			ReadingsPerDay:          24,
			QualityThresholdPct:     60,
			CheckpointPath:          "/var/lib/mosquemeter/checkpoint.msgpack",
			ChunkDays:               14,
		},
		Windows: WindowPolicy{
			MorningStartAfterFajrMin: 90,
			MorningEndBeforeDhuhrMin: 70,
			EveningStartAfterIshaMin: 80,
			EveningEndBeforeFajrMin:  60,
		},
		Exclusion: &ExclusionWindow{
			Label:      "Ramadan 1446",
			StartMonth: 2,
			StartDay:   18,
			EndMonth:   3,
			EndDay:     19,
		},
		Reference: ReferenceData{
			PrayerTimesWorkbook:    "prayer_times.xlsx",
			MeterDirectoryWorkbook: "meter_directory.xlsx",
		},
		Reports: []RegionalReportData{
			{Name: "Buraydah", Region: "Qassim", ProvinceContains: "Buraydah"},
			{Name: "Qassim", Region: "Qassim"},
		},
		StatusServer: &StatusServerData{ListenAddr: ":8081"},
	}

	path := filepath.Join(t.TempDir(), "config.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteSQLite(db, want); err != nil {
		t.Fatalf("WriteSQLite: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	provider, err := NewSQLiteProvider(path)
	if err != nil {
		t.Fatalf("NewSQLiteProvider: %v", err)
	}
	defer provider.Close()

	got, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if got.Database.ConnectionString != want.Database.ConnectionString {
		t.Errorf("connection string = %q", got.Database.ConnectionString)
	}
	if got.Pipeline != want.Pipeline {
		t.Errorf("pipeline settings = %+v, want %+v", got.Pipeline, want.Pipeline)
	}
	if got.Windows != want.Windows {
		t.Errorf("window policy = %+v, want %+v", got.Windows, want.Windows)
	}
	if got.Exclusion == nil || *got.Exclusion != *want.Exclusion {
		t.Errorf("exclusion = %+v, want %+v", got.Exclusion, want.Exclusion)
	}
	if got.Reference != want.Reference {
		t.Errorf("reference = %+v, want %+v", got.Reference, want.Reference)
	}
	if got.StatusServer == nil || got.StatusServer.ListenAddr != want.StatusServer.ListenAddr {
		t.Errorf("status server = %+v", got.StatusServer)
	}
	if len(got.Reports) != 2 || got.Reports[0].Name != "Buraydah" || got.Reports[1].Name != "Qassim" {
		t.Errorf("reports = %+v", got.Reports)
	}
}

func TestWriteSQLiteOmitsOptionalSections(t *testing.T) {
	cfg := &Data{
		Database: DatabaseData{ConnectionString: "host=localhost"},
	}
	cfg.ApplyDefaults()

	path := filepath.Join(t.TempDir(), "config.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteSQLite(db, cfg); err != nil {
		t.Fatalf("WriteSQLite: %v", err)
	}
	db.Close()

	provider, err := NewSQLiteProvider(path)
	if err != nil {
		t.Fatal(err)
	}
	defer provider.Close()

	got, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Exclusion != nil {
		t.Errorf("exclusion should stay unset, got %+v", got.Exclusion)
	}
	if got.StatusServer != nil {
		t.Errorf("status server should stay unset, got %+v", got.StatusServer)
	}
	if len(got.Reports) != 0 {
		t.Errorf("reports should be empty, got %+v", got.Reports)
	}
}
