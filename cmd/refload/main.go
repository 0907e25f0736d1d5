// refload loads the two static reference workbooks (annual prayer times
// and the meter directory) into the warehouse, truncating the previous
// versions. Run it whenever either workbook changes; bindings are
// recomputed on the next pipeline run.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/gorm"

	"github.com/qassimdata/mosquemeter/internal/database"
	"github.com/qassimdata/mosquemeter/internal/log"
	"github.com/qassimdata/mosquemeter/internal/refdata"
	"github.com/qassimdata/mosquemeter/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to YAML configuration file")
	prayerPath := flag.String("prayer-times", "", "Override the prayer times workbook path from the config")
	directoryPath := flag.String("meter-directory", "", "Override the meter directory workbook path from the config")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	filename, _ := filepath.Abs(*cfgFile)
	cfg, err := config.NewYAMLProvider(filename).LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	prayer := cfg.Reference.PrayerTimesWorkbook
	if *prayerPath != "" {
		prayer = *prayerPath
	}
	directory := cfg.Reference.MeterDirectoryWorkbook
	if *directoryPath != "" {
		directory = *directoryPath
	}
	if prayer == "" || directory == "" {
		log.Fatal("both workbook paths are required (config or flags)")
	}

	db := database.NewClient(cfg.Database.ConnectionString, log.GetSugaredLogger())
	if err := db.Connect(); err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Migration error: %v", err)
	}

	scheduleRows, skippedSchedule, err := refdata.ParsePrayerTimesWorkbook(prayer)
	if err != nil {
		log.Fatalf("Failed to parse prayer times workbook: %v", err)
	}
	log.Infof("parsed %d schedule rows from %s (%d skipped)", len(scheduleRows), prayer, skippedSchedule)

	directoryRows, skippedDirectory, err := refdata.ParseMeterDirectoryWorkbook(directory)
	if err != nil {
		log.Fatalf("Failed to parse meter directory workbook: %v", err)
	}
	log.Infof("parsed %d directory rows from %s (%d skipped)", len(directoryRows), directory, skippedDirectory)

	if err := replaceTable(db.DB, &refdata.PrayerScheduleRow{}, scheduleRows); err != nil {
		log.Fatalf("Failed to load prayer schedule: %v", err)
	}
	if err := replaceTable(db.DB, &refdata.MeterDirectoryRow{}, directoryRows); err != nil {
		log.Fatalf("Failed to load meter directory: %v", err)
	}

	log.Info("reference data loaded")
}

// replaceTable truncates and reloads one reference table in a single
// transaction so a failed load never leaves it half-empty.
func replaceTable[T any](db *gorm.DB, model interface{}, rows []T) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 1000).Error
	})
}
