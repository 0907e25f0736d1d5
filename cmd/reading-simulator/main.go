// reading-simulator fills the reading store with synthetic half-hourly
// readings for development runs. The generated load curve peaks around
// prayer times so violator classification has something to find.
package main

import (
	"flag"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm/clause"

	"github.com/qassimdata/mosquemeter/internal/database"
	"github.com/qassimdata/mosquemeter/internal/log"
	"github.com/qassimdata/mosquemeter/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to YAML configuration file")
	meters := flag.Int("meters", 20, "Number of meters to simulate")
	days := flag.Int("days", 90, "Days of history to generate, ending now")
	baseWatts := flag.Float64("base-watts", 1200, "Baseline draw in watts")
	zeroRate := flag.Float64("zero-rate", 0.02, "Fraction of readings reported as zero")
	nullRate := flag.Float64("null-rate", 0.01, "Fraction of readings nulled as outliers")
	seed := flag.Int64("seed", 1, "Random seed")
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

	db := database.NewClient(cfg.Database.ConnectionString, log.GetSugaredLogger())
	if err := db.Connect(); err != nil {
		log.Fatalf("Database error: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Migration error: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	interval := 24 * time.Hour / time.Duration(cfg.Pipeline.ReadingsPerDay)
	end := time.Now().UTC().Truncate(interval)
	start := end.AddDate(0, 0, -*days)

	var batch []database.Reading
	total := 0
	for m := 0; m < *meters; m++ {
		meterID := fmt.Sprintf("SIM-%04d", m+1)
		// A third of the fleet runs hot enough to violate.
		hot := m%3 == 0

		for t := start; t.Before(end); t = t.Add(interval) {
			power := simulatedPower(t, *baseWatts, hot, rng)
			r := database.Reading{
				MeterID:     meterID,
				ReadingTime: t,
				RowHash:     rowHash(meterID, t),
			}
			switch {
			case rng.Float64() < *nullRate:
				// Outlier nulled at ingestion.
			case rng.Float64() < *zeroRate:
				zero := 0.0
				r.PowerWatts = &zero
			default:
				r.PowerWatts = &power
			}

			batch = append(batch, r)
			if len(batch) >= 5000 {
				total += len(batch)
				writeBatch(db, batch)
				batch = batch[:0]
			}
		}
	}
	if len(batch) > 0 {
		total += len(batch)
		writeBatch(db, batch)
	}

	log.Infof("generated %d readings for %d meters (%s .. %s)", total, *meters, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// simulatedPower shapes a daily load curve with early-morning and
// late-evening peaks on top of noise.
func simulatedPower(t time.Time, base float64, hot bool, rng *rand.Rand) float64 {
	hour := float64(t.Hour()) + float64(t.Minute())/60.0

	peak := base
	if hot {
		peak = base * 3.5
	}

	// Peaks centered near 06:00 and 21:00.
	morning := math.Exp(-math.Pow(hour-6, 2) / 4)
	evening := math.Exp(-math.Pow(hour-21, 2) / 6)
	power := base + peak*(morning+evening) + rng.NormFloat64()*base*0.1

	if power < 0 {
		power = 0
	}
	return power
}

// rowHash reproduces the store's dedup key over (meter_id, timestamp).
func rowHash(meterID string, t time.Time) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s", meterID, t.UTC().Format(time.RFC3339))
	return int64(h.Sum64() & math.MaxInt64)
}

func writeBatch(db *database.Client, batch []database.Reading) {
	err := db.DB.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "meter_id"}, {Name: "reading_time"}},
			UpdateAll: true,
		}).
		Create(&batch).Error
	if err != nil {
		log.Fatalf("Failed to write readings: %v", err)
	}
}
