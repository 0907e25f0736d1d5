// Package database provides the warehouse client and the query surface
// the pipeline and status server share.
package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/qassimdata/mosquemeter/internal/aggregate"
	"github.com/qassimdata/mosquemeter/internal/locmatch"
	"github.com/qassimdata/mosquemeter/internal/log"
	"github.com/qassimdata/mosquemeter/internal/quality"
	"github.com/qassimdata/mosquemeter/internal/refdata"
	"github.com/qassimdata/mosquemeter/internal/report"
	"github.com/qassimdata/mosquemeter/internal/violation"
)

// Client holds the connection to the readings warehouse
type Client struct {
	connectionString string
	DB               *gorm.DB // Exported so it can be accessed from other packages
	logger           *zap.SugaredLogger
}

// NewClient creates a new database client
func NewClient(connectionString string, logger *zap.SugaredLogger) *Client {
	return &Client{
		connectionString: connectionString,
		logger:           logger,
	}
}

// Connect connects to the warehouse database
func (c *Client) Connect() error {
	var err error

	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	c.logger.Info("connecting to warehouse...")
	c.DB, err = gorm.Open(postgres.Open(c.connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return fmt.Errorf("unable to create a warehouse connection: %w", err)
	}
	c.logger.Info("warehouse connection successful")

	return nil
}

// Migrate creates or updates all tables the pipeline reads and writes.
func (c *Client) Migrate() error {
	return c.DB.AutoMigrate(
		&Reading{},
		&refdata.PrayerScheduleRow{},
		&refdata.MeterDirectoryRow{},
		&locmatch.Binding{},
		&aggregate.QuarterStats{},
		&quality.Quality{},
		&violation.Record{},
		&report.Summary{},
		&RunStageStat{},
	)
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
