// mosquemeter-provisioner creates the warehouse database and the reading
// store table for a fresh installation. The pipeline's own gorm migration
// handles the derived tables; the reading store is provisioned here so the
// hypertable and dedup index exist before the first ingest.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"

	_ "github.com/lib/pq"
)

const (
	defaultDBName = "mosquemeter"
	defaultDBUser = "mosquemeter"
	defaultHost   = "localhost"
	defaultPort   = 5432
)

func main() {
	dbName := flag.String("db-name", defaultDBName, "Database name to create")
	dbUser := flag.String("db-user", defaultDBUser, "Database owner role")
	host := flag.String("postgres-host", defaultHost, "PostgreSQL host")
	port := flag.Int("postgres-port", defaultPort, "PostgreSQL port")
	adminUser := flag.String("admin-user", "postgres", "Administrative user for provisioning")
	adminPassword := flag.String("admin-password", "", "Administrative password (or PGPASSWORD)")
	sslMode := flag.String("ssl-mode", "prefer", "PostgreSQL SSL mode")
	timescale := flag.Bool("timescaledb", true, "Convert the reading store into a TimescaleDB hypertable")
	flag.Parse()

	password := *adminPassword
	if password == "" {
		password = os.Getenv("PGPASSWORD")
	}

	admin := connString(*host, *port, *adminUser, password, "postgres", *sslMode)
	if err := createDatabase(admin, *dbName, *dbUser); err != nil {
		fmt.Fprintf(os.Stderr, "provisioning failed: %v\n", err)
		os.Exit(1)
	}

	target := connString(*host, *port, *adminUser, password, *dbName, *sslMode)
	if err := createReadingStore(target, *timescale); err != nil {
		fmt.Fprintf(os.Stderr, "provisioning failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("database %q provisioned\n", *dbName)
}

func connString(host string, port int, user, password, dbname, sslMode string) string {
	parts := []string{
		fmt.Sprintf("host=%s", host),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("user=%s", user),
		fmt.Sprintf("dbname=%s", dbname),
		fmt.Sprintf("sslmode=%s", sslMode),
	}
	if password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", password))
	}
	return strings.Join(parts, " ")
}

func createDatabase(adminConn, dbName, dbUser string) error {
	db, err := sql.Open("postgres", adminConn)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	defer db.Close()

	var exists bool
	if err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists); err != nil {
		return fmt.Errorf("checking for database: %w", err)
	}
	if exists {
		fmt.Printf("database %q already exists, skipping creation\n", dbName)
		return nil
	}

	if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE %s ENCODING 'UTF8' TEMPLATE template0", quoteIdent(dbName))); err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("ALTER DATABASE %s OWNER TO %s", quoteIdent(dbName), quoteIdent(dbUser))); err != nil {
		fmt.Printf("note: could not set owner to %q: %v\n", dbUser, err)
	}
	return nil
}

func createReadingStore(conn string, timescale bool) error {
	db, err := sql.Open("postgres", conn)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	const createTable = `
CREATE TABLE IF NOT EXISTS meter_readings (
	meter_id     TEXT             NOT NULL,
	reading_time TIMESTAMPTZ      NOT NULL,
	power_watts  DOUBLE PRECISION,
	row_hash     BIGINT           NOT NULL,
	PRIMARY KEY (meter_id, reading_time)
)`
	if _, err := db.Exec(createTable); err != nil {
		return fmt.Errorf("creating meter_readings: %w", err)
	}

	if _, err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_meter_readings_row_hash ON meter_readings (row_hash)"); err != nil {
		return fmt.Errorf("creating dedup index: %w", err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_meter_readings_time ON meter_readings (reading_time)"); err != nil {
		return fmt.Errorf("creating time index: %w", err)
	}

	if timescale {
		if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
			fmt.Printf("note: TimescaleDB extension unavailable, using a plain table: %v\n", err)
			return nil
		}
		if _, err := db.Exec("SELECT create_hypertable('meter_readings', 'reading_time', if_not_exists => TRUE, migrate_data => TRUE)"); err != nil {
			return fmt.Errorf("creating hypertable: %w", err)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
