// config-convert renders a YAML configuration file into the SQLite layout
// the sqlite config backend reads. Defaults are applied during the read,
// so the produced database is fully explicit.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/qassimdata/mosquemeter/pkg/config"
)

func main() {
	input := flag.String("input", "config.yaml", "Path to the YAML configuration file")
	output := flag.String("output", "config.db", "Path to the SQLite configuration database to create or update")
	flag.Parse()

	inputPath, _ := filepath.Abs(*input)
	cfg, err := config.NewYAMLProvider(inputPath).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", inputPath, err)
		os.Exit(1)
	}

	outputPath, _ := filepath.Abs(*output)
	db, err := sql.Open("sqlite", outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening %s: %v\n", outputPath, err)
		os.Exit(1)
	}
	defer db.Close()

	if err := config.WriteSQLite(db, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error converting configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s\n", outputPath)
}
