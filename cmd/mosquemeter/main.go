package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/qassimdata/mosquemeter/internal/controllers/statusserver"
	"github.com/qassimdata/mosquemeter/internal/database"
	"github.com/qassimdata/mosquemeter/internal/log"
	"github.com/qassimdata/mosquemeter/internal/pipeline"
	"github.com/qassimdata/mosquemeter/pkg/config"
)

const version = "1.2-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source (YAML file or SQLite database)")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' or 'sqlite'")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	fullRefresh := flag.Bool("full-refresh", false, "Ignore the checkpoint and reprocess every meter")
	serve := flag.Bool("serve", false, "Keep the status server running after the batch run completes")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mosquemeter %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("shutdown signal received")
		cancel()
	}()

	db := database.NewClient(cfg.Database.ConnectionString, log.GetSugaredLogger())
	if err := db.Connect(); err != nil {
		log.Errorf("Database error: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Errorf("Migration error: %v", err)
		os.Exit(1)
	}

	p := pipeline.New(cfg, db, log.GetSugaredLogger())
	p.FullRefresh = *fullRefresh
	if _, err := p.Run(ctx); err != nil {
		log.Errorf("Pipeline error: %v", err)
		os.Exit(1)
	}

	if *serve {
		if cfg.StatusServer == nil {
			log.Error("-serve requires a status_server section in the configuration")
			os.Exit(1)
		}
		server := statusserver.New(cfg.StatusServer.ListenAddr, db, log.GetSugaredLogger())
		if err := server.Serve(ctx); err != nil {
			log.Errorf("Status server error: %v", err)
			os.Exit(1)
		}
	}
}

func loadConfig(cfgFile, cfgBackend string) (*config.Data, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.Provider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config. Did you pass the -config flag? Run with -h for help: %w", err)
	}
	return cfg, nil
}
