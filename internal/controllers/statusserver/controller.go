// Package statusserver exposes run status, regional summaries and
// violator rows over HTTP for the downstream reporting layer, plus the
// prometheus metrics endpoint.
package statusserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/qassimdata/mosquemeter/internal/database"
)

// Controller is the REST status server.
type Controller struct {
	db     *database.Client
	logger *zap.SugaredLogger
	server *http.Server
}

// New creates a status server listening on addr.
func New(addr string, db *database.Client, logger *zap.SugaredLogger) *Controller {
	c := &Controller{
		db:     db,
		logger: logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", c.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/run", c.handleLatestRun).Methods(http.MethodGet)
	router.HandleFunc("/api/regional", c.handleRegional).Methods(http.MethodGet)
	router.HandleFunc("/api/violators", c.handleViolators).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	c.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return c
}

// Serve blocks serving HTTP until the context is cancelled.
func (c *Controller) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		c.logger.Infof("status server listening on %s", c.server.Addr)
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return c.server.Shutdown(shutdownCtx)
	}
}
