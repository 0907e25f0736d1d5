package statusserver

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/qassimdata/mosquemeter/internal/report"
)

var quarterPattern = regexp.MustCompile(`^\d{4}-Q[1-4]$`)

func (c *Controller) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		c.logger.Warnf("error encoding response: %v", err)
	}
}

func (c *Controller) handleHealth(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := c.db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		c.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *Controller) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	rows, err := c.db.LatestRunStats(r.Context())
	if err != nil {
		c.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no completed runs"})
		return
	}
	c.writeJSON(w, http.StatusOK, rows)
}

func (c *Controller) handleRegional(w http.ResponseWriter, r *http.Request) {
	rows, err := c.db.LatestSummaries(r.Context())
	if err != nil {
		c.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no regional summaries"})
		return
	}
	c.writeJSON(w, http.StatusOK, rows)
}

func (c *Controller) handleViolators(w http.ResponseWriter, r *http.Request) {
	quarter := r.URL.Query().Get("quarter")
	if !quarterPattern.MatchString(quarter) {
		c.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quarter must look like 2025-Q3"})
		return
	}

	rows, err := c.db.ViolatorsByQuarter(r.Context(), quarter)
	if err != nil {
		c.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.writeJSON(w, http.StatusOK, map[string]interface{}{
		"quarter":       quarter,
		"quarter_label": report.QuarterDisplayLabel(quarter),
		"schema":        report.ViolatorDisplaySchema(),
		"violators":     rows,
	})
}
