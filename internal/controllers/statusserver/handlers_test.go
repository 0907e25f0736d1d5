package statusserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestHandleViolatorsRejectsBadQuarter(t *testing.T) {
	// The quarter check runs before any storage access, so a controller
	// without a database suffices here.
	c := &Controller{logger: zap.NewNop().Sugar()}

	for _, quarter := range []string{"", "2025", "2025-Q5", "2025-q3", "25-Q1", "2025-Q33"} {
		req := httptest.NewRequest(http.MethodGet, "/api/violators?quarter="+quarter, nil)
		rec := httptest.NewRecorder()
		c.handleViolators(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("quarter %q: status %d, want %d", quarter, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestQuarterPattern(t *testing.T) {
	valid := []string{"2025-Q1", "2025-Q4", "1999-Q2"}
	for _, q := range valid {
		if !quarterPattern.MatchString(q) {
			t.Errorf("quarter %q should be accepted", q)
		}
	}
}
