// internal/controller/stats_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tzelon/thunder-mail/internal/middleware"
	"github.com/Tzelon/thunder-mail/internal/service"
)

type StatsController struct {
	StatsService *service.StatsService
	Logger       zerolog.Logger
}

// GetStats aggregates the authenticated org's activities. Defaults: today
// through tomorrow, grouped by day.
func (c *StatsController) GetStats(w http.ResponseWriter, r *http.Request) {
	org := middleware.OrgFromContext(r.Context())
	if org == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	q := service.StatsQuery{
		GroupBy: r.URL.Query().Get("group_by"),
	}

	today := time.Now().Truncate(24 * time.Hour)
	q.From = today
	q.To = today.AddDate(0, 0, 1)

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		q.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		q.To = t
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			q.Offset = n
		}
	}

	buckets, err := c.StatsService.GetStats(org.ID, q)
	if err != nil {
		c.Logger.Error().Err(err).Int("org_id", org.ID).Msg("stats query failed")
		http.Error(w, "failed to fetch stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(buckets)
}
