package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/outpost/internal/discovery"
	"github.com/MrSnakeDoc/outpost/internal/domain"
	"github.com/MrSnakeDoc/outpost/internal/httpserver/deps"
)

// Discover runs discovery and returns the unmerged candidates. The caller decides
// whether to push them back through POST /registry.
func Discover(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Discovery == nil {
			now := d.TimeNow
			if now == nil {
				now = timeNowUTC
			}
			writeJSON(w, http.StatusOK, discovery.Scan{Entries: []domain.Entry{}, Host: d.Host, ScannedAt: now().UTC()})
			return
		}

		writeJSON(w, http.StatusOK, discovery.Run(r.Context(), d.Discovery, d.Host, d.DiscoveryTimeout))
	}
}
