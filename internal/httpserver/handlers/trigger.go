package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/outpost/internal/httpserver/deps"
	"github.com/MrSnakeDoc/outpost/internal/logger"
)

type triggerResponse struct {
	Triggered bool `json:"triggered"`
}

// TriggerSync asks the discovery scheduler for an immediate pass. It never waits
// for the pass itself: a second request while one is queued gets 429.
func TriggerSync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.SyncTrigger == nil {
			writeError(w, http.StatusServiceUnavailable, "periodic discovery is disabled")
			return
		}

		select {
		case d.SyncTrigger <- struct{}{}:
			d.Logger.Info("discovery sync triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, triggerResponse{Triggered: true})
		default:
			d.Logger.Warn("discovery sync already pending",
				logger.String("remote_ip", r.RemoteAddr))
			writeError(w, http.StatusTooManyRequests, "sync already pending, please wait")
		}
	}
}
