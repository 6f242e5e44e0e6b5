package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/outpost/internal/codec"
	"github.com/MrSnakeDoc/outpost/internal/domain"
	"github.com/MrSnakeDoc/outpost/internal/httpserver/deps"
	"github.com/MrSnakeDoc/outpost/internal/logger"
	"github.com/MrSnakeDoc/outpost/internal/merge"
)

type registryResponse struct {
	Entries []domain.Entry `json:"entries"`
}

type storedResponse struct {
	Stored int `json:"stored"`
}

// GetRegistry returns the full registry.
func GetRegistry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := d.Registry.Entries(r.Context())
		if err != nil {
			d.Logger.Error("failed to read registry", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read registry")
			return
		}
		if entries == nil {
			entries = []domain.Entry{}
		}
		writeJSON(w, http.StatusOK, registryResponse{Entries: entries})
	}
}

// PostRegistry merges a pushed entry list into the registry. The body must be a
// JSON object with an "entries" array; anything else is rejected with 400 and the
// registry is left untouched. ?mode=refresh selects the refresh policy.
func PostRegistry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, d.MaxBodyBytes))
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				d.Metrics.PayloadRejected()
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		incoming, err := codec.DecodeSyncRequest(body)
		if err != nil {
			d.Metrics.PayloadRejected()
			d.Logger.Warn("rejected sync payload",
				logger.String("remote_ip", r.RemoteAddr),
				logger.Error(err))
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		mode := merge.ParseMode(r.URL.Query().Get("mode"))
		res, err := d.Registry.Merge(r.Context(), incoming, mode)
		if err != nil {
			d.Logger.Error("failed to merge sync payload", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to store entries")
			return
		}

		writeJSON(w, http.StatusOK, storedResponse{Stored: len(res.Entries)})
	}
}
