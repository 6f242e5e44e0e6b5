package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/outpost/internal/httpserver/deps"
)

type componentStatus struct {
	OK       bool   `json:"ok"`
	Name     string `json:"name,omitempty"`
	Entries  *int   `json:"entries,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Interval string `json:"interval,omitempty"`
	LastSync string `json:"last_sync,omitempty"`
	Added    *int   `json:"added,omitempty"`
	Impact   string `json:"impact,omitempty"`
	Error    string `json:"error,omitempty"`
}

type statusResponse struct {
	State      string                     `json:"state"`
	Components map[string]componentStatus `json:"components"`
}

// Status reports the store backend, the discovery adapters and the scheduler.
// The response is always 200; State is "degraded" when a component is not OK.
func Status(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"store":     checkStore(r.Context(), d),
			"discovery": discoveryStatus(d),
			"scheduler": schedulerStatus(d),
		}

		writeJSON(w, http.StatusOK, statusResponse{
			State:      overallState(components),
			Components: components,
		})
	}
}

func overallState(components map[string]componentStatus) string {
	for _, c := range components {
		if !c.OK {
			return "degraded"
		}
	}
	return "ok"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	st := componentStatus{OK: true}
	if d.Registry == nil {
		return componentStatus{OK: false, Impact: "registry unavailable", Error: "no store configured"}
	}
	st.Name = d.Registry.Backend()

	if d.Ready != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := d.Ready(ctx); err != nil {
			st.OK = false
			st.Impact = "reads return an empty registry and writes fail"
			st.Error = "unreachable"
			return st
		}
	}

	entries, err := d.Registry.Entries(ctx)
	if err != nil {
		st.OK = false
		st.Error = err.Error()
		return st
	}
	n := len(entries)
	st.Entries = &n
	return st
}

func discoveryStatus(d deps.Deps) componentStatus {
	if d.Discovery == nil {
		return componentStatus{OK: true, Mode: "disabled", Impact: "/discover returns nothing"}
	}
	return componentStatus{OK: true, Name: d.Discovery.Name(), Mode: "on-demand"}
}

func schedulerStatus(d deps.Deps) componentStatus {
	if d.SyncStatus == nil {
		return componentStatus{OK: true, Mode: "disabled"}
	}

	last := d.SyncStatus()
	st := componentStatus{
		OK:       last.Err == "",
		Mode:     "periodic",
		Interval: last.Interval.String(),
		LastSync: "never",
		Error:    last.Err,
	}
	if !last.LastRun.IsZero() {
		st.LastSync = last.LastRun.UTC().Format(time.RFC3339)
		added := last.Added
		st.Added = &added
	}
	return st
}
