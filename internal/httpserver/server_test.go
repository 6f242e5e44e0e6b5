package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/outpost/internal/config"
	"github.com/MrSnakeDoc/outpost/internal/discovery"
	"github.com/MrSnakeDoc/outpost/internal/domain"
	"github.com/MrSnakeDoc/outpost/internal/httpserver/deps"
	"github.com/MrSnakeDoc/outpost/internal/logger"
	"github.com/MrSnakeDoc/outpost/internal/metrics"
	"github.com/MrSnakeDoc/outpost/internal/registry"
	"github.com/MrSnakeDoc/outpost/internal/scheduler"
	"github.com/MrSnakeDoc/outpost/internal/store"
)

type stubAdapter struct {
	entries []domain.Entry
	block   bool
}

func (s stubAdapter) Name() string { return "stub" }

func (s stubAdapter) Discover(ctx context.Context) []domain.Entry {
	if s.block {
		<-ctx.Done()
		return []domain.Entry{}
	}
	return s.entries
}

type testEnv struct {
	handler http.Handler
	mem     *store.Memory
	reg     *prometheus.Registry
}

func newEnv(t *testing.T, mutate func(*deps.Deps), seed ...domain.Entry) testEnv {
	t.Helper()
	log := logger.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	mem := store.NewMemory(seed...)

	d := deps.Deps{
		Logger:           log,
		StartTime:        time.Now(),
		Version:          "test",
		TimeNow:          time.Now,
		Registry:         registry.New(mem, log, m),
		Discovery:        stubAdapter{},
		Host:             "testhost",
		DiscoveryTimeout: time.Second,
		MaxBodyBytes:     1 << 20,
		Metrics:          m,
		Gatherer:         reg,
	}
	if mutate != nil {
		mutate(&d)
	}

	cfg := &config.Config{ListenPort: ":0", DiscoveryTimeout: d.DiscoveryTimeout}
	return testEnv{handler: New(cfg, log, d).Handler(), mem: mem, reg: reg}
}

func (e testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestPostThenGetRegistry(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/registry", `{"entries":[{"name":"Grafana","host":"10.0.0.5","kind":"container"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"stored":1}`, rec.Body.String())
	requireCORS(t, rec)

	rec = env.do(t, http.MethodGet, "/registry", "")
	require.Equal(t, http.StatusOK, rec.Code)
	requireCORS(t, rec)

	got := decode[struct {
		Entries []domain.Entry `json:"entries"`
	}](t, rec)
	require.Len(t, got.Entries, 1)
	e := got.Entries[0]
	require.Equal(t, "Grafana", e.Name)
	require.Equal(t, "10.0.0.5", e.Host)
	require.Equal(t, domain.KindContainer, e.Kind)
	require.Equal(t, domain.StatusUnknown, e.Status)
	require.NotEmpty(t, e.ID)
}

func TestPostIsIdempotent(t *testing.T) {
	env := newEnv(t, nil)
	body := `{"entries":[{"name":"a","host":"h","type":"service"},{"name":"b"}]}`

	require.JSONEq(t, `{"stored":2}`, env.do(t, http.MethodPost, "/registry", body).Body.String())
	require.JSONEq(t, `{"stored":2}`, env.do(t, http.MethodPost, "/registry", body).Body.String())
}

func TestPostExistingWins(t *testing.T) {
	env := newEnv(t, nil, domain.Entry{ID: "p", Name: "Plex", Host: "nas", Kind: domain.KindService, Status: domain.StatusUnknown})

	rec := env.do(t, http.MethodPost, "/registry", `{"entries":[{"name":"Plex","host":"nas","type":"service","note":"new"}]}`)
	require.JSONEq(t, `{"stored":1}`, rec.Body.String())
	require.Empty(t, env.mem.Load(context.Background())[0].Note)
}

func TestPostRefreshMode(t *testing.T) {
	env := newEnv(t, nil, domain.Entry{ID: "p", Name: "Plex", Host: "nas", Kind: domain.KindService, Status: domain.StatusUnknown})

	rec := env.do(t, http.MethodPost, "/registry?mode=refresh", `{"entries":[{"name":"Plex","host":"nas","type":"service","status":"running","note":"new"}]}`)
	require.JSONEq(t, `{"stored":1}`, rec.Body.String())

	got := env.mem.Load(context.Background())[0]
	require.Equal(t, "p", got.ID)
	require.Equal(t, "new", got.Note)
	require.Equal(t, domain.StatusRunning, got.Status)
}

func TestPostRejectsMalformed(t *testing.T) {
	seed := domain.Entry{ID: "1", Name: "keep", Kind: domain.KindOther, Status: domain.StatusUnknown}
	bodies := map[string]string{
		"entries not array": `{"entries":"not-an-array"}`,
		"missing entries":   `{"items":[]}`,
		"unparseable":       `{"entries":[`,
		"top-level array":   `[{"name":"x"}]`,
		"empty body":        ``,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			env := newEnv(t, nil, seed)
			req := httptest.NewRequest(http.MethodPost, "/registry", strings.NewReader(body))
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			requireCORS(t, rec)
			errBody := decode[map[string]string](t, rec)
			require.NotEmpty(t, errBody["error"])

			require.Equal(t, []domain.Entry{seed}, env.mem.Load(context.Background()))
			require.True(t, env.mem.LastWrite().IsZero())
		})
	}
}

func TestPostBodyTooLarge(t *testing.T) {
	env := newEnv(t, func(d *deps.Deps) { d.MaxBodyBytes = 16 })

	rec := env.do(t, http.MethodPost, "/registry", `{"entries":[{"name":"this is too long"}]}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Empty(t, env.mem.Load(context.Background()))
}

func TestDiscoverReturnsUnmergedCandidates(t *testing.T) {
	candidates := []domain.Entry{{Name: "grafana", Host: "testhost", Kind: domain.KindContainer, Status: domain.StatusRunning}}
	env := newEnv(t, func(d *deps.Deps) { d.Discovery = stubAdapter{entries: candidates} })

	rec := env.do(t, http.MethodGet, "/discover", "")
	require.Equal(t, http.StatusOK, rec.Code)
	requireCORS(t, rec)

	scan := decode[discovery.Scan](t, rec)
	require.Equal(t, candidates, scan.Entries)
	require.Equal(t, "testhost", scan.Host)
	require.False(t, scan.ScannedAt.IsZero())

	require.Empty(t, env.mem.Load(context.Background()))
}

func TestDiscoverTimeoutYieldsEmpty(t *testing.T) {
	env := newEnv(t, func(d *deps.Deps) {
		d.Discovery = stubAdapter{block: true}
		d.DiscoveryTimeout = 50 * time.Millisecond
	})

	rec := env.do(t, http.MethodGet, "/discover", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"entries":[]`)
}

func TestDiscoverWithoutAdapter(t *testing.T) {
	env := newEnv(t, func(d *deps.Deps) { d.Discovery = nil })

	rec := env.do(t, http.MethodGet, "/discover", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"entries":[]`)
}

func TestPreflight(t *testing.T) {
	env := newEnv(t, nil)

	for _, path := range []string{"/registry", "/discover", "/anything"} {
		rec := env.do(t, http.MethodOptions, path, "")
		require.Equal(t, http.StatusNoContent, rec.Code, path)
		require.Empty(t, rec.Body.String())
		requireCORS(t, rec)
	}
}

func TestUnmatchedRoute(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
	requireCORS(t, rec)
}

func TestWrongMethod(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodDelete, "/registry", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.JSONEq(t, `{"error":"method not allowed"}`, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "memory", body["store"])
}

func TestReadyz(t *testing.T) {
	env := newEnv(t, nil)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/readyz", "").Code)

	down := newEnv(t, func(d *deps.Deps) {
		d.Ready = func(context.Context) error { return errors.New("redis down") }
	})
	rec := down.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"ready":false,"error":"store unavailable"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newEnv(t, nil)
	env.do(t, http.MethodPost, "/registry", `{"entries":"bad"}`)

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "outpost_payload_rejected_total 1")
}

func TestMetricsAllowList(t *testing.T) {
	env := newEnv(t, func(d *deps.Deps) { d.AllowedCIDRS = []string{"10.0.0.0/8"} })

	// httptest requests come from 192.0.2.1.
	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "10.1.2.3:4567"
	ok := httptest.NewRecorder()
	env.handler.ServeHTTP(ok, req)
	require.Equal(t, http.StatusOK, ok.Code)
}

type refusingStore struct{ *store.Memory }

func (refusingStore) Save(context.Context, []domain.Entry) error { return errors.New("read-only filesystem") }

func TestGetRegistryWhenIDsCannotBePersisted(t *testing.T) {
	legacy := refusingStore{store.NewMemory(
		domain.Entry{Name: "Plex", Host: "nas", Kind: domain.KindService, Status: domain.StatusUnknown},
	)}
	env := newEnv(t, func(d *deps.Deps) { d.Registry = registry.New(legacy, d.Logger, d.Metrics) })

	first := env.do(t, http.MethodGet, "/registry", "")
	require.Equal(t, http.StatusOK, first.Code)
	second := env.do(t, http.MethodGet, "/registry", "")
	require.Equal(t, http.StatusOK, second.Code)

	type payload struct {
		Entries []domain.Entry `json:"entries"`
	}
	a, b := decode[payload](t, first), decode[payload](t, second)
	require.Len(t, a.Entries, 1)
	require.NotEmpty(t, a.Entries[0].ID)
	require.Equal(t, a.Entries[0].ID, b.Entries[0].ID)
}

func TestTriggerSync(t *testing.T) {
	disabled := newEnv(t, nil)
	rec := disabled.do(t, http.MethodPost, "/sync", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"error":"periodic discovery is disabled"}`, rec.Body.String())

	trigger := make(chan struct{}, 1)
	env := newEnv(t, func(d *deps.Deps) { d.SyncTrigger = trigger })

	rec = env.do(t, http.MethodPost, "/sync", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.JSONEq(t, `{"triggered":true}`, rec.Body.String())
	requireCORS(t, rec)

	// The scheduler has not picked up the first trigger yet.
	rec = env.do(t, http.MethodPost, "/sync", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	<-trigger
	require.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, "/sync", "").Code)

	require.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodGet, "/sync", "").Code)
}

func TestTriggerSyncAllowList(t *testing.T) {
	trigger := make(chan struct{}, 1)
	env := newEnv(t, func(d *deps.Deps) {
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
		d.SyncTrigger = trigger
	})

	require.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/sync", "").Code)
	require.Empty(t, trigger)
}

func TestStatus(t *testing.T) {
	env := newEnv(t, func(d *deps.Deps) {
		d.SyncStatus = func() scheduler.Status {
			return scheduler.Status{
				Interval: 5 * time.Minute,
				LastRun:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
				Found:    3,
				Added:    2,
			}
		}
	}, domain.Entry{ID: "1", Name: "Plex", Kind: domain.KindService, Status: domain.StatusUnknown})

	rec := env.do(t, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{
		"state": "ok",
		"components": {
			"store": {"ok": true, "name": "memory", "entries": 1},
			"discovery": {"ok": true, "name": "stub", "mode": "on-demand"},
			"scheduler": {"ok": true, "mode": "periodic", "interval": "5m0s", "last_sync": "2024-03-01T12:00:00Z", "added": 2}
		}
	}`, rec.Body.String())
}

func TestStatusDegraded(t *testing.T) {
	env := newEnv(t, func(d *deps.Deps) {
		d.Ready = func(context.Context) error { return errors.New("redis down") }
		d.Discovery = nil
		d.SyncStatus = func() scheduler.Status {
			return scheduler.Status{Interval: time.Minute, Err: "disk full"}
		}
	})

	rec := env.do(t, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		State      string `json:"state"`
		Components map[string]struct {
			OK       bool   `json:"ok"`
			Mode     string `json:"mode"`
			LastSync string `json:"last_sync"`
			Error    string `json:"error"`
		} `json:"components"`
	}](t, rec)
	require.Equal(t, "degraded", body.State)
	require.False(t, body.Components["store"].OK)
	require.Equal(t, "unreachable", body.Components["store"].Error)
	require.Equal(t, "disabled", body.Components["discovery"].Mode)
	require.False(t, body.Components["scheduler"].OK)
	require.Equal(t, "never", body.Components["scheduler"].LastSync)
	require.Equal(t, "disk full", body.Components["scheduler"].Error)
}
