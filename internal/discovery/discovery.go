// Package discovery produces candidate registry entries by inspecting live systems.
//
// Discovery is advisory: an Adapter never returns an error. Failures are logged,
// counted and turned into an empty result, so callers can always merge whatever
// came back.
package discovery

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrSnakeDoc/outpost/internal/config"
	"github.com/MrSnakeDoc/outpost/internal/domain"
	"github.com/MrSnakeDoc/outpost/internal/logger"
	"github.com/MrSnakeDoc/outpost/internal/metrics"
)

// Adapter names accepted in discovery_adapters.
const (
	AdapterDockerCLI = "docker-cli"
	AdapterDockerAPI = "docker-api"
	AdapterHomepage  = "homepage"
)

// Adapter is a pluggable source of candidate entries.
type Adapter interface {
	Name() string
	// Discover returns the candidates found, or an empty slice on any failure.
	Discover(ctx context.Context) []domain.Entry
}

// Scan is one discovery run with its metadata.
type Scan struct {
	Entries   []domain.Entry `json:"entries"`
	Host      string         `json:"host"`
	ScannedAt time.Time      `json:"scannedAt"`
}

// Run executes a under a deadline of timeout (no deadline when timeout <= 0) and
// stamps the result with host and the scan start time.
func Run(ctx context.Context, a Adapter, host string, timeout time.Duration) Scan {
	start := time.Now().UTC()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	entries := a.Discover(ctx)
	if entries == nil {
		entries = []domain.Entry{}
	}
	return Scan{Entries: entries, Host: host, ScannedAt: start}
}

// Hostname returns the local machine's network name, or "localhost" when it
// cannot be determined.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "localhost"
	}
	return h
}

// FromConfig builds the adapter set named by cfg.DiscoveryAdapters. A single name
// yields that adapter; several are combined with Multi.
func FromConfig(cfg *config.Config, host string, log logger.Logger, m *metrics.Metrics) (Adapter, error) {
	names := cfg.DiscoveryAdapters
	if len(names) == 0 {
		names = []string{AdapterDockerCLI}
	}

	adapters := make([]Adapter, 0, len(names))
	for _, name := range names {
		switch strings.TrimSpace(name) {
		case AdapterDockerCLI:
			adapters = append(adapters, NewDockerCLI(cfg.DockerBinary, host, log, m))
		case AdapterDockerAPI:
			adapters = append(adapters, NewDockerAPI(nil, host, log, m))
		case AdapterHomepage:
			adapters = append(adapters, NewHomepage(cfg.HomepageServicesFile, cfg.HomepageBookmarksFile, log, m))
		default:
			return nil, fmt.Errorf("unknown discovery adapter %q", name)
		}
	}

	if len(adapters) == 1 {
		return adapters[0], nil
	}
	return NewMulti(adapters...), nil
}

// outcome labels a run for metrics.
func outcome(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "ok"
	case ctx.Err() != nil:
		return "timeout"
	default:
		return "error"
	}
}
