package deps

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrSnakeDoc/outpost/internal/discovery"
	"github.com/MrSnakeDoc/outpost/internal/logger"
	"github.com/MrSnakeDoc/outpost/internal/metrics"
	"github.com/MrSnakeDoc/outpost/internal/registry"
	"github.com/MrSnakeDoc/outpost/internal/scheduler"
)

type Deps struct {
	Logger           logger.Logger
	StartTime        time.Time
	Version          string
	Commit           string
	BuildDate        string
	GoVersion        string
	TimeNow          func() time.Time            // for testing, defaults to time.Now
	AllowedCIDRS     []string                    // IPs allowed to access readyz/metrics endpoints
	TrustProxy       bool                        // true if running behind a trusted reverse proxy (e.g., cloudflared)
	Registry         *registry.Service           // single write path to the store
	Discovery        discovery.Adapter           // nil disables /discover results
	Host             string                      // reported as the scanning host
	DiscoveryTimeout time.Duration               // deadline for one /discover run
	MaxBodyBytes     int64                       // POST /registry body limit
	Metrics          *metrics.Metrics            // nil records nothing
	Gatherer         prometheus.Gatherer         // served on /metrics, nil disables the route
	Ready            func(context.Context) error // readiness probe, nil means always ready
	SyncTrigger      chan<- struct{}             // wakes the discovery scheduler, nil when it is not running
	SyncStatus       func() scheduler.Status     // last scheduler pass, nil when it is not running
}
