package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/outpost/internal/discovery"
	"github.com/MrSnakeDoc/outpost/internal/logger"
	"github.com/MrSnakeDoc/outpost/internal/merge"
	"github.com/MrSnakeDoc/outpost/internal/registry"
)

// DiscoverySync periodically runs discovery and merges the candidates into the
// registry with the keep-existing policy.
type DiscoverySync struct {
	registry      *registry.Service
	adapter       discovery.Adapter
	host          string
	timeout       time.Duration
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}

	mu   sync.Mutex
	last Status
}

// Status describes the most recent sync pass. LastRun is zero before the first one.
type Status struct {
	Interval time.Duration
	LastRun  time.Time
	Found    int
	Added    int
	Err      string
}

// NewDiscoverySync creates a new discovery scheduler. manualTrigger may be nil.
func NewDiscoverySync(
	reg *registry.Service,
	adapter discovery.Adapter,
	host string,
	timeout time.Duration,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *DiscoverySync {
	syncLog := log.Named("discovery-sync")
	if adapter != nil {
		syncLog = syncLog.With(logger.String("adapter", adapter.Name()))
	}

	return &DiscoverySync{
		registry:      reg,
		adapter:       adapter,
		host:          host,
		timeout:       timeout,
		logger:        syncLog,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Enabled reports whether a positive interval was configured.
func (ds *DiscoverySync) Enabled() bool { return ds.interval > 0 && ds.adapter != nil }

// Start syncs once, then keeps syncing every interval until Stop or ctx is done.
// It does nothing when the scheduler is disabled.
func (ds *DiscoverySync) Start(ctx context.Context) error {
	if !ds.Enabled() {
		ds.logger.Debug("periodic discovery disabled")
		return nil
	}

	if _, err := ds.Sync(ctx); err != nil {
		return fmt.Errorf("initial discovery sync failed: %w", err)
	}

	ticker := time.NewTicker(ds.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ds.syncAndLog(ctx)
			case <-ds.manualTrigger:
				ds.logger.Info("manual discovery triggered")
				ds.syncAndLog(ctx)
			case <-ds.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the scheduler. It is safe to call once.
func (ds *DiscoverySync) Stop() {
	close(ds.stopCh)
}

// Status returns a snapshot of the last sync pass.
func (ds *DiscoverySync) Status() Status {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	st := ds.last
	st.Interval = ds.interval
	return st
}

// Sync runs one discovery pass and merges its candidates.
func (ds *DiscoverySync) Sync(ctx context.Context) (merge.Result, error) {
	scan := discovery.Run(ctx, ds.adapter, ds.host, ds.timeout)

	res, err := ds.registry.Merge(ctx, scan.Entries, merge.ModeKeep)
	ds.record(len(scan.Entries), res.Added, err)
	if err != nil {
		return merge.Result{}, fmt.Errorf("failed to merge discovered entries: %w", err)
	}

	ds.logger.Info("discovery sync complete",
		logger.Int("found", len(scan.Entries)),
		logger.Int("added", res.Added))
	return res, nil
}

func (ds *DiscoverySync) record(found, added int, err error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.last = Status{LastRun: time.Now(), Found: found, Added: added}
	if err != nil {
		ds.last.Err = err.Error()
	}
}

func (ds *DiscoverySync) syncAndLog(ctx context.Context) {
	if _, err := ds.Sync(ctx); err != nil {
		ds.logger.Error("discovery sync failed", logger.Error(err))
	}
}
