package discovery

import (
	"context"
	"errors"

	"github.com/MrSnakeDoc/outpost/internal/domain"
	"github.com/MrSnakeDoc/outpost/internal/logger"
	"github.com/MrSnakeDoc/outpost/internal/metrics"
	"github.com/MrSnakeDoc/outpost/internal/sources/homepage"
)

// Homepage turns a gethomepage dashboard configuration into candidates:
// services.yaml yields service entries, bookmarks.yaml entries of kind other.
type Homepage struct {
	servicesFile  string
	bookmarksFile string
	logger        logger.Logger
	metrics       *metrics.Metrics
}

// NewHomepage creates the adapter. Either file may be empty to skip it.
func NewHomepage(servicesFile, bookmarksFile string, log logger.Logger, m *metrics.Metrics) *Homepage {
	return &Homepage{
		servicesFile:  servicesFile,
		bookmarksFile: bookmarksFile,
		logger:        log,
		metrics:       m,
	}
}

func (h *Homepage) Name() string { return AdapterHomepage }

// Discover reads both files. A failure on one file does not drop the entries
// read from the other.
func (h *Homepage) Discover(ctx context.Context) []domain.Entry {
	entries := make([]domain.Entry, 0)
	var errs []error

	if h.servicesFile != "" {
		cfg, err := homepage.LoadServices(h.servicesFile)
		if err != nil {
			errs = append(errs, err)
		} else {
			entries = append(entries, homepage.MapServices(cfg)...)
		}
	}

	if h.bookmarksFile != "" {
		cfg, err := homepage.LoadBookmarks(h.bookmarksFile)
		if err != nil {
			errs = append(errs, err)
		} else {
			entries = append(entries, homepage.MapBookmarks(cfg)...)
		}
	}

	if h.servicesFile == "" && h.bookmarksFile == "" {
		errs = append(errs, errors.New("no homepage files configured"))
	}

	err := errors.Join(errs...)
	h.metrics.Discovery(h.Name(), outcome(ctx, err))
	if err != nil {
		h.logger.Warn("homepage discovery incomplete", logger.Error(err))
	}
	return entries
}
