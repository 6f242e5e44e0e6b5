package discovery

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/outpost/internal/domain"
)

// Multi runs several adapters concurrently and concatenates their results in
// adapter order.
type Multi struct {
	adapters []Adapter
}

func NewMulti(adapters ...Adapter) *Multi {
	return &Multi{adapters: adapters}
}

func (m *Multi) Name() string {
	names := make([]string, len(m.adapters))
	for i, a := range m.adapters {
		names[i] = a.Name()
	}
	return strings.Join(names, "+")
}

func (m *Multi) Discover(ctx context.Context) []domain.Entry {
	results := make([][]domain.Entry, len(m.adapters))

	// Adapters never fail, so the group only joins them.
	var g errgroup.Group
	for i, a := range m.adapters {
		g.Go(func() error {
			results[i] = a.Discover(ctx)
			return nil
		})
	}
	_ = g.Wait()

	entries := make([]domain.Entry, 0)
	for _, r := range results {
		entries = append(entries, r...)
	}
	return entries
}
