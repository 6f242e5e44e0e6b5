// Package registry is the single write path to a Store. Every mutation loads the
// current entries, applies one change and saves the full result; concurrent
// writers race and the last Save wins.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/outpost/internal/domain"
	"github.com/MrSnakeDoc/outpost/internal/logger"
	"github.com/MrSnakeDoc/outpost/internal/merge"
	"github.com/MrSnakeDoc/outpost/internal/metrics"
	"github.com/MrSnakeDoc/outpost/internal/store"
)

// legacyNamespace seeds the name-based ids given to entries stored without one.
var legacyNamespace = uuid.MustParse("5b0c4f5e-8d2a-4c1e-9f3b-6a7d2e1c0b94")

var (
	ErrNameRequired = errors.New("name is required")
	ErrNotFound     = errors.New("entry not found")
	ErrAmbiguousID  = errors.New("id prefix matches more than one entry")
)

// Service wraps a Store with merge, id assignment and metrics.
type Service struct {
	store   store.Store
	logger  logger.Logger
	metrics *metrics.Metrics
	newID   func() string
}

func New(st store.Store, log logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   st,
		logger:  log,
		metrics: m,
		newID:   uuid.NewString,
	}
}

// Backend names the underlying store.
func (s *Service) Backend() string { return s.store.Name() }

// Entries returns the whole registry in stored order. Entries persisted by older
// versions without an id get a name-based one derived from their identity and
// position, so concurrent readers agree on it. Persisting those ids is best
// effort: a refused save is logged and counted, and the entries are still returned.
func (s *Service) Entries(ctx context.Context) ([]domain.Entry, error) {
	entries := s.store.Load(ctx)
	n := assignIDs(entries, legacyID)
	if n == 0 {
		return entries, nil
	}
	if err := s.save(ctx, entries); err != nil {
		s.logger.Warn("could not persist ids for stored entries",
			logger.Int("count", n),
			logger.Error(err))
		return entries, nil
	}
	s.logger.Info("assigned ids to stored entries", logger.Int("count", n))
	return entries, nil
}

// List returns the entries matching f.
func (s *Service) List(ctx context.Context, f domain.Filter) ([]domain.Entry, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Matches(f) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Add appends a manually entered entry. Name and host are trimmed and the name must
// be non-empty. Manual entries are trusted and skip duplicate suppression.
func (s *Service) Add(ctx context.Context, raw domain.RawEntry) (domain.Entry, error) {
	raw.Name = domain.LooseString(strings.TrimSpace(string(raw.Name)))
	raw.Host = domain.LooseString(strings.TrimSpace(string(raw.Host)))
	if raw.Name == "" {
		return domain.Entry{}, ErrNameRequired
	}

	entry := domain.Normalize(raw)
	entry.ID = s.newID()

	entries := s.store.Load(ctx)
	assignIDs(entries, s.freshID)
	entries = append(entries, entry)
	if err := s.save(ctx, entries); err != nil {
		return domain.Entry{}, err
	}

	s.metrics.Added(1)
	s.logger.Info("entry added",
		logger.String("id", entry.ID),
		logger.String("name", entry.Name),
		logger.String("kind", string(entry.Kind)))
	return entry, nil
}

// Merge reconciles incoming into the registry under mode and persists the result.
// Appended entries get fresh ids unless they bring one that is not yet taken.
func (s *Service) Merge(ctx context.Context, incoming []domain.Entry, mode merge.Mode) (merge.Result, error) {
	existing := s.store.Load(ctx)
	res := merge.Apply(mode, existing, incoming)
	assigned := assignIDs(res.Entries, s.freshID)

	if res.Added > 0 || res.Refreshed > 0 || assigned > 0 {
		if err := s.save(ctx, res.Entries); err != nil {
			return merge.Result{}, err
		}
	}

	s.metrics.Merge(string(mode), res.Added)
	s.logger.Info("merge applied",
		logger.String("mode", string(mode)),
		logger.Int("incoming", len(incoming)),
		logger.Int("added", res.Added),
		logger.Int("refreshed", res.Refreshed),
		logger.Int("skipped", res.Skipped),
		logger.Int("total", len(res.Entries)))
	return res, nil
}

// Toggle advances the status of the entry with the given id (or unique id prefix)
// one step through running, stopped, unknown.
func (s *Service) Toggle(ctx context.Context, id string) (domain.Entry, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return domain.Entry{}, err
	}
	idx, err := find(entries, id)
	if err != nil {
		return domain.Entry{}, err
	}

	entries[idx].Status = entries[idx].Status.Next()
	if err := s.save(ctx, entries); err != nil {
		return domain.Entry{}, err
	}
	s.logger.Info("entry status toggled",
		logger.String("id", entries[idx].ID),
		logger.String("status", string(entries[idx].Status)))
	return entries[idx], nil
}

// Remove deletes the entry with the given id (or unique id prefix).
func (s *Service) Remove(ctx context.Context, id string) (domain.Entry, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return domain.Entry{}, err
	}
	idx, err := find(entries, id)
	if err != nil {
		return domain.Entry{}, err
	}

	removed := entries[idx]
	entries = append(entries[:idx], entries[idx+1:]...)
	if err := s.save(ctx, entries); err != nil {
		return domain.Entry{}, err
	}
	s.logger.Info("entry removed",
		logger.String("id", removed.ID),
		logger.String("name", removed.Name))
	return removed, nil
}

func (s *Service) save(ctx context.Context, entries []domain.Entry) error {
	if err := s.store.Save(ctx, entries); err != nil {
		s.metrics.StoreWriteFailed(s.store.Name())
		return fmt.Errorf("saving registry to %s store: %w", s.store.Name(), err)
	}
	s.metrics.RegistrySize(len(entries))
	return nil
}

func (s *Service) freshID(int, domain.Entry) string { return s.newID() }

// legacyID is a uuid v5 over the identity triple and the position in the registry.
func legacyID(i int, e domain.Entry) string {
	key := e.Name + "\x00" + e.Host + "\x00" + string(e.Kind) + "\x00" + strconv.Itoa(i)
	return uuid.NewSHA1(legacyNamespace, []byte(key)).String()
}

// assignIDs gives an id from gen to every entry that lacks one or repeats an
// earlier entry's id, and returns how many it assigned.
func assignIDs(entries []domain.Entry, gen func(int, domain.Entry) string) int {
	seen := make(map[string]struct{}, len(entries))
	n := 0
	for i := range entries {
		id := entries[i].ID
		_, dup := seen[id]
		if id == "" || dup {
			id = gen(i, entries[i])
			entries[i].ID = id
			n++
		}
		seen[id] = struct{}{}
	}
	return n
}

func find(entries []domain.Entry, id string) (int, error) {
	if id == "" {
		return -1, ErrNotFound
	}
	for i, e := range entries {
		if e.ID == id {
			return i, nil
		}
	}

	match := -1
	for i, e := range entries {
		if !strings.HasPrefix(e.ID, id) {
			continue
		}
		if match >= 0 {
			return -1, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
		}
		match = i
	}
	if match < 0 {
		return -1, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return match, nil
}
