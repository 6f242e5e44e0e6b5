// Package store defines the persistence contract for the registry.
//
// A Store holds one ordered sequence of entries and replaces it wholesale on every
// Save. There is no locking: across processes the last completed Save wins, but a
// reader never observes a half-written registry.
package store

import (
	"context"
	"encoding/json"

	"github.com/MrSnakeDoc/outpost/internal/domain"
)

// Store is implemented by every backend (file, redis, memory).
type Store interface {
	// Load returns the persisted entries. A missing or unreadable backing medium
	// yields an empty slice; the failure is reported through the backend's logger
	// and metrics, never to the caller.
	Load(ctx context.Context) []domain.Entry
	// Save atomically replaces the persisted entries.
	Save(ctx context.Context, entries []domain.Entry) error
	// Name identifies the backend in logs and metrics.
	Name() string
}

// Decode parses a persisted registry and normalizes every record so that data
// written by older versions (legacy kinds, missing fields) reads back canonical.
func Decode(data []byte) ([]domain.Entry, error) {
	var raws []domain.RawEntry
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}
	entries := make([]domain.Entry, 0, len(raws))
	for _, r := range raws {
		entries = append(entries, domain.Normalize(r))
	}
	return entries, nil
}

// Encode renders entries in the persisted layout: a plain JSON array.
func Encode(entries []domain.Entry) ([]byte, error) {
	if entries == nil {
		entries = []domain.Entry{}
	}
	return json.MarshalIndent(entries, "", "  ")
}
