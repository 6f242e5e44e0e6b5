// Package merge reconciles an existing entry set with an incoming one.
//
// The default policy keeps existing entries untouched: an incoming entry whose
// (name, host, kind) identity is already present is discarded, even when its other
// fields differ. Re-discovery therefore never updates a stored record. Callers that
// want incoming data to win must ask for Refresh explicitly.
package merge

import "github.com/MrSnakeDoc/outpost/internal/domain"

// Mode selects the collision policy.
type Mode string

const (
	// ModeKeep discards incoming entries whose identity already exists.
	ModeKeep Mode = "keep"
	// ModeRefresh overwrites the descriptive fields of the existing entry.
	ModeRefresh Mode = "refresh"
)

// ParseMode maps a user-supplied mode name to a Mode. Anything but "refresh" is ModeKeep.
func ParseMode(s string) Mode {
	if s == string(ModeRefresh) {
		return ModeRefresh
	}
	return ModeKeep
}

// Result carries the merged set and what happened to the incoming entries.
type Result struct {
	Entries   []domain.Entry
	Added     int
	Skipped   int // empty name or identity collision under ModeKeep
	Refreshed int
}

// Merge returns existing followed by every incoming entry whose identity is not
// yet present, normalized. existing is never modified.
func Merge(existing, incoming []domain.Entry) []domain.Entry {
	return Apply(ModeKeep, existing, incoming).Entries
}

// Refresh is Merge, except that on identity collision the existing entry takes the
// incoming status, users, folders, ports and note. Its ID and position are kept.
func Refresh(existing, incoming []domain.Entry) []domain.Entry {
	return Apply(ModeRefresh, existing, incoming).Entries
}

// Apply merges incoming into existing under mode and reports counts.
func Apply(mode Mode, existing, incoming []domain.Entry) Result {
	out := make([]domain.Entry, len(existing), len(existing)+len(incoming))
	copy(out, existing)

	// First occurrence wins when existing already holds duplicates.
	seen := make(map[domain.Identity]int, len(out)+len(incoming))
	for i, e := range out {
		if _, ok := seen[e.Identity()]; !ok {
			seen[e.Identity()] = i
		}
	}

	res := Result{}
	for _, in := range incoming {
		if in.Name == "" {
			res.Skipped++
			continue
		}
		n := in.Normalized()
		idx, found := seen[n.Identity()]
		if !found {
			seen[n.Identity()] = len(out)
			out = append(out, n)
			res.Added++
			continue
		}
		if mode != ModeRefresh {
			res.Skipped++
			continue
		}
		cur := out[idx]
		cur.Status = n.Status
		cur.Users = n.Users
		cur.Folders = n.Folders
		cur.Ports = n.Ports
		cur.Note = n.Note
		if cur == out[idx] {
			res.Skipped++
			continue
		}
		out[idx] = cur
		res.Refreshed++
	}

	res.Entries = out
	return res
}
