package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Kind classifies a catalogued resource.
type Kind string

const (
	KindContainer      Kind = "container"
	KindVirtualMachine Kind = "virtual-machine"
	KindStack          Kind = "stack"
	KindService        Kind = "service"
	KindShare          Kind = "share"
	KindGameServer     Kind = "game-server"
	KindOther          Kind = "other"
)

// Kinds lists the accepted vocabulary in display order.
var Kinds = []Kind{
	KindContainer,
	KindVirtualMachine,
	KindStack,
	KindService,
	KindShare,
	KindGameServer,
	KindOther,
}

// kindAliases maps the labels older dashboards wrote into the canonical vocabulary.
var kindAliases = map[string]Kind{
	"vm":        KindVirtualMachine,
	"smb":       KindShare,
	"minecraft": KindGameServer,
	"web":       KindService,
	"anders":    KindOther,
}

// ParseKind returns the canonical kind for s. Unknown values map to KindOther.
func ParseKind(s string) Kind {
	for _, k := range Kinds {
		if s == string(k) {
			return k
		}
	}
	if k, ok := kindAliases[s]; ok {
		return k
	}
	return KindOther
}

// Status is the last known run state of an entry.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusUnknown Status = "unknown"
)

// ParseStatus returns the canonical status for s. Anything else is StatusUnknown.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusRunning, StatusStopped:
		return Status(s)
	default:
		return StatusUnknown
	}
}

// Next cycles running -> stopped -> unknown -> running.
func (s Status) Next() Status {
	switch s {
	case StatusRunning:
		return StatusStopped
	case StatusStopped:
		return StatusUnknown
	default:
		return StatusRunning
	}
}

// Entry is the canonical record of one self-hosted resource.
//
// Entries are only ever built through Normalize (or Entry.Normalized), so every
// field holds a valid value. ID is assigned by the registry when an entry is first
// stored and takes no part in deduplication.
type Entry struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Host    string `json:"host"`
	Kind    Kind   `json:"type"`
	Status  Status `json:"status"`
	Users   string `json:"users"`
	Folders string `json:"folders"`
	Ports   string `json:"ports"`
	Note    string `json:"note"`
}

// Identity is the (name, host, kind) triple used to detect duplicates across agents.
// Comparison is exact: case-sensitive and whitespace-preserving.
type Identity struct {
	Name string
	Host string
	Kind Kind
}

// Identity returns the deduplication key of e. A missing kind counts as KindOther.
func (e Entry) Identity() Identity {
	kind := e.Kind
	if kind == "" {
		kind = KindOther
	}
	return Identity{Name: e.Name, Host: e.Host, Kind: kind}
}

// Normalized coerces kind and status into the fixed vocabularies.
func (e Entry) Normalized() Entry {
	e.Kind = ParseKind(string(e.Kind))
	e.Status = ParseStatus(string(e.Status))
	return e
}

// RawEntry is an entry as it arrives from an untrusted source: a form, a file,
// a network payload. Every field is optional and tolerant of the wrong JSON type.
type RawEntry struct {
	ID      LooseString `json:"id"`
	Name    LooseString `json:"name"`
	Host    LooseString `json:"host"`
	Type    LooseString `json:"type"`
	Kind    LooseString `json:"kind"`
	Status  LooseString `json:"status"`
	Users   LooseString `json:"users"`
	Folders LooseString `json:"folders"`
	Ports   LooseString `json:"ports"`
	Note    LooseString `json:"note"`
}

// Normalize turns any raw input into a structurally valid Entry. It never fails
// and trims nothing: callers trim what they want trimmed before calling it.
func Normalize(raw RawEntry) Entry {
	kind := raw.Type
	if kind == "" {
		kind = raw.Kind
	}
	return Entry{
		ID:      string(raw.ID),
		Name:    string(raw.Name),
		Host:    string(raw.Host),
		Kind:    ParseKind(string(kind)),
		Status:  ParseStatus(string(raw.Status)),
		Users:   string(raw.Users),
		Folders: string(raw.Folders),
		Ports:   string(raw.Ports),
		Note:    string(raw.Note),
	}
}

// Raw converts an entry back into its raw form.
func (e Entry) Raw() RawEntry {
	return RawEntry{
		ID:      LooseString(e.ID),
		Name:    LooseString(e.Name),
		Host:    LooseString(e.Host),
		Type:    LooseString(e.Kind),
		Status:  LooseString(e.Status),
		Users:   LooseString(e.Users),
		Folders: LooseString(e.Folders),
		Ports:   LooseString(e.Ports),
		Note:    LooseString(e.Note),
	}
}

// LooseString decodes any JSON scalar into a string. Numbers and booleans keep
// their literal text; null, objects and arrays become the empty string.
type LooseString string

// UnmarshalJSON implements json.Unmarshaler and never returns an error for
// well-formed JSON.
func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			*s = ""
			return nil
		}
		*s = LooseString(v)
	case '{', '[', 'n':
		*s = ""
	default:
		*s = LooseString(data)
	}
	return nil
}

// Filter selects entries for listing. Empty fields match everything.
type Filter struct {
	Kind   string
	Status string
	Search string
}

// Matches reports whether e passes f. Search is a case-insensitive substring
// match against every field.
func (e Entry) Matches(f Filter) bool {
	if f.Kind != "" && e.Kind != ParseKind(f.Kind) {
		return false
	}
	if f.Status != "" && string(e.Status) != f.Status {
		return false
	}
	if f.Search == "" {
		return true
	}
	term := strings.ToLower(f.Search)
	for _, v := range []string{e.Name, e.Host, string(e.Kind), string(e.Status), e.Users, e.Folders, e.Ports, e.Note} {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}
