package domain

import (
	"encoding/json"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Kind
	}{
		{name: "canonical container", input: "container", want: KindContainer},
		{name: "canonical vm", input: "virtual-machine", want: KindVirtualMachine},
		{name: "legacy vm alias", input: "vm", want: KindVirtualMachine},
		{name: "legacy smb alias", input: "smb", want: KindShare},
		{name: "legacy minecraft alias", input: "minecraft", want: KindGameServer},
		{name: "legacy web alias", input: "web", want: KindService},
		{name: "legacy anders alias", input: "anders", want: KindOther},
		{name: "empty", input: "", want: KindOther},
		{name: "unknown", input: "toaster", want: KindOther},
		{name: "case sensitive", input: "Container", want: KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseKind(tt.input); got != tt.want {
				t.Errorf("ParseKind(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input string
		want  Status
	}{
		{input: "running", want: StatusRunning},
		{input: "stopped", want: StatusStopped},
		{input: "unknown", want: StatusUnknown},
		{input: "", want: StatusUnknown},
		{input: "paused", want: StatusUnknown},
	}

	for _, tt := range tests {
		if got := ParseStatus(tt.input); got != tt.want {
			t.Errorf("ParseStatus(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestStatusNextCycle(t *testing.T) {
	s := StatusRunning
	for i := 0; i < 3; i++ {
		s = s.Next()
	}
	if s != StatusRunning {
		t.Errorf("three toggles from running = %v, want running", s)
	}

	if got := StatusRunning.Next(); got != StatusStopped {
		t.Errorf("running.Next() = %v, want stopped", got)
	}
	if got := StatusStopped.Next(); got != StatusUnknown {
		t.Errorf("stopped.Next() = %v, want unknown", got)
	}
	if got := StatusUnknown.Next(); got != StatusRunning {
		t.Errorf("unknown.Next() = %v, want running", got)
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	got := Normalize(RawEntry{Name: "Plex"})
	want := Entry{Name: "Plex", Kind: KindOther, Status: StatusUnknown}
	if got != want {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestNormalizeDoesNotTrim(t *testing.T) {
	got := Normalize(RawEntry{Name: "  Plex ", Host: " nas"})
	if got.Name != "  Plex " || got.Host != " nas" {
		t.Errorf("Normalize() trimmed fields: %+v", got)
	}
}

func TestNormalizeKindFallback(t *testing.T) {
	got := Normalize(RawEntry{Name: "x", Kind: "share"})
	if got.Kind != KindShare {
		t.Errorf("kind field fallback = %v, want share", got.Kind)
	}

	got = Normalize(RawEntry{Name: "x", Type: "stack", Kind: "share"})
	if got.Kind != KindStack {
		t.Errorf("type field should win over kind, got %v", got.Kind)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	e := Normalize(RawEntry{Name: "Grafana", Host: "10.0.0.5", Type: "container", Status: "running", Note: "img"})
	if again := Normalize(e.Raw()); again != e {
		t.Errorf("Normalize(Raw()) = %+v, want %+v", again, e)
	}
	if again := e.Normalized(); again != e {
		t.Errorf("Normalized() = %+v, want %+v", again, e)
	}
}

func TestRawEntryTolerantDecoding(t *testing.T) {
	input := `{"name": 42, "host": null, "type": ["vm"], "status": true, "ports": {"a": 1}, "note": "ok"}`

	var raw RawEntry
	if err := json.Unmarshal([]byte(input), &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	got := Normalize(raw)
	want := Entry{Name: "42", Kind: KindOther, Status: StatusUnknown, Note: "ok"}
	if got != want {
		t.Errorf("Normalize(tolerant) = %+v, want %+v", got, want)
	}
}

func TestIdentity(t *testing.T) {
	a := Entry{Name: "Plex", Host: "nas", Kind: KindService}
	b := Entry{Name: "Plex", Host: "nas", Kind: KindService, Note: "other fields ignored", ID: "x"}
	if a.Identity() != b.Identity() {
		t.Error("identity should ignore non-key fields")
	}

	c := Entry{Name: "plex", Host: "nas", Kind: KindService}
	if a.Identity() == c.Identity() {
		t.Error("identity should be case-sensitive")
	}

	legacy := Entry{Name: "Plex"}
	if legacy.Identity().Kind != KindOther {
		t.Errorf("missing kind should count as other, got %v", legacy.Identity().Kind)
	}
}

func TestEntryMatches(t *testing.T) {
	e := Entry{Name: "Jellyfin", Host: "media.lan", Kind: KindContainer, Status: StatusRunning, Ports: "8096"}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "empty filter", filter: Filter{}, want: true},
		{name: "kind match", filter: Filter{Kind: "container"}, want: true},
		{name: "kind mismatch", filter: Filter{Kind: "share"}, want: false},
		{name: "status match", filter: Filter{Status: "running"}, want: true},
		{name: "status mismatch", filter: Filter{Status: "stopped"}, want: false},
		{name: "search name case-insensitive", filter: Filter{Search: "JELLY"}, want: true},
		{name: "search ports", filter: Filter{Search: "8096"}, want: true},
		{name: "search miss", filter: Filter{Search: "plex"}, want: false},
		{name: "combined", filter: Filter{Kind: "container", Status: "running", Search: "media"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Matches(tt.filter); got != tt.want {
				t.Errorf("Matches(%+v) = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}
