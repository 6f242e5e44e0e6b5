// Package codec serializes the registry for transfer between instances.
//
// An export is a self-describing JSON envelope:
//
//	{"version":"1.0","exportedAt":"2024-05-01T10:00:00Z","entries":[...]}
//
// Decode also accepts the envelope older dashboards produced, where the array was
// named "standalone", and either form wrapped in standard base64.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MrSnakeDoc/outpost/internal/domain"
)

// Version is written into every export. It is recorded, not checked on import.
const Version = "1.0"

// ErrInvalidPayload is wrapped by every Decode failure.
var ErrInvalidPayload = errors.New("invalid payload")

// Payload is the export envelope.
type Payload struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exportedAt"`
	Entries    []domain.Entry `json:"entries"`
}

// Export builds the envelope for entries at time now.
func Export(entries []domain.Entry, now time.Time) Payload {
	if entries == nil {
		entries = []domain.Entry{}
	}
	return Payload{
		Version:    Version,
		ExportedAt: now.UTC(),
		Entries:    entries,
	}
}

// Encode writes p as indented JSON followed by a newline.
func Encode(w io.Writer, p Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	return nil
}

// EncodeBase64 writes p as a single base64 line.
func EncodeBase64(w io.Writer, p Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	if _, err := io.WriteString(w, base64.StdEncoding.EncodeToString(data)+"\n"); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}

// envelope is the decoding view of a payload. Both array fields are optional here;
// Decode enforces that one of them is present.
type envelope struct {
	Version    string          `json:"version"`
	Entries    json.RawMessage `json:"entries"`
	Standalone json.RawMessage `json:"standalone"`
}

// Decoded is the result of a successful Decode.
type Decoded struct {
	Version string
	Entries []domain.Entry
}

// Decode reads a payload and returns its normalized entries.
func Decode(r io.Reader) (Decoded, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return DecodeBytes(data)
}

// DecodeBytes is Decode over an in-memory payload.
func DecodeBytes(data []byte) (Decoded, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Decoded{}, fmt.Errorf("%w: empty input", ErrInvalidPayload)
	}
	if data[0] != '{' {
		decoded, err := unarmor(data)
		if err != nil {
			return Decoded{}, fmt.Errorf("%w: not JSON and not base64", ErrInvalidPayload)
		}
		data = decoded
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	list := env.Entries
	if isAbsent(list) {
		list = env.Standalone
	}
	if isAbsent(list) {
		return Decoded{}, fmt.Errorf("%w: missing entries array", ErrInvalidPayload)
	}

	entries, err := DecodeEntries(list)
	if err != nil {
		return Decoded{}, err
	}
	return Decoded{Version: env.Version, Entries: entries}, nil
}

// DecodeSyncRequest parses the body of a sync push: a JSON object whose "entries"
// field is an array. Unlike DecodeBytes it accepts neither base64 nor the legacy
// field name.
func DecodeSyncRequest(data []byte) ([]domain.Entry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("%w: body must be a JSON object", ErrInvalidPayload)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if isAbsent(env.Entries) {
		return nil, fmt.Errorf("%w: missing entries array", ErrInvalidPayload)
	}
	return DecodeEntries(env.Entries)
}

// DecodeEntries parses a JSON array of raw entries and normalizes each one.
func DecodeEntries(list json.RawMessage) ([]domain.Entry, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(list, &raws); err != nil {
		return nil, fmt.Errorf("%w: entries must be an array", ErrInvalidPayload)
	}
	if raws == nil {
		return nil, fmt.Errorf("%w: entries must be an array", ErrInvalidPayload)
	}

	entries := make([]domain.Entry, 0, len(raws))
	for _, item := range raws {
		var raw domain.RawEntry
		// Non-object items carry nothing usable and normalize to a nameless entry,
		// which the merge skips.
		_ = json.Unmarshal(item, &raw)
		entries = append(entries, domain.Normalize(raw))
	}
	return entries, nil
}

func isAbsent(m json.RawMessage) bool {
	return len(m) == 0 || bytes.Equal(bytes.TrimSpace(m), []byte("null"))
}

func unarmor(data []byte) ([]byte, error) {
	clean := bytes.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, data)

	out, err := base64.StdEncoding.DecodeString(string(clean))
	if err != nil {
		return nil, err
	}
	out = bytes.TrimSpace(out)
	if len(out) == 0 || out[0] != '{' {
		return nil, errors.New("decoded base64 is not a JSON object")
	}
	return out, nil
}
