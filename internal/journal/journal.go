// internal/journal/journal.go

// Package journal records every domain mutation as an ordered, invertible
// delta and persists store snapshots between runs.
//
// Entries are grouped into streams ("visitor/1000000001", "book/9780441013593").
// Versions inside a stream start at 1 and have no gaps.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

// namespace derives stable stream UUIDs from stream names.
var namespace = uuid.MustParse("5b7f1c1e-8a0e-4c8e-9a53-0d1f6f1e2a10")

// StreamID maps a stream name to its UUID.
func StreamID(stream string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(stream))
}

// Entry is one mutation: the state of the affected record before and after.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	StreamID   uuid.UUID       `json:"stream_id"`
	Stream     string          `json:"stream"`
	Operation  string          `json:"operation"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	Version    int             `json:"version"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Journal is an append-only log of entries.
type Journal interface {
	// Append adds entries to stream when its current version equals
	// expectedVersion, otherwise it fails with ErrConcurrencyConflict.
	Append(ctx context.Context, stream string, expectedVersion int, entries ...Entry) error
	Load(ctx context.Context, stream string) ([]Entry, error)
	Version(ctx context.Context, stream string) (int, error)
}

// Snapshots stores the serialized state of whole stores.
type Snapshots interface {
	SaveSnapshot(ctx context.Context, name string, state any) error
	// LoadSnapshot decodes the named snapshot into into. It reports false
	// when no snapshot exists.
	LoadSnapshot(ctx context.Context, name string, into any) (bool, error)
}

// Record appends a single delta at the stream's current version.
func Record(ctx context.Context, j Journal, stream, operation string, before, after any, at time.Time) error {
	beforeJSON, err := marshalOptional(before)
	if err != nil {
		return fmt.Errorf("marshal before state: %w", err)
	}
	afterJSON, err := marshalOptional(after)
	if err != nil {
		return fmt.Errorf("marshal after state: %w", err)
	}

	entry := Entry{
		Operation:  operation,
		Before:     beforeJSON,
		After:      afterJSON,
		RecordedAt: at,
	}
	for attempt := 1; ; attempt++ {
		version, err := j.Version(ctx, stream)
		if err != nil {
			return fmt.Errorf("read version of %s: %w", stream, err)
		}
		err = j.Append(ctx, stream, version, entry)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConcurrencyConflict) || attempt == recordAttempts {
			return fmt.Errorf("append %s to %s: %w", operation, stream, err)
		}
	}
}

// recordAttempts bounds how often Record re-reads the version after losing
// a race on the same stream.
const recordAttempts = 3

func marshalOptional(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Memory keeps the journal and snapshots in process memory.
type Memory struct {
	mu        sync.RWMutex
	streams   map[string][]Entry
	snapshots map[string][]byte
}

var (
	_ Journal   = (*Memory)(nil)
	_ Snapshots = (*Memory)(nil)
)

// NewMemory creates an empty in-memory journal.
func NewMemory() *Memory {
	return &Memory{
		streams:   make(map[string][]Entry),
		snapshots: make(map[string][]byte),
	}
}

func (m *Memory) Append(_ context.Context, stream string, expectedVersion int, entries ...Entry) error {
	if expectedVersion < 0 {
		return ErrInvalidVersion
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current := len(m.streams[stream])
	if current != expectedVersion {
		return ErrConcurrencyConflict
	}
	for i, e := range entries {
		e.ID = uuid.New()
		e.StreamID = StreamID(stream)
		e.Stream = stream
		e.Version = expectedVersion + i + 1
		if e.RecordedAt.IsZero() {
			e.RecordedAt = time.Now().UTC()
		}
		m.streams[stream] = append(m.streams[stream], e)
	}
	return nil
}

func (m *Memory) Load(_ context.Context, stream string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Entry(nil), m.streams[stream]...), nil
}

func (m *Memory) Version(_ context.Context, stream string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.streams[stream]), nil
}

// Streams lists stream names in sorted order.
func (m *Memory) Streams() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.streams))
	for name := range m.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Memory) SaveSnapshot(_ context.Context, name string, state any) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", name, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[name] = data
	return nil
}

func (m *Memory) LoadSnapshot(_ context.Context, name string, into any) (bool, error) {
	m.mu.RLock()
	data, ok := m.snapshots[name]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, into); err != nil {
		return false, fmt.Errorf("unmarshal snapshot %s: %w", name, err)
	}
	return true, nil
}
