// internal/journal/postgres.go
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Schema creates the tables used by Postgres.
const Schema = `
CREATE TABLE IF NOT EXISTS journal_entries (
	id UUID PRIMARY KEY,
	stream_id UUID NOT NULL,
	stream TEXT NOT NULL,
	operation TEXT NOT NULL,
	before_state JSONB,
	after_state JSONB,
	version INT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	UNIQUE (stream_id, version)
);
CREATE TABLE IF NOT EXISTS journal_snapshots (
	name TEXT PRIMARY KEY,
	state JSONB NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Postgres stores the journal and snapshots in PostgreSQL.
type Postgres struct {
	db     *sql.DB
	tracer trace.Tracer
}

var (
	_ Journal   = (*Postgres)(nil)
	_ Snapshots = (*Postgres)(nil)
)

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db:     db,
		tracer: otel.Tracer("frontdesk/journal"),
	}
}

// Migrate creates the journal tables if they are missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

// Append inserts entries atomically with optimistic concurrency control.
func (p *Postgres) Append(ctx context.Context, stream string, expectedVersion int, entries ...Entry) error {
	if expectedVersion < 0 {
		return ErrInvalidVersion
	}
	streamID := StreamID(stream)

	ctx, span := p.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.String("stream", stream),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("entry.count", len(entries)),
		),
	)
	defer span.End()

	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0)
		FROM journal_entries
		WHERE stream_id = $1
	`, streamID).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("query current version: %w", err)
	}

	if current != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", current),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO journal_entries (id, stream_id, stream, operation, before_state, after_state, version, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		version := expectedVersion + i + 1
		recordedAt := e.RecordedAt
		if recordedAt.IsZero() {
			recordedAt = time.Now().UTC()
		}
		_, err := stmt.ExecContext(ctx,
			uuid.New(),
			streamID,
			stream,
			e.Operation,
			nullJSON(e.Before),
			nullJSON(e.After),
			version,
			recordedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return ErrConcurrencyConflict
			}
			return fmt.Errorf("insert entry %d: %w", i, err)
		}
		span.AddEvent("entry.appended", trace.WithAttributes(
			attribute.Int("entry.version", version),
			attribute.String("entry.operation", e.Operation),
		))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Load returns a stream's entries in version order.
func (p *Postgres) Load(ctx context.Context, stream string) ([]Entry, error) {
	ctx, span := p.tracer.Start(ctx, "journal.load",
		trace.WithAttributes(attribute.String("stream", stream)),
	)
	defer span.End()

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, stream_id, stream, operation, before_state, after_state, version, recorded_at
		FROM journal_entries
		WHERE stream_id = $1
		ORDER BY version ASC
	`, StreamID(stream))
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e             Entry
			before, after []byte
		)
		if err := rows.Scan(&e.ID, &e.StreamID, &e.Stream, &e.Operation, &before, &after, &e.Version, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Before, e.After = before, after
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	span.SetAttributes(attribute.Int("entries.loaded", len(entries)))
	return entries, nil
}

// Version returns the latest version of a stream, 0 when empty.
func (p *Postgres) Version(ctx context.Context, stream string) (int, error) {
	ctx, span := p.tracer.Start(ctx, "journal.version",
		trace.WithAttributes(attribute.String("stream", stream)),
	)
	defer span.End()

	var version int
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0)
		FROM journal_entries
		WHERE stream_id = $1
	`, StreamID(stream)).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("query version: %w", err)
	}
	return version, nil
}

// SaveSnapshot upserts the named snapshot.
func (p *Postgres) SaveSnapshot(ctx context.Context, name string, state any) error {
	ctx, span := p.tracer.Start(ctx, "journal.save_snapshot",
		trace.WithAttributes(attribute.String("snapshot", name)),
	)
	defer span.End()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", name, err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO journal_snapshots (name, state, saved_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET state = EXCLUDED.state,
		    saved_at = EXCLUDED.saved_at
	`, name, data, time.Now().UTC())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}
	return nil
}

// LoadSnapshot reads the named snapshot.
func (p *Postgres) LoadSnapshot(ctx context.Context, name string, into any) (bool, error) {
	ctx, span := p.tracer.Start(ctx, "journal.load_snapshot",
		trace.WithAttributes(attribute.String("snapshot", name)),
	)
	defer span.End()

	var data []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT state FROM journal_snapshots WHERE name = $1
	`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load snapshot %s: %w", name, err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return false, fmt.Errorf("unmarshal snapshot %s: %w", name, err)
	}
	return true, nil
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
