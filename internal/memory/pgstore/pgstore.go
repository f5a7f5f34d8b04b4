// Package pgstore provides a PostgreSQL implementation of memory.Store.
// Expiry is enforced in every read, so even before an explicit cleanup pass
// expired entries are never visible.
package pgstore

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/concierge/internal/memory"
)

var tracer = otel.Tracer("github.com/linnemanlabs/concierge/internal/memory/pgstore")

//go:embed schema.sql
var schema string

// Store persists conversation entries in PostgreSQL.
type Store struct {
	pool      *pgxpool.Pool
	retention time.Duration
}

// New applies the schema and returns a ready Store using the given pool.
func New(ctx context.Context, pool *pgxpool.Pool, retention time.Duration) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool, retention: retention}, nil
}

// Add inserts an entry, filling generated fields when unset.
func (s *Store) Add(ctx context.Context, e memory.Entry) (memory.Entry, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Add", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	e = memory.Normalize(e, s.retention)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversation_log (msg_id, user_id, ts, expires_at, user_text, assistant_text, intent, confidence, action)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.UserID, e.Timestamp, e.ExpiresAt, e.UserText, e.AssistantText, e.Intent, e.Confidence, e.Action,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return memory.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return e, nil
}

// Recent returns up to limit unexpired entries for the user, newest first.
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]memory.Entry, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Recent", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	if limit <= 0 {
		limit = 5
	}

	rows, err := s.pool.Query(ctx,
		`SELECT msg_id, user_id, ts, expires_at, user_text, assistant_text, intent, confidence, action
		 FROM conversation_log
		 WHERE user_id = $1 AND expires_at > now()
		 ORDER BY ts DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []memory.Entry
	for rows.Next() {
		var e memory.Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Timestamp, &e.ExpiresAt,
			&e.UserText, &e.AssistantText, &e.Intent, &e.Confidence, &e.Action); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

// Cleanup deletes entries whose expiry is at or before now. A single DELETE
// is atomic to readers, so no query observes a partial purge.
func (s *Store) Cleanup(ctx context.Context, now time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Cleanup", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "DELETE"),
	))
	defer span.End()

	tag, err := s.pool.Exec(ctx, `DELETE FROM conversation_log WHERE expires_at <= $1`, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
