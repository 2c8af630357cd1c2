// Package eventstore keeps append-only, per-aggregate streams in the
// domain_events table with optimistic versioning.
package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

// Event is one appended record of an aggregate's stream.
type Event struct {
	ID            int64                  `json:"id"`
	AggregateID   uuid.UUID              `json:"aggregate_id"`
	AggregateType string                 `json:"aggregate_type"`
	EventType     string                 `json:"event_type"`
	EventData     json.RawMessage        `json:"event_data"`
	Metadata      map[string]interface{} `json:"metadata"`
	Version       int                    `json:"version"`
	CreatedAt     time.Time              `json:"created_at"`
}

// eventRow is the table shape of Event.
type eventRow struct {
	ID            int64     `db:"id"`
	AggregateID   uuid.UUID `db:"aggregate_id"`
	AggregateType string    `db:"aggregate_type"`
	EventType     string    `db:"event_type"`
	EventData     []byte    `db:"event_data"`
	Metadata      []byte    `db:"metadata"`
	Version       int       `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r eventRow) event() (Event, error) {
	e := Event{
		ID:            r.ID,
		AggregateID:   r.AggregateID,
		AggregateType: r.AggregateType,
		EventType:     r.EventType,
		EventData:     json.RawMessage(r.EventData),
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &e.Metadata); err != nil {
			return Event{}, fmt.Errorf("decode metadata of event %d: %w", r.ID, err)
		}
	}
	return e, nil
}

const selectFromEvents = `SELECT id, aggregate_id, aggregate_type, event_type, event_data, metadata, version, created_at FROM domain_events`

// Querier resolves the handle statements run on. Implementations return
// the caller's open transaction when ctx carries one.
type Querier interface {
	Ext(ctx context.Context) sqlx.ExtContext
}

// EventStore reads and appends streams through a Querier.
type EventStore struct {
	q      Querier
	tracer trace.Tracer
}

func NewEventStore(q Querier) *EventStore {
	return &EventStore{q: q, tracer: otel.Tracer("eventrental/eventstore")}
}

// AppendEvents appends events after expectedVersion. The append joins the
// transaction carried by ctx; without one it runs in its own serializable
// transaction.
func (es *EventStore) AppendEvents(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []Event) error {
	ctx, span := es.tracer.Start(ctx, "eventstore.append", trace.WithAttributes(
		attribute.String("aggregate.id", aggregateID.String()),
		attribute.String("aggregate.type", aggregateType),
		attribute.Int("expected.version", expectedVersion),
		attribute.Int("event.count", len(events)),
	))
	defer span.End()

	if expectedVersion < 0 {
		return ErrInvalidVersion
	}

	db, standalone := es.q.Ext(ctx).(*sqlx.DB)
	if !standalone {
		return es.append(ctx, span, es.q.Ext(ctx), aggregateID, aggregateType, expectedVersion, events)
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()
	if err := es.append(ctx, span, tx, aggregateID, aggregateType, expectedVersion, events); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

func (es *EventStore) append(ctx context.Context, span trace.Span, ext sqlx.ExtContext, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []Event) error {
	current, err := currentVersion(ctx, ext, aggregateID)
	if err != nil {
		return err
	}
	if current != expectedVersion {
		span.SetAttributes(attribute.Int("actual.version", current))
		return ErrConcurrencyConflict
	}

	now := time.Now().UTC()
	for i, e := range events {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata of %s: %w", e.EventType, err)
		}
		row := eventRow{
			AggregateID:   aggregateID,
			AggregateType: aggregateType,
			EventType:     e.EventType,
			EventData:     e.EventData,
			Metadata:      meta,
			Version:       expectedVersion + i + 1,
			CreatedAt:     now,
		}

		err = sqlx.GetContext(ctx, ext, &row.ID, `
			INSERT INTO domain_events (aggregate_id, aggregate_type, event_type, event_data, metadata, version, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			row.AggregateID, row.AggregateType, row.EventType, row.EventData, row.Metadata, row.Version, row.CreatedAt)
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrConcurrencyConflict
		}
		if err != nil {
			return fmt.Errorf("insert %s v%d: %w", e.EventType, row.Version, err)
		}
		span.AddEvent("appended", trace.WithAttributes(
			attribute.Int64("id", row.ID),
			attribute.Int("version", row.Version),
		))
	}
	return nil
}

func currentVersion(ctx context.Context, ext sqlx.ExtContext, aggregateID uuid.UUID) (int, error) {
	var version int
	err := sqlx.GetContext(ctx, ext, &version,
		`SELECT COALESCE(MAX(version), 0) FROM domain_events WHERE aggregate_id = $1`, aggregateID)
	if err != nil {
		return 0, fmt.Errorf("read version of %s: %w", aggregateID, err)
	}
	return version, nil
}

// LoadEvents returns the stream of an aggregate from fromVersion on. A
// toVersion of zero leaves the range open.
func (es *EventStore) LoadEvents(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]Event, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.load", trace.WithAttributes(
		attribute.String("aggregate.id", aggregateID.String()),
		attribute.Int("from.version", fromVersion),
	))
	defer span.End()

	if toVersion <= 0 {
		return es.selectEvents(ctx, selectFromEvents+` WHERE aggregate_id = $1 AND version >= $2 ORDER BY version`,
			aggregateID, fromVersion)
	}
	return es.selectEvents(ctx, selectFromEvents+` WHERE aggregate_id = $1 AND version BETWEEN $2 AND $3 ORDER BY version`,
		aggregateID, fromVersion, toVersion)
}

// GetCurrentVersion returns the latest version of an aggregate, zero if it
// has no events.
func (es *EventStore) GetCurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.version")
	defer span.End()
	return currentVersion(ctx, es.q.Ext(ctx), aggregateID)
}

// StreamEvents pages through every aggregate in append order, returning up
// to batchSize events with an id above fromID.
func (es *EventStore) StreamEvents(ctx context.Context, fromID int64, batchSize int) ([]Event, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.stream", trace.WithAttributes(
		attribute.Int64("from.id", fromID),
		attribute.Int("batch.size", batchSize),
	))
	defer span.End()

	return es.selectEvents(ctx, selectFromEvents+` WHERE id > $1 ORDER BY id LIMIT $2`, fromID, batchSize)
}

func (es *EventStore) selectEvents(ctx context.Context, query string, args ...interface{}) ([]Event, error) {
	var rows []eventRow
	if err := sqlx.SelectContext(ctx, es.q.Ext(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	events := make([]Event, 0, len(rows))
	for _, r := range rows {
		e, err := r.event()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("events.read", len(events)))
	return events, nil
}
