// internal/messaging/relay.go
package messaging

import (
	"context"
	"fmt"
	"time"

	"eventrental/pkg/eventstore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RelayName identifies the relay cursor in the offset store.
const RelayName = "event-lifecycle"

const defaultBatchSize = 100

// Source streams the append-only modification log.
type Source interface {
	StreamEvents(ctx context.Context, fromID int64, batchSize int) ([]eventstore.Event, error)
}

// OffsetStore remembers the id of the last relayed log entry.
type OffsetStore interface {
	Load(ctx context.Context, name string) (int64, error)
	Save(ctx context.Context, name string, lastID int64) error
}

// Relay forwards new log entries to the publisher on a fixed interval. The
// cursor only moves after a batch was published, so entries are delivered
// at least once.
type Relay struct {
	source    Source
	offsets   OffsetStore
	publisher Publisher
	logger    *zap.Logger
	interval  time.Duration
	batchSize int
	tracer    trace.Tracer
}

func NewRelay(source Source, offsets OffsetStore, publisher Publisher, logger *zap.Logger, interval time.Duration) *Relay {
	return &Relay{
		source:    source,
		offsets:   offsets,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		batchSize: defaultBatchSize,
		tracer:    otel.Tracer("eventrental/messaging"),
	}
}

// Start runs the relay until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("lifecycle relay started", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("lifecycle relay stopped")
			return
		case <-ticker.C:
			if _, err := r.Drain(ctx); err != nil {
				r.logger.Error("relay lifecycle records", zap.Error(err))
			}
		}
	}
}

// Drain publishes batches until the log is caught up and returns the number
// of records published.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := r.relayBatch(ctx)
		total += n
		if err != nil || n < r.batchSize {
			return total, err
		}
	}
}

func (r *Relay) relayBatch(ctx context.Context) (int, error) {
	ctx, span := r.tracer.Start(ctx, "relay.batch")
	defer span.End()

	from, err := r.offsets.Load(ctx, RelayName)
	if err != nil {
		return 0, fmt.Errorf("load relay offset: %w", err)
	}
	entries, err := r.source.StreamEvents(ctx, from, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("stream log from %d: %w", from, err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, toRecord(e))
	}
	if err := r.publisher.Publish(ctx, records); err != nil {
		return 0, err
	}

	last := entries[len(entries)-1].ID
	if err := r.offsets.Save(ctx, RelayName, last); err != nil {
		return 0, fmt.Errorf("save relay offset: %w", err)
	}

	span.SetAttributes(
		attribute.Int("records.published", len(records)),
		attribute.Int64("offset", last),
	)
	r.logger.Debug("lifecycle records published",
		zap.Int("count", len(records)),
		zap.Int64("offset", last))
	return len(records), nil
}

func toRecord(e eventstore.Event) Record {
	rec := Record{
		ID:         e.ID,
		EventID:    e.AggregateID.String(),
		Version:    e.Version,
		Action:     e.EventType,
		Data:       e.EventData,
		OccurredAt: e.CreatedAt,
	}
	if actor, ok := e.Metadata["actor_id"].(string); ok {
		rec.ActorID = actor
	}
	return rec
}
