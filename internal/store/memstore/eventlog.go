// internal/store/memstore/eventlog.go
package memstore

import (
	"context"
	"time"

	"eventrental/pkg/eventstore"

	"github.com/google/uuid"
)

// EventLog is the in-memory counterpart of eventstore.EventStore.
type EventLog struct {
	s *Store
}

func currentVersion(st *state, aggregateID uuid.UUID) int {
	version := 0
	for _, e := range st.log {
		if e.AggregateID == aggregateID && e.Version > version {
			version = e.Version
		}
	}
	return version
}

func (l *EventLog) AppendEvents(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, evts []eventstore.Event) error {
	if expectedVersion < 0 {
		return eventstore.ErrInvalidVersion
	}
	return l.s.do(ctx, func(st *state) error {
		if currentVersion(st, aggregateID) != expectedVersion {
			return eventstore.ErrConcurrencyConflict
		}
		for i, e := range evts {
			e.ID = int64(len(st.log) + 1)
			e.AggregateID = aggregateID
			e.AggregateType = aggregateType
			e.Version = expectedVersion + i + 1
			e.CreatedAt = time.Now().UTC()
			st.log = append(st.log, e)
		}
		return nil
	})
}

func (l *EventLog) LoadEvents(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]eventstore.Event, error) {
	var out []eventstore.Event
	err := l.s.do(ctx, func(st *state) error {
		for _, e := range st.log {
			if e.AggregateID != aggregateID || e.Version < fromVersion {
				continue
			}
			if toVersion > 0 && e.Version > toVersion {
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

func (l *EventLog) GetCurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	var version int
	err := l.s.do(ctx, func(st *state) error {
		version = currentVersion(st, aggregateID)
		return nil
	})
	return version, err
}

func (l *EventLog) StreamEvents(ctx context.Context, fromID int64, batchSize int) ([]eventstore.Event, error) {
	var out []eventstore.Event
	err := l.s.do(ctx, func(st *state) error {
		for _, e := range st.log {
			if e.ID <= fromID {
				continue
			}
			out = append(out, e)
			if len(out) == batchSize {
				break
			}
		}
		return nil
	})
	return out, err
}

// Offsets persists relay cursors in memory.
type Offsets struct {
	s *Store
}

func (o *Offsets) Load(ctx context.Context, name string) (int64, error) {
	var id int64
	err := o.s.do(ctx, func(st *state) error {
		id = st.offsets[name]
		return nil
	})
	return id, err
}

func (o *Offsets) Save(ctx context.Context, name string, lastID int64) error {
	return o.s.do(ctx, func(st *state) error {
		st.offsets[name] = lastID
		return nil
	})
}
