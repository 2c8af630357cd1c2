// Package audit keeps the modification history of events as an append-only
// stream per event.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eventrental/internal/apperr"
	"eventrental/pkg/eventstore"

	"github.com/google/uuid"
)

// AggregateType tags every stream written by this package.
const AggregateType = "event"

// Action names what happened to an event.
type Action string

const (
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionStatusChange Action = "status_change"
	ActionAddItem      Action = "add_item"
	ActionAddEmployee  Action = "add_employee"
	ActionDelete       Action = "delete"
	ActionReturn       Action = "return"
	ActionReturnUpdate Action = "return_update"
)

// Modification is one entry of an event's history.
type Modification struct {
	Version   int             `json:"version"`
	Action    Action          `json:"actionType"`
	ActorID   uuid.UUID       `json:"adminId"`
	Details   json.RawMessage `json:"modificationDetails"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Stream is the event store surface the log needs.
type Stream interface {
	AppendEvents(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []eventstore.Event) error
	LoadEvents(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]eventstore.Event, error)
	GetCurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error)
}

type Log struct {
	stream Stream
}

func NewLog(stream Stream) *Log {
	return &Log{stream: stream}
}

// Record appends one modification. It joins the transaction carried by ctx.
func (l *Log) Record(ctx context.Context, eventID uuid.UUID, action Action, actorID uuid.UUID, details any) error {
	data, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal %s details: %w", action, err)
	}

	version, err := l.stream.GetCurrentVersion(ctx, eventID)
	if err != nil {
		return fmt.Errorf("read history version: %w", err)
	}

	err = l.stream.AppendEvents(ctx, eventID, AggregateType, version, []eventstore.Event{{
		EventType: string(action),
		EventData: data,
		Metadata:  map[string]interface{}{"actor_id": actorID.String()},
	}})
	if errors.Is(err, eventstore.ErrConcurrencyConflict) {
		return apperr.Conflict("event %s was modified concurrently, please retry", eventID)
	}
	if err != nil {
		return fmt.Errorf("append %s: %w", action, err)
	}
	return nil
}

// History returns every modification of an event, oldest first.
func (l *Log) History(ctx context.Context, eventID uuid.UUID) ([]Modification, error) {
	events, err := l.stream.LoadEvents(ctx, eventID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	history := make([]Modification, 0, len(events))
	for _, e := range events {
		m := Modification{
			Version:   e.Version,
			Action:    Action(e.EventType),
			Details:   e.EventData,
			CreatedAt: e.CreatedAt,
		}
		if actor, ok := e.Metadata["actor_id"].(string); ok {
			m.ActorID, _ = uuid.Parse(actor)
		}
		history = append(history, m)
	}
	return history, nil
}
