// internal/events/service.go
package events

import (
	"context"

	"eventrental/internal/audit"
	"eventrental/internal/store"

	"github.com/google/uuid"
)

// Repository persists events, their line items and their staff.
type Repository interface {
	Create(ctx context.Context, e *Event) error
	Get(ctx context.Context, id uuid.UUID) (*Event, error)
	// Lock reads an event and holds its row lock for the transaction.
	Lock(ctx context.Context, id uuid.UUID) (*Event, error)
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]Event, error)
	ListByWorker(ctx context.Context, workerID uuid.UUID, page store.Page) ([]Event, error)

	AddLineItem(ctx context.Context, li *LineItem) error
	LineItems(ctx context.Context, eventID uuid.UUID) ([]LineItem, error)
	GetLineItem(ctx context.Context, id uuid.UUID) (*LineItem, error)
	ListLineItems(ctx context.Context, page store.Page) ([]LineItem, error)
	DeleteLineItems(ctx context.Context, eventID uuid.UUID) error

	AddAssignment(ctx context.Context, a *Assignment) error
	Assignments(ctx context.Context, eventID uuid.UUID) ([]Assignment, error)
	DeleteAssignments(ctx context.Context, eventID uuid.UUID) error
}

// ReturnLedger reads and purges the return records of an event being
// deleted.
type ReturnLedger interface {
	// ReturnedByLine maps each line item of the event to the units already
	// returned.
	ReturnedByLine(ctx context.Context, eventID uuid.UUID) (map[uuid.UUID]int, error)
	DeleteByEvent(ctx context.Context, eventID uuid.UUID) error
}

// Service defines the interface for the event lifecycle.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*Details, error)
	Update(ctx context.Context, actorID, eventID uuid.UUID, patch Patch) (*Details, error)
	UpdateStatus(ctx context.Context, actorID, eventID uuid.UUID, status Status) (*Event, error)
	Delete(ctx context.Context, actorID, eventID uuid.UUID) error

	Get(ctx context.Context, actorID, eventID uuid.UUID) (*Details, error)
	List(ctx context.Context, actorID uuid.UUID, filter ListFilter) ([]Event, error)
	ListByWorker(ctx context.Context, actorID, workerID uuid.UUID, page store.Page) ([]Event, error)
	ListLineItems(ctx context.Context, actorID uuid.UUID, page store.Page) ([]LineItem, error)
	History(ctx context.Context, actorID, eventID uuid.UUID) ([]audit.Modification, error)
}
