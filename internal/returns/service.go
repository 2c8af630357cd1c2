// internal/returns/service.go
package returns

import (
	"context"

	"eventrental/internal/reports"
	"eventrental/internal/store"

	"github.com/google/uuid"
)

// Repository persists return records.
type Repository interface {
	Create(ctx context.Context, r *Return) error
	Update(ctx context.Context, r *Return) error
	Get(ctx context.Context, id uuid.UUID) (*Return, error)
	// GetByLineItem returns (nil, nil) when the line has no record yet.
	GetByLineItem(ctx context.Context, lineItemID uuid.UUID) (*Return, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Return, error)
	List(ctx context.Context, status Status, page store.Page) ([]Return, error)
	ReturnedByLine(ctx context.Context, eventID uuid.UUID) (map[uuid.UUID]int, error)
	DeleteByEvent(ctx context.Context, eventID uuid.UUID) error
}

// Reporter builds the report of a closed event.
type Reporter interface {
	ClosedEventReport(ctx context.Context, eventID uuid.UUID) (*reports.Report, error)
}

// Notifier delivers a closed-event report.
type Notifier interface {
	SendEventReport(ctx context.Context, report *reports.Report) error
}

// Service defines the interface for the returns workflow.
type Service interface {
	CreateReturn(ctx context.Context, actorID, eventID uuid.UUID, items []ReturnItem) (*Result, error)
	UpdateReturn(ctx context.Context, actorID, eventID uuid.UUID, items []CorrectionItem) (*Result, error)

	ListByEvent(ctx context.Context, actorID, eventID uuid.UUID) ([]Return, error)
	List(ctx context.Context, actorID uuid.UUID, status Status, page store.Page) ([]Return, error)
}
