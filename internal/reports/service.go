// internal/reports/service.go
package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service defines the interface for financial reporting.
type Service interface {
	// ClosedEventReport builds the report sent when an event closes. It is
	// called by the returns workflow and performs no authorization.
	ClosedEventReport(ctx context.Context, eventID uuid.UUID) (*Report, error)

	EventReport(ctx context.Context, actorID, eventID uuid.UUID) (*Report, error)
	Monthly(ctx context.Context, actorID uuid.UUID, year int, month time.Month) (*Summary, error)
	Yearly(ctx context.Context, actorID uuid.UUID, year int) ([]MonthTotals, error)
	DateRange(ctx context.Context, actorID uuid.UUID, from, to time.Time) (*Summary, error)
}
