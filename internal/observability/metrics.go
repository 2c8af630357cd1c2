// internal/observability/metrics.go
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics groups the counters recorded by the lifecycle services.
type Metrics struct {
	unitsReserved metric.Int64Counter
	unitsReleased metric.Int64Counter
	eventsClosed  metric.Int64Counter
}

// NewMetrics registers counters on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("eventrental")

	reserved, err := meter.Int64Counter("inventory.units.reserved",
		metric.WithDescription("Units taken out of stock by event line items"))
	if err != nil {
		return nil, fmt.Errorf("create reserved counter: %w", err)
	}
	released, err := meter.Int64Counter("inventory.units.released",
		metric.WithDescription("Units put back into stock by returns and cancellations"))
	if err != nil {
		return nil, fmt.Errorf("create released counter: %w", err)
	}
	closed, err := meter.Int64Counter("events.closed",
		metric.WithDescription("Events closed after all returnable items came back"))
	if err != nil {
		return nil, fmt.Errorf("create closed counter: %w", err)
	}

	return &Metrics{unitsReserved: reserved, unitsReleased: released, eventsClosed: closed}, nil
}

func (m *Metrics) Reserved(ctx context.Context, kind string, qty int) {
	if m == nil {
		return
	}
	m.unitsReserved.Add(ctx, int64(qty), metric.WithAttributes(attribute.String("item.kind", kind)))
}

func (m *Metrics) Released(ctx context.Context, kind string, qty int) {
	if m == nil {
		return
	}
	m.unitsReleased.Add(ctx, int64(qty), metric.WithAttributes(attribute.String("item.kind", kind)))
}

func (m *Metrics) EventClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.eventsClosed.Add(ctx, 1)
}
