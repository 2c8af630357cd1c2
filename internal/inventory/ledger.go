// internal/inventory/ledger.go
package inventory

import (
	"context"
	"strings"
	"time"

	"eventrental/internal/apperr"
	"eventrental/internal/observability"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ledger struct {
	repo    Repository
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// NewLedger creates a ledger over repo. metrics may be nil.
func NewLedger(repo Repository, metrics *observability.Metrics) Ledger {
	return &ledger{
		repo:    repo,
		metrics: metrics,
		tracer:  otel.Tracer("eventrental/inventory"),
	}
}

func (l *ledger) Reserve(ctx context.Context, ref Ref, qty int) (*Stock, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.reserve", trace.WithAttributes(
		attribute.String("item.kind", string(ref.Kind)),
		attribute.String("item.id", ref.ID.String()),
		attribute.Int("quantity", qty),
	))
	defer span.End()

	if qty <= 0 {
		return nil, apperr.BadRequest("quantity must be positive, got %d", qty)
	}

	stock, err := l.repo.LockStock(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !stock.Active {
		return nil, apperr.BadRequest("%s %s is inactive", capitalize(ref.Kind.Label()), stock.Name)
	}
	if stock.Quantity < qty {
		span.SetAttributes(attribute.Bool("stock.insufficient", true))
		return nil, apperr.BadRequest("Insufficient stock for %s %s. Available: %d, Requested: %d",
			ref.Kind.Label(), stock.Name, stock.Quantity, qty)
	}

	stock.Quantity -= qty
	stock.Reserved += qty
	if err := l.repo.SetStock(ctx, ref, stock.Quantity, stock.Reserved); err != nil {
		return nil, err
	}

	l.metrics.Reserved(ctx, string(ref.Kind), qty)
	span.SetAttributes(attribute.Int("stock.remaining", stock.Quantity))
	return stock, nil
}

func (l *ledger) Release(ctx context.Context, ref Ref, qty int) (*Stock, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.release", trace.WithAttributes(
		attribute.String("item.kind", string(ref.Kind)),
		attribute.String("item.id", ref.ID.String()),
		attribute.Int("quantity", qty),
	))
	defer span.End()

	if qty <= 0 {
		return nil, apperr.BadRequest("quantity must be positive, got %d", qty)
	}

	stock, err := l.repo.LockStock(ctx, ref)
	if err != nil {
		return nil, err
	}
	if qty > stock.Reserved {
		return nil, apperr.BadRequest("Cannot release %d units of %s %s: only %d are reserved",
			qty, ref.Kind.Label(), stock.Name, stock.Reserved)
	}

	stock.Quantity += qty
	stock.Reserved -= qty
	if err := l.repo.SetStock(ctx, ref, stock.Quantity, stock.Reserved); err != nil {
		return nil, err
	}

	l.metrics.Released(ctx, string(ref.Kind), qty)
	span.SetAttributes(attribute.Int("stock.available", stock.Quantity))
	return stock, nil
}

func (l *ledger) Available(ctx context.Context, ref Ref) (*Stock, error) {
	return l.repo.LockStock(ctx, ref)
}

func (l *ledger) CreateAdHoc(ctx context.Context, name string, qty int, price decimal.Decimal) (*Material, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.create_ad_hoc", trace.WithAttributes(
		attribute.String("item.name", name),
		attribute.Int("quantity", qty),
	))
	defer span.End()

	if strings.TrimSpace(name) == "" {
		return nil, apperr.BadRequest("custom items need names")
	}
	if qty <= 0 {
		return nil, apperr.BadRequest("quantity must be positive, got %d", qty)
	}

	now := time.Now().UTC()
	m := &Material{
		ID:        uuid.New(),
		Name:      name,
		Quantity:  qty,
		Price:     decimal.NewNullDecimal(price),
		AdHoc:     true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.repo.CreateMaterial(ctx, m); err != nil {
		return nil, err
	}

	stock, err := l.Reserve(ctx, MaterialRef(m.ID), qty)
	if err != nil {
		return nil, err
	}
	m.Quantity, m.Reserved = stock.Quantity, stock.Reserved
	return m, nil
}

func (l *ledger) RemoveAdHoc(ctx context.Context, id uuid.UUID) error {
	m, err := l.repo.GetMaterial(ctx, id)
	if err != nil {
		return err
	}
	if !m.AdHoc {
		return apperr.BadRequest("material %s is not an ad-hoc item", m.Name)
	}
	return l.repo.DeleteMaterial(ctx, id)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
