// internal/returns/implementation.go
package returns

import (
	"context"
	"time"

	"eventrental/internal/apperr"
	"eventrental/internal/audit"
	"eventrental/internal/events"
	"eventrental/internal/inventory"
	"eventrental/internal/observability"
	"eventrental/internal/store"
	"eventrental/internal/users"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// service implements the Service interface.
type service struct {
	repo     Repository
	events   events.Repository
	ledger   inventory.Ledger
	audit    *audit.Log
	tx       store.TxRunner
	auth     users.Authorizer
	reporter Reporter
	notifier Notifier
	metrics  *observability.Metrics
	logger   *zap.Logger
	tracer   trace.Tracer
}

// Deps groups the collaborators of the returns service.
type Deps struct {
	Repo     Repository
	Events   events.Repository
	Ledger   inventory.Ledger
	Audit    *audit.Log
	Tx       store.TxRunner
	Auth     users.Authorizer
	Reporter Reporter
	Notifier Notifier
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewService creates a new returns service instance.
func NewService(d Deps) Service {
	return &service{
		repo:     d.Repo,
		events:   d.Events,
		ledger:   d.Ledger,
		audit:    d.Audit,
		tx:       d.Tx,
		auth:     d.Auth,
		reporter: d.Reporter,
		notifier: d.Notifier,
		metrics:  d.Metrics,
		logger:   d.Logger,
		tracer:   otel.Tracer("eventrental/returns"),
	}
}

func (s *service) CreateReturn(ctx context.Context, actorID, eventID uuid.UUID, items []ReturnItem) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "returns.create", trace.WithAttributes(
		attribute.String("event.id", eventID.String()),
		attribute.Int("items.requested", len(items)),
	))
	defer span.End()

	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.BadRequest("At least one returned item is required")
	}
	for _, item := range items {
		if item.ReturnedQuantity <= 0 {
			return nil, apperr.BadRequest("Returned quantity must be positive, got %d", item.ReturnedQuantity)
		}
	}

	result := &Result{Returns: []Return{}}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		event, err := s.events.Lock(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Status != events.StatusDone {
			return apperr.BadRequest("Can only process returns for completed events")
		}
		if !event.EmployeeFee.IsPositive() {
			return apperr.Forbidden("Employee fee is not set for this event")
		}

		lines, err := s.lineItems(ctx, eventID)
		if err != nil {
			return err
		}

		for _, item := range items {
			li, ok := lines[item.LineItemID]
			if !ok {
				return apperr.BadRequest("Event item %s does not belong to event %s", item.LineItemID, eventID)
			}
			if !li.Returnable() {
				continue
			}
			ref, ok := li.StockRef()
			if !ok {
				continue
			}

			rec, err := s.repo.GetByLineItem(ctx, li.ID)
			if err != nil {
				return err
			}
			isNew := rec == nil
			if isNew {
				if item.ReturnedQuantity > li.Quantity {
					return apperr.BadRequest("Cannot return more items than borrowed. Requested: %d, Borrowed: %d",
						item.ReturnedQuantity, li.Quantity)
				}
				rec = newReturn(eventID, li, ref)
			}

			total := rec.ReturnedQuantity + item.ReturnedQuantity
			if total > li.Quantity {
				return apperr.BadRequest("Cannot return more items than borrowed. Total returned would be: %d, Original: %d",
					total, li.Quantity)
			}

			if _, err := s.ledger.Release(ctx, rec.Item(), item.ReturnedQuantity); err != nil {
				return err
			}
			rec.set(total, li.Quantity)
			if isNew {
				err = s.repo.Create(ctx, rec)
			} else {
				err = s.repo.Update(ctx, rec)
			}
			if err != nil {
				return err
			}
			result.Returns = append(result.Returns, *rec)
		}

		if err := s.audit.Record(ctx, eventID, audit.ActionReturn, actorID, map[string]any{"returns": result.Returns}); err != nil {
			return err
		}

		closed, err := s.settle(ctx, actorID, event, lines)
		if err != nil {
			return err
		}
		result.Event, result.Closed = *event, closed
		return nil
	})
	if err != nil {
		return nil, apperr.Normalize(err, "create return")
	}

	s.afterCommit(ctx, result)
	span.SetAttributes(attribute.Bool("event.closed", result.Closed))
	return result, nil
}

func (s *service) UpdateReturn(ctx context.Context, actorID, eventID uuid.UUID, items []CorrectionItem) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "returns.update", trace.WithAttributes(
		attribute.String("event.id", eventID.String()),
		attribute.Int("items.requested", len(items)),
	))
	defer span.End()

	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.BadRequest("At least one return correction is required")
	}

	result := &Result{Returns: []Return{}}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		event, err := s.events.Lock(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Status != events.StatusDone && event.Status != events.StatusClosed {
			return apperr.BadRequest("Returns can only be updated for done or closed events")
		}

		lines, err := s.lineItems(ctx, eventID)
		if err != nil {
			return err
		}

		for _, item := range items {
			rec, err := s.repo.Get(ctx, item.ReturnID)
			if err != nil {
				return err
			}
			if rec.EventID != eventID {
				return apperr.BadRequest("Return %s does not belong to event %s", rec.ID, eventID)
			}
			li, ok := lines[rec.LineItemID]
			if !ok {
				return apperr.BadRequest("Event item %s does not belong to event %s", rec.LineItemID, eventID)
			}
			if item.ReturnedQuantity < 0 || item.ReturnedQuantity > li.Quantity {
				return apperr.BadRequest("Returned quantity must be between 0 and %d, got %d",
					li.Quantity, item.ReturnedQuantity)
			}

			if err := s.applyDelta(ctx, rec, item.ReturnedQuantity-rec.ReturnedQuantity); err != nil {
				return err
			}
			rec.set(item.ReturnedQuantity, li.Quantity)
			if err := s.repo.Update(ctx, rec); err != nil {
				return err
			}
			result.Returns = append(result.Returns, *rec)
		}

		if err := s.audit.Record(ctx, eventID, audit.ActionReturnUpdate, actorID, map[string]any{"returns": result.Returns}); err != nil {
			return err
		}

		closed, err := s.settle(ctx, actorID, event, lines)
		if err != nil {
			return err
		}
		result.Event, result.Closed = *event, closed
		return nil
	})
	if err != nil {
		return nil, apperr.Normalize(err, "update return")
	}

	s.afterCommit(ctx, result)
	span.SetAttributes(attribute.Bool("event.closed", result.Closed))
	return result, nil
}

// applyDelta moves stock for a correction. A positive delta releases more
// units, a negative one takes units back out of stock.
func (s *service) applyDelta(ctx context.Context, rec *Return, delta int) error {
	ref := rec.Item()
	switch {
	case delta > 0:
		if delta > rec.RemainingQuantity {
			return apperr.BadRequest("Cannot return %d more units: only %d are outstanding", delta, rec.RemainingQuantity)
		}
		_, err := s.ledger.Release(ctx, ref, delta)
		return err
	case delta < 0:
		stock, err := s.ledger.Available(ctx, ref)
		if err != nil {
			return err
		}
		if stock.Quantity < -delta {
			return apperr.BadRequest("Cannot pull back %d units of %s %s: only %d are in stock",
				-delta, ref.Kind.Label(), stock.Name, stock.Quantity)
		}
		_, err = s.ledger.Reserve(ctx, ref, -delta)
		return err
	}
	return nil
}

// settle closes a done event with nothing outstanding and reopens a closed
// one that has outstanding items again. It reports whether the event was
// closed by this call.
func (s *service) settle(ctx context.Context, actorID uuid.UUID, event *events.Event, lines map[uuid.UUID]events.LineItem) (bool, error) {
	outstanding, err := s.outstanding(ctx, event.ID, lines)
	if err != nil {
		return false, err
	}

	var next events.Status
	switch {
	case outstanding == 0 && event.Status == events.StatusDone:
		next = events.StatusClosed
	case outstanding > 0 && event.Status == events.StatusClosed:
		next = events.StatusDone
	default:
		return false, nil
	}

	from := event.Status
	event.Status = next
	event.UpdatedAt = time.Now().UTC()
	if err := s.events.Update(ctx, event); err != nil {
		return false, err
	}
	err = s.audit.Record(ctx, event.ID, audit.ActionStatusChange, actorID, map[string]any{
		"from":        from,
		"to":          next,
		"outstanding": outstanding,
	})
	return next == events.StatusClosed, err
}

// outstanding counts returnable line items not yet fully returned.
func (s *service) outstanding(ctx context.Context, eventID uuid.UUID, lines map[uuid.UUID]events.LineItem) (int, error) {
	records, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	remaining := make(map[uuid.UUID]int, len(records))
	for _, r := range records {
		remaining[r.LineItemID] = r.RemainingQuantity
	}

	n := 0
	for id, li := range lines {
		if !li.Returnable() {
			continue
		}
		if left, ok := remaining[id]; !ok || left > 0 {
			n++
		}
	}
	return n, nil
}

func (s *service) lineItems(ctx context.Context, eventID uuid.UUID) (map[uuid.UUID]events.LineItem, error) {
	list, err := s.events.LineItems(ctx, eventID)
	if err != nil {
		return nil, err
	}
	lines := make(map[uuid.UUID]events.LineItem, len(list))
	for _, li := range list {
		lines[li.ID] = li
	}
	return lines, nil
}

// afterCommit reports and mails a freshly closed event. Failures are logged
// and never change the result.
func (s *service) afterCommit(ctx context.Context, result *Result) {
	if !result.Closed {
		return
	}
	eventID := result.Event.ID
	s.metrics.EventClosed(ctx)
	s.logger.Info("event closed", zap.String("event_id", eventID.String()))

	report, err := s.reporter.ClosedEventReport(ctx, eventID)
	if err != nil {
		s.logger.Error("build closed event report",
			zap.String("event_id", eventID.String()),
			zap.Error(err))
		return
	}
	result.Report = report

	if err := s.notifier.SendEventReport(ctx, report); err != nil {
		s.logger.Warn("send closed event report",
			zap.String("event_id", eventID.String()),
			zap.Error(err))
	}
}

func (s *service) ListByEvent(ctx context.Context, actorID, eventID uuid.UUID) ([]Return, error) {
	if _, err := s.auth.Require(ctx, actorID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, apperr.NotFound("No returns found for event %s", eventID)
	}
	return list, nil
}

func (s *service) List(ctx context.Context, actorID uuid.UUID, status Status, page store.Page) ([]Return, error) {
	if _, err := s.auth.Require(ctx, actorID); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, apperr.BadRequest("Invalid return status: %s", status)
	}
	return s.repo.List(ctx, status, page.Normalize())
}
