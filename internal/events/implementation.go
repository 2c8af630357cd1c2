// internal/events/implementation.go
package events

import (
	"context"
	"strings"
	"time"

	"eventrental/internal/apperr"
	"eventrental/internal/audit"
	"eventrental/internal/inventory"
	"eventrental/internal/store"
	"eventrental/internal/users"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// service implements the Service interface.
type service struct {
	repo    Repository
	users   users.Repository
	returns ReturnLedger
	ledger  inventory.Ledger
	audit   *audit.Log
	tx      store.TxRunner
	auth    users.Authorizer
	logger  *zap.Logger
	tracer  trace.Tracer
}

// Deps groups the collaborators of the event service.
type Deps struct {
	Repo    Repository
	Users   users.Repository
	Returns ReturnLedger
	Ledger  inventory.Ledger
	Audit   *audit.Log
	Tx      store.TxRunner
	Auth    users.Authorizer
	Logger  *zap.Logger
}

// NewService creates a new event service instance.
func NewService(d Deps) Service {
	return &service{
		repo:    d.Repo,
		users:   d.Users,
		returns: d.Returns,
		ledger:  d.Ledger,
		audit:   d.Audit,
		tx:      d.Tx,
		auth:    d.Auth,
		logger:  d.Logger,
		tracer:  otel.Tracer("eventrental/events"),
	}
}

func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*Details, error) {
	ctx, span := s.tracer.Start(ctx, "events.create", trace.WithAttributes(
		attribute.Int("items.requested", len(input.Items)),
		attribute.Int("staff.requested", len(input.Staff)),
	))
	defer span.End()

	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, apperr.BadRequest("Event name is required")
	}
	if input.Date.IsZero() {
		return nil, apperr.BadRequest("Event date is required")
	}
	if !input.Size.Valid() {
		return nil, apperr.BadRequest("Event size must be small or big")
	}
	if input.Cost.IsNegative() {
		return nil, apperr.BadRequest("Event cost cannot be negative")
	}
	if err := validateStaff(input.Staff); err != nil {
		return nil, err
	}
	items, err := Consolidate(input.Items)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	event := &Event{
		ID:          uuid.New(),
		Name:        input.Name,
		Date:        input.Date.UTC(),
		Address:     strings.TrimSpace(input.Address),
		Size:        input.Size,
		Cost:        input.Cost,
		EmployeeFee: sumStaffFees(input.Staff),
		Status:      StatusPlanning,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	details := &Details{Event: *event}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, event); err != nil {
			return err
		}
		staff, err := s.addStaff(ctx, event.ID, input.Staff, nil)
		if err != nil {
			return err
		}
		lines, err := s.addItems(ctx, event.ID, items, nil)
		if err != nil {
			return err
		}
		details.Staff, details.Items = staff, lines

		return s.audit.Record(ctx, event.ID, audit.ActionCreate, actorID, map[string]any{
			"name":        event.Name,
			"date":        event.Date,
			"cost":        event.Cost,
			"employeeFee": event.EmployeeFee,
			"items":       len(lines),
			"employees":   len(staff),
		})
	})
	if err != nil {
		return nil, apperr.Normalize(err, "create event")
	}

	span.SetAttributes(attribute.String("event.id", event.ID.String()))
	s.logger.Info("event created",
		zap.String("event_id", event.ID.String()),
		zap.Int("items", len(details.Items)),
		zap.Int("employees", len(details.Staff)))
	return details, nil
}

func (s *service) Update(ctx context.Context, actorID, eventID uuid.UUID, patch Patch) (*Details, error) {
	ctx, span := s.tracer.Start(ctx, "events.update", trace.WithAttributes(
		attribute.String("event.id", eventID.String()),
	))
	defer span.End()

	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return nil, err
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperr.BadRequest("Event name cannot be empty")
	}
	if patch.Size != nil && !patch.Size.Valid() {
		return nil, apperr.BadRequest("Event size must be small or big")
	}
	if patch.Cost != nil && patch.Cost.IsNegative() {
		return nil, apperr.BadRequest("Event cost cannot be negative")
	}
	if patch.Date != nil && patch.Date.IsZero() {
		return nil, apperr.BadRequest("Event date cannot be empty")
	}
	if err := validateStaff(patch.Staff); err != nil {
		return nil, err
	}
	items, err := Consolidate(patch.Items)
	if err != nil {
		return nil, err
	}

	var details *Details
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		event, err := s.repo.Lock(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Status.Terminal() {
			return apperr.BadRequest("Cannot modify a %s event", event.Status)
		}
		if len(items) > 0 && event.Status != StatusPlanning && event.Status != StatusOngoing {
			return apperr.BadRequest("Items can only be added while the event is planning or ongoing")
		}

		changed := applyPatch(event, patch)

		existingStaff, err := s.repo.Assignments(ctx, eventID)
		if err != nil {
			return err
		}
		newStaff, err := s.addStaff(ctx, eventID, patch.Staff, existingStaff)
		if err != nil {
			return err
		}
		existingItems, err := s.repo.LineItems(ctx, eventID)
		if err != nil {
			return err
		}
		newItems, err := s.addItems(ctx, eventID, items, existingItems)
		if err != nil {
			return err
		}

		allStaff := append(existingStaff, newStaff...)
		event.EmployeeFee = sumAssignmentFees(allStaff)
		event.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, event); err != nil {
			return err
		}

		if len(changed) > 0 {
			if err := s.audit.Record(ctx, eventID, audit.ActionUpdate, actorID, changed); err != nil {
				return err
			}
		}
		if len(newStaff) > 0 {
			if err := s.audit.Record(ctx, eventID, audit.ActionAddEmployee, actorID, map[string]any{
				"employees":   newStaff,
				"employeeFee": event.EmployeeFee,
			}); err != nil {
				return err
			}
		}
		if len(newItems) > 0 {
			if err := s.audit.Record(ctx, eventID, audit.ActionAddItem, actorID, map[string]any{"items": newItems}); err != nil {
				return err
			}
		}

		details = &Details{Event: *event, Items: append(existingItems, newItems...), Staff: allStaff}
		return nil
	})
	if err != nil {
		return nil, apperr.Normalize(err, "update event")
	}

	s.logger.Info("event updated",
		zap.String("event_id", eventID.String()),
		zap.Int("employees_added", len(patch.Staff)),
		zap.Int("items_added", len(items)))
	return details, nil
}

func (s *service) UpdateStatus(ctx context.Context, actorID, eventID uuid.UUID, status Status) (*Event, error) {
	ctx, span := s.tracer.Start(ctx, "events.update_status", trace.WithAttributes(
		attribute.String("event.id", eventID.String()),
		attribute.String("status.requested", string(status)),
	))
	defer span.End()

	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return nil, err
	}
	switch status {
	case StatusOngoing, StatusDone, StatusCancelled:
	default:
		return nil, apperr.BadRequest("Invalid status: %s", status)
	}

	var updated *Event
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		event, err := s.repo.Lock(ctx, eventID)
		if err != nil {
			return err
		}
		if !event.Status.CanTransition(status) {
			return apperr.BadRequest("Cannot change event status from %s to %s", event.Status, status)
		}

		released := 0
		if status == StatusCancelled {
			if released, err = s.cancel(ctx, eventID); err != nil {
				return err
			}
		}

		from := event.Status
		event.Status = status
		event.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, event); err != nil {
			return err
		}
		updated = event

		return s.audit.Record(ctx, eventID, audit.ActionStatusChange, actorID, map[string]any{
			"from":          from,
			"to":            status,
			"unitsReleased": released,
		})
	})
	if err != nil {
		return nil, apperr.Normalize(err, "update event status")
	}

	s.logger.Info("event status changed",
		zap.String("event_id", eventID.String()),
		zap.String("status", string(status)))
	return updated, nil
}

// cancel gives every reserved unit back and drops the pseudo-materials of
// returnable custom items.
func (s *service) cancel(ctx context.Context, eventID uuid.UUID) (int, error) {
	return s.release(ctx, eventID, nil)
}

// release gives back the units each line item still holds and drops the
// pseudo-materials of returnable custom items. returned maps a line item to
// the units already back in stock.
func (s *service) release(ctx context.Context, eventID uuid.UUID, returned map[uuid.UUID]int) (int, error) {
	lines, err := s.repo.LineItems(ctx, eventID)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, li := range lines {
		ref, ok := li.StockRef()
		if !ok {
			continue
		}
		if out := li.Quantity - returned[li.ID]; out > 0 {
			if _, err := s.ledger.Release(ctx, ref, out); err != nil {
				return 0, err
			}
			released += out
		}

		if src, isCustom := li.Source.(CustomSource); isCustom && src.PseudoMaterialID.Valid {
			if err := s.ledger.RemoveAdHoc(ctx, src.PseudoMaterialID.UUID); err != nil {
				return 0, err
			}
		}
	}
	return released, nil
}

func (s *service) Delete(ctx context.Context, actorID, eventID uuid.UUID) error {
	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return err
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		event, err := s.repo.Lock(ctx, eventID)
		if err != nil {
			return err
		}
		released := 0
		if event.Status != StatusCancelled {
			returned, err := s.returns.ReturnedByLine(ctx, eventID)
			if err != nil {
				return err
			}
			if released, err = s.release(ctx, eventID, returned); err != nil {
				return err
			}
		}
		if err := s.repo.DeleteAssignments(ctx, eventID); err != nil {
			return err
		}
		if err := s.returns.DeleteByEvent(ctx, eventID); err != nil {
			return err
		}
		if err := s.repo.DeleteLineItems(ctx, eventID); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, eventID); err != nil {
			return err
		}
		return s.audit.Record(ctx, eventID, audit.ActionDelete, actorID, map[string]any{
			"name":          event.Name,
			"status":        event.Status,
			"unitsReleased": released,
		})
	})
	if err != nil {
		return apperr.Normalize(err, "delete event")
	}

	s.logger.Info("event deleted", zap.String("event_id", eventID.String()))
	return nil
}

func (s *service) Get(ctx context.Context, actorID, eventID uuid.UUID) (*Details, error) {
	if _, err := s.auth.Require(ctx, actorID); err != nil {
		return nil, err
	}

	event, err := s.repo.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.LineItems(ctx, eventID)
	if err != nil {
		return nil, err
	}
	staff, err := s.repo.Assignments(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &Details{Event: *event, Items: items, Staff: staff}, nil
}

func (s *service) List(ctx context.Context, actorID uuid.UUID, filter ListFilter) ([]Event, error) {
	if _, err := s.auth.Require(ctx, actorID); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.BadRequest("Invalid status: %s", filter.Status)
	}
	filter.Page = filter.Page.Normalize()
	return s.repo.List(ctx, filter)
}

func (s *service) ListByWorker(ctx context.Context, actorID, workerID uuid.UUID, page store.Page) ([]Event, error) {
	if _, err := s.auth.Require(ctx, actorID); err != nil {
		return nil, err
	}
	worker, err := s.users.Get(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if worker.Role != users.RoleWorker {
		return nil, apperr.BadRequest("User %s is not a worker", worker.FullName)
	}
	return s.repo.ListByWorker(ctx, workerID, page.Normalize())
}

func (s *service) ListLineItems(ctx context.Context, actorID uuid.UUID, page store.Page) ([]LineItem, error) {
	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListLineItems(ctx, page.Normalize())
}

func (s *service) History(ctx context.Context, actorID, eventID uuid.UUID) ([]audit.Modification, error) {
	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return nil, err
	}
	history, err := s.audit.History(ctx, eventID)
	if err != nil {
		return nil, apperr.Normalize(err, "load event history")
	}
	if len(history) == 0 {
		return nil, apperr.NotFound("No modifications found for event %s", eventID)
	}
	return history, nil
}

// addStaff resolves and assigns workers. existing holds assignments already
// on the event.
func (s *service) addStaff(ctx context.Context, eventID uuid.UUID, inputs []StaffInput, existing []Assignment) ([]Assignment, error) {
	assigned := make(map[uuid.UUID]bool, len(existing))
	for _, a := range existing {
		assigned[a.WorkerID] = true
	}

	added := make([]Assignment, 0, len(inputs))
	for _, in := range inputs {
		var worker *users.User
		if in.WorkerID != nil {
			u, err := s.users.Get(ctx, *in.WorkerID)
			if err != nil {
				return nil, err
			}
			if u.Role != users.RoleWorker {
				return nil, apperr.BadRequest("User %s is not a worker", u.FullName)
			}
			if u.Status == users.StatusInactive {
				return nil, apperr.BadRequest("Worker %s is inactive", u.FullName)
			}
			worker = u
		} else {
			worker = users.NewWorker(in.FullName)
			if err := s.users.Create(ctx, worker); err != nil {
				return nil, err
			}
		}

		if assigned[worker.ID] {
			return nil, apperr.BadRequest("Employee %s is already assigned to this event", worker.FullName)
		}
		assigned[worker.ID] = true

		a := Assignment{
			ID:        uuid.New(),
			EventID:   eventID,
			WorkerID:  worker.ID,
			Fee:       in.Fee,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.repo.AddAssignment(ctx, &a); err != nil {
			return nil, err
		}
		added = append(added, a)
	}
	return added, nil
}

// addItems reserves stock for consolidated items and stores the lines.
// existing holds lines already on the event.
func (s *service) addItems(ctx context.Context, eventID uuid.UUID, items []ConsolidatedItem, existing []LineItem) ([]LineItem, error) {
	attached := make(map[string]bool, len(existing))
	for _, li := range existing {
		switch li.Source.(type) {
		case MaterialSource, RentalSource:
			attached[li.Source.Key()] = true
		}
	}

	added := make([]LineItem, 0, len(items))
	for _, item := range items {
		src := item.Source
		switch v := src.(type) {
		case MaterialSource:
			if attached[v.Key()] {
				return nil, apperr.BadRequest("Material %s is already attached to this event", v.MaterialID)
			}
			if _, err := s.ledger.Reserve(ctx, inventory.MaterialRef(v.MaterialID), item.Quantity); err != nil {
				return nil, err
			}
		case RentalSource:
			if attached[v.Key()] {
				return nil, apperr.BadRequest("Rental material %s is already attached to this event", v.RentalID)
			}
			if _, err := s.ledger.Reserve(ctx, inventory.RentalRef(v.RentalID), item.Quantity); err != nil {
				return nil, err
			}
		case CustomSource:
			if v.Type == ItemReturnable {
				m, err := s.ledger.CreateAdHoc(ctx, v.Names, item.Quantity, v.Price)
				if err != nil {
					return nil, err
				}
				v.PseudoMaterialID = uuid.NullUUID{UUID: m.ID, Valid: true}
				src = v
			}
		}

		li := LineItem{
			ID:        uuid.New(),
			EventID:   eventID,
			Quantity:  item.Quantity,
			Source:    src,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.repo.AddLineItem(ctx, &li); err != nil {
			return nil, err
		}
		added = append(added, li)
	}
	return added, nil
}

func validateStaff(inputs []StaffInput) error {
	seen := make(map[uuid.UUID]bool, len(inputs))
	for _, in := range inputs {
		if err := in.validate(); err != nil {
			return err
		}
		if in.WorkerID != nil {
			if seen[*in.WorkerID] {
				return apperr.BadRequest("Employee %s is listed twice", *in.WorkerID)
			}
			seen[*in.WorkerID] = true
		}
	}
	return nil
}

func applyPatch(e *Event, p Patch) map[string]any {
	changed := map[string]any{}
	if p.Name != nil {
		e.Name = strings.TrimSpace(*p.Name)
		changed["name"] = e.Name
	}
	if p.Date != nil {
		e.Date = p.Date.UTC()
		changed["date"] = e.Date
	}
	if p.Address != nil {
		e.Address = strings.TrimSpace(*p.Address)
		changed["address"] = e.Address
	}
	if p.Cost != nil {
		e.Cost = *p.Cost
		changed["cost"] = e.Cost
	}
	if p.Size != nil {
		e.Size = *p.Size
		changed["size"] = e.Size
	}
	return changed
}

func sumStaffFees(inputs []StaffInput) decimal.Decimal {
	total := decimal.Zero
	for _, in := range inputs {
		total = total.Add(in.Fee)
	}
	return total
}

func sumAssignmentFees(staff []Assignment) decimal.Decimal {
	total := decimal.Zero
	for _, a := range staff {
		total = total.Add(a.Fee)
	}
	return total
}
