// internal/reports/implementation.go
package reports

import (
	"context"
	"strings"
	"time"

	"eventrental/internal/apperr"
	"eventrental/internal/events"
	"eventrental/internal/inventory"
	"eventrental/internal/store"
	"eventrental/internal/users"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// service implements the Service interface.
type service struct {
	events    events.Repository
	inventory inventory.Repository
	users     users.Repository
	auth      users.Authorizer
	tracer    trace.Tracer
}

// NewService creates a new reporting service instance.
func NewService(eventsRepo events.Repository, inventoryRepo inventory.Repository, usersRepo users.Repository, auth users.Authorizer) Service {
	return &service{
		events:    eventsRepo,
		inventory: inventoryRepo,
		users:     usersRepo,
		auth:      auth,
		tracer:    otel.Tracer("eventrental/reports"),
	}
}

func (s *service) ClosedEventReport(ctx context.Context, eventID uuid.UUID) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "reports.closed_event", trace.WithAttributes(
		attribute.String("event.id", eventID.String()),
	))
	defer span.End()

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != events.StatusClosed {
		return nil, apperr.BadRequest("Event is not closed")
	}
	return s.build(ctx, event)
}

func (s *service) EventReport(ctx context.Context, actorID, eventID uuid.UUID) (*Report, error) {
	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return nil, err
	}
	return s.ClosedEventReport(ctx, eventID)
}

func (s *service) build(ctx context.Context, event *events.Event) (*Report, error) {
	items, err := s.events.LineItems(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	staff, err := s.events.Assignments(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	email, err := s.contactEmail(ctx)
	if err != nil {
		return nil, err
	}

	lines, itemsCost, err := s.itemize(ctx, items, map[uuid.UUID]*inventory.RentalMaterial{})
	if err != nil {
		return nil, err
	}
	expense := event.EmployeeFee.Add(itemsCost)

	return &Report{
		Name:             event.Name,
		EventID:          event.ID,
		EventType:        event.Size,
		EventDate:        event.Date,
		Customers:        len(staff),
		CustomerEmail:    email,
		TotalIncome:      event.Cost,
		TotalExpense:     expense,
		Profit:           event.Cost.Sub(expense),
		EmployeeFee:      event.EmployeeFee,
		ItemizedExpenses: lines,
	}, nil
}

// contactEmail returns the address of the first admin, or "" when no admin
// has one.
func (s *service) contactEmail(ctx context.Context) (string, error) {
	admins, err := s.users.List(ctx, users.RoleAdmin, store.Page{Page: 1, PerPage: 10})
	if err != nil {
		return "", err
	}
	for _, a := range admins {
		if a.Email != "" {
			return a.Email, nil
		}
	}
	return "", nil
}

// itemize prices the line items that cost money: rentals at their renting
// cost and custom items at their price. Owned materials cost nothing.
func (s *service) itemize(ctx context.Context, items []events.LineItem, rentals map[uuid.UUID]*inventory.RentalMaterial) ([]ExpenseLine, decimal.Decimal, error) {
	lines := []ExpenseLine{}
	total := decimal.Zero

	for _, li := range items {
		qty := decimal.NewFromInt(int64(li.Quantity))
		var line ExpenseLine

		switch src := li.Source.(type) {
		case events.MaterialSource:
			continue
		case events.RentalSource:
			rm, ok := rentals[src.RentalID]
			if !ok {
				var err error
				if rm, err = s.inventory.GetRental(ctx, src.RentalID); err != nil {
					return nil, decimal.Zero, err
				}
				rentals[src.RentalID] = rm
			}
			line = ExpenseLine{Name: rm.Name, Quantity: li.Quantity, Cost: rm.RentingCost.Mul(qty)}
		case events.CustomSource:
			line = ExpenseLine{Name: src.Names, Quantity: li.Quantity, Cost: src.Price.Mul(qty)}
		default:
			continue
		}

		lines = append(lines, line)
		total = total.Add(line.Cost)
	}
	return lines, total, nil
}

func (s *service) Monthly(ctx context.Context, actorID uuid.UUID, year int, month time.Month) (*Summary, error) {
	if month < time.January || month > time.December {
		return nil, apperr.BadRequest("month must be between 1 and 12")
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return s.DateRange(ctx, actorID, from, from.AddDate(0, 1, 0))
}

func (s *service) DateRange(ctx context.Context, actorID uuid.UUID, from, to time.Time) (*Summary, error) {
	ctx, span := s.tracer.Start(ctx, "reports.date_range")
	defer span.End()

	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, apperr.BadRequest("end date must be after start date")
	}

	list, err := s.eventsBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		From:         from,
		To:           to,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		Events:       []events.Event{},
	}
	rentals := map[uuid.UUID]*inventory.RentalMaterial{}
	for _, e := range list {
		expense, err := s.eventExpense(ctx, &e, rentals)
		if err != nil {
			return nil, err
		}
		summary.TotalEvents++
		summary.TotalIncome = summary.TotalIncome.Add(e.Cost)
		summary.TotalExpense = summary.TotalExpense.Add(expense)
		summary.Events = append(summary.Events, e)
	}
	summary.Profit = summary.TotalIncome.Sub(summary.TotalExpense)

	span.SetAttributes(attribute.Int("events.counted", summary.TotalEvents))
	return summary, nil
}

func (s *service) Yearly(ctx context.Context, actorID uuid.UUID, year int) ([]MonthTotals, error) {
	ctx, span := s.tracer.Start(ctx, "reports.yearly", trace.WithAttributes(attribute.Int("year", year)))
	defer span.End()

	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return nil, err
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	list, err := s.eventsBetween(ctx, from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}

	totals := make([]MonthTotals, 12)
	for i := range totals {
		totals[i] = MonthTotals{
			Month:   strings.ToLower(time.Month(i + 1).String()),
			Income:  decimal.Zero,
			Expense: decimal.Zero,
		}
	}

	rentals := map[uuid.UUID]*inventory.RentalMaterial{}
	for _, e := range list {
		expense, err := s.eventExpense(ctx, &e, rentals)
		if err != nil {
			return nil, err
		}
		m := &totals[e.Date.UTC().Month()-1]
		m.Income = m.Income.Add(e.Cost)
		m.Expense = m.Expense.Add(expense)
	}
	return totals, nil
}

func (s *service) eventExpense(ctx context.Context, e *events.Event, rentals map[uuid.UUID]*inventory.RentalMaterial) (decimal.Decimal, error) {
	items, err := s.events.LineItems(ctx, e.ID)
	if err != nil {
		return decimal.Zero, err
	}
	_, itemsCost, err := s.itemize(ctx, items, rentals)
	if err != nil {
		return decimal.Zero, err
	}
	return e.EmployeeFee.Add(itemsCost), nil
}

// eventsBetween pages through every counted event dated in [from, to).
func (s *service) eventsBetween(ctx context.Context, from, to time.Time) ([]events.Event, error) {
	var out []events.Event
	page := store.Page{Page: 1, PerPage: store.MaxPerPage}
	for {
		batch, err := s.events.List(ctx, events.ListFilter{From: &from, To: &to, Page: page})
		if err != nil {
			return nil, err
		}
		for _, e := range batch {
			if counted(e.Status) {
				out = append(out, e)
			}
		}
		if len(batch) < page.PerPage {
			return out, nil
		}
		page.Page++
	}
}
