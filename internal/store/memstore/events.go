// internal/store/memstore/events.go
package memstore

import (
	"context"
	"slices"

	"eventrental/internal/apperr"
	"eventrental/internal/events"
	"eventrental/internal/store"

	"github.com/google/uuid"
)

type eventsRepo struct {
	s *Store
}

func eventNotFound(id uuid.UUID) error {
	return apperr.NotFound("Event with ID %s not found", id)
}

// byDateDesc orders events newest first.
func byDateDesc(a, b events.Event) int {
	return b.Date.Compare(a.Date)
}

func (r *eventsRepo) Create(ctx context.Context, e *events.Event) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.events[e.ID]; ok {
			return apperr.BadRequest("duplicate value violates events_pkey")
		}
		if _, ok := st.users[e.CreatedBy]; !ok {
			return apperr.BadRequest("record is referenced elsewhere or references a missing record (events_created_by_fkey)")
		}
		st.events[e.ID] = row[events.Event]{seq: st.next(), v: *e}
		return nil
	})
}

func (r *eventsRepo) Get(ctx context.Context, id uuid.UUID) (*events.Event, error) {
	var out events.Event
	err := r.s.do(ctx, func(st *state) error {
		e, ok := st.events[id]
		if !ok {
			return eventNotFound(id)
		}
		out = e.v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Lock is Get: the store lock held by InTx already serializes writers.
func (r *eventsRepo) Lock(ctx context.Context, id uuid.UUID) (*events.Event, error) {
	return r.Get(ctx, id)
}

func (r *eventsRepo) Update(ctx context.Context, e *events.Event) error {
	return r.s.do(ctx, func(st *state) error {
		cur, ok := st.events[e.ID]
		if !ok {
			return eventNotFound(e.ID)
		}
		createdBy, createdAt := cur.v.CreatedBy, cur.v.CreatedAt
		cur.v = *e
		cur.v.CreatedBy, cur.v.CreatedAt = createdBy, createdAt
		st.events[e.ID] = cur
		return nil
	})
}

func (r *eventsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.events[id]; !ok {
			return eventNotFound(id)
		}
		for _, li := range st.items {
			if li.v.EventID == id {
				return apperr.BadRequest("record is referenced elsewhere or references a missing record (event_items_event_id_fkey)")
			}
		}
		for _, a := range st.staff {
			if a.v.EventID == id {
				return apperr.BadRequest("record is referenced elsewhere or references a missing record (event_staff_event_id_fkey)")
			}
		}
		for _, rec := range st.returns {
			if rec.v.EventID == id {
				return apperr.BadRequest("record is referenced elsewhere or references a missing record (returns_event_id_fkey)")
			}
		}
		delete(st.events, id)
		return nil
	})
}

func (r *eventsRepo) List(ctx context.Context, filter events.ListFilter) ([]events.Event, error) {
	var out []events.Event
	err := r.s.do(ctx, func(st *state) error {
		all := sorted(st.events, func(e events.Event) bool {
			if filter.Status != "" && e.Status != filter.Status {
				return false
			}
			if filter.From != nil && e.Date.Before(*filter.From) {
				return false
			}
			if filter.To != nil && !e.Date.Before(*filter.To) {
				return false
			}
			return true
		}, byDateDesc)
		out = store.Window(all, filter.Page)
		return nil
	})
	return out, err
}

func (r *eventsRepo) ListByWorker(ctx context.Context, workerID uuid.UUID, page store.Page) ([]events.Event, error) {
	var out []events.Event
	err := r.s.do(ctx, func(st *state) error {
		staffed := map[uuid.UUID]bool{}
		for _, a := range st.staff {
			if a.v.WorkerID == workerID {
				staffed[a.v.EventID] = true
			}
		}
		all := sorted(st.events, func(e events.Event) bool { return staffed[e.ID] }, byDateDesc)
		out = store.Window(all, page)
		return nil
	})
	return out, err
}

func (r *eventsRepo) AddLineItem(ctx context.Context, li *events.LineItem) error {
	return r.s.do(ctx, func(st *state) error {
		if li.Quantity <= 0 {
			return apperr.BadRequest("value violates event_items_quantity_check")
		}
		if _, ok := st.events[li.EventID]; !ok {
			return apperr.BadRequest("record is referenced elsewhere or references a missing record (event_items_event_id_fkey)")
		}
		switch src := li.Source.(type) {
		case events.MaterialSource:
			if _, ok := st.materials[src.MaterialID]; !ok {
				return apperr.BadRequest("record is referenced elsewhere or references a missing record (event_items_material_id_fkey)")
			}
		case events.RentalSource:
			if _, ok := st.rentals[src.RentalID]; !ok {
				return apperr.BadRequest("record is referenced elsewhere or references a missing record (event_items_rental_material_id_fkey)")
			}
		case events.CustomSource:
		default:
			return apperr.BadRequest("line item %s has no source", li.ID)
		}
		st.items[li.ID] = row[events.LineItem]{seq: st.next(), v: *li}
		return nil
	})
}

func (r *eventsRepo) LineItems(ctx context.Context, eventID uuid.UUID) ([]events.LineItem, error) {
	var out []events.LineItem
	err := r.s.do(ctx, func(st *state) error {
		out = sorted(st.items, func(li events.LineItem) bool { return li.EventID == eventID }, nil)
		return nil
	})
	return out, err
}

func (r *eventsRepo) GetLineItem(ctx context.Context, id uuid.UUID) (*events.LineItem, error) {
	var out events.LineItem
	err := r.s.do(ctx, func(st *state) error {
		li, ok := st.items[id]
		if !ok {
			return apperr.NotFound("Event item with ID %s not found", id)
		}
		out = li.v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *eventsRepo) ListLineItems(ctx context.Context, page store.Page) ([]events.LineItem, error) {
	var out []events.LineItem
	err := r.s.do(ctx, func(st *state) error {
		all := sorted(st.items, nil, nil)
		slices.Reverse(all)
		out = store.Window(all, page)
		return nil
	})
	return out, err
}

func (r *eventsRepo) DeleteLineItems(ctx context.Context, eventID uuid.UUID) error {
	return r.s.do(ctx, func(st *state) error {
		for _, rec := range st.returns {
			if rec.v.EventID == eventID {
				return apperr.BadRequest("record is referenced elsewhere or references a missing record (returns_line_item_id_fkey)")
			}
		}
		for id, li := range st.items {
			if li.v.EventID == eventID {
				delete(st.items, id)
			}
		}
		return nil
	})
}

func (r *eventsRepo) AddAssignment(ctx context.Context, a *events.Assignment) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.users[a.WorkerID]; !ok {
			return apperr.BadRequest("record is referenced elsewhere or references a missing record (event_staff_worker_id_fkey)")
		}
		for _, existing := range st.staff {
			if existing.v.EventID == a.EventID && existing.v.WorkerID == a.WorkerID {
				return apperr.BadRequest("duplicate value violates event_staff_event_id_worker_id_key")
			}
		}
		st.staff[a.ID] = row[events.Assignment]{seq: st.next(), v: *a}
		return nil
	})
}

func (r *eventsRepo) Assignments(ctx context.Context, eventID uuid.UUID) ([]events.Assignment, error) {
	var out []events.Assignment
	err := r.s.do(ctx, func(st *state) error {
		out = sorted(st.staff, func(a events.Assignment) bool { return a.EventID == eventID }, nil)
		return nil
	})
	return out, err
}

func (r *eventsRepo) DeleteAssignments(ctx context.Context, eventID uuid.UUID) error {
	return r.s.do(ctx, func(st *state) error {
		for id, a := range st.staff {
			if a.v.EventID == eventID {
				delete(st.staff, id)
			}
		}
		return nil
	})
}
