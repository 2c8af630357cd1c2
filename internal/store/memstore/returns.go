// internal/store/memstore/returns.go
package memstore

import (
	"context"
	"slices"

	"eventrental/internal/apperr"
	"eventrental/internal/returns"
	"eventrental/internal/store"

	"github.com/google/uuid"
)

type returnsRepo struct {
	s *Store
}

func (r *returnsRepo) Create(ctx context.Context, rec *returns.Return) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.items[rec.LineItemID]; !ok {
			return apperr.BadRequest("record is referenced elsewhere or references a missing record (returns_line_item_id_fkey)")
		}
		for _, existing := range st.returns {
			if existing.v.LineItemID == rec.LineItemID {
				return apperr.BadRequest("duplicate value violates returns_line_item_id_key")
			}
		}
		st.returns[rec.ID] = row[returns.Return]{seq: st.next(), v: *rec}
		return nil
	})
}

func (r *returnsRepo) Update(ctx context.Context, rec *returns.Return) error {
	return r.s.do(ctx, func(st *state) error {
		cur, ok := st.returns[rec.ID]
		if !ok {
			return apperr.NotFound("Return with ID %s not found", rec.ID)
		}
		cur.v.ReturnedQuantity = rec.ReturnedQuantity
		cur.v.RemainingQuantity = rec.RemainingQuantity
		cur.v.Status = rec.Status
		cur.v.UpdatedAt = rec.UpdatedAt
		st.returns[rec.ID] = cur
		return nil
	})
}

func (r *returnsRepo) Get(ctx context.Context, id uuid.UUID) (*returns.Return, error) {
	var out returns.Return
	err := r.s.do(ctx, func(st *state) error {
		rec, ok := st.returns[id]
		if !ok {
			return apperr.NotFound("Return with ID %s not found", id)
		}
		out = rec.v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *returnsRepo) GetByLineItem(ctx context.Context, lineItemID uuid.UUID) (*returns.Return, error) {
	var out *returns.Return
	err := r.s.do(ctx, func(st *state) error {
		for _, rec := range st.returns {
			if rec.v.LineItemID == lineItemID {
				v := rec.v
				out = &v
				break
			}
		}
		return nil
	})
	return out, err
}

func (r *returnsRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]returns.Return, error) {
	var out []returns.Return
	err := r.s.do(ctx, func(st *state) error {
		out = sorted(st.returns, func(rec returns.Return) bool { return rec.EventID == eventID }, nil)
		return nil
	})
	return out, err
}

func (r *returnsRepo) List(ctx context.Context, status returns.Status, page store.Page) ([]returns.Return, error) {
	var out []returns.Return
	err := r.s.do(ctx, func(st *state) error {
		all := sorted(st.returns, func(rec returns.Return) bool { return status == "" || rec.Status == status }, nil)
		slices.Reverse(all)
		out = store.Window(all, page)
		return nil
	})
	return out, err
}

func (r *returnsRepo) ReturnedByLine(ctx context.Context, eventID uuid.UUID) (map[uuid.UUID]int, error) {
	out := map[uuid.UUID]int{}
	err := r.s.do(ctx, func(st *state) error {
		for _, rec := range st.returns {
			if rec.v.EventID == eventID {
				out[rec.v.LineItemID] = rec.v.ReturnedQuantity
			}
		}
		return nil
	})
	return out, err
}

func (r *returnsRepo) DeleteByEvent(ctx context.Context, eventID uuid.UUID) error {
	return r.s.do(ctx, func(st *state) error {
		for id, rec := range st.returns {
			if rec.v.EventID == eventID {
				delete(st.returns, id)
			}
		}
		return nil
	})
}
