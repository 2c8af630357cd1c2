// internal/store/memstore/users.go
package memstore

import (
	"context"
	"strings"

	"eventrental/internal/apperr"
	"eventrental/internal/store"
	"eventrental/internal/users"

	"github.com/google/uuid"
)

type usersRepo struct {
	s *Store
}

func (r *usersRepo) Create(ctx context.Context, u *users.User) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.users[u.ID]; ok {
			return apperr.BadRequest("duplicate value violates users_pkey")
		}
		if u.Email != "" {
			for _, existing := range st.users {
				if strings.EqualFold(existing.v.Email, u.Email) {
					return apperr.BadRequest("duplicate value violates users_email_key")
				}
			}
		}
		st.users[u.ID] = row[users.User]{seq: st.next(), v: *u}
		return nil
	})
}

func (r *usersRepo) Get(ctx context.Context, id uuid.UUID) (*users.User, error) {
	var out users.User
	err := r.s.do(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return apperr.NotFound("User with ID %s not found", id)
		}
		out = u.v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	var out *users.User
	err := r.s.do(ctx, func(st *state) error {
		for _, u := range st.users {
			if u.v.Email != "" && strings.EqualFold(u.v.Email, email) {
				v := u.v
				out = &v
				return nil
			}
		}
		return apperr.NotFound("User with email %s not found", email)
	})
	return out, err
}

func (r *usersRepo) List(ctx context.Context, role users.Role, page store.Page) ([]users.User, error) {
	var out []users.User
	err := r.s.do(ctx, func(st *state) error {
		all := sorted(st.users,
			func(u users.User) bool { return role == "" || u.Role == role },
			func(a, b users.User) int { return strings.Compare(a.FullName, b.FullName) })
		out = store.Window(all, page)
		return nil
	})
	return out, err
}

func (r *usersRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash, salt string) error {
	return r.s.do(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return apperr.NotFound("User with ID %s not found", id)
		}
		u.v.PasswordHash, u.v.PasswordSalt = hash, salt
		st.users[id] = u
		return nil
	})
}

func (r *usersRepo) Update(ctx context.Context, u *users.User) error {
	return r.s.do(ctx, func(st *state) error {
		cur, ok := st.users[u.ID]
		if !ok {
			return apperr.NotFound("User with ID %s not found", u.ID)
		}
		if u.Email != "" {
			for id, existing := range st.users {
				if id != u.ID && strings.EqualFold(existing.v.Email, u.Email) {
					return apperr.BadRequest("duplicate value violates users_email_key")
				}
			}
		}
		cur.v.FullName, cur.v.Email, cur.v.Phone = u.FullName, u.Email, u.Phone
		cur.v.Status = u.Status
		cur.v.UpdatedAt = u.UpdatedAt
		st.users[u.ID] = cur
		return nil
	})
}

func (r *usersRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return apperr.NotFound("User with ID %s not found", id)
		}
		for _, a := range st.staff {
			if a.v.WorkerID == id {
				return apperr.BadRequest("record is referenced elsewhere or references a missing record (event_staff_worker_id_fkey)")
			}
		}
		for _, e := range st.events {
			if e.v.CreatedBy == id {
				return apperr.BadRequest("record is referenced elsewhere or references a missing record (events_created_by_fkey)")
			}
		}
		delete(st.users, id)
		return nil
	})
}
