// Package memstore keeps every repository in process memory. It backs the
// service tests and STORAGE=memory.
//
// A single mutex guards the whole state. InTx holds it for the length of
// the transaction and restores a snapshot when fn fails, which gives the
// same all-or-nothing behaviour as a serializable Postgres transaction.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"eventrental/internal/events"
	"eventrental/internal/inventory"
	"eventrental/internal/returns"
	"eventrental/internal/users"
	"eventrental/pkg/eventstore"

	"github.com/google/uuid"
)

type txKey struct{}

// row keeps insertion order next to a stored value.
type row[T any] struct {
	seq int64
	v   T
}

type state struct {
	seq int64

	users      map[uuid.UUID]row[users.User]
	categories map[uuid.UUID]row[inventory.Category]
	materials  map[uuid.UUID]row[inventory.Material]
	rentals    map[uuid.UUID]row[inventory.RentalMaterial]
	events     map[uuid.UUID]row[events.Event]
	items      map[uuid.UUID]row[events.LineItem]
	staff      map[uuid.UUID]row[events.Assignment]
	returns    map[uuid.UUID]row[returns.Return]

	log     []eventstore.Event
	offsets map[string]int64
}

func newState() *state {
	return &state{
		users:      map[uuid.UUID]row[users.User]{},
		categories: map[uuid.UUID]row[inventory.Category]{},
		materials:  map[uuid.UUID]row[inventory.Material]{},
		rentals:    map[uuid.UUID]row[inventory.RentalMaterial]{},
		events:     map[uuid.UUID]row[events.Event]{},
		items:      map[uuid.UUID]row[events.LineItem]{},
		staff:      map[uuid.UUID]row[events.Assignment]{},
		returns:    map[uuid.UUID]row[returns.Return]{},
		offsets:    map[string]int64{},
	}
}

func (st *state) clone() *state {
	return &state{
		seq:        st.seq,
		users:      maps.Clone(st.users),
		categories: maps.Clone(st.categories),
		materials:  maps.Clone(st.materials),
		rentals:    maps.Clone(st.rentals),
		events:     maps.Clone(st.events),
		items:      maps.Clone(st.items),
		staff:      maps.Clone(st.staff),
		returns:    maps.Clone(st.returns),
		log:        slices.Clone(st.log),
		offsets:    maps.Clone(st.offsets),
	}
}

func (st *state) next() int64 {
	st.seq++
	return st.seq
}

// Store is the in-memory database.
type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

// InTx runs fn with the store locked. A nested call joins the outer
// transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// do runs fn against the state, taking the lock unless ctx already holds it.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if !s.inTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.st)
}

// Users returns the user repository.
func (s *Store) Users() users.Repository { return &usersRepo{s} }

// Inventory returns the material, rental material and category repository.
func (s *Store) Inventory() inventory.Repository { return &inventoryRepo{s} }

// Events returns the event repository.
func (s *Store) Events() events.Repository { return &eventsRepo{s} }

// Returns returns the return record repository.
func (s *Store) Returns() returns.Repository { return &returnsRepo{s} }

// EventLog returns the append-only modification stream.
func (s *Store) EventLog() *EventLog { return &EventLog{s} }

// Offsets returns the relay cursor store.
func (s *Store) Offsets() *Offsets { return &Offsets{s} }

// sorted returns the values of m ordered by less, falling back to
// insertion order.
func sorted[T any](m map[uuid.UUID]row[T], keep func(T) bool, less func(a, b T) int) []T {
	rows := make([]row[T], 0, len(m))
	for _, r := range m {
		if keep == nil || keep(r.v) {
			rows = append(rows, r)
		}
	}
	slices.SortFunc(rows, func(a, b row[T]) int {
		if less != nil {
			if c := less(a.v, b.v); c != 0 {
				return c
			}
		}
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})

	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.v)
	}
	return out
}
