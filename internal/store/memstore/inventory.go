// internal/store/memstore/inventory.go
package memstore

import (
	"context"
	"strings"

	"eventrental/internal/apperr"
	"eventrental/internal/events"
	"eventrental/internal/inventory"
	"eventrental/internal/store"

	"github.com/google/uuid"
)

type inventoryRepo struct {
	s *Store
}

func stockNotFound(ref inventory.Ref) error {
	if ref.Kind == inventory.KindRental {
		return apperr.NotFound("Rental material with ID %s not found", ref.ID)
	}
	return apperr.NotFound("Material with ID %s not found", ref.ID)
}

func checkCategory(st *state, id uuid.NullUUID) error {
	if id.Valid {
		if _, ok := st.categories[id.UUID]; !ok {
			return apperr.BadRequest("record is referenced elsewhere or references a missing record (category_id_fkey)")
		}
	}
	return nil
}

func (r *inventoryRepo) LockStock(ctx context.Context, ref inventory.Ref) (*inventory.Stock, error) {
	var out *inventory.Stock
	err := r.s.do(ctx, func(st *state) error {
		switch ref.Kind {
		case inventory.KindMaterial:
			m, ok := st.materials[ref.ID]
			if !ok {
				return stockNotFound(ref)
			}
			out = &inventory.Stock{Ref: ref, Name: m.v.Name, Quantity: m.v.Quantity, Reserved: m.v.Reserved, Active: true}
		case inventory.KindRental:
			rm, ok := st.rentals[ref.ID]
			if !ok {
				return stockNotFound(ref)
			}
			out = &inventory.Stock{
				Ref:      ref,
				Name:     rm.v.Name,
				Quantity: rm.v.Quantity,
				Reserved: rm.v.Reserved,
				Active:   rm.v.Status == inventory.RentalActive,
			}
		default:
			return apperr.BadRequest("unknown inventory kind %q", ref.Kind)
		}
		return nil
	})
	return out, err
}

func (r *inventoryRepo) SetStock(ctx context.Context, ref inventory.Ref, quantity, reserved int) error {
	if quantity < 0 || reserved < 0 {
		return apperr.BadRequest("value violates %s_quantity_check", ref.Kind)
	}
	return r.s.do(ctx, func(st *state) error {
		switch ref.Kind {
		case inventory.KindMaterial:
			m, ok := st.materials[ref.ID]
			if !ok {
				return stockNotFound(ref)
			}
			m.v.Quantity, m.v.Reserved = quantity, reserved
			st.materials[ref.ID] = m
		case inventory.KindRental:
			rm, ok := st.rentals[ref.ID]
			if !ok {
				return stockNotFound(ref)
			}
			rm.v.Quantity, rm.v.Reserved = quantity, reserved
			st.rentals[ref.ID] = rm
		default:
			return apperr.BadRequest("unknown inventory kind %q", ref.Kind)
		}
		return nil
	})
}

func (r *inventoryRepo) CreateMaterial(ctx context.Context, m *inventory.Material) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.materials[m.ID]; ok {
			return apperr.BadRequest("duplicate value violates materials_pkey")
		}
		if err := checkCategory(st, m.CategoryID); err != nil {
			return err
		}
		st.materials[m.ID] = row[inventory.Material]{seq: st.next(), v: *m}
		return nil
	})
}

func (r *inventoryRepo) GetMaterial(ctx context.Context, id uuid.UUID) (*inventory.Material, error) {
	var out inventory.Material
	err := r.s.do(ctx, func(st *state) error {
		m, ok := st.materials[id]
		if !ok {
			return stockNotFound(inventory.MaterialRef(id))
		}
		out = m.v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *inventoryRepo) ListMaterials(ctx context.Context, page store.Page) ([]inventory.Material, error) {
	var out []inventory.Material
	err := r.s.do(ctx, func(st *state) error {
		all := sorted(st.materials,
			func(m inventory.Material) bool { return !m.AdHoc },
			func(a, b inventory.Material) int { return strings.Compare(a.Name, b.Name) })
		out = store.Window(all, page)
		return nil
	})
	return out, err
}

func (r *inventoryRepo) UpdateMaterial(ctx context.Context, m *inventory.Material) error {
	return r.s.do(ctx, func(st *state) error {
		cur, ok := st.materials[m.ID]
		if !ok {
			return stockNotFound(inventory.MaterialRef(m.ID))
		}
		if err := checkCategory(st, m.CategoryID); err != nil {
			return err
		}
		cur.v.Name = m.Name
		cur.v.CategoryID = m.CategoryID
		cur.v.Quantity = m.Quantity
		cur.v.Price = m.Price
		cur.v.RentalPrice = m.RentalPrice
		cur.v.UpdatedAt = m.UpdatedAt
		st.materials[m.ID] = cur
		return nil
	})
}

// DeleteMaterial refuses materials referenced by a line item and clears
// pseudo-material references, like the foreign keys of the SQL schema.
func (r *inventoryRepo) DeleteMaterial(ctx context.Context, id uuid.UUID) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.materials[id]; !ok {
			return stockNotFound(inventory.MaterialRef(id))
		}
		for itemID, li := range st.items {
			switch src := li.v.Source.(type) {
			case events.MaterialSource:
				if src.MaterialID == id {
					return apperr.BadRequest("record is referenced elsewhere or references a missing record (event_items_material_id_fkey)")
				}
			case events.CustomSource:
				if src.PseudoMaterialID.Valid && src.PseudoMaterialID.UUID == id {
					src.PseudoMaterialID = uuid.NullUUID{}
					li.v.Source = src
					st.items[itemID] = li
				}
			}
		}
		delete(st.materials, id)
		return nil
	})
}

func (r *inventoryRepo) CreateRental(ctx context.Context, rm *inventory.RentalMaterial) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.rentals[rm.ID]; ok {
			return apperr.BadRequest("duplicate value violates rental_materials_pkey")
		}
		if err := checkCategory(st, rm.CategoryID); err != nil {
			return err
		}
		st.rentals[rm.ID] = row[inventory.RentalMaterial]{seq: st.next(), v: *rm}
		return nil
	})
}

func (r *inventoryRepo) GetRental(ctx context.Context, id uuid.UUID) (*inventory.RentalMaterial, error) {
	var out inventory.RentalMaterial
	err := r.s.do(ctx, func(st *state) error {
		rm, ok := st.rentals[id]
		if !ok {
			return stockNotFound(inventory.RentalRef(id))
		}
		out = rm.v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *inventoryRepo) ListRentals(ctx context.Context, status inventory.RentalStatus, page store.Page) ([]inventory.RentalMaterial, error) {
	var out []inventory.RentalMaterial
	err := r.s.do(ctx, func(st *state) error {
		all := sorted(st.rentals,
			func(rm inventory.RentalMaterial) bool { return status == "" || rm.Status == status },
			func(a, b inventory.RentalMaterial) int { return strings.Compare(a.Name, b.Name) })
		out = store.Window(all, page)
		return nil
	})
	return out, err
}

func (r *inventoryRepo) UpdateRental(ctx context.Context, rm *inventory.RentalMaterial) error {
	return r.s.do(ctx, func(st *state) error {
		cur, ok := st.rentals[rm.ID]
		if !ok {
			return stockNotFound(inventory.RentalRef(rm.ID))
		}
		if err := checkCategory(st, rm.CategoryID); err != nil {
			return err
		}
		reserved := cur.v.Reserved
		cur.v = *rm
		cur.v.Reserved = reserved
		st.rentals[rm.ID] = cur
		return nil
	})
}

func (r *inventoryRepo) CreateCategory(ctx context.Context, c *inventory.Category) error {
	return r.s.do(ctx, func(st *state) error {
		for _, existing := range st.categories {
			if existing.v.Name == c.Name {
				return apperr.BadRequest("duplicate value violates categories_name_key")
			}
		}
		st.categories[c.ID] = row[inventory.Category]{seq: st.next(), v: *c}
		return nil
	})
}

func (r *inventoryRepo) GetCategory(ctx context.Context, id uuid.UUID) (*inventory.Category, error) {
	var out inventory.Category
	err := r.s.do(ctx, func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return apperr.NotFound("Category with ID %s not found", id)
		}
		out = c.v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *inventoryRepo) ListCategories(ctx context.Context) ([]inventory.Category, error) {
	var out []inventory.Category
	err := r.s.do(ctx, func(st *state) error {
		out = sorted(st.categories, nil, func(a, b inventory.Category) int { return strings.Compare(a.Name, b.Name) })
		return nil
	})
	return out, err
}
