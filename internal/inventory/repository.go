// internal/inventory/repository.go
package inventory

import (
	"context"

	"eventrental/internal/apperr"
	"eventrental/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type postgresRepository struct {
	db *store.DB
}

// NewRepository returns the Postgres-backed inventory repository.
func NewRepository(db *store.DB) Repository {
	return &postgresRepository{db: db}
}

const (
	materialColumns = `id, name, category_id, quantity, reserved, price, rental_price, ad_hoc, created_at, updated_at`
	rentalColumns   = `id, name, category_id, quantity, reserved, renting_cost, vendor_name, vendor_contact, rental_date, return_date, status, created_at, updated_at`
)

type stockRow struct {
	ID       uuid.UUID `db:"id"`
	Name     string    `db:"name"`
	Quantity int       `db:"quantity"`
	Reserved int       `db:"reserved"`
	Active   bool      `db:"active"`
}

func notFound(ref Ref) error {
	if ref.Kind == KindRental {
		return apperr.NotFound("Rental material with ID %s not found", ref.ID)
	}
	return apperr.NotFound("Material with ID %s not found", ref.ID)
}

// LockStock reads a stock row with a row lock held until the surrounding
// transaction ends.
func (r *postgresRepository) LockStock(ctx context.Context, ref Ref) (*Stock, error) {
	var query string
	switch ref.Kind {
	case KindMaterial:
		query = `SELECT id, name, quantity, reserved, TRUE AS active FROM materials WHERE id = $1 FOR UPDATE`
	case KindRental:
		query = `SELECT id, name, quantity, reserved, status = 'active' AS active FROM rental_materials WHERE id = $1 FOR UPDATE`
	default:
		return nil, apperr.BadRequest("unknown inventory kind %q", ref.Kind)
	}

	var row stockRow
	err := sqlx.GetContext(ctx, r.db.Ext(ctx), &row, query, ref.ID)
	if store.IsNoRows(err) {
		return nil, notFound(ref)
	}
	if err != nil {
		return nil, store.MapError(err, "lock stock")
	}
	return &Stock{Ref: ref, Name: row.Name, Quantity: row.Quantity, Reserved: row.Reserved, Active: row.Active}, nil
}

func (r *postgresRepository) SetStock(ctx context.Context, ref Ref, quantity, reserved int) error {
	var query string
	switch ref.Kind {
	case KindMaterial:
		query = `UPDATE materials SET quantity = $1, reserved = $2, updated_at = NOW() WHERE id = $3`
	case KindRental:
		query = `UPDATE rental_materials SET quantity = $1, reserved = $2, updated_at = NOW() WHERE id = $3`
	default:
		return apperr.BadRequest("unknown inventory kind %q", ref.Kind)
	}

	res, err := r.db.Ext(ctx).ExecContext(ctx, query, quantity, reserved, ref.ID)
	if err != nil {
		return store.MapError(err, "update stock")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(ref)
	}
	return nil
}

func (r *postgresRepository) CreateMaterial(ctx context.Context, m *Material) error {
	_, err := sqlx.NamedExecContext(ctx, r.db.Ext(ctx), `
		INSERT INTO materials (`+materialColumns+`)
		VALUES (:id, :name, :category_id, :quantity, :reserved, :price, :rental_price, :ad_hoc, :created_at, :updated_at)
	`, m)
	return store.MapError(err, "insert material")
}

func (r *postgresRepository) GetMaterial(ctx context.Context, id uuid.UUID) (*Material, error) {
	var m Material
	err := sqlx.GetContext(ctx, r.db.Ext(ctx), &m, `SELECT `+materialColumns+` FROM materials WHERE id = $1`, id)
	if store.IsNoRows(err) {
		return nil, notFound(MaterialRef(id))
	}
	if err != nil {
		return nil, store.MapError(err, "select material")
	}
	return &m, nil
}

func (r *postgresRepository) ListMaterials(ctx context.Context, page store.Page) ([]Material, error) {
	materials := []Material{}
	err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &materials, `
		SELECT `+materialColumns+`
		FROM materials
		WHERE ad_hoc = FALSE
		ORDER BY name, id
		LIMIT $1 OFFSET $2
	`, page.Limit(), page.Offset())
	if err != nil {
		return nil, store.MapError(err, "list materials")
	}
	return materials, nil
}

func (r *postgresRepository) UpdateMaterial(ctx context.Context, m *Material) error {
	res, err := sqlx.NamedExecContext(ctx, r.db.Ext(ctx), `
		UPDATE materials
		SET name = :name, category_id = :category_id, quantity = :quantity, price = :price,
		    rental_price = :rental_price, updated_at = :updated_at
		WHERE id = :id
	`, m)
	if err != nil {
		return store.MapError(err, "update material")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(MaterialRef(m.ID))
	}
	return nil
}

func (r *postgresRepository) DeleteMaterial(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.Ext(ctx).ExecContext(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return store.MapError(err, "delete material")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(MaterialRef(id))
	}
	return nil
}

func (r *postgresRepository) CreateRental(ctx context.Context, rm *RentalMaterial) error {
	_, err := sqlx.NamedExecContext(ctx, r.db.Ext(ctx), `
		INSERT INTO rental_materials (`+rentalColumns+`)
		VALUES (:id, :name, :category_id, :quantity, :reserved, :renting_cost, :vendor_name, :vendor_contact,
		        :rental_date, :return_date, :status, :created_at, :updated_at)
	`, rm)
	return store.MapError(err, "insert rental material")
}

func (r *postgresRepository) GetRental(ctx context.Context, id uuid.UUID) (*RentalMaterial, error) {
	var rm RentalMaterial
	err := sqlx.GetContext(ctx, r.db.Ext(ctx), &rm, `SELECT `+rentalColumns+` FROM rental_materials WHERE id = $1`, id)
	if store.IsNoRows(err) {
		return nil, notFound(RentalRef(id))
	}
	if err != nil {
		return nil, store.MapError(err, "select rental material")
	}
	return &rm, nil
}

func (r *postgresRepository) ListRentals(ctx context.Context, status RentalStatus, page store.Page) ([]RentalMaterial, error) {
	rentals := []RentalMaterial{}
	err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &rentals, `
		SELECT `+rentalColumns+`
		FROM rental_materials
		WHERE ($1 = '' OR status = $1)
		ORDER BY name, id
		LIMIT $2 OFFSET $3
	`, string(status), page.Limit(), page.Offset())
	if err != nil {
		return nil, store.MapError(err, "list rental materials")
	}
	return rentals, nil
}

func (r *postgresRepository) UpdateRental(ctx context.Context, rm *RentalMaterial) error {
	res, err := sqlx.NamedExecContext(ctx, r.db.Ext(ctx), `
		UPDATE rental_materials
		SET name = :name, category_id = :category_id, quantity = :quantity, renting_cost = :renting_cost,
		    vendor_name = :vendor_name, vendor_contact = :vendor_contact, rental_date = :rental_date,
		    return_date = :return_date, status = :status, updated_at = :updated_at
		WHERE id = :id
	`, rm)
	if err != nil {
		return store.MapError(err, "update rental material")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(RentalRef(rm.ID))
	}
	return nil
}

func (r *postgresRepository) CreateCategory(ctx context.Context, c *Category) error {
	_, err := sqlx.NamedExecContext(ctx, r.db.Ext(ctx), `
		INSERT INTO categories (id, name, created_at) VALUES (:id, :name, :created_at)
	`, c)
	return store.MapError(err, "insert category")
}

func (r *postgresRepository) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	var c Category
	err := sqlx.GetContext(ctx, r.db.Ext(ctx), &c, `SELECT id, name, created_at FROM categories WHERE id = $1`, id)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("Category with ID %s not found", id)
	}
	if err != nil {
		return nil, store.MapError(err, "select category")
	}
	return &c, nil
}

func (r *postgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	categories := []Category{}
	err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &categories, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, store.MapError(err, "list categories")
	}
	return categories, nil
}
