// internal/events/repository.go
package events

import (
	"context"
	"fmt"
	"time"

	"eventrental/internal/apperr"
	"eventrental/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type postgresRepository struct {
	db *store.DB
}

// NewRepository returns the Postgres-backed event repository.
func NewRepository(db *store.DB) Repository {
	return &postgresRepository{db: db}
}

const (
	eventColumns    = `id, name, event_date, address, size, cost, employee_fee, status, created_by, created_at, updated_at`
	lineItemColumns = `id, event_id, quantity, material_id, rental_material_id, names, item_type, price, pseudo_material_id, created_at`
	staffColumns    = `id, event_id, worker_id, fee, created_at`
)

// lineItemRow is the flattened storage shape of a LineItem.
type lineItemRow struct {
	ID               uuid.UUID           `db:"id"`
	EventID          uuid.UUID           `db:"event_id"`
	Quantity         int                 `db:"quantity"`
	MaterialID       uuid.NullUUID       `db:"material_id"`
	RentalMaterialID uuid.NullUUID       `db:"rental_material_id"`
	Names            string              `db:"names"`
	ItemType         string              `db:"item_type"`
	Price            decimal.NullDecimal `db:"price"`
	PseudoMaterialID uuid.NullUUID       `db:"pseudo_material_id"`
	CreatedAt        time.Time           `db:"created_at"`
}

func toRow(li *LineItem) (lineItemRow, error) {
	row := lineItemRow{
		ID:        li.ID,
		EventID:   li.EventID,
		Quantity:  li.Quantity,
		CreatedAt: li.CreatedAt,
	}
	switch src := li.Source.(type) {
	case MaterialSource:
		row.MaterialID = uuid.NullUUID{UUID: src.MaterialID, Valid: true}
	case RentalSource:
		row.RentalMaterialID = uuid.NullUUID{UUID: src.RentalID, Valid: true}
	case CustomSource:
		row.Names = src.Names
		row.ItemType = string(src.Type)
		row.Price = decimal.NewNullDecimal(src.Price)
		row.PseudoMaterialID = src.PseudoMaterialID
	default:
		return row, fmt.Errorf("line item %s has no source", li.ID)
	}
	return row, nil
}

func (row lineItemRow) lineItem() LineItem {
	li := LineItem{
		ID:        row.ID,
		EventID:   row.EventID,
		Quantity:  row.Quantity,
		CreatedAt: row.CreatedAt,
	}
	switch {
	case row.MaterialID.Valid:
		li.Source = MaterialSource{MaterialID: row.MaterialID.UUID}
	case row.RentalMaterialID.Valid:
		li.Source = RentalSource{RentalID: row.RentalMaterialID.UUID}
	default:
		li.Source = CustomSource{
			Names:            row.Names,
			Type:             ItemType(row.ItemType),
			Price:            row.Price.Decimal,
			PseudoMaterialID: row.PseudoMaterialID,
		}
	}
	return li
}

func lineItems(rows []lineItemRow) []LineItem {
	out := make([]LineItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.lineItem())
	}
	return out
}

func eventNotFound(id uuid.UUID) error {
	return apperr.NotFound("Event with ID %s not found", id)
}

func (r *postgresRepository) Create(ctx context.Context, e *Event) error {
	_, err := sqlx.NamedExecContext(ctx, r.db.Ext(ctx), `
		INSERT INTO events (`+eventColumns+`)
		VALUES (:id, :name, :event_date, :address, :size, :cost, :employee_fee, :status, :created_by, :created_at, :updated_at)
	`, e)
	return store.MapError(err, "insert event")
}

func (r *postgresRepository) get(ctx context.Context, id uuid.UUID, suffix string) (*Event, error) {
	var e Event
	err := sqlx.GetContext(ctx, r.db.Ext(ctx), &e, `SELECT `+eventColumns+` FROM events WHERE id = $1`+suffix, id)
	if store.IsNoRows(err) {
		return nil, eventNotFound(id)
	}
	if err != nil {
		return nil, store.MapError(err, "select event")
	}
	return &e, nil
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (*Event, error) {
	return r.get(ctx, id, "")
}

func (r *postgresRepository) Lock(ctx context.Context, id uuid.UUID) (*Event, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *postgresRepository) Update(ctx context.Context, e *Event) error {
	res, err := sqlx.NamedExecContext(ctx, r.db.Ext(ctx), `
		UPDATE events
		SET name = :name, event_date = :event_date, address = :address, size = :size, cost = :cost,
		    employee_fee = :employee_fee, status = :status, updated_at = :updated_at
		WHERE id = :id
	`, e)
	if err != nil {
		return store.MapError(err, "update event")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eventNotFound(e.ID)
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.Ext(ctx).ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return store.MapError(err, "delete event")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eventNotFound(id)
	}
	return nil
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Event, error) {
	events := []Event{}
	err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &events, `
		SELECT `+eventColumns+`
		FROM events
		WHERE ($1 = '' OR status = $1)
		AND ($2::timestamptz IS NULL OR event_date >= $2)
		AND ($3::timestamptz IS NULL OR event_date < $3)
		ORDER BY event_date DESC, id
		LIMIT $4 OFFSET $5
	`, string(filter.Status), filter.From, filter.To, filter.Page.Limit(), filter.Page.Offset())
	if err != nil {
		return nil, store.MapError(err, "list events")
	}
	return events, nil
}

func (r *postgresRepository) ListByWorker(ctx context.Context, workerID uuid.UUID, page store.Page) ([]Event, error) {
	events := []Event{}
	err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &events, `
		SELECT e.id, e.name, e.event_date, e.address, e.size, e.cost, e.employee_fee, e.status,
		       e.created_by, e.created_at, e.updated_at
		FROM events e
		JOIN event_staff s ON s.event_id = e.id
		WHERE s.worker_id = $1
		ORDER BY e.event_date DESC, e.id
		LIMIT $2 OFFSET $3
	`, workerID, page.Limit(), page.Offset())
	if err != nil {
		return nil, store.MapError(err, "list events by worker")
	}
	return events, nil
}

func (r *postgresRepository) AddLineItem(ctx context.Context, li *LineItem) error {
	row, err := toRow(li)
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, r.db.Ext(ctx), `
		INSERT INTO event_items (`+lineItemColumns+`)
		VALUES (:id, :event_id, :quantity, :material_id, :rental_material_id, :names, :item_type, :price,
		        :pseudo_material_id, :created_at)
	`, row)
	return store.MapError(err, "insert event item")
}

func (r *postgresRepository) LineItems(ctx context.Context, eventID uuid.UUID) ([]LineItem, error) {
	var rows []lineItemRow
	err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &rows, `
		SELECT `+lineItemColumns+` FROM event_items WHERE event_id = $1 ORDER BY created_at, id
	`, eventID)
	if err != nil {
		return nil, store.MapError(err, "select event items")
	}
	return lineItems(rows), nil
}

func (r *postgresRepository) GetLineItem(ctx context.Context, id uuid.UUID) (*LineItem, error) {
	var row lineItemRow
	err := sqlx.GetContext(ctx, r.db.Ext(ctx), &row, `SELECT `+lineItemColumns+` FROM event_items WHERE id = $1`, id)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("Event item with ID %s not found", id)
	}
	if err != nil {
		return nil, store.MapError(err, "select event item")
	}
	li := row.lineItem()
	return &li, nil
}

func (r *postgresRepository) ListLineItems(ctx context.Context, page store.Page) ([]LineItem, error) {
	var rows []lineItemRow
	err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &rows, `
		SELECT `+lineItemColumns+`
		FROM event_items
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, page.Limit(), page.Offset())
	if err != nil {
		return nil, store.MapError(err, "list event items")
	}
	return lineItems(rows), nil
}

func (r *postgresRepository) DeleteLineItems(ctx context.Context, eventID uuid.UUID) error {
	_, err := r.db.Ext(ctx).ExecContext(ctx, `DELETE FROM event_items WHERE event_id = $1`, eventID)
	return store.MapError(err, "delete event items")
}

func (r *postgresRepository) AddAssignment(ctx context.Context, a *Assignment) error {
	_, err := sqlx.NamedExecContext(ctx, r.db.Ext(ctx), `
		INSERT INTO event_staff (`+staffColumns+`)
		VALUES (:id, :event_id, :worker_id, :fee, :created_at)
	`, a)
	return store.MapError(err, "insert event staff")
}

func (r *postgresRepository) Assignments(ctx context.Context, eventID uuid.UUID) ([]Assignment, error) {
	staff := []Assignment{}
	err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &staff, `
		SELECT `+staffColumns+` FROM event_staff WHERE event_id = $1 ORDER BY created_at, id
	`, eventID)
	if err != nil {
		return nil, store.MapError(err, "select event staff")
	}
	return staff, nil
}

func (r *postgresRepository) DeleteAssignments(ctx context.Context, eventID uuid.UUID) error {
	_, err := r.db.Ext(ctx).ExecContext(ctx, `DELETE FROM event_staff WHERE event_id = $1`, eventID)
	return store.MapError(err, "delete event staff")
}
