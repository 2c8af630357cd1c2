// internal/returns/repository.go
package returns

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

// NewRepository returns the Postgres-backed return record repository.
func NewRepository(db *store.DB) Repository {
	return &postgresRepository{db: db}
}

const returnColumns = `id, event_id, line_item_id, item_kind, item_id, returned_quantity, remaining_quantity, status, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, rec *Return) error {
	_, err := sqlx.NamedExecContext(ctx, r.db.Ext(ctx), `
		INSERT INTO returns (`+returnColumns+`)
		VALUES (:id, :event_id, :line_item_id, :item_kind, :item_id, :returned_quantity, :remaining_quantity,
		        :status, :created_at, :updated_at)
	`, rec)
	return store.MapError(err, "insert return")
}

func (r *postgresRepository) Update(ctx context.Context, rec *Return) error {
	res, err := sqlx.NamedExecContext(ctx, r.db.Ext(ctx), `
		UPDATE returns
		SET returned_quantity = :returned_quantity, remaining_quantity = :remaining_quantity,
		    status = :status, updated_at = :updated_at
		WHERE id = :id
	`, rec)
	if err != nil {
		return store.MapError(err, "update return")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("Return with ID %s not found", rec.ID)
	}
	return nil
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (*Return, error) {
	var rec Return
	err := sqlx.GetContext(ctx, r.db.Ext(ctx), &rec, `SELECT `+returnColumns+` FROM returns WHERE id = $1 FOR UPDATE`, id)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("Return with ID %s not found", id)
	}
	if err != nil {
		return nil, store.MapError(err, "select return")
	}
	return &rec, nil
}

func (r *postgresRepository) GetByLineItem(ctx context.Context, lineItemID uuid.UUID) (*Return, error) {
	var rec Return
	err := sqlx.GetContext(ctx, r.db.Ext(ctx), &rec, `
		SELECT `+returnColumns+` FROM returns WHERE line_item_id = $1 FOR UPDATE
	`, lineItemID)
	if store.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, store.MapError(err, "select return by item")
	}
	return &rec, nil
}

func (r *postgresRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Return, error) {
	list := []Return{}
	err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &list, `
		SELECT `+returnColumns+` FROM returns WHERE event_id = $1 ORDER BY created_at, id
	`, eventID)
	if err != nil {
		return nil, store.MapError(err, "list returns by event")
	}
	return list, nil
}

func (r *postgresRepository) List(ctx context.Context, status Status, page store.Page) ([]Return, error) {
	list := []Return{}
	err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &list, `
		SELECT `+returnColumns+`
		FROM returns
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, string(status), page.Limit(), page.Offset())
	if err != nil {
		return nil, store.MapError(err, "list returns")
	}
	return list, nil
}

func (r *postgresRepository) ReturnedByLine(ctx context.Context, eventID uuid.UUID) (map[uuid.UUID]int, error) {
	var rows []struct {
		LineItemID uuid.UUID `db:"line_item_id"`
		Returned   int       `db:"returned_quantity"`
	}
	err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &rows, `
		SELECT line_item_id, returned_quantity FROM returns WHERE event_id = $1
	`, eventID)
	if err != nil {
		return nil, store.MapError(err, "select returned quantities")
	}
	out := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		out[row.LineItemID] = row.Returned
	}
	return out, nil
}

func (r *postgresRepository) DeleteByEvent(ctx context.Context, eventID uuid.UUID) error {
	_, err := r.db.Ext(ctx).ExecContext(ctx, `DELETE FROM returns WHERE event_id = $1`, eventID)
	return store.MapError(err, "delete returns")
}
