// internal/messaging/offsets.go
package messaging

import (
	"context"

	"eventrental/internal/store"

	"github.com/jmoiron/sqlx"
)

type postgresOffsets struct {
	db *store.DB
}

// NewOffsetStore returns relay cursors kept in the relay_offsets table.
func NewOffsetStore(db *store.DB) OffsetStore {
	return &postgresOffsets{db: db}
}

func (o *postgresOffsets) Load(ctx context.Context, name string) (int64, error) {
	var id int64
	err := sqlx.GetContext(ctx, o.db.Ext(ctx), &id, `SELECT last_id FROM relay_offsets WHERE name = $1`, name)
	if store.IsNoRows(err) {
		return 0, nil
	}
	if err != nil {
		return 0, store.MapError(err, "select relay offset")
	}
	return id, nil
}

func (o *postgresOffsets) Save(ctx context.Context, name string, lastID int64) error {
	_, err := o.db.Ext(ctx).ExecContext(ctx, `
		INSERT INTO relay_offsets (name, last_id, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET last_id = EXCLUDED.last_id, updated_at = NOW()
	`, name, lastID)
	return store.MapError(err, "save relay offset")
}
