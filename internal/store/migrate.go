// internal/store/migrate.go
package store

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schema string

// Migrate creates any missing tables. Statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Truncate empties every table. Used by database tests.
func (d *DB) Truncate(ctx context.Context) error {
	_, err := d.ExecContext(ctx, `
		TRUNCATE TABLE returns, event_staff, event_items, events, materials,
			rental_materials, categories, users, domain_events, relay_offsets CASCADE
	`)
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
