// internal/store/store.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventrental/internal/apperr"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TxRunner runs fn inside a single transaction. The context handed to fn
// carries the transaction, so repository calls made with it join it.
// Returning an error from fn rolls everything back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// DB is the Postgres handle shared by every repository.
type DB struct {
	*sqlx.DB
	tracer trace.Tracer
}

// Open connects to Postgres and applies pool settings.
func Open(ctx context.Context, url string) (*DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return New(db), nil
}

// New wraps an existing connection pool.
func New(db *sqlx.DB) *DB {
	return &DB{DB: db, tracer: otel.Tracer("eventrental/store")}
}

// InTx begins a serializable transaction unless ctx already carries one,
// in which case fn joins the outer transaction.
func (d *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	ctx, span := d.tracer.Start(ctx, "store.tx")
	defer span.End()

	tx, err := d.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		span.SetAttributes(attribute.Bool("tx.rolled_back", true))
		return err
	}

	if err := tx.Commit(); err != nil {
		return MapError(err, "commit transaction")
	}
	return nil
}

// Ext returns the transaction carried by ctx, or the pool.
func (d *DB) Ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return d.DB
}

// MapError translates driver errors into application errors.
func MapError(err error, op string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return apperr.BadRequest("duplicate value violates %s", pqErr.Constraint)
		case "23503":
			return apperr.BadRequest("record is referenced elsewhere or references a missing record (%s)", pqErr.Constraint)
		case "23514":
			return apperr.BadRequest("value violates %s", pqErr.Constraint)
		case "40001", "40P01":
			return apperr.Conflict("concurrent update detected, please retry")
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsNoRows reports whether err is the driver's empty result error.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
