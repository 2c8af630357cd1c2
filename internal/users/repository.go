// internal/users/repository.go
package users

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

// NewRepository returns the Postgres-backed user repository.
func NewRepository(db *store.DB) Repository {
	return &postgresRepository{db: db}
}

const userColumns = `id, full_name, email, phone, role, status, password_hash, password_salt, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, user *User) error {
	_, err := sqlx.NamedExecContext(ctx, r.db.Ext(ctx), `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :full_name, :email, :phone, :role, :status, :password_hash, :password_salt, :created_at, :updated_at)
	`, user)
	return store.MapError(err, "insert user")
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := sqlx.GetContext(ctx, r.db.Ext(ctx), &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("User with ID %s not found", id)
	}
	if err != nil {
		return nil, store.MapError(err, "select user")
	}
	return &user, nil
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := sqlx.GetContext(ctx, r.db.Ext(ctx), &user, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("User with email %s not found", email)
	}
	if err != nil {
		return nil, store.MapError(err, "select user by email")
	}
	return &user, nil
}

func (r *postgresRepository) List(ctx context.Context, role Role, page store.Page) ([]User, error) {
	users := []User{}
	err := sqlx.SelectContext(ctx, r.db.Ext(ctx), &users, `
		SELECT `+userColumns+`
		FROM users
		WHERE ($1 = '' OR role = $1)
		ORDER BY full_name, id
		LIMIT $2 OFFSET $3
	`, string(role), page.Limit(), page.Offset())
	if err != nil {
		return nil, store.MapError(err, "list users")
	}
	return users, nil
}

func (r *postgresRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash, salt string) error {
	res, err := r.db.Ext(ctx).ExecContext(ctx, `
		UPDATE users SET password_hash = $1, password_salt = $2, updated_at = NOW() WHERE id = $3
	`, hash, salt, id)
	if err != nil {
		return store.MapError(err, "update password")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("User with ID %s not found", id)
	}
	return nil
}

func (r *postgresRepository) Update(ctx context.Context, user *User) error {
	res, err := sqlx.NamedExecContext(ctx, r.db.Ext(ctx), `
		UPDATE users
		SET full_name = :full_name, email = :email, phone = :phone, status = :status, updated_at = :updated_at
		WHERE id = :id
	`, user)
	if err != nil {
		return store.MapError(err, "update user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("User with ID %s not found", user.ID)
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.Ext(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return store.MapError(err, "delete user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("User with ID %s not found", id)
	}
	return nil
}
