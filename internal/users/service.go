// internal/users/service.go
package users

import (
	"context"

	"eventrental/internal/store"

	"github.com/google/uuid"
)

// Authorizer is the single guard privileged operations call first.
type Authorizer interface {
	// Require loads the actor and checks it holds one of roles. With no
	// roles any existing user passes.
	Require(ctx context.Context, actorID uuid.UUID, roles ...Role) (*User, error)
}

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, role Role, page store.Page) ([]User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash, salt string) error
	// Update writes the contact fields and the status of a user.
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service defines the interface for the users service.
type Service interface {
	Authorizer
	CreateUser(ctx context.Context, actorID uuid.UUID, input CreateUserInput) (*User, error)
	GetUser(ctx context.Context, actorID, id uuid.UUID) (*User, error)
	ListUsers(ctx context.Context, actorID uuid.UUID, role Role, page store.Page) ([]User, error)
	EnsureAdmin(ctx context.Context, fullName, email, password string) (*User, error)

	UpdateWorker(ctx context.Context, actorID, id uuid.UUID, input UpdateWorkerInput) (*User, error)
	InactivateWorker(ctx context.Context, actorID, id uuid.UUID) (*User, error)
	DeleteWorker(ctx context.Context, actorID, id uuid.UUID) error
}
