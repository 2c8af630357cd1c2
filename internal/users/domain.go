// internal/users/domain.go
package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the capability a user acts with.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleWorker Role = "worker"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleWorker
}

// Status says whether a worker can still be staffed.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// User is an admin or a worker that can be staffed on events.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	FullName     string    `json:"fullName" db:"full_name"`
	Email        string    `json:"email,omitempty" db:"email"`
	Phone        string    `json:"phone,omitempty" db:"phone"`
	Role         Role      `json:"role" db:"role"`
	Status       Status    `json:"status" db:"status"`
	PasswordHash string    `json:"-" db:"password_hash"`
	PasswordSalt string    `json:"-" db:"password_salt"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// CreateUserInput describes a user registered by an admin.
type CreateUserInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// UpdateWorkerInput carries the contact fields an admin may change on a
// worker. Nil fields are left as they are.
type UpdateWorkerInput struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
}

// NewWorker builds a worker record for someone added to an event by name.
func NewWorker(fullName string) *User {
	now := time.Now().UTC()
	return &User{
		ID:        uuid.New(),
		FullName:  strings.TrimSpace(fullName),
		Role:      RoleWorker,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
