// internal/inventory/service.go
package inventory

import (
	"context"

	"eventrental/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger moves units between available and reserved. Callers run it inside
// their own transaction.
type Ledger interface {
	// Reserve takes qty units out of available stock.
	Reserve(ctx context.Context, ref Ref, qty int) (*Stock, error)
	// Release puts qty previously reserved units back into available stock.
	Release(ctx context.Context, ref Ref, qty int) (*Stock, error)
	// Available locks and returns the current stock row.
	Available(ctx context.Context, ref Ref) (*Stock, error)
	// CreateAdHoc creates a pseudo-material for one custom returnable line
	// item and reserves all of it for that line.
	CreateAdHoc(ctx context.Context, name string, qty int, price decimal.Decimal) (*Material, error)
	// RemoveAdHoc deletes a pseudo-material.
	RemoveAdHoc(ctx context.Context, id uuid.UUID) error
}

// Repository persists both stock pools and categories.
type Repository interface {
	LockStock(ctx context.Context, ref Ref) (*Stock, error)
	SetStock(ctx context.Context, ref Ref, quantity, reserved int) error

	CreateMaterial(ctx context.Context, m *Material) error
	GetMaterial(ctx context.Context, id uuid.UUID) (*Material, error)
	ListMaterials(ctx context.Context, page store.Page) ([]Material, error)
	UpdateMaterial(ctx context.Context, m *Material) error
	DeleteMaterial(ctx context.Context, id uuid.UUID) error

	CreateRental(ctx context.Context, rm *RentalMaterial) error
	GetRental(ctx context.Context, id uuid.UUID) (*RentalMaterial, error)
	ListRentals(ctx context.Context, status RentalStatus, page store.Page) ([]RentalMaterial, error)
	UpdateRental(ctx context.Context, rm *RentalMaterial) error

	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
}

// Service defines the interface for inventory management.
type Service interface {
	CreateMaterial(ctx context.Context, actorID uuid.UUID, input MaterialInput) (*Material, error)
	GetMaterial(ctx context.Context, actorID, id uuid.UUID) (*Material, error)
	ListMaterials(ctx context.Context, actorID uuid.UUID, page store.Page) ([]Material, error)
	UpdateMaterial(ctx context.Context, actorID, id uuid.UUID, input MaterialInput) (*Material, error)
	DeleteMaterial(ctx context.Context, actorID, id uuid.UUID) error

	CreateRental(ctx context.Context, actorID uuid.UUID, input RentalInput) (*RentalMaterial, error)
	GetRental(ctx context.Context, actorID, id uuid.UUID) (*RentalMaterial, error)
	ListRentals(ctx context.Context, actorID uuid.UUID, status RentalStatus, page store.Page) ([]RentalMaterial, error)
	UpdateRental(ctx context.Context, actorID, id uuid.UUID, input RentalInput) (*RentalMaterial, error)
	DeactivateRental(ctx context.Context, actorID, id uuid.UUID) (*RentalMaterial, error)

	CreateCategory(ctx context.Context, actorID uuid.UUID, name string) (*Category, error)
	ListCategories(ctx context.Context, actorID uuid.UUID) ([]Category, error)
}
