// internal/inventory/implementation.go
package inventory

import (
	"context"
	"strings"
	"time"

	"eventrental/internal/apperr"
	"eventrental/internal/store"
	"eventrental/internal/users"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// service implements the Service interface.
type service struct {
	repo   Repository
	tx     store.TxRunner
	auth   users.Authorizer
	logger *zap.Logger
}

// NewService creates a new inventory service instance.
func NewService(repo Repository, tx store.TxRunner, auth users.Authorizer, logger *zap.Logger) Service {
	return &service{repo: repo, tx: tx, auth: auth, logger: logger}
}

func (s *service) CreateMaterial(ctx context.Context, actorID uuid.UUID, input MaterialInput) (*Material, error) {
	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return nil, err
	}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, apperr.BadRequest("name is required")
	}
	if input.Quantity == nil || *input.Quantity < 0 {
		return nil, apperr.BadRequest("quantity must be zero or more")
	}
	if err := checkPrices(input.Price, input.RentalPrice); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &Material{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(*input.Name),
		Quantity:  *input.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Price != nil {
		m.Price = decimal.NewNullDecimal(*input.Price)
	}
	if input.RentalPrice != nil {
		m.RentalPrice = decimal.NewNullDecimal(*input.RentalPrice)
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if input.CategoryID != nil {
			if _, err := s.repo.GetCategory(ctx, *input.CategoryID); err != nil {
				return err
			}
			m.CategoryID = uuid.NullUUID{UUID: *input.CategoryID, Valid: true}
		}
		return s.repo.CreateMaterial(ctx, m)
	})
	if err != nil {
		return nil, apperr.Normalize(err, "create material")
	}

	s.logger.Info("material created", zap.String("material_id", m.ID.String()), zap.Int("quantity", m.Quantity))
	return m, nil
}

func (s *service) GetMaterial(ctx context.Context, actorID, id uuid.UUID) (*Material, error) {
	if _, err := s.auth.Require(ctx, actorID); err != nil {
		return nil, err
	}
	return s.repo.GetMaterial(ctx, id)
}

func (s *service) ListMaterials(ctx context.Context, actorID uuid.UUID, page store.Page) ([]Material, error) {
	if _, err := s.auth.Require(ctx, actorID); err != nil {
		return nil, err
	}
	return s.repo.ListMaterials(ctx, page)
}

func (s *service) UpdateMaterial(ctx context.Context, actorID, id uuid.UUID, input MaterialInput) (*Material, error) {
	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return nil, err
	}
	if err := checkPrices(input.Price, input.RentalPrice); err != nil {
		return nil, err
	}

	var updated *Material
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockStock(ctx, MaterialRef(id)); err != nil {
			return err
		}
		m, err := s.repo.GetMaterial(ctx, id)
		if err != nil {
			return err
		}
		if m.AdHoc {
			return apperr.BadRequest("ad-hoc item %s is managed by its event", m.Name)
		}
		if input.Name != nil {
			if strings.TrimSpace(*input.Name) == "" {
				return apperr.BadRequest("name cannot be empty")
			}
			m.Name = strings.TrimSpace(*input.Name)
		}
		if input.Quantity != nil {
			if *input.Quantity < 0 {
				return apperr.BadRequest("quantity must be zero or more")
			}
			if m.Reserved > 0 && *input.Quantity != m.Quantity {
				return apperr.BadRequest("Material %s has %d units reserved by events; its quantity cannot be edited", m.Name, m.Reserved)
			}
			m.Quantity = *input.Quantity
		}
		if input.Price != nil {
			m.Price = decimal.NewNullDecimal(*input.Price)
		}
		if input.RentalPrice != nil {
			m.RentalPrice = decimal.NewNullDecimal(*input.RentalPrice)
		}
		if input.CategoryID != nil {
			if _, err := s.repo.GetCategory(ctx, *input.CategoryID); err != nil {
				return err
			}
			m.CategoryID = uuid.NullUUID{UUID: *input.CategoryID, Valid: true}
		}
		m.UpdatedAt = time.Now().UTC()
		updated = m
		return s.repo.UpdateMaterial(ctx, m)
	})
	if err != nil {
		return nil, apperr.Normalize(err, "update material")
	}
	return updated, nil
}

func (s *service) DeleteMaterial(ctx context.Context, actorID, id uuid.UUID) error {
	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return err
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		stock, err := s.repo.LockStock(ctx, MaterialRef(id))
		if err != nil {
			return err
		}
		if stock.Reserved > 0 {
			return apperr.BadRequest("Material %s has %d units reserved by events", stock.Name, stock.Reserved)
		}
		return s.repo.DeleteMaterial(ctx, id)
	})
	if err != nil {
		return apperr.Normalize(err, "delete material")
	}
	s.logger.Info("material deleted", zap.String("material_id", id.String()))
	return nil
}

func (s *service) CreateRental(ctx context.Context, actorID uuid.UUID, input RentalInput) (*RentalMaterial, error) {
	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return nil, err
	}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, apperr.BadRequest("name is required")
	}
	if input.Quantity == nil || *input.Quantity < 0 {
		return nil, apperr.BadRequest("quantity must be zero or more")
	}
	if input.RentingCost == nil || input.RentingCost.IsNegative() {
		return nil, apperr.BadRequest("rentingCost must be zero or more")
	}

	now := time.Now().UTC()
	rm := &RentalMaterial{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(*input.Name),
		Quantity:    *input.Quantity,
		RentingCost: *input.RentingCost,
		RentalDate:  input.RentalDate,
		ReturnDate:  input.ReturnDate,
		Status:      RentalActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.VendorName != nil {
		rm.VendorName = *input.VendorName
	}
	if input.VendorContact != nil {
		rm.VendorContact = *input.VendorContact
	}
	if err := checkRentalDates(rm); err != nil {
		return nil, err
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if input.CategoryID != nil {
			if _, err := s.repo.GetCategory(ctx, *input.CategoryID); err != nil {
				return err
			}
			rm.CategoryID = uuid.NullUUID{UUID: *input.CategoryID, Valid: true}
		}
		return s.repo.CreateRental(ctx, rm)
	})
	if err != nil {
		return nil, apperr.Normalize(err, "create rental material")
	}

	s.logger.Info("rental material created", zap.String("rental_id", rm.ID.String()), zap.String("vendor", rm.VendorName))
	return rm, nil
}

func (s *service) GetRental(ctx context.Context, actorID, id uuid.UUID) (*RentalMaterial, error) {
	if _, err := s.auth.Require(ctx, actorID); err != nil {
		return nil, err
	}
	return s.repo.GetRental(ctx, id)
}

func (s *service) ListRentals(ctx context.Context, actorID uuid.UUID, status RentalStatus, page store.Page) ([]RentalMaterial, error) {
	if _, err := s.auth.Require(ctx, actorID); err != nil {
		return nil, err
	}
	if status != "" && status != RentalActive && status != RentalInactive {
		return nil, apperr.BadRequest("unknown rental status %q", status)
	}
	return s.repo.ListRentals(ctx, status, page)
}

func (s *service) UpdateRental(ctx context.Context, actorID, id uuid.UUID, input RentalInput) (*RentalMaterial, error) {
	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return nil, err
	}

	var updated *RentalMaterial
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockStock(ctx, RentalRef(id)); err != nil {
			return err
		}
		rm, err := s.repo.GetRental(ctx, id)
		if err != nil {
			return err
		}
		if input.Name != nil {
			if strings.TrimSpace(*input.Name) == "" {
				return apperr.BadRequest("name cannot be empty")
			}
			rm.Name = strings.TrimSpace(*input.Name)
		}
		if input.Quantity != nil {
			if *input.Quantity < 0 {
				return apperr.BadRequest("quantity must be zero or more")
			}
			if rm.Reserved > 0 && *input.Quantity != rm.Quantity {
				return apperr.BadRequest("Rental material %s has %d units reserved by events; its quantity cannot be edited", rm.Name, rm.Reserved)
			}
			rm.Quantity = *input.Quantity
		}
		if input.RentingCost != nil {
			if input.RentingCost.IsNegative() {
				return apperr.BadRequest("rentingCost must be zero or more")
			}
			rm.RentingCost = *input.RentingCost
		}
		if input.VendorName != nil {
			rm.VendorName = *input.VendorName
		}
		if input.VendorContact != nil {
			rm.VendorContact = *input.VendorContact
		}
		if input.RentalDate != nil {
			rm.RentalDate = input.RentalDate
		}
		if input.ReturnDate != nil {
			rm.ReturnDate = input.ReturnDate
		}
		if err := checkRentalDates(rm); err != nil {
			return err
		}
		if input.CategoryID != nil {
			if _, err := s.repo.GetCategory(ctx, *input.CategoryID); err != nil {
				return err
			}
			rm.CategoryID = uuid.NullUUID{UUID: *input.CategoryID, Valid: true}
		}
		rm.UpdatedAt = time.Now().UTC()
		updated = rm
		return s.repo.UpdateRental(ctx, rm)
	})
	if err != nil {
		return nil, apperr.Normalize(err, "update rental material")
	}
	return updated, nil
}

// DeactivateRental marks a rental as returned to its vendor. Units still
// reserved by events block it.
func (s *service) DeactivateRental(ctx context.Context, actorID, id uuid.UUID) (*RentalMaterial, error) {
	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return nil, err
	}

	var updated *RentalMaterial
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		stock, err := s.repo.LockStock(ctx, RentalRef(id))
		if err != nil {
			return err
		}
		if stock.Reserved > 0 {
			return apperr.BadRequest("Rental material %s has %d units reserved by events", stock.Name, stock.Reserved)
		}
		rm, err := s.repo.GetRental(ctx, id)
		if err != nil {
			return err
		}
		rm.Status = RentalInactive
		rm.UpdatedAt = time.Now().UTC()
		updated = rm
		return s.repo.UpdateRental(ctx, rm)
	})
	if err != nil {
		return nil, apperr.Normalize(err, "deactivate rental material")
	}

	s.logger.Info("rental material deactivated", zap.String("rental_id", id.String()))
	return updated, nil
}

func (s *service) CreateCategory(ctx context.Context, actorID uuid.UUID, name string) (*Category, error) {
	if _, err := s.auth.Require(ctx, actorID, users.RoleAdmin); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadRequest("name is required")
	}

	c := &Category{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, apperr.Normalize(err, "create category")
	}
	return c, nil
}

func (s *service) ListCategories(ctx context.Context, actorID uuid.UUID) ([]Category, error) {
	if _, err := s.auth.Require(ctx, actorID); err != nil {
		return nil, err
	}
	return s.repo.ListCategories(ctx)
}

func checkPrices(prices ...*decimal.Decimal) error {
	for _, p := range prices {
		if p != nil && p.IsNegative() {
			return apperr.BadRequest("prices must be zero or more")
		}
	}
	return nil
}

func checkRentalDates(rm *RentalMaterial) error {
	if rm.RentalDate != nil && rm.ReturnDate != nil && rm.ReturnDate.Before(*rm.RentalDate) {
		return apperr.BadRequest("returnDate must not be before rentalDate")
	}
	return nil
}
