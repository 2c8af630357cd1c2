// internal/users/implementation.go
package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eventrental/internal/apperr"
	"eventrental/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// service implements the Service interface.
type service struct {
	repo   Repository
	tx     store.TxRunner
	logger *zap.Logger
}

// NewService creates a new users service instance.
func NewService(repo Repository, tx store.TxRunner, logger *zap.Logger) Service {
	return &service{repo: repo, tx: tx, logger: logger}
}

func (s *service) Require(ctx context.Context, actorID uuid.UUID, roles ...Role) (*User, error) {
	if actorID == uuid.Nil {
		return nil, apperr.Forbidden("authentication required")
	}
	user, err := s.repo.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return user, nil
	}
	for _, role := range roles {
		if user.Role == role {
			return user, nil
		}
	}
	if len(roles) == 1 && roles[0] == RoleAdmin {
		return nil, apperr.Forbidden("Only admins can perform this action")
	}
	return nil, apperr.Forbidden("role %s is not allowed to perform this action", user.Role)
}

func (s *service) CreateUser(ctx context.Context, actorID uuid.UUID, input CreateUserInput) (*User, error) {
	if _, err := s.Require(ctx, actorID, RoleAdmin); err != nil {
		return nil, err
	}

	input.FullName = strings.TrimSpace(input.FullName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.FullName == "" {
		return nil, apperr.BadRequest("fullName is required")
	}
	if !input.Role.Valid() {
		return nil, apperr.BadRequest("role must be admin or worker")
	}
	if input.Role == RoleAdmin && (input.Email == "" || input.Password == "") {
		return nil, apperr.BadRequest("admins need an email and a password")
	}

	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		FullName:  input.FullName,
		Email:     input.Email,
		Phone:     strings.TrimSpace(input.Phone),
		Role:      input.Role,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Password != "" {
		hash, salt, err := hashPassword(input.Password)
		if err != nil {
			return nil, apperr.Internal("hash password", err)
		}
		user.PasswordHash, user.PasswordSalt = hash, salt
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if user.Email != "" {
			if _, err := s.repo.GetByEmail(ctx, user.Email); err == nil {
				return apperr.BadRequest("a user with email %s already exists", user.Email)
			} else if !apperr.Is(err, apperr.KindNotFound) {
				return err
			}
		}
		return s.repo.Create(ctx, user)
	})
	if err != nil {
		return nil, apperr.Normalize(err, "create user")
	}

	s.logger.Info("user created", zap.String("user_id", user.ID.String()), zap.String("role", string(user.Role)))
	return user, nil
}

func (s *service) GetUser(ctx context.Context, actorID, id uuid.UUID) (*User, error) {
	if _, err := s.Require(ctx, actorID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *service) ListUsers(ctx context.Context, actorID uuid.UUID, role Role, page store.Page) ([]User, error) {
	if _, err := s.Require(ctx, actorID, RoleAdmin); err != nil {
		return nil, err
	}
	if role != "" && !role.Valid() {
		return nil, apperr.BadRequest("unknown role %q", role)
	}
	return s.repo.List(ctx, role, page)
}

// EnsureAdmin creates the bootstrap admin, or rotates its password when the
// configured one no longer matches.
func (s *service) EnsureAdmin(ctx context.Context, fullName, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.BadRequest("admin email and password are required")
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != RoleAdmin {
			return nil, apperr.BadRequest("user %s exists and is not an admin", email)
		}
		ok, err := verifyPassword(password, existing.PasswordSalt, existing.PasswordHash)
		if err == nil && ok {
			return existing, nil
		}
		hash, salt, err := hashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		if err := s.repo.UpdatePassword(ctx, existing.ID, hash, salt); err != nil {
			return nil, err
		}
		s.logger.Info("admin password rotated", zap.String("user_id", existing.ID.String()))
		existing.PasswordHash, existing.PasswordSalt = hash, salt
		return existing, nil
	case !apperr.Is(err, apperr.KindNotFound):
		return nil, err
	}

	hash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	admin := &User{
		ID:           uuid.New(),
		FullName:     fullName,
		Email:        email,
		Role:         RoleAdmin,
		Status:       StatusActive,
		PasswordHash: hash,
		PasswordSalt: salt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return nil, err
	}
	s.logger.Info("admin seeded", zap.String("user_id", admin.ID.String()))
	return admin, nil
}

// worker loads id and checks it is a worker.
func (s *service) worker(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != RoleWorker {
		return nil, apperr.BadRequest("User %s is not a worker", user.FullName)
	}
	return user, nil
}

func (s *service) UpdateWorker(ctx context.Context, actorID, id uuid.UUID, input UpdateWorkerInput) (*User, error) {
	if _, err := s.Require(ctx, actorID, RoleAdmin); err != nil {
		return nil, err
	}

	var user *User
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		u, err := s.worker(ctx, id)
		if err != nil {
			return err
		}
		if input.FullName != nil {
			name := strings.TrimSpace(*input.FullName)
			if name == "" {
				return apperr.BadRequest("fullName cannot be empty")
			}
			u.FullName = name
		}
		if input.Email != nil {
			u.Email = strings.ToLower(strings.TrimSpace(*input.Email))
		}
		if input.Phone != nil {
			u.Phone = strings.TrimSpace(*input.Phone)
		}
		u.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, apperr.Normalize(err, "update worker")
	}

	s.logger.Info("worker updated", zap.String("user_id", id.String()))
	return user, nil
}

// InactivateWorker keeps the worker and its history but takes it out of
// future staffing.
func (s *service) InactivateWorker(ctx context.Context, actorID, id uuid.UUID) (*User, error) {
	if _, err := s.Require(ctx, actorID, RoleAdmin); err != nil {
		return nil, err
	}

	var user *User
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		u, err := s.worker(ctx, id)
		if err != nil {
			return err
		}
		if u.Status == StatusInactive {
			return apperr.BadRequest("User %s is already inactive", u.FullName)
		}
		u.Status = StatusInactive
		u.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, apperr.Normalize(err, "inactivate worker")
	}

	s.logger.Info("worker inactivated", zap.String("user_id", id.String()))
	return user, nil
}

// DeleteWorker removes a worker that was never staffed. Workers with event
// history are inactivated instead.
func (s *service) DeleteWorker(ctx context.Context, actorID, id uuid.UUID) error {
	if _, err := s.Require(ctx, actorID, RoleAdmin); err != nil {
		return err
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.worker(ctx, id); err != nil {
			return err
		}
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return apperr.Normalize(err, "delete worker")
	}

	s.logger.Info("worker deleted", zap.String("user_id", id.String()))
	return nil
}
