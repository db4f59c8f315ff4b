// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/collab-backend/internal/auth"
	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/entitlement"
	"github.com/carterperez-dev/templates/collab-backend/internal/follow"
)

type StatsReader interface {
	GetStats(ctx context.Context, userID string) (*follow.Stats, error)
}

type Service struct {
	db     *sqlx.DB
	repo   Repository
	ledger *entitlement.Service
	stats  StatsReader
}

func NewService(
	db *sqlx.DB,
	repo Repository,
	ledger *entitlement.Service,
	stats StatsReader,
) *Service {
	return &Service{db: db, repo: repo, ledger: ledger, stats: stats}
}

// Provision creates the account together with its free entitlement record
// and zeroed follow counters, so every user has both rows from the start.
func (s *Service) Provision(
	ctx context.Context,
	email, passwordHash, name string,
) (*auth.Account, error) {
	u := &User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Name:         name,
		Role:         RoleUser,
		Tier:         entitlement.TierFree,
	}

	err := core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := NewRepository(tx).Create(ctx, u); err != nil {
			return err
		}
		if _, err := s.ledger.WithDB(tx).Initialize(ctx, u.ID); err != nil {
			return fmt.Errorf("initialize entitlement: %w", err)
		}
		if err := follow.NewRepository(tx).InitStats(ctx, u.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toAccount(u), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*auth.Account, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toAccount(u), nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	return toAccount(u), nil
}

func (s *Service) IncrementTokenVersion(ctx context.Context, userID string) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetProfile returns the public view of a user. Missing follow counters
// read as zero.
func (s *Service) GetProfile(ctx context.Context, id string) (*Profile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get profile: %w", core.ErrNotFound)
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		ID:        u.ID,
		Name:      u.Name,
		Tier:      u.Tier,
		CreatedAt: u.CreatedAt,
	}

	stats, err := s.stats.GetStats(ctx, id)
	switch {
	case errors.Is(err, core.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		p.FollowersCount = stats.FollowersCount
		p.FollowingCount = stats.FollowingCount
	}
	return p, nil
}

func (s *Service) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		u.Name = *req.Name
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) UpdateUserRole(ctx context.Context, id, role string) (*User, error) {
	if role != RoleUser && role != RoleAdmin {
		return nil, fmt.Errorf("update role: invalid role %q: %w", role, core.ErrInvalidInput)
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	u.Role = role
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context, params ListUsersParams) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(ctx context.Context, userID string, req UpdateUserRequest) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}
	return s.UpdateUser(ctx, userID, req)
}

func (s *Service) DeleteMe(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("delete me: %w", core.ErrUnauthorized)
	}
	return s.repo.SoftDelete(ctx, userID)
}

// DeleteUser soft deletes targetID on behalf of requesterID. Admins may
// delete anyone except other admins.
func (s *Service) DeleteUser(ctx context.Context, requesterID, targetID string) error {
	if requesterID != targetID {
		requester, err := s.repo.GetByID(ctx, requesterID)
		if err != nil {
			return err
		}
		if !requester.IsAdmin() {
			return fmt.Errorf("delete user: %w", core.ErrForbidden)
		}

		target, err := s.repo.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if target.IsAdmin() {
			return fmt.Errorf("cannot delete admin users: %w", core.ErrForbidden)
		}
	}

	return s.repo.SoftDelete(ctx, targetID)
}

func toAccount(u *User) *auth.Account {
	return &auth.Account{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Tier:         u.Tier,
		TokenVersion: u.TokenVersion,
		CreatedAt:    u.CreatedAt,
	}
}

var _ auth.Accounts = (*Service)(nil)
