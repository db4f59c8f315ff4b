// AngelaMos | 2026
// account.go

package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
)

// Account is the slice of a user that authentication needs.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	Tier         string
	TokenVersion int
	CreatedAt    time.Time
}

// Accounts is implemented by the user service. Provision creates the user
// with every per-user row the rest of the system expects.
type Accounts interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	Provision(ctx context.Context, email, passwordHash, name string) (*Account, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}
