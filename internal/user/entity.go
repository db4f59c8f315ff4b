// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

// User is an account row. Tier is not stored on users; it is read from the
// entitlement ledger.
type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Name         string     `db:"name"`
	Role         string     `db:"role"`
	Tier         string     `db:"tier"`
	TokenVersion int        `db:"token_version"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Profile is the public view of a user with follow counts.
type Profile struct {
	ID             string
	Name           string
	Tier           string
	FollowersCount int64
	FollowingCount int64
	CreatedAt      time.Time
}
