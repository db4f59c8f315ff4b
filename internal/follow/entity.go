// AngelaMos | 2026
// entity.go

package follow

import (
	"errors"
	"time"
)

var (
	ErrAlreadyFollowing = errors.New("already following")
	ErrNotFollowing     = errors.New("not following")
	ErrSelfFollow       = errors.New("cannot follow yourself")
)

const (
	edgeTable  = "follows"
	statsTable = "follow_stats"

	fieldFollowers = "followers_count"
	fieldFollowing = "following_count"
)

func EdgeID(followerID, followingID string) string {
	return followerID + "_" + followingID
}

type Stats struct {
	UserID         string `db:"user_id"`
	FollowersCount int64  `db:"followers_count"`
	FollowingCount int64  `db:"following_count"`
}

// Connection is one side of a follow edge as seen from the listed user.
type Connection struct {
	UserID     string    `db:"user_id"`
	Name       string    `db:"name"`
	FollowedAt time.Time `db:"followed_at"`
}

type ListParams struct {
	Page     int
	PageSize int
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
