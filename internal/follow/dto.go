// AngelaMos | 2026
// dto.go

package follow

import (
	"time"
)

type StatsResponse struct {
	UserID         string `json:"user_id"`
	FollowersCount int64  `json:"followers_count"`
	FollowingCount int64  `json:"following_count"`
}

type ConnectionResponse struct {
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	FollowedAt time.Time `json:"followed_at"`
}

type FollowingStatusResponse struct {
	Following bool `json:"following"`
}

func ToStatsResponse(s *Stats) StatsResponse {
	return StatsResponse{
		UserID:         s.UserID,
		FollowersCount: s.FollowersCount,
		FollowingCount: s.FollowingCount,
	}
}

func ToConnectionResponseList(conns []Connection) []ConnectionResponse {
	out := make([]ConnectionResponse, 0, len(conns))
	for _, c := range conns {
		out = append(out, ConnectionResponse(c))
	}
	return out
}
