// AngelaMos | 2026
// entity.go

package notification

import (
	"fmt"
	"time"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
)

type Kind string

const (
	KindJoinRequest   Kind = "join_request"
	KindRequestUpdate Kind = "request_update"
	KindUnreadDigest  Kind = "unread_digest"
)

// DigestID addresses the synthetic unread digest event.
const DigestID = "unread-digest"

type Filter string

const (
	FilterAll      Filter = "all"
	FilterRequests Filter = "requests"
	FilterUpdates  Filter = "updates"
	FilterMessages Filter = "messages"
)

func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "":
		return FilterAll, nil
	case FilterAll, FilterRequests, FilterUpdates, FilterMessages:
		return Filter(s), nil
	default:
		return "", fmt.Errorf("parse filter %q: %w", s, core.ErrInvalidInput)
	}
}

func (f Filter) Match(k Kind) bool {
	switch f {
	case FilterRequests:
		return k == KindJoinRequest
	case FilterUpdates:
		return k == KindRequestUpdate
	case FilterMessages:
		return k == KindUnreadDigest
	default:
		return true
	}
}

const (
	StatusPending  = "pending"
	StatusRead     = "read"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// JoinRequest is a row of join_requests with the project title and the
// requester's display name attached.
type JoinRequest struct {
	ID             string    `db:"id"`
	ProjectID      string    `db:"project_id"`
	ProjectTitle   string    `db:"project_title"`
	ProjectOwnerID string    `db:"project_owner_id"`
	RequesterID    string    `db:"requester_id"`
	RequesterName  string    `db:"requester_name"`
	Status         string    `db:"status"`
	Message        string    `db:"message"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Digest sums the caller's per-conversation unread counters.
type Digest struct {
	UnreadCount   int        `db:"unread_count"`
	LastMessageAt *time.Time `db:"last_message_at"`
}

// Event is one synthesized entry of the merged feed. Nothing stores it.
type Event struct {
	ID           string
	Kind         Kind
	Time         time.Time
	Read         bool
	ProjectID    string
	ProjectTitle string
	UserID       string
	UserName     string
	Status       string
	Message      string
	UnreadCount  int
}

type Feed struct {
	Unread      []Event
	Read        []Event
	TotalUnread int
}
