// AngelaMos | 2026
// dto.go

package notification

import (
	"time"
)

type EventResponse struct {
	ID           string     `json:"id"`
	Kind         Kind       `json:"kind"`
	OccurredAt   *time.Time `json:"occurred_at,omitempty"`
	Read         bool       `json:"read"`
	ProjectID    string     `json:"project_id,omitempty"`
	ProjectTitle string     `json:"project_title,omitempty"`
	UserID       string     `json:"user_id,omitempty"`
	UserName     string     `json:"user_name,omitempty"`
	Status       string     `json:"status,omitempty"`
	Message      string     `json:"message,omitempty"`
	UnreadCount  int        `json:"unread_count,omitempty"`
}

type FeedResponse struct {
	Unread      []EventResponse `json:"unread"`
	Read        []EventResponse `json:"read"`
	TotalUnread int             `json:"total_unread"`
}

type DigestReadResponse struct {
	Conversations int64 `json:"conversations"`
}

// StreamMessage is one frame of the notification stream.
type StreamMessage struct {
	Type string        `json:"type"`
	Feed *FeedResponse `json:"feed,omitempty"`
}

func ToEventResponse(e Event) EventResponse {
	resp := EventResponse{
		ID:           e.ID,
		Kind:         e.Kind,
		Read:         e.Read,
		ProjectID:    e.ProjectID,
		ProjectTitle: e.ProjectTitle,
		UserID:       e.UserID,
		UserName:     e.UserName,
		Status:       e.Status,
		Message:      e.Message,
		UnreadCount:  e.UnreadCount,
	}
	if !e.Time.IsZero() {
		t := e.Time
		resp.OccurredAt = &t
	}
	return resp
}

func ToFeedResponse(f *Feed) FeedResponse {
	resp := FeedResponse{
		Unread:      make([]EventResponse, 0, len(f.Unread)),
		Read:        make([]EventResponse, 0, len(f.Read)),
		TotalUnread: f.TotalUnread,
	}
	for _, e := range f.Unread {
		resp.Unread = append(resp.Unread, ToEventResponse(e))
	}
	for _, e := range f.Read {
		resp.Read = append(resp.Read, ToEventResponse(e))
	}
	return resp
}
