// AngelaMos | 2026
// merge.go

package notification

import (
	"sort"
	"time"
)

// FromJoinRequests builds owner-side events from pending or read requests.
func FromJoinRequests(rows []JoinRequest) []Event {
	events := make([]Event, 0, len(rows))
	for _, jr := range rows {
		if jr.Status != StatusPending && jr.Status != StatusRead {
			continue
		}
		events = append(events, Event{
			ID:           jr.ID,
			Kind:         KindJoinRequest,
			Time:         jr.CreatedAt,
			Read:         jr.Status == StatusRead,
			ProjectID:    jr.ProjectID,
			ProjectTitle: jr.ProjectTitle,
			UserID:       jr.RequesterID,
			UserName:     jr.RequesterName,
			Status:       jr.Status,
			Message:      jr.Message,
		})
	}
	return events
}

// FromRequestUpdates builds requester-side events from resolved requests,
// timestamped by resolution.
func FromRequestUpdates(rows []JoinRequest) []Event {
	events := make([]Event, 0, len(rows))
	for _, jr := range rows {
		if jr.Status != StatusAccepted && jr.Status != StatusRejected {
			continue
		}
		events = append(events, Event{
			ID:           jr.ID,
			Kind:         KindRequestUpdate,
			Time:         jr.UpdatedAt,
			ProjectID:    jr.ProjectID,
			ProjectTitle: jr.ProjectTitle,
			UserID:       jr.ProjectOwnerID,
			Status:       jr.Status,
			Message:      jr.Message,
		})
	}
	return events
}

// FromDigest turns a non-zero unread counter into one event. A counter with
// no recorded message time is stamped now.
func FromDigest(d Digest, now time.Time) []Event {
	if d.UnreadCount <= 0 {
		return nil
	}
	ev := Event{
		ID:          DigestID,
		Kind:        KindUnreadDigest,
		Time:        now,
		UnreadCount: d.UnreadCount,
	}
	if d.LastMessageAt != nil {
		ev.Time = *d.LastMessageAt
	}
	return []Event{ev}
}

// Merge sorts every source newest first and splits it into unread and read.
// TotalUnread counts all unread events; filter only narrows what is listed.
func Merge(filter Filter, sources ...[]Event) *Feed {
	var all []Event
	for _, src := range sources {
		all = append(all, src...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Time.After(all[j].Time)
	})

	feed := &Feed{
		Unread: []Event{},
		Read:   []Event{},
	}
	for _, ev := range all {
		if !ev.Read {
			feed.TotalUnread++
		}
		if !filter.Match(ev.Kind) {
			continue
		}
		if ev.Read {
			feed.Read = append(feed.Read, ev)
		} else {
			feed.Unread = append(feed.Unread, ev)
		}
	}
	return feed
}
