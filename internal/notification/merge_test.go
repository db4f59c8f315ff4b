// AngelaMos | 2026
// merge_test.go

package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

func ids(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func sampleSources() (requests, updates []JoinRequest, digest Digest) {
	last := at(25)
	requests = []JoinRequest{
		{ID: "req-10", Status: StatusPending, CreatedAt: at(10), UpdatedAt: at(10)},
		{ID: "req-20", Status: StatusPending, CreatedAt: at(20), UpdatedAt: at(20)},
		{ID: "req-5", Status: StatusRead, CreatedAt: at(5), UpdatedAt: at(30)},
	}
	updates = []JoinRequest{
		{ID: "upd-15", Status: StatusAccepted, CreatedAt: at(1), UpdatedAt: at(15)},
	}
	digest = Digest{UnreadCount: 4, LastMessageAt: &last}
	return requests, updates, digest
}

func TestMerge_OrderAndPartition(t *testing.T) {
	requests, updates, digest := sampleSources()

	feed := Merge(FilterAll,
		FromJoinRequests(requests),
		FromRequestUpdates(updates),
		FromDigest(digest, at(60)),
	)

	assert.Equal(t, []string{DigestID, "req-20", "upd-15", "req-10"}, ids(feed.Unread))
	assert.Equal(t, []string{"req-5"}, ids(feed.Read))
	assert.Equal(t, 4, feed.TotalUnread)
	assert.Equal(t, 4, feed.Unread[0].UnreadCount)
}

func TestMerge_Filters(t *testing.T) {
	requests, updates, digest := sampleSources()
	sources := [][]Event{
		FromJoinRequests(requests),
		FromRequestUpdates(updates),
		FromDigest(digest, at(60)),
	}

	tests := []struct {
		filter Filter
		unread []string
		read   []string
	}{
		{filter: FilterRequests, unread: []string{"req-20", "req-10"}, read: []string{"req-5"}},
		{filter: FilterUpdates, unread: []string{"upd-15"}, read: []string{}},
		{filter: FilterMessages, unread: []string{DigestID}, read: []string{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			feed := Merge(tt.filter, sources...)
			assert.Equal(t, tt.unread, ids(feed.Unread))
			assert.Equal(t, tt.read, ids(feed.Read))
			assert.Equal(t, 4, feed.TotalUnread)
		})
	}
}

func TestMerge_DigestClearedLeavesOthers(t *testing.T) {
	requests, updates, _ := sampleSources()

	feed := Merge(FilterAll,
		FromJoinRequests(requests),
		FromRequestUpdates(updates),
		FromDigest(Digest{}, at(60)),
	)

	assert.Equal(t, []string{"req-20", "upd-15", "req-10"}, ids(feed.Unread))
	assert.Equal(t, []string{"req-5"}, ids(feed.Read))
	assert.Equal(t, 3, feed.TotalUnread)
}

func TestMerge_DigestWithoutMessageTimeUsesNow(t *testing.T) {
	requests, updates, _ := sampleSources()

	digest := FromDigest(Digest{UnreadCount: 2}, at(60))
	require.Len(t, digest, 1)
	assert.Equal(t, at(60), digest[0].Time)

	feed := Merge(FilterAll,
		FromJoinRequests(requests),
		FromRequestUpdates(updates),
		digest,
	)

	assert.Equal(t, []string{DigestID, "req-20", "upd-15", "req-10"}, ids(feed.Unread))
	assert.False(t, feed.Unread[0].Time.IsZero())
}

func TestSourceConversion(t *testing.T) {
	rows := []JoinRequest{
		{ID: "a", Status: StatusPending},
		{ID: "b", Status: StatusRead},
		{ID: "c", Status: StatusAccepted, UpdatedAt: at(3)},
		{ID: "d", Status: StatusRejected, UpdatedAt: at(4)},
	}

	assert.Equal(t, []string{"a", "b"}, ids(FromJoinRequests(rows)))

	updates := FromRequestUpdates(rows)
	require.Len(t, updates, 2)
	assert.Equal(t, at(4), updates[1].Time)
	assert.False(t, updates[0].Read)

	assert.Empty(t, FromDigest(Digest{UnreadCount: 0}, at(60)))
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	f, err = ParseFilter("updates")
	require.NoError(t, err)
	assert.Equal(t, FilterUpdates, f)

	_, err = ParseFilter("everything")
	assert.Error(t, err)
}
