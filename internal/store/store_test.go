package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsert_MergesPartialPayload(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(Upsert(Users, s.Stamp(), Entity{"id": json.Number("5"), "name": "A", "points": json.Number("30")})))

	require.NoError(t, s.Apply(Upsert(Users, s.Stamp(), Entity{"id": json.Number("5"), "points": json.Number("40")})))

	got, ok := s.Get(Users, "5")
	require.True(t, ok)
	assert.Equal(t, Entity{"id": json.Number("5"), "name": "A", "points": json.Number("40")}, got)
}

func TestUpsert_InsertsWhenAbsent(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(Upsert(Rewards, s.Stamp(), Entity{"_id": "r1", "name": "Mug"})))

	assert.Equal(t, 1, s.Len(Rewards))
	got, _ := s.Get(Rewards, "r1")
	assert.Equal(t, "Mug", got.String("name"))
}

func TestUpsert_RequiresID(t *testing.T) {
	s := New()
	err := s.Apply(Upsert(Users, s.Stamp(), Entity{"name": "nobody"}))
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestApply_UnknownCollection(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.Apply(Replace("widgets", s.Stamp(), nil)), ErrUnknownCollection)
}

func TestRemove(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(Replace(Barcodes, s.Stamp(), []Entity{{"id": "b1"}, {"id": "b2"}, {"id": "b3"}})))

	require.NoError(t, s.Apply(Remove(Barcodes, s.Stamp(), "b2")))
	require.NoError(t, s.Apply(Remove(Barcodes, s.Stamp(), "missing")))

	ids := []string{}
	for _, e := range s.List(Barcodes) {
		ids = append(ids, IDOf(e))
	}
	assert.Equal(t, []string{"b1", "b3"}, ids)
}

func TestReplace_StaleAfterUpsertIsRejected(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(Replace(Users, s.Stamp(), []Entity{{"id": "1", "points": json.Number("10")}})))

	refreshIssued := s.Stamp()
	require.NoError(t, s.Apply(Upsert(Users, s.Stamp(), Entity{"id": "1", "points": json.Number("90")})))

	err := s.Apply(Replace(Users, refreshIssued, []Entity{{"id": "1", "points": json.Number("10")}, {"id": "2"}}))

	assert.ErrorIs(t, err, ErrStale)
	assert.Equal(t, 1, s.Len(Users))
	got, _ := s.Get(Users, "1")
	points, _ := got.Int("points")
	assert.Equal(t, int64(90), points)
}

func TestReplace_OlderThanPreviousReplaceIsRejected(t *testing.T) {
	s := New()
	first := s.Stamp()
	second := s.Stamp()
	require.NoError(t, s.Apply(Replace(Rewards, second, []Entity{{"id": "new"}})))

	assert.ErrorIs(t, s.Apply(Replace(Rewards, first, []Entity{{"id": "old"}})), ErrStale)
	_, ok := s.Get(Rewards, "new")
	assert.True(t, ok)
}

func TestReplace_NewerThanUpsertApplies(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(Upsert(Users, s.Stamp(), Entity{"id": "1"})))

	require.NoError(t, s.Apply(Replace(Users, s.Stamp(), []Entity{{"id": "2"}, {"name": "no id"}})))

	assert.Equal(t, 1, s.Len(Users))
	_, ok := s.Get(Users, "2")
	assert.True(t, ok)
}

func TestNotificationsArePrepended(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(Replace(Notifications, s.Stamp(), []Entity{{"id": "n1"}})))
	require.NoError(t, s.Apply(Upsert(Notifications, s.Stamp(), Entity{"id": "n2"})))

	list := s.List(Notifications)
	require.Len(t, list, 2)
	assert.Equal(t, "n2", IDOf(list[0]))
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(Upsert(Users, s.Stamp(), Entity{"id": "1", "name": "A"})))

	got, _ := s.Get(Users, "1")
	got["name"] = "changed"

	again, _ := s.Get(Users, "1")
	assert.Equal(t, "A", again.String("name"))
}

func TestFilter_CaseInsensitiveNameOrMobile(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(Replace(Users, s.Stamp(), []Entity{
		{"id": "1", "name": "Asha Rao", "mobile": "9800011111"},
		{"id": "2", "name": "Bilal", "mobile": "9700022222"},
		{"id": "3", "name": "Chen"},
	})))

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"1", "2", "3"}},
		{"ASHA", []string{"1"}},
		{"00022", []string{"2"}},
		{"zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := []string{}
			for _, e := range s.Filter(Users, tt.query) {
				got = append(got, IDOf(e))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoster_Ordering(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(Replace(Users, s.Stamp(), []Entity{
		{"id": "1", "name": "a", "mobile": "1", "role": "user", "status": "approved", "points": json.Number("10")},
		{"id": "2", "name": "b", "mobile": "2", "role": "user", "status": "disapproved", "points": json.Number("500")},
		{"id": "3", "name": "c", "mobile": "3", "role": "user", "status": "pending", "points": json.Number("0")},
		{"id": "4", "name": "d", "mobile": "4", "role": "user", "status": "approved", "points": json.Number("70")},
		{"id": "5", "name": "admin", "mobile": "5", "role": "admin", "status": "approved"},
		{"id": "6", "name": "", "mobile": "6", "role": "user", "status": "approved"},
	})))

	got := []string{}
	for _, e := range s.Roster("") {
		got = append(got, IDOf(e))
	}
	assert.Equal(t, []string{"3", "4", "1", "2"}, got)
}

func TestUnread_NeverNegative(t *testing.T) {
	var u Unread
	u.Increment()
	u.Decrement()
	u.Decrement()
	u.Decrement()
	assert.Equal(t, 0, u.Value())

	u.Increment()
	u.Increment()
	u.Reset()
	assert.Equal(t, 0, u.Decrement())
}

func TestUnread_Recount(t *testing.T) {
	var u Unread
	n := u.Recount([]Entity{{"id": "1", "read": false}, {"id": "2", "read": true}, {"id": "3"}})
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, u.Increment())
}

func TestDecodeEntities_KeepsNumbers(t *testing.T) {
	list, err := DecodeEntities([]byte(`[{"id": 12, "points": 40}]`))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "12", IDOf(list[0]))
	points, ok := list[0].Int("points")
	assert.True(t, ok)
	assert.Equal(t, int64(40), points)
}
