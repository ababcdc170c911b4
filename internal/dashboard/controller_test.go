package dashboard

import (
	"context"
	"errors"
	"testing"

	"salun/internal/domain"
	"salun/internal/remote"
	"salun/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balanceOf(t *testing.T, c *Controller, id string) int64 {
	t.Helper()
	u, ok := c.Store().Get(store.Users, id)
	if !ok {
		return -1
	}
	p, _ := u.Int("points")
	return p
}

func TestMount_UserLoadsScopedCollections(t *testing.T) {
	api := newFakeAPI()
	api.set(store.Notifications,
		store.Entity{"_id": "n1", "userId": "7", "read": false},
		store.Entity{"_id": "n2", "userId": "7", "read": true},
	)
	api.set(store.Rewards, store.Entity{"_id": "r1", "name": "Mug", "pointsRequired": 50})
	h := newHarness(t, domain.RoleUser, "7", api)

	require.NoError(t, h.c.Mount(context.Background()))

	assert.Equal(t, 1, h.c.Unread())
	assert.Equal(t, 1, h.c.Store().Len(store.Rewards))
	assert.Equal(t, int64(100), balanceOf(t, h.c, "7"))
	assert.Equal(t, 1, api.count("UserBarcodes"))
	assert.Equal(t, 1, api.count("UserHistory"))
	assert.Zero(t, api.count("Ranges"))
	assert.Zero(t, api.count("Users"))

	assert.Equal(t, "user", h.session.opts.Role)
	assert.Equal(t, "7", h.session.opts.SubjectID)
	assert.Contains(t, h.session.handlers, domain.EventPointsUpdated)
	assert.ErrorIs(t, h.c.Mount(context.Background()), ErrMounted)
}

func TestMount_RequiresPrincipal(t *testing.T) {
	c := New(newFakeAPI(), Options{Role: domain.RoleUser})
	assert.ErrorIs(t, c.Mount(context.Background()), ErrNotSignedIn)
}

func TestMount_NonApprovedAccountIsLoggedOut(t *testing.T) {
	tests := []struct {
		status string
		text   string
	}{
		{domain.StatusPending, "Your account is pending admin approval."},
		{domain.StatusDisapproved, "Your account has been disapproved."},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			api := newFakeAPI()
			api.profile["status"] = tt.status
			h := newHarness(t, domain.RoleUser, "7", api)

			err := h.c.Mount(context.Background())

			assert.ErrorIs(t, err, ErrLoggedOut)
			n, ok := h.rec.logout()
			require.True(t, ok)
			assert.Equal(t, "Account Not Approved", n.Title)
			assert.Equal(t, tt.text, n.Text)
			assert.Equal(t, 1, h.creds.count())
			assert.False(t, h.session.started)
			select {
			case <-h.c.Done():
			default:
				t.Fatal("dashboard still running")
			}
		})
	}
}

func TestMount_UnauthorizedForcesLogout(t *testing.T) {
	api := newFakeAPI()
	api.fail("User", &remote.Error{Status: 401, Err: remote.ErrUnauthorized})
	h := newHarness(t, domain.RoleUser, "7", api)

	assert.ErrorIs(t, h.c.Mount(context.Background()), ErrLoggedOut)
	n, ok := h.rec.logout()
	require.True(t, ok)
	assert.Equal(t, "Session Expired", n.Title)
	assert.Equal(t, "Please log in again.", n.Text)
}

func TestMount_TransientFailureKeepsCache(t *testing.T) {
	api := newFakeAPI()
	api.fail("Rewards", &remote.Error{Status: 503, Retryable: true})
	h := newHarness(t, domain.RoleUser, "7", api)

	require.NoError(t, h.c.Mount(context.Background()))
	assert.Contains(t, h.rec.titles(), "Rewards Fetch Failed")
	_, loggedOut := h.rec.logout()
	assert.False(t, loggedOut)
	assert.Equal(t, 0, h.c.Store().Len(store.Rewards))
}

func TestMount_SessionFailureIsNotFatal(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, domain.RoleUser, "7", api)
	h.session.startErr = errors.New("dial refused")

	require.NoError(t, h.c.Mount(context.Background()))
	eventually(t, func() bool {
		for _, title := range h.rec.titles() {
			if title == "Live updates unavailable" {
				return true
			}
		}
		return false
	}, "warning notice")
}

func TestUserEvents_PointsScopedToSubject(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, domain.RoleUser, "7", api)
	require.NoError(t, h.c.Mount(context.Background()))

	h.session.fire(t, domain.EventPointsUpdated, map[string]any{"userId": "8", "points": 999})
	h.session.fire(t, domain.EventPointsUpdated, map[string]any{"userId": 7, "points": 180})

	eventually(t, func() bool { return balanceOf(t, h.c, "7") == 180 }, "points applied")
	assert.Equal(t, 1, h.c.Unread())
	assert.Contains(t, h.rec.titles(), "Points updated")
	u, _ := h.c.Store().Get(store.Users, "7")
	assert.Equal(t, "Asha", u.String("name"))
}

func TestUserEvents_NotificationPrependedAndCounted(t *testing.T) {
	api := newFakeAPI()
	api.set(store.Notifications, store.Entity{"_id": "n1", "userId": "7", "read": true})
	h := newHarness(t, domain.RoleUser, "7", api)
	require.NoError(t, h.c.Mount(context.Background()))

	h.session.fire(t, domain.EventNotificationCreated, map[string]any{"_id": "n2", "userId": "7", "message": "Hello", "read": false})

	eventually(t, func() bool { return h.c.Store().Len(store.Notifications) == 2 }, "notification stored")
	assert.Equal(t, "n2", store.IDOf(h.c.Store().List(store.Notifications)[0]))
	assert.Equal(t, 1, h.c.Unread())
	assert.Contains(t, h.rec.titles(), "Hello")
}

func TestUserEvents_SelfUpdatedToPendingLogsOut(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, domain.RoleUser, "7", api)
	require.NoError(t, h.c.Mount(context.Background()))

	h.session.fire(t, domain.EventUserSelfUpdated, map[string]any{"status": "disapproved"})

	eventually(t, func() bool { _, ok := h.rec.logout(); return ok }, "logout")
	n, _ := h.rec.logout()
	assert.Equal(t, "Your account has been disapproved.", n.Text)
	assert.True(t, h.session.isClosed())
}

func TestRefresh_StaleReplaceIsRejectedAndRetried(t *testing.T) {
	api := newFakeAPI()
	h1 := store.Entity{"_id": "h1", "userId": "7", "action": "scan", "details": map[string]any{"amount": 100}, "createdAt": "2024-01-01T10:00:00Z"}
	h2 := store.Entity{"_id": "h2", "userId": "7", "action": "scan", "details": map[string]any{"amount": 5}, "createdAt": "2024-01-02T10:00:00Z"}
	api.set(store.History, h1)
	h := newHarness(t, domain.RoleUser, "7", api)
	require.NoError(t, h.c.Mount(context.Background()))

	gate := api.gate("UserHistory")
	h.c.Refresh(store.History)
	eventually(t, func() bool { return api.count("UserHistory") == 2 }, "refresh issued")

	h.session.fire(t, domain.EventUserHistoryUpdated, map[string]any(h2))
	eventually(t, func() bool { _, ok := h.c.Store().Get(store.History, "h2"); return ok }, "push applied")

	api.set(store.History, h1, h2)
	close(gate)

	eventually(t, func() bool { return api.count("UserHistory") == 3 }, "follow-up refresh")
	eventually(t, func() bool { return h.c.Store().Len(store.History) == 2 }, "history converged")
	_, ok := h.c.Store().Get(store.History, "h2")
	assert.True(t, ok)
}

func TestUnmount_CancelsInFlightRefresh(t *testing.T) {
	api := newFakeAPI()
	api.set(store.Rewards, store.Entity{"_id": "r1"})
	h := newHarness(t, domain.RoleUser, "7", api)
	require.NoError(t, h.c.Mount(context.Background()))

	api.gate("Rewards")
	api.set(store.Rewards)
	h.c.Refresh(store.Rewards)
	eventually(t, func() bool { return api.count("Rewards") == 2 }, "refresh issued")

	h.c.Unmount()

	assert.True(t, h.session.isClosed())
	assert.Equal(t, 1, h.c.Store().Len(store.Rewards))
	assert.NotContains(t, h.rec.titles(), "Rewards Fetch Failed")
	select {
	case <-h.c.Done():
	default:
		t.Fatal("done not closed")
	}
	_, err := h.c.Ledger(context.Background(), "7")
	assert.ErrorIs(t, err, ErrNotMounted)
}

func TestLedger_FromCachedHistory(t *testing.T) {
	api := newFakeAPI()
	api.profile["points"] = 130
	api.set(store.History,
		store.Entity{"_id": "2", "userId": "7", "action": "point_redeem", "details": map[string]any{"amount": 20}, "createdAt": "2024-01-02T10:00:00Z"},
		store.Entity{"_id": "1", "userId": "7", "action": "scan", "details": map[string]any{"amount": 100}, "createdAt": "2024-01-01T10:00:00Z"},
	)
	h := newHarness(t, domain.RoleUser, "7", api)
	require.NoError(t, h.c.Mount(context.Background()))

	l, err := h.c.Ledger(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, int64(130), l.Balance)
	assert.Equal(t, int64(50), l.Offset)
	require.Len(t, l.Entries, 2)
	assert.Equal(t, int64(150), l.Entries[0].RunningBalance)
	assert.Equal(t, int64(130), l.Entries[1].RunningBalance)

	_, err = h.c.Ledger(context.Background(), "99")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestActions_UserScanRefreshesAndRoleChecks(t *testing.T) {
	api := newFakeAPI()
	h := newHarness(t, domain.RoleUser, "7", api)
	require.NoError(t, h.c.Mount(context.Background()))

	res, err := h.c.ScanBarcode(context.Background(), "AB12", "")
	require.NoError(t, err)
	assert.Equal(t, int64(25), res.PointsAwarded)
	assert.Equal(t, []any{"AB12", "Unknown"}, api.lastArgs("Scan"))
	eventually(t, func() bool { return api.count("UserBarcodes") == 2 && api.count("User") == 2 }, "refresh after scan")

	_, err = h.c.AdjustPoints(context.Background(), "7", domain.AdjustAdd, 100)
	assert.ErrorIs(t, err, ErrWrongRole)
	assert.ErrorIs(t, h.c.ChangePassword(context.Background(), "8", "a", "b"), ErrWrongRole)
}

func TestActions_RedeemNeedsEnoughPoints(t *testing.T) {
	api := newFakeAPI()
	api.set(store.Rewards, store.Entity{"_id": "r1", "pointsRequired": 500})
	h := newHarness(t, domain.RoleUser, "7", api)
	require.NoError(t, h.c.Mount(context.Background()))

	_, err := h.c.RedeemReward(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Zero(t, api.count("Redeem"))
}

func TestActions_ForbiddenLogsOut(t *testing.T) {
	api := newFakeAPI()
	api.fail("Scan", &remote.Error{Status: 403, Message: "Your account is pending admin approval.", Err: remote.ErrForbidden})
	h := newHarness(t, domain.RoleUser, "7", api)
	require.NoError(t, h.c.Mount(context.Background()))

	_, err := h.c.ScanBarcode(context.Background(), "AB12", "Pune")
	assert.ErrorIs(t, err, remote.ErrForbidden)

	eventually(t, func() bool { _, ok := h.rec.logout(); return ok }, "logout")
	n, _ := h.rec.logout()
	assert.Equal(t, "Account Not Approved", n.Title)
	assert.Equal(t, 1, h.creds.count())
}

func TestActions_MarkReadDecrementsAfterConfirmation(t *testing.T) {
	api := newFakeAPI()
	api.set(store.Notifications, store.Entity{"_id": "n1", "userId": "7", "read": false})
	h := newHarness(t, domain.RoleUser, "7", api)
	require.NoError(t, h.c.Mount(context.Background()))
	require.Equal(t, 1, h.c.Unread())

	api.fail("MarkNotificationRead", &remote.Error{Status: 500, Retryable: true})
	assert.Error(t, h.c.MarkNotificationRead(context.Background(), "n1"))
	assert.Equal(t, 1, h.c.Unread())

	api.fail("MarkNotificationRead", nil)
	api.set(store.Notifications, store.Entity{"_id": "n1", "userId": "7", "read": true})
	require.NoError(t, h.c.MarkNotificationRead(context.Background(), "n1"))
	eventually(t, func() bool { return h.c.Unread() == 0 && api.count("Notifications") >= 2 }, "badge cleared")
}

func TestAdmin_AdjustPoints(t *testing.T) {
	api := newFakeAPI()
	api.set(store.Users, store.Entity{"id": "7", "name": "Asha", "mobile": "1", "role": "user", "status": "approved", "points": 100})
	h := newHarness(t, domain.RoleAdmin, "1", api)
	require.NoError(t, h.c.Mount(context.Background()))
	assert.Equal(t, 1, api.count("Ranges"))
	assert.Equal(t, "admin", h.session.opts.Role)

	_, err := h.c.AdjustPoints(context.Background(), "7", domain.AdjustAdd, 75)
	assert.ErrorIs(t, err, domain.ErrInvalidAdjustment)

	_, err = h.c.AdjustPoints(context.Background(), "7", domain.AdjustRedeem, 150)
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Zero(t, api.count("AdjustPoints"))

	_, err = h.c.AdjustPoints(context.Background(), "7", domain.AdjustAdd, 100)
	require.NoError(t, err)
	assert.Equal(t, []any{"7", int64(100), "add"}, api.lastArgs("AdjustPoints"))
	eventually(t, func() bool { return api.count("Users") == 2 && api.count("History") == 2 }, "refresh after adjust")

	_, err = h.c.UpdateUserStatus(context.Background(), "7", "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestAdmin_Events(t *testing.T) {
	api := newFakeAPI()
	api.set(store.Users,
		store.Entity{"id": "7", "name": "Asha", "mobile": "1", "role": "user", "status": "approved", "points": 100},
		store.Entity{"id": "8", "name": "Bilal", "mobile": "2", "role": "user", "status": "pending", "points": 0},
	)
	h := newHarness(t, domain.RoleAdmin, "1", api)
	require.NoError(t, h.c.Mount(context.Background()))

	h.session.fire(t, domain.EventUserUpdated, map[string]any{"id": "8", "status": "approved"})
	h.session.fire(t, domain.EventUserDeleted, map[string]any{"id": "7"})
	h.session.fire(t, domain.EventRangeCreated, map[string]any{"start": "A100", "end": "A200", "points": 10})

	eventually(t, func() bool { return h.c.Store().Len(store.Notifications) == 1 }, "range notification")
	n := h.c.Store().List(store.Notifications)[0]
	assert.Equal(t, "New barcode range created: A100 to A200", n.String("message"))
	assert.False(t, n.Bool("read"))

	assert.Equal(t, 1, h.c.Store().Len(store.Users))
	u, _ := h.c.Store().Get(store.Users, "8")
	assert.Equal(t, "approved", u.String("status"))
	assert.Equal(t, "Bilal", u.String("name"))
	assert.Equal(t, 3, h.c.Unread())
	eventually(t, func() bool { return api.count("Ranges") == 2 }, "ranges refreshed")
	assert.Contains(t, h.rec.titles(), "New Barcode Range")

	h.session.fire(t, domain.EventPointsUpdated, map[string]any{"points": 40})
	h.session.fire(t, domain.EventUserHistoryUpdated, map[string]any{"action": "scan"})
	h.session.fire(t, domain.EventPointsUpdated, map[string]any{"userId": "8", "points": 40})
	h.session.fire(t, domain.EventUserHistoryUpdated, map[string]any{"_id": "h9", "userId": "8", "action": "scan", "points": 40})

	eventually(t, func() bool {
		_, ok := h.c.Store().Get(store.History, "h9")
		return ok && h.c.Unread() >= 5
	}, "history pushed")
	u, _ = h.c.Store().Get(store.Users, "8")
	points, _ := u.Int("points")
	assert.Equal(t, int64(40), points)
	assert.Equal(t, 5, h.c.Unread(), "payloads without a target are ignored")
}
