package dashboard

import (
	"fmt"
	"strconv"
	"time"

	"salun/internal/domain"
	"salun/internal/store"
	"salun/internal/ws"
)

// reducer applies one push event on the controller goroutine.
type reducer func(c *Controller, data store.Entity)

func (c *Controller) handle(env ws.Envelope) {
	if !c.alive() || c.loggedOut {
		return
	}
	r, ok := c.reducers[env.Event]
	if !ok {
		return
	}
	data := store.Entity{}
	if len(env.Data) > 0 {
		d, err := store.DecodeEntity(env.Data)
		if err != nil {
			c.log.Debug().Err(err).Str("event", env.Event).Msg("malformed event payload ignored")
			return
		}
		if d != nil {
			data = d
		}
	}
	c.log.Debug().Str("event", env.Event).Uint64("seq", env.Seq).Msg("event")
	r(c, data)
}

func chain(rs ...reducer) reducer {
	return func(c *Controller, data store.Entity) {
		for _, r := range rs {
			if c.loggedOut {
				return
			}
			r(c, data)
		}
	}
}

// mine drops events about another user.
func mine(r reducer) reducer {
	return func(c *Controller, data store.Entity) {
		if data.Subject() != c.opts.SubjectID {
			return
		}
		r(c, data)
	}
}

// mineIfTagged drops events tagged with another user; untagged ones pass.
func mineIfTagged(r reducer) reducer {
	return func(c *Controller, data store.Entity) {
		if sub := data.Subject(); sub != "" && sub != c.opts.SubjectID {
			return
		}
		r(c, data)
	}
}

func (c *Controller) apply(m store.Mutation) {
	if err := c.store.Apply(m); err != nil {
		c.log.Debug().Err(err).Str("collection", string(m.Collection)).Str("op", m.Op.String()).Msg("event mutation skipped")
		return
	}
	c.changed(m.Collection)
}

func upsert(name store.Name) reducer {
	return func(c *Controller, data store.Entity) {
		if store.IDOf(data) == "" {
			return
		}
		c.apply(store.Upsert(name, 0, data))
	}
}

// upsertOrRefresh merges the payload when it identifies an entity and
// refreshes the collection otherwise.
func upsertOrRefresh(name store.Name) reducer {
	return func(c *Controller, data store.Entity) {
		if store.IDOf(data) == "" {
			c.refresh(name, false)
			return
		}
		c.apply(store.Upsert(name, 0, data))
	}
}

func removeOrRefresh(name store.Name) reducer {
	return func(c *Controller, data store.Entity) {
		id := store.IDOf(data)
		if id == "" {
			c.refresh(name, false)
			return
		}
		c.apply(store.Remove(name, 0, id))
	}
}

func refetch(names ...store.Name) reducer {
	return func(c *Controller, _ store.Entity) {
		for _, n := range names {
			c.refresh(n, false)
		}
	}
}

func notice(n Notice) reducer {
	return func(c *Controller, _ store.Entity) { c.notify(n) }
}

func bump(c *Controller, _ store.Entity) { c.unread.Increment() }

// ─── user dashboard ─────────────────────────────────────────────────────────

func selfUpdated(c *Controller, data store.Entity) {
	patch := data.Clone()
	patch["id"] = c.opts.SubjectID
	c.apply(store.Upsert(store.Users, 0, patch))
	if status, ok := data["status"].(string); ok && status != domain.StatusApproved {
		c.logout(accountNotice(status))
	}
}

func pointsUpdated(c *Controller, data store.Entity) {
	points, ok := data["points"]
	if !ok {
		return
	}
	c.apply(store.Upsert(store.Users, 0, store.Entity{"id": data.Subject(), "points": points}))
}

func pointsNotice(c *Controller, data store.Entity) {
	c.notify(Notice{Level: LevelSuccess, Title: "Points updated", Text: "New total: " + data.String("points")})
}

func notificationNotice(c *Controller, data store.Entity) {
	c.notify(Notice{Level: LevelInfo, Title: data.String("message"), Event: domain.EventNotificationCreated})
}

func scannedNotice(c *Controller, data store.Entity) {
	n := success("Barcode scanned successfully")
	if added, ok := data.Int("addedPoints"); ok {
		n.Text = fmt.Sprintf("+%d points", added)
	}
	c.notify(n)
}

func historyItems(c *Controller, data store.Entity) {
	items, _ := data["items"].([]any)
	for _, it := range items {
		if m, ok := it.(map[string]any); ok && store.IDOf(m) != "" {
			c.apply(store.Upsert(store.History, 0, store.Entity(m)))
		}
	}
}

func accountRemoved(c *Controller, data store.Entity) {
	if store.IDOf(data) != c.opts.SubjectID {
		return
	}
	c.logout(Notice{Level: LevelError, Title: "Account Removed", Text: "Your account has been deleted."})
}

var userReducers = map[string]reducer{
	domain.EventUserSelfUpdated:     chain(notice(info("Your profile updated")), bump, selfUpdated),
	domain.EventPointsUpdated:       mine(chain(pointsUpdated, pointsNotice, bump)),
	domain.EventRewardUpdated:       chain(refetch(store.Rewards), notice(info("Rewards Updated!")), bump),
	domain.EventRewardCreated:       chain(refetch(store.Rewards), notice(success("New reward available!")), bump),
	domain.EventRewardDeleted:       chain(refetch(store.Rewards), notice(info("Reward removed")), bump),
	domain.EventRedemptionUpdated:   chain(refetch(store.Redemptions, store.Notifications), bump),
	domain.EventNotificationCreated: mine(chain(upsert(store.Notifications), bump, notificationNotice)),
	domain.EventBarcodeDeleted:      mine(chain(removeOrRefresh(store.Barcodes), notice(warning("Barcode deleted")), bump)),
	domain.EventUserHistoryUpdated:  mineIfTagged(chain(upsert(store.History), notice(info("History updated")), bump)),
	domain.EventBarcodeScanned:      mine(chain(refetch(store.Barcodes), bump, scannedNotice)),
	domain.EventNotificationUpdated: mine(chain(refetch(store.Notifications), notice(info("Notification updated")), bump)),
	domain.EventHistoryUpdated:      mine(chain(historyItems, notice(info("New history event")), bump)),
	domain.EventUserDeleted:         accountRemoved,
}

// ─── admin dashboard ────────────────────────────────────────────────────────

func pendingNotice(c *Controller, data store.Entity) {
	c.notify(Notice{Level: LevelInfo, Title: "New User Pending", Text: "Approve " + data.String("name")})
}

// rangeCreated records a local notification for a new barcode range.
func rangeCreated(c *Controller, data store.Entity) {
	id := data.String("_id")
	if id == "" {
		id = "barcodeRange-" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	msg := fmt.Sprintf("New barcode range created: %s to %s", data.String("start"), data.String("end"))
	c.apply(store.Upsert(store.Notifications, 0, store.Entity{
		"_id":       id,
		"message":   msg,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
		"read":      false,
	}))
	c.notify(Notice{Level: LevelInfo, Title: "New Barcode Range", Text: fmt.Sprintf("Range created: %s to %s", data.String("start"), data.String("end"))})
}

// userPoints patches the points of the user named by the payload.
func userPoints(c *Controller, data store.Entity) {
	if _, ok := data["points"]; !ok || data.Subject() == "" {
		return
	}
	pointsUpdated(c, data)
	bump(c, data)
}

func userHistory(c *Controller, data store.Entity) {
	if store.IDOf(data) == "" {
		return
	}
	c.apply(store.Upsert(store.History, 0, data))
	bump(c, data)
}

var adminReducers = map[string]reducer{
	domain.EventUserUpdated:         chain(upsert(store.Users), notice(info("User updated")), bump),
	domain.EventUserPendingApproval: chain(pendingNotice, bump, refetch(store.Notifications, store.Users)),
	domain.EventRangeUpdated:        chain(notice(info("Barcode Ranges Updated!")), refetch(store.Ranges)),
	domain.EventRewardUpdated:       chain(upsertOrRefresh(store.Rewards), notice(info("Reward updated")), bump),
	domain.EventRewardCreated:       refetch(store.Rewards),
	domain.EventRewardDeleted:       removeOrRefresh(store.Rewards),
	domain.EventRedemptionUpdated:   chain(upsert(store.Redemptions), refetch(store.Redemptions, store.Notifications), notice(info("Redemption updated")), bump),
	domain.EventUserDeleted:         chain(removeOrRefresh(store.Users), notice(warning("User deleted")), bump),
	domain.EventBarcodeUpdated:      chain(upsertOrRefresh(store.Barcodes), notice(info("Barcode updated")), bump),
	domain.EventBarcodeDeleted:      chain(removeOrRefresh(store.Barcodes), notice(warning("Barcode deleted")), bump),
	domain.EventNotificationUpdated: chain(upsert(store.Notifications), notice(info("New notification")), bump),
	domain.EventMetricsUpdated:      chain(refetch(store.Users, store.Rewards, store.Redemptions, store.Notifications), notice(info("Metrics updated")), bump),
	domain.EventHistoryUpdated:      chain(notice(info("New history event")), bump, refetch(store.History)),
	domain.EventUserHistoryUpdated:  userHistory,
	domain.EventRangeCreated:        chain(rangeCreated, bump, refetch(store.Ranges)),
	domain.EventPointsUpdated:       userPoints,
}
