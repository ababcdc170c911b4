package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"salun/internal/domain"
	"salun/internal/metrics"
	"salun/internal/store"
)

type fetchFunc func(context.Context) ([]store.Entity, error)

// fetcher returns how this dashboard fetches a collection, or nil when the
// role does not hold it.
func (c *Controller) fetcher(name store.Name) fetchFunc {
	admin := c.opts.Role == domain.RoleAdmin
	sub := c.opts.SubjectID
	switch name {
	case store.Users:
		if admin {
			return c.api.Users
		}
		return func(ctx context.Context) ([]store.Entity, error) {
			u, err := c.api.User(ctx, sub)
			if err != nil {
				return nil, err
			}
			u = u.Clone()
			u["id"] = sub
			return []store.Entity{u}, nil
		}
	case store.Barcodes:
		if admin {
			return c.api.Barcodes
		}
		return func(ctx context.Context) ([]store.Entity, error) { return c.api.UserBarcodes(ctx, sub) }
	case store.Ranges:
		if admin {
			return c.api.Ranges
		}
	case store.Rewards:
		return c.api.Rewards
	case store.Redemptions:
		return c.api.Redemptions
	case store.Notifications:
		return c.api.Notifications
	case store.History:
		if admin {
			return c.api.History
		}
		return func(ctx context.Context) ([]store.Entity, error) { return c.api.UserHistory(ctx, sub) }
	}
	return nil
}

var refreshTitles = map[store.Name]string{
	store.Users:         "Users Fetch Failed",
	store.Barcodes:      "Barcode Fetch Failed",
	store.Ranges:        "Ranges Fetch Failed",
	store.Rewards:       "Rewards Fetch Failed",
	store.Redemptions:   "Redemptions Fetch Failed",
	store.Notifications: "Notifications Fetch Failed",
	store.History:       "History Fetch Failed",
}

// spawn runs f in a tracked goroutine unless the dashboard is going away.
func (c *Controller) spawn(f func(ctx context.Context)) bool {
	c.mu.Lock()
	if !c.mounted || c.ctx.Err() != nil {
		c.mu.Unlock()
		return false
	}
	ctx := c.ctx
	c.work.Add(1)
	c.mu.Unlock()
	go func() {
		defer c.work.Done()
		f(ctx)
	}()
	return true
}

// load fetches names concurrently and waits until every result has been
// applied on the controller goroutine.
func (c *Controller) load(ctx context.Context, names []store.Name) error {
	var applied sync.WaitGroup
	for _, name := range names {
		fetch := c.fetcher(name)
		if fetch == nil {
			continue
		}
		applied.Add(1)
		ok := c.spawn(func(cctx context.Context) {
			rctx, stop := context.WithCancel(cctx)
			defer stop()
			unlink := context.AfterFunc(ctx, stop)
			defer unlink()

			seq := c.store.Stamp()
			items, err := fetch(rctx)
			if !c.post(func() {
				defer applied.Done()
				c.applyRefresh(name, seq, items, err, false)
			}) {
				applied.Done()
			}
		})
		if !ok {
			applied.Done()
		}
	}

	waited := make(chan struct{})
	go func() {
		applied.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		return ctx.Err()
	}

	var out bool
	if err := c.call(ctx, func() { out = c.loggedOut }); err != nil {
		return err
	}
	if out {
		return ErrLoggedOut
	}
	return nil
}

// refresh schedules a full refresh of name. Requests made while one is in
// flight collapse into a single follow-up; the per-collection limiter spaces
// them out. Controller goroutine only.
func (c *Controller) refresh(name store.Name, followUp bool) {
	if c.loggedOut {
		return
	}
	fetch := c.fetcher(name)
	if fetch == nil {
		return
	}
	if c.inflight[name] {
		c.again[name] = true
		return
	}
	delay := c.limiters[name].Reserve().Delay()
	c.inflight[name] = true
	ok := c.spawn(func(ctx context.Context) {
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				c.post(func() { c.inflight[name] = false })
				return
			case <-t.C:
			}
		}
		seq := c.store.Stamp()
		items, err := fetch(ctx)
		c.post(func() {
			c.inflight[name] = false
			c.applyRefresh(name, seq, items, err, followUp)
			if c.again[name] {
				c.again[name] = false
				c.refresh(name, false)
			}
		})
	})
	if !ok {
		c.inflight[name] = false
	}
}

// applyRefresh reduces a fetch result. A Replace rejected as stale gets one
// follow-up refresh. Controller goroutine only.
func (c *Controller) applyRefresh(name store.Name, seq uint64, items []store.Entity, err error, followUp bool) {
	if !c.alive() || c.loggedOut {
		return
	}
	if err != nil {
		c.handleError(refreshTitles[name], err)
		return
	}
	if name == store.Users && c.opts.Role == domain.RoleUser && len(items) == 1 {
		if status := items[0].String("status"); status != domain.StatusApproved {
			c.logout(accountNotice(status))
			return
		}
	}

	err = c.store.Apply(store.Replace(name, seq, items))
	if errors.Is(err, store.ErrStale) {
		metrics.StaleReplaces.WithLabelValues(string(name)).Inc()
		c.log.Debug().Str("collection", string(name)).Bool("follow_up", followUp).Msg("stale refresh discarded")
		if !followUp {
			c.refresh(name, true)
		}
		return
	}
	if err != nil {
		c.log.Error().Err(err).Str("collection", string(name)).Msg("apply refresh")
		return
	}
	if name == store.Notifications {
		c.unread.Recount(items)
	}
	c.changed(name)
}

// Refresh requests a full refresh of name from outside the controller.
func (c *Controller) Refresh(name store.Name) {
	c.post(func() { c.refresh(name, false) })
}
