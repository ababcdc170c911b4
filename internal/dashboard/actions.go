package dashboard

import (
	"context"
	"errors"
	"fmt"

	"salun/internal/domain"
	"salun/internal/ledger"
	"salun/internal/remote"
	"salun/internal/store"
)

var (
	ErrInsufficientPoints = errors.New("not enough points")
	ErrInvalidStatus      = errors.New("invalid status")
)

// Actions call the backend directly and never mutate the cache on their
// own: the affected collections are refreshed after the backend confirms.
// A 401 or 403 logs the dashboard out; every error is returned.

func (c *Controller) requireRole(role string) error {
	if c.opts.Role != role {
		return ErrWrongRole
	}
	return nil
}

// after routes the outcome of an action on the controller goroutine.
func (c *Controller) after(err error, refresh ...store.Name) {
	c.post(func() {
		if err != nil {
			if errors.Is(err, remote.ErrUnauthorized) || errors.Is(err, remote.ErrForbidden) {
				c.handleError("", err)
			}
			return
		}
		for _, n := range refresh {
			c.refresh(n, false)
		}
	})
}

// points reads a cached user's balance on the controller goroutine.
func (c *Controller) points(ctx context.Context, userID string) (int64, bool, error) {
	var (
		pts   int64
		known bool
	)
	err := c.call(ctx, func() {
		if u, ok := c.store.Get(store.Users, userID); ok {
			pts, _ = u.Int("points")
			known = true
		}
	})
	return pts, known, err
}

// ScanBarcode submits a scanned barcode value for the signed-in user.
func (c *Controller) ScanBarcode(ctx context.Context, value, location string) (*remote.ScanResult, error) {
	if err := c.requireRole(domain.RoleUser); err != nil {
		return nil, err
	}
	if location == "" {
		location = "Unknown"
	}
	res, err := c.api.Scan(ctx, value, location)
	c.after(err, store.Users, store.Rewards, store.Notifications, store.Barcodes, store.History)
	return res, err
}

// RedeemReward requests a reward; the cached balance must cover it.
func (c *Controller) RedeemReward(ctx context.Context, rewardID string) (store.Entity, error) {
	if err := c.requireRole(domain.RoleUser); err != nil {
		return nil, err
	}
	var required int64
	if err := c.call(ctx, func() {
		if r, ok := c.store.Get(store.Rewards, rewardID); ok {
			required, _ = r.Int("pointsRequired")
		}
	}); err != nil {
		return nil, err
	}
	if have, known, err := c.points(ctx, c.opts.SubjectID); err != nil {
		return nil, err
	} else if known && have < required {
		return nil, fmt.Errorf("%w: %d required, %d available", ErrInsufficientPoints, required, have)
	}
	out, err := c.api.Redeem(ctx, rewardID)
	c.after(err, store.Redemptions, store.Users, store.Notifications)
	return out, err
}

// AdjustPoints manually credits ("add") or debits ("redeem") a user.
func (c *Controller) AdjustPoints(ctx context.Context, userID, kind string, amount int64) (store.Entity, error) {
	if err := c.requireRole(domain.RoleAdmin); err != nil {
		return nil, err
	}
	if err := domain.ValidateAdjustment(kind, amount); err != nil {
		return nil, err
	}
	if kind == domain.AdjustRedeem {
		have, known, err := c.points(ctx, userID)
		if err != nil {
			return nil, err
		}
		if known && amount > have {
			return nil, fmt.Errorf("%w: cannot redeem more than available points", ErrInsufficientPoints)
		}
	}
	out, err := c.api.AdjustPoints(ctx, userID, amount, kind)
	c.after(err, store.Users, store.History)
	return out, err
}

func (c *Controller) UpdateUserStatus(ctx context.Context, userID, status string) (store.Entity, error) {
	if err := c.requireRole(domain.RoleAdmin); err != nil {
		return nil, err
	}
	if !domain.ValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	out, err := c.api.SetUserStatus(ctx, userID, status)
	c.after(err, store.Users)
	return out, err
}

func (c *Controller) ResetPoints(ctx context.Context, userID string) (store.Entity, error) {
	if err := c.requireRole(domain.RoleAdmin); err != nil {
		return nil, err
	}
	out, err := c.api.ResetPoints(ctx, userID)
	c.after(err, store.Users, store.History)
	return out, err
}

func (c *Controller) DeleteUser(ctx context.Context, userID string) error {
	if err := c.requireRole(domain.RoleAdmin); err != nil {
		return err
	}
	err := c.api.DeleteUser(ctx, userID)
	c.after(err, store.Users, store.Barcodes)
	return err
}

func (c *Controller) DeleteBarcode(ctx context.Context, id string) error {
	if err := c.requireRole(domain.RoleAdmin); err != nil {
		return err
	}
	err := c.api.DeleteBarcode(ctx, id)
	c.after(err, store.Barcodes)
	return err
}

func (c *Controller) CreateRange(ctx context.Context, in remote.RangeInput) (store.Entity, error) {
	if err := c.requireRole(domain.RoleAdmin); err != nil {
		return nil, err
	}
	out, err := c.api.CreateRange(ctx, in)
	c.after(err, store.Ranges)
	return out, err
}

func (c *Controller) UpdateRange(ctx context.Context, id string, in remote.RangeInput) (store.Entity, error) {
	if err := c.requireRole(domain.RoleAdmin); err != nil {
		return nil, err
	}
	out, err := c.api.UpdateRange(ctx, id, in)
	c.after(err, store.Ranges)
	return out, err
}

func (c *Controller) DeleteRange(ctx context.Context, id string) error {
	if err := c.requireRole(domain.RoleAdmin); err != nil {
		return err
	}
	err := c.api.DeleteRange(ctx, id)
	c.after(err, store.Ranges)
	return err
}

func (c *Controller) SetRedemptionStatus(ctx context.Context, id, status string) (store.Entity, error) {
	if err := c.requireRole(domain.RoleAdmin); err != nil {
		return nil, err
	}
	out, err := c.api.SetRedemptionStatus(ctx, id, status)
	c.after(err, store.Redemptions, store.Notifications, store.Users)
	return out, err
}

// MarkNotificationRead lowers the badge once the backend confirms.
func (c *Controller) MarkNotificationRead(ctx context.Context, id string) error {
	err := c.api.MarkNotificationRead(ctx, id)
	if err == nil {
		c.post(func() { c.unread.Decrement() })
	}
	c.after(err, store.Notifications)
	return err
}

func (c *Controller) DeleteNotification(ctx context.Context, id string) error {
	err := c.api.DeleteNotification(ctx, id)
	c.after(err, store.Notifications)
	return err
}

// ChangePassword changes the signed-in user's password, or any user's
// password for an admin (current may then be empty).
func (c *Controller) ChangePassword(ctx context.Context, userID, current, next string) error {
	if userID == "" {
		userID = c.opts.SubjectID
	}
	if c.opts.Role != domain.RoleAdmin && userID != c.opts.SubjectID {
		return ErrWrongRole
	}
	err := c.api.ChangePassword(ctx, userID, current, next)
	c.after(err)
	return err
}

// Ledger reconstructs the point history of userID from the cached history
// and the user's authoritative balance.
func (c *Controller) Ledger(ctx context.Context, userID string) (ledger.Ledger, error) {
	if userID == "" {
		userID = c.opts.SubjectID
	}
	var (
		out   ledger.Ledger
		found bool
	)
	err := c.call(ctx, func() {
		u, ok := c.store.Get(store.Users, userID)
		if !ok {
			return
		}
		found = true
		balance, _ := u.Int("points")
		var raw []map[string]any
		for _, h := range c.store.List(store.History) {
			if c.opts.Role == domain.RoleAdmin && h.Subject() != userID {
				continue
			}
			raw = append(raw, h)
		}
		out = ledger.Reconstruct(ledger.FromHistory(raw), balance)
	})
	if err != nil {
		return ledger.Ledger{}, err
	}
	if !found {
		return ledger.Ledger{}, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}
	return out, nil
}
