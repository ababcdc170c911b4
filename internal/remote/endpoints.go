package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"salun/internal/store"
)

var ErrNoToken = errors.New("login response carried no token")

// LoginResult is the response of POST /login.
type LoginResult struct {
	Token string
	User  store.Entity
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
	Location string `json:"location,omitempty"`
}

// ScanResult is the response of POST /barcodes.
type ScanResult struct {
	PointsAwarded int64
	Barcode       store.Entity
}

// RangeInput creates or updates a barcode range.
type RangeInput struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Points int64  `json:"points"`
}

type RewardInput struct {
	Name           string `json:"name"`
	Price          int64  `json:"price,omitempty"`
	BundalValue    int64  `json:"bundalValue,omitempty"`
	PointsRequired int64  `json:"pointsRequired"`
}

func seg(id string) string { return url.PathEscape(id) }

func nested(e store.Entity, key string) store.Entity {
	if m, ok := e[key].(map[string]any); ok {
		return store.Entity(m)
	}
	return nil
}

func (c *Client) Login(ctx context.Context, mobile, password string) (*LoginResult, error) {
	var out store.Entity
	if err := c.do(ctx, http.MethodPost, "/login", map[string]string{"mobile": mobile, "password": password}, &out); err != nil {
		return nil, err
	}
	res := &LoginResult{Token: out.String("token"), User: nested(out, "user")}
	if res.Token == "" {
		return nil, ErrNoToken
	}
	return res, nil
}

func (c *Client) Register(ctx context.Context, in RegisterRequest) (store.Entity, error) {
	var out store.Entity
	if err := c.do(ctx, http.MethodPost, "/register", in, &out); err != nil {
		return nil, err
	}
	if u := nested(out, "user"); u != nil {
		return u, nil
	}
	return out, nil
}

func (c *Client) list(ctx context.Context, path string) ([]store.Entity, error) {
	var out []store.Entity
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []store.Entity{}
	}
	return out, nil
}

func (c *Client) entity(ctx context.Context, method, path string, body any) (store.Entity, error) {
	var out store.Entity
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ─── Users ──────────────────────────────────────────────────────────────────

func (c *Client) Users(ctx context.Context) ([]store.Entity, error) {
	return c.list(ctx, "/users")
}

func (c *Client) User(ctx context.Context, id string) (store.Entity, error) {
	return c.entity(ctx, http.MethodGet, "/users/"+seg(id), nil)
}

func (c *Client) SetUserStatus(ctx context.Context, id, status string) (store.Entity, error) {
	return c.entity(ctx, http.MethodPut, "/users/"+seg(id)+"/status", map[string]string{"status": status})
}

func (c *Client) ResetPoints(ctx context.Context, id string) (store.Entity, error) {
	return c.entity(ctx, http.MethodPut, "/users/"+seg(id)+"/reset-points", nil)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+seg(id), nil, nil)
}

// ChangePassword changes the password of id. Admins may omit current.
func (c *Client) ChangePassword(ctx context.Context, id, current, next string) error {
	body := map[string]string{"newPassword": next}
	if current != "" {
		body["currentPassword"] = current
	}
	return c.do(ctx, http.MethodPut, "/users/"+seg(id)+"/password", body, nil)
}

// AdjustPoints credits or debits points manually; kind is "add" or "redeem".
func (c *Client) AdjustPoints(ctx context.Context, userID string, amount int64, kind string) (store.Entity, error) {
	return c.entity(ctx, http.MethodPost, "/manual-point", map[string]any{"userId": userID, "amount": amount, "type": kind})
}

// ─── Barcodes ───────────────────────────────────────────────────────────────

func (c *Client) Barcodes(ctx context.Context) ([]store.Entity, error) {
	return c.list(ctx, "/barcodes")
}

func (c *Client) UserBarcodes(ctx context.Context, userID string) ([]store.Entity, error) {
	return c.list(ctx, "/barcodes/user/"+seg(userID))
}

func (c *Client) Scan(ctx context.Context, value, location string) (*ScanResult, error) {
	out, err := c.entity(ctx, http.MethodPost, "/barcodes", map[string]string{"value": value, "location": location})
	if err != nil {
		return nil, err
	}
	awarded, _ := out.Int("pointsAwarded")
	return &ScanResult{PointsAwarded: awarded, Barcode: nested(out, "barcode")}, nil
}

func (c *Client) DeleteBarcode(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/barcodes/"+seg(id), nil, nil)
}

// ─── Barcode ranges ─────────────────────────────────────────────────────────

func (c *Client) Ranges(ctx context.Context) ([]store.Entity, error) {
	return c.list(ctx, "/barcode-ranges")
}

func (c *Client) CreateRange(ctx context.Context, in RangeInput) (store.Entity, error) {
	return c.entity(ctx, http.MethodPost, "/barcode-ranges", in)
}

func (c *Client) UpdateRange(ctx context.Context, id string, in RangeInput) (store.Entity, error) {
	return c.entity(ctx, http.MethodPut, "/barcode-ranges/"+seg(id), in)
}

func (c *Client) DeleteRange(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/barcode-ranges/"+seg(id), nil, nil)
}

// ─── Rewards & redemptions ──────────────────────────────────────────────────

func (c *Client) Rewards(ctx context.Context) ([]store.Entity, error) {
	return c.list(ctx, "/rewards")
}

func (c *Client) CreateReward(ctx context.Context, in RewardInput) (store.Entity, error) {
	return c.entity(ctx, http.MethodPost, "/rewards", in)
}

func (c *Client) DeleteReward(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/rewards/"+seg(id), nil, nil)
}

func (c *Client) Redemptions(ctx context.Context) ([]store.Entity, error) {
	return c.list(ctx, "/redemptions")
}

func (c *Client) Redeem(ctx context.Context, rewardID string) (store.Entity, error) {
	return c.entity(ctx, http.MethodPost, "/redemptions", map[string]string{"rewardId": rewardID})
}

func (c *Client) SetRedemptionStatus(ctx context.Context, id, status string) (store.Entity, error) {
	return c.entity(ctx, http.MethodPut, "/redemptions/"+seg(id)+"/status", map[string]string{"status": status})
}

// ─── Notifications & history ────────────────────────────────────────────────

func (c *Client) Notifications(ctx context.Context) ([]store.Entity, error) {
	return c.list(ctx, "/notifications")
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/notifications/"+seg(id)+"/read", nil, nil)
}

func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/notifications/"+seg(id), nil, nil)
}

func (c *Client) History(ctx context.Context) ([]store.Entity, error) {
	return c.list(ctx, "/history")
}

func (c *Client) UserHistory(ctx context.Context, userID string) ([]store.Entity, error) {
	return c.list(ctx, "/history/user/"+seg(userID))
}
