package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"salun/internal/remote"
	"salun/internal/store"
	"salun/internal/ws"

	"github.com/stretchr/testify/require"
)

// fakeAPI is an in-memory Backend. Fetches snapshot their data before
// waiting on an optional gate, so a gated fetch returns what was there when
// it was issued.
type fakeAPI struct {
	mu      sync.Mutex
	profile store.Entity
	data    map[store.Name][]store.Entity
	calls   map[string]int
	errs    map[string]error
	gates   map[string]chan struct{}
	args    map[string][]any
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		profile: store.Entity{"_id": "7", "name": "Asha", "status": "approved", "points": 100},
		data:    make(map[store.Name][]store.Entity),
		calls:   make(map[string]int),
		errs:    make(map[string]error),
		gates:   make(map[string]chan struct{}),
		args:    make(map[string][]any),
	}
}

func (f *fakeAPI) set(name store.Name, items ...store.Entity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[name] = items
}

func (f *fakeAPI) fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
}

func (f *fakeAPI) gate(method string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	f.gates[method] = g
	return g
}

func (f *fakeAPI) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeAPI) lastArgs(method string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.args[method]
}

func (f *fakeAPI) enter(ctx context.Context, method string, args ...any) (func() error, error) {
	f.mu.Lock()
	f.calls[method]++
	f.args[method] = args
	err := f.errs[method]
	g := f.gates[method]
	f.mu.Unlock()
	wait := func() error {
		if g != nil {
			select {
			case <-g:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}
	return wait, err
}

func (f *fakeAPI) list(ctx context.Context, method string, name store.Name) ([]store.Entity, error) {
	wait, err := f.enter(ctx, method)
	f.mu.Lock()
	snap := make([]store.Entity, 0, len(f.data[name]))
	for _, e := range f.data[name] {
		snap = append(snap, e.Clone())
	}
	f.mu.Unlock()
	if werr := wait(); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (f *fakeAPI) write(ctx context.Context, method string, args ...any) (store.Entity, error) {
	wait, err := f.enter(ctx, method, args...)
	if werr := wait(); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	return store.Entity{"ok": true}, nil
}

func (f *fakeAPI) User(ctx context.Context, id string) (store.Entity, error) {
	wait, err := f.enter(ctx, "User", id)
	f.mu.Lock()
	p := f.profile.Clone()
	f.mu.Unlock()
	if werr := wait(); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (f *fakeAPI) Users(ctx context.Context) ([]store.Entity, error) {
	return f.list(ctx, "Users", store.Users)
}
func (f *fakeAPI) Barcodes(ctx context.Context) ([]store.Entity, error) {
	return f.list(ctx, "Barcodes", store.Barcodes)
}
func (f *fakeAPI) UserBarcodes(ctx context.Context, _ string) ([]store.Entity, error) {
	return f.list(ctx, "UserBarcodes", store.Barcodes)
}
func (f *fakeAPI) Ranges(ctx context.Context) ([]store.Entity, error) {
	return f.list(ctx, "Ranges", store.Ranges)
}
func (f *fakeAPI) Rewards(ctx context.Context) ([]store.Entity, error) {
	return f.list(ctx, "Rewards", store.Rewards)
}
func (f *fakeAPI) Redemptions(ctx context.Context) ([]store.Entity, error) {
	return f.list(ctx, "Redemptions", store.Redemptions)
}
func (f *fakeAPI) Notifications(ctx context.Context) ([]store.Entity, error) {
	return f.list(ctx, "Notifications", store.Notifications)
}
func (f *fakeAPI) History(ctx context.Context) ([]store.Entity, error) {
	return f.list(ctx, "History", store.History)
}
func (f *fakeAPI) UserHistory(ctx context.Context, _ string) ([]store.Entity, error) {
	return f.list(ctx, "UserHistory", store.History)
}

func (f *fakeAPI) Scan(ctx context.Context, value, location string) (*remote.ScanResult, error) {
	if _, err := f.write(ctx, "Scan", value, location); err != nil {
		return nil, err
	}
	return &remote.ScanResult{PointsAwarded: 25}, nil
}
func (f *fakeAPI) AdjustPoints(ctx context.Context, userID string, amount int64, kind string) (store.Entity, error) {
	return f.write(ctx, "AdjustPoints", userID, amount, kind)
}
func (f *fakeAPI) SetUserStatus(ctx context.Context, id, status string) (store.Entity, error) {
	return f.write(ctx, "SetUserStatus", id, status)
}
func (f *fakeAPI) ResetPoints(ctx context.Context, id string) (store.Entity, error) {
	return f.write(ctx, "ResetPoints", id)
}
func (f *fakeAPI) DeleteUser(ctx context.Context, id string) error {
	_, err := f.write(ctx, "DeleteUser", id)
	return err
}
func (f *fakeAPI) ChangePassword(ctx context.Context, id, current, next string) error {
	_, err := f.write(ctx, "ChangePassword", id, current, next)
	return err
}
func (f *fakeAPI) DeleteBarcode(ctx context.Context, id string) error {
	_, err := f.write(ctx, "DeleteBarcode", id)
	return err
}
func (f *fakeAPI) CreateRange(ctx context.Context, in remote.RangeInput) (store.Entity, error) {
	return f.write(ctx, "CreateRange", in)
}
func (f *fakeAPI) UpdateRange(ctx context.Context, id string, in remote.RangeInput) (store.Entity, error) {
	return f.write(ctx, "UpdateRange", id, in)
}
func (f *fakeAPI) DeleteRange(ctx context.Context, id string) error {
	_, err := f.write(ctx, "DeleteRange", id)
	return err
}
func (f *fakeAPI) Redeem(ctx context.Context, rewardID string) (store.Entity, error) {
	return f.write(ctx, "Redeem", rewardID)
}
func (f *fakeAPI) SetRedemptionStatus(ctx context.Context, id, status string) (store.Entity, error) {
	return f.write(ctx, "SetRedemptionStatus", id, status)
}
func (f *fakeAPI) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := f.write(ctx, "MarkNotificationRead", id)
	return err
}
func (f *fakeAPI) DeleteNotification(ctx context.Context, id string) error {
	_, err := f.write(ctx, "DeleteNotification", id)
	return err
}

// fakeSession stands in for the push connection; fire delivers an event the
// way the session read loop would.
type fakeSession struct {
	mu       sync.Mutex
	opts     ws.Options
	handlers map[string]ws.Handler
	startErr error
	started  bool
	closed   bool
}

func (s *fakeSession) On(event string, h ws.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = h
}

func (s *fakeSession) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return s.startErr
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.handlers = map[string]ws.Handler{}
	return nil
}

func (s *fakeSession) State() ws.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started && !s.closed && s.startErr == nil {
		return ws.StateConnected
	}
	return ws.StateDisconnected
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSession) fire(t *testing.T, event string, data any) {
	t.Helper()
	env, err := ws.NewEnvelope(event, data)
	require.NoError(t, err)
	s.mu.Lock()
	h := s.handlers[event]
	s.mu.Unlock()
	if h != nil {
		h(env)
	}
}

// recorder collects hook calls.
type recorder struct {
	mu      sync.Mutex
	notices []Notice
	logouts []Notice
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		Notice: func(n Notice) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.notices = append(r.notices, n)
		},
		Logout: func(n Notice) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.logouts = append(r.logouts, n)
		},
	}
}

func (r *recorder) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Title)
	}
	return out
}

func (r *recorder) logout() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.logouts) == 0 {
		return Notice{}, false
	}
	return r.logouts[0], true
}

type forgetter struct {
	mu      sync.Mutex
	cleared int
}

func (f *forgetter) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return nil
}

func (f *forgetter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

type harness struct {
	c       *Controller
	api     *fakeAPI
	session *fakeSession
	rec     *recorder
	creds   *forgetter
}

func newHarness(t *testing.T, role, subject string, api *fakeAPI) *harness {
	t.Helper()
	h := &harness{
		api:     api,
		session: &fakeSession{handlers: map[string]ws.Handler{}},
		rec:     &recorder{},
		creds:   &forgetter{},
	}
	h.c = New(api, Options{
		Role:            role,
		SubjectID:       subject,
		Token:           "tok",
		WSURL:           "ws://unused/ws",
		RefreshInterval: time.Millisecond,
		RefreshBurst:    10,
		Hooks:           h.rec.hooks(),
		Credentials:     h.creds,
		NewSession: func(o ws.Options) PushSession {
			h.session.opts = o
			return h.session
		},
	})
	t.Cleanup(h.c.Unmount)
	return h
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}
