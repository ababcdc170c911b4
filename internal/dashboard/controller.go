// Package dashboard runs one mounted dashboard: it owns the push session,
// the cached collections and the unread badge for a signed-in principal, and
// funnels push events and REST results through a single goroutine.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"salun/internal/domain"
	"salun/internal/remote"
	"salun/internal/store"
	"salun/internal/ws"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var (
	ErrNotSignedIn = errors.New("dashboard: no signed-in principal")
	ErrMounted     = errors.New("dashboard: already mounted")
	ErrNotMounted  = errors.New("dashboard: not mounted")
	ErrLoggedOut   = errors.New("dashboard: logged out")
	ErrWrongRole   = errors.New("dashboard: action not available for this role")
	ErrUnknownUser = errors.New("dashboard: unknown user")
)

// Backend is the REST surface the controller needs. *remote.Client
// implements it.
type Backend interface {
	User(ctx context.Context, id string) (store.Entity, error)
	Users(ctx context.Context) ([]store.Entity, error)
	Barcodes(ctx context.Context) ([]store.Entity, error)
	UserBarcodes(ctx context.Context, userID string) ([]store.Entity, error)
	Ranges(ctx context.Context) ([]store.Entity, error)
	Rewards(ctx context.Context) ([]store.Entity, error)
	Redemptions(ctx context.Context) ([]store.Entity, error)
	Notifications(ctx context.Context) ([]store.Entity, error)
	History(ctx context.Context) ([]store.Entity, error)
	UserHistory(ctx context.Context, userID string) ([]store.Entity, error)

	Scan(ctx context.Context, value, location string) (*remote.ScanResult, error)
	AdjustPoints(ctx context.Context, userID string, amount int64, kind string) (store.Entity, error)
	SetUserStatus(ctx context.Context, id, status string) (store.Entity, error)
	ResetPoints(ctx context.Context, id string) (store.Entity, error)
	DeleteUser(ctx context.Context, id string) error
	ChangePassword(ctx context.Context, id, current, next string) error
	DeleteBarcode(ctx context.Context, id string) error
	CreateRange(ctx context.Context, in remote.RangeInput) (store.Entity, error)
	UpdateRange(ctx context.Context, id string, in remote.RangeInput) (store.Entity, error)
	DeleteRange(ctx context.Context, id string) error
	Redeem(ctx context.Context, rewardID string) (store.Entity, error)
	SetRedemptionStatus(ctx context.Context, id, status string) (store.Entity, error)
	MarkNotificationRead(ctx context.Context, id string) error
	DeleteNotification(ctx context.Context, id string) error
}

// PushSession is the live channel a controller subscribes to.
type PushSession interface {
	On(event string, h ws.Handler)
	Start(ctx context.Context) error
	Close() error
	State() ws.State
}

// Forgetter drops persisted credentials on forced logout.
type Forgetter interface {
	Clear() error
}

// Hooks observe a mounted dashboard. They run on the controller goroutine
// and must not block or call back into the controller.
type Hooks struct {
	Notice  func(Notice)
	Logout  func(Notice)
	Changed func(store.Name)
}

type Options struct {
	Role      string
	SubjectID string
	Token     string

	WSURL             string
	ReconnectAttempts int
	ReconnectDelay    time.Duration

	// RefreshInterval spaces full refreshes of one collection.
	RefreshInterval time.Duration
	RefreshBurst    int

	Hooks       Hooks
	Credentials Forgetter
	// NewSession builds the push session; nil uses ws.NewSession.
	NewSession func(ws.Options) PushSession
}

// Controller is one mounted dashboard.
type Controller struct {
	api  Backend
	opts Options
	log  zerolog.Logger

	store  *store.Store
	unread store.Unread

	inbox   chan func()
	stopped chan struct{}
	ended   chan struct{}
	endOnce sync.Once

	mu      sync.Mutex
	mounted bool
	ctx     context.Context
	cancel  context.CancelFunc
	session PushSession
	work    sync.WaitGroup
	actor   sync.WaitGroup

	// owned by the actor goroutine
	limiters  map[store.Name]*rate.Limiter
	inflight  map[store.Name]bool
	again     map[store.Name]bool
	loggedOut bool
	reducers  map[string]reducer
}

func New(api Backend, opts Options) *Controller {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 500 * time.Millisecond
	}
	if opts.RefreshBurst <= 0 {
		opts.RefreshBurst = 2
	}
	if opts.NewSession == nil {
		opts.NewSession = func(o ws.Options) PushSession { return ws.NewSession(o) }
	}
	c := &Controller{
		api:      api,
		opts:     opts,
		log:      log.With().Str("component", "dashboard").Str("role", opts.Role).Str("subject", opts.SubjectID).Logger(),
		store:    store.New(),
		inbox:    make(chan func(), 64),
		stopped:  make(chan struct{}),
		ended:    make(chan struct{}),
		limiters: make(map[store.Name]*rate.Limiter),
		inflight: make(map[store.Name]bool),
		again:    make(map[store.Name]bool),
	}
	for _, n := range c.collections() {
		c.limiters[n] = rate.NewLimiter(rate.Every(opts.RefreshInterval), opts.RefreshBurst)
	}
	if opts.Role == domain.RoleAdmin {
		c.reducers = adminReducers
	} else {
		c.reducers = userReducers
	}
	return c
}

func (c *Controller) Role() string { return c.opts.Role }

func (c *Controller) Subject() string { return c.opts.SubjectID }

// Store exposes the cached collections for reading.
func (c *Controller) Store() *store.Store { return c.store }

// Unread is the badge count.
func (c *Controller) Unread() int { return c.unread.Value() }

// Done is closed when the dashboard unmounts or is logged out.
func (c *Controller) Done() <-chan struct{} { return c.ended }

// SessionState reports the push connection state.
func (c *Controller) SessionState() ws.State {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return ws.StateDisconnected
	}
	return s.State()
}

// collections lists what a dashboard of this role holds.
func (c *Controller) collections() []store.Name {
	if c.opts.Role == domain.RoleAdmin {
		return []store.Name{store.Users, store.Barcodes, store.Ranges, store.Rewards, store.Redemptions, store.Notifications, store.History}
	}
	return []store.Name{store.Users, store.Barcodes, store.Rewards, store.Redemptions, store.Notifications, store.History}
}

// Mount loads the initial collections and opens the push session. A user
// dashboard first checks the account status; a non-approved account is
// logged out and Mount returns ErrLoggedOut.
func (c *Controller) Mount(ctx context.Context) error {
	if c.opts.Token == "" || c.opts.SubjectID == "" || c.opts.Role == "" {
		return ErrNotSignedIn
	}
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return ErrMounted
	}
	c.mounted = true
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	c.actor.Add(1)
	go c.run()

	if err := c.mount(ctx); err != nil {
		c.Unmount()
		return err
	}
	c.log.Info().Int("unread", c.unread.Value()).Msg("dashboard mounted")
	return nil
}

func (c *Controller) mount(ctx context.Context) error {
	names := c.collections()
	if c.opts.Role == domain.RoleUser {
		if err := c.load(ctx, []store.Name{store.Users}); err != nil {
			return err
		}
		names = names[1:]
	}
	c.openSession()
	return c.load(ctx, names)
}

// Unmount cancels in-flight work, closes the push session and stops the
// controller goroutine. Results of cancelled requests are discarded.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = false
	cancel := c.cancel
	session := c.session
	c.session = nil
	c.mu.Unlock()

	cancel()
	if session != nil {
		session.Close()
	}
	c.work.Wait()
	close(c.stopped)
	c.actor.Wait()
	c.end()
	c.log.Info().Msg("dashboard unmounted")
}

func (c *Controller) end() {
	c.endOnce.Do(func() { close(c.ended) })
}

func (c *Controller) run() {
	defer c.actor.Done()
	for {
		select {
		case f := <-c.inbox:
			f()
		case <-c.stopped:
			return
		}
	}
}

// post queues f on the controller goroutine.
func (c *Controller) post(f func()) bool {
	select {
	case c.inbox <- f:
		return true
	case <-c.stopped:
		return false
	}
}

// call runs f on the controller goroutine and waits for it.
func (c *Controller) call(ctx context.Context, f func()) error {
	c.mu.Lock()
	mounted := c.mounted
	c.mu.Unlock()
	if !mounted {
		return ErrNotMounted
	}
	done := make(chan struct{})
	if !c.post(func() { f(); close(done) }) {
		return ErrNotMounted
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrNotMounted
	}
}

func (c *Controller) alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted && c.ctx.Err() == nil
}

func (c *Controller) context() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

func (c *Controller) notify(n Notice) {
	c.log.Debug().Str("level", string(n.Level)).Str("title", n.Title).Str("text", n.Text).Msg("notice")
	if c.opts.Hooks.Notice != nil {
		c.opts.Hooks.Notice(n)
	}
}

func (c *Controller) changed(name store.Name) {
	if c.opts.Hooks.Changed != nil {
		c.opts.Hooks.Changed(name)
	}
}

func (c *Controller) openSession() {
	s := c.opts.NewSession(ws.Options{
		URL:               c.opts.WSURL,
		Token:             c.opts.Token,
		Role:              c.opts.Role,
		SubjectID:         c.opts.SubjectID,
		ReconnectAttempts: c.opts.ReconnectAttempts,
		ReconnectDelay:    c.opts.ReconnectDelay,
	})
	for event := range c.reducers {
		s.On(event, c.receive)
	}

	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		s.Close()
		return
	}
	c.session = s
	c.mu.Unlock()

	c.spawn(func(ctx context.Context) {
		if err := s.Start(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn().Err(err).Msg("live updates unavailable")
			c.post(func() {
				c.notify(Notice{Level: LevelWarning, Title: "Live updates unavailable", Text: err.Error()})
			})
		}
	})
}

// receive runs on the session goroutine and hands the event to the
// controller goroutine, preserving receive order.
func (c *Controller) receive(env ws.Envelope) {
	c.post(func() { c.handle(env) })
}

// handleError routes a REST failure: 401 and 403 force a logout, anything
// else becomes a notice. It reports whether the failure was terminal.
func (c *Controller) handleError(title string, err error) bool {
	switch {
	case errors.Is(err, remote.ErrUnauthorized):
		msg := remote.Message(err)
		if msg == "" {
			msg = "Please log in again."
		}
		c.logout(Notice{Level: LevelError, Title: "Session Expired", Text: msg})
		return true
	case errors.Is(err, remote.ErrForbidden):
		msg := remote.Message(err)
		if msg == "" {
			msg = "Your account is pending admin approval."
		}
		c.logout(Notice{Level: LevelError, Title: "Account Not Approved", Text: msg})
		return true
	case errors.Is(err, context.Canceled):
		return false
	case remote.IsRetryable(err):
		c.notify(Notice{Level: LevelWarning, Title: title, Text: "temporarily unavailable, showing cached data"})
	default:
		text := remote.Message(err)
		if text == "" {
			text = err.Error()
		}
		c.notify(Notice{Level: LevelError, Title: title, Text: text})
	}
	return false
}

// logout ends the dashboard after the backend rejected the principal. It
// runs on the controller goroutine.
func (c *Controller) logout(n Notice) {
	if c.loggedOut {
		return
	}
	c.loggedOut = true
	c.log.Warn().Str("reason", n.Title).Msg("forced logout")
	if c.opts.Credentials != nil {
		if err := c.opts.Credentials.Clear(); err != nil {
			c.log.Error().Err(err).Msg("clear credentials")
		}
	}
	c.mu.Lock()
	cancel := c.cancel
	session := c.session
	c.session = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if session != nil {
		session.Close()
	}
	if c.opts.Hooks.Logout != nil {
		c.opts.Hooks.Logout(n)
	}
	c.end()
}

// accountNotice builds the logout notice for a non-approved status.
func accountNotice(status string) Notice {
	text := "Your account has been disapproved."
	if status == domain.StatusPending || status == "" {
		text = "Your account is pending admin approval."
	}
	return Notice{Level: LevelError, Title: "Account Not Approved", Text: text}
}

func (c *Controller) String() string {
	return fmt.Sprintf("dashboard(%s %s)", c.opts.Role, c.opts.SubjectID)
}
