package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"salun/internal/domain"
	"salun/internal/metrics"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// State is the connection state of a Session.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "unknown"
}

var (
	ErrStarted      = errors.New("session already started")
	ErrClosed       = errors.New("session closed")
	ErrNotConnected = errors.New("session not connected")
)

// Handler receives one inbound event. Handlers run on the session's read
// goroutine, one at a time, in receive order.
type Handler func(Envelope)

// Options configures a Session. Zero durations fall back to the defaults
// used by the hub.
type Options struct {
	URL       string // ws:// or wss:// endpoint, e.g. ws://host:8099/ws
	Token     string
	Role      string
	SubjectID string

	ReconnectAttempts int
	ReconnectDelay    time.Duration

	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration

	Dialer *websocket.Dialer
	// OnState observes every state transition. It must not call back into
	// the session.
	OnState func(State)
}

func (o *Options) defaults() {
	if o.ReconnectAttempts < 0 {
		o.ReconnectAttempts = 0
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 2 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = writeWait
	}
	if o.PongWait <= 0 {
		o.PongWait = pongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	if o.Dialer == nil {
		o.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
}

// Session is one live push connection for a principal. It reconnects after
// a dropped connection up to ReconnectAttempts times, ReconnectDelay apart,
// and stays disconnected once the cap is exhausted.
type Session struct {
	opts Options
	log  zerolog.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	state    State
	conn     *websocket.Conn
	cancel   context.CancelFunc
	started  bool
	running  bool
	closed   bool
	out      chan []byte
	done     chan struct{}
	doneOnce sync.Once

	stateMu sync.Mutex
}

func NewSession(opts Options) *Session {
	opts.defaults()
	return &Session{
		opts:     opts,
		log:      log.With().Str("component", "session").Str("role", opts.Role).Str("subject", opts.SubjectID).Logger(),
		handlers: make(map[string]Handler),
		out:      make(chan []byte, 16),
		done:     make(chan struct{}),
	}
}

// On subscribes h to event, replacing any previous handler for it.
func (s *Session) On(event string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.handlers[event] = h
}

// Off removes the handler for event.
func (s *Session) Off(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, event)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the session is permanently disconnected.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Start dials the endpoint and sends the registration. A failed first dial
// is retried under the reconnect budget; Start blocks until a connection is
// up and closes the session with the first error once the budget is spent.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrStarted
	}
	s.started = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.setState(StateConnecting)
	conn, err := s.dial(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("connect failed")
		if conn = s.reconnect(ctx); conn == nil {
			s.Close()
			return fmt.Errorf("ws: connect: %w", err)
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	s.running = true
	s.mu.Unlock()
	go s.run(ctx, conn)
	return nil
}

// Emit sends an event to the server.
func (s *Session) Emit(event string, data any) error {
	if s.State() != StateConnected {
		return ErrNotConnected
	}
	env, err := NewEnvelope(event, data)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	select {
	case s.out <- raw:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Close unsubscribes every handler and then closes the connection. It is safe
// to call more than once and from any exit path.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.handlers = make(map[string]Handler)
	conn := s.conn
	s.conn = nil
	cancel := s.cancel
	running := s.running
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if conn != nil {
		deadline := time.Now().Add(s.opts.WriteWait)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = conn.Close()
	}
	if !running {
		s.setState(StateDisconnected)
		s.finish()
	}
	return err
}

func (s *Session) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Session) setState(st State) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()
	if prev == st {
		return
	}
	s.log.Debug().Str("from", prev.String()).Str("to", st.String()).Msg("session state")
	if s.opts.OnState != nil {
		s.opts.OnState(st)
	}
}

func (s *Session) endpoint() (string, error) {
	u, err := url.Parse(s.opts.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", s.opts.Token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Session) dial(ctx context.Context) (*websocket.Conn, error) {
	target, err := s.endpoint()
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if s.opts.Token != "" {
		header.Set("Authorization", "Bearer "+s.opts.Token)
	}
	conn, resp, err := s.opts.Dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, err
	}

	reg, _ := NewEnvelope(domain.EventRegister, Registration{Role: s.opts.Role, UserID: s.opts.SubjectID})
	conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
	if err := conn.WriteJSON(reg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("register: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return nil, ErrClosed
	}
	s.conn = conn
	s.mu.Unlock()
	s.setState(StateConnected)
	s.log.Info().Msg("push connection established")
	return conn, nil
}

func (s *Session) run(ctx context.Context, conn *websocket.Conn) {
	defer s.finish()
	for {
		err := s.serve(ctx, conn)
		if ctx.Err() != nil {
			s.setState(StateDisconnected)
			return
		}
		s.log.Warn().Err(err).Msg("push connection lost")
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()

		s.setState(StateConnecting)
		conn = s.reconnect(ctx)
		if conn == nil {
			if ctx.Err() == nil {
				metrics.SessionsExhausted.Inc()
				s.log.Error().Int("attempts", s.opts.ReconnectAttempts).Msg("reconnect attempts exhausted")
			}
			s.setState(StateDisconnected)
			return
		}
	}
}

func (s *Session) reconnect(ctx context.Context) *websocket.Conn {
	for attempt := 1; attempt <= s.opts.ReconnectAttempts; attempt++ {
		t := time.NewTimer(s.opts.ReconnectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		metrics.Reconnects.Inc()
		conn, err := s.dial(ctx)
		if err == nil {
			return conn
		}
		s.log.Warn().Err(err).Int("attempt", attempt).Msg("reconnect failed")
	}
	return nil
}

// serve pumps one connection until it fails or the session is closed.
func (s *Session) serve(ctx context.Context, conn *websocket.Conn) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writePump(conn, stop)
	}()
	defer func() {
		close(stop)
		conn.Close()
		wg.Wait()
	}()

	conn.SetReadLimit(maxMessageSize)
	extend := func() { conn.SetReadDeadline(time.Now().Add(s.opts.PongWait)) }
	extend()
	conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})
	conn.SetPingHandler(func(data string) error {
		extend()
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(s.opts.WriteWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			s.log.Debug().Err(err).Msg("ignoring malformed frame")
			continue
		}
		s.dispatch(env)
	}
}

func (s *Session) dispatch(env Envelope) {
	metrics.PushEvents.WithLabelValues(env.Event).Inc()
	s.mu.Lock()
	h := s.handlers[env.Event]
	s.mu.Unlock()
	if h == nil {
		s.log.Debug().Str("event", env.Event).Msg("no handler, ignored")
		return
	}
	h(env)
}

func (s *Session) writePump(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(s.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case msg := <-s.out:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
