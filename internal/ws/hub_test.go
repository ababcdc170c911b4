package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"salun/config"
	"salun/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHubServer(t *testing.T) (*Hub, *config.JWTConfig, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.JWTConfig{AccessSecret: "hub-secret", AccessExpiry: time.Hour, Issuer: "test"}
	hub := NewHub()
	r := gin.New()
	r.GET("/ws", Upgrade(cfg, hub))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, cfg, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func connect(t *testing.T, cfg *config.JWTConfig, url string, userID uint, role string) (*Session, chan Envelope) {
	t.Helper()
	tok, err := auth.GenerateAccessToken(cfg, userID, "0000", role)
	require.NoError(t, err)
	events := make(chan Envelope, 8)
	s := NewSession(Options{URL: url, Token: tok, Role: role})
	s.On("pointsUpdated", func(env Envelope) { events <- env })
	s.On("rewardCreated", func(env Envelope) { events <- env })
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s, events
}

func expectEvent(t *testing.T, ch chan Envelope) Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("expected an event")
	}
	return Envelope{}
}

func expectNone(t *testing.T, ch chan Envelope) {
	t.Helper()
	select {
	case env := <-ch:
		t.Fatalf("unexpected event %s", env.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_ScopesEventsToOwnerAndAdmins(t *testing.T) {
	hub, cfg, url := newHubServer(t)
	_, user7 := connect(t, cfg, url, 7, "user")
	_, user8 := connect(t, cfg, url, 8, "user")
	_, admin := connect(t, cfg, url, 1, "admin")
	require.Eventually(t, func() bool { return hub.ClientCount() == 3 }, 2*time.Second, 10*time.Millisecond)

	hub.Emit("pointsUpdated", 7, map[string]any{"userId": 7, "points": 50})

	env := expectEvent(t, user7)
	assert.Equal(t, "pointsUpdated", env.Event)
	assert.NotZero(t, env.Seq)
	var body map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.EqualValues(t, 50, body["points"])

	expectEvent(t, admin)
	expectNone(t, user8)
}

func TestHub_BroadcastAndSeq(t *testing.T) {
	hub, cfg, url := newHubServer(t)
	_, user := connect(t, cfg, url, 7, "user")
	_, admin := connect(t, cfg, url, 1, "admin")
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast("rewardCreated", map[string]any{"id": 1})
	hub.EmitToAdmins("pointsUpdated", map[string]any{"userId": 9})

	first := expectEvent(t, user)
	assert.Equal(t, "rewardCreated", first.Event)
	expectNone(t, user)

	a1, a2 := expectEvent(t, admin), expectEvent(t, admin)
	assert.Less(t, a1.Seq, a2.Seq)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, cfg, url := newHubServer(t)
	s, _ := connect(t, cfg, url, 7, "user")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestUpgrade_RejectsBadToken(t *testing.T) {
	_, _, url := newHubServer(t)
	httpURL := "http" + strings.TrimPrefix(url, "ws")

	resp, err := http.Get(httpURL + "?token=nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	s := NewSession(Options{URL: url, Token: "nope"})
	assert.Error(t, s.Start(context.Background()))
}
