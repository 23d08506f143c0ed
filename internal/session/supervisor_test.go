package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"

	"wavault/internal/data/store"
	"wavault/internal/infra/config"
)

type nopSink struct{}

func (nopSink) Enqueue(interface{}) {}
func (nopSink) Close()              {}

type fakeProbeClient struct {
	connected   bool
	probeErr    error
	disconnects int
	connects    int
}

func (f *fakeProbeClient) IsConnected() bool { return f.connected }

func (f *fakeProbeClient) TryFetchPrivacySettings(ctx context.Context, ignoreCache bool) (*types.PrivacySettings, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return &types.PrivacySettings{}, nil
}

func (f *fakeProbeClient) Disconnect() {
	f.disconnects++
	f.connected = false
}

func (f *fakeProbeClient) Connect() error {
	f.connects++
	f.connected = true
	return nil
}

func newTestSupervisor(t *testing.T) (*Supervisor, *store.SessionStore) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"), waLog.Noop)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	cfg := config.Default()
	cfg.ReconnectDelay = time.Millisecond

	sessions := store.NewSessionStore(s)
	sinks := func(string, *whatsmeow.Client) Sink { return nopSink{} }
	sup := NewSupervisor(cfg, s, sessions, store.NewSyncStateStore(s), sinks, waLog.Noop)
	return sup, sessions
}

func newTestHandle(t *testing.T, sessionID string) *Handle {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &Handle{SessionID: sessionID, ctx: ctx, cancel: cancel}
}

// A failed probe means the socket still reports connected while the
// session behind it is dead, and no disconnect event will arrive for it.
// The tick has to force the socket down and reconnect on its own, leaving
// the ready flag untouched.
func TestKeepAliveFailureTriggersReconnect(t *testing.T) {
	sup, sessions := newTestSupervisor(t)
	if err := sessions.Ensure("s1"); err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if err := sessions.MarkReady("s1", "2011234567"); err != nil {
		t.Fatalf("mark ready: %v", err)
	}

	client := &fakeProbeClient{connected: true, probeErr: errors.New("stale session")}
	sup.keepAliveTick(newTestHandle(t, "s1"), client, "2011234567")

	if client.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", client.disconnects)
	}
	if client.connects != 1 {
		t.Errorf("connects = %d, want 1", client.connects)
	}
	if !client.connected {
		t.Error("client should be reconnected after the tick")
	}

	sess, _ := sessions.Get("s1")
	if !sess.Ready {
		t.Error("probe failure must not clear the ready flag")
	}
}

func TestKeepAliveRemarksStaleReady(t *testing.T) {
	sup, sessions := newTestSupervisor(t)
	if err := sessions.Ensure("s1"); err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if err := sessions.SetNotReady("s1"); err != nil {
		t.Fatalf("set not ready: %v", err)
	}

	client := &fakeProbeClient{connected: true}
	sup.keepAliveTick(newTestHandle(t, "s1"), client, "2011234567")

	if client.disconnects != 0 || client.connects != 0 {
		t.Error("successful probe must not touch the socket")
	}
	sess, _ := sessions.Get("s1")
	if !sess.Ready {
		t.Error("successful probe should re-mark a stale session ready")
	}
	if sess.PhoneNumber != "2011234567" {
		t.Errorf("phone = %q, want 2011234567", sess.PhoneNumber)
	}
}

func TestKeepAliveSkipsWhileDisconnected(t *testing.T) {
	sup, sessions := newTestSupervisor(t)
	if err := sessions.Ensure("s1"); err != nil {
		t.Fatalf("ensure session: %v", err)
	}

	// The reconnect path owns a down socket; the tick must not race it.
	client := &fakeProbeClient{connected: false, probeErr: errors.New("stale session")}
	sup.keepAliveTick(newTestHandle(t, "s1"), client, "2011234567")

	if client.disconnects != 0 || client.connects != 0 {
		t.Error("tick on a disconnected client must be a no-op")
	}
}
