package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.mau.fi/whatsmeow"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	"wavault/internal/data/store"
	"wavault/internal/infra/config"
	"wavault/internal/utils/retry"
)

// Supervisor owns the lifecycle of every live session: pairing, connect,
// reconnect, keep-alive, and logout. The core asymmetry is that transient
// disconnects schedule a reconnect without touching the ready flag, while
// an explicit logout marks the session not-ready and evicts it for good.
type Supervisor struct {
	cfg      *config.Config
	store    *store.Store
	sessions *store.SessionStore
	sync     *store.SyncStateStore
	registry *Registry
	sinks    SinkFactory
	log      waLog.Logger
}

// NewSupervisor creates a session supervisor.
func NewSupervisor(cfg *config.Config, st *store.Store, sessions *store.SessionStore, syncState *store.SyncStateStore, sinks SinkFactory, log waLog.Logger) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		store:    st,
		sessions: sessions,
		sync:     syncState,
		registry: NewRegistry(),
		sinks:    sinks,
		log:      log.Sub("Supervisor"),
	}
}

// Registry exposes the live handle registry.
func (s *Supervisor) Registry() *Registry {
	return s.registry
}

// StartSession brings a session online. The id may be brand new, a paired
// session being restored, or an already-live session, in which case the
// existing handle is returned untouched. When forceFreshHistory is set,
// the app-state cache and the history watermark are cleared before
// connecting so the next login replays full history.
func (s *Supervisor) StartSession(ctx context.Context, sessionID string, forceFreshHistory bool) (*Handle, error) {
	if h, ok := s.registry.Get(sessionID); ok {
		if h.Client.IsConnected() {
			s.log.Debugf("Session %s already connected", sessionID)
			return h, nil
		}
		s.teardown(h)
	}

	if err := s.sessions.Ensure(sessionID); err != nil {
		return nil, fmt.Errorf("failed to ensure session row: %w", err)
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if forceFreshHistory && sess.DeviceJID != "" {
		if err := s.store.ClearAppState(sess.DeviceJID); err != nil {
			s.log.Warnf("Failed to clear app state for %s: %v", sessionID, err)
		}
		if err := s.sync.Clear(sessionID); err != nil {
			s.log.Warnf("Failed to clear history watermark for %s: %v", sessionID, err)
		}
	}

	device, err := s.loadDevice(ctx, sess)
	if err != nil {
		return nil, err
	}

	client := whatsmeow.NewClient(device, s.log.Sub(sessionID))
	client.EnableAutoReconnect = false

	bgCtx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		SessionID: sessionID,
		Client:    client,
		sink:      s.sinks(sessionID, client),
		ctx:       bgCtx,
		cancel:    cancel,
	}
	if old := s.registry.Put(h); old != nil {
		s.teardown(old)
	}

	client.AddEventHandler(func(evt interface{}) {
		s.handleEvent(h, evt)
	})

	// Pairing QR codes only flow before login; the channel must be
	// claimed before Connect.
	if device.ID == nil {
		qrChan, err := client.GetQRChannel(ctx)
		if err != nil {
			s.teardown(h)
			s.registry.Remove(sessionID)
			return nil, fmt.Errorf("failed to open QR channel: %w", err)
		}
		go s.consumeQR(h, qrChan)
	}

	if err := client.Connect(); err != nil {
		s.teardown(h)
		s.registry.Remove(sessionID)
		return nil, fmt.Errorf("failed to connect session %s: %w", sessionID, err)
	}

	s.log.Infof("Session %s starting (paired=%t, freshHistory=%t)", sessionID, device.ID != nil, forceFreshHistory)
	return h, nil
}

// RestoreSessions starts every session marked ready, concurrently.
// Failures are logged per session; one broken session never blocks its
// siblings.
func (s *Supervisor) RestoreSessions(ctx context.Context, forceFreshHistory bool) {
	sessions, err := s.sessions.AllReady()
	if err != nil {
		s.log.Errorf("Failed to list ready sessions: %v", err)
		return
	}

	var wg sync.WaitGroup
	var restored atomic.Int64
	for _, sess := range sessions {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := s.StartSession(ctx, id, forceFreshHistory); err != nil {
				s.log.Errorf("Failed to restore session %s: %v", id, err)
				return
			}
			restored.Add(1)
		}(sess.ID)
	}
	wg.Wait()
	s.log.Infof("Restored %d/%d sessions", restored.Load(), len(sessions))
}

// Terminate logs a session out and evicts it. The session row stays with
// ready cleared so its recorded chats remain queryable.
func (s *Supervisor) Terminate(ctx context.Context, sessionID string) error {
	h, ok := s.registry.Get(sessionID)
	if ok {
		if err := h.Client.Logout(ctx); err != nil {
			s.log.Warnf("Logout failed for %s: %v", sessionID, err)
		}
		s.teardown(h)
		s.registry.Remove(sessionID)
	}
	return s.sessions.SetNotReady(sessionID)
}

// Stop disconnects every live session without changing ready flags, so a
// restart restores them all.
func (s *Supervisor) Stop() {
	for _, h := range s.registry.All() {
		s.teardown(h)
		s.registry.Remove(h.SessionID)
	}
}

func (s *Supervisor) teardown(h *Handle) {
	h.cancel()
	h.Client.RemoveEventHandlers()
	h.Client.Disconnect()
	h.sink.Close()
}

func (s *Supervisor) loadDevice(ctx context.Context, sess *store.Session) (*wastore.Device, error) {
	if sess.DeviceJID != "" {
		jid, err := types.ParseJID(sess.DeviceJID)
		if err == nil {
			device, err := s.store.Container().GetDevice(ctx, jid)
			if err != nil {
				return nil, fmt.Errorf("failed to load device %s: %w", sess.DeviceJID, err)
			}
			if device != nil {
				return device, nil
			}
		}
		s.log.Warnf("Stored device %s for session %s is gone, pairing fresh", sess.DeviceJID, sess.ID)
	}
	return s.store.Container().NewDevice(), nil
}

func (s *Supervisor) handleEvent(h *Handle, evt interface{}) {
	switch e := evt.(type) {
	case *events.PairSuccess:
		s.log.Infof("Session %s paired as %s", h.SessionID, e.ID)
	case *events.Connected:
		s.onConnected(h)
	case *events.LoggedOut:
		s.onLoggedOut(h, e)
	case *events.Disconnected:
		s.onDisconnected(h)
	default:
		h.sink.Enqueue(evt)
	}
}

// onConnected binds the authenticated identity to the session row and
// marks it ready. If another session already owns the same phone number,
// its recorded data is folded into this one first.
func (s *Supervisor) onConnected(h *Handle) {
	jid := h.Client.Store.ID
	if jid == nil {
		s.log.Warnf("Session %s connected without an identity", h.SessionID)
		return
	}
	phone := jid.User

	if err := s.sessions.SetDeviceJID(h.SessionID, jid.String()); err != nil {
		s.log.Errorf("Failed to record device for %s: %v", h.SessionID, err)
	}

	existing, err := s.sessions.GetByPhone(phone)
	if err != nil {
		s.log.Errorf("Failed to check phone collision for %s: %v", phone, err)
	}
	if existing != nil && existing.ID != h.SessionID {
		s.log.Infof("Phone %s already bound to session %s, merging into %s", phone, existing.ID, h.SessionID)
		if old, ok := s.registry.Get(existing.ID); ok {
			s.teardown(old)
			s.registry.Remove(existing.ID)
		}
		result, err := s.sessions.Merge(existing.ID, h.SessionID)
		if err != nil {
			s.log.Errorf("Failed to merge session %s into %s: %v", existing.ID, h.SessionID, err)
		} else {
			s.log.Infof("Merged %d chats and %d messages from %s", result.Chats, result.Messages, existing.ID)
		}
	}

	if err := s.sessions.MarkReady(h.SessionID, phone); err != nil {
		s.log.Errorf("Failed to mark session %s ready: %v", h.SessionID, err)
		return
	}
	s.log.Infof("Session %s ready as %s", h.SessionID, phone)

	h.keepAlive.Do(func() {
		go s.keepAliveLoop(h, phone)
	})
}

// onLoggedOut handles the one terminal transition: credentials are gone,
// so the session is marked not-ready and evicted. No reconnect is
// scheduled.
func (s *Supervisor) onLoggedOut(h *Handle, e *events.LoggedOut) {
	s.log.Warnf("Session %s logged out (reason: %v)", h.SessionID, e.Reason)
	if err := s.sessions.SetNotReady(h.SessionID); err != nil {
		s.log.Errorf("Failed to mark session %s not ready: %v", h.SessionID, err)
	}
	s.teardown(h)
	s.registry.Remove(h.SessionID)
}

// onDisconnected schedules a reconnect after the configured delay. The
// ready flag is deliberately left alone: a dropped socket says nothing
// about whether the pairing is still valid.
func (s *Supervisor) onDisconnected(h *Handle) {
	s.log.Warnf("Session %s disconnected, reconnecting in %s", h.SessionID, s.cfg.ReconnectDelay)
	go func() {
		select {
		case <-h.ctx.Done():
			return
		case <-time.After(s.cfg.ReconnectDelay):
		}
		s.reconnectLoop(h.ctx, h.SessionID, h.Client)
	}()
}

// probeClient is the slice of the client the keep-alive path needs.
type probeClient interface {
	IsConnected() bool
	TryFetchPrivacySettings(ctx context.Context, ignoreCache bool) (*types.PrivacySettings, error)
	Disconnect()
	Connect() error
}

// reconnectLoop retries Connect at the configured cadence until the
// session is back online or its context is cancelled.
func (s *Supervisor) reconnectLoop(ctx context.Context, sessionID string, client probeClient) {
	err := retry.Forever(ctx, s.cfg.ReconnectDelay, func() error {
		if client.IsConnected() {
			return nil
		}
		return client.Connect()
	})
	if err != nil {
		s.log.Debugf("Reconnect loop for %s stopped: %v", sessionID, err)
	}
}

// keepAliveLoop probes the connection with an authenticated request at a
// fixed cadence.
func (s *Supervisor) keepAliveLoop(h *Handle, phone string) {
	ticker := time.NewTicker(s.cfg.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
		}
		s.keepAliveTick(h, h.Client, phone)
	}
}

// keepAliveTick probes the session once. A failed probe means the socket
// looks healthy but the application-layer session is stale; no disconnect
// event ever fires in that state, so the tick tears the socket down
// itself and re-enters the reconnect loop. A successful probe re-marks a
// stale session ready. The probe never clears the ready flag.
func (s *Supervisor) keepAliveTick(h *Handle, client probeClient, phone string) {
	if !client.IsConnected() {
		return
	}

	if _, err := client.TryFetchPrivacySettings(h.ctx, true); err != nil {
		s.log.Warnf("Keep-alive probe failed for %s, reconnecting: %v", h.SessionID, err)
		client.Disconnect()
		s.reconnectLoop(h.ctx, h.SessionID, client)
		return
	}

	sess, err := s.sessions.Get(h.SessionID)
	if err != nil || sess == nil {
		return
	}
	if !sess.Ready {
		s.log.Infof("Keep-alive probe succeeded for stale session %s, re-marking ready", h.SessionID)
		if err := s.sessions.MarkReady(h.SessionID, phone); err != nil {
			s.log.Errorf("Failed to re-mark session %s ready: %v", h.SessionID, err)
		}
	}
}

// consumeQR renders pairing codes and stores them on the session row.
// Stored codes are dropped once the session authenticates; the store
// refuses QR writes against a ready session so a late code can never
// clobber a finished pairing.
func (s *Supervisor) consumeQR(h *Handle, qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		select {
		case <-h.ctx.Done():
			return
		default:
		}

		switch item.Event {
		case "code":
			dataURL, err := RenderQRDataURL(item.Code)
			if err != nil {
				s.log.Errorf("Failed to render QR for %s: %v", h.SessionID, err)
				continue
			}
			if err := s.sessions.SetQR(h.SessionID, dataURL); err != nil {
				s.log.Errorf("Failed to store QR for %s: %v", h.SessionID, err)
			}
		case whatsmeow.QRChannelSuccess.Event:
			s.log.Infof("Session %s scanned QR successfully", h.SessionID)
			return
		case whatsmeow.QRChannelTimeout.Event:
			s.log.Warnf("QR pairing timed out for session %s", h.SessionID)
			return
		default:
			s.log.Debugf("QR channel event for %s: %s", h.SessionID, item.Event)
		}
	}
}
