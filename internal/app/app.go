package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.mau.fi/whatsmeow"
	wastore "go.mau.fi/whatsmeow/store"

	"wavault/internal/data/store"
	"wavault/internal/infra/config"
	"wavault/internal/infra/logger"
	"wavault/internal/ingest"
	"wavault/internal/media"
	"wavault/internal/notify"
	"wavault/internal/resolve"
	"wavault/internal/send"
	"wavault/internal/session"
)

// App is the main application orchestrator.
type App struct {
	Config     *config.Config
	Log        *logger.Logger
	Store      *store.Store
	Supervisor *session.Supervisor

	SessionStore *store.SessionStore
	ChatStore    *store.ChatStore
	MessageStore *store.MessageStore
	ContactStore *store.ContactStore
	SyncState    *store.SyncStateStore

	mediaService *media.Service
	fanout       *notify.Fanout

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new App instance.
func New(cfg *config.Config) (*App, error) {
	log := logger.New("wavault", cfg.LogLevel)
	log.Infof("Initializing wavault...")

	wastore.SetOSInfo(cfg.DeviceName, [3]uint32{1, 0, 0})

	if err := cfg.EnsureStorePath(); err != nil {
		return nil, fmt.Errorf("failed to ensure store path: %w", err)
	}

	dbPath := cfg.StorePath + "/wavault.db"
	appStore, err := store.New(dbPath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	sessionStore := store.NewSessionStore(appStore)
	chatStore := store.NewChatStore(appStore)
	messageStore := store.NewMessageStore(appStore)
	contactStore := store.NewContactStore(appStore)
	syncState := store.NewSyncStateStore(appStore)

	var uploader media.Uploader
	if cfg.Media.Enabled {
		s3, err := media.NewS3Uploader(cfg.Media)
		if err != nil {
			appStore.Close()
			return nil, fmt.Errorf("failed to configure media storage: %w", err)
		}
		uploader = s3
	}
	mediaService := media.NewService(uploader, log)

	var publishers []notify.Publisher
	if cfg.Notify.AMQPURL != "" {
		rabbit, err := notify.NewRabbitPublisher(cfg.Notify.AMQPURL, cfg.Notify.AMQPQueue)
		if err != nil {
			log.Warnf("RabbitMQ publishing disabled: %v", err)
		} else {
			publishers = append(publishers, rabbit)
		}
	}
	if cfg.Notify.WebhookURL != "" {
		publishers = append(publishers, notify.NewWebhookPublisher(cfg.Notify.WebhookURL))
	}
	fanout := notify.NewFanout(log, publishers...)

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		Config:       cfg,
		Log:          log,
		Store:        appStore,
		SessionStore: sessionStore,
		ChatStore:    chatStore,
		MessageStore: messageStore,
		ContactStore: contactStore,
		SyncState:    syncState,
		mediaService: mediaService,
		fanout:       fanout,
		ctx:          ctx,
		cancel:       cancel,
	}

	app.Supervisor = session.NewSupervisor(cfg, appStore, sessionStore, syncState, app.newSink, log)
	return app, nil
}

// newSink builds the ingestion pipeline for a freshly started session.
func (a *App) newSink(sessionID string, client *whatsmeow.Client) session.Sink {
	resolver := resolve.NewResolver(a.ContactStore, client, a.Log.Sub("Resolver"))
	return ingest.NewPipeline(sessionID, client, a.Config,
		a.ChatStore, a.MessageStore, a.SyncState,
		resolver, a.mediaService, a.fanout, a.Log)
}

// Run restores recorded sessions, optionally starts a requested one, and
// blocks until shutdown. sessionID may be empty.
func (a *App) Run(sessionID string, freshHistory bool) error {
	a.Log.Infof("Starting wavault...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		a.Log.Infof("Received %v, initiating shutdown...", sig)
		a.cancel()
	}()

	a.Supervisor.RestoreSessions(a.ctx, a.Config.ResyncOnRestore)

	if sessionID != "" {
		if _, err := a.Supervisor.StartSession(a.ctx, sessionID, freshHistory); err != nil {
			if a.ctx.Err() != nil {
				return a.Shutdown()
			}
			a.Shutdown()
			return err
		}
	}

	a.Log.Infof("wavault is running. Press Ctrl+C to stop.")
	<-a.ctx.Done()
	return a.Shutdown()
}

// SendText sends a text message from a live session to a phone number.
func (a *App) SendText(ctx context.Context, sessionID, phone, body string) (*store.Message, error) {
	h, ok := a.Supervisor.Registry().Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %s is not live", sessionID)
	}

	resolver := resolve.NewResolver(a.ContactStore, h.Client, a.Log.Sub("Resolver"))
	sender := send.NewService(a.Config, a.ChatStore, a.MessageStore, resolver, a.Log)
	return sender.Text(ctx, sessionID, h.Client, phone, body)
}

// FindChatsByPhone searches a session's chats by phone number.
func (a *App) FindChatsByPhone(sessionID, phone string) ([]*store.Chat, error) {
	clean := resolve.NormalizePhone(phone, a.Config.CountryCode)
	if clean == "" {
		return nil, fmt.Errorf("phone number %q has no digits", phone)
	}
	return a.ChatStore.SearchByPhone(clean, sessionID)
}

// Terminate logs a session out and marks it not ready.
func (a *App) Terminate(ctx context.Context, sessionID string) error {
	return a.Supervisor.Terminate(ctx, sessionID)
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.cancel()
	a.Supervisor.Stop()
	a.fanout.Close()
	return a.Store.Close()
}
