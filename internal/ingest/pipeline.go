package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	"wavault/internal/data/store"
	"wavault/internal/infra/config"
	"wavault/internal/media"
	"wavault/internal/notify"
	"wavault/internal/resolve"
)

const eventBuffer = 512

// Pipeline ingests one session's event stream: messages, receipts, and
// history batches. Events are processed on a single worker goroutine, so
// per-session ordering is preserved without locking. Every write is
// idempotent and replaying the same event is harmless.
type Pipeline struct {
	sessionID string
	client    *whatsmeow.Client
	cfg       *config.Config

	chats    *store.ChatStore
	messages *store.MessageStore
	sync     *store.SyncStateStore
	resolver *resolve.Resolver
	media    *media.Service
	notify   *notify.Fanout
	groups   *cache.Cache
	log      waLog.Logger

	events    chan interface{}
	quit      chan struct{}
	closeOnce sync.Once
}

// NewPipeline creates and starts a pipeline for one session.
func NewPipeline(sessionID string, client *whatsmeow.Client, cfg *config.Config,
	chats *store.ChatStore, messages *store.MessageStore, syncState *store.SyncStateStore,
	resolver *resolve.Resolver, mediaSvc *media.Service, fanout *notify.Fanout,
	log waLog.Logger) *Pipeline {

	p := &Pipeline{
		sessionID: sessionID,
		client:    client,
		cfg:       cfg,
		chats:     chats,
		messages:  messages,
		sync:      syncState,
		resolver:  resolver,
		media:     mediaSvc,
		notify:    fanout,
		groups:    cache.New(10*time.Minute, 30*time.Minute),
		log:       log.Sub("Ingest"),
		events:    make(chan interface{}, eventBuffer),
		quit:      make(chan struct{}),
	}
	go p.run()
	return p
}

// Enqueue hands an event to the worker. Blocks briefly when the buffer is
// full; drops nothing unless the pipeline is closed.
func (p *Pipeline) Enqueue(evt interface{}) {
	select {
	case p.events <- evt:
	case <-p.quit:
	}
}

// Close stops the worker. Buffered events are discarded.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		close(p.quit)
	})
}

func (p *Pipeline) run() {
	for {
		select {
		case <-p.quit:
			return
		case evt := <-p.events:
			p.dispatch(evt)
		}
	}
}

func (p *Pipeline) dispatch(evt interface{}) {
	ctx := context.Background()

	switch e := evt.(type) {
	case *events.Message:
		p.handleMessage(ctx, e, notify.SourceLive)
	case *events.Receipt:
		p.handleReceipt(e)
	case *events.HistorySync:
		p.handleHistorySync(ctx, e)
	case *events.PushName:
		p.resolver.RememberPushName(e.JID, e.NewPushName)
	case *events.Contact:
		p.resolver.RememberContact(e.JID, e.Action.GetFullName(), "")
	}
}

// handleMessage records one message. Used for both live traffic and
// decoded history messages; source controls media handling and the
// notification payload. Returns false only when a store write failed, so
// history replay can hold its watermark back for the errored record.
func (p *Pipeline) handleMessage(ctx context.Context, evt *events.Message, source string) bool {
	info := evt.Info
	if info.Chat == types.StatusBroadcastJID {
		return true
	}

	content := normalize(evt.Message)

	if content.RevokeID != "" {
		if err := p.messages.Delete(content.RevokeID); err != nil {
			p.log.Errorf("Failed to delete revoked message %s: %v", content.RevokeID, err)
			return false
		}
		p.log.Debugf("Revoked message %s removed", content.RevokeID)
		return true
	}

	if !content.HasContent() {
		return true
	}

	chatJID := resolve.CanonicalChatJID(&info)
	senderJID := resolve.CanonicalSenderJID(&info)
	chatID := store.ChatKey(chatJID.String(), p.sessionID)

	hints := resolve.NameHints{PushName: info.PushName}
	if info.VerifiedName != nil && info.VerifiedName.Details != nil {
		hints.VerifiedName = info.VerifiedName.Details.GetVerifiedName()
	}

	if err := p.upsertChat(ctx, chatJID, chatID, &info, hints); err != nil {
		p.log.Errorf("Failed to upsert chat %s: %v", chatID, err)
		return false
	}

	senderName := p.resolver.DisplayName(ctx, senderJID, hints)

	msg := &store.Message{
		ID:         info.ID,
		ChatID:     chatID,
		SessionID:  p.sessionID,
		FromNumber: resolve.PhoneFromJID(senderJID),
		SenderID:   senderJID.String(),
		SenderName: senderName,
		Body:       content.Body,
		Timestamp:  info.Timestamp.Unix(),
		FromMe:     info.IsFromMe,
		HasMedia:   content.MediaType != "",
		MediaType:  content.MediaType,
		ParentID:   content.ParentID,
		Status:     initialStatus(info.IsFromMe),
	}

	if content.MediaType != "" {
		msg.MediaURL = p.mediaURL(ctx, evt, content.MediaType, source)
	}

	inserted, err := p.messages.Insert(msg)
	if err != nil {
		p.log.Errorf("Failed to store message %s: %v", msg.ID, err)
		return false
	}
	if !inserted {
		p.log.Debugf("Message %s already stored, skipping", msg.ID)
		return true
	}

	if err := p.chats.UpdateLastMessage(chatID, msg.ID, msg.Timestamp); err != nil {
		p.log.Warnf("Failed to advance last message for %s: %v", chatID, err)
	}

	p.notify.Publish(ctx, &notify.Event{
		SessionID:  p.sessionID,
		ChatID:     chatID,
		MessageID:  msg.ID,
		From:       msg.FromNumber,
		SenderName: msg.SenderName,
		Body:       msg.Body,
		Timestamp:  msg.Timestamp,
		FromMe:     msg.FromMe,
		IsGroup:    info.IsGroup,
		MediaType:  msg.MediaType,
		MediaURL:   msg.MediaURL,
		Source:     source,
	})

	if source == notify.SourceLive && !info.IsFromMe && p.cfg.AutoReadReceipts {
		p.scheduleReadReceipt(info, chatJID, senderJID)
	}
	return true
}

func initialStatus(fromMe bool) string {
	if fromMe {
		return store.StatusSent
	}
	return store.StatusReceived
}

// upsertChat ensures the chat row exists with current metadata. Group
// chats pull their subject and a participant sample from the network;
// direct chats resolve the remote party's name.
func (p *Pipeline) upsertChat(ctx context.Context, chatJID types.JID, chatID string, info *types.MessageInfo, hints resolve.NameHints) error {
	chat := &store.Chat{
		ID:        chatID,
		SessionID: p.sessionID,
		IsGroup:   info.IsGroup,
	}

	if info.IsGroup {
		if gi := p.groupInfo(ctx, info.Chat); gi != nil {
			chat.Name = gi.Name
			chat.PhoneNumbers = participantSample(gi, 3)
		}
	} else {
		if info.IsFromMe {
			hints = resolve.NameHints{}
		}
		chat.Name = p.resolver.DisplayName(ctx, chatJID, hints)
		if phone := resolve.PhoneFromJID(chatJID); phone != "" {
			chat.PhoneNumbers = []string{phone}
		}
	}

	return p.chats.Upsert(chat)
}

// groupInfo fetches group metadata with a TTL cache so a burst of group
// messages costs one roster query.
func (p *Pipeline) groupInfo(ctx context.Context, jid types.JID) *types.GroupInfo {
	key := jid.String()
	if cached, found := p.groups.Get(key); found {
		return cached.(*types.GroupInfo)
	}

	gi, err := p.client.GetGroupInfo(ctx, jid)
	if err != nil {
		p.log.Warnf("Failed to fetch group info for %s: %v", jid, err)
		return nil
	}
	p.groups.Set(key, gi, cache.DefaultExpiration)
	return gi
}

// participantSample returns up to limit participant phone numbers.
func participantSample(gi *types.GroupInfo, limit int) []string {
	var phones []string
	for _, part := range gi.Participants {
		if phone := resolve.PhoneFromJID(part.JID); phone != "" {
			phones = append(phones, phone)
		}
		if len(phones) >= limit {
			break
		}
	}
	return phones
}

// mediaURL downloads and uploads live media, or returns the placeholder
// for history media. Failures degrade to an empty URL; the message is
// still recorded.
func (p *Pipeline) mediaURL(ctx context.Context, evt *events.Message, mediaType, source string) string {
	if source == notify.SourceHistory {
		return media.HistoryPlaceholder(mediaType)
	}
	if !p.media.Enabled() {
		return ""
	}

	url, err := p.media.Store(ctx, p.client, evt.Message, p.sessionID, evt.Info.ID, mediaType)
	if err != nil {
		p.log.Warnf("Failed to store media for %s: %v", evt.Info.ID, err)
		return ""
	}
	return url
}

// handleReceipt applies delivery and read receipts. Status is
// last-write-wins; receipts for unknown message ids are dropped.
func (p *Pipeline) handleReceipt(evt *events.Receipt) {
	status := statusFromReceipt(evt.Type)
	if status == "" {
		return
	}

	for _, id := range evt.MessageIDs {
		updated, err := p.messages.UpdateStatus(id, status)
		if err != nil {
			p.log.Errorf("Failed to update status for %s: %v", id, err)
			continue
		}
		if !updated {
			p.log.Debugf("Receipt for unknown message %s dropped", id)
		}
	}
}

// scheduleReadReceipt marks a live incoming message read after the
// configured delay.
func (p *Pipeline) scheduleReadReceipt(info types.MessageInfo, chatJID, senderJID types.JID) {
	go func() {
		select {
		case <-p.quit:
			return
		case <-time.After(p.cfg.ReadReceiptDelay):
		}

		err := p.client.MarkRead(context.Background(), []types.MessageID{info.ID}, time.Now(), chatJID, senderJID)
		if err != nil {
			p.log.Warnf("Failed to send read receipt for %s: %v", info.ID, err)
		}
	}()
}
