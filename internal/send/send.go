package send

import (
	"context"
	"fmt"

	"go.mau.fi/whatsmeow"
	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"wavault/internal/data/store"
	"wavault/internal/infra/config"
	"wavault/internal/resolve"
)

// Service sends outgoing messages and records them through the same
// stores as received traffic, so sent messages appear in chat history
// with a status that receipts can later advance.
type Service struct {
	cfg      *config.Config
	chats    *store.ChatStore
	messages *store.MessageStore
	resolver *resolve.Resolver
	log      waLog.Logger
}

// NewService creates a send service.
func NewService(cfg *config.Config, chats *store.ChatStore, messages *store.MessageStore, resolver *resolve.Resolver, log waLog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		chats:    chats,
		messages: messages,
		resolver: resolver,
		log:      log.Sub("Send"),
	}
}

// Text sends a text message from a session to a phone number. The number
// is normalized and resolved through the network directory first.
func (s *Service) Text(ctx context.Context, sessionID string, client *whatsmeow.Client, phone, body string) (*store.Message, error) {
	if body == "" {
		return nil, fmt.Errorf("message body is empty")
	}

	jid, err := s.resolver.ResolveJID(ctx, phone, s.cfg.CountryCode)
	if err != nil {
		// Directory unreachable: fall back to the constructed JID and
		// let the send itself fail if the number is bogus.
		clean := resolve.NormalizePhone(phone, s.cfg.CountryCode)
		if clean == "" {
			return nil, fmt.Errorf("phone number %q has no digits", phone)
		}
		s.log.Warnf("Directory lookup for %s failed, using constructed JID: %v", phone, err)
		jid = types.NewJID(clean, types.DefaultUserServer)
	}
	if jid.IsEmpty() {
		return nil, fmt.Errorf("phone number %s is not registered", phone)
	}

	return s.ToJID(ctx, sessionID, client, jid, body)
}

// ToJID sends a text message to an already-resolved JID.
func (s *Service) ToJID(ctx context.Context, sessionID string, client *whatsmeow.Client, jid types.JID, body string) (*store.Message, error) {
	resp, err := client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(body),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send message to %s: %w", jid, err)
	}

	chatID := store.ChatKey(jid.ToNonAD().String(), sessionID)
	chat := &store.Chat{
		ID:        chatID,
		SessionID: sessionID,
		IsGroup:   jid.Server == types.GroupServer,
	}
	if phone := resolve.PhoneFromJID(jid); phone != "" {
		chat.PhoneNumbers = []string{phone}
	}
	if err := s.chats.Upsert(chat); err != nil {
		s.log.Warnf("Failed to upsert chat %s: %v", chatID, err)
	}

	msg := &store.Message{
		ID:        resp.ID,
		ChatID:    chatID,
		SessionID: sessionID,
		Body:      body,
		Timestamp: resp.Timestamp.Unix(),
		FromMe:    true,
		Status:    store.StatusSent,
	}
	if client.Store.ID != nil {
		msg.FromNumber = client.Store.ID.User
		msg.SenderID = client.Store.ID.ToNonAD().String()
	}

	if _, err := s.messages.Insert(msg); err != nil {
		s.log.Errorf("Failed to record sent message %s: %v", resp.ID, err)
	}
	if err := s.chats.UpdateLastMessage(chatID, msg.ID, msg.Timestamp); err != nil {
		s.log.Warnf("Failed to advance last message for %s: %v", chatID, err)
	}

	s.log.Infof("Sent message %s to %s", resp.ID, jid)
	return msg, nil
}
