package ingest

import (
	"context"

	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"wavault/internal/data/store"
	"wavault/internal/notify"
	"wavault/internal/resolve"
)

// handleHistorySync replays a history batch through the same ingestion
// path as live messages. The per-session watermark skips segments older
// than what is already stored; history media is recorded as a placeholder
// and never downloaded.
func (p *Pipeline) handleHistorySync(ctx context.Context, evt *events.HistorySync) {
	hs := evt.Data

	for _, pn := range hs.GetPushnames() {
		if pn.GetID() == "" {
			continue
		}
		jid, err := types.ParseJID(pn.GetID())
		if err != nil {
			continue
		}
		p.resolver.RememberPushName(jid, pn.GetPushname())
	}

	watermark, err := p.sync.Watermark(p.sessionID)
	if err != nil {
		p.log.Errorf("Failed to load history watermark: %v", err)
		return
	}

	var stored, skipped, failed int
	var maxTs int64

	for _, conv := range hs.GetConversations() {
		chatJID, err := types.ParseJID(conv.GetID())
		if err != nil || chatJID.IsEmpty() {
			continue
		}

		for _, histMsg := range conv.GetMessages() {
			webMsg := histMsg.GetMessage()
			if webMsg == nil {
				continue
			}

			parsed, err := p.client.ParseWebMessage(chatJID, webMsg)
			if err != nil {
				p.log.Debugf("Failed to parse history message in %s: %v", chatJID, err)
				continue
			}

			ts := parsed.Info.Timestamp.Unix()
			if belowWatermark(watermark, ts) {
				skipped++
				continue
			}

			if !p.handleMessage(ctx, parsed, notify.SourceHistory) {
				failed++
				continue
			}
			stored++
			if ts > maxTs {
				maxTs = ts
			}
		}

		if name := conv.GetName(); name != "" {
			p.upsertHistoryChat(chatJID, name)
		}
	}

	if maxTs > 0 {
		if err := p.sync.Advance(p.sessionID, maxTs); err != nil {
			p.log.Errorf("Failed to advance history watermark: %v", err)
		}
	}
	p.log.Infof("History sync processed: %d stored, %d below watermark, %d failed", stored, skipped, failed)
}

// belowWatermark reports whether a history entry is strictly older than
// the stored watermark. Entries at the watermark second pass through:
// timestamps are second resolution and a later batch can carry a new
// message in the same second, so the id-based insert decides those.
func belowWatermark(watermark, ts int64) bool {
	return watermark > 0 && ts < watermark
}

// upsertHistoryChat records a conversation's own display name, which
// outranks anything resolved per message.
func (p *Pipeline) upsertHistoryChat(chatJID types.JID, name string) {
	jid := chatJID.ToNonAD()
	chat := &store.Chat{
		ID:        store.ChatKey(jid.String(), p.sessionID),
		SessionID: p.sessionID,
		IsGroup:   jid.Server == types.GroupServer,
		Name:      name,
	}
	if phone := resolve.PhoneFromJID(jid); phone != "" {
		chat.PhoneNumbers = []string{phone}
	}
	if err := p.chats.Upsert(chat); err != nil {
		p.log.Warnf("Failed to upsert history chat %s: %v", chat.ID, err)
	}
}
