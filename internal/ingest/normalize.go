package ingest

import (
	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
)

// Content is the normalized payload of one incoming message: its text
// body, the media kind if any, the id of the quoted message, and the id
// of the revoked message when the payload is a revocation.
type Content struct {
	Body      string
	MediaType string
	ParentID  string
	RevokeID  string
}

// HasContent reports whether the message carries anything worth storing.
// Messages with no body and no media (reactions, ephemeral settings,
// protocol chatter) are skipped by ingestion.
func (c Content) HasContent() bool {
	return c.Body != "" || c.MediaType != ""
}

// normalize flattens the nested message payload into a Content.
func normalize(msg *waE2E.Message) Content {
	var c Content
	if msg == nil {
		return c
	}

	if pm := msg.GetProtocolMessage(); pm != nil {
		if pm.GetType() == waE2E.ProtocolMessage_REVOKE {
			c.RevokeID = pm.GetKey().GetID()
		}
		return c
	}

	switch {
	case msg.GetConversation() != "":
		c.Body = msg.GetConversation()

	case msg.GetExtendedTextMessage() != nil:
		ext := msg.GetExtendedTextMessage()
		c.Body = ext.GetText()
		c.ParentID = ext.GetContextInfo().GetStanzaID()

	case msg.GetImageMessage() != nil:
		img := msg.GetImageMessage()
		c.Body = img.GetCaption()
		c.MediaType = "image"
		c.ParentID = img.GetContextInfo().GetStanzaID()

	case msg.GetVideoMessage() != nil:
		vid := msg.GetVideoMessage()
		c.Body = vid.GetCaption()
		c.MediaType = "video"
		c.ParentID = vid.GetContextInfo().GetStanzaID()

	case msg.GetAudioMessage() != nil:
		c.MediaType = "audio"
		c.ParentID = msg.GetAudioMessage().GetContextInfo().GetStanzaID()

	case msg.GetDocumentMessage() != nil:
		doc := msg.GetDocumentMessage()
		c.Body = doc.GetCaption()
		if c.Body == "" {
			c.Body = doc.GetFileName()
		}
		c.MediaType = "document"
		c.ParentID = doc.GetContextInfo().GetStanzaID()

	case msg.GetStickerMessage() != nil:
		c.MediaType = "sticker"
	}

	return c
}
