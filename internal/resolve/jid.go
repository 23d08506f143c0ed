package resolve

import (
	"go.mau.fi/whatsmeow/types"
)

// CanonicalChatJID picks the stable chat identifier for a message. Hidden
// user (LID) chats are mapped back to the phone-number JID through the alt
// fields so the same conversation never splits into two chat rows.
func CanonicalChatJID(info *types.MessageInfo) types.JID {
	chat := info.Chat
	if chat.Server == types.HiddenUserServer {
		if info.IsFromMe && !info.RecipientAlt.IsEmpty() {
			return info.RecipientAlt.ToNonAD()
		}
		if !info.IsFromMe && !info.SenderAlt.IsEmpty() {
			return info.SenderAlt.ToNonAD()
		}
	}
	return chat.ToNonAD()
}

// CanonicalSenderJID picks the stable sender identifier for a message,
// preferring the phone-number alt over a hidden-user JID.
func CanonicalSenderJID(info *types.MessageInfo) types.JID {
	sender := info.Sender
	if sender.Server == types.HiddenUserServer && !info.SenderAlt.IsEmpty() {
		return info.SenderAlt.ToNonAD()
	}
	return sender.ToNonAD()
}
