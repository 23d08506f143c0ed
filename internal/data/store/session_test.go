package store

import (
	"testing"
)

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	sessions := NewSessionStore(s)

	id, err := sessions.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sess, err := sessions.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess == nil || sess.Ready {
		t.Fatalf("new session should exist and not be ready, got %+v", sess)
	}

	if err := sessions.SetQR(id, "data:image/png;base64,AAAA"); err != nil {
		t.Fatalf("SetQR: %v", err)
	}
	sess, _ = sessions.Get(id)
	if sess.QR == "" {
		t.Error("QR should be stored while not ready")
	}

	if err := sessions.MarkReady(id, "201112223334"); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	sess, _ = sessions.Get(id)
	if !sess.Ready || sess.PhoneNumber != "201112223334" {
		t.Errorf("session should be ready with phone bound, got %+v", sess)
	}
	if sess.QR != "" {
		t.Error("QR should be cleared once ready")
	}

	// A late QR event must not overwrite an authenticated session.
	if err := sessions.SetQR(id, "data:image/png;base64,BBBB"); err != nil {
		t.Fatalf("SetQR after ready: %v", err)
	}
	sess, _ = sessions.Get(id)
	if sess.QR != "" {
		t.Error("QR write against a ready session should be a no-op")
	}

	got, err := sessions.GetByPhone("201112223334")
	if err != nil || got == nil || got.ID != id {
		t.Errorf("GetByPhone = %+v, %v; want session %s", got, err, id)
	}

	ready, err := sessions.AllReady()
	if err != nil || len(ready) != 1 {
		t.Errorf("AllReady = %d sessions, %v; want 1", len(ready), err)
	}

	if err := sessions.SetNotReady(id); err != nil {
		t.Fatalf("SetNotReady: %v", err)
	}
	sess, _ = sessions.Get(id)
	if sess.Ready {
		t.Error("session should not be ready after SetNotReady")
	}
	if got, _ := sessions.GetByPhone("201112223334"); got != nil {
		t.Error("GetByPhone should only return ready sessions")
	}
}

func TestSessionEnsure(t *testing.T) {
	s := newTestStore(t)
	sessions := NewSessionStore(s)

	if err := sessions.Ensure("fixed-id"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := sessions.MarkReady("fixed-id", "20100000000"); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}

	// Re-ensuring must not reset the existing row.
	if err := sessions.Ensure("fixed-id"); err != nil {
		t.Fatalf("Ensure again: %v", err)
	}
	sess, _ := sessions.Get("fixed-id")
	if sess == nil || !sess.Ready {
		t.Errorf("Ensure overwrote an existing session: %+v", sess)
	}
}

func TestGetMissingSession(t *testing.T) {
	s := newTestStore(t)
	sessions := NewSessionStore(s)

	sess, err := sessions.Get("nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess != nil {
		t.Errorf("missing session should be nil, got %+v", sess)
	}
}

func TestSessionMerge(t *testing.T) {
	s := newTestStore(t)
	sessions := NewSessionStore(s)
	chats := NewChatStore(s)
	messages := NewMessageStore(s)
	syncState := NewSyncStateStore(s)

	oldID, _ := sessions.Create()
	newID, _ := sessions.Create()

	oldChat := ChatKey("123@s.whatsapp.net", oldID)
	if err := chats.Upsert(&Chat{ID: oldChat, SessionID: oldID, Name: "Alice"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	for i, msgID := range []string{"M1", "M2"} {
		_, err := messages.Insert(&Message{
			ID: msgID, ChatID: oldChat, SessionID: oldID,
			Body: "hello", Timestamp: int64(100 + i),
		})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if err := syncState.Advance(oldID, 101); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	result, err := sessions.Merge(oldID, newID)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if result.Chats != 1 || result.Messages != 2 {
		t.Errorf("MergeResult = %+v, want 1 chat and 2 messages", result)
	}

	if sess, _ := sessions.Get(oldID); sess != nil {
		t.Error("merged session row should be deleted")
	}

	newChat := ChatKey("123@s.whatsapp.net", newID)
	chat, err := chats.Get(newChat)
	if err != nil || chat == nil {
		t.Fatalf("rewritten chat missing: %v", err)
	}
	if chat.SessionID != newID {
		t.Errorf("chat session = %s, want %s", chat.SessionID, newID)
	}

	msg, _ := messages.Get("M1")
	if msg == nil || msg.ChatID != newChat || msg.SessionID != newID {
		t.Errorf("message not re-parented: %+v", msg)
	}

	ts, _ := syncState.Watermark(oldID)
	if ts != 0 {
		t.Error("old session's sync state should be gone")
	}
}

func TestSessionMergeTargetChatExists(t *testing.T) {
	s := newTestStore(t)
	sessions := NewSessionStore(s)
	chats := NewChatStore(s)
	messages := NewMessageStore(s)

	oldID, _ := sessions.Create()
	newID, _ := sessions.Create()

	oldChat := ChatKey("123@s.whatsapp.net", oldID)
	newChat := ChatKey("123@s.whatsapp.net", newID)
	chats.Upsert(&Chat{ID: oldChat, SessionID: oldID})
	chats.Upsert(&Chat{ID: newChat, SessionID: newID, Name: "Live"})
	messages.Insert(&Message{ID: "M1", ChatID: oldChat, SessionID: oldID, Body: "hi", Timestamp: 100})

	if _, err := sessions.Merge(oldID, newID); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if chat, _ := chats.Get(oldChat); chat != nil {
		t.Error("old chat row should be dropped when the target already exists")
	}
	chat, _ := chats.Get(newChat)
	if chat == nil || chat.Name != "Live" {
		t.Errorf("target chat should survive merge untouched, got %+v", chat)
	}
	msg, _ := messages.Get("M1")
	if msg == nil || msg.ChatID != newChat {
		t.Errorf("message should point at the surviving chat, got %+v", msg)
	}
}
