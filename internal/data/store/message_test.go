package store

import (
	"testing"
)

func TestMessageInsertIdempotent(t *testing.T) {
	s := newTestStore(t)
	messages := NewMessageStore(s)

	msg := &Message{ID: "M1", ChatID: "c1", SessionID: "s1", Body: "first", Timestamp: 100}
	inserted, err := messages.Insert(msg)
	if err != nil || !inserted {
		t.Fatalf("first Insert = %v, %v; want true", inserted, err)
	}

	// Same id with a different payload must be a no-op.
	dup := &Message{ID: "M1", ChatID: "c1", SessionID: "s1", Body: "second", Timestamp: 200}
	inserted, err = messages.Insert(dup)
	if err != nil {
		t.Fatalf("second Insert: %v", err)
	}
	if inserted {
		t.Error("duplicate insert should report no-op")
	}

	got, _ := messages.Get("M1")
	if got.Body != "first" || got.Timestamp != 100 {
		t.Errorf("duplicate insert mutated the stored row: %+v", got)
	}
}

func TestMessageDefaultStatus(t *testing.T) {
	s := newTestStore(t)
	messages := NewMessageStore(s)

	messages.Insert(&Message{ID: "M1", ChatID: "c1", SessionID: "s1", Body: "x", Timestamp: 1})
	got, _ := messages.Get("M1")
	if got.Status != StatusReceived {
		t.Errorf("default status = %q, want %q", got.Status, StatusReceived)
	}
}

func TestMessageStatusLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	messages := NewMessageStore(s)

	messages.Insert(&Message{ID: "M1", ChatID: "c1", SessionID: "s1", Body: "x", Timestamp: 1})

	updated, err := messages.UpdateStatus("M1", StatusRead)
	if err != nil || !updated {
		t.Fatalf("UpdateStatus(read) = %v, %v", updated, err)
	}

	// A late delivered receipt overwrites read: no ordering is enforced.
	updated, err = messages.UpdateStatus("M1", StatusDelivered)
	if err != nil || !updated {
		t.Fatalf("UpdateStatus(delivered) = %v, %v", updated, err)
	}
	got, _ := messages.Get("M1")
	if got.Status != StatusDelivered {
		t.Errorf("status = %q, want last write %q", got.Status, StatusDelivered)
	}
}

func TestMessageStatusUnknownID(t *testing.T) {
	s := newTestStore(t)
	messages := NewMessageStore(s)

	updated, err := messages.UpdateStatus("ghost", StatusRead)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated {
		t.Error("receipt for unknown message should not report an update")
	}
}

func TestMessageDelete(t *testing.T) {
	s := newTestStore(t)
	messages := NewMessageStore(s)

	messages.Insert(&Message{ID: "M1", ChatID: "c1", SessionID: "s1", Body: "x", Timestamp: 1})
	if err := messages.Delete("M1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := messages.Get("M1"); got != nil {
		t.Error("deleted message should be gone")
	}

	// Revoking a message that was never stored is a no-op.
	if err := messages.Delete("never-stored"); err != nil {
		t.Errorf("Delete of unknown id should not error: %v", err)
	}
}

func TestMessageGetByChat(t *testing.T) {
	s := newTestStore(t)
	messages := NewMessageStore(s)

	for i, id := range []string{"A", "B", "C"} {
		messages.Insert(&Message{ID: id, ChatID: "c1", SessionID: "s1", Body: "x", Timestamp: int64(i)})
	}
	messages.Insert(&Message{ID: "D", ChatID: "c2", SessionID: "s1", Body: "x", Timestamp: 9})

	got, err := messages.GetByChat("c1", 10, 0)
	if err != nil {
		t.Fatalf("GetByChat: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3", len(got))
	}
	if got[0].ID != "C" {
		t.Errorf("newest first expected, got %s", got[0].ID)
	}
}

func TestMessageMaxTimestamp(t *testing.T) {
	s := newTestStore(t)
	messages := NewMessageStore(s)

	if ts, err := messages.MaxTimestamp("s1"); err != nil || ts != 0 {
		t.Fatalf("empty session MaxTimestamp = %d, %v; want 0", ts, err)
	}

	messages.Insert(&Message{ID: "A", ChatID: "c1", SessionID: "s1", Body: "x", Timestamp: 50})
	messages.Insert(&Message{ID: "B", ChatID: "c1", SessionID: "s1", Body: "x", Timestamp: 200})
	messages.Insert(&Message{ID: "C", ChatID: "c1", SessionID: "other", Body: "x", Timestamp: 999})

	ts, err := messages.MaxTimestamp("s1")
	if err != nil || ts != 200 {
		t.Errorf("MaxTimestamp = %d, %v; want 200", ts, err)
	}
}
