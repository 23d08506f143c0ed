package store

import (
	"testing"
)

func TestChatUpsertIdempotent(t *testing.T) {
	s := newTestStore(t)
	chats := NewChatStore(s)

	c := &Chat{ID: "123@s.whatsapp.net_s1", SessionID: "s1", Name: "Alice", PhoneNumbers: []string{"20123"}}
	if err := chats.Upsert(c); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := chats.Upsert(c); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	all, err := chats.GetBySession("s1")
	if err != nil || len(all) != 1 {
		t.Fatalf("GetBySession = %d chats, %v; want 1", len(all), err)
	}
}

func TestChatUpsertKeepsKnownFields(t *testing.T) {
	s := newTestStore(t)
	chats := NewChatStore(s)

	chats.Upsert(&Chat{ID: "c1", SessionID: "s1", Name: "Alice", PhoneNumbers: []string{"20123"}})

	// An update with empty name and phones must not erase what we know.
	chats.Upsert(&Chat{ID: "c1", SessionID: "s1"})

	got, _ := chats.Get("c1")
	if got.Name != "Alice" {
		t.Errorf("name erased by empty upsert: %q", got.Name)
	}
	if len(got.PhoneNumbers) != 1 || got.PhoneNumbers[0] != "20123" {
		t.Errorf("phone numbers erased by empty upsert: %v", got.PhoneNumbers)
	}
}

func TestChatLastMessageMonotonic(t *testing.T) {
	s := newTestStore(t)
	chats := NewChatStore(s)
	chats.Upsert(&Chat{ID: "c1", SessionID: "s1"})

	// Out-of-order arrivals: the pointer must end at the newest timestamp.
	for i, ts := range []int64{5, 3, 8, 1} {
		id := string(rune('A' + i))
		if err := chats.UpdateLastMessage("c1", id, ts); err != nil {
			t.Fatalf("UpdateLastMessage(%d): %v", ts, err)
		}
	}

	got, _ := chats.Get("c1")
	if got.LastMessageTimestamp != 8 {
		t.Errorf("last message timestamp = %d, want 8", got.LastMessageTimestamp)
	}
	if got.LastMessageID != "C" {
		t.Errorf("last message id = %q, want C", got.LastMessageID)
	}
}

func TestChatFindByPhone(t *testing.T) {
	s := newTestStore(t)
	chats := NewChatStore(s)

	chats.Upsert(&Chat{ID: "20111222333@s.whatsapp.net_s1", SessionID: "s1", PhoneNumbers: []string{"20111222333"}})
	chats.Upsert(&Chat{ID: "20999888777@s.whatsapp.net_s1", SessionID: "s1", PhoneNumbers: []string{"20999888777"}})
	chats.Upsert(&Chat{ID: "20111222333@s.whatsapp.net_s2", SessionID: "s2", PhoneNumbers: []string{"20111222333"}})

	got, err := chats.FindByPhone("20111222333", "s1")
	if err != nil || got == nil {
		t.Fatalf("FindByPhone: %v", err)
	}
	if got.SessionID != "s1" {
		t.Errorf("found chat in wrong session: %s", got.SessionID)
	}

	results, err := chats.SearchByPhone("20111222333", "s1")
	if err != nil || len(results) != 1 {
		t.Errorf("SearchByPhone = %d results, %v; want 1", len(results), err)
	}

	if got, _ := chats.FindByPhone("20555", "s1"); got != nil {
		t.Errorf("unknown phone should find nothing, got %+v", got)
	}
}
