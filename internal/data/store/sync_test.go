package store

import (
	"testing"
)

func TestSyncWatermark(t *testing.T) {
	s := newTestStore(t)
	syncState := NewSyncStateStore(s)

	ts, err := syncState.Watermark("s1")
	if err != nil || ts != 0 {
		t.Fatalf("fresh watermark = %d, %v; want 0", ts, err)
	}

	if err := syncState.Advance("s1", 100); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	ts, _ = syncState.Watermark("s1")
	if ts != 100 {
		t.Errorf("watermark = %d, want 100", ts)
	}

	// A replayed batch with an older timestamp must not regress it.
	if err := syncState.Advance("s1", 50); err != nil {
		t.Fatalf("Advance older: %v", err)
	}
	ts, _ = syncState.Watermark("s1")
	if ts != 100 {
		t.Errorf("watermark regressed to %d", ts)
	}

	if err := syncState.Advance("s1", 200); err != nil {
		t.Fatalf("Advance newer: %v", err)
	}
	ts, _ = syncState.Watermark("s1")
	if ts != 200 {
		t.Errorf("watermark = %d, want 200", ts)
	}

	if err := syncState.Clear("s1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	ts, _ = syncState.Watermark("s1")
	if ts != 0 {
		t.Errorf("cleared watermark = %d, want 0", ts)
	}
}

func TestContactBestName(t *testing.T) {
	s := newTestStore(t)
	contacts := NewContactStore(s)

	jid := "20123@s.whatsapp.net"
	contacts.Put(&Contact{JID: jid, PushName: "push"})

	name, err := contacts.BestName(jid)
	if err != nil || name != "push" {
		t.Errorf("BestName = %q, %v; want push", name, err)
	}

	// Learning a fuller name takes precedence, and the push name stays.
	contacts.Put(&Contact{JID: jid, FullName: "Alice Smith"})
	name, _ = contacts.BestName(jid)
	if name != "Alice Smith" {
		t.Errorf("BestName = %q, want full name", name)
	}

	got, _ := contacts.Get(jid)
	if got.PushName != "push" {
		t.Errorf("push name erased: %+v", got)
	}

	name, err = contacts.BestName("unknown@s.whatsapp.net")
	if err != nil || name != "" {
		t.Errorf("unknown contact BestName = %q, %v; want empty", name, err)
	}
}
