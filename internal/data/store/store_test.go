package store

import (
	"path/filepath"
	"testing"

	waLog "go.mau.fi/whatsmeow/util/log"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"), waLog.Noop)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestChatKey(t *testing.T) {
	a := ChatKey("123@s.whatsapp.net", "sess-1")
	b := ChatKey("123@s.whatsapp.net", "sess-1")
	if a != b {
		t.Errorf("ChatKey not deterministic: %q vs %q", a, b)
	}
	if a != "123@s.whatsapp.net_sess-1" {
		t.Errorf("unexpected chat key: %q", a)
	}
	if ChatKey("123@s.whatsapp.net", "sess-2") == a {
		t.Error("different sessions must produce different chat keys")
	}
}

func TestRewriteChatKey(t *testing.T) {
	got := rewriteChatKey("123@s.whatsapp.net_old", "old", "new")
	if got != "123@s.whatsapp.net_new" {
		t.Errorf("rewriteChatKey = %q, want 123@s.whatsapp.net_new", got)
	}
}
