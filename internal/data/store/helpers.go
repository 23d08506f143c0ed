package store

import (
	"database/sql"
	"encoding/json"
	"strings"
)

// Helper functions for null-safe SQL operations

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(i int64) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: i, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func jsonStrings(strs []string) []byte {
	if len(strs) == 0 {
		return nil
	}
	b, _ := json.Marshal(strs)
	return b
}

func jsonUnmarshalStrings(data []byte) []string {
	var result []string
	if len(data) > 0 {
		json.Unmarshal(data, &result)
	}
	return result
}

// ChatKey builds the composite chat id from a remote chat identifier and
// the owning session id. It is deterministic: re-running ingestion against
// the same inputs always resolves to the same chat row.
func ChatKey(remoteID, sessionID string) string {
	return remoteID + "_" + sessionID
}

// rewriteChatKey re-parents a composite chat id from one session to
// another, preserving the remote chat identifier.
func rewriteChatKey(chatID, oldSessionID, newSessionID string) string {
	return strings.TrimSuffix(chatID, "_"+oldSessionID) + "_" + newSessionID
}
