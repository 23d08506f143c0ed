package ingest

import (
	"go.mau.fi/whatsmeow/types"

	"wavault/internal/data/store"
)

// statusFromReceipt maps a receipt type to a stored message status.
// Receipt kinds with no status meaning (played, sender, inactive) map to
// the empty string and are dropped.
func statusFromReceipt(t types.ReceiptType) string {
	switch t {
	case types.ReceiptTypeDelivered:
		return store.StatusDelivered
	case types.ReceiptTypeRead, types.ReceiptTypeReadSelf:
		return store.StatusRead
	default:
		return ""
	}
}
