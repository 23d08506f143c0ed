package resolve

import (
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// NormalizePhone strips every non-digit character and replaces a leading
// trunk zero with the configured country code. Local numbers like
// "011234567" become "2011234567" when countryCode is "20". Numbers that
// already carry a country prefix pass through unchanged.
func NormalizePhone(raw, countryCode string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(digits, "0") {
		return countryCode + digits[1:]
	}
	return digits
}

// PhoneFromJID extracts the phone number from a user JID. Group and
// hidden-user JIDs have no phone component and yield an empty string.
func PhoneFromJID(jid types.JID) string {
	if jid.Server != types.DefaultUserServer {
		return ""
	}
	return jid.User
}
