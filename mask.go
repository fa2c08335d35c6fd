package authkit

import "strings"

// maskEmail obfuscates a delivery address for display: the first character
// of the local part survives, the rest is starred, the domain is kept so the
// user can recognize which inbox to check. Works on arbitrary input so
// unknown addresses mask identically to registered ones.
func maskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return "***"
	}

	local := email[:at]
	domain := email[at:]
	if len(local) == 1 {
		return "*" + domain
	}
	return local[:1] + strings.Repeat("*", len(local)-1) + domain
}
