// Package masking redacts secret values before they land in the audit
// trail.
package masking

import "strings"

const maskToken = "****"

// MaskSecret redacts a secret, keeping any key prefix (up to the last
// underscore) and the final four characters so an operator can still match
// the entry against a known credential.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= 4 {
		return prefix + maskToken
	}
	return prefix + maskToken + remainder[len(remainder)-4:]
}

func splitPrefix(value string) (string, string) {
	idx := strings.LastIndex(value, "_")
	if idx == -1 || idx == len(value)-1 {
		return "", value
	}
	return value[:idx+1], value[idx+1:]
}
