package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
)

var enabled atomic.Bool

var (
	emailRe  = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRe  = regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`)
	apiKeyRe = regexp.MustCompile(`\b(?:sk|pk|key|token)[-_][A-Za-z0-9\-_]{16,}\b`)
)

// SetEnabled toggles redaction of logged model text.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Enabled returns true when redaction is active.
func Enabled() bool {
	return enabled.Load()
}

// Text scrubs emails, phone numbers, and API-key-shaped tokens when enabled.
// Model output and tool result content pass through here before logging.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	out := emailRe.ReplaceAllString(in, "[REDACTED_EMAIL]")
	out = phoneRe.ReplaceAllString(out, "[REDACTED_PHONE]")
	out = apiKeyRe.ReplaceAllString(out, "[REDACTED_KEY]")
	return out
}
