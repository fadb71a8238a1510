package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// GenerateID returns a random 32-char hex identifier.
func GenerateID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// FormatTime renders a timestamp for log and API output.
func FormatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// ValidateContent checks user supplied text (comments, descriptions).
func ValidateContent(content string) bool {
	if len(content) == 0 || len(content) > 4096 {
		return false
	}
	return true
}

// TruncateTitle trims a title for use in notification messages.
func TruncateTitle(title string, max int) string {
	title = strings.TrimSpace(title)
	if max <= 0 || len(title) <= max {
		return title
	}
	if max <= 3 {
		return title[:max]
	}
	return title[:max-3] + "..."
}
