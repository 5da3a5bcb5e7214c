package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richSanitizer  = bluemonday.UGCPolicy()
	plainSanitizer = bluemonday.StrictPolicy()
)

// Sanitize keeps the safe HTML subset used for lesson content, descriptions and announcements.
func Sanitize(input string) string {
	return richSanitizer.Sanitize(input)
}

// SanitizePlain strips all markup, for short fields such as titles, bios and feedback.
func SanitizePlain(input string) string {
	return strings.TrimSpace(plainSanitizer.Sanitize(input))
}
