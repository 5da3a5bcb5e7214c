package engine

import (
	"regexp"
	"strings"
)

const embedPrefix = "https://www.youtube.com/embed/"

var (
	watchURLRe = regexp.MustCompile(`(?:https?://)?(?:www\.|m\.)?youtube\.com/watch\?(?:[^#]*&)?v=([A-Za-z0-9_-]{11})`)
	shortURLRe = regexp.MustCompile(`(?:https?://)?(?:www\.)?youtu\.be/([A-Za-z0-9_-]{11})`)
	bareIDRe   = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// EmbedURL turns a YouTube watch URL, short link or bare video ID into an
// embeddable URL. Embed URLs and anything unrecognized are returned unchanged.
func EmbedURL(raw string) string {
	ref := strings.TrimSpace(raw)
	if ref == "" {
		return raw
	}
	if strings.Contains(ref, "youtube.com/embed/") {
		return raw
	}
	if m := watchURLRe.FindStringSubmatch(ref); m != nil {
		return embedPrefix + m[1]
	}
	if m := shortURLRe.FindStringSubmatch(ref); m != nil {
		return embedPrefix + m[1]
	}
	if bareIDRe.MatchString(ref) {
		return embedPrefix + ref
	}
	return raw
}
