// Package youtube resolves video URLs and retrieves platform-hosted caption tracks.
package youtube

import (
	"regexp"
	"strings"

	"yt-transcriber/internal/domain"
)

// Accepted URL shapes. Hosts match case-insensitively; each captures the ID
// up to the first &, ?, / or # and rejects IDs containing whitespace.
var videoURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?i:(?:https?://)?(?:(?:www|m|music)\.)?youtube\.com)/watch/?\?(?:[^#]*?&)?v=([^&?/#\s]*)(?:[&?/#]|$)`),
	regexp.MustCompile(`^(?i:(?:https?://)?(?:www\.)?youtu\.be)/([^&?/#\s]*)(?:[&?/#]|$)`),
	regexp.MustCompile(`^(?i:(?:https?://)?(?:(?:www|m)\.)?youtube(?:-nocookie)?\.com)/embed/([^&?/#\s]*)(?:[&?/#]|$)`),
}

// ResolveVideoID extracts the canonical video ID from a watch, short or embed URL.
func ResolveVideoID(raw string) (string, error) {
	input := strings.TrimSpace(raw)
	for _, re := range videoURLPatterns {
		m := re.FindStringSubmatch(input)
		if m == nil {
			continue
		}
		if id := strings.TrimSpace(m[1]); id != "" {
			return id, nil
		}
		break
	}
	return "", domain.NewFailure(domain.FailureInvalidURL, domain.StageResolvingURL,
		"unrecognized YouTube URL: "+input, nil)
}
