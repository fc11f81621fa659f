// Package format renders transcript results into operator-facing text.
package format

import (
	"fmt"
	"math"
	"strings"

	"yt-transcriber/internal/domain"
)

// Render turns result into output text. With timestamps each segment becomes
// one "[HH:MM:SS] text" line; without them the texts are joined by single spaces.
func Render(result domain.TranscriptResult, includeTimestamps bool) string {
	if includeTimestamps {
		return renderTimed(result.Segments)
	}
	return renderPlain(result.Segments)
}

func renderPlain(segments []domain.TimedSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := collapseSpaces(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func renderTimed(segments []domain.TimedSegment) string {
	var b strings.Builder
	for _, seg := range segments {
		text := collapseSpaces(seg.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(Timestamp(seg.Start))
		b.WriteByte(' ')
		b.WriteString(text)
	}
	return b.String()
}

// Timestamp formats an offset as "[HH:MM:SS]", flooring to whole seconds.
// Hours are not wrapped at 24. Negative and non-finite offsets render as zero.
func Timestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	total := int64(math.Floor(seconds))
	return fmt.Sprintf("[%02d:%02d:%02d]", total/3600, total%3600/60, total%60)
}

// collapseSpaces folds runs of whitespace (including newlines) into one space.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
