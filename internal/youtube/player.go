package youtube

import (
	"bytes"
	"encoding/xml"
	"errors"
	"html"
	"math"
	"sort"
	"strings"

	"yt-transcriber/internal/domain"
)

// Watch-page player response and timedtext payload types.

// playerResponseMarker marks the start of the player response JSON in watch page HTML.
const playerResponseMarker = "ytInitialPlayerResponse = "

type playerResponse struct {
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

func (t captionTrack) generated() bool {
	return t.Kind == "asr"
}

// unavailableStatuses are playability states where the video itself cannot be reached.
var unavailableStatuses = map[string]bool{
	"ERROR":                  true,
	"LOGIN_REQUIRED":         true,
	"UNPLAYABLE":             true,
	"AGE_CHECK_REQUIRED":     true,
	"CONTENT_CHECK_REQUIRED": true,
}

// timedText covers both the legacy <transcript><text start=".."> layout
// and the srv3 <timedtext><body><p t=".."> layout.
type timedText struct {
	Texts []struct {
		Start float64 `xml:"start,attr"`
		Text  string  `xml:",chardata"`
	} `xml:"text"`
	Paragraphs []struct {
		T     int64  `xml:"t,attr"`
		Text  string `xml:",chardata"`
		Spans []struct {
			Text string `xml:",chardata"`
		} `xml:"s"`
	} `xml:"body>p"`
}

// extractJSONObject returns the balanced JSON object at the start of data,
// skipping braces inside string literals.
func extractJSONObject(data []byte) []byte {
	start := bytes.IndexByte(data, '{')
	if start < 0 {
		return nil
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(data); i++ {
		ch := data[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return data[start : i+1]
			}
		}
	}
	return nil
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// matchesLanguage treats "en" as matching "en", "en-US" and "en-GB".
func matchesLanguage(code, want string) bool {
	code = strings.ToLower(code)
	want = strings.ToLower(strings.TrimSpace(want))
	return code == want || strings.HasPrefix(code, want+"-")
}

// pickTrack selects the best usable caption track.
//
// With preferred languages: manual tracks in preference order, then generated
// ones; no match means no usable track. Without preferences: English manual,
// English generated, any manual, any generated.
func pickTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if t.BaseURL != "" && !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}

	find := func(lang string, generated bool) (captionTrack, bool) {
		for _, t := range usable {
			if t.generated() != generated {
				continue
			}
			if lang == "" || matchesLanguage(t.LanguageCode, lang) {
				return t, true
			}
		}
		return captionTrack{}, false
	}

	if len(langs) > 0 {
		for _, generated := range []bool{false, true} {
			for _, lang := range langs {
				if t, ok := find(lang, generated); ok {
					return t, true
				}
			}
		}
		return captionTrack{}, false
	}

	for _, lang := range []string{"en", ""} {
		for _, generated := range []bool{false, true} {
			if t, ok := find(lang, generated); ok {
				return t, true
			}
		}
	}
	return captionTrack{}, false
}

// parseTimedText converts a timedtext XML document into ordered segments.
func parseTimedText(data []byte) ([]domain.TimedSegment, error) {
	var tt timedText
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, err
	}

	segments := make([]domain.TimedSegment, 0, len(tt.Texts)+len(tt.Paragraphs))
	for _, line := range tt.Texts {
		if text := cleanCueText(line.Text); text != "" {
			segments = append(segments, domain.TimedSegment{Start: nonNegative(line.Start), Text: text})
		}
	}
	for _, p := range tt.Paragraphs {
		raw := p.Text
		for _, s := range p.Spans {
			raw += s.Text
		}
		if text := cleanCueText(raw); text != "" {
			segments = append(segments, domain.TimedSegment{Start: nonNegative(float64(p.T) / 1000), Text: text})
		}
	}
	if len(segments) == 0 && len(tt.Texts) == 0 && len(tt.Paragraphs) == 0 {
		return nil, errors.New("timedtext document has no cues")
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	return segments, nil
}

// cleanCueText undoes the second level of HTML escaping YouTube applies
// and folds line breaks inside a cue into spaces.
func cleanCueText(raw string) string {
	text := html.UnescapeString(raw)
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(text)
}

// nonNegative clamps negative and non-finite offsets to zero.
func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
