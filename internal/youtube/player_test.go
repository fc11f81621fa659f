package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-transcriber/internal/domain"
)

func TestExtractJSONObjectSkipsBracesInStrings(t *testing.T) {
	data := []byte(`{"a":"}{","b":{"c":"\"}"}};var other = {}`)
	assert.Equal(t, `{"a":"}{","b":{"c":"\"}"}}`, string(extractJSONObject(data)))
	assert.Nil(t, extractJSONObject([]byte(`{"open":`)))
	assert.Nil(t, extractJSONObject([]byte(`no object`)))
}

func TestPickTrackWithoutPreferences(t *testing.T) {
	tracks := []captionTrack{
		{BaseURL: "https://x/de", LanguageCode: "de"},
		{BaseURL: "https://x/en-asr", LanguageCode: "en", Kind: "asr"},
		{BaseURL: "https://x/en&exp=xpe", LanguageCode: "en"},
	}

	got, ok := pickTrack(tracks, nil)
	require.True(t, ok)
	assert.Equal(t, "https://x/en-asr", got.BaseURL, "english generated beats other-language manual")

	got, ok = pickTrack(tracks[:1], nil)
	require.True(t, ok)
	assert.Equal(t, "de", got.LanguageCode)
}

func TestPickTrackPrefersManualInRequestedLanguages(t *testing.T) {
	tracks := []captionTrack{
		{BaseURL: "https://x/fr-asr", LanguageCode: "fr", Kind: "asr"},
		{BaseURL: "https://x/en-GB", LanguageCode: "en-GB"},
		{BaseURL: "https://x/fr", LanguageCode: "fr"},
	}

	got, ok := pickTrack(tracks, []string{"fr", "en"})
	require.True(t, ok)
	assert.Equal(t, "https://x/fr", got.BaseURL)

	got, ok = pickTrack(tracks, []string{"en"})
	require.True(t, ok)
	assert.Equal(t, "en-GB", got.LanguageCode)
}

func TestPickTrackLanguageMismatch(t *testing.T) {
	tracks := []captionTrack{{BaseURL: "https://x/de", LanguageCode: "de"}}
	_, ok := pickTrack(tracks, []string{"ja"})
	assert.False(t, ok)
}

func TestPickTrackAllPoToken(t *testing.T) {
	tracks := []captionTrack{{BaseURL: "https://x/en?a=1&exp=xpe", LanguageCode: "en"}}
	_, ok := pickTrack(tracks, nil)
	assert.False(t, ok)
}

func TestParseTimedTextLegacyFormat(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8" ?><transcript>` +
		`<text start="0" dur="1.5">Hello &amp;#39;world&amp;#39;</text>` +
		`<text start="1.5" dur="2">second
line</text>` +
		`<text start="3.5" dur="1">   </text>` +
		`</transcript>`

	segments, err := parseTimedText([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []domain.TimedSegment{
		{Start: 0, Text: "Hello 'world'"},
		{Start: 1.5, Text: "second line"},
	}, segments)
}

func TestParseTimedTextSrv3Format(t *testing.T) {
	doc := `<timedtext format="3"><body>` +
		`<p t="2500" d="1000"><s>auto</s><s t="300"> captions</s></p>` +
		`<p t="1000" d="1000">first</p>` +
		`</body></timedtext>`

	segments, err := parseTimedText([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []domain.TimedSegment{
		{Start: 1, Text: "first"},
		{Start: 2.5, Text: "auto captions"},
	}, segments)
}

func TestParseTimedTextClampsNonFiniteOffsets(t *testing.T) {
	doc := `<transcript>` +
		`<text start="inf" dur="1">infinite</text>` +
		`<text start="-2" dur="1">negative</text>` +
		`<text start="NaN" dur="1">not a number</text>` +
		`</transcript>`

	segments, err := parseTimedText([]byte(doc))
	require.NoError(t, err)
	require.Len(t, segments, 3)
	for _, seg := range segments {
		assert.Zero(t, seg.Start, "segment %q", seg.Text)
	}
}

func TestParseTimedTextRejectsGarbage(t *testing.T) {
	_, err := parseTimedText([]byte("not xml"))
	assert.Error(t, err)

	_, err = parseTimedText([]byte("<transcript></transcript>"))
	assert.Error(t, err)
}
