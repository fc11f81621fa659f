package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"yt-transcriber/internal/domain"
)

const (
	defaultBaseURL   = "https://www.youtube.com"
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	maxWatchPageBytes = 6 * 1024 * 1024
	maxTimedTextBytes = 4 * 1024 * 1024
)

// HostedTranscript is a caption track retrieved from the platform.
type HostedTranscript struct {
	Segments  []domain.TimedSegment
	Language  string
	Generated bool
}

// CaptionClient fetches platform-hosted transcripts over HTTP.
type CaptionClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	retries    int
	retryWait  time.Duration
}

// CaptionOption configures a CaptionClient.
type CaptionOption func(*CaptionClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) CaptionOption {
	return func(c *CaptionClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL points the client at another watch-page host.
func WithBaseURL(base string) CaptionOption {
	return func(c *CaptionClient) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			c.baseURL = base
		}
	}
}

// WithUserAgent overrides the browser User-Agent sent with every request.
func WithUserAgent(ua string) CaptionOption {
	return func(c *CaptionClient) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRetries sets how many times a transient HTTP failure (429, 5xx, network)
// is retried at the transport layer. Zero disables retries.
func WithRetries(n int) CaptionOption {
	return func(c *CaptionClient) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// NewCaptionClient creates a caption client with browser-like defaults.
func NewCaptionClient(opts ...CaptionOption) *CaptionClient {
	c := &CaptionClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		retries:    2,
		retryWait:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves the hosted transcript for videoID in one of langs
// (any language when langs is empty).
func (c *CaptionClient) Fetch(ctx context.Context, videoID string, langs []string) (HostedTranscript, error) {
	watchURL := c.baseURL + "/watch?v=" + url.QueryEscape(videoID)
	body, status, err := c.get(ctx, watchURL, maxWatchPageBytes, true)
	if err != nil {
		return HostedTranscript{}, noHosted("fetch watch page", err)
	}
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return HostedTranscript{}, unavailable(fmt.Sprintf("watch page returned HTTP %d", status), nil)
	case status != http.StatusOK:
		return HostedTranscript{}, noHosted(fmt.Sprintf("watch page returned HTTP %d", status), nil)
	}

	player, err := parsePlayerResponse(body)
	if err != nil {
		return HostedTranscript{}, noHosted("read player response", err)
	}

	if ps := player.PlayabilityStatus; ps != nil && unavailableStatuses[ps.Status] {
		reason := strings.TrimSpace(ps.Reason)
		if reason == "" {
			reason = strings.ToLower(ps.Status)
		}
		return HostedTranscript{}, unavailable("video unavailable: "+reason, nil)
	}

	if player.Captions == nil {
		return HostedTranscript{}, noHosted("captions are disabled for this video", nil)
	}
	tracks := player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return HostedTranscript{}, noHosted("video has no caption tracks", nil)
	}

	track, ok := pickTrack(tracks, langs)
	if !ok {
		if len(langs) > 0 {
			return HostedTranscript{}, noHosted("no caption track in languages "+strings.Join(langs, ", "), nil)
		}
		return HostedTranscript{}, noHosted("all caption tracks require a browser PoToken", nil)
	}
	slog.Debug("youtube: caption track selected",
		slog.String("video_id", videoID),
		slog.String("lang", track.LanguageCode),
		slog.Bool("generated", track.generated()))

	data, status, err := c.get(ctx, track.BaseURL, maxTimedTextBytes, false)
	if err != nil {
		return HostedTranscript{}, noHosted("fetch timedtext", err)
	}
	if status != http.StatusOK {
		return HostedTranscript{}, noHosted(fmt.Sprintf("timedtext returned HTTP %d", status), nil)
	}

	segments, err := parseTimedText(data)
	if err != nil {
		return HostedTranscript{}, noHosted("parse timedtext", err)
	}
	if len(segments) == 0 {
		return HostedTranscript{}, noHosted("caption track is empty", nil)
	}

	return HostedTranscript{
		Segments:  segments,
		Language:  track.LanguageCode,
		Generated: track.generated(),
	}, nil
}

func parsePlayerResponse(page []byte) (playerResponse, error) {
	idx := strings.Index(string(page), playerResponseMarker)
	if idx < 0 {
		return playerResponse{}, fmt.Errorf("ytInitialPlayerResponse not found in watch page")
	}
	raw := extractJSONObject(page[idx+len(playerResponseMarker):])
	if raw == nil {
		return playerResponse{}, fmt.Errorf("unterminated ytInitialPlayerResponse JSON")
	}

	var player playerResponse
	if err := json.Unmarshal(raw, &player); err != nil {
		return playerResponse{}, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return player, nil
}

// statusError marks a retryable HTTP status.
type statusError struct {
	StatusCode int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// get performs a GET with transport-level retries and returns the body and final status.
func (c *CaptionClient) get(ctx context.Context, target string, limit int64, page bool) ([]byte, int, error) {
	operation := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		if page {
			req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if isRetryableStatus(resp.StatusCode) {
			resp.Body.Close()
			return nil, &statusError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryWait
	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(c.retries+1)),
	)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func noHosted(message string, err error) *domain.Failure {
	return domain.NewFailure(domain.FailureNoHostedTranscript, domain.StageFetchingHosted, message, err)
}

func unavailable(message string, err error) *domain.Failure {
	return domain.NewFailure(domain.FailureVideoUnavailable, domain.StageFetchingHosted, message, err)
}
