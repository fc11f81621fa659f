// Package media downloads the audio track of a video into a scoped directory.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kkdai/youtube/v2"

	"yt-transcriber/internal/domain"
)

// progressStep is the minimum byte advance between two progress emissions.
const progressStep = 256 * 1024

// videoSource is the subset of the YouTube client used for downloads.
type videoSource interface {
	GetVideoContext(ctx context.Context, id string) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

// Downloader fetches the lowest-bandwidth audio-only stream of a video.
type Downloader struct {
	source videoSource
}

// NewDownloader creates a downloader using hc for all platform requests.
func NewDownloader(hc *http.Client) *Downloader {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Downloader{source: &youtube.Client{HTTPClient: hc}}
}

// NewDownloaderForTests constructs a downloader over an injected source.
func NewDownloaderForTests(source videoSource) *Downloader {
	return &Downloader{source: source}
}

// Download writes the audio stream of videoID into dir and returns its handle.
// The caller owns dir; the returned handle removes it on Release.
func (d *Downloader) Download(ctx context.Context, videoID, dir string, sink domain.ProgressFunc) (*Handle, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, downloadFailed("destination directory is required", nil)
	}

	video, err := d.source.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, classify("fetch video metadata", err)
	}

	format, ok := pickAudioFormat(video.Formats)
	if !ok {
		return nil, downloadFailed("no audio-only stream available", nil)
	}
	slog.Debug("media: audio format selected",
		slog.String("video_id", videoID),
		slog.Int("itag", format.ItagNo),
		slog.Int("bitrate", format.Bitrate),
		slog.String("mime", format.MimeType))

	stream, size, err := d.source.GetStreamContext(ctx, video, &format)
	if err != nil {
		return nil, classify("open audio stream", err)
	}
	defer stream.Close()

	if size <= 0 {
		size = format.ContentLength
	}

	path := filepath.Join(dir, videoID+extensionFor(format.MimeType))
	written, err := writeStream(path, stream, size, sink)
	if err != nil {
		_ = os.Remove(path)
		return nil, downloadFailed("write audio stream", err)
	}
	if written == 0 {
		_ = os.Remove(path)
		return nil, downloadFailed("downloaded audio is empty", nil)
	}

	return &Handle{Path: path, Dir: dir, Bytes: written}, nil
}

// pickAudioFormat selects the audio-only format with the lowest bitrate,
// breaking ties by smaller content length and then lower itag.
func pickAudioFormat(formats youtube.FormatList) (youtube.Format, bool) {
	candidates := make([]youtube.Format, 0, len(formats))
	for _, f := range formats.Type("audio") {
		if f.URL == "" && f.Cipher == "" {
			continue
		}
		candidates = append(candidates, f)
	}
	if len(candidates) == 0 {
		return youtube.Format{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Bitrate != b.Bitrate {
			return a.Bitrate < b.Bitrate
		}
		if a.ContentLength != b.ContentLength {
			return a.ContentLength < b.ContentLength
		}
		return a.ItagNo < b.ItagNo
	})
	return candidates[0], true
}

// extensionFor maps an audio MIME type to a file extension ffmpeg recognizes.
func extensionFor(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ".audio"
	}
	switch mediaType {
	case "audio/mp4":
		return ".m4a"
	case "audio/webm":
		return ".webm"
	default:
		if _, sub, ok := strings.Cut(mediaType, "/"); ok && sub != "" {
			return "." + sub
		}
		return ".audio"
	}
}

func writeStream(path string, stream io.Reader, total int64, sink domain.ProgressFunc) (int64, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create media file: %w", err)
	}

	counter := &progressWriter{total: total, sink: sink}
	written, copyErr := io.Copy(io.MultiWriter(file, counter), stream)
	closeErr := file.Close()
	if copyErr != nil {
		return written, copyErr
	}
	if closeErr != nil {
		return written, fmt.Errorf("close media file: %w", closeErr)
	}
	counter.flush()
	return written, nil
}

// progressWriter counts bytes and reports them at coarse intervals.
type progressWriter struct {
	written int64
	emitted int64
	total   int64
	sink    domain.ProgressFunc
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.written-w.emitted >= progressStep {
		w.flush()
	}
	return len(p), nil
}

func (w *progressWriter) flush() {
	if w.written == w.emitted && w.emitted != 0 {
		return
	}
	w.emitted = w.written
	total := w.total
	if total > 0 && w.written > total {
		total = w.written
	}
	w.sink.Emit(domain.Progress{
		Stage:   domain.StageDownloading,
		Current: w.written,
		Total:   total,
		Message: "downloading audio",
	})
}

// classify maps YouTube client errors onto the failure taxonomy.
func classify(message string, err error) error {
	if isUnavailable(err) {
		return domain.NewFailure(domain.FailureVideoUnavailable, domain.StageDownloading, message, err)
	}
	return downloadFailed(message, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, youtube.ErrVideoPrivate) ||
		errors.Is(err, youtube.ErrLoginRequired) ||
		errors.Is(err, youtube.ErrNotPlayableInEmbed) {
		return true
	}
	var playability *youtube.ErrPlayabiltyStatus
	if errors.As(err, &playability) {
		return true
	}
	var playabilityValue youtube.ErrPlayabiltyStatus
	if errors.As(err, &playabilityValue) {
		return true
	}
	var status youtube.ErrUnexpectedStatusCode
	if errors.As(err, &status) {
		return int(status) == http.StatusNotFound || int(status) == http.StatusGone
	}
	return false
}

func downloadFailed(message string, err error) *domain.Failure {
	return domain.NewFailure(domain.FailureDownloadFailed, domain.StageDownloading, message, err)
}
