package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"yt-transcriber/internal/domain"
)

const downloadProgressStep = 4 * 1024 * 1024

// downloadURLToFile streams sourceURL into destinationPath through a
// ".download" temp file that is renamed into place on success.
func downloadURLToFile(ctx context.Context, client *http.Client, destinationPath, sourceURL string, sink domain.ProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(destinationPath), 0o755); err != nil {
		return fmt.Errorf("prepare destination directory: %w", err)
	}

	tmpPath := destinationPath + ".download"
	if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale temp file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "yt-transcriber")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	name := filepath.Base(destinationPath)
	counter := &byteCounter{total: resp.ContentLength, sink: sink, message: "downloading model " + name}
	_, copyErr := io.Copy(io.MultiWriter(file, counter), resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write destination file: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close destination file: %w", closeErr)
	}
	counter.report()

	if err := os.Remove(destinationPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("remove old destination file: %w", err)
	}
	if err := os.Rename(tmpPath, destinationPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move downloaded file into place: %w", err)
	}

	return nil
}

type byteCounter struct {
	written  int64
	reported int64
	total    int64
	message  string
	sink     domain.ProgressFunc
}

func (c *byteCounter) Write(p []byte) (int, error) {
	c.written += int64(len(p))
	if c.written-c.reported >= downloadProgressStep {
		c.report()
	}
	return len(p), nil
}

func (c *byteCounter) report() {
	c.reported = c.written
	total := c.total
	if total < c.written {
		total = 0
	}
	c.sink.Emit(domain.Progress{
		Stage:   domain.StageTranscribing,
		Current: c.written,
		Total:   total,
		Message: c.message,
	})
}
