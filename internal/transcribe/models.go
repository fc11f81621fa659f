package transcribe

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"yt-transcriber/internal/domain"
)

// ModelCache resolves whisper weight files by ModelSize. A size is resolved
// at most once per process; weight files already on disk are reused and
// never evicted.
type ModelCache struct {
	dir      string
	client   *http.Client
	stat     func(name string) (os.FileInfo, error)
	download func(ctx context.Context, client *http.Client, dest, url string, sink domain.ProgressFunc) error

	mu      sync.Mutex
	entries map[domain.ModelSize]*modelEntry
}

type modelEntry struct {
	mu   sync.Mutex
	path string
}

// NewModelCache creates a cache rooted at dir. A nil client gets a client
// without timeout since large models take a long time to fetch.
func NewModelCache(dir string, client *http.Client) *ModelCache {
	if client == nil {
		client = &http.Client{}
	}
	return &ModelCache{
		dir:      dir,
		client:   client,
		stat:     os.Stat,
		download: downloadURLToFile,
		entries:  map[domain.ModelSize]*modelEntry{},
	}
}

// Dir returns the directory holding weight files.
func (c *ModelCache) Dir() string {
	return c.dir
}

// Models returns the catalog with on-disk state filled in.
func (c *ModelCache) Models() []domain.WhisperModelOption {
	models := Catalog()
	markDownloadedModels(models, c.dir, c.stat)
	return models
}

// Resolve returns the weight file path for size, downloading it on first use.
func (c *ModelCache) Resolve(ctx context.Context, size domain.ModelSize, sink domain.ProgressFunc) (string, error) {
	model, ok := modelForSize(size)
	if !ok {
		return "", &PipelineError{
			Stage:   stageModel,
			Kind:    domain.FailureTranscriptionFailed,
			Message: "unknown model size: " + string(size),
		}
	}
	if strings.TrimSpace(c.dir) == "" {
		return "", &PipelineError{
			Stage:   stageModel,
			Kind:    domain.FailureTranscriptionFailed,
			Message: "model directory is not configured",
		}
	}

	entry := c.entry(size)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.path != "" {
		return entry.path, nil
	}

	target := filepath.Join(c.dir, model.FileName)
	if info, err := c.stat(target); err == nil && !info.IsDir() && info.Size() > 0 {
		entry.path = target
		return target, nil
	}

	slog.Info("transcribe: downloading model",
		slog.String("model", string(size)),
		slog.String("file", model.FileName),
		slog.String("size", model.SizeLabel))
	started := time.Now()
	if err := c.download(ctx, c.client, target, model.URL, sink); err != nil {
		return "", &PipelineError{
			Stage:   stageModel,
			Kind:    domain.FailureTranscriptionFailed,
			Message: "download model " + model.Name,
			Err:     err,
		}
	}
	slog.Info("transcribe: model ready",
		slog.String("model", string(size)),
		slog.Duration("elapsed", time.Since(started)))

	entry.path = target
	return target, nil
}

func (c *ModelCache) entry(size domain.ModelSize) *modelEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[size]
	if !ok {
		e = &modelEntry{}
		c.entries[size] = e
	}
	return e
}
