package media

import (
	"log/slog"
	"os"
	"sync"
)

// Handle owns one downloaded media file and the scoped directory holding it.
type Handle struct {
	Path  string
	Dir   string
	Bytes int64

	once sync.Once
	err  error
}

// Release deletes the media directory. Calling it again is a no-op that
// returns the first result.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	h.once.Do(func() {
		if h.Dir == "" {
			return
		}
		h.err = os.RemoveAll(h.Dir)
		if h.err != nil {
			slog.Warn("media: release failed", slog.String("dir", h.Dir), slog.Any("error", h.err))
			return
		}
		slog.Debug("media: released", slog.String("dir", h.Dir))
	})
	return h.err
}
