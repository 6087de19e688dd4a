package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks reports build and cache events as debug log lines.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks writing to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{logger: logger}
}

func (h *LogHooks) OnBuildStart(_ context.Context, root string, pages int) {
	h.logger.Debug("build started", "root", root, "pages", pages)
}

func (h *LogHooks) OnBuildComplete(_ context.Context, root string, files int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("build failed", "root", root, "elapsed", d.Round(time.Millisecond), "err", err)
		return
	}
	h.logger.Debug("build finished", "root", root, "files", files, "elapsed", d.Round(time.Millisecond))
}

func (h *LogHooks) OnDatasetEncoded(_ context.Context, name, format string, size int, d time.Duration) {
	h.logger.Debug("dataset encoded", "dataset", name, "format", format, "bytes", size, "elapsed", d.Round(time.Microsecond))
}

func (h *LogHooks) OnPageStart(_ context.Context, title string) {
	h.logger.Debug("assembling page", "title", title)
}

func (h *LogHooks) OnPageComplete(_ context.Context, title, file string, size int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("page failed", "title", title, "err", err)
		return
	}
	h.logger.Debug("page written", "title", title, "file", file, "bytes", size, "elapsed", d.Round(time.Microsecond))
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

var (
	_ BuildHooks = (*LogHooks)(nil)
	_ CacheHooks = (*LogHooks)(nil)
)
