package utils

import (
	"io"

	"github.com/MrSnakeDoc/banners/internal/logger"
)

// Close closes c and ignores any error.
// Use for best-effort cleanup in defer where error handling is not critical.
func Close(c io.Closer) {
	_ = c.Close()
}

// CloseLogged closes c and logs the outcome under name. Nil closers are
// skipped so optional dependencies can be passed as-is.
func CloseLogged(c io.Closer, log logger.Logger, name string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn("failed to close", logger.String("component", name), logger.Error(err))
		return
	}
	log.Debug("closed", logger.String("component", name))
}
