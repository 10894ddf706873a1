package util

import (
	"io"
	"log/slog"
)

// CloseQuietly closes c and logs a failure instead of returning it; used on
// paths where an earlier error is already being reported.
func CloseQuietly(c io.Closer, what string) {
	if err := c.Close(); err != nil {
		slog.Warn("close failed", "what", what, "err", err)
	}
}
