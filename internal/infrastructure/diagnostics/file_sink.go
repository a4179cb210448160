package diagnostics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// FileSink writes raw page markup to a directory for offline diagnosis
type FileSink struct {
	dir    string
	logger zerolog.Logger
}

// NewFileSink creates a sink rooted at dir. The directory is created lazily.
func NewFileSink(dir string, logger zerolog.Logger) *FileSink {
	return &FileSink{dir: dir, logger: logger}
}

// CapturePage stores markup and returns the file path
func (s *FileSink) CapturePage(ctx context.Context, username string, page int, markup string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create diagnostics directory: %w", err)
	}

	id := uuid.NewString()[:8]
	name := fmt.Sprintf("%s-page%d-%s.html", unsafeNameChars.ReplaceAllString(username, "_"), page, id)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, []byte(markup), 0o644); err != nil {
		return "", fmt.Errorf("write diagnostics file: %w", err)
	}

	s.logger.Debug().Str("path", path).Int("bytes", len(markup)).Msg("captured page markup")
	return path, nil
}
