package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSStore writes attachments below a base directory. The server exposes
// that directory under urlPrefix.
type FSStore struct {
	baseDir   string
	urlPrefix string
}

func NewFSStore(baseDir, urlPrefix string) *FSStore {
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &FSStore{baseDir: baseDir, urlPrefix: urlPrefix}
}

func (s *FSStore) BaseDir() string {
	return s.baseDir
}

func (s *FSStore) Put(ctx context.Context, key, contentType string, content []byte) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dest := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("error creating attachment dir: %w", err)
	}
	if err := os.WriteFile(dest, content, 0o644); err != nil {
		return "", fmt.Errorf("error writing attachment: %w", err)
	}

	storageLogger.Debug().Str("key", key).Str("content_type", contentType).Int("size", len(content)).Msg("Attachment stored")
	return s.urlPrefix + key, nil
}

var _ AttachmentStore = (*FSStore)(nil)
