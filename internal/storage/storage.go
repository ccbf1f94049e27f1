// Package storage keeps uploaded attachment blobs.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/rs/zerolog"
)

var ErrInvalidKey = errors.New("invalid attachment key")

// AttachmentStore writes a blob under key and returns the URL it is served from.
type AttachmentStore interface {
	Put(ctx context.Context, key, contentType string, content []byte) (string, error)
}

var storageLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	storageLogger = l
}

// cleanKey rejects keys that would escape the store root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
