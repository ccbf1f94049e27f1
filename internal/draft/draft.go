// Package draft persists the in-progress post a visitor is composing, scoped
// to their browser session.
package draft

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Fixed keys of the three draft fields.
const (
	KeyModule      = "post-input.module"
	KeyTitle       = "post-input.title"
	KeyDescription = "post-input.description"
)

const DefaultMaxAge = 72 * time.Hour

// Store is a session-scoped key/value backend. Entries older than the
// store's max age read as absent.
type Store interface {
	Get(ctx context.Context, sessionID, key string) (string, bool, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Remove(ctx context.Context, sessionID string, keys ...string) error

	// Prune deletes entries not written within maxAge and returns how many
	// were removed.
	Prune(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Viewer reports whether the current visitor is signed in.
type Viewer interface {
	IsAuthenticated() bool
}

var draftLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	draftLogger = l
}

const opTimeout = 2 * time.Second

// Cache is the draft cache for one session. Its operations never fail
// observably: store errors are logged and read as an empty value.
type Cache struct {
	store     Store
	sessionID string
	viewer    Viewer
}

func NewCache(store Store, sessionID string, viewer Viewer) *Cache {
	return &Cache{
		store:     store,
		sessionID: sessionID,
		viewer:    viewer,
	}
}

func (c *Cache) SessionID() string {
	return c.sessionID
}

// Get returns the stored value for key. Unauthenticated viewers always get
// an empty string.
func (c *Cache) Get(key string) string {
	if c.viewer == nil || !c.viewer.IsAuthenticated() {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	value, ok, err := c.store.Get(ctx, c.sessionID, key)
	if err != nil {
		draftLogger.Error().Err(err).Str("session_id", c.sessionID).Str("key", key).Msg("Failed to read draft")
		return ""
	}
	if !ok {
		return ""
	}
	return value
}

// Set overwrites key. The write happens whether or not the viewer is signed
// in, so text drafted before signing in survives the sign-in redirect.
func (c *Cache) Set(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.store.Set(ctx, c.sessionID, key, value); err != nil {
		draftLogger.Error().Err(err).Str("session_id", c.sessionID).Str("key", key).Msg("Failed to write draft")
	}
}

// Remove clears keys. Absent keys are ignored.
func (c *Cache) Remove(keys ...string) {
	if len(keys) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.store.Remove(ctx, c.sessionID, keys...); err != nil {
		draftLogger.Error().Err(err).Str("session_id", c.sessionID).Strs("keys", keys).Msg("Failed to remove draft keys")
	}
}
