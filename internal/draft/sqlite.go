package draft

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/debemdeboas/feedback-board/internal/db"
	"github.com/debemdeboas/feedback-board/internal/util/compression"
)

// SQLiteStore keeps drafts in the drafts table. Values are zstd-compressed.
type SQLiteStore struct {
	db         db.DB
	compressor compression.Compressor
	maxAge     time.Duration
	now        func() time.Time
}

func NewSQLiteStore(database db.DB, maxAge time.Duration) *SQLiteStore {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &SQLiteStore{
		db:         database,
		compressor: compression.ZstdCompressor{},
		maxAge:     maxAge,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	var compressed []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM drafts WHERE session_id = ? AND key = ? AND updated_at >= ?`,
		sessionID, key, s.now().Add(-s.maxAge),
	).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("error reading draft: %w", err)
	}

	value, err := s.compressor.Decompress(compressed)
	if err != nil {
		return "", false, fmt.Errorf("error decompressing draft: %w", err)
	}
	return string(value), true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, sessionID, key, value string) error {
	compressed, err := s.compressor.Compress([]byte(value))
	if err != nil {
		return fmt.Errorf("error compressing draft: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO drafts (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		sessionID, key, compressed, s.now(),
	)
	if err != nil {
		return fmt.Errorf("error saving draft: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(keys)+1)
	args = append(args, sessionID)
	for _, k := range keys {
		args = append(args, k)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE session_id = ? AND key IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("error removing draft keys: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE updated_at < ?`, s.now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("error pruning drafts: %w", err)
	}
	return res.RowsAffected()
}
