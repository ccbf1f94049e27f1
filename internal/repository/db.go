package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/debemdeboas/feedback-board/internal/cache"
	"github.com/debemdeboas/feedback-board/internal/catalog"
	"github.com/debemdeboas/feedback-board/internal/db"
	"github.com/debemdeboas/feedback-board/internal/model"
	"github.com/debemdeboas/feedback-board/internal/util"
	"github.com/debemdeboas/feedback-board/internal/util/compression"
)

type DBPostRepository struct { // implements PostRepository
	// Decompressed descriptions keyed by content hash. Rows are always read
	// fresh since status and counters change.
	descriptions *cache.Cache[string, string]

	db         db.DB
	compressor compression.Compressor
	now        func() time.Time
}

func NewDBPostRepository(db db.DB) *DBPostRepository {
	return &DBPostRepository{
		descriptions: cache.NewCache[string, string](),

		db: db,

		compressor: compression.ZstdCompressor{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

const selectPost = `SELECT p.id, p.number, p.slug, p.title, p.description, p.description_hash,
	p.status, p.module, p.votes_count, p.comments_count, p.created_at,
	COALESCE(p.user_id, ''), COALESCE(u.username, ''), COALESCE(u.avatar_url, '')
FROM posts p LEFT JOIN users u ON u.id = p.user_id`

// CreatePost stores rec under the next post number with status open.
func (r *DBPostRepository) CreatePost(ctx context.Context, rec NewPostRecord) (*model.Post, error) {
	if rec.Module != "" {
		if _, err := catalog.Modules.Get(rec.Module); err != nil {
			return nil, err
		}
	}

	compressed, err := r.compressor.Compress([]byte(rec.Description))
	if err != nil {
		return nil, fmt.Errorf("error compressing description: %w", err)
	}

	post := &model.Post{
		Slug:            rec.Slug,
		Title:           rec.Title,
		Description:     rec.Description,
		DescriptionHash: util.ContentHashString(rec.Description),
		CreatedAt:       r.now(),
		Status:          catalog.StatusOpen.Value,
		Module:          rec.Module,
		User:            &model.User{ID: rec.UserID, Name: string(rec.UserID)},
		Tags:            rec.Tags,
	}

	tx, err := r.db.Get().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(number), 0) + 1 FROM posts`).Scan(&post.Number); err != nil {
		return nil, fmt.Errorf("error allocating post number: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO posts (number, slug, title, description, description_hash, status, module, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.Number, post.Slug, post.Title, compressed, post.DescriptionHash, post.Status, post.Module, string(rec.UserID), post.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("error saving post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("error reading post id: %w", err)
	}
	post.ID = model.PostID(id)

	for _, a := range rec.Attachments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_attachments (post_id, blob_key, url) VALUES (?, ?, ?)`, id, a.BlobKey, a.URL,
		); err != nil {
			return nil, fmt.Errorf("error saving attachment %s: %w", a.BlobKey, err)
		}
		post.Attachments = append(post.Attachments, a.URL)
	}

	for _, tag := range rec.Tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO post_tags (post_id, tag) VALUES (?, ?)`, id, tag,
		); err != nil {
			return nil, fmt.Errorf("error saving tag %s: %w", tag, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing post: %w", err)
	}

	repoLogger.Info().
		Int("number", post.Number).
		Str("slug", post.Slug).
		Str("user_id", string(rec.UserID)).
		Msg("Post created")

	return post, nil
}

func (r *DBPostRepository) GetPostByNumber(ctx context.Context, number int) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx, selectPost+` WHERE p.number = ?`, number)
	post, err := r.scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrPostNotFound, number)
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadRelations(ctx, post); err != nil {
		return nil, err
	}

	return post, nil
}

// ListPosts returns matching posts, newest first.
func (r *DBPostRepository) ListPosts(ctx context.Context, opts ListOptions) ([]model.Post, error) {
	where, args := opts.where()

	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, selectPost+where+` ORDER BY p.number DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0)
	for rows.Next() {
		post, err := r.scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}

	for i := range posts {
		if err := r.loadRelations(ctx, &posts[i]); err != nil {
			return nil, err
		}
	}

	return posts, nil
}

func (r *DBPostRepository) CountPosts(ctx context.Context, opts ListOptions) (int, error) {
	where, args := opts.where()

	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts p`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting posts: %w", err)
	}
	return n, nil
}

func (o ListOptions) where() (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if o.Status != "" {
		clauses = append(clauses, "p.status = ?")
		args = append(args, o.Status)
	} else {
		clauses = append(clauses, "p.status <> ?")
		args = append(args, catalog.StatusDeleted.Value)
	}

	if o.Module != "" {
		clauses = append(clauses, "p.module = ?")
		args = append(args, o.Module)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *DBPostRepository) scanPost(row rowScanner) (*model.Post, error) {
	var post model.Post
	var compressed []byte
	var hash sql.NullString
	var userID, username, avatar string

	err := row.Scan(
		&post.ID, &post.Number, &post.Slug, &post.Title, &compressed, &hash,
		&post.Status, &post.Module, &post.VotesCount, &post.CommentsCount, &post.CreatedAt,
		&userID, &username, &avatar,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning post: %w", err)
	}

	// Stored values must decode through the catalogs.
	if _, err := catalog.Statuses.Get(post.Status); err != nil {
		return nil, fmt.Errorf("post %d: %w", post.Number, err)
	}
	if post.Module != "" {
		if _, err := catalog.Modules.Get(post.Module); err != nil {
			return nil, fmt.Errorf("post %d: %w", post.Number, err)
		}
	}

	if err := r.decodeDescription(&post, compressed, hash.String); err != nil {
		return nil, err
	}

	if userID != "" {
		if username == "" {
			username = userID
		}
		post.User = &model.User{ID: model.UserID(userID), Name: username, AvatarURL: avatar}
	}

	return &post, nil
}

func (r *DBPostRepository) decodeDescription(post *model.Post, compressed []byte, hash string) error {
	if hash != "" {
		if description, ok := r.descriptions.Get(hash); ok {
			post.Description = description
			post.DescriptionHash = hash
			return nil
		}
	}

	description, err := r.compressor.Decompress(compressed)
	if err != nil {
		return fmt.Errorf("error decompressing description: %w", err)
	}
	post.Description = string(description)
	post.DescriptionHash = hash
	if hash == "" {
		post.DescriptionHash = util.ContentHash(description)
	}
	r.descriptions.Set(post.DescriptionHash, post.Description)
	return nil
}

func (r *DBPostRepository) loadRelations(ctx context.Context, post *model.Post) error {
	rows, err := r.db.QueryContext(ctx, `SELECT tag FROM post_tags WHERE post_id = ? ORDER BY tag`, post.ID)
	if err != nil {
		return fmt.Errorf("error querying tags: %w", err)
	}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			rows.Close()
			return fmt.Errorf("error scanning tag: %w", err)
		}
		post.Tags = append(post.Tags, tag)
	}
	rows.Close()

	rows, err = r.db.QueryContext(ctx, `SELECT url FROM post_attachments WHERE post_id = ? ORDER BY rowid`, post.ID)
	if err != nil {
		return fmt.Errorf("error querying attachments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return fmt.Errorf("error scanning attachment: %w", err)
		}
		post.Attachments = append(post.Attachments, url)
	}
	return rows.Err()
}

var _ PostRepository = (*DBPostRepository)(nil)
