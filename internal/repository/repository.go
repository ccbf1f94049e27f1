// Package repository persists posts.
package repository

import (
	"context"
	"errors"

	"github.com/debemdeboas/feedback-board/internal/model"
	"github.com/rs/zerolog"
)

var ErrPostNotFound = errors.New("post not found")

// NewPostRecord is a validated post ready to be stored. The repository
// assigns the number, status and creation time.
type NewPostRecord struct {
	Slug        string
	Title       string
	Description string
	Module      string
	UserID      model.UserID
	Tags        []string
	Attachments []Attachment
}

type Attachment struct {
	BlobKey string
	URL     string
}

// ListOptions filters ListPosts and CountPosts. Empty fields match anything,
// except that deleted posts are only returned when Status asks for them.
type ListOptions struct {
	Status string
	Module string
	Limit  int
}

type PostRepository interface {
	CreatePost(ctx context.Context, rec NewPostRecord) (*model.Post, error)
	GetPostByNumber(ctx context.Context, number int) (*model.Post, error)
	ListPosts(ctx context.Context, opts ListOptions) ([]model.Post, error)
	CountPosts(ctx context.Context, opts ListOptions) (int, error)
}

var repoLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}
