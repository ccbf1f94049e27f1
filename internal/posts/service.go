// Package posts turns composer submissions into stored posts.
package posts

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/debemdeboas/feedback-board/internal/auth"
	"github.com/debemdeboas/feedback-board/internal/catalog"
	"github.com/debemdeboas/feedback-board/internal/composer"
	"github.com/debemdeboas/feedback-board/internal/config"
	"github.com/debemdeboas/feedback-board/internal/model"
	"github.com/debemdeboas/feedback-board/internal/repository"
	"github.com/debemdeboas/feedback-board/internal/storage"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-slug"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// fallbackSlug is used when a title has no characters a slug can keep.
const fallbackSlug = "post"

// Notifier is told about every new post.
type Notifier interface {
	NotifyPostCreated(post *model.Post)
}

type Options struct {
	TitleMinLength int
	TitleMaxLength int
	MaxUploads     int
	AllowedTypes   []string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TitleMinLength: cfg.Posts.TitleMinLength,
		TitleMaxLength: cfg.Posts.TitleMaxLength,
		MaxUploads:     cfg.Attachments.MaxUploads,
		AllowedTypes:   cfg.Attachments.Types,
	}
}

var postsLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	postsLogger = l
}

// Service implements composer.PostCreator.
type Service struct {
	repo     repository.PostRepository
	store    storage.AttachmentStore
	notifier Notifier
	opts     Options

	newID func() string
}

func NewService(repo repository.PostRepository, store storage.AttachmentStore, notifier Notifier, opts Options) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		notifier: notifier,
		opts:     opts,
		newID:    uuid.NewString,
	}
}

// CreatePost validates the submission, uploads its attachments and stores
// it. Validation problems come back as a *composer.Failure.
func (s *Service) CreatePost(ctx context.Context, in composer.NewPost) (*model.Post, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, composer.NewFailure(config.ErrSignInRequired)
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Attachments = slices.DeleteFunc(slices.Clone(in.Attachments), func(a model.ImageUpload) bool {
		return a.Remove
	})

	if err := s.validate(&in); err != nil {
		return nil, composer.FailureFromError(err)
	}

	attachments, err := s.upload(ctx, in.Attachments)
	if err != nil {
		return nil, err
	}

	post, err := s.repo.CreatePost(ctx, repository.NewPostRecord{
		Slug:        Slugify(in.Title),
		Title:       in.Title,
		Description: in.Description,
		Module:      in.Module,
		UserID:      userID,
		Attachments: attachments,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	postsLogger.Info().
		Int("number", post.Number).
		Str("user_id", string(userID)).
		Int("attachments", len(attachments)).
		Msg("Post created")

	if s.notifier != nil {
		s.notifier.NotifyPostCreated(post)
	}
	return post, nil
}

func (s *Service) validate(in *composer.NewPost) error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Title,
			validation.Required.Error("is required"),
			validation.RuneLength(s.opts.TitleMinLength, s.opts.TitleMaxLength).
				Error(fmt.Sprintf("must be between %d and %d characters", s.opts.TitleMinLength, s.opts.TitleMaxLength)),
		),
		validation.Field(&in.Description, validation.Required.Error("is required")),
		validation.Field(&in.Module, validation.By(func(value any) error {
			module, _ := value.(string)
			if module != "" && !catalog.Modules.Has(module) {
				return validation.NewError("posts.module_unknown", "is not a known module")
			}
			return nil
		})),
		validation.Field(&in.Attachments,
			validation.Length(0, s.opts.MaxUploads).Error(fmt.Sprintf("must be at most %d files", s.opts.MaxUploads)),
			validation.Each(validation.By(s.validateUpload)),
		),
	)
}

func (s *Service) validateUpload(value any) error {
	upload, ok := value.(model.ImageUpload)
	if !ok || upload.Upload == nil {
		return validation.NewError("posts.attachment_missing", "must be a new upload")
	}
	if len(upload.Upload.Content) == 0 {
		return validation.NewError("posts.attachment_empty", "must not be empty")
	}
	if len(s.opts.AllowedTypes) > 0 && !slices.Contains(s.opts.AllowedTypes, upload.Upload.ContentType) {
		return validation.NewError("posts.attachment_type", "must be one of "+strings.Join(s.opts.AllowedTypes, ", "))
	}
	return nil
}

func (s *Service) upload(ctx context.Context, uploads []model.ImageUpload) ([]repository.Attachment, error) {
	attachments := make([]repository.Attachment, 0, len(uploads))
	for _, u := range uploads {
		key := "attachments/" + s.newID() + "/" + FileName(u.Upload.FileName)

		url, err := s.store.Put(ctx, key, u.Upload.ContentType, u.Upload.Content)
		if err != nil {
			return nil, fmt.Errorf("error storing attachment: %w", err)
		}
		attachments = append(attachments, repository.Attachment{BlobKey: key, URL: url})
	}
	return attachments, nil
}

// Slugify derives the URL slug of a post title.
func Slugify(title string) string {
	s, err := slug.Normalize(title)
	if err != nil || s == "" {
		return fallbackSlug
	}
	return s
}

// FileName makes an uploaded file name safe to use as the last key segment.
func FileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	stem := strings.TrimSuffix(base, path.Ext(base))

	s, err := slug.Normalize(stem)
	if err != nil || s == "" {
		s = "file"
	}
	if ext != "" {
		if e, err := slug.Normalize(strings.TrimPrefix(ext, ".")); err == nil && e != "" {
			return s + "." + e
		}
	}
	return s
}

var _ composer.PostCreator = (*Service)(nil)
