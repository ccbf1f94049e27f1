package posts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/debemdeboas/feedback-board/internal/auth"
	"github.com/debemdeboas/feedback-board/internal/composer"
	"github.com/debemdeboas/feedback-board/internal/db"
	"github.com/debemdeboas/feedback-board/internal/model"
	"github.com/debemdeboas/feedback-board/internal/repository"
	"github.com/debemdeboas/feedback-board/internal/storage"
)

type notifierFunc func(*model.Post)

func (f notifierFunc) NotifyPostCreated(p *model.Post) { f(p) }

type failingStore struct{}

func (failingStore) Put(context.Context, string, string, []byte) (string, error) {
	return "", errors.New("bucket unavailable")
}

var testOptions = Options{
	TitleMinLength: 10,
	TitleMaxLength: 100,
	MaxUploads:     3,
	AllowedTypes:   []string{"image/png", "image/jpeg"},
}

type fixture struct {
	service  *Service
	repo     *repository.DBPostRepository
	dir      string
	notified []*model.Post
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database := db.NewSQLite(filepath.Join(t.TempDir(), "posts.db"))
	if err := database.InitDB(); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	f := &fixture{
		repo: repository.NewDBPostRepository(database),
		dir:  t.TempDir(),
	}
	f.service = NewService(f.repo, storage.NewFSStore(f.dir, "/attachments/"), notifierFunc(func(p *model.Post) {
		f.notified = append(f.notified, p)
	}), testOptions)
	f.service.newID = func() string { return "fixed" }
	return f
}

func signedIn() context.Context {
	return auth.ContextWithUserID(context.Background(), model.UserID("user-1"))
}

func png(name string) model.ImageUpload {
	return model.ImageUpload{Upload: &model.ImageUploadData{
		FileName:    name,
		ContentType: "image/png",
		Content:     []byte("\x89PNG"),
	}}
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t)

	post, err := f.service.CreatePost(signedIn(), composer.NewPost{
		Title:       "  Faster exports  ",
		Description: "Speed up CSV export",
		Module:      "reports",
		Attachments: []model.ImageUpload{png("My Screenshot.PNG"), {BlobKey: "old", Remove: true}},
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	if post.URL() != "/posts/1/faster-exports" {
		t.Errorf("Expected /posts/1/faster-exports, got %s", post.URL())
	}
	if post.Title != "Faster exports" {
		t.Errorf("Expected trimmed title, got %q", post.Title)
	}
	if post.Status != "open" || post.Module != "reports" {
		t.Errorf("Unexpected status/module %q/%q", post.Status, post.Module)
	}
	if post.User == nil || post.User.ID != "user-1" {
		t.Errorf("Expected author user-1, got %+v", post.User)
	}

	if len(post.Attachments) != 1 || post.Attachments[0] != "/attachments/attachments/fixed/my-screenshot.png" {
		t.Errorf("Unexpected attachments %v", post.Attachments)
	}
	if _, err := os.Stat(filepath.Join(f.dir, "attachments", "fixed", "my-screenshot.png")); err != nil {
		t.Errorf("Expected attachment on disk: %v", err)
	}

	if len(f.notified) != 1 || f.notified[0].Number != 1 {
		t.Errorf("Expected one notification for post 1, got %v", f.notified)
	}

	stored, err := f.repo.GetPostByNumber(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetPostByNumber failed: %v", err)
	}
	if stored.Description != "Speed up CSV export" {
		t.Errorf("Unexpected stored description %q", stored.Description)
	}
}

func TestCreatePostValidation(t *testing.T) {
	testCases := []struct {
		name    string
		post    composer.NewPost
		field   string
		message string
	}{
		{
			name:    "Missing title",
			post:    composer.NewPost{Description: "Speed up CSV export"},
			field:   "title",
			message: "Title is required",
		},
		{
			name:    "Short title",
			post:    composer.NewPost{Title: "Exports", Description: "Speed up CSV export"},
			field:   "title",
			message: "Title must be between 10 and 100 characters",
		},
		{
			name:    "Long title",
			post:    composer.NewPost{Title: strings.Repeat("é", 101), Description: "Speed up CSV export"},
			field:   "title",
			message: "Title must be between 10 and 100 characters",
		},
		{
			name:    "Blank description",
			post:    composer.NewPost{Title: "Faster exports", Description: "   "},
			field:   "description",
			message: "Description is required",
		},
		{
			name:  "Unknown module",
			post:  composer.NewPost{Title: "Faster exports", Description: "Speed up CSV export", Module: "planned"},
			field: "module",
		},
		{
			name: "Too many attachments",
			post: composer.NewPost{Title: "Faster exports", Description: "Speed up CSV export", Attachments: []model.ImageUpload{
				png("a.png"), png("b.png"), png("c.png"), png("d.png"),
			}},
			field:   "attachments",
			message: "Attachments must be at most 3 files",
		},
		{
			name: "Disallowed type",
			post: composer.NewPost{Title: "Faster exports", Description: "Speed up CSV export", Attachments: []model.ImageUpload{
				{Upload: &model.ImageUploadData{FileName: "x.exe", ContentType: "application/x-msdownload", Content: []byte{1}}},
			}},
			field: "attachments",
		},
		{
			name: "Existing blob without upload",
			post: composer.NewPost{Title: "Faster exports", Description: "Speed up CSV export", Attachments: []model.ImageUpload{
				{BlobKey: "attachments/x/a.png"},
			}},
			field: "attachments",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.service.CreatePost(signedIn(), tc.post)

			var failure *composer.Failure
			if !errors.As(err, &failure) {
				t.Fatalf("Expected *composer.Failure, got %v", err)
			}
			if failure.Field(tc.field) == "" {
				t.Errorf("Expected an error on %q, got %v", tc.field, failure.Fields)
			}
			if tc.message != "" && failure.Message != tc.message {
				t.Errorf("Expected message %q, got %q", tc.message, failure.Message)
			}
			if len(f.notified) != 0 {
				t.Error("Expected no notification for a rejected post")
			}
			if n, _ := f.repo.CountPosts(context.Background(), repository.ListOptions{}); n != 0 {
				t.Errorf("Expected nothing stored, got %d posts", n)
			}
		})
	}
}

func TestCreatePostRequiresAuthor(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreatePost(context.Background(), composer.NewPost{
		Title:       "Faster exports",
		Description: "Speed up CSV export",
	})

	var failure *composer.Failure
	if !errors.As(err, &failure) || failure.Message != "Sign in required" {
		t.Errorf("Expected sign-in failure, got %v", err)
	}
}

func TestCreatePostUploadError(t *testing.T) {
	f := newFixture(t)
	f.service.store = failingStore{}

	_, err := f.service.CreatePost(signedIn(), composer.NewPost{
		Title:       "Faster exports",
		Description: "Speed up CSV export",
		Attachments: []model.ImageUpload{png("a.png")},
	})
	if err == nil || !strings.Contains(err.Error(), "bucket unavailable") {
		t.Errorf("Expected upload error, got %v", err)
	}
	if n, _ := f.repo.CountPosts(context.Background(), repository.ListOptions{}); n != 0 {
		t.Errorf("Expected nothing stored, got %d posts", n)
	}
}

func TestSlugify(t *testing.T) {
	testCases := map[string]string{
		"Faster exports": "faster-exports",
		"Add dark mode":  "add-dark-mode",
		"":               "post",
	}
	for title, expected := range testCases {
		if got := Slugify(title); got != expected {
			t.Errorf("Slugify(%q) = %q, want %q", title, got, expected)
		}
	}
}

func TestFileName(t *testing.T) {
	testCases := map[string]string{
		"My Screenshot.PNG":       "my-screenshot.png",
		"../../etc/passwd":        "passwd",
		"C:\\Users\\me\\shot.jpg": "shot.jpg",
		".png":                    "file.png",
		"noext":                   "noext",
	}
	for name, expected := range testCases {
		if got := FileName(name); got != expected {
			t.Errorf("FileName(%q) = %q, want %q", name, got, expected)
		}
	}
}
