package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestCleanKey(t *testing.T) {
	testCases := []struct {
		key      string
		expected string
		valid    bool
	}{
		{"attachments/1/a.png", "attachments/1/a.png", true},
		{"attachments//1/./a.png", "attachments/1/a.png", true},
		{"", "", false},
		{"/etc/passwd", "", false},
		{"../secret", "", false},
		{"attachments/../../secret", "", false},
		{"..", "", false},
		{"a\\b", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			got, err := cleanKey(tc.key)
			if !tc.valid {
				if !errors.Is(err, ErrInvalidKey) {
					t.Errorf("Expected ErrInvalidKey, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestFSStorePut(t *testing.T) {
	dir := t.TempDir()
	store := NewFSStore(dir, "/attachments")

	url, err := store.Put(context.Background(), "attachments/abc/shot.png", "image/png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if url != "/attachments/attachments/abc/shot.png" {
		t.Errorf("Unexpected URL %q", url)
	}

	content, err := os.ReadFile(filepath.Join(dir, "attachments", "abc", "shot.png"))
	if err != nil {
		t.Fatalf("Expected file on disk: %v", err)
	}
	if string(content) != "png-bytes" {
		t.Errorf("Expected stored content, got %q", content)
	}

	if _, err := store.Put(context.Background(), "../escape.png", "image/png", nil); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, "attachments/x.png", "image/png", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3StorePut(t *testing.T) {
	t.Run("Public URL", func(t *testing.T) {
		putter := &fakePutter{}
		store := NewS3StoreWithClient(putter, "feedback", "https://cdn.example.com/")

		url, err := store.Put(context.Background(), "attachments/abc/shot.png", "image/png", []byte("png-bytes"))
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if url != "https://cdn.example.com/attachments/abc/shot.png" {
			t.Errorf("Unexpected URL %q", url)
		}
		if aws.ToString(putter.input.Bucket) != "feedback" || aws.ToString(putter.input.Key) != "attachments/abc/shot.png" {
			t.Errorf("Unexpected object location %s/%s", aws.ToString(putter.input.Bucket), aws.ToString(putter.input.Key))
		}
		if aws.ToString(putter.input.ContentType) != "image/png" {
			t.Errorf("Unexpected content type %s", aws.ToString(putter.input.ContentType))
		}
		if string(putter.body) != "png-bytes" {
			t.Errorf("Unexpected body %q", putter.body)
		}
	})

	t.Run("Bucket path without public URL", func(t *testing.T) {
		store := NewS3StoreWithClient(&fakePutter{}, "feedback", "")
		url, err := store.Put(context.Background(), "attachments/a.png", "image/png", nil)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if url != "/feedback/attachments/a.png" {
			t.Errorf("Unexpected URL %q", url)
		}
	})

	t.Run("Upload error", func(t *testing.T) {
		boom := errors.New("boom")
		store := NewS3StoreWithClient(&fakePutter{err: boom}, "feedback", "")
		if _, err := store.Put(context.Background(), "attachments/a.png", "image/png", nil); !errors.Is(err, boom) {
			t.Errorf("Expected wrapped upload error, got %v", err)
		}
	})
}

func TestNewS3Store(t *testing.T) {
	store, err := NewS3Store(context.Background(), S3Options{
		Bucket:          "feedback",
		Endpoint:        "https://account.r2.cloudflarestorage.com",
		AccessKeyID:     "id",
		AccessKeySecret: "secret",
	})
	if err != nil {
		t.Fatalf("NewS3Store failed: %v", err)
	}
	if store.bucket != "feedback" {
		t.Errorf("Expected bucket feedback, got %q", store.bucket)
	}
	if _, ok := store.client.(*s3.Client); !ok {
		t.Errorf("Expected *s3.Client, got %T", store.client)
	}
}
