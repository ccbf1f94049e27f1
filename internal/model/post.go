// Package model defines core data structures and types for the feedback board.
package model

import (
	"strconv"
	"time"

	"github.com/debemdeboas/feedback-board/internal/catalog"
)

const PostsURLPath = "/posts/"

type PostID int64

// Post is a suggestion submitted to the board.
type Post struct {
	ID     PostID `json:"id"`
	Number int    `json:"number"`
	Slug   string `json:"slug"`

	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DescriptionHash string    `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`

	// Status is a value from catalog.Statuses.
	Status string `json:"status"`
	// Module is a value from catalog.Modules, or empty.
	Module string `json:"module,omitempty"`

	User          *User         `json:"user"`
	HasVoted      bool          `json:"hasVoted"`
	Response      *PostResponse `json:"response"`
	VotesCount    int           `json:"votesCount"`
	CommentsCount int           `json:"commentsCount"`
	Tags          []string      `json:"tags"`
	Attachments   []string      `json:"attachments,omitempty"`
}

// PostURL builds the canonical address of a post.
func PostURL(number int, slug string) string {
	return PostsURLPath + strconv.Itoa(number) + "/" + slug
}

func (p *Post) URL() string {
	return PostURL(p.Number, p.Slug)
}

// StatusEntry decodes the post status. Posts come from our own store, so an
// unknown status is a catalog mismatch and panics.
func (p *Post) StatusEntry() catalog.Entry {
	return catalog.Statuses.MustGet(p.Status)
}

// ModuleEntry decodes the post module. The boolean is false for posts filed
// without a module.
func (p *Post) ModuleEntry() (catalog.Entry, bool) {
	if p.Module == "" {
		return catalog.Entry{}, false
	}
	return catalog.Modules.MustGet(p.Module), true
}

// IsClosed reports whether voting and commenting are locked.
func (p *Post) IsClosed() bool {
	return p.StatusEntry().Closed
}

// PostResponse is a moderator reply attached to a post.
type PostResponse struct {
	User        *User     `json:"user"`
	Text        string    `json:"text"`
	RespondedAt time.Time `json:"respondedAt"`

	// Original is set when the post was marked as a duplicate.
	Original *OriginalPost `json:"original,omitempty"`
}

type OriginalPost struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	Status string `json:"status"`
}

type Comment struct {
	ID          int64      `json:"id"`
	Content     string     `json:"content"`
	CreatedAt   time.Time  `json:"createdAt"`
	User        *User      `json:"user"`
	Attachments []string   `json:"attachments,omitempty"`
	EditedAt    *time.Time `json:"editedAt,omitempty"`
	EditedBy    *User      `json:"editedBy,omitempty"`
}

type Tag struct {
	ID       int64  `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	IsPublic bool   `json:"isPublic"`
}

type Vote struct {
	CreatedAt time.Time `json:"createdAt"`
	User      *User     `json:"user"`
}
