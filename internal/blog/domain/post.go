package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrInvalid wraps every post validation failure.
var ErrInvalid = errors.New("invalid post")

const excerptLen = 160

// Post is an internal blog entry visible to the whole tenant. AuthorName is denormalized.
type Post struct {
	ID          int64     `json:"id"`
	TenantID    int64     `json:"company_id"`
	AuthorID    int64     `json:"author_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Excerpt     string    `json:"excerpt,omitempty"`
	IsPublished bool      `json:"is_published"`
	IsPinned    bool      `json:"is_pinned"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AuthorName  string    `json:"author_name"`
}

// NewPost is the input for publishing a post.
type NewPost struct {
	// AuthorID is set by the gateway to the acting member.
	AuthorID int64
	Title    string
	Content  string
	// Excerpt defaults to the start of Content.
	Excerpt  string
	IsPinned bool
}

// Validate normalizes and checks the post.
func (n *NewPost) Validate() error {
	n.Title = strings.TrimSpace(n.Title)
	n.Content = strings.TrimSpace(n.Content)
	if n.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if n.Content == "" {
		return fmt.Errorf("%w: content is required", ErrInvalid)
	}
	if n.AuthorID == 0 {
		return fmt.Errorf("%w: author is required", ErrInvalid)
	}
	if n.Excerpt == "" {
		n.Excerpt = Excerpt(n.Content)
	}
	return nil
}

// Excerpt returns the first line of content cut to a fixed number of runes.
func Excerpt(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	if utf8.RuneCountInString(line) <= excerptLen {
		return line
	}
	r := []rune(line)
	return strings.TrimSpace(string(r[:excerptLen])) + "…"
}
