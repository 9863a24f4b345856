package model

import (
	"strings"
	"time"
)

// Diary limits.
const (
	MaxDiaryTitleLength = 50
	SummaryLength       = 100
)

// ParagraphSeparator joins the paragraphs of a diary's content.
const ParagraphSeparator = "\n\n"

// Diary is a single journal entry.
//
// A diary always has an author and belongs to at most one notebook.
// NotebookID is nil when the diary is unfiled, including after its notebook
// was deleted (the foreign key nulls the reference, the diary stays).
//
// AuthorName is a snapshot written on insert; reads refresh it from the
// user table when the author still exists. AuthorAvatar only comes from
// that join and is never written.
type Diary struct {
	ID             int64     `json:"id"             db:"diary_id"`
	Title          string    `json:"title"          db:"title"`
	Content        string    `json:"content"        db:"content"`
	Category       string    `json:"category"       db:"category"`
	AuthorID       int64     `json:"authorId"       db:"author_id"`
	AuthorName     string    `json:"authorName"     db:"author_name"`
	AuthorAvatar   []byte    `json:"authorAvatar"`
	CoverImagePath string    `json:"coverImagePath" db:"cover_image_path"`
	Images         []string  `json:"images"         db:"images"`
	NotebookID     *int64    `json:"notebookId"     db:"notebook_id"`
	IsDraft        bool      `json:"isDraft"        db:"is_draft"`
	LikeCount      int       `json:"likeCount"      db:"like_count"`
	ViewCount      int       `json:"viewCount"      db:"view_count"`
	CreatedAt      time.Time `json:"createdAt"      db:"create_time_diary"`
	UpdatedAt      time.Time `json:"updatedAt"      db:"update_time"`
}

// Summary returns at most the first 100 characters of the content,
// followed by "..." when truncated.
func (d *Diary) Summary() string {
	r := []rune(d.Content)
	if len(r) <= SummaryLength {
		return d.Content
	}
	return string(r[:SummaryLength]) + "..."
}

// Paragraphs splits the content on blank lines, dropping empty paragraphs.
func (d *Diary) Paragraphs() []string {
	var out []string
	for _, p := range strings.Split(d.Content, ParagraphSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinParagraphs builds diary content from individual paragraphs.
func JoinParagraphs(paragraphs []string) string {
	return strings.Join(paragraphs, ParagraphSeparator)
}

// CategoryName is the display name of the diary's category.
func (d *Diary) CategoryName() string {
	return CategoryName(d.Category)
}

// InNotebook reports whether the diary is filed in notebook id.
func (d *Diary) InNotebook(id int64) bool {
	return d.NotebookID != nil && *d.NotebookID == id
}
