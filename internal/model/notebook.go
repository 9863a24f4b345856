package model

import (
	"path/filepath"
	"strconv"
	"time"
)

// Notebook limits and defaults.
const (
	MaxNotebookNameLength = 20
	DefaultNotebookName   = "我的日记本"
	DefaultNotebookCover  = "1"
	BuiltinCoverCount     = 5
)

// Notebook is a named grouping of diary entries owned by one user.
//
// Cover is either a token "1".."5" selecting a built-in image, or an absolute
// path to an image the user supplied.
//
// DiaryCount is a cache of the number of non-draft diaries in the notebook.
// It is refreshed explicitly (NotebookRepository.RecomputeDiaryCount), so it
// can be stale between writes.
type Notebook struct {
	ID         int64     `json:"id"         db:"notebook_id"`
	Name       string    `json:"name"       db:"notebook_name"`
	Cover      string    `json:"cover"      db:"cover"`
	UserID     int64     `json:"userId"     db:"user_id"`
	DiaryCount int       `json:"diaryCount" db:"diary_count"`
	SortOrder  int       `json:"sortOrder"  db:"sort_order"`
	CreatedAt  time.Time `json:"createdAt"  db:"create_time"`
	UpdatedAt  time.Time `json:"updatedAt"  db:"update_time"`
}

// BuiltinCover reports the built-in cover number (1..5) and true when Cover
// is a built-in token. An empty cover falls back to the default image.
func (n *Notebook) BuiltinCover() (int, bool) {
	if n.Cover == "" {
		return 1, true
	}
	num, err := strconv.Atoi(n.Cover)
	if err != nil || num < 1 || num > BuiltinCoverCount {
		return 0, false
	}
	return num, true
}

// ValidCover reports whether cover is acceptable for a notebook:
// empty, a built-in token, or an absolute file path.
func ValidCover(cover string) bool {
	if cover == "" {
		return true
	}
	n := Notebook{Cover: cover}
	if _, ok := n.BuiltinCover(); ok {
		return true
	}
	return filepath.IsAbs(cover)
}
