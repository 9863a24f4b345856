package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/traildiary/traildiary/internal/apperror"
	"github.com/traildiary/traildiary/internal/model"
	"github.com/traildiary/traildiary/internal/repository"
)

var _ repository.DiaryRepository = (*DiaryDB)(nil)

// DiaryDB is the store for the diary table.
type DiaryDB struct {
	db *DB
}

// Every diary read joins the author so the current nickname and avatar come
// back with the row. author_name is the snapshot taken at write time and is
// only used once the author row is gone.
const (
	diaryColumns = `d.diary_id, d.title, d.content, d.category, d.author_id,
		COALESCE(u.nickname, d.author_name), u.avatar, d.cover_image_path, d.images,
		d.notebook_id, d.is_draft, d.like_count, d.view_count, d.create_time_diary, d.update_time`
	diaryFrom   = ` FROM diary d LEFT JOIN user u ON u.user_id = d.author_id`
	diarySelect = `SELECT ` + diaryColumns + diaryFrom
	diaryOrder  = ` ORDER BY d.create_time_diary DESC, d.diary_id DESC`
)

func scanDiary(s scanner) (*model.Diary, error) {
	var (
		d                                                  model.Diary
		content, category, authorName, avatar, cover, imgs sql.NullString
		created, updated                                   sql.NullString
		notebookID, likes, views                           sql.NullInt64
		draft                                              sql.NullBool
	)
	if err := s.Scan(&d.ID, &d.Title, &content, &category, &d.AuthorID,
		&authorName, &avatar, &cover, &imgs,
		&notebookID, &draft, &likes, &views, &created, &updated); err != nil {
		return nil, err
	}
	d.Content = content.String
	d.Category = category.String
	d.AuthorName = authorName.String
	d.CoverImagePath = cover.String
	d.IsDraft = draft.Bool
	d.LikeCount = int(likes.Int64)
	d.ViewCount = int(views.Int64)
	if notebookID.Valid {
		id := notebookID.Int64
		d.NotebookID = &id
	}

	var err error
	if d.Images, err = decodeImages(imgs); err != nil {
		return nil, apperror.Decode("diary", d.ID, "images", err)
	}
	if d.AuthorAvatar, err = decodeAvatar(avatar); err != nil {
		return nil, apperror.Decode("diary", d.ID, "avatar", err)
	}
	if d.CreatedAt, err = parseDateTime(created); err != nil {
		return nil, apperror.Decode("diary", d.ID, "create_time_diary", err)
	}
	if d.UpdatedAt, err = parseDateTime(updated); err != nil {
		return nil, apperror.Decode("diary", d.ID, "update_time", err)
	}
	return &d, nil
}

// Create inserts the diary and sets diary.ID. When AuthorName is empty the
// author's current nickname is stored as the snapshot.
func (s *DiaryDB) Create(ctx context.Context, diary *model.Diary) (int64, error) {
	images, err := encodeImages(diary.Images)
	if err != nil {
		return 0, fmt.Errorf("sqlite: encoding diary images: %w", err)
	}
	if diary.CreatedAt.IsZero() {
		diary.CreatedAt = time.Now()
	}
	if diary.UpdatedAt.IsZero() {
		diary.UpdatedAt = diary.CreatedAt
	}

	res, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO diary (title, content, category, author_id, author_name, cover_image_path, images,
		                    notebook_id, is_draft, create_time_diary, update_time, like_count, view_count)
		 VALUES (?, ?, ?, ?, COALESCE(NULLIF(?, ''), (SELECT nickname FROM user WHERE user_id = ?)),
		         ?, ?, ?, ?, ?, ?, ?, ?)`,
		diary.Title,
		diary.Content,
		nullIfEmpty(diary.Category),
		diary.AuthorID,
		diary.AuthorName, diary.AuthorID,
		nullIfEmpty(diary.CoverImagePath),
		images,
		nullableID(diary.NotebookID),
		boolToInt(diary.IsDraft),
		formatDateTime(diary.CreatedAt),
		formatDateTime(diary.UpdatedAt),
		diary.LikeCount,
		diary.ViewCount,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, apperror.ValidationFailed("diary", "author or notebook does not exist")
		}
		return 0, fmt.Errorf("sqlite: inserting diary %q: %w", diary.Title, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading new diary id: %w", err)
	}
	diary.ID = id
	return id, nil
}

// Update replaces the editable columns and stamps update_time. Author, create
// time and the like/view counters keep their stored values.
func (s *DiaryDB) Update(ctx context.Context, diary *model.Diary) (int64, error) {
	images, err := encodeImages(diary.Images)
	if err != nil {
		return 0, fmt.Errorf("sqlite: encoding diary images: %w", err)
	}
	diary.UpdatedAt = time.Now()

	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE diary SET title = ?, content = ?, category = ?, cover_image_path = ?, images = ?,
		                  notebook_id = ?, is_draft = ?, update_time = ?
		 WHERE diary_id = ?`,
		diary.Title,
		diary.Content,
		nullIfEmpty(diary.Category),
		nullIfEmpty(diary.CoverImagePath),
		images,
		nullableID(diary.NotebookID),
		boolToInt(diary.IsDraft),
		formatDateTime(diary.UpdatedAt),
		diary.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, apperror.ValidationFailed("notebookId", "notebook does not exist")
		}
		return 0, fmt.Errorf("sqlite: updating diary %d: %w", diary.ID, err)
	}
	return rowsAffected(res, "updating diary")
}

func (s *DiaryDB) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM diary WHERE diary_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting diary %d: %w", id, err)
	}
	return rowsAffected(res, "deleting diary")
}

func (s *DiaryDB) DeleteDrafts(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM diary WHERE author_id = ? AND is_draft = 1`, userID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting drafts of user %d: %w", userID, err)
	}
	return rowsAffected(res, "deleting drafts")
}

func (s *DiaryDB) GetByID(ctx context.Context, id int64) (*model.Diary, error) {
	row := s.db.conn.QueryRowContext(ctx, diarySelect+` WHERE d.diary_id = ?`, id)
	d, err := scanDiary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("diary", id)
		}
		if isDecodeError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: getting diary %d: %w", id, err)
	}
	return d, nil
}

func (s *DiaryDB) list(ctx context.Context, query string, args ...any) ([]model.Diary, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing diaries: %w", err)
	}
	return collect(ctx, s.db, rows, "diary", scanDiary)
}

func (s *DiaryDB) ListByUser(ctx context.Context, userID int64, includeDrafts bool) ([]model.Diary, error) {
	where := ` WHERE d.author_id = ?`
	if !includeDrafts {
		where += ` AND d.is_draft = 0`
	}
	return s.list(ctx, diarySelect+where+diaryOrder, userID)
}

// ListByNotebook returns the published diaries filed in the notebook.
func (s *DiaryDB) ListByNotebook(ctx context.Context, notebookID int64) ([]model.Diary, error) {
	return s.list(ctx, diarySelect+` WHERE d.notebook_id = ? AND d.is_draft = 0`+diaryOrder, notebookID)
}

// ListDrafts orders by last edit rather than creation.
func (s *DiaryDB) ListDrafts(ctx context.Context, userID int64) ([]model.Diary, error) {
	return s.list(ctx, diarySelect+` WHERE d.author_id = ? AND d.is_draft = 1
		ORDER BY d.update_time DESC, d.diary_id DESC`, userID)
}

func (s *DiaryDB) CountByUser(ctx context.Context, userID int64, includeDrafts bool) (int, error) {
	query := `SELECT COUNT(*) FROM diary WHERE author_id = ?`
	if !includeDrafts {
		query += ` AND is_draft = 0`
	}
	var n int
	if err := s.db.conn.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting diaries of user %d: %w", userID, err)
	}
	return n, nil
}

// searchFilter builds the WHERE fragment for one search scope. ok is false
// when the scope can't match anything, which only happens for a category
// keyword outside the fixed vocabulary.
func searchFilter(keyword string, scope model.SearchType, withAuthor bool) (clause string, args []any, ok bool) {
	const like = ` LIKE ? ESCAPE '\'`
	pattern := likePattern(keyword)

	switch scope {
	case model.SearchAuthor:
		return `u.nickname` + like, []any{pattern}, true
	case model.SearchTitle:
		return `d.title` + like, []any{pattern}, true
	case model.SearchCategory:
		code := model.CategoryCodeFromName(keyword)
		if code == "" {
			return "", nil, false
		}
		return `d.category = ?`, []any{code}, true
	default:
		cols := []string{"d.title", "d.content", "d.category"}
		if withAuthor {
			cols = append(cols, "u.nickname")
		}
		parts := make([]string, len(cols))
		for i, c := range cols {
			parts[i] = c + like
			args = append(args, pattern)
		}
		return "(" + strings.Join(parts, " OR ") + ")", args, true
	}
}

// Search looks through ownerID's published diaries. An unknown category
// returns an empty result without querying.
func (s *DiaryDB) Search(ctx context.Context, keyword string, scope model.SearchType, ownerID int64) ([]model.Diary, error) {
	clause, args, ok := searchFilter(keyword, scope, false)
	if !ok {
		return []model.Diary{}, nil
	}
	args = append([]any{ownerID}, args...)
	return s.list(ctx, diarySelect+` WHERE d.author_id = ? AND d.is_draft = 0 AND `+clause+diaryOrder, args...)
}

// SearchAll is Search across every author. The general scope also matches
// the author's nickname.
func (s *DiaryDB) SearchAll(ctx context.Context, keyword string, scope model.SearchType) ([]model.Diary, error) {
	clause, args, ok := searchFilter(keyword, scope, true)
	if !ok {
		return []model.Diary{}, nil
	}
	return s.list(ctx, diarySelect+` WHERE d.is_draft = 0 AND `+clause+diaryOrder, args...)
}

func (s *DiaryDB) increment(ctx context.Context, id int64, column string) (int, error) {
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE diary SET `+column+` = COALESCE(`+column+`, 0) + 1 WHERE diary_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("sqlite: incrementing %s of diary %d: %w", column, id, err)
	}
	n, err := rowsAffected(res, "incrementing "+column)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, apperror.NotFound("diary", id)
	}

	var v int
	if err := s.db.conn.QueryRowContext(ctx,
		`SELECT `+column+` FROM diary WHERE diary_id = ?`, id).Scan(&v); err != nil {
		return 0, fmt.Errorf("sqlite: reading %s of diary %d: %w", column, id, err)
	}
	return v, nil
}

// IncrementLikes adds one like and returns the new total.
func (s *DiaryDB) IncrementLikes(ctx context.Context, id int64) (int, error) {
	return s.increment(ctx, id, "like_count")
}

func (s *DiaryDB) IncrementViews(ctx context.Context, id int64) (int, error) {
	return s.increment(ctx, id, "view_count")
}
