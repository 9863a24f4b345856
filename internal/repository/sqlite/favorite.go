package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/traildiary/traildiary/internal/apperror"
	"github.com/traildiary/traildiary/internal/model"
	"github.com/traildiary/traildiary/internal/repository"
)

var _ repository.FavoriteRepository = (*FavoriteDB)(nil)

// FavoriteDB is the store for the favorite link table. The pair
// (user_id, diary_id) is unique.
type FavoriteDB struct {
	db *DB
}

// Add favorites diaryID for userID. Favoriting twice is a no-op that reports
// false; a diary that doesn't exist is apperror.ErrNotFound.
func (s *FavoriteDB) Add(ctx context.Context, userID, diaryID int64) (bool, error) {
	res, err := s.db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO favorite (user_id, diary_id, favorite_time) VALUES (?, ?, ?)`,
		userID, diaryID, formatDateTime(time.Now()))
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, apperror.NotFound("diary", diaryID)
		}
		return false, fmt.Errorf("sqlite: adding favorite (user=%d, diary=%d): %w", userID, diaryID, err)
	}
	n, err := rowsAffected(res, "adding favorite")
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *FavoriteDB) Remove(ctx context.Context, userID, diaryID int64) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM favorite WHERE user_id = ? AND diary_id = ?`, userID, diaryID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: removing favorite (user=%d, diary=%d): %w", userID, diaryID, err)
	}
	return rowsAffected(res, "removing favorite")
}

func (s *FavoriteDB) IsFavorite(ctx context.Context, userID, diaryID int64) (bool, error) {
	var n int
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM favorite WHERE user_id = ? AND diary_id = ?`, userID, diaryID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking favorite: %w", err)
	}
	return n > 0, nil
}

func (s *FavoriteDB) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM favorite f
		 JOIN diary d ON d.diary_id = f.diary_id
		 WHERE f.user_id = ? AND `+favoriteVisible,
		userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting favorites of user %d: %w", userID, err)
	}
	return n, nil
}

// favoriteVisible hides a favorited diary while its author has it back in
// drafts. The favorite row stays and the diary reappears once published.
const favoriteVisible = `(d.is_draft = 0 OR d.author_id = f.user_id)`

// ListDiaries returns the favorited diaries, most recently favorited first.
func (s *FavoriteDB) ListDiaries(ctx context.Context, userID int64) ([]model.Diary, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+diaryColumns+`
		 FROM favorite f
		 JOIN diary d ON d.diary_id = f.diary_id
		 LEFT JOIN user u ON u.user_id = d.author_id
		 WHERE f.user_id = ? AND `+favoriteVisible+`
		 ORDER BY f.favorite_time DESC, f.favorite_id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing favorites of user %d: %w", userID, err)
	}
	return collect(ctx, s.db, rows, "diary", scanDiary)
}
