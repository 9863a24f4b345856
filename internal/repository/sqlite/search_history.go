package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/traildiary/traildiary/internal/apperror"
	"github.com/traildiary/traildiary/internal/model"
	"github.com/traildiary/traildiary/internal/repository"
)

var _ repository.SearchHistoryRepository = (*SearchHistoryDB)(nil)

// SearchHistoryDB is the store for search_history. Nothing in the schema
// stops duplicate keywords; callers that care check Exists first.
type SearchHistoryDB struct {
	db *DB
}

const searchHistoryColumns = `search_id, user_id, keyword, search_type, search_result, create_time`

func scanSearchHistory(s scanner) (*model.SearchHistory, error) {
	var (
		h               model.SearchHistory
		searchType      sql.NullInt64
		result, created sql.NullString
	)
	if err := s.Scan(&h.ID, &h.UserID, &h.Keyword, &searchType, &result, &created); err != nil {
		return nil, err
	}
	h.SearchType = model.SearchType(searchType.Int64)
	h.Result = result.String

	var err error
	if h.SearchedAt, err = parseDateTime(created); err != nil {
		return nil, apperror.Decode("search_history", h.ID, "create_time", err)
	}
	return &h, nil
}

func (s *SearchHistoryDB) Create(ctx context.Context, history *model.SearchHistory) (int64, error) {
	if history.SearchedAt.IsZero() {
		history.SearchedAt = time.Now()
	}
	res, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO search_history (keyword, search_type, user_id, create_time, search_result)
		 VALUES (?, ?, ?, ?, ?)`,
		history.Keyword,
		int(history.SearchType),
		history.UserID,
		formatDateTime(history.SearchedAt),
		nullIfEmpty(history.Result),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, apperror.NotFound("user", history.UserID)
		}
		return 0, fmt.Errorf("sqlite: inserting search history: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading new search history id: %w", err)
	}
	history.ID = id
	return id, nil
}

func (s *SearchHistoryDB) exec(ctx context.Context, action, query string, args ...any) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: %s: %w", action, err)
	}
	return rowsAffected(res, action)
}

func (s *SearchHistoryDB) Delete(ctx context.Context, id int64) (int64, error) {
	return s.exec(ctx, "deleting search history",
		`DELETE FROM search_history WHERE search_id = ?`, id)
}

func (s *SearchHistoryDB) DeleteByKeyword(ctx context.Context, keyword string, userID int64) (int64, error) {
	return s.exec(ctx, "deleting search history by keyword",
		`DELETE FROM search_history WHERE keyword = ? AND user_id = ?`, keyword, userID)
}

func (s *SearchHistoryDB) Clear(ctx context.Context, userID int64) (int64, error) {
	return s.exec(ctx, "clearing search history",
		`DELETE FROM search_history WHERE user_id = ?`, userID)
}

// ListByUser returns the newest entries first. A limit of zero or less
// means no limit.
func (s *SearchHistoryDB) ListByUser(ctx context.Context, userID int64, limit int) ([]model.SearchHistory, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+searchHistoryColumns+` FROM search_history
		 WHERE user_id = ?
		 ORDER BY create_time DESC, search_id DESC
		 LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing search history of user %d: %w", userID, err)
	}
	return collect(ctx, s.db, rows, "search_history", scanSearchHistory)
}

func (s *SearchHistoryDB) Recent(ctx context.Context, userID int64) ([]model.SearchHistory, error) {
	return s.ListByUser(ctx, userID, model.MaxRecentSearches)
}

// PopularKeywords ranks keywords by how many times they were searched, across
// all users. Ties go to the most recently searched.
func (s *SearchHistoryDB) PopularKeywords(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = model.MaxRecentSearches
	}
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT keyword FROM search_history
		 GROUP BY keyword
		 ORDER BY COUNT(*) DESC, MAX(create_time) DESC, keyword ASC
		 LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing popular keywords: %w", err)
	}
	defer rows.Close()

	keywords := make([]string, 0, limit)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("sqlite: scanning keyword: %w", err)
		}
		keywords = append(keywords, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating keywords: %w", err)
	}
	return keywords, nil
}

func (s *SearchHistoryDB) Exists(ctx context.Context, keyword string, userID int64, searchType model.SearchType) (bool, error) {
	var n int
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM search_history WHERE keyword = ? AND user_id = ? AND search_type = ?`,
		keyword, userID, int(searchType)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking search history: %w", err)
	}
	return n > 0, nil
}

func (s *SearchHistoryDB) KeywordExists(ctx context.Context, userID int64, keyword string) (bool, error) {
	var n int
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM search_history WHERE keyword = ? AND user_id = ?`,
		keyword, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking search keyword: %w", err)
	}
	return n > 0, nil
}
