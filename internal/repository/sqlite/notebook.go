package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/traildiary/traildiary/internal/apperror"
	"github.com/traildiary/traildiary/internal/model"
	"github.com/traildiary/traildiary/internal/repository"
)

var _ repository.NotebookRepository = (*NotebookDB)(nil)

// NotebookDB is the store for the notebook table.
type NotebookDB struct {
	db *DB
}

const notebookColumns = `notebook_id, notebook_name, cover, user_id, diary_count, sort_order, create_time, update_time`

func scanNotebook(s scanner) (*model.Notebook, error) {
	var (
		n                       model.Notebook
		cover, created, updated sql.NullString
		count, order            sql.NullInt64
	)
	if err := s.Scan(&n.ID, &n.Name, &cover, &n.UserID, &count, &order, &created, &updated); err != nil {
		return nil, err
	}
	n.Cover = cover.String
	n.DiaryCount = int(count.Int64)
	n.SortOrder = int(order.Int64)

	var err error
	if n.CreatedAt, err = parseDateTime(created); err != nil {
		return nil, apperror.Decode("notebook", n.ID, "create_time", err)
	}
	if n.UpdatedAt, err = parseDateTime(updated); err != nil {
		return nil, apperror.Decode("notebook", n.ID, "update_time", err)
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	return &n, nil
}

// Create inserts the notebook and sets notebook.ID. An empty cover becomes
// model.DefaultNotebookCover. A name the owner already uses is
// apperror.ErrConflict.
func (s *NotebookDB) Create(ctx context.Context, notebook *model.Notebook) (int64, error) {
	if notebook.Cover == "" {
		notebook.Cover = model.DefaultNotebookCover
	}
	now := time.Now()
	if notebook.CreatedAt.IsZero() {
		notebook.CreatedAt = now
	}
	notebook.UpdatedAt = notebook.CreatedAt

	res, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO notebook (notebook_name, cover, user_id, diary_count, sort_order, create_time, update_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		notebook.Name,
		notebook.Cover,
		notebook.UserID,
		notebook.DiaryCount,
		notebook.SortOrder,
		formatDateTime(notebook.CreatedAt),
		formatDateTime(notebook.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, apperror.NotFound("user", notebook.UserID)
		}
		if isUniqueViolation(err) {
			return 0, apperror.Conflict("notebook", "name", notebook.Name)
		}
		return 0, fmt.Errorf("sqlite: inserting notebook %q: %w", notebook.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading new notebook id: %w", err)
	}
	notebook.ID = id
	return id, nil
}

// CreateDefault gives a freshly registered user their first notebook.
func (s *NotebookDB) CreateDefault(ctx context.Context, userID int64) (int64, error) {
	return s.Create(ctx, &model.Notebook{
		Name:   model.DefaultNotebookName,
		Cover:  model.DefaultNotebookCover,
		UserID: userID,
	})
}

// Update writes name, cover and sort order and bumps update_time. The owner
// and the cached diary count are not touched.
func (s *NotebookDB) Update(ctx context.Context, notebook *model.Notebook) (int64, error) {
	notebook.UpdatedAt = time.Now()
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE notebook SET notebook_name = ?, cover = ?, sort_order = ?, update_time = ?
		 WHERE notebook_id = ?`,
		notebook.Name,
		notebook.Cover,
		notebook.SortOrder,
		formatDateTime(notebook.UpdatedAt),
		notebook.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperror.Conflict("notebook", "name", notebook.Name)
		}
		return 0, fmt.Errorf("sqlite: updating notebook %d: %w", notebook.ID, err)
	}
	return rowsAffected(res, "updating notebook")
}

// Delete removes the notebook. Its diaries survive with notebook_id cleared
// by the ON DELETE SET NULL foreign key.
func (s *NotebookDB) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM notebook WHERE notebook_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting notebook %d: %w", id, err)
	}
	return rowsAffected(res, "deleting notebook")
}

func (s *NotebookDB) GetByID(ctx context.Context, id int64) (*model.Notebook, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+notebookColumns+` FROM notebook WHERE notebook_id = ?`, id)
	n, err := scanNotebook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("notebook", id)
		}
		if isDecodeError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: getting notebook %d: %w", id, err)
	}
	return n, nil
}

func (s *NotebookDB) ListByUser(ctx context.Context, userID int64) ([]model.Notebook, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+notebookColumns+` FROM notebook
		 WHERE user_id = ?
		 ORDER BY sort_order ASC, create_time DESC, notebook_id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notebooks of user %d: %w", userID, err)
	}
	return collect(ctx, s.db, rows, "notebook", scanNotebook)
}

func (s *NotebookDB) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notebook WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting notebooks of user %d: %w", userID, err)
	}
	return n, nil
}

func (s *NotebookDB) NameExists(ctx context.Context, name string, userID int64) (bool, error) {
	var n int
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notebook WHERE notebook_name = ? AND user_id = ?`, name, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking notebook name: %w", err)
	}
	return n > 0, nil
}

// RecomputeDiaryCount counts and writes back in one statement, so a diary
// inserted concurrently can't fall between the read and the write.
func (s *NotebookDB) RecomputeDiaryCount(ctx context.Context, id int64) (int, error) {
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE notebook
		 SET diary_count = (SELECT COUNT(*) FROM diary WHERE diary.notebook_id = notebook.notebook_id AND is_draft = 0)
		 WHERE notebook_id = ?`,
		id)
	if err != nil {
		return 0, fmt.Errorf("sqlite: recomputing diary count of notebook %d: %w", id, err)
	}
	n, err := rowsAffected(res, "recomputing diary count")
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, apperror.NotFound("notebook", id)
	}

	var count int
	if err := s.db.conn.QueryRowContext(ctx,
		`SELECT diary_count FROM notebook WHERE notebook_id = ?`, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: reading diary count of notebook %d: %w", id, err)
	}
	return count, nil
}

// Reorder sets sort_order to each id's position in ids. Either every row is
// updated or none is.
func (s *NotebookDB) Reorder(ctx context.Context, ids []int64) (int64, error) {
	var total int64
	err := s.db.withTx(ctx, func(tx dbtx) error {
		for i, id := range ids {
			res, err := tx.ExecContext(ctx,
				`UPDATE notebook SET sort_order = ? WHERE notebook_id = ?`, i, id)
			if err != nil {
				return fmt.Errorf("sqlite: reordering notebook %d: %w", id, err)
			}
			n, err := rowsAffected(res, "reordering notebooks")
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
