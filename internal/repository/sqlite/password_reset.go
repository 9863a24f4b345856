package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/traildiary/traildiary/internal/apperror"
	"github.com/traildiary/traildiary/internal/model"
	"github.com/traildiary/traildiary/internal/repository"
)

var _ repository.PasswordResetRepository = (*PasswordResetDB)(nil)

// PasswordResetDB stores pending reset codes, keyed by phone.
type PasswordResetDB struct {
	db *DB
}

// Save replaces whatever code was pending for the phone and resets its
// attempt count.
func (s *PasswordResetDB) Save(ctx context.Context, reset *model.PasswordReset) error {
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO password_reset (phone, code_hash, attempts, expires_at, create_time)
		 VALUES (?, ?, 0, ?, ?)
		 ON CONFLICT(phone) DO UPDATE SET
		     code_hash = excluded.code_hash,
		     attempts = 0,
		     expires_at = excluded.expires_at,
		     create_time = excluded.create_time`,
		reset.Phone,
		reset.CodeHash,
		formatDateTime(reset.ExpiresAt),
		formatDateTime(reset.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving reset code: %w", err)
	}
	reset.Attempts = 0
	return nil
}

func (s *PasswordResetDB) Get(ctx context.Context, phone string) (*model.PasswordReset, error) {
	var (
		r                model.PasswordReset
		expires, created sql.NullString
	)
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT phone, code_hash, attempts, expires_at, create_time
		 FROM password_reset WHERE phone = ?`, phone).
		Scan(&r.Phone, &r.CodeHash, &r.Attempts, &expires, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("reset code for phone", phone)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading reset code: %w", err)
	}
	if r.ExpiresAt, err = parseDateTime(expires); err != nil {
		return nil, apperror.Decode("password_reset", phone, "expires_at", err)
	}
	if r.CreatedAt, err = parseDateTime(created); err != nil {
		return nil, apperror.Decode("password_reset", phone, "create_time", err)
	}
	return &r, nil
}

// IncrementAttempts records one wrong guess and returns the new total.
func (s *PasswordResetDB) IncrementAttempts(ctx context.Context, phone string) (int, error) {
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE password_reset SET attempts = attempts + 1 WHERE phone = ?`, phone)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting reset attempt: %w", err)
	}
	n, err := rowsAffected(res, "counting reset attempt")
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, apperror.NotFound("reset code for phone", phone)
	}

	var attempts int
	if err := s.db.conn.QueryRowContext(ctx,
		`SELECT attempts FROM password_reset WHERE phone = ?`, phone).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("sqlite: reading reset attempts: %w", err)
	}
	return attempts, nil
}

// Delete drops the pending code. The count tells a caller racing another
// request whether it was the one that consumed the code.
func (s *PasswordResetDB) Delete(ctx context.Context, phone string) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM password_reset WHERE phone = ?`, phone)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting reset code: %w", err)
	}
	return rowsAffected(res, "deleting reset code")
}
