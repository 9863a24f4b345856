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

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the store for the user table.
type UserDB struct {
	db *DB
}

const userColumns = `user_id, avatar, nickname, trail_number, password, phone, signature, gender, birthday, create_time`

// scanUser reads one row selected with userColumns. Scan failures come back
// as-is; values that scan but don't decode come back as apperror.ErrDecode.
func scanUser(s scanner) (*model.User, error) {
	var (
		u                                                   model.User
		avatar, phone, signature, gender, birthday, created sql.NullString
	)
	if err := s.Scan(&u.ID, &avatar, &u.Nickname, &u.TrailNumber, &u.PasswordHash,
		&phone, &signature, &gender, &birthday, &created); err != nil {
		return nil, err
	}
	u.Phone = phone.String
	u.Signature = signature.String
	u.Gender = gender.String

	var err error
	if u.Avatar, err = decodeAvatar(avatar); err != nil {
		return nil, apperror.Decode("user", u.ID, "avatar", err)
	}
	if u.Birthday, err = parseDate(birthday); err != nil {
		return nil, apperror.Decode("user", u.ID, "birthday", err)
	}
	if u.CreatedAt, err = parseDateTime(created); err != nil {
		return nil, apperror.Decode("user", u.ID, "create_time", err)
	}
	return &u, nil
}

// Create inserts the user and sets user.ID. A signature left empty is stored
// as model.DefaultSignature.
func (s *UserDB) Create(ctx context.Context, user *model.User) (int64, error) {
	if user.Signature == "" {
		user.Signature = model.DefaultSignature
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	res, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO user (avatar, nickname, trail_number, password, phone, signature, gender, birthday, create_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		encodeAvatar(user.Avatar),
		user.Nickname,
		user.TrailNumber,
		user.PasswordHash,
		nullIfEmpty(user.Phone),
		user.Signature,
		nullIfEmpty(user.Gender),
		formatDate(user.Birthday),
		formatDateTime(user.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, userConflict(err, user)
		}
		return 0, fmt.Errorf("sqlite: inserting user %q: %w", user.Nickname, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id
	return id, nil
}

func userConflict(err error, user *model.User) error {
	switch violatedColumn(err) {
	case "trail_number":
		return apperror.Conflict("user", "trailNumber", user.TrailNumber)
	default:
		return apperror.Conflict("user", "nickname", user.Nickname)
	}
}

// Update replaces the profile columns of the row with user.ID. The password
// is left alone; it only changes through UpdatePasswordByPhone.
func (s *UserDB) Update(ctx context.Context, user *model.User) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE user SET avatar = ?, nickname = ?, trail_number = ?, phone = ?, signature = ?, gender = ?, birthday = ?
		 WHERE user_id = ?`,
		encodeAvatar(user.Avatar),
		user.Nickname,
		user.TrailNumber,
		nullIfEmpty(user.Phone),
		user.Signature,
		nullIfEmpty(user.Gender),
		formatDate(user.Birthday),
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, userConflict(err, user)
		}
		return 0, fmt.Errorf("sqlite: updating user %d: %w", user.ID, err)
	}
	return rowsAffected(res, "updating user")
}

func (s *UserDB) UpdateAvatar(ctx context.Context, id int64, avatar []byte) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE user SET avatar = ? WHERE user_id = ?`, encodeAvatar(avatar), id)
	if err != nil {
		return 0, fmt.Errorf("sqlite: updating avatar of user %d: %w", id, err)
	}
	return rowsAffected(res, "updating avatar")
}

// UpdatePassword replaces one account's stored hash.
func (s *UserDB) UpdatePassword(ctx context.Context, id int64, passwordHash string) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE user SET password = ? WHERE user_id = ?`, passwordHash, id)
	if err != nil {
		return 0, fmt.Errorf("sqlite: updating password of user %d: %w", id, err)
	}
	return rowsAffected(res, "updating password")
}

// UpdatePasswordByPhone sets the password hash of every account registered
// with phone. Phones aren't unique, so the count may exceed one.
func (s *UserDB) UpdatePasswordByPhone(ctx context.Context, phone, passwordHash string) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE user SET password = ? WHERE phone = ?`, passwordHash, phone)
	if err != nil {
		return 0, fmt.Errorf("sqlite: resetting password by phone: %w", err)
	}
	return rowsAffected(res, "resetting password")
}

// Delete removes the user. The schema cascades the delete to the user's
// notebooks, diaries, favorites and search history.
func (s *UserDB) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM user WHERE user_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting user %d: %w", id, err)
	}
	return rowsAffected(res, "deleting user")
}

func (s *UserDB) getOne(ctx context.Context, where string, key any, args ...any) (*model.User, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM user WHERE `+where+` LIMIT 1`, args...)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		if isDecodeError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: getting user %v: %w", key, err)
	}
	return u, nil
}

func (s *UserDB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.getOne(ctx, `user_id = ?`, id, id)
}

func (s *UserDB) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	return s.getOne(ctx, `phone = ?`, phone, phone)
}

// GetByLogin looks the identifier up as a trail number first, then as a
// nickname. The two columns are separately unique, so an identifier that is
// one user's trail number and another user's nickname resolves to the
// trail-number owner.
func (s *UserDB) GetByLogin(ctx context.Context, identifier string) (*model.User, error) {
	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM user
		 WHERE trail_number = ? OR nickname = ?
		 ORDER BY (trail_number = ?) DESC
		 LIMIT 1`,
		identifier, identifier, identifier)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", identifier)
		}
		if isDecodeError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: getting user by login: %w", err)
	}
	return u, nil
}

// Avatar returns just the decoded avatar, nil when the user has none.
func (s *UserDB) Avatar(ctx context.Context, id int64) ([]byte, error) {
	var avatar sql.NullString
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT avatar FROM user WHERE user_id = ?`, id).Scan(&avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting avatar of user %d: %w", id, err)
	}
	b, err := decodeAvatar(avatar)
	if err != nil {
		return nil, apperror.Decode("user", id, "avatar", err)
	}
	return b, nil
}

func (s *UserDB) exists(ctx context.Context, column, value string) (bool, error) {
	var n int
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user WHERE `+column+` = ?`, value).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking user %s: %w", column, err)
	}
	return n > 0, nil
}

func (s *UserDB) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	return s.exists(ctx, "nickname", nickname)
}

func (s *UserDB) TrailNumberExists(ctx context.Context, trailNumber string) (bool, error) {
	return s.exists(ctx, "trail_number", trailNumber)
}

func (s *UserDB) PhoneExists(ctx context.Context, phone string) (bool, error) {
	return s.exists(ctx, "phone", phone)
}

// List returns every user, newest first.
func (s *UserDB) List(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM user ORDER BY create_time DESC, user_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	return collect(ctx, s.db, rows, "user", scanUser)
}

// Search matches keyword inside nicknames and trail numbers.
func (s *UserDB) Search(ctx context.Context, keyword string) ([]model.User, error) {
	pattern := likePattern(keyword)
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM user
		 WHERE nickname LIKE ? ESCAPE '\' OR trail_number LIKE ? ESCAPE '\'
		 ORDER BY create_time DESC, user_id DESC`,
		pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching users: %w", err)
	}
	return collect(ctx, s.db, rows, "user", scanUser)
}
