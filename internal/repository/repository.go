// Package repository declares the data-access contracts. The services depend
// on these interfaces; internal/repository/sqlite implements them.
//
// CONVENTIONS SHARED BY EVERY STORE:
//   - Create returns the new row id. A uniqueness violation returns an
//     apperror.ErrConflict error and writes nothing.
//   - Update and Delete return the number of rows affected. Zero means the id
//     did not match a row; that is not an error, callers check the count.
//   - Single-row getters return apperror.ErrNotFound when nothing matches and
//     apperror.ErrDecode when the row holds a value that can't be decoded.
//   - Listings are always ordered and skip drafts unless asked otherwise.
//     A corrupt row is left out of a listing rather than failing it.
package repository

import (
	"context"

	"github.com/traildiary/traildiary/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) (int64, error)
	Update(ctx context.Context, user *model.User) (int64, error)
	UpdateAvatar(ctx context.Context, id int64, avatar []byte) (int64, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) (int64, error)
	UpdatePasswordByPhone(ctx context.Context, phone, passwordHash string) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)

	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
	// GetByLogin matches identifier against the trail number or the nickname.
	GetByLogin(ctx context.Context, identifier string) (*model.User, error)
	Avatar(ctx context.Context, id int64) ([]byte, error)

	NicknameExists(ctx context.Context, nickname string) (bool, error)
	TrailNumberExists(ctx context.Context, trailNumber string) (bool, error)
	PhoneExists(ctx context.Context, phone string) (bool, error)

	List(ctx context.Context) ([]model.User, error)
	Search(ctx context.Context, keyword string) ([]model.User, error)
}

type NotebookRepository interface {
	Create(ctx context.Context, notebook *model.Notebook) (int64, error)
	CreateDefault(ctx context.Context, userID int64) (int64, error)
	Update(ctx context.Context, notebook *model.Notebook) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)

	GetByID(ctx context.Context, id int64) (*model.Notebook, error)
	// ListByUser orders by sort_order ascending, then create time descending.
	ListByUser(ctx context.Context, userID int64) ([]model.Notebook, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	NameExists(ctx context.Context, name string, userID int64) (bool, error)

	// RecomputeDiaryCount refreshes the cached non-draft diary count and
	// returns the stored value.
	RecomputeDiaryCount(ctx context.Context, id int64) (int, error)
	// Reorder assigns sort_order = position to each id, in one transaction.
	// It returns how many notebooks were updated.
	Reorder(ctx context.Context, ids []int64) (int64, error)
}

type DiaryRepository interface {
	Create(ctx context.Context, diary *model.Diary) (int64, error)
	Update(ctx context.Context, diary *model.Diary) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	DeleteDrafts(ctx context.Context, userID int64) (int64, error)

	GetByID(ctx context.Context, id int64) (*model.Diary, error)
	ListByUser(ctx context.Context, userID int64, includeDrafts bool) ([]model.Diary, error)
	ListByNotebook(ctx context.Context, notebookID int64) ([]model.Diary, error)
	ListDrafts(ctx context.Context, userID int64) ([]model.Diary, error)
	CountByUser(ctx context.Context, userID int64, includeDrafts bool) (int, error)

	// Search matches keyword within the owner's published diaries.
	Search(ctx context.Context, keyword string, scope model.SearchType, ownerID int64) ([]model.Diary, error)
	// SearchAll is Search across every author.
	SearchAll(ctx context.Context, keyword string, scope model.SearchType) ([]model.Diary, error)

	IncrementLikes(ctx context.Context, id int64) (int, error)
	IncrementViews(ctx context.Context, id int64) (int, error)
}

type FavoriteRepository interface {
	// Add is idempotent: it reports whether a new row was written, and
	// re-favoriting is not an error.
	Add(ctx context.Context, userID, diaryID int64) (bool, error)
	Remove(ctx context.Context, userID, diaryID int64) (int64, error)
	IsFavorite(ctx context.Context, userID, diaryID int64) (bool, error)
	Count(ctx context.Context, userID int64) (int, error)
	// ListDiaries returns the favorited diaries, most recently favorited first.
	ListDiaries(ctx context.Context, userID int64) ([]model.Diary, error)
}

type SearchHistoryRepository interface {
	Create(ctx context.Context, history *model.SearchHistory) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	DeleteByKeyword(ctx context.Context, keyword string, userID int64) (int64, error)
	Clear(ctx context.Context, userID int64) (int64, error)

	ListByUser(ctx context.Context, userID int64, limit int) ([]model.SearchHistory, error)
	Recent(ctx context.Context, userID int64) ([]model.SearchHistory, error)
	PopularKeywords(ctx context.Context, limit int) ([]string, error)
	Exists(ctx context.Context, keyword string, userID int64, searchType model.SearchType) (bool, error)
	KeywordExists(ctx context.Context, userID int64, keyword string) (bool, error)
}

// PasswordResetRepository holds at most one pending reset code per phone.
type PasswordResetRepository interface {
	// Save replaces any pending code for reset.Phone and zeroes its attempts.
	Save(ctx context.Context, reset *model.PasswordReset) error
	Get(ctx context.Context, phone string) (*model.PasswordReset, error)
	IncrementAttempts(ctx context.Context, phone string) (int, error)
	Delete(ctx context.Context, phone string) (int64, error)
}
