package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/traildiary/traildiary/internal/apperror"
	"github.com/traildiary/traildiary/internal/model"
	"github.com/traildiary/traildiary/internal/repository"
)

// JournalService manages notebooks, diaries, favorites and search for a
// signed-in user. Every method takes the acting user's id and enforces
// ownership: touching someone else's notebook or diary is Forbidden, and
// someone else's draft does not exist.
type JournalService struct {
	notebooks repository.NotebookRepository
	diaries   repository.DiaryRepository
	favorites repository.FavoriteRepository
	history   repository.SearchHistoryRepository
	logger    *slog.Logger
}

func NewJournalService(
	notebooks repository.NotebookRepository,
	diaries repository.DiaryRepository,
	favorites repository.FavoriteRepository,
	history repository.SearchHistoryRepository,
	logger *slog.Logger,
) *JournalService {
	return &JournalService{
		notebooks: notebooks,
		diaries:   diaries,
		favorites: favorites,
		history:   history,
		logger:    logger,
	}
}

// =========================================================================
// NOTEBOOKS
// =========================================================================

func (s *JournalService) CreateNotebook(ctx context.Context, userID int64, name, cover string) (*model.Notebook, error) {
	name = strings.TrimSpace(name)
	if err := validateNotebookName(name); err != nil {
		return nil, err
	}
	if err := validateCover(cover); err != nil {
		return nil, err
	}
	if err := s.checkNotebookName(ctx, userID, name); err != nil {
		return nil, err
	}

	id, err := s.notebooks.Create(ctx, &model.Notebook{Name: name, Cover: cover, UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("service/journal: creating notebook: %w", err)
	}
	s.logger.InfoContext(ctx, "notebook created", slog.Int64("notebookID", id), slog.Int64("userID", userID))
	return s.notebooks.GetByID(ctx, id)
}

func (s *JournalService) checkNotebookName(ctx context.Context, userID int64, name string) error {
	taken, err := s.notebooks.NameExists(ctx, name, userID)
	if err != nil {
		return fmt.Errorf("service/journal: checking notebook name: %w", err)
	}
	if taken {
		return apperror.Conflict("notebook", "name", name)
	}
	return nil
}

// NotebookUpdate changes only the fields that are set.
type NotebookUpdate struct {
	Name      *string
	Cover     *string
	SortOrder *int
}

func (s *JournalService) UpdateNotebook(ctx context.Context, userID, id int64, in NotebookUpdate) (*model.Notebook, error) {
	nb, err := s.ownedNotebook(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validateNotebookName(name); err != nil {
			return nil, err
		}
		if name != nb.Name {
			if err := s.checkNotebookName(ctx, userID, name); err != nil {
				return nil, err
			}
		}
		nb.Name = name
	}
	if in.Cover != nil {
		if err := validateCover(*in.Cover); err != nil {
			return nil, err
		}
		nb.Cover = *in.Cover
	}
	if in.SortOrder != nil {
		nb.SortOrder = *in.SortOrder
	}

	n, err := s.notebooks.Update(ctx, nb)
	if err != nil {
		return nil, fmt.Errorf("service/journal: updating notebook %d: %w", id, err)
	}
	if n == 0 {
		return nil, apperror.NotFound("notebook", id)
	}
	return s.notebooks.GetByID(ctx, id)
}

func (s *JournalService) Notebook(ctx context.Context, userID, id int64) (*model.Notebook, error) {
	return s.ownedNotebook(ctx, userID, id)
}

func (s *JournalService) Notebooks(ctx context.Context, userID int64) ([]model.Notebook, error) {
	return s.notebooks.ListByUser(ctx, userID)
}

// DeleteNotebook removes the notebook. Its diaries stay, unfiled.
func (s *JournalService) DeleteNotebook(ctx context.Context, userID, id int64) error {
	if _, err := s.ownedNotebook(ctx, userID, id); err != nil {
		return err
	}
	if _, err := s.notebooks.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/journal: deleting notebook %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "notebook deleted", slog.Int64("notebookID", id), slog.Int64("userID", userID))
	return nil
}

// ReorderNotebooks puts the caller's notebooks in the order of ids.
func (s *JournalService) ReorderNotebooks(ctx context.Context, userID int64, ids []int64) error {
	if len(ids) == 0 {
		return apperror.ValidationFailed("ids", "at least one notebook id is required")
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return apperror.ValidationFailed("ids", fmt.Sprintf("notebook %d listed twice", id))
		}
		seen[id] = true
		if _, err := s.ownedNotebook(ctx, userID, id); err != nil {
			return err
		}
	}
	if _, err := s.notebooks.Reorder(ctx, ids); err != nil {
		return fmt.Errorf("service/journal: %w", err)
	}
	return nil
}

// RecountNotebook refreshes the cached diary count and returns it.
func (s *JournalService) RecountNotebook(ctx context.Context, userID, id int64) (int, error) {
	if _, err := s.ownedNotebook(ctx, userID, id); err != nil {
		return 0, err
	}
	return s.notebooks.RecomputeDiaryCount(ctx, id)
}

// NotebookDiaries lists the published diaries filed in the notebook.
func (s *JournalService) NotebookDiaries(ctx context.Context, userID, id int64) ([]model.Diary, error) {
	if _, err := s.ownedNotebook(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.diaries.ListByNotebook(ctx, id)
}

func (s *JournalService) ownedNotebook(ctx context.Context, userID, id int64) (*model.Notebook, error) {
	nb, err := s.notebooks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if nb.UserID != userID {
		return nil, apperror.Forbidden("notebook belongs to another user")
	}
	return nb, nil
}

// refreshCounts recomputes each distinct notebook in ids. A failure leaves
// a stale cache, which the recount endpoint repairs, so it is logged and
// not returned.
func (s *JournalService) refreshCounts(ctx context.Context, ids ...*int64) {
	done := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id == nil || done[*id] {
			continue
		}
		done[*id] = true
		if _, err := s.notebooks.RecomputeDiaryCount(ctx, *id); err != nil && !errors.Is(err, apperror.ErrNotFound) {
			s.logger.WarnContext(ctx, "diary count not refreshed",
				slog.Int64("notebookID", *id),
				slog.String("error", err.Error()),
			)
		}
	}
}

// =========================================================================
// DIARIES
// =========================================================================

// DiaryInput is the writable part of a diary. Category accepts a code
// ("4") or a display name ("美食之旅").
type DiaryInput struct {
	Title          string
	Content        string
	Category       string
	CoverImagePath string
	Images         []string
	NotebookID     *int64
	IsDraft        bool
}

func (s *JournalService) CreateDiary(ctx context.Context, userID int64, in DiaryInput) (*model.Diary, error) {
	if err := validateDiary(&in); err != nil {
		return nil, err
	}
	if in.NotebookID != nil {
		if _, err := s.ownedNotebook(ctx, userID, *in.NotebookID); err != nil {
			return nil, err
		}
	}

	id, err := s.diaries.Create(ctx, &model.Diary{
		Title:          in.Title,
		Content:        in.Content,
		Category:       in.Category,
		AuthorID:       userID,
		CoverImagePath: in.CoverImagePath,
		Images:         in.Images,
		NotebookID:     in.NotebookID,
		IsDraft:        in.IsDraft,
	})
	if err != nil {
		return nil, fmt.Errorf("service/journal: creating diary: %w", err)
	}
	s.refreshCounts(ctx, in.NotebookID)

	s.logger.InfoContext(ctx, "diary created",
		slog.Int64("diaryID", id),
		slog.Int64("userID", userID),
		slog.Bool("draft", in.IsDraft),
	)
	return s.diaries.GetByID(ctx, id)
}

// UpdateDiary replaces the diary's content. Moving it between notebooks or
// in and out of draft refreshes both notebooks' counts.
func (s *JournalService) UpdateDiary(ctx context.Context, userID, id int64, in DiaryInput) (*model.Diary, error) {
	d, err := s.ownedDiary(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := validateDiary(&in); err != nil {
		return nil, err
	}
	if in.NotebookID != nil && !d.InNotebook(*in.NotebookID) {
		if _, err := s.ownedNotebook(ctx, userID, *in.NotebookID); err != nil {
			return nil, err
		}
	}

	previous := d.NotebookID
	d.Title = in.Title
	d.Content = in.Content
	d.Category = in.Category
	d.CoverImagePath = in.CoverImagePath
	d.Images = in.Images
	d.NotebookID = in.NotebookID
	d.IsDraft = in.IsDraft

	n, err := s.diaries.Update(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("service/journal: updating diary %d: %w", id, err)
	}
	if n == 0 {
		return nil, apperror.NotFound("diary", id)
	}
	s.refreshCounts(ctx, previous, in.NotebookID)
	return s.diaries.GetByID(ctx, id)
}

// Diary returns a diary for reading and counts the view. Other users'
// drafts are reported as not found.
func (s *JournalService) Diary(ctx context.Context, userID, id int64) (*model.Diary, error) {
	d, err := s.visibleDiary(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	views, err := s.diaries.IncrementViews(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/journal: counting view: %w", err)
	}
	d.ViewCount = views
	return d, nil
}

// LikeDiary adds one like and returns the new total.
func (s *JournalService) LikeDiary(ctx context.Context, userID, id int64) (int, error) {
	if _, err := s.visibleDiary(ctx, userID, id); err != nil {
		return 0, err
	}
	return s.diaries.IncrementLikes(ctx, id)
}

func (s *JournalService) DeleteDiary(ctx context.Context, userID, id int64) error {
	d, err := s.ownedDiary(ctx, userID, id)
	if err != nil {
		return err
	}
	if _, err := s.diaries.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/journal: deleting diary %d: %w", id, err)
	}
	s.refreshCounts(ctx, d.NotebookID)
	return nil
}

func (s *JournalService) Diaries(ctx context.Context, userID int64, includeDrafts bool) ([]model.Diary, error) {
	return s.diaries.ListByUser(ctx, userID, includeDrafts)
}

func (s *JournalService) Drafts(ctx context.Context, userID int64) ([]model.Diary, error) {
	return s.diaries.ListDrafts(ctx, userID)
}

// DiscardDrafts deletes every draft of the user. Drafts never count toward
// a notebook, so no recount is needed.
func (s *JournalService) DiscardDrafts(ctx context.Context, userID int64) (int64, error) {
	return s.diaries.DeleteDrafts(ctx, userID)
}

// DiaryStats is the "my page" summary.
type DiaryStats struct {
	Published int `json:"published"`
	Total     int `json:"total"`
	Favorites int `json:"favorites"`
	Notebooks int `json:"notebooks"`
}

func (s *JournalService) Stats(ctx context.Context, userID int64) (*DiaryStats, error) {
	var st DiaryStats
	var err error
	if st.Published, err = s.diaries.CountByUser(ctx, userID, false); err != nil {
		return nil, err
	}
	if st.Total, err = s.diaries.CountByUser(ctx, userID, true); err != nil {
		return nil, err
	}
	if st.Favorites, err = s.favorites.Count(ctx, userID); err != nil {
		return nil, err
	}
	if st.Notebooks, err = s.notebooks.CountByUser(ctx, userID); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *JournalService) ownedDiary(ctx context.Context, userID, id int64) (*model.Diary, error) {
	d, err := s.diaries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.AuthorID != userID {
		if d.IsDraft {
			return nil, apperror.NotFound("diary", id)
		}
		return nil, apperror.Forbidden("diary belongs to another user")
	}
	return d, nil
}

func (s *JournalService) visibleDiary(ctx context.Context, userID, id int64) (*model.Diary, error) {
	d, err := s.diaries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.IsDraft && d.AuthorID != userID {
		return nil, apperror.NotFound("diary", id)
	}
	return d, nil
}

// =========================================================================
// FAVORITES
// =========================================================================

// AddFavorite reports whether the diary was newly favorited; favoriting
// twice is not an error.
func (s *JournalService) AddFavorite(ctx context.Context, userID, diaryID int64) (bool, error) {
	if _, err := s.visibleDiary(ctx, userID, diaryID); err != nil {
		return false, err
	}
	return s.favorites.Add(ctx, userID, diaryID)
}

// RemoveFavorite reports whether a favorite was removed.
func (s *JournalService) RemoveFavorite(ctx context.Context, userID, diaryID int64) (bool, error) {
	n, err := s.favorites.Remove(ctx, userID, diaryID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *JournalService) IsFavorite(ctx context.Context, userID, diaryID int64) (bool, error) {
	return s.favorites.IsFavorite(ctx, userID, diaryID)
}

func (s *JournalService) Favorites(ctx context.Context, userID int64) ([]model.Diary, error) {
	return s.favorites.ListDiaries(ctx, userID)
}

// =========================================================================
// SEARCH
// =========================================================================

// SearchInput describes one search. All widens the search from the
// caller's own diaries to every author's published diaries.
type SearchInput struct {
	Keyword string
	Scope   model.SearchType
	All     bool
}

// Search runs the query and records it in the caller's history, unless the
// same keyword and scope are already there.
func (s *JournalService) Search(ctx context.Context, userID int64, in SearchInput) ([]model.Diary, error) {
	keyword := strings.TrimSpace(in.Keyword)
	if keyword == "" {
		return nil, apperror.ValidationFailed("keyword", "search keyword is required")
	}
	if !in.Scope.Valid() {
		return nil, apperror.ValidationFailed("type", fmt.Sprintf("unknown search type %d", in.Scope))
	}

	var (
		results []model.Diary
		err     error
	)
	if in.All {
		results, err = s.diaries.SearchAll(ctx, keyword, in.Scope)
	} else {
		results, err = s.diaries.Search(ctx, keyword, in.Scope, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("service/journal: searching %q: %w", keyword, err)
	}

	s.record(ctx, userID, keyword, in.Scope, len(results))
	return results, nil
}

// record saves a history row. The search already succeeded, so a failure
// here is logged only.
func (s *JournalService) record(ctx context.Context, userID int64, keyword string, scope model.SearchType, hits int) {
	exists, err := s.history.Exists(ctx, keyword, userID, scope)
	if err == nil && !exists {
		_, err = s.history.Create(ctx, &model.SearchHistory{
			UserID:     userID,
			Keyword:    keyword,
			SearchType: scope,
			Result:     strconv.Itoa(hits),
		})
	}
	if err != nil {
		s.logger.WarnContext(ctx, "search history not recorded",
			slog.Int64("userID", userID),
			slog.String("keyword", keyword),
			slog.String("error", err.Error()),
		)
	}
}

// History returns the caller's searches, newest first. limit <= 0 means
// the recent list.
func (s *JournalService) History(ctx context.Context, userID int64, limit int) ([]model.SearchHistory, error) {
	if limit <= 0 {
		return s.history.Recent(ctx, userID)
	}
	return s.history.ListByUser(ctx, userID, limit)
}

// ForgetSearch drops every history row for keyword; an empty keyword
// clears the whole history. It returns how many rows went.
func (s *JournalService) ForgetSearch(ctx context.Context, userID int64, keyword string) (int64, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return s.history.Clear(ctx, userID)
	}
	return s.history.DeleteByKeyword(ctx, keyword, userID)
}

func (s *JournalService) PopularKeywords(ctx context.Context, limit int) ([]string, error) {
	return s.history.PopularKeywords(ctx, limit)
}
