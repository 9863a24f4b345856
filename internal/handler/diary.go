package handler

import (
	"log/slog"
	"net/http"

	"github.com/traildiary/traildiary/internal/model"
	"github.com/traildiary/traildiary/internal/service"
)

type DiaryHandler struct {
	journal *service.JournalService
	logger  *slog.Logger
}

func NewDiaryHandler(journal *service.JournalService, logger *slog.Logger) *DiaryHandler {
	return &DiaryHandler{journal: journal, logger: logger}
}

// diaryView adds the display fields a list screen needs to the stored
// diary. Favorite is only filled in on the single-diary endpoint.
type diaryView struct {
	model.Diary
	CategoryName string `json:"categoryName"`
	Summary      string `json:"summary"`
	Favorite     *bool  `json:"favorite,omitempty"`
}

func newDiaryView(d *model.Diary) diaryView {
	return diaryView{Diary: *d, CategoryName: d.CategoryName(), Summary: d.Summary()}
}

func newDiaryViews(diaries []model.Diary) []diaryView {
	out := make([]diaryView, 0, len(diaries))
	for i := range diaries {
		out = append(out, newDiaryView(&diaries[i]))
	}
	return out
}

// diaryRequest is the create/update body. Content may be sent whole or
// as paragraphs; paragraphs win when both are present.
type diaryRequest struct {
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	Paragraphs     []string `json:"paragraphs"`
	Category       string   `json:"category"`
	CoverImagePath string   `json:"coverImagePath"`
	Images         []string `json:"images"`
	NotebookID     *int64   `json:"notebookId"`
	IsDraft        bool     `json:"isDraft"`
}

func (req diaryRequest) input() service.DiaryInput {
	content := req.Content
	if len(req.Paragraphs) > 0 {
		content = model.JoinParagraphs(req.Paragraphs)
	}
	return service.DiaryInput{
		Title:          req.Title,
		Content:        content,
		Category:       req.Category,
		CoverImagePath: req.CoverImagePath,
		Images:         req.Images,
		NotebookID:     req.NotebookID,
		IsDraft:        req.IsDraft,
	}
}

// HandleList returns the caller's diaries, newest first.
//
// HTTP: GET /api/diaries?drafts=true
func (h *DiaryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	includeDrafts, err := queryBool(r, "drafts")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	diaries, err := h.journal.Diaries(r.Context(), userID, includeDrafts)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newDiaryViews(diaries))
}

// HTTP: POST /api/diaries → 201
func (h *DiaryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req diaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	d, err := h.journal.CreateDiary(r.Context(), userID, req.input())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newDiaryView(d))
}

// HandleGet returns one diary and counts the view.
//
// HTTP: GET /api/diaries/{id}
func (h *DiaryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	d, err := h.journal.Diary(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	fav, err := h.journal.IsFavorite(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	v := newDiaryView(d)
	v.Favorite = &fav
	writeJSON(w, http.StatusOK, v)
}

// HTTP: PUT /api/diaries/{id}
func (h *DiaryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req diaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	d, err := h.journal.UpdateDiary(r.Context(), userID, id, req.input())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newDiaryView(d))
}

// HTTP: DELETE /api/diaries/{id} → 204
func (h *DiaryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.journal.DeleteDiary(r.Context(), userID, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: GET /api/diaries/drafts
func (h *DiaryHandler) HandleDrafts(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	drafts, err := h.journal.Drafts(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newDiaryViews(drafts))
}

// HTTP: DELETE /api/diaries/drafts → {"deleted": n}
func (h *DiaryHandler) HandleDiscardDrafts(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	n, err := h.journal.DiscardDrafts(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// HTTP: POST /api/diaries/{id}/like → {"likeCount": n}
func (h *DiaryHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	n, err := h.journal.LikeDiary(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"likeCount": n})
}

// HandleFavorite is idempotent: 201 when newly favorited, 200 when it
// already was.
//
// HTTP: PUT /api/diaries/{id}/favorite
func (h *DiaryHandler) HandleFavorite(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	added, err := h.journal.AddFavorite(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]bool{"favorite": true})
}

// HTTP: DELETE /api/diaries/{id}/favorite → 204
func (h *DiaryHandler) HandleUnfavorite(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if _, err := h.journal.RemoveFavorite(r.Context(), userID, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFavorites lists favorited diaries, most recent favorite first.
//
// HTTP: GET /api/favorites
func (h *DiaryHandler) HandleFavorites(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	diaries, err := h.journal.Favorites(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newDiaryViews(diaries))
}

func (h *DiaryHandler) target(r *http.Request) (userID, id int64, err error) {
	if userID, err = currentUser(r); err != nil {
		return 0, 0, err
	}
	if id, err = pathID(r, "id"); err != nil {
		return 0, 0, err
	}
	return userID, id, nil
}
