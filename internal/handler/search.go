package handler

import (
	"log/slog"
	"net/http"

	"github.com/traildiary/traildiary/internal/apperror"
	"github.com/traildiary/traildiary/internal/model"
	"github.com/traildiary/traildiary/internal/service"
)

type SearchHandler struct {
	journal *service.JournalService
	logger  *slog.Logger
}

func NewSearchHandler(journal *service.JournalService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{journal: journal, logger: logger}
}

// HandleSearch searches diaries and records the query in the caller's
// history.
//
// HTTP: GET /api/search?q=lake&type=title&all=true
//
// type is general (default), author, title or category. all=true searches
// every author's published diaries instead of only the caller's.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	q := r.URL.Query()
	scope, ok := model.ParseSearchType(q.Get("type"))
	if !ok {
		writeError(w, r, h.logger, apperror.ValidationFailed("type", "type must be general, author, title or category"))
		return
	}
	all, err := queryBool(r, "all")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	diaries, err := h.journal.Search(r.Context(), userID, service.SearchInput{
		Keyword: q.Get("q"),
		Scope:   scope,
		All:     all,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newDiaryViews(diaries))
}

// HandleHistory lists recent searches.
//
// HTTP: GET /api/search/history?limit=20
func (h *SearchHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	history, err := h.journal.History(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// HandleForget removes one keyword from the history, or all of it when
// keyword is absent.
//
// HTTP: DELETE /api/search/history?keyword=lake → {"deleted": n}
func (h *SearchHandler) HandleForget(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	n, err := h.journal.ForgetSearch(r.Context(), userID, r.URL.Query().Get("keyword"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// HTTP: GET /api/search/popular?limit=10
func (h *SearchHandler) HandlePopular(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	keywords, err := h.journal.PopularKeywords(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if keywords == nil {
		keywords = []string{}
	}
	writeJSON(w, http.StatusOK, keywords)
}
