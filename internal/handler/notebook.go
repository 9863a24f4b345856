package handler

import (
	"log/slog"
	"net/http"

	"github.com/traildiary/traildiary/internal/service"
)

type NotebookHandler struct {
	journal *service.JournalService
	logger  *slog.Logger
}

func NewNotebookHandler(journal *service.JournalService, logger *slog.Logger) *NotebookHandler {
	return &NotebookHandler{journal: journal, logger: logger}
}

// HTTP: GET /api/notebooks
func (h *NotebookHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	notebooks, err := h.journal.Notebooks(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, notebooks)
}

type createNotebookRequest struct {
	Name  string `json:"name"`
	Cover string `json:"cover"`
}

// HTTP: POST /api/notebooks → 201
func (h *NotebookHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req createNotebookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	nb, err := h.journal.CreateNotebook(r.Context(), userID, req.Name, req.Cover)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, nb)
}

// HTTP: GET /api/notebooks/{id}
func (h *NotebookHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	nb, err := h.journal.Notebook(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nb)
}

// updateNotebookRequest uses pointers so an omitted field stays unchanged.
type updateNotebookRequest struct {
	Name      *string `json:"name"`
	Cover     *string `json:"cover"`
	SortOrder *int    `json:"sortOrder"`
}

// HTTP: PUT /api/notebooks/{id}
func (h *NotebookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req updateNotebookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	nb, err := h.journal.UpdateNotebook(r.Context(), userID, id, service.NotebookUpdate{
		Name:      req.Name,
		Cover:     req.Cover,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nb)
}

// HTTP: DELETE /api/notebooks/{id} → 204
func (h *NotebookHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.journal.DeleteNotebook(r.Context(), userID, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	IDs []int64 `json:"ids"`
}

// HTTP: PUT /api/notebooks/reorder → 204
func (h *NotebookHandler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.journal.ReorderNotebooks(r.Context(), userID, req.IDs); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: POST /api/notebooks/{id}/recount → {"diaryCount": n}
func (h *NotebookHandler) HandleRecount(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	n, err := h.journal.RecountNotebook(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"diaryCount": n})
}

// HTTP: GET /api/notebooks/{id}/diaries
func (h *NotebookHandler) HandleDiaries(w http.ResponseWriter, r *http.Request) {
	userID, id, err := h.target(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	diaries, err := h.journal.NotebookDiaries(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newDiaryViews(diaries))
}

func (h *NotebookHandler) target(r *http.Request) (userID, id int64, err error) {
	if userID, err = currentUser(r); err != nil {
		return 0, 0, err
	}
	if id, err = pathID(r, "id"); err != nil {
		return 0, 0, err
	}
	return userID, id, nil
}
