package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/memotime/internal/model"
	"github.com/dukerupert/memotime/internal/store"
	"github.com/dukerupert/memotime/internal/websocket"
)

type NoteHandler struct {
	noteStore *store.NoteStore
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewNoteHandler(ns *store.NoteStore, hub *websocket.Hub, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{noteStore: ns, hub: hub, logger: logger}
}

type noteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func (req *noteRequest) validate() (string, bool) {
	if req.Title == nil {
		return "", false
	}
	title := strings.TrimSpace(*req.Title)
	return title, title != ""
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	title, ok := req.validate()
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "title is required")
		return
	}

	id, err := h.noteStore.Create(r.Context(), title, req.Content)
	if err != nil {
		h.logger.Error("failed to create note", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create note")
		return
	}

	h.hub.Publish(websocket.EntityNote, websocket.ActionCreated, id)

	writeJSON(w, http.StatusCreated, createdResponse{Message: "Note created successfully", ID: id})
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.noteStore.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list notes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notes")
		return
	}
	writeNotes(w, notes)
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}

	note, err := h.noteStore.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get note", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get note")
		return
	}
	if note == nil {
		writeError(w, http.StatusNotFound, "Note not found")
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Update reports success even when the id does not exist.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}

	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	title, ok := req.validate()
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "title is required")
		return
	}

	updated, err := h.noteStore.Update(r.Context(), id, title, req.Content)
	if err != nil {
		h.logger.Error("failed to update note", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update note")
		return
	}
	if updated {
		h.hub.Publish(websocket.EntityNote, websocket.ActionUpdated, id)
	} else {
		h.logger.Debug("update matched no note", "id", id)
	}

	writeMessage(w, http.StatusOK, "Note updated successfully")
}

// Delete reports success even when the id does not exist.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}

	deleted, err := h.noteStore.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete note", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete note")
		return
	}
	if deleted {
		h.hub.Publish(websocket.EntityNote, websocket.ActionDeleted, id)
	} else {
		h.logger.Debug("delete matched no note", "id", id)
	}

	writeMessage(w, http.StatusOK, "Note deleted successfully")
}

func (h *NoteHandler) Search(w http.ResponseWriter, r *http.Request) {
	title, err := requiredQuery(r, "title")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	notes, err := h.noteStore.SearchByTitle(r.Context(), title)
	if err != nil {
		h.logger.Error("failed to search notes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to search notes")
		return
	}
	writeNotes(w, notes)
}

func (h *NoteHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.noteStore.Count(r.Context())
	if err != nil {
		h.logger.Error("failed to count notes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to count notes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"total_notes": count})
}

func (h *NoteHandler) Recent(w http.ResponseWriter, r *http.Request) {
	notes, err := h.noteStore.Recent(r.Context(), store.RecentLimit)
	if err != nil {
		h.logger.Error("failed to list recent notes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list recent notes")
		return
	}
	writeNotes(w, notes)
}

// BulkDelete takes a bare JSON array of ids.
func (h *NoteHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	if err := decodeJSON(w, r, &ids); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "body must be a JSON array of integer ids")
		return
	}

	deleted, err := h.noteStore.BulkDelete(r.Context(), ids)
	if err != nil {
		h.logger.Error("failed to bulk delete notes", "count", len(ids), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete notes")
		return
	}
	if deleted > 0 {
		msg := websocket.NewMessage(websocket.EntityNote, websocket.ActionBulkDeleted, 0)
		msg.IDs = ids
		h.hub.Broadcast(msg)
	}

	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
		Deleted int64  `json:"deleted"`
	}{"Notes deleted successfully", deleted})
}

func writeNotes(w http.ResponseWriter, notes []model.Note) {
	if notes == nil {
		notes = []model.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}
