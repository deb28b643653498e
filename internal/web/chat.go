package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Conversation endpoints. These are plain JSON CRUD over the chat store so
// web clients can keep model conversations server-side.

func (d Deps) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title          string   `json:"title"`
		ContextNoteIDs []string `json:"context_note_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	id, err := d.Service.Store().CreateConversation(r.Context(), req.Title, req.ContextNoteIDs)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (d Deps) handleListConversations(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := d.Service.Store().ListConversations(r.Context(), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (d Deps) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := d.Service.Store().GetConversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (d Deps) handleRenameConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	if err := d.Service.Store().UpdateConversationTitle(r.Context(), chi.URLParam(r, "id"), req.Title); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

func (d Deps) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := d.Service.Store().DeleteConversation(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (d Deps) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := d.Service.Store().GetConversation(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	messages, err := d.Service.Store().GetMessages(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (d Deps) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Role      string `json:"role"`
		Content   string `json:"content"`
		ToolCalls any    `json:"tool_calls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Role == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("role and content are required"))
		return
	}

	if _, err := d.Service.Store().GetConversation(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	msgID, err := d.Service.Store().AppendMessage(r.Context(), id, req.Role, req.Content, req.ToolCalls)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": msgID})
}
