package session

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redmoonthebest/morozhenka/backend/internal/model/conversation"
	"github.com/redmoonthebest/morozhenka/backend/internal/service/collect"
	sessionsvc "github.com/redmoonthebest/morozhenka/backend/internal/service/session"
)

// Handler serves the session REST API.
type Handler struct {
	engine *collect.Engine
}

// NewHandler creates a session handler backed by the collection engine.
func NewHandler(engine *collect.Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes mounts the session endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.handleStart)
		r.Get("/{sessionID}", h.handleSnapshot)
		r.Delete("/{sessionID}", h.handleCancel)
		r.Post("/{sessionID}/messages", h.handleMessage)
		r.Post("/{sessionID}/restart", h.handleRestart)
		r.Get("/{sessionID}/transcript", h.handleTranscript)
	})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID   string `json:"sessionId"`
		DisplayName string `json:"displayName"`
		Locale      string `json:"locale"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	sessionID := payload.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	reply, err := h.engine.Start(r.Context(), sessionID, conversation.Identity{
		DisplayName: payload.DisplayName,
		Locale:      payload.Locale,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, collect.GenericFailureMessage)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"sessionId": sessionID,
		"reply":     reply,
	})
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if payload.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	reply, err := h.engine.HandleMessage(r.Context(), sessionID, payload.Text)
	if err != nil {
		if errors.Is(err, sessionsvc.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Printf("[handler] session=%s message failed: %v", sessionID, err)
		respondError(w, http.StatusInternalServerError, collect.GenericFailureMessage)
		return
	}

	complete := false
	if snap, err := h.engine.Snapshot(r.Context(), sessionID); err == nil {
		complete = snap.State == conversation.StateComplete
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"reply":    reply,
		"complete": complete,
	})
}

func (h *Handler) handleRestart(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		DisplayName string `json:"displayName"`
		Locale      string `json:"locale"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	replies, err := h.engine.Restart(r.Context(), sessionID, conversation.Identity{
		DisplayName: payload.DisplayName,
		Locale:      payload.Locale,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, collect.GenericFailureMessage)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"replies": replies})
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	reply := h.engine.Cancel(r.Context(), sessionID)
	respondJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	snap, err := h.engine.Snapshot(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	transcript, err := h.engine.Transcript(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": sessionID,
		"messages":  transcript,
	})
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
