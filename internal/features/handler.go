package features

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"go-chat-memory/internal/respond"
)

type Handler struct {
	svc *Service
	log zerolog.Logger
}

func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type suggestRemindersRequest struct {
	Username      string `json:"username"`
	ContextWindow int    `json:"context_window"`
}

type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
}

// POST /api/features/summarize?username=
func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, h.svc.Summarize(r.Context(), r.URL.Query().Get("username")))
}

func (h *Handler) Prioritize(w http.ResponseWriter, r *http.Request) {
	var items []Item
	if !respond.DecodeJSON(w, r, &items) {
		return
	}
	respond.WriteJSON(w, http.StatusOK, h.svc.Prioritize(r.Context(), items))
}

func (h *Handler) Moderate(w http.ResponseWriter, r *http.Request) {
	var items []Item
	if !respond.DecodeJSON(w, r, &items) {
		return
	}
	respond.WriteJSON(w, http.StatusOK, h.svc.Moderate(r.Context(), items))
}

func (h *Handler) SmartReplies(w http.ResponseWriter, r *http.Request) {
	var items []Item
	if !respond.DecodeJSON(w, r, &items) {
		return
	}
	respond.WriteJSON(w, http.StatusOK, h.svc.SmartReplies(r.Context(), items))
}

func (h *Handler) ExtractTasks(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, h.svc.ExtractTasks(r.Context()))
}

// SuggestReminders accepts an empty body.
func (h *Handler) SuggestReminders(w http.ResponseWriter, r *http.Request) {
	var req suggestRemindersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.WriteBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, h.svc.SuggestReminders(r.Context(), req.Username, req.ContextWindow))
}

func (h *Handler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	var req ReminderRequest
	if !respond.DecodeJSON(w, r, &req) {
		return
	}
	reminder, err := h.svc.CreateReminder(req)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.WriteBadRequest(w, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("create reminder failed")
		respond.WriteInternalError(w, "internal error")
		return
	}
	respond.WriteJSON(w, http.StatusOK, reminder)
}

func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !respond.DecodeJSON(w, r, &req) {
		return
	}
	respond.WriteJSON(w, http.StatusOK, h.svc.Translate(r.Context(), req.Text, req.TargetLanguage))
}

func (h *Handler) TranslateBatch(w http.ResponseWriter, r *http.Request) {
	var items []TranslateItem
	if !respond.DecodeJSON(w, r, &items) {
		return
	}
	respond.WriteJSON(w, http.StatusOK, h.svc.TranslateBatch(r.Context(), items))
}
