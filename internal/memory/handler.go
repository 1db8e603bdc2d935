package memory

import (
	"errors"
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

type refreshIndividualRequest struct {
	User1ID   string `json:"user1_id"`
	User1Name string `json:"user1_name"`
	User2ID   string `json:"user2_id"`
	User2Name string `json:"user2_name"`
}

type refreshGroupRequest struct {
	GroupID      string        `json:"group_id"`
	GroupName    string        `json:"group_name"`
	Participants []Participant `json:"participants"`
}

type searchIndividualRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
}

type searchGroupRequest struct {
	GroupID string `json:"group_id"`
	Query   string `json:"query"`
	Limit   int    `json:"limit"`
}

type refreshResponse struct {
	Upserted int `json:"upserted"`
}

func (h *Handler) RefreshIndividual(w http.ResponseWriter, r *http.Request) {
	var req refreshIndividualRequest
	if !respond.DecodeJSON(w, r, &req) {
		return
	}
	n, err := h.svc.RefreshIndividual(r.Context(),
		Participant{UserID: req.User1ID, Name: req.User1Name},
		Participant{UserID: req.User2ID, Name: req.User2Name},
	)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, refreshResponse{Upserted: n})
}

func (h *Handler) RefreshGroup(w http.ResponseWriter, r *http.Request) {
	var req refreshGroupRequest
	if !respond.DecodeJSON(w, r, &req) {
		return
	}
	n, err := h.svc.RefreshGroup(r.Context(), req.GroupID, req.GroupName, req.Participants)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, refreshResponse{Upserted: n})
}

func (h *Handler) SearchIndividual(w http.ResponseWriter, r *http.Request) {
	var req searchIndividualRequest
	if !respond.DecodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.SearchIndividual(r.Context(), req.UserID, req.Query, req.Limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) SearchGroup(w http.ResponseWriter, r *http.Request) {
	var req searchGroupRequest
	if !respond.DecodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.SearchGroup(r.Context(), req.GroupID, req.Query, req.Limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, ErrVectorStoreUnavailable):
		h.log.Error().Err(err).Msg("memory request failed")
		respond.WriteServiceUnavailable(w, err.Error())
	default:
		h.log.Error().Err(err).Msg("memory request failed")
		respond.WriteInternalError(w, "internal error")
	}
}
