package chat

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"go-chat-memory/internal/respond"
)

// DefaultUsername is used when /ws is opened without a username.
const DefaultUsername = "Anonymous"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for now (Dev mode)
	},
}

type Handler struct {
	hub    *Hub
	logger zerolog.Logger
}

func NewHandler(hub *Hub, logger zerolog.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// messageView is the REST shape of a log entry.
type messageView struct {
	MessageID string `json:"message_id"`
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	AIEnabled bool   `json:"ai_enabled"`
}

func toViews(events []ChatEvent) []messageView {
	out := make([]messageView, 0, len(events))
	for _, ev := range events {
		out = append(out, messageView{
			MessageID: ev.ID,
			Sender:    ev.Sender,
			Message:   ev.Body,
			Timestamp: ev.Timestamp(),
			AIEnabled: ev.AIEnabled,
		})
	}
	return out
}

// ServeWs upgrades the request and starts the client pumps.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		username = DefaultUsername
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, h.logger)
	client.sessionID = h.hub.Join(client, username)

	go client.WritePump()
	go client.ReadPump()
}

// GetMessages returns the unread messages for ?username=, or the full log.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	if username := r.URL.Query().Get("username"); username != "" {
		respond.WriteJSON(w, http.StatusOK, map[string]any{
			"messages":     toViews(h.hub.Log.Unread(username)),
			"unread_count": h.hub.Log.UnreadCount(username),
		})
		return
	}
	all := h.hub.Log.All()
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"messages":    toViews(all),
		"total_count": len(all),
	})
}

// MarkRead moves ?username='s cursor to the end of the log.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		respond.WriteBadRequest(w, "username is required")
		return
	}
	h.hub.Log.MarkRead(username)
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"username":     username,
		"unread_count": 0,
	})
}

type consentRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *Handler) GetConsent(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"ai_enabled": h.hub.Log.Consent(),
		"history":    h.hub.Log.ConsentHistory(),
	})
}

func (h *Handler) SetConsent(w http.ResponseWriter, r *http.Request) {
	var req consentRequest
	if !respond.DecodeJSON(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		respond.WriteBadRequest(w, "enabled is required")
		return
	}
	t := h.hub.SetConsent(*req.Enabled)
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"ai_enabled": t.Enabled,
		"timestamp":  t.At.Format(TimestampLayout),
	})
}

// Health reports liveness and the live session count.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"online_users": h.hub.Registry.Count(),
		"messages":     h.hub.Log.Len(),
	})
}
