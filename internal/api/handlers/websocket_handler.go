package handlers

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/isdelr/taskboard-be/internal/services"
	ws "github.com/isdelr/taskboard-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades guarded requests into live board subscriptions.
type WebSocketHandler struct {
	hub      *ws.Hub
	projects services.ProjectServiceProvider
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. Browser upgrades are
// accepted only from allowedOrigins; "*" allows any origin.
func NewWebSocketHandler(hub *ws.Hub, projects services.ProjectServiceProvider, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		projects: projects,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Serve subscribes the caller to one of their projects. Ownership is checked
// before the upgrade so failures are plain JSON responses.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	project, err := h.projects.GetProject(r.Context(), id.UserID, chi.URLParam(r, "projectId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("project_id", project.ID).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, project.ID, id.UserID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
