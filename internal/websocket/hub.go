package websocket

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub maintains the set of connected board clients and fans task changes out
// to the clients watching the affected project. All maps are owned by the
// Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Project IDs mapped to the clients subscribed to them.
	subscriptions map[string]map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Messages addressed to a single project.
	publish chan projectMessage

	done     chan struct{}
	stopOnce sync.Once
}

type projectMessage struct {
	projectID string
	data      []byte
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		publish:       make(chan projectMessage, 256),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			log.Info().Msg("Live board hub stopped")
			return
		case client := <-h.register:
			h.clients[client] = true
			if h.subscriptions[client.ProjectID] == nil {
				h.subscriptions[client.ProjectID] = make(map[*Client]bool)
			}
			h.subscriptions[client.ProjectID][client] = true
			log.Info().Str("project_id", client.ProjectID).Int("total_clients", len(h.clients)).Msg("Client connected")
		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				log.Info().Str("project_id", client.ProjectID).Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case msg := <-h.publish:
			for client := range h.subscriptions[msg.projectID] {
				select {
				case client.Send <- msg.data:
				default:
					log.Warn().Str("project_id", msg.projectID).Str("user_id", client.UserID).Msg("Dropping slow websocket client")
					h.drop(client)
				}
			}
		}
	}
}

// Stop terminates Run and closes every client's send channel.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds a client to the hub. It is a no-op once the hub has stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// NotifyProject sends an action to every client subscribed to projectID.
func (h *Hub) NotifyProject(projectID, action string, payload any) {
	data, err := NewMessage(action, payload)
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode websocket message")
		return
	}
	select {
	case h.publish <- projectMessage{projectID: projectID, data: data}:
	case <-h.done:
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	if subs, ok := h.subscriptions[client.ProjectID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, client.ProjectID)
		}
	}
	close(client.Send)
}
