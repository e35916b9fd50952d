package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// VehicleRoom is the room a dashboard joins to follow a single vehicle.
func VehicleRoom(tenantID, vehicleID string) string {
	return fmt.Sprintf("vehicle:%s:%s", tenantID, vehicleID)
}

// FleetRoom carries fleet-wide updates for a tenant.
func FleetRoom(tenantID string) string {
	return fmt.Sprintf("fleet:%s", tenantID)
}

// Event is a typed message fanned out to room subscribers.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type envelope struct {
	room string // empty means every connected client
	data []byte
}

type Client struct {
	ID    string
	Send  chan []byte
	rooms map[string]struct{}
	mu    sync.RWMutex
}

func NewClient(id string, bufferSize int) *Client {
	return &Client{
		ID:    id,
		Send:  make(chan []byte, bufferSize),
		rooms: make(map[string]struct{}),
	}
}

func (c *Client) AddRooms(rooms []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range rooms {
		c.rooms[r] = struct{}{}
	}
}

func (c *Client) RemoveRooms(rooms []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range rooms {
		delete(c.rooms, r)
	}
}

func (c *Client) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// Hub fans live tracking events out to websocket clients by named room.
// Delivery is best-effort: slow clients drop messages rather than block
// the live path.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	roomClients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]struct{}),
		roomClients: make(map[string]map[*Client]struct{}),
		register:    make(chan *Client, 16),
		unregister:  make(chan *Client, 16),
		broadcast:   make(chan envelope, 256),
		logger:      logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.ID)

		case client := <-h.unregister:
			h.removeClient(client)

		case env := <-h.broadcast:
			h.fanout(env)
		}
	}
}

func (h *Hub) Subscribe(client *Client, rooms []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.AddRooms(rooms)

	for _, room := range rooms {
		if h.roomClients[room] == nil {
			h.roomClients[room] = make(map[*Client]struct{})
		}
		h.roomClients[room][client] = struct{}{}
	}
}

func (h *Hub) Unsubscribe(client *Client, rooms []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.RemoveRooms(rooms)

	for _, room := range rooms {
		if h.roomClients[room] != nil {
			delete(h.roomClients[room], client)
			if len(h.roomClients[room]) == 0 {
				delete(h.roomClients, room)
			}
		}
	}
}

// SendToRoom delivers an event to every client subscribed to the room.
func (h *Hub) SendToRoom(room string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("event marshal failed", "type", event.Type, "error", err)
		return
	}

	select {
	case h.broadcast <- envelope{room: room, data: data}:
	default:
		h.logger.Warn("broadcast channel full, dropping event", "room", room, "type", event.Type)
	}
}

// Broadcast delivers an event to every connected client.
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("event marshal failed", "type", event.Type, "error", err)
		return
	}

	select {
	case h.broadcast <- envelope{data: data}:
	default:
		h.logger.Warn("broadcast channel full, dropping event", "type", event.Type)
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) fanout(env envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if env.room == "" {
		for client := range h.clients {
			h.deliver(client, env.data)
		}
		return
	}

	for client := range h.roomClients[env.room] {
		h.deliver(client, env.data)
	}
}

func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.logger.Debug("client send buffer full", "client_id", client.ID)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	for _, room := range client.Rooms() {
		if h.roomClients[room] != nil {
			delete(h.roomClients[room], client)
			if len(h.roomClients[room]) == 0 {
				delete(h.roomClients, room)
			}
		}
	}

	delete(h.clients, client)
	close(client.Send)
	h.logger.Debug("client unregistered", "client_id", client.ID)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]struct{})
	h.roomClients = make(map[string]map[*Client]struct{})
}
