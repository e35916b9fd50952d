package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"fleettrack/internal/domain"
	"fleettrack/internal/hub"
)

// LocationReader supplies the last-known position sent as a snapshot
// when a client subscribes to a vehicle room.
type LocationReader interface {
	GetVehicleLocation(ctx context.Context, tenantID, vehicleID string) (*domain.TrackingPoint, error)
}

type WSHandler struct {
	hub       *hub.Hub
	locations LocationReader
	logger    *slog.Logger
}

func NewWSHandler(h *hub.Hub, locations LocationReader, logger *slog.Logger) *WSHandler {
	return &WSHandler{hub: h, locations: locations, logger: logger}
}

type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SubscribePayload struct {
	Rooms []string `json:"rooms"`
}

type UnsubscribePayload struct {
	Rooms []string `json:"rooms"`
}

type SubscribedMessage struct {
	Type  string   `json:"type"`
	Rooms []string `json:"rooms"`
}

type SnapshotMessage struct {
	Type    string                `json:"type"`
	Room    string                `json:"room"`
	Payload *domain.TrackingPoint `json:"payload"`
}

type PongMessage struct {
	Type string `json:"type"`
}

func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := hub.NewClient(clientID, 256)

	h.hub.Register(client)
	ServerStats.IncWSConnections()
	defer ServerStats.DecWSConnections()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.writeLoop(ctx, conn, client)

	h.readLoop(ctx, conn, client)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				h.logger.Debug("websocket read error", "client_id", client.ID, "error", err)
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}
		ServerStats.IncWSMessagesIn()

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("invalid message format", "client_id", client.ID, "error", err)
			continue
		}

		switch msg.Type {
		case "subscribe":
			var payload SubscribePayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				continue
			}
			if len(payload.Rooms) > 0 {
				h.hub.Subscribe(client, payload.Rooms)
				h.sendSubscribed(client, payload.Rooms)
				h.sendSnapshots(ctx, client, payload.Rooms)
			}

		case "unsubscribe":
			var payload UnsubscribePayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				continue
			}
			if len(payload.Rooms) > 0 {
				h.hub.Unsubscribe(client, payload.Rooms)
			}

		case "ping":
			h.sendPong(client)
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
			ServerStats.IncWSMessagesOut()

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) sendSubscribed(client *hub.Client, rooms []string) {
	data, err := json.Marshal(SubscribedMessage{Type: "subscribed", Rooms: rooms})
	if err != nil {
		return
	}

	select {
	case client.Send <- data:
	default:
	}
}

// sendSnapshots pushes the last-known position for each vehicle room so
// a fresh subscriber does not wait for the next live update.
func (h *WSHandler) sendSnapshots(ctx context.Context, client *hub.Client, rooms []string) {
	for _, room := range rooms {
		parts := strings.Split(room, ":")
		if len(parts) != 3 || parts[0] != "vehicle" {
			continue
		}

		point, err := h.locations.GetVehicleLocation(ctx, parts[1], parts[2])
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				h.logger.Debug("snapshot lookup failed", "room", room, "error", err)
			}
			continue
		}

		data, err := json.Marshal(SnapshotMessage{Type: "snapshot", Room: room, Payload: point})
		if err != nil {
			continue
		}

		select {
		case client.Send <- data:
		default:
			h.logger.Debug("failed to send snapshot, buffer full", "client_id", client.ID)
		}
	}
}

func (h *WSHandler) sendPong(client *hub.Client) {
	msg := PongMessage{Type: "pong"}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case client.Send <- data:
	default:
	}
}
