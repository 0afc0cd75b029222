package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// RoomID names the hub room for one tournament.
func RoomID(tournamentID int) string {
	return fmt.Sprintf("tournament_%d", tournamentID)
}

// Hub fans tournament events out to the WebSocket clients watching each
// tournament. One hub per process; rooms are created and torn down as
// clients come and go.
type Hub struct {
	Register   chan *HubClient
	Unregister chan *HubClient

	mu     sync.RWMutex
	rooms  map[string]map[*HubClient]bool
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *HubClient),
		Unregister: make(chan *HubClient),
		rooms:      make(map[string]map[*HubClient]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*HubClient]bool)
			}
			h.rooms[client.Room][client] = true
			h.logger.Info("realtime client joined",
				slog.String("room", client.Room),
				slog.Int("room_size", len(h.rooms[client.Room])))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.Room]; ok {
				if _, present := clients[client]; present {
					client.closeSend()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.Room)
					}
					h.logger.Info("realtime client left",
						slog.String("room", client.Room),
						slog.Int("room_size", len(clients)))
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastEvent sends an event to every client in the tournament's room.
func (h *Hub) BroadcastEvent(ev Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to marshal event for broadcast",
			slog.String("type", string(ev.Type)), slog.Any("error", err))
		return
	}
	h.broadcastRaw(RoomID(ev.TournamentID), raw, nil)
}

// broadcastRaw delivers bytes to a room, optionally skipping the sender.
// Clients with a full send buffer are skipped rather than blocked on.
func (h *Hub) broadcastRaw(roomID string, raw []byte, except *HubClient) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[roomID]
	if !ok {
		return
	}
	for client := range clients {
		if client == except {
			continue
		}
		client.mu.Lock()
		if client.isClosed {
			client.mu.Unlock()
			continue
		}
		select {
		case client.send <- raw:
		default:
			h.logger.Warn("dropping event for slow realtime client",
				slog.String("room", roomID))
		}
		client.mu.Unlock()
	}
}

// HubClient is one WebSocket connection attached to a room.
type HubClient struct {
	Hub  *Hub
	Conn *websocket.Conn
	Room string

	send     chan []byte
	mu       sync.Mutex
	isClosed bool
}

func NewHubClient(hub *Hub, conn *websocket.Conn, room string) *HubClient {
	return &HubClient{
		Hub:  hub,
		Conn: conn,
		Room: room,
		send: make(chan []byte, 256),
	}
}

func (c *HubClient) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isClosed {
		close(c.send)
		c.isClosed = true
	}
}

// ReadPump relays events published by this client to the rest of its room.
// Messages that do not decode as events for the room's tournament are
// dropped. Blocks until the connection dies.
func (c *HubClient) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("realtime read error",
					slog.String("room", c.Room), slog.Any("error", err))
			}
			return
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil || RoomID(ev.TournamentID) != c.Room {
			c.Hub.logger.Warn("discarding malformed inbound event",
				slog.String("room", c.Room))
			continue
		}
		c.Hub.broadcastRaw(c.Room, raw, c)
	}
}

// WritePump drains the send buffer to the connection and keeps it alive with
// pings. Blocks until the hub closes the channel or a write fails.
func (c *HubClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case raw, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
