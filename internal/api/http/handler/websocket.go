package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"location-tracking-core/internal/infrastructure/redis"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsEvent is the envelope pushed to websocket clients. Type is "location"
// for position updates and "geofence_alert" for boundary crossings.
type wsEvent struct {
	Type     string      `json:"type"`
	DeviceID string      `json:"device_id"`
	Payload  interface{} `json:"payload"`
}

type WebSocketHandler struct {
	clients    map[*Client]bool
	broadcast  chan *wsEvent
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

type Client struct {
	conn      *websocket.Conn
	send      chan *wsEvent
	deviceIds map[string]bool
}

func NewWebSocketHandler() *WebSocketHandler {
	h := &WebSocketHandler{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *wsEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
	go h.run()
	return h
}

// Start wires the hub to the pubsub bus so every accepted sample and every
// geofence crossing reaches subscribed clients.
func (h *WebSocketHandler) Start(ctx context.Context, pubsub *redis.PubSub) error {
	if pubsub == nil {
		return nil
	}

	err := pubsub.SubscribeLocationUpdates(ctx, func(update *redis.LocationUpdate) {
		h.Broadcast(&wsEvent{
			Type:     "location",
			DeviceID: update.DeviceID,
			Payload:  update,
		})
	})
	if err != nil {
		return err
	}

	return pubsub.SubscribeGeofenceAlerts(ctx, func(alert *redis.GeofenceAlert) {
		h.Broadcast(&wsEvent{
			Type:     "geofence_alert",
			DeviceID: alert.DeviceID,
			Payload:  alert,
		})
	})
}

func (h *WebSocketHandler) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("WebSocket client connected: %v", client.conn.RemoteAddr())
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("WebSocket client disconnected: %v", client.conn.RemoteAddr())

		case e := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				if len(client.deviceIds) > 0 {
					if !client.deviceIds[e.DeviceID] {
						continue
					}
				}

				select {
				case client.send <- e:
				default:
					h.mu.RUnlock()
					h.mu.Lock()
					close(client.send)
					delete(h.clients, client)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	deviceIds := make(map[string]bool)
	for _, id := range c.QueryArray("device_id") {
		if id != "" {
			deviceIds[id] = true
		}
	}

	client := &Client{
		conn:      conn,
		send:      make(chan *wsEvent, 256),
		deviceIds: deviceIds,
	}
	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (h *WebSocketHandler) Broadcast(e *wsEvent) {
	select {
	case h.broadcast <- e:
	default:
		log.Println("Broadcast channel full, dropping event")
	}
}

func (c *Client) readPump(h *WebSocketHandler) {
	defer func() {
		h.unregister <- c
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err == nil {
			if action, ok := msg["action"].(string); ok {
				switch action {
				case "subscribe":
					if deviceID, ok := msg["device_id"].(string); ok && deviceID != "" {
						c.deviceIds[deviceID] = true
						log.Printf("Client subscribed to device: %s", deviceID)
					}
				case "unsubscribe":
					if deviceID, ok := msg["device_id"].(string); ok && deviceID != "" {
						delete(c.deviceIds, deviceID)
						log.Printf("Client unsubscribed from device: %s", deviceID)
					}
				}
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case e, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			payload, err := json.Marshal(e)
			if err != nil {
				w.Close()
				continue
			}

			w.Write(payload)

			length := len(c.send)
			for i := 0; i < length; i++ {
				_, _ = w.Write([]byte{'\n'})
				e := <-c.send
				data, err := json.Marshal(e)
				if err != nil {
					continue
				}
				_, _ = w.Write(data)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
