// internal/server/handlers/websocket.go

package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"

	"geointel/internal/domain/intel"
)

// EventSource delivers raw event payloads published under a subject pattern
type EventSource interface {
	SubscribeEvents(subject string, fn func(data []byte)) (unsubscribe func(), err error)
}

// NATSEvents adapts a NATS connection to EventSource
type NATSEvents struct {
	Conn *nats.Conn
}

// SubscribeEvents implements EventSource
func (n NATSEvents) SubscribeEvents(subject string, fn func([]byte)) (func(), error) {
	sub, err := n.Conn.Subscribe(subject, func(msg *nats.Msg) {
		fn(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64

	// Outbound messages buffered per client before it is dropped as too slow
	SendBuffer int
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 64 * 1024,
		SendBuffer:     1024,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// origin policy is enforced by the CORS middleware
		return true
	},
}

// clientCommand is a message sent by the dashboard
type clientCommand struct {
	Type     string          `json:"type"`
	Criteria *intel.Criteria `json:"criteria,omitempty"`
	Source   string          `json:"source,omitempty"`
	Enabled  *bool           `json:"enabled,omitempty"`
}

// snapshot is the first message a client receives
type snapshot struct {
	Type     string               `json:"type"`
	Time     time.Time            `json:"time"`
	Sources  []intel.SourceStatus `json:"sources"`
	Entities []intel.GeoEntity    `json:"entities"`
	Trails   []intel.TrailSegment `json:"trails"`
	Criteria intel.Criteria       `json:"criteria"`
	Metrics  intel.Metrics        `json:"metrics"`
}

// liveClient represents a connected dashboard
type liveClient struct {
	conn        *websocket.Conn
	send        chan []byte
	done        chan struct{}
	once        sync.Once
	unsubscribe func()
	engine      intel.Engine
	config      WebSocketConfig
	log         *slog.Logger

	// events received before the snapshot was queued
	mu       sync.Mutex
	pending  [][]byte
	overflow bool
	live     bool
}

// IntelWebSocketHandler streams engine events to dashboard clients. Each
// client first receives a snapshot, then every event published under
// <topic>.>. Clients may send criteria and source toggle commands.
func IntelWebSocketHandler(engine intel.Engine, events EventSource, topic string, config WebSocketConfig, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Upgrade HTTP connection to WebSocket
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("ws_upgrade_failed", "error", err)
			return
		}

		client := &liveClient{
			conn:   conn,
			send:   make(chan []byte, config.SendBuffer),
			done:   make(chan struct{}),
			engine: engine,
			config: config,
			log:    log.With("remote", r.RemoteAddr),
		}

		// Subscribe before reading state: an event published while the
		// snapshot is built is held back and replayed after it.
		unsubscribe, err := events.SubscribeEvents(fmt.Sprintf("%s.>", topic), client.deliver)
		if err != nil {
			client.log.Error("ws_subscribe_failed", "error", err)
			client.close()
			return
		}
		client.unsubscribe = unsubscribe

		snap, err := json.Marshal(snapshot{
			Type:     "snapshot",
			Time:     time.Now(),
			Sources:  engine.Sources(),
			Entities: engine.Entities(""),
			Trails:   engine.Trails(),
			Criteria: engine.Criteria(),
			Metrics:  engine.Metrics(),
		})
		if err != nil {
			client.log.Error("ws_snapshot_failed", "error", err)
			client.close()
			return
		}
		client.goLive(snap)

		go client.writePump()
		go client.readPump()

		client.log.Info("ws_connected")
	}
}

// deliver receives a published event. Until the snapshot is queued, events
// are held in order.
func (c *liveClient) deliver(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live {
		c.enqueue(data)
		return
	}
	// the snapshot takes one slot of the send buffer
	if len(c.pending)+1 >= c.config.SendBuffer {
		c.overflow = true
		return
	}
	c.pending = append(c.pending, data)
}

// goLive queues the snapshot followed by every held event
func (c *liveClient) goLive(snap []byte) {
	c.mu.Lock()
	if c.overflow {
		c.mu.Unlock()
		c.log.Warn("ws_client_too_slow", "pending", len(c.pending))
		c.close()
		return
	}

	c.enqueue(snap)
	for _, data := range c.pending {
		c.enqueue(data)
	}
	c.pending = nil
	c.live = true
	c.mu.Unlock()
}

// enqueue queues an outbound message. A client that cannot keep up is
// disconnected and is expected to reconnect for a fresh snapshot.
func (c *liveClient) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.log.Warn("ws_client_too_slow")
		c.close()
	}
}

// readPump reads dashboard commands until the connection fails
func (c *liveClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("ws_read_failed", "error", err)
			}
			return
		}
		c.processCommand(message)
	}
}

// writePump pumps queued messages and pings to the connection
func (c *liveClient) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *liveClient) processCommand(message []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.reply("error", err.Error())
		return
	}

	switch cmd.Type {
	case "criteria":
		if cmd.Criteria == nil {
			c.reply("error", "missing criteria")
			return
		}
		if err := c.engine.SetCriteria(*cmd.Criteria); err != nil {
			c.reply("error", err.Error())
			return
		}
		c.reply("ack", cmd.Type)

	case "source":
		if cmd.Enabled == nil {
			c.reply("error", "missing enabled")
			return
		}
		toggle := c.engine.DisableSource
		if *cmd.Enabled {
			toggle = c.engine.EnableSource
		}
		if err := toggle(cmd.Source); err != nil {
			c.reply("error", err.Error())
			return
		}
		c.reply("ack", cmd.Type)

	default:
		c.reply("error", fmt.Sprintf("unknown command %q", cmd.Type))
	}
}

func (c *liveClient) reply(kind, detail string) {
	data, _ := json.Marshal(map[string]string{"type": kind, "detail": detail})
	c.enqueue(data)
}

// close releases the subscription and the connection once
func (c *liveClient) close() {
	c.once.Do(func() {
		close(c.done)
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		c.conn.Close()
		c.log.Info("ws_disconnected")
	})
}
