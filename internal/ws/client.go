package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/momohouse/pos/internal/auth"
	"github.com/momohouse/pos/internal/enum"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Terminals authenticate with the token query parameter.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one connected terminal: a till, the kitchen screen or the
// admin page.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	terminal string
	// topics filters events by type prefix ("order", "alert"). Empty
	// receives everything.
	topics []string
	send   chan []byte
}

// wants reports whether the client subscribed to events of type typ.
func (c *Client) wants(typ string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, topic := range c.topics {
		if typ == topic || strings.HasPrefix(typ, topic+".") {
			return true
		}
	}
	return false
}

// readPump only watches for the peer going away; terminals never send.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("terminal", c.terminal).Msg("websocket read")
			}
			return
		}
	}
}

// writePump sends every event as its own text frame and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("terminal", c.terminal).Msg("websocket write")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// parseTopics splits the comma-separated events query parameter.
func parseTopics(raw string) []string {
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// ServeWS upgrades a terminal connection.
// Endpoint: WS /ws/orders?token=JWT[&events=order,alert]
func ServeWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := auth.ValidateToken(jwtSecret, tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if claims.Role != enum.RoleStaff && claims.Role != enum.RoleAdmin {
		http.Error(w, "access denied", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade")
		return
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		terminal: claims.Terminal,
		topics:   parseTopics(r.URL.Query().Get("events")),
		send:     make(chan []byte, sendBuffer),
	}
	if !hub.join(client) {
		conn.Close()
		return
	}
	log.Debug().Str("terminal", client.terminal).Strs("topics", client.topics).Msg("terminal connected")

	go client.writePump()
	go client.readPump()
}
