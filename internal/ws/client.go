package ws

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/collab-docs/collabserver/internal/broadcast"
	"github.com/collab-docs/collabserver/internal/event"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024 // 512KB
)

// client is one websocket connection bound to a generated client id.
type client struct {
	conn     *websocket.Conn
	clientID string
	docID    string
	send     chan []byte
}

func newClient(conn *websocket.Conn, clientID, docID string) *client {
	return &client{
		conn:     conn,
		clientID: clientID,
		docID:    docID,
		send:     make(chan []byte, 256),
	}
}

// enqueue drops the frame when the client cannot keep up; document state
// is recoverable through a sync request so a dropped relay frame is not
// fatal.
func (c *client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}

func (c *client) writeFrame(f *frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	c.enqueue(data)
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with pings.
func (c *client) writePump() {
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

// forward relays document updates from the subscription as update
// frames. The JSON surface carries only update frames outward; join,
// leave and awareness events stay on the binary surface.
func (c *client) forward(sub *broadcast.Subscription) {
	for ev := range sub.C() {
		if ev.Type != event.DocumentUpdated {
			continue
		}
		c.writeFrame(&frame{
			Type:   frameUpdate,
			DocID:  ev.DocumentID,
			Update: base64.StdEncoding.EncodeToString(ev.Update),
		})
	}
}

func (c *client) closeSend() {
	close(c.send)
}

func logClose(err error, clientID string) {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
		log.WithError(err).WithField("client_id", clientID).Warn("websocket closed unexpectedly")
	}
}
