// Package ws is the JSON streaming adapter plus the read-only HTTP
// surface. A socket speaks the three-message protocol (sync, update, sv)
// with base64 payloads; joining is implicit on connect with a generated
// client id.
package ws

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/collab-docs/collabserver/internal/auth"
	"github.com/collab-docs/collabserver/internal/collab"
)

const (
	frameSync        = "sync"
	frameUpdate      = "update"
	frameStateVector = "sv"
	frameError       = "error"
)

// frame is the JSON wire message in both directions.
type frame struct {
	Type        string `json:"type"`
	DocID       string `json:"doc_id,omitempty"`
	StateVector string `json:"state_vector,omitempty"`
	Update      string `json:"update,omitempty"`
	Error       string `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Cross-origin policy is enforced by the deployment, not here.
		return true
	},
}

// Handler serves the websocket endpoint and the REST reads.
type Handler struct {
	usecases  *collab.UseCases
	jwtSecret string
}

func NewHandler(u *collab.UseCases, jwtSecret string) *Handler {
	return &Handler{usecases: u, jwtSecret: jwtSecret}
}

// NewRouter builds the gin engine with health, websocket and REST routes.
func NewRouter(u *collab.UseCases, jwtSecret string) *gin.Engine {
	h := NewHandler(u, jwtSecret)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/", h.Health)
	r.GET("/ws/:docId", h.ServeWebSocket)
	r.GET("/api/documents/:docId/state", h.GetDocumentState)
	r.GET("/api/documents/:docId/users", h.GetActiveUsers)
	return r
}

func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// identity resolves who is on the socket. A valid token wins; otherwise
// the anonymous default applies.
func (h *Handler) identity(c *gin.Context) (userID, userName, userColor string) {
	if token := c.Query("token"); token != "" && h.jwtSecret != "" {
		if claims, err := auth.ValidateToken(h.jwtSecret, token); err == nil {
			return claims.UserID, claims.Name, claims.UserColor
		}
	}
	if userID = c.Query("userId"); userID == "" {
		userID = "anonymous"
	}
	return userID, "Anonymous", "#888888"
}

// ServeWebSocket upgrades the connection and runs the session until the
// socket closes.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	docID := c.Param("docId")
	if docID == "" {
		c.String(http.StatusBadRequest, "document id is required")
		return
	}

	userID, userName, userColor := h.identity(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	joinEv, err := h.usecases.JoinDocument(c.Request.Context(), collab.JoinParams{
		DocumentID: docID,
		UserID:     userID,
		UserName:   userName,
		UserColor:  userColor,
	})
	if err != nil {
		conn.WriteJSON(&frame{Type: frameError, DocID: docID, Error: err.Error()})
		conn.Close()
		return
	}

	cl := newClient(conn, joinEv.ClientID, docID)
	sub := h.usecases.Broadcaster().Subscribe(docID, cl.clientID)

	done := make(chan struct{})
	go cl.writePump()
	go func() {
		cl.forward(sub)
		close(done)
	}()

	h.readPump(cl)

	h.usecases.LeaveDocument(cl.clientID)
	sub.Close()
	<-done
	cl.closeSend()
}

// readPump dispatches inbound frames until the socket closes.
func (h *Handler) readPump(cl *client) {
	defer cl.conn.Close()

	cl.conn.SetReadLimit(maxMessageSize)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := cl.conn.ReadMessage()
		if err != nil {
			logClose(err, cl.clientID)
			return
		}

		var f frame
		if err := json.Unmarshal(message, &f); err != nil {
			cl.writeFrame(&frame{Type: frameError, DocID: cl.docID, Error: "malformed frame"})
			continue
		}
		h.handleFrame(cl, &f)
	}
}

func (h *Handler) handleFrame(cl *client, f *frame) {
	switch f.Type {
	case frameSync:
		// Reply with the server's state vector, then the full snapshot as
		// an update frame.
		data, err := h.usecases.GetSyncData(cl.clientID, nil)
		if err != nil {
			cl.writeFrame(&frame{Type: frameError, DocID: cl.docID, Error: err.Error()})
			return
		}
		cl.writeFrame(&frame{
			Type:        frameSync,
			DocID:       cl.docID,
			StateVector: base64.StdEncoding.EncodeToString(data.ServerStateVector),
		})
		cl.writeFrame(&frame{
			Type:   frameUpdate,
			DocID:  cl.docID,
			Update: base64.StdEncoding.EncodeToString(data.Diff),
		})

	case frameUpdate:
		update, err := base64.StdEncoding.DecodeString(f.Update)
		if err != nil {
			cl.writeFrame(&frame{Type: frameError, DocID: cl.docID, Error: "malformed base64 update"})
			return
		}
		if _, err := h.usecases.HandleDocumentUpdate(cl.clientID, update); err != nil {
			cl.writeFrame(&frame{Type: frameError, DocID: cl.docID, Error: err.Error()})
		}

	case frameStateVector:
		sv, err := base64.StdEncoding.DecodeString(f.StateVector)
		if err != nil {
			cl.writeFrame(&frame{Type: frameError, DocID: cl.docID, Error: "malformed base64 state vector"})
			return
		}
		data, err := h.usecases.GetSyncData(cl.clientID, sv)
		if err != nil {
			cl.writeFrame(&frame{Type: frameError, DocID: cl.docID, Error: err.Error()})
			return
		}
		cl.writeFrame(&frame{
			Type:   frameUpdate,
			DocID:  cl.docID,
			Update: base64.StdEncoding.EncodeToString(data.Diff),
		})

	default:
		cl.writeFrame(&frame{Type: frameError, DocID: cl.docID, Error: "unknown frame type"})
	}
}

// documentStateResponse is the REST read model.
type documentStateResponse struct {
	DocID        string       `json:"doc_id"`
	StateVector  string       `json:"state_vector"`
	Document     string       `json:"document"`
	ActiveUsers  []activeUser `json:"active_users"`
	LastModified time.Time    `json:"last_modified"`
}

type activeUser struct {
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	UserColor string    `json:"user_color"`
	ClientID  string    `json:"client_id"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetDocumentState returns the snapshot plus active users as JSON.
func (h *Handler) GetDocumentState(c *gin.Context) {
	state, err := h.usecases.GetDocumentState(c.Request.Context(), c.Param("docId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	users := make([]activeUser, 0, len(state.ActiveUsers))
	for _, s := range state.ActiveUsers {
		users = append(users, activeUser{
			UserID:    s.UserID,
			UserName:  s.UserName,
			UserColor: s.UserColor,
			ClientID:  s.ClientID,
			LastSeen:  s.LastSeenAt,
		})
	}

	c.JSON(http.StatusOK, documentStateResponse{
		DocID:        state.DocumentID,
		StateVector:  base64.StdEncoding.EncodeToString(state.StateVector),
		Document:     base64.StdEncoding.EncodeToString(state.Document),
		ActiveUsers:  users,
		LastModified: state.LastModified,
	})
}

// GetActiveUsers lists the fresh sessions on a document as JSON.
func (h *Handler) GetActiveUsers(c *gin.Context) {
	docID := c.Param("docId")
	if docID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document id is required"})
		return
	}

	sessions := h.usecases.GetActiveUsers(docID)
	users := make([]activeUser, 0, len(sessions))
	for _, s := range sessions {
		users = append(users, activeUser{
			UserID:    s.UserID,
			UserName:  s.UserName,
			UserColor: s.UserColor,
			ClientID:  s.ClientID,
			LastSeen:  s.LastSeenAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"doc_id": docID, "active_users": users})
}
