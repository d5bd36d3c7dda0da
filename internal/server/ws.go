package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/loykin/tracklink/internal/link"
	"github.com/loykin/tracklink/internal/relay"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Observer pages are served from arbitrary origins; access control is a
	// deployment concern of the outer layers.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsClientMsg is what a connected party sends us: observers join/leave link
// rooms, tracked devices push location reports.
type wsClientMsg struct {
	Type   string      `json:"type"` // "join", "leave" or "location"
	ID     string      `json:"id"`
	Coords link.Coords `json:"coords"`
}

func (r *Router) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		r.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	sess := r.trk.Hub().Register()
	r.logger.Debug("observer connected", "session", sess.ID(), "remote", conn.RemoteAddr())

	go r.writePump(conn, sess)
	r.readPump(c, conn, sess)
}

// readPump consumes client frames until the connection drops, then removes
// the session from every subscription set.
func (r *Router) readPump(c *gin.Context, conn *websocket.Conn, sess *relay.Session) {
	defer func() {
		r.trk.Hub().Unregister(sess)
		_ = conn.Close()
		r.logger.Debug("observer disconnected", "session", sess.ID())
	}()

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				r.logger.Debug("websocket read error", "session", sess.ID(), "error", err)
			}
			return
		}
		var msg wsClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			r.logger.Debug("ignoring malformed frame", "session", sess.ID(), "error", err)
			continue
		}
		switch msg.Type {
		case "join":
			if msg.ID != "" {
				r.trk.Hub().Subscribe(sess, msg.ID)
			}
		case "leave":
			if msg.ID != "" {
				r.trk.Hub().Unsubscribe(sess, msg.ID)
			}
		case "location":
			// Reports for unknown links are a no-op on the observer side;
			// the device just gets its frame ignored.
			if _, err := r.trk.Ingest(c.Request.Context(), msg.ID, msg.Coords); err != nil {
				r.logger.Debug("ingest via websocket failed", "link", msg.ID, "error", err)
			}
		default:
			r.logger.Debug("unknown frame type", "session", sess.ID(), "type", msg.Type)
		}
	}
}

// writePump drains the session queue onto the wire and keeps the connection
// alive with pings. It exits when the hub closes the queue or a write fails.
func (r *Router) writePump(conn *websocket.Conn, sess *relay.Session) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sess.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				r.logger.Warn("marshal event failed", "session", sess.ID(), "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				r.logger.Debug("websocket write error", "session", sess.ID(), "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
