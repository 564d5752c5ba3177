package webserver

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stratum-ops/opsdeck/src/console/session"
	"github.com/stratum-ops/opsdeck/src/telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Live struct {
	sess *session.Session
	hub  *telemetry.Hub
}

func NewLive(sess *session.Session, hub *telemetry.Hub) Live {
	return Live{sess: sess, hub: hub}
}

// Serve upgrades the request and parks it on the hub. The current
// snapshot is written before the connection joins the broadcast loop, so
// the handler and the hub never write concurrently.
func (h Live) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("webserver: ws upgrade: %v", err)
		return
	}

	body, err := json.Marshal(h.sess.Snapshot())
	if err == nil {
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			conn.Close()
			return
		}
	}
	h.hub.Connect(conn)

	// Read loop only watches for the client going away; the feed is
	// one-directional.
	go func() {
		defer h.hub.Disconnect(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
