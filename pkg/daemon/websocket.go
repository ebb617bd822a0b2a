package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/events"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 30 * time.Second
	wsPingPeriod = 20 * time.Second
)

// wsEnvelope is the JSON text frame sent for each event.
type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// The API is only reachable through the unix socket, so any origin is
// accepted.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// websocketEvents sends hub events as websocket text frames. It is the
// same stream as /events for clients that prefer websockets.
func websocketEvents(hub *events.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already replied with an error
			logrus.WithError(err).Debug("websocket upgrade failed")
			return
		}
		defer conn.Close()

		ch := hub.Subscribe()
		defer hub.Unsubscribe(ch)

		logrus.WithField("subscribers", hub.Subscribers()).Debug("websocket subscriber connected")

		done := make(chan struct{})
		go wsReadPump(conn, done)

		wsWritePump(conn, ch, done)
	}
}

// wsReadPump discards incoming messages so that control frames are handled
// and disconnects are noticed. done is closed when the connection ends.
func wsReadPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				logrus.WithField("code", ce.Code).Debug("websocket subscriber disconnected")
			} else {
				logrus.WithError(err).Debug("websocket read failed")
			}
			return
		}
	}
}

func wsWritePump(conn *websocket.Conn, ch <-chan events.Event, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case ev, ok := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "daemon shutting down"))
				return
			}
			if err := conn.WriteJSON(wsEnvelope{Type: ev.Name, Data: ev.Data}); err != nil {
				logrus.WithError(err).Debug("websocket write failed")
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithError(err).Debug("websocket ping failed")
				return
			}
		}
	}
}
