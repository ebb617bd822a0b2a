package daemon

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/events"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/version"
)

func setupRoutes(store *StatusStore, hub *events.Hub) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/status", getStatus(store))
	router.GET("/version", getVersion)
	router.GET("/events", streamEvents(hub))
	router.GET("/ws", websocketEvents(hub))

	return router
}

func getStatus(store *StatusStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.IndentedJSON(http.StatusOK, store.Get())
	}
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

// streamEvents sends hub events as server-sent events until the client goes
// away or the hub is closed.
func streamEvents(hub *events.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ch := hub.Subscribe()
		defer hub.Unsubscribe(ch)

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Status(http.StatusOK)
		c.Writer.Flush()

		logrus.WithField("subscribers", hub.Subscribers()).Debug("event subscriber connected")

		c.Stream(func(_ io.Writer) bool {
			select {
			case ev, ok := <-ch:
				if !ok {
					return false
				}
				c.SSEvent(ev.Name, string(ev.Data))
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}
