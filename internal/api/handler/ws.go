package handler

import (
	"net/http"
	"net/url"

	"healthportal/backend/internal/livefeed"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// sameOrigin accepts browsers connecting from this host only; the session
// cookie would otherwise let any site open the feed.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

// ServeAuditFeed upgrades an admin's request to a websocket that receives
// every new audit row.
func (h *Handler) ServeAuditFeed(c *gin.Context) {
	if h.Hub == nil {
		h.notFound(c)
		return
	}
	up := upgrader
	up.CheckOrigin = sameOrigin
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Info("audit feed upgrade failed", zap.Error(err))
		return
	}

	client := livefeed.NewWebSocketClient(h.Hub, conn, currentUser(c).ID)
	select {
	case h.Hub.RegisterCh <- client:
		client.Run()
	case <-h.Hub.Done():
		conn.Close()
	case <-c.Request.Context().Done():
		conn.Close()
	}
}
