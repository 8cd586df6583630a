package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/pfrederiksen/topdog/internal/logger"
	"github.com/pfrederiksen/topdog/internal/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsRequests maps text commands to the snapshot they return
var wsRequests = map[string]struct {
	responseType string
	file         string
}{
	"dogs":     {TypeTopDogs, storage.TopDogsJSON},
	"contests": {TypeContestGoals, storage.ContestGoalsJSON},
}

// handleWebSocket answers "dogs" and "contests" text messages until the client
// closes. The default close handler echoes the close frame.
func (s *Server) handleWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", logger.Fields{"error": err.Error()})
		return
	}
	defer ws.Close()

	remote := ws.RemoteAddr().String()
	logger.Debug("WebSocket connected", logger.Fields{"remote": remote})

	for {
		msgType, msg, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				logger.Debug("WebSocket read ended", logger.Fields{"remote": remote, "error": err.Error()})
			}
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}

		req, ok := wsRequests[strings.TrimSpace(string(msg))]
		if !ok {
			continue
		}

		env, err := s.envelope(req.responseType, req.file)
		if err != nil {
			logger.Error("Unable to serve snapshot", logger.Fields{"file": req.file, "remote": remote}, err)
			continue
		}
		if err := ws.WriteJSON(env); err != nil {
			logger.Warn("WebSocket write failed", logger.Fields{"remote": remote, "error": err.Error()})
			break
		}
	}

	logger.Debug("WebSocket disconnected", logger.Fields{"remote": remote})
}
