package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/example/shuttle-tracker/internal/observability"
	"github.com/example/shuttle-tracker/internal/room"
)

var upgrader = websocket.Upgrader{
	// The mobile clients connect from app origins, not the API host.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS upgrades a relay connection. Role and user id are tagged on the
// session up front so the relay can address the driver explicitly.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	role := room.Role(r.URL.Query().Get("role"))
	if role != room.RoleDriver && role != room.RolePassenger {
		writeError(w, http.StatusBadRequest, "role must be driver or passenger")
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response.
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	observability.WSConnects.Inc()

	sess := room.NewSession(role, userID, conn)
	go s.readPump(sess, conn)
}

func (s *Server) readPump(sess *room.Session, conn *websocket.Conn) {
	defer func() {
		s.Relay.Disconnect(sess)
		_ = conn.Close()
		observability.WSDisconnects.Inc()
	}()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("ws read error", "session_id", sess.ID, "error", err)
			}
			return
		}
		if err := s.Relay.Handle(s.baseCtx(), sess, raw); err != nil {
			s.logger.Warn("relay event rejected", "session_id", sess.ID, "error", err)
		}
	}
}
