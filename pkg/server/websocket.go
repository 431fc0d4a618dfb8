package server

import (
	"net/http"
)

// HandleWebSocket upgrades the request and runs a navigation session until
// the connection closes. The optional ?hash= parameter is the client's
// current location fragment.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered with an HTTP error.
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		s.metrics.WebSocketError("upgrade")
		return
	}

	session := newSession(conn, s.catalog, r.URL.Query().Get("hash"), s.config, s.metrics, s.logger)
	s.sessions.add(session)
	s.metrics.SessionOpened()
	s.logger.Debug("session opened", "session_id", session.ID, "remote", r.RemoteAddr)

	defer func() {
		s.sessions.remove(session.ID)
		s.metrics.SessionClosed()
		s.logger.Debug("session closed", "session_id", session.ID)
	}()

	session.run()
}
