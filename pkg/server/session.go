package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/catalog"
	"github.com/vango-dev/storefront/pkg/filter"
	"github.com/vango-dev/storefront/pkg/middleware"
	"github.com/vango-dev/storefront/pkg/nav"
)

// Session is one websocket connection driving a navigation Sync. The read
// loop is the only goroutine that touches the Sync.
type Session struct {
	ID string

	conn     *websocket.Conn
	config   *ServerConfig
	logger   *slog.Logger
	metrics  *middleware.Metrics
	location *remoteLocation
	nav      *nav.Sync

	send      chan ServerMessage
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, cat catalog.Catalog, initial string, config *ServerConfig, metrics *middleware.Metrics, logger *slog.Logger) *Session {
	id := uuid.NewString()
	s := &Session{
		ID:      id,
		conn:    conn,
		config:  config,
		logger:  logger.With("session_id", id),
		metrics: metrics,
		send:    make(chan ServerMessage, config.SendBuffer),
		done:    make(chan struct{}),
	}
	if initial == "" {
		initial = "#/" + nav.PageHome
	}
	s.location = &remoteLocation{MemoryLocation: nav.NewMemoryLocation(initial), emit: s.enqueue}
	s.nav = nav.New(cat, s.location,
		nav.WithLogger(s.logger),
		nav.WithRecorder(metrics.Nav()),
	)
	s.nav.OnChange(func(st nav.State) {
		s.enqueue(ServerMessage{Type: MsgState, State: &st})
	})
	return s
}

// Nav returns the session's navigation sync. Only safe to use from the
// read loop or after the session has closed.
func (s *Session) Nav() *nav.Sync {
	return s.nav
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close stops the session. The write loop sends a close frame and closes
// the connection.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// enqueue queues msg for the write loop. A full queue closes the session.
func (s *Session) enqueue(msg ServerMessage) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.send <- msg:
	default:
		s.logger.Warn("send queue full, closing session", "type", msg.Type)
		s.metrics.WebSocketError("overflow")
		s.Close()
	}
}

func (s *Session) sendError(err error) {
	e := coded(err)
	s.logger.Debug("client message rejected", "code", e.Code, "error", err)
	s.enqueue(ServerMessage{Type: MsgError, Error: e})
}

// handle applies one client message to the Sync.
func (s *Session) handle(msg ClientMessage) error {
	switch msg.Type {
	case MsgNavigate:
		if msg.Page == "" {
			return invalidMessage("page", "navigate requires a page")
		}
		var data nav.PageData = nav.Generic{Fields: msg.Fields}
		if msg.Product != nil {
			if msg.Product.ID <= 0 {
				return invalidMessage("product", "product IDs are positive integers")
			}
			data = nav.ProductDetail{Product: *msg.Product}
		}
		return s.nav.Navigate(msg.Page, data)

	case MsgHashChange:
		s.location.Observe(msg.Hash)
		return s.nav.HandleLocationChange(msg.Hash)

	case MsgFilters:
		if len(msg.Filters) == 0 {
			return invalidMessage("filters", "filters message without filters")
		}
		f := filter.Default()
		if err := json.Unmarshal(msg.Filters, &f); err != nil {
			return sferrors.New(sferrors.CodeInvalidMessage).WithField("filters").Wrap(err)
		}
		return s.nav.UpdateFilters(f)

	case MsgPage:
		return s.nav.SetPage(msg.Number)

	case MsgBack:
		prev, ok := s.location.Back()
		if !ok {
			return nil
		}
		s.enqueue(ServerMessage{Type: MsgLocation, Hash: hash(prev), Mode: ModeBack})
		return s.nav.HandleLocationChange(prev)

	case MsgBlocked:
		s.location.SetBlocked(msg.Blocked)
		return nil

	case MsgSync:
		st := s.nav.State()
		s.enqueue(ServerMessage{Type: MsgState, State: &st})
		return nil

	default:
		return invalidMessage("type", "unknown message type "+msg.Type)
	}
}

func invalidMessage(field, detail string) *sferrors.Error {
	return sferrors.New(sferrors.CodeInvalidMessage).WithField(field).WithDetail(detail)
}

// run starts the session and blocks until the connection ends.
func (s *Session) run() {
	go s.writeLoop()

	s.enqueue(ServerMessage{Type: MsgHello, SessionID: s.ID})
	if err := s.nav.Start(); err != nil {
		s.sendError(err)
	}
	s.readLoop()
}

func (s *Session) readLoop() {
	defer s.Close()

	s.conn.SetReadLimit(s.config.MaxMessageSize)
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.config.PongWait))
	})

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.PongWait))

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
				s.metrics.WebSocketError("read")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.metrics.WebSocketError("decode")
			s.sendError(sferrors.New(sferrors.CodeInvalidMessage).Wrap(err))
			continue
		}
		if err := s.handle(msg); err != nil {
			s.sendError(err)
		}
	}
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(s.config.PingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.Debug("write error", "error", err)
				s.metrics.WebSocketError("write")
				s.Close()
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.metrics.WebSocketError("ping")
				s.Close()
				return
			}

		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.config.WriteWait))
			return
		}
	}
}

// remoteLocation mirrors the browser history and forwards every write to
// the client.
type remoteLocation struct {
	*nav.MemoryLocation
	emit func(ServerMessage)
}

func (l *remoteLocation) Push(fragment string) error {
	if err := l.MemoryLocation.Push(fragment); err != nil {
		return err
	}
	l.emit(ServerMessage{Type: MsgLocation, Hash: hash(fragment), Mode: ModePush})
	return nil
}

func (l *remoteLocation) Replace(fragment string) error {
	if err := l.MemoryLocation.Replace(fragment); err != nil {
		return err
	}
	l.emit(ServerMessage{Type: MsgLocation, Hash: hash(fragment), Mode: ModeReplace})
	return nil
}

func (l *remoteLocation) ScrollToTop() {
	l.MemoryLocation.ScrollToTop()
	l.emit(ServerMessage{Type: MsgScroll})
}

// hash returns fragment with a leading "#".
func hash(fragment string) string {
	if len(fragment) > 0 && fragment[0] == '#' {
		return fragment
	}
	return "#" + fragment
}
