package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	maxFrameSize      = 4096
	fetchTimeout      = 5 * time.Second
	closeReasonClosed = "room closed"
)

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.allowAllOrigins() {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (s *Server) handleWebsocket(c *gin.Context) {
	if !s.allowRequest(c, "ws") {
		return
	}
	upgrader := s.upgrader()
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("ws upgrade failed", "remote", c.Request.RemoteAddr, "error", err)
		return
	}
	conn := newConn(newConnLimiter(s.cfg.MessagesPerSecond, s.cfg.MessageBurst), s.logger)
	s.logger.Info("ws connected", "conn_id", conn.ID(), "remote", c.Request.RemoteAddr)
	go s.writePump(ws, conn)
	go s.readPump(ws, conn)
}

// readPump owns reads for one socket. A socket that stays silent for two
// heartbeat intervals, pongs included, is dropped.
func (s *Server) readPump(ws *websocket.Conn, conn *Conn) {
	defer func() {
		s.Disconnect(conn)
		s.logger.Info("ws disconnected", "conn_id", conn.ID())
	}()
	silence := 2 * s.cfg.HeartbeatInterval
	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(silence))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(silence))
	})
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("ws read failed", "conn_id", conn.ID(), "error", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(silence))
		if isBlankFrame(data) {
			continue
		}
		if !conn.allow() {
			conn.Send(newErrorMessage(ErrRateLimited))
			continue
		}
		s.dispatch(conn, data)
	}
}

// writePump owns writes for one socket. Frames queued before Close are still
// flushed, then a close frame is sent.
func (s *Server) writePump(ws *websocket.Conn, conn *Conn) {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()
	for {
		select {
		case data := <-conn.send:
			if err := writeFrame(ws, data); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		case <-conn.Done():
			drainFrames(ws, conn)
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, closeReasonClosed),
				time.Now().Add(writeWait))
			return
		}
	}
}

func drainFrames(ws *websocket.Conn, conn *Conn) {
	for {
		select {
		case data := <-conn.send:
			if err := writeFrame(ws, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func writeFrame(ws *websocket.Conn, data []byte) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(websocket.TextMessage, data)
}

// dispatch routes one decoded frame. Failures are answered privately and
// never touch room state.
func (s *Server) dispatch(conn *Conn, data []byte) {
	msg, err := decodeClientMessage(data)
	if err != nil {
		if errors.Is(err, ErrInvalidChoice) {
			conn.Send(reasonMessage{Type: "answerError", Reason: errorReason(err)})
			return
		}
		conn.Send(newErrorMessage(err))
		return
	}
	switch m := msg.(type) {
	case joinMessage:
		if _, err := s.Join(conn, m.Code, m.Name); err != nil {
			conn.Send(reasonMessage{Type: "joinError", Reason: errorReason(err)})
		}
	case setNameMessage:
		if err := s.SetName(conn, m.Name); err != nil {
			conn.Send(newErrorMessage(err))
		}
	case startGameMessage:
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		err := s.StartGame(ctx, conn)
		cancel()
		if err != nil {
			conn.Send(reasonMessage{Type: "startGameError", Reason: errorReason(err)})
		}
	case submitAnswerMessage:
		if _, err := s.SubmitAnswer(conn, *m.ChoiceIndex); err != nil {
			conn.Send(reasonMessage{Type: "answerError", Reason: errorReason(err)})
		}
	case leaveRoomMessage:
		if err := s.Leave(conn); err != nil {
			conn.Send(newErrorMessage(err))
		}
	case returnToLobbyMessage:
		if err := s.ReturnToLobby(conn); err != nil {
			conn.Send(newErrorMessage(err))
		}
	case chatMessage:
		if err := s.Chat(conn, m.Text); err != nil {
			conn.Send(newErrorMessage(err))
		}
	case pickCategoryMessage:
		if err := s.PickCategory(conn, m.Category); err != nil {
			conn.Send(newErrorMessage(err))
		}
	default:
		conn.Send(newErrorMessage(ErrUnknownType))
	}
}
