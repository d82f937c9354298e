package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const sendBuffer = 64

// Conn is the transport-side handle of one client. It points at a seat by
// room code and player id but owns neither; the registry does.
type Conn struct {
	id      string
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
	logger  *slog.Logger

	mu       sync.Mutex
	roomCode string
	playerID int
}

func newConn(limiter *rate.Limiter, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{
		id:      uuid.NewString(),
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		limiter: limiter,
		logger:  logger,
	}
}

func (c *Conn) ID() string {
	return c.id
}

// Send queues payload without blocking. A full or closed connection drops
// the message and reports false.
func (c *Conn) Send(payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("marshal outbound message failed", "conn_id", c.id, "error", err)
		return false
	}
	return c.sendRaw(data)
}

func (c *Conn) sendRaw(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		c.logger.Debug("send buffer full, message dropped", "conn_id", c.id)
		return false
	}
}

// Close stops the connection. Messages already queued are still flushed by
// the write pump.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) allow() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow()
}

func (c *Conn) binding() (string, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roomCode == "" {
		return "", 0, false
	}
	return c.roomCode, c.playerID, true
}

func (c *Conn) bind(code string, playerID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = code
	c.playerID = playerID
}

func (c *Conn) unbind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = ""
	c.playerID = 0
}

// broadcast fans payload out to every connection seated in room, in seat
// order, skipping exclude. The caller holds the room lock. One failed send
// never stops delivery to the rest.
func broadcast(room *Room, payload any, exclude *Conn) int {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal broadcast failed", "code", room.Code, "error", err)
		return 0
	}
	delivered := 0
	for _, player := range room.Players {
		conn := room.conns[player.ID]
		if conn == nil || conn == exclude {
			continue
		}
		if conn.sendRaw(data) {
			delivered++
		}
	}
	return delivered
}

// closeRoomConns unbinds and closes every connection in room. The caller
// holds the room lock.
func closeRoomConns(room *Room) {
	for id, conn := range room.conns {
		conn.unbind()
		conn.Close()
		delete(room.conns, id)
	}
}
