package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/pokertable/internal/auth"
	"github.com/lox/pokertable/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 256
)

// wsConn is the subset of *websocket.Conn a Connection drives. Extracted
// as an interface so tests can exercise reconnect-swap and the
// disconnect ladder with a fake transport instead of a live socket.
type wsConn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Connection wraps one websocket transport. It has no table affiliation
// of its own; the identity and seat it currently represents live in the
// Coordinator's sessionRegistry, since the same identity may move from
// one Connection to another across a reconnect.
type Connection struct {
	conn   wsConn
	send   chan *protocol.Envelope
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	identity *auth.Identity

	closeOnce sync.Once
	coord     *Coordinator
}

func newConnection(conn wsConn, logger *log.Logger, coord *Coordinator) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:   conn,
		send:   make(chan *protocol.Envelope, sendBuffer),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
		coord:  coord,
	}
}

// Start launches the read and write pumps. It does not return.
func (c *Connection) Start() {
	go c.writePump()
	c.readPump()
}

// Close tears down the connection exactly once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// Send enqueues an envelope for delivery. A full send buffer closes the
// connection rather than blocking the caller, matching the donor's
// backpressure policy: a client too slow to drain its own socket is
// treated as gone.
func (c *Connection) Send(env *protocol.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()
	select {
	case c.send <- env:
	case <-c.ctx.Done():
	default:
		c.logger.Warn("send buffer full, closing connection")
		_ = c.Close()
	}
}

func (c *Connection) SendTyped(t protocol.MessageType, data interface{}) {
	env, err := protocol.NewEnvelope(t, data)
	if err != nil {
		c.logger.Error("marshal outbound envelope", "type", t, "error", err)
		return
	}
	c.Send(env)
}

func (c *Connection) setIdentity(id *auth.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = id
}

func (c *Connection) Identity() *auth.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

func (c *Connection) readPump() {
	defer func() {
		c.coord.onDisconnect(c)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		c.coord.handleEnvelope(c, &env)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				c.logger.Error("websocket write error", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) sendError(code, message string) {
	c.SendTyped(protocol.TypeError, protocol.ErrorData{Code: code, Message: message})
}

func decodeData[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}
