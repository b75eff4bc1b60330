package server

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// Outbound buffer: one metric per tick plus the occasional history
	// burst; a client that falls this far behind is treated as dead.
	sendBufferSize = 256
)

var (
	ErrConnClosed  = errors.New("connection closed")
	ErrSendBacklog = errors.New("client send buffer full")
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

// Client is one accepted websocket connection. It implements
// interfaces.IClientConn for the subscription layer.
type Client struct {
	server *StreamServer
	conn   *websocket.Conn
	send   chan interface{}
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
}

// -----------------------------------------------------------------------------

// Send enqueues one message for the write pump. Non-blocking: a closed
// connection or a full buffer reports an error so the broadcaster can reap
// the subscription instead of stalling the tick.
func (c *Client) Send(v interface{}) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	select {
	case c.send <- v:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendBacklog
	}
}

// -----------------------------------------------------------------------------

func (c *Client) IsOpen() bool {
	return !c.closed.Load()
}

// -----------------------------------------------------------------------------

// Close tears the transport down. Idempotent; both pumps converge here.
func (c *Client) Close() {
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.done)
		c.conn.Close()
	})
}

// -----------------------------------------------------------------------------
// WebSocket Upgrade
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *StreamServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		server: s,
		conn:   conn,
		send:   make(chan interface{}, sendBufferSize),
		done:   make(chan struct{}),
	}

	s.registerClient(client)
	s.Logger.Info("New client at %s", conn.RemoteAddr())

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// readPump - decodes inbound requests and dispatches them in arrival order.
// Acts as the watchdog for the connection.
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.Close()
		c.server.unregisterClient(c)
		// Immediate cleanup; the broadcast sweep would converge to the same
		// state within one tick anyway.
		c.server.Registry.Unsubscribe(c)
		c.server.Logger.Info("Client at %s disconnected", c.conn.RemoteAddr())
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.Logger.Info("WebSocket error: %v", err)
			}
			return
		}

		if err := c.server.dispatch(c, message); err != nil {
			// Protocol violations and store failures are both fatal to the
			// connection; only their log level differs.
			c.server.Logger.Error("Request failed, disconnecting client: %v", err)
			return
		}
	}
}

// -----------------------------------------------------------------------------
// writePump - sends queued messages to the client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.server.Logger.Info("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
