package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	hertzws "github.com/hertz-contrib/websocket"
	"github.com/mbeoliero/kit/log"
)

// ClientConn represents a WebSocket connection wrapper
type ClientConn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// rawConn is the method set shared by gorilla/websocket and hertz-contrib/websocket connections
type rawConn interface {
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// ConnOptions configures a wsClientConn
type ConnOptions struct {
	MaxMessageSize   int64
	WriteWait        time.Duration
	PongWait         time.Duration
	PingPeriod       time.Duration
	WriteChannelSize int
	// OnPong runs after every pong, e.g. to refresh presence
	OnPong func()
}

// wsClientConn implements ClientConn over either WebSocket library
type wsClientConn struct {
	conn       rawConn
	writeChan  chan []byte
	writeMu    sync.Mutex
	closeOnce  sync.Once
	closed     bool
	pingPeriod time.Duration
	pongWait   time.Duration
	writeWait  time.Duration
}

// NewGorillaClientConn wraps a gorilla/websocket connection
func NewGorillaClientConn(conn *websocket.Conn, opts ConnOptions) ClientConn {
	return newWsClientConn(conn, opts)
}

// NewHertzClientConn wraps a hertz-contrib/websocket connection
func NewHertzClientConn(conn *hertzws.Conn, opts ConnOptions) ClientConn {
	return newWsClientConn(conn, opts)
}

func newWsClientConn(conn rawConn, opts ConnOptions) *wsClientConn {
	size := opts.WriteChannelSize
	if size <= 0 {
		size = defaultWriteChannelSize
	}
	c := &wsClientConn{
		conn:       conn,
		writeChan:  make(chan []byte, size),
		pingPeriod: opts.PingPeriod,
		pongWait:   opts.PongWait,
		writeWait:  opts.WriteWait,
	}

	conn.SetReadLimit(opts.MaxMessageSize)

	// Set pong handler to extend read deadline
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.pongWait))
		if opts.OnPong != nil {
			opts.OnPong()
		}
		return nil
	})

	go c.writeLoop()

	return c
}

// writeLoop handles all writes to the connection (single writer pattern)
func (c *wsClientConn) writeLoop() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		// Recover from panic when writing to closed connection
		if r := recover(); r != nil {
			log.Debug("writeLoop recovered from panic: %v", r)
		}
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.writeChan:
			if !ok {
				c.safeWriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.safeWriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug("write message error: %v", err)
				return
			}

		case <-ticker.C:
			if err := c.safeWriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("ping error: %v", err)
				return
			}
		}
	}
}

// safeWriteMessage writes a message with proper error handling
func (c *wsClientConn) safeWriteMessage(messageType int, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug("safeWriteMessage recovered from panic: %v", r)
			err = ErrConnClosed
		}
	}()

	c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// ReadMessage reads a message from the connection
func (c *wsClientConn) ReadMessage() ([]byte, error) {
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	_, message, err := c.conn.ReadMessage()
	return message, err
}

// WriteMessage queues a message to be written
func (c *wsClientConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return ErrConnClosed
	}

	select {
	case c.writeChan <- data:
		return nil
	default:
		// slow consumer
		return ErrWriteChannelFull
	}
}

// Close stops accepting writes; the write loop flushes what is queued, sends a close frame and closes the socket
func (c *wsClientConn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.closed = true
		close(c.writeChan)
		c.writeMu.Unlock()
	})
	return nil
}

// SetReadDeadline sets the read deadline
func (c *wsClientConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline
func (c *wsClientConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}
