package ws

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/dkeye/quizhub/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// conn is one upgraded websocket. It implements core.Conn.
type conn struct {
	ws     *websocket.Conn
	addr   string
	cfg    Config
	logger zerolog.Logger

	send chan string
	done chan struct{}
	once sync.Once
}

func newConn(ws *websocket.Conn, cfg Config, logger zerolog.Logger) *conn {
	addr := ws.RemoteAddr().String()
	return &conn{
		ws:     ws,
		addr:   addr,
		cfg:    cfg,
		logger: logger.With().Str("addr", addr).Logger(),
		send:   make(chan string, cfg.SendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *conn) RemoteAddr() string { return c.addr }

// SendText queues text without blocking.
func (c *conn) SendText(text string) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- text:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrBackpressure
	}
}

// Close starts a graceful close. The close notification arrives later through
// the handler.
func (c *conn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *conn) closing() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *conn) pongWait() time.Duration { return c.cfg.PingPeriod * 10 / 9 }

func (c *conn) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case text := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				c.logger.Debug().Err(err).Msg("write failed")
				_ = c.ws.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.ws.Close()
				return
			}
		case <-c.done:
			c.flush()
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteWait))
			// The peer answers with its own close frame; the read pump picks it up.
			_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.WriteWait))
			return
		}
	}
}

// flush writes whatever was queued before Close.
func (c *conn) flush() {
	for {
		select {
		case text := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				return
			}
		default:
			return
		}
	}
}

// readPump delivers inbound text until the socket ends, then reports the close.
func (c *conn) readPump(h core.TransportHandler) {
	code, reason := websocket.CloseAbnormalClosure, ""
	defer func() {
		_ = c.Close()
		_ = c.ws.Close()
		h.ClientClosed(c, code, reason)
	}()

	c.ws.SetReadLimit(c.cfg.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait()))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.pongWait()))
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			switch {
			case errors.As(err, &ce):
				code, reason = ce.Code, ce.Text
			case c.closing():
				// Our close frame went unanswered before the read deadline.
				code = websocket.CloseNormalClosure
			case errors.Is(err, net.ErrClosed):
			default:
				h.ClientError(c, err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		h.ClientText(c, string(data))
	}
}
