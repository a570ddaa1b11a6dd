// Package ws serves game connections over gorilla/websocket.
package ws

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dkeye/quizhub/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrAlreadyListening = errors.New("transport already listening")

type Config struct {
	// Host to bind; empty means all interfaces.
	Host       string
	ReadLimit  int64
	PingPeriod time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func (c Config) withDefaults() Config {
	if c.ReadLimit <= 0 {
		c.ReadLimit = 4096
	}
	if c.PingPeriod <= 0 {
		c.PingPeriod = 54 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	return c
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Transport implements core.Transport. Every path on the bound port upgrades
// to a websocket.
type Transport struct {
	cfg    Config
	logger zerolog.Logger

	mu     sync.Mutex
	srv    *http.Server
	conns  map[*conn]struct{}
	closed bool
}

func New(cfg Config) *Transport {
	return &Transport{
		cfg:    cfg.withDefaults(),
		logger: log.With().Str("module", "adapters.ws").Logger(),
		conns:  make(map[*conn]struct{}),
	}
}

// NewFactory returns a constructor usable as a transport factory.
func NewFactory(cfg Config) func() core.Transport {
	return func() core.Transport { return New(cfg) }
}

func (t *Transport) Listen(port int, h core.TransportHandler) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.srv != nil || t.closed {
		return 0, ErrAlreadyListening
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(t.cfg.Host, strconv.Itoa(port)))
	if err != nil {
		return 0, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.NoRoute(func(c *gin.Context) { t.serve(c, h) })

	t.srv = &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	srv := t.srv
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error().Err(err).Msg("serve failed")
		}
	}()

	bound := ln.Addr().(*net.TCPAddr).Port
	t.logger.Debug().Int("port", bound).Msg("listening")
	return bound, nil
}

func (t *Transport) serve(c *gin.Context, h core.TransportHandler) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		t.logger.Warn().Err(err).Msg("ws upgrade")
		return
	}

	cn := newConn(ws, t.cfg, t.logger)
	if !t.track(cn) {
		_ = ws.Close()
		return
	}
	defer t.untrack(cn)

	go cn.writePump()
	h.ClientConnected(cn)
	cn.readPump(h)
}

func (t *Transport) track(cn *conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.conns[cn] = struct{}{}
	return true
}

func (t *Transport) untrack(cn *conn) {
	t.mu.Lock()
	delete(t.conns, cn)
	t.mu.Unlock()
}

// Close stops accepting and starts closing every open connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	srv := t.srv
	conns := make([]*conn, 0, len(t.conns))
	for cn := range t.conns {
		conns = append(conns, cn)
	}
	t.mu.Unlock()

	for _, cn := range conns {
		_ = cn.Close()
	}
	if srv == nil {
		return nil
	}
	return srv.Close()
}
