// Package server runs one game's connection endpoint: it accepts clients, greets them,
// feeds their text through the command registry, broadcasts notices and raises an
// idle signal when nobody is connected for too long.
package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/dkeye/quizhub/internal/core"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultExternalIPAddress = "localhost"
	DefaultInitialTimeout    = 60 * time.Second
	DefaultIdleTimeout       = 30 * time.Second
)

var ErrAlreadyStarted = errors.New("server already started")

type State int

const (
	StateCreated State = iota
	StateStarting
	StateListening
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type TimerKind int

const (
	TimerNone TimerKind = iota
	TimerInitial
	TimerIdle
)

func (k TimerKind) String() string {
	switch k {
	case TimerInitial:
		return "initial"
	case TimerIdle:
		return "idle"
	default:
		return "none"
	}
}

type Config struct {
	// ExternalIPAddress is the host clients are told to connect to.
	ExternalIPAddress string
	// Port to listen on; 0 lets the OS pick one.
	Port int
	// InitialTimeout applies while nobody has connected since Start.
	InitialTimeout time.Duration
	// IdleTimeout applies once the last client has left.
	IdleTimeout time.Duration
	Clock       clockwork.Clock
}

func (c Config) withDefaults() Config {
	if c.ExternalIPAddress == "" {
		c.ExternalIPAddress = DefaultExternalIPAddress
	}
	if c.InitialTimeout <= 0 {
		c.InitialTimeout = DefaultInitialTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return c
}

// Hooks are optional observer callbacks. They run inside the server's event
// serialisation, so they may call Broadcast, Send, Stop and the getters but must
// not feed transport events back into the server.
type Hooks struct {
	ClientConnected    func(c *core.Client)
	ClientDisconnected func(c *core.Client)
	IdleTimeout        func()
}

type Server struct {
	cfg       Config
	transport core.Transport
	registry  *core.Registry
	hooks     Hooks
	logger    zerolog.Logger

	// serial makes every inbound event run to completion before the next one starts.
	serial sync.Mutex

	mu      sync.RWMutex
	state   State
	port    int
	clients []*core.Client
	byConn  map[core.Conn]*core.Client
	// At most one timer is recorded. A fired timer stays recorded until the next
	// client connects, so one empty period raises at most one idle signal.
	timer     clockwork.Timer
	timerKind TimerKind
	timerGen  uint64
}

func New(cfg Config, transport core.Transport, d core.Dispatcher, hooks Hooks) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		cfg:       cfg,
		transport: transport,
		registry:  core.NewRegistry(d),
		hooks:     hooks,
		logger:    log.With().Str("module", "server").Logger(),
		port:      cfg.Port,
		byConn:    make(map[core.Conn]*core.Client),
	}
}

// BuildAddress formats host and port as "host:port".
func BuildAddress(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Start binds the transport. On success the bound port is recorded and, with nobody
// connected yet, the initial timer is armed.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.state != StateCreated {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateStarting
	s.mu.Unlock()

	port, err := s.transport.Listen(s.cfg.Port, s)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateCreated
		s.logger.Error().Err(err).Int("port", s.cfg.Port).Msg("listen failed")
		return fmt.Errorf("listen on port %d: %w", s.cfg.Port, err)
	}
	s.port = port
	s.state = StateListening
	s.startTimerLocked(TimerInitial, s.cfg.InitialTimeout)
	s.logger.Info().Str("addr", BuildAddress(s.cfg.ExternalIPAddress, port)).Msg("server listening")
	return nil
}

// Stop closes the listener and every live connection. Their close notifications
// still arrive and are handled, but no timer is armed any more.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	bound := s.state != StateCreated
	s.state = StateStopped
	s.cancelTimerLocked()
	clients := append([]*core.Client(nil), s.clients...)
	s.mu.Unlock()

	var err error
	if bound {
		err = s.transport.Close()
	}
	for _, c := range clients {
		_ = c.Close()
	}
	s.logger.Info().Int("port", s.Port()).Int("closed_clients", len(clients)).Msg("server stopped")
	return err
}

// Broadcast sends message to every live client except sender (which may be nil).
// Delivery failures are logged and skipped.
func (s *Server) Broadcast(message string, sender *core.Client) {
	s.mu.RLock()
	targets := make([]*core.Client, 0, len(s.clients))
	for _, c := range s.clients {
		if c != sender {
			targets = append(targets, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range targets {
		if err := c.SendText(message); err != nil {
			s.logger.Debug().Err(err).Str("client", c.Name()).Msg("broadcast send failed")
		}
	}
}

func (s *Server) Send(c *core.Client, message string) error {
	return c.SendText(message)
}

func (s *Server) ExternalIPAddress() string { return s.cfg.ExternalIPAddress }

// Port is the bound port once listening, the configured one before.
func (s *Server) Port() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.port
}

func (s *Server) Address() string { return BuildAddress(s.cfg.ExternalIPAddress, s.Port()) }

func (s *Server) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Server) NumConnections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Clients returns the live clients in connection order.
func (s *Server) Clients() []*core.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*core.Client(nil), s.clients...)
}

// ActiveTimer reports which timer is recorded, fired or not.
func (s *Server) ActiveTimer() TimerKind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timerKind
}

func (s *Server) Registry() *core.Registry { return s.registry }
