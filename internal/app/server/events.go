package server

import (
	"fmt"
	"slices"
	"time"

	"github.com/dkeye/quizhub/internal/core"
)

// ClientConnected implements core.TransportHandler.
func (s *Server) ClientConnected(conn core.Conn) {
	s.serial.Lock()
	defer s.serial.Unlock()

	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	if _, dup := s.byConn[conn]; dup {
		s.mu.Unlock()
		return
	}
	c := core.NewClient(conn)
	s.clients = append(s.clients, c)
	s.byConn[conn] = c
	s.mu.Unlock()

	if err := s.Send(c, fmt.Sprintf("Welcome %s\n", c.Name())); err != nil {
		s.logger.Debug().Err(err).Str("client", c.Name()).Msg("welcome send failed")
	}
	s.Broadcast(fmt.Sprintf("%s joined the server\n", c.Name()), c)
	s.registry.Add(c)

	s.mu.Lock()
	s.stopTimerIfNecessaryLocked()
	s.mu.Unlock()

	s.logger.Info().Str("client", c.Name()).Int("connections", s.NumConnections()).Msg("client connected")
	if s.hooks.ClientConnected != nil {
		s.hooks.ClientConnected(c)
	}
}

// ClientText implements core.TransportHandler.
func (s *Server) ClientText(conn core.Conn, text string) {
	s.serial.Lock()
	defer s.serial.Unlock()

	c := s.lookup(conn)
	if c == nil {
		s.logger.Debug().Str("addr", conn.RemoteAddr()).Msg("text from unknown connection")
		return
	}
	s.registry.Receive(c, text)
}

// ClientClosed implements core.TransportHandler.
func (s *Server) ClientClosed(conn core.Conn, code int, reason string) {
	s.serial.Lock()
	defer s.serial.Unlock()

	s.mu.Lock()
	c, ok := s.byConn[conn]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.byConn, conn)
	s.clients = slices.DeleteFunc(s.clients, func(other *core.Client) bool { return other == c })
	s.mu.Unlock()

	s.Broadcast(fmt.Sprintf("%s left the server: %d - %s\n", c.Name(), code, reason), nil)
	s.registry.Remove(c)

	s.mu.Lock()
	s.startTimerLocked(TimerIdle, s.cfg.IdleTimeout)
	s.mu.Unlock()

	s.logger.Info().
		Str("client", c.Name()).
		Int("code", code).
		Str("reason", reason).
		Int("connections", s.NumConnections()).
		Msg("client disconnected")
	if s.hooks.ClientDisconnected != nil {
		s.hooks.ClientDisconnected(c)
	}
}

// ClientError implements core.TransportHandler.
func (s *Server) ClientError(conn core.Conn, err error) {
	name := conn.RemoteAddr()
	if c := s.lookup(conn); c != nil {
		name = c.Name()
	}
	s.logger.Error().Err(err).Str("client", name).Msg("client generated error")
}

func (s *Server) lookup(conn core.Conn) *core.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byConn[conn]
}

// startTimerLocked arms a timer of the given kind when none is recorded, nobody is
// connected and the server is listening.
func (s *Server) startTimerLocked(kind TimerKind, d time.Duration) {
	if s.timer != nil || len(s.clients) != 0 || s.state != StateListening {
		return
	}
	s.timerGen++
	gen := s.timerGen
	s.timerKind = kind
	// Hooks never run on the clock's goroutine.
	s.timer = s.cfg.Clock.AfterFunc(d, func() { go s.timerFired(gen) })
	s.logger.Debug().Str("timer", kind.String()).Dur("after", d).Msg("timer armed")
}

func (s *Server) stopTimerIfNecessaryLocked() {
	if s.timer == nil || len(s.clients) == 0 {
		return
	}
	s.cancelTimerLocked()
}

func (s *Server) cancelTimerLocked() {
	if s.timer == nil {
		return
	}
	s.timer.Stop()
	s.logger.Debug().Str("timer", s.timerKind.String()).Msg("timer cancelled")
	s.timer = nil
	s.timerKind = TimerNone
	s.timerGen++
}

func (s *Server) timerFired(gen uint64) {
	s.serial.Lock()
	defer s.serial.Unlock()

	s.mu.RLock()
	current := s.timer != nil && gen == s.timerGen
	kind := s.timerKind
	s.mu.RUnlock()
	if !current {
		return
	}

	s.logger.Info().Str("timer", kind.String()).Int("port", s.Port()).Msg("idle timeout")
	if s.hooks.IdleTimeout != nil {
		s.hooks.IdleTimeout()
	}
}
