package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/quizhub/internal/app/server"
	"github.com/dkeye/quizhub/internal/core"
	"github.com/dkeye/quizhub/internal/domain"
	"github.com/dkeye/quizhub/internal/lobby"
	"github.com/dkeye/quizhub/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// GameSession pairs one Server with one lobby and applies the game commands
// clients send to it.
type GameSession struct {
	limiter *RateLimiter
	logger  zerolog.Logger

	mu     sync.RWMutex
	server *server.Server
	game   *lobby.Game
	// registered is set once the manager can find the session by id.
	registered bool
	// idlePending records an idle signal that arrived before registration.
	idlePending bool
}

func newGameSession(limiter *RateLimiter) *GameSession {
	return &GameSession{
		limiter: limiter,
		logger:  log.With().Str("module", "app.session").Logger(),
	}
}

func (s *GameSession) bind(srv *server.Server, game *lobby.Game) {
	s.mu.Lock()
	s.server = srv
	s.game = game
	s.mu.Unlock()
}

// register marks the session as findable and reports whether it went idle while
// it was still being created.
func (s *GameSession) register() (idle bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered = true
	return s.idlePending
}

// deferIdle records the idle signal unless the session is already registered,
// in which case the caller must expire it right away.
func (s *GameSession) deferIdle() (deferred bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registered {
		return false
	}
	s.idlePending = true
	return true
}

func (s *GameSession) Server() *server.Server {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.server
}

func (s *GameSession) Game() *lobby.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game
}

// Info is the externally visible summary of a running game.
type Info struct {
	ID          domain.GameID     `json:"id"`
	Address     string            `json:"address"`
	Port        int               `json:"port"`
	Status      domain.GameStatus `json:"status"`
	Players     []domain.Player   `json:"players"`
	Connections int               `json:"connections"`
}

func (s *GameSession) Info() Info {
	srv, game := s.Server(), s.Game()
	return Info{
		ID:          game.ID(),
		Address:     srv.ExternalIPAddress(),
		Port:        srv.Port(),
		Status:      game.Status(),
		Players:     game.Players(),
		Connections: srv.NumConnections(),
	}
}

// Dispatch implements core.Dispatcher.
func (s *GameSession) Dispatch(c *core.Client, cmd protocol.Command) {
	switch cmd.Verb {
	case protocol.VerbJoin:
		s.join(c, domain.GameID(cmd.Arg(0)))
	case protocol.VerbName:
		s.rename(c, cmd.Arg(0))
	case protocol.VerbSay:
		s.say(c, cmd.Text())
	case protocol.VerbLeave:
		s.leave(c)
	default:
		s.logger.Warn().Str("client", c.Name()).Str("command", cmd.Name).Msg("unknown command")
	}
}

func (s *GameSession) join(c *core.Client, id domain.GameID) {
	s.logger.Info().Str("client", c.Name()).Str("join", string(id)).Msg("join requested")
	if c.State() != core.StateNone {
		s.logger.Warn().Str("client", c.Name()).Str("join", string(id)).Msg("unexpected JOIN")
		return
	}
	srv, game := s.Server(), s.Game()
	if game == nil || id != game.ID() {
		s.logger.Warn().Str("client", c.Name()).Str("join", string(id)).Msg("join rejected")
		_ = c.Close()
		return
	}
	if !game.AddPlayer(domain.NewPlayer(domain.PlayerID(c.ID()), c.Name())) {
		s.logger.Warn().Str("client", c.Name()).Int("players", game.NumPlayers()).Msg("join rejected, lobby full")
		_ = c.Close()
		return
	}
	c.SetState(core.StateJoined)
	s.logger.Info().Str("client", c.Name()).Str("game_id", string(id)).Msg("join accepted")
	srv.Broadcast(fmt.Sprintf("JOINED %s", c.Name()), nil)
}

func (s *GameSession) rename(c *core.Client, name string) {
	if c.State() != core.StateJoined {
		_ = c.Close()
		return
	}
	if err := domain.ValidateName(name); err != nil {
		s.logger.Warn().Err(err).Str("client", c.Name()).Msg("invalid name")
		return
	}
	s.logger.Info().Str("client", c.Name()).Str("name", name).Msg("client renamed")
	s.Server().Broadcast(fmt.Sprintf("%s NAMED '%s'", c.Name(), name), nil)
	c.SetName(name)
	s.Game().RenamePlayer(domain.PlayerID(c.ID()), name)
}

func (s *GameSession) say(c *core.Client, msg string) {
	if c.State() != core.StateJoined {
		_ = c.Close()
		return
	}
	if !s.limiter.Allow(c.ID()) {
		s.logger.Warn().Str("client", c.Name()).Msg("SAY rate limit exceeded")
		return
	}
	s.logger.Debug().Str("client", c.Name()).Str("message", msg).Msg("client said")
	s.Server().Broadcast(fmt.Sprintf("%s SAID '%s'", c.Name(), msg), c)
}

func (s *GameSession) leave(c *core.Client) {
	_ = c.Close()
	c.SetState(core.StateExited)
}

func (s *GameSession) clientConnected(c *core.Client) {
	s.logger.Info().Str("client", c.Name()).Msg("client connected")
}

func (s *GameSession) clientDisconnected(c *core.Client) {
	s.logger.Info().Str("client", c.Name()).Msg("client disconnected")
	if game := s.Game(); game != nil {
		game.RemovePlayer(domain.PlayerID(c.ID()))
	}
	s.limiter.Forget(c.ID())
}

// stop shuts the server down and deletes the lobby record.
func (s *GameSession) stop(ctx context.Context) error {
	srv, game := s.Server(), s.Game()
	var srvErr error
	if srv != nil {
		srvErr = srv.Stop()
	}
	if game != nil {
		if err := game.Stop(ctx); err != nil {
			return err
		}
	}
	return srvErr
}
