// Package app wires game lobbies to their session servers.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/quizhub/internal/app/server"
	"github.com/dkeye/quizhub/internal/core"
	"github.com/dkeye/quizhub/internal/domain"
	"github.com/dkeye/quizhub/internal/lobby"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultPortScanLimit = 100

var ErrNotOwner = errors.New("game belongs to another session")

// TransportFactory builds a fresh transport for every bind attempt.
type TransportFactory func() core.Transport

type ManagerConfig struct {
	ExternalIPAddress string
	// StaticPort > 0 makes the manager scan upwards from it for a free port;
	// 0 binds an ephemeral one.
	StaticPort     int
	PortScanLimit  int
	InitialTimeout time.Duration
	IdleTimeout    time.Duration

	MaxRetries  *int
	MinPlayers  int
	MaxPlayers  int
	StaticID    domain.GameID
	IDGenerator lobby.IDGenerator

	SayRateLimit    int
	SayRateInterval time.Duration

	Clock clockwork.Clock
}

type Manager struct {
	cfg          ManagerConfig
	store        lobby.Store
	newTransport TransportFactory
	logger       zerolog.Logger

	mu     sync.RWMutex
	games  map[domain.GameID]*GameSession
	owners map[domain.GameID]string
}

func NewManager(cfg ManagerConfig, store lobby.Store, newTransport TransportFactory) *Manager {
	if cfg.PortScanLimit <= 0 {
		cfg.PortScanLimit = DefaultPortScanLimit
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		newTransport: newTransport,
		logger:       log.With().Str("module", "app.manager").Logger(),
		games:        make(map[domain.GameID]*GameSession),
		owners:       make(map[domain.GameID]string),
	}
}

// Create starts a session server, then registers a lobby advertising its address.
// owner identifies the creator for Stop.
func (m *Manager) Create(ctx context.Context, owner string) (*GameSession, error) {
	session := newGameSession(NewRateLimiter(m.cfg.SayRateLimit, m.cfg.SayRateInterval, m.cfg.Clock))

	srv, err := m.listen(session)
	if err != nil {
		return nil, err
	}

	game, err := lobby.New(ctx, m.store, lobby.Options{
		ExternalIPAddress: srv.ExternalIPAddress(),
		Port:              srv.Port(),
		MaxRetries:        m.cfg.MaxRetries,
		MinPlayers:        m.cfg.MinPlayers,
		MaxPlayers:        m.cfg.MaxPlayers,
		StaticID:          m.cfg.StaticID,
		IDGenerator:       m.cfg.IDGenerator,
	})
	if err != nil {
		_ = srv.Stop()
		return nil, err
	}
	session.bind(srv, game)

	m.mu.Lock()
	if prev, ok := m.games[game.ID()]; ok {
		// A static id replaces the previous game.
		_ = prev.Server().Stop()
	}
	m.games[game.ID()] = session
	m.owners[game.ID()] = owner
	m.mu.Unlock()

	m.logger.Info().Str("game_id", string(game.ID())).Str("addr", srv.Address()).Msg("game created")
	if session.register() {
		m.expire(session)
	}
	return session, nil
}

// listen binds the first free port, scanning upwards from StaticPort when set.
func (m *Manager) listen(session *GameSession) (*server.Server, error) {
	ports := []int{0}
	if m.cfg.StaticPort > 0 {
		ports = make([]int, 0, m.cfg.PortScanLimit)
		for p := m.cfg.StaticPort; p < m.cfg.StaticPort+m.cfg.PortScanLimit && p <= 65535; p++ {
			ports = append(ports, p)
		}
	}

	var lastErr error
	for _, port := range ports {
		srv := server.New(server.Config{
			ExternalIPAddress: m.cfg.ExternalIPAddress,
			Port:              port,
			InitialTimeout:    m.cfg.InitialTimeout,
			IdleTimeout:       m.cfg.IdleTimeout,
			Clock:             m.cfg.Clock,
		}, m.newTransport(), session, server.Hooks{
			ClientConnected:    session.clientConnected,
			ClientDisconnected: session.clientDisconnected,
			IdleTimeout:        func() { m.expire(session) },
		})
		if lastErr = srv.Start(); lastErr == nil {
			return srv, nil
		}
		m.logger.Debug().Err(lastErr).Int("port", port).Msg("port unavailable")
	}
	return nil, fmt.Errorf("no port available: %w", lastErr)
}

func (m *Manager) expire(session *GameSession) {
	if session.deferIdle() {
		// Create is still running and expires the session once it is registered.
		return
	}
	game := session.Game()
	m.logger.Info().Str("game_id", string(game.ID())).Msg("game idle, stopping")
	if err := m.remove(context.Background(), game.ID(), session); err != nil {
		m.logger.Error().Err(err).Str("game_id", string(game.ID())).Msg("stop idle game failed")
	}
}

func (m *Manager) Get(id domain.GameID) (*GameSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.games[id]
	return s, ok
}

// List returns the running games ordered by id.
func (m *Manager) List() []Info {
	m.mu.RLock()
	sessions := make([]*GameSession, 0, len(m.games))
	for _, s := range m.games {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Info())
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return out
}

// Stop quits a game on behalf of owner.
func (m *Manager) Stop(ctx context.Context, id domain.GameID, owner string) error {
	m.mu.RLock()
	session, ok := m.games[id]
	creator := m.owners[id]
	m.mu.RUnlock()
	if !ok {
		return domain.ErrGameNotFound
	}
	if creator != owner {
		return ErrNotOwner
	}
	return m.remove(ctx, id, session)
}

// remove forgets session if it is still the one registered under id, then stops it.
func (m *Manager) remove(ctx context.Context, id domain.GameID, session *GameSession) error {
	m.mu.Lock()
	if m.games[id] != session {
		m.mu.Unlock()
		return domain.ErrGameNotFound
	}
	delete(m.games, id)
	delete(m.owners, id)
	m.mu.Unlock()

	if err := session.stop(ctx); err != nil {
		return err
	}
	m.logger.Info().Str("game_id", string(id)).Msg("game stopped")
	return nil
}

// Shutdown stops every running game.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	ids := make([]domain.GameID, 0, len(m.games))
	sessions := make([]*GameSession, 0, len(m.games))
	for id, s := range m.games {
		ids = append(ids, id)
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	var errs []error
	for i, id := range ids {
		if err := m.remove(ctx, id, sessions[i]); err != nil && !errors.Is(err, domain.ErrGameNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
