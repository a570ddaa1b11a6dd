// Package lobby holds a game's roster and lifecycle, independent of transport.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dkeye/quizhub/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxRetries = 10
	DefaultMinPlayers = 1
	DefaultMaxPlayers = 32
)

type Options struct {
	ExternalIPAddress string
	Port              int
	// MaxRetries counts attempts after the first; nil means DefaultMaxRetries.
	MaxRetries *int
	MinPlayers int
	MaxPlayers int
	// StaticID, when set, is used for every attempt and replaces any existing row.
	StaticID    domain.GameID
	IDGenerator IDGenerator
}

// Retries is a helper for Options.MaxRetries.
func Retries(n int) *int { return &n }

func (o Options) withDefaults() Options {
	if o.ExternalIPAddress == "" {
		o.ExternalIPAddress = "localhost"
	}
	if o.MaxRetries == nil || *o.MaxRetries < 0 {
		o.MaxRetries = Retries(DefaultMaxRetries)
	}
	if o.MinPlayers <= 0 {
		o.MinPlayers = DefaultMinPlayers
	}
	if o.MaxPlayers <= 0 {
		o.MaxPlayers = DefaultMaxPlayers
	}
	if o.MaxPlayers < o.MinPlayers {
		o.MaxPlayers = o.MinPlayers
	}
	if o.IDGenerator == nil {
		o.IDGenerator = FormatGenerator(DefaultIDFormat)
	}
	return o
}

type Game struct {
	store      Store
	id         domain.GameID
	externalIP string
	port       int
	minPlayers int
	maxPlayers int

	mu      sync.RWMutex
	status  domain.GameStatus
	players []domain.Player
}

// New registers a fresh unique id with store, retrying on domain.ErrGameExists up to
// opts.MaxRetries times, then persists the full lobby record. Any other error aborts
// at once; exhausting the retries returns the last conflict.
func New(ctx context.Context, store Store, opts Options) (*Game, error) {
	opts = opts.withDefaults()
	logger := log.With().Str("module", "lobby").Logger()

	var (
		id  domain.GameID
		err error
	)
	for attempt := 0; attempt <= *opts.MaxRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		id = opts.StaticID
		if id == "" {
			id = domain.GameID(opts.IDGenerator())
		}
		err = store.NewGame(ctx, id, opts.StaticID != "")
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrGameExists) {
			return nil, fmt.Errorf("register game %s: %w", id, err)
		}
		logger.Debug().Str("game_id", string(id)).Int("attempt", attempt+1).Msg("game id taken, retrying")
	}
	if err != nil {
		return nil, fmt.Errorf("register game after %d attempts: %w", *opts.MaxRetries+1, err)
	}

	g := &Game{
		store:      store,
		id:         id,
		externalIP: opts.ExternalIPAddress,
		port:       opts.Port,
		minPlayers: opts.MinPlayers,
		maxPlayers: opts.MaxPlayers,
		status:     domain.StatusLobby,
	}
	if err := store.StoreGame(ctx, g.Record()); err != nil {
		return nil, fmt.Errorf("store game %s: %w", id, err)
	}
	logger.Info().Str("game_id", string(id)).Msg("game created")
	return g, nil
}

func (g *Game) ID() domain.GameID { return g.id }
func (g *Game) MinPlayers() int   { return g.minPlayers }
func (g *Game) MaxPlayers() int   { return g.maxPlayers }

func (g *Game) Status() domain.GameStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

// Record is the persisted form of the lobby.
func (g *Game) Record() domain.GameRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return domain.GameRecord{
		ID:                g.id,
		ExternalIPAddress: g.externalIP,
		Port:              g.port,
		Status:            g.status,
	}
}

// AddPlayer rejects a full roster and duplicate ids.
func (g *Game) AddPlayer(p domain.Player) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.players) >= g.maxPlayers {
		return false
	}
	if slices.ContainsFunc(g.players, func(other domain.Player) bool { return other.ID == p.ID }) {
		return false
	}
	g.players = append(g.players, p)
	return true
}

func (g *Game) RemovePlayer(id domain.PlayerID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := slices.IndexFunc(g.players, func(p domain.Player) bool { return p.ID == id })
	if i < 0 {
		return false
	}
	g.players = slices.Delete(g.players, i, i+1)
	return true
}

func (g *Game) GetPlayer(id domain.PlayerID) (domain.Player, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i := slices.IndexFunc(g.players, func(p domain.Player) bool { return p.ID == id })
	if i < 0 {
		return domain.Player{}, false
	}
	return g.players[i], true
}

// RenamePlayer updates the display name of a roster entry.
func (g *Game) RenamePlayer(id domain.PlayerID, name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := slices.IndexFunc(g.players, func(p domain.Player) bool { return p.ID == id })
	if i < 0 {
		return false
	}
	g.players[i].Name = name
	return true
}

func (g *Game) Players() []domain.Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.players)
}

func (g *Game) NumPlayers() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.players)
}

func (g *Game) CanStart() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.canStartLocked()
}

func (g *Game) canStartLocked() bool { return len(g.players) >= g.minPlayers }

// Start moves the lobby to playing. Callers are expected to check CanStart first;
// a short roster or a stopped game yields domain.ErrCannotStart.
func (g *Game) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.canStartLocked() || g.status == domain.StatusStopped {
		return domain.ErrCannotStart
	}
	g.status = domain.StatusPlaying
	return nil
}

// Stop is terminal: the status becomes stopped and the record is deleted.
func (g *Game) Stop(ctx context.Context) error {
	g.mu.Lock()
	g.status = domain.StatusStopped
	g.mu.Unlock()

	if err := g.store.RemoveGame(ctx, g.id); err != nil {
		return fmt.Errorf("remove game %s: %w", g.id, err)
	}
	log.Info().Str("module", "lobby").Str("game_id", string(g.id)).Msg("game stopped")
	return nil
}
