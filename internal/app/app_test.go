package app_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/quizhub/internal/app"
	"github.com/dkeye/quizhub/internal/core"
	"github.com/dkeye/quizhub/internal/core/coretest"
	"github.com/dkeye/quizhub/internal/domain"
	"github.com/dkeye/quizhub/internal/lobby"
	"github.com/dkeye/quizhub/internal/store"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gameID = "AB1C-DE2F"

type fixture struct {
	clock *clockwork.FakeClock
	store *store.Memory
	mgr   *app.Manager

	mu         sync.Mutex
	busy       []int
	transports []*coretest.Transport
}

func counter() lobby.IDGenerator {
	n := 0
	return func() string {
		n++
		if n == 1 {
			return gameID
		}
		return fmt.Sprintf("ZZ%dZ-ZZ0Z", n%10)
	}
}

func newFixture(t *testing.T, cfg app.ManagerConfig) *fixture {
	t.Helper()
	f := &fixture{clock: clockwork.NewFakeClock(), store: store.NewMemory()}
	cfg.Clock = f.clock
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = counter()
	}
	f.mgr = app.NewManager(cfg, f.store, func() core.Transport {
		f.mu.Lock()
		defer f.mu.Unlock()
		tr := coretest.NewTransport(52683)
		tr.BusyPorts = f.busy
		f.transports = append(f.transports, tr)
		return tr
	})
	return f
}

func (f *fixture) transport() *coretest.Transport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transports[len(f.transports)-1]
}

func (f *fixture) create(t *testing.T) (*app.GameSession, *coretest.Transport) {
	t.Helper()
	s, err := f.mgr.Create(context.Background(), "owner")
	require.NoError(t, err)
	return s, f.transport()
}

func connect(tr *coretest.Transport, n int) *coretest.Conn {
	c := coretest.NewConnN(n)
	tr.Handler.ClientConnected(c)
	return c
}

func send(tr *coretest.Transport, c *coretest.Conn, text string) {
	tr.Handler.ClientText(c, text)
}

func hasPrefix(texts []string, prefix string) bool {
	for _, text := range texts {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

func TestCreateRegistersGame(t *testing.T) {
	f := newFixture(t, app.ManagerConfig{ExternalIPAddress: "10.0.0.1"})
	s, _ := f.create(t)

	info := s.Info()
	assert.Equal(t, domain.GameID(gameID), info.ID)
	assert.Equal(t, "10.0.0.1", info.Address)
	assert.Equal(t, 52683, info.Port)
	assert.Equal(t, domain.StatusLobby, info.Status)

	rec, err := f.store.RetrieveGame(context.Background(), gameID)
	require.NoError(t, err)
	assert.Equal(t, domain.GameRecord{ID: gameID, ExternalIPAddress: "10.0.0.1", Port: 52683, Status: domain.StatusLobby}, rec)

	got, ok := f.mgr.Get(gameID)
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestJoinWithWrongIDCloses(t *testing.T) {
	f := newFixture(t, app.ManagerConfig{})
	s, tr := f.create(t)

	bad := connect(tr, 1)
	other := connect(tr, 2)
	send(tr, bad, "JOIN ZZ9Z-ZZ9Z")

	assert.True(t, bad.Closed())
	assert.False(t, hasPrefix(bad.Texts(), "JOINED"))
	assert.False(t, hasPrefix(other.Texts(), "JOINED"))
	assert.Zero(t, s.Game().NumPlayers())
}

func TestJoinAccepted(t *testing.T) {
	f := newFixture(t, app.ManagerConfig{})
	s, tr := f.create(t)

	a := connect(tr, 1)
	b := connect(tr, 2)
	send(tr, a, "JOIN "+gameID)

	assert.False(t, a.Closed())
	assert.Contains(t, a.Texts(), "JOINED 127.0.0.1:40001")
	assert.Contains(t, b.Texts(), "JOINED 127.0.0.1:40001")
	assert.Equal(t, 1, s.Game().NumPlayers())

	// A second JOIN is a protocol violation that changes nothing.
	a.Reset()
	b.Reset()
	send(tr, a, "JOIN "+gameID)
	assert.False(t, a.Closed())
	assert.Empty(t, b.Texts())
	assert.Equal(t, 1, s.Game().NumPlayers())
}

func TestJoinRejectedWhenLobbyFull(t *testing.T) {
	f := newFixture(t, app.ManagerConfig{MaxPlayers: 1})
	_, tr := f.create(t)

	a := connect(tr, 1)
	b := connect(tr, 2)
	send(tr, a, "JOIN "+gameID)
	send(tr, b, "JOIN "+gameID)

	assert.False(t, a.Closed())
	assert.True(t, b.Closed())
}

func TestNameAndSay(t *testing.T) {
	f := newFixture(t, app.ManagerConfig{})
	s, tr := f.create(t)

	a := connect(tr, 1)
	b := connect(tr, 2)
	send(tr, a, "JOIN "+gameID+"; NAME 'Alice Smith'")
	send(tr, b, "JOIN "+gameID)
	a.Reset()
	b.Reset()

	send(tr, a, `SAY hello "big world"`)
	assert.Equal(t, []string{"Alice Smith SAID 'hello big world'"}, b.Texts())
	assert.Empty(t, a.Texts())

	players := s.Game().Players()
	require.Len(t, players, 2)
	assert.Equal(t, "Alice Smith", players[0].Name)
}

func TestNameBroadcastsBeforeRenaming(t *testing.T) {
	f := newFixture(t, app.ManagerConfig{})
	_, tr := f.create(t)

	a := connect(tr, 1)
	send(tr, a, "JOIN "+gameID)
	a.Reset()

	send(tr, a, "NAME bob")
	assert.Equal(t, []string{"127.0.0.1:40001 NAMED 'bob'"}, a.Texts())

	a.Reset()
	send(tr, a, "NAME "+strings.Repeat("x", domain.MaxNameLen+1))
	assert.Empty(t, a.Texts())
	assert.False(t, a.Closed())
}

func TestCommandsBeforeJoinClose(t *testing.T) {
	for _, text := range []string{"NAME bob", "SAY hi"} {
		t.Run(text, func(t *testing.T) {
			f := newFixture(t, app.ManagerConfig{})
			_, tr := f.create(t)

			a := connect(tr, 1)
			b := connect(tr, 2)
			send(tr, a, text)

			assert.True(t, a.Closed())
			assert.False(t, hasPrefix(b.Texts(), "127.0.0.1:40001 "))
		})
	}
}

func TestLeaveClosesAndRemovesPlayer(t *testing.T) {
	f := newFixture(t, app.ManagerConfig{})
	s, tr := f.create(t)

	a := connect(tr, 1)
	send(tr, a, "JOIN "+gameID+"; LEAVE")
	assert.True(t, a.Closed())
	assert.Equal(t, 1, s.Game().NumPlayers())

	tr.Handler.ClientClosed(a, 1000, "bye")
	assert.Zero(t, s.Game().NumPlayers())
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	f := newFixture(t, app.ManagerConfig{})
	_, tr := f.create(t)

	a := connect(tr, 1)
	a.Reset()
	send(tr, a, "join "+gameID+"; DANCE")
	assert.False(t, a.Closed())
	assert.Empty(t, a.Texts())
}

func TestSayRateLimit(t *testing.T) {
	f := newFixture(t, app.ManagerConfig{SayRateLimit: 2, SayRateInterval: time.Second})
	_, tr := f.create(t)

	a := connect(tr, 1)
	b := connect(tr, 2)
	send(tr, a, "JOIN "+gameID)
	b.Reset()

	send(tr, a, "SAY one; SAY two; SAY three")
	assert.Len(t, b.Texts(), 2)

	f.clock.Advance(time.Second)
	send(tr, a, "SAY four")
	assert.Len(t, b.Texts(), 3)
}

func TestIdleGameIsStopped(t *testing.T) {
	f := newFixture(t, app.ManagerConfig{IdleTimeout: 500 * time.Millisecond})
	_, tr := f.create(t)

	a := connect(tr, 1)
	tr.Handler.ClientClosed(a, 1000, "")
	f.clock.Advance(500 * time.Millisecond)

	assert.Eventually(t, func() bool {
		_, running := f.mgr.Get(gameID)
		_, err := f.store.RetrieveGame(context.Background(), gameID)
		return !running && err != nil
	}, time.Second, 5*time.Millisecond)
	assert.True(t, tr.Closed())
}

func TestUnusedGameIsStopped(t *testing.T) {
	f := newFixture(t, app.ManagerConfig{InitialTimeout: time.Second})
	_, tr := f.create(t)

	f.clock.Advance(time.Second)
	assert.Eventually(t, func() bool {
		_, running := f.mgr.Get(gameID)
		return !running && tr.Closed()
	}, time.Second, 5*time.Millisecond)
}

func TestPortScan(t *testing.T) {
	f := newFixture(t, app.ManagerConfig{StaticPort: 6000, PortScanLimit: 5})
	f.busy = []int{6000, 6001}

	s, _ := f.create(t)
	assert.Equal(t, 6002, s.Server().Port())
	assert.Len(t, f.transports, 3)
}

func TestPortScanExhausted(t *testing.T) {
	f := newFixture(t, app.ManagerConfig{StaticPort: 6000, PortScanLimit: 2})
	f.busy = []int{6000, 6001}

	_, err := f.mgr.Create(context.Background(), "owner")
	require.ErrorIs(t, err, coretest.ErrPortInUse)

	games, err := f.store.ListGames(context.Background())
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestStaticGameID(t *testing.T) {
	f := newFixture(t, app.ManagerConfig{StaticID: "QUIZ"})
	first, _ := f.create(t)
	second, _ := f.create(t)

	assert.Equal(t, domain.GameID("QUIZ"), second.Game().ID())
	got, ok := f.mgr.Get("QUIZ")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.NotSame(t, first, got)
}

func TestStopRequiresOwner(t *testing.T) {
	f := newFixture(t, app.ManagerConfig{})
	_, tr := f.create(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.mgr.Stop(ctx, "NOPE", "owner"), domain.ErrGameNotFound)
	assert.ErrorIs(t, f.mgr.Stop(ctx, gameID, "intruder"), app.ErrNotOwner)

	require.NoError(t, f.mgr.Stop(ctx, gameID, "owner"))
	_, ok := f.mgr.Get(gameID)
	assert.False(t, ok)
	assert.True(t, tr.Closed())
	_, err := f.store.RetrieveGame(ctx, gameID)
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
}

func TestListAndShutdown(t *testing.T) {
	f := newFixture(t, app.ManagerConfig{})
	f.create(t)
	f.create(t)

	list := f.mgr.List()
	require.Len(t, list, 2)
	assert.Equal(t, domain.GameID(gameID), list[0].ID)
	assert.Equal(t, domain.GameID("ZZ2Z-ZZ0Z"), list[1].ID)

	require.NoError(t, f.mgr.Shutdown(context.Background()))
	assert.Empty(t, f.mgr.List())
	games, err := f.store.ListGames(context.Background())
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestRateLimiter(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := app.NewRateLimiter(2, time.Minute, clock)

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	clock.Advance(time.Minute)
	assert.True(t, rl.Allow("a"))

	rl.Forget("b")
	assert.True(t, rl.Allow("b"))
	assert.True(t, rl.Allow("b"))
	assert.False(t, rl.Allow("b"))

	unlimited := app.NewRateLimiter(0, time.Minute, clock)
	for range 10 {
		assert.True(t, unlimited.Allow("a"))
	}
}

// advancingStore lets virtual time pass while a game id is being registered.
type advancingStore struct {
	*store.Memory
	clock *clockwork.FakeClock
	step  time.Duration
}

func (s *advancingStore) NewGame(ctx context.Context, id domain.GameID, force bool) error {
	s.clock.Advance(s.step)
	return s.Memory.NewGame(ctx, id, force)
}

func TestIdleDuringCreateStillStopsGame(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mem := store.NewMemory()
	tr := coretest.NewTransport(52683)
	mgr := app.NewManager(app.ManagerConfig{
		InitialTimeout: time.Second,
		Clock:          clock,
		IDGenerator:    counter(),
	}, &advancingStore{Memory: mem, clock: clock, step: time.Second}, func() core.Transport { return tr })

	_, err := mgr.Create(context.Background(), "owner")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, running := mgr.Get(gameID)
		_, err := mem.RetrieveGame(context.Background(), gameID)
		return !running && err != nil && tr.Closed()
	}, time.Second, 5*time.Millisecond)
}
