package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/dkeye/quizhub/internal/domain"
	"github.com/dkeye/quizhub/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every backend shares against a clean store.
func exerciseStore(t *testing.T, s store.GameStore) {
	ctx := context.Background()

	require.NoError(t, s.NewGame(ctx, "AB1C-DE2F", false))
	assert.ErrorIs(t, s.NewGame(ctx, "AB1C-DE2F", false), domain.ErrGameExists)
	require.NoError(t, s.NewGame(ctx, "AB1C-DE2F", true))

	rec := domain.GameRecord{ID: "AB1C-DE2F", ExternalIPAddress: "localhost", Port: 52683, Status: domain.StatusLobby}
	require.NoError(t, s.StoreGame(ctx, rec))

	got, err := s.RetrieveGame(ctx, "AB1C-DE2F")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	require.NoError(t, s.NewGame(ctx, "AA0A-AA0A", false))
	list, err := s.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.GameID("AA0A-AA0A"), list[0].ID)
	assert.Equal(t, rec, list[1])

	require.NoError(t, s.RemoveGame(ctx, "AB1C-DE2F"))
	assert.ErrorIs(t, s.RemoveGame(ctx, "AB1C-DE2F"), domain.ErrGameNotFound)
	_, err = s.RetrieveGame(ctx, "AB1C-DE2F")
	assert.ErrorIs(t, err, domain.ErrGameNotFound)

	require.NoError(t, s.RemoveGame(ctx, "AA0A-AA0A"))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, store.NewMemory())
}

func TestMemoryForceResetsRecord(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	require.NoError(t, s.StoreGame(ctx, domain.GameRecord{ID: "QUIZ", Port: 1, Status: domain.StatusPlaying}))
	require.NoError(t, s.NewGame(ctx, "QUIZ", true))

	got, err := s.RetrieveGame(ctx, "QUIZ")
	require.NoError(t, err)
	assert.Equal(t, domain.GameRecord{ID: "QUIZ"}, got)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := store.Open(context.Background(), store.Options{Driver: "redis"})
	assert.Error(t, err)
}

func TestOpenDefaultsToMemory(t *testing.T) {
	s, err := store.Open(context.Background(), store.Options{})
	require.NoError(t, err)
	assert.IsType(t, &store.Memory{}, s)
}

func TestMongo(t *testing.T) {
	uri := os.Getenv("QUIZHUB_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("QUIZHUB_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := store.OpenMongo(ctx, uri, "quizhub_test")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(ctx) })

	_ = s.RemoveGame(ctx, "AB1C-DE2F")
	_ = s.RemoveGame(ctx, "AA0A-AA0A")
	exerciseStore(t, s)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("QUIZHUB_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("QUIZHUB_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := store.OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(ctx) })

	_ = s.RemoveGame(ctx, "AB1C-DE2F")
	_ = s.RemoveGame(ctx, "AA0A-AA0A")
	exerciseStore(t, s)
}
