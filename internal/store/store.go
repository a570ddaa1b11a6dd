// Package store persists game records.
package store

import (
	"context"
	"fmt"

	"github.com/dkeye/quizhub/internal/domain"
	"github.com/dkeye/quizhub/internal/lobby"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// GameStore is what the rest of the application needs from a backend.
type GameStore interface {
	lobby.Store
	RetrieveGame(ctx context.Context, id domain.GameID) (domain.GameRecord, error)
	ListGames(ctx context.Context) ([]domain.GameRecord, error)
	Close(ctx context.Context) error
}

type Options struct {
	Driver        string
	MongoURI      string
	MongoDatabase string
	PostgresDSN   string
}

// Open connects to the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (GameStore, error) {
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverMongo:
		m, err := OpenMongo(ctx, opts.MongoURI, opts.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return m, nil
	case DriverPostgres:
		p, err := OpenPostgres(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
