package lobby

import (
	"context"

	"github.com/dkeye/quizhub/internal/domain"
)

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

// Store is the persistence a lobby needs.
type Store interface {
	// NewGame registers id, failing with domain.ErrGameExists when it is taken
	// unless force is set, in which case the row is replaced.
	NewGame(ctx context.Context, id domain.GameID, force bool) error
	StoreGame(ctx context.Context, rec domain.GameRecord) error
	RemoveGame(ctx context.Context, id domain.GameID) error
}
