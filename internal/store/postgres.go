package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkeye/quizhub/internal/domain"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const uniqueViolation = "23505"

const schema = `CREATE TABLE IF NOT EXISTS games (
	id          TEXT PRIMARY KEY,
	external_ip TEXT NOT NULL DEFAULT '',
	port        INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL DEFAULT ''
)`

type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects with a lib/pq DSN and makes sure the games table exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	log.Info().Str("module", "store").Msg("connected to PostgreSQL")
	return NewPostgres(db), nil
}

// NewPostgres wraps an open handle. The games table must already exist.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) NewGame(ctx context.Context, id domain.GameID, force bool) error {
	q := `INSERT INTO games (id) VALUES ($1)`
	if force {
		q += ` ON CONFLICT (id) DO UPDATE SET external_ip = '', port = 0, status = ''`
	}
	_, err := p.db.ExecContext(ctx, q, string(id))
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrGameExists
	}
	return err
}

func (p *Postgres) StoreGame(ctx context.Context, rec domain.GameRecord) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO games (id, external_ip, port, status) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET external_ip = EXCLUDED.external_ip, port = EXCLUDED.port, status = EXCLUDED.status`,
		string(rec.ID), rec.ExternalIPAddress, rec.Port, string(rec.Status))
	return err
}

func (p *Postgres) RemoveGame(ctx context.Context, id domain.GameID) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrGameNotFound
	}
	return nil
}

func (p *Postgres) RetrieveGame(ctx context.Context, id domain.GameID) (domain.GameRecord, error) {
	var rec domain.GameRecord
	err := p.db.QueryRowContext(ctx, `SELECT id, external_ip, port, status FROM games WHERE id = $1`, string(id)).
		Scan(&rec.ID, &rec.ExternalIPAddress, &rec.Port, &rec.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GameRecord{}, domain.ErrGameNotFound
	}
	return rec, err
}

func (p *Postgres) ListGames(ctx context.Context) ([]domain.GameRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, external_ip, port, status FROM games ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := []domain.GameRecord{}
	for rows.Next() {
		var rec domain.GameRecord
		if err := rows.Scan(&rec.ID, &rec.ExternalIPAddress, &rec.Port, &rec.Status); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (p *Postgres) Close(context.Context) error {
	return p.db.Close()
}
