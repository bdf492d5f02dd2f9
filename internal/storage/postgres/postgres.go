package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/ddgs/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id UUID PRIMARY KEY,
	endpoint TEXT NOT NULL,
	method TEXT NOT NULL,
	url TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	headers JSONB NOT NULL,
	body_size BIGINT NOT NULL,
	duration_ms BIGINT NOT NULL,
	profile TEXT NOT NULL,
	proxy TEXT NOT NULL,
	detected_bot BOOLEAN NOT NULL,
	detection_src TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	error TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS exchanges_created_at ON exchanges (created_at);
`

const columns = `id::text, endpoint, method, url, status_code, headers, body_size, duration_ms, profile, proxy, detected_bot, detection_src, created_at, error`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, e *storage.Exchange) error {
	headersJSON, err := json.Marshal(e.Headers)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	_, err = b.pool.Exec(ctx, `
	INSERT INTO exchanges (
		id, endpoint, method, url, status_code, headers, body_size, duration_ms, profile, proxy, detected_bot, detection_src, created_at, error
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID,
		e.Endpoint,
		e.Method,
		e.URL,
		e.StatusCode,
		headersJSON,
		e.BodySize,
		e.Duration.Milliseconds(),
		e.Profile,
		e.Proxy,
		e.DetectedBot,
		e.DetectionSrc,
		e.CreatedAt,
		e.Error,
	)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Exchange, error) {
	clause, args := filter.SQL(storage.Postgres)

	rows, err := b.pool.Query(ctx, `SELECT `+columns+` FROM exchanges`+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*storage.Exchange, error) {
		var (
			e           storage.Exchange
			headersJSON []byte
			durationMs  int64
		)
		err := row.Scan(
			&e.ID, &e.Endpoint, &e.Method, &e.URL, &e.StatusCode, &headersJSON, &e.BodySize,
			&durationMs, &e.Profile, &e.Proxy, &e.DetectedBot, &e.DetectionSrc, &e.CreatedAt, &e.Error,
		)
		if err != nil {
			return nil, err
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal(headersJSON, &e.Headers); err != nil {
			return nil, err
		}
		return &e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	return out, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
