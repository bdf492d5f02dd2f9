package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/ddgs/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id TEXT PRIMARY KEY,
	endpoint TEXT NOT NULL,
	method TEXT NOT NULL,
	url TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	headers TEXT NOT NULL,
	body_size INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	profile TEXT NOT NULL,
	proxy TEXT NOT NULL,
	detected_bot BOOLEAN NOT NULL,
	detection_src TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	error TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS exchanges_created_at ON exchanges (created_at);
`

const columns = `id, endpoint, method, url, status_code, headers, body_size, duration_ms, profile, proxy, detected_bot, detection_src, created_at, error`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	// Pages record concurrently; one connection keeps writers from
	// failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, e *storage.Exchange) error {
	headersJSON, err := json.Marshal(e.Headers)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	query := `INSERT INTO exchanges (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = b.db.ExecContext(ctx, query,
		e.ID,
		e.Endpoint,
		e.Method,
		e.URL,
		e.StatusCode,
		string(headersJSON),
		e.BodySize,
		e.Duration.Milliseconds(),
		e.Profile,
		e.Proxy,
		e.DetectedBot,
		e.DetectionSrc,
		e.CreatedAt.UTC(),
		e.Error,
	)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Exchange, error) {
	if filter.Since != nil {
		since := filter.Since.UTC()
		filter.Since = &since
	}
	clause, args := filter.SQL(storage.SQLite)

	rows, err := b.db.QueryContext(ctx, `SELECT `+columns+` FROM exchanges`+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	defer rows.Close()

	var out []*storage.Exchange
	for rows.Next() {
		var (
			e           storage.Exchange
			headersJSON string
			durationMs  int64
		)
		err := rows.Scan(
			&e.ID, &e.Endpoint, &e.Method, &e.URL, &e.StatusCode, &headersJSON, &e.BodySize,
			&durationMs, &e.Profile, &e.Proxy, &e.DetectedBot, &e.DetectionSrc, &e.CreatedAt, &e.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}

		e.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(headersJSON), &e.Headers); err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}
		out = append(out, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	return out, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
