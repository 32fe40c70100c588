package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSnapshots persists document snapshots in the doc_snapshots
// table, versioned per document. The registry saves on eviction and
// loads the latest version on entry creation.
type PostgresSnapshots struct {
	pool *pgxpool.Pool
}

// NewPostgresSnapshots connects and pings the database.
func NewPostgresSnapshots(ctx context.Context, databaseURL string) (*PostgresSnapshots, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresSnapshots{pool: pool}, nil
}

func (s *PostgresSnapshots) Close() {
	s.pool.Close()
}

// Load returns the latest snapshot for a document, or (nil, nil) when
// none has been saved.
func (s *PostgresSnapshots) Load(ctx context.Context, documentID string) ([]byte, error) {
	var snapshot []byte
	err := s.pool.QueryRow(ctx, `
		SELECT snapshot
		FROM doc_snapshots
		WHERE doc_id = $1
		ORDER BY version DESC
		LIMIT 1
	`, documentID).Scan(&snapshot)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Save appends a new snapshot version for the document.
func (s *PostgresSnapshots) Save(ctx context.Context, documentID string, snapshot []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO doc_snapshots (doc_id, version, snapshot)
		SELECT $1, COALESCE(MAX(version), 0) + 1, $2
		FROM doc_snapshots WHERE doc_id = $1
	`, documentID, snapshot)
	return err
}
