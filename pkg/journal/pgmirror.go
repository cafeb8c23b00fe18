package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

// PGMirror writes an append-only, best-effort copy of every journal
// entry into Postgres, making an attested journal queryable by SQL
// without weakening the file-based attestation story. It never
// participates in VerifyIntegrity.
type PGMirror struct {
	db     *sql.DB
	logger *log.Logger
}

// PGMirrorOption configures a PGMirror at construction time.
type PGMirrorOption func(*PGMirror)

// WithPGLogger sets a custom logger for the mirror.
func WithPGLogger(logger *log.Logger) PGMirrorOption {
	return func(m *PGMirror) { m.logger = logger }
}

// NewPGMirror opens a connection pool against dsn and ensures the mirror
// table exists.
func NewPGMirror(dsn string, opts ...PGMirrorOption) (*PGMirror, error) {
	if dsn == "" {
		return nil, fmt.Errorf("journal: postgres mirror dsn must not be empty")
	}

	m := &PGMirror{
		logger: log.New(os.Stderr, "[journal-pgmirror] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(m)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open postgres mirror: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: ping postgres mirror: %w", err)
	}

	if _, err := db.ExecContext(ctx, createMirrorTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create mirror table: %w", err)
	}

	m.db = db
	return m, nil
}

const createMirrorTableSQL = `
CREATE TABLE IF NOT EXISTS journal_entries (
	sequence   BIGINT PRIMARY KEY,
	tx_id      TEXT NOT NULL,
	hash       TEXT NOT NULL,
	prev_hash  TEXT,
	canonical  JSONB NOT NULL,
	mirrored_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Write inserts entry into the mirror table, ignoring a duplicate
// sequence (a replayed Append, e.g. after a crash-restart reload).
func (m *PGMirror) Write(entry Entry) error {
	canon, err := entry.Transaction.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("journal: canonicalize for mirror: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = m.db.ExecContext(ctx,
		`INSERT INTO journal_entries (sequence, tx_id, hash, prev_hash, canonical)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (sequence) DO NOTHING`,
		entry.Sequence, entry.Transaction.ID, hashHex(entry.Hash), hashHex(entry.PrevHash), canon,
	)
	return err
}

// Close closes the underlying connection pool.
func (m *PGMirror) Close() error {
	return m.db.Close()
}
