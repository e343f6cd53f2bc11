package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mallmap/core/internal/ports"
)

// DefaultDocumentName is the row key used when none is configured.
const DefaultDocumentName = "malls"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS mall_documents (
	name       TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SQL stores the document as one row of mall_documents. It works on both
// postgres (lib/pq) and sqlite (modernc) connections.
type SQL struct {
	db   *sqlx.DB
	name string
}

// NewSQL returns a SQL store keyed by name.
func NewSQL(db *sqlx.DB, name string) *SQL {
	if name == "" {
		name = DefaultDocumentName
	}
	return &SQL{db: db, name: name}
}

// EnsureSchema creates mall_documents on sqlite. Postgres schemas are owned
// by the migrations directory.
func (s *SQL) EnsureSchema(ctx context.Context) error {
	if s.db.DriverName() != "sqlite" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create mall_documents: %w", err)
	}
	return nil
}

func (s *SQL) Read(ctx context.Context) ([]byte, error) {
	query := s.db.Rebind(`SELECT body FROM mall_documents WHERE name = ?`)

	var body []byte
	err := s.db.GetContext(ctx, &body, query, s.name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("select mall document: %w", err)
	}
	return body, nil
}

func (s *SQL) Write(ctx context.Context, data []byte) error {
	query := s.db.Rebind(`
		INSERT INTO mall_documents (name, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`)

	if _, err := s.db.ExecContext(ctx, query, s.name, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert mall document: %w", err)
	}
	return nil
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQL) Name() string { return s.db.DriverName() }
