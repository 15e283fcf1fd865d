// Package cache stores assembled graphs keyed by input content and parsing
// configuration.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/graph"
	"github.com/dgallion1/docgraph/internal/rules"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_store.go -package=mocks github.com/dgallion1/docgraph/internal/cache Store

// Store is a graph cache.
type Store interface {
	Get(ctx context.Context, key string) (*graph.Document, bool, error)
	Put(ctx context.Context, key string, doc *graph.Document) error
}

// Key identifies a graph by input bytes, the extractor kind that reads
// them (see parser.Kind), resolved configuration, output options and schema
// version.
func Key(content []byte, kind string, p config.Parsing, includeStyle bool) string {
	sum := sha256.Sum256(content)
	style := "plain"
	if includeStyle {
		style = "style"
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s", hex.EncodeToString(sum[:]), kind, p.Fingerprint(), style, config.SchemaVersion)
}

// entry is the stored form of a graph. The validation report is not part
// of the graph's JSON, so it is kept beside it.
type entry struct {
	Document   *graph.Document `json:"document"`
	Validation *rules.Report   `json:"validation,omitempty"`
}

// SQLite is a Store backed by a single SQLite file.
type SQLite struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the cache at path. Use ":memory:" for a
// throwaway cache.
func Open(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	// One writer at a time.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect cache: %w", err)
	}
	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("cache %s: %w", p, err)
		}
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS graphs (
			key TEXT PRIMARY KEY,
			schema_version TEXT NOT NULL,
			document TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &SQLite{db: conn, path: path}, nil
}

// Get returns the cached graph for key, if any.
func (c *SQLite) Get(ctx context.Context, key string) (*graph.Document, bool, error) {
	var raw string
	err := c.db.QueryRowContext(ctx, `SELECT document FROM graphs WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	if e.Document == nil || e.Document.Root == nil {
		return nil, false, nil
	}
	e.Document.Validation = e.Validation
	return e.Document, true, nil
}

// Put stores doc under key, replacing any earlier entry.
func (c *SQLite) Put(ctx context.Context, key string, doc *graph.Document) error {
	raw, err := json.Marshal(entry{Document: doc, Validation: doc.Validation})
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO graphs (key, schema_version, document, created_at) VALUES (?, ?, ?, ?)`,
		key, doc.SchemaVersion, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Len reports the number of cached graphs.
func (c *SQLite) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM graphs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (c *SQLite) Close() error {
	return c.db.Close()
}
