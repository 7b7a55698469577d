// Package sqlite provides a SQLite-mirrored mineral store. The in-memory
// store stays authoritative; every committed transaction rewrites the
// minerals table so external tools can query the live catalog.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mineralcatalog/internal/infra/persistence/memory"
	"mineralcatalog/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

const defaultPath = "mineralcatalog.db"

// Store mirrors the in-memory collection into a single SQLite table.
type Store struct {
	*memory.Store
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at path and ensures the mirror
// table exists. The mirror is not read back: the catalog reseeds on startup.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS minerals (
		position INTEGER PRIMARY KEY,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		chemical_composition TEXT NOT NULL,
		hardness REAL NOT NULL,
		origin TEXT NOT NULL,
		color TEXT,
		rarity TEXT
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create minerals table: %w", err)
	}
	s := &Store{db: db, path: path}
	s.Store = memory.NewStore(memory.WithCommitHook(s.persist))
	return s, nil
}

func (s *Store) persist(ctx context.Context, minerals []domain.Mineral) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM minerals`); err != nil {
		return fmt.Errorf("clear minerals: %w", err)
	}
	for i, m := range minerals {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO minerals(position,id,name,chemical_composition,hardness,origin,color,rarity) VALUES(?,?,?,?,?,?,?,?)`,
			i, m.ID, m.Name, m.ChemicalComposition, m.Hardness, m.Origin, nullable(m.Color), nullable(m.Rarity),
		); err != nil {
			return fmt.Errorf("insert mineral %d: %w", m.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadMirror reads the mirror table back in stored order.
func (s *Store) LoadMirror(ctx context.Context) ([]domain.Mineral, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, chemical_composition, hardness, origin, color, rarity FROM minerals ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("select minerals: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Mineral
	for rows.Next() {
		var m domain.Mineral
		var color, rarity sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &m.ChemicalComposition, &m.Hardness, &m.Origin, &color, &rarity); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		m.Color = fromNull(color)
		m.Rarity = fromNull(rarity)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate minerals: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return domain.StringPtr(v.String)
}
