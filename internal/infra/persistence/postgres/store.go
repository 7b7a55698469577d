// Package postgres provides a Postgres-mirrored mineral store. It reuses the
// in-memory implementation for transactions and rewrites the minerals table
// on every commit.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"mineralcatalog/internal/infra/persistence/memory"
	"mineralcatalog/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/mineralcatalog?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store mirrors the in-memory collection to Postgres.
type Store struct {
	*memory.Store
	db *sql.DB
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN)
// and ensures the mirror table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{db: db}
	s.Store = memory.NewStore(memory.WithCommitHook(s.persist))
	return s, nil
}

func ensureTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS minerals (
		position INTEGER PRIMARY KEY,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		chemical_composition TEXT NOT NULL,
		hardness DOUBLE PRECISION NOT NULL,
		origin TEXT NOT NULL,
		color TEXT,
		rarity TEXT
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure minerals table: %w", err)
	}
	return nil
}

func (s *Store) persist(ctx context.Context, minerals []domain.Mineral) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `TRUNCATE TABLE minerals`); err != nil {
		return fmt.Errorf("truncate minerals: %w", err)
	}
	for i, m := range minerals {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO minerals(position,id,name,chemical_composition,hardness,origin,color,rarity) VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
			i, m.ID, m.Name, m.ChemicalComposition, m.Hardness, m.Origin, nullable(m.Color), nullable(m.Rarity),
		); err != nil {
			return fmt.Errorf("insert mineral %d: %w", m.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
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
			return nil, fmt.Errorf("scan mineral: %w", err)
		}
		if color.Valid {
			m.Color = domain.StringPtr(color.String)
		}
		if rarity.Valid {
			m.Rarity = domain.StringPtr(rarity.String)
		}
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

func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
