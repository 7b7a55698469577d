// Package memory provides the in-memory implementation of the mineral
// persistence store. It is the authoritative copy of the collection for every
// backend; the SQL stores mirror it.
package memory

import (
	"context"
	"sync"

	"mineralcatalog/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// Shorthands for the domain types this package stores.
type (
	Mineral         = domain.Mineral
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
)

// CommitHook runs with the store lock held, after a transaction function
// succeeded and before its result becomes visible. A hook error aborts the
// commit.
type CommitHook func(ctx context.Context, minerals []Mineral) error

// Option configures a Store.
type Option func(*Store)

// WithCommitHook installs a hook used by mirroring backends.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) { s.onCommit = hook }
}

// Store keeps the ordered collection guarded by a single lock.
type Store struct {
	mu       sync.RWMutex
	minerals []Mineral
	onCommit CommitHook
}

// NewStore constructs an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{minerals: make([]Mineral, 0)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunInTransaction executes fn against a copy of the collection and commits
// the copy only when fn succeeds.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{minerals: domain.CloneMinerals(s.minerals)}
	if err := fn(tx); err != nil {
		return err
	}
	if s.onCommit != nil {
		if err := s.onCommit(ctx, tx.minerals); err != nil {
			return err
		}
	}
	s.minerals = tx.minerals
	return nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(TransactionView) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(view{minerals: s.minerals})
}

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// view reads the slice it was handed without copying; every accessor returns
// clones so the caller never aliases store memory.
type view struct {
	minerals []Mineral
}

func (v view) ListMinerals() []Mineral { return domain.CloneMinerals(v.minerals) }

func (v view) CountMinerals() int { return len(v.minerals) }

func (v view) FindMineral(id int) (Mineral, bool) {
	if i := indexOf(v.minerals, id); i >= 0 {
		return v.minerals[i].Clone(), true
	}
	return Mineral{}, false
}

type transaction struct {
	minerals []Mineral
}

func (tx *transaction) Snapshot() TransactionView { return view{minerals: tx.minerals} }

func (tx *transaction) CreateMineral(m Mineral) (Mineral, error) {
	if indexOf(tx.minerals, m.ID) >= 0 {
		return Mineral{}, &domain.DuplicateIDError{ID: m.ID}
	}
	tx.minerals = append(tx.minerals, m.Clone())
	return m.Clone(), nil
}

// UpdateMineral replaces the first slot carrying id. The replacement is stored
// verbatim, including an id that differs from the one it was addressed by.
func (tx *transaction) UpdateMineral(id int, replacement Mineral) (Mineral, error) {
	i := indexOf(tx.minerals, id)
	if i < 0 {
		return Mineral{}, domain.ErrMineralNotFound(id)
	}
	tx.minerals[i] = replacement.Clone()
	return replacement.Clone(), nil
}

func (tx *transaction) DeleteMineral(id int) int {
	kept := tx.minerals[:0]
	removed := 0
	for _, m := range tx.minerals {
		if m.ID == id {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	tx.minerals = kept
	return removed
}

func (tx *transaction) ReplaceAll(ms []Mineral) {
	tx.minerals = domain.CloneMinerals(ms)
}

func indexOf(ms []Mineral, id int) int {
	for i, m := range ms {
		if m.ID == id {
			return i
		}
	}
	return -1
}
