package domain

import "context"

// Transaction exposes the mutations a persistence implementation must support
// within an atomic scope. Changes become visible only when the enclosing
// RunInTransaction returns nil.
type Transaction interface {
	Snapshot() TransactionView
	CreateMineral(Mineral) (Mineral, error)
	UpdateMineral(id int, replacement Mineral) (Mineral, error)
	// DeleteMineral removes every record carrying id and returns how many
	// were removed.
	DeleteMineral(id int) int
	// ReplaceAll swaps the whole collection, used for seeding.
	ReplaceAll([]Mineral)
}

// TransactionView provides read-only access to a consistent snapshot in
// stored order.
type TransactionView interface {
	ListMinerals() []Mineral
	FindMineral(id int) (Mineral, bool)
	CountMinerals() int
}

// PersistentStore is the abstraction over the record collection backends.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	View(ctx context.Context, fn func(TransactionView) error) error
	Close() error
}
