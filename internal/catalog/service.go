// Package catalog implements the mineral record store operations: filtered
// listing, search, random pick, lookups, mutations, and statistics. All state
// lives behind a domain.PersistentStore; every operation is a single
// transaction or view over it.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"mineralcatalog/internal/logging"
	"mineralcatalog/pkg/domain"
)

// MetricsRecorder receives operation outcomes and the collection size after
// each committed mutation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	SetRecordCount(n int)
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the structured logger. Nil keeps the no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics installs a metrics recorder.
func WithMetrics(rec MetricsRecorder) Option {
	return func(s *Service) { s.metrics = rec }
}

// WithRand replaces the index picker used by Random. pick(n) must return a
// value in [0, n).
func WithRand(pick func(n int) int) Option {
	return func(s *Service) {
		if pick != nil {
			s.pick = pick
		}
	}
}

// Service exposes the catalog operations over a persistent store.
type Service struct {
	store   domain.PersistentStore
	logger  *slog.Logger
	metrics MetricsRecorder
	pick    func(n int) int
}

// NewService constructs a service backed by store. The store is not seeded;
// call Seed for the startup collection.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logging.Nop(),
		pick:   rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying persistence implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

// Seed replaces the collection with the fixed startup records.
func (s *Service) Seed(ctx context.Context) (err error) {
	defer s.observe(ctx, "seed", time.Now(), &err)
	var count int
	err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		tx.ReplaceAll(domain.SeedMinerals())
		count = tx.Snapshot().CountMinerals()
		return nil
	})
	if err != nil {
		return err
	}
	s.recordCount(count)
	s.logger.Info("catalog seeded", "records", count)
	return nil
}

// List returns the filtered [skip, skip+limit) window of the collection. An
// empty result is not an error.
func (s *Service) List(ctx context.Context, q ListQuery) (out []domain.Mineral, err error) {
	defer s.observe(ctx, "list", time.Now(), &err)
	err = s.store.View(ctx, func(v domain.TransactionView) error {
		out = q.Apply(v.ListMinerals())
		return nil
	})
	return out, err
}

// Search returns every record matching q. An empty result is reported as a
// not-found error.
func (s *Service) Search(ctx context.Context, q SearchQuery) (out []domain.Mineral, err error) {
	defer s.observe(ctx, "search", time.Now(), &err)
	err = s.store.View(ctx, func(v domain.TransactionView) error {
		out = q.Apply(v.ListMinerals())
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &domain.NotFoundError{Detail: domain.MsgNoMineralsFound}
	}
	return out, nil
}

// Random picks one record uniformly from the collection as it is at call time.
func (s *Service) Random(ctx context.Context) (picked domain.Mineral, err error) {
	defer s.observe(ctx, "random", time.Now(), &err)
	err = s.store.View(ctx, func(v domain.TransactionView) error {
		all := v.ListMinerals()
		if len(all) == 0 {
			return &domain.NotFoundError{Detail: domain.MsgNoMineralsAvailable}
		}
		picked = all[s.pick(len(all))]
		return nil
	})
	return picked, err
}

// Get returns the first record carrying id.
func (s *Service) Get(ctx context.Context, id int) (found domain.Mineral, err error) {
	defer s.observe(ctx, "get", time.Now(), &err)
	err = s.store.View(ctx, func(v domain.TransactionView) error {
		m, ok := v.FindMineral(id)
		if !ok {
			return domain.ErrMineralNotFound(id)
		}
		found = m
		return nil
	})
	return found, err
}

// Create appends m. A record with the same id already present fails the call
// and leaves the collection untouched.
func (s *Service) Create(ctx context.Context, m domain.Mineral) (created domain.Mineral, err error) {
	defer s.observe(ctx, "create", time.Now(), &err)
	count, err := s.mutate(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateMineral(m)
		return err
	})
	if err != nil {
		return domain.Mineral{}, err
	}
	s.recordCount(count)
	s.logger.Info("mineral created", "id", created.ID, "name", created.Name)
	return created, nil
}

// Update replaces the first record carrying id with replacement, stored as
// supplied even when replacement.ID differs from id.
func (s *Service) Update(ctx context.Context, id int, replacement domain.Mineral) (updated domain.Mineral, err error) {
	defer s.observe(ctx, "update", time.Now(), &err)
	_, err = s.mutate(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateMineral(id, replacement)
		return err
	})
	if err != nil {
		return domain.Mineral{}, err
	}
	if updated.ID != id {
		s.logger.Warn("mineral id changed by update", "addressed_id", id, "stored_id", updated.ID)
	}
	s.logger.Info("mineral updated", "id", id)
	return updated, nil
}

// Delete removes every record carrying id and reports how many were removed.
// Deleting an absent id is not an error.
func (s *Service) Delete(ctx context.Context, id int) (removed int, err error) {
	defer s.observe(ctx, "delete", time.Now(), &err)
	count, err := s.mutate(ctx, func(tx domain.Transaction) error {
		removed = tx.DeleteMineral(id)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.recordCount(count)
	s.logger.Info("mineral deleted", "id", id, "removed", removed)
	return removed, nil
}

// Stats computes the collection summary.
func (s *Service) Stats(ctx context.Context) (stats domain.MineralStats, err error) {
	defer s.observe(ctx, "stats", time.Now(), &err)
	err = s.store.View(ctx, func(v domain.TransactionView) error {
		stats = ComputeStats(v.ListMinerals())
		return nil
	})
	return stats, err
}

// Snapshot returns a copy of the whole collection in stored order.
func (s *Service) Snapshot(ctx context.Context) (out []domain.Mineral, err error) {
	err = s.store.View(ctx, func(v domain.TransactionView) error {
		out = v.ListMinerals()
		return nil
	})
	return out, err
}

func (s *Service) mutate(ctx context.Context, fn func(domain.Transaction) error) (int, error) {
	var count int
	err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if err := fn(tx); err != nil {
			return err
		}
		count = tx.Snapshot().CountMinerals()
		return nil
	})
	return count, err
}

func (s *Service) recordCount(n int) {
	if s.metrics != nil {
		s.metrics.SetRecordCount(n)
	}
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, errp *error) {
	err := *errp
	if err != nil {
		var nf *domain.NotFoundError
		var dup *domain.DuplicateIDError
		if errors.As(err, &nf) || errors.As(err, &dup) {
			s.logger.Debug("catalog operation rejected", "operation", op, "error", err)
		} else {
			s.logger.Error("catalog operation failed", "operation", op, "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	}
}
