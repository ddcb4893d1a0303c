// Package reconcile removes stored files that no document row references.
// Orphans appear when a crash lands between a file write and its metadata
// commit, or when a compensating delete fails. The sweep is the safety net
// that eventually reclaims them.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"lawdocs/internal/repository"
	"lawdocs/internal/storage"
)

var orphansRemoved = promauto.NewCounter(prometheus.CounterOpts{
	Name: "storage_orphan_files_removed_total",
	Help: "Total number of unreferenced files removed by the reconciliation sweep.",
})

// Sweeper compares the file store against the metadata repository and
// deletes files with no backing row.
type Sweeper struct {
	store  storage.BlobStore
	repo   repository.DocumentRepository
	minAge time.Duration
	logger *slog.Logger
}

// NewSweeper builds a Sweeper. minAge guards in-flight uploads: a file
// younger than minAge is never touched, because its row may not have been
// written yet.
func NewSweeper(store storage.BlobStore, repo repository.DocumentRepository, minAge time.Duration) *Sweeper {
	return &Sweeper{
		store:  store,
		repo:   repo,
		minAge: minAge,
		logger: slog.Default(),
	}
}

// Sweep runs a single reconciliation pass and returns the number of files
// removed. The referenced-name set is read before the store listing so a
// row committed mid-sweep can only make the set stale in the safe
// direction, keeping a just-uploaded file alive via the age guard.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	names, err := s.repo.StoredNames(ctx)
	if err != nil {
		return 0, err
	}
	referenced := make(map[string]struct{}, len(names))
	for _, n := range names {
		referenced[n] = struct{}{}
	}

	entries, err := s.store.Entries(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-s.minAge)
	removed := 0
	for _, e := range entries {
		if _, ok := referenced[e.Name]; ok {
			continue
		}
		if e.ModTime.After(cutoff) {
			continue
		}
		if err := s.store.Remove(ctx, e.Name); err != nil {
			s.logger.Warn("orphan removal failed", "stored_name", e.Name, "error", err)
			continue
		}
		s.logger.Info("removed orphaned file", "stored_name", e.Name)
		orphansRemoved.Inc()
		removed++
	}

	return removed, nil
}

// RunPeriodic sweeps immediately and then on every interval tick until the
// context is cancelled. Sweep errors are logged and the loop keeps going.
func (s *Sweeper) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if removed, err := s.Sweep(ctx); err != nil {
			s.logger.Error("reconciliation sweep failed", "error", err)
		} else if removed > 0 {
			s.logger.Info("reconciliation sweep finished", "removed", removed)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
