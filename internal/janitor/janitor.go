// Package janitor removes uploaded images that no diary entry references anymore.
//
// The janitor never decides on its own what is orphaned during an edit: callers pass
// either the exact references to drop (DeleteUnreferenced) or the complete set of live
// references (Sweep). Image references are matched to stored objects by basename.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"diaryapi/internal/storage"
)

// Metrics counts janitor outcomes.
type Metrics struct {
	deleted  prometheus.Counter
	failures prometheus.Counter
}

// NewMetrics registers the janitor counters on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diary_attachments_deleted_total",
			Help: "Total number of unreferenced attachment files removed.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "diary_attachment_delete_failures_total",
			Help: "Total number of attachment deletions that failed.",
		}),
	}
	for _, c := range []prometheus.Collector{m.deleted, m.failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Janitor deletes orphaned attachments from a storage backend.
type Janitor struct {
	store   storage.Storage
	log     *slog.Logger
	metrics *Metrics
}

// Option configures a Janitor.
type Option func(*Janitor)

// WithMetrics attaches counters updated on every deletion.
func WithMetrics(m *Metrics) Option {
	return func(j *Janitor) { j.metrics = m }
}

// New returns a Janitor working on store.
func New(store storage.Storage, logger *slog.Logger, opts ...Option) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Janitor{store: store, log: logger.With("component", "janitor")}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// DeleteUnreferenced removes the objects named by paths and returns how many were removed.
// Missing objects are skipped; other failures are logged. It never returns an error.
func (j *Janitor) DeleteUnreferenced(ctx context.Context, paths []string) int {
	removed := 0
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		key := storage.KeyFromPath(p)
		if key == "" {
			j.log.WarnContext(ctx, "skipping image reference without file name", "path", p)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if j.remove(ctx, key) {
			removed++
		}
	}
	return removed
}

// Sweep deletes every stored object whose basename is not among referenced.
// Only a failure to enumerate the backend is returned; per-object failures are logged.
func (j *Janitor) Sweep(ctx context.Context, referenced []string) (int, error) {
	keep := make(map[string]struct{}, len(referenced))
	for _, p := range referenced {
		if key := storage.KeyFromPath(p); key != "" {
			keep[key] = struct{}{}
		}
	}

	objects, err := j.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list attachments: %w", err)
	}

	removed := 0
	for _, obj := range objects {
		if _, ok := keep[obj.Key]; ok {
			continue
		}
		if j.remove(ctx, obj.Key) {
			removed++
		}
	}
	j.log.InfoContext(ctx, "attachment sweep finished", "scanned", len(objects), "removed", removed)
	return removed, nil
}

func (j *Janitor) remove(ctx context.Context, key string) bool {
	err := j.store.Delete(ctx, key)
	switch {
	case err == nil:
		j.log.DebugContext(ctx, "attachment removed", "key", key)
		if j.metrics != nil {
			j.metrics.deleted.Inc()
		}
		return true
	case errors.Is(err, storage.ErrObjectNotFound):
		return false
	default:
		j.log.ErrorContext(ctx, "attachment removal failed", "key", key, "error", err)
		if j.metrics != nil {
			j.metrics.failures.Inc()
		}
		return false
	}
}
