package transcription

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/provider"
)

// Registry holds the backends that passed their availability check at
// startup, ordered by priority.
//
// Availability is re-checked on selection because some backends lose it
// at runtime (the OpenAI daily quota, a sidecar going away).
type Registry struct {
	backends []Backend
	log      *logger.Logger
}

// NewRegistry probes every backend, drops unavailable ones and sorts the
// rest ascending by priority. Configuration order breaks ties.
func NewRegistry(ctx context.Context, backends []Backend) *Registry {
	log := logger.Get("transcription")
	available := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b == nil {
			continue
		}
		if !b.IsAvailable(ctx) {
			log.Info("Backend unavailable, skipping", logger.Fields(logger.FieldBackend, b.Name()))
			continue
		}
		available = append(available, b)
	}
	sorted := provider.SortByPriority(available)
	for _, b := range sorted {
		log.Info("Backend registered", logger.Fields(logger.FieldBackend, b.Name(), "priority", b.Priority()))
	}
	return &Registry{backends: sorted, log: log}
}

// Best returns the highest-priority backend that is still available, or nil.
func (r *Registry) Best(ctx context.Context) Backend {
	return r.selectBackend(ctx, nil)
}

// ForModel returns the highest-priority available backend supporting model, or nil.
func (r *Registry) ForModel(ctx context.Context, model string) Backend {
	return r.selectBackend(ctx, func(b Backend) bool { return b.SupportsModel(model) })
}

func (r *Registry) selectBackend(ctx context.Context, match func(Backend) bool) Backend {
	sel := &provider.RankSelector[Backend]{Filter: func(b Backend) bool {
		return (match == nil || match(b)) && b.IsAvailable(ctx)
	}}
	b, err := sel.Select(ctx, r.backends)
	if err != nil {
		return nil
	}
	return b
}

// ByName returns the named backend, or nil when it was not registered.
func (r *Registry) ByName(name string) Backend {
	for _, b := range r.backends {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

// Available returns the registered backends in priority order.
func (r *Registry) Available() []Backend {
	out := make([]Backend, len(r.backends))
	copy(out, r.backends)
	return out
}

// Info describes every registered backend with a fresh availability check.
func (r *Registry) Info(ctx context.Context) []Info {
	infos := make([]Info, 0, len(r.backends))
	for _, b := range r.backends {
		infos = append(infos, Info{
			Name:               b.Name(),
			Priority:           b.Priority(),
			SupportedModels:    b.SupportedModels(),
			SupportedLanguages: b.SupportedLanguages(),
			Available:          b.IsAvailable(ctx),
		})
	}
	return infos
}

// Len returns the number of registered backends.
func (r *Registry) Len() int { return len(r.backends) }

// Close releases every backend and joins their errors.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	for _, b := range r.backends {
		if err := b.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", b.Name(), err))
			r.log.Warn("Backend cleanup failed", logger.ErrorFields("close", err))
		}
	}
	return errors.Join(errs...)
}
