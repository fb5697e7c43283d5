package approval

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Registry keeps one started dashboard per provider alive between requests.
type Registry struct {
	repo   ReservationSource
	logger *zap.Logger

	mu         sync.Mutex
	dashboards map[string]*Dashboard
	closed     bool
}

func NewRegistry(repo ReservationSource, logger *zap.Logger) *Registry {
	return &Registry{repo: repo, logger: logger, dashboards: make(map[string]*Dashboard)}
}

// Get returns the provider's dashboard, starting it on first use. The
// subscription outlives ctx; it ends with Close or CloseAll.
func (r *Registry) Get(ctx context.Context, providerID string) (*Dashboard, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrStopped
	}
	if d, ok := r.dashboards[providerID]; ok {
		r.mu.Unlock()
		return d, nil
	}
	r.mu.Unlock()

	// Subscribe outside the lock; a concurrent Get for the same provider may
	// win the race, in which case this dashboard is discarded.
	d := NewDashboard(providerID, r.repo, r.logger)
	if err := d.Start(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		d.Stop()
		return nil, ErrStopped
	}
	if existing, ok := r.dashboards[providerID]; ok {
		r.mu.Unlock()
		d.Stop()
		return existing, nil
	}
	r.dashboards[providerID] = d
	r.mu.Unlock()
	r.logger.Debug("approval: dashboard started", zap.String("providerID", providerID))
	return d, nil
}

// Close stops and forgets the provider's dashboard.
func (r *Registry) Close(providerID string) {
	r.mu.Lock()
	d, ok := r.dashboards[providerID]
	delete(r.dashboards, providerID)
	r.mu.Unlock()
	if ok {
		d.Stop()
	}
}

// CloseAll stops every dashboard and refuses new ones.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.closed = true
	all := r.dashboards
	r.dashboards = make(map[string]*Dashboard)
	r.mu.Unlock()
	for _, d := range all {
		d.Stop()
	}
}
