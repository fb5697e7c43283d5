package role

import (
	"context"
	"sync"
	"time"

	"barberbook/models"

	"go.uber.org/zap"
)

// Status is the progress of a role resolution.
type Status string

const (
	StatusUndetermined Status = "undetermined"
	StatusResolved     Status = "resolved"
	StatusFailed       Status = "failed"
)

// Resolution is the role known for a session at a point in time. Role is only
// meaningful when Status is StatusResolved.
type Resolution struct {
	Status Status      `json:"status"`
	Role   models.Role `json:"role,omitempty"`
	Err    error       `json:"-"`
}

// Undetermined is the resolution of a session whose lookup is still pending.
var Undetermined = Resolution{Status: StatusUndetermined}

// Resolved wraps a resolver result.
func Resolved(role models.Role, err error) Resolution {
	if err != nil {
		return Resolution{Status: StatusFailed, Err: err}
	}
	return Resolution{Status: StatusResolved, Role: role}
}

// SessionNotifier publishes session begin and end events.
type SessionNotifier interface {
	OnSessionChange(fn func(models.SessionChange)) (cancel func())
}

// DefaultRoleTTL bounds how long a provider or customer resolution is reused
// before the profiles are read again.
const DefaultRoleTTL = time.Minute

type trackedSession struct {
	gen        int
	res        Resolution
	resolvedAt time.Time
}

// Tracker keeps the latest resolution per session, re-resolving every time
// the identity provider reports a change. Until the lookup completes the
// session reads as Undetermined.
type Tracker struct {
	resolver *Resolver
	logger   *zap.Logger
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]trackedSession
	cancel   func()
}

func NewTracker(resolver *Resolver, notifier SessionNotifier, logger *zap.Logger) *Tracker {
	t := &Tracker{
		resolver: resolver,
		logger:   logger,
		ttl:      DefaultRoleTTL,
		now:      time.Now,
		sessions: make(map[string]trackedSession),
	}
	t.cancel = notifier.OnSessionChange(t.handleChange)
	return t
}

// Current returns the stored resolution without triggering a lookup.
func (t *Tracker) Current(sessionID string) Resolution {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[sessionID]; ok {
		return s.res
	}
	return Undetermined
}

// Resolve returns the stored resolution while it is a fresh provider or
// customer role, and otherwise resolves the session now. Anonymous and failed
// outcomes are never reused, so a profile created later is picked up on the
// next call.
func (t *Tracker) Resolve(ctx context.Context, session *models.Session) Resolution {
	if session == nil || session.ID == "" {
		return Resolved(models.RoleAnonymous, nil)
	}

	t.mu.Lock()
	s, ok := t.sessions[session.ID]
	t.mu.Unlock()
	if ok && t.reusable(s) {
		return s.res
	}

	res := Resolved(t.resolver.Resolve(ctx, session))
	t.store(session.ID, s.gen, res)
	return res
}

func (t *Tracker) reusable(s trackedSession) bool {
	return s.res.Status == StatusResolved &&
		s.res.Role != models.RoleAnonymous &&
		t.now().Sub(s.resolvedAt) < t.ttl
}

// Close stops listening for session changes.
func (t *Tracker) Close() {
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *Tracker) handleChange(change models.SessionChange) {
	t.mu.Lock()
	gen := t.sessions[change.SessionID].gen + 1
	if change.Session == nil {
		delete(t.sessions, change.SessionID)
		t.mu.Unlock()
		return
	}
	t.sessions[change.SessionID] = trackedSession{gen: gen, res: Undetermined}
	t.mu.Unlock()

	session := *change.Session
	go func() {
		res := Resolved(t.resolver.Resolve(context.Background(), &session))
		if res.Err != nil {
			t.logger.Warn("role: resolution failed", zap.String("sessionID", session.ID), zap.Error(res.Err))
		}
		t.store(session.ID, gen, res)
	}()
}

// store records res unless a newer session change superseded generation gen.
// Generation 0 belongs to sessions resolved on demand, never announced.
func (t *Tracker) store(id string, gen int, res Resolution) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.sessions[id]
	if (ok && cur.gen != gen) || (!ok && gen != 0) {
		return
	}
	t.sessions[id] = trackedSession{gen: gen, res: res, resolvedAt: t.now()}
}
