package hooks

import (
	"context"
	"fmt"
	"sync"

	"meetingbridge/pkg/interfaces"
	"meetingbridge/pkg/types"
)

// ParameterFunc adapts a function to interfaces.ParameterAlterer
type ParameterFunc func(ctx context.Context, hc types.HookContext, params *types.MeetingParams) error

// AlterParameters calls f
func (f ParameterFunc) AlterParameters(ctx context.Context, hc types.HookContext, params *types.MeetingParams) error {
	return f(ctx, hc, params)
}

// SessionFunc adapts a function to interfaces.SessionAlterer
type SessionFunc func(ctx context.Context, hc types.HookContext, session *types.ResolvedSession) error

// AlterSession calls f
func (f SessionFunc) AlterSession(ctx context.Context, hc types.HookContext, session *types.ResolvedSession) error {
	return f(ctx, hc, session)
}

type namedParameterAlterer struct {
	name string
	interfaces.ParameterAlterer
}

type namedSessionAlterer struct {
	name string
	interfaces.SessionAlterer
}

// Registry runs extension hooks in registration order
// ARCHITECTURAL DISCOVERY: Hooks are registered explicitly at startup; the
// first hook returning an error vetoes the operation and later hooks do not
// run
type Registry struct {
	mu       sync.RWMutex
	params   []namedParameterAlterer
	sessions []namedSessionAlterer
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// AddParameterAlterer appends a parameter hook
func (r *Registry) AddParameterAlterer(name string, a interfaces.ParameterAlterer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params = append(r.params, namedParameterAlterer{name: name, ParameterAlterer: a})
}

// AddSessionAlterer appends a session hook
func (r *Registry) AddSessionAlterer(name string, a interfaces.SessionAlterer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, namedSessionAlterer{name: name, SessionAlterer: a})
}

// Names lists the registered hooks in run order
func (r *Registry) Names() (params, sessions []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.params {
		params = append(params, h.name)
	}
	for _, h := range r.sessions {
		sessions = append(sessions, h.name)
	}
	return params, sessions
}

// AlterParameters runs every parameter hook
func (r *Registry) AlterParameters(ctx context.Context, hc types.HookContext, params *types.MeetingParams) error {
	r.mu.RLock()
	hooks := r.params
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := h.AlterParameters(ctx, hc, params); err != nil {
			return fmt.Errorf("%s: %w", h.name, err)
		}
	}
	return nil
}

// AlterSession runs every session hook
func (r *Registry) AlterSession(ctx context.Context, hc types.HookContext, session *types.ResolvedSession) error {
	r.mu.RLock()
	hooks := r.sessions
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := h.AlterSession(ctx, hc, session); err != nil {
			return fmt.Errorf("%s: %w", h.name, err)
		}
	}
	return nil
}
