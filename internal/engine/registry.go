package engine

import "sync"

// Registry lazily creates one Controller per conversation.
type Registry struct {
	deps Deps

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewRegistry creates an empty registry sharing deps across controllers.
func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps, controllers: make(map[string]*Controller)}
}

// For returns the controller for convID, creating it on first use.
func (r *Registry) For(convID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[convID]
	if !ok {
		c = NewController(convID, r.deps)
		r.controllers[convID] = c
	}
	return c
}

// Lookup returns an existing controller without creating one.
func (r *Registry) Lookup(convID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[convID]
	return c, ok
}
