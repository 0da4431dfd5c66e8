package respond

import (
	"fmt"
	"sync"
)

// Registry owns the fixed catalog of responder strategies and tracks which
// one is active. Services are stateless with respect to the conversation log,
// so switching needs no data migration.
type Registry struct {
	mu       sync.RWMutex
	services map[string]Responder
	order    []string
	active   string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]Responder)}
}

// Register adds a service under id. The first registered service becomes
// active. Duplicate ids are rejected.
func (r *Registry) Register(id string, svc Responder) error {
	if id == "" {
		return fmt.Errorf("respond: service id is empty")
	}
	if svc == nil {
		return fmt.Errorf("respond: service %q is nil", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[id]; ok {
		return fmt.Errorf("respond: service %q already registered", id)
	}
	r.services[id] = svc
	r.order = append(r.order, id)
	if r.active == "" {
		r.active = id
	}
	return nil
}

// Switch makes the service registered under id the active one and returns it.
// An unknown id fails with ErrUnknownService and leaves the previous active
// service unchanged.
func (r *Registry) Switch(id string) (Responder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, id)
	}
	r.active = id
	return svc, nil
}

// Active returns the currently selected service, or nil when nothing has been
// registered yet.
func (r *Registry) Active() Responder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.services[r.active]
}

// ActiveID returns the id of the currently selected service.
func (r *Registry) ActiveID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Get returns the service registered under id.
func (r *Registry) Get(id string) (Responder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[id]
	return svc, ok
}

// List describes all registered services in registration order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		svc := r.services[id]
		infos = append(infos, Info{ID: id, Name: svc.Name(), Configured: svc.Configured()})
	}
	return infos
}

// SetCredential updates the credential of the service registered under id,
// whether or not it is active. Services without credentials fail with
// ErrNotCredentialed.
func (r *Registry) SetCredential(id, value string) error {
	r.mu.RLock()
	svc, ok := r.services[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownService, id)
	}
	cred, ok := svc.(Credentialed)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotCredentialed, id)
	}
	cred.SetCredential(value)
	return nil
}
