package engine

import (
	"sync"

	"github.com/student/mdnsd/internal/mdnssd"
	"github.com/student/mdnsd/internal/wire"
)

// registry is the engine's registered-service table (spec §3 "Cache entry"
// / §4.3). It is read far more often (on every inbound query) than it is
// written (on register/deregister), so reads take only an RLock.
type registry struct {
	mu       sync.RWMutex
	byName   map[string]*mdnssd.Service // keyed by service_name, folded
	pointers map[string]int             // registration_pointer_name (folded) -> refcount
}

func newRegistry() *registry {
	return &registry{
		byName:   map[string]*mdnssd.Service{},
		pointers: map[string]int{},
	}
}

func (r *registry) lookup(name wire.Name) (*mdnssd.Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name.Fold()]
	return s, ok
}

// conflicts reports whether a service is already registered under name
// with a SRV target (port, hostname) that differs from the proposed one.
func (r *registry) conflicts(name wire.Name, port uint16, hostname string) bool {
	s, ok := r.lookup(name)
	if !ok {
		return false
	}
	return s.Port != port || s.Hostname != hostname
}

func (r *registry) insert(s *mdnssd.Service) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := s.ServiceName().Fold()
	r.byName[key] = s
	r.pointers[s.RegistrationPointerName().Fold()]++
}

func (r *registry) delete(s *mdnssd.Service) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := s.ServiceName().Fold()
	if _, ok := r.byName[key]; !ok {
		return
	}
	delete(r.byName, key)

	ptr := s.RegistrationPointerName().Fold()
	r.pointers[ptr]--
	if r.pointers[ptr] <= 0 {
		delete(r.pointers, ptr)
	}
}

// pointerNames returns every distinct registration_pointer_name with at
// least one registered service, for DNS-SD service-type enumeration.
func (r *registry) pointerNames() []wire.Name {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]wire.Name, 0, len(r.pointers))
	for _, s := range r.byName {
		// only emit one PTR per distinct pointer name; dedupe via a seen set
		// computed from the service table rather than the refcount map, so
		// the original casing of a registered service is preserved.
		found := false
		for _, n := range names {
			if n.Equal(s.RegistrationPointerName()) {
				found = true
				break
			}
		}
		if !found {
			names = append(names, s.RegistrationPointerName())
		}
	}
	return names
}

// servicesForPointer returns every registered service whose
// registration_pointer_name matches ptr.
func (r *registry) servicesForPointer(ptr wire.Name) []*mdnssd.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*mdnssd.Service
	for _, s := range r.byName {
		if s.RegistrationPointerName().Equal(ptr) {
			out = append(out, s)
		}
	}
	return out
}

// servicesForHostname returns every registered service published under
// hostname.
func (r *registry) servicesForHostname(hostname wire.Name) []*mdnssd.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*mdnssd.Service
	for _, s := range r.byName {
		if s.Hostname != "" && wire.Name(s.Hostname).Equal(hostname) {
			out = append(out, s)
		}
	}
	return out
}
