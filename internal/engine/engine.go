// Package engine is the core of the node (spec §4.3): it owns the record
// cache and the registered-service table, turns inbound queries into
// responses, applies inbound responses to the cache, and fans responses
// out to registered listeners (the announcer's probe listener, the
// resolver).
package engine

import (
	"sync"
	"time"

	"github.com/dogmatiq/dodeca/logging"

	"github.com/student/mdnsd/internal/announce"
	"github.com/student/mdnsd/internal/cache"
	"github.com/student/mdnsd/internal/config"
	"github.com/student/mdnsd/internal/mdnssd"
	"github.com/student/mdnsd/internal/wire"
)

// Sender is the outbound half of the channel interface the engine depends
// on (spec §6.4): a non-blocking per-interface multicast enqueue.
type Sender interface {
	Send(msg *wire.Message, ifaceIndex int) error
}

// ResponseListener is invoked for every inbound response message, in the
// order listeners were registered at the start of fan-out.
type ResponseListener func(msg *wire.Message, at time.Time)

// Endpoint describes where an inbound message arrived from (mirrors
// channel.Endpoint without importing the channel package, keeping engine
// free of a dependency on the transport).
type Endpoint struct {
	InterfaceIndex int
}

type messageWithSource struct {
	Message *wire.Message
	Src     Endpoint
}

type listenerEntry struct {
	id int
	fn ResponseListener
}

// Engine is the mDNS-SD protocol core.
type Engine struct {
	cfg    config.Config
	logger logging.Logger
	sender Sender

	cache    *cache.Cache
	registry *registry

	listenersMu sync.RWMutex
	listeners   []listenerEntry
	nextID      int
}

// New constructs an Engine. sender is used to emit query responses,
// probes, and announcements.
func New(cfg config.Config, logger logging.Logger, sender Sender) *Engine {
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		sender:   sender,
		cache:    cache.New(),
		registry: newRegistry(),
	}
}

// HandleInbound is the channel callback: it routes an inbound message to
// the query or response path, with the wall-clock instant of reception.
func (e *Engine) HandleInbound(msg *wire.Message, ifaceIndex int, at time.Time) {
	if msg.Response {
		e.handleResponse(&messageWithSource{Message: msg, Src: Endpoint{InterfaceIndex: ifaceIndex}}, at)
		return
	}

	res := e.handleQuery(msg, at)
	if res == nil {
		return
	}

	if err := e.sender.Send(res, ifaceIndex); err != nil {
		logging.Log(e.logger, "engine: unable to send query response: %s", err)
	}
}

// AddListener registers l and returns an id usable with RemoveListener.
func (e *Engine) AddListener(l ResponseListener) int {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()

	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listenerEntry{id, l})
	return id
}

// RemoveListener deregisters the listener previously returned by
// AddListener.
func (e *Engine) RemoveListener(id int) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()

	for i, le := range e.listeners {
		if le.id == id {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

// Cache exposes the engine's record cache, for the resolver's opportunistic
// cache fill (spec §4.5 step 1).
func (e *Engine) Cache() *cache.Cache {
	return e.cache
}

// Config returns the engine's configuration.
func (e *Engine) Config() config.Config {
	return e.cfg
}

func (e *Engine) defaultTTL() time.Duration {
	return e.cfg.DefaultTTL
}

func (e *Engine) defaultTTLSeconds() uint32 {
	return uint32(e.cfg.DefaultTTL / time.Second)
}

// announceAdapter satisfies announce.Host by forwarding to the engine's
// listener registry and sender, so the announcer never needs to import
// engine and the two packages stay acyclic.
type announceAdapter struct {
	e *Engine
}

func (a announceAdapter) Send(msg *wire.Message, ifaceIndex int) error {
	return a.e.sender.Send(msg, ifaceIndex)
}

func (a announceAdapter) AddListener(l announce.ResponseListener) int {
	return a.e.AddListener(ResponseListener(l))
}

func (a announceAdapter) RemoveListener(id int) {
	a.e.RemoveListener(id)
}

// Register registers s, probing for name/address conflicts first (spec
// §4.3 "Registration"). allowNameChange permits automatic renaming (§6.2)
// on collision; if false, any collision fails with ErrConflict.
func (e *Engine) Register(s *mdnssd.Service, allowNameChange bool) (*mdnssd.Service, error) {
	if !s.HasAddressing() {
		return nil, ErrUnknownAddressing
	}

	svc := *s

	for {
		if e.hasConflict(&svc) {
			if !allowNameChange {
				return nil, ErrConflict
			}
			svc.InstanceName = mdnssd.Rename(svc.InstanceName)
			continue
		}
		break
	}

	e.registry.insert(&svc)

	conflict, err := announce.Run(
		e.cfg,
		announceAdapter{e},
		&svc,
		e.defaultTTL(),
		time.Now,
	)
	if err != nil {
		e.registry.delete(&svc)
		return nil, err
	}
	if conflict {
		e.registry.delete(&svc)
		return nil, ErrConflict
	}

	return &svc, nil
}

// hasConflict implements spec §4.3 step 1: a conflict exists if either the
// cache holds a non-expired SRV under service_name with a different
// (port, server), or the engine's own table already has a differing
// registration under that name.
func (e *Engine) hasConflict(s *mdnssd.Service) bool {
	now := time.Now()

	if r, ok := e.cache.GetByKey(s.ServiceName(), wire.TypeSRV, wire.ClassIN, now); ok {
		if d, ok := r.Data.(wire.SRVData); ok {
			if d.Port != s.Port || !d.Target.Equal(wire.Name(s.Hostname)) {
				return true
			}
		}
	}

	return e.registry.conflicts(s.ServiceName(), s.Port, s.Hostname)
}

// Deregister withdraws s: three goodbye (TTL=0) responses spaced by the
// configured cancellation interval, then removal from the service table
// (spec §4.3 "Deregistration").
func (e *Engine) Deregister(s *mdnssd.Service) {
	for i := 0; i < e.cfg.CancellationNumber; i++ {
		res := wire.NewResponse()
		res.Answers = goodbyeRecords(s, true, time.Now())

		if err := e.sender.Send(res, 0); err != nil {
			logging.Log(e.logger, "engine: unable to send goodbye for %s: %s", s.ServiceName(), err)
		}

		if i != e.cfg.CancellationNumber-1 {
			time.Sleep(e.cfg.CancellationInterval)
		}
	}

	e.registry.delete(s)
}
