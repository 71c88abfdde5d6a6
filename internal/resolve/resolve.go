// Package resolve implements the cooperative resolver (spec §4.5): an
// opportunistic cache fill followed by exponentially backed-off queries,
// woken by a response listener rather than polling.
package resolve

import (
	"errors"
	"sync"
	"time"

	"github.com/student/mdnsd/internal/cache"
	"github.com/student/mdnsd/internal/config"
	"github.com/student/mdnsd/internal/mdnssd"
	"github.com/student/mdnsd/internal/wire"
)

// ErrUnresolved is returned when the timeout elapses without fully
// populating the service (spec §7 "Unresolved" — returned as "absent",
// not an exception).
var ErrUnresolved = errors.New("resolve: unresolved")

// ResponseListener is invoked for every inbound response message.
type ResponseListener func(msg *wire.Message, at time.Time)

// Host is the slice of the engine the resolver needs.
type Host interface {
	Send(msg *wire.Message, ifaceIndex int) error
	AddListener(l ResponseListener) int
	RemoveListener(id int)
}

// Resolve resolves instanceName.registrationType.local. into a fully
// populated Service, or returns ErrUnresolved once the configured timeout
// elapses.
func Resolve(
	cfg config.Config,
	host Host,
	c *cache.Cache,
	instanceName, registrationType string,
	now func() time.Time,
) (*mdnssd.Service, error) {
	s := &mdnssd.Service{
		InstanceName:     instanceName,
		RegistrationType: registrationType,
	}
	serviceName := s.ServiceName()

	fill(s, c, serviceName, now())
	if s.Resolved() {
		return s, nil
	}

	var mu sync.Mutex
	woken := make(chan struct{}, 1)
	wake := func() {
		select {
		case woken <- struct{}{}:
		default:
		}
	}

	id := host.AddListener(func(msg *wire.Message, at time.Time) {
		mu.Lock()
		changed := applyAnswers(s, msg.Answers, serviceName, at)
		mu.Unlock()
		if changed {
			wake()
		}
	})
	defer host.RemoveListener(id)

	for _, delay := range backoffSchedule(cfg.ResolutionInterval, cfg.ResolutionTimeout) {
		mu.Lock()
		query := buildQuery(s, c, serviceName, now())
		mu.Unlock()

		if err := host.Send(query, 0); err != nil {
			return nil, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-woken:
			timer.Stop()
		case <-timer.C:
		}

		mu.Lock()
		resolved := s.Resolved()
		mu.Unlock()
		if resolved {
			return s, nil
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if s.Resolved() {
		return s, nil
	}
	return nil, ErrUnresolved
}

// fill performs the opportunistic cache read of spec §4.5 step 1.
func fill(s *mdnssd.Service, c *cache.Cache, serviceName wire.Name, now time.Time) {
	if r, ok := c.GetByKey(serviceName, wire.TypeSRV, wire.ClassIN, now); ok {
		if d, ok := r.Data.(wire.SRVData); ok {
			s.Hostname = string(d.Target)
			s.Port = d.Port
			s.Priority = d.Priority
			s.Weight = d.Weight
		}
	}
	if r, ok := c.GetByKey(serviceName, wire.TypeTXT, wire.ClassIN, now); ok {
		if d, ok := r.Data.(wire.TXTData); ok {
			s.Attributes = d.Attributes
			s.AttributesKnown = true
		}
	}
	if s.Hostname == "" {
		return
	}
	hostname := wire.Name(s.Hostname)
	if r, ok := c.GetByKey(hostname, wire.TypeA, wire.ClassIN, now); ok {
		if d, ok := r.Data.(wire.AData); ok {
			s.IPv4 = d.Address
		}
	}
	if r, ok := c.GetByKey(hostname, wire.TypeAAAA, wire.ClassIN, now); ok {
		if d, ok := r.Data.(wire.AAAAData); ok {
			s.IPv6 = d.Address
		}
	}
}

// applyAnswers updates s from a response's answers, matching SRV/TXT
// under service_name and A/AAAA under the (possibly just-learned)
// hostname. It reports whether anything changed.
func applyAnswers(s *mdnssd.Service, answers []wire.Record, serviceName wire.Name, at time.Time) bool {
	changed := false

	for _, a := range answers {
		if a.IsExpired(at) {
			continue
		}

		switch {
		case a.Name.Equal(serviceName) && a.Type == wire.TypeSRV:
			if d, ok := a.Data.(wire.SRVData); ok {
				s.Hostname = string(d.Target)
				s.Port = d.Port
				s.Priority = d.Priority
				s.Weight = d.Weight
				changed = true
			}

		case a.Name.Equal(serviceName) && a.Type == wire.TypeTXT:
			if d, ok := a.Data.(wire.TXTData); ok {
				s.Attributes = d.Attributes
				s.AttributesKnown = true
				changed = true
			}

		case s.Hostname != "" && a.Name.Equal(wire.Name(s.Hostname)) && a.Type == wire.TypeA:
			if d, ok := a.Data.(wire.AData); ok {
				s.IPv4 = d.Address
				changed = true
			}

		case s.Hostname != "" && a.Name.Equal(wire.Name(s.Hostname)) && a.Type == wire.TypeAAAA:
			if d, ok := a.Data.(wire.AAAAData); ok {
				s.IPv6 = d.Address
				changed = true
			}
		}
	}

	return changed
}

// buildQuery emits a question for each still-missing field, attaching any
// fresh cached answer as a known-answer suppression hint stamped with now
// (spec §4.5 step 3).
func buildQuery(s *mdnssd.Service, c *cache.Cache, serviceName wire.Name, now time.Time) *wire.Message {
	var questions []wire.Question
	var known []wire.Record

	addKnown := func(name wire.Name, rtype uint16) {
		r, ok := c.GetByKey(name, rtype, wire.ClassIN, now)
		if !ok {
			return
		}
		stamped, ok := r.Stamp(now)
		if ok {
			known = append(known, stamped)
		}
	}

	if s.Hostname == "" {
		questions = append(questions, wire.Question{Name: serviceName, Type: wire.TypeSRV, Class: wire.ClassIN})
		addKnown(serviceName, wire.TypeSRV)
	}
	if !s.AttributesKnown {
		questions = append(questions, wire.Question{Name: serviceName, Type: wire.TypeTXT, Class: wire.ClassIN})
		addKnown(serviceName, wire.TypeTXT)
	}
	if s.Hostname != "" {
		hostname := wire.Name(s.Hostname)
		if s.IPv4 == nil {
			questions = append(questions, wire.Question{Name: hostname, Type: wire.TypeA, Class: wire.ClassIN})
			addKnown(hostname, wire.TypeA)
		}
		if s.IPv6 == nil {
			questions = append(questions, wire.Question{Name: hostname, Type: wire.TypeAAAA, Class: wire.ClassIN})
			addKnown(hostname, wire.TypeAAAA)
		}
	}

	m := wire.NewQuery(questions...)
	m.Answers = known
	return m
}

// backoffSchedule computes the delay sequence of spec §4.5: starting at
// interval, doubling each step, never exceeding the running total plus
// next delay over timeout; a non-zero residual is appended as the final
// step.
func backoffSchedule(interval, timeout time.Duration) []time.Duration {
	var schedule []time.Duration

	var total time.Duration
	delay := interval

	for total+delay <= timeout {
		schedule = append(schedule, delay)
		total += delay
		delay *= 2
	}

	if residual := timeout - total; residual > 0 {
		schedule = append(schedule, residual)
	}

	return schedule
}
