// Package announce implements the probing + announcement state machine
// run at service registration (spec §4.4): Idle -> Probing ->
// Announcing/Failed.
package announce

import (
	"time"

	"github.com/student/mdnsd/internal/config"
	"github.com/student/mdnsd/internal/mdnssd"
	"github.com/student/mdnsd/internal/wire"
)

// ResponseListener is invoked for every inbound response while a listener
// is registered.
type ResponseListener func(msg *wire.Message, at time.Time)

// Host is the slice of the engine the announcer needs: sending a message
// on every interface, and a registration-ordered response listener set.
// Defining it here (rather than depending on the engine package) keeps
// announce and engine acyclic — the engine adapts itself to this
// interface.
type Host interface {
	Send(msg *wire.Message, ifaceIndex int) error
	AddListener(l ResponseListener) int
	RemoveListener(id int)
}

// Run drives s through probing and, if uncontested, announcement. It
// reports conflict=true if a competing SRV was observed during probing
// (spec §4.4's "unconditional conflict" tie-break choice, §9).
func Run(cfg config.Config, host Host, s *mdnssd.Service, ttl time.Duration, now func() time.Time) (conflict bool, err error) {
	conflictCh := make(chan struct{}, 1)

	hostname := wire.Name(s.Hostname)
	serviceName := s.ServiceName()

	id := host.AddListener(func(msg *wire.Message, _ time.Time) {
		for _, a := range msg.Answers {
			if a.Type != wire.TypeSRV || !a.Name.Equal(serviceName) {
				continue
			}
			d, ok := a.Data.(wire.SRVData)
			if !ok {
				continue
			}
			if d.Port != s.Port || d.Priority != s.Priority || d.Weight != s.Weight || !d.Target.Equal(hostname) {
				select {
				case conflictCh <- struct{}{}:
				default:
				}
			}
		}
	})
	defer host.RemoveListener(id)

	deadline := now().Add(cfg.ProbingTimeout)

	for i := 0; i < cfg.ProbingNumber; i++ {
		if err := host.Send(probeMessage(s, hostname, serviceName), 0); err != nil {
			return false, err
		}

		wait := cfg.ProbingInterval
		if remaining := deadline.Sub(now()); remaining < wait {
			wait = remaining
		}
		if wait < 0 {
			wait = 0
		}

		select {
		case <-conflictCh:
			return true, nil
		case <-time.After(wait):
		}

		if !now().Before(deadline) {
			break
		}
	}

	// final drain: a conflicting answer may have arrived after the last
	// wait but before we stop listening.
	select {
	case <-conflictCh:
		return true, nil
	default:
	}

	res := wire.NewResponse()
	res.Answers = buildAnnouncement(s, ttl, now())

	if err := host.Send(res, 0); err != nil {
		return false, err
	}

	return false, nil
}

// probeMessage builds a probe query: questions for {hostname, ANY, IN} and
// {service_name, ANY, IN}, with the proposed SRV (and addresses, if known)
// as authority records (spec §4.4).
func probeMessage(s *mdnssd.Service, hostname, serviceName wire.Name) *wire.Message {
	m := wire.NewQuery(
		wire.Question{Name: hostname, Type: wire.TypeANY, Class: wire.ClassIN},
		wire.Question{Name: serviceName, Type: wire.TypeANY, Class: wire.ClassIN},
	)

	now := time.Now()
	m.Authorities = append(m.Authorities, wire.Record{
		Name:      serviceName,
		Type:      wire.TypeSRV,
		Class:     wire.ClassIN,
		Unique:    true,
		TTL:       uint32(defaultProbeTTL / time.Second),
		CreatedAt: now,
		Data: wire.SRVData{
			Priority: s.Priority,
			Weight:   s.Weight,
			Port:     s.Port,
			Target:   hostname,
		},
	})

	if s.IPv4 != nil {
		m.Authorities = append(m.Authorities, wire.Record{
			Name:      hostname,
			Type:      wire.TypeA,
			Class:     wire.ClassIN,
			Unique:    true,
			TTL:       uint32(defaultProbeTTL / time.Second),
			CreatedAt: now,
			Data:      wire.AData{Address: s.IPv4},
		})
	}
	if s.IPv6 != nil {
		m.Authorities = append(m.Authorities, wire.Record{
			Name:      hostname,
			Type:      wire.TypeAAAA,
			Class:     wire.ClassIN,
			Unique:    true,
			TTL:       uint32(defaultProbeTTL / time.Second),
			CreatedAt: now,
			Data:      wire.AAAAData{Address: s.IPv6},
		})
	}

	return m
}

const defaultProbeTTL = 120 * time.Second

// buildAnnouncement builds the unsolicited authoritative response sent
// once probing completes without conflict: PTR, SRV, TXT, and address
// records, all unique and at the configured TTL.
func buildAnnouncement(s *mdnssd.Service, ttl time.Duration, now time.Time) []wire.Record {
	var records []wire.Record

	records = append(records, wire.Record{
		Name:      s.RegistrationPointerName(),
		Type:      wire.TypePTR,
		Class:     wire.ClassIN,
		Unique:    true,
		TTL:       uint32(ttl / time.Second),
		CreatedAt: now,
		Data:      wire.PTRData{Target: s.ServiceName()},
	})

	records = append(records, wire.Record{
		Name:      s.ServiceName(),
		Type:      wire.TypeSRV,
		Class:     wire.ClassIN,
		Unique:    true,
		TTL:       uint32(ttl / time.Second),
		CreatedAt: now,
		Data: wire.SRVData{
			Priority: s.Priority,
			Weight:   s.Weight,
			Port:     s.Port,
			Target:   wire.Name(s.Hostname),
		},
	})

	records = append(records, wire.Record{
		Name:      s.ServiceName(),
		Type:      wire.TypeTXT,
		Class:     wire.ClassIN,
		Unique:    true,
		TTL:       uint32(ttl / time.Second),
		CreatedAt: now,
		Data:      wire.TXTData{Attributes: s.Attributes},
	})

	if s.IPv4 != nil {
		records = append(records, wire.Record{
			Name:      wire.Name(s.Hostname),
			Type:      wire.TypeA,
			Class:     wire.ClassIN,
			Unique:    true,
			TTL:       uint32(ttl / time.Second),
			CreatedAt: now,
			Data:      wire.AData{Address: s.IPv4},
		})
	}
	if s.IPv6 != nil {
		records = append(records, wire.Record{
			Name:      wire.Name(s.Hostname),
			Type:      wire.TypeAAAA,
			Class:     wire.ClassIN,
			Unique:    true,
			TTL:       uint32(ttl / time.Second),
			CreatedAt: now,
			Data:      wire.AAAAData{Address: s.IPv6},
		})
	}

	return records
}
