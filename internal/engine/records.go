package engine

import (
	"time"

	"github.com/student/mdnsd/internal/mdnssd"
	"github.com/student/mdnsd/internal/wire"
)

// buildRecords constructs the full RR set a registered service publishes:
// PTR (registration pointer -> instance), SRV, TXT, and A/AAAA under its
// hostname. unique sets the cache-flush bit; every positive answer this
// engine emits carries it (spec §4.3).
func buildRecords(s *mdnssd.Service, ttl time.Duration, unique bool, now time.Time) []wire.Record {
	var records []wire.Record

	records = append(records, ptrRecord(s, ttl, now))
	records = append(records, srvRecord(s, ttl, unique, now))
	records = append(records, txtRecord(s, ttl, unique, now))
	records = append(records, addressRecords(s, ttl, unique, now)...)

	return records
}

func ptrRecord(s *mdnssd.Service, ttl time.Duration, now time.Time) wire.Record {
	return wire.Record{
		Name:      s.RegistrationPointerName(),
		Type:      wire.TypePTR,
		Class:     wire.ClassIN,
		Unique:    true,
		TTL:       uint32(ttl / time.Second),
		CreatedAt: now,
		Data:      wire.PTRData{Target: s.ServiceName()},
	}
}

func srvRecord(s *mdnssd.Service, ttl time.Duration, unique bool, now time.Time) wire.Record {
	return wire.Record{
		Name:      s.ServiceName(),
		Type:      wire.TypeSRV,
		Class:     wire.ClassIN,
		Unique:    unique,
		TTL:       uint32(ttl / time.Second),
		CreatedAt: now,
		Data: wire.SRVData{
			Priority: s.Priority,
			Weight:   s.Weight,
			Port:     s.Port,
			Target:   wire.Name(s.Hostname),
		},
	}
}

func txtRecord(s *mdnssd.Service, ttl time.Duration, unique bool, now time.Time) wire.Record {
	return wire.Record{
		Name:      s.ServiceName(),
		Type:      wire.TypeTXT,
		Class:     wire.ClassIN,
		Unique:    unique,
		TTL:       uint32(ttl / time.Second),
		CreatedAt: now,
		Data:      wire.TXTData{Attributes: s.Attributes},
	}
}

func addressRecords(s *mdnssd.Service, ttl time.Duration, unique bool, now time.Time) []wire.Record {
	var records []wire.Record

	if s.Hostname == "" {
		return records
	}

	if s.IPv4 != nil {
		records = append(records, wire.Record{
			Name:      wire.Name(s.Hostname),
			Type:      wire.TypeA,
			Class:     wire.ClassIN,
			Unique:    unique,
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
			Unique:    unique,
			TTL:       uint32(ttl / time.Second),
			CreatedAt: now,
			Data:      wire.AAAAData{Address: s.IPv6},
		})
	}

	return records
}

// goodbyeRecords is buildRecords with every TTL forced to zero, used for
// deregistration (spec §4.3 "Deregistration").
func goodbyeRecords(s *mdnssd.Service, unique bool, now time.Time) []wire.Record {
	records := buildRecords(s, 0, unique, now)
	for i := range records {
		records[i].TTL = 0
	}
	return records
}
