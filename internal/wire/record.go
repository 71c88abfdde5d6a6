package wire

import (
	"net"
	"time"
)

// Resource record types supported by this implementation. Unknown types
// encountered on the wire are skipped during decode (§4.1) and never
// appear as a Record value.
const (
	TypeA    uint16 = 1
	TypeAAAA uint16 = 28
	TypePTR  uint16 = 12
	TypeSRV  uint16 = 33
	TypeTXT  uint16 = 16
	TypeANY  uint16 = 255
)

// Resource record classes. ClassANY only ever appears in questions and cache
// lookups, never on an encoded answer.
const (
	ClassIN  uint16 = 1
	ClassANY uint16 = 255
)

// classUniqueBit is the high bit of the wire class field, marking a record as
// belonging to a "unique" (cache-flush) RRSet. It is kept logically separate
// from the 15-bit class value throughout the core; see spec §3.
const classUniqueBit = 0x8000

// Data is the payload carried by a Record. Each supported record type has
// its own concrete implementation; the wire codec switches over the
// concrete type (or the Record's Type field) rather than using a deep type
// hierarchy, per the "tagged variant" redesign note.
type Data interface {
	rrType() uint16
}

// AData is the payload of an A record: an IPv4 address.
type AData struct {
	Address net.IP
}

func (AData) rrType() uint16 { return TypeA }

// AAAAData is the payload of an AAAA record: an IPv6 address.
type AAAAData struct {
	Address net.IP
}

func (AAAAData) rrType() uint16 { return TypeAAAA }

// PTRData is the payload of a PTR record: a target name.
type PTRData struct {
	Target Name
}

func (PTRData) rrType() uint16 { return TypePTR }

// SRVData is the payload of an SRV record.
type SRVData struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   Name
}

func (SRVData) rrType() uint16 { return TypeSRV }

// TXTData is the payload of a TXT record: an RFC 6763 §6 attribute set.
type TXTData struct {
	Attributes Attributes
}

func (TXTData) rrType() uint16 { return TypeTXT }

// Record is a single DNS resource record: a shared header plus a
// type-specific payload.
//
// ttl == 0 marks a goodbye notification (spec §3); such a record must never
// be cached as live.
type Record struct {
	Name      Name
	Type      uint16
	Class     uint16 // always the 15-bit class; see Unique
	Unique    bool
	TTL       uint32 // seconds, as carried on the wire
	CreatedAt time.Time
	Data      Data
}

// ExpiresAt returns the instant at which r stops being live.
func (r *Record) ExpiresAt() time.Time {
	return r.CreatedAt.Add(time.Duration(r.TTL) * time.Second)
}

// IsExpired reports whether r is no longer live at instant now.
func (r *Record) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt())
}

// IsGoodbye reports whether r is a goodbye (TTL=0) notification.
func (r *Record) IsGoodbye() bool {
	return r.TTL == 0
}

// RemainingTTL returns the number of whole seconds remaining on r's TTL at
// instant stamp, clamped to zero. It never goes negative: callers that need
// to detect an already-expired stamped answer should compare ExpiresAt
// against stamp directly before calling this (see §4.1's "stamped answer").
func (r *Record) RemainingTTL(stamp time.Time) uint32 {
	remaining := r.ExpiresAt().Sub(stamp)
	if remaining <= 0 {
		return 0
	}
	seconds := remaining / time.Second
	if remaining%time.Second != 0 {
		seconds++
	}
	return uint32(seconds)
}

// class15 returns the 15-bit class value, ignoring the unique bit.
func (r *Record) class15() uint16 {
	return r.Class &^ classUniqueBit
}

// ProtocolEqual reports whether r and other are protocol-equal: matching
// (name⇓, type, class15). Payload equality is a separate test, see Equal.
func (r *Record) ProtocolEqual(other *Record) bool {
	return r.Name.Equal(other.Name) &&
		r.Type == other.Type &&
		r.class15() == other.class15()
}

// Equal reports whether r and other are protocol-equal AND carry the same
// payload.
func (r *Record) Equal(other *Record) bool {
	if !r.ProtocolEqual(other) {
		return false
	}
	return dataEqual(r.Data, other.Data)
}

func dataEqual(a, b Data) bool {
	switch av := a.(type) {
	case AData:
		bv, ok := b.(AData)
		return ok && av.Address.Equal(bv.Address)
	case AAAAData:
		bv, ok := b.(AAAAData)
		return ok && av.Address.Equal(bv.Address)
	case PTRData:
		bv, ok := b.(PTRData)
		return ok && av.Target.Equal(bv.Target)
	case SRVData:
		bv, ok := b.(SRVData)
		return ok &&
			av.Priority == bv.Priority &&
			av.Weight == bv.Weight &&
			av.Port == bv.Port &&
			av.Target.Equal(bv.Target)
	case TXTData:
		bv, ok := b.(TXTData)
		return ok && av.Attributes.Equal(bv.Attributes)
	default:
		return false
	}
}

// Stamp returns a copy of r suitable for inclusion as a known-answer
// suppression hint at instant at: its TTL is replaced by the number of
// whole seconds remaining, rounded down, and its CreatedAt is reset to at.
// ok is false (and the copy must be discarded rather than encoded) if at is
// past r's expiry instant; at exactly ExpiresAt the copy is returned with a
// TTL of zero.
func (r *Record) Stamp(at time.Time) (Record, bool) {
	remaining := r.ExpiresAt().Sub(at)
	if remaining < 0 {
		return Record{}, false
	}

	stamped := *r
	stamped.TTL = uint32(remaining / time.Second)
	stamped.CreatedAt = at
	return stamped, true
}

// SuppressedBy reports whether r is suppressed by message m: some record R'
// in m's answer, authority, or additional sections has the same
// (name⇓, type, class15) as r, with R'.TTL >= r.TTL/2. See spec §4.6.
func (r *Record) SuppressedBy(m *Message) bool {
	check := func(rs []Record) bool {
		for i := range rs {
			other := &rs[i]
			if r.Name.Equal(other.Name) &&
				r.Type == other.Type &&
				r.class15() == other.class15() &&
				other.TTL >= r.TTL/2 {
				return true
			}
		}
		return false
	}

	return check(m.Answers) || check(m.Authorities) || check(m.Additionals)
}
