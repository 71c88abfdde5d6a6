package mdnssd

import (
	"net"
	"strings"

	"github.com/student/mdnsd/internal/wire"
)

// Service is a DNS-SD service instance (spec §3).
//
// It is created by a caller (via the out-of-scope public client facade,
// per spec §1), mutated only by the announcer (to resolve instance-name
// collisions) or the resolver (to fill in discovered fields), and owned by
// the engine's registered-service table once registered.
type Service struct {
	InstanceName     string
	RegistrationType string // e.g. "_music._tcp"
	Hostname         string // e.g. "host.local.", empty if not yet known
	Port             uint16
	Priority         uint16
	Weight           uint16
	IPv4             net.IP
	IPv6             net.IP
	Attributes       wire.Attributes

	// AttributesKnown is set once a TXT record has been observed for this
	// service, even if it carried zero attributes (spec §4.5 step 2
	// distinguishes "not yet resolved" from "resolved with no attributes").
	AttributesKnown bool
}

// DiscoveryName is the well-known DNS-SD service-type enumeration name
// (RFC 6763 §9).
const DiscoveryName = wire.Name("_services._dns-sd._udp.local.")

// RegistrationPointerName returns registration_type + "local." (spec §3).
func (s *Service) RegistrationPointerName() wire.Name {
	return wire.Name(s.RegistrationType + ".local.")
}

// ServiceName returns instance_name + "." + registration_pointer_name
// (spec §3), with any dots or backslashes in the instance name escaped per
// RFC 6763 §4.3.
func (s *Service) ServiceName() wire.Name {
	return wire.Name(EscapeInstanceName(s.InstanceName) + "." + s.RegistrationType + ".local.")
}

// HasAddressing reports whether the caller has supplied enough information
// (a hostname and at least one address) to probe or announce s. Operations
// that require it return ErrUnknownAddressing otherwise (spec §7).
func (s *Service) HasAddressing() bool {
	return s.Hostname != "" && (s.IPv4 != nil || s.IPv6 != nil)
}

// Resolved reports whether s has been fully populated by the resolver: a
// hostname, at least one address, and a (possibly empty) attribute set
// (spec §4.5 step 2).
func (s *Service) Resolved() bool {
	return s.Hostname != "" && (s.IPv4 != nil || s.IPv6 != nil) && s.AttributesKnown
}

// EscapeInstanceName escapes dots and backslashes in a raw instance name,
// per RFC 6763 §4.3, so it can be safely joined into a dotted DNS name.
// Renaming (see Rename) always operates on the unescaped form.
func EscapeInstanceName(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '.' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}
