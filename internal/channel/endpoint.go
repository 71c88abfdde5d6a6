package channel

import "net"

// Endpoint is the origin or destination of a packet: the network interface
// it arrived on or should be sent via, and the UDP address.
type Endpoint struct {
	InterfaceIndex int
	Address        *net.UDPAddr
}
