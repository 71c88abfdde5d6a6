package channel

import (
	"net"

	"github.com/dogmatiq/dodeca/logging"
)

// inboundPacket is a raw UDP datagram received from a transport, paired
// with the interface and address it arrived on.
type inboundPacket struct {
	Source Endpoint
	Data   []byte
}

// outboundPacket is a raw UDP datagram to be written to a transport.
type outboundPacket struct {
	Destination Endpoint
	Data        []byte
}

// transport is a single-address-family (IPv4 or IPv6) multicast UDP socket.
type transport interface {
	// listen opens the socket and joins the mDNS group on ifaces.
	listen(ifaces []net.Interface) error

	// read blocks for the next inbound datagram.
	read() (*inboundPacket, error)

	// write sends an outbound datagram.
	write(*outboundPacket) error

	// group returns this transport's multicast group address.
	group() *net.UDPAddr

	// close closes the underlying socket, unblocking any pending read.
	close() error
}

func logTransportError(logger logging.Logger, t transport, err error) {
	logReadError(logger, t.group(), err)
}
