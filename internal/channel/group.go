package channel

import (
	"fmt"
	"net"

	"github.com/dogmatiq/dodeca/logging"
)

// packetConn contains the methods common to *ipv4.PacketConn and *ipv6.PacketConn.
type packetConn interface {
	JoinGroup(*net.Interface, net.Addr) error
}

// joinGroup joins the multicast group on each of ifaces, logging but
// tolerating per-interface failures. It fails only when no interface
// could be joined at all.
func joinGroup(
	pc packetConn,
	group net.IP,
	ifaces []net.Interface,
	logger logging.Logger,
) ([]net.Interface, error) {
	addr := &net.UDPAddr{IP: group}

	joined := make([]net.Interface, 0, len(ifaces))

	for _, i := range ifaces {
		iface := i
		if err := pc.JoinGroup(&iface, addr); err != nil {
			logging.Debug(
				logger,
				"unable to join the %s multicast group on the %s interface: %s",
				addr.IP,
				iface.Name,
				err,
			)
		} else {
			joined = append(joined, iface)
		}
	}

	if len(joined) > 0 {
		logJoined(logger, addr, joined)
		return joined, nil
	}

	return nil, fmt.Errorf(
		"channel: unable to join the %s multicast group on any interface",
		addr.IP,
	)
}
