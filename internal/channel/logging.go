package channel

import (
	"net"
	"sort"
	"strings"

	"github.com/dogmatiq/dodeca/logging"
)

func logJoined(logger logging.Logger, group *net.UDPAddr, ifaces []net.Interface) {
	names := make([]string, len(ifaces))
	for i, iface := range ifaces {
		names[i] = iface.Name
	}
	sort.Strings(names)

	logging.Debug(
		logger,
		"joined the %s multicast group on %s",
		group,
		strings.Join(names, ", "),
	)
}

func logListenError(logger logging.Logger, addr *net.UDPAddr, err error) {
	logging.Log(logger, "unable to listen for mDNS packets on %s: %s", addr, err)
}

func logReadError(logger logging.Logger, group *net.UDPAddr, err error) {
	logging.Log(logger, "error reading mDNS packet via %s: %s", group, err)
}

func logWriteError(logger logging.Logger, dest, group *net.UDPAddr, err error) {
	logging.Log(logger, "unable to send mDNS packet to %s via %s: %s", dest, group, err)
}

func logDecodeError(logger logging.Logger, src *net.UDPAddr, err error) {
	logging.Debug(logger, "dropping malformed mDNS packet from %s: %s", src, err)
}
