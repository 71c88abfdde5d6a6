package channel

import (
	"errors"
	"net"
)

// multicastInterfaces selects the network interfaces this node should join
// the mDNS groups on: every up, multicast-capable, non-loopback interface,
// or — if none is up — the loopback interface alone (spec §6.1).
func multicastInterfaces() ([]net.Interface, error) {
	candidates, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	const flags = net.FlagUp | net.FlagMulticast

	var nonLoopback, loopback []net.Interface

	for _, i := range candidates {
		if i.Flags&flags != flags {
			continue
		}
		if i.Flags&net.FlagLoopback != 0 {
			loopback = append(loopback, i)
		} else {
			nonLoopback = append(nonLoopback, i)
		}
	}

	if len(nonLoopback) > 0 {
		return nonLoopback, nil
	}
	if len(loopback) > 0 {
		return loopback, nil
	}

	return nil, errors.New("channel: no multicast-capable network interfaces available")
}
