package channel

import (
	"net"

	"github.com/dogmatiq/dodeca/logging"
	ipvx "golang.org/x/net/ipv6"
)

// ipv6Transport is the IPv6 mDNS transport, joined on a per-interface
// link-local scope (ff02::/16 addresses require an interface to be
// meaningful).
type ipv6Transport struct {
	groupIP net.IP
	port    int
	logger  logging.Logger

	pc *ipvx.PacketConn
}

func (t *ipv6Transport) listen(ifaces []net.Interface) error {
	addr := &net.UDPAddr{IP: net.IPv6unspecified, Port: t.port}

	conn, err := net.ListenUDP("udp6", addr)
	if err != nil {
		logListenError(t.logger, addr, err)
		return err
	}

	t.pc = ipvx.NewPacketConn(conn)

	if err := t.pc.SetControlMessage(ipvx.FlagInterface, true); err != nil {
		t.pc.Close()
		logListenError(t.logger, addr, err)
		return err
	}

	if _, err := joinGroup(t.pc, t.groupIP, ifaces, t.logger); err != nil {
		t.pc.Close()
		return err
	}

	return nil
}

func (t *ipv6Transport) read() (*inboundPacket, error) {
	buf := getBuffer()

	n, cm, src, err := t.pc.ReadFrom(buf)
	if err != nil {
		putBuffer(buf)
		logReadError(t.logger, t.group(), err)
		return nil, err
	}

	ifIndex := 0
	if cm != nil {
		ifIndex = cm.IfIndex
	}

	return &inboundPacket{
		Source: Endpoint{
			InterfaceIndex: ifIndex,
			Address:        src.(*net.UDPAddr),
		},
		Data: buf[:n],
	}, nil
}

func (t *ipv6Transport) write(p *outboundPacket) error {
	_, err := t.pc.WriteTo(
		p.Data,
		&ipvx.ControlMessage{IfIndex: p.Destination.InterfaceIndex},
		p.Destination.Address,
	)
	if err != nil {
		logWriteError(t.logger, p.Destination.Address, t.group(), err)
	}
	return err
}

func (t *ipv6Transport) group() *net.UDPAddr {
	return &net.UDPAddr{IP: t.groupIP, Port: t.port}
}

func (t *ipv6Transport) close() error {
	return t.pc.Close()
}
