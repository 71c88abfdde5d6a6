package channel

import (
	"net"

	"github.com/dogmatiq/dodeca/logging"
	ipvx "golang.org/x/net/ipv4"
)

// ipv4Transport is the IPv4 mDNS transport. It binds to the wildcard address
// (rather than the group address) so that interface membership is
// controlled explicitly via joinGroup, per RFC 6762 §3.
type ipv4Transport struct {
	groupIP net.IP
	port    int
	logger  logging.Logger

	pc *ipvx.PacketConn
}

func (t *ipv4Transport) listen(ifaces []net.Interface) error {
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: t.port}

	conn, err := net.ListenUDP("udp4", addr)
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

func (t *ipv4Transport) read() (*inboundPacket, error) {
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

func (t *ipv4Transport) write(p *outboundPacket) error {
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

func (t *ipv4Transport) group() *net.UDPAddr {
	return &net.UDPAddr{IP: t.groupIP, Port: t.port}
}

func (t *ipv4Transport) close() error {
	return t.pc.Close()
}
