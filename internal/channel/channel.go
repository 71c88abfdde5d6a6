// Package channel implements the external send/receive collaborator
// described in spec §6.4: a pair of IPv4/IPv6 multicast UDP transports
// presented as a single non-blocking message channel, supervised by an
// errgroup-governed task set.
package channel

import (
	"context"
	"errors"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"golang.org/x/sync/errgroup"

	"github.com/student/mdnsd/internal/config"
	"github.com/student/mdnsd/internal/wire"
)

// Listener is notified of every inbound message this node accepts, along
// with the interface/address it arrived via and the wall-clock instant it
// was received — the instant a cache or resolver stamps TTLs against.
type Listener func(msg *wire.Message, src Endpoint, at time.Time)

// Channel joins the mDNS multicast groups on every eligible interface and
// exchanges wire.Message values over them.
type Channel struct {
	cfg    config.Config
	logger logging.Logger

	disableIPv4 bool
	disableIPv6 bool

	transports []transport
	outbound   chan *pendingSend

	listeners []Listener
}

type pendingSend struct {
	msg  *wire.Message
	dest Endpoint
}

// New constructs a Channel. Call AddListener before Enable to avoid
// missing early messages.
func New(cfg config.Config, logger logging.Logger) *Channel {
	return &Channel{
		cfg:      cfg,
		logger:   logger,
		outbound: make(chan *pendingSend, 64),
	}
}

// AddListener registers l to be invoked for every inbound message. It must
// not be called concurrently with Enable.
func (c *Channel) AddListener(l Listener) {
	c.listeners = append(c.listeners, l)
}

// Enable joins the multicast groups and runs the receive/send tasks until
// ctx is cancelled or an unrecoverable transport error occurs.
func (c *Channel) Enable(ctx context.Context) error {
	if c.disableIPv4 && c.disableIPv6 {
		return errors.New("channel: both IPv4 and IPv6 are disabled")
	}

	ifaces, err := multicastInterfaces()
	if err != nil {
		return err
	}

	if !c.disableIPv4 {
		t := &ipv4Transport{
			groupIP: c.cfg.IPv4Group,
			port:    c.cfg.Port,
			logger:  c.logger,
		}
		if err := t.listen(ifaces); err != nil {
			return err
		}
		c.transports = append(c.transports, t)
	}

	if !c.disableIPv6 {
		t := &ipv6Transport{
			groupIP: c.cfg.IPv6Group,
			port:    c.cfg.Port,
			logger:  c.logger,
		}
		if err := t.listen(ifaces); err != nil {
			for _, done := range c.transports {
				done.close()
			}
			return err
		}
		c.transports = append(c.transports, t)
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, t := range c.transports {
		t := t
		g.Go(func() error {
			return c.receiveLoop(ctx, t)
		})
	}

	g.Go(func() error {
		return c.sendLoop(ctx)
	})

	go func() {
		<-ctx.Done()
		for _, t := range c.transports {
			_ = t.close()
		}
	}()

	err = g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

func (c *Channel) receiveLoop(ctx context.Context, t transport) error {
	for {
		pkt, err := t.read()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				logTransportError(c.logger, t, err)
				return err
			}
		}

		at := time.Now()

		msg, err := wire.Decode(pkt.Data, at)
		if err != nil {
			logDecodeError(c.logger, pkt.Source.Address, err)
			continue
		}
		dumpMessage("inbound", msg)

		for _, l := range c.listeners {
			l(msg, pkt.Source, at)
		}
	}
}

func (c *Channel) sendLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p := <-c.outbound:
			c.flush(p)
		}
	}
}

func (c *Channel) flush(p *pendingSend) {
	dumpMessage("outbound", p.msg)

	buf, err := wire.Encode(p.msg)
	if err != nil {
		logging.Log(c.logger, "unable to encode outbound mDNS message: %s", err)
		return
	}

	for _, t := range c.transports {
		dest := Endpoint{
			InterfaceIndex: p.dest.InterfaceIndex,
			Address:        t.group(),
		}
		_ = t.write(&outboundPacket{Destination: dest, Data: buf})
	}
}

// Send enqueues msg for multicast transmission on the given interface, to
// every joined transport's group address. It returns immediately; delivery
// is asynchronous. Unicast transmission (RFC 6762 §6.7's legacy QU-bit
// response path) is out of scope (spec §1, "unicast DNS compatibility").
func (c *Channel) Send(msg *wire.Message, ifaceIndex int) error {
	select {
	case c.outbound <- &pendingSend{
		msg:  msg,
		dest: Endpoint{InterfaceIndex: ifaceIndex},
	}:
		return nil
	default:
		return errors.New("channel: outbound queue is full")
	}
}
