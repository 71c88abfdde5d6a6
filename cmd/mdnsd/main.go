// Command mdnsd is a minimal demonstration of the mDNS-SD core: it joins
// the multicast groups, registers one service, and answers queries for it
// until interrupted. The registration/resolution entry points a real
// client would use are an external collaborator (spec §1) — this binary
// wires the core directly instead.
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/dogmatiq/dodeca/logging"

	"github.com/student/mdnsd/internal/channel"
	"github.com/student/mdnsd/internal/config"
	"github.com/student/mdnsd/internal/engine"
	"github.com/student/mdnsd/internal/mdnssd"
	"github.com/student/mdnsd/internal/wire"
)

func main() {
	cfg := config.Default()
	logger := logging.DefaultLogger

	ch := channel.New(cfg, logger)
	eng := engine.New(cfg, logger, ch)

	ch.AddListener(func(msg *wire.Message, src channel.Endpoint, at time.Time) {
		eng.HandleInbound(msg, src.InterfaceIndex, at)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc := &mdnssd.Service{
		InstanceName:     "mdnsd Example",
		RegistrationType: "_example._tcp",
		Hostname:         "mdnsd-example.local.",
		Port:             9009,
		IPv4:             net.ParseIP("127.0.0.1"),
	}

	go func() {
		if _, err := eng.Register(svc, true); err != nil {
			logging.Log(logger, "unable to register example service: %s", err)
		}
	}()

	if err := ch.Enable(ctx); err != nil {
		log.Fatal(err)
	}
}
