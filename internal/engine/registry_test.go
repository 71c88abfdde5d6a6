package engine

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/student/mdnsd/internal/config"
	"github.com/student/mdnsd/internal/wire"
)

var _ = Describe("registry", func() {
	It("does not conflict with an identical registration", func() {
		e := New(config.Default(), nil, &recordingSender{})
		s := newTestService()
		e.registry.insert(s)

		Expect(e.registry.conflicts(s.ServiceName(), s.Port, s.Hostname)).To(BeFalse())
	})

	It("conflicts when the port differs", func() {
		e := New(config.Default(), nil, &recordingSender{})
		s := newTestService()
		e.registry.insert(s)

		Expect(e.registry.conflicts(s.ServiceName(), s.Port+1, s.Hostname)).To(BeTrue())
	})

	It("conflicts when the hostname differs", func() {
		e := New(config.Default(), nil, &recordingSender{})
		s := newTestService()
		e.registry.insert(s)

		Expect(e.registry.conflicts(s.ServiceName(), s.Port, "other.local.")).To(BeTrue())
	})

	It("deduplicates pointer names across instances of the same registration type", func() {
		e := New(config.Default(), nil, &recordingSender{})

		a := newTestService()
		b := newTestService()
		b.InstanceName = "Kitchen Speaker"

		e.registry.insert(a)
		e.registry.insert(b)

		Expect(e.registry.pointerNames()).To(HaveLen(1))
	})
})

var _ = Describe("Engine.hasConflict", func() {
	It("checks the cache for a diverging SRV, not only the local registry", func() {
		e := New(config.Default(), nil, &recordingSender{})
		s := newTestService()

		e.cache.Add(wire.Record{
			Name:      s.ServiceName(),
			Type:      wire.TypeSRV,
			Class:     wire.ClassIN,
			TTL:       100,
			CreatedAt: time.Now(),
			Data:      wire.SRVData{Port: s.Port + 1, Target: wire.Name(s.Hostname)},
		})

		Expect(e.hasConflict(s)).To(BeTrue())
	})
})
