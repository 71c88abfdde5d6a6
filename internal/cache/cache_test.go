package cache_test

import (
	"net"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/student/mdnsd/internal/cache"
	"github.com/student/mdnsd/internal/wire"
)

var _ = Describe("Cache", func() {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	aRecord := func(ttl uint32) wire.Record {
		return wire.Record{
			Name:      "host.local.",
			Type:      wire.TypeA,
			Class:     wire.ClassIN,
			TTL:       ttl,
			CreatedAt: base,
			Data:      wire.AData{Address: net.ParseIP("10.0.0.1")},
		}
	}

	It("returns a live record by key", func() {
		c := cache.New()
		c.Add(aRecord(100))

		r, ok := c.GetByKey("host.local.", wire.TypeA, wire.ClassIN, base)
		Expect(ok).To(BeTrue())
		Expect(r.Data.(wire.AData).Address.String()).To(Equal("10.0.0.1"))
	})

	It("never returns an expired record, lazily or otherwise", func() {
		c := cache.New()
		c.Add(aRecord(10))

		_, ok := c.GetByKey("host.local.", wire.TypeA, wire.ClassIN, base.Add(10*time.Second))
		Expect(ok).To(BeFalse())
	})

	It("matches ANY type and ANY class as wildcards", func() {
		c := cache.New()
		c.Add(aRecord(100))

		_, ok := c.GetByKey("host.local.", wire.TypeANY, wire.ClassANY, base)
		Expect(ok).To(BeTrue())
	})

	It("removes a matching record when a TTL=0 record is added", func() {
		c := cache.New()
		c.Add(aRecord(100))
		c.Add(aRecord(0))

		_, ok := c.GetByKey("host.local.", wire.TypeA, wire.ClassIN, base)
		Expect(ok).To(BeFalse())
	})

	It("replaces a protocol-and-payload-equal entry rather than duplicating it", func() {
		c := cache.New()
		c.Add(aRecord(100))
		c.Add(aRecord(200))

		Expect(c.Entries("host.local.")).To(HaveLen(1))
		Expect(c.Entries("host.local.")[0].TTL).To(Equal(uint32(200)))
	})

	It("compares names case-insensitively", func() {
		c := cache.New()
		c.Add(aRecord(100))

		_, ok := c.GetByKey("HOST.LOCAL.", wire.TypeA, wire.ClassIN, base)
		Expect(ok).To(BeTrue())
	})

	It("clears all entries", func() {
		c := cache.New()
		c.Add(aRecord(100))
		c.Clear()

		Expect(c.Entries("host.local.")).To(BeEmpty())
	})

	It("Entries returns expired records too, leaving liveness filtering to the caller", func() {
		c := cache.New()
		c.Add(aRecord(1))

		entries := c.Entries("host.local.")
		Expect(entries).To(HaveLen(1))
	})
})
