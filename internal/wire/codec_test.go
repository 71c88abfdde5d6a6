package wire_test

import (
	"net"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/student/mdnsd/internal/wire"
)

var _ = Describe("Encode/Decode", func() {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	It("round-trips a query message", func() {
		m := NewQuery(
			Question{Name: "foo.local.", Type: TypeANY, Class: ClassIN},
		)

		buf, err := Encode(m)
		Expect(err).NotTo(HaveOccurred())

		decoded, err := Decode(buf, now)
		Expect(err).NotTo(HaveOccurred())

		Expect(decoded.Response).To(BeFalse())
		Expect(decoded.Questions).To(HaveLen(1))
		Expect(decoded.Questions[0].Name.Equal("foo.local.")).To(BeTrue())
		Expect(decoded.Questions[0].Type).To(Equal(TypeANY))
	})

	It("round-trips a response message with every record type", func() {
		m := NewResponse()
		m.Answers = []Record{
			{
				Name:      "host.local.",
				Type:      TypeA,
				Class:     ClassIN,
				Unique:    true,
				TTL:       120,
				CreatedAt: now,
				Data:      AData{Address: net.ParseIP("192.168.1.1")},
			},
			{
				Name:      "host.local.",
				Type:      TypeAAAA,
				Class:     ClassIN,
				Unique:    true,
				TTL:       120,
				CreatedAt: now,
				Data:      AAAAData{Address: net.ParseIP("fe80::1")},
			},
			{
				Name:      "_music._tcp.local.",
				Type:      TypePTR,
				Class:     ClassIN,
				TTL:       4500,
				CreatedAt: now,
				Data:      PTRData{Target: "Living Room Speaker._music._tcp.local."},
			},
			{
				Name:      "Living Room Speaker._music._tcp.local.",
				Type:      TypeSRV,
				Class:     ClassIN,
				Unique:    true,
				TTL:       120,
				CreatedAt: now,
				Data:      SRVData{Priority: 0, Weight: 0, Port: 9009, Target: "host.local."},
			},
			{
				Name:      "Living Room Speaker._music._tcp.local.",
				Type:      TypeTXT,
				Class:     ClassIN,
				Unique:    true,
				TTL:       120,
				CreatedAt: now,
				Data: TXTData{Attributes: func() Attributes {
					a := NewAttributes()
					a.Set("Some Text", []byte("true"))
					return a
				}()},
			},
		}

		buf, err := Encode(m)
		Expect(err).NotTo(HaveOccurred())

		decoded, err := Decode(buf, now)
		Expect(err).NotTo(HaveOccurred())

		Expect(decoded.Answers).To(HaveLen(5))
		for i, a := range decoded.Answers {
			Expect(a.Equal(&m.Answers[i])).To(BeTrue())
		}
	})

	It("encodes a repeated name as a two-octet pointer", func() {
		m := NewResponse()
		m.Answers = []Record{
			{
				Name: "a.example.local.", Type: TypePTR, Class: ClassIN,
				TTL: 1, CreatedAt: now, Data: PTRData{Target: "b.example.local."},
			},
			{
				// same owner name repeated verbatim
				Name: "a.example.local.", Type: TypeTXT, Class: ClassIN,
				TTL: 1, CreatedAt: now, Data: TXTData{Attributes: NewAttributes()},
			},
		}

		buf, err := Encode(m)
		Expect(err).NotTo(HaveOccurred())

		decoded, err := Decode(buf, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Answers[1].Name.Equal("a.example.local.")).To(BeTrue())

		// 12 header + 31 first record (17-octet owner, 10 fixed, 4-octet
		// PTR target "b" + pointer) + 13 second record (2-octet pointer
		// owner, 10 fixed, 1-octet empty TXT) = 56. Writing the second owner
		// name out in full would make it 71.
		Expect(len(buf)).To(Equal(56))
	})

	It("rejects a forward-pointing compression pointer", func() {
		// header: no questions, 1 answer
		buf := []byte{
			0, 0, // id
			0x84, 0x00, // flags: response + AA
			0, 0, // qd
			0, 1, // an
			0, 0, // ns
			0, 0, // ar
		}
		// a name that is just a pointer to an offset ahead of itself
		recordStart := len(buf)
		buf = append(buf, 0xC0, byte(recordStart+10))
		buf = append(buf, 0, byte(TypeA), 0, byte(ClassIN), 0, 0, 0, 1, 0, 4)
		buf = append(buf, 127, 0, 0, 1)

		_, err := Decode(buf, now)
		Expect(err).To(HaveOccurred())
	})

	It("fails on truncated input", func() {
		_, err := Decode([]byte{0, 0, 0}, now)
		Expect(err).To(HaveOccurred())
	})
})
