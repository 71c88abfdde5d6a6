package wire_test

import (
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/student/mdnsd/internal/wire"
)

var _ = Describe("Name", func() {
	It("compares case-insensitively", func() {
		Expect(Name("Foo.Local.").Equal(Name("foo.local."))).To(BeTrue())
	})

	It("does not normalize case on construction", func() {
		n := Name("Foo.Local.")
		Expect(n.String()).To(Equal("Foo.Local."))
	})

	It("rejects an oversize label", func() {
		n := Name(strings.Repeat("a", 64) + ".local.")
		Expect(n.Validate()).To(HaveOccurred())
	})

	It("rejects a name over 255 octets once serialized", func() {
		label := strings.Repeat("a", 63)
		n := Name(strings.Repeat(label+".", 5) + "local.")
		Expect(n.Validate()).To(HaveOccurred())
	})

	It("accepts a well-formed name", func() {
		Expect(Name("_music._tcp.local.").Validate()).NotTo(HaveOccurred())
	})
})
