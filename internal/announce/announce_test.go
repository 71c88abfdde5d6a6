package announce

import (
	"net"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/student/mdnsd/internal/config"
	"github.com/student/mdnsd/internal/mdnssd"
	"github.com/student/mdnsd/internal/wire"
)

type fakeHost struct {
	mu        sync.Mutex
	sent      []*wire.Message
	listeners map[int]ResponseListener
	nextID    int
}

func newFakeHost() *fakeHost {
	return &fakeHost{listeners: map[int]ResponseListener{}}
}

func (h *fakeHost) Send(msg *wire.Message, ifaceIndex int) error {
	h.mu.Lock()
	h.sent = append(h.sent, msg)
	h.mu.Unlock()
	return nil
}

func (h *fakeHost) AddListener(l ResponseListener) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.listeners[h.nextID] = l
	return h.nextID
}

func (h *fakeHost) RemoveListener(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.listeners, id)
}

func (h *fakeHost) deliver(msg *wire.Message) {
	h.mu.Lock()
	listeners := make([]ResponseListener, 0, len(h.listeners))
	for _, l := range h.listeners {
		listeners = append(listeners, l)
	}
	h.mu.Unlock()
	for _, l := range listeners {
		l(msg, time.Now())
	}
}

func (h *fakeHost) sentMessages() []*wire.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*wire.Message(nil), h.sent...)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ProbingNumber = 2
	cfg.ProbingInterval = 5 * time.Millisecond
	cfg.ProbingTimeout = 50 * time.Millisecond
	return cfg
}

func testService() *mdnssd.Service {
	return &mdnssd.Service{
		InstanceName:     "Living Room Speaker",
		RegistrationType: "_music._tcp",
		Hostname:         "host.local.",
		Port:             9009,
		IPv4:             net.ParseIP("10.0.0.5"),
	}
}

var _ = Describe("Run", func() {
	It("announces once probing completes without a conflict", func() {
		host := newFakeHost()
		s := testService()

		conflict, err := Run(testConfig(), host, s, time.Hour, time.Now)
		Expect(err).NotTo(HaveOccurred())
		Expect(conflict).To(BeFalse())

		sent := host.sentMessages()
		Expect(sent).NotTo(BeEmpty())
		Expect(sent[len(sent)-1].Response).To(BeTrue(), "expected the final message to be the unsolicited announcement response")
	})

	It("reports a conflict when a competing SRV is observed while probing", func() {
		host := newFakeHost()
		s := testService()

		done := make(chan struct{})
		go func() {
			time.Sleep(2 * time.Millisecond)
			host.deliver(&wire.Message{
				Response: true,
				Answers: []wire.Record{
					{
						Name: s.ServiceName(), Type: wire.TypeSRV, Class: wire.ClassIN,
						Data: wire.SRVData{Port: s.Port + 1, Target: wire.Name(s.Hostname)},
					},
				},
			})
			close(done)
		}()

		conflict, err := Run(testConfig(), host, s, time.Hour, time.Now)
		<-done
		Expect(err).NotTo(HaveOccurred())
		Expect(conflict).To(BeTrue())
	})

	It("marks the probe's SRV and address authorities with the unique bit", func() {
		host := newFakeHost()
		s := testService()

		_, err := Run(testConfig(), host, s, time.Hour, time.Now)
		Expect(err).NotTo(HaveOccurred())

		var sawUniqueSRV, sawUniqueA bool
		for _, msg := range host.sentMessages() {
			if msg.Response {
				continue // the final announcement, not a probe
			}
			for _, a := range msg.Authorities {
				switch a.Type {
				case wire.TypeSRV:
					sawUniqueSRV = a.Unique
				case wire.TypeA:
					sawUniqueA = a.Unique
				}
			}
		}
		Expect(sawUniqueSRV).To(BeTrue())
		Expect(sawUniqueA).To(BeTrue())
	})
})
