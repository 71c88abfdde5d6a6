package resolve

import (
	"net"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/student/mdnsd/internal/cache"
	"github.com/student/mdnsd/internal/config"
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

func (h *fakeHost) sentCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sent)
}

const serviceName = wire.Name("Living Room Speaker._music._tcp.local.")
const hostname = wire.Name("host.local.")

func fullAnswers() []wire.Record {
	return []wire.Record{
		{Name: serviceName, Type: wire.TypeSRV, Class: wire.ClassIN, TTL: 120, CreatedAt: time.Now(),
			Data: wire.SRVData{Target: hostname, Port: 9009}},
		{Name: serviceName, Type: wire.TypeTXT, Class: wire.ClassIN, TTL: 120, CreatedAt: time.Now(),
			Data: wire.TXTData{Attributes: wire.NewAttributes()}},
		{Name: hostname, Type: wire.TypeA, Class: wire.ClassIN, TTL: 120, CreatedAt: time.Now(),
			Data: wire.AData{Address: net.ParseIP("10.0.0.5")}},
	}
}

var _ = Describe("Resolve", func() {
	It("returns immediately when the cache already satisfies the service", func() {
		c := cache.New()
		for _, r := range fullAnswers() {
			c.Add(r)
		}

		host := newFakeHost()
		s, err := Resolve(config.Default(), host, c, "Living Room Speaker", "_music._tcp", time.Now)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Hostname).To(Equal(string(hostname)))
		Expect(s.Port).To(Equal(uint16(9009)))
		Expect(s.IPv4).NotTo(BeNil())
		Expect(host.sentCount()).To(Equal(0), "no queries should be sent when the cache already satisfies the service")
	})

	It("wakes and resolves as soon as a listener delivers the missing answers", func() {
		c := cache.New()
		host := newFakeHost()

		cfg := config.Default()
		cfg.ResolutionInterval = 5 * time.Millisecond
		cfg.ResolutionTimeout = time.Second

		go func() {
			time.Sleep(2 * time.Millisecond)
			host.deliver(&wire.Message{Response: true, Answers: fullAnswers()})
		}()

		s, err := Resolve(cfg, host, c, "Living Room Speaker", "_music._tcp", time.Now)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Resolved()).To(BeTrue())
	})

	It("returns ErrUnresolved once the resolution timeout elapses", func() {
		c := cache.New()
		host := newFakeHost()

		cfg := config.Default()
		cfg.ResolutionInterval = 2 * time.Millisecond
		cfg.ResolutionTimeout = 10 * time.Millisecond

		_, err := Resolve(cfg, host, c, "Living Room Speaker", "_music._tcp", time.Now)
		Expect(err).To(MatchError(ErrUnresolved))
	})
})

var _ = Describe("backoffSchedule", func() {
	It("doubles each step and appends a non-zero residual", func() {
		got := backoffSchedule(200*time.Millisecond, 900*time.Millisecond)
		Expect(got).To(Equal([]time.Duration{
			200 * time.Millisecond,
			400 * time.Millisecond,
			300 * time.Millisecond,
		}))
	})

	It("omits the residual when the timeout is an exact multiple", func() {
		got := backoffSchedule(100*time.Millisecond, 300*time.Millisecond)
		Expect(got).To(Equal([]time.Duration{100 * time.Millisecond, 200 * time.Millisecond}))
	})
})
