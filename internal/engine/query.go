package engine

import (
	"fmt"
	"time"

	"github.com/student/mdnsd/internal/mdnssd"
	"github.com/student/mdnsd/internal/wire"
)

// handleQuery builds the single authoritative response to req, per the
// per-question-type rules of spec §4.3. It returns nil if no question
// produced any answer.
func (e *Engine) handleQuery(req *wire.Message, now time.Time) *wire.Message {
	res := wire.NewResponse()

	for _, q := range req.Questions {
		e.answerQuestion(res, q, now)
	}

	// known-answer suppression: drop any answer the querier already
	// demonstrated it holds a fresh copy of (spec §4.6).
	filtered := res.Answers[:0]
	for _, a := range res.Answers {
		a := a
		if !a.SuppressedBy(req) {
			filtered = append(filtered, a)
		}
	}
	res.Answers = filtered

	if len(res.Answers) == 0 {
		return nil
	}

	e.attachAdditionals(res, now)

	return res
}

// answerQuestion implements the per-question-type bullets of spec §4.3
// verbatim. PTR questions are matched literally, never via ANY; the other
// types accept their own literal question type or ANY. TXT-on-ANY uses the
// question's own name as the TXT owner even though an SRV query's A/AAAA
// records use the service's hostname instead (spec §9, preserved
// distinction).
func (e *Engine) answerQuestion(res *wire.Message, q wire.Question, now time.Time) {
	if q.Type == wire.TypePTR {
		if q.Name.Equal(mdnssd.DiscoveryName) {
			for _, ptr := range e.registry.pointerNames() {
				res.Answers = append(res.Answers, wire.Record{
					Name:      mdnssd.DiscoveryName,
					Type:      wire.TypePTR,
					Class:     wire.ClassIN,
					Unique:    true,
					TTL:       e.defaultTTLSeconds(),
					CreatedAt: now,
					Data:      wire.PTRData{Target: ptr},
				})
			}
		} else {
			for _, s := range e.registry.servicesForPointer(q.Name) {
				res.Answers = append(res.Answers, ptrRecord(s, e.defaultTTL(), now))
			}
		}
	}

	if q.Type == wire.TypeSRV || q.Type == wire.TypeANY {
		if s, ok := e.registry.lookup(q.Name); ok {
			res.Answers = append(res.Answers, srvRecord(s, e.defaultTTL(), true, now))
			if q.Type == wire.TypeSRV {
				res.Answers = append(res.Answers, addressRecords(s, e.defaultTTL(), true, now)...)
			}
		}
	}

	if q.Type == wire.TypeTXT || q.Type == wire.TypeANY {
		if s, ok := e.registry.lookup(q.Name); ok {
			res.Answers = append(res.Answers, txtRecord(s, e.defaultTTL(), true, now))
		}
	}

	if q.Type == wire.TypeA || q.Type == wire.TypeANY {
		for _, s := range e.registry.servicesForHostname(q.Name) {
			if s.IPv4 != nil {
				res.Answers = append(res.Answers, wire.Record{
					Name:      q.Name,
					Type:      wire.TypeA,
					Class:     wire.ClassIN,
					Unique:    true,
					TTL:       e.defaultTTLSeconds(),
					CreatedAt: now,
					Data:      wire.AData{Address: s.IPv4},
				})
			}
		}
	}

	if q.Type == wire.TypeAAAA || q.Type == wire.TypeANY {
		for _, s := range e.registry.servicesForHostname(q.Name) {
			if s.IPv6 != nil {
				res.Answers = append(res.Answers, wire.Record{
					Name:      q.Name,
					Type:      wire.TypeAAAA,
					Class:     wire.ClassIN,
					Unique:    true,
					TTL:       e.defaultTTLSeconds(),
					CreatedAt: now,
					Data:      wire.AAAAData{Address: s.IPv6},
				})
			}
		}
	}
}

// attachAdditionals appends the "SHOULD include" additional records of
// RFC 6763 §12: SRV+TXT for an enumerated instance PTR, and A/AAAA for any
// SRV answer, deduplicated and never already present among the answers.
func (e *Engine) attachAdditionals(res *wire.Message, now time.Time) {
	seen := map[string]struct{}{}
	for _, a := range res.Answers {
		seen[additionalKey(a)] = struct{}{}
	}

	add := func(r wire.Record) {
		k := additionalKey(r)
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		res.Additionals = append(res.Additionals, r)
	}

	for _, a := range res.Answers {
		switch a.Type {
		case wire.TypePTR:
			target, ok := a.Data.(wire.PTRData)
			if !ok {
				continue
			}
			s, ok := e.registry.lookup(target.Target)
			if !ok {
				continue
			}
			add(srvRecord(s, e.defaultTTL(), true, now))
			add(txtRecord(s, e.defaultTTL(), true, now))
			for _, addr := range addressRecords(s, e.defaultTTL(), true, now) {
				add(addr)
			}

		case wire.TypeSRV:
			for _, s := range e.registry.servicesForHostname(wire.Name(hostnameOf(a))) {
				for _, addr := range addressRecords(s, e.defaultTTL(), true, now) {
					add(addr)
				}
			}
		}
	}
}

func hostnameOf(r wire.Record) string {
	d, ok := r.Data.(wire.SRVData)
	if !ok {
		return ""
	}
	return string(d.Target)
}

func additionalKey(r wire.Record) string {
	return fmt.Sprintf("%s\x00%d", r.Name.Fold(), r.Type)
}
