package wire

import (
	"net"
	"strings"
	"time"
)

// Decode parses buf into a Message. The transaction ID is ignored, per spec
// §3. A buffer underflow in any field, a pointer that does not resolve to
// an earlier name, an oversize label, or an unterminated name all yield
// ErrMalformed and abandon decoding of the whole message (spec §4.1).
//
// Unknown record types are skipped (their payload length is honoured) and
// omitted from the result, rather than causing a decode failure.
//
// now is recorded as each decoded record's CreatedAt, establishing the
// instant from which its TTL lifecycle is measured.
func Decode(buf []byte, now time.Time) (*Message, error) {
	d := &decoder{buf: buf, nameCache: map[int]Name{}}

	if len(buf) < 12 {
		return nil, ErrMalformed
	}

	flags := d.u16At(2)
	qd := d.u16At(4)
	an := d.u16At(6)
	ns := d.u16At(8)
	ar := d.u16At(10)
	d.pos = 12

	m := &Message{}
	setFlags(m, flags)

	for i := 0; i < int(qd); i++ {
		q, err := d.readQuestion()
		if err != nil {
			return nil, err
		}
		m.Questions = append(m.Questions, q)
	}

	for i := 0; i < int(an); i++ {
		r, ok, err := d.readRecord(now)
		if err != nil {
			return nil, err
		}
		if ok {
			m.Answers = append(m.Answers, r)
		}
	}

	for i := 0; i < int(ns); i++ {
		r, ok, err := d.readRecord(now)
		if err != nil {
			return nil, err
		}
		if ok {
			m.Authorities = append(m.Authorities, r)
		}
	}

	for i := 0; i < int(ar); i++ {
		r, ok, err := d.readRecord(now)
		if err != nil {
			return nil, err
		}
		if ok {
			m.Additionals = append(m.Additionals, r)
		}
	}

	return m, nil
}

type decoder struct {
	buf       []byte
	pos       int
	nameCache map[int]Name
}

func (d *decoder) u16At(pos int) uint16 {
	return uint16(d.buf[pos])<<8 | uint16(d.buf[pos+1])
}

func (d *decoder) u16() (uint16, error) {
	if d.pos+2 > len(d.buf) {
		return 0, ErrMalformed
	}
	v := d.u16At(d.pos)
	d.pos += 2
	return v, nil
}

func (d *decoder) u32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, ErrMalformed
	}
	v := uint32(d.buf[d.pos])<<24 | uint32(d.buf[d.pos+1])<<16 |
		uint32(d.buf[d.pos+2])<<8 | uint32(d.buf[d.pos+3])
	d.pos += 4
	return v, nil
}

func (d *decoder) readQuestion() (Question, error) {
	name, err := d.readName()
	if err != nil {
		return Question{}, err
	}
	qtype, err := d.u16()
	if err != nil {
		return Question{}, err
	}
	qclass, err := d.u16()
	if err != nil {
		return Question{}, err
	}
	return Question{Name: name, Type: qtype, Class: qclass}, nil
}

func (d *decoder) readRecord(now time.Time) (Record, bool, error) {
	name, err := d.readName()
	if err != nil {
		return Record{}, false, err
	}
	rtype, err := d.u16()
	if err != nil {
		return Record{}, false, err
	}
	rawClass, err := d.u16()
	if err != nil {
		return Record{}, false, err
	}
	ttl, err := d.u32()
	if err != nil {
		return Record{}, false, err
	}
	rdlength, err := d.u16()
	if err != nil {
		return Record{}, false, err
	}

	rdataStart := d.pos
	rdataEnd := rdataStart + int(rdlength)
	if rdataEnd > len(d.buf) {
		return Record{}, false, ErrMalformed
	}

	data, known, err := d.readData(rtype, rdataStart, rdataEnd)
	if err != nil {
		return Record{}, false, err
	}
	if !known {
		d.pos = rdataEnd
		return Record{}, false, nil
	}

	r := Record{
		Name:      name,
		Type:      rtype,
		Class:     rawClass &^ classUniqueBit,
		Unique:    rawClass&classUniqueBit != 0,
		TTL:       ttl,
		CreatedAt: now,
		Data:      data,
	}

	return r, true, nil
}

func (d *decoder) readData(rtype uint16, start, end int) (Data, bool, error) {
	switch rtype {
	case TypeA:
		if end-start != 4 {
			return nil, false, ErrMalformed
		}
		ip := make(net.IP, 4)
		copy(ip, d.buf[start:end])
		d.pos = end
		return AData{Address: ip}, true, nil

	case TypeAAAA:
		if end-start != 16 {
			return nil, false, ErrMalformed
		}
		ip := make(net.IP, 16)
		copy(ip, d.buf[start:end])
		d.pos = end
		return AAAAData{Address: ip}, true, nil

	case TypePTR:
		d.pos = start
		target, err := d.readName()
		if err != nil {
			return nil, false, err
		}
		if d.pos != end {
			return nil, false, ErrMalformed
		}
		return PTRData{Target: target}, true, nil

	case TypeSRV:
		if end-start < 6 {
			return nil, false, ErrMalformed
		}
		d.pos = start
		priority, _ := d.u16()
		weight, _ := d.u16()
		port, _ := d.u16()
		target, err := d.readName()
		if err != nil {
			return nil, false, err
		}
		if d.pos != end {
			return nil, false, ErrMalformed
		}
		return SRVData{Priority: priority, Weight: weight, Port: port, Target: target}, true, nil

	case TypeTXT:
		attrs, err := decodeAttributes(d.buf[start:end])
		if err != nil {
			return nil, false, err
		}
		d.pos = end
		return TXTData{Attributes: attrs}, true, nil

	default:
		return nil, false, nil
	}
}

func decodeAttributes(b []byte) (Attributes, error) {
	a := NewAttributes()
	pos := 0

	for pos < len(b) {
		length := int(b[pos])
		pos++
		if pos+length > len(b) {
			return Attributes{}, ErrMalformed
		}
		s := string(b[pos : pos+length])
		pos += length

		if s == "" {
			continue
		}

		if i := strings.IndexByte(s, '='); i >= 0 {
			key := s[:i]
			if key == "" {
				continue
			}
			if _, exists := a.Get(key); exists {
				continue
			}
			a.Set(key, []byte(s[i+1:]))
		} else {
			if _, exists := a.Get(s); exists {
				continue
			}
			a.Set(s, nil)
		}
	}

	return a, nil
}

// readName reads a name starting at d.pos, following compression pointers,
// and advances d.pos past this name's own encoding (the terminating zero
// octet, or the two-octet pointer that ended it).
func (d *decoder) readName() (Name, error) {
	name, consumed, err := d.readNameAt(d.pos, 0)
	if err != nil {
		return "", err
	}
	d.pos += consumed
	return name, nil
}

const maxPointerChain = 128

func (d *decoder) readNameAt(pos, depth int) (Name, int, error) {
	if depth > maxPointerChain {
		return "", 0, ErrMalformed
	}

	var labels []string
	cur := pos
	selfEnd := -1

	for {
		if cur >= len(d.buf) {
			return "", 0, ErrMalformed
		}

		b := d.buf[cur]

		switch {
		case b == 0:
			if selfEnd == -1 {
				selfEnd = cur + 1
			}
			return d.finishName(pos, labels, selfEnd)

		case b&0xC0 == 0xC0:
			if cur+1 >= len(d.buf) {
				return "", 0, ErrMalformed
			}
			ptr := int(b&0x3F)<<8 | int(d.buf[cur+1])
			if selfEnd == -1 {
				selfEnd = cur + 2
			}
			// a pointer must resolve to a strictly earlier, already-written
			// offset: forward or self pointers are malformed (spec §4.1).
			if ptr >= pos {
				return "", 0, ErrMalformed
			}

			suffix, ok := d.nameCache[ptr]
			if !ok {
				var err error
				suffix, _, err = d.readNameAt(ptr, depth+1)
				if err != nil {
					return "", 0, err
				}
			}
			labels = append(labels, suffix.labels()...)
			return d.finishName(pos, labels, selfEnd)

		default:
			length := int(b)
			if length > MaxLabelOctets {
				return "", 0, ErrMalformed
			}
			if cur+1+length > len(d.buf) {
				return "", 0, ErrMalformed
			}
			labels = append(labels, string(d.buf[cur+1:cur+1+length]))
			cur += 1 + length
		}
	}
}

func (d *decoder) finishName(start int, labels []string, selfEnd int) (Name, int, error) {
	var name Name
	if len(labels) == 0 {
		name = "."
	} else {
		name = Name(strings.Join(labels, ".") + ".")
	}

	if err := name.Validate(); err != nil {
		return "", 0, err
	}

	d.nameCache[start] = name
	return name, selfEnd - start, nil
}
