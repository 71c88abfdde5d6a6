package wire

import (
	"encoding/binary"
	"strings"
)

// Encode serializes m into its wire representation, using RFC 1035 §4.1.4
// name compression. The header's transaction ID is always written as zero
// (spec §3).
func Encode(m *Message) ([]byte, error) {
	e := &encoder{offsets: map[string]uint16{}}

	e.u16(0) // ID
	e.u16(m.flags())
	e.u16(uint16(len(m.Questions)))
	e.u16(uint16(len(m.Answers)))
	e.u16(uint16(len(m.Authorities)))
	e.u16(uint16(len(m.Additionals)))

	for _, q := range m.Questions {
		if err := e.writeName(q.Name); err != nil {
			return nil, err
		}
		e.u16(q.Type)
		e.u16(q.Class)
	}

	for _, section := range [][]Record{m.Answers, m.Authorities, m.Additionals} {
		for i := range section {
			if err := e.writeRecord(&section[i]); err != nil {
				return nil, err
			}
		}
	}

	if len(e.buf) > MaxMessageOctets {
		return nil, ErrMalformed
	}

	return e.buf, nil
}

type encoder struct {
	buf     []byte
	offsets map[string]uint16 // dotted suffix, as written -> offset first written at
}

func (e *encoder) u16(v uint16) {
	e.buf = append(e.buf, byte(v>>8), byte(v))
}

func (e *encoder) u32(v uint32) {
	e.buf = append(e.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// writeName writes n using compression: if the remaining suffix was
// previously emitted in this message, it writes a two-octet pointer to that
// offset; otherwise it emits the label and records the current offset for
// the full remaining suffix, per spec §4.1.
func (e *encoder) writeName(n Name) error {
	if err := n.Validate(); err != nil {
		return err
	}
	return e.writeLabels(n.labels())
}

func (e *encoder) writeLabels(labels []string) error {
	if len(labels) == 0 {
		e.buf = append(e.buf, 0)
		return nil
	}

	suffix := strings.Join(labels, ".") + "."
	if off, ok := e.offsets[suffix]; ok {
		e.buf = append(e.buf, 0xC0|byte(off>>8), byte(off))
		return nil
	}

	if len(e.buf) <= 0x3FFF {
		e.offsets[suffix] = uint16(len(e.buf))
	}

	label := labels[0]
	if len(label) == 0 || len(label) > MaxLabelOctets {
		return ErrMalformed
	}
	e.buf = append(e.buf, byte(len(label)))
	e.buf = append(e.buf, label...)

	return e.writeLabels(labels[1:])
}

func (e *encoder) writeRecord(r *Record) error {
	if err := e.writeName(r.Name); err != nil {
		return err
	}

	e.u16(r.Type)

	class := r.class15()
	if r.Unique {
		class |= classUniqueBit
	}
	e.u16(class)
	e.u32(r.TTL)

	lenPos := len(e.buf)
	e.u16(0) // placeholder, back-patched below

	if err := e.writeData(r.Type, r.Data); err != nil {
		return err
	}

	rdlength := len(e.buf) - (lenPos + 2)
	binary.BigEndian.PutUint16(e.buf[lenPos:], uint16(rdlength))

	return nil
}

func (e *encoder) writeData(rrtype uint16, data Data) error {
	switch d := data.(type) {
	case AData:
		ip := d.Address.To4()
		if ip == nil {
			return ErrMalformed
		}
		e.buf = append(e.buf, ip...)
	case AAAAData:
		ip := d.Address.To16()
		if ip == nil {
			return ErrMalformed
		}
		e.buf = append(e.buf, ip...)
	case PTRData:
		return e.writeName(d.Target)
	case SRVData:
		e.u16(d.Priority)
		e.u16(d.Weight)
		e.u16(d.Port)
		return e.writeName(d.Target)
	case TXTData:
		return e.writeAttributes(d.Attributes)
	default:
		return ErrMalformed
	}
	return nil
}

// writeAttributes writes each entry as a length-prefixed "key" or
// "key=value" string, per RFC 6763 §6. An empty attribute set is written as
// a single zero-length string, the conventional "no attributes" TXT record.
func (e *encoder) writeAttributes(a Attributes) error {
	keys := a.Keys()
	if len(keys) == 0 {
		e.buf = append(e.buf, 0)
		return nil
	}

	for _, k := range keys {
		s := k
		if v, ok := a.Get(k); ok && v != nil {
			s = k + "=" + string(v)
		} else if ok && v == nil {
			// bare flag, already just the key
		}
		if len(s) > 255 {
			return ErrMalformed
		}
		e.buf = append(e.buf, byte(len(s)))
		e.buf = append(e.buf, s...)
	}

	return nil
}
