package wire

// flag bits within the 16-bit header flags field. Only QR and AA are
// meaningful for mDNS (spec §3); every other bit is always zero on the
// wire.
const (
	flagResponse      uint16 = 1 << 15 // QR
	flagAuthoritative uint16 = 1 << 10 // AA
)

// Question is a single entry in a message's question section. Questions are
// never cached.
type Question struct {
	Name  Name
	Type  uint16
	Class uint16
}

// Message is a decoded (or to-be-encoded) DNS message.
//
// The wire transaction ID is always emitted as zero and ignored on
// input, per spec §3, so it has no field here.
type Message struct {
	Response      bool
	Authoritative bool
	Questions     []Question
	Answers       []Record
	Authorities   []Record
	Additionals   []Record
}

// NewQuery returns an empty query message.
func NewQuery(questions ...Question) *Message {
	return &Message{Questions: questions}
}

// NewResponse returns an empty authoritative response message.
func NewResponse() *Message {
	return &Message{Response: true, Authoritative: true}
}

func (m *Message) flags() uint16 {
	var f uint16
	if m.Response {
		f |= flagResponse
	}
	if m.Authoritative {
		f |= flagAuthoritative
	}
	return f
}

func setFlags(m *Message, f uint16) {
	m.Response = f&flagResponse != 0
	m.Authoritative = f&flagAuthoritative != 0
}

// IsEmpty reports whether m carries no records at all, in which case the
// engine must not send it (spec §4.3).
func (m *Message) IsEmpty() bool {
	return len(m.Answers) == 0 && len(m.Authorities) == 0 && len(m.Additionals) == 0
}
