package wire

// Attributes is the ordered key/value mapping carried in a TXT record, per
// RFC 6763 §6. Keys are non-empty ASCII; values are optional opaque bytes.
//
// On decode, a duplicate key retains only its first occurrence, and an
// empty key is silently discarded (§3).
type Attributes struct {
	keys   []string
	values map[string][]byte
	has    map[string]bool
}

// NewAttributes returns an empty attribute set.
func NewAttributes() Attributes {
	return Attributes{}
}

// Set adds or replaces the value associated with key. A nil value encodes
// as a bare "key" entry (a boolean flag); a non-nil (possibly empty) value
// encodes as "key=value".
func (a *Attributes) Set(key string, value []byte) {
	if key == "" {
		return
	}
	if a.values == nil {
		a.values = map[string][]byte{}
		a.has = map[string]bool{}
	}
	if !a.has[key] {
		a.keys = append(a.keys, key)
		a.has[key] = true
	}
	a.values[key] = value
}

// Get returns the value associated with key, and whether key is present.
func (a Attributes) Get(key string) ([]byte, bool) {
	v, ok := a.has[key]
	if !ok || !v {
		return nil, false
	}
	return a.values[key], true
}

// Keys returns the attribute keys in insertion (first-occurrence) order.
func (a Attributes) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of distinct keys.
func (a Attributes) Len() int {
	return len(a.keys)
}

// Equal reports whether a and other have the same keys, in the same order,
// mapping to byte-identical values (nil and empty are distinguished).
func (a Attributes) Equal(other Attributes) bool {
	if len(a.keys) != len(other.keys) {
		return false
	}
	for i, k := range a.keys {
		if other.keys[i] != k {
			return false
		}
		av, aok := a.values[k]
		bv, bok := other.values[k]
		if aok != bok {
			return false
		}
		if aok && string(av) != string(bv) {
			return false
		}
	}
	return true
}
