package record

// Record is one parsed audit line: a type tag plus its ordered key/value
// pairs. Unknown types still produce a Record — Known is false and Fields
// is whatever the tokenizer managed to split out — so downstream filters
// can still match on them (per the tokenizer's pass-through-on-error rule).
type Record struct {
	Type    string
	Fields  []Field
	Known   bool
	RawLine string

	// Truncated is set when the source line exceeded the configured byte
	// ceiling and was cut short before tokenizing.
	Truncated bool
	// ParseError carries a tokenizer/parser failure for this record, if
	// any. The record is still emitted; this is informational.
	ParseError error
}

// Get returns the first field with the given key and whether it was found.
// Field order is preserved elsewhere; this is just a convenience lookup for
// the (common) case of a key appearing once.
func (r *Record) Get(key string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Set replaces the value of an existing field (by key) in place, or appends
// a new field if the key isn't present. Used by the parser/enricher to fold
// in derived fields (e.g. ARGV) without disturbing the rest of the order.
func (r *Record) Set(key string, v Value) {
	for i := range r.Fields {
		if r.Fields[i].Key == key {
			r.Fields[i].Value = v
			return
		}
	}
	r.Fields = append(r.Fields, Field{Key: key, Value: v})
}

// Size approximates the record's on-wire byte footprint, used by the
// coalescer to enforce the per-event byte ceiling (§4.3). It doesn't need to
// be exact — just a stable, monotonic-in-content measure.
func (r *Record) Size() int {
	n := len(r.Type) + len(r.RawLine)
	for _, f := range r.Fields {
		n += len(f.Key) + valueSize(f.Value)
	}
	return n
}

func valueSize(v Value) int {
	n := len(v.Raw) + len(v.Bytes)
	for _, f := range v.Map {
		n += len(f.Key) + valueSize(f.Value)
	}
	for _, item := range v.List {
		n += valueSize(item)
	}
	return n
}

// Equal reports bit-identity between two records: same type, same fields in
// the same order, same raw bytes — used by the coalescer to suppress exact
// duplicate records within an event.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.Type != other.Type || len(r.Fields) != len(other.Fields) {
		return false
	}
	for i := range r.Fields {
		if r.Fields[i].Key != other.Fields[i].Key {
			return false
		}
		if !valuesEqual(r.Fields[i].Value, other.Fields[i].Value) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b Value) bool {
	if a.Kind != b.Kind || string(a.Raw) != string(b.Raw) {
		return false
	}
	switch a.Kind {
	case KindMap:
		if len(a.Map) != len(b.Map) {
			return false
		}
		for i := range a.Map {
			if a.Map[i].Key != b.Map[i].Key || !valuesEqual(a.Map[i].Value, b.Map[i].Value) {
				return false
			}
		}
		return true
	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !valuesEqual(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}
