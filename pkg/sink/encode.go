// Package sink implements the write-side adapter (§4.6/§6): serializing a
// finished, enriched event to NDJSON in the fixed field order the output
// format requires, and handing the bytes to an external write contract
// with the retry policy §7 names.
package sink

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/hillu/laurel/pkg/enrich"
	"github.com/hillu/laurel/pkg/record"
)

// EncodeEvent renders out as one NDJSON line (without the trailing
// newline), in the fixed key order from §6: ID, NODE, then one key per
// record type in arrival order, then enrichment blocks, per out.Prefix.
func EncodeEvent(out *enrich.Output) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(out.Prefix)
	buf.WriteByte('{')

	w := &objectWriter{buf: &buf}
	w.field("ID", out.ID.String())
	w.field("NODE", out.Node)

	for _, typ := range recordTypeOrder(out.Records) {
		recs := recordsOfType(out.Records, typ)
		if len(recs) == 1 {
			w.fieldJSON(typ, encodeRecord(recs[0]))
		} else {
			var arr bytes.Buffer
			arr.WriteByte('[')
			for i, r := range recs {
				if i > 0 {
					arr.WriteByte(',')
				}
				arr.Write(encodeRecord(r))
			}
			arr.WriteByte(']')
			w.fieldJSON(typ, arr.Bytes())
		}
	}

	for _, b := range out.Blocks {
		w.fieldRaw(b.Name, b.Data)
	}

	if w.err != nil {
		return nil, w.err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// objectWriter incrementally builds a JSON object, one key at a time, in
// caller-specified order — encoding/json's map ordering can't be trusted,
// and the output format's field order is part of the contract.
type objectWriter struct {
	buf   *bytes.Buffer
	first bool
	err   error
}

func (w *objectWriter) comma() {
	if w.first {
		w.buf.WriteByte(',')
	}
	w.first = true
}

func (w *objectWriter) field(key, value string) {
	w.comma()
	b, err := json.Marshal(value)
	if err != nil {
		w.err = err
		return
	}
	w.buf.WriteString(strconv.Quote(key))
	w.buf.WriteByte(':')
	w.buf.Write(b)
}

func (w *objectWriter) fieldRaw(key string, value interface{}) {
	w.comma()
	b, err := json.Marshal(value)
	if err != nil {
		w.err = err
		return
	}
	w.buf.WriteString(strconv.Quote(key))
	w.buf.WriteByte(':')
	w.buf.Write(b)
}

// fieldJSON writes a key whose value is already-encoded JSON, used for
// records and record arrays so their field order is the hand-built order
// from encodeRecord/encodeValue rather than encoding/json's map order.
func (w *objectWriter) fieldJSON(key string, raw []byte) {
	w.comma()
	w.buf.WriteString(strconv.Quote(key))
	w.buf.WriteByte(':')
	w.buf.Write(raw)
}

func recordTypeOrder(recs []*record.Record) []string {
	var order []string
	seen := map[string]struct{}{}
	for _, r := range recs {
		if _, ok := seen[r.Type]; ok {
			continue
		}
		seen[r.Type] = struct{}{}
		order = append(order, r.Type)
	}
	return order
}

func recordsOfType(recs []*record.Record, typ string) []*record.Record {
	var out []*record.Record
	for _, r := range recs {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

// encodeRecord renders one record's fields as a JSON object in their
// original insertion order (§4.2: "emitted JSON ordering is part of the
// external contract") — a plain map would let encoding/json re-sort keys
// alphabetically, which is exactly what the format forbids.
func encodeRecord(r *record.Record) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(f.Key))
		buf.WriteByte(':')
		buf.Write(encodeValue(f.Value))
	}
	if r.Truncated {
		if len(r.Fields) > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`"_truncated":true`)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// encodeValue renders one Value as JSON, preserving the declaration order
// of any nested KindMap fields (e.g. SOCKADDR, CAP) the same way
// encodeRecord does for top-level fields.
func encodeValue(v record.Value) []byte {
	var decoded []byte
	switch v.Kind {
	case record.KindInt:
		decoded = []byte(strconv.FormatInt(v.Int, 10))
	case record.KindNull:
		decoded = []byte("null")
	case record.KindMap:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, f := range v.Map {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Quote(f.Key))
			buf.WriteByte(':')
			buf.Write(encodeValue(f.Value))
		}
		buf.WriteByte('}')
		decoded = buf.Bytes()
	case record.KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.List {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(encodeValue(item))
		}
		buf.WriteByte(']')
		decoded = buf.Bytes()
	default:
		b, _ := json.Marshal(string(v.Bytes)) // string marshaling never fails
		decoded = b
	}

	if v.Symbolic == "" {
		return decoded
	}
	sym, _ := json.Marshal(v.Symbolic)
	var buf bytes.Buffer
	buf.WriteString(`{"raw":`)
	buf.Write(decoded)
	buf.WriteString(`,"translated":`)
	buf.Write(sym)
	buf.WriteByte('}')
	return buf.Bytes()
}
