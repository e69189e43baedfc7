package record

import "github.com/hillu/laurel/pkg/token"

// Parse runs the typed parser (§4.2) over one tokenized line: it assigns
// Known, fixes up EXECVE's argv reassembly, and otherwise preserves the
// tokenizer's field order and values untouched (the "generic mapping"
// fallback for unknown types and unremarkable fields on known types alike).
func Parse(l *token.Line, opts Options) *Record {
	rec := &Record{
		Type:   l.Type,
		Known:  IsKnown(l.Type),
		Fields: convertFields(l.Fields),
	}

	if l.Type == "EXECVE" {
		reassembleExecve(rec, opts)
	}

	return rec
}

// ParseOpaque wraps a tokenizer failure into a Record so a malformed line
// still flows through the pipeline per §4.1/§7 policy ("never drop").
func ParseOpaque(rawLine string, partial *token.Line, err error) *Record {
	rec := &Record{RawLine: rawLine, ParseError: err}
	if partial != nil {
		rec.Type = partial.Type
		rec.Fields = convertFields(partial.Fields)
	}
	return rec
}

func convertFields(fields []token.Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Key: f.Key, Value: convertValue(f.Value)}
	}
	return out
}

func convertValue(v token.Value) Value {
	switch v.Kind {
	case token.KindNull:
		return Value{Kind: KindNull, Raw: v.Raw}
	case token.KindMap:
		return Value{Kind: KindMap, Raw: v.Raw, Map: convertFields(v.Map)}
	default: // token.KindBytes
		return Value{Kind: KindBytes, Raw: v.Raw, Bytes: v.Bytes}
	}
}
