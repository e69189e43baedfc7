// Package token implements the line tokenizer (§4.1): it splits one
// complete audit line into a type tag, an event.ID, and an ordered sequence
// of key/value tokens, resolving the value grammar (quoted / hex / null /
// bare / nested mapping) token by token. The typed parser (package record)
// consumes a Line and assigns per-record-type meaning to these tokens.
package token

import (
	"strconv"

	"github.com/hillu/laurel/pkg/event"
	"github.com/hillu/laurel/pkg/laurelerr"
)

// MaxLineLength is the default overlong-line ceiling from §6 Input.
const MaxLineLength = 64 * 1024

// Line is everything the tokenizer recovers from one input line before the
// typed parser runs.
type Line struct {
	Type   string
	ID     event.ID
	Fields []Field
}

// Tokenize parses one complete line. On a malformed header or token stream
// it returns a *laurelerr.Error (kind MalformedLine) alongside a best-effort
// Line so the line can still be carried downstream as an opaque record.
func Tokenize(line string) (*Line, error) {
	p := &parser{s: line}

	if err := p.expectLiteral("type="); err != nil {
		return nil, err
	}
	typeTag := p.readUntil(' ')
	if typeTag == "" {
		return nil, laurelerr.NewAtOffset(laurelerr.MalformedLine, p.pos, "empty type tag")
	}

	p.skipSpaces()
	if err := p.expectLiteral("msg=audit("); err != nil {
		return &Line{Type: typeTag}, err
	}
	id, err := p.parseEventID()
	if err != nil {
		return &Line{Type: typeTag}, err
	}
	if err := p.expectLiteral("):"); err != nil {
		return &Line{Type: typeTag, ID: id}, err
	}

	fields, err := p.parseFields()
	return &Line{Type: typeTag, ID: id, Fields: fields}, err
}

type parser struct {
	s   string
	pos int
}

func (p *parser) expectLiteral(lit string) error {
	if len(p.s)-p.pos < len(lit) || p.s[p.pos:p.pos+len(lit)] != lit {
		return laurelerr.NewAtOffset(laurelerr.MalformedLine, p.pos, "expected %q", lit)
	}
	p.pos += len(lit)
	return nil
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) readUntil(delim byte) string {
	start := p.pos
	for p.pos < len(p.s) && p.s[p.pos] != delim {
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *parser) parseEventID() (event.ID, error) {
	secStr := p.readUntilAny(".")
	sec, err := strconv.ParseUint(secStr, 10, 64)
	if err != nil {
		return event.ID{}, laurelerr.NewAtOffset(laurelerr.MalformedLine, p.pos, "bad event seconds %q", secStr)
	}
	if err := p.expectLiteral("."); err != nil {
		return event.ID{}, err
	}
	msStr := p.readUntilAny(":")
	ms, err := strconv.ParseUint(msStr, 10, 16)
	if err != nil {
		return event.ID{}, laurelerr.NewAtOffset(laurelerr.MalformedLine, p.pos, "bad event milliseconds %q", msStr)
	}
	if err := p.expectLiteral(":"); err != nil {
		return event.ID{}, err
	}
	serialStr := p.readUntilAny(")")
	serial, err := strconv.ParseUint(serialStr, 10, 64)
	if err != nil {
		return event.ID{}, laurelerr.NewAtOffset(laurelerr.MalformedLine, p.pos, "bad event serial %q", serialStr)
	}
	return event.ID{Seconds: sec, Millis: uint16(ms), Serial: serial}, nil
}

func (p *parser) readUntilAny(delims string) string {
	start := p.pos
	for p.pos < len(p.s) {
		for i := 0; i < len(delims); i++ {
			if p.s[p.pos] == delims[i] {
				return p.s[start:p.pos]
			}
		}
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *parser) parseFields() ([]Field, error) {
	var fields []Field
	p.skipSpaces()
	for p.pos < len(p.s) {
		key := p.readUntil('=')
		if key == "" || p.pos >= len(p.s) {
			return fields, laurelerr.NewAtOffset(laurelerr.MalformedLine, p.pos, "expected key=value")
		}
		p.pos++ // consume '='

		val, err := p.parseValue()
		if err != nil {
			return fields, err
		}
		fields = append(fields, Field{Key: key, Value: val})
		p.skipSpaces()
	}
	return fields, nil
}

// parseValue resolves the value grammar in the order specified in §4.1: a
// leading '{' is the nested-mapping special form, then quoted, then hex,
// then the null marker, then bare.
func (p *parser) parseValue() (Value, error) {
	if p.pos >= len(p.s) {
		return Value{}, laurelerr.NewAtOffset(laurelerr.MalformedLine, p.pos, "value expected")
	}

	switch p.s[p.pos] {
	case '{':
		return p.parseMapping()
	case '"':
		return p.parseQuoted()
	}

	raw := p.readUntil(' ')

	if raw == "(null)" {
		return nullValue([]byte(raw)), nil
	}
	if decoded, ok := decodeHex(raw); ok {
		return bytesValue([]byte(raw), decoded), nil
	}
	return bytesValue([]byte(raw), []byte(raw)), nil
}

func (p *parser) parseQuoted() (Value, error) {
	start := p.pos
	p.pos++ // consume opening quote
	contentStart := p.pos
	for p.pos < len(p.s) && p.s[p.pos] != '"' {
		p.pos++
	}
	if p.pos >= len(p.s) {
		return Value{}, laurelerr.NewAtOffset(laurelerr.MalformedLine, start, "unterminated quoted value")
	}
	content := p.s[contentStart:p.pos]
	p.pos++ // consume closing quote
	return bytesValue([]byte(p.s[start:p.pos]), []byte(content)), nil
}

// parseMapping parses the "{ k1=v1 k2=v2 }" nested-group form used by
// SOCKADDR, CAP and similar records.
func (p *parser) parseMapping() (Value, error) {
	start := p.pos
	p.pos++ // consume '{'
	p.skipSpaces()

	var fields []Field
	for p.pos < len(p.s) && p.s[p.pos] != '}' {
		key := p.readUntil('=')
		if key == "" || p.pos >= len(p.s) {
			return Value{}, laurelerr.NewAtOffset(laurelerr.MalformedLine, p.pos, "expected key=value in mapping")
		}
		p.pos++ // consume '='
		val, err := p.parseMappingValue()
		if err != nil {
			return Value{}, err
		}
		fields = append(fields, Field{Key: key, Value: val})
		p.skipSpaces()
	}
	if p.pos >= len(p.s) {
		return Value{}, laurelerr.NewAtOffset(laurelerr.MalformedLine, start, "unterminated mapping")
	}
	p.pos++ // consume '}'
	return mapValue([]byte(p.s[start:p.pos]), fields), nil
}

func (p *parser) parseMappingValue() (Value, error) {
	if p.pos < len(p.s) && p.s[p.pos] == '"' {
		return p.parseQuoted()
	}
	raw := p.readUntilAny(" }")
	if raw == "(null)" {
		return nullValue([]byte(raw)), nil
	}
	if decoded, ok := decodeHex(raw); ok {
		return bytesValue([]byte(raw), decoded), nil
	}
	return bytesValue([]byte(raw), []byte(raw)), nil
}

// decodeHex decodes an even-length run of hex digits. An empty string is
// not treated as hex (it's the empty bare token).
func decodeHex(s string) ([]byte, bool) {
	if len(s) == 0 || len(s)%2 != 0 {
		return nil, false
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi, ok1 := hexDigit(s[2*i])
		lo, ok2 := hexDigit(s[2*i+1])
		if !ok1 || !ok2 {
			return nil, false
		}
		out[i] = hi<<4 | lo
	}
	return out, true
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
