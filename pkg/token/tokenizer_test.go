package token

import (
	"testing"

	"github.com/hillu/laurel/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeSyscallLine(t *testing.T) {
	line := `type=SYSCALL msg=audit(1234567890.123:456): arch=c000003e syscall=59 pid=100 ppid=1 comm="x" exe="/bin/x" key="k1"`
	l, err := Tokenize(line)
	require.NoError(t, err)

	assert.Equal(t, "SYSCALL", l.Type)
	assert.Equal(t, event.ID{Seconds: 1234567890, Millis: 123, Serial: 456}, l.ID)

	get := func(key string) Value {
		for _, f := range l.Fields {
			if f.Key == key {
				return f.Value
			}
		}
		t.Fatalf("missing field %q", key)
		return Value{}
	}

	assert.Equal(t, "/bin/x", string(get("exe").Bytes))
	assert.Equal(t, "x", string(get("comm").Bytes))
	assert.Equal(t, "k1", string(get("key").Bytes))
	assert.Equal(t, "100", string(get("pid").Bytes))
}

func TestTokenizeHexValue(t *testing.T) {
	// "foo" in hex
	line := `type=PATH msg=audit(1.0:1): name=666F6F`
	l, err := Tokenize(line)
	require.NoError(t, err)
	assert.Equal(t, "foo", string(l.Fields[0].Value.Bytes))
	assert.Equal(t, "666F6F", string(l.Fields[0].Value.Raw))
}

func TestHexRoundTrip(t *testing.T) {
	for _, hex := range []string{"666F6F", "00", "DEADBEEF", "0a0b0c"} {
		decoded, ok := decodeHex(hex)
		require.True(t, ok, hex)
		reencoded := reencodeHexUpper(decoded)
		assert.Equal(t, upper(hex), reencoded)
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func reencodeHexUpper(b []byte) string {
	const digits = "0123456789ABCDEF"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[2*i] = digits[c>>4]
		out[2*i+1] = digits[c&0xf]
	}
	return string(out)
}

func TestTokenizeNullMarker(t *testing.T) {
	line := `type=SYSCALL msg=audit(1.0:1): exe=(null)`
	l, err := Tokenize(line)
	require.NoError(t, err)
	assert.Equal(t, KindNull, l.Fields[0].Value.Kind)
}

func TestTokenizeNestedMapping(t *testing.T) {
	line := `type=SOCKADDR msg=audit(1.0:1): saddr={ saddr_fam=inet laddr=127.0.0.1 lport=5555 }`
	l, err := Tokenize(line)
	require.NoError(t, err)
	require.Len(t, l.Fields, 1)
	v := l.Fields[0].Value
	require.Equal(t, KindMap, v.Kind)
	assert.Equal(t, "inet", string(v.Map[0].Value.Bytes))
	assert.Equal(t, "127.0.0.1", string(v.Map[1].Value.Bytes))
	assert.Equal(t, "5555", string(v.Map[2].Value.Bytes))
}

func TestTokenizeMalformedHeaderReturnsError(t *testing.T) {
	_, err := Tokenize(`not a valid audit line at all`)
	require.Error(t, err)
}

func TestTokenizeUnterminatedQuote(t *testing.T) {
	_, err := Tokenize(`type=SYSCALL msg=audit(1.0:1): comm="unterminated`)
	require.Error(t, err)
}
