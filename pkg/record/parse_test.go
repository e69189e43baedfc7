package record

import (
	"strings"
	"testing"

	"github.com/hillu/laurel/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenize(t *testing.T, line string) *token.Line {
	t.Helper()
	l, err := token.Tokenize(line)
	require.NoError(t, err)
	return l
}

func TestParseExecveArrayAndString(t *testing.T) {
	line := `type=EXECVE msg=audit(1.0:1): argc=2 a0="sh" a1="foo bar"`
	rec := Parse(tokenize(t, line), Options{EmitArray: true, EmitString: true})

	argv, ok := rec.Get("ARGV")
	require.True(t, ok)
	require.Equal(t, KindList, argv.Kind)
	require.Len(t, argv.List, 2)
	assert.Equal(t, "sh", string(argv.List[0].Bytes))
	assert.Equal(t, "foo bar", string(argv.List[1].Bytes))

	argvStr, ok := rec.Get("ARGV_STR")
	require.True(t, ok)
	assert.Equal(t, "sh foo bar", string(argvStr.Bytes))
}

func TestParseExecveChunkedArg(t *testing.T) {
	// argument "foobar" split into two hex chunks "666f6f" + "626172"
	line := `type=EXECVE msg=audit(1.0:1): argc=1 a0_len=6 a0[0]=666f6f a0[1]=626172`
	rec := Parse(tokenize(t, line), Options{EmitArray: true})

	argv, ok := rec.Get("ARGV")
	require.True(t, ok)
	require.Len(t, argv.List, 1)
	assert.Equal(t, "foobar", string(argv.List[0].Bytes))
}

func TestParseExecveArgvConcatenationInvariant(t *testing.T) {
	line := `type=EXECVE msg=audit(1.0:1): argc=3 a0="one" a1="two" a2="three"`
	l := tokenize(t, line)
	rec := Parse(l, Options{EmitArray: true})

	var original strings.Builder
	for _, f := range l.Fields {
		if f.Key == "a0" || f.Key == "a1" || f.Key == "a2" {
			original.Write(f.Value.Bytes)
		}
	}

	argv, _ := rec.Get("ARGV")
	var emitted strings.Builder
	for _, v := range argv.List {
		emitted.Write(v.Bytes)
	}

	assert.Equal(t, original.String(), emitted.String())
}

func TestParseExecveElision(t *testing.T) {
	line := `type=EXECVE msg=audit(1.0:1): argc=4 a0="aaaa" a1="bbbb" a2="cccc" a3="dddd"`
	rec := Parse(tokenize(t, line), Options{EmitArray: true, ArgvLimitBytes: 8})

	argv, _ := rec.Get("ARGV")
	// head (a0), marker, tail (a3) at minimum; exact split depends on the
	// half-limit heuristic but a marker must be present since 16 > 8.
	foundMarker := false
	for _, v := range argv.List {
		if v.Kind == KindMap {
			foundMarker = true
			skipped, ok := fieldValue(v.Map, "skipped_args")
			require.True(t, ok)
			assert.Greater(t, skipped.Int, int64(0))
		}
	}
	assert.True(t, foundMarker)
}

func fieldValue(fields []Field, key string) (Value, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

func TestParseUnknownTypePassesThroughGeneric(t *testing.T) {
	line := `type=SOME_FUTURE_TYPE msg=audit(1.0:1): foo=bar`
	rec := Parse(tokenize(t, line), Options{})
	assert.False(t, rec.Known)
	assert.Equal(t, "SOME_FUTURE_TYPE", rec.Type)
	v, ok := rec.Get("foo")
	require.True(t, ok)
	assert.Equal(t, "bar", string(v.Bytes))
}

func TestParseKnownTypeMarksKnown(t *testing.T) {
	rec := Parse(tokenize(t, `type=SYSCALL msg=audit(1.0:1): pid=1`), Options{})
	assert.True(t, rec.Known)
}

func TestRecordEqualDetectsByteIdenticalDuplicates(t *testing.T) {
	a := Parse(tokenize(t, `type=PATH msg=audit(1.0:1): name="/etc/passwd"`), Options{})
	b := Parse(tokenize(t, `type=PATH msg=audit(1.0:1): name="/etc/passwd"`), Options{})
	c := Parse(tokenize(t, `type=PATH msg=audit(1.0:1): name="/etc/shadow"`), Options{})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
