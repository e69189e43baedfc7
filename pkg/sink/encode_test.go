package sink

import (
	"encoding/json"
	"testing"

	"github.com/hillu/laurel/pkg/enrich"
	"github.com/hillu/laurel/pkg/event"
	"github.com/hillu/laurel/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEventFieldOrderAndContent(t *testing.T) {
	out := &enrich.Output{
		ID:   event.ID{Seconds: 1, Millis: 234, Serial: 5},
		Node: "host1",
		Records: []*record.Record{
			{Type: "SYSCALL", Fields: []record.Field{
				{Key: "pid", Value: record.BytesValue([]byte("100"), []byte("100"))},
				{Key: "exe", Value: record.BytesValue([]byte("/bin/x"), []byte("/bin/x"))},
			}},
		},
		Blocks: []enrich.Block{
			{Name: "PID", Data: map[string]interface{}{"exe": "/bin/x"}},
		},
	}

	line, err := EncodeEvent(out)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(line, &decoded))
	assert.Equal(t, "1.234:5", decoded["ID"])
	assert.Equal(t, "host1", decoded["NODE"])
	assert.Contains(t, decoded, "SYSCALL")
	assert.Contains(t, decoded, "PID")

	s := string(line)
	idIdx := indexOf(s, `"ID"`)
	nodeIdx := indexOf(s, `"NODE"`)
	syscallIdx := indexOf(s, `"SYSCALL"`)
	pidIdx := indexOf(s, `"PID"`)
	assert.True(t, idIdx < nodeIdx)
	assert.True(t, nodeIdx < syscallIdx)
	assert.True(t, syscallIdx < pidIdx)
}

func TestEncodeEventPreservesFieldInsertionOrder(t *testing.T) {
	out := &enrich.Output{
		ID:   event.ID{Seconds: 1, Serial: 1},
		Node: "host1",
		Records: []*record.Record{
			{Type: "SYSCALL", Fields: []record.Field{
				{Key: "pid", Value: record.BytesValue([]byte("100"), []byte("100"))},
				{Key: "ppid", Value: record.BytesValue([]byte("1"), []byte("1"))},
				{Key: "comm", Value: record.BytesValue([]byte("sh"), []byte("sh"))},
				{Key: "exe", Value: record.BytesValue([]byte("/bin/sh"), []byte("/bin/sh"))},
				{Key: "key", Value: record.BytesValue([]byte("watched"), []byte("watched"))},
			}},
		},
	}

	line, err := EncodeEvent(out)
	require.NoError(t, err)

	s := string(line)
	var last int = -1
	for _, key := range []string{`"pid"`, `"ppid"`, `"comm"`, `"exe"`, `"key"`} {
		idx := indexOf(s, key)
		require.True(t, idx > last, "expected %s to appear after previous field, in insertion order", key)
		last = idx
	}
}

func TestEncodeEventGroupsMultiplePathRecordsIntoArray(t *testing.T) {
	out := &enrich.Output{
		ID:   event.ID{Seconds: 1, Serial: 1},
		Node: "host1",
		Records: []*record.Record{
			{Type: "PATH", Fields: []record.Field{{Key: "name", Value: record.BytesValue([]byte("/a"), []byte("/a"))}}},
			{Type: "PATH", Fields: []record.Field{{Key: "name", Value: record.BytesValue([]byte("/b"), []byte("/b"))}}},
		},
	}
	line, err := EncodeEvent(out)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(line, &decoded))
	paths, ok := decoded["PATH"].([]interface{})
	require.True(t, ok)
	assert.Len(t, paths, 2)
}

func TestEncodeEventOptionalPrefix(t *testing.T) {
	out := &enrich.Output{ID: event.ID{Seconds: 1, Serial: 1}, Node: "h", Prefix: "@cee: "}
	line, err := EncodeEvent(out)
	require.NoError(t, err)
	assert.Contains(t, string(line), "@cee: {")
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
