package enrich

import (
	"testing"
	"time"

	"github.com/hillu/laurel/pkg/config"
	"github.com/hillu/laurel/pkg/event"
	"github.com/hillu/laurel/pkg/proctree"
	"github.com/hillu/laurel/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strField(key, val string) record.Field {
	return record.Field{Key: key, Value: record.BytesValue([]byte(val), []byte(val))}
}

func syscallRecord(pid, ppid int64, exe, comm, key string) *record.Record {
	return &record.Record{Type: "SYSCALL", Known: true, Fields: []record.Field{
		strField("pid", itoa(pid)),
		strField("ppid", itoa(ppid)),
		strField("exe", exe),
		strField("comm", comm),
		strField("key", key),
		strField("syscall", "2"),
	}}
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func newEnricher(t *testing.T, cfg config.EnrichConfig, filterCfg config.FilterConfig) *Enricher {
	tracker, err := proctree.NewTracker(config.LabelProcessConfig{}, config.StateConfig{}, nil)
	require.NoError(t, err)
	e, err := New(cfg, config.TranslateConfig{}, filterCfg, tracker, nil, nil, "testhost")
	require.NoError(t, err)
	return e
}

func TestEnricherAttachesPIDBlock(t *testing.T) {
	e := newEnricher(t, config.EnrichConfig{PID: true}, config.FilterConfig{})

	ev := &event.Event{ID: event.ID{Seconds: 1, Serial: 1}, Records: []*record.Record{
		syscallRecord(100, 1, "/bin/x", "x", "k1"),
		{Type: "EOE"},
	}}

	out, ok := e.Process(ev, time.Now())
	require.True(t, ok)
	require.Len(t, out.Blocks, 1)
	assert.Equal(t, "PID", out.Blocks[0].Name)
	pc := out.Blocks[0].Data.(pidContext)
	assert.Equal(t, "/bin/x", pc.Exe)
	assert.Equal(t, "testhost", out.Node)
}

func TestEnricherFilterKeysDropsEvent(t *testing.T) {
	e := newEnricher(t, config.EnrichConfig{PID: true}, config.FilterConfig{FilterKeys: []string{"k1"}})

	ev := &event.Event{ID: event.ID{Seconds: 1, Serial: 1}, Records: []*record.Record{
		syscallRecord(100, 1, "/bin/x", "x", "k1"),
	}}

	_, ok := e.Process(ev, time.Now())
	assert.False(t, ok)
}

func TestEnricherKeepFirstPerProcessException(t *testing.T) {
	e := newEnricher(t, config.EnrichConfig{PID: true}, config.FilterConfig{
		FilterKeys:          []string{"k1"},
		KeepFirstPerProcess: true,
	})

	first := &event.Event{ID: event.ID{Seconds: 1, Serial: 1}, Records: []*record.Record{
		syscallRecord(100, 1, "/bin/x", "x", "k1"),
	}}
	_, ok := e.Process(first, time.Now())
	assert.True(t, ok, "first event for a process is kept despite matching filter-keys")

	second := &event.Event{ID: event.ID{Seconds: 2, Serial: 1}, Records: []*record.Record{
		syscallRecord(100, 1, "/bin/x", "x", "k1"),
	}}
	_, ok = e.Process(second, time.Now())
	assert.False(t, ok, "subsequent matching events for the same process are dropped")
}

func TestEnricherKeepFirstPerProcessCountsAKeptFirstEvent(t *testing.T) {
	e := newEnricher(t, config.EnrichConfig{PID: true}, config.FilterConfig{
		FilterKeys:          []string{"k1"},
		KeepFirstPerProcess: true,
	})

	first := &event.Event{ID: event.ID{Seconds: 1, Serial: 1}, Records: []*record.Record{
		syscallRecord(100, 1, "/bin/x", "x", "no-match"),
	}}
	_, ok := e.Process(first, time.Now())
	assert.True(t, ok, "first event doesn't match any filter rule, so it's kept on its own merits")

	second := &event.Event{ID: event.ID{Seconds: 2, Serial: 1}, Records: []*record.Record{
		syscallRecord(100, 1, "/bin/x", "x", "k1"),
	}}
	_, ok = e.Process(second, time.Now())
	assert.False(t, ok, "the kept first event already consumed the keep-first-per-process exception")
}

func TestCompileSockaddrFilterMatchesCIDR(t *testing.T) {
	f, err := CompileSockaddrFilter([]string{"10.0.0.0/8:443"})
	require.NoError(t, err)
	assert.True(t, f.MatchesAny([]byte{10, 1, 2, 3}, 443))
	assert.False(t, f.MatchesAny([]byte{10, 1, 2, 3}, 80))
	assert.False(t, f.MatchesAny([]byte{192, 168, 1, 1}, 443))
}

func TestCompileSockaddrFilterWildcard(t *testing.T) {
	f, err := CompileSockaddrFilter([]string{"*:22"})
	require.NoError(t, err)
	assert.True(t, f.MatchesAny([]byte{1, 2, 3, 4}, 22))
}
