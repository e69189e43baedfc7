package proctree

import (
	"testing"
	"time"

	"github.com/hillu/laurel/pkg/config"
	"github.com/hillu/laurel/pkg/event"
	"github.com/hillu/laurel/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bytesField(key, val string) record.Field {
	return record.Field{Key: key, Value: record.BytesValue([]byte(val), []byte(val))}
}

func syscallEvent(id event.ID, pid, ppid, exit int64, exe, comm, syscallName string, keys ...string) *event.Event {
	fields := []record.Field{
		bytesField("pid", itoa(pid)),
		bytesField("ppid", itoa(ppid)),
		bytesField("exe", exe),
		bytesField("comm", comm),
		bytesField("syscall", syscallName),
		bytesField("exit", itoa(exit)),
	}
	for _, k := range keys {
		fields = append(fields, bytesField("key", k))
	}
	return &event.Event{ID: id, Records: []*record.Record{{Type: "SYSCALL", Fields: fields, Known: true}}}
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func newTestTracker(t *testing.T) *Tracker {
	tr, err := NewTracker(config.LabelProcessConfig{}, config.StateConfig{}, nil)
	require.NoError(t, err)
	return tr
}

func TestTrackerCreatesProcessFromSyscall(t *testing.T) {
	tr := newTestTracker(t)
	now := time.Now()
	ev := syscallEvent(event.ID{Seconds: 1, Serial: 1}, 100, 1, 0, "/usr/bin/cat", "cat", "read")
	tr.Observe(ev, now)

	p, ok := tr.LookupPid(100)
	require.True(t, ok)
	assert.Equal(t, "/usr/bin/cat", p.Exe)
	assert.Equal(t, "cat", p.Comm)
	assert.True(t, p.Alive)
}

func TestTrackerForkCreatesChildAndPropagatesLabels(t *testing.T) {
	tr, err := NewTracker(config.LabelProcessConfig{
		LabelKeys:       []string{"software_mgmt"},
		PropagateLabels: []string{"software_mgmt"},
	}, config.StateConfig{}, nil)
	require.NoError(t, err)

	now := time.Now()
	parentEv := syscallEvent(event.ID{Seconds: 1, Serial: 1}, 100, 1, 0, "/bin/bash", "bash", "execve", "software_mgmt")
	tr.Observe(parentEv, now)

	parent, ok := tr.LookupPid(100)
	require.True(t, ok)
	assert.True(t, parent.HasLabel("software_mgmt"))

	forkEv := syscallEvent(event.ID{Seconds: 1, Serial: 2}, 100, 1, 200, "/bin/bash", "bash", "clone")
	tr.Observe(forkEv, now)

	child, ok := tr.LookupPid(200)
	require.True(t, ok)
	assert.True(t, child.HasLabel("software_mgmt"), "propagated label should be present on the child at fork")
	assert.Equal(t, Key{Pid: 100}, child.Parent)
}

func TestTrackerExitMarksProcessDead(t *testing.T) {
	tr := newTestTracker(t)
	now := time.Now()
	tr.Observe(syscallEvent(event.ID{Seconds: 1, Serial: 1}, 100, 1, 0, "/bin/true", "true", "execve"), now)
	tr.Observe(syscallEvent(event.ID{Seconds: 1, Serial: 2}, 100, 1, 0, "/bin/true", "true", "exit_group"), now)

	p, ok := tr.LookupPid(100)
	require.True(t, ok)
	assert.False(t, p.Alive)
}

func TestTrackerSweepEvictsDeadEntriesPastGraceWindow(t *testing.T) {
	tr, err := NewTracker(config.LabelProcessConfig{}, config.StateConfig{GraceWindow: time.Second}, nil)
	require.NoError(t, err)

	now := time.Now()
	tr.Observe(syscallEvent(event.ID{Seconds: 1, Serial: 1}, 100, 1, 0, "/bin/true", "true", "execve"), now)
	tr.Observe(syscallEvent(event.ID{Seconds: 1, Serial: 2}, 100, 1, 0, "/bin/true", "true", "exit_group"), now)

	tr.Sweep(now.Add(2 * time.Second))

	_, ok := tr.LookupPid(100)
	assert.False(t, ok)
}

func TestTrackerLabelExeRule(t *testing.T) {
	tr, err := NewTracker(config.LabelProcessConfig{
		LabelExe: []string{`remote_access:^/usr/bin/ssh$`},
	}, config.StateConfig{}, nil)
	require.NoError(t, err)

	now := time.Now()
	tr.Observe(syscallEvent(event.ID{Seconds: 1, Serial: 1}, 300, 1, 0, "/usr/bin/ssh", "ssh", "execve"), now)

	p, ok := tr.LookupPid(300)
	require.True(t, ok)
	assert.True(t, p.HasLabel("remote_access"))
	assert.False(t, p.HasLabel("exe"), "label name must come from the configured rule, not a hardcoded placeholder")
}

func TestDetectScriptRecognizesInterpreterAndPathEntry(t *testing.T) {
	paths := map[string]struct{}{"/home/user/test-script.sh": {}}
	script, ok := detectScript([]string{"/bin/dash", "/home/user/test-script.sh"}, paths)
	assert.True(t, ok)
	assert.Equal(t, "/home/user/test-script.sh", script)
}

func TestDetectScriptRejectsNonInterpreter(t *testing.T) {
	paths := map[string]struct{}{"/home/user/test-script.sh": {}}
	_, ok := detectScript([]string{"/usr/bin/vim", "/home/user/test-script.sh"}, paths)
	assert.False(t, ok)
}

func TestCompileArgvPatternMatchesWildcard(t *testing.T) {
	res, err := compileArgvPatterns([]string{"software_mgmt:apt-get install *"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "software_mgmt", res[0].name)
	assert.True(t, res[0].re.MatchString("apt-get install curl"))
	assert.False(t, res[0].re.MatchString("apt-get remove curl"))
}

func TestCompileArgvPatternRejectsMissingName(t *testing.T) {
	_, err := compileArgvPatterns([]string{"apt-get install *"})
	assert.Error(t, err)
}
