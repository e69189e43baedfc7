package proctree

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hillu/laurel/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTripPreservesLabelsAndParentage(t *testing.T) {
	tr := newTestTracker(t)
	now := time.Now()
	tr.Observe(syscallEvent(event.ID{Seconds: 1, Serial: 1}, 100, 1, 0, "/bin/bash", "bash", "execve"), now)
	parent, _ := tr.LookupPid(100)
	parent.AddLabel("interactive")
	tr.Observe(syscallEvent(event.ID{Seconds: 1, Serial: 2}, 100, 1, 200, "/bin/bash", "bash", "clone"), now)

	path := filepath.Join(t.TempDir(), "state")
	require.NoError(t, tr.SaveState(path))

	restored := newTestTracker(t)
	require.NoError(t, restored.LoadState(path, 0))

	p, ok := restored.LookupPid(100)
	require.True(t, ok)
	assert.True(t, p.HasLabel("interactive"))

	child, ok := restored.LookupPid(200)
	require.True(t, ok)
	assert.Equal(t, p.Key, child.Parent)
}

func TestLoadStateSkipsFileOlderThanMaxAge(t *testing.T) {
	tr := newTestTracker(t)
	tr.Observe(syscallEvent(event.ID{Seconds: 1, Serial: 1}, 100, 1, 0, "/bin/bash", "bash", "execve"), time.Now())

	path := filepath.Join(t.TempDir(), "state")
	require.NoError(t, tr.SaveState(path))

	restored := newTestTracker(t)
	require.NoError(t, restored.LoadState(path, time.Nanosecond))

	_, ok := restored.LookupPid(100)
	assert.False(t, ok, "a state file older than max-age must be ignored entirely")
}
