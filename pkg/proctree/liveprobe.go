package proctree

import (
	"context"

	"github.com/shirou/gopsutil/v4/process"
)

// GopsutilProbe resolves pid start times against the live system via
// gopsutil. It is best-effort: any lookup failure (pid already gone, /proc
// unreadable) is reported as "unknown" rather than an error, since an
// unresolved start time just means the tracker falls back to pid-only
// keying for that process.
type GopsutilProbe struct{}

// StartTicks returns pid's process start time in milliseconds since the
// epoch, as reported by /proc/<pid>/stat via gopsutil.
func (GopsutilProbe) StartTicks(pid int32) (uint64, bool) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return 0, false
	}
	ms, err := proc.CreateTimeWithContext(context.Background())
	if err != nil || ms <= 0 {
		return 0, false
	}
	return uint64(ms), true
}
