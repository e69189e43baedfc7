// Package proctree maintains the live process tree (§4.4): a keyed index
// of Process entries with parent edges, labels that propagate at fork, and
// script-execution context, reconciled from SYSCALL/EXECVE/PATH records as
// they flow through the enrichment stage.
package proctree

import "fmt"

// Key identifies a process the way the kernel does: by pid plus the
// start-time that disambiguates pid reuse. StartTicks == 0 means the
// start time could not be observed — the entry is then keyed by pid alone
// and invalidated aggressively on reuse (§3).
type Key struct {
	Pid        int32
	StartTicks uint64
}

// HasStartTime reports whether this Key carries an observed start time.
func (k Key) HasStartTime() bool { return k.StartTicks != 0 }

func (k Key) String() string {
	if k.HasStartTime() {
		return fmt.Sprintf("%d@%d", k.Pid, k.StartTicks)
	}
	return fmt.Sprintf("%d@?", k.Pid)
}
