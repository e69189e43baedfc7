package proctree

import (
	"time"

	"github.com/hillu/laurel/pkg/event"
)

// Process is one tracked process entry (§4.4/§5). Labels and Script are the
// two pieces of derived state the Enricher attaches to later events for the
// same Key.
type Process struct {
	Key    Key
	Parent Key

	Comm string
	Exe  string
	Ppid int32

	// Labels is the set of rule-assigned tags currently attached to this
	// process. Propagation happens once, at fork (§4.4) — later label rule
	// matches on the child itself can still add to it.
	Labels map[string]struct{}

	// Script holds the detected script path (§4.4) once this process has
	// been observed running one, empty otherwise.
	Script string

	CreatedID event.ID
	Alive     bool
	ExitedAt  time.Time

	lastUse time.Time
}

// HasLabel reports whether name is currently attached to the process.
func (p *Process) HasLabel(name string) bool {
	_, ok := p.Labels[name]
	return ok
}

// AddLabel attaches name, allocating the set if necessary.
func (p *Process) AddLabel(name string) {
	if p.Labels == nil {
		p.Labels = make(map[string]struct{})
	}
	p.Labels[name] = struct{}{}
}

// RemoveLabel detaches name, used by unlabel-* rules.
func (p *Process) RemoveLabel(name string) {
	delete(p.Labels, name)
}

// LabelSlice returns the labels in an arbitrary but deterministic-per-call
// order, for serialization.
func (p *Process) LabelSlice() []string {
	out := make([]string, 0, len(p.Labels))
	for l := range p.Labels {
		out = append(out, l)
	}
	return out
}

// snapshot is the gob-encoded persisted form of a Process (state.go). It
// excludes lastUse, which is meaningless across a restart, and CreatedID,
// so a restored entry has a zero creation id.
type snapshot struct {
	Key       Key
	Parent    Key
	Comm      string
	Exe       string
	Ppid      int32
	Labels    []string
	Script    string
	Alive     bool
	ExitedAt  time.Time
}
