package proctree

import (
	"strconv"
	"time"

	"github.com/hillu/laurel/pkg/config"
	"github.com/hillu/laurel/pkg/event"
	"github.com/hillu/laurel/pkg/record"
	deadlock "github.com/sasha-s/go-deadlock"
)

// LiveProbe resolves a pid's start time against the live system, used to
// disambiguate pid reuse. The default implementation is backed by gopsutil;
// tests supply a fake.
type LiveProbe interface {
	StartTicks(pid int32) (uint64, bool)
}

// Tracker is the process tree (§4.4): a dual-indexed set of Process entries
// fed from SYSCALL/EXECVE/PATH records, with label propagation at fork and
// LRU/age-based eviction. It is driven from the single enrichment loop and
// is not safe for concurrent use except through ReloadRules, which may run
// from a config-reload signal handler on another goroutine — hence the
// guarded rules pointer.
type Tracker struct {
	byKey map[Key]*Process
	byPid map[int32]*Process

	probe LiveProbe

	rulesMu deadlock.RWMutex
	rules   *rules

	maxEntries  int
	graceWindow time.Duration

	Evicted uint64
}

// NewTracker builds a Tracker from the [label-process] and [state] sections
// of the configuration document.
func NewTracker(lp config.LabelProcessConfig, st config.StateConfig, probe LiveProbe) (*Tracker, error) {
	r, err := compileRules(lp.LabelKeys, lp.LabelExe, lp.UnlabelExe, lp.LabelArgv, lp.UnlabelArgv,
		lp.LabelScript, lp.UnlabelScript, lp.PropagateLabels, lp.LabelArgvCount, lp.LabelArgvBytes)
	if err != nil {
		return nil, err
	}
	grace := st.GraceWindow
	if grace <= 0 {
		grace = 300 * time.Second
	}
	return &Tracker{
		byKey:       make(map[Key]*Process),
		byPid:       make(map[int32]*Process),
		probe:       probe,
		rules:       r,
		maxEntries:  1 << 16,
		graceWindow: grace,
	}, nil
}

// ReloadRules recompiles the label rule set and swaps it in atomically.
func (t *Tracker) ReloadRules(lp config.LabelProcessConfig) error {
	r, err := compileRules(lp.LabelKeys, lp.LabelExe, lp.UnlabelExe, lp.LabelArgv, lp.UnlabelArgv,
		lp.LabelScript, lp.UnlabelScript, lp.PropagateLabels, lp.LabelArgvCount, lp.LabelArgvBytes)
	if err != nil {
		return err
	}
	t.rulesMu.Lock()
	t.rules = r
	t.rulesMu.Unlock()
	return nil
}

func (t *Tracker) currentRules() *rules {
	t.rulesMu.RLock()
	defer t.rulesMu.RUnlock()
	return t.rules
}

// Size returns the number of tracked entries, live and dead, for the
// status report.
func (t *Tracker) Size() int { return len(t.byKey) }

// Lookup returns the tracked process for an exact Key.
func (t *Tracker) Lookup(k Key) (*Process, bool) {
	p, ok := t.byKey[k]
	return p, ok
}

// LookupPid returns the most recently created entry for a bare pid, live or
// exited; an exited entry stays visible until Sweep evicts it, for callers (the enricher) that only have the pid from a non-SYSCALL
// record and must tolerate the ambiguity pid reuse introduces.
func (t *Tracker) LookupPid(pid int32) (*Process, bool) {
	p, ok := t.byPid[pid]
	return p, ok
}

// keyFor resolves the Key for a live pid, probing for a start time when a
// LiveProbe is configured. A mismatch against a previously recorded start
// time for the same pid means the kernel reused the pid for a new process;
// the stale entry is evicted rather than reused.
func (t *Tracker) keyFor(pid int32) Key {
	if t.probe == nil {
		return Key{Pid: pid}
	}
	ticks, ok := t.probe.StartTicks(pid)
	if !ok {
		return Key{Pid: pid}
	}
	if existing, ok := t.byPid[pid]; ok && existing.Key.HasStartTime() && existing.Key.StartTicks != ticks {
		t.evict(existing.Key)
	}
	return Key{Pid: pid, StartTicks: ticks}
}

func (t *Tracker) adopt(key Key, ppid int32, comm, exe string, id event.ID, now time.Time) *Process {
	p := &Process{
		Key:       key,
		Ppid:      ppid,
		Comm:      comm,
		Exe:       exe,
		CreatedID: id,
		Alive:     true,
		lastUse:   now,
	}
	t.byKey[key] = p
	t.byPid[key.Pid] = p
	t.enforceCap()
	return p
}

func (t *Tracker) evict(k Key) {
	p, ok := t.byKey[k]
	if !ok {
		return
	}
	delete(t.byKey, k)
	if t.byPid[k.Pid] == p {
		delete(t.byPid, k.Pid)
	}
	t.Evicted++
}

// enforceCap evicts least-recently-used entries once the tracker exceeds
// its hard cap (§4.4). Dead entries are preferred; if still over cap after
// removing every dead entry, the oldest live entries go too — a tracker
// that has genuinely accumulated 65536 live processes has bigger problems
// than losing its oldest one.
func (t *Tracker) enforceCap() {
	if len(t.byKey) <= t.maxEntries {
		return
	}
	type kv struct {
		k Key
		p *Process
	}
	candidates := make([]kv, 0, len(t.byKey))
	for k, p := range t.byKey {
		candidates = append(candidates, kv{k, p})
	}
	// Dead-first, then oldest lastUse: simple insertion sort over every
	// tracked entry; this runs only once the tracker is over its cap.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && less(candidates[j], candidates[j-1]); j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
	for _, c := range candidates {
		if len(t.byKey) <= t.maxEntries {
			break
		}
		t.evict(c.k)
	}
}

func less(a, b struct {
	k Key
	p *Process
}) bool {
	if a.p.Alive != b.p.Alive {
		return !a.p.Alive // dead sorts first
	}
	return a.p.lastUse.Before(b.p.lastUse)
}

// Sweep evicts dead entries past the grace window, called from the
// processing loop's once-a-second coalescer tick.
func (t *Tracker) Sweep(now time.Time) {
	for k, p := range t.byKey {
		if !p.Alive && now.Sub(p.ExitedAt) > t.graceWindow {
			t.evict(k)
		}
	}
}

// Observe folds one coalesced event's SYSCALL/EXECVE/PATH records into the
// process tree: it updates (or creates) the subject's entry, applies label
// rules, detects script context, and on fork/clone/vfork/clone3 creates the
// child entry with propagated labels.
func (t *Tracker) Observe(ev *event.Event, now time.Time) {
	anchor := findRecord(ev, "SYSCALL")
	if anchor == nil {
		return
	}
	pid, ok := fieldInt(anchor, "pid")
	if !ok {
		return
	}
	ppid, _ := fieldInt(anchor, "ppid")
	exe := fieldString(anchor, "exe")
	comm := fieldString(anchor, "comm")
	syscallName := fieldString(anchor, "syscall")

	key := t.keyFor(int32(pid))
	p, existed := t.byKey[key]
	if !existed {
		p = t.adopt(key, int32(ppid), comm, exe, ev.ID, now)
	} else {
		p.lastUse = now
		p.Comm, p.Exe, p.Ppid = comm, exe, int32(ppid)
	}

	argv := execveArgv(ev)
	var script string
	if len(argv) > 0 {
		if s, ok := detectScript(argv, pathNames(ev)); ok {
			script = s
			p.Script = s
		}
	}

	t.currentRules().apply(p, recordKeys(anchor), exe, argv, script)

	if isForkSyscall(syscallName) {
		if childPid, ok := fieldInt(anchor, "exit"); ok && childPid > 0 {
			childKey := t.keyFor(int32(childPid))
			if child, existed := t.byKey[childKey]; !existed {
				_ = child
				newChild := t.adopt(childKey, int32(pid), "", "", ev.ID, now)
				newChild.Parent = key
				t.currentRules().propagateTo(p, newChild)
			}
		}
	}

	if isExitSyscall(syscallName) {
		p.Alive = false
		p.ExitedAt = now
	}
}

func isForkSyscall(name string) bool {
	switch name {
	case "fork", "vfork", "clone", "clone3":
		return true
	}
	return false
}

func isExitSyscall(name string) bool {
	switch name {
	case "exit", "exit_group":
		return true
	}
	return false
}

func findRecord(ev *event.Event, typ string) *record.Record {
	for _, r := range ev.Records {
		if r.Type == typ {
			return r
		}
	}
	return nil
}

func fieldInt(r *record.Record, key string) (int64, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	if v.Kind == record.KindInt {
		return v.Int, true
	}
	n, err := strconv.ParseInt(v.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func fieldString(r *record.Record, key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	return v.String()
}

func recordKeys(r *record.Record) []string {
	var out []string
	for _, f := range r.Fields {
		if f.Key == "key" {
			out = append(out, f.Value.String())
		}
	}
	return out
}

// execveArgv extracts the reassembled argv strings from an event's EXECVE
// record, skipping the elision marker entry if argv was truncated.
func execveArgv(ev *event.Event) []string {
	r := findRecord(ev, "EXECVE")
	if r == nil {
		return nil
	}
	v, ok := r.Get("ARGV")
	if !ok || v.Kind != record.KindList {
		return nil
	}
	out := make([]string, 0, len(v.List))
	for _, item := range v.List {
		if item.Kind == record.KindMap {
			continue // elision marker
		}
		out = append(out, item.String())
	}
	return out
}

// pathNames collects the set of file names recorded by this event's PATH
// records with nametype=NORMAL, used by script-context detection.
func pathNames(ev *event.Event) map[string]struct{} {
	out := make(map[string]struct{})
	for _, r := range ev.Records {
		if r.Type != "PATH" {
			continue
		}
		if fieldString(r, "nametype") != "NORMAL" {
			continue
		}
		if name := fieldString(r, "name"); name != "" {
			out[name] = struct{}{}
		}
	}
	return out
}
