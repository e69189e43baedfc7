// Package enrich implements the Enricher (§4.5): translation, process
// context attachment, environment capture, container/systemd context, the
// filter decision, field-name prefixing, and sink hand-off.
package enrich

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hillu/laurel/pkg/config"
	"github.com/hillu/laurel/pkg/event"
	"github.com/hillu/laurel/pkg/proctree"
	"github.com/hillu/laurel/pkg/record"
	"github.com/hillu/laurel/pkg/translate"
)

// Block is one named enrichment block (PID, ENV, CONTAINER, SYSTEMD, or a
// parallel *pid block) to be serialized after the record blocks, per §6
// Output field order.
type Block struct {
	Name string
	Data interface{}
}

// Output is a flushed, enriched, filtered event ready for the sink.
type Output struct {
	ID      event.ID
	Node    string
	Records []*record.Record
	Blocks  []Block
	Prefix  string
}

// Enricher owns the translation, process-tracking, and filtering
// collaborators and turns a coalesced Event into an Output, or reports that
// the event was filtered out.
type Enricher struct {
	cfg       config.EnrichConfig
	translate *translate.Translator
	tracker   *proctree.Tracker
	filter    *FilterEngine
	execveEnv []string
	containers ContainerProvider
	systemd    SystemdProvider
	node       string
	prefix     string
}

// New builds an Enricher. containers/systemd may be nil when their
// respective [enrich] toggles are off; the caller is responsible for not
// paying their connection cost otherwise.
func New(cfg config.EnrichConfig, translateCfg config.TranslateConfig, filterCfg config.FilterConfig,
	tracker *proctree.Tracker, containers ContainerProvider, systemd SystemdProvider, node string) (*Enricher, error) {
	fe, err := NewFilterEngine(filterCfg)
	if err != nil {
		return nil, err
	}
	return &Enricher{
		cfg:        cfg,
		translate:  translate.New(translateCfg),
		tracker:    tracker,
		filter:     fe,
		execveEnv:  cfg.ExecveEnv,
		containers: containers,
		systemd:    systemd,
		node:       node,
		prefix:     cfg.Prefix,
	}, nil
}

// Process runs the full §4.5 pipeline over ev. ok is false when the event
// was filtered out and must not reach the sink.
func (e *Enricher) Process(ev *event.Event, now time.Time) (*Output, bool) {
	anchor := findSyscall(ev)
	arch := ""
	if anchor != nil {
		if raw, ok := anchor.Get("arch"); ok {
			arch, _ = translate.ArchName(string(raw.Raw))
		}
	}
	for _, r := range ev.Records {
		e.translate.Record(r, arch)
	}

	e.tracker.Observe(ev, now)

	var subject *proctree.Process
	var pid int64
	if anchor != nil {
		if v, ok := anchor.Get("pid"); ok {
			pid, _ = strconv.ParseInt(v.String(), 10, 64)
			subject, _ = e.tracker.LookupPid(int32(pid))
		}
	}

	if !e.filter.Keep(ev, subject) {
		return nil, false
	}

	out := &Output{ID: ev.ID, Node: e.node, Records: ev.Records, Prefix: e.prefix}

	if e.cfg.PID {
		if subject != nil {
			out.Blocks = append(out.Blocks, Block{Name: e.fieldName("PID"), Data: pidBlock(subject)})
		}
		out.Blocks = append(out.Blocks, e.parallelPidBlocks(ev, anchor)...)
	}

	if len(e.execveEnv) > 0 && findByType(ev, "EXECVE") != nil && pid != 0 {
		if env, ok := readEnviron(int32(pid), e.execveEnv); ok {
			out.Blocks = append(out.Blocks, Block{Name: e.fieldName("ENV"), Data: env})
		}
	}

	if e.cfg.Container && e.containers != nil && pid != 0 {
		if info, ok := e.containers.ContainerInfo(int32(pid)); ok {
			out.Blocks = append(out.Blocks, Block{Name: e.fieldName("CONTAINER"), Data: info})
		}
	}

	if e.cfg.Systemd && e.systemd != nil && pid != 0 {
		if info, ok := e.systemd.SystemdInfo(int32(pid)); ok {
			out.Blocks = append(out.Blocks, Block{Name: e.fieldName("SYSTEMD"), Data: info})
		}
	}

	return out, true
}

func (e *Enricher) fieldName(name string) string {
	if e.prefix == "" {
		return name
	}
	return e.prefix + name
}

type pidContext struct {
	Created string   `json:"created"`
	Comm    string   `json:"comm"`
	Exe     string   `json:"exe"`
	Ppid    int32    `json:"ppid"`
	Labels  []string `json:"labels,omitempty"`
	Script  string   `json:"script,omitempty"`
}

func pidBlock(p *proctree.Process) pidContext {
	return pidContext{
		Created: p.CreatedID.String(),
		Comm:    p.Comm,
		Exe:     p.Exe,
		Ppid:    p.Ppid,
		Labels:  p.LabelSlice(),
		Script:  p.Script,
	}
}

var otherPidFieldRe = regexp.MustCompile(`^[a-z]*pid$`)

// parallelPidBlocks emits a compact block for every *pid field besides the
// subject's own "pid"/"ppid" (already covered by the PID block), per §4.5
// step 2's "For every other *pid field in any record" clause.
func (e *Enricher) parallelPidBlocks(ev *event.Event, anchor *record.Record) []Block {
	var blocks []Block
	seen := map[string]struct{}{}
	for _, r := range ev.Records {
		for _, f := range r.Fields {
			key := f.Key
			if key == "pid" || key == "ppid" || !otherPidFieldRe.MatchString(key) {
				continue
			}
			if r == anchor && key == "pid" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			n, err := strconv.ParseInt(f.Value.String(), 10, 64)
			if err != nil {
				continue
			}
			proc, ok := e.tracker.LookupPid(int32(n))
			if !ok {
				continue
			}
			seen[key] = struct{}{}
			blocks = append(blocks, Block{Name: e.fieldName(strings.ToUpper(key)), Data: pidBlock(proc)})
		}
	}
	return blocks
}

func findSyscall(ev *event.Event) *record.Record { return findByType(ev, "SYSCALL") }

func findByType(ev *event.Event, typ string) *record.Record {
	for _, r := range ev.Records {
		if r.Type == typ {
			return r
		}
	}
	return nil
}
