package enrich

import (
	"encoding/binary"
	"net"
	"regexp"

	"github.com/hillu/laurel/pkg/config"
	"github.com/hillu/laurel/pkg/event"
	"github.com/hillu/laurel/pkg/laurelerr"
	"github.com/hillu/laurel/pkg/proctree"
	"github.com/hillu/laurel/pkg/record"
	"golang.org/x/sys/unix"
)

// FilterEngine evaluates the drop/keep decision from §4.5 step 5, in the
// exact order the spec enumerates it, with the keep-first-per-process
// exception.
type FilterEngine struct {
	cfg       config.FilterConfig
	sockaddr  *SockaddrFilter
	rawLines  []*regexp.Regexp
	keys      map[string]struct{}
	labels    map[string]struct{}
	seenFirst map[proctree.Key]struct{}
}

// NewFilterEngine compiles a FilterEngine from the [filter] section.
func NewFilterEngine(cfg config.FilterConfig) (*FilterEngine, error) {
	sf, err := CompileSockaddrFilter(cfg.FilterSockaddr)
	if err != nil {
		return nil, err
	}
	res := make([]*regexp.Regexp, 0, len(cfg.FilterRawLines))
	for _, p := range cfg.FilterRawLines {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, laurelerr.New(laurelerr.ConfigInvalid, "filter-raw-lines: bad pattern %q: %v", p, err)
		}
		res = append(res, re)
	}
	toSet := func(ss []string) map[string]struct{} {
		m := make(map[string]struct{}, len(ss))
		for _, s := range ss {
			m[s] = struct{}{}
		}
		return m
	}
	return &FilterEngine{
		cfg:       cfg,
		sockaddr:  sf,
		rawLines:  res,
		keys:      toSet(cfg.FilterKeys),
		labels:    toSet(cfg.FilterLabels),
		seenFirst: make(map[proctree.Key]struct{}),
	}, nil
}

// Keep reports whether ev should be kept. subject may be nil if the tracker
// never resolved a process for this event's SYSCALL record.
func (f *FilterEngine) Keep(ev *event.Event, subject *proctree.Process) bool {
	// Record "first event observed for the subject process" up front, before
	// the drop decision, so a process whose first event happens to be kept
	// still marks that process as seen — the exception is about the first
	// event observed, not the first event that would otherwise be dropped.
	firstForProcess := false
	if subject != nil {
		if _, seen := f.seenFirst[subject.Key]; !seen {
			f.seenFirst[subject.Key] = struct{}{}
			firstForProcess = true
		}
	}

	if !f.shouldDrop(ev, subject) {
		return true
	}
	return f.cfg.KeepFirstPerProcess && firstForProcess
}

func (f *FilterEngine) shouldDrop(ev *event.Event, subject *proctree.Process) bool {
	keys := eventKeys(ev)

	// (a) keys intersect filter-keys.
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			return true
		}
	}

	// (b) filter-null-keys and no key at all.
	if f.cfg.FilterNullKeys && len(keys) == 0 {
		return true
	}

	// (c) subject's labels intersect filter-labels.
	if subject != nil {
		for l := range subject.Labels {
			if _, ok := f.labels[l]; ok {
				return true
			}
		}
	}

	// (d) any SOCKADDR matches filter-sockaddr.
	for _, r := range ev.Records {
		if r.Type != "SOCKADDR" {
			continue
		}
		if ip, port, ok := sockaddrAddrPort(r); ok && f.sockaddr.MatchesAny(ip, port) {
			return true
		}
	}

	// (e) any record's raw line matches filter-raw-lines.
	for _, r := range ev.Records {
		for _, re := range f.rawLines {
			if re.MatchString(r.RawLine) {
				return true
			}
		}
	}

	return false
}

func eventKeys(ev *event.Event) []string {
	var out []string
	for _, r := range ev.Records {
		if r.Type != "SYSCALL" {
			continue
		}
		for _, f := range r.Fields {
			if f.Key == "key" {
				out = append(out, f.Value.String())
			}
		}
	}
	return out
}

// sockaddrAddrPort decodes just enough of a SOCKADDR record's saddr field
// to evaluate a SockaddrFilter predicate; unsupported families report ok=false.
func sockaddrAddrPort(r *record.Record) (net.IP, uint16, bool) {
	v, ok := r.Get("saddr")
	if !ok || len(v.Bytes) < 2 {
		return nil, 0, false
	}
	raw := v.Bytes
	family := binary.LittleEndian.Uint16(raw[:2])
	switch family {
	case unix.AF_INET:
		if len(raw) < 8 {
			return nil, 0, false
		}
		return net.IP(raw[4:8]), binary.BigEndian.Uint16(raw[2:4]), true
	case unix.AF_INET6:
		if len(raw) < 28 {
			return nil, 0, false
		}
		return net.IP(raw[8:24]), binary.BigEndian.Uint16(raw[2:4]), true
	default:
		return nil, 0, false
	}
}
