package proctree

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/shlex"
	"github.com/hillu/laurel/pkg/laurelerr"
	"github.com/samber/lo"
)

// labelRule is one compiled "name:pattern" entry: name is the label applied
// to (or removed from) a matching process, kept distinct from the pattern so
// that two different label-exe rules don't collapse into one indistinguishable
// label.
type labelRule struct {
	name string
	re   *regexp.Regexp
}

// rules holds the compiled form of a LabelProcessConfig, swapped in as a
// unit on reload (Tracker.ReloadRules) so a half-applied config is never
// visible to the processing loop.
type rules struct {
	keys          map[string]struct{}
	labelExe      []labelRule
	unlabelExe    []labelRule
	labelArgv     []labelRule
	unlabelArgv   []labelRule
	labelScript   []labelRule
	unlabelScript []labelRule
	argvCount     int
	argvBytes     int
	propagate     map[string]struct{}
}

func compileRules(keys, labelExe, unlabelExe, labelArgv, unlabelArgv, labelScript, unlabelScript, propagate []string, argvCount, argvBytes int) (*rules, error) {
	r := &rules{
		keys:      lo.SliceToMap(keys, func(k string) (string, struct{}) { return k, struct{}{} }),
		propagate: lo.SliceToMap(propagate, func(k string) (string, struct{}) { return k, struct{}{} }),
		argvCount: argvCount,
		argvBytes: argvBytes,
	}
	var err error
	if r.labelExe, err = compilePaths(labelExe); err != nil {
		return nil, err
	}
	if r.unlabelExe, err = compilePaths(unlabelExe); err != nil {
		return nil, err
	}
	if r.labelArgv, err = compileArgvPatterns(labelArgv); err != nil {
		return nil, err
	}
	if r.unlabelArgv, err = compileArgvPatterns(unlabelArgv); err != nil {
		return nil, err
	}
	if r.labelScript, err = compilePaths(labelScript); err != nil {
		return nil, err
	}
	if r.unlabelScript, err = compilePaths(unlabelScript); err != nil {
		return nil, err
	}
	return r, nil
}

// splitNamedPattern splits a "name:pattern" config entry into its label
// name and match pattern. The name is what gets added to/removed from a
// process's label set; two rules with different patterns but the same name
// are allowed (they just both drive one label).
func splitNamedPattern(entry string) (name, pattern string, err error) {
	i := strings.IndexByte(entry, ':')
	if i < 0 {
		return "", "", fmt.Errorf("expected \"name:pattern\", got %q", entry)
	}
	return entry[:i], entry[i+1:], nil
}

func compilePaths(patterns []string) ([]labelRule, error) {
	out := make([]labelRule, 0, len(patterns))
	for _, p := range patterns {
		name, pattern, err := splitNamedPattern(p)
		if err != nil {
			return nil, laurelerr.New(laurelerr.ConfigInvalid, "label-process: %v", err)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, laurelerr.New(laurelerr.ConfigInvalid, "label-process: bad pattern %q: %v", p, err)
		}
		out = append(out, labelRule{name: name, re: re})
	}
	return out, nil
}

// compileArgvPatterns turns a "name:pattern" entry, where pattern is a
// shell-glob-flavoured string like `apt-get install *`, into a named,
// anchored regexp matched against the whitespace-joined argv string: each
// shlex-split word is escaped literally, a bare "*" token becomes ".*", and
// words are joined with "\s+". This lets operators write label-argv entries
// the way they'd write an auditctl exe filter, without hand-rolling regexp
// syntax.
func compileArgvPatterns(patterns []string) ([]labelRule, error) {
	out := make([]labelRule, 0, len(patterns))
	for _, p := range patterns {
		name, pattern, err := splitNamedPattern(p)
		if err != nil {
			return nil, laurelerr.New(laurelerr.ConfigInvalid, "label-argv: %v", err)
		}
		words, err := shlex.Split(pattern)
		if err != nil {
			return nil, laurelerr.New(laurelerr.ConfigInvalid, "label-argv: bad pattern %q: %v", p, err)
		}
		parts := make([]string, 0, len(words))
		for _, w := range words {
			if w == "*" {
				parts = append(parts, ".*")
				continue
			}
			parts = append(parts, regexp.QuoteMeta(w))
		}
		re, err := regexp.Compile("^" + strings.Join(parts, `\s+`) + "$")
		if err != nil {
			return nil, laurelerr.New(laurelerr.ConfigInvalid, "label-argv: bad pattern %q: %v", p, err)
		}
		out = append(out, labelRule{name: name, re: re})
	}
	return out, nil
}

// applyNamed adds (add=true) or removes (add=false) the name of every rule
// whose pattern matches s.
func applyNamed(p *Process, rules []labelRule, s string, add bool) {
	for _, r := range rules {
		if !r.re.MatchString(s) {
			continue
		}
		if add {
			p.AddLabel(r.name)
		} else {
			p.RemoveLabel(r.name)
		}
	}
}

// joinArgv bounds argv to the configured count/byte limits before matching,
// per §4.4's label-argv-count/label-argv-bytes knobs.
func joinArgv(argv []string, count, bytes int) string {
	if count > 0 && len(argv) > count {
		argv = argv[:count]
	}
	s := strings.Join(argv, " ")
	if bytes > 0 && len(s) > bytes {
		s = s[:bytes]
	}
	return s
}

// apply runs the four label rules, in the order named by §4.4: key match,
// then executable regex, then argv regex, then script match. Each rule can
// both add and remove labels; later rules see labels set by earlier ones.
func (r *rules) apply(p *Process, recKeys []string, exe string, argv []string, script string) {
	for _, k := range recKeys {
		if _, ok := r.keys[k]; ok {
			p.AddLabel(k)
		}
	}

	if exe != "" {
		applyNamed(p, r.labelExe, exe, true)
		applyNamed(p, r.unlabelExe, exe, false)
	}

	if len(argv) > 0 {
		joined := joinArgv(argv, r.argvCount, r.argvBytes)
		applyNamed(p, r.labelArgv, joined, true)
		applyNamed(p, r.unlabelArgv, joined, false)
	}

	if script != "" {
		applyNamed(p, r.labelScript, script, true)
		applyNamed(p, r.unlabelScript, script, false)
	}
}

// propagateTo copies the subset of parent's labels named in PropagateLabels
// onto child. Called exactly once, at fork (§4.4) — never on later events.
func (r *rules) propagateTo(parent, child *Process) {
	for l := range parent.Labels {
		if _, ok := r.propagate[l]; ok {
			child.AddLabel(l)
		}
	}
}
