package proctree

import "path"

// interpreters is the set of executables recognized as script interpreters
// for script-context detection (§4.4): an EXECVE is treated as "running a
// script" when argv[0] resolves to one of these and argv[1] names a regular
// file present in the event's PATH records with nametype=NORMAL.
var interpreters = map[string]struct{}{
	"/bin/sh":         {},
	"/bin/bash":       {},
	"/bin/dash":       {},
	"/usr/bin/sh":     {},
	"/usr/bin/bash":   {},
	"/usr/bin/dash":   {},
	"/usr/bin/zsh":    {},
	"/usr/bin/python": {},
	"/usr/bin/python2": {},
	"/usr/bin/python3": {},
	"/usr/bin/perl":   {},
	"/usr/bin/ruby":   {},
	"/usr/bin/lua":    {},
	"/usr/bin/php":    {},
	"/usr/bin/node":   {},
	"/usr/bin/nodejs": {},
	"/usr/bin/awk":    {},
	"/usr/bin/gawk":   {},
}

// isInterpreter reports whether exe is a recognized script interpreter.
// Matching is done on the resolved path; a bare basename (PATH-relative
// invocation) is also accepted since auditd's exe field is usually already
// resolved but argv[0] as typed by the shell may not be.
func isInterpreter(exe string) bool {
	if _, ok := interpreters[exe]; ok {
		return true
	}
	base := path.Base(exe)
	for full := range interpreters {
		if path.Base(full) == base {
			return true
		}
	}
	return false
}

// detectScript decides whether this EXECVE is script execution: argv[0] is
// an interpreter and argv[1] names a file present among the event's PATH
// entries. pathNames is the set of paths the event's PATH records recorded
// with nametype=NORMAL (the record package's PATH handling feeds this).
func detectScript(argv []string, pathNames map[string]struct{}) (string, bool) {
	if len(argv) < 2 {
		return "", false
	}
	if !isInterpreter(argv[0]) {
		return "", false
	}
	candidate := argv[1]
	if _, ok := pathNames[candidate]; ok {
		return candidate, true
	}
	// Also accept a basename match against a resolved absolute PATH entry,
	// since argv[1] is sometimes relative while PATH records the resolved
	// name.
	base := path.Base(candidate)
	for p := range pathNames {
		if path.Base(p) == base {
			return p, true
		}
	}
	return "", false
}
