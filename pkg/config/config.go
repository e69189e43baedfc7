// Package config handles the declarative configuration document described in
// the project docs: a TOML file with a handful of top-level keys plus the
// [auditlog], [state], [transform], [translate], [enrich], [label-process],
// [filter], [debug.parse-error-log] and [filterlog] sections. You can view
// the defaults with `laurel --dump-config`.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the full declarative document, merged over the built-in
// defaults. Field names are PascalCase; the toml tags are the on-disk keys.
type Config struct {
	Directory          string        `toml:"directory"`
	User               string        `toml:"user"`
	StatusReportPeriod time.Duration `toml:"statusreport-period"`
	Input              string        `toml:"input"`
	Marker             string        `toml:"marker"`
	ShutdownDeadline   time.Duration `toml:"shutdown-deadline"`

	AuditLog     AuditLogConfig     `toml:"auditlog"`
	State        StateConfig        `toml:"state"`
	Transform    TransformConfig    `toml:"transform"`
	Translate    TranslateConfig    `toml:"translate"`
	Enrich       EnrichConfig       `toml:"enrich"`
	LabelProcess LabelProcessConfig `toml:"label-process"`
	Filter       FilterConfig       `toml:"filter"`
	Debug        DebugConfig        `toml:"debug"`
	FilterLog    AuditLogConfig     `toml:"filterlog"`
}

// AuditLogConfig mirrors the [auditlog]/[filterlog] sections: a rotating
// sink the core only ever sees through the sink.Writer contract.
type AuditLogConfig struct {
	File        string   `toml:"file"`
	Size        int64    `toml:"size"`
	Generations int      `toml:"generations"`
	ReadUsers   []string `toml:"read-users"`
	LinePrefix  string   `toml:"line-prefix"`
}

// StateConfig controls the process-tracker persistence file (§4.4).
//
// GraceWindow and the pid-reuse grace window named in the Open Questions are
// the same tunable: how long a dead process entry survives past exit so that
// late-arriving records can still be enriched.
type StateConfig struct {
	File        string        `toml:"file"`
	Generations int           `toml:"generations"`
	MaxAge      time.Duration `toml:"max-age"`
	GraceWindow time.Duration `toml:"grace-window"`
}

// TransformConfig controls EXECVE argv reassembly.
type TransformConfig struct {
	ExecveArgv           []string `toml:"execve-argv"`
	ExecveArgvLimitBytes int      `toml:"execve-argv-limit-bytes"`
}

// TranslateConfig controls numeric-to-symbolic translation.
type TranslateConfig struct {
	Universal    bool `toml:"universal"`
	UserDB       bool `toml:"user-db"`
	DropRaw      bool `toml:"drop-raw"`
	BeforeEnrich bool `toml:"before-enrich"`
}

// EnrichConfig controls which enrichment blocks get attached to an event.
type EnrichConfig struct {
	PID           bool     `toml:"pid"`
	ExecveEnv     []string `toml:"execve-env"`
	Container     bool     `toml:"container"`
	ContainerInfo bool     `toml:"container_info"`
	Systemd       bool     `toml:"systemd"`
	Script        bool     `toml:"script"`
	UserGroups    bool     `toml:"user-groups"`
	Prefix        string   `toml:"prefix"`
}

// LabelProcessConfig controls the process-tracker label rules (§4.4).
//
// LabelExe/UnlabelExe/LabelArgv/UnlabelArgv/LabelScript/UnlabelScript
// entries are "name:pattern": name is the label added to (or removed from)
// a matching process, pattern is the regex (label-argv/unlabel-argv use a
// shell-glob-flavoured pattern instead, see proctree.compileArgvPatterns).
// Keeping the name distinct from the pattern lets two different rules drive
// two different labels instead of collapsing onto one indistinguishable
// "exe"/"argv"/"script" label.
type LabelProcessConfig struct {
	LabelKeys       []string `toml:"label-keys"`
	LabelExe        []string `toml:"label-exe"`
	UnlabelExe      []string `toml:"unlabel-exe"`
	LabelArgv       []string `toml:"label-argv"`
	UnlabelArgv     []string `toml:"unlabel-argv"`
	LabelArgvCount  int      `toml:"label-argv-count"`
	LabelArgvBytes  int      `toml:"label-argv-bytes"`
	LabelScript     []string `toml:"label-script"`
	UnlabelScript   []string `toml:"unlabel-script"`
	PropagateLabels []string `toml:"propagate-labels"`
}

// FilterConfig controls the enricher's drop/keep decision (§4.5).
type FilterConfig struct {
	FilterKeys          []string `toml:"filter-keys"`
	FilterLabels        []string `toml:"filter-labels"`
	FilterNullKeys      bool     `toml:"filter-null-keys"`
	FilterSockaddr      []string `toml:"filter-sockaddr"`
	FilterRawLines      []string `toml:"filter-raw-lines"`
	KeepFirstPerProcess bool     `toml:"keep-first-per-process"`
	FilterAction        string   `toml:"filter-action"`
}

// DebugConfig holds [debug.parse-error-log].
type DebugConfig struct {
	ParseErrorLog ParseErrorLogConfig `toml:"parse-error-log"`
}

// ParseErrorLogConfig controls the §7 parse-error sampling sink.
type ParseErrorLogConfig struct {
	File       string `toml:"file"`
	SampleRate int    `toml:"sample-rate"`
}

// Default returns the built-in configuration. Every tunable named in
// SPEC_FULL.md has a concrete, documented default here.
func Default() *Config {
	return &Config{
		Directory:          "/var/log/laurel",
		StatusReportPeriod: 7200 * time.Second,
		Input:              "stdin",
		ShutdownDeadline:   5 * time.Second,

		AuditLog: AuditLogConfig{
			File:        "audit.log",
			Size:        25 * 1024 * 1024,
			Generations: 10,
		},
		State: StateConfig{
			File:        "state",
			Generations: 2,
			MaxAge:      24 * time.Hour,
			GraceWindow: 300 * time.Second,
		},
		Transform: TransformConfig{
			ExecveArgv:           []string{"array"},
			ExecveArgvLimitBytes: 0,
		},
		Translate: TranslateConfig{
			Universal:    true,
			UserDB:       true,
			DropRaw:      false,
			BeforeEnrich: true,
		},
		Enrich: EnrichConfig{
			PID:        true,
			Container:  true,
			Systemd:    false,
			Script:     true,
			UserGroups: false,
		},
		LabelProcess: LabelProcessConfig{
			LabelArgvCount: 0,
			LabelArgvBytes: 0,
		},
		Filter: FilterConfig{
			FilterAction: "log",
		},
		Debug: DebugConfig{
			ParseErrorLog: ParseErrorLogConfig{
				SampleRate: 1,
			},
		},
	}
}

// Load reads the TOML document at path and merges it over Default(). A
// missing file is not an error; it is treated the way an empty document
// would be (defaults only), matching how the core is expected to run with
// zero local configuration for smoke-testing.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}
