package config

import "fmt"

// Validate checks the document for values the rest of the pipeline can't
// recover from at runtime. It is run once at startup, before any component
// is built; filter, label, sockaddr and input settings can still fail with
// ConfigInvalid later, when the components that use them are built.
func (c *Config) Validate() error {
	if c.Input != "stdin" && !isUnixSocketSpec(c.Input) {
		return fmt.Errorf("config: input must be \"stdin\" or \"unix:/path\", got %q", c.Input)
	}

	switch c.Filter.FilterAction {
	case "", "log", "drop":
		// ok
	default:
		return fmt.Errorf("config: filter-action must be \"log\" or \"drop\", got %q", c.Filter.FilterAction)
	}

	for _, argv := range c.Transform.ExecveArgv {
		if argv != "array" && argv != "string" {
			return fmt.Errorf("config: execve-argv entries must be \"array\" or \"string\", got %q", argv)
		}
	}

	if c.State.GraceWindow < 0 {
		return fmt.Errorf("config: state.grace-window must not be negative")
	}

	return nil
}

func isUnixSocketSpec(s string) bool {
	return len(s) > len("unix:") && s[:len("unix:")] == "unix:"
}
