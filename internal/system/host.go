package system

import "io"

// Host bundles the read-only state view with the command runner handed to providers.
type Host struct {
	State  State
	Runner Runner
}

// Options configures the live host.
type Options struct {
	// Output receives streamed command output. Nil keeps output captured only.
	Output io.Writer

	PasswdPath string
	GroupPath  string
	ShadowPath string
	ProcRoot   string
}

// NewHost returns the live Linux implementation.
func NewHost(opts Options) *Host {
	state := NewLocalState()
	if opts.PasswdPath != "" {
		state.PasswdPath = opts.PasswdPath
	}
	if opts.GroupPath != "" {
		state.GroupPath = opts.GroupPath
	}
	if opts.ShadowPath != "" {
		state.ShadowPath = opts.ShadowPath
	}
	if opts.ProcRoot != "" {
		state.ProcRoot = opts.ProcRoot
	}

	return &Host{
		State:  state,
		Runner: &ExecRunner{Stdout: opts.Output, Stderr: opts.Output},
	}
}
