// Package systemtest provides in-memory system fakes for provider and engine tests.
package systemtest

import (
	"context"
	"strings"
	"sync"

	"github.com/alexisbeaulieu97/converge/internal/system"
)

// State is a map-backed system.State.
type State struct {
	mu sync.Mutex

	Files       map[string]bool
	Directories map[string]bool
	Processes   []string
	Users       map[string]*system.Account
	Groups      map[string]*system.GroupEntry
	Shadow      map[string]string

	// Err, when set, is returned by every predicate.
	Err error
}

// NewState returns an empty fake state.
func NewState() *State {
	return &State{
		Files:       map[string]bool{},
		Directories: map[string]bool{},
		Users:       map[string]*system.Account{},
		Groups:      map[string]*system.GroupEntry{},
		Shadow:      map[string]string{},
	}
}

func (s *State) FileExists(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Files[path], s.Err
}

func (s *State) DirectoryExists(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Directories[path], s.Err
}

func (s *State) ProcessRunning(pattern string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	for _, p := range s.Processes {
		if strings.Contains(p, pattern) {
			return true, nil
		}
	}
	return false, nil
}

func (s *State) LookupUser(name string) (*system.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Users[name], s.Err
}

func (s *State) LookupGroup(name string) (*system.GroupEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Groups[name], s.Err
}

func (s *State) ShadowHash(user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Shadow[user], s.Err
}

// Handler answers a single command.
type Handler func(cmd system.Command) (system.Result, error)

// Runner records every command and delegates to Handler. A nil Handler succeeds
// with empty output.
type Runner struct {
	mu      sync.Mutex
	calls   []system.Command
	Handler Handler
}

// NewRunner returns a recording runner.
func NewRunner(h Handler) *Runner {
	return &Runner{Handler: h}
}

func (r *Runner) Run(ctx context.Context, cmd system.Command) (system.Result, error) {
	if err := ctx.Err(); err != nil {
		return system.Result{}, err
	}

	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	h := r.Handler
	r.mu.Unlock()

	if h == nil {
		return system.Result{}, nil
	}
	return h(cmd)
}

// Calls returns a copy of the recorded commands.
func (r *Runner) Calls() []system.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]system.Command(nil), r.calls...)
}

// CommandLines renders the recorded commands.
func (r *Runner) CommandLines() []string {
	calls := r.Calls()
	lines := make([]string, 0, len(calls))
	for _, c := range calls {
		lines = append(lines, c.String())
	}
	return lines
}

// Count returns how many recorded commands start with prefix.
func (r *Runner) Count(prefix string) int {
	n := 0
	for _, line := range r.CommandLines() {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

// Exit builds the error a real runner returns for a non-zero status.
func Exit(cmd system.Command, code int, output string) (system.Result, error) {
	return system.Result{Stderr: output, ExitCode: code}, &system.ExitError{Command: cmd.String(), Code: code, Output: output}
}

// Host bundles the fakes.
func Host(state *State, runner *Runner) *system.Host {
	return &system.Host{State: state, Runner: runner}
}
