// Package guard decides whether a resource should be skipped based on its
// only_if and not_if predicates.
package guard

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/logger"
	"github.com/alexisbeaulieu97/converge/internal/system"
	convergeerrors "github.com/alexisbeaulieu97/converge/pkg/errors"
)

// Decision is the outcome of evaluating a resource's guards.
type Decision struct {
	Skip   bool
	Reason string
}

// Evaluator checks guards against injected system state. Command guards run
// through Runner with the shell.
type Evaluator struct {
	State  system.State
	Runner system.Runner
	Logger *logger.Logger

	// Policy is config.GuardErrorsFail or config.GuardErrorsSkip.
	Policy string
}

// Evaluate applies the guard rules: skip when any not_if holds or any only_if
// does not. Guards are checked in declaration order, only_if first, and the first
// deciding guard wins.
func Evaluate(ctx context.Context, state system.State, runner system.Runner, onlyIf, notIf []config.Guard) (Decision, error) {
	e := &Evaluator{State: state, Runner: runner, Policy: config.GuardErrorsFail}
	return e.Evaluate(ctx, "", onlyIf, notIf)
}

// Evaluate is like the package-level Evaluate but honours the error policy.
func (e *Evaluator) Evaluate(ctx context.Context, resourceID string, onlyIf, notIf []config.Guard) (Decision, error) {
	for _, g := range onlyIf {
		ok, err := e.check(ctx, resourceID, g)
		if err != nil {
			return Decision{}, err
		}
		if !ok {
			return Decision{Skip: true, Reason: fmt.Sprintf("only_if %s is false", g.Describe())}, nil
		}
	}

	for _, g := range notIf {
		ok, err := e.check(ctx, resourceID, g)
		if err != nil {
			return Decision{}, err
		}
		if ok {
			return Decision{Skip: true, Reason: fmt.Sprintf("not_if %s is true", g.Describe())}, nil
		}
	}

	return Decision{}, nil
}

func (e *Evaluator) check(ctx context.Context, resourceID string, g config.Guard) (bool, error) {
	ok, err := Check(ctx, e.State, e.Runner, g)
	if err == nil {
		return ok, nil
	}

	if e.Policy == config.GuardErrorsSkip {
		e.Logger.Warn(fmt.Sprintf("guard %s on %s could not be evaluated, treating as false: %v", g.Describe(), resourceID, err))
		return false, nil
	}
	return false, convergeerrors.NewGuardError(resourceID, g.Describe(), err)
}

// Check evaluates a single guard. A command guard is true on exit status 0 and
// false on any other status; failing to start the command is an error.
func Check(ctx context.Context, state system.State, runner system.Runner, g config.Guard) (bool, error) {
	switch g.Kind() {
	case "file_exists":
		return state.FileExists(g.FileExists)
	case "directory_exists":
		return state.DirectoryExists(g.DirectoryExists)
	case "process_running":
		return state.ProcessRunning(g.ProcessRunning)
	case "command":
		_, err := runner.Run(ctx, system.Command{Name: "sh", Args: []string{"-c", g.Command}})
		if err == nil {
			return true, nil
		}
		if _, isExit := system.ExitCode(err); isExit {
			return false, nil
		}
		return false, err
	}
	return false, fmt.Errorf("guard declares no predicate")
}
