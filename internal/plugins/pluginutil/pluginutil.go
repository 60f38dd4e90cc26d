// Package pluginutil holds the result builders and host helpers shared by the
// resource providers.
package pluginutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
	"github.com/alexisbeaulieu97/converge/internal/plugin"
	"github.com/alexisbeaulieu97/converge/internal/system"
)

// Satisfied reports a resource that already matches its declaration.
func Satisfied(id, message string, data any) *model.EvaluationResult {
	return &model.EvaluationResult{
		ResourceID:   id,
		CurrentState: model.StatusSatisfied,
		Message:      message,
		InternalData: data,
	}
}

// NeedsAction reports a resource that Apply must converge.
func NeedsAction(id string, state model.VerificationStatus, message, diff string, data any) *model.EvaluationResult {
	return &model.EvaluationResult{
		ResourceID:     id,
		CurrentState:   state,
		RequiresAction: true,
		Message:        message,
		Diff:           diff,
		InternalData:   data,
	}
}

// Converged builds the result of a successful Apply.
func Converged(res *config.Resource, message string) *model.ResourceResult {
	return &model.ResourceResult{
		ResourceID: res.ID,
		Type:       res.Type,
		Status:     model.StatusConverged,
		Message:    message,
	}
}

// Failed builds the result and typed error of a failed Apply.
func Failed(res *config.Resource, err error) (*model.ResourceResult, error) {
	return &model.ResourceResult{
		ResourceID: res.ID,
		Type:       res.Type,
		Status:     model.StatusFailed,
		Message:    err.Error(),
		Error:      err,
	}, plugin.NewExecutionError(res.ID, err)
}

// EvalData extracts the typed InternalData a provider stored during Evaluate.
func EvalData[T any](eval *model.EvaluationResult) (T, bool) {
	var zero T
	if eval == nil {
		return zero, false
	}
	typed, ok := eval.InternalData.(T)
	return typed, ok
}

// Run executes cmd and folds a non-zero exit and its output into the error.
func Run(ctx context.Context, runner system.Runner, cmd system.Command) (system.Result, error) {
	res, err := runner.Run(ctx, cmd)
	if err != nil {
		return res, fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return res, nil
}

// Ownership resolves owner and group names to numeric ids. Unset names yield -1,
// which os.Chown treats as "leave unchanged". ok is false when a name does not
// exist on the host yet.
func Ownership(state system.State, owner, group string) (uid, gid int, ok bool, err error) {
	uid, gid = -1, -1

	if owner != "" {
		if n, convErr := strconv.Atoi(owner); convErr == nil {
			uid = n
		} else {
			account, lookupErr := state.LookupUser(owner)
			if lookupErr != nil {
				return -1, -1, false, fmt.Errorf("lookup user %s: %w", owner, lookupErr)
			}
			if account == nil {
				return -1, -1, false, nil
			}
			uid = account.UID
		}
	}

	if group != "" {
		if n, convErr := strconv.Atoi(group); convErr == nil {
			gid = n
		} else {
			entry, lookupErr := state.LookupGroup(group)
			if lookupErr != nil {
				return -1, -1, false, fmt.Errorf("lookup group %s: %w", group, lookupErr)
			}
			if entry == nil {
				return -1, -1, false, nil
			}
			gid = entry.GID
		}
	}

	return uid, gid, true, nil
}

// OwnedBy reports whether info belongs to uid and gid, ignoring -1 values.
func OwnedBy(info os.FileInfo, uid, gid int) bool {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return true
	}
	if uid >= 0 && int(stat.Uid) != uid {
		return false
	}
	if gid >= 0 && int(stat.Gid) != gid {
		return false
	}
	return true
}

// DesiredMode parses a declared mode, returning fallback when unset.
func DesiredMode(mode string, fallback os.FileMode) (os.FileMode, bool, error) {
	if mode == "" {
		return fallback, false, nil
	}
	parsed, err := config.ParseMode(mode)
	if err != nil {
		return 0, false, fmt.Errorf("invalid mode %q: %w", mode, err)
	}
	return os.FileMode(parsed), true, nil
}
