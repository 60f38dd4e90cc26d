// Package engine converges plans of recipes one resource at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/guard"
	"github.com/alexisbeaulieu97/converge/internal/logger"
	"github.com/alexisbeaulieu97/converge/internal/model"
	"github.com/alexisbeaulieu97/converge/internal/plugin"
	"github.com/alexisbeaulieu97/converge/internal/system"
	convergeerrors "github.com/alexisbeaulieu97/converge/pkg/errors"
)

// Options configures a Runner. DryRun and ContinueOnError are combined with each
// recipe's own settings; either side enabling them is enough.
type Options struct {
	Registry *plugin.Registry
	Host     *system.Host
	Logger   *logger.Logger
	Observer Observer

	DryRun          bool
	ContinueOnError bool

	// Timeout, when positive, overrides the per-resource timeout of every recipe.
	Timeout time.Duration
}

// Runner executes plans strictly in declaration order.
type Runner struct {
	registry *plugin.Registry
	host     *system.Host
	log      *logger.Logger
	observer Observer

	dryRun          bool
	continueOnError bool
	timeout         time.Duration
}

// NewRunner validates opts and returns a Runner.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Registry == nil {
		return nil, convergeerrors.NewExecutionError("", fmt.Errorf("plugin registry is nil"))
	}
	if opts.Host == nil || opts.Host.State == nil || opts.Host.Runner == nil {
		return nil, convergeerrors.NewExecutionError("", fmt.Errorf("system host is incomplete"))
	}

	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Runner{
		registry:        opts.Registry,
		host:            opts.Host,
		log:             log,
		observer:        observer,
		dryRun:          opts.DryRun,
		continueOnError: opts.ContinueOnError,
		timeout:         opts.Timeout,
	}, nil
}

// Run converges every enabled resource of plan. The first failure stops the run
// unless continue-on-error is in effect; resources never reached stay pending and
// are absent from the summary's results. The returned error is the first failure.
func (r *Runner) Run(ctx context.Context, plan *Plan) (*model.RunSummary, error) {
	if plan == nil {
		return nil, convergeerrors.NewExecutionError("", fmt.Errorf("execution plan is nil"))
	}

	start := time.Now()
	steps := plan.Steps()
	summary := &model.RunSummary{Total: len(steps)}
	artifacts := make(map[string]string)
	var firstErr error

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			if firstErr == nil {
				firstErr = convergeerrors.NewExecutionError(step.Resource.ID, err)
			}
			break
		}

		result, err := r.runStep(ctx, step, artifacts)
		summary.Add(result)
		if result.Artifact != "" {
			artifacts[step.Resource.ID] = result.Artifact
		}

		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if !r.continueOnError && !step.Recipe.Settings.ContinueOnError {
				break
			}
		}
	}

	summary.Duration = time.Since(start)
	return summary, firstErr
}

func (r *Runner) runStep(ctx context.Context, step Step, artifacts map[string]string) (model.ResourceResult, error) {
	res := step.Resource
	log := r.log.ForResource(step.Recipe.Name, res.ID, res.Type)
	dryRun := r.dryRun || step.Recipe.Settings.DryRun

	r.observer.ResourceStarted(step.Recipe.Name, res)
	log.Debug("converging resource")

	start := time.Now()
	stepCtx := ctx
	if timeout := r.timeoutFor(step.Recipe); timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := r.converge(stepCtx, step, artifacts, dryRun, log)
	result.ResourceID = res.ID
	result.Recipe = step.Recipe.Name
	result.Type = res.Type
	result.Duration = time.Since(start)
	result.Timestamp = time.Now()

	if err != nil {
		result.Status = model.StatusFailed
		if result.Error == nil {
			result.Error = err
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
			result.Message = fmt.Sprintf("timeout exceeded after %s", r.timeoutFor(step.Recipe))
		} else if result.Message == "" {
			result.Message = err.Error()
		}

		var guardErr *convergeerrors.GuardError
		if !errors.As(err, &guardErr) {
			err = convergeerrors.NewExecutionError(res.ID, err)
		}
		log.WithFields(map[string]any{"status": result.Status, "duration_ms": result.Duration.Milliseconds()}).Error(err, result.Message)
	} else {
		log.WithFields(map[string]any{"status": result.Status, "duration_ms": result.Duration.Milliseconds()}).Info(result.Message)
	}

	r.observer.ResourceFinished(result)
	return result, err
}

func (r *Runner) converge(ctx context.Context, step Step, artifacts map[string]string, dryRun bool, log *logger.Logger) (model.ResourceResult, error) {
	res := step.Resource

	decision, err := r.guards(step.Recipe, log).Evaluate(ctx, res.ID, res.OnlyIf, res.NotIf)
	if err != nil {
		return model.ResourceResult{}, err
	}
	if decision.Skip {
		return model.ResourceResult{Status: model.StatusUpToDate, GuardSkipped: true, Message: "skipped: " + decision.Reason}, nil
	}

	bound, ok := bindArtifact(res, artifacts)
	if !ok {
		if dryRun {
			return model.ResourceResult{
				Status:  model.StatusWouldConverge,
				Message: fmt.Sprintf("target resolves from artifact %s at apply time", res.Symlink.ToArtifact),
			}, nil
		}
		return model.ResourceResult{}, fmt.Errorf("artifact %s produced no path", res.Symlink.ToArtifact)
	}

	p, err := r.registry.Get(res.Type)
	if err != nil {
		return model.ResourceResult{}, err
	}

	eval, err := p.Evaluate(ctx, bound)
	if err != nil {
		return model.ResourceResult{}, fmt.Errorf("evaluate: %w", err)
	}

	if !eval.RequiresAction {
		return model.ResourceResult{Status: model.StatusUpToDate, Message: eval.Message, Artifact: eval.Artifact}, nil
	}
	if dryRun {
		if eval.Diff != "" {
			log.Debug("diff:\n" + eval.Diff)
		}
		return model.ResourceResult{Status: model.StatusWouldConverge, Message: eval.Message, Artifact: eval.Artifact}, nil
	}

	applied, err := p.Apply(ctx, eval, bound)
	if applied == nil {
		applied = &model.ResourceResult{}
	}
	if err != nil {
		return *applied, err
	}
	if applied.Status == "" {
		applied.Status = model.StatusConverged
	}
	if applied.Message == "" {
		applied.Message = eval.Message
	}
	return *applied, nil
}

func (r *Runner) guards(recipe *config.Recipe, log *logger.Logger) *guard.Evaluator {
	return &guard.Evaluator{
		State:  r.host.State,
		Runner: r.host.Runner,
		Logger: log,
		Policy: recipe.Settings.GuardErrorPolicy(),
	}
}

func (r *Runner) timeoutFor(recipe *config.Recipe) time.Duration {
	if r.timeout > 0 {
		return r.timeout
	}
	return time.Duration(recipe.Settings.Timeout) * time.Second
}

// bindArtifact returns a copy of res with its symlink target resolved from the
// run's artifact table. The declared resource is never modified.
func bindArtifact(res *config.Resource, artifacts map[string]string) (*config.Resource, bool) {
	if res.Symlink == nil || res.Symlink.ToArtifact == "" {
		return res, true
	}

	path, ok := artifacts[res.Symlink.ToArtifact]
	if !ok {
		return res, false
	}

	bound := *res
	link := *res.Symlink
	link.To = path
	bound.Symlink = &link
	return &bound, true
}
