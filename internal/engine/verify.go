package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexisbeaulieu97/converge/internal/model"
	"github.com/alexisbeaulieu97/converge/internal/plugin"
)

// Verify evaluates every enabled resource without changing the host. A plugin
// validation error aborts verification; state detection problems are reported as
// unknown.
func (r *Runner) Verify(ctx context.Context, plan *Plan) (*model.VerificationSummary, error) {
	start := time.Now()
	steps := plan.Steps()
	summary := &model.VerificationSummary{TotalResources: len(steps)}
	artifacts := make(map[string]string)

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}

		result, err := r.verifyStep(ctx, step, artifacts)
		if err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}
		summary.Add(result)
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

func (r *Runner) verifyStep(ctx context.Context, step Step, artifacts map[string]string) (*model.VerificationResult, error) {
	res := step.Resource
	log := r.log.ForResource(step.Recipe.Name, res.ID, res.Type)
	stepStart := time.Now()

	result := &model.VerificationResult{ResourceID: res.ID, Recipe: step.Recipe.Name, Type: res.Type}
	finish := func(status model.VerificationStatus, message string, err error) (*model.VerificationResult, error) {
		result.Status = status
		result.Message = message
		result.Error = err
		result.Duration = time.Since(stepStart)
		result.Timestamp = time.Now()
		log.WithFields(map[string]any{"status": status}).Debug(message)
		return result, nil
	}

	stepCtx := ctx
	if timeout := r.timeoutFor(step.Recipe); timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	decision, err := r.guards(step.Recipe, log).Evaluate(stepCtx, res.ID, res.OnlyIf, res.NotIf)
	if err != nil {
		return finish(model.StatusUnknown, err.Error(), err)
	}
	if decision.Skip {
		return finish(model.StatusSatisfied, "skipped: "+decision.Reason, nil)
	}

	bound, ok := bindArtifact(res, artifacts)
	if !ok {
		return finish(model.StatusBlocked, fmt.Sprintf("artifact %s has no discovered path", res.Symlink.ToArtifact), nil)
	}

	p, err := r.registry.Get(res.Type)
	if err != nil {
		return finish(model.StatusBlocked, fmt.Sprintf("no provider for type %s", res.Type), err)
	}

	eval, err := p.Evaluate(stepCtx, bound)
	if err != nil {
		var validationErr *plugin.ValidationError
		if errors.As(err, &validationErr) {
			return nil, err
		}
		return finish(model.StatusUnknown, err.Error(), err)
	}

	if eval.Artifact != "" {
		artifacts[res.ID] = eval.Artifact
	}
	result.Details = eval.Diff
	return finish(eval.CurrentState, eval.Message, nil)
}
