package groupplugin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
	"github.com/alexisbeaulieu97/converge/internal/plugin"
	"github.com/alexisbeaulieu97/converge/internal/plugins/pluginutil"
	"github.com/alexisbeaulieu97/converge/internal/system"
)

type groupPlugin struct {
	host *system.Host
}

// New creates a group provider.
func New(host *system.Host) plugin.Plugin {
	return &groupPlugin{host: host}
}

var _ plugin.Plugin = (*groupPlugin)(nil)

func (p *groupPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "group",
		Type:        config.TypeGroup,
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Manages local groups and their members.",
	}
}

func (p *groupPlugin) Schema() any {
	return config.GroupResource{}
}

type groupEvaluationData struct {
	Exists         bool
	GIDDrift       bool
	MissingMembers []string
}

func (p *groupPlugin) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	cfg := res.Group
	if cfg == nil {
		return nil, plugin.NewValidationError(res.ID, fmt.Errorf("group configuration missing"))
	}

	entry, err := p.host.State.LookupGroup(cfg.GroupName)
	if err != nil {
		return nil, plugin.NewStateError(res.ID, err)
	}

	if res.Action == "remove" {
		if entry == nil {
			return pluginutil.Satisfied(res.ID, fmt.Sprintf("group %s is absent", cfg.GroupName), &groupEvaluationData{}), nil
		}
		return pluginutil.NeedsAction(res.ID, model.StatusDrifted, fmt.Sprintf("group %s exists", cfg.GroupName),
			fmt.Sprintf("Would remove group: %s", cfg.GroupName), &groupEvaluationData{Exists: true}), nil
	}

	if entry == nil {
		data := &groupEvaluationData{MissingMembers: append([]string(nil), cfg.Members...)}
		return pluginutil.NeedsAction(res.ID, model.StatusMissing, fmt.Sprintf("group %s does not exist", cfg.GroupName),
			fmt.Sprintf("Would create group: %s", cfg.GroupName), data), nil
	}

	data := &groupEvaluationData{Exists: true}
	var drift []string
	if cfg.GID != nil && entry.GID != *cfg.GID {
		data.GIDDrift = true
		drift = append(drift, fmt.Sprintf("gid %d (want %d)", entry.GID, *cfg.GID))
	}
	for _, member := range cfg.Members {
		if !entry.HasMember(member) {
			data.MissingMembers = append(data.MissingMembers, member)
		}
	}
	if len(data.MissingMembers) > 0 {
		drift = append(drift, "missing members "+strings.Join(data.MissingMembers, ", "))
	}

	if len(drift) == 0 {
		return pluginutil.Satisfied(res.ID, fmt.Sprintf("group %s is up to date", cfg.GroupName), data), nil
	}
	return pluginutil.NeedsAction(res.ID, model.StatusDrifted,
		fmt.Sprintf("group %s differs: %s", cfg.GroupName, strings.Join(drift, "; ")), "", data), nil
}

func (p *groupPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	cfg := res.Group
	data, ok := pluginutil.EvalData[*groupEvaluationData](evalResult)
	if !ok {
		fresh, err := p.Evaluate(ctx, res)
		if err != nil {
			return nil, err
		}
		evalResult = fresh
		data, _ = pluginutil.EvalData[*groupEvaluationData](fresh)
	}
	if !evalResult.RequiresAction {
		return &model.ResourceResult{ResourceID: res.ID, Type: res.Type, Status: model.StatusUpToDate, Message: evalResult.Message}, nil
	}

	if res.Action == "remove" {
		if _, err := pluginutil.Run(ctx, p.host.Runner, system.Command{Name: "groupdel", Args: []string{cfg.GroupName}}); err != nil {
			return pluginutil.Failed(res, err)
		}
		return pluginutil.Converged(res, fmt.Sprintf("removed group %s", cfg.GroupName)), nil
	}

	var changes []string
	switch {
	case !data.Exists:
		args := []string{cfg.GroupName}
		if cfg.GID != nil {
			args = []string{"-g", strconv.Itoa(*cfg.GID), cfg.GroupName}
		}
		if _, err := pluginutil.Run(ctx, p.host.Runner, system.Command{Name: "groupadd", Args: args}); err != nil {
			return pluginutil.Failed(res, err)
		}
		changes = append(changes, "created")
	case data.GIDDrift:
		args := []string{"-g", strconv.Itoa(*cfg.GID), cfg.GroupName}
		if _, err := pluginutil.Run(ctx, p.host.Runner, system.Command{Name: "groupmod", Args: args}); err != nil {
			return pluginutil.Failed(res, err)
		}
		changes = append(changes, "gid updated")
	}

	for _, member := range data.MissingMembers {
		if _, err := pluginutil.Run(ctx, p.host.Runner, system.Command{Name: "gpasswd", Args: []string{"-a", member, cfg.GroupName}}); err != nil {
			return pluginutil.Failed(res, err)
		}
	}
	if len(data.MissingMembers) > 0 {
		changes = append(changes, "added "+strings.Join(data.MissingMembers, ", "))
	}

	return pluginutil.Converged(res, fmt.Sprintf("group %s: %s", cfg.GroupName, strings.Join(changes, "; "))), nil
}
