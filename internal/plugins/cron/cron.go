package cronplugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
	"github.com/alexisbeaulieu97/converge/internal/plugin"
	"github.com/alexisbeaulieu97/converge/internal/plugins/pluginutil"
	"github.com/alexisbeaulieu97/converge/internal/system"
	"github.com/alexisbeaulieu97/converge/pkg/diff"
)

type cronPlugin struct {
	host *system.Host
}

// New creates a crontab entry provider.
func New(host *system.Host) plugin.Plugin {
	return &cronPlugin{host: host}
}

var _ plugin.Plugin = (*cronPlugin)(nil)

func (p *cronPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "cron",
		Type:        config.TypeCron,
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Manages tagged entries in a user's crontab.",
	}
}

func (p *cronPlugin) Schema() any {
	return config.CronResource{}
}

type cronEvaluationData struct {
	Desired string
}

func (p *cronPlugin) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	cfg := res.Cron
	if cfg == nil {
		return nil, plugin.NewValidationError(res.ID, fmt.Errorf("cron configuration missing"))
	}

	current, err := p.read(ctx, cfg.User)
	if err != nil {
		return nil, plugin.NewStateError(res.ID, err)
	}
	existing, found := FindEntry(current, cfg.CronName)

	if res.Action == "delete" {
		if !found {
			return pluginutil.Satisfied(res.ID, fmt.Sprintf("cron entry %s absent for %s", cfg.CronName, cfg.User), nil), nil
		}
		desired := RemoveEntry(current, cfg.CronName)
		return pluginutil.NeedsAction(res.ID, model.StatusDrifted,
			fmt.Sprintf("cron entry %s will be removed for %s", cfg.CronName, cfg.User),
			diff.GenerateUnifiedDiff([]byte(current), []byte(desired), "crontab (current)", "crontab (desired)"),
			&cronEvaluationData{Desired: desired}), nil
	}

	entry := RenderEntry(cfg.Schedule(), cfg.Command)
	if found && existing == entry {
		return pluginutil.Satisfied(res.ID, fmt.Sprintf("cron entry %s up to date for %s", cfg.CronName, cfg.User), nil), nil
	}

	desired := MergeEntry(current, cfg.CronName, entry)
	state := model.StatusMissing
	message := fmt.Sprintf("cron entry %s will be added for %s", cfg.CronName, cfg.User)
	if found {
		state = model.StatusDrifted
		message = fmt.Sprintf("cron entry %s differs for %s", cfg.CronName, cfg.User)
	}
	preview := diff.GenerateUnifiedDiff([]byte(current), []byte(desired), "crontab (current)", "crontab (desired)")
	return pluginutil.NeedsAction(res.ID, state, message, preview, &cronEvaluationData{Desired: desired}), nil
}

func (p *cronPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	data, ok := pluginutil.EvalData[*cronEvaluationData](evalResult)
	if !ok {
		fresh, err := p.Evaluate(ctx, res)
		if err != nil {
			return nil, err
		}
		evalResult = fresh
		data, _ = pluginutil.EvalData[*cronEvaluationData](fresh)
	}
	if !evalResult.RequiresAction {
		return &model.ResourceResult{ResourceID: res.ID, Type: res.Type, Status: model.StatusUpToDate, Message: evalResult.Message}, nil
	}

	cmd := system.Command{Name: "crontab", Args: []string{"-u", res.Cron.User, "-"}, Stdin: data.Desired}
	if _, err := pluginutil.Run(ctx, p.host.Runner, cmd); err != nil {
		return pluginutil.Failed(res, err)
	}
	return pluginutil.Converged(res, evalResult.Message), nil
}

// read returns the user's crontab, treating "no crontab" as empty.
func (p *cronPlugin) read(ctx context.Context, user string) (string, error) {
	out, err := p.host.Runner.Run(ctx, system.Command{Name: "crontab", Args: []string{"-l", "-u", user}})
	if err != nil {
		if _, isExit := system.ExitCode(err); isExit && strings.Contains(strings.ToLower(out.PrimaryOutput()+err.Error()), "no crontab") {
			return "", nil
		}
		return "", fmt.Errorf("read crontab for %s: %w", user, err)
	}
	return out.Stdout, nil
}
