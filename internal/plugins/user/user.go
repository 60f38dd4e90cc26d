package userplugin

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

// SecretResolver turns a password_secret reference into a crypt(3) hash.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

type userPlugin struct {
	host    *system.Host
	secrets SecretResolver
}

// New creates a user provider. secrets may be nil when no declaration uses
// password_secret.
func New(host *system.Host, secrets SecretResolver) plugin.Plugin {
	return &userPlugin{host: host, secrets: secrets}
}

var _ plugin.Plugin = (*userPlugin)(nil)

func (p *userPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "user",
		Type:        config.TypeUser,
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Manages local accounts with useradd and usermod.",
	}
}

func (p *userPlugin) Schema() any {
	return config.UserResource{}
}

type userEvaluationData struct {
	Exists       bool
	ModifyArgs   []string
	PasswordHash string
	SetPassword  bool
}

func (p *userPlugin) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	cfg := res.User
	if cfg == nil {
		return nil, plugin.NewValidationError(res.ID, fmt.Errorf("user configuration missing"))
	}

	account, err := p.host.State.LookupUser(cfg.Username)
	if err != nil {
		return nil, plugin.NewStateError(res.ID, err)
	}

	if res.Action == "remove" {
		if account == nil {
			return pluginutil.Satisfied(res.ID, fmt.Sprintf("user %s is absent", cfg.Username), &userEvaluationData{}), nil
		}
		return pluginutil.NeedsAction(res.ID, model.StatusDrifted, fmt.Sprintf("user %s exists", cfg.Username),
			fmt.Sprintf("Would remove user: %s", cfg.Username), &userEvaluationData{Exists: true}), nil
	}

	data := &userEvaluationData{Exists: account != nil}

	if cfg.PasswordSecret != "" {
		if p.secrets == nil {
			return nil, plugin.NewValidationError(res.ID, fmt.Errorf("password_secret is set but no secret resolver is configured"))
		}
		hash, err := p.secrets.Resolve(ctx, cfg.PasswordSecret)
		if err != nil {
			return nil, plugin.NewStateError(res.ID, fmt.Errorf("resolve password_secret: %w", err))
		}
		data.PasswordHash = hash
	}

	if account == nil {
		data.SetPassword = data.PasswordHash != ""
		return pluginutil.NeedsAction(res.ID, model.StatusMissing, fmt.Sprintf("user %s does not exist", cfg.Username),
			fmt.Sprintf("Would create user: %s", cfg.Username), data), nil
	}

	var drift []string
	if cfg.Comment != "" && account.Comment != cfg.Comment {
		drift = append(drift, "comment")
		data.ModifyArgs = append(data.ModifyArgs, "-c", cfg.Comment)
	}
	if cfg.Home != "" && account.Home != cfg.Home {
		drift = append(drift, "home")
		data.ModifyArgs = append(data.ModifyArgs, "-d", cfg.Home)
		if cfg.ManageHome {
			data.ModifyArgs = append(data.ModifyArgs, "-m")
		}
	}
	if cfg.Shell != "" && account.Shell != cfg.Shell {
		drift = append(drift, "shell")
		data.ModifyArgs = append(data.ModifyArgs, "-s", cfg.Shell)
	}
	if cfg.GID != "" {
		gid, known, err := p.resolveGID(cfg.GID)
		if err != nil {
			return nil, plugin.NewStateError(res.ID, err)
		}
		if !known || gid != account.GID {
			drift = append(drift, "gid")
			data.ModifyArgs = append(data.ModifyArgs, "-g", cfg.GID)
		}
	}
	if data.PasswordHash != "" {
		current, err := p.host.State.ShadowHash(cfg.Username)
		if err != nil {
			return nil, plugin.NewStateError(res.ID, err)
		}
		if current != data.PasswordHash {
			drift = append(drift, "password")
			data.SetPassword = true
		}
	}

	if len(drift) == 0 {
		return pluginutil.Satisfied(res.ID, fmt.Sprintf("user %s is up to date", cfg.Username), data), nil
	}
	return pluginutil.NeedsAction(res.ID, model.StatusDrifted,
		fmt.Sprintf("user %s differs: %s", cfg.Username, strings.Join(drift, ", ")), "", data), nil
}

func (p *userPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	cfg := res.User
	data, ok := pluginutil.EvalData[*userEvaluationData](evalResult)
	if !ok {
		fresh, err := p.Evaluate(ctx, res)
		if err != nil {
			return nil, err
		}
		evalResult = fresh
		data, _ = pluginutil.EvalData[*userEvaluationData](fresh)
	}
	if !evalResult.RequiresAction {
		return &model.ResourceResult{ResourceID: res.ID, Type: res.Type, Status: model.StatusUpToDate, Message: evalResult.Message}, nil
	}

	if res.Action == "remove" {
		args := []string{cfg.Username}
		if cfg.ManageHome {
			args = []string{"-r", cfg.Username}
		}
		if _, err := pluginutil.Run(ctx, p.host.Runner, system.Command{Name: "userdel", Args: args}); err != nil {
			return pluginutil.Failed(res, err)
		}
		return pluginutil.Converged(res, fmt.Sprintf("removed user %s", cfg.Username)), nil
	}

	var changes []string
	if !data.Exists {
		if _, err := pluginutil.Run(ctx, p.host.Runner, system.Command{Name: "useradd", Args: addArgs(cfg)}); err != nil {
			return pluginutil.Failed(res, err)
		}
		changes = append(changes, "created")
	} else if len(data.ModifyArgs) > 0 {
		args := append(append([]string{}, data.ModifyArgs...), cfg.Username)
		if _, err := pluginutil.Run(ctx, p.host.Runner, system.Command{Name: "usermod", Args: args}); err != nil {
			return pluginutil.Failed(res, err)
		}
		changes = append(changes, "modified")
	}

	if data.SetPassword {
		// chpasswd reads the hash on stdin so it never appears in a process listing.
		cmd := system.Command{Name: "chpasswd", Args: []string{"-e"}, Stdin: cfg.Username + ":" + data.PasswordHash + "\n"}
		if _, err := p.host.Runner.Run(ctx, cmd); err != nil {
			code, _ := system.ExitCode(err)
			return pluginutil.Failed(res, fmt.Errorf("chpasswd exited with status %d", code))
		}
		changes = append(changes, "password updated")
	}

	return pluginutil.Converged(res, fmt.Sprintf("user %s: %s", cfg.Username, strings.Join(changes, ", "))), nil
}

func (p *userPlugin) resolveGID(gid string) (int, bool, error) {
	if n, err := strconv.Atoi(gid); err == nil {
		return n, true, nil
	}
	entry, err := p.host.State.LookupGroup(gid)
	if err != nil {
		return 0, false, err
	}
	if entry == nil {
		return 0, false, nil
	}
	return entry.GID, true, nil
}

func addArgs(cfg *config.UserResource) []string {
	var args []string
	if cfg.Comment != "" {
		args = append(args, "-c", cfg.Comment)
	}
	if cfg.Home != "" {
		args = append(args, "-d", cfg.Home)
	}
	if cfg.Shell != "" {
		args = append(args, "-s", cfg.Shell)
	}
	if cfg.GID != "" {
		args = append(args, "-g", cfg.GID)
	}
	if cfg.ManageHome {
		args = append(args, "-m")
	} else {
		args = append(args, "-M")
	}
	return append(args, cfg.Username)
}
