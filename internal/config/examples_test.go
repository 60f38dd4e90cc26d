package config_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/engine"
	"github.com/alexisbeaulieu97/converge/internal/model"
	"github.com/alexisbeaulieu97/converge/internal/plugins"
	"github.com/alexisbeaulieu97/converge/internal/system"
	"github.com/alexisbeaulieu97/converge/internal/system/systemtest"
)

var examplesDir = filepath.Join("..", "..", "examples")

type staticSecrets map[string]string

func (s staticSecrets) Resolve(_ context.Context, ref string) (string, error) {
	return s[ref], nil
}

var exampleSecrets = staticSecrets{"aws-ssm:/converge/users/admin_hash": "$6$salt$hash"}

// accountsHandler mutates state the way the shadow-utils commands do on a real
// host, failing when a referenced user or group does not exist yet.
func accountsHandler(state *systemtest.State) systemtest.Handler {
	nextGID := 1000
	return func(cmd system.Command) (system.Result, error) {
		switch cmd.Name {
		case "groupadd":
			name := cmd.Args[len(cmd.Args)-1]
			nextGID++
			state.Groups[name] = &system.GroupEntry{Name: name, GID: nextGID}
		case "useradd":
			name := cmd.Args[len(cmd.Args)-1]
			account := &system.Account{Name: name, UID: 2000 + len(state.Users)}
			args := cmd.Args[:len(cmd.Args)-1]
			for i := 0; i < len(args); i++ {
				switch args[i] {
				case "-c":
					i++
					account.Comment = args[i]
				case "-d":
					i++
					account.Home = args[i]
				case "-s":
					i++
					account.Shell = args[i]
				case "-g":
					i++
					group := state.Groups[args[i]]
					if group == nil {
						return systemtest.Exit(cmd, 6, "useradd: group '"+args[i]+"' does not exist")
					}
					account.GID = group.GID
				}
			}
			state.Users[name] = account
		case "chpasswd":
			user, hash, _ := strings.Cut(strings.TrimSpace(cmd.Stdin), ":")
			state.Shadow[user] = hash
		case "gpasswd":
			user, group := cmd.Args[1], cmd.Args[2]
			if state.Users[user] == nil {
				return systemtest.Exit(cmd, 3, "gpasswd: user '"+user+"' does not exist")
			}
			state.Groups[group].Members = append(state.Groups[group].Members, user)
		}
		return system.Result{}, nil
	}
}

func newExampleRunner(t *testing.T, host *system.Host, dryRun bool) *engine.Runner {
	t.Helper()

	registry, err := plugins.Builtin(host, exampleSecrets, plugins.Options{UnitDir: t.TempDir()})
	require.NoError(t, err)
	r, err := engine.NewRunner(engine.Options{Registry: registry, Host: host, DryRun: dryRun})
	require.NoError(t, err)
	return r
}

func TestUsersExampleConvergesOnFreshHost(t *testing.T) {
	t.Parallel()

	shipped, err := config.ParseRecipe(filepath.Join(examplesDir, "users.yaml"))
	require.NoError(t, err)

	membersFirst, err := config.ParseRecipe(filepath.Join(examplesDir, "users.yaml"))
	require.NoError(t, err)
	membersFirst.Resources[0].Group.Members = []string{"admin"}

	tests := []struct {
		name     string
		recipe   *config.Recipe
		wantErr  string
		wantDone int
	}{
		{name: "shipped recipe", recipe: shipped, wantDone: 4},
		{name: "membership before user exists", recipe: membersFirst, wantErr: "does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			state := systemtest.NewState()
			runner := systemtest.NewRunner(accountsHandler(state))
			r := newExampleRunner(t, systemtest.Host(state, runner), false)

			summary, err := r.Run(context.Background(), engine.NewPlan(tt.recipe))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				require.Empty(t, state.Users)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantDone, summary.Converged)

			admin := state.Users["admin"]
			require.NotNil(t, admin)
			require.Equal(t, state.Groups["devops"].GID, admin.GID)
			require.Equal(t, "/home/admin", admin.Home)
			require.Equal(t, "$6$salt$hash", state.Shadow["admin"])
			require.Equal(t, state.Groups["developers"].GID, state.Users["devuser"].GID)
			require.Zero(t, runner.Count("gpasswd"))

			again, err := r.Run(context.Background(), engine.NewPlan(tt.recipe))
			require.NoError(t, err)
			require.Equal(t, len(tt.recipe.Resources), again.UpToDate)
		})
	}
}

func TestShippedRunListDryRunsOnFreshHost(t *testing.T) {
	t.Parallel()

	_, recipes, err := config.LoadRunList(filepath.Join(examplesDir, "runlist.yaml"))
	require.NoError(t, err)

	state := systemtest.NewState()
	runner := systemtest.NewRunner(accountsHandler(state))
	r := newExampleRunner(t, systemtest.Host(state, runner), true)

	summary, err := r.Run(context.Background(), engine.NewPlan(recipes...))
	require.NoError(t, err)
	require.Zero(t, summary.Failed)
	require.Empty(t, state.Users)
	require.Empty(t, state.Groups)

	byID := map[string]model.ResourceResult{}
	for _, res := range summary.Results {
		byID[res.ResourceID] = res
	}
	require.True(t, byID["copy_spring_app_source"].GuardSkipped)
	require.Equal(t, model.StatusWouldConverge, byID["app_link"].Status)
	require.Equal(t, model.StatusWouldConverge, byID["admin_user"].Status)
}
