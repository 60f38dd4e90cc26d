package cronplugin

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
	"github.com/alexisbeaulieu97/converge/internal/system"
	"github.com/alexisbeaulieu97/converge/internal/system/systemtest"
)

// fakeCrontab stores one crontab per user.
type fakeCrontab struct {
	mu    sync.Mutex
	tabs  map[string]string
	reads int
}

func (f *fakeCrontab) handle(cmd system.Command) (system.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cmd.Args[0] == "-l" {
		f.reads++
		user := cmd.Args[2]
		tab, ok := f.tabs[user]
		if !ok {
			return systemtest.Exit(cmd, 1, "no crontab for "+user)
		}
		return system.Result{Stdout: tab}, nil
	}
	f.tabs[cmd.Args[1]] = cmd.Stdin
	return system.Result{}, nil
}

func cronResource(action string) *config.Resource {
	return &config.Resource{
		ID:      "nightly_backup",
		Type:    config.TypeCron,
		Action:  action,
		Enabled: true,
		Cron: &config.CronResource{
			CronName: "nightly_backup",
			Minute:   "0", Hour: "2", Day: "*", Month: "*", Weekday: "*",
			Command: "/usr/local/bin/backup",
			User:    "root",
		},
	}
}

func TestCronPlugin_CreateIsIdempotent(t *testing.T) {
	t.Parallel()

	tabs := &fakeCrontab{tabs: map[string]string{}}
	runner := systemtest.NewRunner(tabs.handle)
	p := New(systemtest.Host(systemtest.NewState(), runner))
	res := cronResource("create")

	eval, err := p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, model.StatusMissing, eval.CurrentState)

	result, err := p.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	require.Equal(t, model.StatusConverged, result.Status)
	require.Equal(t, "# converge: nightly_backup\n0 2 * * * /usr/local/bin/backup\n", tabs.tabs["root"])

	eval, err = p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.False(t, eval.RequiresAction)
	require.Equal(t, 1, runner.Count("crontab -u root -"))
}

func TestCronPlugin_DriftedSchedule(t *testing.T) {
	t.Parallel()

	tabs := &fakeCrontab{tabs: map[string]string{
		"root": "SHELL=/bin/sh\n# converge: nightly_backup\n30 1 * * * /usr/local/bin/backup\n",
	}}
	p := New(systemtest.Host(systemtest.NewState(), systemtest.NewRunner(tabs.handle)))
	res := cronResource("create")

	eval, err := p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, model.StatusDrifted, eval.CurrentState)
	require.Contains(t, eval.Diff, "+0 2 * * * /usr/local/bin/backup")

	_, err = p.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	require.Equal(t, "SHELL=/bin/sh\n# converge: nightly_backup\n0 2 * * * /usr/local/bin/backup\n", tabs.tabs["root"])
}

func TestCronPlugin_Delete(t *testing.T) {
	t.Parallel()

	tabs := &fakeCrontab{tabs: map[string]string{
		"root": "# converge: nightly_backup\n0 2 * * * /usr/local/bin/backup\n@reboot /bin/true\n",
	}}
	p := New(systemtest.Host(systemtest.NewState(), systemtest.NewRunner(tabs.handle)))
	res := cronResource("delete")

	eval, err := p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.True(t, eval.RequiresAction)

	_, err = p.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	require.Equal(t, "@reboot /bin/true\n", tabs.tabs["root"])

	eval, err = p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.False(t, eval.RequiresAction)
}

func TestCronPlugin_ReadFailure(t *testing.T) {
	t.Parallel()

	runner := systemtest.NewRunner(func(cmd system.Command) (system.Result, error) {
		return systemtest.Exit(cmd, 1, "crontab: user `ghost' unknown")
	})
	p := New(systemtest.Host(systemtest.NewState(), runner))

	_, err := p.Evaluate(context.Background(), cronResource("create"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "read crontab for root")
}
