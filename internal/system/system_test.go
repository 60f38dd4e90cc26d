package system

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}
	t.Parallel()

	runner := &ExecRunner{}
	ctx := context.Background()

	res, err := runner.Run(ctx, Command{Name: "sh", Args: []string{"-c", "echo hello"}})
	require.NoError(t, err)
	require.Equal(t, "hello", res.Stdout)

	res, err = runner.Run(ctx, Command{Name: "sh", Args: []string{"-c", "echo broken >&2; exit 3"}})
	require.Error(t, err)
	code, ok := ExitCode(err)
	require.True(t, ok)
	require.Equal(t, 3, code)
	require.Equal(t, "broken", res.PrimaryOutput())

	res, err = runner.Run(ctx, Command{Name: "sh", Args: []string{"-c", "cat; echo $GREETING"}, Stdin: "in\n", Env: map[string]string{"GREETING": "hi"}})
	require.NoError(t, err)
	require.Equal(t, "in\nhi", res.Stdout)

	dir := t.TempDir()
	res, err = runner.Run(ctx, Command{Name: "pwd", Dir: dir})
	require.NoError(t, err)
	resolved, _ := filepath.EvalSymlinks(dir)
	require.Contains(t, []string{dir, resolved}, res.Stdout)
}

func TestExecRunnerContextTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := (&ExecRunner{}).Run(ctx, Command{Name: "sleep", Args: []string{"5"}})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	_, ok := ExitCode(err)
	require.False(t, ok)
}

func TestLocalStateFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	state := NewLocalState()

	ok, err := state.FileExists(file)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = state.FileExists(dir)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = state.DirectoryExists(dir)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = state.DirectoryExists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLocalStateAccounts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	passwd := filepath.Join(dir, "passwd")
	group := filepath.Join(dir, "group")
	shadow := filepath.Join(dir, "shadow")
	require.NoError(t, os.WriteFile(passwd, []byte("root:x:0:0:root:/root:/bin/bash\nh2:x:1001:1001:H2 database:/opt/h2:/bin/bash\n"), 0o644))
	require.NoError(t, os.WriteFile(group, []byte("# comment\nh2:x:1001:\ndevs:x:1002:alice, bob\n"), 0o644))
	require.NoError(t, os.WriteFile(shadow, []byte("h2:$6$salt$hash:19000:0:99999:7:::\n"), 0o600))

	host := NewHost(Options{PasswdPath: passwd, GroupPath: group, ShadowPath: shadow})

	account, err := host.State.LookupUser("h2")
	require.NoError(t, err)
	require.Equal(t, &Account{Name: "h2", UID: 1001, GID: 1001, Comment: "H2 database", Home: "/opt/h2", Shell: "/bin/bash"}, account)

	missing, err := host.State.LookupUser("nobody")
	require.NoError(t, err)
	require.Nil(t, missing)

	devs, err := host.State.LookupGroup("devs")
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, devs.Members)
	require.True(t, devs.HasMember("bob"))

	h2, err := host.State.LookupGroup("h2")
	require.NoError(t, err)
	require.Empty(t, h2.Members)

	hash, err := host.State.ShadowHash("h2")
	require.NoError(t, err)
	require.Equal(t, "$6$salt$hash", hash)
}

func TestLocalStateProcessRunning(t *testing.T) {
	t.Parallel()

	proc := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(proc, "42"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(proc, "42", "cmdline"), []byte("java\x00-jar\x00/opt/h2/h2.jar\x00"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(proc, "self"), 0o755))

	state := &LocalState{ProcRoot: proc}

	running, err := state.ProcessRunning("-jar /opt/h2/h2.jar")
	require.NoError(t, err)
	require.True(t, running)

	running, err = state.ProcessRunning("spring-app")
	require.NoError(t, err)
	require.False(t, running)
}

func TestCommandString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "apt-get install -y curl", Command{Name: "apt-get", Args: []string{"install", "-y", "curl"}}.String())
}
