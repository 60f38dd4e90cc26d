package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type logEntry map[string]any

func TestLoggerInfoWithFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "info", HumanReadable: false, Writer: buf})
	require.NoError(t, err)

	log = log.WithFields(map[string]any{"runlist": "ca4", "phase": "apply"})
	log.Info("starting run")

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "starting run", entry["message"])
	require.Equal(t, "ca4", entry["runlist"])
	require.Equal(t, "apply", entry["phase"])
	require.Equal(t, "info", entry["level"])
}

func TestLoggerForResourceAddsScope(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "info", Writer: buf})
	require.NoError(t, err)

	log.ForResource("h2", "unzip_h2", "shell").Info("converged")

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "h2", entry["recipe"])
	require.Equal(t, "unzip_h2", entry["resource"])
	require.Equal(t, "shell", entry["type"])
}

func TestLoggerDebugRespectsLevel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "info", HumanReadable: false, Writer: buf})
	require.NoError(t, err)

	log.Debug("this should not appear")
	require.Equal(t, "", strings.TrimSpace(buf.String()))
}

func TestLoggerErrorIncludesContext(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "debug", HumanReadable: false, Writer: buf})
	require.NoError(t, err)

	log = log.WithFields(map[string]any{"resource": "build_app"})
	log.Error(errors.New("boom"), "failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry logEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "failed", entry["message"])
	require.Equal(t, "build_app", entry["resource"])
	require.Equal(t, "boom", entry["error"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Level: "chatty"})
	require.Error(t, err)
}

func TestNilAndNopLoggersAreSafe(t *testing.T) {
	t.Parallel()

	var log *Logger
	log.Info("ignored")
	require.Nil(t, log.WithFields(map[string]any{"a": 1}))

	Nop().Error(errors.New("x"), "discarded")
}

func TestLevelFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		verbose, quiet bool
		want           string
	}{
		{name: "default", want: "info"},
		{name: "verbose", verbose: true, want: "debug"},
		{name: "quiet", quiet: true, want: "error"},
		{name: "verbose beats quiet", verbose: true, quiet: true, want: "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, LevelFor(tt.verbose, tt.quiet))
		})
	}
}

func TestStaticFieldsAreAttached(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Writer: buf, Fields: map[string]any{"command": "verify"}})
	require.NoError(t, err)

	log.Warn("drift found")

	var entry logEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "verify", entry["command"])
	require.Equal(t, "warn", entry["level"])
}
